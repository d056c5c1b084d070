// Package feed reads historical order flow from CSV files. Each line is
// timestamp,pair,side,price,amount; lines must already be sorted ascending by
// timestamp. Malformed lines are counted and skipped, never surfaced as
// orders.
package feed

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"exsim/pkg/exchange/book"
)

const fieldsPerLine = 5

// ReadFile loads every well-formed order record from path. All orders carry
// the dataset owner.
func ReadFile(path string, log *zap.SugaredLogger) ([]*book.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	var orders []*book.Order
	skipped := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		o, err := parseLine(line)
		if err != nil {
			skipped++
			log.Debugw("bad_data_line", "line", lineNo, "err", err)
			continue
		}
		orders = append(orders, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	log.Infow("data_loaded", "file", path, "orders", len(orders), "skipped", skipped)
	return orders, nil
}

func parseLine(line string) (*book.Order, error) {
	fields := strings.Split(line, ",")
	if len(fields) != fieldsPerLine {
		return nil, fmt.Errorf("want %d fields, got %d", fieldsPerLine, len(fields))
	}

	pair, err := book.ParsePair(fields[1])
	if err != nil {
		return nil, err
	}
	side, err := book.ParseSide(fields[2])
	if err != nil {
		return nil, err
	}
	price, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, fmt.Errorf("bad price %q: %w", fields[3], err)
	}
	amount, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", fields[4], err)
	}

	return book.NewOrder(side, pair, price, amount, fields[0], book.OwnerDataset)
}
