package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"exsim/pkg/exchange/book"
)

func writeDataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFile(t *testing.T) {
	path := writeDataFile(t,
		"2020/03/17 17:01:24.884492,ETH/BTC,bid,0.021862x9,0.1\n"+
			"2020/03/17 17:01:24.884492,ETH/BTC,ask,0.02187308,7.44564869\n"+
			"2020/03/17 17:01:30.904256,ETH/BTC,bid,0.02187307,3.86908263\n")
	// The first record carries a mangled price and must be skipped.

	orders, err := ReadFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, book.Ask, first.Side)
	assert.Equal(t, book.Pair{Base: "ETH", Quote: "BTC"}, first.Pair)
	assert.InDelta(t, 0.02187308, first.Price, 1e-12)
	assert.InDelta(t, 7.44564869, first.Quantity, 1e-12)
	assert.Equal(t, "2020/03/17 17:01:24.884492", first.Timestamp)
	assert.Equal(t, book.OwnerDataset, first.Owner)

	assert.Equal(t, book.Bid, orders[1].Side)
	assert.Equal(t, "2020/03/17 17:01:30.904256", orders[1].Timestamp)
}

func TestReadFileSkipsMalformedLines(t *testing.T) {
	path := writeDataFile(t,
		"not,enough,fields\n"+
			"t1,ETHBTC,ask,1,1\n"+ // pair missing separator
			"t1,ETH/BTC,hold,1,1\n"+ // unknown side
			"t1,ETH/BTC,ask,abc,1\n"+ // bad price
			"t1,ETH/BTC,ask,1,abc\n"+ // bad amount
			"t1,ETH/BTC,ask,-1,1\n"+ // negative price
			"\n"+
			"t1,ETH/BTC,ask,1.5,2\n")

	orders, err := ReadFile(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.InDelta(t, 1.5, orders[0].Price, 1e-12)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestParseLine(t *testing.T) {
	o, err := parseLine("2020/06/01 11:57:30,DOGE/USDT,bid,0.00267,322.0")
	require.NoError(t, err)
	assert.Equal(t, book.Bid, o.Side)
	assert.Equal(t, "DOGE", o.Pair.Base)
	assert.Equal(t, "USDT", o.Pair.Quote)
	assert.InDelta(t, 0.00267, o.Price, 1e-12)
	assert.InDelta(t, 322.0, o.Quantity, 1e-12)
}
