package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestKeyDeterministic(t *testing.T) {
	a := RequestKey("market-data", "/quote", map[string]string{"symbol": "AAPL", "range": "1d"})
	b := RequestKey("market-data", "/quote", map[string]string{"range": "1d", "symbol": "AAPL"})
	require.Equal(t, a, b)
}

func TestRequestKeyDistinguishesInputs(t *testing.T) {
	base := RequestKey("market-data", "/quote", map[string]string{"symbol": "AAPL"})

	require.NotEqual(t, base, RequestKey("llm", "/quote", map[string]string{"symbol": "AAPL"}))
	require.NotEqual(t, base, RequestKey("market-data", "/history", map[string]string{"symbol": "AAPL"}))
	require.NotEqual(t, base, RequestKey("market-data", "/quote", map[string]string{"symbol": "MSFT"}))
	require.NotEqual(t, base, RequestKey("market-data", "/quote", nil))
}

func TestRequestKeyNoParams(t *testing.T) {
	require.Equal(t, "store|/documents", RequestKey("store", "/documents", nil))
	require.Equal(t, RequestKey("store", "/documents", nil), RequestKey(" store ", " /documents ", map[string]string{}))
}
