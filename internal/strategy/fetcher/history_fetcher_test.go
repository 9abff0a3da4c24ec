package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "GC=F", "regularMarketPrice": 2350.5, "chartPreviousClose": 2330.0, "regularMarketTime": 1714560000},
      "timestamp": [1714300000, 1714386400, 1714472800],
      "indicators": {"quote": [{
        "open":   [2300.0, null, 2320.0],
        "high":   [2310.0, 2330.0, 2355.0],
        "low":    [2290.0, 2300.0, 2315.0],
        "close":  [2305.0, 2325.0, 2350.5],
        "volume": [1000, 1200, null]
      }]}
    }],
    "error": null
  }
}`

func TestFetchBarsSkipsNullRows(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	h := NewHistoryFetcher(srv.URL, "", 5*time.Second)
	bars, err := h.FetchBars(context.Background(), "GC=F", "1y", "1d")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/GC=F", gotPath)
	assert.Equal(t, "range=1y&interval=1d", gotQuery)
	require.Len(t, bars, 2)
	assert.Equal(t, 2305.0, bars[0].Close)
	assert.Equal(t, 2350.5, bars[1].Close)
	require.NotNil(t, bars[0].Volume)
	assert.Nil(t, bars[1].Volume)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
}

func TestFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	quote, err := NewHistoryFetcher(srv.URL, "", 5*time.Second).FetchQuote(context.Background(), "GC=F")
	require.NoError(t, err)
	assert.Equal(t, 2350.5, quote.Price)
	assert.InDelta(t, 20.5, quote.Change, 1e-9)
	assert.InDelta(t, 20.5/2330*100, quote.ChangePct, 1e-9)
}

func TestFetchBarsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/MISSING":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		}
	}))
	defer srv.Close()

	h := NewHistoryFetcher(srv.URL, "", 5*time.Second)

	_, err := h.FetchBars(context.Background(), "MISSING", "1y", "1d")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.False(t, statusErr.Retryable())

	_, err = h.FetchBars(context.Background(), "GC=F", "1y", "1d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestFetchMultipleSymbolsContinuesOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v8/finance/chart/BAD" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	result := NewHistoryFetcher(srv.URL, "", 5*time.Second).
		FetchMultipleSymbols(context.Background(), []string{"BAD", "GC=F"}, "1y", "1d")
	assert.NotContains(t, result, "BAD")
	assert.Len(t, result["GC=F"], 2)
}
