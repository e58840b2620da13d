package txvalidator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.Logger = nil
	return c
}

func TestCoinGeckoCachesQuote(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "dimo", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{"dimo":{"usd":0.1234}}`))
	}))
	defer srv.Close()

	oracle := NewCoinGecko(srv.URL, "dimo", time.Minute, testHTTPClient())
	for i := 0; i < 3; i++ {
		price, err := oracle.USDPrice(context.Background())
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("0.1234").Equal(price))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCoinGeckoErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") == "missing" {
			w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewCoinGecko(srv.URL, "dimo", time.Minute, testHTTPClient()).USDPrice(context.Background())
	assert.Error(t, err)

	_, err = NewCoinGecko(srv.URL, "missing", time.Minute, testHTTPClient()).USDPrice(context.Background())
	assert.ErrorContains(t, err, "no usd quote")
}

func TestFixedPrice(t *testing.T) {
	p, err := FixedPrice(decimal.NewFromFloat(0.5)).USDPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.5", p.String())
}
