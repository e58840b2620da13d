package txvalidator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gorecovery/logger"

	"github.com/hashicorp/go-retryablehttp"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceOracle quotes the token's current USD price.
type PriceOracle interface {
	USDPrice(ctx context.Context) (decimal.Decimal, error)
}

// CoinGecko reads the simple/price endpoint and caches quotes for ttl.
type CoinGecko struct {
	baseURL string
	coinID  string
	ttl     time.Duration
	http    *retryablehttp.Client
	cache   *gocache.Cache
}

func NewCoinGecko(baseURL, coinID string, ttl time.Duration, httpClient *retryablehttp.Client) *CoinGecko {
	if httpClient == nil {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.HTTPClient.Timeout = 10 * time.Second
		httpClient.Logger = logger.NewLeveled()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		coinID:  coinID,
		ttl:     ttl,
		http:    httpClient,
		cache:   gocache.New(ttl, 2*ttl),
	}
}

func (c *CoinGecko) USDPrice(ctx context.Context) (decimal.Decimal, error) {
	if v, ok := c.cache.Get(c.coinID); ok {
		return v.(decimal.Decimal), nil
	}

	q := url.Values{}
	q.Set("ids", c.coinID)
	q.Set("vs_currencies", "usd")
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("price lookup: status %d", resp.StatusCode)
	}

	var quotes map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&quotes); err != nil {
		return decimal.Decimal{}, fmt.Errorf("price lookup: %w", err)
	}
	price, ok := quotes[c.coinID]["usd"]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("price lookup: no usd quote for %s", c.coinID)
	}

	c.cache.SetDefault(c.coinID, price)
	logger.Debug("token price refreshed", zap.String("coin", c.coinID), zap.String("usd", price.String()))
	return price, nil
}

// FixedPrice always quotes the same price.
type FixedPrice decimal.Decimal

func (p FixedPrice) USDPrice(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(p), nil
}
