package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairbot/internal/domain"
)

// DataClient is the REST client for the Alpaca market data API.
type DataClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client

	// now is swappable in tests so the request window is deterministic.
	now func() time.Time
}

// NewDataClient creates a new Alpaca market data client.
//
// baseURL is the API root, e.g. "https://data.alpaca.markets".
func NewDataClient(baseURL, apiKey, apiSecret string) *DataClient {
	return &DataClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// GetDailyBars returns daily bars for symbol covering the trailing
// lookbackDays calendar days, oldest first. No end boundary is sent: the
// provider cuts the window at its most recent permitted bar, which on free
// data plans lags wall-clock time by policy. Pagination is followed until the
// window is exhausted.
func (c *DataClient) GetDailyBars(ctx context.Context, symbol string, lookbackDays int) (domain.PriceSeries, error) {
	start := c.now().UTC().AddDate(0, 0, -lookbackDays)

	var series domain.PriceSeries
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("timeframe", "1Day")
		params.Set("start", start.Format(time.RFC3339))
		params.Set("limit", strconv.Itoa(lookbackDays))
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		fullURL := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

		body, err := doRequest(ctx, c.httpClient, c.apiKey, c.apiSecret, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("alpaca: get daily bars %s: %w", symbol, err)
		}

		var resp barsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("alpaca: decode bars %s: %w", symbol, err)
		}

		for _, b := range resp.Bars {
			series = append(series, domain.Bar{
				Symbol: symbol,
				Date:   b.Timestamp,
				Open:   decimal.NewFromFloat(b.Open),
				High:   decimal.NewFromFloat(b.High),
				Low:    decimal.NewFromFloat(b.Low),
				Close:  decimal.NewFromFloat(b.Close),
				Volume: b.Volume,
			})
		}

		if resp.NextPageToken == nil || *resp.NextPageToken == "" {
			break
		}
		pageToken = *resp.NextPageToken
	}

	return series, nil
}
