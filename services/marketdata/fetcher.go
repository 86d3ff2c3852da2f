package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"research_platform_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fetcher retrieves quotes and daily history from a Yahoo-chart-compatible
// endpoint and caches bars in the price_bars table.
type Fetcher struct {
	db         *gorm.DB
	baseURL    string
	httpClient *http.Client
}

// NewFetcher creates a new market data fetcher
func NewFetcher(db *gorm.DB, baseURL string) *Fetcher {
	return &Fetcher{
		db:      db,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// chartResponse mirrors the chart API payload
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				Currency           string  `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote is a realtime price snapshot
type Quote struct {
	Ticker        string          `json:"ticker"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Currency      string          `json:"currency"`
	AsOf          time.Time       `json:"as_of"`
}

// FetchQuote fetches the current price for a ticker. When the upstream call
// fails, the latest cached bar is returned instead so read paths degrade
// rather than error out.
func (f *Fetcher) FetchQuote(ctx context.Context, ticker string) (*Quote, error) {
	resp, err := f.fetchChart(ctx, ticker, "1d", "1d")
	if err == nil && len(resp.Chart.Result) > 0 {
		meta := resp.Chart.Result[0].Meta
		price := decimal.NewFromFloat(meta.RegularMarketPrice)
		prev := decimal.NewFromFloat(meta.PreviousClose)
		change := price.Sub(prev)
		changePct := decimal.Zero
		if !prev.IsZero() {
			changePct = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(4)
		}
		return &Quote{
			Ticker:        ticker,
			Price:         price,
			PreviousClose: prev,
			Change:        change,
			ChangePercent: changePct,
			Currency:      meta.Currency,
			AsOf:          time.Now(),
		}, nil
	}

	// Fall back to the latest cached bar.
	var bar models.PriceBar
	if dbErr := f.db.Where("ticker = ?", ticker).Order("date DESC").First(&bar).Error; dbErr != nil {
		if err != nil {
			return nil, fmt.Errorf("quote fetch failed and no cached bar: %w", err)
		}
		return nil, fmt.Errorf("no price data for %s: %w", ticker, dbErr)
	}

	return &Quote{
		Ticker:        ticker,
		Price:         bar.Close,
		PreviousClose: bar.Open,
		Change:        bar.Close.Sub(bar.Open),
		Currency:      "INR",
		AsOf:          bar.Date,
	}, nil
}

// FetchHistory fetches daily bars for a ticker over the given range and
// stores any bars not already cached. Returns the number of bars stored.
func (f *Fetcher) FetchHistory(ctx context.Context, ticker string, start, end time.Time) (int, error) {
	days := int(end.Sub(start).Hours()/24) + 1
	rangeParam := rangeForDays(days)

	resp, err := f.fetchChart(ctx, ticker, rangeParam, "1d")
	if err != nil {
		return 0, err
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return 0, fmt.Errorf("empty chart response for %s", ticker)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	stored := 0
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		date := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		if date.Before(start) || date.After(end) {
			continue
		}

		bar := models.PriceBar{
			Ticker: ticker,
			Date:   date,
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
		}
		if i < len(quote.Volume) {
			bar.Volume = quote.Volume[i]
		}
		if bar.Close.IsZero() {
			continue
		}

		var existing models.PriceBar
		err := f.db.Where("ticker = ? AND date = ?", ticker, date).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := f.db.Create(&bar).Error; err != nil {
				return stored, fmt.Errorf("failed to store bar for %s on %s: %w", ticker, date.Format("2006-01-02"), err)
			}
			stored++
		}
	}

	return stored, nil
}

// LatestClose returns the most recent cached close for a ticker.
func (f *Fetcher) LatestClose(ticker string) (decimal.Decimal, error) {
	var bar models.PriceBar
	if err := f.db.Where("ticker = ?", ticker).Order("date DESC").First(&bar).Error; err != nil {
		return decimal.Zero, fmt.Errorf("no cached bars for %s: %w", ticker, err)
	}
	return bar.Close, nil
}

// Closes returns cached close prices for a ticker, oldest first.
func (f *Fetcher) Closes(ticker string, since time.Time) ([]float64, error) {
	var bars []models.PriceBar
	if err := f.db.Where("ticker = ? AND date >= ?", ticker, since).
		Order("date ASC").Find(&bars).Error; err != nil {
		return nil, err
	}
	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		v, _ := bar.Close.Float64()
		closes = append(closes, v)
	}
	return closes, nil
}

func (f *Fetcher) fetchChart(ctx context.Context, ticker, rangeParam, interval string) (*chartResponse, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		f.baseURL, url.PathEscape(ticker), rangeParam, interval)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "research-platform-backend/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chart API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", parsed.Chart.Error.Description)
	}

	return &parsed, nil
}

// rangeForDays picks the smallest chart range covering the requested days.
func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

func at(values []float64, i int) decimal.Decimal {
	if i >= len(values) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(values[i])
}
