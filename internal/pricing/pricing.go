// Package pricing looks up a fair market price range for a commodity from
// recent mandi arrival records.
package pricing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"agrimarket/internal/metrics"
)

const (
	pageSize      = 10
	maxDataPoints = 30
)

var ErrNoData = errors.New("no price records")

// Quote summarizes the modal prices found for a commodity. Min and max are in
// rupees per kilogram; the records quote rupees per quintal.
type Quote struct {
	Commodity          string          `json:"commodity"`
	MinPrice           decimal.Decimal `json:"min_price"`
	MaxPrice           decimal.Decimal `json:"max_price"`
	AverageModalPrice  decimal.Decimal `json:"average_modal_price"`
	SuggestedFairPrice decimal.Decimal `json:"suggested_fair_price"`
	DataPoints         int             `json:"data_points"`
}

type Client struct {
	URL    string
	APIKey string
	http   *resty.Client
}

func New(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		URL:    url,
		APIKey: apiKey,
		http:   resty.New().SetTimeout(timeout),
	}
}

// modalPrice accepts both quoted and bare numbers; blanks decode as zero.
type modalPrice decimal.Decimal

func (m *modalPrice) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*m = modalPrice(decimal.Zero)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	*m = modalPrice(d)
	return nil
}

type page struct {
	Records []struct {
		ModalPrice modalPrice `json:"Modal_Price"`
	} `json:"records"`
}

// FairPrice pages through the newest records until it has collected enough
// modal prices or the feed runs out.
func (c *Client) FairPrice(ctx context.Context, commodity string) (Quote, error) {
	prices, err := c.collect(ctx, commodity)
	if err != nil {
		metrics.IncUpstream("pricing", "fail")
		return Quote{}, err
	}
	metrics.IncUpstream("pricing", "ok")
	return Summarize(commodity, prices), nil
}

func (c *Client) collect(ctx context.Context, commodity string) ([]decimal.Decimal, error) {
	var prices []decimal.Decimal
	for offset := 0; len(prices) < maxDataPoints; offset += pageSize {
		var p page
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"api-key":                    c.APIKey,
				"format":                     "json",
				"filters[Commodity.keyword]": commodity,
				"sort[Arrival_Date]":         "desc",
				"limit":                      strconv.Itoa(pageSize),
				"offset":                     strconv.Itoa(offset),
			}).
			SetResult(&p).
			Get(c.URL)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("price feed returned %d", resp.StatusCode())
		}
		if len(p.Records) == 0 {
			break
		}
		for _, r := range p.Records {
			d := decimal.Decimal(r.ModalPrice)
			if d.IsPositive() {
				prices = append(prices, d)
			}
			if len(prices) >= maxDataPoints {
				break
			}
		}
		if len(p.Records) < pageSize {
			break
		}
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, commodity)
	}
	return prices, nil
}

var (
	hundred   = decimal.NewFromInt(100)
	fairRatio = decimal.RequireFromString("1.10")
)

// Summarize reduces modal prices to a Quote. prices must be non-empty.
func Summarize(commodity string, prices []decimal.Decimal) Quote {
	lo, hi := prices[0], prices[0]
	sum := decimal.Zero
	for _, p := range prices {
		lo = decimal.Min(lo, p)
		hi = decimal.Max(hi, p)
		sum = sum.Add(p)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(prices))))
	return Quote{
		Commodity:          commodity,
		MinPrice:           lo.Div(hundred).RoundBank(0),
		MaxPrice:           hi.Div(hundred).RoundBank(0),
		AverageModalPrice:  avg.Round(2),
		SuggestedFairPrice: avg.Mul(fairRatio).Round(2),
		DataPoints:         len(prices),
	}
}
