// Package translate is a best-effort client for a hosted text translator.
// Every failure falls back to the untranslated text.
package translate

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	applog "agrimarket/internal/log"
	"agrimarket/internal/metrics"
)

type Client struct {
	URL   string
	Key   string
	Host  string
	Cache Cache
	http  *resty.Client
}

// New returns a client posting to url. An empty url gives a client that
// returns every text unchanged.
func New(url, key, host string, timeout time.Duration, cache Cache) *Client {
	return &Client{
		URL:   url,
		Key:   key,
		Host:  host,
		Cache: cache,
		http:  resty.New().SetTimeout(timeout),
	}
}

type response struct {
	Data struct {
		TranslatedText string `json:"translatedText"`
	} `json:"data"`
}

func (c *Client) Translate(ctx context.Context, text, source, target string) string {
	if c == nil || c.URL == "" || strings.TrimSpace(text) == "" || target == "" || source == target {
		return text
	}
	if source == "" {
		source = "auto"
	}
	key := cacheKey(source, target, text)
	if c.Cache != nil {
		if v, ok := c.Cache.Get(ctx, key); ok {
			return v
		}
	}

	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-RapidAPI-Key", c.Key).
		SetHeader("X-RapidAPI-Host", c.Host).
		SetFormData(map[string]string{
			"source_language": source,
			"target_language": target,
			"text":            text,
		}).
		SetResult(&out).
		Post(c.URL)
	switch {
	case err != nil:
		metrics.IncUpstream("translate", "fail")
		applog.Error(nil, "translate.fail", err, map[string]any{"target": target})
		return text
	case resp.IsError() || out.Data.TranslatedText == "":
		metrics.IncUpstream("translate", "fail")
		applog.Info(nil, "translate.empty", map[string]any{"status": resp.StatusCode(), "target": target})
		return text
	}
	metrics.IncUpstream("translate", "ok")
	if c.Cache != nil {
		c.Cache.Set(ctx, key, out.Data.TranslatedText)
	}
	return out.Data.TranslatedText
}
