package util

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
)

const UserAgent = "jobreview/1.0 (+local)"

// Client is the HTTP client shared by the producers: one user agent, one
// per-host rate limit.
type Client struct {
	HC      *http.Client
	Limiter *HostLimiter
}

func NewClient(lim *HostLimiter) *Client {
	return &Client{
		HC:      &http.Client{Timeout: 20 * time.Second},
		Limiter: lim,
	}
}

// ErrStatus is wrapped into errors for non-2xx responses.
var ErrStatus = errors.New("unexpected http status")

func (c *Client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	if err := c.Limiter.WaitURL(ctx, url); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request %s", url)
	}
	req.Header.Set("User-Agent", UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	res, err := c.HC.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", url)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
		res.Body.Close()
		return nil, errors.Wrapf(ErrStatus, "get %s: %d", url, res.StatusCode)
	}
	return res, nil
}

// GetDocument fetches url and parses it as HTML.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := c.get(ctx, url, "text/html")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "parse html %s", url)
	}
	return doc, nil
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	res, err := c.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := json.NewDecoder(io.LimitReader(res.Body, 20<<20)).Decode(out); err != nil {
		return errors.Wrapf(err, "decode json %s", url)
	}
	return nil
}
