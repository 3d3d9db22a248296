package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/smileynet/multiverse/internal/logging"
)

// DefaultBaseURL is the public Rick and Morty API.
const DefaultBaseURL = "https://rickandmortyapi.com/api"

// listPath is the list endpoint relative to the base URL.
const listPath = "/character"

// Client lists catalog records. It performs no caching; callers decide how
// long a Snapshot lives.
type Client struct {
	http    *resty.Client
	baseURL string
	log     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a Client for the catalog rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetRetryCount(0),
		baseURL: baseURL,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetLogger(c.log)
	return c
}

// ListRecords fetches the character list. On any failure it returns an empty
// Snapshot and a *FetchError; it never returns a partial snapshot.
func (c *Client) ListRecords(ctx context.Context) (Snapshot, error) {
	url := c.baseURL + listPath

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(listPath)
	if err != nil {
		c.log.WithError(err).WithField("url", url).Warn("catalog list request failed")
		return Snapshot{}, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		c.log.WithFields(logrus.Fields{"url": url, "status": resp.StatusCode()}).Warn("catalog list returned non-success status")
		return Snapshot{}, &FetchError{Kind: KindHTTPStatus, URL: url, StatusCode: resp.StatusCode()}
	}

	snap, err := decodeSnapshot(resp.Body())
	if err != nil {
		c.log.WithError(err).WithField("url", url).Warn("catalog list body malformed")
		return Snapshot{}, &FetchError{Kind: KindDecode, URL: url, Err: err}
	}

	c.log.WithFields(logrus.Fields{"url": url, "records": len(snap), "elapsed": resp.Time()}).Debug("catalog list fetched")
	return snap, nil
}
