// Package crossref fetches work metadata from the CrossRef registry and maps
// it onto BibTeX citation entries.
package crossref

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the CrossRef works endpoint. DOIs are appended verbatim.
	DefaultBaseURL = "https://api.crossref.org/works/"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the client-side request ceiling per second.
	DefaultRateLimit = 10.0

	// DefaultProduct is the product token of the User-Agent header.
	DefaultProduct = "doibib/1.0"

	// ProjectURL is advertised in the User-Agent when no contact email is set.
	ProjectURL = "https://github.com/matsen/doibib"

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024
)

// Client is a rate-limited HTTP client for the CrossRef works API.
// It is safe to reuse across sequential calls but is not meant for
// concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	product    string
	log        logr.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom works endpoint (for testing or mirrors).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithMailto sets the contact email sent in the User-Agent header.
// CrossRef routes identified clients to its "polite" pool.
func WithMailto(email string) ClientOption {
	return func(c *Client) {
		c.mailto = strings.TrimSpace(email)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit sets the maximum requests per second. Non-positive values
// disable the limiter.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithProduct sets the product token of the User-Agent (e.g. "doibib/1.2.0").
func WithProduct(product string) ClientOption {
	return func(c *Client) {
		c.product = product
	}
}

// WithLogger sets the logger used to report failed fetches.
func WithLogger(log logr.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new CrossRef client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    DefaultBaseURL,
		product:    DefaultProduct,
		log:        logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}

	return c
}

// UserAgent returns the User-Agent header value sent with every request.
func (c *Client) UserAgent() string {
	if c.mailto != "" {
		return fmt.Sprintf("%s (mailto:%s)", c.product, c.mailto)
	}
	return fmt.Sprintf("%s (%s)", c.product, ProjectURL)
}

// WorkURL returns the request URL for a DOI. A leading doi.org URL
// prefix does not change the result.
func (c *Client) WorkURL(doi string) string {
	return c.baseURL + NormalizeDOI(doi)
}

// GetWork fetches the registry record for a DOI. It issues exactly one
// request; failures are returned, never retried.
func (c *Client) GetWork(ctx context.Context, doi string) (Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Record{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.WorkURL(doi), nil)
	if err != nil {
		return Record{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, doi); err != nil {
		return Record{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return Record{}, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}
	if len(body) > MaxResponseSize {
		return Record{}, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidResponse, MaxResponseSize)
	}

	return parseWork(body)
}

// Fetch returns the registry record for a DOI, or false if it could not be
// fetched. Every failure is logged here and absorbed.
func (c *Client) Fetch(ctx context.Context, doi string) (Record, bool) {
	rec, err := c.GetWork(ctx, doi)
	if err != nil {
		c.log.Error(err, "Error fetching data for DOI", "doi", doi)
		return Record{}, false
	}
	return rec, true
}
