// Package sparql is the extraction collaborator: it runs pre-authored query
// templates against a triplestore endpoint and parses the delimited results
// into tables.
package sparql

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/care-sm/care2omop/tabular"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// ErrExtraction marks a fatal extraction failure: the endpoint answered with
// a non-success status or could not be reached at all.
var ErrExtraction = errors.New("extraction failed")

// Client issues SPARQL queries over HTTP and returns tabular results.
type Client struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
	templates  []queryTemplate
	log        zerolog.Logger
}

type queryTemplate struct {
	name  string
	query string
}

// NewClient creates a Client for the given endpoint. Credentials may be
// empty for unauthenticated endpoints.
func NewClient(log zerolog.Logger, endpoint, username, password string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
	}

	return &Client{
		endpoint:   endpoint,
		username:   username,
		password:   password,
		httpClient: retryClient.StandardClient(),
		log:        log,
	}
}

// Extract runs every loaded template whose name starts with the given prefix
// and concatenates the results in template order.
func (c *Client) Extract(prefix string) (*tabular.Table, error) {
	var parts []*tabular.Table
	for _, tpl := range c.templates {
		if !strings.HasPrefix(tpl.name, prefix) {
			continue
		}

		c.log.Debug().
			Str("template", tpl.name).
			Str("prefix", prefix).
			Msg("Running extraction query")

		part, err := c.runQuery(tpl)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no query templates match prefix %q", ErrExtraction, prefix)
	}
	return tabular.Concat(parts...), nil
}

func (c *Client) runQuery(tpl queryTemplate) (*tabular.Table, error) {
	form := url.Values{"query": {tpl.query}}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request for %s: %v", ErrExtraction, tpl.name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/csv")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrExtraction, tpl.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: query %s returned status %d: %s",
			ErrExtraction, tpl.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	table, err := tabular.FromCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s returned malformed results: %v", ErrExtraction, tpl.name, err)
	}

	c.log.Debug().
		Str("template", tpl.name).
		Int("rows", table.Len()).
		Msg("Query succeeded")

	return table, nil
}
