package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"vurc_dashboard/ingestion/internal/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// pageEnvelope is the paginated response wrapper used by every list endpoint
type pageEnvelope struct {
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		PerPage     int `json:"per_page"`
		Total       int `json:"total"`
	} `json:"meta"`
	Data []jsoniter.RawMessage `json:"data"`
}

// Page is one page of raw result objects
type Page struct {
	Number   int
	LastPage int
	Data     []jsoniter.RawMessage
}

// Pager walks the pages of one resource in order. It is finite and not
// restartable; a new Pager re-fetches from the server.
//
//	p := c.NewPager("teams", params)
//	for p.Next(ctx) {
//		use(p.Page())
//	}
//	if err := p.Err(); err != nil { ... }
type Pager struct {
	client   *Client
	path     string
	params   url.Values
	endpoint string

	next int
	done bool
	page *Page
	err  error
}

// NewPager creates a pager for a resource path and static query parameters
func (c *Client) NewPager(path string, params url.Values) *Pager {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	if q.Get("per_page") == "" {
		q.Set("per_page", strconv.Itoa(c.opts.PerPage))
	}

	return &Pager{
		client:   c,
		path:     path,
		params:   q,
		endpoint: endpointLabel(path),
		next:     1,
	}
}

// Next fetches the next page. It returns false when the last page has been
// consumed or an error occurred.
func (p *Pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}

	p.params.Set("page", strconv.Itoa(p.next))
	body, err := p.client.get(ctx, p.path, p.params)
	if err != nil {
		p.err = err
		p.done = true
		return false
	}

	var env pageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		p.err = fmt.Errorf("failed to unmarshal page %d of %s: %w", p.next, p.path, err)
		p.done = true
		return false
	}

	// An empty page is the end-of-data sentinel
	if len(env.Data) == 0 {
		p.done = true
		p.page = nil
		return false
	}

	// The requested page number drives the walk; the echoed one only checks it
	current := p.next
	if echoed := env.Meta.CurrentPage; echoed > 0 && echoed != current {
		p.err = fmt.Errorf("%w: requested page %d of %s, got %d", ErrPageOutOfSequence, current, p.path, echoed)
		p.done = true
		p.page = nil
		return false
	}
	last := env.Meta.LastPage
	if last <= 0 {
		last = current
	}

	p.page = &Page{Number: current, LastPage: last, Data: env.Data}
	metrics.RecordPage(p.endpoint)

	log.Debug().
		Str("path", p.path).
		Int("page", current).
		Int("last_page", last).
		Int("fetched", len(env.Data)).
		Msg("Page fetched")

	p.next++
	if p.next > last {
		p.done = true
	}
	return true
}

// Page returns the page fetched by the last successful call to Next
func (p *Pager) Page() *Page {
	return p.page
}

// Err returns the error that stopped the pager, if any
func (p *Pager) Err() error {
	return p.err
}

// fetchAll drains a pager and decodes every object into T. Objects that fail
// to decode are skipped with a warning.
func fetchAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	pager := c.NewPager(path, params)

	var out []T
	for pager.Next(ctx) {
		for _, raw := range pager.Page().Data {
			var item T
			if err := json.Unmarshal(raw, &item); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to unmarshal record, skipping")
				metrics.RecordSkipped("decode_error")
				continue
			}
			out = append(out, item)
		}
	}

	if err := pager.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
