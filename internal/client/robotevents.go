package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vurc_dashboard/ingestion/internal/metrics"
	"vurc_dashboard/ingestion/internal/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNotFound is returned for 4xx responses other than auth and throttling.
	// The resource is absent; callers may skip it.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized is returned when the bearer token is rejected
	ErrUnauthorized = errors.New("API authentication failed")

	// ErrResourceUnavailable is returned once a retry ceiling is exhausted.
	// The season's data is incomplete and the run must abort.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrPageOutOfSequence is returned when the server answers a page request
	// with a different page than the one asked for
	ErrPageOutOfSequence = errors.New("page out of sequence")
)

// Options controls pagination, pacing and retry behaviour
type Options struct {
	Timeout             time.Duration
	PerPage             int
	RequestInterval     time.Duration
	RateLimitBackoffMin time.Duration
	RateLimitBackoffMax time.Duration
	MaxThrottleRetries  int
	MaxRetries          int
	RetryBaseDelay      time.Duration
	RetryMaxDelay       time.Duration
}

// DefaultOptions returns the production pacing for the RobotEvents API
func DefaultOptions() Options {
	return Options{
		Timeout:             30 * time.Second,
		PerPage:             250,
		RequestInterval:     2 * time.Second,
		RateLimitBackoffMin: 30 * time.Second,
		RateLimitBackoffMax: 90 * time.Second,
		MaxThrottleRetries:  8,
		MaxRetries:          5,
		RetryBaseDelay:      1 * time.Second,
		RetryMaxDelay:       30 * time.Second,
	}
}

// Client is the RobotEvents v2 API client
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	opts       Options

	// sleep and randN are replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
	randN func(n int64) int64
}

// NewClient creates a new RobotEvents API client
func NewClient(baseURL, token string, opts Options) *Client {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultOptions().PerPage
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		opts:    opts,
		sleep:   sleepContext,
		randN:   rand.Int63n,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request against the API. Throttling and transient
// failures are retried on the same URL; nothing else advances until it
// succeeds or a ceiling is reached.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := endpointLabel(path)
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	throttled, retries := 0, 0

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "VURC-Ratings/1.0")

		log.Debug().
			Str("url", reqURL).
			Int("attempt", attempt).
			Msg("Making API request")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
			lastErr = fmt.Errorf("API request failed: %w", err)
			if err := c.backoff(ctx, endpoint, reqURL, &retries, lastErr); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		metrics.RecordAPICall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			if err := c.backoff(ctx, endpoint, reqURL, &retries, lastErr); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			log.Debug().
				Str("url", reqURL).
				Int("status", resp.StatusCode).
				Int("size", len(body)).
				Msg("API request successful")

			// Proactive pacing keeps us under the limiter
			if err := c.sleep(ctx, c.opts.RequestInterval); err != nil {
				return nil, err
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			throttled++
			if throttled > c.opts.MaxThrottleRetries {
				return nil, fmt.Errorf("%w: GET %s still throttled after %d backoffs",
					ErrResourceUnavailable, path, c.opts.MaxThrottleRetries)
			}

			wait := c.throttleWait(resp.Header.Get("Retry-After"))
			log.Warn().
				Str("url", reqURL).
				Int("throttled", throttled).
				Dur("backoff", wait).
				Msg("Rate limited by API, backing off")
			metrics.RecordThrottle(endpoint, wait.Seconds())

			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w (status %d): %s", ErrUnauthorized, resp.StatusCode, truncate(body))

		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, truncate(body))
			if err := c.backoff(ctx, endpoint, reqURL, &retries, lastErr); err != nil {
				return nil, err
			}

		case resp.StatusCode >= http.StatusBadRequest:
			return nil, fmt.Errorf("%w: GET %s (status %d)", ErrNotFound, path, resp.StatusCode)

		default:
			return nil, fmt.Errorf("API returned unexpected status %d: %s", resp.StatusCode, truncate(body))
		}
	}
}

// backoff sleeps before the next transient-failure retry, or returns the
// terminal error once the retry ceiling is reached
func (c *Client) backoff(ctx context.Context, endpoint, reqURL string, retries *int, cause error) error {
	if *retries >= c.opts.MaxRetries {
		return fmt.Errorf("%w: GET %s failed after %d retries: %w",
			ErrResourceUnavailable, reqURL, *retries, cause)
	}
	*retries++

	wait := c.retryDelay(*retries)
	log.Warn().
		Err(cause).
		Str("url", reqURL).
		Int("retry", *retries).
		Dur("backoff", wait).
		Msg("Retrying API request after backoff")
	metrics.RecordRetry(endpoint, wait.Seconds())

	return c.sleep(ctx, wait)
}

// retryDelay returns the exponential backoff for the n-th retry: base, 2*base, 4*base ... capped
func (c *Client) retryDelay(n int) time.Duration {
	delay := c.opts.RetryBaseDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if c.opts.RetryMaxDelay > 0 && delay >= c.opts.RetryMaxDelay {
			return c.opts.RetryMaxDelay
		}
	}
	if c.opts.RetryMaxDelay > 0 && delay > c.opts.RetryMaxDelay {
		return c.opts.RetryMaxDelay
	}
	return delay
}

// throttleWait draws a random wait from the rate-limit band. A larger
// Retry-After from the server takes precedence.
func (c *Client) throttleWait(retryAfter string) time.Duration {
	lo, hi := c.opts.RateLimitBackoffMin, c.opts.RateLimitBackoffMax
	wait := lo
	if span := int64(hi - lo); span > 0 {
		wait += time.Duration(c.randN(span + 1))
	}

	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		if server := time.Duration(secs) * time.Second; server > wait {
			wait = server
		}
	}
	return wait
}

// FetchSeasons fetches all seasons of a program
func (c *Client) FetchSeasons(ctx context.Context, programID int) ([]models.Season, error) {
	params := url.Values{}
	params.Add("program[]", strconv.Itoa(programID))

	seasons, err := fetchAll[models.Season](ctx, c, "seasons", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seasons: %w", err)
	}
	return seasons, nil
}

// FetchTeams fetches all teams registered for a season
func (c *Client) FetchTeams(ctx context.Context, programID, seasonID int) ([]models.TeamInput, error) {
	params := url.Values{}
	params.Add("program[]", strconv.Itoa(programID))
	params.Add("season[]", strconv.Itoa(seasonID))

	teams, err := fetchAll[models.TeamInput](ctx, c, "teams", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}
	return teams, nil
}

// FetchEvents fetches all events of a season, with their divisions embedded
func (c *Client) FetchEvents(ctx context.Context, programID, seasonID int) ([]models.Event, error) {
	params := url.Values{}
	params.Add("program[]", strconv.Itoa(programID))
	params.Add("season[]", strconv.Itoa(seasonID))

	events, err := fetchAll[models.Event](ctx, c, "events", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}

// FetchDivisionMatches fetches all matches of one event division
func (c *Client) FetchDivisionMatches(ctx context.Context, eventID, divisionID int) ([]models.MatchInput, error) {
	path := fmt.Sprintf("events/%d/divisions/%d/matches", eventID, divisionID)

	matches, err := fetchAll[models.MatchInput](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches for event %d division %d: %w", eventID, divisionID, err)
	}
	return matches, nil
}

// FetchEventSkills fetches all skills records of an event
func (c *Client) FetchEventSkills(ctx context.Context, eventID int) ([]models.SkillInput, error) {
	path := fmt.Sprintf("events/%d/skills", eventID)

	skills, err := fetchAll[models.SkillInput](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch skills for event %d: %w", eventID, err)
	}
	return skills, nil
}

// endpointLabel collapses numeric path segments so metrics stay low-cardinality
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
