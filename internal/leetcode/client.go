package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"streak-bot/internal/logger"
	"streak-bot/internal/streak"
)

const DefaultEndpoint = "https://leetcode.com/graphql"

const userMissingMessage = "That user does not exist."

var (
	ErrUserNotFound = errors.New("leetcode user not found")
	ErrTransport    = errors.New("leetcode request failed")
)

// Recorder receives fetch outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	FetchResult(outcome string, d time.Duration)
}

// Client talks to the LeetCode GraphQL API.
type Client struct {
	endpoint string
	http     *http.Client
	rec      Recorder
}

func NewClient(endpoint string, timeout time.Duration, rec Recorder) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		rec:      rec,
	}
}

// FetchStats returns the user's calendar for one year. A missing user yields
// ErrUserNotFound; an unreadable calendar yields streak.ErrMalformedCalendar;
// everything else wraps ErrTransport.
func (c *Client) FetchStats(ctx context.Context, username string, year int) (*UserCalendar, error) {
	start := time.Now()
	cal, err := c.fetchStats(ctx, username, year)
	c.record(err, time.Since(start))
	return cal, err
}

func (c *Client) fetchStats(ctx context.Context, username string, year int) (*UserCalendar, error) {
	var res calendarResponse
	vars := map[string]interface{}{"username": username, "year": year}
	if err := c.do(ctx, calendarQuery, vars, &res); err != nil {
		return nil, err
	}

	if res.Data == nil {
		return nil, fmt.Errorf("%w: no data for %s: %s", ErrTransport, username, firstMessage(res.Errors))
	}
	user := res.Data.MatchedUser
	if user == nil && onlyUserMissing(res.Errors) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if len(res.Errors) > 0 || user == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransport, firstMessage(res.Errors))
	}
	if user.UserCalendar == nil {
		return nil, fmt.Errorf("%w: no userCalendar for %s", streak.ErrMalformedCalendar, username)
	}

	cal, err := streak.ParseCalendar(user.UserCalendar.SubmissionCalendar)
	if err != nil {
		return nil, fmt.Errorf("calendar for %s: %w", username, err)
	}

	return &UserCalendar{
		Username:           username,
		Year:               year,
		ActiveYears:        user.UserCalendar.ActiveYears,
		BestStreak:         user.UserCalendar.Streak,
		TotalActiveDays:    user.UserCalendar.TotalActiveDays,
		SubmissionCalendar: cal,
	}, nil
}

// Exists reports whether LeetCode knows the username. Any failure to get a
// definite answer counts as "does not exist".
func (c *Client) Exists(ctx context.Context, username string) bool {
	var res profileResponse
	vars := map[string]interface{}{"username": username}
	if err := c.do(ctx, profileQuery, vars, &res); err != nil {
		logger.Warning("verify %s: %v", username, err)
		return false
	}
	return res.Data.MatchedUser != nil && res.Data.MatchedUser.Username != ""
}

func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://leetcode.com")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.CopyN(io.Discard, resp.Body, 512)
		return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return nil
}

// onlyUserMissing reports whether errs carry nothing but LeetCode's
// unknown-user message. No errors at all also counts.
func onlyUserMissing(errs []graphQLError) bool {
	for _, e := range errs {
		if e.Message != userMissingMessage {
			return false
		}
	}
	return true
}

func firstMessage(errs []graphQLError) string {
	if len(errs) == 0 {
		return "empty response"
	}
	return errs[0].Message
}

func (c *Client) record(err error, d time.Duration) {
	if c.rec == nil {
		return
	}
	c.rec.FetchResult(Outcome(err), d)
}

// Outcome maps a fetch error onto a short label for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, streak.ErrMalformedCalendar):
		return "malformed"
	default:
		return "transport"
	}
}
