// Package icpc is a minimal client for the icpc.global REST API: the read-only
// directory lookups (contests, sites, suggest endpoints) and the three write
// calls the importer needs. Authentication is a bearer token obtained through
// the Cognito authenticator in this package.
package icpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://icpc.global/api/"

// APIError is a non-200 response from the API. The importer downgrades these
// to per-team or per-contestant skips; transport errors stay ordinary errors.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Status)
}

// IsAPIError returns true if err is a non-200 API response.
// Uses errors.As to handle wrapped errors.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// Client calls the contest-management API. All methods issue exactly one
// request; there is no retry layer here.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client rooted at baseURL. The token is sent as a
// bearer credential on every request.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Contests lists the contest tree for a season year.
func (c *Client) Contests(ctx context.Context, year string) ([]Contest, error) {
	var contests []Contest
	endpoint := "contest/tree/year/" + url.PathEscape(year)
	if err := c.getJSON(ctx, endpoint, &contests); err != nil {
		return nil, err
	}
	return contests, nil
}

// Sites lists the contest sites of a contest.
func (c *Client) Sites(ctx context.Context, contestID int64) ([]Site, error) {
	var sites []Site
	endpoint := fmt.Sprintf("contest/%d/sites", contestID)
	if err := c.getJSON(ctx, endpoint, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// SuggestPersons runs the person suggest lookup. The name parameter is a
// display name or an e-mail address; spaces are sent as "+", which is the
// encoding the API expects.
func (c *Client) SuggestPersons(ctx context.Context, name string, page, size int) ([]Person, error) {
	var persons []Person
	if err := c.getJSON(ctx, suggestEndpoint("person/suggest", name, page, size), &persons); err != nil {
		return nil, err
	}
	return persons, nil
}

// SuggestInstitutions runs the institution-unit suggest lookup.
func (c *Client) SuggestInstitutions(ctx context.Context, name string, page, size int) ([]Institution, error) {
	var institutions []Institution
	if err := c.getJSON(ctx, suggestEndpoint("common/institutionunit/suggest", name, page, size), &institutions); err != nil {
		return nil, err
	}
	return institutions, nil
}

// RegisterTeam creates a team with its coach and returns the new team id.
func (c *Client) RegisterTeam(ctx context.Context, reg TeamRegistration) (int64, error) {
	var resp struct {
		TeamID int64 `json:"teamId"`
	}
	if err := c.postJSON(ctx, "team/register/customcoach", reg, &resp); err != nil {
		return 0, err
	}
	return resp.TeamID, nil
}

// RegisterPerson creates a directory person and returns it.
func (c *Client) RegisterPerson(ctx context.Context, reg PersonRegistration) (Person, error) {
	var person Person
	if err := c.postJSON(ctx, "person/registration/registerviasuggest", reg, &person); err != nil {
		return Person{}, err
	}
	return person, nil
}

// AddTeamMembers attaches members to an existing team.
func (c *Client) AddTeamMembers(ctx context.Context, teamID int64, members []TeamMember) error {
	endpoint := fmt.Sprintf("team/members/team/%d/add", teamID)
	return c.postJSON(ctx, endpoint, members, nil)
}

// suggestEndpoint builds a suggest query string. url.Values encodes spaces
// as "+" (query escaping), matching what the suggest endpoints expect.
func suggestEndpoint(path, name string, page, size int) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return path + "?" + q.Encode()
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", endpoint, err)
	}
	return c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Bounded read: error bodies are only used for diagnostics.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", endpoint, err)
	}
	return nil
}
