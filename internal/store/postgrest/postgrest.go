// Package postgrest implements store.Store over a PostgREST endpoint, such
// as the REST interface of a hosted Supabase project.
//
// Queries are rendered to PostgREST's URL grammar:
//
//	/rest/v1/authorships?select=researcher_id,researchers(id,h_index)
//	    &article_id=in.(1,2,3)&order=id.asc.nullslast&offset=0&limit=1000
//
// Counts use a HEAD request with "Prefer: count=exact" and read the total
// from the Content-Range header.
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/helixir/research-analytics-service/internal/domain"
	"github.com/helixir/research-analytics-service/internal/store"
)

// Backend is the name reported in errors and metrics.
const Backend = "postgrest"

// DefaultPath is the REST prefix of a Supabase project.
const DefaultPath = "/rest/v1"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Compile-time interface verification.
var _ store.Store = (*Client)(nil)

// Config configures a Client.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co.
	BaseURL string

	// Path is the REST prefix appended to BaseURL. Defaults to DefaultPath.
	Path string

	// APIKey is sent both as the apikey header and as a bearer token.
	APIKey string

	// MaxInList bounds membership filters. Long id lists make long URLs.
	MaxInList int

	Transport TransportConfig
}

// Client is a PostgREST-backed store.
type Client struct {
	base      string
	apiKey    string
	maxInList int
	transport *transport
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("postgrest base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid postgrest base URL %q", cfg.BaseURL)
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MaxInList <= 0 {
		cfg.MaxInList = store.DefaultMaxInList
	}
	if cfg.Transport.MaxRetries < 0 {
		return nil, fmt.Errorf("postgrest max retries must be >= 0, got %d", cfg.Transport.MaxRetries)
	}

	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.Path, "/"),
		apiKey:    cfg.APIKey,
		maxInList: cfg.MaxInList,
		transport: newTransport(cfg.Transport),
	}, nil
}

// MaxInList implements store.Store.
func (c *Client) MaxInList() int {
	return c.maxInList
}

// Ping implements store.Store. It requests the OpenAPI root of the schema.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodHead, c.base+"/", nil)
	if err != nil {
		return domain.NewStoreError(Backend, "ping", "", 0, err)
	}
	resp, err := c.transport.do(req)
	if err != nil {
		return domain.NewStoreError(Backend, "ping", "", 0, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.NewStoreError(Backend, "ping", "", resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}
	return nil
}

// Select implements store.Store.
func (c *Client) Select(ctx context.Context, q store.Query) ([]json.RawMessage, error) {
	if err := q.Validate(c.maxInList); err != nil {
		return nil, fmt.Errorf("%s select %s: %w", Backend, q.Table, err)
	}

	params := Encode(q)
	req, err := c.newRequest(ctx, http.MethodGet, c.base+"/"+q.Table, params)
	if err != nil {
		return nil, domain.NewStoreError(Backend, "select", q.Table, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.transport.do(req)
	if err != nil {
		return nil, domain.NewStoreError(Backend, "select", q.Table, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.NewStoreError(Backend, "select", q.Table, resp.StatusCode, responseError(resp))
	}

	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, domain.NewStoreError(Backend, "select", q.Table, 0, fmt.Errorf("failed to decode response: %w", err))
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return rows, nil
}

// Count implements store.Store.
func (c *Client) Count(ctx context.Context, q store.Query) (int64, error) {
	if err := q.Validate(c.maxInList); err != nil {
		return 0, fmt.Errorf("%s count %s: %w", Backend, q.Table, err)
	}

	params := url.Values{}
	params.Set("select", "*")
	encodeFilters(params, q.Filters)

	req, err := c.newRequest(ctx, http.MethodHead, c.base+"/"+q.Table, params)
	if err != nil {
		return 0, domain.NewStoreError(Backend, "count", q.Table, 0, err)
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := c.transport.do(req)
	if err != nil {
		return 0, domain.NewStoreError(Backend, "count", q.Table, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, domain.NewStoreError(Backend, "count", q.Table, resp.StatusCode, responseError(resp))
	}

	n, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, domain.NewStoreError(Backend, "count", q.Table, 0, err)
	}
	return n, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, params url.Values) (*http.Request, error) {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// Encode renders q as PostgREST query parameters.
func Encode(q store.Query) url.Values {
	params := url.Values{}
	params.Set("select", selectClause(q))
	encodeFilters(params, q.Filters)

	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir+".nullslast")
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

func selectClause(q store.Query) string {
	parts := make([]string, 0, len(q.Columns)+len(q.Embeds))
	if len(q.Columns) == 0 {
		parts = append(parts, "*")
	}
	parts = append(parts, q.Columns...)
	for _, e := range q.Embeds {
		parts = append(parts, e.Table+"("+strings.Join(e.Columns, ",")+")")
	}
	return strings.Join(parts, ",")
}

func encodeFilters(params url.Values, filters []store.Filter) {
	for _, f := range filters {
		var expr string
		switch f.Op {
		case store.OpEq:
			expr = "eq." + fmt.Sprint(f.Value)
		case store.OpNeq:
			expr = "neq." + fmt.Sprint(f.Value)
		case store.OpContains:
			expr = patternExpr(f.Value.(string), false)
		case store.OpPrefix:
			expr = patternExpr(f.Value.(string), true)
		case store.OpIn:
			ids := f.Value.([]int64)
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.FormatInt(id, 10)
			}
			expr = "in.(" + strings.Join(parts, ",") + ")"
		}
		params.Add(f.Column, expr)
	}
}

// patternExpr renders a case-insensitive literal substring or prefix match.
// PostgREST turns every * of an ilike value into %, so values containing *
// are matched with imatch over a quoted regular expression instead.
func patternExpr(value string, prefix bool) string {
	if strings.Contains(value, "*") {
		re := regexp.QuoteMeta(value)
		if prefix {
			re = "^" + re
		}
		return "imatch." + re
	}
	if prefix {
		return "ilike." + store.LikeEscape(value) + "*"
	}
	return "ilike.*" + store.LikeEscape(value) + "*"
}

// parseContentRange reads the total from "0-24/3573" or "*/0".
func parseContentRange(header string) (int64, error) {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return 0, fmt.Errorf("missing total in content range %q", header)
	}
	total := header[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("server did not report an exact count in %q", header)
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid total in content range %q: %w", header, err)
	}
	return n, nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var pgErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &pgErr) == nil && pgErr.Message != "" {
		if pgErr.Code != "" {
			return fmt.Errorf("%s: %s", pgErr.Code, pgErr.Message)
		}
		return errors.New(pgErr.Message)
	}
	if len(body) > 0 {
		return errors.New(strings.TrimSpace(string(body)))
	}
	return errors.New(http.StatusText(resp.StatusCode))
}
