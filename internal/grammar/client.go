package grammar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const defaultTimeout = 10 * time.Second

// apiClient is the shared JSON-over-HTTP plumbing of the external backends.
type apiClient struct {
	name    string
	baseURL string
	http    *http.Client
}

func newAPIClient(name, baseURL, fallback string, timeout time.Duration) apiClient {
	if baseURL == "" {
		baseURL = fallback
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return apiClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c apiClient) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return c.do(req)
}

func (c apiClient) postForm(ctx context.Context, path string, form url.Values) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c apiClient) do(req *http.Request) (gjson.Result, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s connection failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, &APIError{Backend: c.name, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s read body: %w", c.name, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s returned invalid json", c.name)
	}
	return gjson.ParseBytes(body), nil
}

// utf16Span converts a UTF-16 offset/length pair (what the JSON APIs report)
// into a byte span of text.
func utf16Span(text string, offset, length int) (int, int, bool) {
	units, start := 0, -1
	for i, r := range text {
		if units == offset && start < 0 {
			start = i
		}
		if start >= 0 && units == offset+length {
			return start, i - start, true
		}
		units++
		if r >= 0x10000 {
			units++
		}
	}
	if start < 0 && units == offset {
		start = len(text)
	}
	if start >= 0 && units == offset+length {
		return start, len(text) - start, true
	}
	return 0, 0, false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
