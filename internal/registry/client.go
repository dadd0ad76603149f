package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/version"
)

// DefaultBaseURL is the public crates.io registry.
const DefaultBaseURL = "https://crates.io"

// Version is one published version of a crate.
type Version struct {
	Num    string `json:"num"`
	Yanked bool   `json:"yanked"`
}

type crateResponse struct {
	Versions []Version `json:"versions"`
}

// Client queries the registry web API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	cacheDir   string
	cacheAge   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL points the client at another registry.
func WithBaseURL(base string) Option {
	return func(cl *Client) {
		if base != "" {
			cl.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithCache enables the on-disk response cache in dir. Entries older than
// maxAge are refetched; a zero maxAge disables the cache.
func WithCache(dir string, maxAge time.Duration) Option {
	return func(cl *Client) {
		cl.cacheDir = dir
		cl.cacheAge = maxAge
	}
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		userAgent:  "cargo-edit",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the registry the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// LatestVersion returns the highest published version of name. Yanked
// versions are never chosen; prereleases only when allowPrerelease is set.
func (c *Client) LatestVersion(ctx context.Context, name string, allowPrerelease bool) (*semver.Version, error) {
	versions, err := c.Versions(ctx, name)
	if err != nil {
		return nil, err
	}

	var best *semver.Version
	for _, v := range versions {
		if v.Yanked {
			continue
		}
		sv, err := version.ParseVersion(v.Num)
		if err != nil {
			continue
		}
		if sv.Prerelease() != "" && !allowPrerelease {
			continue
		}
		if best == nil || sv.GreaterThan(best) {
			best = sv
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no eligible version of crate `%s` found", errs.ErrNotFound, name)
	}
	return best, nil
}

// Versions returns every published version of name, from the cache when a
// fresh entry exists.
func (c *Client) Versions(ctx context.Context, name string) ([]Version, error) {
	if c.cacheEnabled() {
		if cache, err := LoadCache(c.cacheDir); err == nil {
			if entry, ok := cache.Crates[name]; ok && !entry.IsStale(c.cacheAge) {
				return entry.Versions, nil
			}
		}
	}

	versions, err := c.fetchVersions(ctx, name)
	if err != nil {
		return nil, err
	}

	if c.cacheEnabled() {
		// A failed cache write only costs a refetch next time.
		_ = UpdateCache(c.cacheDir, name, versions)
	}
	return versions, nil
}

func (c *Client) cacheEnabled() bool {
	return c.cacheDir != "" && c.cacheAge > 0
}

func (c *Client) fetchVersions(ctx context.Context, name string) ([]Version, error) {
	endpoint := fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching crate %s: %w", errs.ErrNetwork, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: the crate `%s` could not be found in registry %s", errs.ErrNotFound, name, c.baseURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: registry returned status %d for crate %s", errs.ErrNetwork, resp.StatusCode, name)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", errs.ErrNetwork, err)
	}

	var cr crateResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("%w: parsing registry response for %s: %w", errs.ErrNetwork, name, err)
	}
	return cr.Versions, nil
}
