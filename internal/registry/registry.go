package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
)

const (
	// DefaultBaseURL is the public npm registry. The config file can point
	// at a mirror instead.
	DefaultBaseURL = "http://registry.npmjs.org"

	// DefaultVersion is used whenever the latest version cannot be determined.
	DefaultVersion = "latest"
)

// Result is the outcome of a LatestVersion lookup. Package is always usable;
// Defaulted tells whether it carries a real version or the "latest" fallback.
type Result struct {
	Package model.NodePackage

	// Defaulted is true when Package.Version is DefaultVersion because the
	// lookup failed.
	Defaulted bool

	// Cause records why the lookup failed. It is nil when Defaulted is false.
	Cause error
}

// Client queries an npm-compatible registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another registry (or a test server).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request. Zero keeps the transport defaults, which
// means no overall deadline. The timeout is applied after every option has
// run, so it also holds for a client passed with WithHTTPClient later on.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used to report degraded lookups.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a registry client with the given options applied in order.
// A timeout set with WithTimeout is applied to a copy of the HTTP client, so
// a client passed with WithHTTPClient is never modified.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// packageDocument is the part of the registry's package document we read.
type packageDocument struct {
	DistTags map[string]json.RawMessage `json:"dist-tags"`
}

var (
	errNoDistTags = errors.New("registry response has no dist-tags.latest")
	errBadLatest  = errors.New("dist-tags.latest is not a non-empty string")
)

// LatestVersion fetches the "latest" dist-tag of packageName with a single
// GET <baseURL>/<packageName> request.
//
// It never fails. Every problem resolves to {packageName, "latest"} with
// Defaulted set and Cause recording what went wrong:
//   - the request cannot be sent (bad URL, DNS, refused connection, timeout)
//   - the context is cancelled or its deadline passes
//   - the body is not JSON, or has no dist-tags.latest
//   - dist-tags.latest is not a non-empty string
//
// The fallback is logged at debug level. Callers that must tell a real
// version from the fallback check Result.Defaulted.
func (c *Client) LatestVersion(ctx context.Context, packageName string) Result {
	version, err := c.fetchLatest(ctx, packageName)
	if err != nil {
		c.logger.Debug("falling back to default version",
			zap.String("package", packageName),
			zap.String("version", DefaultVersion),
			zap.Error(err))
		return Result{
			Package:   model.NodePackage{Name: packageName, Version: DefaultVersion},
			Defaulted: true,
			Cause:     err,
		}
	}

	c.logger.Debug("resolved latest version",
		zap.String("package", packageName),
		zap.String("version", version))
	return Result{Package: model.NodePackage{Name: packageName, Version: version}}
}

// fetchLatest performs the request and extracts dist-tags.latest. The HTTP
// status is not checked: the body decides, as a registry error page has no
// dist-tags either.
func (c *Client) fetchLatest(ctx context.Context, packageName string) (string, error) {
	url := c.baseURL + "/" + packageName

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	var doc packageDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to parse response from %s (status %d): %w", url, resp.StatusCode, err)
	}

	// Decoded as raw JSON so a non-string tag is reported, not coerced.
	raw, ok := doc.DistTags["latest"]
	if !ok {
		return "", errNoDistTags
	}
	var latest string
	if err := json.Unmarshal(raw, &latest); err != nil || latest == "" {
		return "", errBadLatest
	}
	return latest, nil
}

// VersionRange renders the version written into package.json: a caret range
// for semantic versions ("^6.1.0"), the raw value otherwise ("latest").
func VersionRange(pkg model.NodePackage) string {
	v, err := semver.StrictNewVersion(pkg.Version)
	if err != nil {
		return pkg.Version
	}
	return "^" + v.String()
}

// Satisfies reports whether an existing package.json range already admits
// version. Non-semver inputs (dist-tags, git URLs, "latest") never satisfy.
func Satisfies(existingRange, version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	constraint, err := semver.NewConstraint(existingRange)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}
