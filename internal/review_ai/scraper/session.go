package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

var ErrNotConfigured = errors.New("storefront domain and password must both be set")

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// ChallengeMarker is the text Shopify renders on the storefront password page.
	ChallengeMarker = "Enter using password"

	DefaultTimeout     = 15 * time.Second
	DefaultPageTimeout = 20 * time.Second
	maxRedirects       = 5
)

type SessionOptions struct {
	// Domain is a bare host ("shop.example.com"); a scheme prefix is kept as is.
	Domain      string
	Password    string
	Timeout     time.Duration
	PageTimeout time.Duration
	UserAgent   string
}

// Session is a cookie-carrying client logged into a password-gated storefront.
// It is not safe for concurrent logins, but page fetches may share it.
type Session struct {
	Log           *zap.Logger
	HTTPClient    *http.Client
	BaseURL       string
	UserAgent     string
	PageTimeout   time.Duration
	Authenticated bool
}

// IsChallenge reports whether html is the storefront password page.
func IsChallenge(html string) bool {
	return strings.Contains(html, ChallengeMarker)
}

// Establish runs the storefront password flow: load the password page, post
// the shared password, then load the home page to see whether the gate is
// gone. A gate that is still there is logged, not returned as an error.
func Establish(ctx context.Context, log *zap.Logger, opts SessionOptions) (*Session, error) {
	if strings.TrimSpace(opts.Domain) == "" || opts.Password == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = zap.NewNop()
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	s := &Session{
		Log:         log,
		BaseURL:     baseURL(opts.Domain),
		UserAgent:   opts.UserAgent,
		PageTimeout: opts.PageTimeout,
		HTTPClient: &http.Client{
			Jar: jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	if s.PageTimeout <= 0 {
		s.PageTimeout = DefaultPageTimeout
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	passwordURL := s.BaseURL + "/password"
	log.Info("opening storefront password page", zap.String("url", passwordURL))
	if _, err = s.do(ctx, http.MethodGet, passwordURL, nil, timeout, nil); err != nil {
		return nil, fmt.Errorf("open password page: %w", err)
	}

	form := url.Values{}
	form.Set("form_type", "storefront_password")
	form.Set("utf8", "✓")
	form.Set("password", opts.Password)
	hdr := http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}}
	if _, err = s.do(ctx, http.MethodPost, passwordURL, strings.NewReader(form.Encode()), timeout, hdr); err != nil {
		return nil, fmt.Errorf("submit storefront password: %w", err)
	}

	home, err := s.do(ctx, http.MethodGet, s.BaseURL+"/", nil, timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("open home page: %w", err)
	}
	s.Authenticated = !IsChallenge(home)
	if s.Authenticated {
		log.Info("storefront password login succeeded", zap.String("base", s.BaseURL))
	} else {
		log.Warn("still seeing password page after login, check the storefront password",
			zap.String("base", s.BaseURL))
	}
	return s, nil
}

// ProductURL builds the storefront page URL for a product handle.
func (s *Session) ProductURL(handle string) string {
	return s.BaseURL + "/products/" + url.PathEscape(handle)
}

// FetchPage returns the HTML body of rawURL using the session cookies.
// Non-2xx responses are errors; nothing is retried.
func (s *Session) FetchPage(ctx context.Context, rawURL string) (string, error) {
	hdr := http.Header{"Accept": []string{"text/html"}}
	return s.do(ctx, http.MethodGet, rawURL, nil, s.PageTimeout, hdr)
}

func (s *Session) do(ctx context.Context, method, rawURL string, body io.Reader, timeout time.Duration, hdr http.Header) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return "", err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s %s: status %d", method, rawURL, resp.StatusCode)
	}
	return string(b), nil
}

func baseURL(domain string) string {
	d := strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.Contains(d, "://") {
		return d
	}
	return "https://" + d
}
