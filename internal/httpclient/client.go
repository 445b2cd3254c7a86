// Package httpclient provides the HTTP transport seam the engine talks
// to through engine.HTTPDoer, centralizing proxy, timeout, user-agent
// and bearer-token handling the way the teacher's DanzoHTTPClient does.
package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Config holds the values a Client is built from.
type Config struct {
	Timeout          time.Duration
	KeepAliveTimeout time.Duration
	ProxyURL         string
	ProxyUsername    string
	ProxyPassword    string
	UserAgent        string
	Headers          map[string]string

	// TokenSource, if set, attaches an Authorization header to every
	// request. Using it to authorize a HEAD/GET is not the "streaming
	// decode" the spec excludes; it only affects the request, not how
	// the response body is read.
	TokenSource oauth2.TokenSource
}

// Client wraps *http.Client with the fetchctl-specific request
// decoration (UA, custom headers, optional bearer auth) and satisfies
// engine.HTTPDoer.
type Client struct {
	inner  *http.Client
	config Config
}

// New builds a Client from cfg, filling the same defaults the teacher
// client falls back to when a caller leaves Timeout/KeepAliveTimeout
// unset.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KeepAliveTimeout == 0 {
		cfg.KeepAliveTimeout = 60 * time.Second
	}
	transport := &http.Transport{
		IdleConnTimeout:     cfg.KeepAliveTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		DisableCompression:  true,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &Client{
		inner: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config: cfg,
	}
}

// Do decorates req with the configured user agent, headers and bearer
// token before delegating to the underlying *http.Client. Range and
// other request-specific headers set by the caller are left alone.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", "fetchctl/dev")
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	if c.config.TokenSource != nil {
		token, err := c.config.TokenSource.Token()
		if err != nil {
			return nil, err
		}
		token.SetAuthHeader(req)
	}
	return c.inner.Do(req)
}
