package http

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	neturl "net/url"
	"syscall"
	"time"
)

const (
	// DefaultTimeout disables the client-level timeout; the transport's own
	// dial and TLS handshake limits still apply.
	DefaultTimeout = 0
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultTLSHandshakeTimeout bounds the TLS handshake of a new connection
	DefaultTLSHandshakeTimeout = 10 * time.Second
	// DefaultDialTimeout bounds connection setup when a dial control is set
	DefaultDialTimeout = 30 * time.Second
	// DefaultAcceptEncoding is advertised when the caller sets no Accept-Encoding.
	// Every coding listed here is reversed by Decompress.
	DefaultAcceptEncoding = "gzip, deflate, br, zstd"
)

// Client is the single outbound HTTP client shared by every relayed request.
// It is built once and never mutated afterwards, so it is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
	dialControl    func(network, address string, c syscall.RawConn) error
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: map[string]string{
			"Accept-Encoding": DefaultAcceptEncoding,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
		// Decompression is done by the response reader so that every
		// Content-Encoding, not just gzip, is handled in one place.
		DisableCompression: true,
	}

	if c.dialControl != nil {
		dialer := &net.Dialer{
			Timeout:   DefaultDialTimeout,
			KeepAlive: 30 * time.Second,
			Control:   c.dialControl,
		}
		transport.DialContext = dialer.DialContext
	}

	// Configure TLS verification
	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	// Configure proxy if specified
	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithDefaultHeader sets a header that is sent when the caller did not set it
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[http.CanonicalHeaderKey(key)] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			WithDefaultHeader(k, v)(c)
		}
	}
}

// WithUserAgent sets the User-Agent used when the caller sends none
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			WithDefaultHeader("User-Agent", ua)(c)
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithDialControl runs fn on every outbound connection after the address is
// resolved and before it is dialed. An error from fn fails the request.
func WithDialControl(fn func(network, address string, c syscall.RawConn) error) ClientOption {
	return func(c *Client) {
		c.dialControl = fn
	}
}

// Send executes req exactly once. Default headers fill in only what the
// caller left unset. The response body is left open for the caller.
func (c *Client) Send(req *http.Request) (*http.Response, error) {
	for k, v := range c.defaultHeaders {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	return c.httpClient.Do(req)
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	// Check for valid scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}

	// Check for valid host
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
