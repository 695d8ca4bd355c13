// Package js9 is a client for JS9, the browser-based astronomical image
// display. It talks to the JS9 back-end helper over one-shot HTTP requests
// or a persistent WebSocket channel, exposes the display's public
// operations as methods plus a generic Invoke, and moves pixel and FITS
// payloads through the wire codec.
package js9

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gojs9/gojs9/js9/transport"
)

const (
	// DefaultEndpoint is where a locally running helper listens.
	DefaultEndpoint = "http://localhost:2718"

	defaultCallTimeout = 10 * time.Second
	defaultProbeTries  = 5
	defaultProbeDelay  = 1 * time.Second
)

// TransportKind selects how the client reaches the helper.
type TransportKind int

const (
	// TransportAuto opens the persistent channel and falls back to HTTP
	// when the channel cannot be established.
	TransportAuto TransportKind = iota
	TransportHTTP
	TransportSocket
)

// Client is a connection to one JS9 display. It is safe for concurrent use.
type Client struct {
	log    *zap.SugaredLogger
	rawLog *zap.Logger

	endpoint    string
	displayID   string
	multi       bool
	pageID      string
	kind        TransportKind
	callTimeout time.Duration
	probeTries  int
	probeDelay  time.Duration
	retrieveAs  string
	redial      bool
	limiter     *rate.Limiter
	httpClient  *http.Client

	transport transport.Transport
	reg       *registry

	closeOnce sync.Once
	closeErr  error
}

type Option func(c *Client)

// WithDisplay routes commands to the given JS9 display id instead of "JS9".
func WithDisplay(id string) Option {
	return func(c *Client) {
		c.displayID = id
	}
}

// WithMulti broadcasts every command to all displays on the page.
func WithMulti() Option {
	return func(c *Client) {
		c.multi = true
	}
}

// WithPageID pins commands to one connected web page.
func WithPageID(id string) Option {
	return func(c *Client) {
		c.pageID = id
	}
}

func WithTransportKind(k TransportKind) Option {
	return func(c *Client) {
		c.kind = k
	}
}

// WithTransport injects a transport and skips building one. The endpoint
// argument of New is ignored.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.rawLog = l
		c.log = l.Named("js9").Sugar()
	}
}

// WithCallTimeout bounds each call that arrives without its own deadline.
// Zero disables the default timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// WithProbe tunes the construction-time liveness probe.
func WithProbe(maxTries int, delay time.Duration) Option {
	return func(c *Client) {
		c.probeTries = maxTries
		c.probeDelay = delay
	}
}

// WithoutProbe skips the liveness probe entirely.
func WithoutProbe() Option {
	return func(c *Client) {
		c.probeTries = 0
	}
}

// WithRetrieveAs selects how GetImage asks for pixels: "base64" (default)
// or "array".
func WithRetrieveAs(mode string) Option {
	return func(c *Client) {
		c.retrieveAs = mode
	}
}

// WithRateLimit throttles dispatched calls client-side, for callers
// streaming RefreshImage updates from live acquisition.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithRedial makes the persistent channel re-establish itself after a
// connection drop instead of failing subsequent calls.
func WithRedial() Option {
	return func(c *Client) {
		c.redial = true
	}
}

// WithHTTPClient sets the HTTP client used for requests and for dialing
// the channel.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New connects to the helper at host, which may omit the scheme and port
// the way the original client allows ("myhost.edu" means
// "http://myhost.edu:2718"). It probes the helper until it answers, builds
// the operation registry from the advertised operations when the channel
// transport is up, and returns a ready client.
func New(host string, opts ...Option) (*Client, error) {
	rawLog := zap.NewNop()
	c := &Client{
		log:         rawLog.Named("js9").Sugar(),
		rawLog:      rawLog,
		endpoint:    normalizeEndpoint(host),
		displayID:   "JS9",
		callTimeout: defaultCallTimeout,
		probeTries:  defaultProbeTries,
		probeDelay:  defaultProbeDelay,
		retrieveAs:  "base64",
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx := context.Background()
	if c.transport == nil {
		t, err := c.buildTransport(ctx)
		if err != nil {
			return nil, fmt.Errorf("connecting to JS9 helper: %w", err)
		}
		c.transport = t
	}

	if err := c.probe(ctx); err != nil {
		c.transport.Close()
		return nil, fmt.Errorf("probing JS9 helper: %w", err)
	}

	c.reg = newRegistry(c.transport.Ops())
	return c, nil
}

// normalizeEndpoint fills in what a bare host leaves out, the way the
// original client does: the default helper port when none is present, and
// the http scheme when none is present.
func normalizeEndpoint(host string) string {
	if host == "" {
		return DefaultEndpoint
	}
	host = strings.TrimRight(host, "/")
	colon := strings.LastIndex(host, ":")
	slash := strings.Index(host, "/")
	if colon <= slash {
		host += ":2718"
	}
	if slash < 0 {
		host = "http://" + host
	}
	return host
}

func (c *Client) buildTransport(ctx context.Context) (transport.Transport, error) {
	switch c.kind {
	case TransportHTTP:
		return transport.NewHTTP(c.endpoint, c.httpOpts()...), nil
	case TransportSocket:
		t := transport.NewSocket(c.endpoint, c.socketOpts()...)
		if err := t.Connect(ctx); err != nil {
			return nil, err
		}
		return t, nil
	default:
		t := transport.NewSocket(c.endpoint, c.socketOpts()...)
		if err := t.Connect(ctx); err != nil {
			c.log.Warnf("WebSocket connect failed: %s, using HTTP", err)
			return transport.NewHTTP(c.endpoint, c.httpOpts()...), nil
		}
		return t, nil
	}
}

func (c *Client) httpOpts() []transport.HTTPOption {
	opts := []transport.HTTPOption{transport.WithHTTPLogger(c.rawLog)}
	if c.httpClient != nil {
		opts = append(opts, transport.WithHTTPClient(c.httpClient))
	}
	return opts
}

func (c *Client) socketOpts() []transport.SocketOption {
	opts := []transport.SocketOption{transport.WithSocketLogger(c.rawLog)}
	if c.httpClient != nil {
		opts = append(opts, transport.WithSocketHTTPClient(c.httpClient))
	}
	if c.redial {
		opts = append(opts, transport.WithSocketRedial())
	}
	return opts
}

// probe sends liveness checks until the helper answers. A helper that is up
// but has no connected display answers with an error naming the display;
// like the original client, that counts as alive and is only logged.
func (c *Client) probe(ctx context.Context) error {
	var lastErr error
	for try := 0; try < c.probeTries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.probeDelay):
			}
		}

		res, err := c.alive(ctx)
		if err != nil {
			c.log.Debugf("alive probe failed: %s", err)
			lastErr = err
			continue
		}
		if strings.Contains(res, "ERROR:") {
			if strings.Contains(res, "JS9 instance(s) found with id") {
				c.log.Warnf("helper is alive but has no display: %s", res)
				return nil
			}
			c.log.Debugf("alive probe rejected: %s", res)
			lastErr = &RemoteError{Message: res}
			continue
		}
		c.log.Debugw("helper is alive", "Reply", res)
		return nil
	}
	return lastErr
}

// Endpoint returns the normalized helper endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Commands lists every operation the client will dispatch, sorted.
func (c *Client) Commands() []string {
	return c.reg.names()
}

// Supports reports whether an operation is known to the registry.
func (c *Client) Supports(name string) bool {
	_, ok := c.reg.lookup(name)
	return ok
}

// Close tears down the transport. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.transport.Close()
	})
	return c.closeErr
}
