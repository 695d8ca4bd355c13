package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// image replies can run to hundreds of megabytes once base64'd
const defaultReadLimit = 256 << 20

const defaultDialTimeout = 10 * time.Second

// Socket is the persistent channel transport: one WebSocket connection
// carries every call, and replies are matched to callers by correlation id,
// so calls from many goroutines interleave freely.
type Socket struct {
	log         *zap.SugaredLogger
	endpoint    string
	wsURL       string
	httpClient  *http.Client
	redial      bool
	dialTimeout time.Duration
	readLimit   int64

	mut        sync.Mutex
	conn       *websocket.Conn
	connCancel func()
	ops        []string
	pending    map[string]chan callReply
	dropped    bool
	closed     bool

	writeMut sync.Mutex
}

type callReply struct {
	result json.RawMessage
	err    error
}

// channelRequest is a command plus the correlation id its reply must echo.
type channelRequest struct {
	Command
	Corr string `json:"corr"`
}

// channelReply is one server-to-client event: a correlated result, or a
// bare ops announcement (the greeting, and again if the page changes).
type channelReply struct {
	Corr   string          `json:"corr"`
	Result json.RawMessage `json:"result"`
	Ops    []string        `json:"ops"`
}

type SocketOption func(t *Socket)

func WithSocketLogger(l *zap.Logger) SocketOption {
	return func(t *Socket) {
		t.log = l.Named("js9_socket").Sugar()
	}
}

// WithSocketHTTPClient sets the HTTP client used to dial the WebSocket.
func WithSocketHTTPClient(c *http.Client) SocketOption {
	return func(t *Socket) {
		t.httpClient = c
	}
}

// WithSocketRedial makes a dropped connection re-establish itself on the
// next call. Without it a drop is permanent and later calls fail fast.
// The call that was in flight when the connection dropped fails either way.
func WithSocketRedial() SocketOption {
	return func(t *Socket) {
		t.redial = true
	}
}

func WithSocketDialTimeout(d time.Duration) SocketOption {
	return func(t *Socket) {
		t.dialTimeout = d
	}
}

func WithSocketReadLimit(n int64) SocketOption {
	return func(t *Socket) {
		t.readLimit = n
	}
}

// NewSocket builds the persistent channel transport for the given endpoint.
// The connection is established lazily on the first call, or eagerly via
// Connect.
func NewSocket(endpoint string, opts ...SocketOption) *Socket {
	endpoint = strings.TrimRight(endpoint, "/")
	t := &Socket{
		log:         zap.NewNop().Sugar(),
		endpoint:    endpoint,
		wsURL:       "ws" + strings.TrimPrefix(endpoint, "http") + "/msg",
		dialTimeout: defaultDialTimeout,
		readLimit:   defaultReadLimit,
		pending:     make(map[string]chan callReply),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect establishes the channel eagerly and reads the helper's greeting.
func (t *Socket) Connect(ctx context.Context) error {
	_, err := t.ensureConn(ctx)
	return err
}

func (t *Socket) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	t.mut.Lock()
	defer t.mut.Unlock()
	if t.closed {
		return nil, &ConnectionError{Endpoint: t.endpoint, cause: errors.New("transport closed")}
	}
	if t.conn != nil {
		return t.conn, nil
	}
	if t.dropped && !t.redial {
		return nil, &ConnectionError{Endpoint: t.endpoint, cause: errors.New("connection lost")}
	}

	dialCtx := ctx
	if t.dialTimeout > 0 {
		var cancel func()
		dialCtx, cancel = context.WithTimeout(ctx, t.dialTimeout)
		defer cancel()
	}
	t.log.Debugw("dialing WebSocket", "URL", t.wsURL)
	conn, _, err := websocket.Dial(dialCtx, t.wsURL, &websocket.DialOptions{HTTPClient: t.httpClient})
	if err != nil {
		return nil, wrapNetErr(err, t.endpoint)
	}
	conn.SetReadLimit(t.readLimit)

	// the greeting advertises the operations the page supports
	var hello channelReply
	if err := wsjson.Read(dialCtx, conn, &hello); err != nil {
		conn.Close(websocket.StatusProtocolError, "no greeting")
		return nil, wrapNetErr(err, t.endpoint)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	t.conn = conn
	t.connCancel = cancel
	t.ops = hello.Ops
	t.dropped = false
	go t.readReplies(connCtx, conn)
	return conn, nil
}

func (t *Socket) Call(ctx context.Context, cmd *Command) (json.RawMessage, error) {
	conn, err := t.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	corr := uuid.NewString()
	ch := make(chan callReply, 1)
	t.mut.Lock()
	if t.conn != conn {
		t.mut.Unlock()
		return nil, &ConnectionError{Endpoint: t.endpoint, cause: errors.New("connection lost")}
	}
	t.pending[corr] = ch
	t.mut.Unlock()

	req := channelRequest{Command: *cmd, Corr: corr}
	t.writeMut.Lock()
	err = wsjson.Write(ctx, conn, req)
	t.writeMut.Unlock()
	if err != nil {
		t.removeSlot(corr)
		return nil, wrapNetErr(err, t.endpoint)
	}

	select {
	case rep := <-ch:
		return rep.result, rep.err
	case <-ctx.Done():
		// reap the slot so a late reply gets discarded, not delivered
		t.removeSlot(corr)
		return nil, wrapNetErr(ctx.Err(), t.endpoint)
	}
}

// Alive sends a command with routing fields only; the helper answers it
// like any other call, erroring when the display is unknown.
func (t *Socket) Alive(ctx context.Context, cmd *Command) (json.RawMessage, error) {
	return t.Call(ctx, cmd)
}

func (t *Socket) Ops() []string {
	t.mut.Lock()
	defer t.mut.Unlock()
	return append([]string(nil), t.ops...)
}

func (t *Socket) Close() error {
	t.mut.Lock()
	if t.closed {
		t.mut.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mut.Unlock()

	if conn != nil {
		// the reader notices the closure and fails outstanding calls
		return conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

func (t *Socket) removeSlot(corr string) {
	t.mut.Lock()
	delete(t.pending, corr)
	t.mut.Unlock()
}

// readReplies is the connection's only reader. It routes replies to their
// waiting callers by correlation id until the connection goes away.
func (t *Socket) readReplies(ctx context.Context, conn *websocket.Conn) {
	for {
		var rep channelReply
		err := wsjson.Read(ctx, conn, &rep)
		if err != nil {
			t.log.Debugf("reply reader got error: %s", err)
			t.dropConn(conn, err)
			return
		}
		if rep.Corr == "" {
			if rep.Ops != nil {
				t.mut.Lock()
				t.ops = rep.Ops
				t.mut.Unlock()
				continue
			}
			t.log.Debug("discarding reply without correlation id")
			continue
		}
		t.deliver(rep)
	}
}

func (t *Socket) deliver(rep channelReply) {
	t.mut.Lock()
	ch, ok := t.pending[rep.Corr]
	if ok {
		delete(t.pending, rep.Corr)
	}
	t.mut.Unlock()
	if !ok {
		// the waiter timed out and reaped its slot
		t.log.Debugw("discarding late reply", "Corr", rep.Corr)
		return
	}
	ch <- callReply{result: rep.Result}
}

// dropConn fails every outstanding call and clears the connection so a
// redial can follow, when enabled.
func (t *Socket) dropConn(conn *websocket.Conn, cause error) {
	t.mut.Lock()
	if t.conn != conn {
		// an older reader lost a race with a redial
		t.mut.Unlock()
		return
	}
	t.conn = nil
	t.dropped = true
	cancel := t.connCancel
	t.connCancel = nil
	pending := t.pending
	t.pending = make(map[string]chan callReply)
	t.mut.Unlock()

	if cancel != nil {
		cancel()
	}
	conn.Close(websocket.StatusInternalError, "connection dropped")
	err := &ConnectionError{Endpoint: t.endpoint, cause: cause}
	for _, ch := range pending {
		ch <- callReply{err: err}
	}
}
