package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var log *zap.Logger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	log = l
}

func TestHTTPCall(t *testing.T) {
	var got Command
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/msg", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"colormap":"grey","contrast":1,"bias":0.5}`))
	}))
	t.Cleanup(s.Close)

	tr := NewHTTP(s.URL, WithHTTPLogger(log))
	defer tr.Close()

	raw, err := tr.Call(context.Background(), &Command{Cmd: "GetColormap", ID: "JS9"})
	require.NoError(t, err)

	assert.Equal(t, "GetColormap", got.Cmd)
	assert.Equal(t, "JS9", got.ID)
	assert.JSONEq(t, `{"colormap":"grey","contrast":1,"bias":0.5}`, string(raw))
	assert.Nil(t, tr.Ops())
}

func TestHTTPAlive(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/alive", r.URL.Path)
		fmt.Fprint(w, "1 JS9 instance(s) found with id JS9")
	}))
	t.Cleanup(s.Close)

	tr := NewHTTP(s.URL)
	defer tr.Close()

	raw, err := tr.Alive(context.Background(), &Command{ID: "JS9"})
	require.NoError(t, err)

	var text string
	require.NoError(t, json.Unmarshal(raw, &text))
	assert.Equal(t, "1 JS9 instance(s) found with id JS9", text)
}

func TestHTTPStatus(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "helper exploded", http.StatusInternalServerError)
	}))
	t.Cleanup(s.Close)

	tr := NewHTTP(s.URL)
	defer tr.Close()

	_, err := tr.Call(context.Background(), &Command{Cmd: "GetZoom", ID: "JS9"})
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "unexpected status code 500")
}

func TestHTTPTimeout(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	t.Cleanup(s.Close)

	tr := NewHTTP(s.URL)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Call(ctx, &Command{Cmd: "GetZoom", ID: "JS9"})
	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Timeout())
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		body string
		exp  string
	}{
		{
			name: "object passes through",
			body: `{"zoom":2}`,
			exp:  `{"zoom":2}`,
		},
		{
			name: "number passes through",
			body: `3.5`,
			exp:  `3.5`,
		},
		{
			name: "plain text becomes a JSON string",
			body: "1 JS9 instance(s) found with id JS9",
			exp:  `"1 JS9 instance(s) found with id JS9"`,
		},
		{
			name: "surrounding whitespace is trimmed",
			body: "  OK\n",
			exp:  `"OK"`,
		},
		{
			name: "empty body becomes the empty string",
			body: "",
			exp:  `""`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.exp, string(normalize([]byte(c.body))))
		})
	}
}

// newChannelServer runs a WebSocket endpoint that greets each connection
// with the given ops list and hands every decoded request to handle.
func newChannelServer(t *testing.T, ops []string, handle func(ctx context.Context, conn *websocket.Conn, req channelRequest)) *httptest.Server {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")
		ctx := r.Context()
		if err := wsjson.Write(ctx, conn, map[string]any{"ops": ops}); err != nil {
			return
		}
		for {
			var req channelRequest
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				return
			}
			handle(ctx, conn, req)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func reply(ctx context.Context, conn *websocket.Conn, corr string, result any) {
	wsjson.Write(ctx, conn, map[string]any{"corr": corr, "result": result})
}

func TestSocketCall(t *testing.T) {
	s := newChannelServer(t, []string{"GetColormap", "SetColormap"}, func(ctx context.Context, conn *websocket.Conn, req channelRequest) {
		if req.Cmd == "" {
			reply(ctx, conn, req.Corr, "1 JS9 instance(s) found with id "+req.ID)
			return
		}
		reply(ctx, conn, req.Corr, map[string]any{"cmd": req.Cmd, "args": req.Args})
	})

	tr := NewSocket(s.URL, WithSocketLogger(log))
	defer tr.Close()

	raw, err := tr.Call(context.Background(), &Command{Cmd: "SetColormap", Args: []any{"red"}, ID: "JS9"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cmd":"SetColormap","args":["red"]}`, string(raw))

	assert.Equal(t, []string{"GetColormap", "SetColormap"}, tr.Ops())

	raw, err = tr.Alive(context.Background(), &Command{ID: "JS9"})
	require.NoError(t, err)
	var text string
	require.NoError(t, json.Unmarshal(raw, &text))
	assert.Equal(t, "1 JS9 instance(s) found with id JS9", text)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	_, err = tr.Call(context.Background(), &Command{Cmd: "GetZoom", ID: "JS9"})
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
}

func TestSocketReplyRouting(t *testing.T) {
	// hold replies until both calls are in flight, then answer them in
	// reverse arrival order; each caller must still get its own result
	var mut sync.Mutex
	var held []channelRequest
	s := newChannelServer(t, nil, func(ctx context.Context, conn *websocket.Conn, req channelRequest) {
		mut.Lock()
		held = append(held, req)
		reqs := append([]channelRequest(nil), held...)
		mut.Unlock()
		if len(reqs) < 2 {
			return
		}
		for i := len(reqs) - 1; i >= 0; i-- {
			reply(ctx, conn, reqs[i].Corr, reqs[i].Cmd)
		}
	})

	tr := NewSocket(s.URL)
	defer tr.Close()

	done := make(chan error, 2)
	for _, cmd := range []string{"GetZoom", "GetPan"} {
		cmd := cmd
		go func() {
			raw, err := tr.Call(context.Background(), &Command{Cmd: cmd, ID: "JS9"})
			if err != nil {
				done <- err
				return
			}
			var got string
			if err := json.Unmarshal(raw, &got); err != nil {
				done <- err
				return
			}
			if got != cmd {
				done <- fmt.Errorf("got reply %q for call %q", got, cmd)
				return
			}
			done <- nil
		}()
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}
}

func TestSocketTimeout(t *testing.T) {
	var mut sync.Mutex
	var hung []string
	s := newChannelServer(t, nil, func(ctx context.Context, conn *websocket.Conn, req channelRequest) {
		switch req.Cmd {
		case "hang":
			mut.Lock()
			hung = append(hung, req.Corr)
			mut.Unlock()
		case "flush":
			// answer the abandoned call first, then this one
			mut.Lock()
			corrs := hung
			hung = nil
			mut.Unlock()
			for _, corr := range corrs {
				reply(ctx, conn, corr, "too late")
			}
			reply(ctx, conn, req.Corr, "flushed")
		}
	})

	tr := NewSocket(s.URL)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tr.Call(ctx, &Command{Cmd: "hang", ID: "JS9"})
	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)

	// the late reply must be discarded, not handed to the next caller
	raw, err := tr.Call(context.Background(), &Command{Cmd: "flush", ID: "JS9"})
	require.NoError(t, err)
	var got string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "flushed", got)
}

func TestSocketDrop(t *testing.T) {
	s := newChannelServer(t, nil, func(ctx context.Context, conn *websocket.Conn, req channelRequest) {
		if req.Cmd == "die" {
			conn.Close(websocket.StatusInternalError, "dying")
			return
		}
		reply(ctx, conn, req.Corr, "pong")
	})

	t.Run("drop fails calls in flight and stays down", func(t *testing.T) {
		tr := NewSocket(s.URL)
		defer tr.Close()

		_, err := tr.Call(context.Background(), &Command{Cmd: "die", ID: "JS9"})
		var cerr *ConnectionError
		require.ErrorAs(t, err, &cerr)

		_, err = tr.Call(context.Background(), &Command{Cmd: "ping", ID: "JS9"})
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, err.Error(), "connection lost")
	})

	t.Run("redial brings the channel back", func(t *testing.T) {
		tr := NewSocket(s.URL, WithSocketRedial())
		defer tr.Close()

		_, err := tr.Call(context.Background(), &Command{Cmd: "die", ID: "JS9"})
		var cerr *ConnectionError
		require.ErrorAs(t, err, &cerr)

		raw, err := tr.Call(context.Background(), &Command{Cmd: "ping", ID: "JS9"})
		require.NoError(t, err)
		var got string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "pong", got)
	})
}

func TestSocketOpsRefresh(t *testing.T) {
	s := newChannelServer(t, []string{"GetZoom"}, func(ctx context.Context, conn *websocket.Conn, req channelRequest) {
		if req.Cmd == "announce" {
			wsjson.Write(ctx, conn, map[string]any{"ops": []string{"GetZoom", "SetZoom"}})
		}
		reply(ctx, conn, req.Corr, "ok")
	})

	tr := NewSocket(s.URL)
	defer tr.Close()

	require.NoError(t, tr.Connect(context.Background()))
	assert.Equal(t, []string{"GetZoom"}, tr.Ops())

	// the announcement is written before the reply, so once the call
	// returns the new list must be visible
	_, err := tr.Call(context.Background(), &Command{Cmd: "announce", ID: "JS9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GetZoom", "SetZoom"}, tr.Ops())
}
