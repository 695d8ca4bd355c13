package js9

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/gojs9/gojs9/js9/js9test"
	"github.com/gojs9/gojs9/js9/transport"
	"github.com/gojs9/gojs9/pixel"
	"github.com/gojs9/gojs9/wire"
)

// fakeTransport records calls and answers them from canned functions.
type fakeTransport struct {
	mut    sync.Mutex
	calls  []transport.Command
	alives int
	reply  func(cmd *transport.Command) (json.RawMessage, error)
	alive  func() (json.RawMessage, error)
	ops    []string
}

func (f *fakeTransport) Call(ctx context.Context, cmd *transport.Command) (json.RawMessage, error) {
	f.mut.Lock()
	f.calls = append(f.calls, *cmd)
	f.mut.Unlock()
	if f.reply != nil {
		return f.reply(cmd)
	}
	return json.RawMessage(`"OK"`), nil
}

func (f *fakeTransport) Alive(ctx context.Context, cmd *transport.Command) (json.RawMessage, error) {
	f.mut.Lock()
	f.alives++
	f.mut.Unlock()
	if f.alive != nil {
		return f.alive()
	}
	return json.RawMessage(`"1 JS9 instance(s) found with id JS9"`), nil
}

func (f *fakeTransport) Ops() []string { return f.ops }
func (f *fakeTransport) Close() error  { return nil }

func (f *fakeTransport) callCount() int {
	f.mut.Lock()
	defer f.mut.Unlock()
	return len(f.calls)
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		host string
		exp  string
	}{
		{host: "", exp: "http://localhost:2718"},
		{host: "localhost", exp: "http://localhost:2718"},
		{host: "localhost:8000", exp: "http://localhost:8000"},
		{host: "myhost.edu", exp: "http://myhost.edu:2718"},
		{host: "http://myhost.edu", exp: "http://myhost.edu:2718"},
		{host: "http://myhost.edu/", exp: "http://myhost.edu:2718"},
		{host: "http://myhost.edu:31000", exp: "http://myhost.edu:31000"},
	}
	for _, c := range cases {
		t.Run(c.host, func(t *testing.T) {
			assert.Equal(t, c.exp, normalizeEndpoint(c.host))
		})
	}
}

func TestUnknownOperation(t *testing.T) {
	f := &fakeTransport{}
	c, err := New("", WithTransport(f), WithoutProbe())
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "ExplodeImage")
	var uerr *UnknownOperationError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "ExplodeImage", uerr.Op)

	// nothing may have gone on the wire
	assert.Equal(t, 0, f.callCount())
}

func TestTooManyArguments(t *testing.T) {
	f := &fakeTransport{}
	c, err := New("", WithTransport(f), WithoutProbe())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Invoke(ctx, "SetZoom", 2, 3)
	var cerr *CallError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "SetZoom", cerr.Op)
	assert.Contains(t, err.Error(), "too many arguments")
	assert.Equal(t, 0, f.callCount())

	// exactly at the cap is fine
	_, err = c.Invoke(ctx, "SetPan", 10, 20)
	require.NoError(t, err)
}

func TestRemoteErrorDetection(t *testing.T) {
	f := &fakeTransport{
		reply: func(cmd *transport.Command) (json.RawMessage, error) {
			return json.RawMessage(`"ERROR: no image data"`), nil
		},
	}
	c, err := New("", WithTransport(f), WithoutProbe())
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "CloseImage")
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "CloseImage", rerr.Op)
	assert.Equal(t, "ERROR: no image data", rerr.Message)

	var cerr *CallError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "CloseImage", cerr.Op)
}

func TestPayloadArguments(t *testing.T) {
	f := &fakeTransport{}
	c, err := New("", WithTransport(f), WithoutProbe())
	require.NoError(t, err)
	ctx := context.Background()

	buf, err := pixel.FromFloat64s(pixel.Float32, binary.LittleEndian, []float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)

	// a pixel buffer handed to Load goes out as an envelope
	_, err = c.Invoke(ctx, "Load", buf)
	require.NoError(t, err)
	f.mut.Lock()
	sent := f.calls[len(f.calls)-1]
	f.mut.Unlock()
	env, ok := sent.Args[0].(*wire.ImageEnvelope)
	require.True(t, ok)
	assert.Equal(t, 2, env.NAxis1)
	assert.Equal(t, pixel.Float32, env.Bitpix)

	// operations that do not take payloads reject buffers locally
	before := f.callCount()
	_, err = c.Invoke(ctx, "SetColormap", buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not take an image payload")
	assert.Equal(t, before, f.callCount())
}

func TestRoutingFields(t *testing.T) {
	f := &fakeTransport{}
	c, err := New("", WithTransport(f), WithoutProbe(),
		WithDisplay("myJS9"), WithMulti(), WithPageID("page-7"))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "GetZoom")
	require.NoError(t, err)

	f.mut.Lock()
	sent := f.calls[0]
	f.mut.Unlock()
	assert.Equal(t, "myJS9", sent.ID)
	assert.True(t, sent.Multi)
	assert.Equal(t, "page-7", sent.PageID)
}

func TestRegistryUnion(t *testing.T) {
	f := &fakeTransport{ops: []string{"FlipColormap", "Load"}}
	c, err := New("", WithTransport(f), WithoutProbe())
	require.NoError(t, err)

	assert.True(t, c.Supports("Load"))
	assert.True(t, c.Supports("FlipColormap"))
	assert.False(t, c.Supports("ExplodeImage"))
	assert.Contains(t, c.Commands(), "FlipColormap")

	// advertised names get unchecked descriptors
	_, err = c.Invoke(context.Background(), "FlipColormap", 1, 2, 3, 4, 5)
	require.NoError(t, err)
}

func TestRateLimit(t *testing.T) {
	f := &fakeTransport{}
	c, err := New("", WithTransport(f), WithoutProbe(),
		WithRateLimit(rate.Every(50*time.Millisecond), 1))
	require.NoError(t, err)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Invoke(ctx, "RefreshImage")
		require.NoError(t, err)
	}
	// burst 1, so calls 2 and 3 wait for the limiter
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestProbeRetries(t *testing.T) {
	attempts := 0
	f := &fakeTransport{
		alive: func() (json.RawMessage, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			return json.RawMessage(`"1 JS9 instance(s) found with id JS9"`), nil
		},
	}
	_, err := New("", WithTransport(f), WithProbe(5, time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestProbeGivesUp(t *testing.T) {
	f := &fakeTransport{
		alive: func() (json.RawMessage, error) {
			return nil, errors.New("connection refused")
		},
	}
	_, err := New("", WithTransport(f), WithProbe(2, time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probing JS9 helper")
	assert.Equal(t, 2, f.alives)
}

func TestProbeToleratesMissingDisplay(t *testing.T) {
	// a helper with no connected display is alive: the probe logs and
	// accepts, like the original client
	srv, err := js9test.NewServer(js9test.WithoutDisplay())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	c, err := New(srv.URL(), WithTransportKind(TransportHTTP))
	require.NoError(t, err)
	defer c.Close()
}

func TestClientByHTTP(t *testing.T) {
	srv, err := js9test.NewServer()
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	c, err := New(srv.URL(), WithTransportKind(TransportHTTP))
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	res, err := c.SetColormap(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, "OK", res.Str())
	require.Equal(t, 1, srv.CallCount("SetColormap"))
	assert.Equal(t, []any{"red"}, srv.Calls()[0].Args)

	cm, err := c.GetColormap(ctx)
	require.NoError(t, err)
	assert.Equal(t, Colormap{Colormap: "red", Contrast: 1, Bias: 0.5}, cm)

	_, err = c.SetZoom(ctx, 3)
	require.NoError(t, err)
	zoom, err := c.GetZoom(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, zoom)

	_, err = c.SetPan(ctx, 10, 20)
	require.NoError(t, err)
	pan, err := c.GetPan(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pan{X: 10, Y: 20}, pan)

	_, err = c.SetScale(ctx, "log")
	require.NoError(t, err)
	scale, err := c.GetScale(ctx)
	require.NoError(t, err)
	assert.Equal(t, "log", scale.Scale)

	_, err = c.SetRot90(ctx, 90)
	require.NoError(t, err)
	rot, err := c.GetRot90(ctx)
	require.NoError(t, err)
	assert.Equal(t, 90.0, rot)

	pos, err := c.PixToWCS(ctx, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, WCSPos{RA: 10, Dec: 5, Sys: "native", Str: "10 5 (native)"}, pos)
	pix, err := c.WCSToPix(ctx, pos.RA, pos.Dec)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pix.X)
	assert.Equal(t, 50.0, pix.Y)

	old, err := c.SetParam(ctx, "exposure", 300)
	require.NoError(t, err)
	assert.True(t, old.IsNull())
	val, err := c.GetParam(ctx, "exposure")
	require.NoError(t, err)
	exp, ok := val.Float64()
	require.True(t, ok)
	assert.Equal(t, 300.0, exp)

	status, err := c.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "complete", status)

	vp, err := c.GetValPos(ctx)
	require.NoError(t, err)
	assert.True(t, vp)

	// the HTTP transport cannot learn advertised ops, so only the
	// built-in list is dispatchable
	assert.True(t, c.Supports("Load"))
	assert.False(t, c.Supports("SetValPos"))
}

func TestClientBySocket(t *testing.T) {
	srv, err := js9test.NewServer()
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	c, err := New(srv.URL(), WithTransportKind(TransportSocket))
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	// over the channel the helper advertises SetValPos, which the
	// built-in list does not know
	require.True(t, c.Supports("SetValPos"))
	_, err = c.Invoke(ctx, "SetValPos", false)
	require.NoError(t, err)
	vp, err := c.GetValPos(ctx)
	require.NoError(t, err)
	assert.False(t, vp)

	cm, err := c.GetColormap(ctx)
	require.NoError(t, err)
	assert.Equal(t, Colormap{Colormap: "grey", Contrast: 1, Bias: 0.5}, cm)
}

func TestResultAccessors(t *testing.T) {
	r := newResult(json.RawMessage(`{"zoom": 2}`))
	m, ok := r.Map()
	require.True(t, ok)
	assert.Equal(t, 2.0, m["zoom"])

	f, ok := newResult(json.RawMessage(`3.5`)).Float64()
	require.True(t, ok)
	assert.Equal(t, 3.5, f)

	n, ok := newResult(json.RawMessage(`42`)).Int()
	require.True(t, ok)
	assert.Equal(t, 42, n)

	b, ok := newResult(json.RawMessage(`true`)).Bool()
	require.True(t, ok)
	assert.True(t, b)

	assert.Equal(t, "OK", newResult(json.RawMessage(`"OK"`)).Str())
	assert.Equal(t, "", newResult(json.RawMessage(`17`)).Str())

	assert.True(t, newResult(json.RawMessage(`null`)).IsNull())
	assert.True(t, Result{}.IsNull())
	require.Error(t, Result{}.Decode(&struct{}{}))
}
