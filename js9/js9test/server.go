// Package js9test runs an in-process stand-in for the JS9 back-end helper,
// speaking both transports: POST /msg and /alive for one-shot requests, and
// a WebSocket on GET /msg for the persistent channel.
//
// The server keeps the state of one display (colormap, zoom, pan, scale,
// orientation, params, the loaded image) so getters answer with what setters
// stored, and Load feeds GetImageData. A payload loaded from FITS bytes is
// decoded for real, so image round trips exercise the codec end to end.
// Operations without built-in behavior answer "OK". Handle overrides any
// operation, and override handlers may sleep to force replies out of order
// on the channel.
package js9test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/gojs9/gojs9/js9/transport"
	"github.com/gojs9/gojs9/wire"
)

const readLimit = 256 << 20

// Call is one recorded command. Liveness probes are not recorded.
type Call struct {
	Cmd  string
	Args []any
}

// HandlerFunc answers one operation. A returned error becomes the helper's
// "ERROR: ..." string result.
type HandlerFunc func(args []any) (any, error)

type Server struct {
	log *zap.SugaredLogger

	listener   net.Listener
	httpServer *http.Server

	mut       sync.Mutex
	ops       []string
	handlers  map[string]HandlerFunc
	calls     []Call
	noDisplay bool
	disp      display
}

// display is the mutable state of the one display the server simulates.
type display struct {
	colormap string
	contrast float64
	bias     float64
	zoom     float64
	panX     float64
	panY     float64
	scale    string
	scaleMin float64
	scaleMax float64
	flip     string
	rot90    float64
	rotate   float64
	valpos   bool
	wcssys   string
	wcsunits string
	params   map[string]any
	image    any
}

// builtinOps is the default advertised operation list: everything the server
// implements natively.
var builtinOps = []string{
	"Load", "CloseImage", "GetImageData", "GetFITSHeader",
	"GetStatus", "GetLoadStatus",
	"GetColormap", "SetColormap",
	"GetZoom", "SetZoom", "GetPan", "SetPan",
	"GetScale", "SetScale",
	"GetFlip", "SetFlip", "GetRot90", "SetRot90", "GetRotate", "SetRotate",
	"GetParam", "SetParam", "GetValPos", "SetValPos",
	"PixToWCS", "WCSToPix",
	"GetWCSUnits", "SetWCSUnits", "GetWCSSys", "SetWCSSys",
}

type Option func(s *Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l.Named("js9test").Sugar()
	}
}

// WithOps replaces the advertised operation list sent in the channel
// greeting.
func WithOps(ops ...string) Option {
	return func(s *Server) {
		s.ops = ops
	}
}

// WithoutDisplay makes liveness probes report that no display exists, the
// way a helper answers when the browser page is gone.
func WithoutDisplay() Option {
	return func(s *Server) {
		s.noDisplay = true
	}
}

// NewServer starts the helper on a random localhost port.
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		log:      zap.NewNop().Sugar(),
		ops:      builtinOps,
		handlers: map[string]HandlerFunc{},
		disp: display{
			colormap: "grey",
			contrast: 1,
			bias:     0.5,
			zoom:     1,
			scale:    "linear",
			flip:     "none",
			valpos:   true,
			wcssys:   "native",
			wcsunits: "sexagesimal",
			params:   map[string]any{},
		},
	}
	for _, o := range opts {
		o(s)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listening TCP: %w", err)
	}
	s.listener = listener

	router := httprouter.New()
	router.POST("/alive", s.alive)
	router.POST("/msg", s.msg)
	router.GET("/msg", s.channel)
	s.httpServer = &http.Server{Handler: router}

	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			s.log.Debugf("server stopped: %s", err)
		}
	}()

	return s, nil
}

// URL is the endpoint clients should connect to.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Handle overrides the behavior of one operation.
func (s *Server) Handle(cmd string, h HandlerFunc) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.handlers[cmd] = h
}

// SetOps changes the operation list advertised to channels opened from now
// on.
func (s *Server) SetOps(ops ...string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.ops = ops
}

// Calls returns every recorded command in arrival order.
func (s *Server) Calls() []Call {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts recorded commands by name.
func (s *Server) CallCount(cmd string) int {
	s.mut.Lock()
	defer s.mut.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Cmd == cmd {
			n++
		}
	}
	return n
}

// request is one channel event: a command plus its correlation id.
type request struct {
	transport.Command
	Corr string `json:"corr"`
}

func (s *Server) alive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var cmd transport.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeResult(w, s.aliveResult(cmd.ID))
}

func (s *Server) msg(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var cmd transport.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeResult(w, s.dispatch(&cmd))
}

// writeResult mimics the helper's responses: strings go out as plain text,
// anything else as JSON.
func (s *Server) writeResult(w http.ResponseWriter, res any) {
	if str, ok := res.(string); ok {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, str)
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *Server) channel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		s.log.Debugf("error accepting WebSocket conn: %s", err)
		return
	}
	s.log.Debug("accepted WebSocket conn")
	conn.SetReadLimit(readLimit)

	ctx := r.Context()
	ch := &channelConn{ctx: ctx, conn: conn}

	s.mut.Lock()
	ops := append([]string(nil), s.ops...)
	s.mut.Unlock()
	if err := ch.write(map[string]any{"ops": ops}); err != nil {
		s.log.Debugf("error sending greeting: %s", err)
		conn.Close(websocket.StatusInternalError, "")
		return
	}

	for {
		var req request
		err := wsjson.Read(ctx, conn, &req)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			s.log.Debug("client closed channel")
			return
		}
		if err != nil {
			s.log.Debugf("channel reader got error: %s", err)
			conn.Close(websocket.StatusInternalError, "")
			return
		}
		// dispatch each command on its own goroutine so a slow handler
		// does not hold up the replies behind it
		go func() {
			res := s.dispatch(&req.Command)
			if err := ch.write(map[string]any{"corr": req.Corr, "result": res}); err != nil {
				s.log.Debugf("error writing reply: %s", err)
			}
		}()
	}
}

// channelConn serializes writes from concurrent dispatch goroutines.
type channelConn struct {
	ctx  context.Context
	conn *websocket.Conn
	mut  sync.Mutex
}

func (c *channelConn) write(msg any) error {
	c.mut.Lock()
	defer c.mut.Unlock()
	return wsjson.Write(c.ctx, c.conn, msg)
}

func (s *Server) aliveResult(id string) string {
	if id == "" {
		id = "JS9"
	}
	s.mut.Lock()
	noDisplay := s.noDisplay
	s.mut.Unlock()
	if noDisplay {
		return fmt.Sprintf("ERROR: no JS9 instance(s) found with id %s", id)
	}
	return fmt.Sprintf("1 JS9 instance(s) found with id %s", id)
}

func (s *Server) dispatch(cmd *transport.Command) any {
	if cmd.Cmd == "" {
		return s.aliveResult(cmd.ID)
	}

	s.mut.Lock()
	s.calls = append(s.calls, Call{Cmd: cmd.Cmd, Args: cmd.Args})
	h := s.handlers[cmd.Cmd]
	s.mut.Unlock()

	if h != nil {
		res, err := h(cmd.Args)
		if err != nil {
			return "ERROR: " + err.Error()
		}
		return res
	}
	return s.builtin(cmd.Cmd, cmd.Args)
}

func (s *Server) builtin(cmd string, args []any) any {
	s.mut.Lock()
	defer s.mut.Unlock()
	d := &s.disp

	switch cmd {
	case "Load":
		return s.load(args)
	case "CloseImage":
		d.image = nil
	case "GetImageData":
		if d.image == nil {
			return "ERROR: no image data"
		}
		if b, ok := argAt(args, 0).(bool); ok && !b {
			return imageInfo(d.image)
		}
		return d.image
	case "GetFITSHeader":
		switch img := d.image.(type) {
		case *wire.ImageEnvelope:
			return img.Head
		case map[string]any:
			return img["head"]
		}
		return "ERROR: no image data"
	case "GetStatus", "GetLoadStatus":
		return "complete"

	case "GetColormap":
		return map[string]any{"colormap": d.colormap, "contrast": d.contrast, "bias": d.bias}
	case "SetColormap":
		if v, ok := argString(args, 0); ok {
			d.colormap = v
		}
		if v, ok := argFloat(args, 1); ok {
			d.contrast = v
		}
		if v, ok := argFloat(args, 2); ok {
			d.bias = v
		}

	case "GetZoom":
		return d.zoom
	case "SetZoom":
		switch v := argAt(args, 0).(type) {
		case float64:
			d.zoom = v
		case string:
			switch v {
			case "in":
				d.zoom *= 2
			case "out":
				d.zoom /= 2
			default:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					d.zoom = f
				}
			}
		}

	case "GetPan":
		return map[string]any{"x": d.panX, "y": d.panY}
	case "SetPan":
		if m, ok := argAt(args, 0).(map[string]any); ok {
			if v, ok := toFloat(m["x"]); ok {
				d.panX = v
			}
			if v, ok := toFloat(m["y"]); ok {
				d.panY = v
			}
			break
		}
		if v, ok := argFloat(args, 0); ok {
			d.panX = v
		}
		if v, ok := argFloat(args, 1); ok {
			d.panY = v
		}

	case "GetScale":
		return map[string]any{"scale": d.scale, "scalemin": d.scaleMin, "scalemax": d.scaleMax}
	case "SetScale":
		if v, ok := argString(args, 0); ok {
			d.scale = v
		}
		if v, ok := argFloat(args, 1); ok {
			d.scaleMin = v
		}
		if v, ok := argFloat(args, 2); ok {
			d.scaleMax = v
		}

	case "GetFlip":
		return d.flip
	case "SetFlip":
		if v, ok := argString(args, 0); ok {
			d.flip = v
		}
	case "GetRot90":
		return d.rot90
	case "SetRot90":
		if v, ok := argFloat(args, 0); ok {
			d.rot90 = math.Mod(d.rot90+v, 360)
		}
	case "GetRotate":
		return d.rotate
	case "SetRotate":
		if v, ok := argFloat(args, 0); ok {
			d.rotate = v
		}

	case "GetParam":
		name, ok := argString(args, 0)
		if !ok {
			return "ERROR: GetParam needs a parameter name"
		}
		return d.params[name]
	case "SetParam":
		name, ok := argString(args, 0)
		if !ok || len(args) < 2 {
			return "ERROR: SetParam needs a name and a value"
		}
		old := d.params[name]
		d.params[name] = args[1]
		return old
	case "GetValPos":
		return d.valpos
	case "SetValPos":
		if v, ok := argAt(args, 0).(bool); ok {
			d.valpos = v
		}

	// the mock's sky is a flat 10x scale of the image plane, which keeps
	// PixToWCS and WCSToPix exact inverses
	case "PixToWCS":
		x, _ := argFloat(args, 0)
		y, _ := argFloat(args, 1)
		ra, dec := x/10, y/10
		return map[string]any{
			"ra": ra, "dec": dec, "sys": d.wcssys,
			"str": fmt.Sprintf("%g %g (%s)", ra, dec, d.wcssys),
		}
	case "WCSToPix":
		ra, _ := argFloat(args, 0)
		dec, _ := argFloat(args, 1)
		x, y := ra*10, dec*10
		return map[string]any{"x": x, "y": y, "str": fmt.Sprintf("%g %g", x, y)}

	case "GetWCSUnits":
		return d.wcsunits
	case "SetWCSUnits":
		if v, ok := argString(args, 0); ok {
			d.wcsunits = v
		}
	case "GetWCSSys":
		return d.wcssys
	case "SetWCSSys":
		if v, ok := argString(args, 0); ok {
			d.wcssys = v
		}
	}
	return "OK"
}

// load stores an image payload the way the helper's Load does: object
// payloads are kept as sent, FITS bytes are decoded into an envelope, and
// anything else is treated as a URL there is no browser to fetch.
func (s *Server) load(args []any) any {
	if len(args) == 0 {
		return "ERROR: nothing to load"
	}
	filename := ""
	if opts, ok := argAt(args, 1).(map[string]any); ok {
		if f, ok := opts["filename"].(string); ok {
			filename = f
		}
	}

	switch payload := args[0].(type) {
	case map[string]any:
		if filename != "" {
			payload["filename"] = filename
		}
		s.disp.image = payload
	case string:
		doc, err := wire.DecodeFITS(payload)
		if err != nil {
			// a URL or path: recorded, but nothing to fetch in-process
			return "OK"
		}
		u, ok := doc.ImageUnit()
		if !ok {
			return "ERROR: FITS file has no image data"
		}
		env, err := wire.EncodeImage(u.Data, &wire.Meta{Filename: filename, Header: u.Header.Map()})
		if err != nil {
			return fmt.Sprintf("ERROR: cannot load image: %s", err)
		}
		s.disp.image = env
	default:
		return "ERROR: unsupported load payload"
	}
	return "OK"
}

// imageInfo strips an image payload down to the dataless info object that
// GetImageData(false) returns.
func imageInfo(img any) map[string]any {
	info := map[string]any{"imtab": "image", "source": "fits"}
	switch im := img.(type) {
	case *wire.ImageEnvelope:
		info["id"] = im.Filename
		info["file"] = im.Filename
		info["width"] = im.NAxis1
		info["height"] = im.NAxis2
		info["bitpix"] = im.Bitpix
		info["header"] = im.Head
	case map[string]any:
		info["id"] = im["filename"]
		info["file"] = im["filename"]
		info["width"] = im["naxis1"]
		info["height"] = im["naxis2"]
		info["bitpix"] = im["bitpix"]
		info["header"] = im["head"]
	}
	return info
}

func argAt(args []any, i int) any {
	if i >= len(args) {
		return nil
	}
	return args[i]
}

func argString(args []any, i int) (string, bool) {
	v, ok := argAt(args, i).(string)
	return v, ok
}

func argFloat(args []any, i int) (float64, bool) {
	return toFloat(argAt(args, i))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
