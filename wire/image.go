package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"github.com/gojs9/gojs9/pixel"
)

// ImageEnvelope is the object form JS9 accepts for loading an in-memory
// image: raw pixels base64'd in a declared byte order, plus the shape and
// data range the display needs up front.
type ImageEnvelope struct {
	NAxis    int            `json:"naxis"`
	NAxis1   int            `json:"naxis1"`
	NAxis2   int            `json:"naxis2,omitempty"`
	NAxis3   int            `json:"naxis3,omitempty"`
	Bitpix   int            `json:"bitpix"`
	DMin     float64        `json:"dmin"`
	DMax     float64        `json:"dmax"`
	Endian   string         `json:"endian,omitempty"`
	Encoding string         `json:"encoding"`
	Image    string         `json:"image"`
	Head     map[string]any `json:"head,omitempty"`
	Filename string         `json:"filename,omitempty"`
}

// Meta is sidecar information that travels with a pixel buffer.
type Meta struct {
	Filename string
	Header   map[string]any
}

// EncodeImage packs a pixel buffer into an envelope. The buffer bytes are
// base64'd exactly as they are, with the byte order declared alongside, and
// dmin/dmax computed from the data.
func EncodeImage(buf *pixel.Buffer, meta *Meta) (*ImageEnvelope, error) {
	if buf == nil {
		return nil, malformedf(nil, "nil pixel buffer")
	}
	if err := buf.Validate(); err != nil {
		return nil, &CodecError{Kind: Mismatch, Reason: "inconsistent pixel buffer", cause: err}
	}
	if len(buf.Dims) > 3 {
		return nil, mismatchf("%d axes, the display handles at most 3", len(buf.Dims))
	}
	dmin, dmax := buf.MinMax()
	env := &ImageEnvelope{
		NAxis:    len(buf.Dims),
		NAxis1:   buf.Width(),
		Bitpix:   buf.Bitpix,
		DMin:     dmin,
		DMax:     dmax,
		Endian:   orderName(buf.Order),
		Encoding: "base64",
		Image:    base64.StdEncoding.EncodeToString(buf.Data),
	}
	if len(buf.Dims) > 1 {
		env.NAxis2 = buf.Dims[1]
	}
	if len(buf.Dims) > 2 {
		env.NAxis3 = buf.Dims[2]
	}
	if meta != nil {
		env.Filename = meta.Filename
		env.Head = meta.Header
	}
	return env, nil
}

// imageReply covers both payload shapes a helper can hand back: the
// envelope form above, and the GetImageData form with width/height fields
// and data as either base64 or a JSON array.
type imageReply struct {
	NAxis    int             `json:"naxis"`
	NAxis1   int             `json:"naxis1"`
	NAxis2   int             `json:"naxis2"`
	NAxis3   int             `json:"naxis3"`
	Bitpix   int             `json:"bitpix"`
	Endian   string          `json:"endian"`
	Encoding string          `json:"encoding"`
	Image    string          `json:"image"`
	Head     map[string]any  `json:"head"`
	Filename string          `json:"filename"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Header   map[string]any  `json:"header"`
	File     string          `json:"file"`
	Data     json.RawMessage `json:"data"`
}

// DecodeImage unpacks an image payload into a pixel buffer. Both the
// envelope form and the GetImageData form are accepted.
func DecodeImage(raw json.RawMessage) (*pixel.Buffer, *Meta, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == `""` {
		return nil, nil, malformedf(nil, "empty image reply")
	}
	var rep imageReply
	if err := json.Unmarshal(trimmed, &rep); err != nil {
		return nil, nil, malformedf(err, "unparseable image reply")
	}

	if rep.Image != "" {
		return decodeEnvelope(&rep)
	}
	if len(rep.Data) > 0 {
		return decodeImageData(&rep)
	}
	return nil, nil, malformedf(nil, "image reply has neither image nor data field")
}

func decodeEnvelope(rep *imageReply) (*pixel.Buffer, *Meta, error) {
	if rep.Encoding != "base64" {
		return nil, nil, malformedf(nil, "unknown image encoding %q", rep.Encoding)
	}
	order, err := orderFromName(rep.Endian)
	if err != nil {
		return nil, nil, err
	}
	var dims []int
	for _, d := range []int{rep.NAxis1, rep.NAxis2, rep.NAxis3} {
		if d > 0 {
			dims = append(dims, d)
		}
	}
	if rep.NAxis > 0 && rep.NAxis <= len(dims) {
		dims = dims[:rep.NAxis]
	}
	data, err := base64.StdEncoding.DecodeString(rep.Image)
	if err != nil {
		return nil, nil, malformedf(err, "undecodable image bytes")
	}
	buf := &pixel.Buffer{Bitpix: rep.Bitpix, Dims: dims, Order: order, Data: data}
	if err := buf.Validate(); err != nil {
		return nil, nil, &CodecError{Kind: Mismatch, Reason: "image bytes disagree with declared shape", cause: err}
	}
	return buf, &Meta{Filename: rep.Filename, Header: rep.Head}, nil
}

func decodeImageData(rep *imageReply) (*pixel.Buffer, *Meta, error) {
	if rep.Width <= 0 || rep.Height <= 0 {
		return nil, nil, malformedf(nil, "image reply missing dimensions")
	}
	es := pixel.ElemSize(rep.Bitpix)
	if es == 0 {
		return nil, nil, malformedf(nil, "unsupported bitpix %d", rep.Bitpix)
	}
	dims := []int{rep.Width, rep.Height}
	n := rep.Width * rep.Height
	meta := &Meta{Filename: rep.File, Header: rep.Header}

	var b64 string
	if err := json.Unmarshal(rep.Data, &b64); err == nil {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, nil, malformedf(err, "undecodable image bytes")
		}
		if len(data) < n*es {
			return nil, nil, mismatchf("%d image bytes for %d declared pixels", len(data), n)
		}
		// the helper can send more bytes than the image needs
		buf := &pixel.Buffer{Bitpix: rep.Bitpix, Dims: dims, Order: binary.LittleEndian, Data: data[:n*es]}
		return buf, meta, nil
	}

	vals, err := flattenNumbers(rep.Data)
	if err != nil {
		return nil, nil, err
	}
	if len(vals) < n {
		return nil, nil, mismatchf("%d array values for %d declared pixels", len(vals), n)
	}
	buf, err := pixel.New(rep.Bitpix, binary.LittleEndian, dims...)
	if err != nil {
		return nil, nil, malformedf(err, "unusable image shape")
	}
	for i := 0; i < n; i++ {
		if err := setNumber(buf, i, vals[i]); err != nil {
			return nil, nil, err
		}
	}
	return buf, meta, nil
}

// flattenNumbers walks arbitrarily nested JSON arrays of numbers in order.
func flattenNumbers(raw json.RawMessage) ([]json.Number, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformedf(err, "unparseable image array")
	}
	var out []json.Number
	var walk func(v any) error
	walk = func(v any) error {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				if err := walk(e); err != nil {
					return err
				}
			}
			return nil
		case json.Number:
			out = append(out, t)
			return nil
		}
		return malformedf(nil, "image array holds %T, want numbers", v)
	}
	if err := walk(v); err != nil {
		return nil, err
	}
	return out, nil
}

func setNumber(buf *pixel.Buffer, i int, num json.Number) error {
	if iv, err := num.Int64(); err == nil {
		buf.SetInt64(i, iv)
		return nil
	}
	fv, err := num.Float64()
	if err != nil {
		return malformedf(err, "unreadable pixel value %q", num)
	}
	buf.SetFloat64(i, fv)
	return nil
}
