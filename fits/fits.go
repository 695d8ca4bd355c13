// Package fits reads and writes FITS files: ordered 80-character header
// cards grouped into header-data units, with big-endian data blocks, all
// padded to 2880-byte boundaries.
//
// Image units (the primary unit and IMAGE extensions) expose their pixels
// as a pixel.Buffer and have their structural cards (SIMPLE, XTENSION,
// BITPIX, NAXISn, PCOUNT, GCOUNT, EXTEND) derived from the buffer on write,
// so a document can never describe data it does not carry. Unsigned 16-bit
// data uses the standard BZERO=32768 convention on disk. Other extension
// types (tables) are carried verbatim: their headers are kept complete and
// their data travels as a flat byte block.
package fits

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gojs9/gojs9/pixel"
)

const cardsPerBlock = blockLen / cardLen

// ErrShortData marks input that ends before the data length its header
// declares.
var ErrShortData = errors.New("truncated data")

var (
	endImage   = "END" + strings.Repeat(" ", cardLen-3)
	blankImage = strings.Repeat(" ", cardLen)
)

// Unit is one header-data unit.
type Unit struct {
	Header Header
	Data   *pixel.Buffer
}

// Document is an ordered list of header-data units. Units[0] is the primary
// unit.
type Document struct {
	Units []Unit
}

// NewImage builds a single-unit document around a pixel buffer.
func NewImage(buf *pixel.Buffer) *Document {
	return &Document{Units: []Unit{{Data: buf}}}
}

// ImageUnit returns the first image unit that carries data.
func (d *Document) ImageUnit() (*Unit, bool) {
	for i := range d.Units {
		u := &d.Units[i]
		if u.Data == nil {
			continue
		}
		if xt, ok := u.Header.Str("XTENSION"); ok && strings.TrimSpace(xt) != "IMAGE" {
			continue // table carried verbatim
		}
		return u, true
	}
	return nil, false
}

// Image returns the pixel buffer of the first image unit that has one.
func (d *Document) Image() (*pixel.Buffer, bool) {
	u, ok := d.ImageUnit()
	if !ok {
		return nil, false
	}
	return u.Data, true
}

func isImageExt(h *Header) bool {
	xt, ok := h.Str("XTENSION")
	return ok && strings.TrimSpace(xt) == "IMAGE"
}

// Read parses a FITS file.
func Read(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	doc := &Document{}
	off := 0
	for off < len(data) {
		unit, n, err := readUnit(data[off:], off == 0)
		if err != nil {
			return nil, err
		}
		doc.Units = append(doc.Units, *unit)
		off += n
	}
	return doc, nil
}

// Write serializes the document.
func (d *Document) Write() ([]byte, error) {
	if len(d.Units) == 0 {
		return nil, fmt.Errorf("document has no units")
	}
	var out bytes.Buffer
	for i := range d.Units {
		if err := writeUnit(&out, &d.Units[i], i == 0, len(d.Units) > 1); err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
	}
	return out.Bytes(), nil
}

func readUnit(data []byte, primary bool) (*Unit, int, error) {
	var cards []Card
	off := 0
	foundEnd := false
	for !foundEnd {
		if off+blockLen > len(data) {
			return nil, 0, fmt.Errorf("truncated header: need %d bytes, have %d", off+blockLen, len(data))
		}
		block := data[off : off+blockLen]
		for i := 0; i < cardsPerBlock; i++ {
			img := string(block[i*cardLen : (i+1)*cardLen])
			if strings.TrimRight(img[:keywordLen], " ") == "END" {
				foundEnd = true
				break
			}
			cards = append(cards, parseCard(img))
		}
		off += blockLen
	}

	h := Header{Cards: cards}
	if primary {
		if v, ok := h.Bool("SIMPLE"); !ok || !v {
			return nil, 0, fmt.Errorf("not a FITS file: missing SIMPLE card")
		}
	} else if _, ok := h.Str("XTENSION"); !ok {
		return nil, 0, fmt.Errorf("extension missing XTENSION card")
	}

	naxis, ok := h.Int("NAXIS")
	if !ok || naxis < 0 {
		return nil, 0, fmt.Errorf("missing NAXIS card")
	}
	dims := make([]int, 0, naxis)
	for i := 1; i <= int(naxis); i++ {
		v, ok := h.Int(fmt.Sprintf("NAXIS%d", i))
		if !ok || v < 0 {
			return nil, 0, fmt.Errorf("missing NAXIS%d card", i)
		}
		dims = append(dims, int(v))
	}
	pcount, _ := h.Int("PCOUNT")
	gcount, ok := h.Int("GCOUNT")
	if !ok {
		gcount = 1
	}

	dataBytes := 0
	bitpix := int64(8)
	if naxis > 0 {
		bitpix, ok = h.Int("BITPIX")
		if !ok {
			return nil, 0, fmt.Errorf("missing BITPIX card")
		}
		es := pixel.ElemSize(int(bitpix))
		if es == 0 {
			return nil, 0, fmt.Errorf("unsupported BITPIX %d", bitpix)
		}
		n := 1
		for _, d := range dims {
			n *= d
		}
		dataBytes = es * int(gcount) * (int(pcount) + n)
	}

	if off+dataBytes > len(data) {
		return nil, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortData, off+dataBytes, len(data))
	}
	raw := make([]byte, dataBytes)
	copy(raw, data[off:off+dataBytes])
	consumed := off + (dataBytes+blockLen-1)/blockLen*blockLen
	if consumed > len(data) {
		// tolerate an unpadded final block
		consumed = len(data)
	}

	if !primary && !isImageExt(&h) {
		var buf *pixel.Buffer
		if dataBytes > 0 {
			buf = &pixel.Buffer{Bitpix: pixel.Uint8, Dims: []int{dataBytes}, Order: binary.BigEndian, Data: raw}
		}
		return &Unit{Header: h, Data: buf}, consumed, nil
	}

	var buf *pixel.Buffer
	if dataBytes > 0 {
		buf = &pixel.Buffer{Bitpix: int(bitpix), Dims: dims, Order: binary.BigEndian, Data: raw}
		if bz, ok := h.Float("BZERO"); ok && int(bitpix) == pixel.Int16 && bz == 32768 {
			if bs, ok := h.Float("BSCALE"); !ok || bs == 1 {
				buf = shiftUnsigned(buf, pixel.Uint16, 32768)
				h.Remove("BZERO")
				h.Remove("BSCALE")
			}
		}
	}
	stripStructural(&h)
	return &Unit{Header: h, Data: buf}, consumed, nil
}

func writeUnit(out *bytes.Buffer, u *Unit, primary, hasExtensions bool) error {
	if !primary && !isImageExt(&u.Header) {
		if _, ok := u.Header.Str("XTENSION"); ok {
			return writeVerbatim(out, u)
		}
	}

	buf := u.Data
	if buf != nil {
		if err := buf.Validate(); err != nil {
			return fmt.Errorf("image data: %w", err)
		}
		if buf.Order != binary.BigEndian {
			buf = buf.Reorder(binary.BigEndian)
		}
	}
	unsigned := buf != nil && buf.Bitpix == pixel.Uint16
	if unsigned {
		buf = shiftUnsigned(buf, pixel.Int16, -32768)
	}

	var cards []Card
	if primary {
		cards = append(cards, Card{Name: "SIMPLE", Value: true, Comment: "conforms to FITS standard"})
	} else {
		cards = append(cards, Card{Name: "XTENSION", Value: "IMAGE", Comment: "Image extension"})
	}
	bitpix := 8
	var dims []int
	if buf != nil {
		bitpix = buf.Bitpix
		dims = buf.Dims
	}
	cards = append(cards,
		Card{Name: "BITPIX", Value: bitpix, Comment: "array data type"},
		Card{Name: "NAXIS", Value: len(dims), Comment: "number of array dimensions"},
	)
	for i, d := range dims {
		cards = append(cards, Card{Name: fmt.Sprintf("NAXIS%d", i+1), Value: d})
	}
	if !primary {
		cards = append(cards,
			Card{Name: "PCOUNT", Value: 0, Comment: "number of parameters"},
			Card{Name: "GCOUNT", Value: 1, Comment: "number of groups"},
		)
	} else if hasExtensions {
		cards = append(cards, Card{Name: "EXTEND", Value: true})
	}
	if unsigned {
		cards = append(cards,
			Card{Name: "BSCALE", Value: 1},
			Card{Name: "BZERO", Value: 32768},
		)
	}
	for _, c := range u.Header.Cards {
		if isStructural(c.Name) {
			continue
		}
		if unsigned && (c.Name == "BZERO" || c.Name == "BSCALE") {
			continue
		}
		cards = append(cards, c)
	}

	if err := writeCards(out, cards); err != nil {
		return err
	}
	if buf != nil {
		writeData(out, buf.Data)
	}
	return nil
}

func writeVerbatim(out *bytes.Buffer, u *Unit) error {
	if err := writeCards(out, u.Header.Cards); err != nil {
		return err
	}
	if u.Data != nil {
		writeData(out, u.Data.Data)
	}
	return nil
}

func writeCards(out *bytes.Buffer, cards []Card) error {
	n := 0
	for _, c := range cards {
		img, err := c.image()
		if err != nil {
			return err
		}
		out.WriteString(img)
		n++
	}
	out.WriteString(endImage)
	n++
	for n%cardsPerBlock != 0 {
		out.WriteString(blankImage)
		n++
	}
	return nil
}

func writeData(out *bytes.Buffer, data []byte) {
	out.Write(data)
	if rem := len(data) % blockLen; rem != 0 {
		out.Write(make([]byte, blockLen-rem))
	}
}

func isStructural(name string) bool {
	switch name {
	case "SIMPLE", "XTENSION", "BITPIX", "EXTEND", "PCOUNT", "GCOUNT", "END":
		return true
	}
	return strings.HasPrefix(name, "NAXIS")
}

func stripStructural(h *Header) {
	out := h.Cards[:0]
	for _, c := range h.Cards {
		if !isStructural(c.Name) {
			out = append(out, c)
		}
	}
	h.Cards = out
}

// shiftUnsigned re-types 16-bit data between the unsigned in-memory form and
// the signed on-disk form of the BZERO=32768 convention.
func shiftUnsigned(buf *pixel.Buffer, bitpix int, offset int64) *pixel.Buffer {
	out := &pixel.Buffer{
		Bitpix: bitpix,
		Dims:   append([]int(nil), buf.Dims...),
		Order:  buf.Order,
		Data:   make([]byte, len(buf.Data)),
	}
	for i := 0; i < buf.Len(); i++ {
		out.SetInt64(i, buf.Int64(i)+offset)
	}
	return out
}
