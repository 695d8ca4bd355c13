// Package pixel holds n-dimensional blocks of image pixels in the numeric
// formats that FITS and JS9 understand, with explicit byte order.
package pixel

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FITS bitpix codes for the supported element types. Positive codes are
// integers, negative codes are IEEE floats. Uint16 is the JS9 extension for
// unsigned 16-bit data.
const (
	Uint8   = 8
	Int16   = 16
	Int32   = 32
	Int64   = 64
	Float32 = -32
	Float64 = -64
	Uint16  = -16
)

// ElemSize returns the byte size of one element with the given bitpix code,
// or 0 if the code is not supported.
func ElemSize(bitpix int) int {
	switch bitpix {
	case Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

func isFloat(bitpix int) bool {
	return bitpix == Float32 || bitpix == Float64
}

// Buffer is an n-dimensional block of pixels. Dims is in FITS axis order, so
// Dims[0] is the width (the fastest-varying axis). The byte order of Data is
// always carried explicitly: FITS data blocks are big-endian, JS9
// typed-array payloads are little-endian.
type Buffer struct {
	Bitpix int
	Dims   []int
	Order  binary.ByteOrder
	Data   []byte
}

// New allocates a zeroed buffer with the given element type and dimensions.
func New(bitpix int, order binary.ByteOrder, dims ...int) (*Buffer, error) {
	b := &Buffer{
		Bitpix: bitpix,
		Dims:   append([]int(nil), dims...),
		Order:  order,
	}
	es := ElemSize(bitpix)
	if es == 0 {
		return nil, fmt.Errorf("unsupported bitpix %d", bitpix)
	}
	n := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("invalid dimension %d", d)
		}
		n *= d
	}
	b.Data = make([]byte, n*es)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// FromFloat64s allocates a buffer with the given element type and dimensions
// and fills it from vals. Integer element types truncate fractional values.
func FromFloat64s(bitpix int, order binary.ByteOrder, vals []float64, dims ...int) (*Buffer, error) {
	b, err := New(bitpix, order, dims...)
	if err != nil {
		return nil, err
	}
	if len(vals) != b.Len() {
		return nil, fmt.Errorf("got %d values for %d elements", len(vals), b.Len())
	}
	for i, v := range vals {
		b.SetFloat64(i, v)
	}
	return b, nil
}

// Validate checks that the element type is supported, the dimensions are
// sane, and the data length matches them exactly.
func (b *Buffer) Validate() error {
	es := ElemSize(b.Bitpix)
	if es == 0 {
		return fmt.Errorf("unsupported bitpix %d", b.Bitpix)
	}
	if b.Order == nil {
		return fmt.Errorf("byte order not set")
	}
	if len(b.Dims) == 0 {
		return fmt.Errorf("buffer has no dimensions")
	}
	n := 1
	for _, d := range b.Dims {
		if d <= 0 {
			return fmt.Errorf("invalid dimension %d", d)
		}
		n *= d
	}
	if len(b.Data) != n*es {
		return fmt.Errorf("data length %d does not match %d elements of %d bytes", len(b.Data), n, es)
	}
	return nil
}

// Len returns the number of elements.
func (b *Buffer) Len() int {
	if len(b.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range b.Dims {
		n *= d
	}
	return n
}

// Width returns the length of the first (fastest-varying) axis.
func (b *Buffer) Width() int {
	if len(b.Dims) < 1 {
		return 0
	}
	return b.Dims[0]
}

// Height returns the length of the second axis, or 1 for 1-dimensional data.
func (b *Buffer) Height() int {
	if len(b.Dims) < 2 {
		return 1
	}
	return b.Dims[1]
}

// Int64 returns element i as an int64. Float elements truncate.
func (b *Buffer) Int64(i int) int64 {
	off := i * ElemSize(b.Bitpix)
	switch b.Bitpix {
	case Uint8:
		return int64(b.Data[off])
	case Int16:
		return int64(int16(b.Order.Uint16(b.Data[off:])))
	case Uint16:
		return int64(b.Order.Uint16(b.Data[off:]))
	case Int32:
		return int64(int32(b.Order.Uint32(b.Data[off:])))
	case Int64:
		return int64(b.Order.Uint64(b.Data[off:]))
	case Float32:
		return int64(math.Float32frombits(b.Order.Uint32(b.Data[off:])))
	case Float64:
		return int64(math.Float64frombits(b.Order.Uint64(b.Data[off:])))
	}
	return 0
}

// SetInt64 stores v as element i.
func (b *Buffer) SetInt64(i int, v int64) {
	off := i * ElemSize(b.Bitpix)
	switch b.Bitpix {
	case Uint8:
		b.Data[off] = byte(v)
	case Int16:
		b.Order.PutUint16(b.Data[off:], uint16(int16(v)))
	case Uint16:
		b.Order.PutUint16(b.Data[off:], uint16(v))
	case Int32:
		b.Order.PutUint32(b.Data[off:], uint32(int32(v)))
	case Int64:
		b.Order.PutUint64(b.Data[off:], uint64(v))
	case Float32:
		b.Order.PutUint32(b.Data[off:], math.Float32bits(float32(v)))
	case Float64:
		b.Order.PutUint64(b.Data[off:], math.Float64bits(float64(v)))
	}
}

// Float64 returns element i as a float64.
func (b *Buffer) Float64(i int) float64 {
	off := i * ElemSize(b.Bitpix)
	switch b.Bitpix {
	case Uint8:
		return float64(b.Data[off])
	case Int16:
		return float64(int16(b.Order.Uint16(b.Data[off:])))
	case Uint16:
		return float64(b.Order.Uint16(b.Data[off:]))
	case Int32:
		return float64(int32(b.Order.Uint32(b.Data[off:])))
	case Int64:
		return float64(int64(b.Order.Uint64(b.Data[off:])))
	case Float32:
		return float64(math.Float32frombits(b.Order.Uint32(b.Data[off:])))
	case Float64:
		return math.Float64frombits(b.Order.Uint64(b.Data[off:]))
	}
	return 0
}

// SetFloat64 stores v as element i. Integer element types truncate.
func (b *Buffer) SetFloat64(i int, v float64) {
	if !isFloat(b.Bitpix) {
		b.SetInt64(i, int64(v))
		return
	}
	off := i * ElemSize(b.Bitpix)
	switch b.Bitpix {
	case Float32:
		b.Order.PutUint32(b.Data[off:], math.Float32bits(float32(v)))
	case Float64:
		b.Order.PutUint64(b.Data[off:], math.Float64bits(v))
	}
}

// MinMax scans the buffer and returns the smallest and largest element
// values, skipping NaNs. An empty or all-NaN buffer returns (0, 0).
func (b *Buffer) MinMax() (float64, float64) {
	min := math.Inf(1)
	max := math.Inf(-1)
	for i := 0; i < b.Len(); i++ {
		v := b.Float64(i)
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min > max {
		return 0, 0
	}
	return min, max
}

// Convert returns a copy of the buffer with elements converted to the given
// bitpix code, in the same byte order. Integer-to-integer conversions go
// through int64 so 64-bit values survive; conversions involving floats go
// through float64, and integer targets truncate.
func (b *Buffer) Convert(bitpix int) (*Buffer, error) {
	out, err := New(bitpix, b.Order, b.Dims...)
	if err != nil {
		return nil, err
	}
	if !isFloat(b.Bitpix) && !isFloat(bitpix) {
		for i := 0; i < b.Len(); i++ {
			out.SetInt64(i, b.Int64(i))
		}
		return out, nil
	}
	for i := 0; i < b.Len(); i++ {
		out.SetFloat64(i, b.Float64(i))
	}
	return out, nil
}

// Reorder returns a copy of the buffer with Data re-encoded in the given
// byte order.
func (b *Buffer) Reorder(order binary.ByteOrder) *Buffer {
	out := &Buffer{
		Bitpix: b.Bitpix,
		Dims:   append([]int(nil), b.Dims...),
		Order:  order,
		Data:   make([]byte, len(b.Data)),
	}
	es := ElemSize(b.Bitpix)
	if es <= 1 || b.Order == order {
		copy(out.Data, b.Data)
		return out
	}
	for off := 0; off+es <= len(b.Data); off += es {
		switch es {
		case 2:
			order.PutUint16(out.Data[off:], b.Order.Uint16(b.Data[off:]))
		case 4:
			order.PutUint32(out.Data[off:], b.Order.Uint32(b.Data[off:]))
		case 8:
			order.PutUint64(out.Data[off:], b.Order.Uint64(b.Data[off:]))
		}
	}
	return out
}
