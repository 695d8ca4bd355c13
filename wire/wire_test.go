package wire

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gojs9/gojs9/fits"
	"github.com/gojs9/gojs9/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	return ce.Kind
}

func TestImageEnvelopeRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		order  binary.ByteOrder
		bitpix int
	}{
		{name: "little endian float32", order: binary.LittleEndian, bitpix: pixel.Float32},
		{name: "big endian float32", order: binary.BigEndian, bitpix: pixel.Float32},
		{name: "little endian int16", order: binary.LittleEndian, bitpix: pixel.Int16},
		{name: "big endian uint16", order: binary.BigEndian, bitpix: pixel.Uint16},
	}
	vals := []float64{3, 1, 4, 1, 5, 9}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf, err := pixel.FromFloat64s(c.bitpix, c.order, vals, 3, 2)
			require.NoError(t, err)

			env, err := EncodeImage(buf, &Meta{Filename: "ramp.fits", Header: map[string]any{"CRVAL1": 1.5}})
			require.NoError(t, err)
			assert.Equal(t, 2, env.NAxis)
			assert.Equal(t, 3, env.NAxis1)
			assert.Equal(t, 2, env.NAxis2)
			assert.Equal(t, 1.0, env.DMin)
			assert.Equal(t, 9.0, env.DMax)
			assert.Equal(t, "base64", env.Encoding)

			raw, err := json.Marshal(env)
			require.NoError(t, err)
			got, meta, err := DecodeImage(raw)
			require.NoError(t, err)
			assert.Equal(t, buf.Bitpix, got.Bitpix)
			assert.Equal(t, buf.Dims, got.Dims)
			assert.Equal(t, buf.Order, got.Order)
			assert.Equal(t, buf.Data, got.Data)
			assert.Equal(t, "ramp.fits", meta.Filename)
			assert.Equal(t, map[string]any{"CRVAL1": 1.5}, meta.Header)
		})
	}
}

func TestEncodeImageErrors(t *testing.T) {
	t.Run("nil buffer", func(t *testing.T) {
		_, err := EncodeImage(nil, nil)
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("inconsistent buffer", func(t *testing.T) {
		buf := &pixel.Buffer{Bitpix: pixel.Int16, Dims: []int{4}, Order: binary.LittleEndian, Data: make([]byte, 3)}
		_, err := EncodeImage(buf, nil)
		assert.Equal(t, Mismatch, kindOf(t, err))
	})

	t.Run("too many axes", func(t *testing.T) {
		buf, err := pixel.New(pixel.Uint8, binary.LittleEndian, 2, 2, 2, 2)
		require.NoError(t, err)
		_, err = EncodeImage(buf, nil)
		assert.Equal(t, Mismatch, kindOf(t, err))
	})
}

func TestDecodeImageData(t *testing.T) {
	buf, err := pixel.FromFloat64s(pixel.Int16, binary.LittleEndian, []float64{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)

	t.Run("base64 data", func(t *testing.T) {
		raw, err := json.Marshal(map[string]any{
			"width": 3, "height": 2, "bitpix": 16,
			"data":   base64.StdEncoding.EncodeToString(buf.Data),
			"header": map[string]any{"OBJECT": "m13"},
			"file":   "m13.fits",
		})
		require.NoError(t, err)
		got, meta, err := DecodeImage(raw)
		require.NoError(t, err)
		assert.Equal(t, buf.Data, got.Data)
		assert.Equal(t, []int{3, 2}, got.Dims)
		assert.Equal(t, "m13.fits", meta.Filename)
		assert.Equal(t, "m13", meta.Header["OBJECT"])
	})

	t.Run("nested array data", func(t *testing.T) {
		raw := []byte(`{"width":3,"height":2,"bitpix":16,"data":[[1,2,3],[4,5,6]]}`)
		got, _, err := DecodeImage(raw)
		require.NoError(t, err)
		assert.Equal(t, buf.Data, got.Data)
	})

	t.Run("flat array data", func(t *testing.T) {
		raw := []byte(`{"width":3,"height":2,"bitpix":-64,"data":[0.5,1,1.5,2,2.5,3]}`)
		got, _, err := DecodeImage(raw)
		require.NoError(t, err)
		assert.Equal(t, 0.5, got.Float64(0))
		assert.Equal(t, 3.0, got.Float64(5))
	})

	t.Run("short base64 is a mismatch", func(t *testing.T) {
		raw, err := json.Marshal(map[string]any{
			"width": 3, "height": 2, "bitpix": 16,
			"data": base64.StdEncoding.EncodeToString(buf.Data[:4]),
		})
		require.NoError(t, err)
		_, _, err = DecodeImage(raw)
		assert.Equal(t, Mismatch, kindOf(t, err))
	})

	t.Run("short array is a mismatch", func(t *testing.T) {
		raw := []byte(`{"width":3,"height":2,"bitpix":16,"data":[1,2,3]}`)
		_, _, err := DecodeImage(raw)
		assert.Equal(t, Mismatch, kindOf(t, err))
	})

	t.Run("bad base64 is malformed", func(t *testing.T) {
		raw := []byte(`{"width":3,"height":2,"bitpix":16,"data":"_not_base64_"}`)
		_, _, err := DecodeImage(raw)
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("non-numeric array is malformed", func(t *testing.T) {
		raw := []byte(`{"width":1,"height":1,"bitpix":16,"data":["a"]}`)
		_, _, err := DecodeImage(raw)
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("empty reply is malformed", func(t *testing.T) {
		_, _, err := DecodeImage(json.RawMessage(`""`))
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("unparseable reply is malformed", func(t *testing.T) {
		_, _, err := DecodeImage(json.RawMessage(`{`))
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("unknown endian is malformed", func(t *testing.T) {
		raw := []byte(`{"naxis":1,"naxis1":1,"bitpix":8,"encoding":"base64","image":"AA==","endian":"middle"}`)
		_, _, err := DecodeImage(raw)
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("shape disagreement is a mismatch", func(t *testing.T) {
		raw := []byte(`{"naxis":2,"naxis1":4,"naxis2":4,"bitpix":8,"encoding":"base64","image":"AAAA"}`)
		_, _, err := DecodeImage(raw)
		assert.Equal(t, Mismatch, kindOf(t, err))
	})
}

func TestFITSEnvelope(t *testing.T) {
	buf, err := pixel.FromFloat64s(pixel.Float32, binary.BigEndian, []float64{0, 1, 2, 3, 4, 5}, 3, 2)
	require.NoError(t, err)
	doc := fits.NewImage(buf)
	doc.Units[0].Header.Append("OBJECT", "ramp", "")

	s, err := EncodeFITS(doc)
	require.NoError(t, err)
	s2, err := EncodeFITS(doc)
	require.NoError(t, err)
	assert.Equal(t, s, s2)

	got, err := DecodeFITS(s)
	require.NoError(t, err)
	img, ok := got.Image()
	require.True(t, ok)
	assert.Equal(t, buf.Data, img.Data)
	name, _ := got.Units[0].Header.Str("OBJECT")
	assert.Equal(t, "ramp", name)

	t.Run("bad base64 is malformed", func(t *testing.T) {
		_, err := DecodeFITS("_not_base64_")
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("garbage bytes are malformed", func(t *testing.T) {
		_, err := DecodeFITS(base64.StdEncoding.EncodeToString([]byte("hello world")))
		assert.Equal(t, Malformed, kindOf(t, err))
	})

	t.Run("chopped data is a mismatch", func(t *testing.T) {
		b, err := doc.Write()
		require.NoError(t, err)
		_, err = DecodeFITS(base64.StdEncoding.EncodeToString(b[:2890]))
		require.Error(t, err)
		assert.Equal(t, Mismatch, kindOf(t, err))
		var ce *CodecError
		require.ErrorAs(t, err, &ce)
		assert.True(t, errors.Is(ce, fits.ErrShortData))
	})
}
