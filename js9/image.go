package js9

import (
	"context"

	"github.com/gojs9/gojs9/fits"
	"github.com/gojs9/gojs9/pixel"
	"github.com/gojs9/gojs9/wire"
)

// ImageOpts carries optional settings for SetImage.
type ImageOpts struct {
	// Filename becomes the image id in the display.
	Filename string
	// Header cards to attach to the image (FITS keyword to value).
	Header map[string]any
}

// SetImage loads a pixel buffer into the display as a new image. The
// buffer is validated and encoded locally, with its data range computed
// for the display's scaling; buffers with an unsupported bitpix fail here,
// and the caller converts first (pixel.Buffer.Convert).
func (c *Client) SetImage(ctx context.Context, buf *pixel.Buffer, opts *ImageOpts) error {
	var meta *wire.Meta
	if opts != nil {
		meta = &wire.Meta{Filename: opts.Filename, Header: opts.Header}
	}
	env, err := wire.EncodeImage(buf, meta)
	if err != nil {
		return &CallError{Op: "Load", Err: err}
	}
	_, err = c.Invoke(ctx, "Load", env)
	return err
}

// GetImage retrieves the current image's pixels as a buffer, in the
// retrieval mode the client is configured with. An empty reply means the
// image was too large for the helper to send.
func (c *Client) GetImage(ctx context.Context) (*pixel.Buffer, *wire.Meta, error) {
	res, err := c.Invoke(ctx, "GetImageData", c.retrieveAs)
	if err != nil {
		return nil, nil, err
	}
	buf, meta, err := wire.DecodeImage(res.raw)
	if err != nil {
		return nil, nil, &CallError{Op: "GetImageData", Err: err}
	}
	return buf, meta, nil
}

// SetFITS loads a FITS document into the display as a new image. The
// document travels base64-encoded; name, when given, becomes the image id.
func (c *Client) SetFITS(ctx context.Context, doc *fits.Document, name string) error {
	enc, err := wire.EncodeFITS(doc)
	if err != nil {
		return &CallError{Op: "Load", Err: err}
	}
	args := []any{enc}
	if name != "" {
		args = append(args, map[string]any{"filename": name})
	}
	_, err = c.Invoke(ctx, "Load", args...)
	return err
}

// GetFITS retrieves the current image as a one-unit FITS document, with
// the header cards the helper sent along.
func (c *Client) GetFITS(ctx context.Context) (*fits.Document, error) {
	buf, meta, err := c.GetImage(ctx)
	if err != nil {
		return nil, err
	}
	doc := fits.NewImage(buf)
	if meta != nil && len(meta.Header) > 0 {
		h, err := fits.HeaderFromMap(meta.Header)
		if err != nil {
			return nil, &CallError{Op: "GetImageData", Err: err}
		}
		doc.Units[0].Header = h
	}
	return doc, nil
}
