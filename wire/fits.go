package wire

import (
	"encoding/base64"
	"errors"

	"github.com/gojs9/gojs9/fits"
)

// EncodeFITS serializes the document and base64s the file bytes, the form
// Load accepts for in-memory FITS files. The same document always encodes
// to the same string.
func EncodeFITS(doc *fits.Document) (string, error) {
	if doc == nil {
		return "", malformedf(nil, "nil document")
	}
	b, err := doc.Write()
	if err != nil {
		return "", &CodecError{Kind: Mismatch, Reason: "unwritable document", cause: err}
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeFITS reverses EncodeFITS.
func DecodeFITS(s string) (*fits.Document, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, malformedf(err, "undecodable FITS bytes")
	}
	doc, err := fits.Read(b)
	if err != nil {
		if errors.Is(err, fits.ErrShortData) {
			return nil, &CodecError{Kind: Mismatch, Reason: "FITS data disagrees with its header", cause: err}
		}
		return nil, malformedf(err, "unparseable FITS file")
	}
	return doc, nil
}
