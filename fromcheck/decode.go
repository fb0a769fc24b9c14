package fromcheck

import (
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// charsetReader converts an encoded word's bytes to UTF-8. It never fails:
// an unknown charset passes the bytes through, and DecodeHeader drops
// whatever is not valid UTF-8 afterwards.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if r, err := charset.Reader(label, input); err == nil {
		return r, nil
	}
	if enc, err := ianaindex.IANA.Encoding(strings.ToLower(label)); err == nil && enc != nil {
		return transform.NewReader(input, enc.NewDecoder()), nil
	}
	return input, nil
}

// DecodeHeader decodes the RFC 2047 encoded words in a raw header value and
// returns normalized text: valid UTF-8 in NFC form, without line breaks or
// surrounding whitespace. Undecodable bytes are dropped.
func DecodeHeader(raw string) string {
	raw = NormalizeHeader(raw)
	decoded, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		decoded = raw
	}
	decoded = strings.ToValidUTF8(decoded, "")
	decoded = strings.ReplaceAll(decoded, "\uFFFD", "")
	return NormalizeHeader(norm.NFC.String(decoded))
}

// NormalizeHeader strips carriage returns, line feeds and leading and
// trailing whitespace.
func NormalizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}
