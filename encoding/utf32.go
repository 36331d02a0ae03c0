package encoding

import (
	"unicode/utf8"

	texenc "golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// golang.org/x/text does not export a UTF-32 codec (it is rare enough in
// the wild that the upstream package dropped it); XML permits it, so the
// Encoding Decoder carries its own minimal transform.Transformer for the
// two byte orders the BOM table can identify.

type utf32Transform struct{ bigEndian bool }

func (t utf32Transform) Reset() {}

func (t utf32Transform) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for len(src)-nSrc >= 4 {
		b := src[nSrc : nSrc+4]
		var r rune
		if t.bigEndian {
			r = rune(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
		} else {
			r = rune(uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]))
		}
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}
		size := utf8.RuneLen(r)
		if size < 0 {
			size = 3
		}
		if len(dst)-nDst < size {
			err = transform.ErrShortDst
			return
		}
		w := utf8.EncodeRune(dst[nDst:], r)
		nDst += w
		nSrc += 4
	}
	if !atEOF && len(src)-nSrc > 0 && len(src)-nSrc < 4 {
		err = transform.ErrShortSrc
	}
	return
}

type utf32BE struct{}

func (utf32BE) NewDecoder() *texenc.Decoder {
	return &texenc.Decoder{Transformer: utf32Transform{bigEndian: true}}
}
func (utf32BE) NewEncoder() *texenc.Encoder {
	return &texenc.Encoder{Transformer: transform.Nop}
}

type utf32LE struct{}

func (utf32LE) NewDecoder() *texenc.Decoder {
	return &texenc.Decoder{Transformer: utf32Transform{bigEndian: false}}
}
func (utf32LE) NewEncoder() *texenc.Encoder {
	return &texenc.Encoder{Transformer: transform.Nop}
}
