// Package encoding implements the Encoding Decoder (ED) component: it
// turns arbitrary byte chunks into a normalized UTF-8 character stream,
// auto-detecting the source charset from a BOM or the XML declaration,
// and normalizing line endings per XML 1.0/1.1 §2.11. It never blocks:
// Feed returns whatever characters the current chunk makes available and
// asks for more only once the caller calls Feed again.
package encoding

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html/charset"
	texenc "golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// MalformedInput is returned when the byte stream cannot be decoded under
// the resolved charset. Fatal per spec §4.1/§7.
type MalformedInput struct {
	Offset int
	Err    error
}

func (e *MalformedInput) Error() string {
	return fmt.Sprintf("malformed input at byte offset %s: %v", humanize.Comma(int64(e.Offset)), e.Err)
}
func (e *MalformedInput) Unwrap() error { return e.Err }

// UnsupportedEncoding is returned when the declared charset name is not
// recognized. Fatal per spec §4.1/§7.
type UnsupportedEncoding struct {
	Name string
}

func (e *UnsupportedEncoding) Error() string {
	return fmt.Sprintf("unsupported encoding %q", e.Name)
}

// maxPrefixWindow bounds how many raw bytes we will buffer while hunting
// for a BOM / XML declaration before giving up and assuming UTF-8. It is
// generous enough for any realistic xml declaration plus a few bytes of
// leading whitespace some producers emit before it.
const maxPrefixWindow = 4096

// Decoder is the Encoding Decoder. It is not safe for concurrent use; one
// Decoder belongs to exactly one parser run, per spec §5.
type Decoder struct {
	xml11 bool

	resolved    bool
	charsetName string
	enc         texenc.Encoding      // nil means identity (already UTF-8)
	xform       transform.Transformer // live transformer once resolved

	prefix     bytes.Buffer // raw bytes buffered until charset is resolved
	pendingRaw []byte       // undecoded tail of the previous chunk (a split multi-byte character)

	version    string
	standalone string // "yes", "no", or "" if absent

	pendingCR bool // a trailing CR was held back at the end of the previous Feed
}

// New returns a fresh Decoder. xml11 switches line-end normalization to
// also fold NEL (U+0085) and LS (U+2028) into LF, per XML 1.1 §2.11.
func New(xml11 bool) *Decoder {
	return &Decoder{xml11: xml11}
}

// Version reports the XML version sniffed from the declaration, "1.0" if
// none was present.
func (d *Decoder) Version() string {
	if d.version == "" {
		return "1.0"
	}
	return d.version
}

// Standalone reports the standalone pseudo-attribute value ("yes", "no")
// or "" if the declaration omitted it.
func (d *Decoder) Standalone() string { return d.standalone }

// Charset reports the resolved charset name. Valid only once Feed has
// returned resolved characters at least once.
func (d *Decoder) Charset() string {
	if d.charsetName == "" {
		return "UTF-8"
	}
	return d.charsetName
}

// Reset returns the decoder to its initial, pre-detection state.
func (d *Decoder) Reset() {
	*d = Decoder{xml11: d.xml11}
}

// Feed accepts the next byte chunk and returns the newly available,
// line-end-normalized UTF-8 text. It never blocks on further input: if
// the chunk ends mid-rune, mid-BOM, or mid-declaration, the unconsumed
// bytes are held internally and folded into the next Feed call.
func (d *Decoder) Feed(chunk []byte) (string, error) {
	if !d.resolved {
		d.prefix.Write(chunk)
		buffered, err := d.tryResolve()
		if err != nil {
			return "", err
		}
		if !d.resolved {
			return "", nil // still hunting for BOM/declaration
		}
		return d.decode(buffered)
	}
	return d.decode(chunk)
}

// tryResolve attempts BOM detection, then `<?xml ...?>` signature
// sniffing, then (once a full declaration or enough of a first line is
// available) an encoding="..." pseudo-attribute override. It returns the
// raw bytes that should now be decoded under the resolved charset once
// d.resolved becomes true.
func (d *Decoder) tryResolve() ([]byte, error) {
	buf := d.prefix.Bytes()

	if enc, n, name, ok := detectBOM(buf); ok {
		d.fix(name, enc)
		rest := append([]byte(nil), buf[n:]...)
		d.prefix.Reset()
		d.scanDeclarationFor(rest)
		return rest, nil
	}

	if len(buf) < 4 {
		if len(buf) <= maxPrefixWindow {
			return nil, nil // need more bytes to sniff the 4-byte signature
		}
		d.fix("UTF-8", nil)
		rest := append([]byte(nil), buf...)
		d.prefix.Reset()
		return rest, nil
	}

	tentative, tentativeName := sniffSignature(buf)

	declEnd := bytes.Index(buf, []byte("?>"))
	if declEnd < 0 {
		trimmed := bytes.TrimLeft(buf, " \t\r\n")
		hasDecl := bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, xmlDeclSignatureUTF16BE) || bytes.HasPrefix(trimmed, xmlDeclSignatureUTF16LE)
		if !hasDecl || len(buf) > maxPrefixWindow {
			d.fix(tentativeName, tentative)
			rest := append([]byte(nil), buf...)
			d.prefix.Reset()
			return rest, nil
		}
		return nil, nil // declaration still arriving
	}

	declBytes := buf[:declEnd+2]
	declText, err := transformAll(tentative, declBytes)
	if err != nil {
		return nil, &MalformedInput{Err: err}
	}
	if name, ok := extractDeclaredEncoding(declText); ok {
		enc, canonical := charset.Lookup(name)
		if enc == nil {
			return nil, &UnsupportedEncoding{Name: name}
		}
		d.fix(strings.ToUpper(canonical), enc)
	} else {
		d.fix(tentativeName, tentative)
	}
	d.version, d.standalone = extractVersionStandalone(declText)

	rest := append([]byte(nil), buf...)
	d.prefix.Reset()
	return rest, nil
}

// scanDeclarationFor records version/standalone when a BOM already fixed
// the charset (the BOM is authoritative over any encoding="..." override).
func (d *Decoder) scanDeclarationFor(buf []byte) {
	declEnd := bytes.Index(buf, []byte("?>"))
	if declEnd < 0 {
		return
	}
	text, err := transformAll(d.enc, buf[:declEnd+2])
	if err != nil {
		return
	}
	d.version, d.standalone = extractVersionStandalone(text)
}

func (d *Decoder) fix(name string, enc texenc.Encoding) {
	d.resolved = true
	d.charsetName = name
	d.enc = enc
	if enc != nil {
		d.xform = enc.NewDecoder()
	}
}

// decode runs chunk through the resolved transformer (if any) and then
// through line-end normalization.
func (d *Decoder) decode(chunk []byte) (string, error) {
	var raw []byte
	if d.xform == nil {
		raw = chunk
	} else {
		src := append(d.pendingRaw, chunk...)
		dst := make([]byte, 4*len(src)+4)
		nDst, nSrc, err := d.xform.Transform(dst, src, false)
		if err != nil && err != transform.ErrShortSrc {
			return "", &MalformedInput{Err: err}
		}
		d.pendingRaw = append([]byte(nil), src[nSrc:]...)
		raw = dst[:nDst]
	}
	return normalizeLineEndings(raw, d.xml11, &d.pendingCR), nil
}

// Close signals end of input and returns any final character the
// decoder was holding back waiting to see whether it started a CRLF
// pair (spec §4.1, scenario 2 in spec §8: a lone trailing CR with no
// more bytes coming still normalizes to LF).
func (d *Decoder) Close() string {
	if d.pendingCR {
		d.pendingCR = false
		return "\n"
	}
	return ""
}

func transformAll(enc texenc.Encoding, b []byte) (string, error) {
	if enc == nil {
		return string(b), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
