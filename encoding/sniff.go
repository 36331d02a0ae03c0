package encoding

import (
	"regexp"
	"strings"

	texenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

var (
	xmlDeclSignatureUTF16BE = []byte{0x00, '<', 0x00, '?', 0x00, 'x', 0x00, 'm'}
	xmlDeclSignatureUTF16LE = []byte{'<', 0x00, '?', 0x00, 'x', 0x00, 'm', 0x00}
)

// detectBOM inspects the leading bytes of buf for a byte-order mark. It
// returns the resolved encoding, the number of BOM bytes to consume, the
// canonical charset name, and whether a BOM was found at all.
func detectBOM(buf []byte) (enc texenc.Encoding, n int, name string, ok bool) {
	switch {
	case len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF:
		return nil, 3, "UTF-8", true
	case len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF:
		return utf32BE{}, 4, "UTF-32BE", true
	case len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00:
		return utf32LE{}, 4, "UTF-32LE", true
	case len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), 2, "UTF-16BE", true
	case len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), 2, "UTF-16LE", true
	}
	return nil, 0, "", false
}

// sniffSignature inspects the first four bytes for the `<?xml` signature
// encoded under a 16-bit charset, per XML 1.0 Appendix F. Falls back to
// UTF-8 (the ASCII-compatible default) when no wide signature matches.
func sniffSignature(buf []byte) (texenc.Encoding, string) {
	if len(buf) >= 4 {
		switch {
		case buf[0] == 0x00 && buf[2] == 0x00:
			return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), "UTF-16BE"
		case buf[1] == 0x00 && buf[3] == 0x00:
			return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), "UTF-16LE"
		}
	}
	return nil, "UTF-8"
}

var encodingAttrRE = regexp.MustCompile(`encoding\s*=\s*["']([^"']+)["']`)
var versionAttrRE = regexp.MustCompile(`version\s*=\s*["']([^"']+)["']`)
var standaloneAttrRE = regexp.MustCompile(`standalone\s*=\s*["']([^"']+)["']`)

// extractDeclaredEncoding pulls the encoding="..." pseudo-attribute out of
// a decoded `<?xml ... ?>` declaration, if present.
func extractDeclaredEncoding(decl string) (string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(decl), "<?xml") {
		return "", false
	}
	m := encodingAttrRE.FindStringSubmatch(decl)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func extractVersionStandalone(decl string) (version, standalone string) {
	if m := versionAttrRE.FindStringSubmatch(decl); m != nil {
		version = m[1]
	}
	if m := standaloneAttrRE.FindStringSubmatch(decl); m != nil {
		standalone = m[1]
	}
	return
}
