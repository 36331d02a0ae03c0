package encoding

import "strings"

// normalizeLineEndings implements XML §2.11: CR LF and lone CR both
// become LF for XML 1.0; XML 1.1 additionally folds NEL and LS to LF. A
// trailing CR at the end of the chunk is held back via pendingCR so a
// CRLF pair split across a chunk boundary still normalizes to one LF
// (spec §4.1, scenario 2 in spec §8).
func normalizeLineEndings(s []byte, xml11 bool, pendingCR *bool) string {
	var b strings.Builder
	b.Grow(len(s) + 1)

	if *pendingCR && len(s) > 0 {
		b.WriteByte('\n') // the held CR, alone or as the first half of a CRLF pair
		if s[0] == '\n' {
			s = s[1:]
		}
		*pendingCR = false
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\r':
			if i+1 == len(s) {
				*pendingCR = true
				i++
				continue
			}
			if s[i+1] == '\n' {
				b.WriteByte('\n')
				i += 2
				continue
			}
			b.WriteByte('\n')
			i++
		case xml11 && c == 0xC2 && i+1 < len(s) && s[i+1] == 0x85: // NEL U+0085
			b.WriteByte('\n')
			i += 2
		case xml11 && c == 0xE2 && i+2 < len(s) && s[i+1] == 0x80 && s[i+2] == 0xA8: // LS U+2028
			b.WriteByte('\n')
			i += 3
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}
