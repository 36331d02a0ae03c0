package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, d *Decoder, chunks ...string) string {
	t.Helper()
	var out string
	for _, c := range chunks {
		s, err := d.Feed([]byte(c))
		require.NoError(t, err)
		out += s
	}
	return out
}

func TestSplitXMLDeclaration(t *testing.T) {
	d := New(false)
	out := feedAll(t, d,
		`<?xml ver`,
		`sion="1.0" enc`,
		`oding="UTF-8"?><a/`,
		`>`,
	)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><a/>`, out)
	assert.Equal(t, "UTF-8", d.Charset())
	assert.Equal(t, "1.0", d.Version())
}

func TestCRLFAcrossChunks(t *testing.T) {
	d := New(false)
	out := feedAll(t, d, "<a>x\r", "\ny</a>")
	assert.Equal(t, "<a>x\ny</a>", out)
}

func TestLoneCRBecomesLF(t *testing.T) {
	d := New(false)
	out := feedAll(t, d, "a\rb\r\nc\r")
	assert.Equal(t, "a\nb\nc\n", out+d.Close())
}

func TestUTF8BOMStripped(t *testing.T) {
	d := New(false)
	out := feedAll(t, d, "\xEF\xBB\xBF<a/>")
	assert.Equal(t, "<a/>", out)
	assert.Equal(t, "UTF-8", d.Charset())
}

func TestTrailingCRFlushedOnClose(t *testing.T) {
	d := New(false)
	out := feedAll(t, d, "a\r")
	assert.Equal(t, "a", out)
	assert.Equal(t, "\n", d.Close())
}

func TestNoDeclarationDefaultsUTF8(t *testing.T) {
	d := New(false)
	out := feedAll(t, d, "<a>hi</a>")
	assert.Equal(t, "<a>hi</a>", out)
	assert.Equal(t, "UTF-8", d.Charset())
}
