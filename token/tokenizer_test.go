package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	toks []Token
}

func (r *recorder) Token(tok Token) error {
	r.toks = append(r.toks, tok)
	return nil
}

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func feedChunks(t *testing.T, tk *Tokenizer, chunks ...string) {
	t.Helper()
	for _, c := range chunks {
		require.NoError(t, tk.Feed(c))
	}
	require.NoError(t, tk.Close())
}

func TestSimpleElement(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<a b="1">hi</a>`)

	assert.Equal(t, []Kind{
		OpenAngle, Name, Name, Equals, QuotedValue, CloseAngle,
		Text,
		EndTagOpen, Name, CloseAngle,
	}, kinds(rec.toks))
}

func TestEmptyElement(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<a/>`)
	assert.Equal(t, []Kind{OpenAngle, Name, EmptyClose}, kinds(rec.toks))
}

func TestElementSplitAcrossChunks(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, "<a", " b=", `"1"`, "><", "/a>")

	assert.Equal(t, []Kind{OpenAngle, Name, Name, Equals, QuotedValue, CloseAngle, EndTagOpen, Name, CloseAngle}, kinds(rec.toks))
	var value string
	for _, tk := range rec.toks {
		if tk.Kind == QuotedValue {
			value = tk.Text
		}
	}
	assert.Equal(t, "1", value)
}

func TestCharAndEntityReference(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `&#65;&amp;`)

	require.Len(t, rec.toks, 2)
	assert.Equal(t, CharRef, rec.toks[0].Kind)
	assert.Equal(t, "A", rec.toks[0].Text)
	assert.Equal(t, EntityRef, rec.toks[1].Kind)
	assert.Equal(t, "amp", rec.toks[1].Text)
}

func TestComment(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<!-- hello -->`)
	require.Len(t, rec.toks, 1)
	assert.Equal(t, CommentBody, rec.toks[0].Kind)
	assert.Equal(t, " hello ", rec.toks[0].Text)
}

func TestCommentSplitAcrossChunks(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<!-- hel`, `lo -`, `->`)
	require.Len(t, rec.toks, 1)
	assert.Equal(t, CommentBody, rec.toks[0].Kind)
	assert.Equal(t, " hello ", rec.toks[0].Text)
}

func TestCDATA(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<![CDATA[<a>&not-an-entity</a>]]>`)
	require.Len(t, rec.toks, 1)
	assert.Equal(t, CDATABody, rec.toks[0].Kind)
	assert.Equal(t, "<a>&not-an-entity</a>", rec.toks[0].Text)
}

func TestProcessingInstruction(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<?xml-stylesheet type="text/xsl" href="a.xsl"?>`)
	require.Len(t, rec.toks, 2)
	assert.Equal(t, PITarget, rec.toks[0].Kind)
	assert.Equal(t, "xml-stylesheet", rec.toks[0].Text)
	assert.Equal(t, PIBody, rec.toks[1].Kind)
	assert.Equal(t, `type="text/xsl" href="a.xsl"`, rec.toks[1].Text)
}

func TestProcessingInstructionNoData(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<?target?>`)
	require.Len(t, rec.toks, 2)
	assert.Equal(t, "target", rec.toks[0].Text)
	assert.Equal(t, "", rec.toks[1].Text)
}

func TestDoctypeWithInternalSubset(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<!DOCTYPE root [ <!ENTITY foo "bar"> ]>`)
	require.Len(t, rec.toks, 1)
	assert.Equal(t, DoctypeStart, rec.toks[0].Kind)
	assert.Equal(t, `root [ <!ENTITY foo "bar"> ]`, rec.toks[0].Text)
}

func TestDoctypeSplitAcrossChunks(t *testing.T) {
	rec := &recorder{}
	tk := New(rec)
	feedChunks(t, tk, `<!DOCTYPE root SYSTEM "a.dtd`, `">`)
	require.Len(t, rec.toks, 1)
	assert.Equal(t, DoctypeStart, rec.toks[0].Kind)
	assert.Equal(t, `root SYSTEM "a.dtd"`, rec.toks[0].Text)
}

func TestUnterminatedTagIsLexicalError(t *testing.T) {
	tk := New(&recorder{})
	require.NoError(t, tk.Feed(`<a`))
	err := tk.Close()
	require.Error(t, err)
	var lexErr *LexicalError
	assert.ErrorAs(t, err, &lexErr)
}
