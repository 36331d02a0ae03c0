package dtd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityAndElement(t *testing.T) {
	p := NewParser()
	raw := ` <!ELEMENT root (child)*> <!ENTITY foo "bar"> <!ATTLIST root id ID #REQUIRED lang CDATA "en"> `
	require.NoError(t, p.ParseInternalSubset(raw))

	text, ok := p.Table.ResolveGeneralEntity("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", text)

	elem, ok := p.Table.Elements["root"]
	require.True(t, ok)
	assert.Equal(t, ContentChildren, elem.Kind)

	attrs := p.Table.Attributes["root"]
	require.Len(t, attrs, 2)
	assert.Equal(t, "id", attrs[0].Name)
	assert.Equal(t, AttrID, attrs[0].Type)
	assert.Equal(t, DefaultRequired, attrs[0].Default)
	assert.Equal(t, "lang", attrs[1].Name)
	assert.Equal(t, "en", attrs[1].DefaultValue)
}

func TestParameterEntityExpansion(t *testing.T) {
	p := NewParser()
	raw := `<!ENTITY % name "CDATA #REQUIRED"> <!ATTLIST root attr %name;>`
	require.NoError(t, p.ParseInternalSubset(raw))

	attrs := p.Table.Attributes["root"]
	require.Len(t, attrs, 1)
	assert.Equal(t, AttrCDATA, attrs[0].Type)
	assert.Equal(t, DefaultRequired, attrs[0].Default)
}

func TestNotationAndUnparsedEntity(t *testing.T) {
	p := NewParser()
	raw := `<!NOTATION gif SYSTEM "gifview.exe"> <!ENTITY logo SYSTEM "logo.gif" NDATA gif>`
	require.NoError(t, p.ParseInternalSubset(raw))

	notation, ok := p.Table.Notations["gif"]
	require.True(t, ok)
	assert.Equal(t, "gifview.exe", notation.SystemID)

	ent := p.Table.GeneralEntities["logo"]
	assert.Equal(t, EntityExternalUnparsed, ent.Kind)
	assert.Equal(t, "gif", ent.Notation)
}

func TestPredefinedEntitiesAlwaysPresent(t *testing.T) {
	p := NewParser()
	for name, want := range map[string]string{"lt": "<", "gt": ">", "amp": "&", "apos": "'", "quot": `"`} {
		got, ok := p.Table.ResolveGeneralEntity(name)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestEnumeratedAttributeType(t *testing.T) {
	p := NewParser()
	raw := `<!ATTLIST choice kind (a|b|c) "a">`
	require.NoError(t, p.ParseInternalSubset(raw))
	attrs := p.Table.Attributes["choice"]
	require.Len(t, attrs, 1)
	assert.Equal(t, AttrEnumeration, attrs[0].Type)
	assert.Equal(t, []string{"a", "b", "c"}, attrs[0].Enumeration)
}
