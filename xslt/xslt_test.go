package xslt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r2stream/xmlcore/parser"
	"github.com/r2stream/xmlcore/tree"
	"github.com/r2stream/xmlcore/xpath"
)

func buildDoc(t *testing.T, input string) *tree.Document {
	t.Helper()
	b := tree.NewBuilder()
	p := parser.New(parser.WithContentHandler(b), parser.WithLexicalHandler(b))
	require.NoError(t, p.Feed([]byte(input)))
	require.NoError(t, p.Close())
	return b.Doc
}

func runStylesheet(t *testing.T, stylesheet, source string, opts ...Option) *tree.Document {
	t.Helper()
	styDoc := buildDoc(t, stylesheet)
	cs, err := Compile(styDoc, opts...)
	require.NoError(t, err)
	srcDoc := buildDoc(t, source)
	out := tree.NewBuilder()
	exec := NewExecutor(cs, out)
	require.NoError(t, exec.Run(srcDoc))
	return out.Doc
}

const identityStylesheet = `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="/"><xsl:apply-templates/></xsl:template>
<xsl:template match="root"><xsl:apply-templates select="item"/></xsl:template>
<xsl:template match="item">
  <out><xsl:value-of select="name()"/></out>
</xsl:template>
</xsl:stylesheet>`

func TestCompileGroupsTemplatesByModeAndPriority(t *testing.T) {
	styDoc := buildDoc(t, `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="a"><x/></xsl:template>
<xsl:template match="a[@id]"><y/></xsl:template>
<xsl:template match="b" mode="m"><z/></xsl:template>
</xsl:stylesheet>`)
	cs, err := Compile(styDoc)
	require.NoError(t, err)
	require.Len(t, cs.templatesByMode[""], 2)
	require.Len(t, cs.templatesByMode["m"], 1)
	// "a[@id]" has predicates so its default priority (0.5) outranks
	// the bare name test "a" (priority 0).
	require.Equal(t, "a[@id]", cs.templatesByMode[""][0].Match)
}

func TestCompileRejectsBadMatchPattern(t *testing.T) {
	styDoc := buildDoc(t, `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="("><x/></xsl:template>
</xsl:stylesheet>`)
	_, err := Compile(styDoc)
	require.Error(t, err)
	var staticErr *StaticError
	require.ErrorAs(t, err, &staticErr)
}

func TestApplyTemplatesBuiltinRuleRecursesAndCopiesText(t *testing.T) {
	styDoc := buildDoc(t, `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
</xsl:stylesheet>`)
	cs, err := Compile(styDoc)
	require.NoError(t, err)
	srcDoc := buildDoc(t, `<a><b>hi</b></a>`)
	out := tree.NewBuilder()
	exec := NewExecutor(cs, out)
	require.NoError(t, exec.Run(srcDoc))
	require.Equal(t, "hi", out.Doc.Root.StringValue())
}

func TestValueOfAndApplyTemplates(t *testing.T) {
	result := runStylesheet(t, identityStylesheet, `<root><item/><item/></root>`)
	var names []string
	for c := result.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == tree.ElementNode {
			names = append(names, c.StringValue())
		}
	}
	require.Equal(t, []string{"item", "item"}, names)
}

func TestMatchesDescendantOrSelfAbbreviation(t *testing.T) {
	doc := buildDoc(t, `<a><b><c/></b></a>`)
	expr, err := xpath.Parse("//c")
	require.NoError(t, err)
	c := doc.Root.FirstChild.FirstChild.FirstChild
	require.True(t, matches(c, expr))
}

func TestForEachAndIf(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="/root">
  <xsl:for-each select="item">
    <xsl:if test="@keep = 'yes'"><kept><xsl:value-of select="."/></kept></xsl:if>
  </xsl:for-each>
</xsl:template>
</xsl:stylesheet>`
	result := runStylesheet(t, sty, `<root><item keep="yes">a</item><item keep="no">b</item></root>`)
	var kept []string
	for c := result.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == tree.ElementNode && c.Name.Local == "kept" {
			kept = append(kept, c.StringValue())
		}
	}
	require.Equal(t, []string{"a"}, kept)
}

func TestChooseWhenOtherwise(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="n">
  <xsl:choose>
    <xsl:when test=". &gt; 1"><big/></xsl:when>
    <xsl:otherwise><small/></xsl:otherwise>
  </xsl:choose>
</xsl:template>
</xsl:stylesheet>`
	result := runStylesheet(t, sty, `<root><n>5</n><n>0</n></root>`)
	var tags []string
	var walk func(*tree.Node)
	walk = func(n *tree.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Kind == tree.ElementNode {
				tags = append(tags, c.Name.Local)
			}
			walk(c)
		}
	}
	walk(result.Root)
	require.Equal(t, []string{"big", "small"}, tags)
}

func TestVariableAndCallTemplateWithParam(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="/">
  <xsl:variable name="greeting" select="'hi'"/>
  <xsl:call-template name="wrap">
    <xsl:with-param name="msg" select="$greeting"/>
  </xsl:call-template>
</xsl:template>
<xsl:template name="wrap">
  <wrapped><xsl:value-of select="$msg"/></wrapped>
</xsl:template>
</xsl:stylesheet>`
	result := runStylesheet(t, sty, `<root/>`)
	require.Equal(t, "hi", result.Root.FirstChild.StringValue())
}

func TestLiteralResultElementAVTAndAttribute(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="/root">
  <item id="{@code}">
    <xsl:attribute name="computed"><xsl:value-of select="2 + 2"/></xsl:attribute>
  </item>
</xsl:template>
</xsl:stylesheet>`
	result := runStylesheet(t, sty, `<root code="42"/>`)
	item := result.Root.FirstChild
	require.Equal(t, "item", item.Name.Local)
	require.Equal(t, "42", item.Attribute(item.Attr[0].Name).Value)
	var computed string
	for _, a := range item.Attr {
		if a.Name.Local == "computed" {
			computed = a.Value
		}
	}
	require.Equal(t, "4", computed)
}

func TestCopyOf(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="/root">
  <xsl:copy-of select="item"/>
</xsl:template>
</xsl:stylesheet>`
	result := runStylesheet(t, sty, `<root><item a="1"><sub>x</sub></item></root>`)
	copied := result.Root.FirstChild
	require.Equal(t, "item", copied.Name.Local)
	require.Equal(t, "x", copied.StringValue())
	require.Len(t, copied.Attr, 1)
	require.Equal(t, "1", copied.Attr[0].Value)
}

func TestAccumulatorPositionAndCountPreceding(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="row">
  <r p="{position()}" c="{count(preceding-sibling::row)}"/>
</xsl:template>
<xsl:template match="/root"><xsl:apply-templates select="row"/></xsl:template>
</xsl:stylesheet>`
	styDoc := buildDoc(t, sty)
	cs, err := Compile(styDoc, WithAccumulators())
	require.NoError(t, err)
	srcDoc := buildDoc(t, `<root><row/><row/><row/></root>`)
	out := tree.NewBuilder()
	var traced []string
	exec := NewExecutor(cs, out).WithTracer(func(construct string) { traced = append(traced, construct) })
	require.NoError(t, exec.Run(srcDoc))

	var positions, counts []string
	for c := out.Doc.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind != tree.ElementNode {
			continue
		}
		for _, a := range c.Attr {
			switch a.Name.Local {
			case "p":
				positions = append(positions, a.Value)
			case "c":
				counts = append(counts, a.Value)
			}
		}
	}
	require.Equal(t, []string{"1", "2", "3"}, positions)
	require.Equal(t, []string{"0", "1", "2"}, counts)
	require.NotEmpty(t, traced)
}

func TestSumPrecedingSiblingAccumulator(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="row">
  <r s="{sum(preceding-sibling::row/@amount)}"/>
</xsl:template>
<xsl:template match="/root"><xsl:apply-templates select="row"/></xsl:template>
</xsl:stylesheet>`
	styDoc := buildDoc(t, sty)
	cs, err := Compile(styDoc, WithAccumulators())
	require.NoError(t, err)
	srcDoc := buildDoc(t, `<root><row amount="10"/><row amount="5"/><row amount="1"/></root>`)
	out := tree.NewBuilder()
	exec := NewExecutor(cs, out)
	require.NoError(t, exec.Run(srcDoc))

	var sums []string
	for c := out.Doc.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind != tree.ElementNode {
			continue
		}
		sums = append(sums, c.Attr[0].Value)
	}
	require.Equal(t, []string{"0", "10", "15"}, sums)
}

func TestTemplatePriorityTiebreakIsDeclarationOrder(t *testing.T) {
	sty := `<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
<xsl:template match="a" priority="1"><first/></xsl:template>
<xsl:template match="a" priority="1"><second/></xsl:template>
<xsl:template match="/root"><xsl:apply-templates select="a"/></xsl:template>
</xsl:stylesheet>`
	result := runStylesheet(t, sty, `<root><a/></root>`)
	require.Equal(t, "second", result.Root.FirstChild.Name.Local)
}
