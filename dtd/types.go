// Package dtd implements the DTD Parser component of spec §4.3: it reads
// the raw internal-subset text the Tokenizer hands off as a single
// DoctypeStart token, expands parameter-entity references, and builds
// the entity/element/attribute/notation declaration tables the Content
// Parser consults while processing the rest of the document. The type
// taxonomy below generalizes the libxml2-shaped declaration model in the
// pack's Go binding into a flatter, map-based table more idiomatic for a
// from-scratch Go implementation.
package dtd

// AttributeType is the declared type of an ATTLIST attribute.
type AttributeType int

const (
	AttrCDATA AttributeType = iota
	AttrID
	AttrIDRef
	AttrIDRefs
	AttrEntity
	AttrEntities
	AttrNmtoken
	AttrNmtokens
	AttrNotation
	AttrEnumeration
)

// AttributeDefault is the DEFAULT/#REQUIRED/#IMPLIED/#FIXED clause.
type AttributeDefault int

const (
	DefaultNone AttributeDefault = iota
	DefaultRequired
	DefaultImplied
	DefaultFixed
)

// AttributeDecl is one <!ATTLIST elem attr ...> clause.
type AttributeDecl struct {
	Element      string
	Name         string
	Type         AttributeType
	Enumeration  []string // populated for AttrEnumeration / AttrNotation
	Default      AttributeDefault
	DefaultValue string
}

// ContentModelKind classifies an <!ELEMENT ...> content model.
type ContentModelKind int

const (
	ContentEmpty ContentModelKind = iota
	ContentAny
	ContentMixed
	ContentChildren
)

// ElementDecl is one <!ELEMENT name model> declaration. Model is kept as
// the raw, unparsed content-model text; validating against it is out of
// scope (spec Non-goals), but the raw text is retained so a caller can
// inspect or re-serialize it.
type ElementDecl struct {
	Name  string
	Kind  ContentModelKind
	Model string
}

// EntityKind distinguishes the six DTD entity classes.
type EntityKind int

const (
	EntityInternalGeneral EntityKind = iota
	EntityExternalGeneral
	EntityExternalUnparsed
	EntityInternalParameter
	EntityExternalParameter
	EntityPredefined
)

// EntityDecl is one <!ENTITY ...> declaration (general or parameter).
type EntityDecl struct {
	Name       string
	Kind       EntityKind
	Value      string // internal entities: the replacement text
	PublicID   string
	SystemID   string
	Notation   string // unparsed entities: the NDATA notation name
}

// NotationDecl is one <!NOTATION ...> declaration.
type NotationDecl struct {
	Name     string
	PublicID string
	SystemID string
}

// Table is the set of declarations accumulated while parsing a DTD
// internal (and, when supplied, external) subset.
type Table struct {
	Elements   map[string]ElementDecl
	Attributes map[string][]AttributeDecl // keyed by element name
	GeneralEntities map[string]EntityDecl
	ParameterEntities map[string]EntityDecl
	Notations  map[string]NotationDecl
}

// NewTable returns a Table pre-populated with the five predefined
// general entities every XML processor must recognize without a DTD.
func NewTable() *Table {
	t := &Table{
		Elements:          map[string]ElementDecl{},
		Attributes:        map[string][]AttributeDecl{},
		GeneralEntities:   map[string]EntityDecl{},
		ParameterEntities: map[string]EntityDecl{},
		Notations:         map[string]NotationDecl{},
	}
	for name, value := range map[string]string{
		"lt": "<", "gt": ">", "amp": "&", "apos": "'", "quot": `"`,
	} {
		t.GeneralEntities[name] = EntityDecl{Name: name, Kind: EntityPredefined, Value: value}
	}
	return t
}

// ResolveGeneralEntity returns the replacement text for a general
// entity reference, if declared (predefined entities are always
// present). ok is false for an unparsed entity, which may not appear as
// a plain reference per XML §4.2.2.
func (t *Table) ResolveGeneralEntity(name string) (text string, ok bool) {
	e, found := t.GeneralEntities[name]
	if !found || e.Kind == EntityExternalUnparsed {
		return "", false
	}
	return e.Value, true
}
