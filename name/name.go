// Package name implements XML qualified names and expanded-name equality.
package name

// QName is a qualified name: a namespace URI, a local name, and the
// prefix it was spelled with in the source. Two QNames are expanded-name
// equal iff URI and Local match, regardless of Prefix (spec §3).
type QName struct {
	URI    string
	Local  string
	Prefix string
}

// Equal reports expanded-name equality: namespace URI and local name
// match, irrespective of prefix.
func (q QName) Equal(o QName) bool {
	return q.URI == o.URI && q.Local == o.Local
}

// String renders the name the way it was spelled: prefix:local, or just
// local when there is no prefix.
func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// IsZero reports whether q is the zero QName (used as a sentinel for
// "no name", e.g. on text/comment nodes).
func (q QName) IsZero() bool {
	return q.URI == "" && q.Local == "" && q.Prefix == ""
}

// Well-known namespace bindings that are always in scope, per XML
// Namespaces 1.0 §4 and the xml: binding mandated for every element.
const (
	XMLNamespaceURI   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespaceURI = "http://www.w3.org/2000/xmlns/"
	XMLPrefix         = "xml"
	XMLNSPrefix       = "xmlns"
)
