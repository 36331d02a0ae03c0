package parser

import "github.com/r2stream/xmlcore/name"

// nsScope is one element's worth of prefix-to-URI bindings. Scopes form
// a stack; resolving a prefix walks the stack from the top down, which
// gives the innermost declaration priority, matching XML Namespaces
// §5.3's scoping rule.
type nsScope struct {
	bindings map[string]string // prefix ("" for default) -> URI
}

type nsStack struct {
	scopes []nsScope
}

func newNSStack() *nsStack {
	s := &nsStack{}
	s.push()
	top := &s.scopes[0]
	top.bindings[name.XMLPrefix] = name.XMLNamespaceURI
	return s
}

func (s *nsStack) push() {
	s.scopes = append(s.scopes, nsScope{bindings: map[string]string{}})
}

func (s *nsStack) pop() {
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *nsStack) declare(prefix, uri string) {
	s.scopes[len(s.scopes)-1].bindings[prefix] = uri
}

func (s *nsStack) resolve(prefix string) (string, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if uri, ok := s.scopes[i].bindings[prefix]; ok {
			return uri, true
		}
	}
	return "", false
}
