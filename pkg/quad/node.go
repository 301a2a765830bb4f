// Package quad defines the data model shared by every layer of go-quadmem:
// RDF terms (nodes), quads, triples and the invertible changes applied to a
// store.
package quad

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Kind identifies the sort of term a Node holds.
type Kind uint8

const (
	// KindAny is the wildcard. It is the zero value, so an unset Node
	// matches anything during lookup.
	KindAny Kind = iota
	KindIRI
	KindBlank
	KindLiteral
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	case KindVariable:
		return "variable"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is an immutable RDF term. Nodes are comparable and may be used as map
// keys directly.
type Node struct {
	Kind     Kind
	Value    string // IRI, blank label, lexical form or variable name
	Datatype string // literal datatype IRI, empty for plain literals
	Lang     string // literal language tag
}

// Any matches every node during lookup.
var Any = Node{}

// Well-known graph names. Both are ordinary IRIs, so they are concrete and
// can be stored and indexed like any other node.
var (
	DefaultGraph = IRI("urn:x-arq:DefaultGraph")
	UnionGraph   = IRI("urn:x-arq:UnionGraph")
)

// IRI returns the IRI node for iri.
func IRI(iri string) Node { return Node{Kind: KindIRI, Value: iri} }

// Blank returns the blank node with the given label.
func Blank(label string) Node { return Node{Kind: KindBlank, Value: label} }

// NewBlank mints a blank node with a fresh random label.
func NewBlank() Node {
	return Blank("b" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Literal returns a plain literal.
func Literal(lexical string) Node { return Node{Kind: KindLiteral, Value: lexical} }

// LangLiteral returns a language-tagged literal. Tags are case-insensitive
// and stored in lower case.
func LangLiteral(lexical, lang string) Node {
	return Node{Kind: KindLiteral, Value: lexical, Lang: strings.ToLower(lang)}
}

func TypedLiteral(lexical, datatype string) Node {
	return Node{Kind: KindLiteral, Value: lexical, Datatype: datatype}
}

// Variable returns a named query variable. Variables match like the wildcard.
func Variable(name string) Node { return Node{Kind: KindVariable, Value: name} }

// IsAny reports whether n is the wildcard.
func (n Node) IsAny() bool { return n.Kind == KindAny }

// IsConcrete reports whether n denotes an actual term, i.e. it is neither the
// wildcard nor a variable.
func (n Node) IsConcrete() bool {
	return n.Kind != KindAny && n.Kind != KindVariable
}

func (n Node) IsDefaultGraph() bool { return n == DefaultGraph }

func (n Node) IsUnionGraph() bool { return n == UnionGraph }

// Hash returns a 32-bit hash of the node for hash-trie placement.
func (n Node) Hash() uint32 {
	h := xxhash.New()
	h.Write([]byte{byte(n.Kind)})
	h.WriteString(n.Value)
	h.Write([]byte{0})
	h.WriteString(n.Datatype)
	h.Write([]byte{0})
	h.WriteString(n.Lang)
	sum := h.Sum64()
	return uint32(sum) ^ uint32(sum>>32)
}

// String renders the node in N-Triples term syntax. The result round-trips
// through ParseNode.
func (n Node) String() string {
	switch n.Kind {
	case KindIRI:
		return "<" + n.Value + ">"
	case KindBlank:
		return "_:" + n.Value
	case KindVariable:
		return "?" + n.Value
	case KindLiteral:
		s := strconv.Quote(n.Value)
		if n.Lang != "" {
			return s + "@" + n.Lang
		}
		if n.Datatype != "" {
			return s + "^^<" + n.Datatype + ">"
		}
		return s
	default:
		return "ANY"
	}
}

// MarshalText implements encoding.TextMarshaler using the term syntax.
func (n Node) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Node) UnmarshalText(text []byte) error {
	parsed, err := ParseNode(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// ParseNode parses a single term written in the syntax produced by
// Node.String, and is its exact inverse: ParseNode(n.String()) == n for every
// node built with this package's constructors. The input is not trimmed. The
// empty string, "*" and "ANY" parse to the wildcard.
func ParseNode(s string) (Node, error) {
	switch {
	case s == "" || s == "*" || s == "ANY":
		return Any, nil
	case strings.HasPrefix(s, "<"):
		if len(s) < 2 || !strings.HasSuffix(s, ">") {
			return Any, fmt.Errorf("unterminated IRI %q", s)
		}
		return IRI(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, "_:"):
		return Blank(s[2:]), nil
	case strings.HasPrefix(s, "?"):
		return Variable(s[1:]), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteral(s)
	default:
		return Any, fmt.Errorf("unrecognised term %q", s)
	}
}

func parseLiteral(s string) (Node, error) {
	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return Any, fmt.Errorf("bad literal %q: %w", s, err)
	}
	lexical, err := strconv.Unquote(quoted)
	if err != nil {
		return Any, fmt.Errorf("bad literal %q: %w", s, err)
	}
	rest := s[len(quoted):]
	switch {
	case rest == "":
		return Literal(lexical), nil
	case strings.HasPrefix(rest, "@") && len(rest) > 1:
		return LangLiteral(lexical, rest[1:]), nil
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		return TypedLiteral(lexical, rest[3:len(rest)-1]), nil
	default:
		return Any, fmt.Errorf("bad literal suffix %q", rest)
	}
}

// MustParseNode is like ParseNode but panics on error. Intended for tests and
// static tables.
func MustParseNode(s string) Node {
	n, err := ParseNode(s)
	if err != nil {
		panic(err)
	}
	return n
}
