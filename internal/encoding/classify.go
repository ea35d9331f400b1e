package encoding

import "github.com/aleksaelezovic/tristore/pkg/rdf"

// ObjectKind selects which statement collection holds a triple
type ObjectKind byte

const (
	// ObjectAny is used when the object is unbound; both collections apply
	ObjectAny ObjectKind = iota
	ObjectResource
	ObjectLiteral
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectResource:
		return "resource"
	case ObjectLiteral:
		return "literal"
	default:
		return "any"
	}
}

// Classify returns the collection kind for an object term.
// A nil object classifies as ObjectAny.
func Classify(object rdf.Term) ObjectKind {
	if object == nil {
		return ObjectAny
	}
	if object.Kind() == rdf.TermKindLiteral {
		return ObjectLiteral
	}
	return ObjectResource
}
