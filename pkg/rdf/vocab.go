package rdf

// Well-known namespace IRIs
const (
	XMLNamespace  = "http://www.w3.org/XML/1998/namespace"
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

// DefaultGraphIRI identifies the unnamed default context of a store
const DefaultGraphIRI = "urn:x-rdflib:default"

// DefaultGraph returns the identifier of the default context
func DefaultGraph() *NamedNode {
	return NewNamedNode(DefaultGraphIRI)
}

// IsDefaultGraph reports whether t is nil or the default context identifier
func IsDefaultGraph(t Term) bool {
	if t == nil {
		return true
	}
	n, ok := t.(*NamedNode)
	return ok && n.IRI == DefaultGraphIRI
}

var (
	RDFType = NewNamedNode(RDFNamespace + "type")

	XSDInteger  = NewNamedNode(XSDNamespace + "integer")
	XSDDecimal  = NewNamedNode(XSDNamespace + "decimal")
	XSDDouble   = NewNamedNode(XSDNamespace + "double")
	XSDBoolean  = NewNamedNode(XSDNamespace + "boolean")
	XSDDateTime = NewNamedNode(XSDNamespace + "dateTime")
	XSDDate     = NewNamedNode(XSDNamespace + "date")
)
