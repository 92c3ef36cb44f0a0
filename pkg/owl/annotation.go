package owl

import "fmt"

// Literal is an RDF literal. Datatype and Lang are optional.
type Literal struct {
	Lexical  string `json:"lexical"`
	Datatype IRI    `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// AnnotationValue is either an IRI reference or a literal. The zero value
// is neither and is rejected by Validate.
type AnnotationValue struct {
	IRI     IRI      `json:"iri,omitempty"`
	Literal *Literal `json:"literal,omitempty"`
}

// IRIValue returns an annotation value that refers to iri.
func IRIValue(iri IRI) AnnotationValue {
	return AnnotationValue{IRI: iri}
}

// LiteralValue returns a plain string literal value.
func LiteralValue(lexical string) AnnotationValue {
	return AnnotationValue{Literal: &Literal{Lexical: lexical}}
}

// AsIRI returns the referenced IRI when the value is an IRI.
func (v AnnotationValue) AsIRI() (IRI, bool) {
	if v.Literal != nil || v.IRI == "" {
		return "", false
	}
	return v.IRI, true
}

// AsLiteral returns the literal when the value is a literal.
func (v AnnotationValue) AsLiteral() (Literal, bool) {
	if v.Literal == nil || v.IRI != "" {
		return Literal{}, false
	}
	return *v.Literal, true
}

// Validate checks that exactly one of IRI and Literal is set.
func (v AnnotationValue) Validate() error {
	switch {
	case v.IRI != "" && v.Literal != nil:
		return fmt.Errorf("annotation value has both iri %s and literal %q", v.IRI, v.Literal.Lexical)
	case v.IRI == "" && v.Literal == nil:
		return fmt.Errorf("annotation value is empty")
	}
	return nil
}

func (v AnnotationValue) String() string {
	if lit, ok := v.AsLiteral(); ok {
		s := fmt.Sprintf("%q", lit.Lexical)
		if lit.Lang != "" {
			return s + "@" + lit.Lang
		}
		if lit.Datatype != "" {
			return s + "^^" + lit.Datatype.String()
		}
		return s
	}
	return v.IRI.String()
}

// Annotation pairs an annotation property with a value. It is used both for
// annotation assertions on entities and for annotations on axioms.
type Annotation struct {
	Property IRI             `json:"property"`
	Value    AnnotationValue `json:"value"`
}

func (a Annotation) String() string {
	return "Annotation(" + a.Property.String() + " " + a.Value.String() + ")"
}
