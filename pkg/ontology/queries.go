package ontology

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// ClassAssertion is a stored rdf:type axiom.
type ClassAssertion struct {
	ID          storage.EdgeID
	Individual  owl.IRI
	Class       owl.ClassExpression
	Annotations []owl.Annotation

	// Derived is set on assertions written by AddDerivedClassAssertion.
	Derived bool
}

// Entities returns the IRIs of every node with the given label, sorted.
func (o *Ontology) Entities(label string) ([]owl.IRI, error) {
	nodes, err := o.engine.GetNodesByLabel(label)
	if err != nil {
		return nil, err
	}
	iris := make([]owl.IRI, 0, len(nodes))
	for _, n := range nodes {
		iris = append(iris, owl.IRI(n.ID))
	}
	return owl.SortIRIs(iris), nil
}

// Has reports whether iri is a node of the graph.
func (o *Ontology) Has(iri owl.IRI) (bool, error) {
	_, err := o.engine.GetNode(storage.NodeID(iri))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// IndividualsOf returns the individuals asserted to be instances of the
// named class, sorted. Only told assertions are considered.
func (o *Ontology) IndividualsOf(class owl.IRI) ([]owl.IRI, error) {
	edges, err := o.engine.GetIncomingEdges(storage.NodeID(class))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []owl.IRI
	for _, e := range edges {
		if e.Type == string(vocab.Type) {
			out = append(out, owl.IRI(e.StartNode))
		}
	}
	return owl.SortIRIs(out), nil
}

// ObjectValues returns every object of "subject property ?", sorted and
// de-duplicated. An unknown subject has no values.
func (o *Ontology) ObjectValues(subject, property owl.IRI) ([]owl.IRI, error) {
	edges, err := o.engine.GetOutgoingEdges(storage.NodeID(subject))
	if err != nil {
		return nil, fmt.Errorf("edges of %s: %w", subject, err)
	}

	var out []owl.IRI
	for _, e := range edges {
		if e.Type == string(property) {
			out = append(out, owl.IRI(e.EndNode))
		}
	}
	return owl.SortIRIs(out), nil
}

// SingleObjectValue returns the value of a relation expected to have one.
// When there are several, the smallest IRI wins and count reports how many
// there were so callers can flag the record. No value at all is
// ErrMissingRelationValue.
func (o *Ontology) SingleObjectValue(subject, property owl.IRI) (value owl.IRI, count int, err error) {
	values, err := o.ObjectValues(subject, property)
	if err != nil {
		return "", 0, err
	}
	if len(values) == 0 {
		return "", 0, fmt.Errorf("%w: %s has no %s", ErrMissingRelationValue, subject, property)
	}
	return values[0], len(values), nil
}

// Types returns the asserted types of individual, ordered by canonical
// rendering. Each distinct expression appears once even if asserted several
// times.
func (o *Ontology) Types(individual owl.IRI) ([]owl.ClassExpression, error) {
	assertions, err := o.ClassAssertionsOf(individual)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(assertions))
	var out []owl.ClassExpression
	for _, a := range assertions {
		key := a.Class.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a.Class)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// HasType reports whether individual has ce among its asserted types.
func (o *Ontology) HasType(individual owl.IRI, ce owl.ClassExpression) (bool, error) {
	types, err := o.Types(individual)
	if err != nil {
		return false, err
	}
	for _, t := range types {
		if owl.Equal(t, ce) {
			return true, nil
		}
	}
	return false, nil
}

// ClassAssertionsOf returns every rdf:type edge leaving individual with its
// annotations, in edge ID order.
func (o *Ontology) ClassAssertionsOf(individual owl.IRI) ([]ClassAssertion, error) {
	edges, err := o.engine.GetOutgoingEdges(storage.NodeID(individual))
	if err != nil {
		return nil, fmt.Errorf("edges of %s: %w", individual, err)
	}

	var out []ClassAssertion
	for _, e := range edges {
		if e.Type != string(vocab.Type) {
			continue
		}
		node, err := o.engine.GetNode(e.EndNode)
		if err != nil {
			return nil, fmt.Errorf("class of assertion %s: %w", e.ID, err)
		}
		a, err := classAssertion(e, node)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func classAssertion(e *storage.Edge, classNode *storage.Node) (ClassAssertion, error) {
	ce, err := expressionOf(classNode)
	if err != nil {
		return ClassAssertion{}, err
	}
	anns, err := decodeAnnotations(e.Properties)
	if err != nil {
		return ClassAssertion{}, fmt.Errorf("annotations of assertion %s: %w", e.ID, err)
	}
	return ClassAssertion{
		ID:          e.ID,
		Individual:  owl.IRI(e.StartNode),
		Class:       ce,
		Annotations: anns,
		Derived:     e.AutoGenerated,
	}, nil
}

// Annotations returns the annotation assertions on subject in insertion
// order. An unknown subject has none.
func (o *Ontology) Annotations(subject owl.IRI) ([]owl.Annotation, error) {
	node, err := o.engine.GetNode(storage.NodeID(subject))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	anns, err := decodeAnnotations(node.Properties)
	if err != nil {
		return nil, fmt.Errorf("annotations of %s: %w", subject, err)
	}
	return anns, nil
}

// AnnotationValues returns the values of property on subject.
func (o *Ontology) AnnotationValues(subject, property owl.IRI) ([]owl.AnnotationValue, error) {
	anns, err := o.Annotations(subject)
	if err != nil {
		return nil, err
	}
	var out []owl.AnnotationValue
	for _, a := range anns {
		if a.Property == property {
			out = append(out, a.Value)
		}
	}
	return out, nil
}

// AnnotationIRI returns v as an IRI or ErrMalformedAnnotationValue.
func AnnotationIRI(v owl.AnnotationValue) (owl.IRI, error) {
	iri, ok := v.AsIRI()
	if !ok {
		return "", fmt.Errorf("%w: %s is not an IRI", ErrMalformedAnnotationValue, v)
	}
	return iri, nil
}

// AnnotationLiteral returns v's lexical form or ErrMalformedAnnotationValue.
func AnnotationLiteral(v owl.AnnotationValue) (string, error) {
	lit, ok := v.AsLiteral()
	if !ok {
		return "", fmt.Errorf("%w: %s is not a literal", ErrMalformedAnnotationValue, v)
	}
	return lit.Lexical, nil
}

// IRIAnnotations returns the IRI values of property on subject, sorted.
// Literal values are skipped.
func (o *Ontology) IRIAnnotations(subject, property owl.IRI) ([]owl.IRI, error) {
	values, err := o.AnnotationValues(subject, property)
	if err != nil {
		return nil, err
	}
	var out []owl.IRI
	for _, v := range values {
		iri, err := AnnotationIRI(v)
		if errors.Is(err, ErrMalformedAnnotationValue) {
			continue
		}
		out = append(out, iri)
	}
	return owl.SortIRIs(out), nil
}

// LiteralAnnotations returns the literal values of property on subject,
// sorted. IRI values are skipped.
func (o *Ontology) LiteralAnnotations(subject, property owl.IRI) ([]string, error) {
	values, err := o.AnnotationValues(subject, property)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range values {
		lex, err := AnnotationLiteral(v)
		if errors.Is(err, ErrMalformedAnnotationValue) {
			continue
		}
		out = append(out, lex)
	}
	sort.Strings(out)
	return out, nil
}
