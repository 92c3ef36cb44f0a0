package ontology

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// AddClassAssertion asserts that individual is an instance of ce, with the
// given axiom annotations. A new edge is written on every call.
func (o *Ontology) AddClassAssertion(ce owl.ClassExpression, individual owl.IRI, annotations ...owl.Annotation) (storage.EdgeID, error) {
	return o.addClassAssertion(ce, individual, annotations, false)
}

// AddDerivedClassAssertion is AddClassAssertion for assertions computed
// from other axioms. The edge is flagged AutoGenerated so exports keep the
// distinction.
func (o *Ontology) AddDerivedClassAssertion(ce owl.ClassExpression, individual owl.IRI, annotations ...owl.Annotation) (storage.EdgeID, error) {
	return o.addClassAssertion(ce, individual, annotations, true)
}

func (o *Ontology) addClassAssertion(ce owl.ClassExpression, individual owl.IRI, annotations []owl.Annotation, derived bool) (storage.EdgeID, error) {
	if err := o.Declare(individual, LabelIndividual); err != nil {
		return "", fmt.Errorf("declaring individual %s: %w", individual, err)
	}
	classID, err := o.declareExpression(ce)
	if err != nil {
		return "", fmt.Errorf("declaring class %s: %w", ce, err)
	}

	props := map[string]any{}
	if len(annotations) > 0 {
		for _, a := range annotations {
			if err := o.Declare(a.Property, LabelAnnotationProperty); err != nil {
				return "", err
			}
		}
		encoded, err := encodeAnnotations(annotations)
		if err != nil {
			return "", err
		}
		props[propAnnotations] = encoded
	}

	edge := &storage.Edge{
		ID:            storage.EdgeID(uuid.New().String()),
		StartNode:     storage.NodeID(individual),
		EndNode:       classID,
		Type:          string(vocab.Type),
		Properties:    props,
		AutoGenerated: derived,
	}
	if err := o.engine.CreateEdge(edge); err != nil {
		return "", fmt.Errorf("adding class assertion %s(%s): %w", ce, individual, err)
	}
	return edge.ID, nil
}

// AddObjectPropertyAssertion asserts "subject property object". Repeating
// an assertion is a no-op.
func (o *Ontology) AddObjectPropertyAssertion(property, subject, object owl.IRI) error {
	if vocab.Reserved(property) {
		return fmt.Errorf("%w: %s is reserved", storage.ErrInvalidData, property)
	}
	if err := o.Declare(property, LabelObjectProperty); err != nil {
		return err
	}
	if err := o.Declare(subject, LabelIndividual); err != nil {
		return err
	}
	if err := o.Declare(object, LabelIndividual); err != nil {
		return err
	}
	return o.addAxiomEdge(storage.NodeID(subject), storage.NodeID(object), property)
}

// AddSubClassOf asserts sub ⊑ super.
func (o *Ontology) AddSubClassOf(sub, super owl.ClassExpression) error {
	return o.addClassAxiom(sub, super, vocab.SubClassOf)
}

// AddEquivalentClasses asserts every pair of classes equivalent.
func (o *Ontology) AddEquivalentClasses(classes ...owl.ClassExpression) error {
	return o.addPairwise(classes, vocab.EquivalentClass)
}

// AddDisjointClasses asserts every pair of classes disjoint.
func (o *Ontology) AddDisjointClasses(classes ...owl.ClassExpression) error {
	return o.addPairwise(classes, vocab.DisjointWith)
}

// AddSubObjectPropertyOf asserts sub ⊑ super on object properties.
func (o *Ontology) AddSubObjectPropertyOf(sub, super owl.IRI) error {
	if err := o.Declare(sub, LabelObjectProperty); err != nil {
		return err
	}
	if err := o.Declare(super, LabelObjectProperty); err != nil {
		return err
	}
	return o.addAxiomEdge(storage.NodeID(sub), storage.NodeID(super), vocab.SubPropertyOf)
}

// AddAnnotationAssertion annotates subject. The subject node is created if
// the graph does not know it yet. Adding an identical annotation twice
// keeps one copy.
func (o *Ontology) AddAnnotationAssertion(subject, property owl.IRI, value owl.AnnotationValue) error {
	if err := value.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAnnotationValue, err)
	}
	if err := o.Declare(property, LabelAnnotationProperty); err != nil {
		return err
	}
	if err := o.ensureNode(storage.NodeID(subject), "", nil); err != nil {
		return err
	}

	node, err := o.engine.GetNode(storage.NodeID(subject))
	if err != nil {
		return err
	}
	anns, err := decodeAnnotations(node.Properties)
	if err != nil {
		return fmt.Errorf("annotations of %s: %w", subject, err)
	}

	added := owl.Annotation{Property: property, Value: value}
	for _, a := range anns {
		if a.String() == added.String() {
			return nil
		}
	}
	encoded, err := encodeAnnotations(append(anns, added))
	if err != nil {
		return err
	}
	if node.Properties == nil {
		node.Properties = map[string]any{}
	}
	node.Properties[propAnnotations] = encoded
	return o.engine.UpdateNode(node)
}

func (o *Ontology) addClassAxiom(left, right owl.ClassExpression, relation owl.IRI) error {
	leftID, err := o.declareExpression(left)
	if err != nil {
		return err
	}
	rightID, err := o.declareExpression(right)
	if err != nil {
		return err
	}
	return o.addAxiomEdge(leftID, rightID, relation)
}

func (o *Ontology) addPairwise(classes []owl.ClassExpression, relation owl.IRI) error {
	if len(classes) < 2 {
		return fmt.Errorf("%w: %s needs at least two classes", storage.ErrInvalidData, relation)
	}
	for i := range classes {
		for j := i + 1; j < len(classes); j++ {
			if err := o.addClassAxiom(classes[i], classes[j], relation); err != nil {
				return err
			}
		}
	}
	return nil
}

// addAxiomEdge writes an edge whose ID is derived from its content, so the
// same structural axiom is stored once.
func (o *Ontology) addAxiomEdge(from, to storage.NodeID, relation owl.IRI) error {
	edge := &storage.Edge{
		ID:        axiomEdgeID(from, relation, to),
		StartNode: from,
		EndNode:   to,
		Type:      string(relation),
	}
	err := o.engine.CreateEdge(edge)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("adding %s axiom %s -> %s: %w", relation, from, to, err)
	}
	return nil
}

func axiomEdgeID(from storage.NodeID, relation owl.IRI, to storage.NodeID) storage.EdgeID {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(from))
	h.Write([]byte{0})
	h.Write([]byte(relation))
	h.Write([]byte{0})
	h.Write([]byte(to))
	return storage.EdgeID("_:axiom:" + hex.EncodeToString(h.Sum(nil)))
}
