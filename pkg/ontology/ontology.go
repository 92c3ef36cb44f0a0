// Package ontology maps OWL entities and axioms onto the property graph of
// pkg/storage and gives typed access to them.
//
// Storage mapping:
//
//   - A named entity is a node whose ID is its IRI, labeled with its kind
//     (NamedIndividual, Class, ObjectProperty, AnnotationProperty).
//   - An anonymous class expression is a node labeled ClassExpression whose
//     ID is "_:expr:" followed by the BLAKE2b-256 hash of its canonical
//     rendering; the "expression" property holds its JSON encoding.
//   - A class assertion is an rdf:type edge from the individual to the class
//     node. Axiom annotations are kept on the edge's "annotations" property.
//     Every call adds a new edge, so assertions are never merged.
//   - SubClassOf, EquivalentClasses, DisjointClasses and SubObjectPropertyOf
//     axioms are edges typed with rdfs:subClassOf, owl:equivalentClass,
//     owl:disjointWith and rdfs:subPropertyOf.
//   - An object property assertion is an edge typed with the property IRI.
//   - Annotation assertions live on the subject node's "annotations"
//     property.
//
// The Ontology type does not cache anything; every read goes to the engine,
// so assertions added during a run are visible to later reads.
package ontology

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/storage"
)

// Node labels of the storage mapping.
const (
	LabelIndividual         = "NamedIndividual"
	LabelClass              = "Class"
	LabelObjectProperty     = "ObjectProperty"
	LabelAnnotationProperty = "AnnotationProperty"
	LabelExpression         = "ClassExpression"
	LabelOntology           = "Ontology"
)

// Property keys of the storage mapping.
const (
	propExpression  = "expression"
	propAnnotations = "annotations"
)

// expressionPrefix starts the node ID of every anonymous class expression.
const expressionPrefix = "_:expr:"

// DefaultIRI names the root ontology of a graph that declares none.
const DefaultIRI owl.IRI = "urn:mxgraph:ontology"

var (
	// ErrMissingRelationValue is returned when a relation expected to have
	// one value has none.
	ErrMissingRelationValue = errors.New("missing relation value")

	// ErrMalformedAnnotationValue is returned when an annotation value does
	// not have the expected kind (IRI or literal).
	ErrMalformedAnnotationValue = errors.New("malformed annotation value")

	// ErrImportNotFound is returned when an import IRI has no location in
	// the catalog.
	ErrImportNotFound = errors.New("import not found")
)

// Ontology is a typed OWL view over a storage engine.
//
// Example:
//
//	o := ontology.New(storage.NewMemoryEngine())
//	o.AddObjectPropertyAssertion(vocab.IdentificationID, "ex:O1", "ex:D1")
//	o.AddClassAssertion(owl.Class{IRI: vocab.Occurrence}, "ex:O1")
type Ontology struct {
	engine storage.Engine
	iri    owl.IRI
	log    *slog.Logger
}

// Option configures an Ontology.
type Option func(*Ontology)

// WithLogger sets the logger used for import and merge messages.
func WithLogger(log *slog.Logger) Option {
	return func(o *Ontology) {
		if log != nil {
			o.log = log
		}
	}
}

// WithIRI sets the IRI of the root ontology. Without it the IRI is taken
// from the graph's Ontology nodes.
func WithIRI(iri owl.IRI) Option {
	return func(o *Ontology) {
		o.iri = iri
	}
}

// New wraps engine.
func New(engine storage.Engine, opts ...Option) *Ontology {
	o := &Ontology{
		engine: engine,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Engine returns the underlying storage engine.
func (o *Ontology) Engine() storage.Engine {
	return o.engine
}

// Load reads a graph document (file or line-delimited directory) into the
// engine.
func (o *Ontology) Load(path string) error {
	if err := storage.Load(o.engine, path); err != nil {
		return fmt.Errorf("loading ontology %s: %w", path, err)
	}
	return nil
}

// Save writes the whole graph to path as a document.
func (o *Ontology) Save(path string) error {
	if err := storage.SaveToNeo4jExport(o.engine, path); err != nil {
		return fmt.Errorf("saving ontology %s: %w", path, err)
	}
	return nil
}

// ExpressionID returns the node ID of a class expression: the IRI for a
// named class, a content hash for anything else.
func ExpressionID(ce owl.ClassExpression) storage.NodeID {
	if iri, ok := owl.IsNamed(ce); ok {
		return storage.NodeID(iri)
	}
	sum := blake2b.Sum256([]byte(ce.String()))
	return storage.NodeID(expressionPrefix + hex.EncodeToString(sum[:]))
}

// Declare makes sure iri exists as an entity of the given kind. An existing
// node gains the label if it lacks it.
func (o *Ontology) Declare(iri owl.IRI, label string) error {
	if iri == "" {
		return storage.ErrInvalidID
	}
	return o.ensureNode(storage.NodeID(iri), label, nil)
}

// ensureNode creates the node with label (and props) or adds the label to an
// existing node.
func (o *Ontology) ensureNode(id storage.NodeID, label string, props map[string]any) error {
	node, err := o.engine.GetNode(id)
	if errors.Is(err, storage.ErrNotFound) {
		node = &storage.Node{ID: id, Properties: props}
		if label != "" {
			node.Labels = []string{label}
		}
		err = o.engine.CreateNode(node)
		if errors.Is(err, storage.ErrAlreadyExists) {
			return o.ensureNode(id, label, props)
		}
		return err
	}
	if err != nil {
		return err
	}
	if label == "" || node.HasLabel(label) {
		return nil
	}
	node.Labels = append(node.Labels, label)
	return o.engine.UpdateNode(node)
}

// declareExpression stores ce and declares every entity in its signature.
// It returns the node ID of ce.
func (o *Ontology) declareExpression(ce owl.ClassExpression) (storage.NodeID, error) {
	switch x := ce.(type) {
	case nil:
		return "", fmt.Errorf("%w: nil class expression", storage.ErrInvalidData)
	case owl.Class:
		return storage.NodeID(x.IRI), o.Declare(x.IRI, LabelClass)
	case owl.ObjectAllValuesFrom:
		if err := o.declareRestriction(x.Property, x.Filler); err != nil {
			return "", err
		}
	case owl.ObjectSomeValuesFrom:
		if err := o.declareRestriction(x.Property, x.Filler); err != nil {
			return "", err
		}
	case owl.ObjectHasValue:
		if err := o.Declare(x.Property, LabelObjectProperty); err != nil {
			return "", err
		}
		if err := o.Declare(x.Individual, LabelIndividual); err != nil {
			return "", err
		}
	case owl.ObjectIntersectionOf:
		for _, op := range x.Operands {
			if _, err := o.declareExpression(op); err != nil {
				return "", err
			}
		}
	}

	data, err := owl.MarshalExpression(ce)
	if err != nil {
		return "", err
	}
	id := ExpressionID(ce)
	return id, o.ensureNode(id, LabelExpression, map[string]any{propExpression: string(data)})
}

func (o *Ontology) declareRestriction(property owl.IRI, filler owl.ClassExpression) error {
	if err := o.Declare(property, LabelObjectProperty); err != nil {
		return err
	}
	_, err := o.declareExpression(filler)
	return err
}

// expressionOf returns the class expression a node stands for.
func expressionOf(node *storage.Node) (owl.ClassExpression, error) {
	if !node.HasLabel(LabelExpression) {
		return owl.Class{IRI: owl.IRI(node.ID)}, nil
	}
	raw, ok := node.Properties[propExpression].(string)
	if !ok {
		return nil, fmt.Errorf("%w: expression node %s has no expression", storage.ErrInvalidData, node.ID)
	}
	return owl.UnmarshalExpression([]byte(raw))
}

func encodeAnnotations(anns []owl.Annotation) (string, error) {
	for _, a := range anns {
		if err := a.Value.Validate(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedAnnotationValue, err)
		}
	}
	data, err := json.Marshal(anns)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeAnnotations(props map[string]any) ([]owl.Annotation, error) {
	raw, ok := props[propAnnotations]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: annotations stored as %T", ErrMalformedAnnotationValue, raw)
	}
	if s == "" {
		return nil, nil
	}
	var anns []owl.Annotation
	if err := json.Unmarshal([]byte(s), &anns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnnotationValue, err)
	}
	return anns, nil
}
