package ontology

import (
	"context"
	"fmt"

	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// ClassAxiom is a binary axiom between class expressions.
type ClassAxiom struct {
	Left, Right owl.ClassExpression
}

// PropertyAxiom is SubObjectPropertyOf(Sub Super).
type PropertyAxiom struct {
	Sub, Super owl.IRI
}

// PropertyAssertion is ObjectPropertyAssertion(Property Subject Object).
type PropertyAssertion struct {
	Subject, Property, Object owl.IRI
}

// Snapshot is every logical axiom of the graph at one point in time. It is
// what a reasoner classifies.
type Snapshot struct {
	Classes     []owl.IRI
	Individuals []owl.IRI
	Properties  []owl.IRI

	SubClassOf          []ClassAxiom
	EquivalentClasses   []ClassAxiom
	DisjointClasses     []ClassAxiom
	SubObjectPropertyOf []PropertyAxiom
	ClassAssertions     []ClassAssertion
	PropertyAssertions  []PropertyAssertion
}

// Snapshot reads every node and edge of the graph once.
func (o *Ontology) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	nodes := make(map[storage.NodeID]*storage.Node)

	err := storage.StreamNodesWithFallback(ctx, o.engine, func(n *storage.Node) error {
		nodes[n.ID] = n
		if n.HasLabel(LabelClass) {
			snap.Classes = append(snap.Classes, owl.IRI(n.ID))
		}
		if n.HasLabel(LabelIndividual) {
			snap.Individuals = append(snap.Individuals, owl.IRI(n.ID))
		}
		if n.HasLabel(LabelObjectProperty) {
			snap.Properties = append(snap.Properties, owl.IRI(n.ID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading nodes: %w", err)
	}

	exprs := make(map[storage.NodeID]owl.ClassExpression)
	exprOf := func(id storage.NodeID) (owl.ClassExpression, error) {
		if ce, ok := exprs[id]; ok {
			return ce, nil
		}
		node, ok := nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: node %s", storage.ErrNotFound, id)
		}
		ce, err := expressionOf(node)
		if err != nil {
			return nil, err
		}
		exprs[id] = ce
		return ce, nil
	}
	classAxiom := func(e *storage.Edge) (ClassAxiom, error) {
		left, err := exprOf(e.StartNode)
		if err != nil {
			return ClassAxiom{}, err
		}
		right, err := exprOf(e.EndNode)
		if err != nil {
			return ClassAxiom{}, err
		}
		return ClassAxiom{Left: left, Right: right}, nil
	}

	err = storage.StreamEdgesWithFallback(ctx, o.engine, func(e *storage.Edge) error {
		switch owl.IRI(e.Type) {
		case vocab.Type:
			classNode, ok := nodes[e.EndNode]
			if !ok {
				return fmt.Errorf("%w: class of assertion %s", storage.ErrNotFound, e.ID)
			}
			a, err := classAssertion(e, classNode)
			if err != nil {
				return err
			}
			snap.ClassAssertions = append(snap.ClassAssertions, a)
		case vocab.SubClassOf:
			ax, err := classAxiom(e)
			if err != nil {
				return err
			}
			snap.SubClassOf = append(snap.SubClassOf, ax)
		case vocab.EquivalentClass:
			ax, err := classAxiom(e)
			if err != nil {
				return err
			}
			snap.EquivalentClasses = append(snap.EquivalentClasses, ax)
		case vocab.DisjointWith:
			ax, err := classAxiom(e)
			if err != nil {
				return err
			}
			snap.DisjointClasses = append(snap.DisjointClasses, ax)
		case vocab.SubPropertyOf:
			snap.SubObjectPropertyOf = append(snap.SubObjectPropertyOf, PropertyAxiom{
				Sub: owl.IRI(e.StartNode), Super: owl.IRI(e.EndNode),
			})
		case vocab.Imports:
		default:
			snap.PropertyAssertions = append(snap.PropertyAssertions, PropertyAssertion{
				Subject: owl.IRI(e.StartNode), Property: owl.IRI(e.Type), Object: owl.IRI(e.EndNode),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading axioms: %w", err)
	}

	// Assertion endpoints are individuals whatever their node labels say.
	for _, a := range snap.ClassAssertions {
		snap.Individuals = append(snap.Individuals, a.Individual)
	}
	for _, a := range snap.PropertyAssertions {
		snap.Individuals = append(snap.Individuals, a.Subject, a.Object)
	}

	snap.Classes = owl.SortIRIs(snap.Classes)
	snap.Individuals = owl.SortIRIs(snap.Individuals)
	snap.Properties = owl.SortIRIs(snap.Properties)
	return snap, nil
}
