// Package reasoner answers subsumption and instance questions over an
// ontology.
//
// Reasoner is the capability the character retriever depends on. Structural
// implements it for the fragment mxgraph stores (named classes,
// intersections, existential, universal and has-value restrictions,
// sub-properties); Cached puts a result cache in front of any Reasoner.
package reasoner

import (
	"context"
	"errors"
	"fmt"

	"github.com/hymao/mxgraph/pkg/owl"
)

// Query kinds, used for cache keys and metrics labels.
const (
	KindClassify   = "classify"
	KindSubClasses = "subclasses"
	KindInstances  = "instances"
)

var (
	// ErrInconsistent is returned when the ontology has no model.
	ErrInconsistent = errors.New("ontology is inconsistent")

	// ErrUnsupported is returned for queries the reasoner cannot answer.
	ErrUnsupported = errors.New("unsupported query")
)

// Reasoner is a synchronous subsumption and instance reasoner.
type Reasoner interface {
	// Classify (re)computes the class hierarchy from the current ontology.
	// Queries classify on first use, so calling it is only required after
	// the ontology changed.
	Classify(ctx context.Context) error

	// SubClasses returns the named classes subsumed by ce, sorted.
	// owl:Nothing and classes equivalent to ce are never included. With
	// direct set only the most general of them are returned.
	SubClasses(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error)

	// Instances returns the individuals that are instances of ce, sorted.
	// With direct set, individuals that are instances of a named strict
	// subclass of ce are left out.
	Instances(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error)
}

// ReasoningError reports a failed reasoner operation.
type ReasoningError struct {
	Op    string
	Query owl.ClassExpression
	Err   error
}

func (e *ReasoningError) Error() string {
	if e.Query == nil {
		return fmt.Sprintf("reasoner %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("reasoner %s %s: %v", e.Op, e.Query, e.Err)
}

func (e *ReasoningError) Unwrap() error {
	return e.Err
}

func wrap(op string, q owl.ClassExpression, err error) error {
	var re *ReasoningError
	if errors.As(err, &re) {
		return err
	}
	return &ReasoningError{Op: op, Query: q, Err: err}
}
