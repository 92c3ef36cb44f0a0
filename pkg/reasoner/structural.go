package reasoner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
)

// Source provides the axioms to classify. *ontology.Ontology implements it.
type Source interface {
	Snapshot(ctx context.Context) (*ontology.Snapshot, error)
}

// Structural is a told-axiom and structural subsumption reasoner.
//
// Subsumption X ⊑ Y holds when every conjunct of Y is matched by a told
// subsumer of X: named classes by identity, existential restrictions
// covariantly in property and filler, universal restrictions contravariantly
// in property and covariantly in filler, has-value restrictions by
// individual. Equivalence axioms with an anonymous side act as definitions,
// so individuals and classes that meet a definition are classified under
// the named class.
//
// Instance checking uses the asserted types and the object property
// assertions of each individual. Universal restrictions are only satisfied
// through asserted types.
//
// Structural is safe for concurrent use; queries are serialized.
type Structural struct {
	source Source
	log    *slog.Logger

	mu    sync.Mutex
	model *model
	err   error
}

// StructuralOption configures a Structural reasoner.
type StructuralOption func(*Structural)

// WithLogger sets the logger for classification messages.
func WithLogger(log *slog.Logger) StructuralOption {
	return func(s *Structural) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStructural returns a reasoner over source. Nothing is read until the
// first Classify or query.
func NewStructural(source Source, opts ...StructuralOption) *Structural {
	s := &Structural{
		source: source,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify implements Reasoner.
func (s *Structural) Classify(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifyLocked(ctx)
}

func (s *Structural) classifyLocked(ctx context.Context) error {
	start := time.Now()

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		s.model, s.err = nil, nil
		return wrap(KindClassify, nil, fmt.Errorf("reading ontology: %w", err))
	}

	m := newModel(snap)
	s.model = m
	s.err = nil
	if err := m.consistency(); err != nil {
		s.err = wrap(KindClassify, nil, err)
		return s.err
	}

	s.log.Debug("classified ontology",
		slog.Int("classes", len(m.classes)),
		slog.Int("individuals", len(m.individuals)),
		slog.Int("subclass_axioms", len(snap.SubClassOf)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// ready classifies on first use and returns the model, or the error that
// made the ontology unusable.
func (s *Structural) ready(ctx context.Context) (*model, error) {
	if s.model == nil {
		if err := s.classifyLocked(ctx); err != nil {
			return nil, err
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

// SubClasses implements Reasoner.
func (s *Structural) SubClasses(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	return s.query(ctx, KindSubClasses, ce, func(m *model) []owl.IRI {
		return m.subClasses(ce, direct)
	})
}

// Instances implements Reasoner.
func (s *Structural) Instances(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	return s.query(ctx, KindInstances, ce, func(m *model) []owl.IRI {
		return m.instances(ce, direct)
	})
}

func (s *Structural) query(ctx context.Context, kind string, ce owl.ClassExpression, run func(*model) []owl.IRI) ([]owl.IRI, error) {
	if ce == nil {
		return nil, wrap(kind, nil, fmt.Errorf("%w: nil class expression", ErrUnsupported))
	}
	if err := ctx.Err(); err != nil {
		return nil, wrap(kind, ce, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.ready(ctx)
	if err != nil {
		var re *ReasoningError
		if errors.As(err, &re) && re.Query == nil {
			return nil, &ReasoningError{Op: kind, Query: ce, Err: re.Err}
		}
		return nil, wrap(kind, ce, err)
	}
	return owl.SortIRIs(run(m)), nil
}

var _ Reasoner = (*Structural)(nil)
