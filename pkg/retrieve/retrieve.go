// Package retrieve finds the characters that describe an anatomical concept.
//
// For a concept C the retriever classifies "has_part some C", reads the
// mx:describes_state annotations on every subclass to find character
// states, asks the reasoner which characters can have each state and
// returns the mx:has_mx_id identifiers of those characters.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/reasoner"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// Graph is the part of the ontology the retriever reads.
type Graph interface {
	IRIAnnotations(subject, property owl.IRI) ([]owl.IRI, error)
	LiteralAnnotations(subject, property owl.IRI) ([]string, error)
}

// Retriever answers concept queries. It holds no state between calls.
type Retriever struct {
	g   Graph
	r   reasoner.Reasoner
	log *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(rt *Retriever) {
		if log != nil {
			rt.log = log
		}
	}
}

// New returns a Retriever over g using r for subsumption queries.
func New(g Graph, r reasoner.Reasoner, opts ...Option) *Retriever {
	rt := &Retriever{g: g, r: r, log: slog.Default()}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// ConceptQuery returns ObjectSomeValuesFrom(has_part concept).
func ConceptQuery(concept owl.IRI) owl.ClassExpression {
	return owl.ObjectSomeValuesFrom{
		Property: vocab.HasPart,
		Filler:   owl.Class{IRI: concept},
	}
}

// CharactersFor returns the sorted, de-duplicated identifiers of the
// characters whose states describe parts of concept. Nothing matching is
// an empty result, not an error. Any reasoner error aborts the call;
// subjects whose annotations cannot be decoded are logged and skipped.
func (rt *Retriever) CharactersFor(ctx context.Context, concept owl.IRI) ([]string, error) {
	subs, err := rt.r.SubClasses(ctx, ConceptQuery(concept), false)
	if err != nil {
		return nil, fmt.Errorf("subclasses of has_part some %s: %w", concept, err)
	}

	var states []owl.IRI
	for _, sub := range subs {
		described, err := rt.g.IRIAnnotations(sub, vocab.DescribesState)
		if errors.Is(err, ontology.ErrMalformedAnnotationValue) {
			rt.skipMalformed(sub, vocab.DescribesState, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("states described by %s: %w", sub, err)
		}
		states = append(states, described...)
	}
	states = owl.SortIRIs(states)

	var characters []owl.IRI
	for _, s := range states {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := owl.ObjectHasValue{Property: vocab.CanHaveState, Individual: s}
		found, err := rt.r.Instances(ctx, q, false)
		if err != nil {
			return nil, fmt.Errorf("characters with state %s: %w", s, err)
		}
		characters = append(characters, found...)
	}
	characters = owl.SortIRIs(characters)

	seen := make(map[string]struct{})
	ids := []string{}
	for _, c := range characters {
		lits, err := rt.g.LiteralAnnotations(c, vocab.HasMxID)
		if errors.Is(err, ontology.ErrMalformedAnnotationValue) {
			rt.skipMalformed(c, vocab.HasMxID, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("identifiers of %s: %w", c, err)
		}
		for _, id := range lits {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	rt.log.Debug("retrieved characters",
		slog.String("concept", string(concept)),
		slog.Int("subclasses", len(subs)),
		slog.Int("states", len(states)),
		slog.Int("characters", len(characters)),
		slog.Int("identifiers", len(ids)))
	return ids, nil
}

func (rt *Retriever) skipMalformed(subject, property owl.IRI, err error) {
	rt.log.Warn("skipping malformed annotations",
		slog.String("subject", string(subject)),
		slog.String("property", string(property)),
		slog.Any("error", err))
}
