// Package propagate copies phenotype annotations from taxa to specimens.
//
// A character state datum records that the taxon behind an OTU shows a
// state of a character. The state's universal restrictions name the
// phenotype classes it denotes. Every specimen determined as the taxon is
// asserted to be an instance of each of those phenotypes, unless the
// character only applies to females and the specimen is not known to be
// female. Each new assertion is annotated with phenoscape:posited_by
// pointing back at the datum it came from.
package propagate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/specimen"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// ErrNoIndex is returned by Apply when called without a specimen index.
var ErrNoIndex = errors.New("specimen index not built")

// Graph is the part of the ontology the propagator reads and writes.
type Graph interface {
	IndividualsOf(class owl.IRI) ([]owl.IRI, error)
	SingleObjectValue(subject, property owl.IRI) (owl.IRI, int, error)
	Types(individual owl.IRI) ([]owl.ClassExpression, error)
	AddDerivedClassAssertion(ce owl.ClassExpression, individual owl.IRI, annotations ...owl.Annotation) (storage.EdgeID, error)
}

// Options configures a Propagator.
type Options struct {
	// StrictDenotesProperty limits phenotype restrictions on a state to
	// those on mx:denotes_phenotype_of. By default every universal
	// restriction on the state is taken as a phenotype.
	StrictDenotesProperty bool

	Logger *slog.Logger
}

// SkipReason says why a datum produced no assertions.
type SkipReason string

const (
	SkipMissingOTU       SkipReason = "missing_otu"
	SkipMissingTaxon     SkipReason = "missing_taxon"
	SkipMissingState     SkipReason = "missing_state"
	SkipMissingCharacter SkipReason = "missing_character"
)

// Skip is a datum that could not be resolved.
type Skip struct {
	Datum  owl.IRI
	Reason SkipReason
	Err    error
}

// Assertion is one class assertion added to a specimen.
type Assertion struct {
	Specimen  owl.IRI
	Phenotype owl.ClassExpression
	Datum     owl.IRI
	Edge      storage.EdgeID
}

// Result summarizes a propagation pass.
type Result struct {
	// Data is the number of character state datums visited.
	Data       int
	Assertions []Assertion
	Skipped    []Skip

	// Suppressed counts specimen/phenotype pairs withheld because the
	// character is female-only and the specimen is not female.
	Suppressed int

	// Ambiguous counts relations that had several values.
	Ambiguous int
}

// FemaleCharacterClass returns the class of characters whose states only
// denote phenotypes of female organisms:
//
//	ObjectAllValuesFrom(mx:can_have_state
//	    ObjectAllValuesFrom(mx:denotes_phenotype_of HAO:0000028))
func FemaleCharacterClass() owl.ClassExpression {
	return owl.ObjectAllValuesFrom{
		Property: vocab.CanHaveState,
		Filler: owl.ObjectAllValuesFrom{
			Property: vocab.DenotesPhenotypeOf,
			Filler:   owl.Class{IRI: vocab.FemaleOrganism},
		},
	}
}

// Propagator runs one propagation pass. Sex-restriction answers are cached
// for the lifetime of the Propagator, so use a new one per run.
type Propagator struct {
	g    Graph
	opts Options
	log  *slog.Logger

	femaleClass     owl.ClassExpression
	femaleCharacter map[owl.IRI]bool
	femaleSpecimen  map[owl.IRI]bool
}

// New returns a Propagator writing to g.
func New(g Graph, opts Options) *Propagator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Propagator{
		g:               g,
		opts:            opts,
		log:             log,
		femaleClass:     FemaleCharacterClass(),
		femaleCharacter: make(map[owl.IRI]bool),
		femaleSpecimen:  make(map[owl.IRI]bool),
	}
}

// Apply visits every cdao:CharacterStateDatum in IRI order and adds the
// phenotype assertions it implies. Data that cannot be resolved are skipped
// and reported in the Result. Assertions already written stay in the graph
// if Apply fails part way.
func (p *Propagator) Apply(ctx context.Context, idx *specimen.Index) (*Result, error) {
	if idx == nil {
		return nil, ErrNoIndex
	}

	data, err := p.g.IndividualsOf(vocab.CharacterStateDatum)
	if err != nil {
		return nil, fmt.Errorf("listing character state data: %w", err)
	}

	res := &Result{Data: len(data)}
	for _, d := range data {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.applyDatum(d, idx, res); err != nil {
			return res, fmt.Errorf("datum %s: %w", d, err)
		}
	}

	p.log.Info("propagated phenotype annotations",
		slog.Int("data", res.Data),
		slog.Int("assertions", len(res.Assertions)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("suppressed", res.Suppressed))
	return res, nil
}

func (p *Propagator) applyDatum(d owl.IRI, idx *specimen.Index, res *Result) error {
	otu, ok, err := p.resolve(d, d, vocab.BelongsToTU, SkipMissingOTU, res)
	if err != nil || !ok {
		return err
	}
	taxon, ok, err := p.resolve(d, otu, vocab.HasExternalReference, SkipMissingTaxon, res)
	if err != nil || !ok {
		return err
	}
	state, ok, err := p.resolve(d, d, vocab.HasState, SkipMissingState, res)
	if err != nil || !ok {
		return err
	}
	character, ok, err := p.resolve(d, d, vocab.BelongsToCharacter, SkipMissingCharacter, res)
	if err != nil || !ok {
		return err
	}

	femaleOnly, err := p.isFemaleCharacter(character)
	if err != nil {
		return err
	}
	phenotypes, err := p.phenotypes(state)
	if err != nil {
		return err
	}
	specimens := idx.Specimens(taxon)

	posited := owl.Annotation{Property: vocab.PositedBy, Value: owl.IRIValue(d)}
	for _, phenotype := range phenotypes {
		for _, s := range specimens {
			if femaleOnly {
				female, err := p.isFemaleSpecimen(s)
				if err != nil {
					return err
				}
				if !female {
					res.Suppressed++
					continue
				}
			}
			edge, err := p.g.AddDerivedClassAssertion(phenotype, s, posited)
			if err != nil {
				return err
			}
			res.Assertions = append(res.Assertions, Assertion{
				Specimen:  s,
				Phenotype: phenotype,
				Datum:     d,
				Edge:      edge,
			})
		}
	}
	return nil
}

// resolve follows a single-valued relation of a datum's chain. A missing
// value records a Skip and returns ok=false.
func (p *Propagator) resolve(d, subject, property owl.IRI, reason SkipReason, res *Result) (owl.IRI, bool, error) {
	value, n, err := p.g.SingleObjectValue(subject, property)
	if errors.Is(err, ontology.ErrMissingRelationValue) {
		res.Skipped = append(res.Skipped, Skip{Datum: d, Reason: reason, Err: err})
		p.log.Warn("skipping character state datum",
			slog.String("datum", string(d)),
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()))
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if n > 1 {
		res.Ambiguous++
		p.log.Warn("relation has several values, using the smallest",
			slog.String("datum", string(d)),
			slog.String("subject", string(subject)),
			slog.String("property", string(property)),
			slog.Int("values", n),
			slog.String("chosen", string(value)))
	}
	return value, true, nil
}

// phenotypes returns the fillers of the universal restrictions on state.
func (p *Propagator) phenotypes(state owl.IRI) ([]owl.ClassExpression, error) {
	types, err := p.g.Types(state)
	if err != nil {
		return nil, fmt.Errorf("types of state %s: %w", state, err)
	}
	var out []owl.ClassExpression
	for _, t := range types {
		r, ok := t.(owl.ObjectAllValuesFrom)
		if !ok {
			continue
		}
		if p.opts.StrictDenotesProperty && r.Property != vocab.DenotesPhenotypeOf {
			continue
		}
		out = append(out, r.Filler)
	}
	return out, nil
}

// isFemaleCharacter reports whether character is asserted to be a
// FemaleCharacterClass. Answers are cached per character.
func (p *Propagator) isFemaleCharacter(character owl.IRI) (bool, error) {
	if v, ok := p.femaleCharacter[character]; ok {
		return v, nil
	}
	types, err := p.g.Types(character)
	if err != nil {
		return false, fmt.Errorf("types of character %s: %w", character, err)
	}
	v := false
	for _, t := range types {
		if owl.Equal(t, p.femaleClass) {
			v = true
			break
		}
	}
	p.femaleCharacter[character] = v
	return v, nil
}

// isFemaleSpecimen reports whether specimen is asserted to be a female
// organism. Answers are cached per specimen.
func (p *Propagator) isFemaleSpecimen(s owl.IRI) (bool, error) {
	if v, ok := p.femaleSpecimen[s]; ok {
		return v, nil
	}
	types, err := p.g.Types(s)
	if err != nil {
		return false, fmt.Errorf("types of specimen %s: %w", s, err)
	}
	v := false
	for _, t := range types {
		if iri, ok := owl.IsNamed(t); ok && iri == vocab.FemaleOrganism {
			v = true
			break
		}
	}
	p.femaleSpecimen[s] = v
	return v, nil
}
