package propagate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/specimen"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

var (
	phenotype = owl.Class{IRI: "ex:LongWings"}
	female    = owl.Class{IRI: vocab.FemaleOrganism}
)

type fixture struct {
	t   *testing.T
	o   *ontology.Ontology
	log *slog.Logger
	buf *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	var buf bytes.Buffer
	return &fixture{
		t:   t,
		o:   ontology.New(storage.NewMemoryEngine()),
		log: slog.New(slog.NewTextHandler(&buf, nil)),
		buf: &buf,
	}
}

func (f *fixture) typed(ind owl.IRI, ce owl.ClassExpression) {
	f.t.Helper()
	_, err := f.o.AddClassAssertion(ce, ind)
	require.NoError(f.t, err)
}

func (f *fixture) edge(subject, property, object owl.IRI) {
	f.t.Helper()
	require.NoError(f.t, f.o.AddObjectPropertyAssertion(property, subject, object))
}

// specimenOf records occ as an Occurrence determined as taxon.
func (f *fixture) specimenOf(occ, taxon owl.IRI) {
	f.t.Helper()
	det := occ + "-det"
	f.typed(occ, owl.Class{IRI: vocab.Occurrence})
	f.edge(occ, vocab.IdentificationID, det)
	f.edge(det, vocab.TaxonID, taxon)
}

// datum records that the taxon behind otu shows state of character.
func (f *fixture) datum(d, otu, taxon, state, character owl.IRI) {
	f.t.Helper()
	f.typed(d, owl.Class{IRI: vocab.CharacterStateDatum})
	f.edge(d, vocab.BelongsToTU, otu)
	f.edge(otu, vocab.HasExternalReference, taxon)
	f.edge(d, vocab.HasState, state)
	f.edge(d, vocab.BelongsToCharacter, character)
}

func (f *fixture) denotes(state owl.IRI, p owl.ClassExpression) {
	f.t.Helper()
	f.typed(state, owl.ObjectAllValuesFrom{Property: vocab.DenotesPhenotypeOf, Filler: p})
}

func (f *fixture) run(opts Options) *Result {
	f.t.Helper()
	ctx := context.Background()
	idx, _, err := specimen.Build(ctx, f.o, specimen.Options{Logger: f.log})
	require.NoError(f.t, err)
	if opts.Logger == nil {
		opts.Logger = f.log
	}
	res, err := New(f.o, opts).Apply(ctx, idx)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) hasType(ind owl.IRI, ce owl.ClassExpression) bool {
	f.t.Helper()
	ok, err := f.o.HasType(ind, ce)
	require.NoError(f.t, err)
	return ok
}

// base builds taxon T with a female specimen S1 and a male specimen S2,
// and one datum D1 giving T the state St of character C.
func base(t *testing.T) *fixture {
	f := newFixture(t)
	f.specimenOf("ex:S1", "ex:T")
	f.specimenOf("ex:S2", "ex:T")
	f.typed("ex:S1", female)
	f.denotes("ex:St", phenotype)
	f.datum("ex:D1", "ex:OTU1", "ex:T", "ex:St", "ex:C")
	return f
}

func TestApply_UnrestrictedCharacter(t *testing.T) {
	f := base(t)
	res := f.run(Options{})

	require.Len(t, res.Assertions, 2)
	assert.Equal(t, owl.IRI("ex:S1"), res.Assertions[0].Specimen)
	assert.Equal(t, owl.IRI("ex:S2"), res.Assertions[1].Specimen)
	assert.True(t, f.hasType("ex:S1", phenotype))
	assert.True(t, f.hasType("ex:S2", phenotype))
	assert.Zero(t, res.Suppressed)
	assert.Equal(t, 1, res.Data)
}

func TestApply_FemaleOnlyCharacter(t *testing.T) {
	f := base(t)
	f.typed("ex:C", FemaleCharacterClass())
	res := f.run(Options{})

	require.Len(t, res.Assertions, 1)
	assert.Equal(t, owl.IRI("ex:S1"), res.Assertions[0].Specimen)
	assert.True(t, f.hasType("ex:S1", phenotype))
	assert.False(t, f.hasType("ex:S2", phenotype))
	assert.Equal(t, 1, res.Suppressed)

	t.Run("other_restrictions_do_not_make_a_character_female_only", func(t *testing.T) {
		f := base(t)
		f.typed("ex:C", owl.ObjectAllValuesFrom{
			Property: vocab.CanHaveState,
			Filler:   owl.ObjectAllValuesFrom{Property: vocab.DenotesPhenotypeOf, Filler: owl.Class{IRI: "ex:Male"}},
		})
		assert.Len(t, f.run(Options{}).Assertions, 2)
	})
}

func TestApply_Provenance(t *testing.T) {
	f := base(t)
	f.datum("ex:D2", "ex:OTU2", "ex:T", "ex:St", "ex:C")
	res := f.run(Options{})
	require.Len(t, res.Assertions, 4)

	assertions, err := f.o.ClassAssertionsOf("ex:S2")
	require.NoError(t, err)

	var derived []ontology.ClassAssertion
	for _, a := range assertions {
		if a.Derived {
			derived = append(derived, a)
		}
	}
	require.Len(t, derived, 2, "one assertion per datum, never merged")

	var sources []owl.IRI
	for _, a := range derived {
		assert.True(t, owl.Equal(phenotype, a.Class))
		require.Len(t, a.Annotations, 1)
		assert.Equal(t, vocab.PositedBy, a.Annotations[0].Property)
		src, ok := a.Annotations[0].Value.AsIRI()
		require.True(t, ok)
		sources = append(sources, src)
	}
	assert.ElementsMatch(t, []owl.IRI{"ex:D1", "ex:D2"}, sources)
}

func TestApply_RerunKeepsTypeSet(t *testing.T) {
	f := base(t)
	f.run(Options{})
	before, err := f.o.Types("ex:S2")
	require.NoError(t, err)

	f.run(Options{})
	after, err := f.o.Types("ex:S2")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApply_SkipsIncompleteData(t *testing.T) {
	f := base(t)
	f.typed("ex:D0", owl.Class{IRI: vocab.CharacterStateDatum}) // no links at all
	f.typed("ex:D9", owl.Class{IRI: vocab.CharacterStateDatum})
	f.edge("ex:D9", vocab.BelongsToTU, "ex:OTU9") // OTU without taxon

	res := f.run(Options{})
	assert.Len(t, res.Assertions, 2)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, owl.IRI("ex:D0"), res.Skipped[0].Datum)
	assert.Equal(t, SkipMissingOTU, res.Skipped[0].Reason)
	assert.Equal(t, owl.IRI("ex:D9"), res.Skipped[1].Datum)
	assert.Equal(t, SkipMissingTaxon, res.Skipped[1].Reason)
	assert.ErrorIs(t, res.Skipped[1].Err, ontology.ErrMissingRelationValue)
	assert.Contains(t, f.buf.String(), "skipping character state datum")
}

func TestApply_TaxonWithoutSpecimens(t *testing.T) {
	f := newFixture(t)
	f.denotes("ex:St", phenotype)
	f.datum("ex:D1", "ex:OTU1", "ex:Lonely", "ex:St", "ex:C")

	res := f.run(Options{})
	assert.Empty(t, res.Assertions)
	assert.Empty(t, res.Skipped)
}

func TestApply_StrictDenotesProperty(t *testing.T) {
	f := base(t)
	other := owl.Class{IRI: "ex:Other"}
	f.typed("ex:St", owl.ObjectAllValuesFrom{Property: "ex:unrelated", Filler: other})

	res := f.run(Options{})
	assert.Len(t, res.Assertions, 4)

	f = base(t)
	f.typed("ex:St", owl.ObjectAllValuesFrom{Property: "ex:unrelated", Filler: other})
	res = f.run(Options{StrictDenotesProperty: true})
	assert.Len(t, res.Assertions, 2)
	assert.False(t, f.hasType("ex:S1", other))
}

func TestApply_AmbiguousRelation(t *testing.T) {
	f := base(t)
	f.specimenOf("ex:S3", "ex:A")
	f.edge("ex:OTU1", vocab.HasExternalReference, "ex:A")

	res := f.run(Options{})
	assert.Equal(t, 1, res.Ambiguous)
	require.Len(t, res.Assertions, 1, "smallest taxon IRI wins")
	assert.Equal(t, owl.IRI("ex:S3"), res.Assertions[0].Specimen)
}

func TestApply_NoIndex(t *testing.T) {
	_, err := New(ontology.New(storage.NewMemoryEngine()), Options{}).Apply(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoIndex)
}

type failingGraph struct {
	*ontology.Ontology
}

var errWrite = errors.New("disk full")

func (failingGraph) AddDerivedClassAssertion(owl.ClassExpression, owl.IRI, ...owl.Annotation) (storage.EdgeID, error) {
	return "", errWrite
}

func TestApply_WriteError(t *testing.T) {
	f := base(t)
	idx, _, err := specimen.Build(context.Background(), f.o, specimen.Options{Logger: f.log})
	require.NoError(t, err)

	_, err = New(failingGraph{f.o}, Options{Logger: f.log}).Apply(context.Background(), idx)
	assert.ErrorIs(t, err, errWrite)
}

func TestFemaleCharacterClass(t *testing.T) {
	assert.Equal(t,
		"ObjectAllValuesFrom(<"+string(vocab.CanHaveState)+"> ObjectAllValuesFrom(<"+
			string(vocab.DenotesPhenotypeOf)+"> <"+string(vocab.FemaleOrganism)+">))",
		FemaleCharacterClass().String())
	assert.True(t, owl.Equal(FemaleCharacterClass(), FemaleCharacterClass()))
}
