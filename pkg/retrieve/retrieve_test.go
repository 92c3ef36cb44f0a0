package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/reasoner"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// stubReasoner answers from fixed tables keyed by canonical rendering.
type stubReasoner struct {
	subclasses map[string][]owl.IRI
	instances  map[string][]owl.IRI
	err        error
	queries    []string
}

func (s *stubReasoner) Classify(ctx context.Context) error { return nil }

func (s *stubReasoner) SubClasses(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	s.queries = append(s.queries, ce.String())
	if s.err != nil {
		return nil, s.err
	}
	return s.subclasses[ce.String()], nil
}

func (s *stubReasoner) Instances(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	s.queries = append(s.queries, ce.String())
	if s.err != nil {
		return nil, s.err
	}
	return s.instances[ce.String()], nil
}

func hasState(s owl.IRI) string {
	return owl.ObjectHasValue{Property: vocab.CanHaveState, Individual: s}.String()
}

func annotate(t *testing.T, o *ontology.Ontology, subject, property owl.IRI, v owl.AnnotationValue) {
	t.Helper()
	require.NoError(t, o.AddAnnotationAssertion(subject, property, v))
}

func TestCharactersFor_Stub(t *testing.T) {
	ctx := context.Background()
	o := ontology.New(storage.NewMemoryEngine())
	annotate(t, o, "ex:P1", vocab.DescribesState, owl.IRIValue("ex:St1"))
	annotate(t, o, "ex:P1", vocab.DescribesState, owl.LiteralValue("not a state"))
	annotate(t, o, "ex:P2", vocab.DescribesState, owl.IRIValue("ex:St1"))
	annotate(t, o, "ex:P2", vocab.DescribesState, owl.IRIValue("ex:St2"))
	annotate(t, o, "ex:C1", vocab.HasMxID, owl.LiteralValue("17"))
	annotate(t, o, "ex:C2", vocab.HasMxID, owl.LiteralValue("4"))
	annotate(t, o, "ex:C2", vocab.HasMxID, owl.IRIValue("ex:not-an-id"))
	annotate(t, o, "ex:C3", vocab.HasMxID, owl.LiteralValue("17"))

	r := &stubReasoner{
		subclasses: map[string][]owl.IRI{
			ConceptQuery("ex:Leg").String(): {"ex:P1", "ex:P2"},
		},
		instances: map[string][]owl.IRI{
			hasState("ex:St1"): {"ex:C1", "ex:C3"},
			hasState("ex:St2"): {"ex:C2", "ex:C1"},
		},
	}

	got, err := New(o, r).CharactersFor(ctx, "ex:Leg")
	require.NoError(t, err)
	assert.Equal(t, []string{"17", "4"}, got)

	t.Run("each_state_queried_once", func(t *testing.T) {
		assert.Equal(t, []string{
			ConceptQuery("ex:Leg").String(),
			hasState("ex:St1"),
			hasState("ex:St2"),
		}, r.queries)
	})

	t.Run("unknown_concept_is_empty", func(t *testing.T) {
		got, err := New(o, r).CharactersFor(ctx, "ex:Nowhere")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestCharactersFor_MalformedAnnotations(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewMemoryEngine()
	o := ontology.New(engine)
	for _, id := range []storage.NodeID{"ex:P1", "ex:C2"} {
		require.NoError(t, engine.CreateNode(&storage.Node{
			ID:         id,
			Labels:     []string{ontology.LabelClass},
			Properties: map[string]any{"annotations": "not json"},
		}))
	}
	annotate(t, o, "ex:P2", vocab.DescribesState, owl.IRIValue("ex:St"))
	annotate(t, o, "ex:C1", vocab.HasMxID, owl.LiteralValue("8"))

	r := &stubReasoner{
		subclasses: map[string][]owl.IRI{
			ConceptQuery("ex:Leg").String(): {"ex:P1", "ex:P2"},
		},
		instances: map[string][]owl.IRI{
			hasState("ex:St"): {"ex:C1", "ex:C2"},
		},
	}

	got, err := New(o, r).CharactersFor(ctx, "ex:Leg")
	require.NoError(t, err)
	assert.Equal(t, []string{"8"}, got)
}

func TestCharactersFor_ReasonerError(t *testing.T) {
	r := &stubReasoner{err: &reasoner.ReasoningError{Op: reasoner.KindSubClasses, Err: reasoner.ErrInconsistent}}
	got, err := New(ontology.New(storage.NewMemoryEngine()), r).CharactersFor(context.Background(), "ex:Leg")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, reasoner.ErrInconsistent)

	var re *reasoner.ReasoningError
	assert.ErrorAs(t, err, &re)
}

// TestCharactersFor_Structural runs the retriever over a small ontology
// with the structural reasoner:
//
//	ForeLeg ⊑ Leg
//	ForeLegLong ⊑ has_part some ForeLeg, describes_state St1
//	LegShort ≡ has_part some Leg, describes_state St2
//	WingBroad ⊑ has_part some Wing, describes_state St3
//	C1 can_have_state St1, C2 can_have_state St3
func TestCharactersFor_Structural(t *testing.T) {
	ctx := context.Background()
	o := ontology.New(storage.NewMemoryEngine())
	part := func(c owl.IRI) owl.ClassExpression { return ConceptQuery(c) }

	require.NoError(t, o.AddSubClassOf(owl.Class{IRI: "ex:ForeLeg"}, owl.Class{IRI: "ex:Leg"}))
	require.NoError(t, o.AddSubClassOf(owl.Class{IRI: "ex:ForeLegLong"}, part("ex:ForeLeg")))
	require.NoError(t, o.AddEquivalentClasses(owl.Class{IRI: "ex:LegShort"}, part("ex:Leg")))
	require.NoError(t, o.AddSubClassOf(owl.Class{IRI: "ex:WingBroad"}, part("ex:Wing")))
	annotate(t, o, "ex:ForeLegLong", vocab.DescribesState, owl.IRIValue("ex:St1"))
	annotate(t, o, "ex:LegShort", vocab.DescribesState, owl.IRIValue("ex:St2"))
	annotate(t, o, "ex:WingBroad", vocab.DescribesState, owl.IRIValue("ex:St3"))
	require.NoError(t, o.AddObjectPropertyAssertion(vocab.CanHaveState, "ex:C1", "ex:St1"))
	require.NoError(t, o.AddObjectPropertyAssertion(vocab.CanHaveState, "ex:C2", "ex:St3"))
	annotate(t, o, "ex:C1", vocab.HasMxID, owl.LiteralValue("101"))
	annotate(t, o, "ex:C2", vocab.HasMxID, owl.LiteralValue("202"))

	r := reasoner.NewCached(reasoner.NewStructural(o), nil)
	require.NoError(t, r.Classify(ctx))
	rt := New(o, r)

	got, err := rt.CharactersFor(ctx, "ex:Leg")
	require.NoError(t, err)
	assert.Equal(t, []string{"101"}, got, "equivalents of the query are not subclasses")

	got, err = rt.CharactersFor(ctx, "ex:Wing")
	require.NoError(t, err)
	assert.Equal(t, []string{"202"}, got)

	got, err = rt.CharactersFor(ctx, "ex:ForeLeg")
	require.NoError(t, err)
	assert.Equal(t, []string{"101"}, got)

	got, err = rt.CharactersFor(ctx, "ex:Antenna")
	require.NoError(t, err)
	assert.Empty(t, got)
}
