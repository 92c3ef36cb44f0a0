package reasoner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hymao/mxgraph/pkg/cache"
	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

func class(iri string) owl.Class {
	return owl.Class{IRI: owl.IRI(iri)}
}

func some(p string, f owl.ClassExpression) owl.ObjectSomeValuesFrom {
	return owl.ObjectSomeValuesFrom{Property: owl.IRI(p), Filler: f}
}

// anatomy builds a small part hierarchy:
//
//	Leg ⊑ Appendage, ForeLeg ⊑ Leg
//	LegBearing ⊑ has_part some Leg
//	ForeLegBearing ⊑ has_part some ForeLeg
//	AppendageBearing ≡ has_part some Appendage
//	Alias ≡ LegBearing
func anatomy(t *testing.T) *ontology.Ontology {
	t.Helper()
	o := ontology.New(storage.NewMemoryEngine())
	require.NoError(t, o.AddSubClassOf(class("ex:Leg"), class("ex:Appendage")))
	require.NoError(t, o.AddSubClassOf(class("ex:ForeLeg"), class("ex:Leg")))
	require.NoError(t, o.AddSubClassOf(class("ex:LegBearing"), some("ex:has_part", class("ex:Leg"))))
	require.NoError(t, o.AddSubClassOf(class("ex:ForeLegBearing"), some("ex:has_part", class("ex:ForeLeg"))))
	require.NoError(t, o.AddEquivalentClasses(class("ex:AppendageBearing"), some("ex:has_part", class("ex:Appendage"))))
	require.NoError(t, o.AddEquivalentClasses(class("ex:Alias"), class("ex:LegBearing")))
	require.NoError(t, o.Declare("ex:Unrelated", ontology.LabelClass))
	return o
}

func TestStructural_SubClasses(t *testing.T) {
	ctx := context.Background()
	r := NewStructural(anatomy(t))
	require.NoError(t, r.Classify(ctx))

	t.Run("existential_query", func(t *testing.T) {
		got, err := r.SubClasses(ctx, some("ex:has_part", class("ex:Leg")), false)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:Alias", "ex:ForeLegBearing", "ex:LegBearing"}, got)
	})

	t.Run("definition_classifies_named_class", func(t *testing.T) {
		got, err := r.SubClasses(ctx, class("ex:AppendageBearing"), false)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:Alias", "ex:ForeLegBearing", "ex:LegBearing"}, got)
	})

	t.Run("equivalents_excluded", func(t *testing.T) {
		got, err := r.SubClasses(ctx, some("ex:has_part", class("ex:Appendage")), false)
		require.NoError(t, err)
		assert.NotContains(t, got, owl.IRI("ex:AppendageBearing"))
		assert.NotContains(t, got, vocab.Nothing)
	})

	t.Run("direct", func(t *testing.T) {
		got, err := r.SubClasses(ctx, class("ex:Appendage"), true)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:Leg"}, got)

		got, err = r.SubClasses(ctx, class("ex:Appendage"), false)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:ForeLeg", "ex:Leg"}, got)
	})

	t.Run("no_subclasses", func(t *testing.T) {
		got, err := r.SubClasses(ctx, class("ex:Unrelated"), false)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStructural_SubProperties(t *testing.T) {
	ctx := context.Background()
	o := ontology.New(storage.NewMemoryEngine())
	require.NoError(t, o.AddSubObjectPropertyOf("ex:has_wing", "ex:has_limb"))
	require.NoError(t, o.AddSubObjectPropertyOf("ex:has_limb", "ex:has_part"))
	require.NoError(t, o.AddSubClassOf(class("ex:Winged"), some("ex:has_wing", class("ex:Wing"))))
	require.NoError(t, o.AddSubClassOf(class("ex:Sessile"), owl.ObjectAllValuesFrom{Property: "ex:has_part", Filler: class("ex:Wing")}))

	r := NewStructural(o)
	got, err := r.SubClasses(ctx, some("ex:has_part", class("ex:Wing")), false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:Winged"}, got)

	got, err = r.SubClasses(ctx, owl.ObjectAllValuesFrom{Property: "ex:has_wing", Filler: class("ex:Wing")}, false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:Sessile"}, got, "universal restrictions are contravariant in the property")
}

func TestStructural_Instances(t *testing.T) {
	ctx := context.Background()
	o := anatomy(t)
	require.NoError(t, o.AddObjectPropertyAssertion(vocab.CanHaveState, "ex:char1", "ex:state1"))
	require.NoError(t, o.AddObjectPropertyAssertion(vocab.CanHaveState, "ex:char2", "ex:state1"))
	require.NoError(t, o.AddObjectPropertyAssertion(vocab.CanHaveState, "ex:char2", "ex:state2"))
	require.NoError(t, o.AddObjectPropertyAssertion("ex:has_part", "ex:bee", "ex:leg1"))
	_, err := o.AddClassAssertion(class("ex:ForeLeg"), "ex:leg1")
	require.NoError(t, err)
	_, err = o.AddClassAssertion(class("ex:LegBearing"), "ex:ant")
	require.NoError(t, err)

	r := NewStructural(o)

	t.Run("has_value", func(t *testing.T) {
		got, err := r.Instances(ctx, owl.ObjectHasValue{Property: vocab.CanHaveState, Individual: "ex:state1"}, false)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:char1", "ex:char2"}, got)

		got, err = r.Instances(ctx, owl.ObjectHasValue{Property: vocab.CanHaveState, Individual: "ex:state9"}, false)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("existential_through_edges_and_types", func(t *testing.T) {
		got, err := r.Instances(ctx, some("ex:has_part", class("ex:Leg")), false)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:ant", "ex:bee"}, got)
	})

	t.Run("named_class_through_definition", func(t *testing.T) {
		got, err := r.Instances(ctx, class("ex:AppendageBearing"), false)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:ant", "ex:bee"}, got)
	})

	t.Run("direct_drops_instances_of_subclasses", func(t *testing.T) {
		got, err := r.Instances(ctx, class("ex:Leg"), false)
		require.NoError(t, err)
		assert.Equal(t, []owl.IRI{"ex:leg1"}, got)

		got, err = r.Instances(ctx, class("ex:Leg"), true)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStructural_InstancesOfLoadedDocument(t *testing.T) {
	ctx := context.Background()
	doc := fmt.Sprintf(`{
	  "nodes": [
	    {"id":"ex:char42","labels":["Character"],"properties":{}},
	    {"id":"ex:State17","labels":["State"],"properties":{}},
	    {"id":"ex:spec1","labels":[],"properties":{}},
	    {"id":"ex:Leg","labels":["Class"],"properties":{}}
	  ],
	  "relationships": [
	    {"id":"e1","type":%q,"startNode":"ex:char42","endNode":"ex:State17","properties":{}},
	    {"id":"e2","type":%q,"startNode":"ex:spec1","endNode":"ex:Leg","properties":{}}
	  ]
	}`, vocab.CanHaveState, vocab.Type)

	engine := storage.NewMemoryEngine()
	require.NoError(t, storage.LoadFromReader(engine, strings.NewReader(doc)))
	r := NewStructural(ontology.New(engine))

	got, err := r.Instances(ctx, owl.ObjectHasValue{Property: vocab.CanHaveState, Individual: "ex:State17"}, false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:char42"}, got)

	got, err = r.Instances(ctx, class("ex:Leg"), false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:spec1"}, got)
}

func TestStructural_Inconsistent(t *testing.T) {
	ctx := context.Background()
	o := ontology.New(storage.NewMemoryEngine())
	require.NoError(t, o.AddDisjointClasses(class("ex:Male"), class("ex:Female")))
	_, err := o.AddClassAssertion(class("ex:Male"), "ex:x")
	require.NoError(t, err)
	_, err = o.AddClassAssertion(class("ex:Female"), "ex:x")
	require.NoError(t, err)

	r := NewStructural(o)
	err = r.Classify(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistent)

	_, err = r.SubClasses(ctx, class("ex:Male"), false)
	var re *ReasoningError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KindSubClasses, re.Op)
	assert.ErrorIs(t, err, ErrInconsistent)

	t.Run("nothing_member", func(t *testing.T) {
		o := ontology.New(storage.NewMemoryEngine())
		require.NoError(t, o.AddSubClassOf(class("ex:Impossible"), owl.Class{IRI: vocab.Nothing}))
		_, err := o.AddClassAssertion(class("ex:Impossible"), "ex:y")
		require.NoError(t, err)
		assert.ErrorIs(t, NewStructural(o).Classify(ctx), ErrInconsistent)
	})
}

func TestStructural_Unsupported(t *testing.T) {
	r := NewStructural(ontology.New(storage.NewMemoryEngine()))
	_, err := r.Instances(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStructural_Reclassify(t *testing.T) {
	ctx := context.Background()
	o := ontology.New(storage.NewMemoryEngine())
	require.NoError(t, o.AddSubClassOf(class("ex:A"), class("ex:B")))

	r := NewStructural(o)
	got, err := r.SubClasses(ctx, class("ex:B"), false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:A"}, got)

	require.NoError(t, o.AddSubClassOf(class("ex:C"), class("ex:A")))
	got, err = r.SubClasses(ctx, class("ex:B"), false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:A"}, got, "answers reflect the last classification")

	require.NoError(t, r.Classify(ctx))
	got, err = r.SubClasses(ctx, class("ex:B"), false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:A", "ex:C"}, got)
}

// countingReasoner counts calls and returns a fixed answer.
type countingReasoner struct {
	calls int
	err   error
}

func (c *countingReasoner) Classify(ctx context.Context) error { return nil }

func (c *countingReasoner) SubClasses(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	c.calls++
	return []owl.IRI{"ex:A"}, c.err
}

func (c *countingReasoner) Instances(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []owl.IRI{"ex:i"}, nil
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingReasoner{}
	r := NewCached(inner, cache.NewResultCache(10, 0))

	q := class("ex:Q")
	first, err := r.Instances(ctx, q, false)
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := r.Instances(ctx, q, false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:i"}, second, "cached slices are copied")
	assert.Equal(t, 1, inner.calls)

	_, err = r.Instances(ctx, q, true)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "direct flag is part of the key")

	require.NoError(t, r.Classify(ctx))
	_, err = r.Instances(ctx, q, false)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls, "classify clears the cache")

	t.Run("errors_not_cached", func(t *testing.T) {
		failing := &countingReasoner{err: &ReasoningError{Op: KindInstances, Err: ErrInconsistent}}
		r := NewCached(failing, nil)
		_, err := r.Instances(ctx, q, false)
		assert.ErrorIs(t, err, ErrInconsistent)
		_, err = r.Instances(ctx, q, false)
		assert.Error(t, err)
		assert.Equal(t, 2, failing.calls)
	})
}
