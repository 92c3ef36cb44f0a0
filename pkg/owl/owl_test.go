package owl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassExpression_String(t *testing.T) {
	tests := []struct {
		name string
		ce   ClassExpression
		want string
	}{
		{"class", Class{IRI: "http://x/A"}, "<http://x/A>"},
		{"has_value", ObjectHasValue{Property: "http://x/p", Individual: "http://x/i"}, "ObjectHasValue(<http://x/p> <http://x/i>)"},
		{
			"nested_only",
			ObjectAllValuesFrom{Property: "http://x/p", Filler: ObjectAllValuesFrom{Property: "http://x/q", Filler: Class{IRI: "http://x/F"}}},
			"ObjectAllValuesFrom(<http://x/p> ObjectAllValuesFrom(<http://x/q> <http://x/F>))",
		},
		{
			"some",
			ObjectSomeValuesFrom{Property: "http://x/p", Filler: Class{IRI: "http://x/C"}},
			"ObjectSomeValuesFrom(<http://x/p> <http://x/C>)",
		},
		{
			"intersection_sorted_and_deduplicated",
			ObjectIntersectionOf{Operands: []ClassExpression{Class{IRI: "http://x/B"}, Class{IRI: "http://x/A"}, Class{IRI: "http://x/B"}}},
			"ObjectIntersectionOf(<http://x/A> <http://x/B>)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ce.String())
		})
	}
}

func TestEqual(t *testing.T) {
	a := ObjectIntersectionOf{Operands: []ClassExpression{Class{IRI: "A"}, Class{IRI: "B"}}}
	b := ObjectIntersectionOf{Operands: []ClassExpression{Class{IRI: "B"}, Class{IRI: "A"}}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, Class{IRI: "A"}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestConjuncts(t *testing.T) {
	nested := ObjectIntersectionOf{Operands: []ClassExpression{
		Class{IRI: "A"},
		ObjectIntersectionOf{Operands: []ClassExpression{Class{IRI: "B"}, Class{IRI: "C"}}},
	}}
	assert.Len(t, Conjuncts(nested), 3)
	assert.Len(t, Conjuncts(Class{IRI: "A"}), 1)
}

func TestExpressionCodec(t *testing.T) {
	ce := ObjectIntersectionOf{Operands: []ClassExpression{
		ObjectSomeValuesFrom{Property: "p", Filler: Class{IRI: "C"}},
		ObjectAllValuesFrom{Property: "q", Filler: ObjectHasValue{Property: "r", Individual: "i"}},
	}}

	data, err := MarshalExpression(ce)
	require.NoError(t, err)

	decoded, err := UnmarshalExpression(data)
	require.NoError(t, err)
	assert.True(t, Equal(ce, decoded))

	t.Run("unknown_type", func(t *testing.T) {
		_, err := UnmarshalExpression([]byte(`{"type":"ObjectUnionOf"}`))
		assert.ErrorIs(t, err, ErrUnknownExpression)
	})

	t.Run("nil_expression", func(t *testing.T) {
		_, err := MarshalExpression(nil)
		assert.ErrorIs(t, err, ErrUnknownExpression)
	})
}

func TestAnnotationValue(t *testing.T) {
	iri := IRIValue("http://x/s")
	got, ok := iri.AsIRI()
	assert.True(t, ok)
	assert.Equal(t, IRI("http://x/s"), got)
	_, ok = iri.AsLiteral()
	assert.False(t, ok)
	assert.NoError(t, iri.Validate())

	lit := LiteralValue("42")
	l, ok := lit.AsLiteral()
	assert.True(t, ok)
	assert.Equal(t, "42", l.Lexical)
	_, ok = lit.AsIRI()
	assert.False(t, ok)

	assert.Error(t, AnnotationValue{}.Validate())
	assert.Error(t, AnnotationValue{IRI: "x", Literal: &Literal{}}.Validate())
}

func TestSortIRIs(t *testing.T) {
	assert.Equal(t, []IRI{"a", "b", "c"}, SortIRIs([]IRI{"c", "a", "b", "a"}))
	assert.Empty(t, SortIRIs(nil))
}
