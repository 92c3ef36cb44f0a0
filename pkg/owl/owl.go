// Package owl holds the small slice of the OWL 2 structural model that
// mxgraph works with: IRIs, the class expression constructors used by the
// phenotype and character queries, and annotation values.
//
// Every class expression has a canonical functional-syntax rendering
// returned by String. Two expressions are structurally equal exactly when
// their renderings are equal, which is what the storage mapping uses to give
// anonymous expressions a stable node ID.
//
// Example:
//
//	female := owl.ObjectAllValuesFrom{
//		Property: vocab.CanHaveState,
//		Filler: owl.ObjectAllValuesFrom{
//			Property: vocab.DenotesPhenotypeOf,
//			Filler:   owl.Class{IRI: vocab.FemaleOrganism},
//		},
//	}
//	fmt.Println(female) // ObjectAllValuesFrom(<...can_have_state> ObjectAllValuesFrom(...))
package owl

import (
	"sort"
	"strings"
)

// IRI identifies an entity in the graph.
type IRI string

// String returns the IRI in angle brackets, as functional syntax writes it.
func (i IRI) String() string {
	return "<" + string(i) + ">"
}

// ClassExpression is a named class or an anonymous class built from the
// supported constructors. The set of implementations is closed.
type ClassExpression interface {
	// String returns the canonical functional-syntax rendering.
	String() string
	isClassExpression()
}

// Class is a named class.
type Class struct {
	IRI IRI
}

// ObjectAllValuesFrom is the universal restriction "property only Filler".
type ObjectAllValuesFrom struct {
	Property IRI
	Filler   ClassExpression
}

// ObjectSomeValuesFrom is the existential restriction "property some Filler".
type ObjectSomeValuesFrom struct {
	Property IRI
	Filler   ClassExpression
}

// ObjectHasValue is the restriction "property value Individual".
type ObjectHasValue struct {
	Property   IRI
	Individual IRI
}

// ObjectIntersectionOf is the conjunction of its operands. Operand order
// does not matter; duplicates are ignored.
type ObjectIntersectionOf struct {
	Operands []ClassExpression
}

func (Class) isClassExpression()                {}
func (ObjectAllValuesFrom) isClassExpression()  {}
func (ObjectSomeValuesFrom) isClassExpression() {}
func (ObjectHasValue) isClassExpression()       {}
func (ObjectIntersectionOf) isClassExpression() {}

func (c Class) String() string {
	return c.IRI.String()
}

func (r ObjectAllValuesFrom) String() string {
	return "ObjectAllValuesFrom(" + r.Property.String() + " " + render(r.Filler) + ")"
}

func (r ObjectSomeValuesFrom) String() string {
	return "ObjectSomeValuesFrom(" + r.Property.String() + " " + render(r.Filler) + ")"
}

func (r ObjectHasValue) String() string {
	return "ObjectHasValue(" + r.Property.String() + " " + r.Individual.String() + ")"
}

func (x ObjectIntersectionOf) String() string {
	parts := operandStrings(x.Operands)
	return "ObjectIntersectionOf(" + strings.Join(parts, " ") + ")"
}

func render(ce ClassExpression) string {
	if ce == nil {
		return "owl:Thing"
	}
	return ce.String()
}

// operandStrings returns the sorted, de-duplicated renderings of ops.
func operandStrings(ops []ClassExpression) []string {
	seen := make(map[string]struct{}, len(ops))
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		s := render(op)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
	}
	sort.Strings(parts)
	return parts
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b ClassExpression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// IsNamed reports whether ce is a named class and returns its IRI.
func IsNamed(ce ClassExpression) (IRI, bool) {
	if c, ok := ce.(Class); ok {
		return c.IRI, true
	}
	return "", false
}

// Conjuncts flattens nested intersections into their operands. A
// non-intersection expression is its own single conjunct.
func Conjuncts(ce ClassExpression) []ClassExpression {
	x, ok := ce.(ObjectIntersectionOf)
	if !ok {
		return []ClassExpression{ce}
	}
	var out []ClassExpression
	for _, op := range x.Operands {
		out = append(out, Conjuncts(op)...)
	}
	return out
}

// SortIRIs sorts iris in place and drops duplicates.
func SortIRIs(iris []IRI) []IRI {
	if len(iris) == 0 {
		return iris
	}
	sort.Slice(iris, func(i, j int) bool { return iris[i] < iris[j] })
	out := iris[:1]
	for _, iri := range iris[1:] {
		if iri != out[len(out)-1] {
			out = append(out, iri)
		}
	}
	return out
}
