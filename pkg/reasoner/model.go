package reasoner

import (
	"fmt"
	"sort"

	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/vocab"
)

var thing owl.ClassExpression = owl.Class{IRI: vocab.Thing}

type memoState uint8

const (
	memoUnknown memoState = iota
	memoPending
	memoTrue
	memoFalse
)

// conjunctiveAxiom is L1 ⊓ ... ⊓ Ln ⊑ Right with anonymous left side.
type conjunctiveAxiom struct {
	parts []string
	right owl.ClassExpression
}

// model is the classified form of a snapshot. Memo tables grow as queries
// are answered; the model is discarded when the ontology is reclassified.
type model struct {
	classes     []owl.IRI
	individuals []owl.IRI

	// told maps the canonical rendering of a left-hand side to the
	// expressions it is told to be subsumed by.
	told        map[string][]owl.ClassExpression
	conjunctive []conjunctiveAxiom

	// definitions maps a named class to the anonymous expressions it is
	// equivalent to.
	definitions map[owl.IRI][]owl.ClassExpression
	disjoint    []ontology.ClassAxiom
	propSupers  map[owl.IRI]map[owl.IRI]bool
	types       map[owl.IRI][]owl.ClassExpression
	edges       map[owl.IRI][]ontology.PropertyAssertion

	supersMemo map[string][]owl.ClassExpression
	subMemo    map[[2]string]memoState
	instMemo   map[[2]string]memoState

	// cycleHits counts answers cut short by a pending entry. A negative
	// answer computed while it grew is not memoized.
	cycleHits int
}

func newModel(snap *ontology.Snapshot) *model {
	m := &model{
		individuals: snap.Individuals,
		told:        make(map[string][]owl.ClassExpression),
		definitions: make(map[owl.IRI][]owl.ClassExpression),
		disjoint:    snap.DisjointClasses,
		propSupers:  make(map[owl.IRI]map[owl.IRI]bool),
		types:       make(map[owl.IRI][]owl.ClassExpression),
		edges:       make(map[owl.IRI][]ontology.PropertyAssertion),
		supersMemo:  make(map[string][]owl.ClassExpression),
		subMemo:     make(map[[2]string]memoState),
		instMemo:    make(map[[2]string]memoState),
	}

	classes := append([]owl.IRI(nil), snap.Classes...)
	for _, ax := range snap.SubClassOf {
		m.addTold(ax.Left, ax.Right)
	}
	for _, ax := range snap.EquivalentClasses {
		m.addTold(ax.Left, ax.Right)
		m.addTold(ax.Right, ax.Left)
		m.addDefinition(ax.Left, ax.Right)
		m.addDefinition(ax.Right, ax.Left)
	}
	for _, ax := range append(append([]ontology.ClassAxiom{}, snap.SubClassOf...), snap.EquivalentClasses...) {
		for _, ce := range []owl.ClassExpression{ax.Left, ax.Right} {
			if iri, ok := owl.IsNamed(ce); ok {
				classes = append(classes, iri)
			}
		}
	}
	m.classes = owl.SortIRIs(classes)

	for _, p := range snap.Properties {
		m.propSupers[p] = map[owl.IRI]bool{p: true}
	}
	for _, ax := range snap.SubObjectPropertyOf {
		if m.propSupers[ax.Sub] == nil {
			m.propSupers[ax.Sub] = map[owl.IRI]bool{ax.Sub: true}
		}
		m.propSupers[ax.Sub][ax.Super] = true
	}
	m.closeProperties()

	for _, a := range snap.ClassAssertions {
		m.types[a.Individual] = append(m.types[a.Individual], a.Class)
	}
	for _, pa := range snap.PropertyAssertions {
		m.edges[pa.Subject] = append(m.edges[pa.Subject], pa)
	}
	return m
}

func (m *model) addTold(left, right owl.ClassExpression) {
	if x, ok := left.(owl.ObjectIntersectionOf); ok && len(x.Operands) > 1 {
		var parts []string
		for _, c := range owl.Conjuncts(x) {
			parts = append(parts, c.String())
		}
		m.conjunctive = append(m.conjunctive, conjunctiveAxiom{parts: parts, right: right})
		return
	}
	key := left.String()
	m.told[key] = append(m.told[key], right)
}

func (m *model) addDefinition(named, def owl.ClassExpression) {
	iri, ok := owl.IsNamed(named)
	if !ok {
		return
	}
	if _, isNamed := owl.IsNamed(def); isNamed {
		return
	}
	m.definitions[iri] = append(m.definitions[iri], def)
}

// closeProperties makes propSupers reflexive and transitive.
func (m *model) closeProperties() {
	for changed := true; changed; {
		changed = false
		for _, supers := range m.propSupers {
			for mid := range supers {
				for super := range m.propSupers[mid] {
					if !supers[super] {
						supers[super] = true
						changed = true
					}
				}
			}
		}
	}
}

// subProperty reports whether p ⊑ r.
func (m *model) subProperty(p, r owl.IRI) bool {
	if p == r {
		return true
	}
	return m.propSupers[p][r]
}

// supers returns the told-subsumer closure of x, x itself and owl:Thing
// included.
func (m *model) supers(x owl.ClassExpression) []owl.ClassExpression {
	key := x.String()
	if s, ok := m.supersMemo[key]; ok {
		return s
	}

	set := make(map[string]owl.ClassExpression)
	var queue []owl.ClassExpression
	add := func(ce owl.ClassExpression) {
		k := ce.String()
		if _, ok := set[k]; !ok {
			set[k] = ce
			queue = append(queue, ce)
		}
	}
	add(x)
	add(thing)

	fired := make([]bool, len(m.conjunctive))
	for {
		for len(queue) > 0 {
			ce := queue[0]
			queue = queue[1:]
			for _, c := range owl.Conjuncts(ce) {
				add(c)
			}
			for _, r := range m.told[ce.String()] {
				add(r)
			}
		}

		progress := false
		for i, ax := range m.conjunctive {
			if fired[i] || !containsAll(set, ax.parts) {
				continue
			}
			fired[i] = true
			add(ax.right)
			progress = true
		}
		if !progress {
			break
		}
	}

	out := make([]owl.ClassExpression, 0, len(set))
	for _, ce := range set {
		out = append(out, ce)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	m.supersMemo[key] = out
	return out
}

func containsAll(set map[string]owl.ClassExpression, keys []string) bool {
	for _, k := range keys {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

// unsatisfiable reports whether x is told to be owl:Nothing.
func (m *model) unsatisfiable(x owl.ClassExpression) bool {
	for _, s := range m.supers(x) {
		if iri, ok := owl.IsNamed(s); ok && iri == vocab.Nothing {
			return true
		}
	}
	return false
}

// subsumes reports whether x ⊑ y.
func (m *model) subsumes(x, y owl.ClassExpression) bool {
	if iri, ok := owl.IsNamed(y); ok && iri == vocab.Thing {
		return true
	}
	key := [2]string{x.String(), y.String()}
	switch m.subMemo[key] {
	case memoTrue:
		return true
	case memoFalse:
		return false
	case memoPending:
		m.cycleHits++
		return false
	}
	m.subMemo[key] = memoPending
	hits := m.cycleHits

	result := m.unsatisfiable(x)
	if !result {
		result = true
		sup := m.supers(x)
		for _, c := range owl.Conjuncts(y) {
			if !m.entails(x, sup, c) {
				result = false
				break
			}
		}
	}

	switch {
	case result:
		m.subMemo[key] = memoTrue
	case m.cycleHits == hits:
		m.subMemo[key] = memoFalse
	default:
		delete(m.subMemo, key)
	}
	return result
}

// entails reports whether the subsumers sup of x imply the conjunct y.
func (m *model) entails(x owl.ClassExpression, sup []owl.ClassExpression, y owl.ClassExpression) bool {
	for _, s := range sup {
		if m.matches(s, y) {
			return true
		}
	}
	if iri, ok := owl.IsNamed(y); ok {
		for _, def := range m.definitions[iri] {
			if m.subsumes(x, def) {
				return true
			}
		}
	}
	return false
}

// matches compares a single subsumer s with a single conjunct y.
func (m *model) matches(s, y owl.ClassExpression) bool {
	switch want := y.(type) {
	case owl.Class:
		got, ok := s.(owl.Class)
		return ok && got.IRI == want.IRI
	case owl.ObjectSomeValuesFrom:
		switch got := s.(type) {
		case owl.ObjectSomeValuesFrom:
			return m.subProperty(got.Property, want.Property) && m.subsumes(got.Filler, want.Filler)
		case owl.ObjectHasValue:
			return m.subProperty(got.Property, want.Property) && m.instance(got.Individual, want.Filler)
		}
	case owl.ObjectAllValuesFrom:
		if got, ok := s.(owl.ObjectAllValuesFrom); ok {
			return m.subProperty(want.Property, got.Property) && m.subsumes(got.Filler, want.Filler)
		}
	case owl.ObjectHasValue:
		if got, ok := s.(owl.ObjectHasValue); ok {
			return got.Individual == want.Individual && m.subProperty(got.Property, want.Property)
		}
	}
	return false
}

// instance reports whether individual i is an instance of y.
func (m *model) instance(i owl.IRI, y owl.ClassExpression) bool {
	key := [2]string{string(i), y.String()}
	switch m.instMemo[key] {
	case memoTrue:
		return true
	case memoFalse:
		return false
	case memoPending:
		m.cycleHits++
		return false
	}
	m.instMemo[key] = memoPending
	hits := m.cycleHits

	result := true
	for _, c := range owl.Conjuncts(y) {
		if !m.instanceOfConjunct(i, c) {
			result = false
			break
		}
	}

	switch {
	case result:
		m.instMemo[key] = memoTrue
	case m.cycleHits == hits:
		m.instMemo[key] = memoFalse
	default:
		delete(m.instMemo, key)
	}
	return result
}

func (m *model) instanceOfConjunct(i owl.IRI, y owl.ClassExpression) bool {
	if iri, ok := owl.IsNamed(y); ok && iri == vocab.Thing {
		return true
	}
	for _, t := range m.types[i] {
		if m.subsumes(t, y) {
			return true
		}
	}

	switch want := y.(type) {
	case owl.Class:
		for _, def := range m.definitions[want.IRI] {
			if m.instance(i, def) {
				return true
			}
		}
	case owl.ObjectHasValue:
		for _, e := range m.edges[i] {
			if e.Object == want.Individual && m.subProperty(e.Property, want.Property) {
				return true
			}
		}
	case owl.ObjectSomeValuesFrom:
		for _, e := range m.edges[i] {
			if m.subProperty(e.Property, want.Property) && m.instance(e.Object, want.Filler) {
				return true
			}
		}
	}
	return false
}

// consistency returns an error wrapping ErrInconsistent when an individual
// is an instance of owl:Nothing or of two disjoint classes.
func (m *model) consistency() error {
	for _, i := range m.individuals {
		for _, t := range m.types[i] {
			if m.unsatisfiable(t) {
				return fmt.Errorf("%w: %s is an instance of unsatisfiable %s", ErrInconsistent, i, t)
			}
		}
		for _, ax := range m.disjoint {
			if m.instance(i, ax.Left) && m.instance(i, ax.Right) {
				return fmt.Errorf("%w: %s is an instance of disjoint classes %s and %s", ErrInconsistent, i, ax.Left, ax.Right)
			}
		}
	}
	return nil
}

// subClasses implements Reasoner.SubClasses on a classified model.
func (m *model) subClasses(q owl.ClassExpression, direct bool) []owl.IRI {
	var found []owl.IRI
	for _, c := range m.classes {
		if c == vocab.Nothing || c == vocab.Thing {
			continue
		}
		ce := owl.Class{IRI: c}
		if m.unsatisfiable(ce) {
			continue
		}
		if m.subsumes(ce, q) && !m.subsumes(q, ce) {
			found = append(found, c)
		}
	}
	if !direct {
		return found
	}

	var out []owl.IRI
	for _, c := range found {
		if !m.hasStrictSuperIn(c, found) {
			out = append(out, c)
		}
	}
	return out
}

// hasStrictSuperIn reports whether some class of set is strictly above c.
func (m *model) hasStrictSuperIn(c owl.IRI, set []owl.IRI) bool {
	ce := owl.Class{IRI: c}
	for _, d := range set {
		if d == c {
			continue
		}
		de := owl.Class{IRI: d}
		if m.subsumes(ce, de) && !m.subsumes(de, ce) {
			return true
		}
	}
	return false
}

// instances implements Reasoner.Instances on a classified model.
func (m *model) instances(q owl.ClassExpression, direct bool) []owl.IRI {
	var found []owl.IRI
	for _, i := range m.individuals {
		if m.instance(i, q) {
			found = append(found, i)
		}
	}
	if !direct {
		return found
	}

	below := m.subClasses(q, false)
	var out []owl.IRI
	for _, i := range found {
		inSub := false
		for _, c := range below {
			if m.instance(i, owl.Class{IRI: c}) {
				inSub = true
				break
			}
		}
		if !inSub {
			out = append(out, i)
		}
	}
	return out
}
