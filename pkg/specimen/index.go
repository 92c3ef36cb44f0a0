// Package specimen builds the taxon to specimen index.
//
// Every Darwin Core Occurrence is followed through dwc:identificationID to
// its Determination and through dwc:taxonID to its Taxon. The index maps
// each Taxon to the Occurrences determined as it. It is built once, before
// any assertion is propagated, and never changes afterwards.
package specimen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// Graph is the part of the ontology the index reads.
type Graph interface {
	IndividualsOf(class owl.IRI) ([]owl.IRI, error)
	SingleObjectValue(subject, property owl.IRI) (owl.IRI, int, error)
}

// MissingPolicy says what to do with an Occurrence whose Determination or
// Taxon is missing.
type MissingPolicy int

const (
	// MissingWarn skips the Occurrence and logs a warning.
	MissingWarn MissingPolicy = iota
	// MissingIgnore skips the Occurrence silently.
	MissingIgnore
	// MissingFail aborts the build.
	MissingFail
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingWarn:
		return "warn"
	case MissingIgnore:
		return "ignore"
	case MissingFail:
		return "fail"
	}
	return fmt.Sprintf("MissingPolicy(%d)", int(p))
}

// ParseMissingPolicy parses "warn", "ignore" or "fail".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return MissingWarn, nil
	case "ignore":
		return MissingIgnore, nil
	case "fail":
		return MissingFail, nil
	}
	return 0, fmt.Errorf("unknown missing-value policy %q (want warn, ignore or fail)", s)
}

// Options configures Build.
type Options struct {
	Policy MissingPolicy
	Logger *slog.Logger
}

// FindingKind classifies a data-quality finding.
type FindingKind string

const (
	// FindingMissingValue is a relation with no value. The Occurrence was
	// left out of the index.
	FindingMissingValue FindingKind = "missing_relation_value"
	// FindingMultipleValues is a relation with several values. The
	// smallest IRI was used.
	FindingMultipleValues FindingKind = "multiple_values"
)

// Finding is one data-quality problem met while building the index.
type Finding struct {
	Kind       FindingKind
	Occurrence owl.IRI
	Subject    owl.IRI
	Property   owl.IRI
	Values     int
}

func (f Finding) String() string {
	if f.Kind == FindingMultipleValues {
		return fmt.Sprintf("%s: %s has %d values for %s", f.Occurrence, f.Subject, f.Values, f.Property)
	}
	return fmt.Sprintf("%s: %s has no value for %s", f.Occurrence, f.Subject, f.Property)
}

// Report summarizes a build.
type Report struct {
	Occurrences int
	Indexed     int
	Findings    []Finding
}

// Skipped returns the number of Occurrences left out of the index.
func (r *Report) Skipped() int {
	return r.Occurrences - r.Indexed
}

// Count returns the number of findings of the given kind.
func (r *Report) Count(kind FindingKind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Index maps taxa to the specimens determined as them. The zero value is
// an empty index.
type Index struct {
	byTaxon map[owl.IRI][]owl.IRI
}

// Specimens returns the specimens of taxon, sorted. A taxon without
// specimens has none (nil).
func (ix *Index) Specimens(taxon owl.IRI) []owl.IRI {
	specimens, ok := ix.byTaxon[taxon]
	if !ok {
		return nil
	}
	return append([]owl.IRI(nil), specimens...)
}

// Has reports whether taxon has at least one specimen.
func (ix *Index) Has(taxon owl.IRI) bool {
	_, ok := ix.byTaxon[taxon]
	return ok
}

// Taxa returns every taxon with specimens, sorted.
func (ix *Index) Taxa() []owl.IRI {
	out := make([]owl.IRI, 0, len(ix.byTaxon))
	for t := range ix.byTaxon {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of taxa in the index.
func (ix *Index) Len() int {
	return len(ix.byTaxon)
}

// Build reads every Occurrence of g and returns the finished index with a
// report of what was left out.
func Build(ctx context.Context, g Graph, opts Options) (*Index, *Report, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	occurrences, err := g.IndividualsOf(vocab.Occurrence)
	if err != nil {
		return nil, nil, fmt.Errorf("listing occurrences: %w", err)
	}

	b := builder{
		g:      g,
		policy: opts.Policy,
		log:    log,
		index:  &Index{byTaxon: make(map[owl.IRI][]owl.IRI)},
		report: &Report{Occurrences: len(occurrences)},
	}
	for _, occ := range occurrences {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := b.add(occ); err != nil {
			return nil, b.report, err
		}
	}

	for taxon, specimens := range b.index.byTaxon {
		b.index.byTaxon[taxon] = owl.SortIRIs(specimens)
	}

	log.Info("built specimen index",
		slog.Int("occurrences", b.report.Occurrences),
		slog.Int("indexed", b.report.Indexed),
		slog.Int("taxa", b.index.Len()),
		slog.Int("findings", len(b.report.Findings)))
	return b.index, b.report, nil
}

type builder struct {
	g      Graph
	policy MissingPolicy
	log    *slog.Logger
	index  *Index
	report *Report
}

func (b *builder) add(occ owl.IRI) error {
	det, ok, err := b.follow(occ, occ, vocab.IdentificationID)
	if err != nil || !ok {
		return err
	}
	taxon, ok, err := b.follow(occ, det, vocab.TaxonID)
	if err != nil || !ok {
		return err
	}

	b.index.byTaxon[taxon] = append(b.index.byTaxon[taxon], occ)
	b.report.Indexed++
	return nil
}

// follow resolves "subject property ?" for the chain starting at occ. It
// returns ok=false when the Occurrence has to be skipped.
func (b *builder) follow(occ, subject, property owl.IRI) (owl.IRI, bool, error) {
	value, n, err := b.g.SingleObjectValue(subject, property)
	if errors.Is(err, ontology.ErrMissingRelationValue) {
		return "", false, b.missing(occ, subject, property, err)
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving %s of %s: %w", property, subject, err)
	}

	if n > 1 {
		f := Finding{Kind: FindingMultipleValues, Occurrence: occ, Subject: subject, Property: property, Values: n}
		b.report.Findings = append(b.report.Findings, f)
		b.log.Warn("relation has several values, using the smallest",
			slog.String("occurrence", string(occ)),
			slog.String("subject", string(subject)),
			slog.String("property", string(property)),
			slog.Int("values", n),
			slog.String("chosen", string(value)))
	}
	return value, true, nil
}

func (b *builder) missing(occ, subject, property owl.IRI, err error) error {
	f := Finding{Kind: FindingMissingValue, Occurrence: occ, Subject: subject, Property: property}
	b.report.Findings = append(b.report.Findings, f)

	switch b.policy {
	case MissingFail:
		return fmt.Errorf("occurrence %s: %w", occ, err)
	case MissingWarn:
		b.log.Warn("skipping occurrence with broken determination chain",
			slog.String("occurrence", string(occ)),
			slog.String("subject", string(subject)),
			slog.String("property", string(property)))
	}
	return nil
}
