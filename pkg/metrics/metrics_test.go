package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/propagate"
	"github.com/hymao/mxgraph/pkg/reasoner"
	"github.com/hymao/mxgraph/pkg/specimen"
)

type fakeReasoner struct {
	err error
}

func (f fakeReasoner) Classify(ctx context.Context) error { return f.err }

func (f fakeReasoner) SubClasses(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	return []owl.IRI{"ex:A"}, f.err
}

func (f fakeReasoner) Instances(ctx context.Context, ce owl.ClassExpression, direct bool) ([]owl.IRI, error) {
	return nil, f.err
}

func TestObserveIndex(t *testing.T) {
	r := New()
	r.ObserveIndex(&specimen.Report{
		Occurrences: 5,
		Indexed:     3,
		Findings: []specimen.Finding{
			{Kind: specimen.FindingMissingValue},
			{Kind: specimen.FindingMissingValue},
			{Kind: specimen.FindingMultipleValues},
		},
	})
	r.ObserveIndex(nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.occurrences.WithLabelValues("indexed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.occurrences.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.findings.WithLabelValues(string(specimen.FindingMissingValue))))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.findings.WithLabelValues(string(specimen.FindingMultipleValues))))
}

func TestObservePropagation(t *testing.T) {
	r := New()
	r.ObservePropagation(&propagate.Result{
		Assertions: make([]propagate.Assertion, 4),
		Skipped: []propagate.Skip{
			{Reason: propagate.SkipMissingOTU},
			{Reason: propagate.SkipMissingState},
			{Reason: propagate.SkipMissingState},
		},
		Suppressed: 2,
	})

	assert.Equal(t, 4.0, testutil.ToFloat64(r.assertions))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.skipped.WithLabelValues(string(propagate.SkipMissingState))))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.suppressed))
}

func TestReasoner(t *testing.T) {
	ctx := context.Background()
	r := New()

	wrapped := r.Reasoner(fakeReasoner{})
	require.NoError(t, wrapped.Classify(ctx))
	got, err := wrapped.SubClasses(ctx, owl.Class{IRI: "ex:Q"}, false)
	require.NoError(t, err)
	assert.Equal(t, []owl.IRI{"ex:A"}, got)
	_, err = wrapped.SubClasses(ctx, owl.Class{IRI: "ex:Q"}, true)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.queries.WithLabelValues(reasoner.KindClassify)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.queries.WithLabelValues(reasoner.KindSubClasses)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.queryErrors.WithLabelValues(reasoner.KindSubClasses)))

	boom := errors.New("boom")
	_, err = r.Reasoner(fakeReasoner{err: boom}).Instances(ctx, owl.Class{IRI: "ex:Q"}, false)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.queryErrors.WithLabelValues(reasoner.KindInstances)))
}

func TestWriteToTextfile(t *testing.T) {
	r := New()
	r.ObserveCharacters(7)
	path := filepath.Join(t.TempDir(), "mxgraph.prom")
	require.NoError(t, r.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mxgraph_characters_retrieved 7")
	assert.Contains(t, string(data), "mxgraph_last_run_timestamp_seconds")
}
