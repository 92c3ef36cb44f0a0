package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hymao/mxgraph/pkg/config"
	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeMatrix saves a document with one taxon, two specimens, one datum and
// a phenotype class describing the datum's state.
func writeMatrix(t *testing.T) string {
	t.Helper()
	o := ontology.New(storage.NewMemoryEngine())
	add := func(err error) { require.NoError(t, err) }
	typed := func(ind owl.IRI, ce owl.ClassExpression) {
		_, err := o.AddClassAssertion(ce, ind)
		require.NoError(t, err)
	}

	for _, s := range []owl.IRI{"ex:S1", "ex:S2"} {
		typed(s, owl.Class{IRI: vocab.Occurrence})
		add(o.AddObjectPropertyAssertion(vocab.IdentificationID, s, s+"-det"))
		add(o.AddObjectPropertyAssertion(vocab.TaxonID, s+"-det", "ex:T"))
	}
	typed("ex:St", owl.ObjectAllValuesFrom{Property: vocab.DenotesPhenotypeOf, Filler: owl.Class{IRI: "ex:LongLegs"}})
	typed("ex:D1", owl.Class{IRI: vocab.CharacterStateDatum})
	add(o.AddObjectPropertyAssertion(vocab.BelongsToTU, "ex:D1", "ex:OTU"))
	add(o.AddObjectPropertyAssertion(vocab.HasExternalReference, "ex:OTU", "ex:T"))
	add(o.AddObjectPropertyAssertion(vocab.HasState, "ex:D1", "ex:St"))
	add(o.AddObjectPropertyAssertion(vocab.BelongsToCharacter, "ex:D1", "ex:C"))

	concept := owl.Class{IRI: vocab.DefaultConcept}
	add(o.AddSubClassOf(owl.Class{IRI: "ex:LongLegs"}, owl.ObjectSomeValuesFrom{Property: vocab.HasPart, Filler: concept}))
	add(o.AddAnnotationAssertion("ex:LongLegs", vocab.DescribesState, owl.IRIValue("ex:St")))
	add(o.AddObjectPropertyAssertion(vocab.CanHaveState, "ex:C", "ex:St"))
	add(o.AddAnnotationAssertion("ex:C", vocab.HasMxID, owl.LiteralValue("3141")))

	path := filepath.Join(t.TempDir(), "matrix.json")
	require.NoError(t, o.Save(path))
	return path
}

func TestPropagateCommand(t *testing.T) {
	src := writeMatrix(t)
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.json")
	metricsFile := filepath.Join(dir, "mxgraph.prom")

	out, _, err := execute(t, "propagate", src, dst, "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "2 assertions")

	o := ontology.New(storage.NewMemoryEngine())
	require.NoError(t, o.Load(dst))
	for _, s := range []owl.IRI{"ex:S1", "ex:S2"} {
		ok, err := o.HasType(s, owl.Class{IRI: "ex:LongLegs"})
		require.NoError(t, err)
		assert.True(t, ok, s)
	}

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mxgraph_assertions_total 2")

	t.Run("wrong_arity", func(t *testing.T) {
		_, _, err := execute(t, "propagate", src)
		assert.Error(t, err)
	})

	t.Run("missing_source", func(t *testing.T) {
		_, _, err := execute(t, "propagate", filepath.Join(dir, "nope.json"), dst)
		assert.Error(t, err)
	})

	t.Run("bad_policy", func(t *testing.T) {
		_, _, err := execute(t, "propagate", src, dst, "--missing", "explode")
		assert.Error(t, err)
	})
}

func TestPropagateCommand_Badger(t *testing.T) {
	src := writeMatrix(t)
	dataDir := filepath.Join(t.TempDir(), "db")
	dst := filepath.Join(t.TempDir(), "out.json")

	_, _, err := execute(t, "propagate", src, dst, "--store", "badger", "--data-dir", dataDir)
	require.NoError(t, err)

	_, _, err = execute(t, "propagate", src, dst, "--store", "badger", "--data-dir", dataDir)
	assert.Error(t, err, "a populated store is refused")
}

type syncingEngine struct {
	*storage.MemoryEngine
	syncs int
}

func (s *syncingEngine) Sync() error {
	s.syncs++
	return nil
}

func TestSyncStore(t *testing.T) {
	engine := &syncingEngine{MemoryEngine: storage.NewMemoryEngine()}
	e := &env{cfg: config.Default()}

	require.NoError(t, e.syncStore(engine))
	assert.Equal(t, 1, engine.syncs)

	e.cfg.Store.SyncWrites = true
	require.NoError(t, e.syncStore(engine))
	assert.Equal(t, 1, engine.syncs, "stores syncing every write are not flushed again")

	require.NoError(t, e.syncStore(storage.NewMemoryEngine()))
}

func TestCharactersCommand(t *testing.T) {
	src := writeMatrix(t)

	out, _, err := execute(t, "characters", src)
	require.NoError(t, err)
	assert.Equal(t, "3141\n", out)

	out, _, err = execute(t, "characters", src, string(vocab.DefaultConcept), "--json")
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []string{"3141"}, ids)

	out, _, err = execute(t, "characters", src, "ex:Wing", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "mxgraph.yaml")
	out, _, err := execute(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, _, err = execute(t, "init", path)
	assert.Error(t, err, "existing files are not overwritten")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mxgraph v"+version)
}
