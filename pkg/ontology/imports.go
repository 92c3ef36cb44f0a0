package ontology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// ImportCatalog maps ontology IRIs to local graph documents, so imports
// resolve without network access.
type ImportCatalog struct {
	locations map[owl.IRI]string
}

// NewImportCatalog returns an empty catalog.
func NewImportCatalog() *ImportCatalog {
	return &ImportCatalog{locations: make(map[owl.IRI]string)}
}

// Add maps iri to the document at path. A later Add for the same IRI wins.
func (c *ImportCatalog) Add(iri owl.IRI, path string) {
	c.locations[iri] = path
}

// AddPaths adds every document matched by the given paths or doublestar
// patterns ("ontologies/**/*.json"). Each document is registered under the
// IRI of its Ontology node, or under its file URI when it has none.
func (c *ImportCatalog) AddPaths(patterns ...string) error {
	for _, pattern := range patterns {
		matches := []string{pattern}
		if strings.ContainsAny(pattern, "*?[{") {
			var err error
			matches, err = doublestar.FilepathGlob(pattern)
			if err != nil {
				return fmt.Errorf("glob %q: %w", pattern, err)
			}
		}
		for _, path := range matches {
			iri, err := documentIRI(path)
			if err != nil {
				return err
			}
			c.Add(iri, path)
		}
	}
	return nil
}

// Resolve returns the document registered for iri.
func (c *ImportCatalog) Resolve(iri owl.IRI) (string, bool) {
	path, ok := c.locations[iri]
	return path, ok
}

// IRIs returns every registered IRI, sorted.
func (c *ImportCatalog) IRIs() []owl.IRI {
	out := make([]owl.IRI, 0, len(c.locations))
	for iri := range c.locations {
		out = append(out, iri)
	}
	return owl.SortIRIs(out)
}

// Len returns the number of registered documents.
func (c *ImportCatalog) Len() int {
	return len(c.locations)
}

// documentIRI loads the document at path and returns its ontology IRI.
func documentIRI(path string) (owl.IRI, error) {
	engine := storage.NewMemoryEngine()
	if err := storage.Load(engine, path); err != nil {
		return "", fmt.Errorf("reading import %s: %w", path, err)
	}
	if iri := rootIRI(engine); iri != "" {
		return iri, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return owl.IRI("file://" + filepath.ToSlash(abs)), nil
}

// rootIRI returns the smallest Ontology node that no other ontology
// imports, or "" when the graph has no Ontology node.
func rootIRI(engine storage.Engine) owl.IRI {
	nodes, err := engine.GetNodesByLabel(LabelOntology)
	if err != nil || len(nodes) == 0 {
		return ""
	}
	for _, n := range nodes {
		incoming, err := engine.GetIncomingEdges(n.ID)
		if err != nil {
			continue
		}
		imported := false
		for _, e := range incoming {
			if e.Type == string(vocab.Imports) {
				imported = true
				break
			}
		}
		if !imported {
			return owl.IRI(n.ID)
		}
	}
	return owl.IRI(nodes[0].ID)
}

// IRI returns the IRI of the root ontology of the graph.
func (o *Ontology) IRI() owl.IRI {
	if o.iri != "" {
		return o.iri
	}
	if iri := rootIRI(o.engine); iri != "" {
		return iri
	}
	return DefaultIRI
}

// Imports returns the IRIs the root ontology declares as imports, sorted.
func (o *Ontology) Imports() ([]owl.IRI, error) {
	return o.ObjectValues(o.IRI(), vocab.Imports)
}

// Import merges the ontology iri, and everything it imports in turn, into
// the graph and records an owl:imports declaration on the root ontology.
// Importing an ontology twice is harmless.
func (o *Ontology) Import(ctx context.Context, iri owl.IRI, catalog *ImportCatalog) error {
	root := o.IRI()
	// Merged modules bring their own Ontology nodes; pin the root first.
	o.iri = root
	if err := o.importClosure(ctx, iri, catalog, map[owl.IRI]bool{root: true}); err != nil {
		return err
	}
	if err := o.ensureNode(storage.NodeID(root), LabelOntology, nil); err != nil {
		return err
	}
	if err := o.ensureNode(storage.NodeID(iri), LabelOntology, nil); err != nil {
		return err
	}
	return o.addAxiomEdge(storage.NodeID(root), storage.NodeID(iri), vocab.Imports)
}

func (o *Ontology) importClosure(ctx context.Context, iri owl.IRI, catalog *ImportCatalog, visited map[owl.IRI]bool) error {
	if visited[iri] {
		return nil
	}
	visited[iri] = true

	if err := ctx.Err(); err != nil {
		return err
	}

	path, ok := catalog.Resolve(iri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrImportNotFound, iri)
	}

	module := storage.NewMemoryEngine()
	if err := storage.Load(module, path); err != nil {
		return fmt.Errorf("loading import %s from %s: %w", iri, path, err)
	}

	nodes, edges, err := o.merge(ctx, module)
	if err != nil {
		return fmt.Errorf("merging import %s: %w", iri, err)
	}
	o.log.Info("imported ontology",
		slog.String("iri", string(iri)),
		slog.String("path", path),
		slog.Int("nodes", nodes),
		slog.Int("edges", edges))

	nested, err := New(module).ObjectValues(iri, vocab.Imports)
	if err != nil {
		return err
	}
	for _, next := range nested {
		if err := o.importClosure(ctx, next, catalog, visited); err != nil {
			return err
		}
	}
	return nil
}

// merge copies every node and edge of module into the graph. Existing nodes
// gain the module's labels and annotations. It returns how many nodes and
// edges were new.
func (o *Ontology) merge(ctx context.Context, module storage.Engine) (int, int, error) {
	var newNodes, newEdges int

	err := storage.StreamNodesWithFallback(ctx, module, func(n *storage.Node) error {
		existing, err := o.engine.GetNode(n.ID)
		if errors.Is(err, storage.ErrNotFound) {
			newNodes++
			return o.engine.CreateNode(n)
		}
		if err != nil {
			return err
		}
		changed, err := mergeNode(existing, n)
		if err != nil || !changed {
			return err
		}
		return o.engine.UpdateNode(existing)
	})
	if err != nil {
		return 0, 0, err
	}

	err = storage.StreamEdgesWithFallback(ctx, module, func(e *storage.Edge) error {
		err := o.engine.CreateEdge(e)
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil
		}
		if err == nil {
			newEdges++
		}
		return err
	})
	return newNodes, newEdges, err
}

// mergeNode adds the labels and annotations of in to dst.
func mergeNode(dst, in *storage.Node) (bool, error) {
	changed := false
	for _, label := range in.Labels {
		if !dst.HasLabel(label) {
			dst.Labels = append(dst.Labels, label)
			changed = true
		}
	}

	incoming, err := decodeAnnotations(in.Properties)
	if err != nil || len(incoming) == 0 {
		return changed, err
	}
	current, err := decodeAnnotations(dst.Properties)
	if err != nil {
		return changed, err
	}

	seen := make(map[string]struct{}, len(current))
	for _, a := range current {
		seen[a.String()] = struct{}{}
	}
	for _, a := range incoming {
		if _, ok := seen[a.String()]; !ok {
			current = append(current, a)
			seen[a.String()] = struct{}{}
			changed = true
		}
	}
	if !changed {
		return false, nil
	}

	encoded, err := encodeAnnotations(current)
	if err != nil {
		return false, err
	}
	if dst.Properties == nil {
		dst.Properties = map[string]any{}
	}
	dst.Properties[propAnnotations] = encoded
	return true, nil
}

// ImportAll imports every ontology in the catalog in IRI order, then warns
// about declared imports the catalog cannot resolve.
func (o *Ontology) ImportAll(ctx context.Context, catalog *ImportCatalog) error {
	for _, iri := range catalog.IRIs() {
		if iri == o.IRI() {
			continue
		}
		if err := o.Import(ctx, iri, catalog); err != nil {
			return err
		}
	}

	declared, err := o.Imports()
	if err != nil {
		return err
	}
	var missing []string
	for _, iri := range declared {
		if _, ok := catalog.Resolve(iri); !ok {
			missing = append(missing, string(iri))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		o.log.Warn("declared imports have no local document",
			slog.String("ontology", string(o.IRI())),
			slog.Any("imports", missing))
	}
	return nil
}
