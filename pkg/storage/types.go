// Package storage provides the property-graph storage engines behind mxgraph.
//
// The ontology layer (pkg/ontology) maps OWL entities and axioms onto a
// labeled property graph: named entities and anonymous class expressions are
// nodes, axioms are directed typed edges. This package knows nothing about
// OWL; it stores nodes and edges and answers label and adjacency lookups.
//
// Design Principles:
//   - Neo4j JSON export/import compatibility for graph documents
//   - Testability through dependency injection (Engine interface)
//   - Thread-safe implementations
//   - Edges may be parallel: two edges with the same endpoints and type are
//     distinct records as long as their IDs differ
//
// Implementations:
//   - MemoryEngine: in-memory storage for batch runs and tests
//   - BadgerEngine: persistent disk storage backed by BadgerDB
//
// Example Usage:
//
//	engine := storage.NewMemoryEngine()
//	defer engine.Close()
//
//	engine.CreateNode(&storage.Node{
//		ID:     "http://example.org/specimen/O1",
//		Labels: []string{"NamedIndividual"},
//	})
//	engine.CreateNode(&storage.Node{
//		ID:     "http://purl.obolibrary.org/obo/HAO_0000028",
//		Labels: []string{"Class"},
//	})
//	engine.CreateEdge(&storage.Edge{
//		ID:        "a1",
//		StartNode: "http://example.org/specimen/O1",
//		EndNode:   "http://purl.obolibrary.org/obo/HAO_0000028",
//		Type:      "http://www.w3.org/1999/02/22-rdf-syntax-ns#type",
//	})
//
//	// Persist as a Neo4j-style JSON document
//	storage.SaveToNeo4jExport(engine, "graph.json")
package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidData      = errors.New("invalid data")
	ErrStorageClosed    = errors.New("storage closed")
	ErrIterationStopped = errors.New("iteration stopped") // Sentinel to stop streaming early
)

// NodeID is a strongly-typed unique identifier for graph nodes.
//
// For named OWL entities the NodeID is the entity IRI, so lookups by IRI are
// direct key lookups in every engine.
type NodeID string

// EdgeID is a strongly-typed unique identifier for graph edges.
type EdgeID string

// Node represents a graph node (vertex) in the labeled property graph.
//
// Core Fields:
//   - ID: Unique identifier (must be unique across all nodes)
//   - Labels: Type tags like ["NamedIndividual"] or ["ClassExpression"]
//   - Properties: Key-value data (any JSON-serializable types)
//
// Thread Safety:
//
//	Node structs are NOT thread-safe. The storage engine handles concurrency.
type Node struct {
	ID         NodeID         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// HasLabel reports whether the node carries the label (case-insensitive).
func (n *Node) HasLabel(label string) bool {
	want := normalizeLabel(label)
	for _, l := range n.Labels {
		if normalizeLabel(l) == want {
			return true
		}
	}
	return false
}

// Edge represents a directed relationship between two nodes.
//
// Core Fields:
//   - ID: Unique identifier for the relationship
//   - StartNode: Source node ID (where the arrow starts)
//   - EndNode: Target node ID (where the arrow points)
//   - Type: Relationship type; the ontology layer uses property IRIs here
//   - Properties: Key-value data about the relationship (axiom annotations)
//
// AutoGenerated marks edges written by an inference pass rather than loaded
// from a source document. The propagator sets it on every class assertion it
// adds so that derived axioms stay distinguishable after a save/load cycle.
//
// Thread Safety:
//
//	Edge structs are NOT thread-safe. The storage engine handles concurrency.
type Edge struct {
	ID         EdgeID         `json:"id"`
	StartNode  NodeID         `json:"startNode"`
	EndNode    NodeID         `json:"endNode"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`

	CreatedAt     time.Time `json:"-"`
	AutoGenerated bool      `json:"-"`
}

// Engine defines the storage engine interface for graph operations.
//
// All Engine implementations MUST be:
//   - Thread-safe: Safe for concurrent access from multiple goroutines
//   - Atomic per call: BulkCreate* either stores every record or none
//   - Strict on identity: CreateNode/CreateEdge fail if the ID exists
//
// Example Usage:
//
//	var engine storage.Engine = storage.NewMemoryEngine()
//	defer engine.Close()
//
//	occurrences, _ := engine.GetNodesByLabel("NamedIndividual")
//	for _, n := range occurrences {
//		out, _ := engine.GetOutgoingEdges(n.ID)
//		fmt.Printf("%s has %d outgoing edges\n", n.ID, len(out))
//	}
type Engine interface {
	// Node operations
	CreateNode(node *Node) error
	GetNode(id NodeID) (*Node, error)
	UpdateNode(node *Node) error
	DeleteNode(id NodeID) error

	// Edge operations
	CreateEdge(edge *Edge) error
	GetEdge(id EdgeID) (*Edge, error)
	DeleteEdge(id EdgeID) error

	// Query operations
	GetNodesByLabel(label string) ([]*Node, error)
	GetOutgoingEdges(nodeID NodeID) ([]*Edge, error)
	GetIncomingEdges(nodeID NodeID) ([]*Edge, error)
	AllNodes() ([]*Node, error)
	AllEdges() ([]*Edge, error)

	// Bulk operations (for import)
	BulkCreateNodes(nodes []*Node) error
	BulkCreateEdges(edges []*Edge) error

	// Lifecycle
	Close() error

	// Stats
	NodeCount() (int64, error)
	EdgeCount() (int64, error)
}

// Neo4jExport represents the Neo4j JSON export format used for graph
// documents.
type Neo4jExport struct {
	Nodes         []Neo4jNode         `json:"nodes"`
	Relationships []Neo4jRelationship `json:"relationships"`
}

// Neo4jNode is the Neo4j JSON export format for nodes.
type Neo4jNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Neo4jNodeRef is a reference to a node in Neo4j relationship format.
type Neo4jNodeRef struct {
	ID     string   `json:"id"`
	Labels []string `json:"labels,omitempty"`
}

// Neo4jRelationship is the Neo4j JSON export format for relationships.
// Supports both flat format (startNode/endNode strings) and APOC format (start/end objects).
type Neo4jRelationship struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`

	// Flat format (neo4j-admin dump)
	StartNode string `json:"startNode,omitempty"`
	EndNode   string `json:"endNode,omitempty"`

	// APOC format (apoc.export.json)
	Start Neo4jNodeRef `json:"start,omitempty"`
	End   Neo4jNodeRef `json:"end,omitempty"`
}

// GetStartID returns the start node ID supporting both Neo4j export formats.
func (r *Neo4jRelationship) GetStartID() string {
	if r.Start.ID != "" {
		return r.Start.ID
	}
	return r.StartNode
}

// GetEndID returns the end node ID regardless of format.
func (r *Neo4jRelationship) GetEndID() string {
	if r.End.ID != "" {
		return r.End.ID
	}
	return r.EndNode
}

// ToNeo4jExport converts nodes and edges to the Neo4j JSON export format.
//
// Engine-only fields are stored with a "_" prefix so that a document written
// by SaveToNeo4jExport loads back into an identical graph:
//
//	_createdAt, _updatedAt (nodes), _createdAt, _autoGenerated (edges)
func ToNeo4jExport(nodes []*Node, edges []*Edge) *Neo4jExport {
	export := &Neo4jExport{
		Nodes:         make([]Neo4jNode, len(nodes)),
		Relationships: make([]Neo4jRelationship, len(edges)),
	}

	for i, n := range nodes {
		props := copyProperties(n.Properties)
		if !n.CreatedAt.IsZero() {
			props["_createdAt"] = n.CreatedAt.Unix()
		}
		if !n.UpdatedAt.IsZero() {
			props["_updatedAt"] = n.UpdatedAt.Unix()
		}
		export.Nodes[i] = Neo4jNode{
			ID:         string(n.ID),
			Labels:     n.Labels,
			Properties: props,
		}
	}

	for i, e := range edges {
		props := copyProperties(e.Properties)
		if e.AutoGenerated {
			props["_autoGenerated"] = e.AutoGenerated
		}
		if !e.CreatedAt.IsZero() {
			props["_createdAt"] = e.CreatedAt.Unix()
		}

		export.Relationships[i] = Neo4jRelationship{
			ID:         string(e.ID),
			StartNode:  string(e.StartNode),
			EndNode:    string(e.EndNode),
			Type:       e.Type,
			Properties: props,
		}
	}

	return export
}

// FromNeo4jExport converts a Neo4j JSON export back into nodes and edges,
// moving "_"-prefixed engine fields back into their struct fields.
func FromNeo4jExport(export *Neo4jExport) ([]*Node, []*Edge) {
	nodes := make([]*Node, len(export.Nodes))
	edges := make([]*Edge, len(export.Relationships))

	for i, n := range export.Nodes {
		node := &Node{
			ID:         NodeID(n.ID),
			Labels:     n.Labels,
			Properties: copyProperties(n.Properties),
		}
		if v, ok := node.Properties["_createdAt"].(float64); ok {
			node.CreatedAt = time.Unix(int64(v), 0)
			delete(node.Properties, "_createdAt")
		}
		if v, ok := node.Properties["_updatedAt"].(float64); ok {
			node.UpdatedAt = time.Unix(int64(v), 0)
			delete(node.Properties, "_updatedAt")
		}
		nodes[i] = node
	}

	for i, r := range export.Relationships {
		edge := &Edge{
			ID:         EdgeID(r.ID),
			StartNode:  NodeID(r.GetStartID()),
			EndNode:    NodeID(r.GetEndID()),
			Type:       r.Type,
			Properties: copyProperties(r.Properties),
		}
		if auto, ok := edge.Properties["_autoGenerated"].(bool); ok {
			edge.AutoGenerated = auto
			delete(edge.Properties, "_autoGenerated")
		}
		if created, ok := edge.Properties["_createdAt"].(float64); ok {
			edge.CreatedAt = time.Unix(int64(created), 0)
			delete(edge.Properties, "_createdAt")
		}
		edges[i] = edge
	}

	return nodes, edges
}

func copyProperties(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// =============================================================================
// STREAMING INTERFACE
// =============================================================================

// StreamingEngine extends Engine with streaming iteration support.
// This is optional - engines that don't support streaming will use
// the default AllNodes/AllEdges path.
type StreamingEngine interface {
	Engine

	// StreamNodes iterates over all nodes without loading all into memory.
	// The callback is called for each node. Return an error to stop iteration.
	// Returns nil on successful completion, context.Canceled on cancellation.
	StreamNodes(ctx context.Context, fn func(node *Node) error) error

	// StreamEdges iterates over all edges without loading all into memory.
	StreamEdges(ctx context.Context, fn func(edge *Edge) error) error
}

// NodeVisitor is a function called for each node during streaming.
type NodeVisitor func(node *Node) error

// EdgeVisitor is a function called for each edge during streaming.
type EdgeVisitor func(edge *Edge) error

// StreamNodesWithFallback provides streaming iteration with fallback.
// If the engine supports StreamingEngine, it uses that.
// Otherwise, it loads all nodes and visits them one by one.
func StreamNodesWithFallback(ctx context.Context, engine Engine, fn NodeVisitor) error {
	if streamer, ok := engine.(StreamingEngine); ok {
		return streamer.StreamNodes(ctx, fn)
	}

	nodes, err := engine.AllNodes()
	if err != nil {
		return err
	}

	for i, node := range nodes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(node); err != nil {
			if errors.Is(err, ErrIterationStopped) {
				return nil
			}
			return err
		}

		// Nil out the reference to allow GC
		nodes[i] = nil
	}

	return nil
}

// StreamEdgesWithFallback provides streaming iteration with fallback.
func StreamEdgesWithFallback(ctx context.Context, engine Engine, fn EdgeVisitor) error {
	if streamer, ok := engine.(StreamingEngine); ok {
		return streamer.StreamEdges(ctx, fn)
	}

	edges, err := engine.AllEdges()
	if err != nil {
		return err
	}

	for i, edge := range edges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(edge); err != nil {
			if errors.Is(err, ErrIterationStopped) {
				return nil
			}
			return err
		}

		edges[i] = nil
	}

	return nil
}
