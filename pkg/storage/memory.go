package storage

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// normalizeLabel converts a label to lowercase for case-insensitive matching.
func normalizeLabel(label string) string {
	return strings.ToLower(label)
}

// MemoryEngine is a thread-safe in-memory graph storage implementation.
//
// It is the default engine for batch runs: a graph document is loaded into
// memory, the propagator or retriever runs over it, and the mutated graph is
// written back out as a document.
//
// Features:
//   - Thread-safe: All operations use RWMutex for concurrent access
//   - Indexed: Maintains indexes for labels and edges for fast lookups
//   - Deep copies: Returns copies to prevent external mutation
//   - Deterministic: AllNodes/AllEdges/GetNodesByLabel return ID order
//
// Performance Characteristics:
//   - Node lookup by ID: O(1)
//   - Node lookup by label: O(k log k) where k = nodes with that label
//   - Outgoing/incoming edges: O(degree)
//
// Example:
//
//	engine := storage.NewMemoryEngine()
//	defer engine.Close()
//
//	engine.BulkCreateNodes([]*storage.Node{
//		{ID: "O1", Labels: []string{"NamedIndividual"}},
//		{ID: "D1", Labels: []string{"NamedIndividual"}},
//	})
//	engine.BulkCreateEdges([]*storage.Edge{
//		{ID: "e1", StartNode: "O1", EndNode: "D1", Type: "http://rs.tdwg.org/dwc/terms/identificationID"},
//	})
type MemoryEngine struct {
	mu    sync.RWMutex
	nodes map[NodeID]*Node
	edges map[EdgeID]*Edge

	// Indexes for efficient lookups
	nodesByLabel  map[string]map[NodeID]struct{}
	outgoingEdges map[NodeID]map[EdgeID]struct{}
	incomingEdges map[NodeID]map[EdgeID]struct{}

	closed bool
}

// NewMemoryEngine creates a new in-memory storage engine with empty indexes.
//
// All data is stored in RAM and lost when the process exits; use
// SaveToNeo4jExport to persist it as a document.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes:         make(map[NodeID]*Node),
		edges:         make(map[EdgeID]*Edge),
		nodesByLabel:  make(map[string]map[NodeID]struct{}),
		outgoingEdges: make(map[NodeID]map[EdgeID]struct{}),
		incomingEdges: make(map[NodeID]map[EdgeID]struct{}),
	}
}

// CreateNode creates a new node in the storage.
//
// The node is deep-copied to prevent external mutations after storage.
//
// Returns:
//   - nil on success
//   - ErrInvalidData if node is nil
//   - ErrInvalidID if ID is empty
//   - ErrAlreadyExists if node with this ID exists
//   - ErrStorageClosed if engine is closed
func (m *MemoryEngine) CreateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	if _, exists := m.nodes[node.ID]; exists {
		return ErrAlreadyExists
	}

	m.createNodeUnlocked(node)
	return nil
}

// GetNode retrieves a node by its unique ID.
//
// Returns a deep copy of the node, ErrNotFound if it doesn't exist.
func (m *MemoryEngine) GetNode(id NodeID) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	node, exists := m.nodes[id]
	if !exists {
		return nil, ErrNotFound
	}

	return copyNode(node), nil
}

// UpdateNode replaces an existing node, re-indexing its labels.
func (m *MemoryEngine) UpdateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	existing, exists := m.nodes[node.ID]
	if !exists {
		return ErrNotFound
	}

	for _, label := range existing.Labels {
		if idx := m.nodesByLabel[normalizeLabel(label)]; idx != nil {
			delete(idx, node.ID)
		}
	}

	stored := copyNode(node)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	m.nodes[node.ID] = stored
	m.indexLabelsUnlocked(stored)

	return nil
}

// DeleteNode removes a node and all its edges.
func (m *MemoryEngine) DeleteNode(id NodeID) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	node, exists := m.nodes[id]
	if !exists {
		return ErrNotFound
	}

	for _, label := range node.Labels {
		if idx := m.nodesByLabel[normalizeLabel(label)]; idx != nil {
			delete(idx, id)
		}
	}

	for edgeID := range m.outgoingEdges[id] {
		m.deleteEdgeUnlocked(edgeID)
	}
	for edgeID := range m.incomingEdges[id] {
		m.deleteEdgeUnlocked(edgeID)
	}
	delete(m.outgoingEdges, id)
	delete(m.incomingEdges, id)
	delete(m.nodes, id)

	return nil
}

// CreateEdge creates a new edge. Both endpoints must already exist.
func (m *MemoryEngine) CreateEdge(edge *Edge) error {
	if edge == nil {
		return ErrInvalidData
	}
	if edge.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	if _, exists := m.edges[edge.ID]; exists {
		return ErrAlreadyExists
	}
	if _, exists := m.nodes[edge.StartNode]; !exists {
		return ErrNotFound
	}
	if _, exists := m.nodes[edge.EndNode]; !exists {
		return ErrNotFound
	}

	m.createEdgeUnlocked(edge)
	return nil
}

// GetEdge retrieves an edge by ID.
func (m *MemoryEngine) GetEdge(id EdgeID) (*Edge, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	edge, exists := m.edges[id]
	if !exists {
		return nil, ErrNotFound
	}

	return copyEdge(edge), nil
}

// DeleteEdge removes an edge.
func (m *MemoryEngine) DeleteEdge(id EdgeID) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	if _, exists := m.edges[id]; !exists {
		return ErrNotFound
	}

	m.deleteEdgeUnlocked(id)
	return nil
}

// GetNodesByLabel returns all nodes with the specified label, ordered by ID.
// Label matching is case-insensitive.
func (m *MemoryEngine) GetNodesByLabel(label string) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	ids := m.nodesByLabel[normalizeLabel(label)]
	nodes := make([]*Node, 0, len(ids))
	for id := range ids {
		if node, exists := m.nodes[id]; exists {
			nodes = append(nodes, copyNode(node))
		}
	}
	sortNodes(nodes)

	return nodes, nil
}

// GetOutgoingEdges returns all edges where the given node is the source,
// ordered by edge ID.
func (m *MemoryEngine) GetOutgoingEdges(nodeID NodeID) ([]*Edge, error) {
	if nodeID == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	return m.collectEdgesUnlocked(m.outgoingEdges[nodeID]), nil
}

// GetIncomingEdges returns all edges where the given node is the target,
// ordered by edge ID.
func (m *MemoryEngine) GetIncomingEdges(nodeID NodeID) ([]*Edge, error) {
	if nodeID == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	return m.collectEdgesUnlocked(m.incomingEdges[nodeID]), nil
}

// AllNodes returns copies of every node, ordered by ID.
func (m *MemoryEngine) AllNodes() ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	nodes := make([]*Node, 0, len(m.nodes))
	for _, node := range m.nodes {
		nodes = append(nodes, copyNode(node))
	}
	sortNodes(nodes)
	return nodes, nil
}

// AllEdges returns copies of every edge, ordered by ID.
func (m *MemoryEngine) AllEdges() ([]*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageClosed
	}

	edges := make([]*Edge, 0, len(m.edges))
	for _, edge := range m.edges {
		edges = append(edges, copyEdge(edge))
	}
	sortEdges(edges)
	return edges, nil
}

// BulkCreateNodes creates multiple nodes atomically: if any node is invalid or
// already exists, nothing is stored.
func (m *MemoryEngine) BulkCreateNodes(nodes []*Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	seen := make(map[NodeID]struct{}, len(nodes))
	for _, node := range nodes {
		if node == nil {
			return ErrInvalidData
		}
		if node.ID == "" {
			return ErrInvalidID
		}
		if _, exists := m.nodes[node.ID]; exists {
			return ErrAlreadyExists
		}
		if _, dup := seen[node.ID]; dup {
			return ErrAlreadyExists
		}
		seen[node.ID] = struct{}{}
	}

	for _, node := range nodes {
		m.createNodeUnlocked(node)
	}

	return nil
}

// BulkCreateEdges creates multiple edges atomically. Every endpoint must exist.
func (m *MemoryEngine) BulkCreateEdges(edges []*Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	seen := make(map[EdgeID]struct{}, len(edges))
	for _, edge := range edges {
		if edge == nil {
			return ErrInvalidData
		}
		if edge.ID == "" {
			return ErrInvalidID
		}
		if _, exists := m.edges[edge.ID]; exists {
			return ErrAlreadyExists
		}
		if _, dup := seen[edge.ID]; dup {
			return ErrAlreadyExists
		}
		if _, exists := m.nodes[edge.StartNode]; !exists {
			return ErrNotFound
		}
		if _, exists := m.nodes[edge.EndNode]; !exists {
			return ErrNotFound
		}
		seen[edge.ID] = struct{}{}
	}

	for _, edge := range edges {
		m.createEdgeUnlocked(edge)
	}

	return nil
}

// Close marks the engine closed. Further calls return ErrStorageClosed.
func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// NodeCount returns the number of nodes.
func (m *MemoryEngine) NodeCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStorageClosed
	}
	return int64(len(m.nodes)), nil
}

// EdgeCount returns the number of edges.
func (m *MemoryEngine) EdgeCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStorageClosed
	}
	return int64(len(m.edges)), nil
}

// ============================================================================
// Unlocked helpers. Caller must hold m.mu.Lock().
// ============================================================================

func (m *MemoryEngine) createNodeUnlocked(node *Node) {
	stored := copyNode(node)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.nodes[node.ID] = stored
	m.indexLabelsUnlocked(stored)
}

func (m *MemoryEngine) indexLabelsUnlocked(node *Node) {
	for _, label := range node.Labels {
		normalLabel := normalizeLabel(label)
		if m.nodesByLabel[normalLabel] == nil {
			m.nodesByLabel[normalLabel] = make(map[NodeID]struct{})
		}
		m.nodesByLabel[normalLabel][node.ID] = struct{}{}
	}
}

func (m *MemoryEngine) createEdgeUnlocked(edge *Edge) {
	stored := copyEdge(edge)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.edges[edge.ID] = stored

	if m.outgoingEdges[edge.StartNode] == nil {
		m.outgoingEdges[edge.StartNode] = make(map[EdgeID]struct{})
	}
	m.outgoingEdges[edge.StartNode][edge.ID] = struct{}{}

	if m.incomingEdges[edge.EndNode] == nil {
		m.incomingEdges[edge.EndNode] = make(map[EdgeID]struct{})
	}
	m.incomingEdges[edge.EndNode][edge.ID] = struct{}{}
}

func (m *MemoryEngine) deleteEdgeUnlocked(id EdgeID) {
	edge, exists := m.edges[id]
	if !exists {
		return
	}

	if outgoing := m.outgoingEdges[edge.StartNode]; outgoing != nil {
		delete(outgoing, id)
	}
	if incoming := m.incomingEdges[edge.EndNode]; incoming != nil {
		delete(incoming, id)
	}

	delete(m.edges, id)
}

func (m *MemoryEngine) collectEdgesUnlocked(ids map[EdgeID]struct{}) []*Edge {
	edges := make([]*Edge, 0, len(ids))
	for id := range ids {
		if edge, exists := m.edges[id]; exists {
			edges = append(edges, copyEdge(edge))
		}
	}
	sortEdges(edges)
	return edges
}

// copyNode creates a deep copy of a node.
func copyNode(n *Node) *Node {
	if n == nil {
		return nil
	}

	labels := make([]string, len(n.Labels))
	copy(labels, n.Labels)

	return &Node{
		ID:         n.ID,
		Labels:     labels,
		Properties: copyProperties(n.Properties),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}

// copyEdge creates a deep copy of an edge.
func copyEdge(e *Edge) *Edge {
	if e == nil {
		return nil
	}

	return &Edge{
		ID:            e.ID,
		StartNode:     e.StartNode,
		EndNode:       e.EndNode,
		Type:          e.Type,
		Properties:    copyProperties(e.Properties),
		CreatedAt:     e.CreatedAt,
		AutoGenerated: e.AutoGenerated,
	}
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
}

// Verify MemoryEngine implements Engine interface
var _ Engine = (*MemoryEngine)(nil)
