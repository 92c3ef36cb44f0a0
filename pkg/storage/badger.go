package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage organization
// Using single-byte prefixes for efficiency
const (
	prefixNode          = byte(0x01) // nodes:nodeID -> Node
	prefixEdge          = byte(0x02) // edges:edgeID -> Edge
	prefixLabelIndex    = byte(0x03) // label:labelName:nodeID -> []byte{}
	prefixOutgoingIndex = byte(0x04) // outgoing:nodeID:edgeID -> []byte{}
	prefixIncomingIndex = byte(0x05) // incoming:nodeID:edgeID -> []byte{}
)

// BadgerEngine provides persistent storage using BadgerDB.
//
// It lets a knowledge graph stay on disk between runs: load a document once
// into a data directory, then run the propagator and the retriever against
// it repeatedly without re-parsing the document.
//
// Key Structure:
//   - Nodes: 0x01 + nodeID -> JSON(Node)
//   - Edges: 0x02 + edgeID -> JSON(Edge)
//   - Label Index: 0x03 + label + 0x00 + nodeID -> empty
//   - Outgoing Index: 0x04 + nodeID + 0x00 + edgeID -> empty
//   - Incoming Index: 0x05 + nodeID + 0x00 + edgeID -> empty
//
// Badger iterates keys in byte order, so every listing is ordered by ID
// just like MemoryEngine.
//
// Example:
//
//	engine, err := storage.NewBadgerEngine("./data/mxgraph")
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
type BadgerEngine struct {
	db     *badger.DB
	mu     sync.RWMutex // Protects closed
	closed bool
}

// BadgerOptions configures the BadgerDB engine.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines. Nil keeps badger quiet.
	Logger *slog.Logger
}

// NewBadgerEngine creates a new persistent storage engine with default settings.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		DataDir: dataDir,
	})
}

// NewBadgerEngineWithOptions creates a BadgerEngine with custom configuration.
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(&badgerLogger{log: opts.Logger})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// Ontology graphs are small compared to badger's defaults
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &BadgerEngine{db: db}, nil
}

// NewBadgerEngineInMemory creates an in-memory BadgerDB for testing.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		InMemory: true,
	})
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), slog.String("component", "badger"))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), slog.String("component", "badger"))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), slog.String("component", "badger"))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), slog.String("component", "badger"))
}

// ============================================================================
// Key encoding helpers
// ============================================================================

func nodeKey(id NodeID) []byte {
	return append([]byte{prefixNode}, []byte(id)...)
}

func edgeKey(id EdgeID) []byte {
	return append([]byte{prefixEdge}, []byte(id)...)
}

// compositeKey builds prefix + first + 0x00 + second.
func compositeKey(prefix byte, first, second string) []byte {
	key := make([]byte, 0, 1+len(first)+1+len(second))
	key = append(key, prefix)
	key = append(key, first...)
	key = append(key, 0x00)
	key = append(key, second...)
	return key
}

// labelIndexKey normalizes the label to lowercase for case-insensitive matching.
func labelIndexKey(label string, nodeID NodeID) []byte {
	return compositeKey(prefixLabelIndex, normalizeLabel(label), string(nodeID))
}

func labelIndexPrefix(label string) []byte {
	return compositeKey(prefixLabelIndex, normalizeLabel(label), "")
}

func outgoingIndexKey(nodeID NodeID, edgeID EdgeID) []byte {
	return compositeKey(prefixOutgoingIndex, string(nodeID), string(edgeID))
}

func outgoingIndexPrefix(nodeID NodeID) []byte {
	return compositeKey(prefixOutgoingIndex, string(nodeID), "")
}

func incomingIndexKey(nodeID NodeID, edgeID EdgeID) []byte {
	return compositeKey(prefixIncomingIndex, string(nodeID), string(edgeID))
}

func incomingIndexPrefix(nodeID NodeID) []byte {
	return compositeKey(prefixIncomingIndex, string(nodeID), "")
}

// ============================================================================
// Serialization helpers
// ============================================================================

// serializableNode is the JSON-serializable form of a Node.
type serializableNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	CreatedAt  int64          `json:"createdAt"`
	UpdatedAt  int64          `json:"updatedAt"`
}

// serializableEdge is the JSON-serializable form of an Edge.
type serializableEdge struct {
	ID            string         `json:"id"`
	StartNode     string         `json:"startNode"`
	EndNode       string         `json:"endNode"`
	Type          string         `json:"type"`
	Properties    map[string]any `json:"properties"`
	CreatedAt     int64          `json:"createdAt"`
	AutoGenerated bool           `json:"autoGenerated"`
}

func encodeNode(n *Node) ([]byte, error) {
	return json.Marshal(serializableNode{
		ID:         string(n.ID),
		Labels:     n.Labels,
		Properties: n.Properties,
		CreatedAt:  timeToUnix(n.CreatedAt),
		UpdatedAt:  timeToUnix(n.UpdatedAt),
	})
}

func decodeNode(data []byte) (*Node, error) {
	var sn serializableNode
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, fmt.Errorf("unmarshaling node: %w", err)
	}
	if sn.Properties == nil {
		sn.Properties = make(map[string]any)
	}

	return &Node{
		ID:         NodeID(sn.ID),
		Labels:     sn.Labels,
		Properties: sn.Properties,
		CreatedAt:  unixToTime(sn.CreatedAt),
		UpdatedAt:  unixToTime(sn.UpdatedAt),
	}, nil
}

func encodeEdge(e *Edge) ([]byte, error) {
	return json.Marshal(serializableEdge{
		ID:            string(e.ID),
		StartNode:     string(e.StartNode),
		EndNode:       string(e.EndNode),
		Type:          e.Type,
		Properties:    e.Properties,
		CreatedAt:     timeToUnix(e.CreatedAt),
		AutoGenerated: e.AutoGenerated,
	})
}

func decodeEdge(data []byte) (*Edge, error) {
	var se serializableEdge
	if err := json.Unmarshal(data, &se); err != nil {
		return nil, fmt.Errorf("unmarshaling edge: %w", err)
	}
	if se.Properties == nil {
		se.Properties = make(map[string]any)
	}

	return &Edge{
		ID:            EdgeID(se.ID),
		StartNode:     NodeID(se.StartNode),
		EndNode:       NodeID(se.EndNode),
		Type:          se.Type,
		Properties:    se.Properties,
		CreatedAt:     unixToTime(se.CreatedAt),
		AutoGenerated: se.AutoGenerated,
	}, nil
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixToTime(unix int64) time.Time {
	if unix <= 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// ============================================================================
// Transaction helpers
// ============================================================================

func (b *BadgerEngine) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}

// exists maps badger.ErrKeyNotFound to (false, nil).
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func getNodeInTxn(txn *badger.Txn, id NodeID) (*Node, error) {
	item, err := txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var node *Node
	err = item.Value(func(val []byte) error {
		var decodeErr error
		node, decodeErr = decodeNode(val)
		return decodeErr
	})
	return node, err
}

func getEdgeInTxn(txn *badger.Txn, id EdgeID) (*Edge, error) {
	item, err := txn.Get(edgeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var edge *Edge
	err = item.Value(func(val []byte) error {
		var decodeErr error
		edge, decodeErr = decodeEdge(val)
		return decodeErr
	})
	return edge, err
}

func putNodeInTxn(txn *badger.Txn, node *Node) error {
	data, err := encodeNode(node)
	if err != nil {
		return fmt.Errorf("failed to encode node: %w", err)
	}
	if err := txn.Set(nodeKey(node.ID), data); err != nil {
		return err
	}
	for _, label := range node.Labels {
		if err := txn.Set(labelIndexKey(label, node.ID), []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func putEdgeInTxn(txn *badger.Txn, edge *Edge) error {
	data, err := encodeEdge(edge)
	if err != nil {
		return fmt.Errorf("failed to encode edge: %w", err)
	}
	if err := txn.Set(edgeKey(edge.ID), data); err != nil {
		return err
	}
	if err := txn.Set(outgoingIndexKey(edge.StartNode, edge.ID), []byte{}); err != nil {
		return err
	}
	return txn.Set(incomingIndexKey(edge.EndNode, edge.ID), []byte{})
}

func deleteEdgeInTxn(txn *badger.Txn, id EdgeID) error {
	edge, err := getEdgeInTxn(txn, id)
	if err != nil {
		return err
	}
	if err := txn.Delete(outgoingIndexKey(edge.StartNode, id)); err != nil {
		return err
	}
	if err := txn.Delete(incomingIndexKey(edge.EndNode, id)); err != nil {
		return err
	}
	return txn.Delete(edgeKey(id))
}

// indexSuffixes returns the part of every key under prefix that follows it.
func indexSuffixes(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		out = append(out, string(it.Item().Key()[len(prefix):]))
	}
	return out
}

// ============================================================================
// Node Operations
// ============================================================================

// CreateNode creates a new node in persistent storage.
func (b *BadgerEngine) CreateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, nodeKey(node.ID))
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists
		}
		stored := copyNode(node)
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		return putNodeInTxn(txn, stored)
	})
}

// GetNode retrieves a node by ID.
func (b *BadgerEngine) GetNode(id NodeID) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var node *Node
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getNodeInTxn(txn, id)
		return err
	})
	return node, err
}

// UpdateNode replaces an existing node and its label index entries.
func (b *BadgerEngine) UpdateNode(node *Node) error {
	if node == nil {
		return ErrInvalidData
	}
	if node.ID == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		existing, err := getNodeInTxn(txn, node.ID)
		if err != nil {
			return err
		}

		for _, label := range existing.Labels {
			if err := txn.Delete(labelIndexKey(label, node.ID)); err != nil {
				return err
			}
		}

		stored := copyNode(node)
		stored.CreatedAt = existing.CreatedAt
		stored.UpdatedAt = time.Now()
		return putNodeInTxn(txn, stored)
	})
}

// DeleteNode removes a node and all its edges.
func (b *BadgerEngine) DeleteNode(id NodeID) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		node, err := getNodeInTxn(txn, id)
		if err != nil {
			return err
		}

		for _, label := range node.Labels {
			if err := txn.Delete(labelIndexKey(label, id)); err != nil {
				return err
			}
		}

		edgeIDs := indexSuffixes(txn, outgoingIndexPrefix(id))
		edgeIDs = append(edgeIDs, indexSuffixes(txn, incomingIndexPrefix(id))...)
		for _, edgeID := range edgeIDs {
			if err := deleteEdgeInTxn(txn, EdgeID(edgeID)); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		return txn.Delete(nodeKey(id))
	})
}

// ============================================================================
// Edge Operations
// ============================================================================

// CreateEdge creates a new edge between two existing nodes.
func (b *BadgerEngine) CreateEdge(edge *Edge) error {
	if edge == nil {
		return ErrInvalidData
	}
	if edge.ID == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := checkEdgeInsert(txn, edge); err != nil {
			return err
		}
		stored := copyEdge(edge)
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		return putEdgeInTxn(txn, stored)
	})
}

func checkEdgeInsert(txn *badger.Txn, edge *Edge) error {
	found, err := exists(txn, edgeKey(edge.ID))
	if err != nil {
		return err
	}
	if found {
		return ErrAlreadyExists
	}
	for _, endpoint := range []NodeID{edge.StartNode, edge.EndNode} {
		found, err := exists(txn, nodeKey(endpoint))
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
	}
	return nil
}

// GetEdge retrieves an edge by ID.
func (b *BadgerEngine) GetEdge(id EdgeID) (*Edge, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var edge *Edge
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		edge, err = getEdgeInTxn(txn, id)
		return err
	})
	return edge, err
}

// DeleteEdge removes an edge.
func (b *BadgerEngine) DeleteEdge(id EdgeID) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return deleteEdgeInTxn(txn, id)
	})
}

// ============================================================================
// Query Operations
// ============================================================================

// GetNodesByLabel returns all nodes with the specified label.
func (b *BadgerEngine) GetNodesByLabel(label string) ([]*Node, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var nodes []*Node
	err := b.db.View(func(txn *badger.Txn) error {
		for _, id := range indexSuffixes(txn, labelIndexPrefix(label)) {
			node, err := getNodeInTxn(txn, NodeID(id))
			if err != nil {
				continue // Skip if node was deleted
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetOutgoingEdges returns all edges where the given node is the source.
func (b *BadgerEngine) GetOutgoingEdges(nodeID NodeID) ([]*Edge, error) {
	if nodeID == "" {
		return nil, ErrInvalidID
	}
	return b.edgesByIndex(outgoingIndexPrefix(nodeID))
}

// GetIncomingEdges returns all edges where the given node is the target.
func (b *BadgerEngine) GetIncomingEdges(nodeID NodeID) ([]*Edge, error) {
	if nodeID == "" {
		return nil, ErrInvalidID
	}
	return b.edgesByIndex(incomingIndexPrefix(nodeID))
}

func (b *BadgerEngine) edgesByIndex(prefix []byte) ([]*Edge, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var edges []*Edge
	err := b.db.View(func(txn *badger.Txn) error {
		for _, id := range indexSuffixes(txn, prefix) {
			edge, err := getEdgeInTxn(txn, EdgeID(id))
			if err != nil {
				continue
			}
			edges = append(edges, edge)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// AllNodes returns all nodes (implements Engine interface).
func (b *BadgerEngine) AllNodes() ([]*Node, error) {
	var nodes []*Node
	err := b.StreamNodes(context.Background(), func(node *Node) error {
		nodes = append(nodes, node)
		return nil
	})
	return nodes, err
}

// AllEdges returns all edges (implements Engine interface).
func (b *BadgerEngine) AllEdges() ([]*Edge, error) {
	var edges []*Edge
	err := b.StreamEdges(context.Background(), func(edge *Edge) error {
		edges = append(edges, edge)
		return nil
	})
	return edges, err
}

// ============================================================================
// Bulk Operations
// ============================================================================

// BulkCreateNodes creates multiple nodes in a single transaction.
func (b *BadgerEngine) BulkCreateNodes(nodes []*Node) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	for _, node := range nodes {
		if node == nil {
			return ErrInvalidData
		}
		if node.ID == "" {
			return ErrInvalidID
		}
	}

	return b.db.Update(func(txn *badger.Txn) error {
		seen := make(map[NodeID]struct{}, len(nodes))
		for _, node := range nodes {
			if _, dup := seen[node.ID]; dup {
				return ErrAlreadyExists
			}
			seen[node.ID] = struct{}{}
			found, err := exists(txn, nodeKey(node.ID))
			if err != nil {
				return err
			}
			if found {
				return ErrAlreadyExists
			}
		}

		now := time.Now()
		for _, node := range nodes {
			stored := copyNode(node)
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = now
			}
			if err := putNodeInTxn(txn, stored); err != nil {
				return err
			}
		}
		return nil
	})
}

// BulkCreateEdges creates multiple edges in a single transaction.
func (b *BadgerEngine) BulkCreateEdges(edges []*Edge) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	for _, edge := range edges {
		if edge == nil {
			return ErrInvalidData
		}
		if edge.ID == "" {
			return ErrInvalidID
		}
	}

	return b.db.Update(func(txn *badger.Txn) error {
		seen := make(map[EdgeID]struct{}, len(edges))
		for _, edge := range edges {
			if _, dup := seen[edge.ID]; dup {
				return ErrAlreadyExists
			}
			seen[edge.ID] = struct{}{}
			if err := checkEdgeInsert(txn, edge); err != nil {
				return err
			}
		}

		now := time.Now()
		for _, edge := range edges {
			stored := copyEdge(edge)
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = now
			}
			if err := putEdgeInTxn(txn, stored); err != nil {
				return err
			}
		}
		return nil
	})
}

// ============================================================================
// Stats and Lifecycle
// ============================================================================

// NodeCount returns the total number of nodes.
func (b *BadgerEngine) NodeCount() (int64, error) {
	return b.countPrefix([]byte{prefixNode})
}

// EdgeCount returns the total number of edges.
func (b *BadgerEngine) EdgeCount() (int64, error) {
	return b.countPrefix([]byte{prefixEdge})
}

func (b *BadgerEngine) countPrefix(prefix []byte) (int64, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the BadgerDB database.
func (b *BadgerEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	return b.db.Close()
}

// Sync forces a sync of all data to disk.
func (b *BadgerEngine) Sync() error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	return b.db.Sync()
}

// ============================================================================
// Streaming
// ============================================================================

// StreamNodes implements StreamingEngine.StreamNodes.
func (b *BadgerEngine) StreamNodes(ctx context.Context, fn func(node *Node) error) error {
	return b.streamPrefix(ctx, prefixNode, func(val []byte) error {
		node, err := decodeNode(val)
		if err != nil {
			return nil // Skip invalid nodes
		}
		return fn(node)
	})
}

// StreamEdges implements StreamingEngine.StreamEdges.
func (b *BadgerEngine) StreamEdges(ctx context.Context, fn func(edge *Edge) error) error {
	return b.streamPrefix(ctx, prefixEdge, func(val []byte) error {
		edge, err := decodeEdge(val)
		if err != nil {
			return nil
		}
		return fn(edge)
	})
}

func (b *BadgerEngine) streamPrefix(ctx context.Context, prefix byte, fn func(val []byte) error) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte{prefix}
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var callErr error
			if err := it.Item().Value(func(val []byte) error {
				callErr = fn(val)
				return nil
			}); err != nil {
				return err
			}
			if callErr != nil {
				if errors.Is(callErr, ErrIterationStopped) {
					return nil // Normal stop
				}
				return callErr
			}
		}
		return nil
	})
}

var (
	_ Engine          = (*BadgerEngine)(nil)
	_ StreamingEngine = (*BadgerEngine)(nil)
)
