package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LoadFromNeo4jJSON loads a graph from a directory holding line-delimited
// nodes.json and relationships.json files.
//
// Directory Structure:
//
//	graph/
//	├── nodes.json
//	└── relationships.json
//
// Node Format (nodes.json):
//
//	{"id":"http://example.org/occ1","labels":["NamedIndividual"],"properties":{}}
//
// Relationship Format (relationships.json):
//
//	{"id":"e1","type":"http://rs.tdwg.org/dwc/terms/identificationID","startNode":"http://example.org/occ1","endNode":"http://example.org/det1","properties":{}}
//
// Nodes are loaded before relationships because edges need both endpoints.
func LoadFromNeo4jJSON(engine Engine, dir string) error {
	if err := loadNodesFile(engine, filepath.Join(dir, "nodes.json")); err != nil {
		return fmt.Errorf("loading nodes: %w", err)
	}
	if err := loadRelationshipsFile(engine, filepath.Join(dir, "relationships.json")); err != nil {
		return fmt.Errorf("loading relationships: %w", err)
	}
	return nil
}

// LoadFromNeo4jExport loads data from a combined export file.
//
// File Format:
//
//	{
//	  "nodes": [
//	    {"id":"http://example.org/occ1","labels":["NamedIndividual"],"properties":{}}
//	  ],
//	  "relationships": [
//	    {"id":"e1","type":"http://www.w3.org/1999/02/22-rdf-syntax-ns#type","startNode":"...","endNode":"...","properties":{}}
//	  ]
//	}
//
// The whole document is inserted with BulkCreateNodes and BulkCreateEdges,
// so a document that references a missing node leaves nodes loaded but no
// edges.
func LoadFromNeo4jExport(engine Engine, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(engine, file)
}

// LoadFromReader decodes a combined export document from r into engine.
func LoadFromReader(engine Engine, r io.Reader) error {
	var export Neo4jExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}

	nodes, edges := FromNeo4jExport(&export)

	if err := engine.BulkCreateNodes(nodes); err != nil {
		return fmt.Errorf("creating nodes: %w", err)
	}
	if err := engine.BulkCreateEdges(edges); err != nil {
		return fmt.Errorf("creating edges: %w", err)
	}
	return nil
}

// Load reads a graph from path, which is either a combined export file or a
// directory in the line-delimited layout.
func Load(engine Engine, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadFromNeo4jJSON(engine, path)
	}
	return LoadFromNeo4jExport(engine, path)
}

// SaveToNeo4jExport writes every node and relationship of engine to path in
// the combined export format. Output is ordered by ID so saving the same
// graph twice yields the same bytes apart from timestamps.
//
// The file is written to a temporary sibling and renamed into place.
func SaveToNeo4jExport(engine Engine, path string) error {
	nodes, err := engine.AllNodes()
	if err != nil {
		return fmt.Errorf("listing nodes: %w", err)
	}
	edges, err := engine.AllEdges()
	if err != nil {
		return fmt.Errorf("listing edges: %w", err)
	}
	sortNodes(nodes)
	sortEdges(edges)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mxgraph-export-*")
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := SaveToWriter(tmp, nodes, edges); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming export: %w", err)
	}
	return nil
}

// SaveToWriter encodes nodes and edges as an indented export document.
func SaveToWriter(w io.Writer, nodes []*Node, edges []*Edge) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(ToNeo4jExport(nodes, edges)); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func loadNodesFile(engine Engine, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw []Neo4jNode
	err = scanLines(file, func(line []byte) error {
		var n Neo4jNode
		if err := json.Unmarshal(line, &n); err != nil {
			return fmt.Errorf("parsing node: %w", err)
		}
		raw = append(raw, n)
		return nil
	})
	if err != nil {
		return err
	}

	nodes, _ := FromNeo4jExport(&Neo4jExport{Nodes: raw})
	return engine.BulkCreateNodes(nodes)
}

func loadRelationshipsFile(engine Engine, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // A graph without relationships is valid
		}
		return err
	}
	defer file.Close()

	var raw []Neo4jRelationship
	err = scanLines(file, func(line []byte) error {
		var r Neo4jRelationship
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("parsing relationship: %w", err)
		}
		raw = append(raw, r)
		return nil
	})
	if err != nil {
		return err
	}

	_, edges := FromNeo4jExport(&Neo4jExport{Relationships: raw})
	return engine.BulkCreateEdges(edges)
}

func scanLines(r io.Reader, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
