// Package graph defines the injection points for knowledge-graph
// extraction. The extraction internals themselves are out of scope
// (treated as a black-box entity/relationship sink/source); this
// package exists only so retrieval and ingestion components have a
// concrete interface to depend on and a no-op default to run against
// when no graph backend is wired in.
package graph

import "context"

// Entity is one node a graph backend stores, identified by the document
// or chunk it was extracted from.
type Entity struct {
	ID         string
	Type       string
	Name       string
	DocumentID string
}

// Relationship is one directed edge between two entities.
type Relationship struct {
	FromEntityID string
	ToEntityID   string
	Type         string
	DocumentID   string
}

// GraphSink receives entities/relationships extracted during ingestion.
// A real implementation would hand these to a graph database; this
// package makes no assumption about which one.
type GraphSink interface {
	WriteEntities(ctx context.Context, entities []Entity) error
	WriteRelationships(ctx context.Context, relationships []Relationship) error
}

// GraphSource answers traversal queries during retrieval, e.g. "what
// entities relate to this document".
type GraphSource interface {
	RelatedEntities(ctx context.Context, documentID string, depth int) ([]Entity, error)
}

// Noop satisfies both GraphSink and GraphSource by doing nothing,
// so a pipeline can be wired without a graph backend present.
type Noop struct{}

func (Noop) WriteEntities(context.Context, []Entity) error             { return nil }
func (Noop) WriteRelationships(context.Context, []Relationship) error  { return nil }
func (Noop) RelatedEntities(context.Context, string, int) ([]Entity, error) { return nil, nil }
