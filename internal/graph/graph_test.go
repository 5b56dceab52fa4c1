package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoop_SatisfiesSinkAndSource(t *testing.T) {
	var sink GraphSink = Noop{}
	var source GraphSource = Noop{}

	require.NoError(t, sink.WriteEntities(context.Background(), []Entity{{ID: "e1"}}))
	require.NoError(t, sink.WriteRelationships(context.Background(), []Relationship{{FromEntityID: "e1", ToEntityID: "e2"}}))

	entities, err := source.RelatedEntities(context.Background(), "doc-1", 1)
	require.NoError(t, err)
	require.Empty(t, entities)
}
