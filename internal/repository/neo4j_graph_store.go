package repository

import (
	"context"
	"time"

	"TradeWatch/internal/domain/models"
	domainrepo "TradeWatch/internal/domain/repository"
	"TradeWatch/pkg/neo4j"
)

// Neo4jGraphStore adapts the Neo4j client to the GraphStore port, recording
// query metrics on the way through.
type Neo4jGraphStore struct {
	client  *neo4j.Client
	metrics domainrepo.Metrics
}

func NewNeo4jGraphStore(client *neo4j.Client, metrics domainrepo.Metrics) *Neo4jGraphStore {
	return &Neo4jGraphStore{client: client, metrics: metrics}
}

func (s *Neo4jGraphStore) ExecuteQuery(ctx context.Context, cypher string, params map[string]interface{}) ([]models.Record, error) {
	start := time.Now()
	rows, err := s.client.ExecuteQuery(ctx, cypher, params)
	s.metrics.RecordQuery("execute", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordQueryError("execute")
		return nil, err
	}

	out := make([]models.Record, len(rows))
	for i, row := range rows {
		out[i] = models.Record(row)
	}
	return out, nil
}

func (s *Neo4jGraphStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *Neo4jGraphStore) Close() error {
	return s.client.Close()
}
