package repository

import (
	"context"

	"TradeWatch/internal/domain/models"
)

// GraphStore is the synchronous request/response interface to the graph
// database. Implementations must be safe for concurrent use; the detection
// engine issues a small bounded number of sequential queries per invocation.
type GraphStore interface {
	ExecuteQuery(ctx context.Context, cypher string, params map[string]interface{}) ([]models.Record, error)
	Health(ctx context.Context) error
	Close() error
}

// AlertPublisher delivers accepted findings to the alert channel.
type AlertPublisher interface {
	Publish(ctx context.Context, alert *models.Alert) error
	Close() error
}

// Metrics records engine observability signals.
type Metrics interface {
	RecordQuery(operation string, seconds float64)
	RecordQueryError(kind string)
	RecordFinding(family, severity string)
	RecordSchemaRefresh(entityTypes int)
}
