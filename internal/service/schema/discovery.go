package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"TradeWatch/internal/domain/models"
	"TradeWatch/internal/domain/repository"
	xlogger "TradeWatch/pkg/logger"
)

const (
	// Bounded sample per entity type; PropertyStats are approximate by design.
	defaultSampleSize = 100
	// Top-N relationship triples kept, ordered by occurrence count.
	defaultPatternLimit = 100
	// Sample values retained per property.
	maxSampleValues = 10
	// Long sample values are truncated before retention.
	maxSampleValueLen = 100
)

// Discovery introspects the graph database and maintains a cached schema
// snapshot. The snapshot is replaced atomically on refresh: concurrent readers
// always observe either the previous or the new complete snapshot.
type Discovery struct {
	store        repository.GraphStore
	logger       *xlogger.Logger
	metrics      repository.Metrics
	sampleSize   int
	patternLimit int
	snapshot     atomic.Pointer[models.DiscoveredSchema]
}

// Option configures Discovery.
type Option func(*Discovery)

// WithSampleSize bounds the per-entity-type instance sample.
func WithSampleSize(n int) Option {
	return func(d *Discovery) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithPatternLimit bounds the number of relationship triples retained.
func WithPatternLimit(n int) Option {
	return func(d *Discovery) {
		if n > 0 {
			d.patternLimit = n
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(d *Discovery) {
		d.metrics = m
	}
}

func New(store repository.GraphStore, logger *xlogger.Logger, opts ...Option) *Discovery {
	d := &Discovery{
		store:        store,
		logger:       logger,
		sampleSize:   defaultSampleSize,
		patternLimit: defaultPatternLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Snapshot returns the cached schema, or nil when discovery has never run.
func (d *Discovery) Snapshot() *models.DiscoveredSchema {
	return d.snapshot.Load()
}

// Discover returns the cached schema snapshot, rebuilding it on first call or
// when force is set. Individual sub-query failures degrade the affected piece
// to an empty value; discovery itself never fails past this boundary.
func (d *Discovery) Discover(ctx context.Context, force bool) (*models.DiscoveredSchema, error) {
	if !force {
		if snap := d.snapshot.Load(); snap != nil {
			return snap, nil
		}
	}

	d.logger.Info("discovering graph schema", xlogger.Bool("force", force))
	start := time.Now()

	s := &models.DiscoveredSchema{
		EntityTypes:            d.entityTypes(ctx),
		RelationshipTypes:      d.relationshipTypes(ctx),
		PropertyKeys:           d.propertyKeys(ctx),
		Properties:             map[string]map[string]models.PropertyStats{},
		RelationshipProperties: map[string]map[string]models.PropertyStats{},
		EntityCounts:           map[string]int64{},
		DiscoveredAt:           time.Now().UTC(),
	}

	for _, label := range s.EntityTypes {
		s.Properties[label] = d.entityProperties(ctx, label)
		s.EntityCounts[label] = d.entityCount(ctx, label)
	}

	s.Patterns = d.relationshipPatterns(ctx)
	for _, rel := range s.RelationshipTypes {
		s.RelationshipProperties[rel] = d.relationshipProperties(ctx, rel)
	}

	d.snapshot.Store(s)
	if d.metrics != nil {
		d.metrics.RecordSchemaRefresh(len(s.EntityTypes))
	}
	d.logger.Info("schema discovered",
		xlogger.Int("entity_types", len(s.EntityTypes)),
		xlogger.Int("relationship_types", len(s.RelationshipTypes)),
		xlogger.Duration("took_ms", time.Since(start)),
	)
	return s, nil
}

func (d *Discovery) entityTypes(ctx context.Context) []string {
	rows, err := d.store.ExecuteQuery(ctx,
		"CALL db.labels() YIELD label RETURN label ORDER BY label", nil)
	if err != nil {
		d.logger.Warn("entity type discovery failed", xlogger.Error(err))
		return nil
	}
	return collectStrings(rows, "label")
}

func (d *Discovery) relationshipTypes(ctx context.Context) []string {
	rows, err := d.store.ExecuteQuery(ctx,
		"CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType ORDER BY relationshipType", nil)
	if err != nil {
		d.logger.Warn("relationship type discovery failed", xlogger.Error(err))
		return nil
	}
	return collectStrings(rows, "relationshipType")
}

func (d *Discovery) propertyKeys(ctx context.Context) []string {
	rows, err := d.store.ExecuteQuery(ctx,
		"CALL db.propertyKeys() YIELD propertyKey RETURN propertyKey ORDER BY propertyKey", nil)
	if err != nil {
		d.logger.Warn("property key discovery failed", xlogger.Error(err))
		return nil
	}
	return collectStrings(rows, "propertyKey")
}

func (d *Discovery) entityProperties(ctx context.Context, label string) map[string]models.PropertyStats {
	cypher := fmt.Sprintf("MATCH (n:`%s`) RETURN properties(n) AS props LIMIT %d",
		escapeIdent(label), d.sampleSize)
	rows, err := d.store.ExecuteQuery(ctx, cypher, nil)
	if err != nil {
		d.logger.Warn("property sampling failed",
			xlogger.String("entity_type", label), xlogger.Error(err))
		return map[string]models.PropertyStats{}
	}
	return buildStats(rows)
}

func (d *Discovery) relationshipProperties(ctx context.Context, rel string) map[string]models.PropertyStats {
	cypher := fmt.Sprintf("MATCH ()-[r:`%s`]-() RETURN properties(r) AS props LIMIT %d",
		escapeIdent(rel), d.sampleSize)
	rows, err := d.store.ExecuteQuery(ctx, cypher, nil)
	if err != nil {
		d.logger.Warn("relationship property sampling failed",
			xlogger.String("relationship", rel), xlogger.Error(err))
		return map[string]models.PropertyStats{}
	}
	return buildStats(rows)
}

func (d *Discovery) entityCount(ctx context.Context, label string) int64 {
	cypher := fmt.Sprintf("MATCH (n:`%s`) RETURN count(n) AS count", escapeIdent(label))
	rows, err := d.store.ExecuteQuery(ctx, cypher, nil)
	if err != nil {
		d.logger.Warn("entity count failed",
			xlogger.String("entity_type", label), xlogger.Error(err))
		return 0
	}
	if len(rows) == 0 {
		return 0
	}
	return asInt64(rows[0]["count"])
}

func (d *Discovery) relationshipPatterns(ctx context.Context) []models.RelationshipPattern {
	cypher := fmt.Sprintf(`MATCH (a)-[r]->(b)
RETURN labels(a) AS source_types, type(r) AS relationship_type, labels(b) AS target_types, count(*) AS count
ORDER BY count DESC
LIMIT %d`, d.patternLimit)
	rows, err := d.store.ExecuteQuery(ctx, cypher, nil)
	if err != nil {
		d.logger.Warn("relationship pattern discovery failed", xlogger.Error(err))
		return nil
	}

	patterns := make([]models.RelationshipPattern, 0, len(rows))
	for _, row := range rows {
		patterns = append(patterns, models.RelationshipPattern{
			SourceTypes:      asStrings(row["source_types"]),
			RelationshipType: asString(row["relationship_type"]),
			TargetTypes:      asStrings(row["target_types"]),
			Count:            asInt64(row["count"]),
		})
	}
	return patterns
}

// buildStats aggregates sampled property maps into per-property statistics.
func buildStats(rows []models.Record) map[string]models.PropertyStats {
	stats := map[string]models.PropertyStats{}
	seen := map[string]map[string]bool{}

	for _, row := range rows {
		props, ok := row["props"].(map[string]interface{})
		if !ok {
			continue
		}
		for key, value := range props {
			st := stats[key]
			st.TotalCount++
			if value == nil {
				st.NullCount++
			} else {
				if st.Kind == "" {
					st.Kind = kindOf(value)
				}
				if len(st.SampleValues) < maxSampleValues {
					sv := formatSample(value)
					if seen[key] == nil {
						seen[key] = map[string]bool{}
					}
					if !seen[key][sv] {
						seen[key][sv] = true
						st.SampleValues = append(st.SampleValues, sv)
					}
				}
			}
			stats[key] = st
		}
	}

	for key, st := range stats {
		sort.Strings(st.SampleValues)
		stats[key] = st
	}
	return stats
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64:
		return "integer"
	case float32, float64:
		return "float"
	case time.Time:
		return "datetime"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func formatSample(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > maxSampleValueLen {
		s = s[:maxSampleValueLen]
	}
	return s
}

// escapeIdent neutralizes backticks so a discovered name can never break out
// of its quoting when interpolated into Cypher.
func escapeIdent(name string) string {
	return strings.ReplaceAll(name, "`", "``")
}

func collectStrings(rows []models.Record, key string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if s := asString(row[key]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStrings(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
