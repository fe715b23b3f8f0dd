package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"TradeWatch/internal/domain/models"
	"TradeWatch/internal/domain/repository"
	"TradeWatch/internal/service/cypher"
	"TradeWatch/internal/service/roles"
	"TradeWatch/internal/service/schema"
	"TradeWatch/internal/service/score"
	xlogger "TradeWatch/pkg/logger"
)

// ErrUnsupportedFamily is returned for pattern families the detector does not
// implement yet.
var ErrUnsupportedFamily = errors.New("unsupported pattern family")

const (
	maxRelatedItems   = 10
	accountProbeItems = 5
	descriptionItems  = 5
	recentIDsLimit    = 10
)

// detectableFamilies are the families DetectAll runs, in a fixed order so
// aggregated output is stable.
var detectableFamilies = []models.PatternType{
	models.PatternSpoofing,
	models.PatternLayering,
	models.PatternVolumeAnomaly,
}

// Detector orchestrates schema discovery, role classification, config
// resolution, query synthesis, and scoring into detection runs. It holds no
// per-run state; all methods are safe for concurrent use.
type Detector struct {
	store         repository.GraphStore
	discovery     *schema.Discovery
	logger        *xlogger.Logger
	metrics       repository.Metrics
	lookbackHours int
}

func NewDetector(store repository.GraphStore, discovery *schema.Discovery, logger *xlogger.Logger, metrics repository.Metrics, defaultLookbackHours int) *Detector {
	if defaultLookbackHours <= 0 {
		defaultLookbackHours = 168
	}
	return &Detector{
		store:         store,
		discovery:     discovery,
		logger:        logger,
		metrics:       metrics,
		lookbackHours: defaultLookbackHours,
	}
}

// RefreshSchema re-discovers the schema, bypassing the cached snapshot when
// force is set.
func (d *Detector) RefreshSchema(ctx context.Context, force bool) (*models.DiscoveredSchema, error) {
	return d.discovery.Discover(ctx, force)
}

// Schema returns the current snapshot, discovering one on first use.
func (d *Detector) Schema(ctx context.Context) (*models.DiscoveredSchema, error) {
	return d.discovery.Discover(ctx, false)
}

// RoleIndex classifies the current schema into trading roles.
func (d *Detector) RoleIndex(ctx context.Context) (*models.TradingRoleIndex, error) {
	s, err := d.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return roles.Classify(s), nil
}

// SampleQueries derives example Cypher statements from the current schema.
func (d *Detector) SampleQueries(ctx context.Context) ([]models.SampleQuery, error) {
	s, err := d.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return schema.SampleQueries(s, roles.Classify(s)), nil
}

// DetectAll runs every supported family over one schema snapshot. A family
// that fails is logged and skipped; its failure never suppresses the others.
func (d *Detector) DetectAll(ctx context.Context, lookbackHours int) ([]models.SuspiciousActivity, error) {
	s, err := d.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect all: %w", err)
	}
	idx := roles.Classify(s)
	lookbackHours = d.normalizeLookback(lookbackHours)

	var findings []models.SuspiciousActivity
	for _, family := range detectableFamilies {
		part, err := d.detect(ctx, s, idx, family, lookbackHours)
		if err != nil {
			d.logger.Error("pattern family failed",
				xlogger.String("family", string(family)),
				xlogger.Error(err))
			continue
		}
		findings = append(findings, part...)
	}

	d.logger.Info("detection run finished",
		xlogger.Int("lookback_hours", lookbackHours),
		xlogger.Int("findings", len(findings)))
	return findings, nil
}

// DetectFamily runs a single pattern family.
func (d *Detector) DetectFamily(ctx context.Context, family models.PatternType, lookbackHours int) ([]models.SuspiciousActivity, error) {
	if !supported(family) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
	}
	s, err := d.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", family, err)
	}
	return d.detect(ctx, s, roles.Classify(s), family, d.normalizeLookback(lookbackHours))
}

func supported(family models.PatternType) bool {
	for _, f := range detectableFamilies {
		if f == family {
			return true
		}
	}
	return false
}

func (d *Detector) normalizeLookback(hours int) int {
	if hours <= 0 {
		return d.lookbackHours
	}
	return hours
}

func (d *Detector) detect(ctx context.Context, s *models.DiscoveredSchema, idx *models.TradingRoleIndex, family models.PatternType, lookbackHours int) ([]models.SuspiciousActivity, error) {
	if family == models.PatternVolumeAnomaly {
		return d.detectVolume(ctx, s, idx, lookbackHours)
	}

	cfg := resolveConfig(s, idx)
	if cfg == nil {
		d.logger.Info("no detection config resolvable for schema",
			xlogger.String("family", string(family)))
		return nil, nil
	}

	builder := cypher.NewBuilder(s)
	rows, err := d.runWithFallback(ctx, builder, family, cfg, lookbackHours)
	if err != nil {
		if errors.Is(err, cypher.ErrNoStatusProperty) || errors.Is(err, cypher.ErrNoTemporalProperty) {
			d.logger.Info("schema lacks required property for family",
				xlogger.String("family", string(family)),
				xlogger.Error(err))
			return nil, nil
		}
		return nil, err
	}

	findings := make([]models.SuspiciousActivity, 0, len(rows))
	for _, rec := range rows {
		a, ok := d.buildFinding(ctx, builder, family, cfg, rec, lookbackHours)
		if !ok {
			continue
		}
		d.metrics.RecordFinding(string(family), string(a.Severity))
		findings = append(findings, a)
	}
	return findings, nil
}

// runWithFallback executes the three-tier fallback chain: configured link,
// alternate actor links, then the system-wide variant. The chain stops at the
// first tier producing at least one row; empty tiers fall through, query
// errors fall through with a warning. Without a configured link the first two
// tiers have nothing to group by and the system-wide query runs once.
func (d *Detector) runWithFallback(ctx context.Context, builder *cypher.Builder, family models.PatternType, cfg *models.DetectionConfig, lookbackHours int) ([]models.Record, error) {
	if cfg.Link != nil {
		q, args, err := builder.Build(family, cfg, lookbackHours)
		if err != nil {
			return nil, err
		}
		rows, err := d.store.ExecuteQuery(ctx, q, args)
		if err == nil && len(rows) > 0 {
			return rows, nil
		}
		if err != nil {
			d.logger.Warn("configured link query failed, trying alternates",
				xlogger.String("family", string(family)),
				xlogger.Error(err))
		}

		for _, rel := range alternateRelationships(builder.Schema(), cfg) {
			alt := cfg.WithLink(rel)
			q, args, err := builder.Build(family, alt, lookbackHours)
			if err != nil {
				continue
			}
			rows, err := d.store.ExecuteQuery(ctx, q, args)
			if err != nil {
				d.logger.Warn("alternate link query failed",
					xlogger.String("family", string(family)),
					xlogger.String("relationship", rel),
					xlogger.Error(err))
				continue
			}
			if len(rows) > 0 {
				return rows, nil
			}
		}
	}

	q, args, err := builder.BuildSystemWide(family, cfg, lookbackHours)
	if err != nil {
		return nil, err
	}
	rows, err := d.store.ExecuteQuery(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("system-wide %s query: %w", family, err)
	}
	return rows, nil
}

// buildFinding normalizes one result row into a scored finding. Rows below
// the acceptance floor are dropped.
func (d *Detector) buildFinding(ctx context.Context, builder *cypher.Builder, family models.PatternType, cfg *models.DetectionConfig, rec models.Record, lookbackHours int) (models.SuspiciousActivity, bool) {
	entityID := readString(rec, "entity_id")
	if entityID == "" {
		entityID = cypher.SystemWideEntity
	}
	instrument := readString(rec, "instrument")
	if instrument == "" {
		instrument = "unknown"
	}
	total := readInt(rec, "total_items")
	cancelled := readInt(rec, "cancelled_count")
	related := coerceStrings(rec["related_items"])
	if len(related) > maxRelatedItems {
		related = related[:maxRelatedItems]
	}

	var confidence float64
	var description string
	switch family {
	case models.PatternSpoofing:
		confidence = score.Spoofing(total, cancelled)
		description = fmt.Sprintf("%d of %d %s items cancelled within %dh window%s",
			cancelled, total, cfg.PrimaryEntity, lookbackHours, summarizeItems(related))
	case models.PatternLayering:
		confidence = score.Layering(total, instrument, entityID, related)
		description = fmt.Sprintf("layered sequence of %d %s items within %dh window%s",
			total, cfg.PrimaryEntity, lookbackHours, summarizeItems(related))
	default:
		return models.SuspiciousActivity{}, false
	}
	if confidence < score.AcceptanceFloor {
		return models.SuspiciousActivity{}, false
	}

	a := models.SuspiciousActivity{
		ActivityID:      score.ActivityID(family, entityID, instrument, related),
		PatternType:     family,
		EntityID:        entityID,
		AccountID:       d.lookupAccount(ctx, builder, cfg, related),
		Instrument:      instrument,
		ConfidenceScore: confidence,
		Severity:        score.Severity(confidence),
		Timestamp:       time.Now().UTC(),
		Description:     description,
		RelatedItems:    related,
	}
	return a, true
}

// lookupAccount resolves the account behind a finding by probing its first
// few related items and taking the most frequent owner. Probe failures are
// tolerated; attribution is best effort.
func (d *Detector) lookupAccount(ctx context.Context, builder *cypher.Builder, cfg *models.DetectionConfig, related []string) string {
	q, ok := builder.AccountLookup(cfg)
	if !ok || len(related) == 0 {
		return ""
	}
	probe := related
	if len(probe) > accountProbeItems {
		probe = probe[:accountProbeItems]
	}

	counts := make(map[string]int)
	for _, item := range probe {
		rows, err := d.store.ExecuteQuery(ctx, q, map[string]interface{}{"item_id": item})
		if err != nil || len(rows) == 0 {
			continue
		}
		if id := readString(rows[0], "account_id"); id != "" {
			counts[id]++
		}
	}
	if len(counts) == 0 {
		return ""
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	best := ids[0]
	for _, id := range ids[1:] {
		if counts[id] > counts[best] {
			best = id
		}
	}
	return best
}

// detectVolume scans every non-primary entity type for abnormal recent
// activity relative to its total population.
func (d *Detector) detectVolume(ctx context.Context, s *models.DiscoveredSchema, idx *models.TradingRoleIndex, lookbackHours int) ([]models.SuspiciousActivity, error) {
	builder := cypher.NewBuilder(s)

	skip := make(map[string]bool)
	if cfg := resolveConfig(s, idx); cfg != nil {
		skip[cfg.PrimaryEntity] = true
	}

	types := append([]string(nil), s.EntityTypes...)
	sort.Strings(types)

	var findings []models.SuspiciousActivity
	for _, entityType := range types {
		if skip[entityType] {
			continue
		}
		temporal := matchProperty(s, entityType, temporalKeywords)
		if temporal == "" {
			continue
		}

		q, args, err := builder.VolumeCount(entityType, temporal, lookbackHours)
		if err != nil {
			continue
		}
		rows, err := d.store.ExecuteQuery(ctx, q, args)
		if err != nil {
			d.logger.Warn("volume scan failed",
				xlogger.String("entity_type", entityType),
				xlogger.Error(err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		recent := readInt(rows[0], "recent_count")
		totalCount := readInt(rows[0], "total_count")
		related := d.recentIDs(ctx, builder, entityType, temporal, lookbackHours)

		confidence := score.VolumeAnomalyConfidence
		a := models.SuspiciousActivity{
			ActivityID:      score.ActivityID(models.PatternVolumeAnomaly, entityType, "unknown", related),
			PatternType:     models.PatternVolumeAnomaly,
			EntityID:        entityType,
			Instrument:      "unknown",
			ConfidenceScore: confidence,
			Severity:        score.Severity(confidence),
			Timestamp:       time.Now().UTC(),
			Description: fmt.Sprintf("%d recent %s instances against %d total within %dh window",
				recent, entityType, totalCount, lookbackHours),
			RelatedItems: related,
		}
		d.metrics.RecordFinding(string(models.PatternVolumeAnomaly), string(a.Severity))
		findings = append(findings, a)
	}
	return findings, nil
}

func (d *Detector) recentIDs(ctx context.Context, builder *cypher.Builder, entityType, temporal string, lookbackHours int) []string {
	idProp := models.FindIDProperty(builder.Schema().EntityProperties(entityType))
	q, args, err := builder.RecentIDs(entityType, temporal, idProp, recentIDsLimit, lookbackHours)
	if err != nil {
		return nil
	}
	rows, err := d.store.ExecuteQuery(ctx, q, args)
	if err != nil || len(rows) == 0 {
		return nil
	}
	return coerceStrings(rows[0]["related_items"])
}

func summarizeItems(items []string) string {
	if len(items) == 0 {
		return ""
	}
	shown := items
	more := 0
	if len(shown) > descriptionItems {
		more = len(shown) - descriptionItems
		shown = shown[:descriptionItems]
	}
	suffix := ""
	if more > 0 {
		suffix = fmt.Sprintf(", +%d more", more)
	}
	return fmt.Sprintf(" (items: %s%s)", strings.Join(shown, ", "), suffix)
}
