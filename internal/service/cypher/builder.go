// Package cypher synthesizes detection queries from a resolved config and the
// live schema snapshot. Entity, relationship, and property names are
// interpolated only after validation against the discovered catalog; the only
// externally supplied value, the lookback window, is always a bound parameter.
package cypher

import (
	"errors"
	"fmt"
	"strings"

	"TradeWatch/internal/domain/models"
)

// LookbackParam is the bound parameter carrying the lookback window in hours.
const LookbackParam = "lookback_hours"

// cancelPattern matches status values that mean cancelled, aborted, or rejected.
const cancelPattern = ".*(?i)(cancel|abort|reject).*"

// SystemWideEntity is the entity id reported for findings not attributable to
// a specific actor.
const SystemWideEntity = "system_wide"

const relatedItemsCap = 10

var (
	ErrUnknownIdentifier  = errors.New("identifier not present in discovered schema")
	ErrNoTemporalProperty = errors.New("config has no temporal property")
	ErrNoStatusProperty   = errors.New("config has no status property")
	ErrUnsupportedFamily  = errors.New("unsupported pattern family")
)

// Candidate instrument properties on an instrument-like entity, tried in order.
var instrumentProps = []string{"symbol", "ticker", "cusip", "isin", "name"}

// Entity-type keywords that mark an instrument-like entity.
var instrumentEntityKeywords = []string{"instrument", "security", "symbol", "asset", "stock"}

// Canonical relationship from the primary entity to its instrument.
const instrumentRelationship = "INVOLVES"

// Builder synthesizes Cypher for one schema snapshot.
type Builder struct {
	schema *models.DiscoveredSchema
}

func NewBuilder(schema *models.DiscoveredSchema) *Builder {
	return &Builder{schema: schema}
}

// Schema returns the snapshot this builder validates against.
func (b *Builder) Schema() *models.DiscoveredSchema {
	return b.schema
}

// Build returns the detection query for a family. A config with an entity
// link produces an actor-grouped query; without one it degrades to the
// system-wide variant.
func (b *Builder) Build(family models.PatternType, cfg *models.DetectionConfig, lookbackHours int) (string, map[string]interface{}, error) {
	if cfg.Link == nil {
		return b.BuildSystemWide(family, cfg, lookbackHours)
	}
	switch family {
	case models.PatternSpoofing:
		return b.spoofingGrouped(cfg, lookbackHours)
	case models.PatternLayering:
		return b.layeringGrouped(cfg, lookbackHours)
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
	}
}

// BuildSystemWide returns the relationship-agnostic, dataset-wide variant.
func (b *Builder) BuildSystemWide(family models.PatternType, cfg *models.DetectionConfig, lookbackHours int) (string, map[string]interface{}, error) {
	switch family {
	case models.PatternSpoofing:
		return b.spoofingSystemWide(cfg, lookbackHours)
	case models.PatternLayering:
		return b.layeringSystemWide(cfg, lookbackHours)
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
	}
}

func (b *Builder) spoofingGrouped(cfg *models.DetectionConfig, lookbackHours int) (string, map[string]interface{}, error) {
	if cfg.TemporalProperty == "" {
		return "", nil, ErrNoTemporalProperty
	}
	// Spoofing needs both cancelled-like and not-cancelled partitions; with no
	// status property the family cannot produce a valid candidate.
	if cfg.StatusProperty == "" {
		return "", nil, ErrNoStatusProperty
	}

	primary, err := b.entity(cfg.PrimaryEntity)
	if err != nil {
		return "", nil, err
	}
	link, actor, err := b.linkIdents(cfg.Link)
	if err != nil {
		return "", nil, err
	}
	timeProp, err := b.property(cfg.PrimaryEntity, cfg.TemporalProperty)
	if err != nil {
		return "", nil, err
	}
	statusProp, err := b.property(cfg.PrimaryEntity, cfg.StatusProperty)
	if err != nil {
		return "", nil, err
	}

	var q []string
	q = append(q, fmt.Sprintf("MATCH (t:%s)%s(actor:%s)", primary, linkArrow(cfg.Link, link), actor))
	q = append(q, fmt.Sprintf("WHERE t.%s >= datetime() - duration({hours: $%s})", timeProp, LookbackParam))
	q = append(q, b.instrumentMatch("t")...)
	q = append(q, "WITH actor, collect(DISTINCT t) AS items"+b.instrumentCollect())
	q = append(q, "WHERE size(items) >= 2")
	q = append(q, b.instrumentProject("actor, items")...)
	q = append(q, "WITH actor, items, instrument,")
	q = append(q, fmt.Sprintf("  [x IN items WHERE x.%s IS NOT NULL AND x.%s =~ '%s'] AS cancelled,", statusProp, statusProp, cancelPattern))
	q = append(q, fmt.Sprintf("  [x IN items WHERE x.%s IS NULL OR NOT (x.%s =~ '%s')] AS executed", statusProp, statusProp, cancelPattern))
	q = append(q, "WHERE size(cancelled) > 0 AND size(executed) > 0")
	q = append(q, fmt.Sprintf("RETURN actor.%s AS entity_id, instrument, size(items) AS total_items, size(cancelled) AS cancelled_count,", b.actorIDProperty(cfg.Link)))
	q = append(q, fmt.Sprintf("  %s AS related_items", b.itemIDs("items", cfg.IDProperty)))

	return strings.Join(q, "\n"), params(lookbackHours), nil
}

func (b *Builder) spoofingSystemWide(cfg *models.DetectionConfig, lookbackHours int) (string, map[string]interface{}, error) {
	if cfg.TemporalProperty == "" {
		return "", nil, ErrNoTemporalProperty
	}
	if cfg.StatusProperty == "" {
		return "", nil, ErrNoStatusProperty
	}

	primary, err := b.entity(cfg.PrimaryEntity)
	if err != nil {
		return "", nil, err
	}
	timeProp, err := b.property(cfg.PrimaryEntity, cfg.TemporalProperty)
	if err != nil {
		return "", nil, err
	}
	statusProp, err := b.property(cfg.PrimaryEntity, cfg.StatusProperty)
	if err != nil {
		return "", nil, err
	}

	var q []string
	q = append(q, fmt.Sprintf("MATCH (t:%s)", primary))
	q = append(q, fmt.Sprintf("WHERE t.%s >= datetime() - duration({hours: $%s})", timeProp, LookbackParam))
	q = append(q, b.instrumentMatch("t")...)
	q = append(q, "WITH collect(DISTINCT t) AS items"+b.instrumentCollect())
	q = append(q, "WHERE size(items) >= 2")
	q = append(q, b.instrumentProject("items")...)
	q = append(q, "WITH items, instrument,")
	q = append(q, fmt.Sprintf("  [x IN items WHERE x.%s IS NOT NULL AND x.%s =~ '%s'] AS cancelled,", statusProp, statusProp, cancelPattern))
	q = append(q, fmt.Sprintf("  [x IN items WHERE x.%s IS NULL OR NOT (x.%s =~ '%s')] AS executed", statusProp, statusProp, cancelPattern))
	q = append(q, "WHERE size(cancelled) > 0 AND size(executed) > 0")
	q = append(q, fmt.Sprintf("RETURN '%s' AS entity_id, instrument, size(items) AS total_items, size(cancelled) AS cancelled_count,", SystemWideEntity))
	q = append(q, fmt.Sprintf("  %s AS related_items", b.itemIDs("items", cfg.IDProperty)))

	return strings.Join(q, "\n"), params(lookbackHours), nil
}

func (b *Builder) layeringGrouped(cfg *models.DetectionConfig, lookbackHours int) (string, map[string]interface{}, error) {
	if cfg.TemporalProperty == "" {
		return "", nil, ErrNoTemporalProperty
	}

	primary, err := b.entity(cfg.PrimaryEntity)
	if err != nil {
		return "", nil, err
	}
	link, actor, err := b.linkIdents(cfg.Link)
	if err != nil {
		return "", nil, err
	}
	timeProp, err := b.property(cfg.PrimaryEntity, cfg.TemporalProperty)
	if err != nil {
		return "", nil, err
	}

	var q []string
	q = append(q, fmt.Sprintf("MATCH (t:%s)%s(actor:%s)", primary, linkArrow(cfg.Link, link), actor))
	q = append(q, fmt.Sprintf("WHERE t.%s >= datetime() - duration({hours: $%s})", timeProp, LookbackParam))
	q = append(q, b.instrumentMatch("t")...)
	q = append(q, "WITH actor, collect(DISTINCT t) AS items"+b.instrumentCollect())
	q = append(q, "WHERE size(items) >= 3")
	q = append(q, b.instrumentProject("actor, items")...)

	if chain := b.chainRelationship(cfg); chain != "" {
		// Prefer graph-linked chains; fall back to the first 3 unlinked items.
		q = append(q, "WITH actor, items, instrument,")
		q = append(q, fmt.Sprintf("  [x IN items WHERE EXISTS { (x)-[:%s]->() } OR EXISTS { ()-[:%s]->(x) }] AS chained,", chain, chain))
		q = append(q, fmt.Sprintf("  [x IN items WHERE NOT EXISTS { (x)-[:%s]->() } AND NOT EXISTS { ()-[:%s]->(x) }] AS isolated", chain, chain))
		q = append(q, "WHERE size(chained) >= 3 OR size(isolated) >= 3")
		q = append(q, "WITH actor, instrument, CASE WHEN size(chained) >= 3 THEN chained ELSE isolated[0..3] END AS picked")
	} else {
		q = append(q, "WITH actor, instrument, items AS picked")
	}

	q = append(q, fmt.Sprintf("RETURN actor.%s AS entity_id, instrument, size(picked) AS total_items, 0 AS cancelled_count,", b.actorIDProperty(cfg.Link)))
	q = append(q, fmt.Sprintf("  %s AS related_items", b.itemIDs("picked", cfg.IDProperty)))
	q = append(q, "ORDER BY size(picked) DESC")

	return strings.Join(q, "\n"), params(lookbackHours), nil
}

func (b *Builder) layeringSystemWide(cfg *models.DetectionConfig, lookbackHours int) (string, map[string]interface{}, error) {
	if cfg.TemporalProperty == "" {
		return "", nil, ErrNoTemporalProperty
	}

	primary, err := b.entity(cfg.PrimaryEntity)
	if err != nil {
		return "", nil, err
	}
	timeProp, err := b.property(cfg.PrimaryEntity, cfg.TemporalProperty)
	if err != nil {
		return "", nil, err
	}

	var q []string
	q = append(q, fmt.Sprintf("MATCH (t:%s)", primary))
	q = append(q, fmt.Sprintf("WHERE t.%s >= datetime() - duration({hours: $%s})", timeProp, LookbackParam))
	q = append(q, b.instrumentMatch("t")...)
	q = append(q, "WITH collect(DISTINCT t) AS items"+b.instrumentCollect())
	q = append(q, "WHERE size(items) >= 3")
	q = append(q, b.instrumentProject("items")...)
	q = append(q, fmt.Sprintf("RETURN '%s' AS entity_id, instrument, size(items) AS total_items, 0 AS cancelled_count,", SystemWideEntity))
	q = append(q, fmt.Sprintf("  %s AS related_items", b.itemIDs("items", cfg.IDProperty)))
	q = append(q, "ORDER BY size(items) DESC")
	q = append(q, "LIMIT 1")

	return strings.Join(q, "\n"), params(lookbackHours), nil
}

// VolumeCount compares recent activity of one entity type against its total
// population. A single threshold applies: more than 50 recent instances that
// also make up over 30% of the population.
func (b *Builder) VolumeCount(entityType, temporalProp string, lookbackHours int) (string, map[string]interface{}, error) {
	entity, err := b.entity(entityType)
	if err != nil {
		return "", nil, err
	}
	timeProp, err := b.property(entityType, temporalProp)
	if err != nil {
		return "", nil, err
	}

	q := []string{
		fmt.Sprintf("MATCH (n:%s)", entity),
		fmt.Sprintf("WHERE n.%s >= datetime() - duration({hours: $%s})", timeProp, LookbackParam),
		"WITH count(n) AS recent_count",
		fmt.Sprintf("MATCH (m:%s)", entity),
		"WITH recent_count, count(m) AS total_count",
		"WHERE recent_count > 50 AND recent_count > toFloat(total_count) * 0.3",
		"RETURN recent_count, total_count",
	}
	return strings.Join(q, "\n"), params(lookbackHours), nil
}

// RecentIDs returns identifiers of the most recent instances of an entity type.
func (b *Builder) RecentIDs(entityType, temporalProp, idProp string, limit, lookbackHours int) (string, map[string]interface{}, error) {
	entity, err := b.entity(entityType)
	if err != nil {
		return "", nil, err
	}
	timeProp, err := b.property(entityType, temporalProp)
	if err != nil {
		return "", nil, err
	}

	ids := "toString(id(n))"
	if idProp != "" {
		p, err := b.property(entityType, idProp)
		if err != nil {
			return "", nil, err
		}
		ids = "n." + p
	}

	q := []string{
		fmt.Sprintf("MATCH (n:%s)", entity),
		fmt.Sprintf("WHERE n.%s >= datetime() - duration({hours: $%s})", timeProp, LookbackParam),
		fmt.Sprintf("WITH n ORDER BY n.%s DESC", timeProp),
		fmt.Sprintf("RETURN collect(%s)[0..%d] AS related_items", ids, limit),
	}
	return strings.Join(q, "\n"), params(lookbackHours), nil
}

// AccountLookup resolves the account that placed one primary-entity instance.
// Returns "" when the schema has no Account entity or PLACED relationship.
func (b *Builder) AccountLookup(cfg *models.DetectionConfig) (string, bool) {
	if !b.schema.HasEntityType("Account") || !b.schema.HasRelationship("PLACED") {
		return "", false
	}
	idProp := cfg.IDProperty
	if idProp == "" {
		idProp = "transaction_id"
	}
	accountID := models.FindIDProperty(b.schema.EntityProperties("Account"))
	if accountID == "" {
		accountID = "account_id"
	}

	q := []string{
		fmt.Sprintf("MATCH (a:`Account`)-[:`PLACED`]->(t:%s)", quote(cfg.PrimaryEntity)),
		fmt.Sprintf("WHERE t.%s = $item_id", quote(idProp)),
		fmt.Sprintf("RETURN a.%s AS account_id", quote(accountID)),
		"LIMIT 1",
	}
	return strings.Join(q, "\n"), true
}

// --- identifier validation ---

func (b *Builder) entity(name string) (string, error) {
	if !b.schema.HasEntityType(name) {
		return "", fmt.Errorf("%w: entity type %q", ErrUnknownIdentifier, name)
	}
	return quote(name), nil
}

func (b *Builder) relationship(name string) (string, error) {
	if !b.schema.HasRelationship(name) {
		return "", fmt.Errorf("%w: relationship %q", ErrUnknownIdentifier, name)
	}
	return quote(name), nil
}

func (b *Builder) property(entityType, prop string) (string, error) {
	props := b.schema.EntityProperties(entityType)
	if _, ok := props[prop]; !ok {
		return "", fmt.Errorf("%w: property %q on %q", ErrUnknownIdentifier, prop, entityType)
	}
	return quote(prop), nil
}

func (b *Builder) linkIdents(link *models.EntityLink) (rel, actor string, err error) {
	rel, err = b.relationship(link.Relationship)
	if err != nil {
		return "", "", err
	}
	target := link.TargetType
	if target == "" {
		return "", "", fmt.Errorf("%w: link target entity", ErrUnknownIdentifier)
	}
	actor, err = b.entity(target)
	if err != nil {
		return "", "", err
	}
	return rel, actor, nil
}

func linkArrow(link *models.EntityLink, rel string) string {
	if link.Direction == models.LinkIncoming {
		return fmt.Sprintf("<-[:%s]-", rel)
	}
	return fmt.Sprintf("-[:%s]->", rel)
}

func (b *Builder) actorIDProperty(link *models.EntityLink) string {
	if link != nil {
		if p := models.FindIDProperty(b.schema.EntityProperties(link.TargetType)); p != "" {
			return quote(p)
		}
	}
	return "`trader_id`"
}

func (b *Builder) chainRelationship(cfg *models.DetectionConfig) string {
	if cfg.ChainRelationship == "" || !b.schema.HasRelationship(cfg.ChainRelationship) {
		return ""
	}
	return quote(cfg.ChainRelationship)
}

func (b *Builder) itemIDs(listVar, idProp string) string {
	expr := fmt.Sprintf("[x IN %s | toString(id(x))]", listVar)
	if idProp != "" {
		expr = fmt.Sprintf("[x IN %s | x.%s]", listVar, quote(idProp))
	}
	return fmt.Sprintf("%s[0..%d]", expr, relatedItemsCap)
}

// --- instrument resolution ---

// instrumentJoin describes how to reach the instrument of a primary item.
type instrumentJoin struct {
	rel    string
	entity string
	prop   string
}

func (b *Builder) findInstrumentJoin() *instrumentJoin {
	if !b.schema.HasRelationship(instrumentRelationship) {
		return nil
	}
	for _, entityType := range b.schema.EntityTypes {
		lower := strings.ToLower(entityType)
		matched := false
		for _, kw := range instrumentEntityKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		props := b.schema.EntityProperties(entityType)
		for _, candidate := range instrumentProps {
			if _, ok := props[candidate]; ok {
				return &instrumentJoin{rel: instrumentRelationship, entity: entityType, prop: candidate}
			}
		}
	}
	return nil
}

func (b *Builder) instrumentMatch(itemVar string) []string {
	j := b.findInstrumentJoin()
	if j == nil {
		return nil
	}
	return []string{fmt.Sprintf("OPTIONAL MATCH (%s)-[:%s]->(sec:%s)", itemVar, quote(j.rel), quote(j.entity))}
}

func (b *Builder) instrumentCollect() string {
	if b.findInstrumentJoin() == nil {
		return ""
	}
	return ", collect(DISTINCT sec) AS secs"
}

// instrumentProject emits the WITH stages that reduce collected instrument
// nodes to a single "instrument" value, defaulting to 'unknown'.
func (b *Builder) instrumentProject(carry string) []string {
	j := b.findInstrumentJoin()
	if j == nil {
		return []string{fmt.Sprintf("WITH %s, 'unknown' AS instrument", carry)}
	}
	return []string{
		fmt.Sprintf("WITH %s, [s IN secs WHERE s IS NOT NULL] AS secs", carry),
		fmt.Sprintf("WITH %s, CASE WHEN size(secs) > 0 AND secs[0].%s IS NOT NULL THEN secs[0].%s ELSE 'unknown' END AS instrument",
			carry, quote(j.prop), quote(j.prop)),
	}
}

func params(lookbackHours int) map[string]interface{} {
	return map[string]interface{}{LookbackParam: lookbackHours}
}

// quote wraps an identifier in backticks, neutralizing embedded backticks so
// a discovered name can never escape its quoting.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
