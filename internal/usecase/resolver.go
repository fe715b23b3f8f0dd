package usecase

import (
	"strings"

	"TradeWatch/internal/domain/models"
)

// Canonical schema elements tried before falling back to role inference.
const (
	canonicalPrimaryEntity = "Transaction"
	canonicalTraderEntity  = "Trader"
	canonicalLink          = "PLACED_BY"
	canonicalChain         = "CONNECTED_TO"
)

// fallbackRelationships are alternate actor links tried, in order, when the
// configured link yields no results.
var fallbackRelationships = []string{"PLACED_BY", "EXECUTED_BY", "OWNS", "HAS", "BELONGS_TO"}

var temporalKeywords = []string{"timestamp", "time", "date", "created", "updated", "when"}

var statusKeywords = []string{"status", "state", "condition"}

// resolveConfig binds a pattern family to concrete schema elements. It
// prefers the canonical trading vocabulary, degrades to role-index inference,
// and returns nil when no usable primary entity or temporal property exists.
func resolveConfig(schema *models.DiscoveredSchema, roles *models.TradingRoleIndex) *models.DetectionConfig {
	primary := resolvePrimaryEntity(schema, roles)
	if primary == "" {
		return nil
	}
	props := schema.EntityProperties(primary)

	temporal := matchProperty(schema, primary, temporalKeywords)
	if temporal == "" {
		return nil
	}

	cfg := &models.DetectionConfig{
		PrimaryEntity:    primary,
		Properties:       props,
		TemporalProperty: temporal,
		StatusProperty:   matchProperty(schema, primary, statusKeywords),
		IDProperty:       models.FindIDProperty(props),
		Link:             resolveLink(schema, roles, primary),
	}
	if schema.HasRelationship(canonicalChain) {
		cfg.ChainRelationship = canonicalChain
	}
	return cfg
}

func resolvePrimaryEntity(schema *models.DiscoveredSchema, roles *models.TradingRoleIndex) string {
	if schema.HasEntityType(canonicalPrimaryEntity) {
		return canonicalPrimaryEntity
	}
	for _, m := range roles.Orders {
		if schema.HasEntityType(m.EntityType) {
			return m.EntityType
		}
	}
	for _, m := range roles.Trades {
		if schema.HasEntityType(m.EntityType) {
			return m.EntityType
		}
	}
	return ""
}

func resolveLink(schema *models.DiscoveredSchema, roles *models.TradingRoleIndex, primary string) *models.EntityLink {
	if schema.HasRelationship(canonicalLink) && schema.HasEntityType(canonicalTraderEntity) {
		return &models.EntityLink{
			Relationship: canonicalLink,
			TargetType:   canonicalTraderEntity,
			Direction:    models.LinkOutgoing,
		}
	}

	// Walk observed patterns looking for a link between the primary entity and
	// any trader-like entity; the pattern tells us the direction.
	traderTypes := make(map[string]bool, len(roles.Traders))
	for _, m := range roles.Traders {
		traderTypes[m.EntityType] = true
	}
	for _, p := range schema.Patterns {
		if containsAny(p.SourceTypes, primary) && anyIn(p.TargetTypes, traderTypes) {
			return &models.EntityLink{
				Relationship: p.RelationshipType,
				TargetType:   firstIn(p.TargetTypes, traderTypes),
				Direction:    models.LinkOutgoing,
			}
		}
		if containsAny(p.TargetTypes, primary) && anyIn(p.SourceTypes, traderTypes) {
			return &models.EntityLink{
				Relationship: p.RelationshipType,
				TargetType:   firstIn(p.SourceTypes, traderTypes),
				Direction:    models.LinkIncoming,
			}
		}
	}
	return nil
}

// alternateRelationships lists fallback actor links present in the schema,
// excluding the one already configured.
func alternateRelationships(schema *models.DiscoveredSchema, cfg *models.DetectionConfig) []string {
	var current string
	if cfg.Link != nil {
		current = cfg.Link.Relationship
	}
	var out []string
	for _, rel := range fallbackRelationships {
		if rel != current && schema.HasRelationship(rel) {
			out = append(out, rel)
		}
	}
	return out
}

// matchProperty returns the first catalog-order property containing any of
// the keywords, or "".
func matchProperty(schema *models.DiscoveredSchema, entityType string, keywords []string) string {
	for _, name := range schema.SortedProperties(entityType) {
		lower := strings.ToLower(name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return name
			}
		}
	}
	return ""
}

func containsAny(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func anyIn(types []string, set map[string]bool) bool {
	return firstIn(types, set) != ""
}

func firstIn(types []string, set map[string]bool) string {
	for _, t := range types {
		if set[t] {
			return t
		}
	}
	return ""
}
