package models

import (
	"sort"
	"strings"
	"time"
)

// Record is one row returned by the graph database: a string-keyed map whose
// values may be scalars, lists, or nested maps.
type Record map[string]interface{}

// PropertyStats summarizes one property observed across a bounded sample of
// instances. It is approximate by construction (at most SampleLimit instances
// are inspected), so role inference over it is probabilistic, not authoritative.
type PropertyStats struct {
	Kind         string   `json:"kind"`
	SampleValues []string `json:"sample_values"`
	NullCount    int      `json:"null_count"`
	TotalCount   int      `json:"total_count"`
}

// RelationshipPattern is one (source)-[rel]->(target) triple with its
// occurrence count.
type RelationshipPattern struct {
	SourceTypes      []string `json:"source_types"`
	RelationshipType string   `json:"relationship_type"`
	TargetTypes      []string `json:"target_types"`
	Count            int64    `json:"count"`
}

// DiscoveredSchema is an immutable snapshot of the graph database structure.
// It is built once per refresh cycle and shared read-only between consumers;
// refresh swaps in a whole new snapshot, never mutates an existing one.
type DiscoveredSchema struct {
	EntityTypes            []string                            `json:"entity_types"`
	RelationshipTypes      []string                            `json:"relationship_types"`
	PropertyKeys           []string                            `json:"property_keys"`
	Properties             map[string]map[string]PropertyStats `json:"properties"`
	RelationshipProperties map[string]map[string]PropertyStats `json:"relationship_properties"`
	Patterns               []RelationshipPattern               `json:"relationship_patterns"`
	EntityCounts           map[string]int64                    `json:"entity_counts"`
	DiscoveredAt           time.Time                           `json:"discovered_at"`
}

// HasEntityType reports whether the given entity type was discovered.
func (s *DiscoveredSchema) HasEntityType(name string) bool {
	for _, t := range s.EntityTypes {
		if t == name {
			return true
		}
	}
	return false
}

// HasRelationship reports whether the given relationship type was discovered.
func (s *DiscoveredSchema) HasRelationship(name string) bool {
	for _, t := range s.RelationshipTypes {
		if t == name {
			return true
		}
	}
	return false
}

// EntityProperties returns the property catalog for an entity type, or nil.
func (s *DiscoveredSchema) EntityProperties(entityType string) map[string]PropertyStats {
	return s.Properties[entityType]
}

// SortedProperties returns the property names of an entity type in catalog
// order. Catalog order is lexicographic so that keyword matches over the
// catalog are deterministic across runs.
func (s *DiscoveredSchema) SortedProperties(entityType string) []string {
	props := s.Properties[entityType]
	if len(props) == 0 {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EntityMatch records an entity type matched by a role keyword.
type EntityMatch struct {
	EntityType string `json:"entity_type"`
	Keyword    string `json:"keyword"`
}

// PropertyMatch records a (entity type, property) pair matched by a role keyword.
type PropertyMatch struct {
	EntityType string `json:"entity_type"`
	Property   string `json:"property"`
	Keyword    string `json:"keyword"`
}

// TradingRoleIndex is the derived, non-authoritative classification of schema
// elements into trading domain roles. Multiple roles may claim the same
// element; matches are advisory input to config resolution, never a hard
// constraint.
type TradingRoleIndex struct {
	Traders     []EntityMatch   `json:"traders"`
	Orders      []EntityMatch   `json:"orders"`
	Trades      []EntityMatch   `json:"trades"`
	Instruments []EntityMatch   `json:"instruments"`
	Temporal    []PropertyMatch `json:"temporal"`
	Price       []PropertyMatch `json:"price"`
	Quantity    []PropertyMatch `json:"quantity"`
	Status      []PropertyMatch `json:"status"`
}

// LinkDirection is the direction of the entity link relative to the primary entity.
type LinkDirection string

const (
	LinkOutgoing LinkDirection = "outgoing"
	LinkIncoming LinkDirection = "incoming"
)

// EntityLink describes how the primary entity connects to a trader-like entity.
type EntityLink struct {
	Relationship string        `json:"relationship"`
	TargetType   string        `json:"target_type"`
	Direction    LinkDirection `json:"direction"`
}

// DetectionConfig maps abstract detection roles onto concrete schema elements
// for one pattern family. TemporalProperty is mandatory: no family runs
// without a time dimension. A nil Link selects system-wide detection mode.
type DetectionConfig struct {
	PrimaryEntity     string                   `json:"primary_entity"`
	Properties        map[string]PropertyStats `json:"-"`
	TemporalProperty  string                   `json:"temporal_property"`
	StatusProperty    string                   `json:"status_property,omitempty"`
	IDProperty        string                   `json:"id_property,omitempty"`
	Link              *EntityLink              `json:"entity_link,omitempty"`
	ChainRelationship string                   `json:"chain_relationship,omitempty"`
}

// WithLink returns a copy of the config with a different link relationship.
// The receiver is not modified; configs are shared across fallback tiers.
func (c *DetectionConfig) WithLink(relationship string) *DetectionConfig {
	cp := *c
	if c.Link != nil {
		link := *c.Link
		link.Relationship = relationship
		cp.Link = &link
	} else {
		cp.Link = &EntityLink{Relationship: relationship, Direction: LinkOutgoing}
	}
	return &cp
}

// FindIDProperty picks the natural identifier property from a catalog: an
// exact id/uuid/guid name wins, then the lexicographically first property
// containing "id" or "key". Returns "" when nothing qualifies.
func FindIDProperty(props map[string]PropertyStats) string {
	if len(props) == 0 {
		return ""
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch strings.ToLower(name) {
		case "id", "uuid", "guid":
			return name
		}
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "id") || strings.Contains(lower, "key") {
			return name
		}
	}
	return ""
}

// SampleQuery is an example Cypher statement derived from the discovered schema.
type SampleQuery struct {
	Description string `json:"description"`
	Cypher      string `json:"cypher"`
}
