package models

// Requests for detection HTTP endpoints. Defined in domain for consistency and reuse.

type DetectRequest struct {
	LookbackHours int `query:"lookback_hours" json:"lookback_hours" default:"168" validate:"gte=1,lte=8760"`
}

type DetectFamilyRequest struct {
	Family        string `param:"family" json:"family" validate:"required,oneof=SPOOFING LAYERING VOLUME_ANOMALY"`
	LookbackHours int    `query:"lookback_hours" json:"lookback_hours" default:"168" validate:"gte=1,lte=8760"`
}

type SchemaRefreshRequest struct {
	Force bool `query:"force" json:"force"`
}

// DetectResponse is the payload for detection endpoints.
type DetectResponse struct {
	Activities    []SuspiciousActivity `json:"activities"`
	Total         int                  `json:"total"`
	LookbackHours int                  `json:"lookback_hours"`
}

// SchemaSummary is the API projection of a discovered schema snapshot.
type SchemaSummary struct {
	EntityTypes       []string              `json:"entity_types"`
	RelationshipTypes []string              `json:"relationship_types"`
	EntityCounts      map[string]int64      `json:"entity_counts"`
	Patterns          []RelationshipPattern `json:"relationship_patterns"`
	DiscoveredAt      string                `json:"discovered_at"`
}
