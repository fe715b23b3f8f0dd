package cypher

import (
	"errors"
	"strings"
	"testing"

	"TradeWatch/internal/domain/models"
)

func schemaFixture() *models.DiscoveredSchema {
	return &models.DiscoveredSchema{
		EntityTypes:       []string{"Transaction", "Trader", "Security", "Account"},
		RelationshipTypes: []string{"PLACED_BY", "INVOLVES", "CONNECTED_TO", "PLACED"},
		Properties: map[string]map[string]models.PropertyStats{
			"Transaction": {
				"transaction_id": {Kind: "string"},
				"timestamp":      {Kind: "string"},
				"status":         {Kind: "string"},
			},
			"Trader": {
				"trader_id": {Kind: "string"},
			},
			"Security": {
				"symbol": {Kind: "string"},
			},
			"Account": {
				"account_id": {Kind: "string"},
			},
		},
	}
}

func configFixture() *models.DetectionConfig {
	return &models.DetectionConfig{
		PrimaryEntity:    "Transaction",
		TemporalProperty: "timestamp",
		StatusProperty:   "status",
		IDProperty:       "transaction_id",
		Link: &models.EntityLink{
			Relationship: "PLACED_BY",
			TargetType:   "Trader",
			Direction:    models.LinkOutgoing,
		},
		ChainRelationship: "CONNECTED_TO",
	}
}

func TestSpoofingGroupedQuery(t *testing.T) {
	b := NewBuilder(schemaFixture())
	q, params, err := b.Build(models.PatternSpoofing, configFixture(), 168)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, want := range []string{
		"MATCH (t:`Transaction`)-[:`PLACED_BY`]->(actor:`Trader`)",
		"$lookback_hours",
		"(cancel|abort|reject)",
		"collect(DISTINCT t) AS items",
		"size(cancelled) > 0 AND size(executed) > 0",
		"actor.`trader_id` AS entity_id",
		"x.`transaction_id`",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q:\n%s", want, q)
		}
	}
	if params[LookbackParam] != 168 {
		t.Fatalf("lookback param = %v, want 168", params[LookbackParam])
	}
	if strings.Contains(q, "168") {
		t.Fatalf("lookback interpolated instead of bound:\n%s", q)
	}
}

func TestSpoofingRequiresStatusProperty(t *testing.T) {
	cfg := configFixture()
	cfg.StatusProperty = ""
	b := NewBuilder(schemaFixture())
	if _, _, err := b.Build(models.PatternSpoofing, cfg, 24); !errors.Is(err, ErrNoStatusProperty) {
		t.Fatalf("expected ErrNoStatusProperty, got %v", err)
	}
}

func TestSpoofingRequiresTemporalProperty(t *testing.T) {
	cfg := configFixture()
	cfg.TemporalProperty = ""
	b := NewBuilder(schemaFixture())
	if _, _, err := b.Build(models.PatternSpoofing, cfg, 24); !errors.Is(err, ErrNoTemporalProperty) {
		t.Fatalf("expected ErrNoTemporalProperty, got %v", err)
	}
}

func TestBuildRejectsUnknownIdentifiers(t *testing.T) {
	cfg := configFixture()
	cfg.PrimaryEntity = "Nonexistent"
	b := NewBuilder(schemaFixture())
	if _, _, err := b.Build(models.PatternSpoofing, cfg, 24); !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier for entity, got %v", err)
	}

	cfg = configFixture()
	cfg.Link.Relationship = "NOT_A_REL"
	if _, _, err := b.Build(models.PatternLayering, cfg, 24); !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier for relationship, got %v", err)
	}

	cfg = configFixture()
	cfg.TemporalProperty = "no_such_prop"
	if _, _, err := b.Build(models.PatternSpoofing, cfg, 24); !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier for property, got %v", err)
	}
}

func TestNilLinkFallsBackToSystemWide(t *testing.T) {
	cfg := configFixture()
	cfg.Link = nil
	b := NewBuilder(schemaFixture())

	q, _, err := b.Build(models.PatternSpoofing, cfg, 24)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(q, "actor") {
		t.Fatalf("system-wide query should not reference an actor:\n%s", q)
	}
	if !strings.Contains(q, "'system_wide' AS entity_id") {
		t.Fatalf("system-wide query should pin entity_id:\n%s", q)
	}
}

func TestLayeringChainPartition(t *testing.T) {
	b := NewBuilder(schemaFixture())
	q, _, err := b.Build(models.PatternLayering, configFixture(), 24)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(q, "CONNECTED_TO") {
		t.Fatalf("expected chain relationship partition:\n%s", q)
	}
	if !strings.Contains(q, "size(items) >= 3") {
		t.Fatalf("expected minimum chain size:\n%s", q)
	}
}

func TestLayeringWithoutChainRelationship(t *testing.T) {
	cfg := configFixture()
	cfg.ChainRelationship = ""
	b := NewBuilder(schemaFixture())
	q, _, err := b.Build(models.PatternLayering, cfg, 24)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(q, "CONNECTED_TO") {
		t.Fatalf("chain partition should be absent:\n%s", q)
	}
}

func TestInstrumentJoinUsesSecuritySymbol(t *testing.T) {
	b := NewBuilder(schemaFixture())
	q, _, err := b.Build(models.PatternSpoofing, configFixture(), 24)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(q, "OPTIONAL MATCH (t)-[:`INVOLVES`]->(sec:`Security`)") {
		t.Fatalf("expected instrument join:\n%s", q)
	}
	if !strings.Contains(q, "secs[0].`symbol`") {
		t.Fatalf("expected symbol projection:\n%s", q)
	}
}

func TestInstrumentDefaultsToUnknown(t *testing.T) {
	s := schemaFixture()
	s.RelationshipTypes = []string{"PLACED_BY", "CONNECTED_TO"}
	b := NewBuilder(s)
	q, _, err := b.Build(models.PatternSpoofing, configFixture(), 24)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(q, "'unknown' AS instrument") {
		t.Fatalf("expected unknown instrument literal:\n%s", q)
	}
	if strings.Contains(q, "OPTIONAL MATCH") {
		t.Fatalf("no instrument join expected:\n%s", q)
	}
}

func TestVolumeCountQuery(t *testing.T) {
	b := NewBuilder(schemaFixture())
	q, params, err := b.VolumeCount("Transaction", "timestamp", 48)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(q, "recent_count > 50 AND recent_count > toFloat(total_count) * 0.3") {
		t.Fatalf("expected unified volume threshold:\n%s", q)
	}
	if params[LookbackParam] != 48 {
		t.Fatalf("lookback param = %v, want 48", params[LookbackParam])
	}
}

func TestRecentIDsQuery(t *testing.T) {
	b := NewBuilder(schemaFixture())
	q, _, err := b.RecentIDs("Transaction", "timestamp", "transaction_id", 10, 24)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(q, "n.`transaction_id`") {
		t.Fatalf("expected id property projection:\n%s", q)
	}

	if _, _, err := b.RecentIDs("Trader", "no_such_prop", "", 10, 24); !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier for missing property, got %v", err)
	}
}

func TestAccountLookupAvailability(t *testing.T) {
	b := NewBuilder(schemaFixture())
	q, ok := b.AccountLookup(configFixture())
	if !ok {
		t.Fatalf("expected account lookup with Account and PLACED present")
	}
	if !strings.Contains(q, "a.`account_id` AS account_id") {
		t.Fatalf("expected account id projection:\n%s", q)
	}

	s := schemaFixture()
	s.EntityTypes = []string{"Transaction", "Trader"}
	if _, ok := NewBuilder(s).AccountLookup(configFixture()); ok {
		t.Fatalf("expected no account lookup without Account entity")
	}
}

func TestQuoteNeutralizesBackticks(t *testing.T) {
	if got := quote("weird`name"); got != "`weird``name`" {
		t.Fatalf("quote = %q", got)
	}
}
