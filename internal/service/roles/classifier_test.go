package roles

import (
	"testing"

	"TradeWatch/internal/domain/models"
)

func snapshot() *models.DiscoveredSchema {
	return &models.DiscoveredSchema{
		EntityTypes: []string{"Transaction", "Trader", "Security", "Account"},
		Properties: map[string]map[string]models.PropertyStats{
			"Transaction": {
				"transaction_id": {Kind: "string"},
				"timestamp":      {Kind: "string"},
				"status":         {Kind: "string"},
				"price":          {Kind: "float"},
				"quantity":       {Kind: "integer"},
			},
			"Trader": {
				"trader_id": {Kind: "string"},
				"name":      {Kind: "string"},
			},
			"Security": {
				"symbol": {Kind: "string"},
			},
			"Account": {
				"account_id": {Kind: "string"},
				"created_at": {Kind: "string"},
			},
		},
	}
}

func TestClassifyEntities(t *testing.T) {
	idx := Classify(snapshot())

	wantTrader := map[string]bool{"Trader": true, "Account": true}
	for _, m := range idx.Traders {
		if !wantTrader[m.EntityType] {
			t.Fatalf("unexpected trader match %q", m.EntityType)
		}
		delete(wantTrader, m.EntityType)
	}
	if len(wantTrader) != 0 {
		t.Fatalf("missing trader matches: %v", wantTrader)
	}

	// "Trader" contains the substring "trade", so it shows up in both roles.
	wantTrades := map[string]bool{"Transaction": true, "Trader": true}
	for _, m := range idx.Trades {
		if !wantTrades[m.EntityType] {
			t.Fatalf("unexpected trade match %q", m.EntityType)
		}
		delete(wantTrades, m.EntityType)
	}
	if len(wantTrades) != 0 {
		t.Fatalf("missing trade matches: %v", wantTrades)
	}
	if len(idx.Instruments) != 1 || idx.Instruments[0].EntityType != "Security" {
		t.Fatalf("expected Security as the only instrument match, got %+v", idx.Instruments)
	}
	if len(idx.Orders) != 0 {
		t.Fatalf("expected no order matches, got %+v", idx.Orders)
	}
}

func TestClassifyProperties(t *testing.T) {
	idx := Classify(snapshot())

	hasTemporal := func(entity, prop string) bool {
		for _, m := range idx.Temporal {
			if m.EntityType == entity && m.Property == prop {
				return true
			}
		}
		return false
	}
	if !hasTemporal("Transaction", "timestamp") {
		t.Fatalf("timestamp not classified as temporal: %+v", idx.Temporal)
	}
	if !hasTemporal("Account", "created_at") {
		t.Fatalf("created_at not classified as temporal: %+v", idx.Temporal)
	}

	if len(idx.Status) != 1 || idx.Status[0].Property != "status" {
		t.Fatalf("expected single status match, got %+v", idx.Status)
	}
	if len(idx.Price) != 1 || idx.Price[0].Property != "price" {
		t.Fatalf("expected single price match, got %+v", idx.Price)
	}
}

func TestClassifyOverlappingRoles(t *testing.T) {
	s := &models.DiscoveredSchema{
		EntityTypes: []string{"TraderAccount"},
		Properties: map[string]map[string]models.PropertyStats{
			"TraderAccount": {"amount": {Kind: "float"}},
		},
	}
	idx := Classify(s)

	// "TraderAccount" matches both trader keywords; both matches are retained.
	if len(idx.Traders) != 2 {
		t.Fatalf("expected both keyword matches retained, got %+v", idx.Traders)
	}
	// "amount" belongs to both price and quantity roles.
	if len(idx.Price) != 1 || len(idx.Quantity) != 1 {
		t.Fatalf("expected amount in price and quantity, got price=%+v quantity=%+v", idx.Price, idx.Quantity)
	}
}

func TestClassifyNilSchema(t *testing.T) {
	idx := Classify(nil)
	if idx == nil {
		t.Fatalf("expected empty index, got nil")
	}
	if len(idx.Traders)+len(idx.Orders)+len(idx.Trades)+len(idx.Instruments) != 0 {
		t.Fatalf("expected no matches on nil schema")
	}
}
