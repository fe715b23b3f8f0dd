// Package roles classifies discovered schema elements into trading domain
// roles. Classification is a pure keyword heuristic over names: it assigns
// every matching role (no exclusivity, no weighting) and its output is
// advisory input to detection config resolution, never a hard constraint.
package roles

import (
	"strings"

	"TradeWatch/internal/domain/models"
)

var (
	traderKeywords     = []string{"trader", "user", "client", "account", "participant"}
	orderKeywords      = []string{"order", "request", "instruction"}
	tradeKeywords      = []string{"trade", "execution", "transaction", "deal"}
	instrumentKeywords = []string{"instrument", "security", "symbol", "asset", "stock"}

	temporalKeywords = []string{"time", "timestamp", "date", "created", "updated"}
	priceKeywords    = []string{"price", "amount", "value", "cost"}
	quantityKeywords = []string{"quantity", "volume", "size", "amount"}
	statusKeywords   = []string{"status", "state", "condition"}
)

// Classify derives a trading role index from a schema snapshot. It performs
// no I/O and is deterministic for a given input.
func Classify(s *models.DiscoveredSchema) *models.TradingRoleIndex {
	idx := &models.TradingRoleIndex{}
	if s == nil {
		return idx
	}

	for _, entityType := range s.EntityTypes {
		lower := strings.ToLower(entityType)

		idx.Traders = appendEntityMatches(idx.Traders, entityType, lower, traderKeywords)
		idx.Orders = appendEntityMatches(idx.Orders, entityType, lower, orderKeywords)
		idx.Trades = appendEntityMatches(idx.Trades, entityType, lower, tradeKeywords)
		idx.Instruments = appendEntityMatches(idx.Instruments, entityType, lower, instrumentKeywords)

		for _, prop := range s.SortedProperties(entityType) {
			propLower := strings.ToLower(prop)
			idx.Temporal = appendPropertyMatches(idx.Temporal, entityType, prop, propLower, temporalKeywords)
			idx.Price = appendPropertyMatches(idx.Price, entityType, prop, propLower, priceKeywords)
			idx.Quantity = appendPropertyMatches(idx.Quantity, entityType, prop, propLower, quantityKeywords)
			idx.Status = appendPropertyMatches(idx.Status, entityType, prop, propLower, statusKeywords)
		}
	}

	return idx
}

func appendEntityMatches(dst []models.EntityMatch, entityType, lower string, keywords []string) []models.EntityMatch {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			dst = append(dst, models.EntityMatch{EntityType: entityType, Keyword: kw})
		}
	}
	return dst
}

func appendPropertyMatches(dst []models.PropertyMatch, entityType, prop, propLower string, keywords []string) []models.PropertyMatch {
	for _, kw := range keywords {
		if strings.Contains(propLower, kw) {
			dst = append(dst, models.PropertyMatch{EntityType: entityType, Property: prop, Keyword: kw})
			// one match per role is enough to index the property
			return dst
		}
	}
	return dst
}
