// Package score turns raw detection evidence into confidence scores, severity
// bands, and stable activity identifiers.
package score

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"TradeWatch/internal/domain/models"
)

// AcceptanceFloor is the minimum confidence for a finding to be reported.
const AcceptanceFloor = 0.4

// VolumeAnomalyConfidence is the fixed score for volume anomalies: the signal
// is binary (threshold crossed or not), so it carries no evidence gradient.
const VolumeAnomalyConfidence = 0.6

const idItemsCap = 10

// Spoofing scores a cancellation cluster: a base of 0.5 plus up to 0.4 for
// the cancellation rate, plus a tiered volume bonus for large clusters.
func Spoofing(totalItems, cancelledItems int) float64 {
	if totalItems <= 0 {
		return 0
	}
	rate := float64(cancelledItems) / float64(totalItems)
	conf := 0.5 + 0.4*rate
	switch {
	case totalItems >= 20:
		conf += 0.2
	case totalItems >= 10:
		conf += 0.1
	}
	return clamp01(conf)
}

// Layering scores a chain of related items: a base of 0.6 plus bonuses for
// group size, evidence depth, a known instrument, and an attributable actor.
func Layering(totalItems int, instrument, entityID string, relatedItems []string) float64 {
	conf := 0.6
	switch {
	case totalItems >= 10:
		conf += 0.3
	case totalItems >= 5:
		conf += 0.2
	case totalItems >= 3:
		conf += 0.1
	}
	if instrument != "" && instrument != "unknown" {
		conf += 0.1
	}
	if entityID != "" && entityID != "system_wide" {
		conf += 0.1
	}
	switch {
	case len(relatedItems) >= 5:
		conf += 0.1
	case len(relatedItems) >= 3:
		conf += 0.05
	}
	return clamp01(conf)
}

// Severity maps a confidence score onto its severity band.
func Severity(confidence float64) models.Severity {
	switch {
	case confidence >= 0.9:
		return models.SeverityCritical
	case confidence >= 0.8:
		return models.SeverityHigh
	case confidence >= 0.7:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ActivityID derives the deterministic identifier of one finding. Two runs
// over the same evidence yield the same id: related items are sorted before
// truncation so the digest does not depend on result ordering.
func ActivityID(family models.PatternType, entityID, instrument string, relatedItems []string) string {
	items := append([]string(nil), relatedItems...)
	sort.Strings(items)
	if len(items) > idItemsCap {
		items = items[:idItemsCap]
	}
	seed := fmt.Sprintf("%s:%s:%s:%s", family, entityID, instrument, strings.Join(items, ":"))
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
