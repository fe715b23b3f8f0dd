package models

import "time"

// PatternType identifies a family of suspicious trading behavior.
type PatternType string

const (
	PatternSpoofing      PatternType = "SPOOFING"
	PatternLayering      PatternType = "LAYERING"
	PatternVolumeAnomaly PatternType = "VOLUME_ANOMALY"
	PatternWashTrading   PatternType = "WASH_TRADING"
	PatternFrontRunning  PatternType = "FRONT_RUNNING"
)

// Valid reports whether the pattern type is one of the known families.
func (p PatternType) Valid() bool {
	switch p {
	case PatternSpoofing, PatternLayering, PatternVolumeAnomaly, PatternWashTrading, PatternFrontRunning:
		return true
	}
	return false
}

// Severity buckets a confidence score into four operational levels.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SuspiciousActivity is one scored detection finding. Instances are immutable
// after construction; ActivityID is content-derived so repeated runs over
// unchanged data produce identical ids, enabling idempotent alerting downstream.
type SuspiciousActivity struct {
	ActivityID      string      `json:"activity_id"`
	PatternType     PatternType `json:"pattern_type"`
	EntityID        string      `json:"entity_id"`
	AccountID       string      `json:"account_id,omitempty"`
	Instrument      string      `json:"instrument"`
	ConfidenceScore float64     `json:"confidence_score"`
	Severity        Severity    `json:"severity"`
	Timestamp       time.Time   `json:"timestamp"`
	Description     string      `json:"description"`
	RelatedItems    []string    `json:"related_items"`
}

// Alert wraps a finding for publication to the alert channel.
type Alert struct {
	AlertID   string             `json:"alert_id"`
	Activity  SuspiciousActivity `json:"suspicious_activity"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}
