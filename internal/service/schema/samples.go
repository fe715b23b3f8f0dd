package schema

import (
	"fmt"
	"strings"

	"TradeWatch/internal/domain/models"
)

// SampleQueries derives example Cypher statements from a discovered schema:
// per-type counts, the busiest relationship patterns, and recency scans over
// temporal properties. Intended for exploration, not detection.
func SampleQueries(s *models.DiscoveredSchema, roles *models.TradingRoleIndex) []models.SampleQuery {
	var queries []models.SampleQuery

	for _, label := range s.EntityTypes {
		queries = append(queries, models.SampleQuery{
			Description: fmt.Sprintf("Count all %s entities", label),
			Cypher: fmt.Sprintf("MATCH (n:`%s`) RETURN count(n) AS total_%s_count",
				escapeIdent(label), strings.ToLower(label)),
		})
	}

	for i, p := range s.Patterns {
		if i >= 5 {
			break
		}
		source := firstOr(p.SourceTypes, "Node")
		target := firstOr(p.TargetTypes, "Node")
		queries = append(queries, models.SampleQuery{
			Description: fmt.Sprintf("Find %s entities connected to %s via %s", source, target, p.RelationshipType),
			Cypher: fmt.Sprintf("MATCH (a:`%s`)-[:`%s`]->(b:`%s`) RETURN a, b LIMIT 10",
				escapeIdent(source), escapeIdent(p.RelationshipType), escapeIdent(target)),
		})
	}

	if roles != nil {
		for i, m := range roles.Temporal {
			if i >= 3 {
				break
			}
			queries = append(queries, models.SampleQuery{
				Description: fmt.Sprintf("Find recent %s entities", m.EntityType),
				Cypher: fmt.Sprintf("MATCH (n:`%s`) WHERE n.`%s` IS NOT NULL RETURN n ORDER BY n.`%s` DESC LIMIT 10",
					escapeIdent(m.EntityType), escapeIdent(m.Property), escapeIdent(m.Property)),
			})
		}
	}

	return queries
}

func firstOr(xs []string, def string) string {
	if len(xs) > 0 {
		return xs[0]
	}
	return def
}
