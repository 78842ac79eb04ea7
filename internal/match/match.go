// Package match scores canonical schema tables against search terms
// extracted from a natural-language prompt. It is pure and stateless:
// identical inputs always yield identical, identically-ordered output.
package match

import (
	"sort"
	"strings"

	"github.com/querydeck/querydeck/internal/schema"
)

const (
	scoreExactTable  = 100
	scoreSubstring   = 60
	scoreSegment     = 40
	scoreColumnBonus = 5
)

// FindMatches ranks tables by relevance to the given terms. Exact table-name
// matches score highest, then substring containment, then exact
// underscore/hyphen-segment matches; each matching column adds a small bonus.
// Ties break by case-insensitive table-name order for reproducibility.
func FindMatches(s *schema.Schema, terms []string) []schema.TableInfo {
	if s == nil || len(s.Tables) == 0 || len(terms) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			normalized = append(normalized, term)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	type scored struct {
		table schema.TableInfo
		score int
	}

	var ranked []scored
	for _, table := range s.Tables {
		score := scoreTable(table, normalized)
		if score > 0 {
			ranked = append(ranked, scored{table: table, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return strings.ToLower(ranked[i].table.Name) < strings.ToLower(ranked[j].table.Name)
	})

	tables := make([]schema.TableInfo, len(ranked))
	for i, entry := range ranked {
		tables[i] = entry.table
	}
	return tables
}

func scoreTable(table schema.TableInfo, terms []string) int {
	tableName := strings.ToLower(table.Name)
	segments := splitSegments(tableName)

	score := 0
	for _, term := range terms {
		switch {
		case tableName == term:
			score += scoreExactTable
		case strings.Contains(tableName, term) || strings.Contains(term, tableName):
			score += scoreSubstring
		case containsSegment(segments, term) ||
			(strings.HasSuffix(term, "s") && containsSegment(segments, strings.TrimSuffix(term, "s"))):
			score += scoreSegment
		}

		for _, column := range table.Columns {
			if strings.ToLower(column.Name) == term {
				score += scoreColumnBonus
			}
		}
	}
	return score
}

func splitSegments(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
}

func containsSegment(segments []string, term string) bool {
	for _, segment := range segments {
		if segment == term {
			return true
		}
	}
	return false
}
