// Package rank sorts, filters and groups intelligence articles by relevance.
// Every function is pure: identical input yields identical output, so
// repeated pipeline runs over an unchanged dataset are deterministic.
package rank

import (
	"sort"
	"strings"

	"intelpipeline/internal/domain"
)

// DefaultThreshold is the relevance score an article needs to qualify for
// insight generation without a keyword match.
const DefaultThreshold = 80

// Rank returns the articles sorted descending by relevance score. The sort is
// stable: ties keep their original fetch order.
func Rank(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

// FilterRelevant keeps articles that meet the score threshold, or whose
// jurisdiction contains one of jurisdictionKeywords, or whose category
// contains one of categoryKeywords. The three conditions are independent:
// a keyword match qualifies an article regardless of its score.
func FilterRelevant(articles []domain.Article, threshold int, jurisdictionKeywords, categoryKeywords []string) []domain.Article {
	var out []domain.Article
	for _, a := range articles {
		if a.RelevanceScore >= threshold ||
			containsAny(a.Jurisdiction, jurisdictionKeywords) ||
			containsAny(a.Category, categoryKeywords) {
			out = append(out, a)
		}
	}
	return out
}

// GroupByJurisdiction buckets articles by jurisdiction, preserving the order
// in which each jurisdiction first appears in the input. The returned key
// slice carries that order; the map holds the groups.
func GroupByJurisdiction(articles []domain.Article) ([]string, map[string][]domain.Article) {
	var order []string
	groups := make(map[string][]domain.Article)
	for _, a := range articles {
		j := a.Jurisdiction
		if j == "" {
			j = domain.DefaultJurisdiction
		}
		if _, ok := groups[j]; !ok {
			order = append(order, j)
		}
		groups[j] = append(groups[j], a)
	}
	return order, groups
}

func containsAny(value string, keywords []string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(value)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
