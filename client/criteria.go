package client

import (
	"fmt"
	"math"
	"strings"

	"restaurant-finder/models"
)

// Criteria fields accepted by SearchManager.UpdateCriteria.
const (
	FieldTerm      = "term"
	FieldLocation  = "location"
	FieldLimit     = "limit"
	FieldRadius    = "radius"
	FieldPrice     = "price"
	FieldSortBy    = "sort_by"
	FieldAttribute = "attribute"
)

// DefaultRadiusKm is what the radius control shows before the user sets one.
const DefaultRadiusKm = 5.0

// Filter vocabularies offered by the views.
var (
	SortOptions  = []string{"best_match", "rating", "review_count", "distance"}
	LimitOptions = []int{5, 10, 20, 50}
	PriceTiers   = []string{"1", "2", "3", "4"}
	Attributes   = []string{
		"reservation",
		"happy_hour",
		"ambience_casual",
		"ambience_classy",
		"ambience_upscale",
		"noise_level_quiet",
		"noise_level_average",
		"noise_level_loud",
		"noise_level_very_loud",
		"outdoor_seating",
		"parking",
		"wifi",
	}
)

// DefaultCriteria is the blank search form.
func DefaultCriteria() models.SearchCriteria {
	return models.SearchCriteria{
		Limit:  20,
		Price:  "1,2,3,4",
		SortBy: "best_match",
	}
}

// KmToMeters converts the radius control value to the stored unit.
func KmToMeters(km float64) int {
	return int(math.Round(km * 1000))
}

func MetersToKm(meters int) float64 {
	return float64(meters) / 1000
}

// FormatKm renders a radius in kilometers to one decimal place.
func FormatKm(km float64) string {
	return fmt.Sprintf("%.1f", km)
}

// splitTokens splits a comma list, dropping blanks.
func splitTokens(list string) []string {
	var tokens []string
	for _, t := range strings.Split(list, ",") {
		if strings.TrimSpace(t) != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func hasToken(list, token string) bool {
	for _, t := range splitTokens(list) {
		if t == token {
			return true
		}
	}
	return false
}

// vocabularyRank orders known tokens the way the filter controls list them.
var vocabularyRank = func() map[string]int {
	rank := map[string]int{}
	for i, t := range PriceTiers {
		rank[t] = i
	}
	for i, t := range Attributes {
		rank[t] = i
	}
	return rank
}()

// setToken adds token to the list when on and removes every copy when off.
// A known token is inserted before the first known token ranked after it, so
// removing and re-adding restores the previous list; others are appended.
func setToken(list, token string, on bool) string {
	tokens := splitTokens(list)
	if on {
		if hasToken(list, token) {
			return strings.Join(tokens, ",")
		}
		pos := len(tokens)
		if r, ok := vocabularyRank[token]; ok {
			for i, t := range tokens {
				if tr, known := vocabularyRank[t]; known && tr > r {
					pos = i
					break
				}
			}
		}
		tokens = append(tokens[:pos], append([]string{token}, tokens[pos:]...)...)
		return strings.Join(tokens, ",")
	}

	kept := tokens[:0]
	for _, t := range tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, ",")
}

// toggleToken flips token membership in a comma list.
func toggleToken(list, token string) string {
	return setToken(list, token, !hasToken(list, token))
}
