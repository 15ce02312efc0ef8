package availability

import (
	"strings"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
)

// DefaultSuggestionLimit caps the provider search suggestions.
const DefaultSuggestionLimit = 5

// FilterProviders returns the providers matching term and every supplied
// filter dimension, in input order. The input slice is never modified.
func FilterProviders(providers []*entities.Provider, term string, filter entities.ProviderFilter) []*entities.Provider {
	matched := make([]*entities.Provider, 0, len(providers))
	needle := strings.ToLower(term)
	for _, p := range providers {
		if p == nil {
			continue
		}
		if matchesName(p, needle) && MatchesFilter(p, filter) {
			matched = append(matched, p)
		}
	}
	return matched
}

// MatchesFilter applies the service, type and centre dimensions.
func MatchesFilter(p *entities.Provider, filter entities.ProviderFilter) bool {
	if filter.Service != "" && p.ProviderUsertype != filter.Service {
		return false
	}
	if filter.Type != "" && p.Type() != filter.Type {
		return false
	}
	if filter.Centre != "" && p.ClinicDetails.Name != filter.Centre {
		return false
	}
	return true
}

// matchesName is a case-insensitive substring test; needle is already lowered.
func matchesName(p *entities.Provider, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), needle)
}

// Suggest returns up to limit providers whose name contains term, skipping ids
// already selected. An empty term suggests nothing.
func Suggest(providers []*entities.Provider, term string, excludeIDs []string, limit int) []*entities.Provider {
	if term == "" || limit <= 0 {
		return []*entities.Provider{}
	}
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	needle := strings.ToLower(term)
	suggestions := make([]*entities.Provider, 0, limit)
	for _, p := range providers {
		if p == nil || !matchesName(p, needle) {
			continue
		}
		if _, skip := excluded[p.ID]; skip {
			continue
		}
		suggestions = append(suggestions, p)
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions
}

// Facets lists the distinct filter options present in a provider collection
type Facets struct {
	Services []string                `json:"services"`
	Types    []entities.ProviderType `json:"types"`
	Centres  []string                `json:"centres"`
}

// CollectFacets gathers the distinct services, types and centres in
// first-seen order. Empty values are not offered as options.
func CollectFacets(providers []*entities.Provider) Facets {
	facets := Facets{
		Services: []string{},
		Types:    []entities.ProviderType{},
		Centres:  []string{},
	}
	seenService := map[string]bool{}
	seenType := map[entities.ProviderType]bool{}
	seenCentre := map[string]bool{}

	for _, p := range providers {
		if p == nil {
			continue
		}
		if s := p.ProviderUsertype; s != "" && !seenService[s] {
			seenService[s] = true
			facets.Services = append(facets.Services, s)
		}
		if t := p.Type(); !seenType[t] {
			seenType[t] = true
			facets.Types = append(facets.Types, t)
		}
		if c := p.ClinicDetails.Name; c != "" && !seenCentre[c] {
			seenCentre[c] = true
			facets.Centres = append(facets.Centres, c)
		}
	}
	return facets
}
