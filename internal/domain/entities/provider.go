package entities

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

// ProviderType is the employment classification shown in the type filter
type ProviderType string

const (
	ProviderTypeInHouse  ProviderType = "In-house"
	ProviderTypeExternal ProviderType = "External"
)

// Provider represents a service provider and their date-keyed availability
type Provider struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Image            string         `json:"image,omitempty"`
	ProviderUsertype string         `json:"provider_usertype"`
	IsInhouse        bool           `json:"is_inhouse"`
	ClinicDetails    ClinicDetails  `json:"clinic_details"`
	Availabilities   []Availability `json:"availabilities"`
}

// UnmarshalJSON accepts numeric ids, which the sample datasets use.
func (p *Provider) UnmarshalJSON(data []byte) error {
	type plain Provider
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	id, err := decodeScalar(aux.ID)
	if err != nil {
		return fmt.Errorf("provider id: %w", err)
	}
	p.ID = id
	return nil
}

// Type returns the provider's classification as used by the type filter.
func (p *Provider) Type() ProviderType {
	if p.IsInhouse {
		return ProviderTypeInHouse
	}
	return ProviderTypeExternal
}

// Validate checks the fields every consumer relies on. Absent slot arrays are
// valid; an absent availabilities list or name is not.
func (p *Provider) Validate() error {
	record := "provider"
	if p.ID != "" {
		record = fmt.Sprintf("provider %s", p.ID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.NewMissingRequiredFieldError(record, "name")
	}
	if p.Availabilities == nil {
		return apperrors.NewMissingRequiredFieldError(record, "availabilities")
	}
	return nil
}

// Clone returns a deep copy so snapshots can be handed out without sharing slices.
func (p *Provider) Clone() *Provider {
	c := *p
	if p.Availabilities != nil {
		c.Availabilities = make([]Availability, len(p.Availabilities))
		for i := range p.Availabilities {
			c.Availabilities[i] = p.Availabilities[i].Clone()
		}
	}
	return &c
}

// NormalizeProviderType maps user-supplied spellings ("inhouse", "in house",
// "In-House", "external") onto the canonical filter values. Empty input stays
// empty, meaning no constraint.
func NormalizeProviderType(s string) (ProviderType, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", " ", "", "_", "").Replace(key)
	switch key {
	case "":
		return "", true
	case "inhouse":
		return ProviderTypeInHouse, true
	case "external":
		return ProviderTypeExternal, true
	}
	return "", false
}
