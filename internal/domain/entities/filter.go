package entities

// ProviderFilter holds the sidebar filter selections. An empty field places
// no constraint on that dimension; supplied fields are ANDed.
type ProviderFilter struct {
	Service string       `json:"service,omitempty"`
	Type    ProviderType `json:"type,omitempty"`
	Centre  string       `json:"centre,omitempty"`
}

// IsEmpty reports whether no dimension is constrained.
func (f ProviderFilter) IsEmpty() bool {
	return f.Service == "" && f.Type == "" && f.Centre == ""
}
