package entities

// ClinicDetails describes the facility (centre) a provider works from
type ClinicDetails struct {
	Name string `json:"name"`
}
