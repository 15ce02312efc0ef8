package repositories

import (
	"context"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
)

// ProviderRepository defines read access to the provider roster dataset
type ProviderRepository interface {
	// List returns every provider in dataset order
	List(ctx context.Context) ([]*entities.Provider, error)

	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// Version identifies the loaded dataset content; it changes whenever the
	// data does
	Version(ctx context.Context) (string, error)

	// Reload re-reads the source and swaps the snapshot
	Reload(ctx context.Context) error
}
