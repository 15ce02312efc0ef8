package dataset

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nehallsharma/roaster-management/internal/domain/entities"
	"github.com/nehallsharma/roaster-management/internal/domain/repositories"
	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

//go:embed data/providers.json
var sampleDataset []byte

// SampleSource names the embedded dataset in logs and errors.
const SampleSource = "embedded:providers.json"

// JSONAdapter implements the ProviderRepository interface over a provider
// dataset read from a file or the embedded sample dataset
type JSONAdapter struct {
	path string

	mu        sync.RWMutex
	providers []*entities.Provider
	byID      map[string]*entities.Provider
	version   string
}

// NewJSONAdapter creates a dataset adapter and performs the initial load. An
// empty path selects the embedded sample dataset.
func NewJSONAdapter(ctx context.Context, path string) (repositories.ProviderRepository, error) {
	a := &JSONAdapter{path: path}
	if err := a.Reload(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns a deep copy of every provider in dataset order
func (a *JSONAdapter) List(ctx context.Context) ([]*entities.Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*entities.Provider, len(a.providers))
	for i, p := range a.providers {
		out[i] = p.Clone()
	}
	return out, nil
}

// GetByID retrieves a provider by ID
func (a *JSONAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider %s not found", id))
	}
	return p.Clone(), nil
}

// Version returns the hex SHA-256 of the loaded dataset bytes
func (a *JSONAdapter) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version, nil
}

// Reload re-reads the source and swaps the snapshot. A failed reload keeps
// the previous snapshot.
func (a *JSONAdapter) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, source, err := a.read()
	if err != nil {
		return err
	}

	providers, err := Decode(raw)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", source, err)
	}

	byID := make(map[string]*entities.Provider, len(providers))
	for _, p := range providers {
		if p.ID == "" {
			continue
		}
		if _, dup := byID[p.ID]; dup {
			log.Warn().Str("source", source).Str("provider_id", p.ID).Msg("duplicate provider id, keeping first")
			continue
		}
		byID[p.ID] = p
	}

	sum := sha256.Sum256(raw)
	version := hex.EncodeToString(sum[:])

	a.mu.Lock()
	a.providers = providers
	a.byID = byID
	a.version = version
	a.mu.Unlock()

	log.Info().
		Str("source", source).
		Int("providers", len(providers)).
		Str("version", version[:12]).
		Msg("Provider dataset loaded")
	return nil
}

func (a *JSONAdapter) read() ([]byte, string, error) {
	if a.path == "" {
		return sampleDataset, SampleSource, nil
	}
	raw, err := os.ReadFile(a.path)
	if err != nil {
		return nil, a.path, apperrors.NewExternalError("failed to read provider dataset", err)
	}
	return raw, a.path, nil
}

// datasetDocument is the dataset file shape: {"providers": [...]}
type datasetDocument struct {
	Providers json.RawMessage `json:"providers"`
}

// Decode parses and validates a provider dataset. The document is an object
// with a providers array; a bare array of providers is accepted as well.
// Every provider needs a name and an availabilities array.
func Decode(raw []byte) ([]*entities.Provider, error) {
	list := bytes.TrimSpace(raw)
	if len(list) == 0 || list[0] != '[' {
		var doc datasetDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("malformed provider dataset: %v", err))
		}
		if len(doc.Providers) == 0 || bytes.Equal(doc.Providers, []byte("null")) {
			return nil, apperrors.NewMissingRequiredFieldError("dataset", "providers")
		}
		list = doc.Providers
	}

	var providers []*entities.Provider
	if err := json.Unmarshal(list, &providers); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("malformed provider dataset: %v", err))
	}

	out := make([]*entities.Provider, 0, len(providers))
	for i, p := range providers {
		if p == nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("provider at index %d is null", i))
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("provider at index %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
