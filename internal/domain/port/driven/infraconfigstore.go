// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
)

// Sentinel errors returned by InfraConfigStore implementations. Adapters map
// their driver-specific failures onto these so the application layer can
// decide what is fatal.
var (
	// ErrInfraConfigNotFound indicates no row exists for the requested name.
	ErrInfraConfigNotFound = errors.New("infra config not found")

	// ErrDatabaseUnreachable indicates the store could not be contacted at all.
	ErrDatabaseUnreachable = errors.New("database unreachable")

	// ErrTableMissing indicates the infra config table does not exist yet.
	ErrTableMissing = errors.New("infra config table missing")
)

// InfraConfigQueries is the set of row operations available both directly on
// the store and inside a transaction.
type InfraConfigQueries interface {
	FindAll(ctx context.Context) ([]model.InfraConfig, error)
	// FindByNames returns the rows for names that exist; missing names are skipped.
	FindByNames(ctx context.Context, names []model.ConfigName) ([]model.InfraConfig, error)
	// FindByName returns ErrInfraConfigNotFound when no row exists.
	FindByName(ctx context.Context, name model.ConfigName) (model.InfraConfig, error)
	InsertMany(ctx context.Context, entries []model.InfraConfig) error
	// UpdateByName returns ErrInfraConfigNotFound when no row exists.
	UpdateByName(ctx context.Context, name model.ConfigName, value model.StoredValue) (model.InfraConfig, error)
	DeleteByNames(ctx context.Context, names []model.ConfigName) error
}

// InfraConfigStore defines the driven port for infra config persistence.
// Values cross this boundary as model.StoredValue; encryption happens in the
// application layer.
type InfraConfigStore interface {
	InfraConfigQueries

	// WithinTx runs fn inside one atomic transaction. If fn returns an error
	// every write made through q is rolled back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, q InfraConfigQueries) error) error
}
