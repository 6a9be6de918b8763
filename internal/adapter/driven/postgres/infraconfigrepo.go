package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.InfraConfigStore = (*InfraConfigRepo)(nil)

// InfraConfigRepo is the PostgreSQL implementation of the InfraConfigStore port.
type InfraConfigRepo struct {
	pool *pgxpool.Pool
	infraConfigQueries
}

// NewInfraConfigRepo creates a new InfraConfigRepo backed by the given pool.
func NewInfraConfigRepo(pool *pgxpool.Pool) *InfraConfigRepo {
	return &InfraConfigRepo{pool: pool, infraConfigQueries: infraConfigQueries{db: pool}}
}

// WithinTx runs fn in a SERIALIZABLE transaction, so a concurrent
// read-modify-write of the same rows fails instead of losing an update.
func (r *InfraConfigRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, q driven.InfraConfigQueries) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback after commit is a no-op.

	if err := fn(ctx, infraConfigQueries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isCode(err, codeSerializationFailure) {
			return fmt.Errorf("commit transaction: concurrent modification: %w", err)
		}
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

type infraConfigQueries struct {
	db dbtx
}

const selectInfraConfig = `SELECT name, value, is_encrypted, updated_at FROM infra_config`

func (q infraConfigQueries) FindAll(ctx context.Context) ([]model.InfraConfig, error) {
	rows, err := q.db.Query(ctx, selectInfraConfig+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list infra configs: %w", mapError(err))
	}
	return collectInfraConfigs(rows)
}

func (q infraConfigQueries) FindByNames(ctx context.Context, names []model.ConfigName) ([]model.InfraConfig, error) {
	if len(names) == 0 {
		return []model.InfraConfig{}, nil
	}

	rows, err := q.db.Query(ctx, selectInfraConfig+` WHERE name = ANY($1) ORDER BY name`, toStrings(names))
	if err != nil {
		return nil, fmt.Errorf("find infra configs by names: %w", mapError(err))
	}
	return collectInfraConfigs(rows)
}

func (q infraConfigQueries) FindByName(ctx context.Context, name model.ConfigName) (model.InfraConfig, error) {
	row := q.db.QueryRow(ctx, selectInfraConfig+` WHERE name = $1`, string(name))

	cfg, err := scanInfraConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.InfraConfig{}, fmt.Errorf("find infra config %s: %w", name, driven.ErrInfraConfigNotFound)
	}
	if err != nil {
		return model.InfraConfig{}, fmt.Errorf("find infra config %s: %w", name, mapError(err))
	}
	return cfg, nil
}

func (q infraConfigQueries) InsertMany(ctx context.Context, entries []model.InfraConfig) error {
	const query = `INSERT INTO infra_config (name, value, is_encrypted) VALUES ($1, $2, $3)`

	for _, e := range entries {
		text, encrypted := e.Value.Stored()
		if _, err := q.db.Exec(ctx, query, string(e.Name), text, encrypted); err != nil {
			if isCode(err, codeUniqueViolation) {
				return fmt.Errorf("insert infra config %s: duplicate name: %w", e.Name, err)
			}
			return fmt.Errorf("insert infra config %s: %w", e.Name, mapError(err))
		}
	}
	return nil
}

func (q infraConfigQueries) UpdateByName(ctx context.Context, name model.ConfigName, value model.StoredValue) (model.InfraConfig, error) {
	const query = `
		UPDATE infra_config SET value = $1, is_encrypted = $2, updated_at = NOW()
		WHERE name = $3
		RETURNING name, value, is_encrypted, updated_at
	`

	text, encrypted := value.Stored()
	cfg, err := scanInfraConfig(q.db.QueryRow(ctx, query, text, encrypted, string(name)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.InfraConfig{}, fmt.Errorf("update infra config %s: %w", name, driven.ErrInfraConfigNotFound)
	}
	if err != nil {
		return model.InfraConfig{}, fmt.Errorf("update infra config %s: %w", name, mapError(err))
	}
	return cfg, nil
}

func (q infraConfigQueries) DeleteByNames(ctx context.Context, names []model.ConfigName) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := q.db.Exec(ctx, `DELETE FROM infra_config WHERE name = ANY($1)`, toStrings(names)); err != nil {
		return fmt.Errorf("delete infra configs: %w", mapError(err))
	}
	return nil
}

func scanInfraConfig(row pgx.Row) (model.InfraConfig, error) {
	var (
		name      string
		text      string
		encrypted bool
		updatedAt time.Time
	)
	if err := row.Scan(&name, &text, &encrypted, &updatedAt); err != nil {
		return model.InfraConfig{}, err
	}

	cfg := model.InfraConfig{Name: model.ConfigName(name), Value: model.PlainValue(text), UpdatedAt: updatedAt}
	if encrypted {
		cfg.Value = model.EncryptedValue(text)
	}
	return cfg, nil
}

func collectInfraConfigs(rows pgx.Rows) ([]model.InfraConfig, error) {
	configs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.InfraConfig, error) {
		return scanInfraConfig(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan infra configs: %w", mapError(err))
	}
	if configs == nil {
		configs = []model.InfraConfig{}
	}
	return configs, nil
}

func toStrings(names []model.ConfigName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
