package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.InfraConfigStore = (*InfraConfigRepo)(nil)

// InfraConfigRepo is the SQLite implementation of the InfraConfigStore port interface.
// Values are persisted exactly as handed in; encryption is the caller's concern.
type InfraConfigRepo struct {
	db *DB
	infraConfigQueries
}

// NewInfraConfigRepo creates a new InfraConfigRepo backed by the given DB.
// Reads outside a transaction use the reader pool, writes use the writer.
func NewInfraConfigRepo(db *DB) *InfraConfigRepo {
	return &InfraConfigRepo{
		db:                 db,
		infraConfigQueries: infraConfigQueries{reader: db.Reader, writer: db.Writer},
	}
}

// WithinTx runs fn inside a single writer transaction. Reads made through q
// see the transaction's own writes.
func (r *InfraConfigRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, q driven.InfraConfigQueries) error) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if err := fn(ctx, infraConfigQueries{reader: tx, writer: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

type infraConfigQueries struct {
	reader dbtx
	writer dbtx
}

const selectInfraConfig = `SELECT name, value, is_encrypted, updated_at FROM infra_config`

// FindAll returns every row ordered by name.
func (q infraConfigQueries) FindAll(ctx context.Context) ([]model.InfraConfig, error) {
	rows, err := q.reader.QueryContext(ctx, selectInfraConfig+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list infra configs: %w", mapError(err))
	}
	return scanInfraConfigs(rows)
}

// FindByNames returns the rows whose names are in names, ordered by name.
func (q infraConfigQueries) FindByNames(ctx context.Context, names []model.ConfigName) ([]model.InfraConfig, error) {
	if len(names) == 0 {
		return []model.InfraConfig{}, nil
	}

	placeholders, args := inClause(names)
	query := selectInfraConfig + ` WHERE name IN (` + placeholders + `) ORDER BY name`

	rows, err := q.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find infra configs by names: %w", mapError(err))
	}
	return scanInfraConfigs(rows)
}

// FindByName returns the row for name or driven.ErrInfraConfigNotFound.
func (q infraConfigQueries) FindByName(ctx context.Context, name model.ConfigName) (model.InfraConfig, error) {
	row := q.reader.QueryRowContext(ctx, selectInfraConfig+` WHERE name = ?`, string(name))

	cfg, err := scanInfraConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InfraConfig{}, fmt.Errorf("find infra config %s: %w", name, driven.ErrInfraConfigNotFound)
	}
	if err != nil {
		return model.InfraConfig{}, fmt.Errorf("find infra config %s: %w", name, mapError(err))
	}
	return cfg, nil
}

// InsertMany inserts all entries. A duplicate name fails the whole call when
// run inside a transaction.
func (q infraConfigQueries) InsertMany(ctx context.Context, entries []model.InfraConfig) error {
	const query = `
		INSERT INTO infra_config (name, value, is_encrypted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		text, encrypted := e.Value.Stored()
		if _, err := q.writer.ExecContext(ctx, query, string(e.Name), text, boolToInt(encrypted), now, now); err != nil {
			return fmt.Errorf("insert infra config %s: %w", e.Name, mapError(err))
		}
	}
	return nil
}

// UpdateByName replaces the value of an existing row.
func (q infraConfigQueries) UpdateByName(ctx context.Context, name model.ConfigName, value model.StoredValue) (model.InfraConfig, error) {
	const query = `UPDATE infra_config SET value = ?, is_encrypted = ?, updated_at = ? WHERE name = ?`

	text, encrypted := value.Stored()
	now := time.Now().UTC()

	result, err := q.writer.ExecContext(ctx, query, text, boolToInt(encrypted), now.Format(time.RFC3339Nano), string(name))
	if err != nil {
		return model.InfraConfig{}, fmt.Errorf("update infra config %s: %w", name, mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return model.InfraConfig{}, fmt.Errorf("update infra config %s: rows affected: %w", name, err)
	}
	if affected == 0 {
		return model.InfraConfig{}, fmt.Errorf("update infra config %s: %w", name, driven.ErrInfraConfigNotFound)
	}

	return model.InfraConfig{Name: name, Value: value, UpdatedAt: now}, nil
}

// DeleteByNames removes the rows for names. Missing names are ignored.
func (q infraConfigQueries) DeleteByNames(ctx context.Context, names []model.ConfigName) error {
	if len(names) == 0 {
		return nil
	}

	placeholders, args := inClause(names)
	if _, err := q.writer.ExecContext(ctx, `DELETE FROM infra_config WHERE name IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete infra configs: %w", mapError(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfraConfig(row rowScanner) (model.InfraConfig, error) {
	var (
		name      string
		text      string
		encrypted int
		updatedAt string
	)
	if err := row.Scan(&name, &text, &encrypted, &updatedAt); err != nil {
		return model.InfraConfig{}, err
	}

	cfg := model.InfraConfig{Name: model.ConfigName(name), Value: model.PlainValue(text)}
	if encrypted == 1 {
		cfg.Value = model.EncryptedValue(text)
	}

	t, err := parseTime(updatedAt)
	if err != nil {
		return model.InfraConfig{}, fmt.Errorf("parse updated_at for %s: %w", name, err)
	}
	cfg.UpdatedAt = t

	return cfg, nil
}

func scanInfraConfigs(rows *sql.Rows) ([]model.InfraConfig, error) {
	defer rows.Close()

	configs := []model.InfraConfig{}
	for rows.Next() {
		cfg, err := scanInfraConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan infra config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate infra configs: %w", mapError(err))
	}
	return configs, nil
}

func inClause(names []model.ConfigName) (string, []any) {
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = string(n)
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(names)), ","), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
