package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"microcloudlab-backend/internal/config"
	"microcloudlab-backend/internal/metrics"
	"microcloudlab-backend/internal/models"
	"microcloudlab-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS microcontrollers (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL,
	type           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	specifications JSONB NOT NULL DEFAULT '{}'::jsonb,
	is_available   BOOLEAN NOT NULL DEFAULT TRUE,
	is_deletable   BOOLEAN NOT NULL DEFAULT TRUE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const selectColumns = "id, name, type, description, specifications, is_available, is_deletable, created_at, updated_at"

// MicrocontrollerRepository каталог микроконтроллеров в PostgreSQL
type MicrocontrollerRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewMicrocontrollerRepository(ctx context.Context, dbConfig config.DBConfig, logger *zap.Logger) (*MicrocontrollerRepository, error) {
	// Конфигурация пула
	poolConfig, err := pgxpool.ParseConfig(dbConfig.DBSource)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = int32(dbConfig.MaxDBConnections)
	poolConfig.MinConns = int32(dbConfig.MinDBConnections)
	poolConfig.MaxConnLifetime = dbConfig.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbConfig.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Проверка соединения
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	go monitorConnections(ctx, pool, logger)

	return &MicrocontrollerRepository{
		pool:   pool,
		logger: logger,
	}, nil
}

// monitorConnections периодически обновляет метрики соединений и завершается при отмене ctx
func monitorConnections(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping monitorConnections goroutine due to context cancellation")
			return
		case <-ticker.C:
			stats := pool.Stat()
			metrics.DBActiveConnections.Set(float64(stats.AcquiredConns()))
			metrics.DBIdleConnections.Set(float64(stats.IdleConns()))

			logger.Debug("Database connection stats",
				zap.Int("acquired", int(stats.AcquiredConns())),
				zap.Int("idle", int(stats.IdleConns())),
				zap.Int("max", int(stats.MaxConns())),
			)
		}
	}
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// EnsureSchema создает таблицу каталога, если ее нет
func (r *MicrocontrollerRepository) EnsureSchema(ctx context.Context) error {
	defer observe("ensure_schema")()

	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMicrocontroller(row scanner) (models.Microcontroller, error) {
	var (
		mc    models.Microcontroller
		specs []byte
	)

	err := row.Scan(
		&mc.ID,
		&mc.Name,
		&mc.Type,
		&mc.Description,
		&specs,
		&mc.IsAvailable,
		&mc.IsDeletable,
		&mc.CreatedAt,
		&mc.UpdatedAt,
	)
	if err != nil {
		return mc, err
	}

	mc.Specifications = models.Configuration{}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &mc.Specifications); err != nil {
			return mc, fmt.Errorf("failed to decode specifications of %s: %w", mc.ID, err)
		}
	}
	return mc, nil
}

// List возвращает каталог, отсортированный по имени
func (r *MicrocontrollerRepository) List(ctx context.Context) ([]models.Microcontroller, error) {
	defer observe("list_microcontrollers")()

	rows, err := r.pool.Query(ctx, "SELECT "+selectColumns+" FROM microcontrollers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query microcontrollers: %w", err)
	}
	defer rows.Close()

	result := make([]models.Microcontroller, 0)
	for rows.Next() {
		mc, err := scanMicrocontroller(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, mc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// Get возвращает запись по id или repository.ErrNotFound
func (r *MicrocontrollerRepository) Get(ctx context.Context, id uuid.UUID) (models.Microcontroller, error) {
	defer observe("get_microcontroller")()

	row := r.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM microcontrollers WHERE id = $1", id)
	mc, err := scanMicrocontroller(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mc, repository.ErrNotFound
		}
		return mc, fmt.Errorf("failed to get microcontroller: %w", err)
	}
	return mc, nil
}

// Create сохраняет новую запись, id и времена проставляются здесь
func (r *MicrocontrollerRepository) Create(ctx context.Context, mc models.Microcontroller) (models.Microcontroller, error) {
	defer observe("create_microcontroller")()

	if mc.ID == uuid.Nil {
		mc.ID = uuid.New()
	}
	if mc.Specifications == nil {
		mc.Specifications = models.Configuration{}
	}

	specs, err := json.Marshal(mc.Specifications)
	if err != nil {
		return mc, fmt.Errorf("failed to encode specifications: %w", err)
	}

	query := `INSERT INTO microcontrollers (id, name, type, description, specifications, is_available, is_deletable)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err = r.pool.QueryRow(ctx, query,
		mc.ID,
		mc.Name,
		mc.Type,
		mc.Description,
		specs,
		mc.IsAvailable,
		mc.IsDeletable,
	).Scan(&mc.CreatedAt, &mc.UpdatedAt)
	if err != nil {
		return mc, fmt.Errorf("failed to create microcontroller: %w", err)
	}

	r.logger.Info("Microcontroller created",
		zap.String("id", mc.ID.String()),
		zap.String("name", mc.Name),
		zap.String("type", mc.Type))
	return mc, nil
}

// Delete удаляет запись. Защищенные записи не трогаются.
func (r *MicrocontrollerRepository) Delete(ctx context.Context, id uuid.UUID) (models.Microcontroller, error) {
	defer observe("delete_microcontroller")()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Microcontroller{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, "SELECT "+selectColumns+" FROM microcontrollers WHERE id = $1 FOR UPDATE", id)
	mc, err := scanMicrocontroller(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mc, repository.ErrNotFound
		}
		return mc, fmt.Errorf("failed to get microcontroller: %w", err)
	}

	if !mc.IsDeletable {
		return mc, repository.ErrNotDeletable
	}

	if _, err := tx.Exec(ctx, "DELETE FROM microcontrollers WHERE id = $1", id); err != nil {
		return mc, fmt.Errorf("failed to delete microcontroller: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mc, fmt.Errorf("failed to commit delete: %w", err)
	}
	return mc, nil
}

// BulkDelete удаляет набор записей в одной транзакции и возвращает подробный результат
func (r *MicrocontrollerRepository) BulkDelete(ctx context.Context, ids []string) (models.BulkDeleteResult, error) {
	defer observe("bulk_delete_microcontrollers")()

	requested, valid, invalid := partitionIDs(ids)
	if len(valid) == 0 {
		return buildBulkDeleteResult(requested, valid, invalid, nil), nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.BulkDeleteResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx,
		"SELECT id, name, type, is_deletable FROM microcontrollers WHERE id = ANY($1::uuid[]) FOR UPDATE",
		uuidStrings(valid))
	if err != nil {
		return models.BulkDeleteResult{}, fmt.Errorf("failed to query microcontrollers: %w", err)
	}

	found := make(map[uuid.UUID]models.Microcontroller, len(valid))
	for rows.Next() {
		var mc models.Microcontroller
		if err := rows.Scan(&mc.ID, &mc.Name, &mc.Type, &mc.IsDeletable); err != nil {
			rows.Close()
			return models.BulkDeleteResult{}, fmt.Errorf("failed to scan row: %w", err)
		}
		found[mc.ID] = mc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.BulkDeleteResult{}, fmt.Errorf("error iterating rows: %w", err)
	}

	result := buildBulkDeleteResult(requested, valid, invalid, found)

	if len(result.DeletedMicrocontrollers) > 0 {
		deleted := make([]string, 0, len(result.DeletedMicrocontrollers))
		for _, d := range result.DeletedMicrocontrollers {
			deleted = append(deleted, d.ID)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM microcontrollers WHERE id = ANY($1::uuid[])", deleted); err != nil {
			return models.BulkDeleteResult{}, fmt.Errorf("failed to delete microcontrollers: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.BulkDeleteResult{}, fmt.Errorf("failed to commit bulk delete: %w", err)
	}

	r.logger.Info("Bulk delete finished",
		zap.Int("requested", result.TotalRequested),
		zap.Int("deleted", result.SuccessfulDeletions),
		zap.Int("failed", result.FailedDeletions))
	return result, nil
}

// partitionIDs убирает дубликаты и отделяет некорректные идентификаторы
func partitionIDs(ids []string) (requested int, valid []uuid.UUID, invalid []models.BulkDeleteFailure) {
	seen := make(map[string]struct{}, len(ids))

	for _, raw := range ids {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		requested++

		id, err := uuid.Parse(raw)
		if err != nil {
			invalid = append(invalid, models.BulkDeleteFailure{ID: raw, Reason: models.ReasonInvalidID})
			continue
		}
		valid = append(valid, id)
	}
	return requested, valid, invalid
}

// buildBulkDeleteResult раскладывает найденные записи на удаляемые и отказы, сохраняя порядок запроса
func buildBulkDeleteResult(requested int, valid []uuid.UUID, invalid []models.BulkDeleteFailure, found map[uuid.UUID]models.Microcontroller) models.BulkDeleteResult {
	result := models.BulkDeleteResult{
		TotalRequested:          requested,
		DeletedMicrocontrollers: make([]models.DeletedMicrocontroller, 0),
		InvalidIDs:              append(make([]models.BulkDeleteFailure, 0, len(invalid)), invalid...),
	}

	for _, id := range valid {
		mc, ok := found[id]
		switch {
		case !ok:
			result.InvalidIDs = append(result.InvalidIDs, models.BulkDeleteFailure{
				ID:     id.String(),
				Reason: models.ReasonNotFound,
			})
		case !mc.IsDeletable:
			result.InvalidIDs = append(result.InvalidIDs, models.BulkDeleteFailure{
				ID:     id.String(),
				Name:   mc.Name,
				Reason: models.ReasonNotDeletable,
			})
		default:
			result.DeletedMicrocontrollers = append(result.DeletedMicrocontrollers, models.DeletedMicrocontroller{
				ID:   id.String(),
				Name: mc.Name,
				Type: mc.Type,
			})
		}
	}

	result.SuccessfulDeletions = len(result.DeletedMicrocontrollers)
	result.FailedDeletions = len(result.InvalidIDs)
	return result
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// HealthCheck проверяет доступность базы
func (r *MicrocontrollerRepository) HealthCheck(ctx context.Context) error {
	defer observe("health_check")()

	return r.pool.Ping(ctx)
}

func (r *MicrocontrollerRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
