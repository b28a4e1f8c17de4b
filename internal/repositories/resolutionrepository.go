package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Totarae/psabot/internal/model"
)

// Querier часть pgxpool.Pool, которая нужна репозиторию.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResolutionRepository журнал запросов в PostgreSQL.
type ResolutionRepository struct {
	DB Querier
}

// NewResolutionRepository создаёт новый экземпляр ResolutionRepository.
func NewResolutionRepository(db Querier) *ResolutionRepository {
	return &ResolutionRepository{DB: db}
}

// Record сохраняет запись журнала.
func (r *ResolutionRepository) Record(ctx context.Context, res *model.Resolution) error {
	if res == nil {
		return errors.New("nil resolution")
	}
	query := `INSERT INTO resolutions (id, user_id, page_url, selection, accepted, scanned, error, started, duration_ms)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.Exec(ctx, query,
		res.ID, res.UserID, res.PageURL, res.Selection,
		res.Accepted, res.Scanned, res.Error, res.Started, res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// History возвращает последние записи пользователя, новые первыми.
func (r *ResolutionRepository) History(ctx context.Context, userID int64, limit int) ([]*model.Resolution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, user_id, page_url, selection, accepted, scanned, error, started, duration_ms
              FROM resolutions WHERE user_id = $1 ORDER BY started DESC LIMIT $2`

	rows, err := r.DB.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var results []*model.Resolution
	for rows.Next() {
		obj := &model.Resolution{}
		var millis int64
		if err := rows.Scan(&obj.ID, &obj.UserID, &obj.PageURL, &obj.Selection,
			&obj.Accepted, &obj.Scanned, &obj.Error, &obj.Started, &millis); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		obj.Duration = time.Duration(millis) * time.Millisecond
		results = append(results, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return results, nil
}

// Ping проверяет доступность базы данных.
func (r *ResolutionRepository) Ping(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, "SELECT 1")
	return err
}
