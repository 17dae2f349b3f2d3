package repository

import (
	"database/sql"
	"errors"
	"time"

	"arbsim/internal/models"
)

// Ошибки репозитория результатов оптимизации
var (
	ErrResultNotFound = errors.New("optimization result not found")
)

// ResultRepository - работа с таблицей optimization_results
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository создает новый экземпляр репозитория
func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create сохраняет лучшую комбинацию поиска и заполняет ID и CreatedAt
func (r *ResultRepository) Create(rec *models.OptimizationRecord) error {
	query := `
		INSERT INTO optimization_results (kind, asset, metric, krw_earned, yield, max_trading_coin, new_threshold, rev_threshold, new_factor, rev_factor, combinations, depth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	rec.CreatedAt = time.Now()

	return r.db.QueryRow(query,
		rec.Kind,
		rec.Asset,
		rec.Metric,
		rec.KRWEarned,
		rec.Yield,
		rec.MaxTradingCoin,
		rec.NewThreshold,
		rec.RevThreshold,
		rec.NewFactor,
		rec.RevFactor,
		rec.Combinations,
		rec.Depth,
		rec.CreatedAt,
	).Scan(&rec.ID)
}

// GetByID возвращает результат по идентификатору
func (r *ResultRepository) GetByID(id int) (*models.OptimizationRecord, error) {
	query := `
		SELECT id, kind, asset, metric, krw_earned, yield, max_trading_coin, new_threshold, rev_threshold, new_factor, rev_factor, combinations, depth, created_at
		FROM optimization_results
		WHERE id = $1`

	rec := &models.OptimizationRecord{}
	err := r.db.QueryRow(query, id).Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Asset,
		&rec.Metric,
		&rec.KRWEarned,
		&rec.Yield,
		&rec.MaxTradingCoin,
		&rec.NewThreshold,
		&rec.RevThreshold,
		&rec.NewFactor,
		&rec.RevFactor,
		&rec.Combinations,
		&rec.Depth,
		&rec.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	return rec, nil
}

// ListByKind возвращает результаты одного вида поиска от новых к старым
func (r *ResultRepository) ListByKind(kind string, limit, offset int) ([]*models.OptimizationRecord, error) {
	query := `
		SELECT id, kind, asset, metric, krw_earned, yield, max_trading_coin, new_threshold, rev_threshold, new_factor, rev_factor, combinations, depth, created_at
		FROM optimization_results
		WHERE kind = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Best возвращает запись с максимальной метрикой для вида и актива
func (r *ResultRepository) Best(kind, asset string) (*models.OptimizationRecord, error) {
	query := `
		SELECT id, kind, asset, metric, krw_earned, yield, max_trading_coin, new_threshold, rev_threshold, new_factor, rev_factor, combinations, depth, created_at
		FROM optimization_results
		WHERE kind = $1 AND asset = $2
		ORDER BY metric DESC, created_at DESC
		LIMIT 1`

	rec := &models.OptimizationRecord{}
	err := r.db.QueryRow(query, kind, asset).Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Asset,
		&rec.Metric,
		&rec.KRWEarned,
		&rec.Yield,
		&rec.MaxTradingCoin,
		&rec.NewThreshold,
		&rec.RevThreshold,
		&rec.NewFactor,
		&rec.RevFactor,
		&rec.Combinations,
		&rec.Depth,
		&rec.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	return rec, nil
}

// scanRecords вычитывает записи результата из курсора
func scanRecords(rows *sql.Rows) ([]*models.OptimizationRecord, error) {
	var records []*models.OptimizationRecord
	for rows.Next() {
		rec := &models.OptimizationRecord{}
		if err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.Asset,
			&rec.Metric,
			&rec.KRWEarned,
			&rec.Yield,
			&rec.MaxTradingCoin,
			&rec.NewThreshold,
			&rec.RevThreshold,
			&rec.NewFactor,
			&rec.RevFactor,
			&rec.Combinations,
			&rec.Depth,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
