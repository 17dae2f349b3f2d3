package repository

import (
	"database/sql"
	"errors"
	"time"

	"arbsim/internal/models"
)

// Ошибки репозитория прогонов
var (
	ErrRunNotFound = errors.New("backtest run not found")
)

// RunRepository - работа с таблицей backtest_runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository создает новый экземпляр репозитория
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create сохраняет итог прогона и заполняет ID и CreatedAt
func (r *RunRepository) Create(run *models.BacktestRun) error {
	query := `
		INSERT INTO backtest_runs (asset, market1, market2, ticks, new_opportunities, rev_opportunities, new_trades, rev_trades, krw_earned, krw_exhausted, yield, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	run.CreatedAt = time.Now()

	return r.db.QueryRow(query,
		run.Asset,
		run.Market1,
		run.Market2,
		run.Ticks,
		run.NewOpportunities,
		run.RevOpportunities,
		run.NewTrades,
		run.RevTrades,
		run.KRWEarned,
		run.KRWExhausted,
		run.Yield,
		run.CreatedAt,
	).Scan(&run.ID)
}

// GetByID возвращает прогон по идентификатору
func (r *RunRepository) GetByID(id int) (*models.BacktestRun, error) {
	query := `
		SELECT id, asset, market1, market2, ticks, new_opportunities, rev_opportunities, new_trades, rev_trades, krw_earned, krw_exhausted, yield, created_at
		FROM backtest_runs
		WHERE id = $1`

	run := &models.BacktestRun{}
	err := r.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Asset,
		&run.Market1,
		&run.Market2,
		&run.Ticks,
		&run.NewOpportunities,
		&run.RevOpportunities,
		&run.NewTrades,
		&run.RevTrades,
		&run.KRWEarned,
		&run.KRWExhausted,
		&run.Yield,
		&run.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	return run, nil
}

// List возвращает прогоны от новых к старым
func (r *RunRepository) List(limit, offset int) ([]*models.BacktestRun, error) {
	query := `
		SELECT id, asset, market1, market2, ticks, new_opportunities, rev_opportunities, new_trades, rev_trades, krw_earned, krw_exhausted, yield, created_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run := &models.BacktestRun{}
		if err := rows.Scan(
			&run.ID,
			&run.Asset,
			&run.Market1,
			&run.Market2,
			&run.Ticks,
			&run.NewOpportunities,
			&run.RevOpportunities,
			&run.NewTrades,
			&run.RevTrades,
			&run.KRWEarned,
			&run.KRWExhausted,
			&run.Yield,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Delete удаляет прогон по идентификатору
func (r *RunRepository) Delete(id int) error {
	query := `DELETE FROM backtest_runs WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrRunNotFound
	}

	return nil
}
