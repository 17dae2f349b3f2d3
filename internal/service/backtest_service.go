package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arbsim/internal/history"
	"arbsim/internal/models"
	"arbsim/internal/sim"
	"arbsim/pkg/utils"
)

// Ошибки сервиса бэктестов
var (
	ErrInvalidBacktestRequest = errors.New("invalid backtest request")
)

// BacktestRequest - запрос одного прогона бэктеста
type BacktestRequest struct {
	Asset       string                     `json:"asset"`
	Market1     sim.MarketSpec             `json:"market1"`
	Market2     sim.MarketSpec             `json:"market2"`
	Balances    models.Balances            `json:"balances"`
	Params      models.TradeParams         `json:"params"`
	Market1Data []models.OrderBookSnapshot `json:"market1_data"`
	Market2Data []models.OrderBookSnapshot `json:"market2_data"`
}

// BacktestResponse - сохранённая запись плюс полный итог прогона
type BacktestResponse struct {
	Run     *models.BacktestRun     `json:"run"`
	Summary *models.BacktestSummary `json:"summary"`
}

// BacktestService предоставляет бизнес-логику прогонов бэктеста.
//
// Отвечает за:
// - Валидацию запроса и выравнивание исторических потоков
// - Запуск детерминированного реплея
// - Сохранение итога и оповещение подписчиков
type BacktestService struct {
	runRepo     RunRepositoryInterface
	broadcaster ProgressBroadcaster
	logger      *utils.Logger
}

// NewBacktestService создает новый экземпляр BacktestService.
// Broadcaster опционален: nil отключает оповещения.
func NewBacktestService(runRepo RunRepositoryInterface, broadcaster ProgressBroadcaster, logger *utils.Logger) *BacktestService {
	if logger == nil {
		logger = utils.L().WithComponent("backtest-service")
	}
	return &BacktestService{
		runRepo:     runRepo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Run выполняет один прогон и сохраняет его итог.
// Рассинхронизированные потоки истории - ошибка запроса, не прогона.
func (s *BacktestService) Run(ctx context.Context, req *BacktestRequest) (*BacktestResponse, error) {
	started := time.Now()
	if err := validateBacktestRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := history.Align(req.Market1Data, req.Market2Data)
	if err != nil {
		return nil, err
	}

	engine := sim.NewBacktestEngine(sim.EngineConfig{
		Asset:   req.Asset,
		Market1: req.Market1,
		Market2: req.Market2,
	}, req.Balances.Clone())

	summary, err := engine.Run(stream.Market1, stream.Market2, req.Params)
	if err != nil {
		return nil, err
	}

	run := &models.BacktestRun{
		Asset:            req.Asset,
		Market1:          req.Market1.ID,
		Market2:          req.Market2.ID,
		Ticks:            summary.Ticks,
		NewOpportunities: summary.NewOpportunities,
		RevOpportunities: summary.RevOpportunities,
		NewTrades:        summary.NewTrades,
		RevTrades:        summary.RevTrades,
		KRWEarned:        summary.KRWEarned,
		KRWExhausted:     summary.KRWExhausted,
		Yield:            summary.Yield,
	}
	if err := s.runRepo.Create(run); err != nil {
		return nil, err
	}

	s.logger.Info("backtest finished",
		utils.RunID(int64(run.ID)),
		utils.Asset(req.Asset),
		utils.Int("ticks", summary.Ticks),
		utils.Float64("krw_earned", summary.KRWEarned),
		utils.String("took", utils.FormatDuration(time.Since(started))),
	)
	if s.broadcaster != nil {
		s.broadcaster.BacktestFinished(run)
	}

	return &BacktestResponse{Run: run, Summary: summary}, nil
}

// GetRun возвращает сохранённый прогон
func (s *BacktestService) GetRun(id int) (*models.BacktestRun, error) {
	return s.runRepo.GetByID(id)
}

// ListRuns возвращает прогоны от новых к старым
func (s *BacktestService) ListRuns(limit, offset int) ([]*models.BacktestRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.runRepo.List(limit, offset)
}

// DeleteRun удаляет сохранённый прогон
func (s *BacktestService) DeleteRun(id int) error {
	return s.runRepo.Delete(id)
}

// validateBacktestRequest проверяет обязательные поля запроса
func validateBacktestRequest(req *BacktestRequest) error {
	if req == nil {
		return ErrInvalidBacktestRequest
	}
	if err := utils.ValidateAsset(req.Asset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBacktestRequest, err)
	}
	if err := utils.ValidateMarketID(req.Market1.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBacktestRequest, err)
	}
	if err := utils.ValidateMarketID(req.Market2.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBacktestRequest, err)
	}
	if err := utils.ValidateFee(req.Market1.Fee); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBacktestRequest, err)
	}
	if err := utils.ValidateFee(req.Market2.Fee); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBacktestRequest, err)
	}
	switch {
	case req.Market1.ID == req.Market2.ID:
		return fmt.Errorf("%w: markets must differ", ErrInvalidBacktestRequest)
	case len(req.Market1Data) == 0:
		return fmt.Errorf("%w: history data is required", ErrInvalidBacktestRequest)
	}
	if err := req.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBacktestRequest, err)
	}
	return nil
}
