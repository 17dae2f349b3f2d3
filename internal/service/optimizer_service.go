package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arbsim/internal/history"
	"arbsim/internal/models"
	"arbsim/internal/optimizer"
	"arbsim/internal/sim"
	"arbsim/pkg/utils"
)

// Ошибки сервиса оптимизации
var (
	ErrInvalidSearchRequest = errors.New("invalid search request")
)

// Умолчания сеточного поиска
const (
	defaultDivision = 10
	defaultMaxGap   = 10 // тиков между вспышками спреда внутри одного окна
)

// SearchBase - общая часть всех запросов поиска: пара рынков,
// исторические потоки и разрешение сетки
type SearchBase struct {
	Asset          string                     `json:"asset"`
	Market1        sim.MarketSpec             `json:"market1"`
	Market2        sim.MarketSpec             `json:"market2"`
	Market1Data    []models.OrderBookSnapshot `json:"market1_data"`
	Market2Data    []models.OrderBookSnapshot `json:"market2_data"`
	MinTradingCoin float64                    `json:"min_trading_coin"`
	Division       int                        `json:"division"`
	Depth          int                        `json:"depth"`
	Workers        int                        `json:"workers"`
}

// SettingSearchRequest - запрос поиска торговых настроек
type SettingSearchRequest struct {
	SearchBase
	Balances models.Balances       `json:"balances"`
	Grid     optimizer.SettingGrid `json:"grid"`
}

// BalanceSearchRequest - запрос поиска распределения капитала
type BalanceSearchRequest struct {
	SearchBase
	Allocations optimizer.BalanceGrid `json:"allocations"`
	Settings    optimizer.SettingGrid `json:"settings"`
	// Разрешение вложенного поиска настроек внутри каждой аллокации
	SettingDivision int `json:"setting_division"`
	SettingDepth    int `json:"setting_depth"`
}

// WindowSearchRequest - запрос составного поиска по окнам.
// Пустой список окон означает автоопределение по истории.
type WindowSearchRequest struct {
	SearchBase
	Balances models.Balances       `json:"balances"`
	Settings optimizer.SettingGrid `json:"settings"`
	Windows  []history.Window      `json:"windows"`
	MaxGap   int                   `json:"max_gap"` // допустимый разрыв при автоопределении окон
}

// OptimizationResponse - сохранённая запись плюс полный лучший
// результат; для оконного поиска дополнительно итоги каждого окна
type OptimizationResponse struct {
	Record   *models.OptimizationRecord `json:"record"`
	Result   *models.OptimizationResult `json:"result"`
	Outcomes []optimizer.WindowOutcome  `json:"outcomes,omitempty"`
}

// OptimizerService предоставляет бизнес-логику поиска параметров.
//
// Отвечает за:
// - Валидацию запросов и выравнивание исторических потоков
// - Запуск вариантов иерархического сеточного поиска
// - Сохранение лучших комбинаций и трансляцию хода поиска
type OptimizerService struct {
	resultRepo  ResultRepositoryInterface
	broadcaster ProgressBroadcaster
	logger      *utils.Logger

	// Пределы из конфигурации; нулевые значения ничего не ограничивают
	defaultWorkers int
	maxDepth       int
}

// NewOptimizerService создает новый экземпляр OptimizerService.
// Broadcaster опционален: nil отключает оповещения.
func NewOptimizerService(resultRepo ResultRepositoryInterface, broadcaster ProgressBroadcaster, logger *utils.Logger) *OptimizerService {
	if logger == nil {
		logger = utils.L().WithComponent("optimizer-service")
	}
	return &OptimizerService{
		resultRepo:  resultRepo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// SetSearchLimits задаёт умолчание воркеров и потолок глубины
// из конфигурации сервера
func (s *OptimizerService) SetSearchLimits(workers, maxDepth int) {
	s.defaultWorkers = workers
	s.maxDepth = maxDepth
}

// applyLimits дополняет запрос серверными пределами
func (s *OptimizerService) applyLimits(b *SearchBase) {
	if b.Workers <= 0 && s.defaultWorkers > 0 {
		b.Workers = s.defaultWorkers
	}
	if s.maxDepth > 0 && b.Depth > s.maxDepth {
		b.Depth = s.maxDepth
	}
}

// RunSettingSearch перебирает торговые настройки на фиксированном капитале
func (s *OptimizerService) RunSettingSearch(ctx context.Context, req *SettingSearchRequest) (*OptimizationResponse, error) {
	if req == nil {
		return nil, ErrInvalidSearchRequest
	}
	started := time.Now()
	req.applyDefaults()
	s.applyLimits(&req.SearchBase)
	if err := req.validate(); err != nil {
		return nil, err
	}

	stream, err := history.Align(req.Market1Data, req.Market2Data)
	if err != nil {
		return nil, err
	}

	combinations := req.Grid.Combinations(req.Division)
	s.logger.Info("setting search started",
		utils.Asset(req.Asset),
		utils.Combinations(combinations),
		utils.Depth(req.Depth),
	)

	search := optimizer.NewSettingSearch(optimizer.SettingSearchConfig{
		Engine:         s.engineConfig(&req.SearchBase),
		Stream:         stream,
		Balances:       req.Balances,
		MinTradingCoin: req.MinTradingCoin,
		Division:       req.Division,
		Depth:          req.Depth,
		Workers:        req.Workers,
		Progress:       s.progressFunc(models.SearchKindSetting),
		Logger:         s.logger,
	})

	best, err := search.Run(ctx, req.Grid)
	if err != nil {
		return nil, err
	}

	return s.finish(models.SearchKindSetting, req.Asset, started, best, combinations, req.Depth, nil)
}

// RunBalanceSearch перебирает распределения стартового капитала;
// каждая аллокация оценивается вложенным поиском настроек
func (s *OptimizerService) RunBalanceSearch(ctx context.Context, req *BalanceSearchRequest) (*OptimizationResponse, error) {
	if req == nil {
		return nil, ErrInvalidSearchRequest
	}
	started := time.Now()
	req.applyDefaults()
	s.applyLimits(&req.SearchBase)
	if err := req.SearchBase.validate(); err != nil {
		return nil, err
	}

	stream, err := history.Align(req.Market1Data, req.Market2Data)
	if err != nil {
		return nil, err
	}

	combinations := req.Allocations.Combinations(req.Division)
	s.logger.Info("balance search started",
		utils.Asset(req.Asset),
		utils.Combinations(combinations),
		utils.Depth(req.Depth),
	)

	search := optimizer.NewBalanceSearch(optimizer.BalanceSearchConfig{
		Engine:          s.engineConfig(&req.SearchBase),
		Stream:          stream,
		Settings:        req.Settings,
		MinTradingCoin:  req.MinTradingCoin,
		Division:        req.Division,
		Depth:           req.Depth,
		Workers:         req.Workers,
		SettingDivision: req.SettingDivision,
		SettingDepth:    req.SettingDepth,
		Progress:        s.progressFunc(models.SearchKindBalance),
		Logger:          s.logger,
	})

	best, err := search.Run(ctx, req.Allocations)
	if err != nil {
		return nil, err
	}

	return s.finish(models.SearchKindBalance, req.Asset, started, best, combinations, req.Depth, nil)
}

// RunWindowSearch запускает поиск настроек независимо в каждом окне
// возможностей с переносом капитала между окнами
func (s *OptimizerService) RunWindowSearch(ctx context.Context, req *WindowSearchRequest) (*OptimizationResponse, error) {
	if req == nil {
		return nil, ErrInvalidSearchRequest
	}
	started := time.Now()
	req.applyDefaults()
	s.applyLimits(&req.SearchBase)
	if err := req.SearchBase.validate(); err != nil {
		return nil, err
	}

	stream, err := history.Align(req.Market1Data, req.Market2Data)
	if err != nil {
		return nil, err
	}

	windows := req.Windows
	if len(windows) == 0 {
		windows = history.DetectWindows(stream, req.Market1.Fee, req.Market2.Fee, req.MaxGap)
		s.logger.Info("opportunity windows detected",
			utils.Asset(req.Asset),
			utils.Int("windows", len(windows)),
		)
	}

	combinations := req.Settings.Combinations(req.Division) * len(windows)
	s.logger.Info("window search started",
		utils.Asset(req.Asset),
		utils.Combinations(combinations),
		utils.Int("windows", len(windows)),
	)

	search := optimizer.NewWindowSearch(optimizer.WindowSearchConfig{
		Engine:         s.engineConfig(&req.SearchBase),
		Stream:         stream,
		Windows:        windows,
		Balances:       req.Balances,
		Settings:       req.Settings,
		MinTradingCoin: req.MinTradingCoin,
		Division:       req.Division,
		Depth:          req.Depth,
		Workers:        req.Workers,
		Progress:       s.progressFunc(models.SearchKindWindow),
		Logger:         s.logger,
	})

	best, outcomes, err := search.Run(ctx)
	if err != nil {
		return nil, err
	}

	return s.finish(models.SearchKindWindow, req.Asset, started, best, combinations, req.Depth, outcomes)
}

// GetResult возвращает сохранённый результат поиска
func (s *OptimizerService) GetResult(id int) (*models.OptimizationRecord, error) {
	return s.resultRepo.GetByID(id)
}

// ListResults возвращает результаты одного вида поиска от новых к старым
func (s *OptimizerService) ListResults(kind string, limit, offset int) ([]*models.OptimizationRecord, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.resultRepo.ListByKind(kind, limit, offset)
}

// BestResult возвращает запись с максимальной метрикой для вида и актива
func (s *OptimizerService) BestResult(kind, asset string) (*models.OptimizationRecord, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if asset == "" {
		return nil, fmt.Errorf("%w: asset is required", ErrInvalidSearchRequest)
	}
	return s.resultRepo.Best(kind, asset)
}

// finish сохраняет лучшую комбинацию и оповещает подписчиков
func (s *OptimizerService) finish(kind, asset string, started time.Time, best *models.OptimizationResult, combinations, depth int, outcomes []optimizer.WindowOutcome) (*OptimizationResponse, error) {
	rec := &models.OptimizationRecord{
		Kind:           kind,
		Asset:          asset,
		Metric:         best.Metric,
		KRWEarned:      best.Summary.KRWEarned,
		Yield:          best.Summary.Yield,
		MaxTradingCoin: best.Params.MaxTradingCoin,
		NewThreshold:   best.Params.New.Threshold,
		RevThreshold:   best.Params.Rev.Threshold,
		NewFactor:      best.Params.New.Factor,
		RevFactor:      best.Params.Rev.Factor,
		Combinations:   int64(combinations),
		Depth:          depth,
	}
	if err := s.resultRepo.Create(rec); err != nil {
		return nil, err
	}

	s.logger.Info("search finished",
		utils.String("kind", kind),
		utils.Asset(asset),
		utils.Metric(best.Metric),
		utils.Combinations(combinations),
		utils.String("took", utils.FormatDuration(time.Since(started))),
	)
	if s.broadcaster != nil {
		s.broadcaster.SearchFinished(kind, rec)
	}

	return &OptimizationResponse{Record: rec, Result: best, Outcomes: outcomes}, nil
}

// progressFunc оборачивает broadcaster в колбэк ядра поиска
func (s *OptimizerService) progressFunc(kind string) optimizer.ProgressFunc {
	if s.broadcaster == nil {
		return nil
	}
	return func(event optimizer.ProgressEvent) {
		s.broadcaster.SearchProgress(kind, event)
	}
}

// engineConfig собирает конфигурацию движка из общей части запроса
func (s *OptimizerService) engineConfig(base *SearchBase) sim.EngineConfig {
	return sim.EngineConfig{
		Asset:   base.Asset,
		Market1: base.Market1,
		Market2: base.Market2,
	}
}

// applyDefaults подставляет умолчания сеточного поиска
func (b *SearchBase) applyDefaults() {
	if b.Division <= 0 {
		b.Division = defaultDivision
	}
	if b.Depth < 0 {
		b.Depth = 0
	}
}

// applyDefaults дополняет умолчания вложенного поиска настроек
func (r *BalanceSearchRequest) applyDefaults() {
	r.SearchBase.applyDefaults()
	if r.SettingDivision <= 0 {
		r.SettingDivision = r.Division
	}
	if r.SettingDepth < 0 {
		r.SettingDepth = 0
	}
}

// applyDefaults дополняет умолчания автоопределения окон
func (r *WindowSearchRequest) applyDefaults() {
	r.SearchBase.applyDefaults()
	if r.MaxGap <= 0 {
		r.MaxGap = defaultMaxGap
	}
}

// validate проверяет обязательные поля общей части запроса
func (b *SearchBase) validate() error {
	if err := utils.ValidateAsset(b.Asset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSearchRequest, err)
	}
	if err := utils.ValidateMarketID(b.Market1.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSearchRequest, err)
	}
	if err := utils.ValidateMarketID(b.Market2.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSearchRequest, err)
	}
	if err := utils.ValidateFee(b.Market1.Fee); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSearchRequest, err)
	}
	if err := utils.ValidateFee(b.Market2.Fee); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSearchRequest, err)
	}
	switch {
	case b.Market1.ID == b.Market2.ID:
		return fmt.Errorf("%w: markets must differ", ErrInvalidSearchRequest)
	case len(b.Market1Data) == 0:
		return fmt.Errorf("%w: history data is required", ErrInvalidSearchRequest)
	}
	return nil
}

// validateKind проверяет, что вид поиска известен
func validateKind(kind string) error {
	switch kind {
	case models.SearchKindSetting, models.SearchKindBalance, models.SearchKindWindow:
		return nil
	}
	return fmt.Errorf("%w: unknown search kind %q", ErrInvalidSearchRequest, kind)
}
