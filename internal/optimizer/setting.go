package optimizer

import (
	"context"
	"fmt"

	"arbsim/internal/history"
	"arbsim/internal/models"
	"arbsim/internal/sim"
	"arbsim/pkg/utils"
)

// ============================================================
// SettingSearch - поиск торговых настроек (фиксированный капитал)
// ============================================================

// SettingGrid - интервалы перебора торговых настроек
type SettingGrid struct {
	MaxTradingCoin SearchParameter `json:"max_trading_coin"`
	NewThreshold   SearchParameter `json:"new_threshold"`
	RevThreshold   SearchParameter `json:"rev_threshold"`
	NewFactor      SearchParameter `json:"new_factor"`
	RevFactor      SearchParameter `json:"rev_factor"`
}

// Combinations возвращает размер полной сетки первой глубины.
// Считается до разогревочного прогона, поэтому схлопывание
// измерений его не уменьшает.
func (g SettingGrid) Combinations(division int) int {
	total := 1
	for _, p := range []SearchParameter{g.MaxTradingCoin, g.NewThreshold, g.RevThreshold, g.NewFactor, g.RevFactor} {
		total *= len(p.Generate(division).Seq)
	}
	return total
}

// SettingSearchConfig - конфигурация поиска настроек
type SettingSearchConfig struct {
	Engine         sim.EngineConfig
	Stream         *history.PairedStream
	Balances       models.Balances
	MinTradingCoin float64
	Division       int
	Depth          int
	Workers        int
	Progress       ProgressFunc
	Logger         *utils.Logger
}

// SettingSearch перебирает торговые настройки на фиксированном
// капитале; метрика - заработанный KRW, при равенстве выигрывает
// меньший потолок объёма сделки
type SettingSearch struct {
	cfg  SettingSearchConfig
	core Core
}

// NewSettingSearch создаёт поиск настроек
func NewSettingSearch(cfg SettingSearchConfig) *SettingSearch {
	if cfg.Logger == nil {
		cfg.Logger = utils.L().WithComponent("setting-search")
	}
	return &SettingSearch{
		cfg: cfg,
		core: Core{
			Division: cfg.Division,
			Depth:    cfg.Depth,
			Workers:  cfg.Workers,
			Secondary: func(r *models.OptimizationResult) float64 {
				return r.Params.MaxTradingCoin
			},
			Progress: cfg.Progress,
			Logger:   cfg.Logger,
		},
	}
}

// Run выполняет полный поиск по сетке настроек
func (s *SettingSearch) Run(ctx context.Context, grid SettingGrid) (*models.OptimizationResult, error) {
	probed, err := s.probe(grid)
	if err != nil {
		return nil, fmt.Errorf("warm-start probe: %w", err)
	}

	dims := []Dimension{
		{Name: "max_trading_coin", Param: probed.MaxTradingCoin},
		{Name: "new_threshold", Param: probed.NewThreshold},
		{Name: "rev_threshold", Param: probed.RevThreshold},
		{Name: "new_factor", Param: probed.NewFactor},
		{Name: "rev_factor", Param: probed.RevFactor},
	}

	best, err := s.core.Run(ctx, dims, s.evaluate)
	if err != nil {
		return nil, err
	}

	SearchesFinished.WithLabelValues(models.SearchKindSetting).Inc()
	BestMetricSeen.WithLabelValues(models.SearchKindSetting).Set(best.Metric)
	return best, nil
}

// probe - разогревочный прогон с нейтральными настройками.
// Считает возможности по направлениям и схлопывает измерения,
// которые на этих данных не на что влияют:
//   - направление без возможностей теряет порог и множитель,
//     а заодно схлопывается множитель встречного направления;
//   - при возможностях в обоих направлениях схлопывается множитель
//     более частого направления, при равенстве - оба множителя.
func (s *SettingSearch) probe(grid SettingGrid) (SettingGrid, error) {
	params := models.TradeParams{
		MaxTradingCoin: grid.MaxTradingCoin.End,
		MinTradingCoin: s.cfg.MinTradingCoin,
		New:            models.DirectionParams{Threshold: 0, Factor: 1},
		Rev:            models.DirectionParams{Threshold: 0, Factor: 1},
	}

	engine := sim.NewBacktestEngine(s.cfg.Engine, s.cfg.Balances.Clone())
	summary, err := engine.Run(s.cfg.Stream.Market1, s.cfg.Stream.Market2, params)
	if err != nil {
		return grid, err
	}

	newOppty, revOppty := summary.NewOpportunities, summary.RevOpportunities
	s.cfg.Logger.Info("warm-start probe finished",
		utils.Int("new_opportunities", newOppty),
		utils.Int("rev_opportunities", revOppty),
	)

	switch {
	case newOppty == 0 && revOppty == 0:
		grid.NewThreshold = Collapse(grid.NewThreshold.Start)
		grid.RevThreshold = Collapse(grid.RevThreshold.Start)
		grid.NewFactor = Collapse(grid.NewFactor.Start)
		grid.RevFactor = Collapse(grid.RevFactor.Start)
	case newOppty == 0:
		grid.NewThreshold = Collapse(grid.NewThreshold.Start)
		grid.NewFactor = Collapse(grid.NewFactor.Start)
		grid.RevFactor = Collapse(grid.RevFactor.Start)
	case revOppty == 0:
		grid.RevThreshold = Collapse(grid.RevThreshold.Start)
		grid.RevFactor = Collapse(grid.RevFactor.Start)
		grid.NewFactor = Collapse(grid.NewFactor.Start)
	case newOppty > revOppty:
		grid.NewFactor = Collapse(grid.NewFactor.Start)
	case revOppty > newOppty:
		grid.RevFactor = Collapse(grid.RevFactor.Start)
	default:
		grid.NewFactor = Collapse(grid.NewFactor.Start)
		grid.RevFactor = Collapse(grid.RevFactor.Start)
	}

	return grid, nil
}

// evaluate прогоняет бэктест одной комбинации настроек.
// Порядок значений соответствует порядку измерений в Run.
func (s *SettingSearch) evaluate(ctx context.Context, _ int, values []float64) (*models.OptimizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := models.TradeParams{
		MaxTradingCoin: values[0],
		MinTradingCoin: s.cfg.MinTradingCoin,
		New:            models.DirectionParams{Threshold: values[1], Factor: values[3]},
		Rev:            models.DirectionParams{Threshold: values[2], Factor: values[4]},
	}

	start := s.cfg.Balances.Clone()
	engine := sim.NewBacktestEngine(s.cfg.Engine, start)
	summary, err := engine.Run(s.cfg.Stream.Market1, s.cfg.Stream.Market2, params)
	if err != nil {
		return nil, err
	}

	return &models.OptimizationResult{
		Metric:    summary.KRWEarned,
		Params:    params,
		Balances:  start,
		Invested:  start.TotalOf(models.AssetKRW),
		Exhausted: summary.KRWExhausted,
		Summary:   *summary,
	}, nil
}
