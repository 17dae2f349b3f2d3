package optimizer

import (
	"context"

	"arbsim/internal/history"
	"arbsim/internal/models"
	"arbsim/internal/sim"
	"arbsim/pkg/utils"
)

// ============================================================
// BalanceSearch - поиск распределения капитала
// ============================================================

// BalanceGrid - интервалы перебора стартовых балансов.
// Неиспользуемые стороны схлопываются через Collapse.
type BalanceGrid struct {
	Market1KRW  SearchParameter `json:"market1_krw"`
	Market1Coin SearchParameter `json:"market1_coin"`
	Market2KRW  SearchParameter `json:"market2_krw"`
	Market2Coin SearchParameter `json:"market2_coin"`
}

// Combinations возвращает размер полной сетки аллокаций первой глубины
func (g BalanceGrid) Combinations(division int) int {
	total := 1
	for _, p := range []SearchParameter{g.Market1KRW, g.Market1Coin, g.Market2KRW, g.Market2Coin} {
		total *= len(p.Generate(division).Seq)
	}
	return total
}

// BalanceSearchConfig - конфигурация поиска распределения капитала
type BalanceSearchConfig struct {
	Engine         sim.EngineConfig
	Stream         *history.PairedStream
	Settings       SettingGrid // вложенная сетка торговых настроек
	MinTradingCoin float64
	Division       int
	Depth          int
	Workers        int
	// Параметры вложенного поиска настроек внутри каждой аллокации
	SettingDivision int
	SettingDepth    int
	Progress        ProgressFunc
	Logger          *utils.Logger
}

// BalanceSearch перебирает распределения стартового капитала;
// каждая аллокация оценивается вложенным поиском настроек.
// Метрика - доходность (yield), при равенстве выигрывает
// меньший суммарный вложенный капитал.
type BalanceSearch struct {
	cfg  BalanceSearchConfig
	core Core
}

// NewBalanceSearch создаёт поиск распределения капитала
func NewBalanceSearch(cfg BalanceSearchConfig) *BalanceSearch {
	if cfg.Logger == nil {
		cfg.Logger = utils.L().WithComponent("balance-search")
	}
	return &BalanceSearch{
		cfg: cfg,
		core: Core{
			Division: cfg.Division,
			Depth:    cfg.Depth,
			Workers:  cfg.Workers,
			Secondary: func(r *models.OptimizationResult) float64 {
				return r.Invested
			},
			Progress: cfg.Progress,
			Logger:   cfg.Logger,
		},
	}
}

// Run выполняет полный поиск по сетке аллокаций
func (s *BalanceSearch) Run(ctx context.Context, grid BalanceGrid) (*models.OptimizationResult, error) {
	dims := []Dimension{
		{Name: "market1_krw", Param: grid.Market1KRW},
		{Name: "market1_coin", Param: grid.Market1Coin},
		{Name: "market2_krw", Param: grid.Market2KRW},
		{Name: "market2_coin", Param: grid.Market2Coin},
	}

	best, err := s.core.Run(ctx, dims, s.evaluate)
	if err != nil {
		return nil, err
	}

	SearchesFinished.WithLabelValues(models.SearchKindBalance).Inc()
	BestMetricSeen.WithLabelValues(models.SearchKindBalance).Set(best.Metric)
	return best, nil
}

// evaluate оценивает одну аллокацию капитала вложенным поиском
// настроек. Значения идут в порядке измерений Run.
func (s *BalanceSearch) evaluate(ctx context.Context, _ int, values []float64) (*models.OptimizationResult, error) {
	allocation := models.Balances{
		s.cfg.Engine.Market1.ID: {
			models.AssetKRW:    values[0],
			s.cfg.Engine.Asset: values[1],
		},
		s.cfg.Engine.Market2.ID: {
			models.AssetKRW:    values[2],
			s.cfg.Engine.Asset: values[3],
		},
	}

	// Внешний перебор уже распараллелен - вложенный поиск
	// идёт в один поток и молчит
	nested := NewSettingSearch(SettingSearchConfig{
		Engine:         s.cfg.Engine,
		Stream:         s.cfg.Stream,
		Balances:       allocation,
		MinTradingCoin: s.cfg.MinTradingCoin,
		Division:       s.cfg.SettingDivision,
		Depth:          s.cfg.SettingDepth,
		Workers:        1,
		Logger:         utils.Nop(),
	})

	best, err := nested.Run(ctx, s.cfg.Settings)
	if err != nil {
		return nil, err
	}

	best.Metric = best.Summary.Yield
	best.Balances = allocation
	best.Invested = allocation.TotalOf(models.AssetKRW)
	return best, nil
}
