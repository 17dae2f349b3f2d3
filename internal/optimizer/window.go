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
// WindowSearch - составной поиск по окнам возможностей
// ============================================================

// WindowOutcome - итог поиска внутри одного окна
type WindowOutcome struct {
	Window history.Window             `json:"window"`
	Result *models.OptimizationResult `json:"result"`
}

// WindowSearchConfig - конфигурация составного поиска
type WindowSearchConfig struct {
	Engine         sim.EngineConfig
	Stream         *history.PairedStream
	Windows        []history.Window
	Balances       models.Balances // капитал перед первым окном
	Settings       SettingGrid
	MinTradingCoin float64
	Division       int
	Depth          int
	Workers        int
	Progress       ProgressFunc
	Logger         *utils.Logger
}

// WindowSearch запускает полный поиск настроек независимо внутри
// каждого окна возможностей. Капитал переносится: следующее окно
// стартует с балансов, оставшихся после лучшего прогона предыдущего.
// Метрика - доходность окна, при равенстве выигрывает меньший
// фактически израсходованный капитал; дальше - более раннее окно.
type WindowSearch struct {
	cfg WindowSearchConfig
}

// NewWindowSearch создаёт составной поиск по окнам
func NewWindowSearch(cfg WindowSearchConfig) *WindowSearch {
	if cfg.Logger == nil {
		cfg.Logger = utils.L().WithComponent("window-search")
	}
	return &WindowSearch{cfg: cfg}
}

// Run выполняет поиск в каждом окне и выбирает общий ответ
func (s *WindowSearch) Run(ctx context.Context) (*models.OptimizationResult, []WindowOutcome, error) {
	if len(s.cfg.Windows) == 0 {
		return nil, nil, fmt.Errorf("%w: no opportunity windows", ErrEmptyResultSet)
	}

	balances := s.cfg.Balances.Clone()
	outcomes := make([]WindowOutcome, 0, len(s.cfg.Windows))
	var best *models.OptimizationResult

	for _, w := range s.cfg.Windows {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		sub := s.cfg.Stream.Slice(w)
		if sub.Len() == 0 {
			s.cfg.Logger.Warn("window has no snapshots, skipping",
				utils.Int64("from", w.From),
				utils.Int64("to", w.To),
			)
			continue
		}

		search := NewSettingSearch(SettingSearchConfig{
			Engine:         s.cfg.Engine,
			Stream:         sub,
			Balances:       balances,
			MinTradingCoin: s.cfg.MinTradingCoin,
			Division:       s.cfg.Division,
			Depth:          s.cfg.Depth,
			Workers:        s.cfg.Workers,
			Progress:       s.cfg.Progress,
			Logger:         s.cfg.Logger,
		})

		result, err := search.Run(ctx, s.cfg.Settings)
		if err != nil {
			return nil, nil, fmt.Errorf("window [%d, %d]: %w", w.From, w.To, err)
		}
		result.Metric = result.Summary.Yield

		outcomes = append(outcomes, WindowOutcome{Window: w, Result: result})
		s.cfg.Logger.Info("window search finished",
			utils.Int64("from", w.From),
			utils.Int64("to", w.To),
			utils.Metric(result.Metric),
		)

		// Перенос капитала: следующее окно живёт на остатках лучшего
		// прогона этого окна
		balances = result.Summary.EndBalances.Clone()

		if best == nil || windowBetter(result, best) {
			best = result
		}
	}

	if best == nil {
		return nil, nil, fmt.Errorf("%w: every window was empty", ErrEmptyResultSet)
	}

	SearchesFinished.WithLabelValues(models.SearchKindWindow).Inc()
	BestMetricSeen.WithLabelValues(models.SearchKindWindow).Set(best.Metric)
	return best, outcomes, nil
}

// windowBetter сравнивает итоги окон: строго большая метрика,
// при равенстве - меньший израсходованный капитал
func windowBetter(a, b *models.OptimizationResult) bool {
	if a.Metric != b.Metric {
		return a.Metric > b.Metric
	}
	return a.Exhausted < b.Exhausted
}
