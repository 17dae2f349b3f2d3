package optimizer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"arbsim/internal/models"
	"arbsim/pkg/utils"
)

// ErrEmptyResultSet - ни одна комбинация глубины не дала результата.
// Фатально: молчаливый дефолт исказил бы рекурсию пересчёта центра.
var ErrEmptyResultSet = errors.New("search produced an empty result set")

// Dimension - одно измерение пространства поиска
type Dimension struct {
	Name  string
	Param SearchParameter
}

// EvalFunc оценивает одну комбинацию значений измерений.
// Вызывается из воркеров; обязана быть чистой по отношению
// к разделяемым данным.
type EvalFunc func(ctx context.Context, index int, values []float64) (*models.OptimizationResult, error)

// ProgressEvent - снимок хода поиска для логов и подписчиков
type ProgressEvent struct {
	Depth      int     `json:"depth"`
	Evaluated  int     `json:"evaluated"`
	Total      int     `json:"total"`
	BestMetric float64 `json:"best_metric"`
}

// ProgressFunc получает события хода поиска
type ProgressFunc func(ProgressEvent)

// candidate - результат одной комбинации с её позицией в сетке.
// Индекс фиксирует детерминированный порядок выбора при равенстве.
type candidate struct {
	index  int
	values []float64
	result *models.OptimizationResult
}

// Core - четырёхфазное иерархическое ядро поиска
//
// Одна и та же механика обслуживает все варианты: перебор торговых
// настроек, распределения капитала и композицию по окнам. Варианты
// различаются измерениями, функцией оценки и вторичным ключом.
type Core struct {
	Division  int                                      // число шагов сетки на интервал
	Depth     int                                      // число итераций пересчёта центра
	Workers   int                                      // размер пула воркеров (0 - NumCPU)
	Secondary func(*models.OptimizationResult) float64 // ключ минимизации при равенстве метрик
	Progress  ProgressFunc
	Logger    *utils.Logger
}

// Combinations возвращает полное число комбинаций сетки.
// Считается и публикуется до запуска фазы перебора.
func Combinations(dims []Dimension) int {
	total := 1
	for _, d := range dims {
		total *= len(d.Param.Seq)
	}
	return total
}

// Run выполняет полный иерархический поиск по измерениям.
// Возвращает лучший результат, встреченный на ЛЮБОЙ глубине:
// более узкие поздние глубины не обязаны доминировать над ранними.
func (c *Core) Run(ctx context.Context, dims []Dimension, eval EvalFunc) (*models.OptimizationResult, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions to search", ErrEmptyResultSet)
	}

	logger := c.Logger
	if logger == nil {
		logger = utils.L()
	}

	var globalBest *candidate

	for depth := c.Depth; depth >= 0; depth-- {
		// Фаза 1: генерация сеток
		for i := range dims {
			dims[i].Param = dims[i].Param.Generate(c.Division)
		}
		total := Combinations(dims)
		logger.Info("search depth started",
			utils.Depth(depth),
			utils.Combinations(total),
		)

		// Фаза 2: исчерпывающий перебор декартова произведения
		candidates, err := c.evaluateGrid(ctx, dims, total, depth, eval)
		if err != nil {
			return nil, err
		}

		// Фаза 3: выбор максимума метрики с детерминированным
		// разрешением равенств
		best, err := c.selectBest(candidates)
		if err != nil {
			return nil, fmt.Errorf("depth %d: %w", depth, err)
		}
		if globalBest == nil || c.better(best, globalBest) {
			globalBest = best
		}

		logger.Info("search depth finished",
			utils.Depth(depth),
			utils.Metric(best.result.Metric),
		)

		if depth == 0 {
			break
		}

		// Фаза 4: пересчёт центра вокруг лучшего значения глубины
		for i := range dims {
			dims[i].Param = dims[i].Param.Recenter(best.values[i], c.Division)
		}
	}

	return globalBest.result, nil
}

// evaluateGrid прогоняет все комбинации сетки через пул воркеров
func (c *Core) evaluateGrid(ctx context.Context, dims []Dimension, total, depth int, eval EvalFunc) ([]candidate, error) {
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > total {
		workers = total
	}

	jobs := make(chan int, workers)
	results := make(chan candidate, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				values := decodeIndex(dims, idx)
				r, err := eval(ctx, idx, values)
				if err != nil {
					// невычислимая комбинация выпадает из выбора
					if c.Logger != nil {
						c.Logger.Warn("combination failed",
							utils.Int("index", idx),
							utils.Err(err),
						)
					}
					CombinationsFailed.Inc()
					continue
				}
				CombinationsEvaluated.Inc()
				results <- candidate{index: idx, values: values, result: r}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < total; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	candidates := make([]candidate, 0, total)
	evaluated := 0
	var bestMetric float64
	for cand := range results {
		evaluated++
		if len(candidates) == 0 || cand.result.Metric > bestMetric {
			bestMetric = cand.result.Metric
		}
		candidates = append(candidates, cand)
		if c.Progress != nil {
			c.Progress(ProgressEvent{
				Depth:      depth,
				Evaluated:  evaluated,
				Total:      total,
				BestMetric: bestMetric,
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// selectBest выбирает лучший результат глубины: максимум метрики,
// при равенстве - минимум вторичного ключа, затем первая по порядку
// сетки комбинация
func (c *Core) selectBest(candidates []candidate) (*candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyResultSet
	}

	// воркеры отдают результаты в произвольном порядке
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].index < candidates[j].index
	})

	best := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		if c.better(&candidates[i], best) {
			best = &candidates[i]
		}
	}
	return best, nil
}

// better сравнивает кандидатов: строго большая метрика побеждает,
// при точном равенстве выигрывает меньший вторичный ключ
func (c *Core) better(a, b *candidate) bool {
	if a.result.Metric != b.result.Metric {
		return a.result.Metric > b.result.Metric
	}
	if c.Secondary == nil {
		return false
	}
	return c.Secondary(a.result) < c.Secondary(b.result)
}

// decodeIndex разворачивает плоский индекс комбинации в значения
// измерений (смешанная система счисления по длинам сеток)
func decodeIndex(dims []Dimension, index int) []float64 {
	values := make([]float64, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		n := len(dims[i].Param.Seq)
		values[i] = dims[i].Param.Seq[index%n]
		index /= n
	}
	return values
}
