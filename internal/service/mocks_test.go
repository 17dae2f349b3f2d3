package service

import (
	"time"

	"arbsim/internal/models"
	"arbsim/internal/optimizer"
	"arbsim/internal/repository"
)

// ============ Mock RunRepository ============

type MockRunRepository struct {
	runs      map[int]*models.BacktestRun
	order     []int // порядок создания, новые в конце
	createErr error
	getErr    error
	deleteErr error
	nextID    int
}

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{
		runs:   make(map[int]*models.BacktestRun),
		nextID: 1,
	}
}

func (m *MockRunRepository) Create(run *models.BacktestRun) error {
	if m.createErr != nil {
		return m.createErr
	}
	run.ID = m.nextID
	m.nextID++
	run.CreatedAt = time.Now()
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return nil
}

func (m *MockRunRepository) GetByID(id int) (*models.BacktestRun, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if run, exists := m.runs[id]; exists {
		return run, nil
	}
	return nil, repository.ErrRunNotFound
}

func (m *MockRunRepository) List(limit, offset int) ([]*models.BacktestRun, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.BacktestRun
	for i := len(m.order) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.runs[m.order[i]])
	}
	return result, nil
}

func (m *MockRunRepository) Delete(id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.runs[id]; !exists {
		return repository.ErrRunNotFound
	}
	delete(m.runs, id)
	return nil
}

// ============ Mock ResultRepository ============

type MockResultRepository struct {
	records   map[int]*models.OptimizationRecord
	order     []int
	createErr error
	getErr    error
	nextID    int
}

func NewMockResultRepository() *MockResultRepository {
	return &MockResultRepository{
		records: make(map[int]*models.OptimizationRecord),
		nextID:  1,
	}
}

func (m *MockResultRepository) Create(rec *models.OptimizationRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	rec.ID = m.nextID
	m.nextID++
	rec.CreatedAt = time.Now()
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *MockResultRepository) GetByID(id int) (*models.OptimizationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if rec, exists := m.records[id]; exists {
		return rec, nil
	}
	return nil, repository.ErrResultNotFound
}

func (m *MockResultRepository) ListByKind(kind string, limit, offset int) ([]*models.OptimizationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.OptimizationRecord
	skipped := 0
	for i := len(m.order) - 1; i >= 0 && len(result) < limit; i-- {
		rec := m.records[m.order[i]]
		if rec.Kind != kind {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (m *MockResultRepository) Best(kind, asset string) (*models.OptimizationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var best *models.OptimizationRecord
	for _, id := range m.order {
		rec := m.records[id]
		if rec.Kind != kind || rec.Asset != asset {
			continue
		}
		if best == nil || rec.Metric > best.Metric {
			best = rec
		}
	}
	if best == nil {
		return nil, repository.ErrResultNotFound
	}
	return best, nil
}

// ============ Mock ProgressBroadcaster ============

type progressCall struct {
	kind  string
	event optimizer.ProgressEvent
}

type MockBroadcaster struct {
	progress  []progressCall
	finished  []*models.OptimizationRecord
	backtests []*models.BacktestRun
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) SearchProgress(kind string, event optimizer.ProgressEvent) {
	m.progress = append(m.progress, progressCall{kind: kind, event: event})
}

func (m *MockBroadcaster) SearchFinished(kind string, rec *models.OptimizationRecord) {
	m.finished = append(m.finished, rec)
}

func (m *MockBroadcaster) BacktestFinished(run *models.BacktestRun) {
	m.backtests = append(m.backtests, run)
}
