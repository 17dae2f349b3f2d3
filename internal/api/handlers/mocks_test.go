package handlers

import (
	"context"

	"arbsim/internal/models"
	"arbsim/internal/repository"
	"arbsim/internal/service"
)

// ============ Mock BacktestService ============

type MockBacktestService struct {
	runs    map[int]*models.BacktestRun
	lastReq *service.BacktestRequest
	runErr  error
	getErr  error
	nextID  int
}

func NewMockBacktestService() *MockBacktestService {
	return &MockBacktestService{
		runs:   make(map[int]*models.BacktestRun),
		nextID: 1,
	}
}

func (m *MockBacktestService) Run(_ context.Context, req *service.BacktestRequest) (*service.BacktestResponse, error) {
	m.lastReq = req
	if m.runErr != nil {
		return nil, m.runErr
	}
	run := &models.BacktestRun{
		ID:        m.nextID,
		Asset:     req.Asset,
		Market1:   req.Market1.ID,
		Market2:   req.Market2.ID,
		Ticks:     len(req.Market1Data),
		KRWEarned: 30,
		Yield:     0.003,
	}
	m.nextID++
	m.runs[run.ID] = run
	return &service.BacktestResponse{
		Run:     run,
		Summary: &models.BacktestSummary{Ticks: run.Ticks, KRWEarned: run.KRWEarned, Yield: run.Yield},
	}, nil
}

func (m *MockBacktestService) GetRun(id int) (*models.BacktestRun, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if run, exists := m.runs[id]; exists {
		return run, nil
	}
	return nil, repository.ErrRunNotFound
}

func (m *MockBacktestService) ListRuns(limit, offset int) ([]*models.BacktestRun, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.BacktestRun, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run)
	}
	return result, nil
}

func (m *MockBacktestService) DeleteRun(id int) error {
	if _, exists := m.runs[id]; !exists {
		return repository.ErrRunNotFound
	}
	delete(m.runs, id)
	return nil
}

// ============ Mock OptimizerService ============

type MockOptimizerService struct {
	records   map[int]*models.OptimizationRecord
	lastKind  string
	searchErr error
	getErr    error
	nextID    int
}

func NewMockOptimizerService() *MockOptimizerService {
	return &MockOptimizerService{
		records: make(map[int]*models.OptimizationRecord),
		nextID:  1,
	}
}

func (m *MockOptimizerService) record(kind, asset string) (*service.OptimizationResponse, error) {
	m.lastKind = kind
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	rec := &models.OptimizationRecord{
		ID:           m.nextID,
		Kind:         kind,
		Asset:        asset,
		Metric:       1500,
		Combinations: 243,
	}
	m.nextID++
	m.records[rec.ID] = rec
	return &service.OptimizationResponse{
		Record: rec,
		Result: &models.OptimizationResult{Metric: rec.Metric},
	}, nil
}

func (m *MockOptimizerService) RunSettingSearch(_ context.Context, req *service.SettingSearchRequest) (*service.OptimizationResponse, error) {
	return m.record(models.SearchKindSetting, req.Asset)
}

func (m *MockOptimizerService) RunBalanceSearch(_ context.Context, req *service.BalanceSearchRequest) (*service.OptimizationResponse, error) {
	return m.record(models.SearchKindBalance, req.Asset)
}

func (m *MockOptimizerService) RunWindowSearch(_ context.Context, req *service.WindowSearchRequest) (*service.OptimizationResponse, error) {
	return m.record(models.SearchKindWindow, req.Asset)
}

func (m *MockOptimizerService) GetResult(id int) (*models.OptimizationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if rec, exists := m.records[id]; exists {
		return rec, nil
	}
	return nil, repository.ErrResultNotFound
}

func (m *MockOptimizerService) ListResults(kind string, limit, offset int) ([]*models.OptimizationRecord, error) {
	if kind != models.SearchKindSetting && kind != models.SearchKindBalance && kind != models.SearchKindWindow {
		return nil, service.ErrInvalidSearchRequest
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.OptimizationRecord
	for _, rec := range m.records {
		if rec.Kind == kind {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *MockOptimizerService) BestResult(kind, asset string) (*models.OptimizationRecord, error) {
	if asset == "" {
		return nil, service.ErrInvalidSearchRequest
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	var best *models.OptimizationRecord
	for _, rec := range m.records {
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
