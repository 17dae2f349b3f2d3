package service

import (
	"context"

	"arbsim/internal/models"
	"arbsim/internal/optimizer"
	"arbsim/internal/repository"
)

// RunRepositoryInterface определяет интерфейс репозитория прогонов
type RunRepositoryInterface interface {
	Create(run *models.BacktestRun) error
	GetByID(id int) (*models.BacktestRun, error)
	List(limit, offset int) ([]*models.BacktestRun, error)
	Delete(id int) error
}

// ResultRepositoryInterface определяет интерфейс репозитория результатов
type ResultRepositoryInterface interface {
	Create(rec *models.OptimizationRecord) error
	GetByID(id int) (*models.OptimizationRecord, error)
	ListByKind(kind string, limit, offset int) ([]*models.OptimizationRecord, error)
	Best(kind, asset string) (*models.OptimizationRecord, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ RunRepositoryInterface = (*repository.RunRepository)(nil)
var _ ResultRepositoryInterface = (*repository.ResultRepository)(nil)

// ProgressBroadcaster рассылает ход и итоги поисков подписчикам.
// Реализуется websocket-хабом; сервисам достаточно интерфейса.
type ProgressBroadcaster interface {
	SearchProgress(kind string, event optimizer.ProgressEvent)
	SearchFinished(kind string, rec *models.OptimizationRecord)
	BacktestFinished(run *models.BacktestRun)
}

// ============ Интерфейсы сервисов для Dependency Injection ============

// BacktestServiceInterface определяет интерфейс сервиса бэктестов
type BacktestServiceInterface interface {
	Run(ctx context.Context, req *BacktestRequest) (*BacktestResponse, error)
	GetRun(id int) (*models.BacktestRun, error)
	ListRuns(limit, offset int) ([]*models.BacktestRun, error)
	DeleteRun(id int) error
}

// OptimizerServiceInterface определяет интерфейс сервиса оптимизации
type OptimizerServiceInterface interface {
	RunSettingSearch(ctx context.Context, req *SettingSearchRequest) (*OptimizationResponse, error)
	RunBalanceSearch(ctx context.Context, req *BalanceSearchRequest) (*OptimizationResponse, error)
	RunWindowSearch(ctx context.Context, req *WindowSearchRequest) (*OptimizationResponse, error)
	GetResult(id int) (*models.OptimizationRecord, error)
	ListResults(kind string, limit, offset int) ([]*models.OptimizationRecord, error)
	BestResult(kind, asset string) (*models.OptimizationRecord, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ BacktestServiceInterface = (*BacktestService)(nil)
var _ OptimizerServiceInterface = (*OptimizerService)(nil)
