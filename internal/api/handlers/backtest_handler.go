package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"arbsim/internal/history"
	"arbsim/internal/repository"
	"arbsim/internal/service"
)

// BacktestHandler отвечает за одиночные прогоны бэктеста
//
// Endpoints:
// - POST /api/v1/backtests - запустить прогон на переданной истории
// - GET /api/v1/backtests - список сохранённых прогонов
// - GET /api/v1/backtests/{id} - один прогон
// - DELETE /api/v1/backtests/{id} - удалить прогон
//
// Назначение:
// Принимает пару исторических потоков стаканов и торговые параметры,
// прогоняет детерминированный реплей и возвращает итог вместе
// с сохранённой записью.
type BacktestHandler struct {
	backtestService service.BacktestServiceInterface
}

// NewBacktestHandler создает новый BacktestHandler с внедрением зависимости
func NewBacktestHandler(backtestService service.BacktestServiceInterface) *BacktestHandler {
	return &BacktestHandler{
		backtestService: backtestService,
	}
}

// RunBacktest запускает один прогон бэктеста
//
// POST /api/v1/backtests
//
// Body: service.BacktestRequest (актив, спецификации рынков, балансы,
// торговые параметры и два выровненных потока снимков стакана)
//
// HTTP коды:
// - 201 Created: прогон выполнен и сохранён
// - 400 Bad Request: невалидный запрос или рассинхронизированные потоки
// - 500 Internal Server Error: ошибка прогона или сохранения
func (h *BacktestHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	var req service.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.backtestService.Run(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidBacktestRequest),
			errors.Is(err, history.ErrDataAlignment):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Backtest failed: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

// GetBacktests возвращает сохранённые прогоны от новых к старым
//
// GET /api/v1/backtests
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 50, максимум 500)
// - offset (int): смещение для пагинации
func (h *BacktestHandler) GetBacktests(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	runs, err := h.backtestService.ListRuns(limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list backtests: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, runs)
}

// GetBacktest возвращает один сохранённый прогон
//
// GET /api/v1/backtests/{id}
//
// HTTP коды:
// - 200 OK: прогон найден
// - 400 Bad Request: некорректный id
// - 404 Not Found: прогона с таким id нет
func (h *BacktestHandler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid backtest id")
		return
	}

	run, err := h.backtestService.GetRun(id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			respondWithError(w, http.StatusNotFound, "Backtest not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get backtest: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, run)
}

// DeleteBacktest удаляет сохранённый прогон
//
// DELETE /api/v1/backtests/{id}
//
// HTTP коды:
// - 204 No Content: прогон удалён
// - 400 Bad Request: некорректный id
// - 404 Not Found: прогона с таким id нет
func (h *BacktestHandler) DeleteBacktest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid backtest id")
		return
	}

	if err := h.backtestService.DeleteRun(id); err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			respondWithError(w, http.StatusNotFound, "Backtest not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to delete backtest: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
