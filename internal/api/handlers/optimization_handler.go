package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"arbsim/internal/history"
	"arbsim/internal/optimizer"
	"arbsim/internal/repository"
	"arbsim/internal/service"
)

// OptimizationHandler отвечает за поиск торговых параметров
//
// Endpoints:
// - POST /api/v1/search/setting - поиск торговых настроек
// - POST /api/v1/search/balance - поиск распределения капитала
// - POST /api/v1/search/window - составной поиск по окнам возможностей
// - GET /api/v1/search/results - результаты одного вида поиска
// - GET /api/v1/search/results/best - лучшая запись вида и актива
// - GET /api/v1/search/results/{id} - одна запись
//
// Назначение:
// Принимает исторические потоки, интервалы перебора и разрешение
// сетки, запускает иерархический поиск и возвращает лучшую комбинацию
// вместе с сохранённой записью. Ход поиска транслируется подписчикам
// через WebSocket.
type OptimizationHandler struct {
	optimizerService service.OptimizerServiceInterface
}

// NewOptimizationHandler создает новый OptimizationHandler с внедрением зависимости
func NewOptimizationHandler(optimizerService service.OptimizerServiceInterface) *OptimizationHandler {
	return &OptimizationHandler{
		optimizerService: optimizerService,
	}
}

// RunSettingSearch запускает поиск торговых настроек
//
// POST /api/v1/search/setting
//
// Body: service.SettingSearchRequest
//
// HTTP коды:
// - 201 Created: поиск завершён, лучшая комбинация сохранена
// - 400 Bad Request: невалидный запрос или рассинхронизированные потоки
// - 422 Unprocessable Entity: ни одна комбинация не дала результата
// - 500 Internal Server Error: ошибка поиска или сохранения
func (h *OptimizationHandler) RunSettingSearch(w http.ResponseWriter, r *http.Request) {
	var req service.SettingSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.optimizerService.RunSettingSearch(r.Context(), &req)
	if err != nil {
		h.respondSearchError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

// RunBalanceSearch запускает поиск распределения капитала
//
// POST /api/v1/search/balance
//
// Body: service.BalanceSearchRequest
func (h *OptimizationHandler) RunBalanceSearch(w http.ResponseWriter, r *http.Request) {
	var req service.BalanceSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.optimizerService.RunBalanceSearch(r.Context(), &req)
	if err != nil {
		h.respondSearchError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

// RunWindowSearch запускает составной поиск по окнам возможностей
//
// POST /api/v1/search/window
//
// Body: service.WindowSearchRequest. Пустой список окон означает
// автоопределение по переданной истории.
func (h *OptimizationHandler) RunWindowSearch(w http.ResponseWriter, r *http.Request) {
	var req service.WindowSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.optimizerService.RunWindowSearch(r.Context(), &req)
	if err != nil {
		h.respondSearchError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

// GetResults возвращает результаты одного вида поиска
//
// GET /api/v1/search/results
//
// Query параметры:
// - kind (string, обязателен): setting, balance или window
// - limit (int): количество записей (по умолчанию 50, максимум 500)
// - offset (int): смещение для пагинации
func (h *OptimizationHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	records, err := h.optimizerService.ListResults(kind, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSearchRequest) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to list results: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, records)
}

// GetBestResult возвращает запись с максимальной метрикой
//
// GET /api/v1/search/results/best
//
// Query параметры:
// - kind (string, обязателен): setting, balance или window
// - asset (string, обязателен): актив поиска
func (h *OptimizationHandler) GetBestResult(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	asset := r.URL.Query().Get("asset")

	rec, err := h.optimizerService.BestResult(kind, asset)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSearchRequest):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrResultNotFound):
			respondWithError(w, http.StatusNotFound, "No results for this kind and asset")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to get best result: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// GetResult возвращает одну сохранённую запись
//
// GET /api/v1/search/results/{id}
//
// HTTP коды:
// - 200 OK: запись найдена
// - 400 Bad Request: некорректный id
// - 404 Not Found: записи с таким id нет
func (h *OptimizationHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid result id")
		return
	}

	rec, err := h.optimizerService.GetResult(id)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			respondWithError(w, http.StatusNotFound, "Result not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get result: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// respondSearchError преобразует ошибку поиска в HTTP код
func (h *OptimizationHandler) respondSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSearchRequest),
		errors.Is(err, history.ErrDataAlignment):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, optimizer.ErrEmptyResultSet):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Search failed: "+err.Error())
	}
}
