package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"
	"real-estate-search-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

// SearchHandler обслуживает поиск и выдачу сохраненных отчетов
type SearchHandler struct {
	searchUC  usecases_port.SearchRealEstateUseCase
	publishUC usecases_port.PublishSearchResultUseCase
	reports   port.ReportReaderPort
}

// NewSearchHandler - конструктор. reports может быть nil, если хранилище отчетов не настроено.
func NewSearchHandler(
	searchUC usecases_port.SearchRealEstateUseCase,
	publishUC usecases_port.PublishSearchResultUseCase,
	reports port.ReportReaderPort,
) *SearchHandler {
	return &SearchHandler{
		searchUC:  searchUC,
		publishUC: publishUC,
		reports:   reports,
	}
}

// Search обрабатывает POST /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "Search"})

	var reqDTO SearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		logger.Warn("Failed to decode search request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req, err := reqDTO.ToDomain()
	if err != nil {
		logger.Warn("Invalid search request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("Processing search request", port.Fields{"query": req.Query})

	state, searchErr := h.searchUC.Execute(r.Context(), req)
	if state == nil {
		logger.Error("Search use case failed without a result", searchErr, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	if h.publishUC != nil {
		// Публикация не зависит от того, дождался ли клиент ответа
		publishCtx := context.WithoutCancel(r.Context())
		if err := h.publishUC.Execute(publishCtx, state); err != nil {
			logger.Error("Failed to publish search result", err, port.Fields{"run_id": state.RunID})
		}
	}

	status := statusForSearchError(searchErr)
	if searchErr != nil {
		logger.Warn("Search aborted", port.Fields{"run_id": state.RunID, "reason": state.Error, "status_code": status})
	} else {
		logger.Info("Search completed", port.Fields{"run_id": state.RunID, "listings": len(state.Listings)})
	}
	RespondWithJSON(w, status, state)
}

// GetReport обрабатывает GET /api/v1/reports/{key}
func (h *SearchHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetReport"})

	if h.reports == nil {
		WriteJSONError(w, http.StatusNotFound, "Report storage is not configured")
		return
	}

	key := chi.URLParam(r, "key")
	content, err := h.reports.GetReport(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Report not found")
			return
		}
		logger.Error("Failed to load report", err, port.Fields{"report_key": key})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// Health обрабатывает GET /api/v1/health
func (h *SearchHandler) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func statusForSearchError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	reason, ok := domain.AbortReason(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch reason {
	case domain.ReasonInvalidQuery, domain.ReasonNoZipCodes:
		return http.StatusUnprocessableEntity
	case domain.ReasonFetchListings:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
