package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/api/shared"
	"github.com/taskwell/taskwell-api/internal/domain"
	"github.com/taskwell/taskwell-api/internal/platform/logger"
	"github.com/taskwell/taskwell-api/internal/service"
	"github.com/taskwell/taskwell-api/internal/store"
)

// HistoryHandler handles audit-log HTTP requests.
type HistoryHandler struct {
	historyService service.HistoryService
	logger         *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService service.HistoryService, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for HistoryHandler")
	}

	return &HistoryHandler{
		historyService: historyService,
		logger:         logger.With(slog.String("component", "history_handler")),
	}
}

// ListHistory handles GET /history requests. Supported query parameters:
// action_type, from, to (RFC 3339), q (title substring), page, page_size.
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	filter, err := historyFilterFromQuery(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 50)

	entries, total, err := h.historyService.Query(r.Context(), ownerID, filter, page, pageSize)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to query history", err)
		return
	}

	resp := HistoryListResponse{
		Entries:  make([]HistoryEntryResponse, 0, len(entries)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, historyEntryToResponse(entry))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetHistoryEntry handles GET /history/{id} requests.
func (h *HistoryHandler) GetHistoryEntry(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	entryID, ok := requireEntryID(w, r, log)
	if !ok {
		return
	}

	entry, err := h.historyService.Get(r.Context(), ownerID, entryID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, historyEntryToResponse(entry))
}

// RestoreTask handles POST /history/{id}/restore requests.
func (h *HistoryHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, ok := requireOwner(w, r, log)
	if !ok {
		return
	}

	entryID, ok := requireEntryID(w, r, log)
	if !ok {
		return
	}

	task, err := h.historyService.Restore(r.Context(), ownerID, entryID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("restored task via API",
		slog.String("owner_id", ownerID.String()),
		slog.String("entry_id", entryID.String()),
		slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// historyFilterFromQuery builds a store.HistoryFilter from query
// parameters, rejecting malformed values.
func historyFilterFromQuery(r *http.Request) (store.HistoryFilter, error) {
	var filter store.HistoryFilter

	if raw := r.URL.Query().Get("action_type"); raw != "" {
		action := domain.ActionType(raw)
		if !action.Valid() {
			return filter, errBadQueryParam("action_type")
		}
		filter.ActionType = action
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errBadQueryParam("from")
		}
		filter.From = from
	}

	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errBadQueryParam("to")
		}
		filter.To = to
	}

	filter.TitleSearch = r.URL.Query().Get("q")
	return filter, nil
}

type badQueryParamError string

func errBadQueryParam(name string) error { return badQueryParamError(name) }

func (e badQueryParamError) Error() string {
	return "Invalid query parameter: " + string(e)
}

// requireEntryID parses the {id} path parameter as a UUID.
func requireEntryID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	pathID := chi.URLParam(r, "id")
	if pathID == "" {
		log.Warn("history entry ID not found in URL path")
		shared.RespondWithError(w, r, http.StatusBadRequest, "History entry ID is required")
		return uuid.Nil, false
	}

	entryID, err := uuid.Parse(pathID)
	if err != nil {
		log.Warn("invalid history entry ID format", slog.String("entry_id", pathID))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid history entry ID format")
		return uuid.Nil, false
	}
	return entryID, true
}
