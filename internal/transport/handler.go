// Package transport exposes the HTTP/JSON API.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/habitvault/habitvault-backend/internal/coordinator"
	"github.com/habitvault/habitvault-backend/internal/ledger"
	"github.com/habitvault/habitvault-backend/internal/model"
	"github.com/habitvault/habitvault-backend/internal/store"
)

// Handler serves the habit ledger API.
type Handler struct {
	logger    *zap.Logger
	records   Records
	submitter Submitter
	verifier  Verifier
	history   History
	status    Status
	health    Health
}

// NewHandler wires the API handler.
func NewHandler(
	logger *zap.Logger,
	records Records,
	submitter Submitter,
	verifier Verifier,
	history History,
	status Status,
	health Health,
) (*Handler, error) {
	if logger == nil {
		return nil, errors.New("transport: logger is required")
	}
	if records == nil || submitter == nil || verifier == nil {
		return nil, errors.New("transport: records, submitter and verifier are required")
	}
	if history == nil || status == nil || health == nil {
		return nil, errors.New("transport: history, status and health are required")
	}
	return &Handler{
		logger:    logger.Named("http"),
		records:   records,
		submitter: submitter,
		verifier:  verifier,
		history:   history,
		status:    status,
		health:    health,
	}, nil
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/records", h.listRecords)
	mux.HandleFunc("POST /api/records", h.createRecord)
	mux.HandleFunc("POST /api/records/{id}/verify", h.verifyRecord)
	mux.HandleFunc("POST /api/reload", h.reload)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("GET /api/history", h.listHistory)
	mux.HandleFunc("GET /api/status", h.currentStatus)
	mux.HandleFunc("GET /api/health", h.healthCheck)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	filter := model.Filter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}

	records := h.records.List(filter)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"total":   len(records),
	})
}

type createRecordRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Value    int64  `json:"value"`
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	id, err := h.submitter.Submit(r.Context(), coordinator.SubmitParams{
		Name:     req.Name,
		Category: req.Category,
		Value:    req.Value,
	})
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type verifyRecordResponse struct {
	Verified   bool    `json:"verified"`
	ClearValue *uint64 `json:"clearValue"`
}

func (h *Handler) verifyRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	clearValue, err := h.verifier.Verify(r.Context(), id)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	// clearValue is nil when another verifier committed first; the record
	// is verified either way.
	h.writeJSON(w, http.StatusOK, verifyRecordResponse{
		Verified:   true,
		ClearValue: clearValue,
	})
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Reload(r.Context()); err != nil {
		h.writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.records.Stats())
}

func (h *Handler) listHistory(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": h.history.List(),
	})
}

func (h *Handler) currentStatus(w http.ResponseWriter, _ *http.Request) {
	current, ok := h.status.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, current)
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	available, err := h.health.IsAvailable(r.Context())
	h.history.Record(r.Context(), "执行合约可用性检查")
	if err != nil || !available {
		if err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
		}
		h.status.Fail("合约不可用")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"available": false})
		return
	}
	h.status.Succeed("合约可用")
	h.writeJSON(w, http.StatusOK, map[string]bool{"available": true})
}

// writeFlowError maps the coordinator and ledger error taxonomy to HTTP.
func (h *Handler) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotConnected):
		h.writeError(w, http.StatusServiceUnavailable, "not_connected", "no signing account configured")
	case errors.Is(err, ledger.ErrUserRejected):
		h.writeError(w, http.StatusBadRequest, "user_rejected", "transaction rejected by user")
	case errors.Is(err, coordinator.ErrNegativeValue):
		h.writeError(w, http.StatusBadRequest, "negative_value", "value must not be negative")
	case errors.Is(err, coordinator.ErrEncryptionBusy):
		h.writeError(w, http.StatusConflict, "encryption_busy", "another encryption is in progress")
	case errors.Is(err, coordinator.ErrVerificationInFlight):
		h.writeError(w, http.StatusConflict, "verification_in_flight", "record verification already in progress")
	case errors.Is(err, coordinator.ErrEncryptionFailed),
		errors.Is(err, coordinator.ErrSubmissionFailed),
		errors.Is(err, coordinator.ErrVerificationFailed),
		errors.Is(err, store.ErrLoadFailed):
		h.logger.Error("operation failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "upstream_failure", err.Error())
	default:
		h.logger.Error("unexpected error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, code int, errCode, message string) {
	h.writeJSON(w, code, errorResponse{Code: errCode, Error: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response not encoded", zap.Error(err))
	}
}
