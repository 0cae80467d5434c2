package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"visa-onboarding-service/internal/auth"
	"visa-onboarding-service/internal/domain"
	"visa-onboarding-service/internal/visa"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	gateway        *visa.Gateway
	db             Pinger
	maxUploadBytes int64
	logger         *zap.Logger
	requestTimeout time.Duration
	uploadTimeout  time.Duration
}

type stepResponse struct {
	Step domain.Step `json:"step"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func NewHandler(gateway *visa.Gateway, db Pinger, maxUploadBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		gateway:        gateway,
		db:             db,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		requestTimeout: 5 * time.Second,
		uploadTimeout:  15 * time.Second,
	}
}

func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	caller := callerFrom(r)
	employeeID := caller.ID
	if id := r.URL.Query().Get("employee_id"); id != "" {
		employeeID = id
	}

	state, err := h.gateway.NextStep(ctx, caller, employeeID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.uploadTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart payload"})
		return
	}

	docType := r.FormValue("type")
	if docType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "type form field is required"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file form field is required"})
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file"})
		return
	}
	if int64(len(body)) > h.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "file exceeds size limit"})
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file is empty"})
		return
	}

	caller := callerFrom(r)
	step, err := h.gateway.Submit(ctx, caller, visa.SubmitInput{
		EmployeeID: caller.ID,
		Type:       domain.DocType(docType),
		Filename:   header.Filename,
		Content:    body,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stepResponse{Step: step})
}

func (h *Handler) DocumentURL(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	url, err := h.gateway.DocumentURL(ctx, callerFrom(r), documentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": documentID, "url": url})
}

func (h *Handler) PendingVisas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	items, err := h.gateway.ListPending(ctx, callerFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) AllVisas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	items, err := h.gateway.ListAll(ctx, callerFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ReviewDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	decision, err := domain.ParseReviewDecision(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	step, err := h.gateway.Review(ctx, callerFrom(r), documentID, decision)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Step: step})
}

func (h *Handler) AnnotateDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	step, err := h.gateway.Annotate(ctx, callerFrom(r), documentID, req.Feedback)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Step: step})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]any{"error": errorMessage(status, err)})
}

// statusFor maps gateway errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrOutOfSequence),
		errors.Is(err, domain.ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidDocType),
		errors.Is(err, domain.ErrInvalidDecision):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStorageFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusBadGateway:
		return "document storage unavailable"
	case http.StatusGatewayTimeout:
		return "request timed out"
	default:
		return err.Error()
	}
}

func callerFrom(r *http.Request) domain.Caller {
	caller, _ := auth.FromContext(r.Context())
	return caller
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
