package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/entity"
	"github.com/xavierca1/leadflow/internal/infra/http/middleware"
	"github.com/xavierca1/leadflow/internal/usecase"
)

const InvalidJSONMessage = "Invalid JSON payload."

type LeadSubmitter interface {
	Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error)
}

type LeadHandler struct {
	SubmitLeadUC LeadSubmitter
	Logger       *zap.Logger
}

func NewLeadHandler(uc LeadSubmitter, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{SubmitLeadUC: uc, Logger: logger}
}

type SubmitLeadRequest struct {
	Phone string `json:"phone"`
}

// Submit handles POST /api/leads/. It answers 202 as soon as the task is
// handed to the queue; the worker decides whether the lead is new.
func (h *LeadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSubmitRequest(r.Body)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, InvalidJSONMessage)
		return
	}

	output, err := h.SubmitLeadUC.Execute(r.Context(), usecase.SubmitLeadInput{
		Phone:    req.Phone,
		Metadata: requestMetadata(r),
	})
	if err != nil {
		var de *usecase.DomainError
		if errors.As(err, &de) {
			writeErrorResponse(w, http.StatusBadRequest, de.Message)
			return
		}
		h.Logger.Error("lead submission failed", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusAccepted, output)
}

// decodeSubmitRequest treats an empty body as {}.
func decodeSubmitRequest(body io.Reader) (SubmitLeadRequest, error) {
	var req SubmitLeadRequest
	if body == nil {
		return req, nil
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, nil
	}

	err = json.Unmarshal(raw, &req)
	return req, err
}

func requestMetadata(r *http.Request) entity.Metadata {
	return entity.Metadata{
		"ip":         middleware.ClientIP(r),
		"user_agent": r.UserAgent(),
		"path":       r.URL.Path,
		"method":     r.Method,
	}
}
