package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/usecase"
)

type ProposalHandler struct {
	Proposals *usecase.GenerateProposalUseCase
	Logger    *zap.Logger
}

func NewProposalHandler(proposals *usecase.GenerateProposalUseCase, logger *zap.Logger) *ProposalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalHandler{Proposals: proposals, Logger: logger}
}

// Download streams the proposal PDF for GET /leads/{id}/proposal.pdf.
func (h *ProposalHandler) Download(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")

	pdf, err := h.Proposals.Execute(r.Context(), leadID)
	if err != nil {
		status := http.StatusInternalServerError
		if usecase.ErrorCode(err) == usecase.CodeLeadNotFound {
			status = http.StatusNotFound
		} else {
			h.Logger.Error("proposal download failed", zap.String("lead_id", leadID), zap.Error(err))
		}
		writeError(w, status, usecase.ErrorCode(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", usecase.ProposalContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, usecase.ProposalFilename))
	w.Header().Set("Content-Length", fmt.Sprint(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	if code == "" {
		code = "INTERNAL_SERVER_ERROR"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
