package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/qubic/go-producer-census/entities"
	"go.uber.org/zap"
)

type StatusProvider interface {
	Status() *entities.Report
}

type CheckpointReader interface {
	ListCheckpoints() ([]entities.Checkpoint, error)
	LoadCheckpoint(ledger string) (entities.Checkpoint, error)
}

type Handler struct {
	status      StatusProvider
	checkpoints CheckpointReader
	logger      *zap.SugaredLogger
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// CheckpointSummary is a checkpoint without its tally.
type CheckpointSummary struct {
	Ledger         string               `json:"ledger"`
	ScanID         string               `json:"scanId"`
	Cursor         entities.CursorState `json:"cursor"`
	Producers      int                  `json:"producers"`
	TotalBlocks    uint64               `json:"totalBlocks"`
	ProcessedUnits uint64               `json:"processedUnits"`
	FailedUnits    uint64               `json:"failedUnits"`
	Final          bool                 `json:"final"`
	Timestamp      time.Time            `json:"timestamp"`
}

func NewHandler(status StatusProvider, checkpoints CheckpointReader, logger *zap.SugaredLogger) *Handler {
	return &Handler{status: status, checkpoints: checkpoints, logger: logger}
}

func (h *Handler) Router() http.Handler {
	mux := httptreemux.NewContextMux()
	mux.GET("/health", h.GetHealth)
	mux.GET("/v1/status", h.GetStatus)
	mux.GET("/v1/checkpoints", h.GetCheckpoints)
	mux.GET("/v1/checkpoints/:ledger", h.GetCheckpoint)
	return mux
}

func (h *Handler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK, HealthResponse{Status: "UP"})
}

// GetStatus returns the live report of the running scan.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	report := h.status.Status()
	if report == nil {
		h.respond(w, http.StatusServiceUnavailable, ErrorResponse{Error: "no scan progress yet"})
		return
	}
	h.respond(w, http.StatusOK, report)
}

func (h *Handler) GetCheckpoints(w http.ResponseWriter, _ *http.Request) {
	checkpoints, err := h.checkpoints.ListCheckpoints()
	if err != nil {
		h.logger.Errorw("Listing checkpoints failed", "error", err)
		h.respond(w, http.StatusInternalServerError, ErrorResponse{Error: "listing checkpoints"})
		return
	}

	summaries := make([]CheckpointSummary, 0, len(checkpoints))
	for _, checkpoint := range checkpoints {
		summaries = append(summaries, summarize(checkpoint))
	}
	h.respond(w, http.StatusOK, summaries)
}

func (h *Handler) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	ledger := httptreemux.ContextParams(r.Context())["ledger"]

	checkpoint, err := h.checkpoints.LoadCheckpoint(ledger)
	switch {
	case errors.Is(err, entities.ErrStoreEntityNotFound):
		h.respond(w, http.StatusNotFound, ErrorResponse{Error: "no checkpoint for ledger " + ledger})
		return
	case errors.Is(err, entities.ErrCorruptCheckpoint):
		h.respond(w, http.StatusConflict, ErrorResponse{Error: "corrupt checkpoint for ledger " + ledger})
		return
	case err != nil:
		h.logger.Errorw("Loading checkpoint failed", "ledger", ledger, "error", err)
		h.respond(w, http.StatusInternalServerError, ErrorResponse{Error: "loading checkpoint"})
		return
	}
	h.respond(w, http.StatusOK, summarize(checkpoint))
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Warnw("Encoding response failed", "error", err)
	}
}

func summarize(checkpoint entities.Checkpoint) CheckpointSummary {
	return CheckpointSummary{
		Ledger:         checkpoint.Ledger,
		ScanID:         checkpoint.ScanID,
		Cursor:         checkpoint.Cursor,
		Producers:      len(checkpoint.Tally),
		TotalBlocks:    checkpoint.TotalBlocks,
		ProcessedUnits: checkpoint.ProcessedUnits,
		FailedUnits:    checkpoint.FailedUnits,
		Final:          checkpoint.Final,
		Timestamp:      checkpoint.Timestamp,
	}
}
