package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AKAPP611/al-jameel-mes/internal/platform/httpx"
)

// ReportEncoder renders a Report in one download format.
type ReportEncoder interface {
	Format() string
	ContentType() string
	Encode(w io.Writer, report Report) error
}

// Handler exposes the repository over JSON HTTP.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	factories []string
	encoders  map[string]ReportEncoder
}

// NewHandler constructs the inventory handler. factories is the default list for the
// consolidated report.
func NewHandler(logger *slog.Logger, repo *Repository, factories []string, encoders ...ReportEncoder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, repo: repo, factories: factories, encoders: make(map[string]ReportEncoder)}
	for _, enc := range encoders {
		h.encoders[enc.Format()] = enc
	}
	return h
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/factories/{factoryID}/state", h.handleGetState)
	r.Put("/factories/{factoryID}/state", h.handleSetState)
	r.Delete("/factories/{factoryID}/state", h.handleClear)
	r.Post("/factories/{factoryID}/seed", h.handleSeed)
	r.Get("/factories/{factoryID}/events", h.handleEvents)

	r.Post("/factories/{factoryID}/items", h.handleAddItem)
	r.Patch("/factories/{factoryID}/items/{ref}", h.handleUpdateItem)
	r.Put("/factories/{factoryID}/inventory/{sku}", h.handleUpdateInventory)
	r.Post("/factories/{factoryID}/movements", h.handleAddMovement)

	r.Post("/factories/{factoryID}/stock/add", h.handleAddStock)
	r.Post("/factories/{factoryID}/stock/remove", h.handleRemoveStock)
	r.Post("/factories/{factoryID}/stock/transfer", h.handleTransfer)

	r.Get("/factories/{factoryID}/low-stock", h.handleLowStock)
	r.Get("/factories/{factoryID}/report", h.handleReport)
	r.Get("/reports/consolidated", h.handleConsolidated)
}

type stockRequest struct {
	SKU      string  `json:"sku"`
	Quantity float64 `json:"quantity"`
	Reason   string  `json:"reason"`
}

type transferRequest struct {
	SKU          string  `json:"sku"`
	Quantity     float64 `json:"quantity"`
	FromLocation string  `json:"fromLocation"`
	ToLocation   string  `json:"toLocation"`
	Reason       string  `json:"reason"`
}

func factoryParam(r *http.Request) string {
	return chi.URLParam(r, "factoryID")
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.GetState(r.Context(), factoryParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleSetState(w http.ResponseWriter, r *http.Request) {
	var doc StateDocument
	if err := httpx.DecodeJSON(r, &doc); err != nil {
		h.fail(w, r, err)
		return
	}
	stored, err := h.repo.SetState(r.Context(), factoryParam(r), doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stored)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.ClearFactory(r.Context(), factoryParam(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.LoadSeedIfEmpty(r.Context(), factoryParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// handleEvents streams every committed document as a server-sent event.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusNotImplemented, "Streaming Unsupported", "")
		return
	}
	factoryID := factoryParam(r)
	current, err := h.repo.GetState(r.Context(), factoryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updates := make(chan StateDocument, 8)
	unsubscribe := h.repo.Subscribe(factoryID, func(doc StateDocument) {
		select {
		case updates <- doc:
		default:
			h.logger.Warn("event stream lagging, update dropped", slog.String("factory_id", factoryID))
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, current); err != nil {
		return
	}
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case doc := <-updates:
			if err := writeEvent(w, doc); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, doc StateDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", payload)
	return err
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var input NewItem
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.repo.AddItem(r.Context(), factoryParam(r), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var upd ItemUpdate
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.repo.UpdateItem(r.Context(), factoryParam(r), chi.URLParam(r, "ref"), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var upd InventoryUpdate
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.repo.UpdateInventory(r.Context(), factoryParam(r), chi.URLParam(r, "sku"), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleAddMovement(w http.ResponseWriter, r *http.Request) {
	var input NewMovement
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	mv, err := h.repo.AddMovement(r.Context(), factoryParam(r), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

func (h *Handler) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	mv, err := h.repo.AddStock(r.Context(), factoryParam(r), req.SKU, req.Quantity, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

func (h *Handler) handleRemoveStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	mv, err := h.repo.RemoveStock(r.Context(), factoryParam(r), req.SKU, req.Quantity, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	mv, err := h.repo.TransferStock(r.Context(), factoryParam(r), req.SKU, req.Quantity, req.FromLocation, req.ToLocation, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.GetState(r.Context(), factoryParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, LowStock(doc))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	factoryID := factoryParam(r)
	report, err := h.repo.Report(r.Context(), factoryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" || format == "json" {
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	enc, ok := h.encoders[format]
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("unsupported format %q", format))
		return
	}
	buf := &bytes.Buffer{}
	if err := enc.Encode(buf, report); err != nil {
		h.logger.Error("encode report", slog.String("format", format), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	filename := fmt.Sprintf("inventory-report-%s-%s.%s", factoryID, report.GeneratedAt.Format("2006-01-02"), format)
	w.Header().Set("Content-Type", enc.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleConsolidated(w http.ResponseWriter, r *http.Request) {
	factories := r.URL.Query()["factory"]
	if len(factories) == 0 {
		factories = h.factories
	}
	report, err := h.repo.Consolidated(r.Context(), factories)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("inventory request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	httpx.RespondError(w, err)
}
