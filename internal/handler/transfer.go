package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ahochma/choreboard/internal/backup"
	"github.com/ahochma/choreboard/internal/store"
	"github.com/ahochma/choreboard/internal/transfer"
	"github.com/ahochma/choreboard/internal/websocket"
)

// maxImportBytes bounds an import payload. A household dataset is far
// smaller; this just stops an accidental multi-gigabyte upload.
const maxImportBytes = 32 << 20

// TransferHandler exposes export, import, full reset, and backup controls.
type TransferHandler struct {
	transfer *transfer.Service
	admin    *store.AdminStore
	backup   *backup.Manager
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewTransferHandler(t *transfer.Service, admin *store.AdminStore, b *backup.Manager, hub *websocket.Hub, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{transfer: t, admin: admin, backup: b, hub: hub, logger: logger}
}

func (h *TransferHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// Export streams the full dataset as a JSON download.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.transfer.Export()
	if err != nil {
		h.logger.Error("export", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to export"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="choreboard-export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import merges a previously exported payload. Entities already present are
// skipped, so re-importing the same file changes nothing.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	report, err := h.transfer.Import(data)
	if err != nil {
		h.logger.Warn("import rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid import payload"})
		return
	}

	h.broadcast(websocket.NewMessage("dataset", "imported", "", map[string]any{
		"inserted_people":          report.InsertedPeople,
		"inserted_chores":          report.InsertedChores,
		"inserted_completions":     report.InsertedCompletions,
		"inserted_monthly_results": report.InsertedMonthlyResults,
	}))
	writeJSON(w, http.StatusOK, report)
}

// Reset wipes every table. There is no undo; export first.
func (h *TransferHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.ResetAll(); err != nil {
		h.logger.Error("reset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reset"})
		return
	}

	h.broadcast(websocket.NewMessage("dataset", "reset", "", nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// BackupStatus reports the backup manager state.
func (h *TransferHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backup.Status())
}

// BackupNow triggers an immediate encrypted backup upload.
func (h *TransferHandler) BackupNow(w http.ResponseWriter, r *http.Request) {
	if !h.backup.Enabled() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "backup is not configured"})
		return
	}
	if err := h.backup.BackupNow(r.Context()); err != nil {
		h.logger.Error("backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backup failed"})
		return
	}
	writeJSON(w, http.StatusOK, h.backup.Status())
}
