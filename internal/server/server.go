package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ahochma/choreboard/internal/backup"
	"github.com/ahochma/choreboard/internal/handler"
	"github.com/ahochma/choreboard/internal/middleware"
	"github.com/ahochma/choreboard/internal/scoring"
	"github.com/ahochma/choreboard/internal/store"
	"github.com/ahochma/choreboard/internal/transfer"
	ws "github.com/ahochma/choreboard/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	personH       *handler.PersonHandler
	choreH        *handler.ChoreHandler
	scoreH        *handler.ScoreHandler
	transferH     *handler.TransferHandler
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	personStore := store.NewPersonStore(db)
	choreStore := store.NewChoreStore(db)
	completionStore := store.NewCompletionStore(db)
	resultStore := store.NewResultStore(db)
	adminStore := store.NewAdminStore(db)

	scoringSvc := scoring.New(completionStore, resultStore, personStore)
	transferSvc := transfer.New(personStore, choreStore, completionStore, resultStore)

	backupMgr := backup.NewManager(backupCfg, transferSvc, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		personH:       handler.NewPersonHandler(personStore, hub, logger.With("component", "person")),
		choreH:        handler.NewChoreHandler(choreStore, hub, logger.With("component", "chore")),
		scoreH:        handler.NewScoreHandler(scoringSvc, personStore, choreStore, completionStore, resultStore, hub, logger.With("component", "score")),
		transferH:     handler.NewTransferHandler(transferSvc, adminStore, backupMgr, hub, logger.With("component", "transfer")),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// BackupManager returns the backup manager so main can start and stop its
// scheduled loop.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// People
	mux.HandleFunc("GET /api/people", s.personH.List)
	mux.HandleFunc("POST /api/people", s.personH.Create)
	mux.HandleFunc("GET /api/people/{id}", s.personH.Get)
	mux.HandleFunc("PUT /api/people/{id}", s.personH.Update)

	// Chore catalog
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Completion ledger + scores
	mux.HandleFunc("POST /api/completions", s.scoreH.RecordCompletion)
	mux.HandleFunc("GET /api/completions", s.scoreH.ListCompletions)
	mux.HandleFunc("GET /api/scores/months/{key}", s.scoreH.MonthTotals)
	mux.HandleFunc("GET /api/scores/today", s.scoreH.TodayTotals)
	mux.HandleFunc("GET /api/scores/leader", s.scoreH.Leader)
	mux.HandleFunc("GET /api/scores/wins", s.scoreH.Wins)

	// Month finalization
	mux.HandleFunc("POST /api/months/{key}/close", s.scoreH.CloseMonth)
	mux.HandleFunc("GET /api/results", s.scoreH.ListResults)
	mux.HandleFunc("GET /api/results/{key}", s.scoreH.GetResult)

	// Transfer + admin
	mux.HandleFunc("GET /api/transfer/export", s.transferH.Export)
	mux.HandleFunc("POST /api/transfer/import", s.transferH.Import)
	mux.HandleFunc("POST /api/admin/reset", s.transferH.Reset)
	mux.HandleFunc("GET /api/backup/status", s.transferH.BackupStatus)
	mux.HandleFunc("POST /api/backup/run", s.transferH.BackupNow)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
