package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zwickfi/zwickfi/internal/api/middleware"
)

// Routes holds everything the HTTP front end serves.
type Routes struct {
	Sync    *SyncHandler
	Runs    *RunsHandler
	Metrics http.Handler
	Running func() bool
}

// NewRouter registers the routes and wraps them in the standard middleware.
func NewRouter(rt Routes, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method == http.MethodGet || r.Method == http.MethodPost {
			rt.Sync.RunNow(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Runs.ListRuns(w, r)
		case http.MethodPost:
			rt.Sync.Enqueue(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if runID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Run ID is required")
			return
		}
		rt.Runs.GetRun(w, r, runID)
	})

	mux.HandleFunc("/health", Health(rt.Running))

	if rt.Metrics != nil {
		mux.Handle("/metrics", rt.Metrics)
	}

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)
}
