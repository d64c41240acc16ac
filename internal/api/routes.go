package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/letrongminh/vigenair/internal/config"
	"github.com/letrongminh/vigenair/internal/framing"
	"github.com/letrongminh/vigenair/internal/render"
	"github.com/letrongminh/vigenair/internal/session"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/analysis", loadAnalysisHandler(cfg))
		r.Get("/segments", segmentsHandler(cfg))
		r.Get("/variants", variantsHandler(cfg))
		r.Post("/variants/{index}/select", selectVariantHandler(cfg))
		r.Post("/selection", selectionHandler(cfg))
		r.Post("/selection/restore", restoreHandler(cfg))
		r.Post("/timeline/reorder", reorderHandler(cfg))
		r.Post("/playback/play", playHandler(cfg))
		r.Post("/playback/pause", pauseHandler(cfg))
		r.Post("/playback/reset", resetHandler(cfg))
		r.Post("/playback/position", positionHandler(cfg))
		r.Get("/playback/state", stateHandler(cfg))
		r.Post("/framing/drag", dragHandler(cfg))
		r.Get("/preview.m3u8", previewHandler(cfg))
		r.Post("/queue", enqueueHandler(cfg))
		r.Get("/queue", listQueueHandler(cfg))
		r.Post("/combos", combosHandler(cfg))
	})

	return r
}

// activeSession resolves the loaded session or writes the standard refusal.
func activeSession(cfg ServerConfig, w http.ResponseWriter) (*session.Session, bool) {
	sess, ok := cfg.Sessions.Active()
	if !ok {
		WriteError(w, http.StatusConflict, "no analysis loaded", "NO_SESSION")
		return nil, false
	}
	return sess, true
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			State:   "idle",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		}

		if sess, ok := cfg.Sessions.Active(); ok {
			resp.State = "loaded"
			resp.SessionID = sess.ID
			resp.Segments = len(sess.Segments())
			resp.Variants = len(sess.Variants())
			if sess.IsPlaying() {
				resp.State = "playing"
				resp.Playing = true
			}
		}

		if items, err := cfg.Repository.ListQueue(r.Context()); err == nil {
			resp.QueueDepth = len(items)
		}

		if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
			stats := &ProcessStats{}
			if mi, err := p.MemoryInfo(); err == nil {
				stats.RSSBytes = mi.RSS
			}
			if cpu, err := p.CPUPercent(); err == nil {
				stats.CPUPercent = cpu
			}
			resp.Process = stats
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func loadAnalysisHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in session.AnalysisInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sess, err := cfg.Sessions.LoadAnalysis(r.Context(), in)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, LoadAnalysisResponse{
			SessionID: sess.ID,
			Segments:  len(sess.Segments()),
			Variants:  len(sess.Variants()),
		})
	}
}

func segmentsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, SegmentsResponse{Segments: sess.Segments()})
	}
}

func variantsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, VariantsResponse{Variants: sess.Variants()})
	}
}

func selectVariantHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid variant index", "BAD_REQUEST")
			return
		}
		if err := sess.SelectVariant(index); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func selectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}

		var req SelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		sess.ApplySelection(req.IDs)
		w.WriteHeader(http.StatusNoContent)
	}
}

func restoreHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}
		sess.RestoreOriginal()
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}

		var req ReorderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := sess.Reorder(req.Order); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}
		// The tick loop outlives the request; bind it to the server's
		// lifetime, not the request context.
		sess.Play(cfg.BaseContext)
		w.WriteHeader(http.StatusNoContent)
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}
		sess.Pause()
		w.WriteHeader(http.StatusNoContent)
	}
}

func resetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}
		sess.ResetPreview()
		w.WriteHeader(http.StatusNoContent)
	}
}

func positionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}

		var req PositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		sess.ReportPosition(req.PositionS)
		w.WriteHeader(http.StatusNoContent)
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, sess.State())
	}
}

func dragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}

		var req DragRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := sess.CommitDrag(req.TimeS, req.DeltaX); err != nil {
			if errors.Is(err, framing.ErrNoActiveFrame) {
				WriteError(w, http.StatusConflict, "no crop frame at timestamp", "NO_ACTIVE_FRAME")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}

		playlist, err := sess.PreviewPlaylist()
		if err != nil {
			WriteError(w, http.StatusConflict, err.Error(), "NO_SELECTION")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, playlist)
	}
}

func enqueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := activeSession(cfg, w)
		if !ok {
			return
		}

		var req EnqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		item, err := sess.BuildQueueItem(req.Settings)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		inserted, err := cfg.Repository.Enqueue(r.Context(), item)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to enqueue", "INTERNAL_ERROR")
			return
		}

		status := http.StatusCreated
		if !inserted {
			// Duplicate submissions are silently ignored, not errors.
			status = http.StatusOK
		}
		WriteJSON(w, status, EnqueueResponse{Enqueued: inserted, Item: item})
	}
}

func listQueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := cfg.Repository.ListQueue(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list queue", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, QueueResponse{Items: items})
	}
}

func combosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		combos, err := render.ParseRenderedCombos(body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, CombosResponse{Combos: combos})
	}
}
