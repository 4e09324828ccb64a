package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
	applog "hhsfinance/internal/log"
	"hhsfinance/internal/services"
	"hhsfinance/internal/storage"
)

type healthResponse struct {
	Status        string `json:"status"`
	Mode          string `json:"mode"`
	Online        bool   `json:"online"`
	Authenticated bool   `json:"authenticated"`
	Backend       string `json:"backend,omitempty"`
	Notice        string `json:"notice,omitempty"`
}

type stateResponse struct {
	State    core.AppState `json:"appState"`
	Settings core.Settings `json:"settings"`
	Mode     string        `json:"mode"`
}

type restoreResponse struct {
	Format       string `json:"format"`
	Transactions int    `json:"transactions"`
	Categories   int    `json:"categories"`
	Currency     string `json:"currency"`
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sess := s.rec.Session()
	resp := healthResponse{
		Status:        "ok",
		Mode:          sess.Mode.String(),
		Online:        sess.Online,
		Authenticated: sess.Authenticated,
		Backend:       s.rec.GatewayName(),
	}
	if !sess.Online {
		resp.Notice = "offline: changes are saved locally only"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if _, _, err := s.store.Get(r.Context(), storage.KeyAuth); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Store not ready", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.rec.Session()
	writeJSON(w, http.StatusOK, stateResponse{
		State:    sess.State,
		Settings: sess.Settings,
		Mode:     sess.Mode.String(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}
	writeJSON(w, http.StatusOK, s.rec.Summary(from, to))
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	doc := s.rec.Export()
	body, err := backup.Marshal(doc)
	if err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Backup export failed", err, applog.OpExport)
		writeError(w, http.StatusInternalServerError, "could not build backup")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.FileName(doc.Metadata.Timestamp)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "backup document too large")
		return
	}

	snap, err := s.rec.Import(r.Context(), data)
	if err != nil {
		var derr *backup.DecodeError
		if errors.As(err, &derr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error: derr.Error(),
				Kind:  kindOf(derr),
			})
			return
		}
		s.writeServiceError(w, r, err, applog.OpImport)
		return
	}

	state := s.rec.State()
	writeJSON(w, http.StatusOK, restoreResponse{
		Format:       snap.Format.String(),
		Transactions: len(state.Transactions),
		Categories:   len(state.Categories),
		Currency:     state.Currency,
	})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if err := s.rec.Push(r.Context()); err != nil {
		s.writeServiceError(w, r, err, applog.OpPush)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pushed"})
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	res, err := s.rec.Pull(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpPull)
		return
	}
	if res == services.PullNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": res.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": res.String()})
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil || req.Online == nil {
		writeError(w, http.StatusBadRequest, `expected {"online": true|false}`)
		return
	}
	if err := s.rec.SetOnline(r.Context(), *req.Online); err != nil {
		s.writeServiceError(w, r, err, applog.OpConnectivity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": s.rec.Mode().String()})
}

// writeServiceError maps reconciler and gateway errors to status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNoGateway):
		status = http.StatusNotImplemented
	case errors.Is(err, services.ErrDisconnected):
		status = http.StatusConflict
	case errors.Is(err, services.ErrClosed), errors.Is(err, gateway.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrNotAuthorized):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op)
	}
	writeError(w, status, err.Error())
}

func kindOf(err *backup.DecodeError) string {
	if errors.Is(err, backup.ErrInvalidStructure) {
		return "invalid_structure"
	}
	return "malformed"
}
