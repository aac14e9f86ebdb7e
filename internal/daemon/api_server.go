package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"muse/internal/api"
	"muse/internal/config"
	"muse/internal/idea"
	"muse/internal/logging"
	"muse/internal/services"
)

// actorHeader identifies the caller on every idea route.
const actorHeader = "X-Muse-Actor"

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		cfg:    cfg,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/stages", authMiddleware(token, srv.handleStages))
	mux.HandleFunc("/api/ideas", authMiddleware(token, srv.handleIdeas))
	mux.HandleFunc("/api/ideas/", authMiddleware(token, srv.handleIdeaSubtree))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleStages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	stages := s.daemon.IdeaService().Stages()
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, string(stage))
	}
	s.writeJSON(w, http.StatusOK, api.StagesResponse{Stages: names})
}

func (s *apiServer) handleIdeas(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		req := api.ListRequest{Status: query.Get("status")}
		req.Limit, _ = strconv.Atoi(query.Get("limit"))
		req.Offset, _ = strconv.Atoi(query.Get("offset"))

		items, err := s.daemon.IdeaService().List(r.Context(), actor, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ToIdeaDTOs(items))
	case http.MethodPost:
		var req api.CreateIdeaRequest
		if !s.decode(w, r, &req) {
			return
		}
		item, err := s.daemon.IdeaService().Create(r.Context(), actor, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.ToIdeaDTO(item))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *apiServer) handleIdeaSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/ideas/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		s.writeError(w, http.StatusNotFound, "idea not found", "not_found")
		return
	}

	id, err := uuid.Parse(segments[0])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid idea id", "validation")
		return
	}
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	switch {
	case len(segments) == 1:
		s.handleIdea(w, r, actor, id)
	case len(segments) == 2 && segments[1] == "process":
		s.handleProcess(w, r, actor, id)
	case len(segments) == 2 && segments[1] == "transition":
		s.handleTransition(w, r, actor, id)
	case len(segments) == 2 && segments[1] == "calls":
		s.handleCalls(w, r, actor, id)
	default:
		s.writeError(w, http.StatusNotFound, "unknown resource", "not_found")
	}
}

func (s *apiServer) handleIdea(w http.ResponseWriter, r *http.Request, actor idea.Actor, id uuid.UUID) {
	svc := s.daemon.IdeaService()
	switch r.Method {
	case http.MethodGet:
		item, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ToIdeaDTO(item))
	case http.MethodPatch, http.MethodPut:
		var req api.UpdateIdeaRequest
		if !s.decode(w, r, &req) {
			return
		}
		item, err := svc.Update(r.Context(), actor, id, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ToIdeaDTO(item))
	case http.MethodDelete:
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusNoContent, nil)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request, actor idea.Actor, id uuid.UUID) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var req api.ProcessRequest
	if !s.decode(w, r, &req) {
		return
	}
	outcome, err := s.daemon.IdeaService().Process(r.Context(), actor, id, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *apiServer) handleTransition(w http.ResponseWriter, r *http.Request, actor idea.Actor, id uuid.UUID) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var req api.TransitionRequest
	if !s.decode(w, r, &req) {
		return
	}
	outcome, err := s.daemon.IdeaService().Transition(r.Context(), actor, id, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *apiServer) handleCalls(w http.ResponseWriter, r *http.Request, actor idea.Actor, id uuid.UUID) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	calls, err := s.daemon.IdeaService().AICalls(r.Context(), actor, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ToAICallDTOs(calls))
}

// actor resolves the caller from the actor header. Admin status comes from
// configuration, never from the request.
func (s *apiServer) actor(w http.ResponseWriter, r *http.Request) (idea.Actor, bool) {
	raw := strings.TrimSpace(r.Header.Get(actorHeader))
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, actorHeader+" header required", "validation")
		return idea.Actor{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid actor id", "validation")
		return idea.Actor{}, false
	}
	return idea.Actor{ID: id, Admin: s.cfg.IsAdmin(raw)}, true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "validation")
		return false
	}
	return true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	kind := services.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "validation":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "permission":
		status = http.StatusForbidden
	case "timeout":
		status = http.StatusGatewayTimeout
	case "configuration":
		status = http.StatusServiceUnavailable
	}
	if kind == "compensation" {
		s.log().Error("request left an idea in an inconsistent state",
			logging.Alert("compensation_failure"),
			logging.Error(err))
	}
	s.writeError(w, status, err.Error(), kind)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
