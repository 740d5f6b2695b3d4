package http

import (
	"net/http"
	"strings"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/auth"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/window"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type lookbackRequest struct {
	Metric  string  `json:"metric"`
	Days    flexInt `json:"days"`
	Hours   flexInt `json:"hours"`
	Minutes flexInt `json:"minutes"`
}

type limitsRequest struct {
	Memory *string `json:"memory_limit"`
	CPU    *string `json:"cpu_limit"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("The server is running!"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ok, err := s.users.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, apperr.New(apperr.KindUnauthorized, "bad username or password", nil))
		return
	}

	token, err := s.issuer.Issue(req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("User logged in", "username", req.Username)
	s.writeJSON(w, r, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.Create(r.Context(), req.Username, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("User registered", "username", strings.TrimSpace(req.Username), "by", auth.Subject(r.Context()))
	s.writeJSON(w, r, http.StatusCreated, messageBody{Message: "User created successfully"})
}

func (s *Server) handleRevokeUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.Revoke(r.Context(), req.Username); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("User revoked", "username", strings.TrimSpace(req.Username), "by", auth.Subject(r.Context()))
	s.writeJSON(w, r, http.StatusOK, messageBody{Message: "User revoked successfully"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	names, err := s.users.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, names)
}

func (s *Server) handleSystemMetric(w http.ResponseWriter, r *http.Request) {
	var req lookbackRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Metric) == "" {
		s.writeError(w, r, apperr.Validation("metric is required"))
		return
	}

	win, err := window.Resolve(int(req.Days), int(req.Hours), int(req.Minutes), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	frame, err := s.metrics.FetchOne(r.Context(), req.Metric, win)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, frame)
}

func (s *Server) handleAllSystemMetric(w http.ResponseWriter, r *http.Request) {
	var req lookbackRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	win, err := window.Resolve(int(req.Days), int(req.Hours), int(req.Minutes), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results, err := s.metrics.FetchAll(r.Context(), win)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, results)
}

func (s *Server) handleUpscale(w http.ResponseWriter, r *http.Request) {
	var req limitsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.limits.Set(r.Context(), auth.Subject(r.Context()), req.Memory, req.CPU); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, messageBody{Message: "Service limits updated"})
}

func (s *Server) handleGetLimits(w http.ResponseWriter, r *http.Request) {
	l, err := s.limits.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, l)
}
