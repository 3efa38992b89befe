package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/metrics"
	"github.com/Kerhoff/ShelfBoT/internal/service"
)

// maxBodyBytes bounds request bodies; reorder payloads are the largest.
const maxBodyBytes = 1 << 20

// Server provides the HTTP JSON API over the collection service.
type Server struct {
	svc       *service.Service
	logger    *logrus.Logger
	identity  IdentityProvider
	validator *requestValidator
	metrics   *metrics.Metrics
	mux       *http.ServeMux
}

// NewServer creates a Server and registers all routes. m may be nil.
func NewServer(svc *service.Service, logger *logrus.Logger, identity IdentityProvider, m *metrics.Metrics) *Server {
	s := &Server{
		svc:       svc,
		logger:    logger,
		identity:  identity,
		validator: newRequestValidator(),
		metrics:   m,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	if s.metrics == nil {
		return s.mux
	}
	return s.metrics.InstrumentHandler(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Lists
	s.mux.HandleFunc("GET /api/lists/public", s.handlePublicLists)
	s.mux.HandleFunc("GET /api/lists/me", s.handleMyLists)
	s.mux.HandleFunc("POST /api/lists", s.handleCreateList)
	s.mux.HandleFunc("PUT /api/lists/order", s.handleReorderLists)
	s.mux.HandleFunc("GET /api/lists/{id}", s.handleGetList)
	s.mux.HandleFunc("PATCH /api/lists/{id}", s.handleUpdateList)
	s.mux.HandleFunc("DELETE /api/lists/{id}", s.handleDeleteList)

	// API – List items
	s.mux.HandleFunc("POST /api/lists/{id}/items", s.handleAddItem)
	s.mux.HandleFunc("DELETE /api/lists/{id}/items/{setNum}", s.handleRemoveItem)
	s.mux.HandleFunc("PUT /api/lists/{id}/items/order", s.handleReorderItems)

	// API – Collections
	for _, c := range s.collections() {
		s.mux.HandleFunc("GET /api/collections/"+c.name, s.handleGetCollection(c))
		s.mux.HandleFunc("POST /api/collections/"+c.name, s.handleAddToCollection(c))
		s.mux.HandleFunc("DELETE /api/collections/"+c.name+"/{setNum}", s.handleRemoveFromCollection(c))
		s.mux.HandleFunc("PUT /api/collections/"+c.name+"/order", s.handleReorderCollection(c))
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps a service error onto an HTTP status. Internal
// errors are logged and hidden from the client.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code == apperrors.CodeInternal {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Code:  string(apperrors.CodeInternal),
		})
		return
	}

	s.respondJSON(w, domainErr.Code.HTTPStatus(), errorResponse{
		Error:   domainErr.Message,
		Code:    string(domainErr.Code),
		Details: domainErr.Details,
	})
}

// decodeJSON reads and validates the request body into dst. It writes the
// error response itself and returns false on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		s.respondError(w, http.StatusBadRequest, "request body is empty")
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			s.respondError(w, http.StatusBadRequest, "request body is empty")
		} else {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		}
		return false
	}
	if err := s.validator.Validate(dst); err != nil {
		s.respondDomainError(w, r, err)
		return false
	}
	return true
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// requireListID reads {id}. It writes an error response and returns false
// when the value is not a positive integer.
func (s *Server) requireListID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "list id must be a positive integer")
		return 0, false
	}
	return id, true
}

// viewer returns the caller's ID, 0 for anonymous callers. It writes 401
// and returns false for malformed credentials.
func (s *Server) viewer(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := s.identity.Identify(r)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return 0, false
	}
	return id, true
}

// requireOwner is viewer for endpoints that need an authenticated caller.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := s.viewer(w, r)
	if !ok {
		return 0, false
	}
	if id == 0 {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
