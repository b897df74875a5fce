package remote

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/roach88/mops/internal/localcache"
	"github.com/roach88/mops/internal/record"
	"github.com/roach88/mops/internal/store"
)

// Server is a reference Remote Service backed by a local cache.
type Server struct {
	cache  *localcache.Cache
	log    *slog.Logger
	router *mux.Router
	stores sync.Map // collection key -> *store.Store
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the request logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer builds the router for the collection API over c.
func NewServer(c *localcache.Cache, opts ...ServerOption) *Server {
	s := &Server{cache: c, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/collections/{key}", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/collections/{key}", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/collections/{key}/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/collections/{key}/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/collections/{key}/{id}", s.handleDelete).Methods(http.MethodDelete)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = newRequestID()
		}
		w.Header().Set(RequestIDHeader, reqID)
		s.log.Debug("remote service request", "method", r.Method, "path", r.URL.Path, "request_id", reqID)
		next.ServeHTTP(w, r)
	})
}

// storeFor resolves the {key} route variable to a Record Store.
func (s *Server) storeFor(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	key := mux.Vars(r)["key"]
	if v, ok := s.stores.Load(key); ok {
		return v.(*store.Store), true
	}
	st, err := store.New(s.cache, key)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	v, _ := s.stores.LoadOrStore(key, st)
	return v.(*store.Store), true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, st.GetAll(r.Context()))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	rec, found := st.GetByID(r.Context(), record.ParseID(mux.Vars(r)["id"]))
	if !found {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	created, err := st.Create(r.Context(), fields)
	if err != nil {
		s.log.Error("create failed", "collection", st.Key(), "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	updated, found, err := st.Update(r.Context(), record.ParseID(mux.Vars(r)["id"]), fields)
	if err != nil {
		s.log.Error("update failed", "collection", st.Key(), "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	deleted, err := st.Delete(r.Context(), record.ParseID(mux.Vars(r)["id"]))
	if err != nil {
		s.log.Error("delete failed", "collection", st.Key(), "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeFields reads a JSON object body. JSON null is an empty field set.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return nil, false
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, true
}

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}
