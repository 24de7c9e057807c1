package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storehours/internal/auth"
	"github.com/example/storehours/internal/domain/customization"
	"github.com/example/storehours/internal/domain/tags"
	"github.com/example/storehours/internal/hours"
	"github.com/example/storehours/internal/internaltypes"
	"github.com/example/storehours/internal/sellers"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (int64, error)
}

type SellerStore interface {
	Get(ctx context.Context, id string) (sellers.Seller, error)
	List(ctx context.Context, limit int) ([]sellers.Seller, error)
	Upsert(ctx context.Context, s sellers.Seller) error
	ListStatuses(ctx context.Context, sellerID string) ([]sellers.Status, error)
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxBodyBytes     = 1 << 20
)

type Server struct {
	Users    Authenticator
	Sessions *auth.Sessions
	Sellers  SellerStore
	Hours    hours.Service
	Log      *zap.Logger

	// RateLimit is requests per second per client IP on the public hours
	// endpoint; 0 disables limiting.
	RateLimit      int
	AllowedOrigins []string
}

var validate = validator.New()

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, s.accessLog, s.recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		// public, called by storefronts
		r.Group(func(r chi.Router) {
			origins := s.AllowedOrigins
			if len(origins) == 0 {
				origins = []string{"*"}
			}
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
				MaxAge:         300,
			}))
			if s.RateLimit > 0 {
				r.Use(httprate.Limit(s.RateLimit, time.Second,
					httprate.WithKeyByIP(),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", RequestID: RequestIDFrom(r.Context())})
					})))
			}
			r.Get("/sellers/{sellerID}/hours", s.handleHours)
			r.Options("/sellers/{sellerID}/hours", func(w http.ResponseWriter, r *http.Request) {})
			r.Post("/customizations/select", s.handleSelectCustomizations)
			r.Options("/customizations/select", func(w http.ResponseWriter, r *http.Request) {})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.Sessions.RequireAuth)
			r.Get("/sellers", s.handleListSellers)
			r.Put("/sellers/{sellerID}", s.handleUpsertSeller)
			r.Get("/sellers/{sellerID}/status", s.handleStatus)
		})
	})

	return r
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")
	q := r.URL.Query()

	var at time.Time
	if v := strings.TrimSpace(q.Get("at")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, r, internaltypes.ErrInvalidInput, "at must be RFC3339")
			return
		}
		at = t
	}

	h, err := s.Hours.Lookup(r.Context(), sellerID, q.Get("location"), at)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type selectRequest struct {
	Items      []customization.CatalogItem `json:"items" validate:"required,dive"`
	State      customization.State         `json:"state"`
	FirstGroup string                      `json:"first_group" validate:"required"`
}

// handleSelectCustomizations turns a storefront's customization picks into
// the options of a cart line.
func (s *Server) handleSelectCustomizations(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, customization.BuildCart(req.Items, req.State, req.FirstGroup))
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	id, err := s.Users.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		s.writeError(w, r, err, "invalid username/password")
		return
	}
	if err := s.Sessions.SetSession(w, r, id); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": id})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSellers(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, internaltypes.ErrInvalidInput, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	ss, err := s.Sellers.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if ss == nil {
		ss = []sellers.Seller{}
	}
	writeJSON(w, http.StatusOK, ss)
}

// handleStatus returns the scheduler's last snapshot per location.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")
	if _, err := s.Sellers.Get(r.Context(), sellerID); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	sts, err := s.Sellers.ListStatuses(r.Context(), sellerID)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if sts == nil {
		sts = []sellers.Status{}
	}
	writeJSON(w, http.StatusOK, sts)
}

type upsertRequest struct {
	Name string     `json:"name" validate:"required,max=256"`
	Tags []tags.Tag `json:"tags" validate:"dive"`
}

func (s *Server) handleUpsertSeller(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	seller := sellers.Seller{ID: chi.URLParam(r, "sellerID"), Name: req.Name, Tags: req.Tags}
	if err := s.Sellers.Upsert(r.Context(), seller); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	s.Log.Info("seller upserted",
		zap.String("seller_id", seller.ID),
		zap.Int64("user_id", uid),
		zap.Strings("locations", seller.LocationIDs()))
	writeJSON(w, http.StatusOK, seller)
}

// decodeJSON reads a bounded body and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(internaltypes.ErrInvalidInput, err)
	}
	if err := validate.Struct(v); err != nil {
		return errors.Join(internaltypes.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps sentinel errors to status codes. msg, when set, replaces
// the error text in the response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, internaltypes.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, internaltypes.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, internaltypes.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.Log.Error("request failed", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
		msg = "internal error"
	}
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, status, errorBody{Error: msg, RequestID: RequestIDFrom(r.Context())})
}

func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey string

const requestIDKey ctxKey = "requestID"

const requestIDHeader = "X-Request-ID"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Info("http",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.Log.Error("panic", zap.Any("recovered", rec), zap.String("request_id", RequestIDFrom(r.Context())))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", RequestID: RequestIDFrom(r.Context())})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
