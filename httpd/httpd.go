// Package httpd is the HTTP facade for the ContaHub to Google Sheets pipeline.
package httpd

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ordinario/contahub-app-sheets/contahub"
	"github.com/ordinario/contahub-app-sheets/log"
	"github.com/ordinario/contahub-app-sheets/pipeline"
)

const SERVICE = "contahub-app-sheets"

type Runner interface {
	Run(ctx context.Context) pipeline.Outcome
}

type Diagnoser interface {
	Diagnose(ctx context.Context, credentials contahub.Credentials) ([]contahub.Diagnosis, contahub.Connectivity)
}

// Info is the static information reported by the public and debug endpoints.
type Info struct {
	Version           string
	Environment       string
	Email             string
	Password          string
	Spreadsheet       string
	LoginURL          string
	ProxyEnabled      bool
	Proxies           int
	CredentialsLoaded bool
}

type Server struct {
	APIKey    string
	Runner    Runner
	Diagnoser Diagnoser
	Info      Info
	Sentry    bool
}

// Handler returns the chi router for the facade. The /execute, /logs and /debug-* routes
// require a bearer token matching the API key.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger)
	r.Use(middleware.Recoverer)

	if s.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	r.Get("/health", s.health)
	r.Get("/test", s.test)

	r.Group(func(r chi.Router) {
		r.Use(s.authorised)

		r.Post("/execute", s.execute)
		r.Post("/execute-testefinal", s.execute)
		r.Get("/logs", s.logs)
		r.Get("/debug-login", s.debugLogin)
		r.Get("/debug-env", s.debugEnv)
	})

	return r
}

// authorised rejects requests without a valid 'Authorization: Bearer <key>' header. An unset
// API key rejects everything.
func (s *Server) authorised(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			reply(w, http.StatusUnauthorized, map[string]any{"error": "Authorization header missing or invalid"})
			return
		}

		if s.APIKey == "" || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.APIKey)) != 1 {
			log.Warnf("%-10v invalid API key from %v", "httpd", r.RemoteAddr)
			reply(w, http.StatusUnauthorized, map[string]any{"error": "Invalid API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"timestamp":     now(),
		"service":       SERVICE,
		"version":       s.Info.Version,
		"proxy_enabled": s.Info.ProxyEnabled,
	})
}

func (s *Server) test(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"message":           "API is up and running",
		"timestamp":         now(),
		"environment":       s.Info.Environment,
		"contahub_email":    s.Info.Email,
		"sheet_name":        s.Info.Spreadsheet,
		"proxies_available": s.Info.Proxies,
	})
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	log.Infof("%-10v executing pipeline (request %v)", "httpd", middleware.GetReqID(r.Context()))

	outcome := s.Runner.Run(r.Context())
	if !outcome.Success {
		reason := outcome.Error
		if reason == "" {
			reason = "unknown error"
		}

		reply(w, http.StatusInternalServerError, map[string]any{
			"status":    "error",
			"error":     reason,
			"timestamp": now(),
		})
		return
	}

	log.Infof("%-10v pipeline completed in %v", "httpd", time.Since(start).Round(time.Millisecond))

	reply(w, http.StatusOK, map[string]any{
		"status":         "success",
		"message":        "ContaHub data published to Google Sheets",
		"timestamp":      now(),
		"data":           outcome.Data,
		"execution_time": now(),
	})
}

func (s *Server) logs(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, map[string]any{
		"status":    "success",
		"message":   "Logs are available on the hosting platform dashboard",
		"timestamp": now(),
	})
}

func (s *Server) debugLogin(w http.ResponseWriter, r *http.Request) {
	credentials := contahub.Credentials{
		Email:    s.Info.Email,
		Password: s.Info.Password,
	}

	diagnosis, connectivity := s.Diagnoser.Diagnose(r.Context(), credentials)

	success := false
	for _, d := range diagnosis {
		success = success || d.Success
	}

	status := http.StatusOK
	overall := "success"
	message := "At least one login strategy succeeded"

	if !success {
		status = http.StatusInternalServerError
		overall = "error"
		message = "All login strategies failed"
	}

	reply(w, status, map[string]any{
		"overall_status": overall,
		"message":        message,
		"timestamp":      now(),
		"environment":    s.Info.Environment,
		"contahub_email": s.Info.Email,
		"login_url":      s.Info.LoginURL,
		"strategies":     diagnosis,
		"connectivity":   connectivity,
	})
}

func (s *Server) debugEnv(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, map[string]any{
		"contahub_email":            s.Info.Email,
		"contahub_senha":            contahub.Mask(s.Info.Password),
		"sheet_name":                s.Info.Spreadsheet,
		"google_credentials_loaded": s.Info.CredentialsLoaded,
		"timestamp":                 now(),
	})
}

// logger logs one line per request.
func logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.Infof("%-10v %v %v %d %dB %v", "httpd", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start).Round(time.Millisecond))
		}()

		next.ServeHTTP(ww, r)
	})
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("%-10v error encoding response (%v)", "httpd", err)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
