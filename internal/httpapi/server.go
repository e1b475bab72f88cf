package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	apimw "github.com/hamed0406/sitewatch/internal/httpapi/middleware"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/repo"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

// Checker runs checks on demand. *scheduler.Reconciler implements it.
type Checker interface {
	RunCycle(ctx context.Context, scope scheduler.Scope) (domain.Summary, error)
	CheckOne(ctx context.Context, id domain.SiteID, target string) (domain.SiteResult, error)
}

type Server struct {
	Logger  *zap.Logger
	Sites   repo.SiteStore
	Checker Checker
	// Diagnose runs on failed single-site checks; nil skips it.
	Diagnose func(ctx context.Context, rawURL string) probe.DNSReport
}

func NewServer(l *zap.Logger, sites repo.SiteStore, c Checker) *Server {
	return &Server{Logger: l, Sites: sites, Checker: c, Diagnose: probe.Diagnose}
}

// RouterOptions carries the HTTP-facing settings.
type RouterOptions struct {
	Keys           apimw.Keys
	AllowedOrigins []string // empty means "*"
	PublicRPM      int
	PublicBurst    int
}

func (s *Server) Router(opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(apimw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(opts.PublicRPM, opts.PublicBurst))

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAny(opts.Keys))
			r.HandleFunc("/check-single", s.handleCheckSingle)
			r.Get("/sites", s.handleListSites)
		})

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAdmin(opts.Keys))
			r.HandleFunc("/scheduled-check", s.handleScheduledCheck)
		})
	})

	return r
}

type checkSinglePayload struct {
	WebsiteID  string `json:"websiteId"`
	WebsiteURL string `json:"websiteUrl"`
}

type checkSingleResponse struct {
	Success      bool          `json:"success"`
	Status       domain.Status `json:"status"`
	URL          string        `json:"url"`
	CheckedAt    time.Time     `json:"checkedAt"`
	ResponseTime int64         `json:"responseTime"`
	Changed      bool          `json:"statusChanged"`
	Notified     bool          `json:"notified"`
	Error        *string       `json:"error"`
}

func (s *Server) handleCheckSingle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var p checkSinglePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	p.WebsiteID = strings.TrimSpace(p.WebsiteID)
	p.WebsiteURL = strings.TrimSpace(p.WebsiteURL)
	if p.WebsiteID == "" || p.WebsiteURL == "" {
		writeError(w, http.StatusBadRequest, "Missing websiteId or websiteUrl", "")
		return
	}
	if !isValidHTTPURL(p.WebsiteURL) {
		writeError(w, http.StatusBadRequest, "Invalid websiteUrl", "")
		return
	}

	res, err := s.Checker.CheckOne(r.Context(), domain.SiteID(p.WebsiteID), p.WebsiteURL)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "Website not found", "")
		return
	case errors.Is(err, scheduler.ErrPersist):
		writeError(w, http.StatusInternalServerError, "Failed to update database", res.PersistError)
		return
	case err != nil:
		s.Logger.Error("check_single_error", zap.String("site_id", p.WebsiteID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	if res.Status == domain.StatusDown && s.Diagnose != nil {
		s.logDNS(r.Context(), res.URL)
	}

	out := checkSingleResponse{
		Success:      true,
		Status:       res.Status,
		URL:          res.URL,
		CheckedAt:    res.CheckedAt,
		ResponseTime: res.ResponseTimeMS,
		Changed:      res.StatusChanged,
		Notified:     res.Notified,
	}
	if res.Error != "" {
		out.Error = &res.Error
	}
	writeJSON(w, http.StatusOK, out)
}

// logDNS records how the host resolves so a dead domain can be told apart
// from a dead server.
func (s *Server) logDNS(ctx context.Context, rawURL string) {
	dns := s.Diagnose(ctx, rawURL)
	s.Logger.Info("dns_check",
		zap.String("domain", dns.Domain),
		zap.String("class", dns.Class),
		zap.Bool("has_a_or_aaaa", dns.HasAOrAAAA),
		zap.Strings("nameservers", dns.Nameservers),
		zap.String("cname", dns.CNAME),
		zap.String("resolver_error", dns.ResolverError),
	)
}

type cycleCounts struct {
	Total  int `json:"total"`
	Up     int `json:"up"`
	Down   int `json:"down"`
	Errors int `json:"errors"`
}

type scheduledCheckResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	CycleID string              `json:"cycleId"`
	Summary cycleCounts         `json:"summary"`
	Partial bool                `json:"partial"`
	Results []domain.SiteResult `json:"results"`
}

func (s *Server) handleScheduledCheck(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet, http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	scope := scheduler.Scope{UserID: domain.UserID(strings.TrimSpace(r.URL.Query().Get("userId")))}
	sum, err := s.Checker.RunCycle(r.Context(), scope)
	switch {
	case errors.Is(err, scheduler.ErrCycleRunning):
		writeError(w, http.StatusConflict, "Monitoring job already running", "")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Monitoring job failed", err.Error())
		return
	}

	msg := "Monitoring job completed successfully"
	switch {
	case sum.Total == 0:
		msg = "No websites to check"
	case sum.Partial:
		msg = "Monitoring job stopped early"
	}
	writeJSON(w, http.StatusOK, scheduledCheckResponse{
		Success: true,
		Message: msg,
		CycleID: sum.CycleID,
		Summary: cycleCounts{Total: sum.Total, Up: sum.Up, Down: sum.Down, Errors: sum.Errors},
		Partial: sum.Partial,
		Results: sum.Results,
	})
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	f := repo.SiteFilter{UserID: domain.UserID(strings.TrimSpace(r.URL.Query().Get("userId")))}
	sites, err := s.Sites.ListSites(r.Context(), f)
	if err != nil {
		s.Logger.Error("list_sites_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list websites", err.Error())
		return
	}
	for _, site := range sites {
		s.Logger.Debug("site_listed", zap.String("site_id", string(site.ID)), zap.String("url", site.URL), zap.String("user_id", string(site.UserID)))
	}
	if sites == nil {
		sites = []domain.MonitoredSite{}
	}
	writeJSON(w, http.StatusOK, sites)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}
