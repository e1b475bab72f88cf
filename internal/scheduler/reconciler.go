package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/metrics"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/repo"
)

// DefaultDelay is the pause between two sites of a cycle.
const DefaultDelay = time.Second

var (
	// ErrCycleRunning is returned when another cycle holds the cycle lock.
	ErrCycleRunning = errors.New("monitoring cycle already running")
	// ErrPersist wraps a failed status write in CheckOne.
	ErrPersist = errors.New("update site status")

	errInterrupted = errors.New("check interrupted")
)

// Alerter delivers a down alert to a site owner and reports whether it was
// sent. An empty to means the owner has no reachable email; the alerter still
// hears about the outage but sends no email.
type Alerter interface {
	NotifyDown(ctx context.Context, to, siteURL string, latencyMS int64) bool
}

// Scope narrows a cycle. The zero value covers every site.
type Scope struct {
	UserID domain.UserID
}

// Reconciler runs check cycles: probe each site, classify, store the new
// status, alert on Up to Down. Sites are processed one at a time.
type Reconciler struct {
	Logger  *zap.Logger
	Sites   repo.SiteStore
	Users   repo.UserStore
	Prober  probe.Prober
	Alerter Alerter          // nil disables alerts
	Lock    repo.CycleLocker // nil allows overlapping cycles
	Delay   time.Duration

	Now   func() time.Time
	NewID func() string
}

func NewReconciler(
	logger *zap.Logger,
	sites repo.SiteStore,
	users repo.UserStore,
	prober probe.Prober,
	alerter Alerter,
	delay time.Duration,
) *Reconciler {
	if delay < 0 {
		delay = 0
	}
	return &Reconciler{
		Logger:  logger,
		Sites:   sites,
		Users:   users,
		Prober:  prober,
		Alerter: alerter,
		Delay:   delay,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

// RunCycle checks every site in scope. Only a failure to load the site list
// (or a held cycle lock) is returned as an error; everything that goes wrong
// for a single site is recorded in its result. If ctx ends mid-cycle the
// remaining sites are left untouched and the summary is marked Partial.
func (r *Reconciler) RunCycle(ctx context.Context, scope Scope) (domain.Summary, error) {
	start := r.now()
	sum := domain.Summary{CycleID: r.newID(), StartedAt: start.UTC(), Results: []domain.SiteResult{}}
	log := r.Logger.With(zap.String("cycle_id", sum.CycleID))

	if r.Lock != nil {
		release, err := r.Lock.Acquire(ctx)
		if err != nil {
			if errors.Is(err, repo.ErrLocked) {
				log.Info("cycle_skipped_locked")
				return sum, ErrCycleRunning
			}
			return sum, fmt.Errorf("acquire cycle lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("cycle_lock_release_error", zap.Error(err))
			}
		}()
	}

	sites, err := r.Sites.ListSites(ctx, repo.SiteFilter{UserID: scope.UserID})
	if err != nil {
		metrics.CycleDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		log.Error("cycle_fetch_error", zap.String("user_id", string(scope.UserID)), zap.Error(err))
		return sum, fmt.Errorf("list sites: %w", err)
	}
	sum.Total = len(sites)
	log.Info("cycle_started", zap.Int("sites", len(sites)), zap.String("user_id", string(scope.UserID)))

	for i, site := range sites {
		if i > 0 && !sleep(ctx, r.Delay) {
			sum.Partial = true
			break
		}
		res, err := r.reconcile(ctx, log, site)
		if errors.Is(err, errInterrupted) {
			sum.Partial = true
			break
		}
		sum.Add(res)
	}

	sum.FinishedAt = r.now().UTC()
	outcome := "complete"
	if sum.Partial {
		outcome = "partial"
	}
	metrics.CycleDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	log.Info("cycle_finished",
		zap.String("outcome", outcome),
		zap.Int("total", sum.Total),
		zap.Int("checked", len(sum.Results)),
		zap.Int("up", sum.Up),
		zap.Int("down", sum.Down),
		zap.Int("errors", sum.Errors),
	)
	return sum, nil
}

// CheckOne reconciles a single site. A non-empty target overrides the stored
// URL for the probe. Unknown ids return repo.ErrNotFound; a failed status
// write returns ErrPersist together with the result.
func (r *Reconciler) CheckOne(ctx context.Context, id domain.SiteID, target string) (domain.SiteResult, error) {
	site, err := r.Sites.GetSite(ctx, id)
	if err != nil {
		return domain.SiteResult{}, err
	}
	if target != "" {
		site.URL = target
	}

	res, err := r.reconcile(ctx, r.Logger, *site)
	switch {
	case errors.Is(err, errInterrupted):
		return res, ctx.Err()
	case err != nil:
		return res, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return res, nil
}

// reconcile probes one site, stores the new status and alerts if needed.
// The store is written once; if ctx ends during the probe nothing is written.
func (r *Reconciler) reconcile(ctx context.Context, log *zap.Logger, site domain.MonitoredSite) (domain.SiteResult, error) {
	out := r.Prober.Probe(ctx, site.URL)
	if ctx.Err() != nil {
		log.Warn("site_check_interrupted", zap.String("site_id", string(site.ID)), zap.String("url", site.URL))
		return domain.SiteResult{}, errInterrupted
	}

	tr := Classify(site.Status, out.Reachable)
	res := domain.SiteResult{
		SiteID:         site.ID,
		URL:            site.URL,
		PreviousStatus: site.Status,
		Status:         tr.NewStatus,
		StatusChanged:  tr.Changed,
		Transition:     tr.Kind,
		ResponseTimeMS: out.LatencyMS,
		HTTPStatus:     out.StatusCode,
		Error:          out.FailureDetail,
		CheckedAt:      r.now().UTC(),
	}
	metrics.ChecksTotal.WithLabelValues(strings.ToLower(string(tr.NewStatus))).Inc()
	metrics.TransitionsTotal.WithLabelValues(string(tr.Kind)).Inc()

	err := r.Sites.UpdateSiteStatus(ctx, site.ID, repo.StatusUpdate{
		Status:         tr.NewStatus,
		CheckedAt:      res.CheckedAt,
		ResponseTimeMS: out.LatencyMS,
	})
	if err != nil {
		res.PersistError = err.Error()
		metrics.PersistErrorsTotal.Inc()
		log.Error("persist_error",
			zap.String("site_id", string(site.ID)),
			zap.String("url", site.URL),
			zap.Error(err),
		)
		return res, err
	}

	log.Info("site_checked",
		zap.String("site_id", string(site.ID)),
		zap.String("url", site.URL),
		zap.String("status", tr.NewStatus.String()),
		zap.String("transition", string(tr.Kind)),
		zap.Int64("latency_ms", out.LatencyMS),
		zap.Int("http_status", out.StatusCode),
		zap.String("reason", out.FailureDetail),
	)

	if tr.Kind == domain.TransitionNewlyDown {
		res.Notified = r.alertOwner(ctx, log, site, out.LatencyMS)
	}
	return res, nil
}

func (r *Reconciler) alertOwner(ctx context.Context, log *zap.Logger, site domain.MonitoredSite, latencyMS int64) bool {
	if r.Alerter == nil {
		return false
	}
	var email string
	if r.Users != nil {
		var err error
		email, err = r.Users.UserEmail(ctx, site.UserID)
		if err != nil {
			log.Warn("owner_lookup_error",
				zap.String("site_id", string(site.ID)),
				zap.String("user_id", string(site.UserID)),
				zap.Error(err),
			)
			email = ""
		}
	}
	if email == "" {
		log.Info("alert_skipped_no_email", zap.String("site_id", string(site.ID)), zap.String("user_id", string(site.UserID)))
	}
	return r.Alerter.NotifyDown(ctx, email, site.URL, latencyMS)
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

// sleep waits d or until ctx ends, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
