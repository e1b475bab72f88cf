package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/metrics"
)

const senderName = "Uptime Monitor"

var downTmpl = template.Must(template.New("down").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #dc2626;">&#x1F6A8; Website Down Alert</h2>
  <p>We detected that your website is currently down:</p>
  <div style="background: #f3f4f6; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <strong>Website:</strong> {{.URL}}<br>
    <strong>Detected at:</strong> {{.DetectedAt}}<br>
    <strong>Response time:</strong> {{.Latency}}
  </div>
  <p>Our monitoring system will continue to check your website and notify you when it comes back online.</p>
  <hr style="margin: 20px 0; border: none; border-top: 1px solid #e5e7eb;">
  <p style="color: #6b7280; font-size: 12px;">This is an automated alert from your Uptime Monitor dashboard.</p>
</div>
`))

type downView struct {
	URL        string
	DetectedAt string
	Latency    string
}

// DownAlerter emails a site owner when their site goes down and mirrors the
// alert to the optional ops channel.
type DownAlerter struct {
	Mailer Mailer
	From   string
	Ops    Notifier
	Logger *zap.Logger
	Now    func() time.Time
}

func NewDownAlerter(logger *zap.Logger, mailer Mailer, from string, ops Notifier) *DownAlerter {
	return &DownAlerter{Mailer: mailer, From: from, Ops: ops, Logger: logger, Now: time.Now}
}

// Enabled reports whether email delivery is configured.
func (a *DownAlerter) Enabled() bool {
	return a != nil && a.Mailer != nil && a.From != ""
}

// NotifyDown makes one email delivery attempt and reports whether it
// succeeded. The ops channel hears about every call, including those where no
// email can go out because delivery is disabled or to is empty.
// latencyMS <= 0 is rendered as "N/A".
func (a *DownAlerter) NotifyDown(ctx context.Context, to, siteURL string, latencyMS int64) bool {
	if a == nil {
		return false
	}
	detected := a.now().UTC()
	view := downView{
		URL:        siteURL,
		DetectedAt: detected.Format("2006-01-02 15:04:05 MST"),
		Latency:    formatLatency(latencyMS),
	}
	sent := a.email(ctx, to, view)

	if a.Ops != nil {
		owner := to
		if owner == "" {
			owner = "(no email)"
		}
		text := fmt.Sprintf("URL: %s\nLatency: %s\nDetected: %s\nOwner: %s\nEmailed: %t",
			siteURL, view.Latency, detected.Format(time.RFC3339), owner, sent)
		if err := a.Ops.Send(ctx, "🔴 Site DOWN", text); err != nil {
			a.Logger.Warn("ops_notify_error", zap.String("url", siteURL), zap.Error(err))
		}
	}
	return sent
}

func (a *DownAlerter) email(ctx context.Context, to string, view downView) bool {
	if !a.Enabled() || to == "" {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return false
	}

	var body bytes.Buffer
	if err := downTmpl.Execute(&body, view); err != nil {
		a.Logger.Error("alert_render_error", zap.String("url", view.URL), zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return false
	}

	msg := Message{
		From:    fmt.Sprintf("%s <%s>", senderName, a.From),
		To:      to,
		Subject: fmt.Sprintf("🚨 Website Alert: %s is Down", view.URL),
		HTML:    body.String(),
	}
	if err := a.Mailer.Send(ctx, msg); err != nil {
		a.Logger.Warn("alert_send_error",
			zap.String("url", view.URL),
			zap.String("to", to),
			zap.Error(err),
		)
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return false
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	a.Logger.Info("alert_sent", zap.String("url", view.URL), zap.String("to", to))
	return true
}

func (a *DownAlerter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func formatLatency(ms int64) string {
	if ms <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%dms", ms)
}
