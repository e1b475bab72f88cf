package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/sitewatch/internal/metrics"
)

const (
	DefaultHeadTimeout = 10 * time.Second
	DefaultGetTimeout  = 15 * time.Second

	UserAgent = "Mozilla/5.0 (compatible; UptimeMonitor/1.0)"

	maxRedirects = 10
	maxDrain     = 1 << 20 // 1MB
)

type HTTPProber struct {
	Client      *http.Client
	HeadTimeout time.Duration
	GetTimeout  time.Duration
	UserAgent   string
}

// NewHTTPProber builds a prober whose timeouts are applied per request via
// context; the client itself has no global timeout.
func NewHTTPProber(headTimeout, getTimeout time.Duration) *HTTPProber {
	if headTimeout <= 0 {
		headTimeout = DefaultHeadTimeout
	}
	if getTimeout <= 0 {
		getTimeout = DefaultGetTimeout
	}
	return &HTTPProber{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     60 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		HeadTimeout: headTimeout,
		GetTimeout:  getTimeout,
		UserAgent:   UserAgent,
	}
}

type attempt struct {
	ok     bool
	status int
	detail string
}

// Probe issues a HEAD and, only if that is not ok, a GET.
func (p *HTTPProber) Probe(ctx context.Context, target string) Outcome {
	start := time.Now()

	head := p.do(ctx, http.MethodHead, target, p.HeadTimeout)
	if head.ok {
		return Outcome{
			Reachable:  true,
			LatencyMS:  sinceMS(start),
			StatusCode: head.status,
			Method:     http.MethodHead,
		}
	}

	get := p.do(ctx, http.MethodGet, target, p.GetTimeout)
	out := Outcome{
		Reachable:  get.ok,
		LatencyMS:  sinceMS(start),
		StatusCode: get.status,
		Method:     http.MethodGet,
	}
	if !get.ok {
		out.FailureDetail = get.detail
	}
	return out
}

func (p *HTTPProber) do(ctx context.Context, method, target string, timeout time.Duration) attempt {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res := p.send(ctx, method, target, timeout)
	metrics.ProbeDuration.WithLabelValues(method, strconv.FormatBool(res.ok)).Observe(time.Since(start).Seconds())
	return res
}

func (p *HTTPProber) send(ctx context.Context, method, target string, timeout time.Duration) attempt {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return attempt{detail: err.Error()}
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return attempt{detail: fmt.Sprintf("%s %s: timed out after %s", method, target, timeout)}
		}
		return attempt{detail: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 400
	a := attempt{ok: ok, status: resp.StatusCode}
	if !ok {
		a.detail = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, statusText(resp))
	}
	return a
}

// statusText prefers the reason phrase the server sent.
func statusText(resp *http.Response) string {
	if txt := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); txt != "" {
		return txt
	}
	return http.StatusText(resp.StatusCode)
}

func sinceMS(t time.Time) int64 { return time.Since(t).Milliseconds() }
