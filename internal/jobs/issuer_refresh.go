package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"slotbook/backend/internal/auth"
)

type Discoverer interface {
	Discover(ctx context.Context, fresh bool) ([]auth.Provider, error)
}

// IssuerRefresh re-runs federated discovery and swaps the result into the
// registry next to the static providers. A failed run leaves the previous
// set in place.
type IssuerRefresh struct {
	registry   *auth.Registry
	static     []auth.Provider
	discoverer Discoverer
	timeout    time.Duration
	log        *slog.Logger

	// OnResult, when set, receives "ok" or "error" and the issuer count
	// after the run.
	OnResult func(result string, issuers int)
}

func NewIssuerRefresh(registry *auth.Registry, static []auth.Provider, d Discoverer, timeout time.Duration, log *slog.Logger) *IssuerRefresh {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IssuerRefresh{
		registry:   registry,
		static:     append([]auth.Provider(nil), static...),
		discoverer: d,
		timeout:    timeout,
		log:        log.With(slog.String("component", "jobs.issuer_refresh")),
	}
}

func (j *IssuerRefresh) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	discovered, err := j.discoverer.Discover(ctx, true)
	if err != nil {
		j.log.Warn("issuer refresh failed; keeping previous issuers", slog.Any("err", err), slog.Int("issuers", j.registry.Len()))
		j.report("error")
		return err
	}

	next := make([]auth.Provider, 0, len(j.static)+len(discovered))
	next = append(next, j.static...)
	next = append(next, discovered...)
	j.registry.Replace(next)

	j.log.Info("issuers refreshed", slog.Any("issuers", j.registry.Issuers()))
	j.report("ok")
	return nil
}

func (j *IssuerRefresh) report(result string) {
	if j.OnResult != nil {
		j.OnResult(result, j.registry.Len())
	}
}

// Schedule registers job on a new cron scheduler. The caller starts and
// stops the returned scheduler.
func Schedule(spec string, job *IssuerRefresh) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		_ = job.Run(context.Background())
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
