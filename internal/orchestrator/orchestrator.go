// Package orchestrator fans quota fetches out across discovered auth
// entries and writes each resulting state into the keyed cache.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quotadeck/quotadeck/internal/adapters"
	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/metrics"
	"github.com/quotadeck/quotadeck/internal/models"
	"github.com/quotadeck/quotadeck/internal/store"
)

// EntrySource lists the current auth entries. Implemented by the auth
// file manager.
type EntrySource interface {
	Entries() []models.AuthEntry
}

// Recorder persists fetch outcomes. Implemented by the snapshot history;
// optional.
type Recorder interface {
	Record(provider models.ProviderKind, entryKey string, state models.QuotaState) error
}

// MultiRecorder fans each outcome out to several recorders. Failures
// are joined so one recorder cannot hide another's error.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(provider models.ProviderKind, entryKey string, state models.QuotaState) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(provider, entryKey, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Orchestrator drives the fetch cycle for all providers.
type Orchestrator struct {
	regMu       sync.RWMutex
	registry    adapters.Registry
	cache       *store.Cache
	entries     EntrySource
	recorder    Recorder
	metrics     *metrics.Metrics
	logger      *logging.Logger
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a snapshot recorder.
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = recorder
	}
}

// WithMetrics attaches fetch metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithConcurrency bounds the number of in-flight fetches per refresh.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// New creates an Orchestrator over the given adapter registry and cache.
func New(registry adapters.Registry, cache *store.Cache, entries EntrySource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		cache:       cache,
		entries:     entries,
		logger:      logging.NewLogger(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Cache exposes the underlying state cache.
func (o *Orchestrator) Cache() *store.Cache {
	return o.cache
}

// UpdateRegistry swaps the adapter registry. Used when the configuration
// is reloaded; refreshes already in flight keep the adapter they started
// with.
func (o *Orchestrator) UpdateRegistry(registry adapters.Registry) {
	o.regMu.Lock()
	o.registry = registry
	o.regMu.Unlock()
}

func (o *Orchestrator) adapterFor(kind models.ProviderKind) (adapters.Adapter, bool) {
	o.regMu.RLock()
	defer o.regMu.RUnlock()
	return o.registry.For(kind)
}

// RefreshProvider fetches quota for every entry matching the provider.
// Entries run concurrently under the configured bound; one entry's
// failure never aborts its siblings.
func (o *Orchestrator) RefreshProvider(ctx context.Context, kind models.ProviderKind) {
	adapter, ok := o.adapterFor(kind)
	if !ok {
		o.logger.Warn("no adapter registered", "provider", kind.String())
		return
	}

	var matched []models.AuthEntry
	for _, entry := range o.entries.Entries() {
		if kind.Matches(entry) {
			matched = append(matched, entry)
		}
	}
	if o.metrics != nil {
		o.metrics.SetAuthEntries(kind.String(), len(matched))
	}
	if len(matched) == 0 {
		return
	}

	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup
	for _, entry := range matched {
		wg.Add(1)
		sem <- struct{}{}
		go func(entry models.AuthEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			o.fetchOne(ctx, adapter, kind, entry)
		}(entry)
	}
	wg.Wait()
}

// RefreshAll refreshes every provider concurrently.
func (o *Orchestrator) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, kind := range models.AllProviders() {
		wg.Add(1)
		go func(kind models.ProviderKind) {
			defer wg.Done()
			o.RefreshProvider(ctx, kind)
		}(kind)
	}
	wg.Wait()
}

// ClearAll empties the state cache for all providers.
func (o *Orchestrator) ClearAll() {
	o.cache.ClearAll()
	o.logger.Info("quota cache cleared")
}

// Run performs an initial refresh and then polls on the interval until
// the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	o.RefreshAll(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.RefreshAll(ctx)
		}
	}
}

func (o *Orchestrator) fetchOne(ctx context.Context, adapter adapters.Adapter, kind models.ProviderKind, entry models.AuthEntry) {
	key := entry.Key()
	ctx = logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())

	o.cache.Set(kind, key, models.LoadingState())

	started := time.Now()
	result, err := o.safeFetch(ctx, adapter, entry)
	elapsed := time.Since(started)

	state := models.BuildState(result, err)
	o.cache.Set(kind, key, state)

	outcome := "success"
	if state.Kind == models.StateError {
		outcome = "error"
		o.logger.WarnWithContext(ctx, "quota fetch failed",
			"provider", kind.String(), "entry", key,
			"status", state.HTTPStatus, "message", state.Message)
	} else {
		o.logger.DebugWithContext(ctx, "quota fetch complete",
			"provider", kind.String(), "entry", key,
			"elapsed_ms", elapsed.Milliseconds())
	}

	if o.metrics != nil {
		o.metrics.RecordFetch(kind.String(), outcome, elapsed.Seconds())
		publishQuotaGauges(o.metrics, kind, key, state)
	}
	if o.recorder != nil {
		if errRecord := o.recorder.Record(kind, key, state); errRecord != nil {
			o.logger.WarnWithContext(ctx, "snapshot record failed",
				"provider", kind.String(), "entry", key, "error", errRecord.Error())
		}
	}
}

// safeFetch isolates adapter panics so one entry cannot take down the
// whole refresh cycle.
func (o *Orchestrator) safeFetch(ctx context.Context, adapter adapters.Adapter, entry models.AuthEntry) (result *models.QuotaResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return adapter.Fetch(ctx, entry)
}

// publishQuotaGauges maps a successful state onto remaining-fraction
// gauges where the provider reports fractions directly.
func publishQuotaGauges(m *metrics.Metrics, kind models.ProviderKind, key string, state models.QuotaState) {
	if state.Kind != models.StateSuccess || state.Result == nil {
		return
	}
	switch kind {
	case models.ProviderAntigravity:
		for _, group := range state.Result.Antigravity {
			m.SetQuotaRemaining(kind.String(), key, group.ID, group.RemainingFraction)
		}
	case models.ProviderGeminiCLI:
		for _, bucket := range state.Result.Gemini {
			if bucket.RemainingFraction != nil {
				m.SetQuotaRemaining(kind.String(), key, bucket.ID, *bucket.RemainingFraction)
			}
		}
	case models.ProviderCodex:
		if state.Result.Codex != nil {
			for _, window := range state.Result.Codex.Windows {
				if window.UsedPercent != nil {
					m.SetQuotaRemaining(kind.String(), key, window.ID, 1-*window.UsedPercent/100)
				}
			}
		}
	case models.ProviderGithubCopilot:
		if quota := state.Result.Copilot; quota != nil && quota.PremiumPercent != nil {
			m.SetQuotaRemaining(kind.String(), key, "premium", *quota.PremiumPercent/100)
		}
	}
}
