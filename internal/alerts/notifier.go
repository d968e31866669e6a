// Package alerts sends Telegram notifications when a quota pool runs
// low or a provider starts failing.
package alerts

import (
	"fmt"
	"time"

	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/models"
)

// Sender delivers alert text to the configured chat. Implemented by the
// Telegram bot client.
type Sender interface {
	SendMessage(text string) error
}

// Config represents notifier configuration.
type Config struct {
	Enabled     bool
	Threshold   float64
	DedupWindow time.Duration
}

// Notifier watches recorded quota states and raises alerts for low
// remaining fractions and persistent fetch errors. It plugs into the
// orchestrator as a snapshot recorder.
type Notifier struct {
	config Config
	sender Sender
	dedup  *DedupStore
	logger *logging.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the notifier logger.
func WithLogger(logger *logging.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// NewNotifier creates a notifier sending through the given sender.
func NewNotifier(config Config, sender Sender, opts ...Option) *Notifier {
	if config.Threshold <= 0 {
		config.Threshold = 0.05
	}
	n := &Notifier{
		config: config,
		sender: sender,
		dedup:  NewDedupStore(config.DedupWindow),
		logger: logging.NewLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Record inspects one fetch outcome and sends at most one alert for it.
// Loading states are ignored; a success above the threshold re-arms the
// entry's low-quota alert.
func (n *Notifier) Record(provider models.ProviderKind, entryKey string, state models.QuotaState) error {
	if !n.config.Enabled || n.sender == nil {
		return nil
	}

	switch state.Kind {
	case models.StateError:
		n.send(alertKey(provider, entryKey, "error"), fmt.Sprintf(
			"⚠️ %s quota fetch failing for %s: %s",
			provider.String(), entryKey, state.Message))
	case models.StateSuccess:
		lowKey := alertKey(provider, entryKey, "low")
		pool, fraction, ok := lowestRemaining(state.Result)
		if !ok {
			return nil
		}
		if fraction > n.config.Threshold {
			n.dedup.Forget(lowKey)
			return nil
		}
		n.send(lowKey, fmt.Sprintf(
			"🪫 %s quota low for %s: %s at %.1f%% remaining",
			provider.String(), entryKey, pool, fraction*100))
	}
	return nil
}

func (n *Notifier) send(key, text string) {
	if n.dedup.IsDuplicate(key) {
		return
	}
	if err := n.sender.SendMessage(text); err != nil {
		n.logger.Warn("telegram send failed", "error", err.Error())
		return
	}
	n.dedup.Record(key)
}

func alertKey(provider models.ProviderKind, entryKey, kind string) string {
	return provider.String() + "|" + entryKey + "|" + kind
}

// lowestRemaining finds the most exhausted pool in a result. Pools with
// unknown usage are skipped; ok is false when nothing is measurable.
func lowestRemaining(result *models.QuotaResult) (pool string, fraction float64, ok bool) {
	if result == nil {
		return "", 0, false
	}
	best := func(id string, value float64) {
		if !ok || value < fraction {
			pool, fraction, ok = id, value, true
		}
	}

	switch result.Provider {
	case models.ProviderAntigravity:
		for _, group := range result.Antigravity {
			best(group.Label, group.RemainingFraction)
		}
	case models.ProviderCodex:
		if result.Codex != nil {
			for _, window := range result.Codex.Windows {
				if window.UsedPercent != nil {
					best(window.ID, 1-*window.UsedPercent/100)
				}
			}
		}
	case models.ProviderGeminiCLI:
		for _, bucket := range result.Gemini {
			if bucket.RemainingFraction != nil {
				best(bucket.Label, *bucket.RemainingFraction)
			}
		}
	case models.ProviderGithubCopilot:
		if quota := result.Copilot; quota != nil {
			if quota.PremiumPercent != nil {
				best("premium", *quota.PremiumPercent/100)
			}
			if quota.ChatPercent != nil {
				best("chat", *quota.ChatPercent/100)
			}
			if quota.CompletionsPercent != nil {
				best("completions", *quota.CompletionsPercent/100)
			}
		}
	}
	return pool, fraction, ok
}
