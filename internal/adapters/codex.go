package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/quotadeck/quotadeck/internal/dispatch"
	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/i18n"
	"github.com/quotadeck/quotadeck/internal/jsonx"
	"github.com/quotadeck/quotadeck/internal/models"
)

// ResetLabelFunc renders a window's raw reset fields into a display
// label. Swappable so frontends can plug their own formatting.
type ResetLabelFunc func(window gjson.Result) string

// CodexConfig holds the usage endpoint and the reset label formatter.
type CodexConfig struct {
	URL        string
	ResetLabel ResetLabelFunc
}

// DefaultCodexConfig returns the production endpoint. ResetLabel stays
// nil so NewCodex can build the default formatter over the adapter's
// translator.
func DefaultCodexConfig() CodexConfig {
	return CodexConfig{
		URL: "https://chatgpt.com/backend-api/wham/usage",
	}
}

// Codex fetches the usage payload in a single GET keyed by the chat
// account id header.
type Codex struct {
	deps Deps
	cfg  CodexConfig
}

func NewCodex(deps Deps, cfg CodexConfig) *Codex {
	deps.fill()
	if cfg.URL == "" {
		cfg.URL = DefaultCodexConfig().URL
	}
	if cfg.ResetLabel == nil {
		cfg.ResetLabel = defaultResetLabel(deps.Translator)
	}
	return &Codex{deps: deps, cfg: cfg}
}

func (c *Codex) Provider() models.ProviderKind {
	return models.ProviderCodex
}

func (c *Codex) Fetch(ctx context.Context, entry models.AuthEntry) (*models.QuotaResult, error) {
	if entry.AuthIndex == "" {
		return nil, &qderrors.ErrMissingAuthIndex{Provider: c.Provider().String()}
	}
	if entry.AccountID == "" {
		return nil, &qderrors.ErrMissingAccountID{Provider: c.Provider().String()}
	}

	resp, err := c.deps.Dispatcher.Send(ctx, c.Provider().String(), dispatch.Request{
		AuthIndex: entry.AuthIndex,
		Method:    http.MethodGet,
		URL:       c.cfg.URL,
		Headers: map[string]string{
			"Chatgpt-Account-Id": entry.AccountID,
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &qderrors.ErrHTTPStatus{
			Provider: c.Provider().String(),
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(resp.Body)),
		}
	}

	if !jsonx.Valid(resp.Body) {
		return nil, &qderrors.ErrEmptyResponse{Provider: c.Provider().String(), Detail: "no usage windows"}
	}
	doc := jsonx.Parse(resp.Body)

	plan := entry.PlanType
	if reported, ok := doc.FirstString("plan_type", "planType", "plan"); ok {
		plan = reported
	}

	quota := &models.CodexQuota{PlanType: models.NormalizePlanType(plan)}

	rateLimit := doc.Get("rate_limit")
	if !rateLimit.Exists() {
		rateLimit = doc.Get("rateLimit")
	}
	codeReview := doc.Get("code_review_rate_limit")
	if !codeReview.Exists() {
		codeReview = doc.Get("codeReviewRateLimit")
	}

	if window, ok := c.buildWindow("primary", "quota.window.primary", rateLimit, "primary_window", "primaryWindow"); ok {
		quota.Windows = append(quota.Windows, window)
	}
	if window, ok := c.buildWindow("secondary", "quota.window.secondary", rateLimit, "secondary_window", "secondaryWindow"); ok {
		quota.Windows = append(quota.Windows, window)
	}
	if window, ok := c.buildWindow("code-review", "quota.window.codeReview", codeReview, "primary_window", "primaryWindow"); ok {
		quota.Windows = append(quota.Windows, window)
	}

	return models.NewCodexResult(quota), nil
}

// buildWindow extracts one window from a rate-limit container. The second
// return is false when the container or window is absent.
func (c *Codex) buildWindow(id, labelKey string, container gjson.Result, windowAliases ...string) (models.QuotaWindow, bool) {
	if !container.Exists() || !container.IsObject() {
		return models.QuotaWindow{}, false
	}

	var window gjson.Result
	for _, alias := range windowAliases {
		if candidate := container.Get(alias); candidate.Exists() && candidate.IsObject() {
			window = candidate
			break
		}
	}
	if !window.Exists() {
		return models.QuotaWindow{}, false
	}

	resetLabel := c.cfg.ResetLabel(window)

	var usedPercent *float64
	if pct, ok := jsonx.FirstFloat(window, "used_percent", "usedPercent"); ok {
		usedPercent = &pct
	} else {
		limitReached, _ := jsonx.FirstBool(window, "limit_reached", "limitReached")
		if !limitReached {
			limitReached, _ = jsonx.FirstBool(container, "limit_reached", "limitReached")
		}
		allowed, hasAllowed := jsonx.FirstBool(container, "allowed")
		disallowed := hasAllowed && !allowed
		// unknown usage plus an exhaustion signal and a concrete
		// reset means the window is spent
		if (limitReached || disallowed) && resetLabel != "" && resetLabel != "-" {
			full := 100.0
			usedPercent = &full
		}
	}

	return models.QuotaWindow{
		ID:          id,
		LabelKey:    labelKey,
		UsedPercent: usedPercent,
		ResetLabel:  resetLabel,
	}, true
}

// defaultResetLabel builds the stock formatter: the window reset moment
// as a relative duration from now, "now" when already past, and "-"
// when unknown, all resolved through the translator.
func defaultResetLabel(t i18n.Translator) ResetLabelFunc {
	return func(window gjson.Result) string {
		resetUnix, ok := jsonx.FirstFloat(window, "reset_at", "resets_at", "resetAt", "resetsAt")
		if !ok || resetUnix <= 0 {
			return t("quota.reset.unknown", nil)
		}
		resetAt := time.Unix(int64(resetUnix), 0)
		remaining := time.Until(resetAt)
		if remaining <= 0 {
			return t("quota.reset.now", nil)
		}
		return t("quota.reset.in", map[string]string{"duration": formatDuration(remaining)})
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "1m"
	}
	days := d / (24 * time.Hour)
	hours := (d % (24 * time.Hour)) / time.Hour
	minutes := (d % time.Hour) / time.Minute
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
