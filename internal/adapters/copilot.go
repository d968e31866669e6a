package adapters

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/quotadeck/quotadeck/internal/dispatch"
	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/jsonx"
	"github.com/quotadeck/quotadeck/internal/models"
)

// CopilotConfig holds the Copilot internal user endpoint.
type CopilotConfig struct {
	URL string
}

func DefaultCopilotConfig() CopilotConfig {
	return CopilotConfig{URL: "https://api.github.com/copilot_internal/user"}
}

// skuAliases is the ordered list of field names that have carried the
// plan label across payload generations.
var skuAliases = []string{
	"access_type_sku",
	"accessTypeSku",
	"sku",
	"copilot_plan",
	"copilotPlan",
	"plan",
	"plan_type",
	"access_type",
	"subscription_type",
	"assigned_plan",
}

// Copilot fetches the internal user record in a single GET. Once the
// payload parses, extraction never fails; absent data stays absent.
type Copilot struct {
	deps Deps
	cfg  CopilotConfig
}

func NewCopilot(deps Deps, cfg CopilotConfig) *Copilot {
	deps.fill()
	if cfg.URL == "" {
		cfg.URL = DefaultCopilotConfig().URL
	}
	return &Copilot{deps: deps, cfg: cfg}
}

func (c *Copilot) Provider() models.ProviderKind {
	return models.ProviderGithubCopilot
}

func (c *Copilot) Fetch(ctx context.Context, entry models.AuthEntry) (*models.QuotaResult, error) {
	if entry.AuthIndex == "" {
		return nil, &qderrors.ErrMissingAuthIndex{Provider: c.Provider().String()}
	}

	resp, err := c.deps.Dispatcher.Send(ctx, c.Provider().String(), dispatch.Request{
		AuthIndex: entry.AuthIndex,
		Method:    http.MethodGet,
		URL:       c.cfg.URL,
		Headers: map[string]string{
			"Editor-Version": "vscode/1.96.0",
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
		return nil, &qderrors.ErrEmptyResponse{Provider: c.Provider().String(), Detail: "invalid user payload"}
	}
	doc := jsonx.Parse(resp.Body)

	quota := &models.CopilotQuota{}

	if expires, ok := doc.FirstFloat("expires_at", "expiresAt"); ok {
		quota.ExpiresAt = &expires
	}
	if refresh, ok := doc.FirstFloat("refresh_in", "refreshIn"); ok {
		quota.RefreshIn = &refresh
	}

	snapshots := doc.Get("quota_snapshots")
	if snapshots.Exists() && snapshots.IsObject() {
		if chat := snapshots.Get("chat"); chat.Exists() && chat.IsObject() {
			quota.ChatQuota = snapshotQuota(chat)
			quota.ChatPercent = snapshotPercent(chat)
			quota.ChatUnlimited = snapshotUnlimited(chat)
		}
		if completions := snapshots.Get("completions"); completions.Exists() && completions.IsObject() {
			quota.CompletionsQuota = snapshotQuota(completions)
			quota.CompletionsPercent = snapshotPercent(completions)
			quota.CompletionsUnlimited = snapshotUnlimited(completions)
		}
		if premium := snapshots.Get("premium_interactions"); premium.Exists() && premium.IsObject() {
			quota.PremiumQuota = snapshotQuota(premium)
			quota.PremiumPercent = snapshotPercent(premium)
			if entitlement, ok := jsonx.FirstFloat(premium, "entitlement", "quota_entitlement"); ok {
				quota.PremiumEntitlement = &entitlement
			}
		}
	}

	legacy := doc.Get("limited_user_quotas")
	if legacy.Exists() && legacy.IsObject() {
		if quota.ChatQuota == nil {
			if chat, ok := jsonx.FirstFloat(legacy, "chat"); ok {
				quota.ChatQuota = &chat
			}
		}
		if quota.CompletionsQuota == nil {
			if completions, ok := jsonx.FirstFloat(legacy, "completions"); ok {
				quota.CompletionsQuota = &completions
			}
		}
	}

	quota.QuotaResetDate = resolveResetDate(doc)

	if sku, ok := doc.FirstString(skuAliases...); ok {
		quota.SKU = sku
	}

	return models.NewCopilotResult(quota), nil
}

func snapshotQuota(node gjson.Result) *float64 {
	if value, ok := jsonx.FirstFloat(node, "quota_remaining", "remaining", "quota"); ok {
		return &value
	}
	return nil
}

func snapshotPercent(node gjson.Result) *float64 {
	if value, ok := jsonx.FirstFloat(node, "percent_remaining", "quota_percent_remaining", "percent"); ok {
		return &value
	}
	return nil
}

func snapshotUnlimited(node gjson.Result) *bool {
	if value, ok := jsonx.FirstBool(node, "unlimited"); ok {
		return &value
	}
	return nil
}

// resolveResetDate prefers the ISO date string, treating unparsable
// values as absent, and falls back to the legacy numeric field.
func resolveResetDate(doc jsonx.Doc) *int64 {
	if raw, ok := doc.FirstString("quota_reset_date", "quotaResetDate"); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, raw); err == nil {
				unix := parsed.Unix()
				return &unix
			}
		}
	}
	if legacy, ok := doc.FirstFloat("limited_user_reset_date", "limitedUserResetDate"); ok {
		unix := int64(legacy)
		return &unix
	}
	return nil
}
