package models

import (
	"strings"
	"time"

	"github.com/quotadeck/quotadeck/internal/jsonx"
)

// PlanType is the normalized subscription tier reported by Codex.
type PlanType string

const (
	PlanFree  PlanType = "free"
	PlanPlus  PlanType = "plus"
	PlanTeam  PlanType = "team"
	PlanOther PlanType = "other"
)

// NormalizePlanType maps a raw plan string to a PlanType. Empty input
// yields an empty PlanType, meaning "unknown" rather than "other".
func NormalizePlanType(raw string) PlanType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "free":
		return PlanFree
	case "plus", "pro":
		return PlanPlus
	case "team", "business", "enterprise":
		return PlanTeam
	default:
		return PlanOther
	}
}

// QuotaGroup is one Antigravity quota pool: a set of models sharing a
// remaining fraction and reset time.
type QuotaGroup struct {
	ID                string     `json:"id"`
	Label             string     `json:"label"`
	Models            []string   `json:"models"`
	RemainingFraction float64    `json:"remaining_fraction"`
	ResetTime         *time.Time `json:"reset_time,omitempty"`
}

// QuotaWindow is one Codex rate-limit window. UsedPercent stays nil when
// the payload reports nothing usable; nil and zero are different states.
type QuotaWindow struct {
	ID          string   `json:"id"`
	LabelKey    string   `json:"label_key"`
	UsedPercent *float64 `json:"used_percent,omitempty"`
	ResetLabel  string   `json:"reset_label"`
}

// CodexQuota is the canonical Codex result: plan tier plus up to three
// windows (primary, secondary, code review).
type CodexQuota struct {
	PlanType PlanType      `json:"plan_type,omitempty"`
	Windows  []QuotaWindow `json:"windows"`
}

// QuotaBucket is one Gemini CLI usage bucket after normalization.
type QuotaBucket struct {
	ID                string   `json:"id"`
	Label             string   `json:"label"`
	ModelIDs          []string `json:"model_ids"`
	TokenType         string   `json:"token_type,omitempty"`
	RemainingFraction *float64 `json:"remaining_fraction,omitempty"`
	RemainingAmount   *float64 `json:"remaining_amount,omitempty"`
	ResetTime         string   `json:"reset_time,omitempty"`
}

// CopilotQuota is the flat GitHub Copilot record. Every field is optional;
// "no data" is all fields nil, never an error.
type CopilotQuota struct {
	ChatQuota            *float64 `json:"chat_quota,omitempty"`
	ChatPercent          *float64 `json:"chat_percent,omitempty"`
	ChatUnlimited        *bool    `json:"chat_unlimited,omitempty"`
	CompletionsQuota     *float64 `json:"completions_quota,omitempty"`
	CompletionsPercent   *float64 `json:"completions_percent,omitempty"`
	CompletionsUnlimited *bool    `json:"completions_unlimited,omitempty"`
	PremiumQuota         *float64 `json:"premium_quota,omitempty"`
	PremiumPercent       *float64 `json:"premium_percent,omitempty"`
	PremiumEntitlement   *float64 `json:"premium_entitlement,omitempty"`
	ExpiresAt            *float64 `json:"expires_at,omitempty"`
	RefreshIn            *float64 `json:"refresh_in,omitempty"`
	QuotaResetDate       *int64   `json:"quota_reset_date,omitempty"`
	SKU                  string   `json:"sku,omitempty"`
}

// QuotaResult is the per-provider sum type: exactly one variant is set,
// selected by Provider.
type QuotaResult struct {
	Provider    ProviderKind  `json:"provider"`
	Antigravity []QuotaGroup  `json:"antigravity,omitempty"`
	Codex       *CodexQuota   `json:"codex,omitempty"`
	Gemini      []QuotaBucket `json:"gemini,omitempty"`
	Copilot     *CopilotQuota `json:"copilot,omitempty"`
}

// NewAntigravityResult wraps quota groups, clamping every fraction into
// [0,1] before it is surfaced.
func NewAntigravityResult(groups []QuotaGroup) *QuotaResult {
	for i := range groups {
		groups[i].RemainingFraction = jsonx.ClampFraction(groups[i].RemainingFraction)
	}
	if groups == nil {
		groups = []QuotaGroup{}
	}
	return &QuotaResult{Provider: ProviderAntigravity, Antigravity: groups}
}

// NewCodexResult wraps a Codex quota, clamping window percentages.
func NewCodexResult(quota *CodexQuota) *QuotaResult {
	if quota != nil {
		for i := range quota.Windows {
			if quota.Windows[i].UsedPercent != nil {
				clamped := jsonx.ClampPercent(*quota.Windows[i].UsedPercent)
				quota.Windows[i].UsedPercent = &clamped
			}
		}
	}
	return &QuotaResult{Provider: ProviderCodex, Codex: quota}
}

// NewGeminiResult wraps Gemini buckets, clamping known fractions.
func NewGeminiResult(buckets []QuotaBucket) *QuotaResult {
	for i := range buckets {
		if buckets[i].RemainingFraction != nil {
			clamped := jsonx.ClampFraction(*buckets[i].RemainingFraction)
			buckets[i].RemainingFraction = &clamped
		}
	}
	if buckets == nil {
		buckets = []QuotaBucket{}
	}
	return &QuotaResult{Provider: ProviderGeminiCLI, Gemini: buckets}
}

// NewCopilotResult wraps a Copilot record, clamping known percentages.
func NewCopilotResult(quota *CopilotQuota) *QuotaResult {
	if quota != nil {
		for _, pct := range []**float64{&quota.ChatPercent, &quota.CompletionsPercent, &quota.PremiumPercent} {
			if *pct != nil {
				clamped := jsonx.ClampPercent(**pct)
				*pct = &clamped
			}
		}
	}
	return &QuotaResult{Provider: ProviderGithubCopilot, Copilot: quota}
}
