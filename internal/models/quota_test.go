package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qderrors "github.com/quotadeck/quotadeck/internal/errors"
)

func TestNormalizePlanType(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want PlanType
	}{
		{"free", "free", PlanFree},
		{"plus", "plus", PlanPlus},
		{"pro maps to plus", "Pro", PlanPlus},
		{"team", "team", PlanTeam},
		{"enterprise maps to team", "ENTERPRISE", PlanTeam},
		{"unknown maps to other", "legacy-tier", PlanOther},
		{"empty stays empty", "", PlanType("")},
		{"whitespace only", "   ", PlanType("")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePlanType(tc.raw))
		})
	}
}

func TestNewAntigravityResultClampsFractions(t *testing.T) {
	res := NewAntigravityResult([]QuotaGroup{
		{ID: "over", RemainingFraction: 1.7},
		{ID: "under", RemainingFraction: -0.2},
		{ID: "ok", RemainingFraction: 0.41},
	})

	require.Equal(t, ProviderAntigravity, res.Provider)
	require.Len(t, res.Antigravity, 3)
	assert.Equal(t, 1.0, res.Antigravity[0].RemainingFraction)
	assert.Equal(t, 0.0, res.Antigravity[1].RemainingFraction)
	assert.Equal(t, 0.41, res.Antigravity[2].RemainingFraction)
}

func TestNewAntigravityResultEmptyGroups(t *testing.T) {
	res := NewAntigravityResult(nil)
	require.NotNil(t, res.Antigravity)
	assert.Empty(t, res.Antigravity)
}

func TestNewCodexResultClampsPercent(t *testing.T) {
	over := 140.0
	under := -3.0
	res := NewCodexResult(&CodexQuota{
		PlanType: PlanPlus,
		Windows: []QuotaWindow{
			{ID: "primary", UsedPercent: &over},
			{ID: "secondary", UsedPercent: &under},
			{ID: "code-review", UsedPercent: nil},
		},
	})

	require.Equal(t, ProviderCodex, res.Provider)
	require.NotNil(t, res.Codex)
	assert.Equal(t, 100.0, *res.Codex.Windows[0].UsedPercent)
	assert.Equal(t, 0.0, *res.Codex.Windows[1].UsedPercent)
	assert.Nil(t, res.Codex.Windows[2].UsedPercent)
}

func TestNewGeminiResultKeepsNilFraction(t *testing.T) {
	frac := 2.5
	res := NewGeminiResult([]QuotaBucket{
		{ID: "pro", RemainingFraction: &frac},
		{ID: "flash"},
	})

	require.Equal(t, ProviderGeminiCLI, res.Provider)
	assert.Equal(t, 1.0, *res.Gemini[0].RemainingFraction)
	assert.Nil(t, res.Gemini[1].RemainingFraction)
}

func TestNewCopilotResultClampsPercents(t *testing.T) {
	chat := 101.0
	premium := -1.0
	res := NewCopilotResult(&CopilotQuota{ChatPercent: &chat, PremiumPercent: &premium})

	require.Equal(t, ProviderGithubCopilot, res.Provider)
	assert.Equal(t, 100.0, *res.Copilot.ChatPercent)
	assert.Equal(t, 0.0, *res.Copilot.PremiumPercent)
	assert.Nil(t, res.Copilot.CompletionsPercent)
}

func TestBuildState(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		res := NewCodexResult(&CodexQuota{})
		state := BuildState(res, nil)
		assert.Equal(t, StateSuccess, state.Kind)
		assert.Same(t, res, state.Result)
		assert.False(t, state.UpdatedAt.IsZero())
	})

	t.Run("error carries http status", func(t *testing.T) {
		err := &qderrors.ErrHTTPStatus{Provider: "codex", Status: 429, Message: "rate limited"}
		state := BuildState(nil, err)
		assert.Equal(t, StateError, state.Kind)
		assert.Equal(t, 429, state.HTTPStatus)
		assert.Contains(t, state.Message, "rate limited")
	})

	t.Run("transport error without status", func(t *testing.T) {
		err := &qderrors.ErrTransport{Provider: "gemini-cli", Err: assert.AnError}
		state := BuildState(nil, err)
		assert.Equal(t, StateError, state.Kind)
		assert.Zero(t, state.HTTPStatus)
	})

	t.Run("nil result without error", func(t *testing.T) {
		state := BuildState(nil, nil)
		assert.Equal(t, StateError, state.Kind)
		assert.NotEmpty(t, state.Message)
	})
}

func TestParseProviderAliases(t *testing.T) {
	tests := []struct {
		raw  string
		want ProviderKind
		ok   bool
	}{
		{"antigravity", ProviderAntigravity, true},
		{"codex", ProviderCodex, true},
		{"gemini", ProviderGeminiCLI, true},
		{"gemini-cli", ProviderGeminiCLI, true},
		{"copilot", ProviderGithubCopilot, true},
		{"GitHub-Copilot", ProviderGithubCopilot, true},
		{"github", ProviderGithubCopilot, true},
		{"openai", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseProvider(tc.raw)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAuthEntryKey(t *testing.T) {
	entry := AuthEntry{Kind: "codex", Email: "Dev+Test@Example.com"}
	key := entry.Key()
	assert.NotContains(t, key, "@")
	assert.NotContains(t, key, "+")
	assert.Contains(t, key, "codex_")

	named := AuthEntry{Kind: "antigravity", Name: "work.json", Email: "x@y.z"}
	assert.Contains(t, named.Key(), "work_json")
}
