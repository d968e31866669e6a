package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotadeck/quotadeck/internal/models"
)

type fakeSender struct {
	messages []string
}

func (f *fakeSender) SendMessage(text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func newTestNotifier(sender Sender) *Notifier {
	return NewNotifier(Config{
		Enabled:     true,
		Threshold:   0.1,
		DedupWindow: time.Hour,
	}, sender)
}

func TestNotifierLowQuotaAlert(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	state := models.SuccessState(models.NewAntigravityResult([]models.QuotaGroup{
		{ID: "gemini-3-pro", Label: "Gemini 3 Pro", RemainingFraction: 0.03},
		{ID: "claude-gpt", Label: "Claude/GPT", RemainingFraction: 0.9},
	}))

	require.NoError(t, n.Record(models.ProviderAntigravity, "agent-1", state))
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "Gemini 3 Pro")
	assert.Contains(t, sender.messages[0], "3.0%")
}

func TestNotifierAboveThresholdStaysSilent(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	state := models.SuccessState(models.NewAntigravityResult([]models.QuotaGroup{
		{ID: "claude-gpt", Label: "Claude/GPT", RemainingFraction: 0.5},
	}))

	require.NoError(t, n.Record(models.ProviderAntigravity, "agent-1", state))
	assert.Empty(t, sender.messages)
}

func TestNotifierDeduplicatesRepeats(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	state := models.SuccessState(models.NewGeminiResult([]models.QuotaBucket{
		{ID: "gemini-3-pro", Label: "Gemini 3 Pro", RemainingFraction: floatPtr(0.01)},
	}))

	require.NoError(t, n.Record(models.ProviderGeminiCLI, "g-1", state))
	require.NoError(t, n.Record(models.ProviderGeminiCLI, "g-1", state))
	assert.Len(t, sender.messages, 1)
}

func TestNotifierRearmsAfterRecovery(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	low := models.SuccessState(models.NewGeminiResult([]models.QuotaBucket{
		{ID: "gemini-3-pro", Label: "Gemini 3 Pro", RemainingFraction: floatPtr(0.01)},
	}))
	recovered := models.SuccessState(models.NewGeminiResult([]models.QuotaBucket{
		{ID: "gemini-3-pro", Label: "Gemini 3 Pro", RemainingFraction: floatPtr(0.8)},
	}))

	require.NoError(t, n.Record(models.ProviderGeminiCLI, "g-1", low))
	require.NoError(t, n.Record(models.ProviderGeminiCLI, "g-1", recovered))
	require.NoError(t, n.Record(models.ProviderGeminiCLI, "g-1", low))
	assert.Len(t, sender.messages, 2)
}

func TestNotifierErrorState(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	state := models.ErrorState("HTTP 401: unauthorized", 401)
	require.NoError(t, n.Record(models.ProviderCodex, "codex-1", state))
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "codex-1")
	assert.Contains(t, sender.messages[0], "unauthorized")
}

func TestNotifierIgnoresLoadingAndDisabled(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)
	require.NoError(t, n.Record(models.ProviderCodex, "codex-1", models.LoadingState()))
	assert.Empty(t, sender.messages)

	disabled := NewNotifier(Config{Enabled: false}, sender)
	require.NoError(t, disabled.Record(models.ProviderCodex, "codex-1", models.ErrorState("boom", 0)))
	assert.Empty(t, sender.messages)
}

func TestLowestRemainingPicksWorstPool(t *testing.T) {
	codex := models.NewCodexResult(&models.CodexQuota{Windows: []models.QuotaWindow{
		{ID: "primary", UsedPercent: floatPtr(40)},
		{ID: "secondary", UsedPercent: floatPtr(97)},
		{ID: "codeReview"},
	}})

	pool, fraction, ok := lowestRemaining(codex)
	require.True(t, ok)
	assert.Equal(t, "secondary", pool)
	assert.InDelta(t, 0.03, fraction, 1e-9)
}

func TestLowestRemainingUnknownUsage(t *testing.T) {
	codex := models.NewCodexResult(&models.CodexQuota{Windows: []models.QuotaWindow{
		{ID: "primary"},
	}})
	_, _, ok := lowestRemaining(codex)
	assert.False(t, ok)

	copilot := models.NewCopilotResult(&models.CopilotQuota{})
	_, _, ok = lowestRemaining(copilot)
	assert.False(t, ok)
}

func TestDedupStoreWindow(t *testing.T) {
	d := NewDedupStore(50 * time.Millisecond)
	d.Record("k")
	assert.True(t, d.IsDuplicate("k"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, d.IsDuplicate("k"))

	d.Cleanup()
	assert.Equal(t, 0, d.Size())
}
