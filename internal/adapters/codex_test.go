package adapters

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/i18n"
	"github.com/quotadeck/quotadeck/internal/models"
)

func codexEntry() models.AuthEntry {
	return models.AuthEntry{
		Name:      "codex.json",
		AuthIndex: "/auths/codex.json",
		Kind:      "codex",
		AccountID: "acct-1",
		PlanType:  "free",
	}
}

func codexConfig() CodexConfig {
	return CodexConfig{
		URL: "https://usage.example.com",
		ResetLabel: func(window gjson.Result) string {
			return window.Get("label").String()
		},
	}
}

func TestCodexRequiredFields(t *testing.T) {
	adapter := NewCodex(Deps{Dispatcher: &fakeDispatcher{}}, codexConfig())

	_, err := adapter.Fetch(context.Background(), models.AuthEntry{Kind: "codex", AccountID: "a"})
	var missingAuth *qderrors.ErrMissingAuthIndex
	require.ErrorAs(t, err, &missingAuth)

	_, err = adapter.Fetch(context.Background(), models.AuthEntry{Kind: "codex", AuthIndex: "/a.json"})
	var missingAccount *qderrors.ErrMissingAccountID
	require.ErrorAs(t, err, &missingAccount)
}

func TestCodexSendsAccountHeader(t *testing.T) {
	fd := &fakeDispatcher{responses: []scripted{{status: 200, body: `{"rate_limit": {}}`}}}
	adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

	_, err := adapter.Fetch(context.Background(), codexEntry())
	require.NoError(t, err)
	require.Len(t, fd.calls, 1)
	assert.Equal(t, "acct-1", fd.calls[0].Headers["Chatgpt-Account-Id"])
	assert.Equal(t, "GET", fd.calls[0].Method)
}

func TestCodexNonOKFailsFast(t *testing.T) {
	fd := &fakeDispatcher{responses: []scripted{{status: 429, body: "rate limited"}}}
	adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

	_, err := adapter.Fetch(context.Background(), codexEntry())
	require.Error(t, err)
	assert.Equal(t, 429, qderrors.HTTPStatusOf(err))
	assert.Len(t, fd.calls, 1, "no retry on non-2xx")
}

func TestCodexUnparsablePayload(t *testing.T) {
	fd := &fakeDispatcher{responses: []scripted{{status: 200, body: "not json"}}}
	adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

	_, err := adapter.Fetch(context.Background(), codexEntry())
	var empty *qderrors.ErrEmptyResponse
	require.ErrorAs(t, err, &empty)
}

func TestCodexPayloadPlanOverridesStoredPlan(t *testing.T) {
	fd := &fakeDispatcher{responses: []scripted{{status: 200, body: `{"plan_type": "plus", "rate_limit": {}}`}}}
	adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

	result, err := adapter.Fetch(context.Background(), codexEntry())
	require.NoError(t, err)
	assert.Equal(t, models.PlanPlus, result.Codex.PlanType)
}

func TestCodexStoredPlanFallback(t *testing.T) {
	fd := &fakeDispatcher{responses: []scripted{{status: 200, body: `{"rate_limit": {}}`}}}
	adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

	result, err := adapter.Fetch(context.Background(), codexEntry())
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, result.Codex.PlanType)
}

func TestCodexBuildsThreeWindows(t *testing.T) {
	body := `{
		"plan_type": "plus",
		"rate_limit": {
			"allowed": true,
			"primary_window":   {"used_percent": 37.5, "label": "in 2h"},
			"secondary_window": {"used_percent": 12,   "label": "in 5d"}
		},
		"code_review_rate_limit": {
			"primary_window": {"used_percent": 80, "label": "in 1h"}
		}
	}`
	fd := &fakeDispatcher{responses: []scripted{{status: 200, body: body}}}
	adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

	result, err := adapter.Fetch(context.Background(), codexEntry())
	require.NoError(t, err)
	require.Len(t, result.Codex.Windows, 3)

	assert.Equal(t, "primary", result.Codex.Windows[0].ID)
	assert.Equal(t, "quota.window.primary", result.Codex.Windows[0].LabelKey)
	assert.Equal(t, 37.5, *result.Codex.Windows[0].UsedPercent)
	assert.Equal(t, "in 2h", result.Codex.Windows[0].ResetLabel)

	assert.Equal(t, "secondary", result.Codex.Windows[1].ID)
	assert.Equal(t, "code-review", result.Codex.Windows[2].ID)
	assert.Equal(t, 80.0, *result.Codex.Windows[2].UsedPercent)
}

func TestCodexSynthesizesFullUsage(t *testing.T) {
	t.Run("limit reached with reset label", func(t *testing.T) {
		body := `{"rate_limit": {"primary_window": {"limit_reached": true, "label": "in 3h"}}}`
		fd := &fakeDispatcher{responses: []scripted{{status: 200, body: body}}}
		adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

		result, err := adapter.Fetch(context.Background(), codexEntry())
		require.NoError(t, err)
		require.Len(t, result.Codex.Windows, 1)
		require.NotNil(t, result.Codex.Windows[0].UsedPercent)
		assert.Equal(t, 100.0, *result.Codex.Windows[0].UsedPercent)
	})

	t.Run("limit reached without reset label stays unknown", func(t *testing.T) {
		body := `{"rate_limit": {"primary_window": {"limit_reached": true}}}`
		fd := &fakeDispatcher{responses: []scripted{{status: 200, body: body}}}
		adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

		result, err := adapter.Fetch(context.Background(), codexEntry())
		require.NoError(t, err)
		require.Len(t, result.Codex.Windows, 1)
		assert.Nil(t, result.Codex.Windows[0].UsedPercent)
	})

	t.Run("disallowed rate limit with reset label", func(t *testing.T) {
		body := `{"rate_limit": {"allowed": false, "primary_window": {"label": "in 1d"}}}`
		fd := &fakeDispatcher{responses: []scripted{{status: 200, body: body}}}
		adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

		result, err := adapter.Fetch(context.Background(), codexEntry())
		require.NoError(t, err)
		require.Len(t, result.Codex.Windows, 1)
		assert.Equal(t, 100.0, *result.Codex.Windows[0].UsedPercent)
	})

	t.Run("no exhaustion signal stays unknown", func(t *testing.T) {
		body := `{"rate_limit": {"allowed": true, "primary_window": {"label": "in 1d"}}}`
		fd := &fakeDispatcher{responses: []scripted{{status: 200, body: body}}}
		adapter := NewCodex(Deps{Dispatcher: fd}, codexConfig())

		result, err := adapter.Fetch(context.Background(), codexEntry())
		require.NoError(t, err)
		assert.Nil(t, result.Codex.Windows[0].UsedPercent)
	})
}

func TestDefaultResetLabel(t *testing.T) {
	label := defaultResetLabel(i18n.Default())

	future := time.Now().Add(2*time.Hour + 31*time.Minute).Unix()
	window := gjson.Parse(fmt.Sprintf(`{"reset_at": %d}`, future))
	assert.Contains(t, label(window), "in ")

	past := gjson.Parse(fmt.Sprintf(`{"reset_at": %d}`, time.Now().Add(-time.Hour).Unix()))
	assert.Equal(t, "now", label(past))

	assert.Equal(t, "-", label(gjson.Parse(`{}`)))
}

func TestResetLabelUsesAdapterTranslator(t *testing.T) {
	translated := func(key string, params map[string]string) string {
		if key == "quota.reset.now" {
			return "jetzt"
		}
		return key
	}
	body := fmt.Sprintf(`{"rate_limit": {"primary_window": {"used_percent": 10, "reset_at": %d}}}`,
		time.Now().Add(-time.Minute).Unix())
	fd := &fakeDispatcher{responses: []scripted{{status: 200, body: body}}}
	adapter := NewCodex(Deps{Dispatcher: fd, Translator: translated}, CodexConfig{})

	result, err := adapter.Fetch(context.Background(), codexEntry())
	require.NoError(t, err)
	require.Len(t, result.Codex.Windows, 1)
	assert.Equal(t, "jetzt", result.Codex.Windows[0].ResetLabel)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2h 30m", formatDuration(2*time.Hour+30*time.Minute))
	assert.Equal(t, "3d 4h", formatDuration(3*24*time.Hour+4*time.Hour))
	assert.Equal(t, "45m", formatDuration(45*time.Minute))
	assert.Equal(t, "1m", formatDuration(20*time.Second))
}
