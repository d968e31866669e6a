package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotadeck/quotadeck/internal/models"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	history, err := NewHistory(filepath.Join(t.TempDir(), "quotadeck.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })
	return history
}

func TestHistoryRecordAndRecent(t *testing.T) {
	history := newTestHistory(t)

	success := models.SuccessState(models.NewCodexResult(&models.CodexQuota{PlanType: models.PlanPlus}))
	require.NoError(t, history.Record(models.ProviderCodex, "dev", success))

	failure := models.ErrorState("status 429", 429)
	require.NoError(t, history.Record(models.ProviderCodex, "dev", failure))

	snaps, err := history.Recent(models.ProviderCodex, "dev", 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, models.StateError, snaps[0].Kind, "most recent first")
	assert.Equal(t, 429, snaps[0].HTTPStatus)
	assert.Nil(t, snaps[0].Result)

	assert.Equal(t, models.StateSuccess, snaps[1].Kind)
	require.NotNil(t, snaps[1].Result)
	assert.Equal(t, models.PlanPlus, snaps[1].Result.Codex.PlanType)
}

func TestHistorySkipsLoadingStates(t *testing.T) {
	history := newTestHistory(t)

	require.NoError(t, history.Record(models.ProviderCodex, "dev", models.LoadingState()))

	snaps, err := history.Recent(models.ProviderCodex, "dev", 10)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestHistoryScopedByProviderAndKey(t *testing.T) {
	history := newTestHistory(t)

	require.NoError(t, history.Record(models.ProviderCodex, "a", models.ErrorState("x", 0)))
	require.NoError(t, history.Record(models.ProviderGeminiCLI, "a", models.ErrorState("y", 0)))
	require.NoError(t, history.Record(models.ProviderCodex, "b", models.ErrorState("z", 0)))

	snaps, err := history.Recent(models.ProviderCodex, "a", 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "x", snaps[0].Message)
}

func TestHistoryPrune(t *testing.T) {
	history := newTestHistory(t)

	old := models.QuotaState{Kind: models.StateError, Message: "old", UpdatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := models.ErrorState("fresh", 0)
	require.NoError(t, history.Record(models.ProviderCodex, "dev", old))
	require.NoError(t, history.Record(models.ProviderCodex, "dev", fresh))

	deleted, err := history.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	snaps, err := history.Recent(models.ProviderCodex, "dev", 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "fresh", snaps[0].Message)
}
