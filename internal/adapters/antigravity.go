package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/quotadeck/quotadeck/internal/dispatch"
	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/jsonx"
	"github.com/quotadeck/quotadeck/internal/models"
)

// AntigravityConfig controls the endpoint fallback order and the project
// id used when sniffing the credential text finds none.
type AntigravityConfig struct {
	BaseURLs         []string
	DefaultProjectID string
}

// DefaultAntigravityConfig returns the production endpoint order.
func DefaultAntigravityConfig() AntigravityConfig {
	return AntigravityConfig{
		BaseURLs: []string{
			"https://cloudcode-pa.googleapis.com",
			"https://daily-cloudcode-pa.googleapis.com",
			"https://daily-cloudcode-pa.sandbox.googleapis.com",
		},
		DefaultProjectID: "windsurf-proxy-prod",
	}
}

// Antigravity fetches quota by calling fetchAvailableModels across the
// configured base URLs with two body variants, keeping the first
// non-empty group list.
type Antigravity struct {
	deps Deps
	cfg  AntigravityConfig
}

func NewAntigravity(deps Deps, cfg AntigravityConfig) *Antigravity {
	deps.fill()
	if len(cfg.BaseURLs) == 0 {
		cfg = DefaultAntigravityConfig()
	}
	return &Antigravity{deps: deps, cfg: cfg}
}

func (a *Antigravity) Provider() models.ProviderKind {
	return models.ProviderAntigravity
}

func (a *Antigravity) Fetch(ctx context.Context, entry models.AuthEntry) (*models.QuotaResult, error) {
	if entry.AuthIndex == "" {
		return nil, &qderrors.ErrMissingAuthIndex{Provider: a.Provider().String()}
	}

	projectID := a.resolveProjectID(ctx, entry)
	bodies := [][]byte{
		mustJSON(map[string]string{"projectId": projectID}),
		mustJSON(map[string]string{"project": projectID}),
	}

	var (
		hadSuccess     bool
		lastMessage    string
		lastStatus     int
		priorityStatus int
		lastTransport  error
	)

	trackStatus := func(status int) {
		if status > 0 {
			lastStatus = status
		}
		if priorityStatus == 0 && (status == http.StatusForbidden || status == http.StatusNotFound) {
			priorityStatus = status
		}
	}

urls:
	for _, base := range a.cfg.BaseURLs {
		base = strings.TrimSuffix(strings.TrimSpace(base), "/")
		if base == "" {
			continue
		}
		url := base + "/v1internal:fetchAvailableModels"

		for bodyIdx, body := range bodies {
			resp, err := a.deps.Dispatcher.Send(ctx, a.Provider().String(), dispatch.Request{
				AuthIndex: entry.AuthIndex,
				Method:    http.MethodPost,
				URL:       url,
				Body:      body,
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				a.deps.Logger.DebugWithContext(ctx, "antigravity attempt failed",
					"url", url, "error", err.Error())
				lastMessage = err.Error()
				lastTransport = err
				trackStatus(qderrors.HTTPStatusOf(err))
				continue urls
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				hadSuccess = true
				groups, ok := buildAntigravityGroups(resp.Body)
				if !ok {
					lastMessage = fmt.Sprintf("empty models in response from %s", base)
					continue
				}
				if len(groups) > 0 {
					return models.NewAntigravityResult(groups), nil
				}
				continue
			}

			message := strings.TrimSpace(string(resp.Body))
			lastMessage = fmt.Sprintf("status %d: %s", resp.StatusCode, message)
			trackStatus(resp.StatusCode)
			a.deps.Logger.DebugWithContext(ctx, "antigravity attempt failed",
				"url", url, "status", resp.StatusCode)

			if resp.StatusCode == http.StatusBadRequest && isUnknownFieldMessage(message) && bodyIdx+1 < len(bodies) {
				// the endpoint rejected this body shape; the other
				// variant may still work on the same URL
				continue
			}
			continue urls
		}
	}

	if hadSuccess {
		return models.NewAntigravityResult(nil), nil
	}

	status := priorityStatus
	if status == 0 {
		status = lastStatus
	}
	if status > 0 {
		return nil, &qderrors.ErrHTTPStatus{Provider: a.Provider().String(), Status: status, Message: lastMessage}
	}
	if lastTransport != nil {
		return nil, lastTransport
	}
	return nil, &qderrors.ErrEmptyResponse{Provider: a.Provider().String(), Detail: lastMessage}
}

// resolveProjectID sniffs the credential text for a project id, trying the
// flat fields first and then the nested OAuth client shapes. Any failure
// falls back to the configured default rather than failing the fetch.
func (a *Antigravity) resolveProjectID(ctx context.Context, entry models.AuthEntry) string {
	if a.deps.Downloader != nil && entry.Name != "" {
		if text, err := a.deps.Downloader.DownloadText(ctx, entry.Name); err == nil {
			doc := gjson.Parse(text)
			for _, path := range []string{"project_id", "projectId", "installed.project_id", "web.project_id"} {
				if val := doc.Get(path); val.Exists() && val.Type == gjson.String {
					if pid := strings.TrimSpace(val.String()); pid != "" {
						return pid
					}
				}
			}
		}
	}
	if entry.ProjectID != "" {
		return entry.ProjectID
	}
	return a.cfg.DefaultProjectID
}

func isUnknownFieldMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "unknown name") || strings.Contains(lower, "cannot find field")
}

// buildAntigravityGroups folds the models map into quota groups. The
// second return is false when the models field is absent, an array, or
// otherwise not an object.
func buildAntigravityGroups(body []byte) ([]models.QuotaGroup, bool) {
	modelsField := gjson.GetBytes(body, "models")
	if !modelsField.Exists() || !modelsField.IsObject() {
		return nil, false
	}

	type groupAcc struct {
		models      []string
		fraction    float64
		hasFraction bool
		resetTime   *time.Time
	}
	acc := make(map[string]*groupAcc)

	modelsField.ForEach(func(name, info gjson.Result) bool {
		quota := info.Get("quotaInfo")
		if !quota.Exists() || !quota.IsObject() {
			return true
		}

		fraction, hasFraction := jsonx.FirstFloat(quota, "remainingFraction", "remaining_fraction")
		resetRaw, _ := jsonx.FirstString(quota, "resetTime", "reset_time")
		if !hasFraction && resetRaw == "" {
			return true
		}

		groupID := quotaGroupID(name.String())
		group := acc[groupID]
		if group == nil {
			group = &groupAcc{}
			acc[groupID] = group
		}
		group.models = append(group.models, name.String())
		if hasFraction {
			// the group shares one pool, so the most exhausted
			// member defines the remaining fraction
			if !group.hasFraction || fraction < group.fraction {
				group.fraction = fraction
				group.hasFraction = true
			}
		}
		if group.resetTime == nil && resetRaw != "" {
			if parsed, err := time.Parse(time.RFC3339, resetRaw); err == nil {
				group.resetTime = &parsed
			}
		}
		return true
	})

	groups := make([]models.QuotaGroup, 0, len(acc))
	for id, group := range acc {
		if !group.hasFraction {
			continue
		}
		sort.Strings(group.models)
		groups = append(groups, models.QuotaGroup{
			ID:                id,
			Label:             quotaGroupLabel(id),
			Models:            group.models,
			RemainingFraction: group.fraction,
			ResetTime:         group.resetTime,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, true
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
