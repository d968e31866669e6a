package adapters

import (
	"context"
	"net/http"
	"strings"

	"github.com/quotadeck/quotadeck/internal/dispatch"
	qderrors "github.com/quotadeck/quotadeck/internal/errors"
	"github.com/quotadeck/quotadeck/internal/jsonx"
	"github.com/quotadeck/quotadeck/internal/models"
)

// GeminiBucket is one parsed usage bucket before display grouping.
type GeminiBucket struct {
	ModelID           string
	TokenType         string
	RemainingFraction *float64
	RemainingAmount   *float64
	ResetTime         string
}

// GroupBucketsFunc merges parsed buckets into ordered display buckets.
// Swappable so frontends can define their own aggregation.
type GroupBucketsFunc func(buckets []GeminiBucket) []models.QuotaBucket

// GeminiConfig holds the usage endpoint and the bucket grouping routine.
type GeminiConfig struct {
	URL          string
	GroupBuckets GroupBucketsFunc
}

func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		URL:          "https://cloudcode-pa.googleapis.com/v1internal:retrieveUserUsage",
		GroupBuckets: defaultGroupBuckets,
	}
}

// Gemini fetches per-model usage buckets in a single POST keyed by the
// cloud project.
type Gemini struct {
	deps Deps
	cfg  GeminiConfig
}

func NewGemini(deps Deps, cfg GeminiConfig) *Gemini {
	deps.fill()
	if cfg.URL == "" {
		cfg.URL = DefaultGeminiConfig().URL
	}
	if cfg.GroupBuckets == nil {
		cfg.GroupBuckets = defaultGroupBuckets
	}
	return &Gemini{deps: deps, cfg: cfg}
}

func (g *Gemini) Provider() models.ProviderKind {
	return models.ProviderGeminiCLI
}

func (g *Gemini) Fetch(ctx context.Context, entry models.AuthEntry) (*models.QuotaResult, error) {
	if entry.AuthIndex == "" {
		return nil, &qderrors.ErrMissingAuthIndex{Provider: g.Provider().String()}
	}
	projectID := strings.TrimSpace(entry.ProjectID)
	if projectID == "" {
		return nil, &qderrors.ErrMissingProjectID{Provider: g.Provider().String()}
	}

	resp, err := g.deps.Dispatcher.Send(ctx, g.Provider().String(), dispatch.Request{
		AuthIndex: entry.AuthIndex,
		Method:    http.MethodPost,
		URL:       g.cfg.URL,
		Body:      mustJSON(map[string]string{"project": projectID}),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &qderrors.ErrHTTPStatus{
			Provider: g.Provider().String(),
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(resp.Body)),
		}
	}

	doc := jsonx.Parse(resp.Body)
	rawBuckets := doc.Get("buckets")
	if !rawBuckets.Exists() || !rawBuckets.IsArray() {
		return models.NewGeminiResult(nil), nil
	}

	var parsed []GeminiBucket
	for _, raw := range rawBuckets.Array() {
		modelID, ok := jsonx.FirstString(raw, "modelId", "model_id", "model")
		if !ok {
			// bucket without a model id carries nothing displayable
			continue
		}

		bucket := GeminiBucket{ModelID: modelID}
		if tokenType, ok := jsonx.FirstString(raw, "tokenType", "token_type"); ok {
			bucket.TokenType = tokenType
		}
		if amount, ok := jsonx.FirstFloat(raw, "remainingAmount", "remaining_amount"); ok {
			bucket.RemainingAmount = &amount
		}
		if reset, ok := jsonx.FirstString(raw, "resetTime", "reset_time"); ok {
			bucket.ResetTime = reset
		}

		if fraction, ok := jsonx.FirstFloat(raw, "remainingFraction", "remaining_fraction"); ok {
			bucket.RemainingFraction = &fraction
		} else if bucket.RemainingAmount != nil && *bucket.RemainingAmount <= 0 {
			zero := 0.0
			bucket.RemainingFraction = &zero
		} else if bucket.RemainingAmount == nil && bucket.ResetTime != "" {
			// a reset time with no remaining amount reads as
			// exhausted until the reset lands
			zero := 0.0
			bucket.RemainingFraction = &zero
		}

		parsed = append(parsed, bucket)
	}

	return models.NewGeminiResult(g.cfg.GroupBuckets(parsed)), nil
}

// defaultGroupBuckets merges buckets sharing a model id and token type,
// preferring the first known fraction, and keeps input order otherwise.
func defaultGroupBuckets(buckets []GeminiBucket) []models.QuotaBucket {
	var out []models.QuotaBucket
	index := make(map[string]int)

	for _, bucket := range buckets {
		id := bucket.ModelID
		if bucket.TokenType != "" {
			id += "_" + strings.ToLower(bucket.TokenType)
		}

		if at, ok := index[id]; ok {
			existing := &out[at]
			if existing.RemainingFraction == nil {
				existing.RemainingFraction = bucket.RemainingFraction
			}
			if existing.RemainingAmount == nil {
				existing.RemainingAmount = bucket.RemainingAmount
			}
			if existing.ResetTime == "" {
				existing.ResetTime = bucket.ResetTime
			}
			if !containsString(existing.ModelIDs, bucket.ModelID) {
				existing.ModelIDs = append(existing.ModelIDs, bucket.ModelID)
			}
			continue
		}

		index[id] = len(out)
		out = append(out, models.QuotaBucket{
			ID:                id,
			Label:             bucket.ModelID,
			ModelIDs:          []string{bucket.ModelID},
			TokenType:         bucket.TokenType,
			RemainingFraction: bucket.RemainingFraction,
			RemainingAmount:   bucket.RemainingAmount,
			ResetTime:         bucket.ResetTime,
		})
	}
	return out
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
