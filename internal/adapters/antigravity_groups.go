package adapters

import "strings"

// antigravityQuotaGroups defines models that share quota pools. When one
// model in a group is exhausted, all models in the group are unavailable.
var antigravityQuotaGroups = map[string][]string{
	"claude-gpt": {
		"claude-sonnet-4-5-thinking",
		"claude-opus-4-5-thinking",
		"gpt-oss-120b-medium",
	},
	"gemini-3-pro": {
		"gemini-3-pro-high",
		"gemini-3-pro-low",
	},
	"gemini-2-5-flash": {
		"gemini-2.5-flash",
		"gemini-2.5-flash-thinking",
	},
	"gemini-2-5-flash-lite": {
		"gemini-2.5-flash-lite",
	},
	"gemini-2-5-cu": {
		"rev19-uic3-1p",
	},
	"gemini-3-flash": {
		"gemini-3-flash",
	},
	"gemini-image": {
		"gemini-3-pro-image",
	},
}

var antigravityGroupLabels = map[string]string{
	"claude-gpt":            "Claude / GPT",
	"gemini-3-pro":          "Gemini 3 Pro",
	"gemini-2-5-flash":      "Gemini 2.5 Flash",
	"gemini-2-5-flash-lite": "Gemini 2.5 Flash Lite",
	"gemini-2-5-cu":         "Gemini 2.5 Computer Use",
	"gemini-3-flash":        "Gemini 3 Flash",
	"gemini-image":          "Gemini Image",
}

var antigravityModelToGroup = func() map[string]string {
	m := make(map[string]string)
	for group, modelIDs := range antigravityQuotaGroups {
		for _, id := range modelIDs {
			m[id] = group
		}
	}
	return m
}()

// quotaGroupID returns the stable group ID for a model, falling back to
// the model name itself when it belongs to no known pool. Prefix matching
// covers date-suffixed variants like claude-sonnet-4-5-20250929.
func quotaGroupID(model string) string {
	if model == "" {
		return ""
	}
	if group := antigravityModelToGroup[model]; group != "" {
		return group
	}
	for groupID, modelIDs := range antigravityQuotaGroups {
		for _, base := range modelIDs {
			prefix := strings.TrimSuffix(base, "-thinking")
			if strings.HasPrefix(model, prefix) {
				return groupID
			}
		}
	}
	return model
}

func quotaGroupLabel(groupID string) string {
	if label := antigravityGroupLabels[groupID]; label != "" {
		return label
	}
	return groupID
}
