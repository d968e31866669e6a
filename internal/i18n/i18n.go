// Package i18n resolves display-label keys to user-facing text. The quota
// core emits keys so frontends can localize; this catalog is the English
// default.
package i18n

import "strings"

// Translator resolves a message key with optional {name} placeholders.
type Translator func(key string, params map[string]string) string

var catalog = map[string]string{
	"quota.window.primary":    "5h limit",
	"quota.window.secondary":  "Weekly limit",
	"quota.window.codeReview": "Code review",
	"quota.reset.now":         "now",
	"quota.reset.unknown":     "-",
	"quota.reset.in":          "in {duration}",
	"quota.copilot.chat":      "Chat",
	"quota.copilot.complete":  "Completions",
	"quota.copilot.premium":   "Premium requests",
}

// Default returns the English translator. Unknown keys come back verbatim
// so a missing catalog entry is visible rather than silent.
func Default() Translator {
	return func(key string, params map[string]string) string {
		text, ok := catalog[key]
		if !ok {
			return key
		}
		for name, value := range params {
			text = strings.ReplaceAll(text, "{"+name+"}", value)
		}
		return text
	}
}
