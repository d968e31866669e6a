package models

import "strings"

// ProviderKind identifies one of the supported quota providers.
type ProviderKind string

const (
	ProviderAntigravity   ProviderKind = "antigravity"
	ProviderCodex         ProviderKind = "codex"
	ProviderGeminiCLI     ProviderKind = "gemini-cli"
	ProviderGithubCopilot ProviderKind = "github-copilot"
)

// AllProviders returns every supported provider in display order.
func AllProviders() []ProviderKind {
	return []ProviderKind{
		ProviderAntigravity,
		ProviderCodex,
		ProviderGeminiCLI,
		ProviderGithubCopilot,
	}
}

// ParseProvider maps a string to a ProviderKind, accepting the aliases the
// auth files use for their "type" tag.
func ParseProvider(raw string) (ProviderKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "antigravity":
		return ProviderAntigravity, true
	case "codex":
		return ProviderCodex, true
	case "gemini-cli", "gemini":
		return ProviderGeminiCLI, true
	case "github-copilot", "copilot", "github":
		return ProviderGithubCopilot, true
	default:
		return "", false
	}
}

// Matches reports whether an auth entry belongs to this provider. This is
// the membership predicate the orchestrator filters with.
func (k ProviderKind) Matches(entry AuthEntry) bool {
	parsed, ok := ParseProvider(entry.Kind)
	return ok && parsed == k
}

func (k ProviderKind) String() string {
	return string(k)
}
