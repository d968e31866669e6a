package models

import "strings"

// AuthEntry identifies one credential record discovered in the auth
// directory. The entry itself is owned by the credential store; the quota
// core only reads it.
type AuthEntry struct {
	// Name is the file name of the credential record, used to download
	// its raw content for project-id sniffing.
	Name string `json:"name"`
	// AuthIndex is the opaque handle identifying which stored credential
	// the dispatcher should attach to outgoing requests.
	AuthIndex string `json:"auth_index"`
	// Kind is the auth type tag ("antigravity", "codex", ...).
	Kind  string `json:"kind"`
	Email string `json:"email,omitempty"`
	// AccountID is the chat account identifier required by Codex.
	AccountID string `json:"account_id,omitempty"`
	// ProjectID is the cloud project required by Gemini CLI.
	ProjectID string `json:"project_id,omitempty"`
	// PlanType is the stored plan tag, used as a fallback when the
	// provider payload does not report one.
	PlanType string `json:"plan_type,omitempty"`
}

// Key derives the stable cache identifier for this entry. Entries keep the
// same key across rescans as long as kind and name are unchanged.
func (e AuthEntry) Key() string {
	base := e.Name
	if base == "" {
		base = e.Email
	}
	return sanitizeKey(strings.ToLower(e.Kind) + "_" + base)
}

// sanitizeKey lowercases and strips characters that are awkward in URLs
// and metric labels.
func sanitizeKey(raw string) string {
	result := strings.ToLower(raw)
	result = strings.ReplaceAll(result, "@", "_at_")
	result = strings.ReplaceAll(result, ".", "_")
	result = strings.ReplaceAll(result, "+", "_plus_")
	result = strings.ReplaceAll(result, "/", "_")
	result = strings.ReplaceAll(result, " ", "_")
	if len(result) > 63 {
		result = result[:63]
	}
	return result
}
