// Package adapters implements the per-provider quota fetchers. Each
// adapter owns its request construction, retry policy, and the mapping
// from the provider payload to the canonical quota result.
package adapters

import (
	"context"

	"github.com/quotadeck/quotadeck/internal/dispatch"
	"github.com/quotadeck/quotadeck/internal/i18n"
	"github.com/quotadeck/quotadeck/internal/logging"
	"github.com/quotadeck/quotadeck/internal/models"
)

// Dispatcher issues one HTTP exchange. Retries belong to the adapters.
type Dispatcher interface {
	Send(ctx context.Context, provider string, req dispatch.Request) (*dispatch.Response, error)
}

// TextDownloader fetches raw credential text by file name. Only the
// Antigravity adapter uses it, for project-id sniffing.
type TextDownloader interface {
	DownloadText(ctx context.Context, name string) (string, error)
}

// Adapter fetches and normalizes quota for one provider.
type Adapter interface {
	Provider() models.ProviderKind
	Fetch(ctx context.Context, entry models.AuthEntry) (*models.QuotaResult, error)
}

// Deps bundles the collaborators shared by every adapter.
type Deps struct {
	Dispatcher Dispatcher
	Downloader TextDownloader
	Translator i18n.Translator
	Logger     *logging.Logger
}

func (d *Deps) fill() {
	if d.Translator == nil {
		d.Translator = i18n.Default()
	}
	if d.Logger == nil {
		d.Logger = logging.NewLogger()
	}
}

// Registry maps each provider kind to its adapter.
type Registry map[models.ProviderKind]Adapter

// NewRegistry builds the full adapter table.
func NewRegistry(deps Deps, antigravity AntigravityConfig, codex CodexConfig, gemini GeminiConfig, copilot CopilotConfig) Registry {
	deps.fill()
	return Registry{
		models.ProviderAntigravity:   NewAntigravity(deps, antigravity),
		models.ProviderCodex:         NewCodex(deps, codex),
		models.ProviderGeminiCLI:     NewGemini(deps, gemini),
		models.ProviderGithubCopilot: NewCopilot(deps, copilot),
	}
}

// For returns the adapter for a provider kind.
func (r Registry) For(kind models.ProviderKind) (Adapter, bool) {
	adapter, ok := r[kind]
	return adapter, ok
}
