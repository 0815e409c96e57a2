// Package ai implements the HTTP clients for the two remote analysis
// collaborators: the structured hybrid endpoint (retrieval plus structured
// query) and the classic endpoint (question plus serialized snapshot sent to
// a general-purpose model). The package also defines the per-call AI
// configuration surface consumed by the resolution controller.
package ai

// Provider identifies the remote model vendor backing the classic strategy.
type Provider string

// Supported providers.
const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderGemini, ProviderClaude:
		return true
	}
	return false
}

// Config is the AI configuration read per analysis call. It is passed in
// explicitly by the caller; the engine never persists it and holds no
// ambient AI state.
type Config struct {
	UseRemoteAI bool     `json:"use_remote_ai"`
	Provider    Provider `json:"provider"`
	APIKey      string   `json:"-"`
}
