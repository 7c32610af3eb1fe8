package workflow

import (
	"sync"
	"unicode/utf8"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/llm/models"
)

// MaxPromptLength is the longest prompt the input surfaces accept.
const MaxPromptLength = 1024

// Settings is what the user picked in the panel.
type Settings struct {
	Model      string `json:"model" validate:"omitempty,max=64"`
	UserPrompt string `json:"user_prompt" validate:"required,max=1024"`
}

// WithDefaults fills an empty model with the default one.
func (s Settings) WithDefaults() Settings {
	if s.Model == "" {
		s.Model = models.DefaultModel
	}
	return s
}

// CheckPrompt enforces the prompt length limit of the input surfaces. The
// workflow itself accepts any length and relies on the budget check.
func CheckPrompt(prompt string) error {
	if prompt == "" {
		return errors.WithMsg(errors.ErrInvalidRequest, "prompt is empty")
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return errors.WithMsg(errors.ErrInvalidRequest, "prompt is longer than 1024 characters")
	}
	return nil
}

// CheckModel rejects a model id that is not in the catalog. An empty id
// means the default model.
func CheckModel(model string) error {
	if model != "" && !models.IsKnown(model) {
		return errors.WithMsg(errors.ErrInvalidRequest, "unknown model: "+model)
	}
	return nil
}

// CredentialSource yields the API key at request-build time.
type CredentialSource interface {
	APIKey() string
}

// Preferences holds the process-wide API key entered by the user.
type Preferences struct {
	mu     sync.RWMutex
	apiKey string
}

func NewPreferences(apiKey string) *Preferences {
	return &Preferences{apiKey: apiKey}
}

func (p *Preferences) SetAPIKey(apiKey string) {
	p.mu.Lock()
	p.apiKey = apiKey
	p.mu.Unlock()
}

func (p *Preferences) APIKey() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.apiKey
}

// HasAPIKey is safe to expose; it never returns the secret.
func (p *Preferences) HasAPIKey() bool {
	return p.APIKey() != ""
}
