package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/llm/models"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"

	// SampleCount and Temperature are fixed for every request.
	SampleCount = 1
	Temperature = 0.8

	systemTemplate = "You are a code-only assistant for %s %s. Your task is to provide answers strictly in the form of code without any additional explanation, comments, or notes."
)

// ChatRequestSpec is a request ready for the budget check.
type ChatRequestSpec struct {
	Model           string
	SystemMessage   string
	UserMessage     string
	MaxOutputTokens int
}

// Messages returns the system and user messages, always in that order.
func (s ChatRequestSpec) Messages() []models.ChatMessage {
	return []models.ChatMessage{
		{Role: RoleSystem, Content: s.SystemMessage},
		{Role: RoleUser, Content: s.UserMessage},
	}
}

// InputLength is the character count of all message contents.
func (s ChatRequestSpec) InputLength() int {
	return utf8.RuneCountInString(s.SystemMessage) + utf8.RuneCountInString(s.UserMessage)
}

// Request is the wire body for the dispatcher.
func (s ChatRequestSpec) Request() *models.ChatRequest {
	return &models.ChatRequest{
		Model:       s.Model,
		Messages:    s.Messages(),
		MaxTokens:   s.MaxOutputTokens,
		N:           SampleCount,
		Temperature: Temperature,
	}
}

// Builder turns panel settings into a ChatRequestSpec.
type Builder struct {
	hostName    string
	hostVersion string
}

func NewBuilder(hostName, hostVersion string) *Builder {
	return &Builder{hostName: hostName, hostVersion: hostVersion}
}

// SystemMessage is the fixed instruction for this host.
func (b *Builder) SystemMessage() string {
	return fmt.Sprintf(systemTemplate, b.hostName, b.hostVersion)
}

// Build assembles the request. The literal two-character sequence "/n" is
// removed from the prompt; real newlines are kept. Token counts are
// approximated by characters.
func (b *Builder) Build(s Settings, credential string) (ChatRequestSpec, error) {
	if credential == "" {
		return ChatRequestSpec{}, errors.WithMsg(errors.ErrInvalidRequest, "api key is not configured")
	}
	s = s.WithDefaults()
	spec := ChatRequestSpec{
		Model:         s.Model,
		SystemMessage: b.SystemMessage(),
		UserMessage:   strings.ReplaceAll(s.UserPrompt, "/n", ""),
	}
	spec.MaxOutputTokens = models.ModelBudget(spec.Model) - spec.InputLength()
	return spec, nil
}

// Validate rejects a spec that leaves no room for output.
func Validate(spec ChatRequestSpec) (ChatRequestSpec, error) {
	if spec.MaxOutputTokens <= 0 {
		return spec, errors.ErrBudgetExceeded
	}
	return spec, nil
}
