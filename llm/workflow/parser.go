package workflow

import (
	"encoding/json"
	"strings"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/llm/models"
)

// ChatResponse is the cleaned model output.
type ChatResponse struct {
	Text string
}

// ParseResponse pulls the first choice's content out of body. After
// trimming, every "```" and every "python" is removed. This is a crude fence
// stripper: the word "python" disappears from prose as well.
func ParseResponse(body []byte) (ChatResponse, error) {
	var resp models.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ChatResponse{}, errors.Wrap(errors.ErrMalformedResponse, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return ChatResponse{}, errors.WithMsg(errors.ErrMalformedResponse, "malformed chat response: choices[0].message.content is missing")
	}
	text := strings.TrimSpace(*resp.Choices[0].Message.Content)
	text = strings.ReplaceAll(text, "```", "")
	text = strings.ReplaceAll(text, "python", "")
	return ChatResponse{Text: text}, nil
}
