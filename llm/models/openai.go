package models

type ChatMessage struct {
	Role    string `json:"role"`    // "system", "user"
	Content string `json:"content"` // e.g., "Code only: draw a cube"
}

// ChatRequest 发往 chat completions 的请求体
type ChatRequest struct {
	Model       string        `json:"model"`       // e.g., "gpt-4"
	Messages    []ChatMessage `json:"messages"`    // system 在前，user 在后
	MaxTokens   int           `json:"max_tokens"`  // 预算剩余
	N           int           `json:"n"`           // 固定 1
	Temperature float32       `json:"temperature"` // 固定 0.8
}

// ChatResponse 只声明用到的字段。Message/Content 用指针区分“缺失”和“空串”
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Error   *APIError    `json:"error,omitempty"`
}

type ChatChoice struct {
	Index        int              `json:"index"`
	Message      *ResponseMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// APIError provider 返回的错误体
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}
