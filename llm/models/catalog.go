package models

import "strings"

const (
	GPT35Turbo     = "gpt-3.5-turbo"
	GPT4           = "gpt-4"
	GPT40314       = "gpt-4-0314"
	GPT432K        = "gpt-4-32k"
	GPT35Turbo0301 = "gpt-3.5-turbo-0301"

	DefaultModel = GPT35Turbo
)

// Budgets per model family, counted in characters.
const (
	BudgetGPT35    = 4096
	BudgetGPT4     = 8192
	BudgetGPT432K  = 32768
	BudgetFallback = 4096
)

// Model is one entry of the selectable model list.
type Model struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Budget int    `json:"budget"`
}

var catalog = []Model{
	{ID: GPT35Turbo, Label: "3.5"},
	{ID: GPT4, Label: "gpt-4"},
	{ID: GPT40314, Label: "gpt-4-0314"},
	{ID: GPT432K, Label: "gpt-4-32k"},
	{ID: GPT35Turbo0301, Label: "gpt-3.5-turbo-0301"},
}

// Catalog returns the selectable models in display order.
func Catalog() []Model {
	out := make([]Model, len(catalog))
	for i, m := range catalog {
		m.Budget = ModelBudget(m.ID)
		out[i] = m
	}
	return out
}

// IsKnown reports whether id is in the catalog.
func IsKnown(id string) bool {
	for _, m := range catalog {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ModelBudget returns the combined input+output ceiling for a model id.
// The 32k family is matched before the generic gpt-4 prefix.
func ModelBudget(model string) int {
	switch {
	case strings.HasPrefix(model, GPT35Turbo):
		return BudgetGPT35
	case strings.HasPrefix(model, GPT432K):
		return BudgetGPT432K
	case strings.HasPrefix(model, GPT4):
		return BudgetGPT4
	default:
		return BudgetFallback
	}
}
