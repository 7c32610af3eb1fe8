package workflow

import "context"

// TextSink shows the response text in a new named buffer and returns the
// name actually used.
type TextSink interface {
	Display(ctx context.Context, name, text string) (string, error)
}

// ScriptSink runs the response text as a script.
type ScriptSink interface {
	Execute(ctx context.Context, script string) error
}

// ScriptSinkFunc adapts a function to ScriptSink.
type ScriptSinkFunc func(ctx context.Context, script string) error

func (f ScriptSinkFunc) Execute(ctx context.Context, script string) error {
	return f(ctx, script)
}

// Confirmer asks whether a script may run. Consulted only when automatic
// execution is switched off.
type Confirmer interface {
	Confirm(ctx context.Context, script string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, script string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, script string) (bool, error) {
	return f(ctx, script)
}

// Observer is told about every finished task. It cannot change the result.
type Observer interface {
	OnFinished(ctx context.Context, result Result)
}

type discardText struct{}

func (discardText) Display(_ context.Context, name, _ string) (string, error) { return name, nil }
