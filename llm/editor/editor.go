package editor

import (
	"context"
	"sync"

	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

// View is an open text editor area showing one buffer.
type View struct {
	ID     string `json:"id"`
	Buffer string `json:"buffer"`
	Top    int    `json:"top"`
}

// Editor creates response buffers and points every open view at the newest
// one, scrolled to the top.
type Editor struct {
	store  Store
	logger *zap.Logger

	mu    sync.RWMutex
	views []*View
}

func New(store Store) *Editor {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Editor{store: store, logger: logs.GetLogger("editor")}
}

// OpenView registers a view. Opening an id twice returns the same view.
func (e *Editor) OpenView(id string) *View {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.views {
		if v.ID == id {
			return v
		}
	}
	v := &View{ID: id}
	e.views = append(e.views, v)
	return v
}

func (e *Editor) CloseView(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, v := range e.views {
		if v.ID == id {
			e.views = append(e.views[:i], e.views[i+1:]...)
			return
		}
	}
}

// Views returns a snapshot of the open views.
func (e *Editor) Views() []View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]View, 0, len(e.views))
	for _, v := range e.views {
		out = append(out, *v)
	}
	return out
}

// Display implements workflow.TextSink.
func (e *Editor) Display(ctx context.Context, name, text string) (string, error) {
	created, err := e.store.Create(ctx, name, text)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	for _, v := range e.views {
		v.Buffer = created
		v.Top = 0
	}
	n := len(e.views)
	e.mu.Unlock()
	e.logger.Debug("buffer created", logs.String("name", created), logs.Int("views", n))
	return created, nil
}

// Buffer returns the text of a named buffer.
func (e *Editor) Buffer(ctx context.Context, name string) (string, error) {
	return e.store.Get(ctx, name)
}
