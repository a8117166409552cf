// Package workspace pairs one browser session with its upload form and analysis controller.
package workspace

import (
	"context"
	"sync"
	"time"

	"cropcare/internal/analysis"
	"cropcare/internal/model"
	"cropcare/internal/result"
	"cropcare/internal/upload"
)

// Workspace is the analysis page state of one signed-in browser.
type Workspace struct {
	Upload     *upload.State
	Controller *analysis.Controller

	owner  string
	origin string

	mu       sync.Mutex
	expanded accordion
}

// accordion remembers the user's choice for the result with the given snapshot seq.
type accordion struct {
	seq uint64
	key string
	set bool
}

// State is everything the home page needs to render.
type State struct {
	Snapshot     analysis.Snapshot
	Result       *result.View
	Filename     string
	HasFile      bool
	Preview      string
	PreviewReady bool
	PreviewError bool
	CanSubmit    bool
}

func (w *Workspace) Owner() string {
	return w.owner
}

func (w *Workspace) Select(img model.LeafImage) {
	w.Upload.Select(img)
}

// Analyze submits the selected file. It returns upload.ErrNoFile or upload.ErrBusy when the
// affordance is disabled, and analysis.ErrBusy if another submit won the race.
func (w *Workspace) Analyze() error {
	return w.Upload.Submit(w.Controller.Loading(), w.Controller.Submit)
}

// Reset is "Analyze Another Image": back to Idle with an empty form.
func (w *Workspace) Reset() {
	w.Controller.Reset()
	w.Upload.Clear()
	w.mu.Lock()
	w.expanded = accordion{}
	w.mu.Unlock()
}

// Expand opens or closes one remedy section of the current result.
func (w *Workspace) Expand(key string, open bool) {
	snap := w.Controller.Snapshot()
	if snap.Status != analysis.StatusSuccess {
		return
	}
	view := w.view(snap)
	view.Expand(key, open)

	w.mu.Lock()
	w.expanded = accordion{seq: snap.Seq, key: view.Expanded, set: true}
	w.mu.Unlock()
}

func (w *Workspace) State() State {
	snap := w.Controller.Snapshot()
	st := State{Snapshot: snap}

	if file, ok := w.Upload.File(); ok {
		st.HasFile = true
		st.Filename = file.Filename
	}
	preview, ready, err := w.Upload.Preview()
	st.Preview = preview
	st.PreviewReady = ready && err == nil
	st.PreviewError = err != nil
	st.CanSubmit = w.Upload.CanSubmit(snap.Loading())

	if snap.Status == analysis.StatusSuccess {
		view := w.view(snap)
		st.Result = &view
	}
	return st
}

func (w *Workspace) view(snap analysis.Snapshot) result.View {
	view := result.Build(snap.Result, w.origin)
	w.mu.Lock()
	choice := w.expanded
	w.mu.Unlock()
	if choice.set && choice.seq == snap.Seq {
		view.Expanded = choice.key
	}
	return view
}

// Recorder receives every accepted result. Errors are logged, never shown.
type Recorder interface {
	Record(ctx context.Context, email string, r *model.AnalysisResult) error
}

const recordTimeout = 5 * time.Second

func (m *Manager) newWorkspace(email string) *Workspace {
	w := &Workspace{
		Upload: upload.NewState(m.decode),
		owner:  email,
		origin: m.origin,
	}
	opts := []analysis.Option{
		analysis.WithLogger(m.logger.With("owner", email)),
		analysis.WithTimeout(m.timeout),
		analysis.WithOnSuccess(func(_ model.LeafImage, r *model.AnalysisResult) {
			w.Upload.Clear()
			m.record(email, r)
		}),
	}
	w.Controller = analysis.NewController(m.predictor, opts...)
	return w
}

func (m *Manager) record(email string, r *model.AnalysisResult) {
	if m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := m.recorder.Record(ctx, email, r); err != nil {
		m.logger.Error("record analysis failed", "error", err, "owner", email)
	}
}
