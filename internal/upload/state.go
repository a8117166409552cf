// Package upload holds the per-browser file selection and its preview.
package upload

import (
	"errors"
	"sync"

	"cropcare/internal/model"
)

var (
	ErrNoFile = errors.New("no file selected")
	ErrBusy   = errors.New("a request is already in flight")
)

// AdvisoryLimit is shown next to the drop target. It is not enforced.
const AdvisoryLimit = "Supports JPG, PNG, JPEG (max 10MB)"

// Decoder turns a file into something the page can show in an <img>.
type Decoder func(model.LeafImage) (string, error)

// State is the upload form for one browser. Preview decoding runs off the request path;
// a decode for a file that has since been replaced is dropped.
type State struct {
	mu         sync.Mutex
	decode     Decoder
	file       *model.LeafImage
	generation uint64
	preview    string
	ready      bool
	previewErr error
	decoded    chan struct{}
}

func NewState(decode Decoder) *State {
	if decode == nil {
		decode = DataURL
	}
	return &State{decode: decode}
}

// Select replaces the current file and starts decoding its preview.
func (s *State) Select(file model.LeafImage) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.file = &file
	s.preview = ""
	s.ready = false
	s.previewErr = nil
	done := make(chan struct{})
	s.decoded = done
	decode := s.decode
	s.mu.Unlock()

	go func() {
		defer close(done)
		preview, err := decode(file)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation {
			return
		}
		s.preview = preview
		s.previewErr = err
		s.ready = true
	}()
}

// File returns the selected file, if any.
func (s *State) File() (model.LeafImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return model.LeafImage{}, false
	}
	return *s.file, true
}

// Preview returns the preview of the current file. ready is false while decoding.
func (s *State) Preview() (preview string, ready bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview, s.ready, s.previewErr
}

// Decoded is closed once the preview for the current selection has finished decoding.
// It returns nil when nothing is selected.
func (s *State) Decoded() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoded
}

// CanSubmit reports whether the analyze button is enabled.
func (s *State) CanSubmit(loading bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil && !loading
}

// Submit hands the raw file to upload when the affordance is enabled.
func (s *State) Submit(loading bool, upload func(model.LeafImage) error) error {
	s.mu.Lock()
	if s.file == nil {
		s.mu.Unlock()
		return ErrNoFile
	}
	if loading {
		s.mu.Unlock()
		return ErrBusy
	}
	file := *s.file
	s.mu.Unlock()

	return upload(file)
}

// Clear drops the selection and any pending preview.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.file = nil
	s.preview = ""
	s.ready = false
	s.previewErr = nil
	s.decoded = nil
}
