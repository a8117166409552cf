// Package analysis drives one upload through Idle → Loading → Success/Failure.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cropcare/internal/model"
	"cropcare/internal/predict"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// FailureMessage is the only error text a user ever sees for a failed analysis.
const FailureMessage = "Failed to analyze the image. Please try again or check if the server is running."

const (
	MessageUploading = "Uploading leaf image…"
	MessageAnalyzing = "Analyzing leaf image…"
)

var ErrBusy = errors.New("analysis already in progress")

// Predictor is the network layer. *predict.Client satisfies it.
type Predictor interface {
	Predict(ctx context.Context, img model.LeafImage, onProgress predict.ProgressFunc) (*model.AnalysisResult, error)
}

// Snapshot is a copy of the controller state safe to hand to templates.
type Snapshot struct {
	Status   Status                `json:"status"`
	Message  string                `json:"message,omitempty"`
	Error    string                `json:"error,omitempty"`
	Progress predict.Progress      `json:"progress"`
	Result   *model.AnalysisResult `json:"result,omitempty"`
	Seq      uint64                `json:"seq"`
}

func (s Snapshot) Loading() bool {
	return s.Status == StatusLoading
}

// Percent of the request body sent so far, 0-100.
func (s Snapshot) Percent() int {
	if s.Progress.Total <= 0 {
		return 0
	}
	return int(s.Progress.Sent * 100 / s.Progress.Total)
}

func (s Snapshot) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailure
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithOnSuccess registers a hook run after a result is accepted, outside the controller lock.
func WithOnSuccess(fn func(model.LeafImage, *model.AnalysisResult)) Option {
	return func(c *Controller) {
		c.onSuccess = fn
	}
}

type Controller struct {
	mu        sync.Mutex
	predictor Predictor
	logger    *slog.Logger
	timeout   time.Duration
	onSuccess func(model.LeafImage, *model.AnalysisResult)

	state      Snapshot
	generation uint64
	cancel     context.CancelFunc
	subs       map[chan Snapshot]struct{}
}

func NewController(predictor Predictor, opts ...Option) *Controller {
	c := &Controller{
		predictor: predictor,
		logger:    slog.Default(),
		state:     Snapshot{Status: StatusIdle},
		subs:      make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Loading() bool {
	return c.Snapshot().Loading()
}

// Submit starts the single predict round trip for img.
func (c *Controller) Submit(img model.LeafImage) error {
	c.mu.Lock()
	if c.state.Status == StatusLoading {
		c.mu.Unlock()
		return ErrBusy
	}

	c.generation++
	gen := c.generation
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	c.cancel = cancel
	c.transition(Snapshot{
		Status:   StatusLoading,
		Message:  MessageUploading,
		Progress: predict.Progress{Total: img.Size()},
	})
	c.mu.Unlock()

	go c.run(ctx, gen, img)
	return nil
}

// Reset returns to Idle. An in-flight request is canceled and its response discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.transition(Snapshot{Status: StatusIdle})
}

// Subscribe streams state changes until the returned func is called.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) run(ctx context.Context, gen uint64, img model.LeafImage) {
	result, err := c.predictor.Predict(ctx, img, func(p predict.Progress) {
		c.progress(gen, p)
	})

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding stale analysis response", "outcome", predict.Outcome(err))
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil {
		c.transition(Snapshot{Status: StatusFailure, Error: FailureMessage})
		c.mu.Unlock()
		c.logger.Error("analyze leaf image failed",
			"error", err,
			"outcome", predict.Outcome(err),
			"filename", img.Filename,
			"bytes", img.Size(),
		)
		return
	}
	c.transition(Snapshot{Status: StatusSuccess, Result: result})
	hook := c.onSuccess
	c.mu.Unlock()

	if result.TopClassMismatch() {
		c.logger.Warn("top prediction disagrees with predicted class",
			"predicted_class", result.PredictedClass,
			"top_class", result.TopClass(),
		)
	}
	if hook != nil {
		hook(img, result)
	}
}

func (c *Controller) progress(gen uint64, p predict.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state.Status != StatusLoading {
		return
	}

	message := MessageUploading
	if p.Done() {
		message = MessageAnalyzing
	}
	next := c.state
	prevPercent := next.Percent()
	next.Progress = p
	next.Message = message
	if message == c.state.Message && next.Percent() == prevPercent {
		c.state.Progress = p
		return
	}
	c.transition(next)
}

// transition must be called with c.mu held.
func (c *Controller) transition(next Snapshot) {
	next.Seq = c.state.Seq + 1
	c.state = next
	for ch := range c.subs {
		select {
		case ch <- next:
		default:
			// Slow subscriber: drop the oldest update so the newest state gets through.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}
