package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcare/internal/model"
	"cropcare/internal/predict"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakePredictor struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	result  *model.AnalysisResult
	err     error
	sawCtx  context.Context
}

func (f *fakePredictor) Predict(ctx context.Context, img model.LeafImage, onProgress predict.ProgressFunc) (*model.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.sawCtx = ctx
	release := f.release
	f.mu.Unlock()

	total := img.Size()
	if onProgress != nil {
		onProgress(predict.Progress{Sent: total / 2, Total: total})
		onProgress(predict.Progress{Sent: total, Total: total})
	}
	if release != nil {
		<-release
	}
	return f.result, f.err
}

func (f *fakePredictor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func blight() *model.AnalysisResult {
	return &model.AnalysisResult{
		PredictedClass: "Blight",
		Confidence:     0.95,
		TopPredictions: []model.Prediction{{Class: "Blight", Confidence: 0.95}, {Class: "Rust", Confidence: 0.03}},
		ImageURL:       "/uploads/leaf.jpg",
	}
}

var leaf = model.LeafImage{Filename: "leaf.jpg", Data: []byte("0123456789")}

func waitStatus(t *testing.T, c *Controller, want Status) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = c.Snapshot()
		return snap.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestController_StartsIdle(t *testing.T) {
	c := NewController(&fakePredictor{}, WithLogger(quietLogger))
	snap := c.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.False(t, snap.Loading())
	assert.Nil(t, snap.Result)
}

func TestController_Success(t *testing.T) {
	var hooked *model.AnalysisResult
	done := make(chan struct{})
	p := &fakePredictor{result: blight()}
	c := NewController(p, WithLogger(quietLogger), WithOnSuccess(func(_ model.LeafImage, r *model.AnalysisResult) {
		hooked = r
		close(done)
	}))

	require.NoError(t, c.Submit(leaf))
	snap := waitStatus(t, c, StatusSuccess)
	<-done

	require.NotNil(t, snap.Result)
	assert.Equal(t, "Blight", snap.Result.PredictedClass)
	assert.Empty(t, snap.Error)
	assert.Same(t, snap.Result, hooked)
	assert.Equal(t, 1, p.Calls())
}

func TestController_FailureShowsFixedMessageAndAllowsResubmit(t *testing.T) {
	p := &fakePredictor{err: errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")}
	c := NewController(p, WithLogger(quietLogger))

	require.NoError(t, c.Submit(leaf))
	snap := waitStatus(t, c, StatusFailure)
	assert.Equal(t, FailureMessage, snap.Error)
	assert.NotContains(t, snap.Error, "connection refused")
	assert.False(t, snap.Loading())

	p.mu.Lock()
	p.err = nil
	p.result = blight()
	p.mu.Unlock()

	require.NoError(t, c.Submit(leaf))
	waitStatus(t, c, StatusSuccess)
	assert.Equal(t, 2, p.Calls())
}

func TestController_RejectsSubmitWhileLoading(t *testing.T) {
	p := &fakePredictor{release: make(chan struct{}), result: blight()}
	c := NewController(p, WithLogger(quietLogger))

	require.NoError(t, c.Submit(leaf))
	assert.True(t, c.Loading())
	assert.ErrorIs(t, c.Submit(leaf), ErrBusy)

	close(p.release)
	waitStatus(t, c, StatusSuccess)
	assert.Equal(t, 1, p.Calls())
}

func TestController_ProgressMessagesFollowTransfer(t *testing.T) {
	p := &fakePredictor{release: make(chan struct{}), result: blight()}
	c := NewController(p, WithLogger(quietLogger))
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	require.NoError(t, c.Submit(leaf))

	var messages []string
	var statuses []Status
	timeout := time.After(2 * time.Second)
	for len(statuses) == 0 || statuses[len(statuses)-1] != StatusSuccess {
		select {
		case ev := <-events:
			statuses = append(statuses, ev.Status)
			if ev.Message != "" {
				messages = append(messages, ev.Message)
			}
			if ev.Message == MessageAnalyzing {
				close(p.release)
			}
		case <-timeout:
			t.Fatalf("no terminal event, got %v", statuses)
		}
	}

	require.NotEmpty(t, messages)
	assert.Equal(t, MessageUploading, messages[0])
	assert.Equal(t, MessageAnalyzing, messages[len(messages)-1])
	assert.Equal(t, StatusLoading, statuses[0])
}

func TestController_ResetDiscardsStaleResponse(t *testing.T) {
	p := &fakePredictor{release: make(chan struct{}), result: blight()}
	hooked := false
	c := NewController(p, WithLogger(quietLogger), WithOnSuccess(func(model.LeafImage, *model.AnalysisResult) {
		hooked = true
	}))

	require.NoError(t, c.Submit(leaf))
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.sawCtx != nil
	}, time.Second, 5*time.Millisecond)

	c.Reset()
	p.mu.Lock()
	ctx := p.sawCtx
	p.mu.Unlock()
	assert.ErrorIs(t, ctx.Err(), context.Canceled, "reset cancels the in-flight request")

	close(p.release)
	time.Sleep(50 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.Result)
	assert.False(t, hooked)
}

func TestController_ResetAfterSuccess(t *testing.T) {
	c := NewController(&fakePredictor{result: blight()}, WithLogger(quietLogger))
	require.NoError(t, c.Submit(leaf))
	waitStatus(t, c, StatusSuccess)

	c.Reset()
	snap := c.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.Result)
}

func TestController_TimeoutBoundsRequest(t *testing.T) {
	p := &blockingPredictor{}
	c := NewController(p, WithLogger(quietLogger), WithTimeout(20*time.Millisecond))

	require.NoError(t, c.Submit(leaf))
	snap := waitStatus(t, c, StatusFailure)
	assert.Equal(t, FailureMessage, snap.Error)
}

type blockingPredictor struct{}

func (blockingPredictor) Predict(ctx context.Context, _ model.LeafImage, _ predict.ProgressFunc) (*model.AnalysisResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSnapshot_Percent(t *testing.T) {
	assert.Equal(t, 0, Snapshot{}.Percent())
	assert.Equal(t, 50, Snapshot{Progress: predict.Progress{Sent: 5, Total: 10}}.Percent())
	assert.True(t, Snapshot{Status: StatusFailure}.Terminal())
	assert.False(t, Snapshot{Status: StatusLoading}.Terminal())
}
