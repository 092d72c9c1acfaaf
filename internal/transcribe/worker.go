package transcribe

import (
	"context"
	"sync"

	"github.com/sbeier/audiosessions/internal/logger"
)

// Result carries the outcome of an asynchronous job.
type Result struct {
	Text   string
	Tokens int
	Err    error
}

// Worker runs transcription and transformation jobs off the caller's
// goroutine. The completion callback is bound per job when it is
// started, so a rejected start can never redirect another job's result.
type Worker struct {
	service *Service
	log     *logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    func(Result)

	// OnProgress receives chunk progress during transcription.
	OnProgress ProgressFunc
}

// NewWorker creates a Worker around the given service.
func NewWorker(service *Service, log *logger.Logger) *Worker {
	return &Worker{
		service: service,
		log:     log,
	}
}

// TranscribeAsync starts a transcription job in the background. done
// receives the job's outcome; it may be nil. Returns false if a job is
// already running, in which case done is discarded.
func (w *Worker) TranscribeAsync(ctx context.Context, path string, done func(Result)) bool {
	return w.start(ctx, done, func(jobCtx context.Context) (string, int, error) {
		res, err := w.service.Transcribe(jobCtx, path, w.progress)
		if err != nil {
			return "", 0, err
		}
		return res.Text, res.TokensUsed, nil
	})
}

// TransformAsync starts a transformation job in the background. done
// receives the job's outcome; it may be nil. Returns false if a job is
// already running, in which case done is discarded.
func (w *Worker) TransformAsync(ctx context.Context, text, promptID string, done func(Result)) bool {
	return w.start(ctx, done, func(jobCtx context.Context) (string, int, error) {
		out, err := w.service.Transform(jobCtx, text, promptID)
		return out, 0, err
	})
}

// Cancel aborts the running job, if any.
func (w *Worker) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Busy reports whether a job is currently running.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) start(ctx context.Context, done func(Result), job func(context.Context) (string, int, error)) bool {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return false
	}
	jobCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer cancel()
		text, tokens, err := job(jobCtx)

		w.mu.Lock()
		w.running = false
		w.cancel = nil
		jobDone := w.done
		w.done = nil
		w.mu.Unlock()

		if err != nil {
			w.log.Error("Background job failed: %v", err)
		}
		if jobDone != nil {
			jobDone(Result{Text: text, Tokens: tokens, Err: err})
		}
	}()
	return true
}

func (w *Worker) progress(current, total int) {
	w.mu.Lock()
	cb := w.OnProgress
	w.mu.Unlock()
	if cb != nil {
		cb(current, total)
	}
}
