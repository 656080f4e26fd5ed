package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the lifecycle stage of a download session.
type Status int

const (
	StatusInitializing Status = iota
	StatusDownloading
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "Initializing"
	case StatusDownloading:
		return "Downloading"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ProgressCallback is invoked whenever completed/failed advance.
type ProgressCallback func(completed, failed, total int64, currentFile string)

// StatusCallback is invoked on every status transition.
type StatusCallback func(Status)

// ErrorCallback is invoked when the session fails.
type ErrorCallback func(error)

// DownloadState is the per-session handle returned by Engine.Download.
// Counters are atomic; currentFile is last-writer-wins. Callbacks are
// invoked synchronously on the goroutine that observed the change and must
// not block or take locks of their own (spec.md §5).
type DownloadState struct {
	totalFiles      int64
	completedFiles  int64
	failedFiles     int64
	downloadedBytes int64

	startedAt time.Time

	currentFile atomic.Value // string
	status      atomic.Int32

	cbMu       sync.Mutex
	onProgress []ProgressCallback
	onStatus   []StatusCallback
	onError    []ErrorCallback

	cancel context.CancelFunc
	done   chan struct{}
}

func newDownloadState(cancel context.CancelFunc) *DownloadState {
	d := &DownloadState{
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	d.currentFile.Store("")
	d.status.Store(int32(StatusInitializing))
	return d
}

// OnProgress registers a progress observer.
func (d *DownloadState) OnProgress(cb ProgressCallback) {
	d.cbMu.Lock()
	d.onProgress = append(d.onProgress, cb)
	d.cbMu.Unlock()
}

// OnStatus registers a status-transition observer.
func (d *DownloadState) OnStatus(cb StatusCallback) {
	d.cbMu.Lock()
	d.onStatus = append(d.onStatus, cb)
	d.cbMu.Unlock()
}

// OnError registers an error observer.
func (d *DownloadState) OnError(cb ErrorCallback) {
	d.cbMu.Lock()
	d.onError = append(d.onError, cb)
	d.cbMu.Unlock()
}

func (d *DownloadState) TotalFiles() int64      { return atomic.LoadInt64(&d.totalFiles) }
func (d *DownloadState) CompletedFiles() int64  { return atomic.LoadInt64(&d.completedFiles) }
func (d *DownloadState) FailedFiles() int64     { return atomic.LoadInt64(&d.failedFiles) }
func (d *DownloadState) CurrentFile() string    { return d.currentFile.Load().(string) }
func (d *DownloadState) Status() Status         { return Status(d.status.Load()) }
func (d *DownloadState) BytesDownloaded() int64 { return atomic.LoadInt64(&d.downloadedBytes) }

// Speed returns the running average download rate in bytes/sec since the
// session started.
func (d *DownloadState) Speed() float64 {
	elapsed := time.Since(d.startedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(d.BytesDownloaded()) / elapsed
}

// FormatSpeed renders a bytes/sec rate for display, the same way the
// teacher's download manager formatted transfer speed.
func FormatSpeed(bytesPerSec float64) string {
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

// Cancel cancels the session's context. In-flight per-file downloads are
// not forcibly aborted; their results are discarded when they return.
func (d *DownloadState) Cancel() {
	if d.cancel != nil {
		d.cancel()
	}
}

// Wait blocks until the session reaches a terminal status or ctx is done.
func (d *DownloadState) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DownloadState) setTotal(n int64) {
	atomic.StoreInt64(&d.totalFiles, n)
}

func (d *DownloadState) addBytes(n int64) {
	if n > 0 {
		atomic.AddInt64(&d.downloadedBytes, n)
	}
}

func (d *DownloadState) incrementCompleted(currentFile string) {
	atomic.AddInt64(&d.completedFiles, 1)
	d.currentFile.Store(currentFile)
	d.fireProgress()
}

func (d *DownloadState) incrementFailed(currentFile string) {
	atomic.AddInt64(&d.failedFiles, 1)
	d.currentFile.Store(currentFile)
	d.fireProgress()
}

func (d *DownloadState) fireProgress() {
	d.cbMu.Lock()
	cbs := append([]ProgressCallback(nil), d.onProgress...)
	d.cbMu.Unlock()

	completed, failed, total, current := d.CompletedFiles(), d.FailedFiles(), d.TotalFiles(), d.CurrentFile()
	for _, cb := range cbs {
		cb(completed, failed, total, current)
	}
}

func (d *DownloadState) setStatus(status Status) {
	d.status.Store(int32(status))

	d.cbMu.Lock()
	cbs := append([]StatusCallback(nil), d.onStatus...)
	d.cbMu.Unlock()

	for _, cb := range cbs {
		cb(status)
	}

	if status.Terminal() {
		select {
		case <-d.done:
		default:
			close(d.done)
		}
	}
}

func (d *DownloadState) fireError(err error) {
	d.cbMu.Lock()
	cbs := append([]ErrorCallback(nil), d.onError...)
	d.cbMu.Unlock()

	for _, cb := range cbs {
		cb(err)
	}
}
