package engine

import (
	"context"
	"testing"
)

func TestStatus_StringAndTerminal(t *testing.T) {
	cases := []struct {
		status   Status
		terminal bool
	}{
		{StatusInitializing, false},
		{StatusDownloading, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}
	for _, c := range cases {
		if c.status.Terminal() != c.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", c.status, c.status.Terminal(), c.terminal)
		}
		if c.status.String() == "" {
			t.Errorf("%v.String() is empty", int(c.status))
		}
	}
}

func TestDownloadState_ProgressCallbacksFire(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	ds := newDownloadState(cancel)

	var gotCompleted, gotTotal int64
	var gotFile string
	ds.OnProgress(func(completed, failed, total int64, currentFile string) {
		gotCompleted, gotTotal, gotFile = completed, total, currentFile
	})

	ds.setTotal(3)
	ds.incrementCompleted("a.jar")

	if gotCompleted != 1 || gotTotal != 3 || gotFile != "a.jar" {
		t.Fatalf("progress callback got completed=%d total=%d file=%q", gotCompleted, gotTotal, gotFile)
	}
}

func TestDownloadState_StatusTransitionClosesDone(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	ds := newDownloadState(cancel)

	var seen []Status
	ds.OnStatus(func(s Status) { seen = append(seen, s) })

	ds.setStatus(StatusDownloading)
	ds.setStatus(StatusCompleted)
	// A second terminal transition must not panic on a double close.
	ds.setStatus(StatusCompleted)

	if err := ds.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 status callbacks, got %d", len(seen))
	}
}

func TestDownloadState_ErrorCallbackFires(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	ds := newDownloadState(cancel)

	var got error
	ds.OnError(func(err error) { got = err })

	want := newError(ErrNetworkFailure, nil)
	ds.fireError(want)

	if got != want {
		t.Fatalf("error callback got %v, want %v", got, want)
	}
}

func TestDownloadState_CancelInvokesCancelFunc(t *testing.T) {
	called := false
	ds := newDownloadState(func() { called = true })
	ds.Cancel()
	if !called {
		t.Fatal("expected Cancel to invoke the session's cancel func")
	}
}

func TestDownloadState_SpeedAndFormat(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	ds := newDownloadState(cancel)

	if ds.Speed() != 0 {
		t.Fatalf("expected zero speed before any bytes, got %f", ds.Speed())
	}

	ds.addBytes(1024)
	if ds.BytesDownloaded() != 1024 {
		t.Fatalf("BytesDownloaded = %d, want 1024", ds.BytesDownloaded())
	}

	if FormatSpeed(1024*1024) == "" {
		t.Fatal("expected a non-empty formatted speed")
	}
}
