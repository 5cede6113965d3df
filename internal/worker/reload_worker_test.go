package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"custos/internal/amqp"
	"custos/internal/core"
	"custos/internal/services"
)

type fakeReloader struct {
	mu     sync.Mutex
	calls  []bool
	err    error
	called chan struct{}
}

func (f *fakeReloader) Reload(_ context.Context, force bool) (services.ReloadResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, force)
	f.mu.Unlock()
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	return services.ReloadResult{SessionID: "s", Changed: force}, f.err
}

func (f *fakeReloader) forces() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.calls...)
}

func TestNewReloadWorker_InvalidSchedule(t *testing.T) {
	if _, err := NewReloadWorker(&fakeReloader{}, "not a schedule", nil); err == nil {
		t.Fatal("expected schedule parse error")
	}
	if _, err := NewReloadWorker(&fakeReloader{}, "*/5 * * * *", nil); err != nil {
		t.Fatalf("standard cron spec rejected: %v", err)
	}
}

func TestHandleReloadRequest(t *testing.T) {
	r := &fakeReloader{}
	w, err := NewReloadWorker(r, "", nil)
	if err != nil {
		t.Fatalf("NewReloadWorker() error = %v", err)
	}

	if err := w.HandleReloadRequest(context.Background(), amqp.NewReloadRequest(true, "ops")); err != nil {
		t.Fatalf("HandleReloadRequest() error = %v", err)
	}
	if err := w.HandleReloadRequest(context.Background(), &amqp.ReloadRequest{}); err != nil {
		t.Fatalf("HandleReloadRequest() error = %v", err)
	}
	got := r.forces()
	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("unexpected reload calls %v", got)
	}

}

func TestHandleReloadRequest_Settlement(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"source missing", fmt.Errorf("load custos.xlsx: %w", fmt.Errorf("read custos.xlsx: %w", core.ErrSourceNotFound)), false},
		{"corrupt workbook", fmt.Errorf("load custos.xlsx: %w", &core.LoadError{Source: "custos.xlsx", Err: errors.New("zip: not a valid zip file")}), false},
		{"canceled", context.Canceled, true},
		{"unexpected", errors.New("session store unavailable"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReloader{err: tt.err}
			w, err := NewReloadWorker(r, "", nil)
			if err != nil {
				t.Fatalf("NewReloadWorker() error = %v", err)
			}
			err = w.HandleReloadRequest(context.Background(), amqp.NewReloadRequest(true, "ops"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleReloadRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := r.forces(); len(got) != 1 {
				t.Fatalf("reload calls = %d, want 1", len(got))
			}
		})
	}
}

func TestRun_Schedule(t *testing.T) {
	r := &fakeReloader{called: make(chan struct{}, 1)}
	w, err := NewReloadWorker(r, "@every 1s", nil)
	if err != nil {
		t.Fatalf("NewReloadWorker() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-r.called:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled reload did not run")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if got := r.forces(); len(got) == 0 || got[0] {
		t.Fatalf("scheduled reloads must not be forced, got %v", got)
	}
}

func TestRun_NoSchedule(t *testing.T) {
	w, err := NewReloadWorker(&fakeReloader{}, "", nil)
	if err != nil {
		t.Fatalf("NewReloadWorker() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
