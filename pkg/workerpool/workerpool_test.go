package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestProcess(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		ctx         context.Context
		workerCount int
		items       []int
		failOn      int
		wantErr     error
		wantCancel  bool
		wantSum     int32
		checkSum    bool
	}{
		{
			name:        "processes all items",
			ctx:         context.Background(),
			workerCount: 2,
			items:       []int{1, 2, 3, 4},
			wantSum:     10,
			checkSum:    true,
		},
		{
			name:        "zero workers still runs",
			ctx:         context.Background(),
			workerCount: 0,
			items:       []int{5, 6},
			wantSum:     11,
			checkSum:    true,
		},
		{
			name:        "error cancels workers and calls onCancel",
			ctx:         context.Background(),
			workerCount: 3,
			items:       []int{1, 2, 3},
			failOn:      2,
			wantErr:     boom,
			wantCancel:  true,
		},
		{
			name:        "canceled context",
			ctx:         canceledContext(),
			workerCount: 2,
			items:       []int{1, 2},
			wantErr:     context.Canceled,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var processed, canceled int32

			process := func(_ context.Context, v int) error {
				if v == tt.failOn {
					return boom
				}
				atomic.AddInt32(&processed, int32(v))
				return nil
			}
			onCancel := func() {
				atomic.AddInt32(&canceled, 1)
			}

			err := Process(tt.ctx, tt.workerCount, tt.items, process, onCancel)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Process() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantCancel != (canceled > 0) {
				t.Fatalf("onCancel calls = %d, want called %v", canceled, tt.wantCancel)
			}
			if tt.checkSum && processed != tt.wantSum {
				t.Fatalf("processed sum = %d, want %d", processed, tt.wantSum)
			}
		})
	}
}

func TestMap(t *testing.T) {
	items := []int{3, 1, 4, 1, 5, 9, 2, 6}

	got, err := Map(context.Background(), 3, items, func(_ context.Context, v int) (int, error) {
		return v * v, nil
	})
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	for i, v := range items {
		if got[i] != v*v {
			t.Fatalf("Map()[%d] = %d, want %d", i, got[i], v*v)
		}
	}

	boom := errors.New("boom")
	got, err = Map(context.Background(), 2, items, func(_ context.Context, v int) (int, error) {
		if v == 9 {
			return 0, boom
		}
		return v, nil
	})
	if !errors.Is(err, boom) || got != nil {
		t.Fatalf("Map() = %v, %v, want nil, %v", got, err, boom)
	}
}
