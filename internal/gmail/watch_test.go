package gmail

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRegistrar struct {
	calls  atomic.Int32
	err    error
	onCall func()
}

func (f *fakeRegistrar) Watch(_ context.Context, topic string, labelIDs []string) (WatchResult, error) {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return WatchResult{}, f.err
	}
	return WatchResult{HistoryID: 77, Expiration: time.Unix(0, 0).UTC()}, nil
}

func TestRenewOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewWatchRenewer(&fakeRegistrar{}, "projects/p/topics/t", []string{"INBOX"}, 0, zap.New(core))

	res, err := r.RenewOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 77, res.HistoryID)
	assert.Equal(t, 1, logs.FilterMessage("Gmail watch renewed").Len())
	assert.Equal(t, 24*time.Hour, r.interval)
}

func TestRenewOnce_Error(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewWatchRenewer(&fakeRegistrar{err: errors.New("forbidden")}, "t", nil, time.Hour, zap.New(core))

	_, err := r.RenewOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, logs.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := &fakeRegistrar{onCall: cancel}
	r := NewWatchRenewer(reg, "t", nil, time.Hour, zap.NewNop())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("renewer did not stop")
	}
	assert.Equal(t, int32(1), reg.calls.Load())
}
