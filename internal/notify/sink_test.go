package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mailhook/pkg/metrics"
)

func TestChatSink_Delivered(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, "hello").Return(nil)
	obs := &recordingObserver{}

	before := testutil.ToFloat64(metrics.ChatDelivery.WithLabelValues("sent"))
	ok := NewChatSink(sender, obs, zap.NewNop()).Deliver(context.Background(), "hello")

	assert.True(t, ok)
	assert.Empty(t, obs.records)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ChatDelivery.WithLabelValues("sent")))
	sender.AssertExpectations(t)
}

func TestChatSink_FailureIsContained(t *testing.T) {
	sendErr := errors.New("bad request: can't parse entities")
	sender := new(mockSender)
	sender.On("Send", mock.Anything, "hello").Return(sendErr)
	obs := &recordingObserver{}
	core, logs := observer.New(zap.WarnLevel)

	ok := NewChatSink(sender, obs, zap.New(core)).Deliver(context.Background(), "hello")

	assert.False(t, ok)
	if assert.Len(t, obs.records, 1) {
		assert.Equal(t, StageDeliver, obs.records[0].Stage)
		assert.ErrorIs(t, obs.records[0].Err, sendErr)
	}
	assert.Equal(t, 1, logs.FilterMessage("Chat delivery failed").Len())
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ok := NewLogSink(zap.New(core)).Deliver(context.Background(), "formatted")

	assert.True(t, ok)
	entries := logs.FilterMessage("New email notification").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "formatted", entries[0].ContextMap()["text"])
	}
}

func TestObservers_FanOut(t *testing.T) {
	var calls []Stage
	fn := ObserverFunc(func(rec FailureRecord) { calls = append(calls, rec.Stage) })
	core, logs := observer.New(zap.ErrorLevel)

	Observers{fn, NewLogObserver(zap.New(core)), MetricsObserver{}, fn}.
		ObserveFailure(FailureRecord{Stage: StageAck, Err: errors.New("x")})

	assert.Equal(t, []Stage{StageAck, StageAck}, calls)
	assert.Equal(t, 1, logs.Len())
}
