package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-rca/smsgate/internal/model"
)

type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	results  map[string]fakeResult
}

type fakeResult struct {
	code   int
	output string
}

func (f *fakeRunner) Run(ctx context.Context, command string) (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	for needle, res := range f.results {
		if strings.Contains(command, needle) {
			return res.code, res.output
		}
	}
	return 0, ""
}

type countingComposer struct {
	calls int
}

func (c *countingComposer) Compose(alert model.GrafanaWebhook, supervisionName string, maxLength int) string {
	c.calls++
	return NewComposer().Compose(alert, supervisionName, maxLength)
}

type fakeRecorder struct {
	dispatchID string
	outcomes   []model.DeliveryOutcome
	err        error
}

func (f *fakeRecorder) InsertDeliveries(ctx context.Context, dispatchID string, outcomes []model.DeliveryOutcome) error {
	f.dispatchID = dispatchID
	f.outcomes = outcomes
	return f.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testAlert() model.GrafanaWebhook {
	return model.GrafanaWebhook{Title: "HighLoad", OrgID: "1", Message: "load is high"}
}

func TestDispatchSkipsRateLimitedDestination(t *testing.T) {
	limiter := NewRateLimiter()
	opts := DispatchOptions{
		ServerMinInterval: 60 * time.Second,
		CommandTemplate:   "send ${NUMBER} ${ALERT_MESSAGE}",
	}
	limiter.RecordSent("111", t0.Add(-30*time.Second), opts)

	runner := &fakeRunner{}
	composer := &countingComposer{}
	svc := NewDispatchService(limiter, runner).WithComposer(composer).WithClock(fixedClock(t0))

	outcomes, err := svc.Dispatch(context.Background(), testAlert(), []string{"111", "222"}, opts)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "111", outcomes[0].Destination)
	assert.False(t, outcomes[0].Sent)
	assert.Equal(t, model.ReasonRateLimitedPerDestination, outcomes[0].Reason)
	assert.Nil(t, outcomes[0].CommandExitCode)

	assert.Equal(t, "222", outcomes[1].Destination)
	assert.True(t, outcomes[1].Sent)
	assert.Equal(t, model.ReasonSent, outcomes[1].Reason)

	assert.Equal(t, 1, composer.calls)
	assert.Equal(t, []string{"send '222' 'Supervision org 1: HighLoad\nload is high'"}, runner.commands)
}

func TestDispatchCommandFailureDoesNotAbortBatch(t *testing.T) {
	runner := &fakeRunner{results: map[string]fakeResult{
		"'111'": {code: 1, output: "line busy"},
	}}
	svc := NewDispatchService(NewRateLimiter(), runner).WithClock(fixedClock(t0))
	opts := DispatchOptions{CommandTemplate: "send ${NUMBER}"}

	outcomes, err := svc.Dispatch(context.Background(), testAlert(), []string{"111", "222", "333"}, opts)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	failed := outcomes[0]
	assert.False(t, failed.Sent)
	assert.Equal(t, model.ReasonCommandFailed, failed.Reason)
	require.NotNil(t, failed.CommandExitCode)
	require.NotNil(t, failed.CommandOutput)
	assert.Equal(t, 1, *failed.CommandExitCode)
	assert.Equal(t, "line busy", *failed.CommandOutput)

	assert.True(t, outcomes[1].Sent)
	assert.True(t, outcomes[2].Sent)
	assert.Len(t, runner.commands, 3)
}

func TestDispatchRecordsOnAttempt(t *testing.T) {
	runner := &fakeRunner{results: map[string]fakeResult{
		"'111'": {code: 2, output: "modem error"},
	}}
	limiter := NewRateLimiter()
	opts := DispatchOptions{ServerMinInterval: time.Minute, CommandTemplate: "send ${NUMBER}"}

	svc := NewDispatchService(limiter, runner).WithClock(fixedClock(t0))
	_, err := svc.Dispatch(context.Background(), testAlert(), []string{"111"}, opts)
	require.NoError(t, err)

	svc.WithClock(fixedClock(t0.Add(10 * time.Second)))
	outcomes, err := svc.Dispatch(context.Background(), testAlert(), []string{"111"}, opts)
	require.NoError(t, err)
	assert.Equal(t, model.ReasonRateLimitedPerDestination, outcomes[0].Reason)
	assert.Len(t, runner.commands, 1, "failed command still counts as an attempt")
}

func TestDispatchGlobalLimit(t *testing.T) {
	runner := &fakeRunner{}
	opts := DispatchOptions{
		GlobalLimit:     &GlobalLimit{Count: 2, Window: time.Minute},
		CommandTemplate: "send ${NUMBER}",
	}
	svc := NewDispatchService(NewRateLimiter(), runner).WithClock(fixedClock(t0))

	outcomes, err := svc.Dispatch(context.Background(), testAlert(), []string{"1", "2", "3"}, opts)
	require.NoError(t, err)
	assert.Equal(t, model.ReasonSent, outcomes[0].Reason)
	assert.Equal(t, model.ReasonSent, outcomes[1].Reason)
	assert.Equal(t, model.ReasonRateLimitedGlobal, outcomes[2].Reason)
}

func TestDispatchNotConfigured(t *testing.T) {
	runner := &fakeRunner{}
	composer := &countingComposer{}
	svc := NewDispatchService(NewRateLimiter(), runner).WithComposer(composer)

	outcomes, err := svc.Dispatch(context.Background(), testAlert(), []string{"111", "222"}, DispatchOptions{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, model.ReasonNotConfigured, o.Reason)
		assert.False(t, o.Sent)
	}
	assert.Zero(t, composer.calls)
	assert.Empty(t, runner.commands)
}

func TestDispatchNoDestinations(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewDispatchService(NewRateLimiter(), runner)

	outcomes, err := svc.Dispatch(context.Background(), testAlert(), nil, DispatchOptions{CommandTemplate: "send"})
	assert.ErrorIs(t, err, ErrNoDestinations)
	assert.Nil(t, outcomes)

	_, err = svc.DispatchText(context.Background(), "hi", []string{}, DispatchOptions{CommandTemplate: "send"})
	assert.ErrorIs(t, err, ErrNoDestinations)
}

func TestDispatchTextSanitizesAndTruncates(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewDispatchService(NewRateLimiter(), runner).WithClock(fixedClock(t0))
	opts := DispatchOptions{
		CommandTemplate:  "send ${NUMBER} ${ALERT_MESSAGE} ${ALERT_MESSAGE_LEN}",
		MaxMessageLength: 10,
	}

	outcomes, err := svc.DispatchText(context.Background(), "don't panic, everything is fine", []string{"555"}, opts)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Sent)
	assert.Equal(t, []string{"send '555' 'don-t p...' 10"}, runner.commands)
}

func TestDispatchRecordsHistory(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("db down")}
	svc := NewDispatchService(NewRateLimiter(), &fakeRunner{}).WithRecorder(recorder).WithClock(fixedClock(t0))

	outcomes, err := svc.Dispatch(context.Background(), testAlert(), []string{"1", "2"}, DispatchOptions{CommandTemplate: "send"})
	require.NoError(t, err, "recorder failures never fail a dispatch")
	assert.NotEmpty(t, recorder.dispatchID)
	assert.Equal(t, outcomes, recorder.outcomes)
}

func TestDispatchOptionsDefaults(t *testing.T) {
	opts := DispatchOptions{}
	assert.Equal(t, DefaultMaxMessageLength, opts.maxMessageLength())
	assert.Equal(t, DefaultSupervisionName, opts.supervisionName())
	assert.Zero(t, opts.effectiveMinInterval())

	opts = DispatchOptions{MaxMessageLength: 160, SupervisionName: "NOC", PerCallMinInterval: time.Minute, ServerMinInterval: time.Second}
	assert.Equal(t, 160, opts.maxMessageLength())
	assert.Equal(t, "NOC", opts.supervisionName())
	assert.Equal(t, time.Minute, opts.effectiveMinInterval())
}
