package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

var errProvider = errors.New("provider 503")

// call is one scripted Execute against a breaker with a fake clock.
type call struct {
	advance   time.Duration // clock moves before the call
	fnErr     error
	wantErr   error // nil means the call must run and succeed
	wantState State
}

func runScript(t *testing.T, b *Breaker, script []call) {
	t.Helper()
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }
	for i, c := range script {
		now = now.Add(c.advance)
		ran := false
		err := b.Execute(func() error {
			ran = true
			return c.fnErr
		})
		if !errors.Is(err, c.wantErr) || (c.wantErr == nil && err != nil) {
			t.Fatalf("call %d: err = %v, want %v", i, err, c.wantErr)
		}
		if errors.Is(err, ErrCircuitOpen) == ran {
			t.Fatalf("call %d: ran = %v with err %v", i, ran, err)
		}
		if got := b.State(); got != c.wantState {
			t.Fatalf("call %d: state = %s, want %s", i, got, c.wantState)
		}
	}
}

func TestBreakerScripts(t *testing.T) {
	tests := []struct {
		name   string
		script []call
	}{
		{
			name: "opens after consecutive failures",
			script: []call{
				{fnErr: errProvider, wantErr: errProvider, wantState: StateClosed},
				{fnErr: errProvider, wantErr: errProvider, wantState: StateOpen},
				{wantErr: ErrCircuitOpen, wantState: StateOpen},
			},
		},
		{
			name: "success resets the failure count",
			script: []call{
				{fnErr: errProvider, wantErr: errProvider, wantState: StateClosed},
				{wantState: StateClosed},
				{fnErr: errProvider, wantErr: errProvider, wantState: StateClosed},
				{wantState: StateClosed},
			},
		},
		{
			name: "half-open trial success closes",
			script: []call{
				{fnErr: errProvider, wantErr: errProvider, wantState: StateClosed},
				{fnErr: errProvider, wantErr: errProvider, wantState: StateOpen},
				{advance: 500 * time.Millisecond, wantErr: ErrCircuitOpen, wantState: StateOpen},
				{advance: time.Second, wantState: StateClosed},
			},
		},
		{
			name: "half-open trial failure reopens",
			script: []call{
				{fnErr: errProvider, wantErr: errProvider, wantState: StateClosed},
				{fnErr: errProvider, wantErr: errProvider, wantState: StateOpen},
				{advance: 2 * time.Second, fnErr: errProvider, wantErr: errProvider, wantState: StateOpen},
				{wantErr: ErrCircuitOpen, wantState: StateOpen},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runScript(t, NewBreaker(2, time.Second), tt.script)
		})
	}
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker(1, time.Second, WithIgnore(func(err error) bool {
		return errors.Is(err, context.Canceled)
	}))
	runScript(t, b, []call{
		{fnErr: context.Canceled, wantErr: context.Canceled, wantState: StateClosed},
		{fnErr: context.Canceled, wantErr: context.Canceled, wantState: StateClosed},
		{fnErr: errProvider, wantErr: errProvider, wantState: StateOpen},
	})
}

func TestBreakerReportsStateChanges(t *testing.T) {
	var changes []string
	b := NewBreaker(1, time.Second, WithStateChange(func(from, to State) {
		changes = append(changes, from.String()+"->"+to.String())
	}))
	runScript(t, b, []call{
		{fnErr: errProvider, wantErr: errProvider, wantState: StateOpen},
		{advance: time.Second, wantState: StateClosed},
	})

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if !slices.Equal(changes, want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
}
