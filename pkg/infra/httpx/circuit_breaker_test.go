package httpx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCircuitBreaker(t *testing.T) {
	breaker := NewCircuitBreaker("oracle", 30*time.Second, 3)
	require.NotNil(t, breaker)

	wrapper, ok := breaker.(*circuitBreakerWrapper)
	require.True(t, ok)
	assert.Equal(t, "oracle", wrapper.breaker.Name())
	assert.Equal(t, "closed", breaker.State())
}

func TestNewCircuitBreaker_ZeroMaxFailuresUsesDefault(t *testing.T) {
	breaker := NewCircuitBreaker("zero-threshold", 30*time.Second, 0)
	failing := func() error { return errors.New("boom") }

	for i := uint32(1); i < DefaultMaxFailures; i++ {
		require.Error(t, breaker.Execute(failing))
		assert.Equal(t, "closed", breaker.State(), "failure %d must not trip the breaker", i)
	}
	require.Error(t, breaker.Execute(failing))
	assert.Equal(t, "open", breaker.State())
}

func TestCircuitBreakerWrapper_Execute_ErrorWrapping(t *testing.T) {
	breaker := NewCircuitBreaker("error-wrap-test", 30*time.Second, 3)
	testError := errors.New("original error")

	err := breaker.Execute(func() error {
		return testError
	})

	assert.ErrorIs(t, err, testError)
	assert.Contains(t, err.Error(), "breaker (error-wrap-test)")
	assert.NoError(t, breaker.Execute(func() error { return nil }))
}

func TestCircuitBreakerWrapper_Execute_PanicScenarios(t *testing.T) {
	tests := []struct {
		name       string
		panicValue interface{}
	}{
		{name: "String panic", panicValue: "test panic"},
		{name: "Error panic", panicValue: errors.New("panic error")},
		{name: "Integer panic", panicValue: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := NewCircuitBreaker("panic-scenario-test", 30*time.Second, 3)

			err := breaker.Execute(func() error {
				panic(tt.panicValue)
			})

			assert.Error(t, err)
			assert.Contains(t, err.Error(), "panic-scenario-test")
			assert.Contains(t, err.Error(), "panic recovered:")
		})
	}
}

func TestCircuitBreakerWrapper_Execute_CircuitOpen(t *testing.T) {
	breaker := NewCircuitBreaker("circuit-open-test", time.Minute, 2)

	for i := 0; i < 2; i++ {
		assert.Error(t, breaker.Execute(func() error { return errors.New("failure") }))
	}

	called := false
	err := breaker.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
	assert.Equal(t, "open", breaker.State())
}

func TestCircuitBreakerWrapper_Execute_CircuitRecovery(t *testing.T) {
	breaker := NewCircuitBreaker("recovery-test", 50*time.Millisecond, 1)

	assert.Error(t, breaker.Execute(func() error { return errors.New("trigger failure") }))
	assert.Equal(t, "open", breaker.State())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "half-open", breaker.State())

	assert.NoError(t, breaker.Execute(func() error { return nil }))
	assert.NotEqual(t, "open", breaker.State())
}

func TestCircuitBreakerWrapper_StateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	breaker := NewCircuitBreaker("callback-test", time.Minute, 1, WithStateChange(func(name, from, to string) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, name+":"+from+"->"+to)
	}))

	_ = breaker.Execute(func() error { return errors.New("boom") }) //nolint:errcheck

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"callback-test:closed->open"}, transitions)
}

func TestCircuitBreakerWrapper_IgnoredErrors(t *testing.T) {
	breaker := NewCircuitBreaker("ignored-test", time.Minute, 1, WithIgnoredErrors(func(err error) bool {
		return errors.Is(err, context.Canceled)
	}))

	for i := 0; i < 3; i++ {
		err := breaker.Execute(func() error { return context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", breaker.State())
}
