package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/Eshwar187/twin-clone-01/internal/adapter/metrics"
)

// CircuitBreakerHook guards every Redis command with a circuit breaker.
// While the breaker is open, GETs are answered from the last value seen for
// the key (if recent enough) and everything else fails fast.
type CircuitBreakerHook struct {
	cb    *gobreaker.CircuitBreaker
	cache *cacheStore
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

type cacheStore struct {
	mu     sync.RWMutex
	values map[string]cachedValue
}

type cachedValue struct {
	data      string
	timestamp time.Time
}

const cacheTTL = 5 * time.Minute

// NewCircuitBreakerHook trips after at least 5 requests with a 60% failure
// rate inside a 10s window, waits 30s before probing, and closes again after
// 3 successful probes. m may be nil.
func NewCircuitBreakerHook(m *metrics.RedisMetrics) *CircuitBreakerHook {
	settings := gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.BreakerStateChanges.WithLabelValues(to.String()).Inc()
				m.BreakerState.Set(stateToFloat(to))
			}
		},
	}

	return &CircuitBreakerHook{
		cb:    gobreaker.NewCircuitBreaker(settings),
		cache: &cacheStore{values: make(map[string]cachedValue)},
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func isRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := h.cb.Execute(func() (any, error) {
			return next(ctx, network, addr)
		})
		if err != nil {
			if isRejected(err) {
				return nil, fmt.Errorf("redis circuit breaker open: %w", err)
			}
			return nil, fmt.Errorf("circuit breaker dial failed: %w", err)
		}
		return conn.(net.Conn), nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		var cmdErr error
		_, err := h.cb.Execute(func() (any, error) {
			cmdErr = next(ctx, cmd)
			if cmdErr != nil && !errors.Is(cmdErr, goredis.Nil) {
				return nil, cmdErr
			}
			return nil, nil
		})
		if isRejected(err) {
			return h.handleFallback(cmd, err)
		}

		if cmdErr == nil {
			h.cacheResult(cmd)
		}
		// redis.Nil must reach the caller unwrapped.
		if cmdErr != nil && !errors.Is(cmdErr, goredis.Nil) {
			return fmt.Errorf("circuit breaker process failed: %w", cmdErr)
		}
		return cmdErr
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmds)
		})
		if err == nil {
			return nil
		}
		if isRejected(err) {
			return fmt.Errorf("redis circuit breaker open: %w", err)
		}
		return fmt.Errorf("circuit breaker pipeline failed: %w", err)
	}
}

func (h *CircuitBreakerHook) handleFallback(cmd goredis.Cmder, cause error) error {
	if cmd.Name() == "get" {
		if value, ok := h.getFromCache(cmd); ok {
			if c, ok := cmd.(*goredis.StringCmd); ok {
				slog.Debug("Circuit breaker open, serving from cache", "command", cmd.Name())
				c.SetVal(value)
				return nil
			}
		}
		return fmt.Errorf("redis circuit breaker open and no cached value: %w", cause)
	}

	slog.Warn("Circuit breaker open, rejecting command", "command", cmd.Name())
	return fmt.Errorf("redis circuit breaker open: %w", cause)
}

func (h *CircuitBreakerHook) cacheResult(cmd goredis.Cmder) {
	if cmd.Name() != "get" {
		return
	}
	args := cmd.Args()
	c, ok := cmd.(*goredis.StringCmd)
	if len(args) < 2 || !ok {
		return
	}
	value, err := c.Result()
	if err != nil || value == "" {
		return
	}

	h.cache.mu.Lock()
	h.cache.values[fmt.Sprint(args[1])] = cachedValue{data: value, timestamp: time.Now()}
	h.cache.mu.Unlock()
}

func (h *CircuitBreakerHook) getFromCache(cmd goredis.Cmder) (string, bool) {
	args := cmd.Args()
	if len(args) < 2 {
		return "", false
	}

	h.cache.mu.RLock()
	defer h.cache.mu.RUnlock()
	cached, ok := h.cache.values[fmt.Sprint(args[1])]
	if !ok || time.Since(cached.timestamp) > cacheTTL {
		return "", false
	}
	return cached.data, true
}

// GetState returns the breaker state.
func (h *CircuitBreakerHook) GetState() gobreaker.State {
	return h.cb.State()
}

// GetCounts returns the breaker's counters for the current window.
func (h *CircuitBreakerHook) GetCounts() gobreaker.Counts {
	return h.cb.Counts()
}
