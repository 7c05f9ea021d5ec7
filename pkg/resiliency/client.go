// Package resiliency wraps http.Client with the resilience patterns every
// audit-core collaborator call needs: circuit breaking and exponential
// backoff with jitter. Each collaborator adapter builds its own instance
// with the fixed timeout its contract specifies.
package resiliency

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// Client executes HTTP requests with a request-id header, a circuit
// breaker, and retry-with-backoff on 5xx/transport failures. It never
// retries on 4xx — those are the collaborator's answer, not a transient
// failure.
type Client struct {
	http       *http.Client
	maxRetries int
	breaker    *CircuitBreaker
}

// New builds a Client with the given fixed per-request timeout.
func New(name string, timeout time.Duration) *Client {
	return &Client{
		http:       &http.Client{Timeout: timeout},
		maxRetries: 2,
		breaker:    NewCircuitBreaker(name, 5, 10*time.Second),
	}
}

// Do executes req, retrying transport errors and 5xx responses up to
// maxRetries times with exponential backoff and jitter. It returns
// immediately on success or on any 4xx (those are not retryable).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Request-ID", newTraceID())

	if !c.breaker.Allow() {
		return nil, fmt.Errorf("circuit breaker open for %s", c.breaker.name)
	}

	var resp *http.Response
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.http.Do(req)

		if err == nil && resp.StatusCode < 500 {
			c.breaker.Success()
			return resp, nil
		}

		if i == c.maxRetries {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(backoff(i))
	}

	c.breaker.Failure()
	return resp, err
}

func backoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
	jitter := time.Duration(0)
	if n, err := rand.Int(rand.Reader, big.NewInt(50)); err == nil {
		jitter = time.Duration(n.Int64()) * time.Millisecond
	}
	return base + jitter
}

func newTraceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return fmt.Sprintf("%032x", time.Now().UnixNano())
}

// CircuitBreaker is a simple three-state (CLOSED/OPEN/HALF_OPEN) failure
// detector, one per collaborator.
type CircuitBreaker struct {
	mu           sync.Mutex
	name         string
	failureCount int
	threshold    int
	lastFailure  time.Time
	resetTimeout time.Duration
	state        string
}

func NewCircuitBreaker(name string, threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{name: name, threshold: threshold, resetTimeout: timeout, state: "CLOSED"}
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == "OPEN" {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = "HALF_OPEN"
			return true
		}
		return false
	}
	return true
}

func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = "CLOSED"
	cb.failureCount = 0
}

func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailure = time.Now()
	if cb.failureCount >= cb.threshold {
		cb.state = "OPEN"
	}
}
