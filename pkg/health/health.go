// Package health runs dependency checks for the /health endpoint. Checks run
// concurrently, each under its own deadline.
package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"vehiclepush/internal/config"
)

const DefaultTimeout = 5 * time.Second

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Optional  bool      `json:"optional,omitempty"`
	Latency   string    `json:"latency"`
	Timestamp time.Time `json:"timestamp"`
}

type Option func(*CheckerRegistry)

// WithConfig applies the timeouts and optional checker names from cfg.
func WithConfig(cfg config.HealthConfig) Option {
	return func(r *CheckerRegistry) {
		if cfg.Timeout > 0 {
			r.timeout = cfg.Timeout
		}
		for name, d := range cfg.Timeouts {
			r.timeouts[name] = d
		}
		for _, name := range cfg.Optional {
			r.optional[name] = true
		}
	}
}

type CheckerRegistry struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
	timeouts map[string]time.Duration
	optional map[string]bool
}

func NewCheckerRegistry(opts ...Option) *CheckerRegistry {
	r := &CheckerRegistry{
		timeout:  DefaultTimeout,
		timeouts: make(map[string]time.Duration),
		optional: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, checker)
}

func (r *CheckerRegistry) timeoutFor(name string) time.Duration {
	if d, ok := r.timeouts[name]; ok {
		return d
	}
	return r.timeout
}

// Check runs every checker and folds the results: any required failure
// makes the service unhealthy, optional failures only degrade it.
func (r *CheckerRegistry) Check(ctx context.Context) Health {
	r.mu.RLock()
	checkers := append([]Checker(nil), r.checkers...)
	r.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, checker := range checkers {
		g.Go(func() error {
			results[i] = r.run(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	health := Health{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checkers)),
	}
	for i, checker := range checkers {
		result := results[i]
		health.Checks[checker.Name()] = result
		switch {
		case result.Status == StatusHealthy:
		case result.Optional:
			if health.Status == StatusHealthy {
				health.Status = StatusDegraded
			}
		default:
			health.Status = StatusUnhealthy
		}
	}
	return health
}

func (r *CheckerRegistry) run(ctx context.Context, checker Checker) CheckResult {
	name := checker.Name()
	ctx, cancel := context.WithTimeout(ctx, r.timeoutFor(name))
	defer cancel()

	start := time.Now()
	err := checker.Check(ctx)
	result := CheckResult{
		Status:    StatusHealthy,
		Optional:  r.optional[name],
		Latency:   time.Since(start).Round(time.Microsecond).String(),
		Timestamp: time.Now(),
	}
	if err != nil {
		if r.optional[name] {
			result.Status = StatusDegraded
		} else {
			result.Status = StatusUnhealthy
		}
		result.Message = err.Error()
	}
	return result
}

// PingChecker adapts a ping function to Checker.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) error {
	if err := c.ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

func NewPostgreSQLChecker(db *sql.DB) *PingChecker {
	return NewPingChecker("postgresql", db.PingContext)
}

func NewRedisChecker(client *redis.Client) *PingChecker {
	return NewPingChecker("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func NewMongoDBChecker(client *mongo.Client) *PingChecker {
	return NewPingChecker("mongodb", func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
}

// NewSQLiteChecker runs a trivial query; Ping alone does not touch the file.
func NewSQLiteChecker(db *sql.DB) *PingChecker {
	return NewPingChecker("sqlite", func(ctx context.Context) error {
		var one int
		return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	})
}

// NewKafkaChecker succeeds when any broker accepts a connection.
func NewKafkaChecker(brokers []string) *PingChecker {
	return NewPingChecker("kafka", func(ctx context.Context) error {
		if len(brokers) == 0 {
			return errors.New("no brokers configured")
		}
		var errs []error
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			_ = conn.Close()
			return nil
		}
		return errors.Join(errs...)
	})
}

func NewMQTTChecker(client interface{ IsConnectionOpen() bool }) *PingChecker {
	return NewPingChecker("mqtt", func(context.Context) error {
		if !client.IsConnectionOpen() {
			return errors.New("connection is not open")
		}
		return nil
	})
}
