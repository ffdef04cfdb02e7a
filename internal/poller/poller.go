package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"vastdeploy/internal/clock"
	"vastdeploy/internal/marketplace"
)

// State of the watched instance
type State int

const (
	StateWaiting State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateReady:
		return "READY"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrTimeout = errors.New("timed out waiting for instance")

// TimeoutError is returned when the configured timeout or attempt limit is
// reached before the instance is ready. It matches ErrTimeout.
type TimeoutError struct {
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v after %d attempts (%s)", ErrTimeout, e.Attempts, e.Elapsed.Round(time.Second))
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// StatusFunc fetches the current state of the instance being watched
type StatusFunc func(ctx context.Context) (*marketplace.Instance, error)

// Config controls the loop. Zero Timeout and MaxAttempts poll forever.
type Config struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
	Port        int // container port the server listens on
}

// Result describes a ready instance
type Result struct {
	State    State
	Endpoint string
	Instance *marketplace.Instance
	Attempts int
	Elapsed  time.Duration
}

// Poller waits for an instance to be running with its server port mapped
type Poller struct {
	cfg      Config
	clock    clock.Clock
	progress io.Writer
	logger   *logrus.Logger
}

// Option configures a Poller
type Option func(*Poller)

func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithProgress sets where a dot is written for every attempt that is not ready
func WithProgress(w io.Writer) Option {
	return func(p *Poller) {
		p.progress = w
	}
}

func WithLogger(l *logrus.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// New creates a poller
func New(cfg Config, opts ...Option) *Poller {
	p := &Poller{
		cfg:      cfg,
		clock:    clock.RealClock{},
		progress: io.Discard,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Endpoint returns the external URL of the server when inst is running and
// the container port has a host mapping.
func Endpoint(inst *marketplace.Instance, port int) (string, bool) {
	if inst == nil || inst.ActualStatus != marketplace.StatusRunning {
		return "", false
	}
	hostPort, ok := inst.HostPort(port)
	if !ok {
		return "", false
	}
	return "http://" + net.JoinHostPort(inst.PublicIPAddr, hostPort), true
}

// Wait polls fetch until the instance is ready. A failing fetch ends the loop
// immediately; there is no retry.
func (p *Poller) Wait(ctx context.Context, fetch StatusFunc) (*Result, error) {
	start := p.clock.Now()

	for attempt := 1; ; attempt++ {
		inst, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		if endpoint, ok := Endpoint(inst, p.cfg.Port); ok {
			return &Result{
				State:    StateReady,
				Endpoint: endpoint,
				Instance: inst,
				Attempts: attempt,
				Elapsed:  p.clock.Since(start),
			}, nil
		}

		p.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"status":  inst.ActualStatus,
		}).Debug("Instance not ready")

		elapsed := p.clock.Since(start)
		if p.cfg.MaxAttempts > 0 && attempt >= p.cfg.MaxAttempts {
			return nil, &TimeoutError{Attempts: attempt, Elapsed: elapsed}
		}
		if p.cfg.Timeout > 0 && elapsed+p.cfg.Interval > p.cfg.Timeout {
			return nil, &TimeoutError{Attempts: attempt, Elapsed: elapsed}
		}

		fmt.Fprint(p.progress, ".")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.clock.After(p.cfg.Interval):
		}
	}
}
