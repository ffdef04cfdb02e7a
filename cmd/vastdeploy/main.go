package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vastdeploy/internal/config"
	"vastdeploy/internal/deploy"
	"vastdeploy/internal/marketplace"
	"vastdeploy/internal/stream"
	"vastdeploy/internal/stream/nats"
)

type Globals struct {
	Config    string `help:"Path to the YAML config file." type:"path" env:"VASTDEPLOY_CONFIG"`
	LogLevel  string `help:"Override logging.level (trace, debug, info, warn, error)."`
	LogFormat string `help:"Override logging.format (text or json)."`
}

type CLI struct {
	Globals

	Deploy DeployCmd `cmd:"" default:"withargs" help:"Search offers, pick one and start the inference server on it."`
	Search SearchCmd `cmd:"" help:"List the cheapest matching offers without deploying."`
	Wait   WaitCmd   `cmd:"" help:"Wait for an existing contract to become reachable."`
}

type DeployCmd struct {
	Option int `help:"Deploy this option without prompting. Negative means ask." default:"-1"`
}

func (c *DeployCmd) Run(a *app) error {
	opts := deploy.RunOptions{}
	if c.Option >= 0 {
		opts.Select = &c.Option
	}

	_, err := a.deployer.Run(a.ctx, opts)
	return a.finish(err)
}

type SearchCmd struct {
	JSON bool `help:"Print the options as JSON."`
	Top  int  `help:"Number of options to show, overrides search.top."`
}

func (c *SearchCmd) Run(a *app) error {
	if c.Top > 0 {
		a.cfg.Search.Top = c.Top
	}
	_, err := a.deployer.List(a.ctx, c.JSON)
	return err
}

type WaitCmd struct {
	ContractID int64 `arg:"" help:"Contract id returned when the instance was created."`
}

func (c *WaitCmd) Run(a *app) error {
	_, err := a.deployer.Wait(a.ctx, c.ContractID)
	return a.finish(err)
}

// app carries the wiring shared by every command
type app struct {
	ctx      context.Context
	cfg      *config.Config
	logger   *logrus.Logger
	deployer *deploy.Deployer
	emitter  *stream.Emitter
}

func newApp(ctx context.Context, g *Globals) (*app, error) {
	path := g.Config
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}

	logger, err := config.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger.AddHook(fieldHook{fields: logrus.Fields{"run_id": runID}})

	var publisher stream.Publisher
	if cfg.NATS.URL != "" {
		ns, err := nats.New(cfg.NATS.URL)
		if err != nil {
			logger.Warnf("Failed to initialize NATS stream: %v", err)
		} else {
			publisher = ns
			logger.Info("NATS stream initialized")
		}
	}
	emitter := stream.NewEmitter(publisher, cfg.NATS.Subject, runID, logger)

	market := marketplace.NewClient(cfg.Marketplace.Binary, cfg.Marketplace.APIKey,
		marketplace.WithLogger(logger),
	)

	return &app{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		deployer: deploy.New(market, cfg,
			deploy.WithLogger(logger),
			deploy.WithEmitter(emitter),
		),
		emitter: emitter,
	}, nil
}

// finish records the run outcome and pushes metrics when a gateway is set.
// runErr is returned unchanged.
func (a *app) finish(runErr error) error {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return runErr
	}

	rec := a.deployer.Metrics()
	rec.ObserveOutcome(deploy.Outcome(runErr), time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rec.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warnf("Metrics push failed: %v", err)
	}

	return runErr
}

func (a *app) Close() {
	if err := a.emitter.Close(); err != nil {
		a.logger.Warnf("Error closing NATS stream: %v", err)
	}
}

// fieldHook adds constant fields to every log entry
type fieldHook struct {
	fields logrus.Fields
}

func (h fieldHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h fieldHook) Fire(e *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := e.Data[k]; !ok {
			e.Data[k] = v
		}
	}
	return nil
}

func run() int {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("vastdeploy"),
		kong.Description("Rent the cheapest matching vast.ai GPU and start a llama.cpp server on it."),
		kong.UsageOnError(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, &cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := kctx.Run(a); err != nil {
		a.logger.WithError(err).Debug("Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
