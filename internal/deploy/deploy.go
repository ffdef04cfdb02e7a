package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"vastdeploy/internal/clock"
	"vastdeploy/internal/config"
	"vastdeploy/internal/estimate"
	"vastdeploy/internal/marketplace"
	"vastdeploy/internal/metrics"
	"vastdeploy/internal/poller"
	"vastdeploy/internal/present"
	"vastdeploy/internal/ranking"
	"vastdeploy/internal/selection"
	"vastdeploy/internal/stream"
)

var ErrNoOffers = errors.New("no offers matched the search")

// Marketplace is the part of the vastai client the pipeline needs
type Marketplace interface {
	SearchOffers(ctx context.Context, query string) ([]*marketplace.Offer, error)
	CreateInstance(ctx context.Context, offerID int64, spec marketplace.LaunchSpec) (*marketplace.CreateResult, error)
	ShowInstance(ctx context.Context, id int64) (*marketplace.Instance, error)
}

// Deployer runs search, selection, provisioning and readiness polling
type Deployer struct {
	market      Marketplace
	cfg         *config.Config
	assumptions estimate.Assumptions

	in     io.Reader
	out    io.Writer
	logger *logrus.Logger
	events *stream.Emitter
	stats  *metrics.Recorder
	clock  clock.Clock
}

// Option configures a Deployer
type Option func(*Deployer)

func WithInput(r io.Reader) Option {
	return func(d *Deployer) {
		d.in = r
	}
}

func WithOutput(w io.Writer) Option {
	return func(d *Deployer) {
		d.out = w
	}
}

func WithLogger(l *logrus.Logger) Option {
	return func(d *Deployer) {
		d.logger = l
	}
}

func WithEmitter(e *stream.Emitter) Option {
	return func(d *Deployer) {
		d.events = e
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Deployer) {
		d.stats = r
	}
}

func WithClock(c clock.Clock) Option {
	return func(d *Deployer) {
		d.clock = c
	}
}

// New creates a deployer reading from stdin and writing to stdout
func New(market Marketplace, cfg *config.Config, opts ...Option) *Deployer {
	d := &Deployer{
		market:      market,
		cfg:         cfg,
		assumptions: estimate.FromConfig(cfg.Estimate),
		in:          os.Stdin,
		out:         os.Stdout,
		logger:      logrus.StandardLogger(),
		stats:       metrics.New(),
		clock:       clock.RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Metrics returns the recorder the run reports into
func (d *Deployer) Metrics() *metrics.Recorder {
	return d.stats
}

// RunOptions controls a deployment run
type RunOptions struct {
	// Select picks an option without prompting when non-nil
	Select *int
}

// Result describes a finished deployment
type Result struct {
	Selected   ranking.Option
	Index      int
	ContractID int64
	Endpoint   string
	Attempts   int
}

// Search queries the marketplace and returns every offer ranked by cost
func (d *Deployer) Search(ctx context.Context) ([]ranking.Option, error) {
	fmt.Fprintln(d.out, "Running vastai search...")

	offers, err := d.market.SearchOffers(ctx, d.cfg.Search.Query)
	if err != nil {
		return nil, d.fail(ctx, err)
	}

	fmt.Fprintf(d.out, "Found %d potential instances\n", len(offers))
	d.logger.WithField("offers", len(offers)).Info("Marketplace search completed")

	d.stats.ObserveSearch(len(offers))
	d.events.Emit(ctx, stream.Event{Type: stream.EventSearchCompleted, OfferCount: len(offers)})

	return ranking.Rank(offers, d.assumptions), nil
}

// List prints the cheapest options without deploying anything
func (d *Deployer) List(ctx context.Context, asJSON bool) ([]ranking.Option, error) {
	ranked, err := d.Search(ctx)
	if err != nil {
		return nil, err
	}
	top := ranking.Top(ranked, d.cfg.Search.Top)

	if asJSON {
		err = present.JSON(d.out, top)
	} else {
		err = present.Options(d.out, top, d.assumptions)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write options: %w", err)
	}

	return top, nil
}

// Run performs the whole pipeline: search, list, select, create and wait
func (d *Deployer) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	ranked, err := d.Search(ctx)
	if err != nil {
		return nil, err
	}

	top := ranking.Top(ranked, d.cfg.Search.Top)
	if len(top) == 0 {
		return nil, d.fail(ctx, ErrNoOffers)
	}

	if err := present.Options(d.out, top, d.assumptions); err != nil {
		return nil, d.fail(ctx, fmt.Errorf("failed to write options: %w", err))
	}

	var idx int
	if opts.Select != nil {
		idx, err = selection.Validate(*opts.Select, len(top))
	} else {
		idx, err = selection.Prompt(d.in, d.out, len(top))
	}
	if err != nil {
		return nil, d.fail(ctx, fmt.Errorf("invalid selection: %w", err))
	}

	chosen := top[idx]
	d.stats.ObserveSelection(chosen.Cost.WindowTotal)

	fmt.Fprintf(d.out, "Deploying OPTION #%d...\n", idx)
	d.logger.WithFields(logrus.Fields{
		"option":      idx,
		"offer":       chosen.Offer.ID,
		"window_cost": chosen.Cost.WindowTotal,
	}).Info("Creating instance")

	created, err := d.market.CreateInstance(ctx, chosen.Offer.ID, d.launchSpec())
	if err != nil {
		return nil, d.fail(ctx, err)
	}

	fmt.Fprintln(d.out, "Instance created successfully!")
	d.logger.WithField("contract", created.NewContract).Info("Instance created")
	d.events.Emit(ctx, stream.Event{
		Type:       stream.EventInstanceCreated,
		OfferID:    chosen.Offer.ID,
		ContractID: created.NewContract,
		WindowCost: chosen.Cost.WindowTotal,
	})

	ready, err := d.Wait(ctx, created.NewContract)
	if err != nil {
		return nil, err
	}

	return &Result{
		Selected:   chosen,
		Index:      idx,
		ContractID: created.NewContract,
		Endpoint:   ready.Endpoint,
		Attempts:   ready.Attempts,
	}, nil
}

// Wait polls an existing contract until its server port is reachable
func (d *Deployer) Wait(ctx context.Context, contractID int64) (*poller.Result, error) {
	fmt.Fprintln(d.out, "Waiting for instance to be ready...")

	p := poller.New(poller.Config{
		Interval:    d.cfg.Poll.Interval,
		Timeout:     d.cfg.Poll.Timeout,
		MaxAttempts: d.cfg.Poll.MaxAttempts,
		Port:        d.cfg.Launch.Port,
	},
		poller.WithClock(d.clock),
		poller.WithProgress(d.out),
		poller.WithLogger(d.logger),
	)

	result, err := p.Wait(ctx, func(ctx context.Context) (*marketplace.Instance, error) {
		return d.market.ShowInstance(ctx, contractID)
	})
	if err != nil {
		fmt.Fprintln(d.out)
		return nil, d.fail(ctx, err)
	}

	fmt.Fprintln(d.out, "\nInstance is ready!")
	fmt.Fprintf(d.out, "Access the server at: %s\n", result.Endpoint)
	fmt.Fprintln(d.out, "Note that it roughly takes 10 minutes to download the model.")

	d.logger.WithFields(logrus.Fields{
		"contract": contractID,
		"endpoint": result.Endpoint,
		"attempts": result.Attempts,
	}).Info("Instance ready")

	d.stats.ObserveReady(result.Attempts, result.Elapsed)
	d.events.Emit(ctx, stream.Event{
		Type:       stream.EventInstanceReady,
		ContractID: contractID,
		Endpoint:   result.Endpoint,
	})

	return result, nil
}

func (d *Deployer) launchSpec() marketplace.LaunchSpec {
	return marketplace.LaunchSpec{
		Image:   d.cfg.Launch.Image,
		DiskGB:  d.cfg.Launch.DiskGB,
		Env:     d.cfg.Launch.Env,
		OnStart: d.cfg.Launch.OnStart,
	}
}

func (d *Deployer) fail(ctx context.Context, err error) error {
	d.events.Emit(ctx, stream.Event{Type: stream.EventRunFailed, Error: err.Error()})
	return err
}

// Outcome maps the error returned by Run or Wait to a metrics outcome label
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeReady
	case errors.Is(err, poller.ErrTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFailed
	}
}
