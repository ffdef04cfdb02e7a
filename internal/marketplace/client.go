package marketplace

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Client drives the vastai command-line interface
type Client struct {
	binary string
	apiKey string
	runner Runner
	logger *logrus.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRunner replaces the process runner, mainly for tests
func WithRunner(r Runner) ClientOption {
	return func(c *Client) {
		c.runner = r
	}
}

// WithLogger sets the logger used for command tracing
func WithLogger(l *logrus.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new vastai client. apiKey may be empty, in which case
// the CLI uses its stored credentials.
func NewClient(binary, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		binary: binary,
		apiKey: apiKey,
		runner: ExecRunner{},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchOffers runs `search offers <query>`
func (c *Client) SearchOffers(ctx context.Context, query string) ([]*Offer, error) {
	out, err := c.run(ctx, "search", "offers", query)
	if err != nil {
		return nil, fmt.Errorf("failed to search offers: %w", err)
	}

	offers, err := DecodeOffers(out)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(offers)).Debug("Offers decoded")
	return offers, nil
}

// CreateInstance rents the offer and starts spec on it
func (c *Client) CreateInstance(ctx context.Context, offerID int64, spec LaunchSpec) (*CreateResult, error) {
	out, err := c.run(ctx, "create", "instance", strconv.FormatInt(offerID, 10),
		"--image", spec.Image,
		"--disk", strconv.Itoa(spec.DiskGB),
		"--env", spec.Env,
		"--onstart-cmd", spec.OnStart,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	return DecodeCreateResult(out)
}

// ShowInstance runs `show instance <id>`
func (c *Client) ShowInstance(ctx context.Context, id int64) (*Instance, error) {
	out, err := c.run(ctx, "show", "instance", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to get instance info: %w", err)
	}

	return DecodeInstance(out)
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.apiKey != "" {
		args = append(args, "--api-key", c.apiKey)
	}
	args = append(args, "--raw")

	c.logger.WithField("args", redact(args)).Debug("Running marketplace command")
	return c.runner.Run(ctx, c.binary, args...)
}
