package httpclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/httpapi/component"
	"github.com/kbukum/httpapi/resilience"
)

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// Component wraps a Client with lifecycle management. The client is built
// on Start, so option errors surface there.
type Component struct {
	*component.Lazy

	opts    Options
	options []Option
	client  *Client
}

// NewComponent creates a client component. Nothing is built until Start.
func NewComponent(opts Options, options ...Option) *Component {
	c := &Component{opts: opts, options: options}
	name := opts.ClientName
	if name == "" {
		name = "http-client"
	}
	c.Lazy = component.NewLazy(name, func(context.Context) error {
		client, err := New(c.opts, c.options...)
		if err != nil {
			return err
		}
		c.client = client
		return nil
	}).OnStop(func(ctx context.Context) error {
		return c.client.Close(ctx)
	}).OnCheck(c.checkCircuits)
	return c
}

// Health is unhealthy before Start and degraded while a circuit breaker of
// the client is open.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if err := c.Check(ctx); err != nil {
		h.Message = err.Error()
		h.Status = component.StatusUnhealthy
		if c.Running() {
			h.Status = component.StatusDegraded
		}
	}
	return h
}

func (c *Component) checkCircuits(context.Context) error {
	var open []string
	for _, p := range c.client.opts.Policies.Values() {
		for _, cb := range circuitBreakers(p) {
			if cb.State() == resilience.StateOpen {
				open = append(open, cb.Name())
			}
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("circuit open: %s", strings.Join(open, ", "))
	}
	return nil
}

// Describe returns the component description for the startup summary.
func (c *Component) Describe() component.Description {
	details := c.opts.BaseAddress
	if c.client != nil {
		if n := c.client.opts.Policies.Len(); n > 0 {
			details += fmt.Sprintf(" policies=%d", n)
		}
	}
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: strings.TrimSpace(details),
	}
}

// Client returns the client. It is nil before Start.
func (c *Component) Client() *Client {
	return c.client
}
