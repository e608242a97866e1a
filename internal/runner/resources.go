// internal/runner/resources.go
package runner

import (
	"context"
	"errors"
	"io"

	"github.com/xkilldash9x/handoff/internal/browser"
)

// Agent executes a natural-language task, optionally with screenshots, in the
// browser identified by h and returns free text. Calls may take minutes.
type Agent interface {
	Execute(ctx context.Context, task string, useVision bool, h browser.Handle) (string, error)
}

// ResourceFactory creates the agent and browser a run needs.
type ResourceFactory interface {
	NewAgent(ctx context.Context) (Agent, error)
	AcquireBrowser(ctx context.Context, opts browser.Options) (browser.Handle, error)
}

// Resources are the agent and browser owned by one session. They are created
// on first need and reused across steps and pause/resume cycles.
type Resources struct {
	Agent   Agent
	Browser browser.Handle

	browserHeld bool
}

// NewResources wraps an already-acquired agent and browser handle.
func NewResources(agent Agent, h browser.Handle) *Resources {
	return &Resources{Agent: agent, Browser: h, browserHeld: true}
}

// Ready reports whether both the agent and the browser handle are held.
func (r *Resources) Ready() bool {
	return r != nil && r.Agent != nil && r.browserHeld
}

// Release closes the browser and, when it holds anything closable, the agent.
func (r *Resources) Release() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.browserHeld {
		errs = append(errs, r.Browser.Release())
	}
	if c, ok := r.Agent.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	r.Agent = nil
	r.Browser = browser.UseDefault()
	r.browserHeld = false
	return errors.Join(errs...)
}

func (c *Controller) acquire(ctx context.Context, state *RunState) error {
	if state.Resources == nil {
		state.Resources = &Resources{}
	}
	res := state.Resources
	if res.Agent == nil {
		agent, err := c.factory.NewAgent(ctx)
		if err != nil {
			return &StepError{Code: ErrCodeResourceAcquisition, Err: err}
		}
		res.Agent = agent
	}
	if !res.browserHeld {
		h, err := c.factory.AcquireBrowser(ctx, c.browserOpts)
		if err != nil {
			return &StepError{Code: ErrCodeResourceAcquisition, Err: err}
		}
		res.Browser = h
		res.browserHeld = true
	}
	return nil
}
