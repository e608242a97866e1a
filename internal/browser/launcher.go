// File: internal/browser/launcher.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/handoff/internal/config"
	"go.uber.org/zap"
)

// Options describes the browser to acquire.
type Options struct {
	Mode            config.BrowserMode
	Headless        bool
	IgnoreTLSErrors bool
	ExecPath        string
	Args            []string
	AllowedDomains  []string
	MinWait         time.Duration
	MaxWait         time.Duration
	LaunchTimeout   time.Duration
}

// OptionsFromConfig maps the browser section of the configuration onto Options.
// An empty allow-list falls back to config.DefaultAllowedDomains.
func OptionsFromConfig(cfg config.BrowserConfig) Options {
	domains := cfg.AllowedDomains
	if len(normalizeDomains(domains)) == 0 {
		domains = config.DefaultAllowedDomains
	}
	return Options{
		Mode:            cfg.Mode,
		Headless:        cfg.Headless,
		IgnoreTLSErrors: cfg.IgnoreTLSErrors,
		ExecPath:        cfg.ExecPath,
		Args:            cfg.Args,
		AllowedDomains:  domains,
		MinWait:         cfg.MinPageLoadWait,
		MaxWait:         cfg.MaxPageLoadWait,
		LaunchTimeout:   cfg.LaunchTimeout,
	}
}

// Launcher starts Chrome instances through chromedp.
type Launcher struct {
	logger *zap.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(logger *zap.Logger) *Launcher {
	return &Launcher{logger: logger.Named("browser")}
}

// Acquire resolves opts into a Handle. In default mode no browser is started
// and the agent chooses its own.
func (l *Launcher) Acquire(ctx context.Context, opts Options) (Handle, error) {
	if opts.Mode == config.BrowserModeDefault {
		l.logger.Debug("Deferring browser choice to the agent.")
		return UseDefault(), nil
	}
	page, err := l.Launch(ctx, opts)
	if err != nil {
		return Handle{}, err
	}
	return Explicit(page), nil
}

// Launch starts a new browser process with a single tab and the allow-list
// enforced on every top-level document request.
func (l *Launcher) Launch(ctx context.Context, opts Options) (*ChromePage, error) {
	// The allocator must outlive ctx; it is torn down by ChromePage.Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	page := &ChromePage{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		allow:       NewAllowlist(opts.AllowedDomains),
		minWait:     opts.MinWait,
		maxWait:     opts.MaxWait,
		logger:      l.logger,
	}

	chromedp.ListenTarget(tabCtx, page.onTargetEvent)

	timeout := opts.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	started := make(chan error, 1)
	go func() {
		// The first Run allocates the browser, so it must not carry a deadline.
		started <- chromedp.Run(tabCtx,
			fetch.Enable().WithPatterns([]*fetch.RequestPattern{{
				URLPattern:   "*",
				ResourceType: network.ResourceTypeDocument,
				RequestStage: fetch.RequestStageRequest,
			}}),
			chromedp.Navigate("about:blank"),
		)
	}()

	select {
	case err := <-started:
		if err != nil {
			page.Close()
			return nil, fmt.Errorf("browser failed to start or respond: %w", err)
		}
	case <-time.After(timeout):
		page.Close()
		return nil, fmt.Errorf("browser failed to start within %s", timeout)
	case <-ctx.Done():
		page.Close()
		return nil, ctx.Err()
	}

	l.logger.Info("Browser launched.",
		zap.Bool("headless", opts.Headless),
		zap.Strings("allowed_domains", page.allow.Domains()))
	return page, nil
}

// launchFlags returns the command-line switches passed to Chrome on top of
// chromedp's defaults.
func launchFlags(opts Options, goos string) map[string]any {
	flags := map[string]any{
		// A false value removes the default switch.
		"enable-automation":         false,
		"headless":                  opts.Headless,
		"ignore-certificate-errors": opts.IgnoreTLSErrors,
		"disable-blink-features":    "AutomationControlled",
		"disable-extensions":        true,
		"disable-gpu":               opts.Headless,
	}
	if goos == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}
	for _, arg := range opts.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)

	flags := launchFlags(opts, runtime.GOOS)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, chromedp.Flag(name, flags[name]))
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	return out
}

// ChromePage is a single chromedp tab.
type ChromePage struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	allow       *Allowlist
	minWait     time.Duration
	maxWait     time.Duration
	logger      *zap.Logger
	closeOnce   sync.Once
}

var _ Page = (*ChromePage)(nil)

func (p *ChromePage) onTargetEvent(ev any) {
	paused, ok := ev.(*fetch.EventRequestPaused)
	if !ok {
		return
	}
	go func() {
		c := chromedp.FromContext(p.tabCtx)
		if c == nil || c.Target == nil {
			return
		}
		execCtx := cdp.WithExecutor(p.tabCtx, c.Target)
		var err error
		if p.allow.Allows(paused.Request.URL) {
			err = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
		} else {
			p.logger.Warn("Blocked navigation outside the allow-list.", zap.String("url", paused.Request.URL))
			err = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Debug("Failed to resolve paused request.", zap.Error(err))
		}
	}()
}

// run executes actions on the tab, bounded by the page-load ceiling and
// cancelled together with ctx.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if p.maxWait > 0 {
		runCtx, cancel = context.WithTimeout(p.tabCtx, p.maxWait)
	} else {
		runCtx, cancel = context.WithCancel(p.tabCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads rawURL. Hosts outside the allow-list are refused before any
// request is made. A load that outlasts the page-load ceiling is not an error;
// the page is used in whatever state it reached.
func (p *ChromePage) Navigate(ctx context.Context, rawURL string) error {
	if !p.allow.Allows(rawURL) {
		return fmt.Errorf("navigate to %q: %w", rawURL, ErrDomainNotAllowed)
	}
	start := time.Now()
	err := p.run(ctx, chromedp.Navigate(rawURL))
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		p.logger.Warn("Page load exceeded the wait ceiling; continuing.",
			zap.String("url", rawURL), zap.Duration("max_wait", p.maxWait))
	default:
		return fmt.Errorf("navigate to %q: %w", rawURL, err)
	}
	return p.settle(ctx, start)
}

// settle holds until at least minWait has passed since start.
func (p *ChromePage) settle(ctx context.Context, start time.Time) error {
	remaining := p.minWait - time.Since(start)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ChromePage) Click(ctx context.Context, selector string) error {
	start := time.Now()
	if err := p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return p.settle(ctx, start)
}

func (p *ChromePage) Type(ctx context.Context, selector, text string) error {
	if err := p.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

func (p *ChromePage) Scroll(ctx context.Context, pixels int) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil))
}

func (p *ChromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *ChromePage) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Text returns the visible text of the document body.
func (p *ChromePage) Text(ctx context.Context) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
		return "", err
	}
	return text, nil
}

// Close shuts the tab and the browser process.
func (p *ChromePage) Close() error {
	p.closeOnce.Do(func() {
		if p.tabCancel != nil {
			p.tabCancel()
		}
		if p.allocCancel != nil {
			p.allocCancel()
		}
	})
	return nil
}
