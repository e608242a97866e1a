// File: internal/browser/handle.go
package browser

import "context"

// Page is the browser surface an agent drives. Implementations must be safe
// to Close more than once.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Scroll(ctx context.Context, pixels int) error
	Screenshot(ctx context.Context) ([]byte, error)
	Location(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	Close() error
}

// Handle is either an explicit, configured Page or a marker telling the agent
// to use whatever browser it would pick on its own. The zero value is the marker.
type Handle struct {
	page Page
}

// Explicit wraps a configured page.
func Explicit(p Page) Handle {
	return Handle{page: p}
}

// UseDefault returns the marker handle.
func UseDefault() Handle {
	return Handle{}
}

// Page returns the configured page, if any.
func (h Handle) Page() (Page, bool) {
	return h.page, h.page != nil
}

// IsDefault reports whether the handle defers the choice of browser to the agent.
func (h Handle) IsDefault() bool {
	return h.page == nil
}

// Release closes the configured page. It is a no-op for the marker handle.
func (h Handle) Release() error {
	if h.page == nil {
		return nil
	}
	return h.page.Close()
}
