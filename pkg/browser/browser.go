// Package browser abstracts the page automation capability the reader
// drives. The core packages only see the Page interface; the one concrete
// implementation is the Playwright adapter in this package.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNoElement is returned by Text when the selector matches nothing.
var ErrNoElement = errors.New("no element matches selector")

// Page is the DOM-level capability consumed by the session bootstrap and
// the traversal engine.
type Page interface {
	// Navigate loads url and waits for the DOM content to be ready.
	Navigate(ctx context.Context, url string) error
	// URL returns the page's current URL.
	URL() string
	// Text returns the inner text of the first element matching selector,
	// or ErrNoElement when the element is absent.
	Text(selector string) (string, error)
	// Fill sets the value of the input matching selector.
	Fill(selector, value string) error
	// Click clicks the element matching selector.
	Click(selector string) error
	// ScrollByViewport scrolls the page down by one viewport height.
	ScrollByViewport() error
	// WaitForURL blocks until the page URL matches url or timeout elapses.
	WaitForURL(url string, timeout time.Duration) error
	// Screenshot captures a full-page screenshot.
	Screenshot() ([]byte, error)
	// Content returns the page's full HTML.
	Content() (string, error)
}

// StateSaver persists a session's storage state (cookies and local storage)
// so later runs can skip the interactive login.
type StateSaver interface {
	SaveStorageState(path string) error
}
