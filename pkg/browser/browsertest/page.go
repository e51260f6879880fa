// Package browsertest provides a scripted in-memory Page implementation for
// tests of the session bootstrap and traversal engine.
package browsertest

import (
	"context"
	"time"

	"ldreader/pkg/browser"
)

// FakePage implements browser.Page with overridable behavior per method.
// Unset functions fall back to benign defaults. Calls are recorded so tests
// can assert on the interaction sequence.
type FakePage struct {
	NavigateFunc   func(url string) error
	URLFunc        func() string
	TextFunc       func(selector string) (string, error)
	FillFunc       func(selector, value string) error
	ClickFunc      func(selector string) error
	ScrollFunc     func() error
	WaitForURLFunc func(url string, timeout time.Duration) error
	ScreenshotFunc func() ([]byte, error)
	ContentFunc    func() (string, error)

	Navigations []string
	Fills       []FillCall
	Clicks      []string
	ScrollCount int
	SavedStates []string
}

// FillCall records one Fill invocation.
type FillCall struct {
	Selector string
	Value    string
}

var _ browser.Page = (*FakePage)(nil)
var _ browser.StateSaver = (*FakePage)(nil)

func (f *FakePage) Navigate(ctx context.Context, url string) error {
	f.Navigations = append(f.Navigations, url)
	if f.NavigateFunc != nil {
		return f.NavigateFunc(url)
	}
	return nil
}

func (f *FakePage) URL() string {
	if f.URLFunc != nil {
		return f.URLFunc()
	}
	if len(f.Navigations) > 0 {
		return f.Navigations[len(f.Navigations)-1]
	}
	return "about:blank"
}

func (f *FakePage) Text(selector string) (string, error) {
	if f.TextFunc != nil {
		return f.TextFunc(selector)
	}
	return "", browser.ErrNoElement
}

func (f *FakePage) Fill(selector, value string) error {
	f.Fills = append(f.Fills, FillCall{Selector: selector, Value: value})
	if f.FillFunc != nil {
		return f.FillFunc(selector, value)
	}
	return nil
}

func (f *FakePage) Click(selector string) error {
	f.Clicks = append(f.Clicks, selector)
	if f.ClickFunc != nil {
		return f.ClickFunc(selector)
	}
	return nil
}

func (f *FakePage) ScrollByViewport() error {
	f.ScrollCount++
	if f.ScrollFunc != nil {
		return f.ScrollFunc()
	}
	return nil
}

func (f *FakePage) WaitForURL(url string, timeout time.Duration) error {
	if f.WaitForURLFunc != nil {
		return f.WaitForURLFunc(url, timeout)
	}
	return nil
}

func (f *FakePage) Screenshot() ([]byte, error) {
	if f.ScreenshotFunc != nil {
		return f.ScreenshotFunc()
	}
	return []byte("png"), nil
}

func (f *FakePage) Content() (string, error) {
	if f.ContentFunc != nil {
		return f.ContentFunc()
	}
	return "<html></html>", nil
}

func (f *FakePage) SaveStorageState(path string) error {
	f.SavedStates = append(f.SavedStates, path)
	return nil
}
