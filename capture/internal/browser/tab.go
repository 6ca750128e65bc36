package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page with the capture primitives a scenario needs:
// viewport, element waits, screenshots, script evaluation, raw key events,
// and PDF printing.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

// OpenTab creates a new tab, applies the viewport, and navigates to the URL.
// Width/height of zero skip the viewport override. Navigation failure closes
// the tab and returns the error; a load-event timeout after a successful
// navigation is only logged, since scenarios gate on their own selectors.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, width, height int) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error

	if mgr.cfg.Stealth >= LevelStealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := blockResources(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	if width > 0 && height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             width,
			Height:            height,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}); err != nil {
			page.Close()
			return nil, fmt.Errorf("browser: set viewport %dx%d: %w", width, height, err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{
		Page:    page,
		PageURL: pageURL,
		manager: mgr,
	}, nil
}

// WaitElement blocks until an element matches the selector or the timeout
// elapses.
func (t *Tab) WaitElement(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := t.Page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: wait for %s: %w", selector, err)
	}
	return nil
}

// Screenshot captures the current viewport as PNG bytes.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := t.Page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return data, nil
}

// Eval runs a JS function in the page and returns its result. A thrown
// exception comes back as an error carrying the page's message.
func (t *Tab) Eval(ctx context.Context, js string) (*proto.RuntimeRemoteObject, error) {
	res, err := t.Page.Context(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return res, nil
}

// HTML serialises the complete DOM as outer HTML.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// KeyDown presses and holds a key. The page keeps seeing it as held until
// KeyUp is called.
func (t *Tab) KeyDown(key input.Key) error {
	if err := t.Page.Keyboard.Press(key); err != nil {
		return fmt.Errorf("browser: key down: %w", err)
	}
	return nil
}

// KeyUp releases a held key.
func (t *Tab) KeyUp(key input.Key) error {
	if err := t.Page.Keyboard.Release(key); err != nil {
		return fmt.Errorf("browser: key up: %w", err)
	}
	return nil
}

// Click left-clicks the first element matching the selector.
func (t *Tab) Click(ctx context.Context, selector string) error {
	el, err := t.Page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: click %s: element: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

// PDF prints the page and returns the document bytes.
func (t *Tab) PDF(ctx context.Context) ([]byte, error) {
	r, err := t.Page.Context(ctx).PDF(&proto.PagePrintToPDF{})
	if err != nil {
		return nil, fmt.Errorf("browser: pdf: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("browser: pdf read: %w", err)
	}
	return data, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
