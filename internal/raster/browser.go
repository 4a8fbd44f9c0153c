package raster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"idcard/internal/render"
)

const pageShell = `<!doctype html><html><head><meta charset="utf-8"><style>html,body{margin:0;padding:0;background:transparent}</style></head><body>%s</body></html>`

// Browser screenshots the HTML rendition of a card in headless Chrome. It
// connects lazily on first use and keeps the browser for later exports.
type Browser struct {
	bin        string
	controlURL string
	log        *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowser uses controlURL when set, otherwise launches bin (or rod's default Chrome).
func NewBrowser(bin, controlURL string, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Browser{bin: bin, controlURL: controlURL, log: log}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}
	url := b.controlURL
	if url == "" {
		l := launcher.New().Headless(true)
		if b.bin != "" {
			l = l.Bin(b.bin)
		}
		launched, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		url = launched
	}
	br := rod.New().ControlURL(url)
	if err := br.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	b.log.Info("browser rasterizer connected", zap.String("control_url", url))
	b.browser = br
	return br, nil
}

// Rasterize loads the card fragment into a fresh page sized to the card and
// captures #card at opts.Scale device pixels per logical pixel.
func (b *Browser) Rasterize(ctx context.Context, l render.Layout, opts Options) ([]byte, error) {
	fragment, err := render.HTML(l)
	if err != nil {
		return nil, err
	}
	br, err := b.connect()
	if err != nil {
		return nil, err
	}

	page, err := br.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			b.log.Debug("close page", zap.Error(cerr))
		}
	}()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             int(math.Ceil(l.Width)),
		Height:            int(math.Ceil(l.Height)),
		DeviceScaleFactor: opts.scale(),
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.SetDocumentContent(fmt.Sprintf(pageShell, fragment)); err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for card: %w", err)
	}
	el, err := page.Element("#card")
	if err != nil {
		return nil, fmt.Errorf("find card: %w", err)
	}
	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, int(opts.Quality*100))
	if err != nil {
		return nil, fmt.Errorf("screenshot card: %w", err)
	}
	if len(png) == 0 {
		return nil, errors.New("empty screenshot")
	}
	return png, nil
}

// Close shuts the browser connection down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}
