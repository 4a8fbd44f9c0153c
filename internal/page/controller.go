// Package page is the two-tab page: it decides whether the form or the
// preview is shown, which card is active, and which notifications are pending.
package page

import (
	"context"
	"errors"
	"html/template"
	"slices"
	"sync"

	"go.uber.org/zap"

	"idcard/internal/form"
	"idcard/internal/gallery"
	"idcard/internal/preview"
	"idcard/internal/queue"
	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/student"
)

type Step string

const (
	StepForm    Step = "form"
	StepPreview Step = "preview"
)

type Tab string

const (
	TabGenerate Tab = "generate"
	TabSaved    Tab = "saved"
)

// ParseTab falls back to the generate tab.
func ParseTab(s string) Tab {
	if Tab(s) == TabSaved {
		return TabSaved
	}
	return TabGenerate
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is a transient notification.
type Toast struct {
	Level   Level
	Message string
}

// Notification texts.
const (
	MsgGenerated      = "ID Card generated successfully"
	MsgSaveFailed     = "Failed to save ID card"
	MsgDownloaded     = "ID Card downloaded successfully"
	MsgDownloadFailed = "Failed to download ID card"
	MsgDeleted        = "ID Card deleted"
	MsgDeleteFailed   = "Failed to delete ID card"
	MsgLoadFailed     = "Failed to load saved ID cards"
)

var (
	ErrNoActiveCard = errors.New("no card is being previewed")
	ErrUnknownCard  = errors.New("card is not in the saved list")
)

// Store persists submitted drafts.
type Store interface {
	Save(ctx context.Context, draft student.Record) (student.Record, error)
	List(ctx context.Context) ([]student.Record, error)
}

// Publisher announces saved and deleted cards to the background worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Deps are shared by every controller.
type Deps struct {
	Store    Store
	Exporter *raster.Exporter
	Gallery  *gallery.Gallery
	Queue    Publisher
	Log      *zap.Logger
}

// Controller is the page state of one session.
type Controller struct {
	deps Deps

	mu      sync.Mutex
	step    Step
	tab     Tab
	active  *student.Record
	saved   []student.Record
	form    *form.State
	preview *preview.State
	toasts  []Toast
}

func NewController(d Deps) *Controller {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Controller{
		deps:    d,
		step:    StepForm,
		tab:     TabGenerate,
		form:    form.New(),
		preview: preview.New(d.Exporter),
	}
}

// Load refreshes the saved list from the store.
func (c *Controller) Load(ctx context.Context) error {
	list, err := c.deps.Store.List(ctx)
	if err != nil {
		c.deps.Log.Error("load saved cards", zap.Error(err))
		c.Notify(LevelError, MsgLoadFailed)
		return err
	}
	c.mu.Lock()
	c.saved = list
	c.mu.Unlock()
	return nil
}

// Form returns the form being edited.
func (c *Controller) Form() *form.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Preview returns the preview of the active card.
func (c *Controller) Preview() *preview.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// SubmitForm validates the form and, when complete, saves the draft. A
// validation failure becomes a warning toast.
func (c *Controller) SubmitForm(ctx context.Context) (student.Record, error) {
	f := c.Form()
	var saved student.Record
	err := f.Submit(func(draft student.Record) error {
		var err error
		saved, err = c.Submit(ctx, draft)
		return err
	})
	if errors.Is(err, form.ErrMissingFields) {
		c.Notify(LevelWarning, form.Message(err))
	}
	return saved, err
}

// Submit persists a validated draft, makes it the active card and moves to
// the preview step.
func (c *Controller) Submit(ctx context.Context, draft student.Record) (student.Record, error) {
	f := c.Form()
	f.SetSubmitting(true)
	defer f.SetSubmitting(false)

	rec, err := c.deps.Store.Save(ctx, draft)
	if err != nil {
		c.deps.Log.Error("save card", zap.Error(err))
		c.Notify(LevelError, MsgSaveFailed)
		return student.Record{}, err
	}
	list, err := c.deps.Store.List(ctx)
	if err != nil {
		c.deps.Log.Warn("refresh saved cards", zap.Error(err))
		list = nil
	}

	c.mu.Lock()
	if list == nil {
		list = append([]student.Record{rec}, c.saved...)
	}
	c.saved = list
	active := rec.Clone()
	c.active = &active
	c.step = StepPreview
	c.preview = preview.New(c.deps.Exporter)
	c.toasts = append(c.toasts, Toast{LevelSuccess, MsgGenerated})
	c.mu.Unlock()

	c.publish(ctx, queue.CardSaved, rec.ID)
	return rec, nil
}

// Reset returns to an empty form. The saved list is unaffected.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = StepForm
	c.active = nil
	c.form = form.New()
	c.preview = preview.New(c.deps.Exporter)
}

// Select previews a saved card on the generate tab.
func (c *Controller) Select(rec student.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := rec.Clone()
	c.active = &active
	c.step = StepPreview
	c.tab = TabGenerate
	c.preview = preview.New(c.deps.Exporter)
}

// View selects the saved card with id.
func (c *Controller) View(id string) error {
	rec, ok := gallery.View(c.Saved(), id)
	if !ok {
		return ErrUnknownCard
	}
	c.Select(rec)
	return nil
}

// SetTab switches tabs without touching anything else.
func (c *Controller) SetTab(t Tab) {
	c.mu.Lock()
	c.tab = t
	c.mu.Unlock()
}

// Deleted drops id from the saved list after a delete made elsewhere.
func (c *Controller) Deleted(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]student.Record, 0, len(c.saved))
	for _, r := range c.saved {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	c.saved = kept
}

// Delete removes a saved card. The previewed card, if it is the same one,
// stays on screen.
func (c *Controller) Delete(ctx context.Context, id string) error {
	kept, err := c.deps.Gallery.Delete(ctx, c.Saved(), id)
	if err != nil {
		c.deps.Log.Error("delete card", zap.String("card_id", id), zap.Error(err))
		c.Notify(LevelError, MsgDeleteFailed)
		return err
	}
	c.mu.Lock()
	c.saved = kept
	c.toasts = append(c.toasts, Toast{LevelSuccess, MsgDeleted})
	c.mu.Unlock()
	c.publish(ctx, queue.CardDeleted, id)
	return nil
}

// ExportActive downloads the previewed card with the selected template.
// ErrBusy is returned without a notification; the control is disabled.
func (c *Controller) ExportActive(ctx context.Context) (raster.Artifact, error) {
	c.mu.Lock()
	active, p := c.active, c.preview
	c.mu.Unlock()
	if active == nil {
		return raster.Artifact{}, ErrNoActiveCard
	}
	art, err := p.Export(ctx, *active)
	if errors.Is(err, preview.ErrBusy) {
		return art, err
	}
	c.notifyExport(err)
	return art, err
}

// ExportSaved downloads a saved card with the classic template.
func (c *Controller) ExportSaved(ctx context.Context, id string) (raster.Artifact, error) {
	rec, ok := gallery.View(c.Saved(), id)
	if !ok {
		return raster.Artifact{}, ErrUnknownCard
	}
	art, err := c.deps.Gallery.Export(ctx, rec)
	c.notifyExport(err)
	return art, err
}

func (c *Controller) notifyExport(err error) {
	if err != nil {
		c.Notify(LevelError, MsgDownloadFailed)
		return
	}
	c.Notify(LevelSuccess, MsgDownloaded)
}

// SelectTemplate changes the preview template.
func (c *Controller) SelectTemplate(name string) render.Variant {
	return c.Preview().SelectTemplate(name)
}

// Notify queues a toast for the next render unless the same toast is
// already pending.
func (c *Controller) Notify(level Level, msg string) {
	t := Toast{level, msg}
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.toasts, t) {
		return
	}
	c.toasts = append(c.toasts, t)
}

// Toasts returns and clears pending notifications.
func (c *Controller) Toasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.toasts
	c.toasts = nil
	return out
}

// Saved returns the displayed saved list.
func (c *Controller) Saved() []student.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]student.Record(nil), c.saved...)
}

// Active returns the previewed card, nil on the form step.
func (c *Controller) Active() *student.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	rec := c.active.Clone()
	return &rec
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Tab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

func (c *Controller) publish(ctx context.Context, typ, id string) {
	if c.deps.Queue == nil {
		return
	}
	if err := c.deps.Queue.Publish(ctx, queue.Message{Type: typ, CardID: id}); err != nil {
		c.deps.Log.Warn("queue publish failed", zap.String("type", typ), zap.String("card_id", id), zap.Error(err))
	}
}

// Snapshot is everything the page template needs for one render.
type Snapshot struct {
	Step         Step
	Tab          Tab
	Draft        student.Record
	PhotoPreview *string
	SubmitLabel  string
	Submitting   bool
	Active       *student.Record
	Card         template.HTML
	Template     render.Variant
	Busy         bool
	Entries      []gallery.Entry
	SavedCount   int
	Toasts       []Toast
}

// Snapshot renders the current state and drains pending toasts.
func (c *Controller) Snapshot() (Snapshot, error) {
	c.mu.Lock()
	f, p := c.form, c.preview
	s := Snapshot{
		Step:       c.step,
		Tab:        c.tab,
		Entries:    gallery.Entries(c.saved),
		SavedCount: len(c.saved),
	}
	if c.active != nil {
		rec := c.active.Clone()
		s.Active = &rec
	}
	c.mu.Unlock()

	s.Draft = f.Draft()
	s.PhotoPreview = f.PhotoPreview()
	s.Submitting = f.Submitting()
	s.SubmitLabel = f.SubmitLabel()
	s.Template = p.Template()
	s.Busy = p.Busy()
	if s.Active != nil {
		card, err := p.Card(*s.Active)
		if err != nil {
			return s, err
		}
		s.Card = card
	}
	s.Toasts = c.Toasts()
	return s, nil
}
