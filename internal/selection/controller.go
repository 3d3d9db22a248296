// Package selection coordinates record selection with asynchronous portrait
// fetches. A Controller must only be used from the Bubble Tea update
// goroutine; that single-writer discipline is what keeps the current fetch
// token consistent without locks.
package selection

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/smileynet/multiverse/internal/async"
	"github.com/smileynet/multiverse/internal/catalog"
	"github.com/smileynet/multiverse/internal/imagecache"
	"github.com/smileynet/multiverse/internal/logging"
)

// State is the controller's position in the selection state machine.
type State int

const (
	Idle          State = iota // Nothing pending; last-good detail (if any) stays shown.
	AwaitingImage              // A fetch for the active record is in flight.
	Displaying                 // The active record is shown with its portrait.
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingImage:
		return "awaiting-image"
	case Displaying:
		return "displaying"
	default:
		return "unknown"
	}
}

// ImageLoader fetches and decodes one image. It blocks and must never be
// called from the update goroutine.
type ImageLoader interface {
	Load(ctx context.Context, key string) (*imagecache.Image, error)
}

// Submitter schedules work off the update goroutine. *async.Runner satisfies it.
type Submitter interface {
	Submit(work async.Work[*imagecache.Image]) (async.Token, tea.Cmd)
}

// ImageResult is the completion message for a portrait fetch.
type ImageResult = async.Result[*imagecache.Image]

// Detail is what the detail pane shows.
type Detail struct {
	Record catalog.Record
	Image  *imagecache.Image // nil when the record has no portrait URL
}

// Controller is the selection state machine. It is a value type in the
// Bubble Tea style: transitions return the updated controller.
type Controller struct {
	cache  *imagecache.Cache
	loader ImageLoader
	runner Submitter
	log    logrus.FieldLogger

	state     State
	active    catalog.Record
	hasActive bool
	current   async.Token // empty when no fetch is current
	shown     *Detail     // last-good detail
	err       error       // last fetch failure, cleared by the next success or selection
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// New creates an Idle controller.
func New(cache *imagecache.Cache, loader ImageLoader, runner Submitter, opts ...Option) Controller {
	c := Controller{
		cache:  cache,
		loader: loader,
		runner: runner,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Select makes r the active record. A cache hit (or a record without a
// portrait) is displayed immediately and returns a nil command. A miss
// returns the fetch command, which the caller must hand to Bubble Tea.
// Selecting the record that is already displayed or awaited is a no-op.
func (c Controller) Select(r catalog.Record) (Controller, tea.Cmd) {
	if c.hasActive && c.active.ID == r.ID && (c.state == Displaying || c.state == AwaitingImage) {
		return c, nil
	}

	c.active = r
	c.hasActive = true
	c.err = nil
	log := c.log.WithFields(logrus.Fields{"record": r.ID, "url": r.ImageKey})

	if r.ImageKey == "" {
		c.current = async.NewToken()
		c.display(r, nil)
		log.Debug("selected record without portrait")
		return c, nil
	}

	if img, ok := c.cache.Get(r.ImageKey); ok {
		c.current = async.NewToken()
		c.display(r, img)
		log.Debug("portrait cache hit")
		return c, nil
	}

	loader, key := c.loader, r.ImageKey
	token, cmd := c.runner.Submit(func(ctx context.Context) (*imagecache.Image, error) {
		return loader.Load(ctx, key)
	})
	c.current = token
	c.state = AwaitingImage
	log.WithField("token", token).Debug("portrait fetch submitted")
	return c, cmd
}

// Complete applies a fetch completion. Results whose token is not current
// are dropped without side effects; the bool reports whether res was applied.
func (c Controller) Complete(res ImageResult) (Controller, bool) {
	if c.state != AwaitingImage || res.Token == "" || res.Token != c.current {
		c.log.WithField("token", res.Token).Debug("discarding stale portrait fetch")
		return c, false
	}

	c.current = ""
	err := res.Err
	if err == nil && res.Value == nil {
		err = &catalog.FetchError{Kind: catalog.KindDecode, URL: c.active.ImageKey, Err: errors.New("no image returned")}
	}
	if err != nil {
		c.state = Idle
		c.hasActive = false
		c.err = err
		c.log.WithError(err).WithField("record", c.active.ID).Warn("portrait fetch failed")
		return c, true
	}

	c.cache.Put(c.active.ImageKey, res.Value)
	img, _ := c.cache.Get(c.active.ImageKey)
	c.display(c.active, img)
	return c, true
}

// Reset returns to Idle and invalidates any in-flight fetch. The shown detail
// and the cache are kept.
func (c Controller) Reset() Controller {
	c.state = Idle
	c.hasActive = false
	c.active = catalog.Record{}
	c.current = ""
	c.err = nil
	return c
}

func (c *Controller) display(r catalog.Record, img *imagecache.Image) {
	c.state = Displaying
	c.shown = &Detail{Record: r, Image: img}
}

// State returns the current state.
func (c Controller) State() State {
	return c.state
}

// ActiveID returns the active record ID, if any.
func (c Controller) ActiveID() (int, bool) {
	return c.active.ID, c.hasActive
}

// Token returns the current fetch token, if a fetch is current.
func (c Controller) Token() (async.Token, bool) {
	return c.current, c.current != "" && c.state == AwaitingImage
}

// Pending returns the record whose portrait is being fetched.
func (c Controller) Pending() (catalog.Record, bool) {
	if c.state != AwaitingImage {
		return catalog.Record{}, false
	}
	return c.active, true
}

// Shown returns the last-good detail.
func (c Controller) Shown() (Detail, bool) {
	if c.shown == nil {
		return Detail{}, false
	}
	return *c.shown, true
}

// Err returns the most recent fetch failure, if it has not been superseded.
func (c Controller) Err() error {
	return c.err
}
