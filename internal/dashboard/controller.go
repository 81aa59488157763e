// Package dashboard turns control changes into a full set of dashboard
// outputs. Each change compiles one predicate, fans out the four
// consumers, and drops the result if a newer change for the same session
// arrived while it was computing.
package dashboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/cache"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

// ErrSuperseded reports a result that was computed for controls the user
// has already changed again.
var ErrSuperseded = stderrors.New("dashboard: result superseded by newer controls")

const (
	consumerMetrics    = "metrics"
	consumerStates     = "states"
	consumerSales      = "sales"
	consumerCategories = "categories"
)

// View is everything the page renders for one set of controls.
type View struct {
	Generation  uint64                 `json:"generation"`
	Predicate   filter.Predicate       `json:"predicate"`
	Description string                 `json:"description"`
	Visibility  Visibility             `json:"visibility"`
	Metrics     models.Metrics         `json:"metrics"`
	States      models.StateSummary    `json:"states"`
	Sales       models.TimeSeries      `json:"sales"`
	Categories  models.CategorySummary `json:"categories"`
}

// DataSource hands out the current read-only dataset.
type DataSource interface {
	Current() *services.Dataset
}

type Options struct {
	Cache        cache.SummaryCache
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	SessionLimit int
	Timeout      time.Duration
}

type Controller struct {
	source   DataSource
	cache    cache.SummaryCache
	metrics  *observability.Metrics
	logger   *slog.Logger
	sessions *lru.Cache[string, *session]
	timeout  time.Duration
	compute  consumers
}

type session struct {
	generation atomic.Uint64
}

// consumers are the four recomputations a render fans out to.
type consumers struct {
	metrics    func(*services.Dataset, filter.Predicate) models.Metrics
	states     func(*services.Dataset, filter.Predicate, []string) models.StateSummary
	sales      func(*services.Dataset, filter.Predicate) models.TimeSeries
	categories func(*services.Dataset, filter.Predicate) models.CategorySummary
}

func defaultConsumers() consumers {
	return consumers{
		metrics:    (*services.Dataset).Metrics,
		states:     (*services.Dataset).StateSummary,
		sales:      (*services.Dataset).TimeSeries,
		categories: (*services.Dataset).CategorySummary,
	}
}

func New(source DataSource, opts Options) (*Controller, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}
	if opts.SessionLimit <= 0 {
		opts.SessionLimit = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Cache == nil {
		mem, err := cache.NewMemory(cache.DefaultSize)
		if err != nil {
			return nil, err
		}
		opts.Cache = mem
	}
	sessions, err := lru.New[string, *session](opts.SessionLimit)
	if err != nil {
		return nil, fmt.Errorf("session table: %w", err)
	}

	return &Controller{
		source:   source,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		sessions: sessions,
		timeout:  opts.Timeout,
		compute:  defaultConsumers(),
	}, nil
}

// Compile validates the controls and compiles them against the current
// period index.
func (c *Controller) Compile(s Signals) (filter.Predicate, error) {
	if err := Validate(s); err != nil {
		return filter.NoSelection(s.Granularity), err
	}
	return filter.Compile(s.Controls, c.source.Current().Index), nil
}

// KnownState reports whether state is a boundary key or appears in the
// current fact table.
func (c *Controller) KnownState(state string) bool {
	_, ok := slices.BinarySearch(c.source.Current().KnownStates, state)
	return ok
}

// Refresh validates and compiles the controls, then renders them. A
// validation failure is returned without touching the session generation.
func (c *Controller) Refresh(ctx context.Context, s Signals) (View, error) {
	pred, err := c.Compile(s)
	if err != nil {
		return View{}, err
	}
	return c.Render(ctx, s.SessionID, pred, s.SelectedStates)
}

// Render computes every output for pred. The predicate is fixed before any
// consumer starts, and every consumer sees the same dataset. A consumer
// that panics yields an error placeholder and the others still complete.
// If another Render for the same session starts before this one finishes,
// the result is discarded with ErrSuperseded.
func (c *Controller) Render(ctx context.Context, sessionID string, pred filter.Predicate, selected []string) (View, error) {
	ds := c.source.Current()
	sess := c.session(sessionID)
	gen := sess.generation.Add(1)
	selected = filter.SelectedStates(selected)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, "dashboard.render")
	span.SetTag("generation", fmt.Sprint(gen))

	view := View{
		Generation:  gen,
		Predicate:   pred,
		Visibility:  VisibilityFor(pred.Granularity()),
		Description: filter.Describe(pred, ds.Facts),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view.Metrics = guard(gctx, c, consumerMetrics, func() models.Metrics {
			return c.compute.metrics(ds, pred)
		}, func(reason string) models.Metrics {
			return models.Metrics{Outcome: models.Failed(reason)}
		})
		return nil
	})
	g.Go(func() error {
		view.States = guard(gctx, c, consumerStates, func() models.StateSummary {
			return c.stateSummary(gctx, ds, pred, selected)
		}, func(reason string) models.StateSummary {
			return models.StateSummary{Outcome: models.Failed(reason)}
		})
		return nil
	})
	g.Go(func() error {
		view.Sales = guard(gctx, c, consumerSales, func() models.TimeSeries {
			return c.compute.sales(ds, pred)
		}, func(reason string) models.TimeSeries {
			return models.TimeSeries{Outcome: models.Failed(reason)}
		})
		return nil
	})
	g.Go(func() error {
		view.Categories = guard(gctx, c, consumerCategories, func() models.CategorySummary {
			return c.compute.categories(ds, pred)
		}, func(reason string) models.CategorySummary {
			return models.CategorySummary{Outcome: models.Failed(reason)}
		})
		return nil
	})
	_ = g.Wait()

	span.Finish()
	log := observability.Logger(ctx, c.logger)

	if latest := sess.generation.Load(); latest != gen {
		c.metrics.Superseded.Inc()
		log.Debug("dropping superseded result", "generation", gen, "latest", latest)
		return View{}, ErrSuperseded
	}

	log.Debug("dashboard rendered", "span", span, "no_selection", pred.IsNoSelection())
	return view, nil
}

// stateSummary memoizes the map and state bar data. The key ignores the
// state clause because the map never filters by state, and is scoped by
// dataset version so instances sharing a cache agree on it.
func (c *Controller) stateSummary(ctx context.Context, ds *services.Dataset, pred filter.Predicate, selected []string) models.StateSummary {
	key := cache.SummaryKey(ds.Version+"|"+pred.Without(filter.FieldState).Key(), selected)
	if s, ok := c.cache.Get(ctx, key); ok {
		c.metrics.CacheHits.Inc()
		return s
	}
	c.metrics.CacheMisses.Inc()

	s := c.compute.states(ds, pred, selected)
	if s.Status != models.StatusError {
		c.cache.Set(ctx, key, s)
	}
	return s
}

// guard runs one consumer, converting a panic or a cancelled context into
// the consumer's error placeholder.
func guard[T any](ctx context.Context, c *Controller, name string, run func() T, failed func(reason string) T) (out T) {
	start := time.Now()
	defer func() {
		c.metrics.RecomputeDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			c.metrics.ConsumerFailures.WithLabelValues(name).Inc()
			observability.Logger(ctx, c.logger).Error("consumer failed",
				"consumer", name,
				"error", rec,
			)
			out = failed(fmt.Sprintf("%s unavailable", name))
		}
	}()

	if err := ctx.Err(); err != nil {
		c.metrics.ConsumerFailures.WithLabelValues(name).Inc()
		return failed(fmt.Sprintf("%s cancelled: %v", name, err))
	}
	return run()
}

func (c *Controller) session(id string) *session {
	if id == "" {
		return &session{}
	}
	if s, ok := c.sessions.Get(id); ok {
		return s
	}
	s := &session{}
	if prev, ok, _ := c.sessions.PeekOrAdd(id, s); ok {
		return prev
	}
	return s
}

// Sessions reports how many browser sessions are tracked.
func (c *Controller) Sessions() int {
	return c.sessions.Len()
}
