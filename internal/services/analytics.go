package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

// Dataset is one loaded, read-only copy of the fact table and everything
// derived from it at load time. Shapers and aggregators only read from it,
// so concurrent recomputations share it without locking.
type Dataset struct {
	Facts       []models.FactRow
	Index       *dataset.PeriodIndex
	Boundaries  []models.Boundary
	KnownStates []string
	Report      dataset.Report
	LoadedAt    time.Time

	// Version fingerprints the rows and boundary keys. Identical data
	// loaded by different processes gets the same version.
	Version string
}

// NewDataset derives the period index and the known-state list from rows
// and boundaries.
func NewDataset(rows []models.FactRow, boundaries []models.Boundary) *Dataset {
	return &Dataset{
		Facts:       rows,
		Index:       dataset.BuildIndex(rows),
		Boundaries:  boundaries,
		KnownStates: knownStates(rows, boundaries),
		LoadedAt:    time.Now(),
		Version:     fingerprint(rows, boundaries),
	}
}

// fingerprint hashes every fact field and boundary key in order.
func fingerprint(rows []models.FactRow, boundaries []models.Boundary) string {
	h := sha256.New()
	var buf []byte
	field := func(s string) {
		buf = strconv.AppendInt(buf[:0], int64(len(s)), 10)
		buf = append(buf, ':')
		buf = append(buf, s...)
		_, _ = h.Write(buf)
	}
	number := func(f float64) {
		buf = strconv.AppendUint(buf[:0], math.Float64bits(f), 16)
		buf = append(buf, ';')
		_, _ = h.Write(buf)
	}
	for i := range rows {
		r := &rows[i]
		field(r.YearMonth)
		field(r.YearWeek)
		field(r.Status)
		field(r.Fulfillment)
		field(r.Category)
		field(r.State)
		field(strconv.FormatBool(r.IsPromotion))
		field(strconv.FormatInt(r.OrderCount, 10))
		number(r.Qty)
		number(r.Amount)
	}
	_, _ = h.Write([]byte{0})
	for _, b := range boundaries {
		field(b.State)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// knownStates is the union of boundary keys and fact states, sorted.
func knownStates(rows []models.FactRow, boundaries []models.Boundary) []string {
	set := make(map[string]struct{}, len(boundaries))
	for _, b := range boundaries {
		if b.State != "" {
			set[b.State] = struct{}{}
		}
	}
	for i := range rows {
		if rows[i].State != "" {
			set[rows[i].State] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Analytics owns the application state. It is constructed once at startup
// and the dataset is swapped atomically on (re)load.
type Analytics struct {
	mu     sync.RWMutex
	data   *Dataset
	logger *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		data:   NewDataset(nil, nil),
		logger: slog.Default(),
	}
}

// SetData replaces the dataset with in-memory rows. Used by tests and by
// callers that build the table themselves.
func (a *Analytics) SetData(rows []models.FactRow, boundaries []models.Boundary) {
	ds := NewDataset(rows, boundaries)
	ds.Report = dataset.Report{Source: "memory", Rows: len(rows)}

	a.mu.Lock()
	a.data = ds
	a.mu.Unlock()
}

// Load reads the fact table and the boundary set concurrently. A failed
// boundary load is logged and leaves the map without outlines; a failed
// fact load is returned.
func (a *Analytics) Load(ctx context.Context, loader *dataset.Loader, factSource, boundarySource string) error {
	var (
		rows       []models.FactRow
		report     dataset.Report
		boundaries []models.Boundary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, report, err = loader.LoadFacts(gctx, factSource)
		return err
	})
	g.Go(func() error {
		var err error
		boundaries, err = loader.LoadBoundaries(gctx, boundarySource)
		if err != nil {
			a.logger.Warn("boundary set unavailable", "source", boundarySource, "error", err)
			boundaries = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	ds := NewDataset(rows, boundaries)
	ds.Report = report

	a.mu.Lock()
	a.data = ds
	a.mu.Unlock()

	a.logger.Info("dataset ready",
		"rows", len(rows),
		"months", ds.Index.Len(models.Monthly),
		"weeks", ds.Index.Len(models.Weekly),
		"boundaries", len(boundaries),
		"states", len(ds.KnownStates),
	)
	return nil
}

// Current returns the active dataset. Callers must treat it as read-only.
func (a *Analytics) Current() *Dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data
}

// Stats is exposed on the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	ds := a.Current()
	return map[string]any{
		"record_count":  len(ds.Facts),
		"skipped_rows":  ds.Report.Skipped,
		"source":        ds.Report.Source,
		"format":        ds.Report.Format,
		"from_snapshot": ds.Report.FromSnapshot,
		"load_duration": ds.Report.Duration.String(),
		"loaded_at":     ds.LoadedAt,
		"version":       ds.Version,
		"months":        ds.Index.Len(models.Monthly),
		"weeks":         ds.Index.Len(models.Weekly),
		"boundaries":    len(ds.Boundaries),
		"states":        len(ds.KnownStates),
	}
}
