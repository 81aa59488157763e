package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

const (
	formatCSV     = "csv"
	formatParquet = "parquet"
	formatSQL     = "sql"
)

// Required fact table columns, named as the cleaning stage writes them.
const (
	colYearMonth   = "year_month"
	colYearWeek    = "year_week"
	colStatus      = "Status"
	colFulfillment = "Fulfilment"
	colCategory    = "Category"
	colState       = "state"
	colPromotion   = "is_promotion"
	colQty         = "Qty"
	colOrderCount  = "order_count"
	colAmount      = "Amount"
)

var requiredColumns = []string{
	colYearMonth, colYearWeek, colStatus, colFulfillment, colCategory,
	colState, colPromotion, colQty, colOrderCount, colAmount,
}

type Options struct {
	SnapshotDir     string
	SQLTable        string
	Country         string
	NameProperty    string
	FetchAttempts   int
	FetchBackoff    time.Duration
	HTTPClient      *http.Client
	ParseWorkers    int
	DisableSnapshot bool
}

// Report describes a completed fact table load.
type Report struct {
	Source       string        `json:"source"`
	Format       string        `json:"format"`
	Rows         int           `json:"rows"`
	Skipped      int           `json:"skipped"`
	FromSnapshot bool          `json:"from_snapshot"`
	Duration     time.Duration `json:"duration"`
}

type Loader struct {
	opts   Options
	logger *slog.Logger
}

func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SQLTable == "" {
		opts.SQLTable = "amazon_in_sales"
	}
	if opts.NameProperty == "" {
		opts.NameProperty = "name"
	}
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = 3
	}
	if opts.FetchBackoff <= 0 {
		opts.FetchBackoff = 500 * time.Millisecond
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.ParseWorkers <= 0 {
		opts.ParseWorkers = maxWorkers
	}
	return &Loader{opts: opts, logger: logger}
}

// LoadFacts reads the fact table from a CSV file, a Parquet file or a SQL
// table and normalizes state names to the shared join key.
func (l *Loader) LoadFacts(ctx context.Context, source string) ([]models.FactRow, Report, error) {
	start := time.Now()
	report := Report{Source: source}

	format, err := detectFormat(source)
	if err != nil {
		return nil, report, err
	}
	report.Format = format

	if format != formatSQL && !l.opts.DisableSnapshot {
		if rows, ok := l.fromSnapshot(source); ok {
			report.Rows = len(rows)
			report.FromSnapshot = true
			report.Duration = time.Since(start)
			l.logger.Info("loaded facts from snapshot", "source", source, "rows", len(rows))
			return rows, report, nil
		}
	}

	var (
		rows    []models.FactRow
		skipped int
	)
	switch format {
	case formatCSV:
		rows, skipped, err = l.readCSV(ctx, source)
	case formatParquet:
		rows, skipped, err = l.readParquet(ctx, source)
	case formatSQL:
		rows, skipped, err = l.readSQL(ctx, source)
	}
	if err != nil {
		return nil, report, fmt.Errorf("load %s facts: %w", format, err)
	}
	if len(rows) == 0 {
		return nil, report, fmt.Errorf("load %s facts: no valid records found", format)
	}

	for i := range rows {
		rows[i].State = NormalizeState(rows[i].State)
	}

	report.Rows = len(rows)
	report.Skipped = skipped
	report.Duration = time.Since(start)

	if format != formatSQL && !l.opts.DisableSnapshot {
		if err := l.saveSnapshot(source, rows); err != nil {
			l.logger.Warn("failed to save snapshot", "error", err)
		}
	}

	l.logger.Info("fact table loaded",
		"source", source,
		"format", format,
		"rows", report.Rows,
		"skipped", report.Skipped,
		"duration", report.Duration,
	)
	return rows, report, nil
}

func detectFormat(source string) (string, error) {
	lower := strings.ToLower(source)
	switch {
	case source == "":
		return "", fmt.Errorf("fact source is empty")
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return formatSQL, nil
	case strings.HasSuffix(lower, ".parquet"):
		return formatParquet, nil
	case strings.HasSuffix(lower, ".csv"):
		return formatCSV, nil
	}
	return "", fmt.Errorf("unsupported fact source %q: want .csv, .parquet, sqlite:// or postgres://", filepath.Base(source))
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func fileModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
