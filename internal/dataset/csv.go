package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/models"
)

const (
	batchSize    = 10000
	maxWorkers   = 10
	maxRowErrors = 5
)

func (l *Loader) readCSV(ctx context.Context, filename string) ([]models.FactRow, int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return l.parseCSV(ctx, file)
}

func (l *Loader) parseCSV(ctx context.Context, r io.Reader) ([]models.FactRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, 0, err
	}

	var batches [][][]string
	batch := make([][]string, 0, batchSize)
	var skipped atomic.Int64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped.Add(1)
			continue
		}
		batch = append(batch, record)
		if len(batch) >= batchSize {
			batches = append(batches, batch)
			batch = make([][]string, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}

	results := make([][]models.FactRow, len(batches))
	rowErrs := make([]error, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.ParseWorkers)
	for i, b := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := make([]models.FactRow, 0, len(b))
			var errs error
			for _, record := range b {
				row, err := parseFactRecord(record, cols)
				if err != nil {
					skipped.Add(1)
					if len(multierr.Errors(errs)) < maxRowErrors {
						errs = multierr.Append(errs, err)
					}
					continue
				}
				out = append(out, row)
			}
			results[i] = out
			rowErrs[i] = errs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	rows := make([]models.FactRow, 0, total)
	for _, r := range results {
		rows = append(rows, r...)
	}

	if diag := multierr.Combine(rowErrs...); diag != nil {
		l.logger.Warn("skipped malformed fact rows",
			"skipped", skipped.Load(),
			"sample", diag.Error(),
		)
	}
	return rows, int(skipped.Load()), nil
}

func parseFactRecord(record []string, cols map[string]int) (models.FactRow, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	promo, err := parseBool(field(colPromotion))
	if err != nil {
		return models.FactRow{}, fmt.Errorf("%s: %w", colPromotion, err)
	}
	qty, err := parseAmount(field(colQty))
	if err != nil {
		return models.FactRow{}, fmt.Errorf("%s: %w", colQty, err)
	}
	orders, err := parseAmount(field(colOrderCount))
	if err != nil {
		return models.FactRow{}, fmt.Errorf("%s: %w", colOrderCount, err)
	}
	amount, err := parseAmount(field(colAmount))
	if err != nil {
		return models.FactRow{}, fmt.Errorf("%s: %w", colAmount, err)
	}

	row := models.FactRow{
		YearMonth:   field(colYearMonth),
		YearWeek:    field(colYearWeek),
		Status:      field(colStatus),
		Fulfillment: field(colFulfillment),
		Category:    field(colCategory),
		State:       field(colState),
		IsPromotion: promo,
		OrderCount:  int64(orders),
		Qty:         qty,
		Amount:      amount,
	}
	if row.YearMonth == "" || row.YearWeek == "" {
		return models.FactRow{}, fmt.Errorf("missing period")
	}
	return row, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// parseAmount treats empty cells as zero, matching the cleaning stage's sums
// over missing amounts. Negative and non-finite values are rejected.
func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	if math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("value %q out of range", s)
	}
	return v, nil
}
