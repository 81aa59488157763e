package dataset

import (
	"context"
	"fmt"
	"math"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet/file"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"

	"ecommerce-dashboard/internal/models"
)

const parquetBatchRows = 64 * 1024

func (l *Loader) readParquet(ctx context.Context, filename string) ([]models.FactRow, int, error) {
	pf, err := file.OpenParquetFile(filename, false)
	if err != nil {
		return nil, 0, fmt.Errorf("open parquet: %w", err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: parquetBatchRows}, memory.DefaultAllocator)
	if err != nil {
		return nil, 0, fmt.Errorf("arrow reader: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read table: %w", err)
	}
	defer tbl.Release()

	cols, err := schemaColumns(tbl.Schema())
	if err != nil {
		return nil, 0, err
	}

	rows := make([]models.FactRow, 0, tbl.NumRows())
	skipped := 0

	tr := array.NewTableReader(tbl, parquetBatchRows)
	defer tr.Release()
	for tr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		rec := tr.Record()
		col := func(name string) arrow.Array { return rec.Column(cols[name]) }

		for i := 0; i < int(rec.NumRows()); i++ {
			row, err := factFromColumns(col, i)
			if err != nil {
				skipped++
				continue
			}
			rows = append(rows, row)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate records: %w", err)
	}
	return rows, skipped, nil
}

func schemaColumns(schema *arrow.Schema) (map[string]int, error) {
	names := make([]string, len(schema.Fields()))
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	cols, err := columnIndex(names)
	if err != nil {
		return nil, err
	}

	for _, name := range []string{colYearMonth, colYearWeek, colStatus, colFulfillment, colCategory, colState} {
		switch schema.Field(cols[name]).Type.ID() {
		case arrow.STRING, arrow.LARGE_STRING:
		default:
			return nil, fmt.Errorf("column %s: unsupported type %s", name, schema.Field(cols[name]).Type)
		}
	}
	for _, name := range []string{colQty, colOrderCount, colAmount} {
		switch schema.Field(cols[name]).Type.ID() {
		case arrow.FLOAT64, arrow.FLOAT32, arrow.INT64, arrow.INT32:
		default:
			return nil, fmt.Errorf("column %s: unsupported type %s", name, schema.Field(cols[name]).Type)
		}
	}
	if schema.Field(cols[colPromotion]).Type.ID() != arrow.BOOL {
		return nil, fmt.Errorf("column %s: unsupported type %s", colPromotion, schema.Field(cols[colPromotion]).Type)
	}
	return cols, nil
}

func factFromColumns(col func(string) arrow.Array, i int) (models.FactRow, error) {
	qty, err := numberAt(col(colQty), i)
	if err != nil {
		return models.FactRow{}, err
	}
	orders, err := numberAt(col(colOrderCount), i)
	if err != nil {
		return models.FactRow{}, err
	}
	amount, err := numberAt(col(colAmount), i)
	if err != nil {
		return models.FactRow{}, err
	}

	promo := false
	if b, ok := col(colPromotion).(*array.Boolean); ok && !b.IsNull(i) {
		promo = b.Value(i)
	}

	row := models.FactRow{
		YearMonth:   stringAt(col(colYearMonth), i),
		YearWeek:    stringAt(col(colYearWeek), i),
		Status:      stringAt(col(colStatus), i),
		Fulfillment: stringAt(col(colFulfillment), i),
		Category:    stringAt(col(colCategory), i),
		State:       stringAt(col(colState), i),
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

func stringAt(a arrow.Array, i int) string {
	if a.IsNull(i) {
		return ""
	}
	switch c := a.(type) {
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	}
	return ""
}

// numberAt treats nulls as zero, like the pandas sums that produced the file.
func numberAt(a arrow.Array, i int) (float64, error) {
	if a.IsNull(i) {
		return 0, nil
	}
	var v float64
	switch c := a.(type) {
	case *array.Float64:
		v = c.Value(i)
	case *array.Float32:
		v = float64(c.Value(i))
	case *array.Int64:
		v = float64(c.Value(i))
	case *array.Int32:
		v = float64(c.Value(i))
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	if math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("value %v out of range", v)
	}
	return v, nil
}
