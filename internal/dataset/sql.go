package dataset

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ecommerce-dashboard/internal/models"
)

// factRecord mirrors the cleaned fact table as the cleaning stage writes it.
type factRecord struct {
	YearMonth   string  `gorm:"column:year_month"`
	YearWeek    string  `gorm:"column:year_week"`
	Status      string  `gorm:"column:Status"`
	Fulfilment  string  `gorm:"column:Fulfilment"`
	Category    string  `gorm:"column:Category"`
	State       string  `gorm:"column:state"`
	IsPromotion bool    `gorm:"column:is_promotion"`
	Qty         float64 `gorm:"column:Qty"`
	OrderCount  int64   `gorm:"column:order_count"`
	Amount      float64 `gorm:"column:Amount"`
}

func (l *Loader) readSQL(ctx context.Context, source string) ([]models.FactRow, int, error) {
	dialector, table, err := sqlDialector(source, l.opts.SQLTable)
	if err != nil {
		return nil, 0, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("opening db connection: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, 0, fmt.Errorf("getting sql db handle: %w", err)
	}
	defer sqlDB.Close()

	var records []factRecord
	if err := db.WithContext(ctx).Table(table).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("select from %s: %w", table, err)
	}

	rows := make([]models.FactRow, 0, len(records))
	skipped := 0
	for _, r := range records {
		if r.YearMonth == "" || r.YearWeek == "" || r.Qty < 0 || r.Amount < 0 || r.OrderCount < 0 {
			skipped++
			continue
		}
		rows = append(rows, models.FactRow{
			YearMonth:   strings.TrimSpace(r.YearMonth),
			YearWeek:    strings.TrimSpace(r.YearWeek),
			Status:      strings.TrimSpace(r.Status),
			Fulfillment: strings.TrimSpace(r.Fulfilment),
			Category:    strings.TrimSpace(r.Category),
			State:       r.State,
			IsPromotion: r.IsPromotion,
			OrderCount:  r.OrderCount,
			Qty:         r.Qty,
			Amount:      r.Amount,
		})
	}
	return rows, skipped, nil
}

// sqlDialector turns "sqlite://path?table=t" or a postgres URL (with an
// optional table parameter) into a GORM dialector and table name.
func sqlDialector(source, defaultTable string) (gorm.Dialector, string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, "", fmt.Errorf("parse sql source: %w", err)
	}

	q := u.Query()
	table := q.Get("table")
	if table == "" {
		table = defaultTable
	}
	q.Del("table")
	u.RawQuery = q.Encode()

	switch strings.ToLower(u.Scheme) {
	case "sqlite":
		path := u.Host + u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return nil, "", fmt.Errorf("sqlite source has no path")
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		return sqlite.Open(path), table, nil
	case "postgres", "postgresql":
		return postgres.New(postgres.Config{DSN: u.String(), PreferSimpleProtocol: true}), table, nil
	}
	return nil, "", fmt.Errorf("unsupported sql scheme %q", u.Scheme)
}
