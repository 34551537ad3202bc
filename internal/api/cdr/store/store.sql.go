package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cdr_api/config"
	"cdr_api/internal/api/cdr/models"
	"cdr_api/internal/api/cdr/query"
	"cdr_api/internal/common"
	"cdr_api/internal/database"
	"cdr_api/internal/logger"

	"github.com/shopspring/decimal"
)

// Dialect covers the differences between the supported SQL engines.
type Dialect struct {
	Driver string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// TimestampType is the column type of call_date.
	TimestampType string
	// BindTime converts a UTC time into a driver value.
	BindTime func(t time.Time) any
	// DecimalType is the column type of cost and CostKey the expression it
	// is indexed and ordered by.
	DecimalType string
	CostKey     string
}

// sqliteTimeLayout is fixed width so text comparison orders like time.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

var (
	Postgres = Dialect{
		Driver:        "postgres",
		Placeholder:   func(n int) string { return "$" + strconv.Itoa(n) },
		TimestampType: "TIMESTAMPTZ",
		BindTime:      func(t time.Time) any { return t.UTC() },
		DecimalType:   "NUMERIC",
		CostKey:       "cost",
	}
	SQLite = Dialect{
		Driver:        "sqlite",
		Placeholder:   func(int) string { return "?" },
		TimestampType: "TEXT",
		BindTime:      func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
		// NUMERIC affinity would store REAL and drop scale and precision
		DecimalType: "TEXT",
		CostKey:     "CAST(cost AS REAL)",
	}
)

var sqlColumns = map[query.Field]string{
	query.FieldReference: "reference",
	query.FieldCallerID:  "caller_id",
	query.FieldCallDate:  "call_date",
	query.FieldType:      "call_type",
	query.FieldCost:      "cost",
	query.FieldDuration:  "duration",
}

const selectColumns = "reference, caller_id, recipient, call_date, end_time, currency, duration, cost, call_type"

// SQLStore keeps records in one table of a database/sql database.
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect Dialect
}

// NewSQLStore wraps db and creates the table and indexes when missing.
func NewSQLStore(ctx context.Context, db *sql.DB, table string, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, table: table, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenPostgres is the Factory for the "postgres" driver.
func OpenPostgres(ctx context.Context, cfg *config.Configuration) (Store, error) {
	return openSQL(ctx, cfg, Postgres)
}

// OpenSQLite is the Factory for the "sqlite" driver.
func OpenSQLite(ctx context.Context, cfg *config.Configuration) (Store, error) {
	return openSQL(ctx, cfg, SQLite)
}

func openSQL(ctx context.Context, cfg *config.Configuration, dialect Dialect) (Store, error) {
	db, err := database.OpenSQL(ctx, dialect.Driver, cfg.SQL_DSN)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLStore(ctx, db, cfg.SQL_Table, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	reference  TEXT PRIMARY KEY,
	caller_id  TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	call_date  %s NOT NULL,
	end_time   TEXT NOT NULL,
	currency   TEXT NOT NULL,
	duration   INTEGER NOT NULL,
	cost       %s NOT NULL,
	call_type  INTEGER NOT NULL
)`, s.table, s.dialect.TimestampType, s.dialect.DecimalType),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_caller_date ON %s (caller_id, call_date)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_call_date ON %s (call_date)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_cost ON %s (%s)", s.table, s.table, s.dialect.CostKey),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

// whereClause renders p as a WHERE body and its arguments. An empty body means no filter.
func (s *SQLStore) whereClause(p query.Predicate) (string, []any, error) {
	var args []any
	var render func(p query.Predicate) (string, error)
	render = func(p query.Predicate) (string, error) {
		switch p := p.(type) {
		case nil:
			return "", nil
		case query.Conjunction:
			parts := make([]string, 0, len(p.Terms))
			for _, t := range p.Terms {
				part, err := render(t)
				if err != nil {
					return "", err
				}
				if part != "" {
					parts = append(parts, part)
				}
			}
			return strings.Join(parts, " AND "), nil
		case query.Comparison:
			column, ok := sqlColumns[p.Field]
			if !ok {
				return "", fmt.Errorf("unsupported field %q", p.Field)
			}
			var value any
			switch v := p.Value.(type) {
			case time.Time:
				value = s.dialect.BindTime(v)
			case models.CallType:
				value = int(v)
			case decimal.Decimal:
				value = v.String()
			default:
				value = v
			}
			args = append(args, value)
			return fmt.Sprintf("%s %s %s", column, p.Op, s.dialect.Placeholder(len(args))), nil
		}
		return "", fmt.Errorf("unsupported predicate %T", p)
	}

	body, err := render(p)
	if err != nil {
		return "", nil, err
	}
	return body, args, nil
}

func (s *SQLStore) InsertMany(ctx context.Context, records []models.CallDetailRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.ConvertStoreError(err)
	}
	defer func() { _ = tx.Rollback() }()

	ph := make([]string, 9)
	for i := range ph {
		ph[i] = s.dialect.Placeholder(i + 1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, selectColumns, strings.Join(ph, ", ")))
	if err != nil {
		return common.ConvertStoreError(err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Reference, r.CallerID, r.Recipient, s.dialect.BindTime(r.CallDate),
			r.EndTime.String(), r.Currency, r.Duration, decimalText(r.Cost), int(r.Type),
		); err != nil {
			logger.WithModule("store").WithError(err).WithField("reference", r.Reference).Error("Insert failed")
			return common.ConvertStoreError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.ConvertStoreError(err)
	}
	return nil
}

// decimalText keeps the scale of d, so 0.050 is stored as written.
func decimalText(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func (s *SQLStore) FindOne(ctx context.Context, filter query.Predicate) (*models.CallDetailRecord, error) {
	records, err := s.Find(ctx, filter, query.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, common.ErrNotFound
	}
	return &records[0], nil
}

func (s *SQLStore) Find(ctx context.Context, filter query.Predicate, opts query.FindOptions) ([]models.CallDetailRecord, error) {
	where, args, err := s.whereClause(filter)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectColumns, s.table)
	if where != "" {
		sb.WriteString(" WHERE " + where)
	}
	if opts.SortBy != "" {
		column, ok := sqlColumns[opts.SortBy]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", opts.SortBy)
		}
		if opts.SortBy == query.FieldCost {
			column = s.dialect.CostKey
		}
		direction := "ASC"
		if opts.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", column, direction)
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, common.ConvertStoreError(err)
	}
	defer rows.Close()

	out := make([]models.CallDetailRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.ConvertStoreError(err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (models.CallDetailRecord, error) {
	var (
		rec      models.CallDetailRecord
		callDate any
		endTime  string
		callType int
	)
	if err := rows.Scan(&rec.Reference, &rec.CallerID, &rec.Recipient, &callDate,
		&endTime, &rec.Currency, &rec.Duration, &rec.Cost, &callType); err != nil {
		return rec, fmt.Errorf("scan record: %w", err)
	}

	t, err := scanTime(callDate)
	if err != nil {
		return rec, err
	}
	rec.CallDate = t

	rec.EndTime, err = models.ParseTimeOfDay(endTime)
	if err != nil {
		return rec, err
	}
	rec.Type = models.CallType(callType)
	return rec, nil
}

func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	}
	return time.Time{}, fmt.Errorf("unexpected call_date type %T", v)
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unexpected call_date value %q", s)
}

func (s *SQLStore) Statistics(ctx context.Context, filter query.Predicate) (models.CallStatistics, error) {
	where, args, err := s.whereClause(filter)
	if err != nil {
		return models.CallStatistics{}, err
	}

	stmt := fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(duration), 0) FROM %s", s.table)
	if where != "" {
		stmt += " WHERE " + where
	}

	var stats models.CallStatistics
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&stats.Count, &stats.TotalDuration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CallStatistics{}, nil
		}
		return models.CallStatistics{}, common.ConvertStoreError(err)
	}
	return stats, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close(context.Context) error {
	return s.db.Close()
}
