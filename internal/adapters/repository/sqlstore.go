package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/pkg/logger"
	"github.com/okian/sentiment/pkg/metrics"
)

const (
	// Times are written in a sortable layout that the driver parses back.
	sqliteParams        = "_pragma=busy_timeout(5000)&_time_format=sqlite"
	defaultMaxOpenConns = 10
)

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db           *sqlx.DB
	driver       string
	now          func() time.Time
	logger       logger.Logger
	maxOpenConns int
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database and applies the schema migrations.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		driver:       driver,
		now:          time.Now,
		logger:       logger.NewNop(),
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer keeps the counter update serialized.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(s.maxOpenConns)
	}
	s.db = db

	if err := migrateUp(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info(ctx, "report store ready", logger.String("driver", driver))
	return s, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_time_format") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteParams
	}
	return dsn + "?" + sqliteParams
}

// timestamp returns the store clock in UTC at microsecond precision, which
// both dialects preserve.
func (s *SQLStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *SQLStore) observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// InsertReport appends r and returns it with id and created_at set.
func (s *SQLStore) InsertReport(ctx context.Context, r model.Report) (model.Report, error) {
	defer s.observe("insert_report", time.Now())

	r.CreatedAt = s.timestamp()
	q := s.db.Rebind(`INSERT INTO bad_predictions (text, predicted_sentiment, confidence_score, created_at)
VALUES (?, ?, ?, ?) RETURNING id`)
	if err := s.db.QueryRowxContext(ctx, q, r.Text, string(r.PredictedSentiment), r.ConfidenceScore, r.CreatedAt).Scan(&r.ID); err != nil {
		return model.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return r, nil
}

// RecentReports returns up to n reports, newest first.
func (s *SQLStore) RecentReports(ctx context.Context, n int) ([]model.Report, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	defer s.observe("recent_reports", time.Now())

	q := s.db.Rebind(`SELECT id, text, predicted_sentiment, confidence_score, created_at
FROM bad_predictions
ORDER BY created_at DESC, id DESC
LIMIT ?`)
	reports := make([]model.Report, 0, n)
	if err := s.db.SelectContext(ctx, &reports, q, n); err != nil {
		return nil, fmt.Errorf("recent reports: %w", err)
	}
	for i := range reports {
		reports[i].CreatedAt = reports[i].CreatedAt.UTC()
	}
	return reports, nil
}

// IncrementReportCount adds one to the counter inside a transaction and
// returns the post-increment value.
func (s *SQLStore) IncrementReportCount(ctx context.Context) (int64, error) {
	defer s.observe("increment_counter", time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("increment counter: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int64
	q := `UPDATE report_counter SET report_count = report_count + 1 WHERE id = 1 RETURNING report_count`
	if err := tx.QueryRowxContext(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("increment counter: commit: %w", err)
	}
	return count, nil
}

// MarkNotified records the current time as the last notification.
func (s *SQLStore) MarkNotified(ctx context.Context) error {
	defer s.observe("mark_notified", time.Now())

	q := s.db.Rebind(`UPDATE report_counter SET last_notified_at = ? WHERE id = 1`)
	if _, err := s.db.ExecContext(ctx, q, s.timestamp()); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// Counter returns the counter row.
func (s *SQLStore) Counter(ctx context.Context) (model.ReportCounter, error) {
	var c model.ReportCounter
	q := `SELECT report_count, last_notified_at FROM report_counter WHERE id = 1`
	if err := s.db.GetContext(ctx, &c, q); err != nil {
		return model.ReportCounter{}, fmt.Errorf("read counter: %w", err)
	}
	if c.LastNotifiedAt != nil {
		t := c.LastNotifiedAt.UTC()
		c.LastNotifiedAt = &t
	}
	return c, nil
}

// CountReports returns the number of stored reports.
func (s *SQLStore) CountReports(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bad_predictions`); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Close()
}
