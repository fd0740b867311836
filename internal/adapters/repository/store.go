// Package repository persists bad-prediction reports and the report counter.
package repository

import (
	"context"

	"github.com/okian/sentiment/internal/domain/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the durable report log and counter.
type Store interface {
	// InsertReport appends r. The store assigns the id and the creation time.
	InsertReport(ctx context.Context, r model.Report) (model.Report, error)

	// RecentReports returns up to n reports ordered by creation time, newest
	// first, ties broken by id.
	RecentReports(ctx context.Context, n int) ([]model.Report, error)

	// IncrementReportCount atomically adds one to the counter and returns the
	// new value.
	IncrementReportCount(ctx context.Context) (int64, error)

	// MarkNotified stamps the counter with the current time.
	MarkNotified(ctx context.Context) error

	// Counter returns the current counter state.
	Counter(ctx context.Context) (model.ReportCounter, error)

	// CountReports returns the number of stored reports.
	CountReports(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
