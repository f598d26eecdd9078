package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codequery/internal/core"
	"codequery/internal/gateway"
	"codequery/internal/query"
)

// ReportService runs the summary and full-export reports. Each call opens
// one connection, runs its statement group and closes the connection on
// every path.
type ReportService struct {
	gateway *gateway.Gateway
	builder *query.Builder
	mutator *ExportMutator
	history core.HistoryRepository
	timeout time.Duration
}

type Option func(*ReportService)

// WithHistory journals every report run. A nil repository disables it.
func WithHistory(repo core.HistoryRepository) Option {
	return func(s *ReportService) {
		s.history = repo
	}
}

// WithTimeout bounds each report run. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *ReportService) {
		s.timeout = d
	}
}

func NewReportService(gw *gateway.Gateway, builder *query.Builder, opts ...Option) *ReportService {
	s := &ReportService{
		gateway: gw,
		builder: builder,
		mutator: NewExportMutator(builder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FullResult is a full export plus the number of rows marked as exported.
type FullResult struct {
	Rows   *core.ResultSet
	Marked int64
}

// Preview is the SQL the reports would run for a filter.
type Preview struct {
	Full  query.Statement `json:"full"`
	Total query.Statement `json:"total"`
}

// Summary returns the per-GTIN counts plus total, prefix and non-prefix counts.
func (s *ReportService) Summary(ctx context.Context, req core.SummaryRequest) (result *core.SummaryResult, err error) {
	if err := core.ValidateRequest(req.Connection, req.QueryFilter); err != nil {
		return nil, err
	}
	summaryStmt, err := s.builder.Summary(req.QueryFilter)
	if err != nil {
		return nil, err
	}
	totalStmt, err := s.builder.Total(req.QueryFilter)
	if err != nil {
		return nil, err
	}
	prefixStmt, err := s.builder.PrefixCount(req.QueryFilter)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() {
		entry := s.entry(core.ReportSummary, req.Connection, req.QueryFilter, startTime, err)
		if result != nil {
			entry.RowCount = result.TotalCount
		}
		s.journal(ctx, entry)
	}()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.gateway.Open(ctx, req.Connection)
	if err != nil {
		return nil, err
	}
	defer closeClient(client)

	grouped, err := client.Query(ctx, summaryStmt.SQL, summaryStmt.Args...)
	if err != nil {
		return nil, err
	}
	total, err := s.scalar(ctx, client, totalStmt, "total")
	if err != nil {
		return nil, err
	}
	prefix, err := s.scalar(ctx, client, prefixStmt, "prefix_count")
	if err != nil {
		return nil, err
	}

	rows := make([]core.GTINCount, 0, len(grouped.Rows))
	for _, row := range grouped.Rows {
		count, _ := toInt64(row["count"])
		rows = append(rows, core.GTINCount{GTIN: fmt.Sprint(row["gtin"]), Count: count})
	}

	nonPrefix := total - prefix
	if nonPrefix < 0 {
		nonPrefix = 0
	}
	return &core.SummaryResult{
		Rows:           rows,
		TotalCount:     total,
		PrefixCount:    prefix,
		NonPrefixCount: nonPrefix,
	}, nil
}

// Full returns the export rows, marking them as exported when requested.
func (s *ReportService) Full(ctx context.Context, req core.FullExportRequest) (result *FullResult, err error) {
	if err := core.ValidateRequest(req.Connection, req.QueryFilter); err != nil {
		return nil, err
	}
	stmt, err := s.builder.Full(req)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() {
		entry := s.entry(core.ReportFull, req.Connection, req.QueryFilter, startTime, err)
		if result != nil {
			entry.RowCount = int64(len(result.Rows.Rows))
			entry.MarkedCount = result.Marked
		}
		s.journal(ctx, entry)
	}()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.gateway.Open(ctx, req.Connection)
	if err != nil {
		return nil, err
	}
	defer closeClient(client)

	rs, err := client.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}

	result = &FullResult{Rows: rs}
	if req.MarkAsExported {
		result.Marked = s.mutator.Apply(ctx, client, rs, stmt)
	}
	return result, nil
}

// Preview renders the full-export and total statements without connecting.
func (s *ReportService) Preview(req core.FullExportRequest) (*Preview, error) {
	if err := core.ValidateFilter(req.QueryFilter); err != nil {
		return nil, err
	}
	full, err := s.builder.Full(req)
	if err != nil {
		return nil, err
	}
	total, err := s.builder.Total(req.QueryFilter)
	if err != nil {
		return nil, err
	}
	return &Preview{Full: full.Statement, Total: total}, nil
}

// History returns the most recent journal entries, empty when journaling is off.
func (s *ReportService) History(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	if s.history == nil {
		return []core.HistoryEntry{}, nil
	}
	return s.history.GetRecent(ctx, limit)
}

func (s *ReportService) scalar(ctx context.Context, client gateway.Client, stmt query.Statement, column string) (int64, error) {
	rs, err := client.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, err
	}
	if len(rs.Rows) == 0 {
		return 0, nil
	}
	n, ok := toInt64(rs.Rows[0][column])
	if !ok {
		return 0, fmt.Errorf("unexpected %s value %v", column, rs.Rows[0][column])
	}
	return n, nil
}

func (s *ReportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *ReportService) entry(report string, conn *core.ConnectionDescriptor, f core.QueryFilter, start time.Time, err error) *core.HistoryEntry {
	name, host, database := conn.Label()
	entry := &core.HistoryEntry{
		Timestamp:      start,
		Report:         report,
		ConnectionName: name,
		Host:           host,
		Database:       database,
		DateField:      string(f.DateField),
		StartDate:      f.StartDate,
		SelectedGTIN:   f.SelectedGTIN,
		Status:         string(f.Status),
		DurationMs:     time.Since(start).Milliseconds(),
		Outcome:        core.OutcomeSuccess,
	}
	if f.HasEndDate() {
		entry.EndDate = *f.EndDate
	}
	if err != nil {
		entry.Outcome = core.OutcomeError
		entry.ErrorMessage = err.Error()
	}
	return entry
}

func (s *ReportService) journal(ctx context.Context, entry *core.HistoryEntry) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(context.WithoutCancel(ctx), entry); err != nil {
		zap.S().Named("report").Warnw("failed to journal report run", "report", entry.Report, "error", err)
	}
}

func closeClient(client gateway.Client) {
	if err := client.Close(); err != nil {
		zap.S().Named("report").Warnw("failed to close database connection", "error", err)
	}
}
