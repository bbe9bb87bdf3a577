package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/be4breach/reportd/internal/config"
	"github.com/be4breach/reportd/internal/core"
	"github.com/be4breach/reportd/internal/logger"
	"github.com/be4breach/reportd/pkg/types"
)

type sqlStore struct {
	db     *sqlx.DB
	cfg    config.DatabaseConfig
	logger *logger.Logger
}

func NewStore(cfg config.DatabaseConfig, log *logger.Logger) (core.ReportStore, error) {
	log = log.WithComponent("database")

	ctx := context.Background()
	start := time.Now()
	ctx, span := log.StartOperation(ctx, "database.NewStore",
		"driver", cfg.Driver,
		"dsn_masked", maskDSN(cfg.DSN),
	)
	var err error
	defer func() {
		log.FinishOperation(ctx, span, "database.NewStore", start, err)
	}()

	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &sqlStore{
		db:     db,
		cfg:    cfg,
		logger: log,
	}

	if err = store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.WithContext(ctx).Infow("Report store initialized",
		"driver", cfg.Driver,
		"init_duration_ms", time.Since(start).Milliseconds(),
	)

	return store, nil
}

// maskDSN masks credentials in DSNs before they reach logs.
func maskDSN(dsn string) string {
	if len(dsn) > 10 {
		return dsn[:5] + "***" + dsn[len(dsn)-5:]
	}
	return "***"
}

func (s *sqlStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		client TEXT,
		audit_type TEXT,
		total_findings INTEGER NOT NULL,
		size_bytes BIGINT NOT NULL,
		report TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_client ON reports(client);
	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`

	start := time.Now()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	s.logger.WithContext(ctx).Debugw("Database migration completed",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *sqlStore) SaveReport(ctx context.Context, meta *types.StoredReport, report *types.PentestReport) error {
	start := time.Now()
	ctx, span := s.logger.StartOperation(ctx, "database.SaveReport",
		"report_id", meta.ID,
		"filename", meta.Filename,
	)
	var err error
	defer func() {
		s.logger.FinishOperation(ctx, span, "database.SaveReport", start, err)
	}()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO reports (id, filename, client, audit_type, total_findings, size_bytes, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(ctx, query,
		meta.ID, meta.Filename, meta.Client, meta.AuditType,
		meta.TotalFindings, meta.SizeBytes, string(payload), meta.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *sqlStore) GetReport(ctx context.Context, id string) (*types.StoredReport, *types.PentestReport, error) {
	start := time.Now()
	ctx, span := s.logger.StartOperation(ctx, "database.GetReport",
		"report_id", id,
	)
	var err error
	defer func() {
		s.logger.FinishOperation(ctx, span, "database.GetReport", start, err)
	}()

	var row struct {
		types.StoredReport
		Payload string `db:"report"`
	}
	err = s.db.GetContext(ctx, &row, `
		SELECT id, filename, client, audit_type, total_findings, size_bytes, report, created_at
		FROM reports WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		err = fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
		return nil, nil, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report types.PentestReport
	if err = json.Unmarshal([]byte(row.Payload), &report); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal stored report: %w", err)
	}

	meta := row.StoredReport
	return &meta, &report, nil
}

func (s *sqlStore) ListReports(ctx context.Context, filter core.ReportFilter) ([]*types.StoredReport, error) {
	start := time.Now()
	ctx, span := s.logger.StartOperation(ctx, "database.ListReports",
		"client", filter.Client,
		"limit", filter.Limit,
	)
	var err error
	defer func() {
		s.logger.FinishOperation(ctx, span, "database.ListReports", start, err)
	}()

	query, args := buildListQuery(filter)

	reports := []*types.StoredReport{}
	err = s.db.SelectContext(ctx, &reports, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// buildListQuery assembles the filtered listing query with positional
// placeholders, newest first.
func buildListQuery(filter core.ReportFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, filename, client, audit_type, total_findings, size_bytes, created_at FROM reports`)

	var conditions []string
	var args []interface{}

	if filter.Client != "" {
		args = append(args, filter.Client)
		conditions = append(conditions, fmt.Sprintf("client = $%d", len(args)))
	}
	if filter.AuditType != "" {
		args = append(args, filter.AuditType)
		conditions = append(conditions, fmt.Sprintf("audit_type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY created_at DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	return sb.String(), args
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
