// Package conf is the embedded single-file configuration store. The
// engine only reads it; writes happen in the configuration wizard.
package conf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/store"
)

const configurationSchema = `
	CREATE TABLE IF NOT EXISTS configuration (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		account_id TEXT NOT NULL,
		profile TEXT NOT NULL DEFAULT '',
		output_folder TEXT NOT NULL DEFAULT '',
		installation_mode TEXT NOT NULL DEFAULT 'standalone',
		cur_database TEXT NOT NULL DEFAULT '',
		cur_table TEXT NOT NULL DEFAULT '',
		cur_region TEXT NOT NULL DEFAULT 'us-east-1',
		staging_bucket TEXT NOT NULL DEFAULT '',
		smtp_host TEXT NOT NULL DEFAULT '',
		smtp_port INTEGER NOT NULL DEFAULT 0,
		smtp_username TEXT NOT NULL DEFAULT '',
		smtp_password TEXT NOT NULL DEFAULT '',
		smtp_from TEXT NOT NULL DEFAULT '',
		ce_tag_key TEXT NOT NULL DEFAULT '',
		ce_tag_values TEXT NOT NULL DEFAULT '',
		co_tag_key TEXT NOT NULL DEFAULT '',
		co_tag_values TEXT NOT NULL DEFAULT '',
		include_current_month INTEGER NOT NULL DEFAULT 0,
		last_month_only INTEGER NOT NULL DEFAULT 0,
		day_of_month_cutoff INTEGER NOT NULL DEFAULT 0,
		cache_expiration_days INTEGER NOT NULL DEFAULT 8
	);
`

const checkParametersSchema = `
	CREATE TABLE IF NOT EXISTS check_parameters (
		check_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (check_id, name)
	);
`

const availableChecksSchema = `
	CREATE TABLE IF NOT EXISTS available_checks (
		identifier TEXT PRIMARY KEY,
		common_name TEXT NOT NULL,
		provider TEXT NOT NULL,
		domain TEXT NOT NULL,
		service TEXT NOT NULL,
		disabled INTEGER NOT NULL DEFAULT 0,
		display_in_menu INTEGER NOT NULL DEFAULT 1,
		configurable INTEGER NOT NULL DEFAULT 0
	);
`

const tagPricingSchema = `
	CREATE TABLE IF NOT EXISTS tag_pricing (
		tag TEXT PRIMARY KEY,
		monthly_rate REAL NOT NULL,
		currency_code TEXT NOT NULL DEFAULT 'USD'
	);
`

const runHistorySchema = `
	CREATE TABLE IF NOT EXISTS run_history (
		run_id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		providers TEXT NOT NULL,
		check_count INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		total_savings REAL NOT NULL
	);
`

var bootQueries = []string{
	configurationSchema,
	checkParametersSchema,
	availableChecksSchema,
	tagPricingSchema,
	runHistorySchema,
}

// DefaultPath derives the store location from the home directory, or
// the container mapping when the tool runs containerised.
func DefaultPath(mode domain.InstallationMode) (string, error) {
	if mode == domain.InstallContainer {
		return "/costminimizer/costminimizer.db", nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, ".costminimizer", "costminimizer.db"), nil
}

// Settings configure the store.
type Settings struct {
	DBPath string
}

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// NewStore opens the database, creating the schema if needed.
func NewStore(settings Settings) (*Store, error) {
	if dir := filepath.Dir(settings.DBPath); dir != "" && settings.DBPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", settings.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration store: %w", err)
	}
	for _, query := range bootQueries {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to bootstrap configuration store: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing handle, used by tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Configuration reads the singleton configuration row. A missing row is
// ConfigMissing.
func (s *Store) Configuration(ctx context.Context) (store.ConfigRow, error) {
	var row store.ConfigRow
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, profile, output_folder, installation_mode,
			cur_database, cur_table, cur_region, staging_bucket,
			smtp_host, smtp_port, smtp_username, smtp_password, smtp_from,
			ce_tag_key, ce_tag_values, co_tag_key, co_tag_values,
			include_current_month, last_month_only, day_of_month_cutoff,
			cache_expiration_days
		FROM configuration WHERE id = 1`,
	).Scan(
		&row.AccountID, &row.Profile, &row.OutputFolder, &row.InstallationMode,
		&row.CURDatabase, &row.CURTable, &row.CURRegion, &row.StagingBucket,
		&row.SMTPHost, &row.SMTPPort, &row.SMTPUsername, &row.SMTPPassword, &row.SMTPFrom,
		&row.CETagKey, &row.CETagValues, &row.COTagKey, &row.COTagValues,
		&row.IncludeCurrentMonth, &row.LastMonthOnly, &row.DayOfMonthCutoff,
		&row.CacheExpirationDays,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return row, domain.ConfigMissing{What: "configuration row"}
	}
	if err != nil {
		return row, fmt.Errorf("failed to read configuration: %w", err)
	}
	return row, nil
}

// CheckParameters reads every persisted per-check parameter override.
func (s *Store) CheckParameters(ctx context.Context) ([]store.CheckParameterRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT check_id, name, value FROM check_parameters ORDER BY check_id, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to read check parameters: %w", err)
	}
	defer rows.Close()

	var out []store.CheckParameterRow
	for rows.Next() {
		var p store.CheckParameterRow
		if err := rows.Scan(&p.CheckID, &p.Name, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan check parameter: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TagPricing reads the reference pricing table.
func (s *Store) TagPricing(ctx context.Context) ([]store.TagPricingRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag, monthly_rate, currency_code FROM tag_pricing ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag pricing: %w", err)
	}
	defer rows.Close()

	var out []store.TagPricingRow
	for rows.Next() {
		var p store.TagPricingRow
		if err := rows.Scan(&p.Tag, &p.MonthlyRate, &p.CurrencyCode); err != nil {
			return nil, fmt.Errorf("failed to scan tag pricing: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceAvailableChecks mirrors the registry into the store so the
// configuration wizard can present the menu.
func (s *Store) ReplaceAvailableChecks(ctx context.Context, rows []store.AvailableCheckRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM available_checks`); err != nil {
		return fmt.Errorf("failed to clear available checks: %w", err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO available_checks
				(identifier, common_name, provider, domain, service, disabled, display_in_menu, configurable)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Identifier, r.CommonName, r.Provider, r.Domain, r.Service,
			r.Disabled, r.DisplayInMenu, r.Configurable,
		)
		if err != nil {
			return fmt.Errorf("failed to insert available check %s: %w", r.Identifier, err)
		}
	}
	return tx.Commit()
}

// AppendRunHistory records one completed run.
func (s *Store) AppendRunHistory(ctx context.Context, row store.RunHistoryRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_history
			(run_id, started_at, finished_at, providers, check_count, failed_count, total_savings)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.RunID, row.StartedAt, row.FinishedAt, row.Providers,
		row.CheckCount, row.FailedCount, row.TotalSavings,
	)
	if err != nil {
		return fmt.Errorf("failed to append run history: %w", err)
	}
	return nil
}
