package conf

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/store"
)

func setupStore(t *testing.T) *Store {
	s, err := NewStore(Settings{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedConfiguration(t *testing.T, s *Store) {
	_, err := s.db.Exec(`
		INSERT INTO configuration
			(id, account_id, profile, output_folder, cur_database, cur_table, cur_region,
			 smtp_host, smtp_port, smtp_from, ce_tag_key, ce_tag_values, cache_expiration_days)
		VALUES (1, '111122223333', 'default', '/tmp/reports', 'cur_db', 'cur_table',
			 'us-east-1', 'smtp.example.com', 587, 'reports@example.com',
			 'team', 'platform,data', 8)`)
	require.NoError(t, err)
}

func TestStore_Configuration(t *testing.T) {
	ctx := context.Background()

	t.Run("success - singleton row read", func(t *testing.T) {
		s := setupStore(t)
		seedConfiguration(t, s)

		row, err := s.Configuration(ctx)
		require.NoError(t, err)
		assert.Equal(t, "111122223333", row.AccountID)
		assert.Equal(t, "cur_db", row.CURDatabase)
		assert.Equal(t, 587, row.SMTPPort)
		assert.Equal(t, 8, row.CacheExpirationDays)
	})

	t.Run("failure - missing row is ConfigMissing", func(t *testing.T) {
		s := setupStore(t)

		_, err := s.Configuration(ctx)
		var missing domain.ConfigMissing
		require.ErrorAs(t, err, &missing)
	})
}

func TestStore_View(t *testing.T) {
	ctx := context.Background()

	t.Run("success - parameters folded into view", func(t *testing.T) {
		s := setupStore(t)
		seedConfiguration(t, s)
		_, err := s.db.Exec(`
			INSERT INTO check_parameters (check_id, name, value)
			VALUES ('ce_taggedspend', 'granularity', 'DAILY')`)
		require.NoError(t, err)

		cfg, err := s.View(ctx)
		require.NoError(t, err)
		assert.Equal(t, "111122223333", cfg.AccountID)
		assert.Equal(t, []string{"platform", "data"}, cfg.CETagValues)
		assert.Equal(t, map[string]string{"granularity": "DAILY"}, cfg.ParametersFor("ce_taggedspend"))
		assert.Nil(t, cfg.ParametersFor("ce_totalchange"))
	})
}

func TestStore_AvailableChecksAndHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("success - replace available checks is idempotent", func(t *testing.T) {
		s := setupStore(t)
		rows := []store.AvailableCheckRow{
			{Identifier: "ce_totalchange", CommonName: "Total Spend Change", Provider: "ce",
				Domain: domain.DomainOverall, Service: "Cost Explorer", DisplayInMenu: true},
			{Identifier: "cur_lambdaarmsavings", CommonName: "Lambda arm64 Savings", Provider: "cur",
				Domain: domain.DomainCompute, Service: "Lambda", Disabled: true},
		}
		require.NoError(t, s.ReplaceAvailableChecks(ctx, rows))
		require.NoError(t, s.ReplaceAvailableChecks(ctx, rows))

		var count int
		require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM available_checks`).Scan(&count))
		assert.Equal(t, 2, count)
	})

	t.Run("success - run history appended", func(t *testing.T) {
		s := setupStore(t)
		now := time.Now()
		err := s.AppendRunHistory(ctx, store.RunHistoryRow{
			RunID:        "run-1",
			StartedAt:    now.Add(-time.Minute),
			FinishedAt:   now,
			Providers:    "ce,cur",
			CheckCount:   5,
			FailedCount:  1,
			TotalSavings: 120.5,
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM run_history`).Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestStore_QueryFailure(t *testing.T) {
	t.Run("failure - underlying query error wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT check_id, name, value FROM check_parameters").
			WillReturnError(assert.AnError)

		s := NewStoreWithDB(db)
		_, err = s.CheckParameters(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read check parameters")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
