package store

import "time"

// ConfigRow is the singleton configuration record as persisted in the
// embedded store. Column names mirror the sqlite schema.
type ConfigRow struct {
	AccountID        string
	Profile          string
	OutputFolder     string
	InstallationMode string

	CURDatabase string
	CURTable    string
	CURRegion   string

	StagingBucket string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	CETagKey    string
	CETagValues string // comma-separated
	COTagKey    string
	COTagValues string // comma-separated

	IncludeCurrentMonth bool
	LastMonthOnly       bool
	DayOfMonthCutoff    int

	CacheExpirationDays int
}

// CheckParameterRow is one persisted per-check parameter override.
type CheckParameterRow struct {
	CheckID string
	Name    string
	Value   string
}

// AvailableCheckRow mirrors the registry into the store each run so the
// configuration wizard can present the menu.
type AvailableCheckRow struct {
	Identifier    string
	CommonName    string
	Provider      string
	Domain        string
	Service       string
	Disabled      bool
	DisplayInMenu bool
	Configurable  bool
}

// TagPricingRow is static reference pricing keyed by usage tag.
type TagPricingRow struct {
	Tag          string
	MonthlyRate  float64
	CurrencyCode string
}

// RunHistoryRow is one appended record per completed run.
type RunHistoryRow struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Providers    string // comma-separated provider tags
	CheckCount   int
	FailedCount  int
	TotalSavings float64
}
