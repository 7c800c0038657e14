// Package metrics writes the single end-of-run record: durations,
// savings totals and a stable installation identifier. One write, no
// retries.
package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

const fileName = "run_metrics.json"

// Record is the serialised shape of one run.
type Record struct {
	Version          string             `json:"version"`
	Platform         string             `json:"platform"`
	InstallationType string             `json:"installation_type"`
	Mode             string             `json:"mode"`
	StartedAt        time.Time          `json:"started_at"`
	FinishedAt       time.Time          `json:"finished_at"`
	DurationSeconds  float64            `json:"duration_seconds"`
	CheckSavings     map[string]float64 `json:"check_savings"`
	GrandTotal       float64            `json:"grand_total"`
	AccountCount     int                `json:"account_count"`
	RegionCount      int                `json:"region_count"`
	InstallationUID  string             `json:"installation_uid"`
}

// Sink emits run records into the output directory.
type Sink struct {
	version string
	cfg     domain.Config
}

// NewSink builds a sink stamping records with the build version.
func NewSink(version string, cfg domain.Config) *Sink {
	return &Sink{version: version, cfg: cfg}
}

// Build assembles the record for one finished run.
func (s *Sink) Build(started, finished time.Time, mode string, scope domain.Scope, succeeded []*domain.CheckRun) Record {
	savings := make(map[string]float64, len(succeeded))
	var total float64
	for _, run := range succeeded {
		savings[run.Descriptor.Identifier] = run.Savings
		total += run.Savings
	}
	return Record{
		Version:          s.version,
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		InstallationType: string(s.cfg.InstallationMode),
		Mode:             mode,
		StartedAt:        started,
		FinishedAt:       finished,
		DurationSeconds:  finished.Sub(started).Seconds(),
		CheckSavings:     savings,
		GrandTotal:       total,
		AccountCount:     len(scope.Accounts),
		RegionCount:      len(scope.Regions),
		InstallationUID:  InstallationUID(s.cfg.AccountID),
	}
}

// Write serialises the record into the output directory.
func (s *Sink) Write(outputDir string, record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, fileName), data, 0o644)
}

// InstallationUID derives the stable installation identifier from the
// account id.
func InstallationUID(accountID string) string {
	sum := sha256.Sum256([]byte(accountID))
	return hex.EncodeToString(sum[:])
}
