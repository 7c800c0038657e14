package adapters

import (
	"strings"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/store"
)

// MapStoreConfigToDomain projects the persisted configuration row into
// the read-only view the engine consumes.
func MapStoreConfigToDomain(row store.ConfigRow, params []store.CheckParameterRow) domain.Config {
	cfg := domain.Config{
		AccountID:        row.AccountID,
		Profile:          row.Profile,
		OutputFolder:     row.OutputFolder,
		InstallationMode: domain.InstallationMode(row.InstallationMode),
		CURDatabase:      row.CURDatabase,
		CURTable:         row.CURTable,
		CURRegion:        row.CURRegion,
		StagingBucket:    row.StagingBucket,
		SMTP: domain.SMTPSettings{
			Host:     row.SMTPHost,
			Port:     row.SMTPPort,
			Username: row.SMTPUsername,
			Password: row.SMTPPassword,
			From:     row.SMTPFrom,
		},
		CETagKey:            row.CETagKey,
		CETagValues:         splitCSV(row.CETagValues),
		COTagKey:            row.COTagKey,
		COTagValues:         splitCSV(row.COTagValues),
		IncludeCurrentMonth: row.IncludeCurrentMonth,
		LastMonthOnly:       row.LastMonthOnly,
		DayOfMonthCutoff:    row.DayOfMonthCutoff,
		CacheExpirationDays: row.CacheExpirationDays,
		CheckParameters:     make(map[string]map[string]string),
	}

	for _, p := range params {
		if cfg.CheckParameters[p.CheckID] == nil {
			cfg.CheckParameters[p.CheckID] = make(map[string]string)
		}
		cfg.CheckParameters[p.CheckID][p.Name] = p.Value
	}

	return cfg
}

// MapDescriptorToStoreRow flattens a descriptor into the row shape the
// available_checks table holds.
func MapDescriptorToStoreRow(d domain.CheckDescriptor) store.AvailableCheckRow {
	return store.AvailableCheckRow{
		Identifier:    d.Identifier,
		CommonName:    d.CommonName,
		Provider:      d.Provider,
		Domain:        d.Domain,
		Service:       d.Service,
		Disabled:      d.Flags.Disabled,
		DisplayInMenu: d.Flags.DisplayInMenu,
		Configurable:  d.Flags.Configurable,
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
