package domain

// InstallationMode distinguishes where the tool runs, which decides
// where the embedded store and cache live.
type InstallationMode string

const (
	InstallStandalone InstallationMode = "standalone"
	InstallContainer  InstallationMode = "container"
)

// SMTPSettings is the mail delivery configuration consumed at run end.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether enough is present to attempt delivery.
func (s SMTPSettings) Configured() bool {
	return s.Host != "" && s.Port != 0 && s.From != ""
}

// Config is the read-only projection of the persisted configuration the
// engine consumes. Writes happen only in the configuration wizard,
// which never overlaps with a run.
type Config struct {
	AccountID        string
	Profile          string
	OutputFolder     string
	InstallationMode InstallationMode

	CURDatabase string
	CURTable    string
	CURRegion   string

	StagingBucket string
	SMTP          SMTPSettings

	CETagKey    string
	CETagValues []string
	COTagKey    string
	COTagValues []string

	IncludeCurrentMonth bool
	LastMonthOnly       bool
	DayOfMonthCutoff    int

	CacheExpirationDays int

	// CheckParameters holds persisted per-check parameter overrides,
	// keyed by check identifier then parameter name.
	CheckParameters map[string]map[string]string
}

// ParametersFor returns the persisted overrides for one check, which
// may be nil.
func (c Config) ParametersFor(identifier string) map[string]string {
	if c.CheckParameters == nil {
		return nil
	}
	return c.CheckParameters[identifier]
}
