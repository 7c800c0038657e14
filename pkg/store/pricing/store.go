package pricing

// Price is one reference rate.
type Price struct {
	MonthlyRate  float64
	CurrencyCode string
}

// Store resolves static reference rates used when an upstream does not
// supply a savings figure directly. Lookups are fallible: callers
// branch on found instead of recovering from a miss.
type Store interface {
	MonthlyRate(key string) (Price, bool)
}

// Well-known rate keys.
const (
	KeyElasticIP    = "elastic_ip_unassociated"
	KeyNATGateway   = "nat_gateway_hourly_month"
	KeyGP2PerGB     = "ebs_gp2_per_gb"
	KeyGP3PerGB     = "ebs_gp3_per_gb"
	KeyS3StandardGB = "s3_standard_per_gb"
	KeyS3IAGB       = "s3_standard_ia_per_gb"
)

// us-east-1 list rates. The table is intentionally coarse; the
// configuration wizard refreshes it from the tag_pricing table.
var defaultRates = map[string]Price{
	KeyElasticIP:    {MonthlyRate: 3.60, CurrencyCode: "USD"},
	KeyNATGateway:   {MonthlyRate: 32.85, CurrencyCode: "USD"},
	KeyGP2PerGB:     {MonthlyRate: 0.10, CurrencyCode: "USD"},
	KeyGP3PerGB:     {MonthlyRate: 0.08, CurrencyCode: "USD"},
	KeyS3StandardGB: {MonthlyRate: 0.023, CurrencyCode: "USD"},
	KeyS3IAGB:       {MonthlyRate: 0.0125, CurrencyCode: "USD"},
}

type store struct {
	rates map[string]Price
}

// NewStore returns the built-in reference table.
func NewStore() Store {
	return &store{rates: defaultRates}
}

// NewStoreWithRates overlays the built-in table, used when the embedded
// store carries refreshed tag pricing.
func NewStoreWithRates(overrides map[string]Price) Store {
	rates := make(map[string]Price, len(defaultRates)+len(overrides))
	for k, v := range defaultRates {
		rates[k] = v
	}
	for k, v := range overrides {
		rates[k] = v
	}
	return &store{rates: rates}
}

func (s *store) MonthlyRate(key string) (Price, bool) {
	p, ok := s.rates[key]
	return p, ok
}
