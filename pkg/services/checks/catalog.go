package checks

// Catalog maps provider tags to the check factories registered for
// them. Wiring is explicit: adding a check means adding its factory
// here, not dropping a file into a conventionally named directory.
type Catalog map[string][]Factory
