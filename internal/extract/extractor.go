package extract

// Extractor defines the table extraction contract. Callers depend on this
// interface so location strategies can change without touching them.
type Extractor interface {
	// Extract converts raw HTML text into positional records.
	// Implementations must be deterministic and never fail.
	Extract(input string) Result
}

var defaultExtractor = NewGridExtractor(Options{})

// Extract runs the default GridExtractor.
func Extract(input string) Result {
	return defaultExtractor.Extract(input)
}
