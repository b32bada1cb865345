package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/hyperifyio/invscrape/internal/extract"
)

// Manifest is a machine-readable record of how a report was produced, kept
// next to the report so a run can be traced back to its capture.
type Manifest struct {
	Query       string    `json:"query"`
	URL         string    `json:"url,omitempty"`
	CaptureKey  string    `json:"capture_key,omitempty"`
	Strategy    string    `json:"strategy"`
	Tables      int       `json:"tables"`
	DataRows    int       `json:"data_rows"`
	Records     int       `json:"records"`
	Diagnostic  string    `json:"diagnostic,omitempty"`
	BodySHA256  string    `json:"body_sha256"`
	BodyBytes   int       `json:"body_bytes"`
	Outputs     []string  `json:"outputs"`
	Version     string    `json:"version,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewManifest fills the extraction and body fields of a manifest.
func NewManifest(query, body string, res extract.Result, now time.Time) Manifest {
	h := sha256.Sum256([]byte(body))
	return Manifest{
		Query:       query,
		Strategy:    res.Strategy,
		Tables:      res.TableCount,
		DataRows:    res.DataRows,
		Records:     len(res.Records),
		Diagnostic:  res.Diagnostic,
		BodySHA256:  hex.EncodeToString(h[:]),
		BodyBytes:   len(body),
		GeneratedAt: now.UTC(),
	}
}

// SidecarPath returns the manifest path next to a report output.
func SidecarPath(outputPath string) string {
	return outputPath + ".manifest.json"
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
