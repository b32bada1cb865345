package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// DefaultIndent matches the four-space layout of the catalog exports.
const DefaultIndent = "    "

// WriteIndented writes items as an indented JSON array. Item key order is
// kept and non-ASCII text is written literally, even when the input escaped it.
func WriteIndented(w io.Writer, items []json.RawMessage, indent string) error {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := appendLiteral(&compact, item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	compact.WriteByte(']')
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", indent); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}

// ReadArray loads a JSON file holding an array of items.
func ReadArray(path string) ([]json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

// writeFile writes through a temp file in the target directory so a failed
// run never leaves a truncated output.
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// MergeFiles merges fallbackPath and preferredPath by key into outPath.
func MergeFiles(fallbackPath, preferredPath, outPath, key string) (int, error) {
	fallback, err := ReadArray(fallbackPath)
	if err != nil {
		return 0, err
	}
	preferred, err := ReadArray(preferredPath)
	if err != nil {
		return 0, err
	}
	merged, err := MergeByKey(fallback, preferred, key)
	if err != nil {
		return 0, err
	}
	if err := writeFile(outPath, func(w io.Writer) error { return WriteIndented(w, merged, DefaultIndent) }); err != nil {
		return 0, fmt.Errorf("write %s: %w", outPath, err)
	}
	log.Info().Int("fallback", len(fallback)).Int("preferred", len(preferred)).Int("merged", len(merged)).Str("out", outPath).Msg("merged json")
	return len(merged), nil
}

// ExtractFile runs ExtractFields over inPath and writes the array to outPath.
func ExtractFile(inPath, outPath string, fields []string) (ExtractStats, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return ExtractStats{}, err
	}
	defer f.Close()
	items, st, err := ExtractFields(f, fields)
	if err != nil {
		return st, err
	}
	if err := writeFile(outPath, func(w io.Writer) error { return WriteIndented(w, items, DefaultIndent) }); err != nil {
		return st, fmt.Errorf("write %s: %w", outPath, err)
	}
	log.Info().Int("lines", st.Lines).Int("kept", st.Kept).Int("invalid", st.Invalid).Int("filtered", st.Filtered).Str("out", outPath).Msg("extracted fields")
	return st, nil
}
