package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Document is an untyped manifest that keeps every field of the original file,
// including ones this tool does not know about.
type Document map[string]any

// ReadDocument loads dir/manifest.json as a Document.
func ReadDocument(dir string) (Document, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidManifestError{Dir: dir, Reason: "not a JSON object", Err: err}
	}
	return doc, nil
}

// WriteDocument writes doc to dir/manifest.json with two-space indentation.
func WriteDocument(dir string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// PinInstallation turns a repository manifest document into an installed one:
// version and program-dir are set, versions and default-version are dropped.
func (d Document) PinInstallation(version, programDir string) {
	d[FieldVersion] = version
	d[FieldProgramDir] = programDir
	delete(d, FieldVersions)
	delete(d, FieldDefaultVersion)
}
