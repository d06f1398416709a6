package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNonEmptyString
	kindBool
	kindStringOrNull
	kindStringList
)

type fieldRule struct {
	name string
	kind fieldKind
}

var repositoryRules = []fieldRule{
	{FieldName, kindNonEmptyString},
	{FieldDefaultVersion, kindString},
	{FieldIcon, kindStringOrNull},
	{FieldInstallScript, kindString},
	{FieldRemoveScript, kindString},
	{FieldStartScript, kindString},
	{FieldAddLauncher, kindBool},
	{FieldVersions, kindStringList},
}

var installedRules = []fieldRule{
	{FieldName, kindNonEmptyString},
	{FieldVersion, kindString},
	{FieldIcon, kindStringOrNull},
	{FieldInstallScript, kindString},
	{FieldRemoveScript, kindString},
	{FieldStartScript, kindString},
	{FieldAddLauncher, kindBool},
	{FieldProgramDir, kindString},
}

func rulesFor(schema Schema) []fieldRule {
	if schema == Installed {
		return installedRules
	}
	return repositoryRules
}

// Validate reads dir/manifest.json and checks it against schema.
// It fails with *InvalidManifestError when the file is missing, unparsable or a
// required field has the wrong type, and with *MissingFileError when a script
// or a non-null icon does not resolve to a file inside dir. Read-only.
func Validate(dir string, schema Schema) (*Manifest, error) {
	m, err := Decode(dir, schema)
	if err != nil {
		return nil, err
	}
	if err := checkFiles(dir, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode reads dir/manifest.json and type-checks it against schema without
// checking that referenced files exist.
func Decode(dir string, schema Schema) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, &InvalidManifestError{Dir: dir, Reason: "cannot read " + FileName, Err: err}
	}
	return Parse(dir, data, schema)
}

// Parse type-checks raw manifest bytes against schema. dir is only used for
// error reporting.
func Parse(dir string, data []byte, schema Schema) (*Manifest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &InvalidManifestError{Dir: dir, Reason: "not a JSON object", Err: err}
	}

	for _, rule := range rulesFor(schema) {
		raw, ok := fields[rule.name]
		if !ok {
			return nil, invalid(dir, rule.name, "required field is missing")
		}
		if reason := checkKind(raw, rule.kind); reason != "" {
			return nil, invalid(dir, rule.name, reason)
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &InvalidManifestError{Dir: dir, Reason: "decoding fields", Err: err}
	}
	if schema == Installed {
		m.Versions = nil
		m.DefaultVersion = ""
	} else {
		m.Version = ""
		m.ProgramDir = ""
	}
	return &m, nil
}

// checkKind returns an empty string when raw has the expected JSON type, or a
// reason otherwise.
func checkKind(raw json.RawMessage, kind fieldKind) string {
	v := bytes.TrimSpace(raw)
	switch kind {
	case kindString:
		if !isString(v) {
			return "must be a string"
		}
	case kindNonEmptyString:
		if !isString(v) {
			return "must be a string"
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil || s == "" {
			return "must be a non-empty string"
		}
	case kindBool:
		if !bytes.Equal(v, []byte("true")) && !bytes.Equal(v, []byte("false")) {
			return "must be a boolean"
		}
	case kindStringOrNull:
		if !isString(v) && !bytes.Equal(v, []byte("null")) {
			return "must be a string or null"
		}
	case kindStringList:
		var items []json.RawMessage
		if len(v) == 0 || v[0] != '[' || json.Unmarshal(v, &items) != nil {
			return "must be a list of strings"
		}
		for _, item := range items {
			var s string
			item = bytes.TrimSpace(item)
			if !isString(item) || json.Unmarshal(item, &s) != nil || s == "" {
				return "entries must be non-empty strings"
			}
		}
	}
	return ""
}

func isString(v []byte) bool {
	return len(v) > 0 && v[0] == '"'
}

// checkFiles verifies scripts and a non-null icon are regular files inside
// dir, reached without following a symlink. Package copies drop symlinks, so
// a linked script would be missing once installed.
func checkFiles(dir string, m *Manifest) error {
	refs := []struct {
		field, path, reason string
	}{
		{FieldInstallScript, m.InstallScript, "no install script found"},
		{FieldRemoveScript, m.RemoveScript, "no remove script found"},
		{FieldStartScript, m.StartScript, "no start script found"},
	}
	if m.Icon != nil {
		refs = append(refs, struct{ field, path, reason string }{FieldIcon, *m.Icon, "icon file is missing"})
	}

	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		root = dir
	}
	for _, ref := range refs {
		missing := func(suffix string) error {
			return &MissingFileError{Dir: dir, Field: ref.field, Path: ref.path, Reason: ref.reason + suffix}
		}
		if !filepath.IsLocal(ref.path) {
			return missing(" inside package directory")
		}
		full := filepath.Join(dir, ref.path)
		info, err := os.Lstat(full)
		switch {
		case err != nil:
			return missing("")
		case info.Mode()&os.ModeSymlink != 0:
			return missing(" (symbolic links are not followed)")
		case !info.Mode().IsRegular():
			return missing("")
		}
		if resolved, err := filepath.EvalSymlinks(full); err != nil || resolved != filepath.Join(root, ref.path) {
			return missing(" (symbolic links are not followed)")
		}
	}
	return nil
}
