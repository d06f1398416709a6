package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError points at the file, and where known the position or key,
// that made a configuration unusable.
type ValidationError struct {
	FilePath string
	Line     int
	Column   int
	Message  string
	Field    string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: field '%s': %s", e.FilePath, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
	}
}

// ValidateYAMLSyntax parses the file at path as YAML. A missing file is valid.
func ValidateYAMLSyntax(path string) error {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case errors.Is(err, fs.ErrPermission):
		return &ValidationError{FilePath: path, Message: "permission denied"}
	case err != nil:
		return &ValidationError{FilePath: path, Message: err.Error()}
	}
	return ValidateYAMLSyntaxFromBytes(data, path)
}

// ValidateYAMLSyntaxFromBytes is ValidateYAMLSyntax for in-memory data;
// name is only used in the returned error.
func ValidateYAMLSyntaxFromBytes(data []byte, name string) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var doc yaml.Node
	err := yaml.Unmarshal(data, &doc)
	if err == nil {
		return nil
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{FilePath: name, Message: strings.Join(typeErr.Errors, "; ")}
	}
	verr := &ValidationError{FilePath: name, Message: err.Error()}
	verr.Line, verr.Column, verr.Message = splitPosition(err.Error())
	return verr
}

// yaml.v3 reports syntax errors as "yaml: line N: msg", sometimes with
// "column M:" after the line.
var positionRE = regexp.MustCompile(`^yaml: line (\d+):(?: column (\d+):)? (.*)$`)

func splitPosition(msg string) (line, column int, rest string) {
	m := positionRE.FindStringSubmatch(msg)
	if m == nil {
		return 0, 0, msg
	}
	line, _ = strconv.Atoi(m[1])
	column = 1
	if m[2] != "" {
		column, _ = strconv.Atoi(m[2])
	}
	return line, column, m[3]
}

// fieldRule is a constraint on a decoded value that koanf cannot enforce.
type fieldRule struct {
	field   string
	message string
	broken  func(*Configuration) bool
}

var fieldRules = []fieldRule{
	{"root", "is required", func(c *Configuration) bool { return strings.TrimSpace(c.Root) == "" }},
	{"runtime", "is required", func(c *Configuration) bool { return strings.TrimSpace(c.Runtime) == "" }},
	{"script_timeout", "must not be negative", func(c *Configuration) bool { return c.ScriptTimeout < 0 }},
	{"max_history_entries", "must be at least 0", func(c *Configuration) bool { return c.MaxHistoryEntries < 0 }},
}

// ValidateConfigValues reports the first rule cfg breaks.
func ValidateConfigValues(cfg *Configuration, source string) error {
	for _, r := range fieldRules {
		if r.broken(cfg) {
			return &ValidationError{FilePath: source, Field: r.field, Message: r.message}
		}
	}
	return nil
}
