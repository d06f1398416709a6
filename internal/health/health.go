// Package health inspects an installation root and reports problems, returning
// structured reports used by the 'mdt doctor' command.
package health

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bjornkeller/ModDevelopmentTools/internal/engine"
	"github.com/bjornkeller/ModDevelopmentTools/internal/fsutil"
	"github.com/bjornkeller/ModDevelopmentTools/internal/installed"
	"github.com/bjornkeller/ModDevelopmentTools/internal/lock"
	"github.com/bjornkeller/ModDevelopmentTools/internal/manifest"
	"github.com/shirou/gopsutil/v3/disk"
)

// DefaultMinFreeBytes is the free space below which the disk check fails.
const DefaultMinFreeBytes = 100 << 20

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name    string
	Passed  bool
	Message string
	// Details lists individual findings, such as invalid package directories.
	Details []string
}

// HealthReport contains all health check results
type HealthReport struct {
	Checks []CheckResult
	Passed bool
}

// Options selects what RunHealthChecks inspects.
type Options struct {
	Root    string
	Runtime string
	// MinFreeBytes defaults to DefaultMinFreeBytes.
	MinFreeBytes uint64
}

// RunHealthChecks runs all health checks and returns a report. Checks that
// need the root layout are skipped when it is missing.
func RunHealthChecks(opts Options) *HealthReport {
	if opts.MinFreeBytes == 0 {
		opts.MinFreeBytes = DefaultMinFreeBytes
	}

	report := &HealthReport{Passed: true}
	add := func(c CheckResult) {
		report.Checks = append(report.Checks, c)
		if !c.Passed {
			report.Passed = false
		}
	}

	layout := CheckLayout(opts.Root)
	add(layout)
	if layout.Passed {
		add(CheckRepository(opts.Root))
		add(CheckInstalled(opts.Root))
		add(CheckVersionConfig(opts.Root))
		add(CheckDiskSpace(opts.Root, opts.MinFreeBytes))
		add(CheckLock(opts.Root))
	}
	add(CheckRuntime(opts.Runtime))
	return report
}

func installedDir(root string) string { return filepath.Join(root, engine.InstalledDir) }

// CheckLayout checks that the root and its fixed directories exist.
func CheckLayout(root string) CheckResult {
	result := CheckResult{Name: "Root layout"}
	dirs := []string{
		root,
		filepath.Join(root, engine.RepositoryDir),
		filepath.Join(installedDir(root), installed.PackageDataDir),
		filepath.Join(installedDir(root), installed.ProgramDataDir),
	}
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			result.Details = append(result.Details, fmt.Sprintf("%s: %v", dir, unwrapPathError(err)))
		case !info.IsDir():
			result.Details = append(result.Details, dir+": not a directory")
		}
	}
	if len(result.Details) > 0 {
		result.Message = "missing directories; run any mdt command as root to create them"
		return result
	}
	result.Passed = true
	result.Message = root
	return result
}

// CheckRepository validates every package in the repository.
func CheckRepository(root string) CheckResult {
	return checkPackages("Repository", filepath.Join(root, engine.RepositoryDir), manifest.Repository)
}

// CheckInstalled validates every installation and checks that its program
// directory still exists.
func CheckInstalled(root string) CheckResult {
	return checkPackages("Installed packages",
		filepath.Join(installedDir(root), installed.PackageDataDir), manifest.Installed)
}

func checkPackages(name, dir string, schema manifest.Schema) CheckResult {
	result := CheckResult{Name: name}
	dirs, err := fsutil.SubDirs(dir)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	for _, d := range dirs {
		m, err := manifest.Validate(d, schema)
		if err != nil {
			result.Details = append(result.Details, err.Error())
			continue
		}
		if schema == manifest.Installed {
			if info, err := os.Stat(m.ProgramDir); err != nil || !info.IsDir() {
				result.Details = append(result.Details, fmt.Sprintf("%s: program directory %q is missing", d, m.ProgramDir))
			}
		}
	}
	if len(result.Details) > 0 {
		result.Message = fmt.Sprintf("%d of %d packages invalid", len(result.Details), len(dirs))
		return result
	}
	result.Passed = true
	result.Message = fmt.Sprintf("%d packages valid", len(dirs))
	return result
}

// CheckVersionConfig cross-checks version-config.json against the
// installations: every entry must name an installed version, and every
// installed package should have an entry.
func CheckVersionConfig(root string) CheckResult {
	result := CheckResult{Name: "Version configuration"}

	cfg := installed.NewVersionConfig(filepath.Join(installedDir(root), installed.VersionConfigFile))
	entries, _, err := cfg.Read()
	if err != nil {
		result.Message = err.Error()
		return result
	}

	dirs, err := fsutil.SubDirs(filepath.Join(installedDir(root), installed.PackageDataDir))
	if err != nil {
		result.Message = err.Error()
		return result
	}
	versions := make(map[string][]string)
	for _, d := range dirs {
		m, err := manifest.Decode(d, manifest.Installed)
		if err != nil {
			continue
		}
		versions[m.Name] = append(versions[m.Name], m.Version)
	}

	configured := make(map[string]bool)
	for _, e := range entries {
		configured[e.Name] = true
		if !slices.Contains(versions[e.Name], e.Version) {
			result.Details = append(result.Details, fmt.Sprintf("%s %s is the default but not installed", e.Name, e.Version))
		}
	}
	for name := range versions {
		if !configured[name] {
			result.Details = append(result.Details, fmt.Sprintf("%s has no default version", name))
		}
	}
	slices.Sort(result.Details)

	if len(result.Details) > 0 {
		result.Message = fmt.Sprintf("%d problems; fix with 'mdt config <name>'", len(result.Details))
		return result
	}
	result.Passed = true
	result.Message = fmt.Sprintf("%d defaults configured", len(entries))
	return result
}

// CheckRuntime checks that the script interpreter is on PATH.
func CheckRuntime(runtime string) CheckResult {
	result := CheckResult{Name: "Script runtime"}
	path, err := exec.LookPath(runtime)
	if err != nil {
		result.Message = fmt.Sprintf("%s not found in PATH", runtime)
		return result
	}
	result.Passed = true
	result.Message = path
	return result
}

// CheckDiskSpace checks the free space on the filesystem holding root.
func CheckDiskSpace(root string, minFree uint64) CheckResult {
	result := CheckResult{Name: "Disk space"}
	usage, err := disk.Usage(root)
	if err != nil {
		result.Message = fmt.Sprintf("cannot read disk usage: %v", err)
		return result
	}
	result.Message = fmt.Sprintf("%s free of %s", formatBytes(usage.Free), formatBytes(usage.Total))
	result.Passed = usage.Free >= minFree
	if !result.Passed {
		result.Message += fmt.Sprintf(" (below %s)", formatBytes(minFree))
	}
	return result
}

// CheckLock reports whether another process holds the installation lock.
// A held lock is not a failure; a lock whose recorded holder is gone is.
func CheckLock(root string) CheckResult {
	result := CheckResult{Name: "Lock"}
	held, err := lock.Held(root)
	if err != nil {
		if errors.Is(err, lock.ErrUnavailable) {
			result.Passed = true
			result.Message = "locking not supported on this platform"
			return result
		}
		result.Message = err.Error()
		return result
	}
	if !held {
		result.Passed = true
		result.Message = "not held"
		return result
	}

	holder, err := lock.ReadHolder(root)
	if err != nil || holder == nil {
		result.Passed = true
		result.Message = "held by another process"
		return result
	}
	result.Passed = lock.HolderAlive(holder)
	result.Message = fmt.Sprintf("held by pid %d running %q", holder.PID, holder.Command)
	if !result.Passed {
		result.Message += " which is no longer running"
	}
	return result
}

// FormatReport formats the health report for console output
func FormatReport(report *HealthReport) string {
	var sb strings.Builder
	for _, check := range report.Checks {
		mark := "✓"
		if !check.Passed {
			mark = "✗"
		}
		fmt.Fprintf(&sb, "%s %s: %s\n", mark, check.Name, check.Message)
		for _, d := range check.Details {
			fmt.Fprintf(&sb, "    - %s\n", d)
		}
	}
	return sb.String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func unwrapPathError(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
