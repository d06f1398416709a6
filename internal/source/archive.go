package source

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveFileName is the name the downloaded archive is saved under.
const ArchiveFileName = "repository-update.zip"

// RepositoryDirName is the directory inside an archive that holds the
// packages. When an archive has no such directory its top level is used.
const RepositoryDirName = "repository"

// Archive is a zip archive of a repository fetched over HTTP.
type Archive struct {
	URL string
	// Client defaults to http.DefaultClient.
	Client  *http.Client
	OnStage StageFunc
}

// Fetch downloads the archive and extracts it under tmpDir.
func (a Archive) Fetch(ctx context.Context, tmpDir string) (*Fetched, error) {
	work, err := makeWorkDir(tmpDir, "update-*")
	if err != nil {
		return nil, err
	}
	fetched := &Fetched{cleanup: func() error { return os.RemoveAll(work) }}

	zipPath := filepath.Join(work, ArchiveFileName)
	notify(a.OnStage, "Downloading repository from %s...", a.URL)
	if err := a.download(ctx, zipPath); err != nil {
		fetched.Cleanup()
		return nil, err
	}

	notify(a.OnStage, "Extracting %s...", ArchiveFileName)
	extractDir := filepath.Join(work, "extract")
	if err := Extract(zipPath, extractDir); err != nil {
		fetched.Cleanup()
		return nil, err
	}

	fetched.Dir = extractDir
	if info, err := os.Stat(filepath.Join(extractDir, RepositoryDirName)); err == nil && info.IsDir() {
		fetched.Dir = filepath.Join(extractDir, RepositoryDirName)
	}
	return fetched, nil
}

func (a Archive) String() string {
	return a.URL
}

// download saves the response body for a.URL to path.
func (a Archive) download(ctx context.Context, path string) error {
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return fmt.Errorf("invalid update URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s failed with status: %s", a.URL, resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to save downloaded file: %w", err)
	}
	return f.Close()
}

// Extract unpacks the zip archive at zipPath into destDir. Entries that would
// land outside destDir are rejected, and symlink entries are skipped.
func Extract(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open ZIP file: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	for _, file := range r.File {
		name := strings.TrimSuffix(file.Name, "/")
		if name == "" {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("invalid path in ZIP: %s", file.Name)
		}
		destPath := filepath.Join(destDir, filepath.FromSlash(name))

		mode := file.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			continue
		case file.FileInfo().IsDir():
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}
		if err := extractFile(file, destPath); err != nil {
			return fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
	}
	return nil
}

func extractFile(file *zip.File, destPath string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := file.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, rc); err != nil {
		return err
	}
	return destFile.Close()
}
