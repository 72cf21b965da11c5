package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/ports"
)

const (
	articlesPrefix = "articles_"
	reportPrefix   = "report_"
	posterPrefix   = "ai_report_"
)

// FileStore persists cached articles, reports and posters as plain files keyed by date.
type FileStore struct {
	cacheDir   string
	reportsDir string
	postersDir string
}

var _ ports.ArtifactStore = (*FileStore)(nil)

// NewFileStore makes sure every artifact directory exists.
func NewFileStore(cfg config.StorageConfig) (*FileStore, error) {
	s := &FileStore{
		cacheDir:   cfg.CacheDir,
		reportsDir: cfg.ReportsDir,
		postersDir: cfg.PostersDir,
	}
	for _, dir := range []string{s.cacheDir, s.reportsDir, s.postersDir} {
		if dir == "" {
			return nil, fmt.Errorf("storage directory is not configured")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

// WriteArticles overwrites the cached set for set.Date.
func (s *FileStore) WriteArticles(set domain.CachedArticleSet) (string, error) {
	path := filepath.Join(s.cacheDir, articlesPrefix+compact(set.Date)+".json")
	if err := writeJSON(path, set); err != nil {
		return "", fmt.Errorf("write article cache: %w", err)
	}
	return path, nil
}

// ReadArticles loads the cached set for day.
func (s *FileStore) ReadArticles(day string) (domain.CachedArticleSet, error) {
	var set domain.CachedArticleSet
	path := filepath.Join(s.cacheDir, articlesPrefix+compact(day)+".json")
	if err := readJSON(path, &set); err != nil {
		return domain.CachedArticleSet{}, fmt.Errorf("read article cache: %w", err)
	}
	return set, nil
}

// WriteReport writes the JSON record and the markdown body from the same content.
func (s *FileStore) WriteReport(report domain.Report) (domain.ReportFiles, error) {
	base := filepath.Join(s.reportsDir, reportPrefix+compact(report.Date))
	files := domain.ReportFiles{JSON: base + ".json", Markdown: base + ".md"}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return domain.ReportFiles{}, fmt.Errorf("marshal report: %w", err)
	}

	mdTmp, err := stageFile(files.Markdown, []byte(report.Content))
	if err != nil {
		return domain.ReportFiles{}, fmt.Errorf("write report markdown: %w", err)
	}
	jsonTmp, err := stageFile(files.JSON, raw)
	if err != nil {
		_ = os.Remove(mdTmp)
		return domain.ReportFiles{}, fmt.Errorf("write report json: %w", err)
	}

	// markdown first: the JSON record only changes once its body is in place
	if err := os.Rename(mdTmp, files.Markdown); err != nil {
		_ = os.Remove(mdTmp)
		_ = os.Remove(jsonTmp)
		return domain.ReportFiles{}, fmt.Errorf("write report markdown: %w", err)
	}
	if err := os.Rename(jsonTmp, files.JSON); err != nil {
		_ = os.Remove(jsonTmp)
		return domain.ReportFiles{}, fmt.Errorf("write report json: %w", err)
	}
	return files, nil
}

// ReadReport loads the JSON record for day.
func (s *FileStore) ReadReport(day string) (domain.Report, error) {
	var report domain.Report
	path := filepath.Join(s.reportsDir, reportPrefix+compact(day)+".json")
	if err := readJSON(path, &report); err != nil {
		return domain.Report{}, fmt.Errorf("read report: %w", err)
	}
	return report, nil
}

// PosterPath is where the poster for day is rendered to.
func (s *FileStore) PosterPath(day string) string {
	return filepath.Join(s.postersDir, posterPrefix+day+".jpg")
}

// ResolvePoster maps a caller-supplied poster name or path onto a file inside the posters directory.
func (s *FileStore) ResolvePoster(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if !safeName(base) {
		return "", domain.ErrPosterNotFound
	}
	path := filepath.Join(s.postersDir, base)
	if !isRegularFile(path) {
		return "", fmt.Errorf("%w: %s", domain.ErrPosterNotFound, base)
	}
	return path, nil
}

// List enumerates stored artifacts grouped by kind.
func (s *FileStore) List() (domain.FileListing, error) {
	reports, err := listDir(s.reportsDir, ".json", ".md")
	if err != nil {
		return domain.FileListing{}, err
	}
	posters, err := listDir(s.postersDir, ".jpg")
	if err != nil {
		return domain.FileListing{}, err
	}
	cache, err := listDir(s.cacheDir, ".json")
	if err != nil {
		return domain.FileListing{}, err
	}
	return domain.FileListing{Reports: reports, Posters: posters, Cache: cache}, nil
}

// Locate finds a bare file name in the reports, posters and cache directories, in that order.
func (s *FileStore) Locate(name string) (string, error) {
	if !safeName(name) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	for _, dir := range []string{s.reportsDir, s.postersDir, s.cacheDir} {
		path := filepath.Join(dir, name)
		if isRegularFile(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
}

func listDir(dir string, exts ...string) ([]domain.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	files := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !hasExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, domain.FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, want := range exts {
		if ext == want {
			return true
		}
	}
	return false
}

func safeName(name string) bool {
	return name != "" && name != "." && name != ".." && name != string(filepath.Separator) &&
		!strings.ContainsAny(name, `/\`)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func compact(day string) string {
	return strings.ReplaceAll(day, "-", "")
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, raw)
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, filepath.Base(path))
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFile replaces path in one rename so readers never see a partial file.
func writeFile(path string, data []byte) error {
	tmp, err := stageFile(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// stageFile writes data to a hidden temp file next to path and returns its name.
func stageFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
