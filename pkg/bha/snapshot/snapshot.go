// Package snapshot implements the snapshot engine: it serialises
// an AnalysisResult to the bit-exact JSON v2.0 schema, loads it back,
// lists saved snapshots, tracks a single baseline pointer, and
// computes deterministic comparisons between two results.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/buildtrace/bha/pkg/bha/bhaerr"
	"github.com/buildtrace/bha/pkg/bha/pipeline"
	"github.com/buildtrace/bha/pkg/bha/trace"
)

// SchemaVersion is the JSON schema version this package reads and writes.
const SchemaVersion = "2.0"

const baselineFilename = ".baseline"

// Meta is the caller-supplied metadata saved alongside an AnalysisResult.
type Meta struct {
	Name        string
	Description string
	GitCommit   string
	GitBranch   string
	Tags        []string
}

// PerformanceDoc is the `performance` object of the JSON v2.0 schema.
type PerformanceDoc struct {
	TotalBuildTimeMs      float64 `json:"total_build_time_ms"`
	SequentialTimeMs      float64 `json:"sequential_time_ms"`
	ParallelTimeMs        float64 `json:"parallel_time_ms"`
	ParallelismEfficiency float64 `json:"parallelism_efficiency"`
	TotalFiles            int     `json:"total_files"`
	AvgFileTimeMs         float64 `json:"avg_file_time_ms"`
	MedianFileTimeMs      float64 `json:"median_file_time_ms"`
	P90FileTimeMs         float64 `json:"p90_file_time_ms"`
	P99FileTimeMs         float64 `json:"p99_file_time_ms"`
}

// FileDoc is one entry of the `files` array.
type FileDoc struct {
	Path          string  `json:"path"`
	CompileTimeMs float64 `json:"compile_time_ms"`
	FrontendMs    float64 `json:"frontend_time_ms"`
	BackendMs     float64 `json:"backend_time_ms"`
	TimePercent   float64 `json:"time_percent"`
	Rank          int     `json:"rank"`
	IncludeCount  int     `json:"include_count"`
	TemplateCount int     `json:"template_count"`
}

// HeaderDoc is one entry of the `dependencies.headers` array.
type HeaderDoc struct {
	Path            string   `json:"path"`
	TotalParseTimeMs float64  `json:"total_parse_time_ms"`
	InclusionCount  int      `json:"inclusion_count"`
	IncludingFiles  []string `json:"including_files"`
	ImpactScore     float64  `json:"impact_score"`
}

// DependenciesDoc is the `dependencies` object.
type DependenciesDoc struct {
	TotalIncludes       int         `json:"total_includes"`
	UniqueHeaders       int         `json:"unique_headers"`
	MaxIncludeDepth     int         `json:"max_include_depth"`
	TotalIncludeTimeMs  float64     `json:"total_include_time_ms"`
	Headers             []HeaderDoc `json:"headers"`
}

// TemplateDoc is one entry of the `templates.templates` array.
type TemplateDoc struct {
	Name               string  `json:"name"`
	FullSignature      string  `json:"full_signature"`
	TotalTimeMs        float64 `json:"total_time_ms"`
	InstantiationCount int     `json:"instantiation_count"`
	TimePercent        float64 `json:"time_percent"`
}

// TemplatesDoc is the `templates` object.
type TemplatesDoc struct {
	TotalTemplateTimeMs float64       `json:"total_template_time_ms"`
	TemplateTimePercent float64       `json:"template_time_percent"`
	TotalInstantiations int           `json:"total_instantiations"`
	Templates           []TemplateDoc `json:"templates"`
}

// SuggestionDoc is one entry of the `suggestions` array.
type SuggestionDoc struct {
	Type               string  `json:"type"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	TargetFile         string  `json:"target_file"`
	TargetLine         int     `json:"target_line"`
	Confidence         float64 `json:"confidence"`
	Priority           string  `json:"priority"`
	EstimatedSavingsMs float64 `json:"estimated_savings_ms"`
	IsSafe             bool    `json:"is_safe"`
}

// Snapshot is the full JSON v2.0 document.
type Snapshot struct {
	Version          string          `json:"version"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	CreatedAt        time.Time       `json:"created_at"`
	GitCommit        string          `json:"git_commit"`
	GitBranch        string          `json:"git_branch"`
	FileCount        int             `json:"file_count"`
	TotalBuildTimeMs float64         `json:"total_build_time_ms"`
	Tags             []string        `json:"tags"`
	Performance      PerformanceDoc  `json:"performance"`
	Files            []FileDoc       `json:"files"`
	Dependencies     DependenciesDoc `json:"dependencies"`
	Templates        TemplatesDoc    `json:"templates"`
	Suggestions      []SuggestionDoc `json:"suggestions"`
}

// FromAnalysisResult converts a pipeline.AnalysisResult plus caller
// metadata into the JSON v2.0 document shape. The creation timestamp
// is now, converted to UTC.
func FromAnalysisResult(result pipeline.AnalysisResult, meta Meta, now time.Time) Snapshot {
	perfDoc := PerformanceDoc{
		TotalBuildTimeMs:      result.TotalBuildTime.Milliseconds(),
		SequentialTimeMs:      result.Performance.SequentialTime.Milliseconds(),
		ParallelTimeMs:        result.Performance.ParallelTime.Milliseconds(),
		ParallelismEfficiency: result.Performance.ParallelismEfficiency,
		TotalFiles:            result.Performance.TotalFiles,
		MedianFileTimeMs:      result.Performance.Percentiles.P50.Milliseconds(),
		P90FileTimeMs:         result.Performance.Percentiles.P90.Milliseconds(),
		P99FileTimeMs:         result.Performance.Percentiles.P99.Milliseconds(),
	}

	if perfDoc.TotalFiles > 0 {
		perfDoc.AvgFileTimeMs = perfDoc.SequentialTimeMs / float64(perfDoc.TotalFiles)
	}

	files := make([]FileDoc, len(result.Performance.Files))
	for i, f := range result.Performance.Files {
		files[i] = FileDoc{
			Path:          f.File.String(),
			CompileTimeMs: f.CompileTime.Milliseconds(),
			FrontendMs:    f.FrontendTime.Milliseconds(),
			BackendMs:     f.BackendTime.Milliseconds(),
			TimePercent:   f.TimePercent,
			Rank:          f.Rank,
			IncludeCount:  f.IncludeCount,
			TemplateCount: f.TemplateCount,
		}
	}

	headers := make([]HeaderDoc, len(result.Dependencies.Headers))
	for i, h := range result.Dependencies.Headers {
		including := make([]string, len(h.IncludingFiles))
		for j, f := range h.IncludingFiles {
			including[j] = f.String()
		}

		headers[i] = HeaderDoc{
			Path:             h.Header.String(),
			TotalParseTimeMs: h.TotalParseTime.Milliseconds(),
			InclusionCount:   h.InclusionCount,
			IncludingFiles:   including,
			ImpactScore:      h.ImpactScore,
		}
	}

	depDoc := DependenciesDoc{
		TotalIncludes:      result.Dependencies.TotalIncludes,
		UniqueHeaders:      result.Dependencies.UniqueHeaders,
		MaxIncludeDepth:    result.Dependencies.MaxIncludeDepth,
		TotalIncludeTimeMs: result.Dependencies.TotalIncludeTime.Milliseconds(),
		Headers:            headers,
	}

	tplDocs := make([]TemplateDoc, len(result.Templates.Signatures))
	for i, s := range result.Templates.Signatures {
		tplDocs[i] = TemplateDoc{
			Name:               trace.SignatureBase(s.Signature),
			FullSignature:      s.Signature,
			TotalTimeMs:        s.TotalTime.Milliseconds(),
			InstantiationCount: s.InstantiationCount,
			TimePercent:        s.TimePercent,
		}
	}

	tplDoc := TemplatesDoc{
		TotalTemplateTimeMs: result.Templates.TotalTemplateTime.Milliseconds(),
		TemplateTimePercent: result.Templates.TemplateTimePercent,
		TotalInstantiations: result.Templates.TotalInstantiations,
		Templates:           tplDocs,
	}

	suggestions := make([]SuggestionDoc, len(result.Suggestions))
	for i, s := range result.Suggestions {
		suggestions[i] = SuggestionDoc{
			Type:               string(s.Type),
			Title:              s.Title,
			Description:        s.Description,
			TargetFile:         s.TargetFile.File.String(),
			TargetLine:         s.TargetFile.LineStart,
			Confidence:         s.Confidence,
			Priority:           string(s.Priority),
			EstimatedSavingsMs: s.EstimatedSavings.Milliseconds(),
			IsSafe:             !s.Unsafe,
		}
	}

	return Snapshot{
		Version:          SchemaVersion,
		Name:             meta.Name,
		Description:      meta.Description,
		CreatedAt:        now.UTC(),
		GitCommit:        meta.GitCommit,
		GitBranch:        meta.GitBranch,
		FileCount:        result.FileCount,
		TotalBuildTimeMs: result.TotalBuildTime.Milliseconds(),
		Tags:             meta.Tags,
		Performance:      perfDoc,
		Files:            files,
		Dependencies:     depDoc,
		Templates:        tplDoc,
		Suggestions:      suggestions,
	}
}

// Store is a directory-backed repository of snapshots, one JSON file
// per named snapshot plus one baseline-pointer file.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir. The directory must already exist.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

// Save writes snap to disk. It refuses to overwrite an existing
// snapshot of the same name; the caller must remove it first.
func (s *Store) Save(snap Snapshot) error {
	path := s.path(snap.Name)

	if _, err := os.Stat(path); err == nil {
		return bhaerr.Wrap(bhaerr.KindIO, fmt.Sprintf("snapshot %q already exists", snap.Name), bhaerr.ErrSnapshotExists)
	}

	file, err := os.Create(path)
	if err != nil {
		return bhaerr.Wrap(bhaerr.KindIO, "create snapshot file", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(snap); err != nil {
		return bhaerr.Wrap(bhaerr.KindIO, "encode snapshot", err)
	}

	return nil
}

// Load reads and parses a named snapshot. Unknown fields are ignored
// by encoding/json automatically; missing fields default to their
// zero value, for forward compatibility.
func (s *Store) Load(name string) (Snapshot, error) {
	file, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, bhaerr.Wrap(bhaerr.KindNotFound, fmt.Sprintf("snapshot %q not found", name), bhaerr.ErrNotFound)
		}

		return Snapshot{}, bhaerr.Wrap(bhaerr.KindIO, "open snapshot file", err)
	}
	defer file.Close()

	return decode(file, name)
}

func decode(r io.Reader, name string) (Snapshot, error) {
	var snap Snapshot

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, bhaerr.Wrap(bhaerr.KindParse, fmt.Sprintf("parse snapshot %q", name), err)
	}

	if snap.Version != "" && snap.Version != SchemaVersion {
		return Snapshot{}, bhaerr.Wrap(bhaerr.KindParse, fmt.Sprintf("snapshot %q has unsupported version %q", name, snap.Version), bhaerr.ErrUnsupportedVersion)
	}

	return snap, nil
}

// Info is a lightweight listing entry.
type Info struct {
	Name      string
	CreatedAt time.Time
}

// List enumerates saved snapshots sorted by created_at descending.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, bhaerr.Wrap(bhaerr.KindIO, "read snapshot directory", err)
	}

	var infos []Info

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		name := e.Name()[:len(e.Name())-len(".json")]

		snap, err := s.Load(name)
		if err != nil {
			continue
		}

		infos = append(infos, Info{Name: name, CreatedAt: snap.CreatedAt})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	return infos, nil
}

// SetBaseline designates name as the baseline snapshot.
func (s *Store) SetBaseline(name string) error {
	if _, err := s.Load(name); err != nil {
		return err
	}

	path := filepath.Join(s.Dir, baselineFilename)

	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		return bhaerr.Wrap(bhaerr.KindIO, "write baseline pointer", err)
	}

	return nil
}

// Baseline returns the currently designated baseline snapshot's name.
func (s *Store) Baseline() (string, error) {
	path := filepath.Join(s.Dir, baselineFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", bhaerr.Wrap(bhaerr.KindNotFound, "no baseline set", bhaerr.ErrNotFound)
		}

		return "", bhaerr.Wrap(bhaerr.KindIO, "read baseline pointer", err)
	}

	return string(data), nil
}

// ClearBaseline removes the baseline pointer, if any.
func (s *Store) ClearBaseline() error {
	path := filepath.Join(s.Dir, baselineFilename)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return bhaerr.Wrap(bhaerr.KindIO, "clear baseline pointer", err)
	}

	return nil
}

// Delete removes a named snapshot. If it was the baseline, the
// pointer is cleared.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return bhaerr.Wrap(bhaerr.KindNotFound, fmt.Sprintf("snapshot %q not found", name), bhaerr.ErrNotFound)
		}

		return bhaerr.Wrap(bhaerr.KindIO, "delete snapshot file", err)
	}

	if baseline, err := s.Baseline(); err == nil && baseline == name {
		return s.ClearBaseline()
	}

	return nil
}
