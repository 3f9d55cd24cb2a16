// Package trace holds the canonical in-memory representation of a build:
// translation units, their include lists, template instantiations, and
// per-unit timing breakdowns. It is the immutable input to the analysis
// pipeline; decoding GCC/Clang/MSVC output into this shape is a
// collaborator's job, not this package's.
package trace

import (
	"path/filepath"
	"strings"
	"time"
)

// Duration is an integral nanosecond count. All pipeline arithmetic is
// performed in nanoseconds; milliseconds only appear at the JSON/render
// boundary.
type Duration int64

// Milliseconds returns the duration as a float64 count of milliseconds,
// matching the snapshot JSON v2.0 "_ms" fields.
func (d Duration) Milliseconds() float64 {
	return float64(d) / float64(time.Millisecond)
}

// Clamp returns d if non-negative, else zero. The core never rejects
// negative decoder timings; it treats them as zero.
func (d Duration) Clamp() Duration {
	if d < 0 {
		return 0
	}

	return d
}

// Percent returns 100*d/base, or zero when base is non-positive.
func Percent(delta, base Duration) float64 {
	if base <= 0 {
		return 0
	}

	return 100 * float64(delta) / float64(base)
}

// FileId is a normalised path. Two FileIds are equal iff their
// normalised strings match; no case folding is performed. A relative
// path is not made absolute.
type FileId string

// NormalizeFileId cleans a raw path with filepath.Clean and then
// filepath.ToSlash, so the OS separator becomes '/'; on systems whose
// separator is '/', a backslash is kept as an ordinary character. A
// relative path stays relative. An empty input normalises to the empty
// string and is surfaced as-is.
func NormalizeFileId(raw string) FileId {
	if raw == "" {
		return ""
	}

	cleaned := filepath.Clean(raw)
	cleaned = filepath.ToSlash(cleaned)

	return FileId(cleaned)
}

// String implements fmt.Stringer.
func (f FileId) String() string { return string(f) }

// IsEmpty reports whether this FileId is the literal empty string.
func (f FileId) IsEmpty() bool { return f == "" }

// Metrics is the per-unit timing breakdown reported by a decoder.
type Metrics struct {
	Breakdown    map[string]Duration `json:"breakdown,omitempty"`
	TotalTime    Duration            `json:"total_time"`
	FrontendTime Duration            `json:"frontend_time"`
	BackendTime  Duration            `json:"backend_time"`
}

// Normalize clamps every field to be non-negative, in place semantics
// via return value (Metrics is small and copied by value at call sites).
func (m Metrics) Normalize() Metrics {
	out := Metrics{
		TotalTime:    m.TotalTime.Clamp(),
		FrontendTime: m.FrontendTime.Clamp(),
		BackendTime:  m.BackendTime.Clamp(),
	}

	if len(m.Breakdown) > 0 {
		out.Breakdown = make(map[string]Duration, len(m.Breakdown))
		for phase, d := range m.Breakdown {
			out.Breakdown[phase] = d.Clamp()
		}
	}

	return out
}

// Include is one entry in a unit's ordered include list.
type Include struct {
	Header    FileId   `json:"header"`
	ParseTime Duration `json:"parse_time"`
	Depth     int      `json:"depth"`
}

// Template is one template-instantiation record reported for a unit.
type Template struct {
	Signature          string   `json:"signature"`
	InstantiationCount int      `json:"instantiation_count"`
	TotalTime          Duration `json:"total_time"`
}

// Memory holds optional peak-memory figures for a unit. A nil *Memory
// on CompilationUnit means the decoder did not report memory figures.
type Memory struct {
	PeakMemoryBytes   int64 `json:"peak_memory_bytes"`
	FrontendPeakBytes int64 `json:"frontend_peak_bytes"`
	BackendPeakBytes  int64 `json:"backend_peak_bytes"`
	MaxStackBytes     int64 `json:"max_stack_bytes"`
}

// CompilationUnit is one translation unit's trace record, as reported
// by a decoder collaborator (GCC -ftime-report, Clang -ftime-trace,
// MSVC /Bt+ stdout — all out of scope here). The json tags are the
// canonical CompilationUnit wire contract that a `bha record`
// invocation reads from a decoder's output file.
type CompilationUnit struct {
	Memory     *Memory    `json:"memory,omitempty"`
	SourceFile FileId     `json:"source_file"`
	Includes   []Include  `json:"includes"`
	Templates  []Template `json:"templates"`
	Metrics    Metrics    `json:"metrics"`
}

// Normalize returns a copy of u with its path normalised and all
// durations clamped to non-negative, per the input contract.
func (u CompilationUnit) Normalize() CompilationUnit {
	out := u
	out.SourceFile = NormalizeFileId(string(u.SourceFile))
	out.Metrics = u.Metrics.Normalize()

	out.Includes = make([]Include, len(u.Includes))
	for i, inc := range u.Includes {
		out.Includes[i] = Include{
			Header:    NormalizeFileId(string(inc.Header)),
			ParseTime: inc.ParseTime.Clamp(),
			Depth:     max(inc.Depth, 0),
		}
	}

	out.Templates = make([]Template, len(u.Templates))
	for i, tpl := range u.Templates {
		count := tpl.InstantiationCount
		if count < 1 {
			count = 1
		}

		out.Templates[i] = Template{
			Signature:          tpl.Signature,
			InstantiationCount: count,
			TotalTime:          tpl.TotalTime.Clamp(),
		}
	}

	return out
}

// BuildTrace is the whole, decoded build: every unit plus the driver's
// reported wall-clock total.
type BuildTrace struct {
	Timestamp time.Time         `json:"timestamp"`
	Units     []CompilationUnit `json:"units"`
	TotalTime Duration          `json:"total_time"`
}

// Normalize returns a copy of t with every unit normalised and the
// total time clamped.
func (t BuildTrace) Normalize() BuildTrace {
	out := t
	out.TotalTime = t.TotalTime.Clamp()
	out.Units = make([]CompilationUnit, len(t.Units))

	for i, u := range t.Units {
		out.Units[i] = u.Normalize()
	}

	return out
}

// SignatureBase returns the unqualified template name from a full
// signature (everything before the first '<' or '('), used for display
// grouping while full_signature is kept for attribution.
func SignatureBase(signature string) string {
	if idx := strings.IndexAny(signature, "<("); idx >= 0 {
		return signature[:idx]
	}

	return signature
}
