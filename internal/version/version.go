// Package version provides build information and the snapshot format
// version of lazystore.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
	semVerPartsCount = 3
)

// FormatVersion is the version of the snapshot layout written by ToBytes
// and the file writers. Readers accept any snapshot with the same major.
const FormatVersion = "1.0.0"

// FormatMetadataKey is the Arrow schema metadata key carrying FormatVersion
const FormatMetadataKey = "lazystore.format"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains build information
type BuildInfo struct {
	Version       string   `json:"version"`
	FormatVersion string   `json:"format_version"`
	BuildDate     string   `json:"build_date"`
	GitCommit     string   `json:"git_commit"`
	GoVersion     string   `json:"go_version"`
	Dirty         bool     `json:"dirty"`
	Deps          []Module `json:"deps,omitempty"`
}

// Module is a dependency compiled into the binary
type Module struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// Info returns the build information of the running binary
func Info() BuildInfo {
	info := BuildInfo{
		Version:       Version,
		FormatVersion: FormatVersion,
		BuildDate:     BuildDate,
		GitCommit:     GitCommit,
		GoVersion:     GoVersion,
		Dirty:         strings.HasSuffix(GitCommit, "-dirty"),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			info.Deps = append(info.Deps, Module{Path: dep.Path, Version: dep.Version})
		}
		if GitCommit == unknownValue {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.GitCommit = s.Value
				}
			}
		}
	}
	return info
}

// String returns a multi-line summary for the version command
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "lazystore %s", b.Version)
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Snapshot format: %s\n", b.FormatVersion)

	if b.BuildDate != unknownValue {
		fmt.Fprintf(&sb, "Build date: %s\n", b.BuildDate)
	}
	if b.GitCommit != unknownValue {
		commit := b.GitCommit
		if len(commit) > commitHashLength {
			commit = commit[:commitHashLength]
		}
		fmt.Fprintf(&sb, "Git commit: %s\n", commit)
	}
	fmt.Fprintf(&sb, "Go version: %s\n", b.GoVersion)
	return sb.String()
}

// SemVer holds the components of a semantic version
type SemVer struct {
	Major      int
	Minor      int
	Patch      int
	PreRelease string
}

// ParseSemVer parses [v]MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]; build
// metadata is dropped.
func ParseSemVer(v string) (SemVer, error) {
	if v == "" {
		return SemVer{}, fmt.Errorf("version string cannot be empty")
	}
	v = strings.TrimPrefix(v, "v")
	if idx := strings.Index(v, "+"); idx != -1 {
		v = v[:idx]
	}

	var sv SemVer
	if idx := strings.Index(v, "-"); idx != -1 {
		sv.PreRelease = v[idx+1:]
		v = v[:idx]
	}

	parts := strings.Split(v, ".")
	if len(parts) != semVerPartsCount {
		return SemVer{}, fmt.Errorf("invalid version format: %s", v)
	}
	for i, dst := range []*int{&sv.Major, &sv.Minor, &sv.Patch} {
		if _, err := fmt.Sscanf(parts[i], "%d", dst); err != nil {
			return SemVer{}, fmt.Errorf("invalid version component %q", parts[i])
		}
	}
	return sv, nil
}

// String formats the version without a leading v
func (s SemVer) String() string {
	out := fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
	if s.PreRelease != "" {
		out += "-" + s.PreRelease
	}
	return out
}

// CheckFormat reports whether a snapshot written with format version v can
// be read by this build
func CheckFormat(v string) error {
	got, err := ParseSemVer(v)
	if err != nil {
		return fmt.Errorf("snapshot format: %w", err)
	}
	want, _ := ParseSemVer(FormatVersion)
	if got.Major != want.Major {
		return fmt.Errorf("snapshot format %s is not compatible with %s", got, want)
	}
	return nil
}
