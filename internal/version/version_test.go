package version_test

import (
	"testing"

	"github.com/paveg/lazystore/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfo(t *testing.T) {
	info := version.Info()
	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, version.FormatVersion, info.FormatVersion)
	assert.NotEmpty(t, info.GoVersion)
}

func TestBuildInfoString(t *testing.T) {
	info := version.BuildInfo{
		Version:       "1.2.3",
		FormatVersion: "1.0.0",
		BuildDate:     "2024-01-01T00:00:00Z",
		GitCommit:     "abcdef1234567-dirty",
		GoVersion:     "go1.24",
		Dirty:         true,
	}

	s := info.String()
	assert.Contains(t, s, "lazystore 1.2.3 (dirty)")
	assert.Contains(t, s, "Snapshot format: 1.0.0")
	assert.Contains(t, s, "Git commit: abcdef1")
	assert.Contains(t, s, "Go version: go1.24")

	info.BuildDate = "unknown"
	assert.NotContains(t, info.String(), "Build date")
}

func TestParseSemVer(t *testing.T) {
	tests := []struct {
		input   string
		want    version.SemVer
		wantErr bool
	}{
		{input: "1.0.0", want: version.SemVer{Major: 1}},
		{input: "v2.1.3-alpha.1", want: version.SemVer{Major: 2, Minor: 1, Patch: 3, PreRelease: "alpha.1"}},
		{input: "1.0.0+build.1", want: version.SemVer{Major: 1}},
		{input: "", wantErr: true},
		{input: "1.0", wantErr: true},
		{input: "1.x.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := version.ParseSemVer(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	sv, err := version.ParseSemVer("v3.2.1-rc.1")
	require.NoError(t, err)
	assert.Equal(t, "3.2.1-rc.1", sv.String())
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, version.CheckFormat(version.FormatVersion))
	assert.NoError(t, version.CheckFormat("1.9.0"))
	assert.ErrorContains(t, version.CheckFormat("2.0.0"), "not compatible")
	assert.Error(t, version.CheckFormat("garbage"))
}
