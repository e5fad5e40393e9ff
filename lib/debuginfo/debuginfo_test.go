package debuginfo

import (
	"bytes"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	t.Setenv("PRIVATE_TOKEN", "very-secret")

	var out bytes.Buffer
	Print(&out, Collect())
	text := out.String()
	lower := strings.ToLower(text)

	for _, title := range []string{"runtime", "system", "environment", "packages", "go"} {
		require.Contains(t, lower, title)
	}
	require.Contains(t, text, "PRIVATE_TOKEN")
	require.NotContains(t, text, "very-secret")
}

func TestGetVersion(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v9.9.9"
	require.Equal(t, "v9.9.9", GetVersion())
	Version = ""
	require.NotEmpty(t, GetVersion())
}

func TestPackagesWithoutBuildInfo(t *testing.T) {
	for _, info := range []*debug.BuildInfo{nil, {}} {
		section := buildInfoSection(info)
		require.Equal(t, []Entry{{"(unavailable)", ""}}, section.Entries)

		var out bytes.Buffer
		Print(&out, []Section{section})
		require.Contains(t, out.String(), "Packages")
		require.Contains(t, out.String(), "(unavailable)")
	}

	section := buildInfoSection(&debug.BuildInfo{Deps: []*debug.Module{
		{Path: "github.com/b/b", Version: "v1.0.0"},
		{Path: "github.com/a/a", Version: "v0.2.0"},
	}})
	require.Equal(t, []Entry{
		{"github.com/a/a", "v0.2.0"},
		{"github.com/b/b", "v1.0.0"},
	}, section.Entries)
}
