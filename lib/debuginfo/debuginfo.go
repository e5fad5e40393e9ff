package debuginfo

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Version is set at build time with
// -ldflags "-X eventbrite-cetd/lib/debuginfo.Version=v1.2.3".
var Version = ""

// GetVersion returns Version, the module version recorded by `go install`
// or "dev".
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}

type Entry struct {
	Name  string
	Value string
}

type Section struct {
	Title   string
	Entries []Entry
}

// envVars are reported in the environment section, secrets only report
// whether they are set.
var envVars = []struct {
	name   string
	secret bool
}{
	{name: "PRIVATE_TOKEN", secret: true},
	{name: "HTTPS_PROXY"},
	{name: "HTTP_PROXY"},
	{name: "NO_PROXY"},
	{name: "GODEBUG"},
}

// Collect gathers runtime, system, environment and package information.
// System values that cannot be read are reported as "unknown".
func Collect() []Section {
	return []Section{
		runtimeSection(),
		systemSection(),
		environmentSection(),
		packagesSection(),
	}
}

func runtimeSection() Section {
	return Section{
		Title: "Runtime",
		Entries: []Entry{
			{"Version", GetVersion()},
			{"Go", runtime.Version()},
			{"Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)},
			{"Executable", executable()},
		},
	}
}

func executable() string {
	path, err := os.Executable()
	if err != nil {
		return "unknown"
	}
	return path
}

func systemSection() Section {
	section := Section{Title: "System"}

	if info, err := host.Info(); err == nil {
		section.Entries = append(section.Entries,
			Entry{"OS", fmt.Sprintf("%s %s %s", info.OS, info.Platform, info.PlatformVersion)},
			Entry{"Kernel", fmt.Sprintf("%s (%s)", info.KernelVersion, info.KernelArch)},
		)
	} else {
		section.Entries = append(section.Entries, Entry{"OS", "unknown"})
	}

	cpuModel := "unknown"
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = strings.TrimSpace(infos[0].ModelName)
	}
	section.Entries = append(section.Entries,
		Entry{"CPU", cpuModel},
		Entry{"CPUs", fmt.Sprint(runtime.NumCPU())},
	)

	memory := "unknown"
	if vm, err := mem.VirtualMemory(); err == nil {
		memory = fmt.Sprintf("%d MiB", vm.Total/(1<<20))
	}
	section.Entries = append(section.Entries, Entry{"Memory", memory})
	return section
}

func environmentSection() Section {
	section := Section{Title: "Environment"}
	for _, env := range envVars {
		value, ok := os.LookupEnv(env.name)
		switch {
		case !ok:
			value = "(unset)"
		case env.secret:
			value = "(set)"
		}
		section.Entries = append(section.Entries, Entry{env.name, value})
	}
	return section
}

func packagesSection() Section {
	// nil when the binary was built without module support
	info, _ := debug.ReadBuildInfo()
	return buildInfoSection(info)
}

// buildInfoSection always has at least one row, go-pretty renders nothing
// for a table without rows.
func buildInfoSection(info *debug.BuildInfo) Section {
	section := Section{Title: "Packages"}
	if info == nil || len(info.Deps) == 0 {
		section.Entries = append(section.Entries, Entry{"(unavailable)", ""})
		return section
	}
	deps := append([]*debug.Module(nil), info.Deps...)
	sort.Slice(deps, func(i, j int) bool { return deps[i].Path < deps[j].Path })
	for _, dep := range deps {
		section.Entries = append(section.Entries, Entry{dep.Path, dep.Version})
	}
	return section
}

func Print(w io.Writer, sections []Section) {
	for _, section := range sections {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.SetTitle(section.Title)
		for _, entry := range section.Entries {
			t.AppendRow(table.Row{entry.Name, entry.Value})
		}
		t.Render()
	}
}
