package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule = "pkt.systems/glimmer"
	product       = "glimmer"
)

// buildVersion is set via -ldflags "-X pkt.systems/glimmer/internal/version.buildVersion=...".
var buildVersion = ""

// Current returns the best available version string (without dirty suffix).
func Current() string {
	return trimDirty(full())
}

// CurrentWithDirty returns the best available version string, keeping the
// +dirty suffix of a modified checkout.
func CurrentWithDirty() string {
	return full()
}

// Module returns the module path from build info when available.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// UserAgent identifies glimmer in outgoing HTTP requests.
func UserAgent() string {
	return product + "/" + Current() + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

func full() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "v0.0.0-unknown"
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return v
	}
	if v := pseudoFromBuildInfo(info); v != "" {
		return v
	}
	return "v0.0.0-unknown"
}

func trimDirty(v string) string {
	return strings.TrimSuffix(v, "+dirty")
}

// pseudoFromBuildInfo derives a pseudo-version from VCS stamps.
func pseudoFromBuildInfo(info *debug.BuildInfo) string {
	if info == nil {
		return ""
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	revision := settings["vcs.revision"]
	stamp, err := time.Parse(time.RFC3339, settings["vcs.time"])
	if revision == "" || err != nil {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	ver := "v0.0.0-" + stamp.UTC().Format("20060102150405") + "-" + revision
	if settings["vcs.modified"] == "true" {
		ver += "+dirty"
	}
	return ver
}
