package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// ModulePath is the import path of this module.
const ModulePath = "github.com/kbukum/httpapi"

// ProductName is the product token of the default User-Agent.
const ProductName = "httpapi"

var (
	// These variables are set at build time using -ldflags
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info represents version information.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// GetVersionInfo returns the version of this module. When Version was not
// set with -ldflags, the version recorded for the module in the binary's
// build info is used, so importing programs report the release they
// depend on.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}

	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if buildInfo, ok := readBuildInfo(); ok {
		info.GoVersion = buildInfo.GoVersion
		if info.Version == "dev" {
			info.Version = moduleVersion(buildInfo)
		}
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = setting.Value
				}
			case "vcs.modified":
				info.IsDirty = setting.Value == "true"
			case "vcs.time":
				if info.BuildTime == "" {
					if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
						info.BuildDate = t
						info.BuildTime = setting.Value
					}
				}
			}
		}
	}

	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	info.IsRelease = info.Version != "dev" && !info.IsDirty &&
		!strings.Contains(info.Version, "dirty") && !strings.Contains(info.Version, "-0.")
	return info
}

// moduleVersion finds this module's version in the build info: as the main
// module, or as a dependency of it.
func moduleVersion(bi *debug.BuildInfo) string {
	if bi.Main.Path == ModulePath && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	for _, dep := range bi.Deps {
		if dep.Path != ModulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return strings.TrimPrefix(dep.Replace.Version, "v")
		}
		if dep.Version != "" {
			return strings.TrimPrefix(dep.Version, "v")
		}
	}
	return "dev"
}

// GetShortVersion returns the version with the commit appended when known.
func GetShortVersion() string {
	info := GetVersionInfo()
	if info.GitCommit != "" && !info.IsRelease {
		if info.IsDirty {
			return fmt.Sprintf("%s-%s-dirty", info.Version, info.GitCommit)
		}
		return fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
	}
	return info.Version
}

// UserAgent returns the default User-Agent product token, "httpapi/<version>".
func UserAgent() string {
	return ProductName + "/" + GetVersionInfo().Version
}
