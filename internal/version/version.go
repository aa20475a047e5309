// Package version хранит сведения о сборке, заданные через -ldflags.
package version

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// Значения подставляются через -ldflags "-X .../internal/version.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// BuildInfo - описание сборки.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
}

// Get возвращает сведения о сборке. Если commit не задан при линковке,
// берётся vcs.revision из debug.ReadBuildInfo.
func Get() BuildInfo {
	info := BuildInfo{Version: version, Commit: commit, BuildDate: date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" && s.Value != "" {
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

func (b BuildInfo) String() string {
	return fmt.Sprintf("pharmacy %s (commit %s, built %s)", b.Version, b.Commit, b.BuildDate)
}

// Fields - поля сборки для стартового лога.
func Fields() log.Fields {
	b := Get()
	f := log.Fields{"version": b.Version, "commit": b.Commit, "build_date": b.BuildDate}
	if b.GoVersion != "" {
		f["go_version"] = b.GoVersion
	}
	return f
}
