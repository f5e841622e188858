// Package version holds build information, set with -ldflags:
//
//	go build -ldflags "-X github.com/tenebris-tech/doctoc/version.GitRelease=v1.0.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)

func init() {
	if GitCommit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			GitCommit = s.Value
		case "vcs.time":
			GitCommitDate = s.Value
		}
	}
}
