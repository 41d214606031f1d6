// Package version reports build metadata injected through -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders "parley VERSION (commit=..., date=..., go=...)". When no
// version was injected, the module version from the build info is used.
func String() string {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return fmt.Sprintf("parley %s (commit=%s, date=%s, go=%s)", v, Commit, Date, runtime.Version())
}
