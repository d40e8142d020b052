package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set with -ldflags "-X github.com/scholarloop/scholarloop/cmd.version=v1.2.3".
// Without it the module version and VCS stamp from the build info are used.
var version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version, commit and Go toolchain",
	Run: func(cmd *cobra.Command, args []string) {
		info, _ := debug.ReadBuildInfo()
		fmt.Fprintln(cmd.OutOrStdout(), describeBuild(version, info))
	},
}

// describeBuild renders "scholarloop <version> (<commit>[, dirty], <go>)".
func describeBuild(ldVersion string, info *debug.BuildInfo) string {
	v := ldVersion
	if v == "" && info != nil && info.Main.Version != "" {
		v = info.Main.Version
	}
	if v == "" {
		v = "(devel)"
	}
	if info == nil {
		return "scholarloop " + v
	}

	commit, dirty := "unknown commit", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty {
		commit += ", dirty"
	}
	return fmt.Sprintf("scholarloop %s (%s, %s)", v, commit, info.GoVersion)
}
