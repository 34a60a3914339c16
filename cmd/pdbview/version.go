package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jtang613/pdbview/internal/config"
	"github.com/jtang613/pdbview/internal/output"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "0.1.0-dev"
	commit  = ""
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pdbview version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			name := color.New(color.FgCyan, color.Bold)
			if !output.ColorEnabled(config.ColorAuto, asFile(out)) {
				name.DisableColor()
			}
			fmt.Fprintf(out, "%s %s\n", name.Sprint("pdbview"), version)
			if rev := revision(); rev != "" {
				fmt.Fprintf(out, "commit: %s\n", rev)
			}
			fmt.Fprintf(out, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

// revision prefers the linker-provided commit over the VCS stamp.
func revision() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return ""
}
