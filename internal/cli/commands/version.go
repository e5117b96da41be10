package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	if info.Platform == "" {
		info.Platform = runtime.GOOS + "/" + runtime.GOARCH
	}

	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the mstools version, commit and build platform.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// auto stays human readable here; only an explicit mode emits data
			if mode := getConfig().Output; mode == "json" || mode == "yaml" {
				_, err := rendererFor(cmd).Structured(info)
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "mstools v%s\n", info.Version)
			_, _ = fmt.Fprintln(out, "Measurement Set tools for VLBI visibility data")
			_, _ = fmt.Fprintf(out, "commit %s, built %s, %s %s\n", info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return nil
		},
	}
}
