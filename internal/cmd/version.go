package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/outfmt"
	"github.com/vkcli/vk-cli/internal/update"
)

// version is set at build time via ldflags
var version = "dev"

// newUpdateChecker is replaceable in tests.
var newUpdateChecker = update.NewChecker

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			info := map[string]any{"version": version}
			var res *update.Result
			if check {
				var err error
				res, err = newUpdateChecker().Check(cmd.Context(), version)
				if err != nil {
					// The check is advisory.
					slog.Debug("update check failed", "error", err)
				} else {
					info["update"] = res
				}
			}
			return render(cmd, info, func(*outfmt.Formatter) error {
				printText(cmd, "vk-cli version %s\n", version)
				if res != nil && res.Available {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\nUpdate available: %s -> %s\nDownload: %s\n", res.Current, res.Latest, res.URL)
				}
				return nil
			})
		}),
	}

	cmd.Flags().BoolVar(&check, "check", false, "Also check for a newer release")

	return cmd
}
