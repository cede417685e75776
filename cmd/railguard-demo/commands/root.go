package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command tree; subcommands are built as
// siblings here rather than registering themselves via package-init side
// effects.
func NewRootCommand(ctx *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "railguard-demo",
		Short: "Exercises the railguard fault-isolation runtime against a synthetic dependency",
		Long: `railguard-demo wires a guard rail, a thread-pool executor, the telemetry
server and the stats reporter together and drives them against a synthetic
flaky dependency, so the core runtime can be seen working end to end.`,
		Run: func(cmd *cobra.Command, args []string) {
			versionFlag, _ := cmd.Flags().GetBool("version")
			if versionFlag {
				fmt.Printf("railguard-demo version %s\n", ctx.Version)
				fmt.Printf("commit: %s\n", ctx.Commit)
				fmt.Printf("built:  %s\n", ctx.Date)
				return
			}
			_ = cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolP("version", "V", false, "Show version information")

	cmd.AddCommand(newRunCommand(ctx))
	cmd.AddCommand(newBreakerDemoCommand(ctx))
	cmd.AddCommand(newTimeoutDemoCommand(ctx))
	return cmd
}
