package commands

import (
	"os"

	"golang.org/x/term"
)

// AppContext carries build metadata and presentation settings shared by
// every subcommand. main constructs it once and subcommands receive it
// rather than reaching for package-level globals.
type AppContext struct {
	Version string
	Commit  string
	Date    string
}

// StyledOutput reports whether pterm's styled widgets (spinners, colored
// tables) should render, or whether output should stay plain because
// stdout isn't a terminal — e.g. piped into a log file or CI.
func StyledOutput() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
