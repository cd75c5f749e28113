package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/sheetrollup/sheetrollup"
)

// VersionCmd is an initialized Version command for the main() command list
var VersionCmd = Version{}

// Version is a CLI command implementation that displays the CLI version information.
type Version struct {
}

func (cmd *Version) FlagSet() *flag.FlagSet {
	return flag.NewFlagSet("version", flag.ExitOnError)
}

// Execute prints the current 'sheetrollup' version
func (cmd *Version) Execute(ctx context.Context, options *Options) error {
	fmt.Printf("%s\n", sheetrollup.VERSION)

	return nil
}

// Returns 'version'
func (cmd *Version) Name() string {
	return "version"
}

// Description returns the 'version' command short form help
func (cmd *Version) Description() string {
	return "Displays the current version"
}

// Usage returns the string describing the additional options for the 'version' command
func (cmd *Version) Usage() string {
	return ""
}

// Help returns the 'version' command long form help
func (cmd *Version) Help() {
	fmt.Println("Displays the sheetrollup version in the format v<major>.<minor>.<build> e.g. v0.4.2")
	fmt.Println()
}
