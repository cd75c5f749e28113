package commands

import (
	"context"
	"flag"
	"fmt"
	"log"
)

const APP = "sheetrollup"

// Options holds the application-level flags shared by all commands.
type Options struct {
	Config string
	Debug  bool
}

// Command is the interface implemented by each CLI command.
type Command interface {
	Name() string
	Description() string
	Usage() string
	Help()
	FlagSet() *flag.FlagSet
	Execute(ctx context.Context, options *Options) error
}

func helpOptions(flagset *flag.FlagSet) {
	fmt.Println("  Options:")
	fmt.Println()

	flagset.VisitAll(func(f *flag.Flag) {
		fmt.Printf("    --%-14s %s\n", f.Name, f.Usage)
	})
}

func debugf(format string, args ...any) {
	log.Printf("%-5s %s", "DEBUG", fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	log.Printf("%-5s %s", "INFO", fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	log.Printf("%-5s %s", "WARN", fmt.Sprintf(format, args...))
}

func errorf(format string, args ...any) {
	log.Printf("%-5s %s", "ERROR", fmt.Sprintf(format, args...))
}
