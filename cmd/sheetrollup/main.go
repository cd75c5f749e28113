package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sheetrollup/sheetrollup/commands"
)

var cli = []commands.Command{
	&commands.RunCmd,
	&commands.WatchCmd,
	&commands.VersionCmd,
}

var options = commands.Options{
	Config: commands.DEFAULT_CONFIG,
	Debug:  false,
}

func main() {
	flag.StringVar(&options.Config, "config", options.Config, "Configuration file path")
	flag.BoolVar(&options.Debug, "debug", options.Debug, "Enable debugging information")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if args[0] == "help" {
		help(args[1:])
		return
	}

	cmd := find(args[0])
	if cmd == nil {
		fmt.Printf("\nInvalid command '%s'\n\n", args[0])
		usage()
		os.Exit(1)
	}

	if err := cmd.FlagSet().Parse(args[1:]); err != nil {
		fmt.Printf("\nError parsing command line: %v\n\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := cmd.Execute(ctx, &options); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func find(name string) commands.Command {
	for _, cmd := range cli {
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

func usage() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] <command> [options]\n", commands.APP)
	fmt.Println()
	fmt.Println("  Commands:")
	fmt.Println()

	for _, cmd := range cli {
		fmt.Printf("    %-8s %s\n", cmd.Name(), cmd.Description())
	}

	fmt.Printf("    %-8s Displays this message. 'help <command>' displays command specific information\n", "help")
	fmt.Println()
}

func help(args []string) {
	if len(args) > 0 {
		if cmd := find(args[0]); cmd != nil {
			cmd.Help()
			return
		}

		fmt.Printf("\nInvalid command '%s'\n\n", args[0])
	}

	usage()
}
