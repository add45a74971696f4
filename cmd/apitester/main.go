package main

import (
	"fmt"
	"os"

	"github.com/openbank/apitester/pkg/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			serveCmd()
			return
		case "run":
			runCmd()
			return
		case "version":
			fmt.Printf("apitester %s (%s) built %s\n", version.Version, version.Commit, version.Date)
			return
		case "help":
			printHelp()
			return
		}
	}
	printHelp()
	os.Exit(2)
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `apitester - test harness for Open Bank Project compatible APIs

Usage:
  apitester <command> [flags]

Commands:
  serve     Start the JSON boundary server
  run       Run all operations of one test configuration headlessly
  version   Print version information
  help      Show this help message

Run 'apitester <command> --help' for command flags.
`)
}
