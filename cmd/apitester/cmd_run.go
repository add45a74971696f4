package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/openbank/apitester/internal/report"
	"github.com/openbank/apitester/internal/runner"
)

func runCmd() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to a config YAML file")
	profileFlag := fs.Int64("profile", 0, "Test configuration id to run")
	ownerFlag := fs.String("owner", "", "Owner of the test configuration")
	reportFlag := fs.String("report", "", "Write an xlsx report to this path")
	var auth authFlags
	fs.StringVar(&auth.username, "username", "", "DirectLogin/GatewayLogin username")
	fs.StringVar(&auth.password, "password", "", "DirectLogin password")
	fs.StringVar(&auth.consumerKey, "consumer-key", "", "DirectLogin consumer key")
	fs.StringVar(&auth.gatewaySecret, "gateway-secret", "", "GatewayLogin shared secret")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: apitester run --profile <id> --owner <user> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Run every saved operation of one test configuration, in listing\n")
		fmt.Fprintf(os.Stderr, "order, and print per-operation pass/fail.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  apitester run --profile 1 --owner simon --username simon --password pw --consumer-key ck\n")
		fmt.Fprintf(os.Stderr, "  apitester run --profile 1 --owner simon --report results.xlsx\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	if *profileFlag == 0 || *ownerFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: --profile and --owner are required\n\n")
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, *configFlag, auth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	calls, messages := a.service.ListCalls(ctx, *profileFlag, *ownerFlag)
	for _, msg := range messages {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	if len(calls) == 0 {
		os.Exit(1)
	}

	start := time.Now()
	results := make([]runner.Result, 0, len(calls))
	passed := 0
	for _, call := range calls {
		if ctx.Err() != nil {
			break
		}
		res := a.runner.Run(ctx, runner.Request{
			ProfileID:   call.ProfileID,
			Owner:       *ownerFlag,
			OperationID: call.OperationID,
			ReplicaID:   call.ReplicaID,
			Method:      call.Method,
		})
		results = append(results, res)

		mark := "FAIL"
		if res.Success {
			mark = "ok"
			passed++
		}
		fmt.Printf("%-4s %-6s %-60s %d (%dms)\n",
			mark, strings.ToUpper(res.Method), res.URLPath, res.StatusCode, res.ExecutionTime)
		for _, msg := range res.Messages {
			fmt.Printf("     %s\n", msg)
		}
		if res.AuthExpired {
			fmt.Fprintf(os.Stderr, "Error: session expired, log in again\n")
			break
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("\n%d/%d passed in %s\n", passed, len(results), elapsed.Round(time.Millisecond))

	if *reportFlag != "" {
		if err := report.WriteXLSX(*reportFlag, results, elapsed); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *reportFlag)
	}

	if passed != len(results) {
		os.Exit(1)
	}
}
