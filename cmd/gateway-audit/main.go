// Command gateway-audit views and analyzes gateway audit log files.
//
// Audit files are created by running the gateway with audit_log_path set
// (or the -audit flag). Every validator decision, backend forward and
// command request is recorded as one CBOR event.
//
// Usage:
//
//	gateway-audit <command> [flags] <file.audit>
//
// Commands:
//
//	view     View audit file in human-readable format
//	export   Export audit file to JSONL or CSV format
//	stats    Show statistics about the audit file
//
// Examples:
//
//	# View all events
//	gateway-audit view gateway.audit
//
//	# View only rejected messages
//	gateway-audit view -rejected gateway.audit
//
//	# View one device's validation events
//	gateway-audit view -kind validation -device sensor_001 gateway.audit
//
//	# Export to JSONL
//	gateway-audit export -format jsonl gateway.audit
//
//	# Show statistics
//	gateway-audit stats gateway.audit
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/secureiot/gateway-go/cmd/gateway-audit/commands"
	"github.com/secureiot/gateway-go/pkg/log"
)

const usage = `gateway-audit - SecureIoT Gateway Audit Log Analyzer

Usage:
  gateway-audit <command> [flags] <file.audit>

Commands:
  view     View audit file in human-readable format
  export   Export audit file to JSONL or CSV format
  stats    Show statistics about the audit file

Use "gateway-audit <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `gateway-audit view - View audit file in human-readable format

Usage:
  gateway-audit view [flags] <file.audit>

Flags:
`)
		fs.PrintDefaults()
	}

	kind := fs.String("kind", "", "Filter by kind (validation, forward, command, connection, error)")
	device := fs.String("device", "", "Filter by device ID")
	message := fs.String("message", "", "Filter by message ID")
	rejected := fs.Bool("rejected", false, "Show only rejected validation events")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: audit file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter := log.Filter{
		DeviceID:     *device,
		MessageID:    *message,
		RejectedOnly: *rejected,
	}
	if *kind != "" {
		k, err := commands.ParseKindFlag(*kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Kind = &k
	}

	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `gateway-audit export - Export audit file to JSONL or CSV format

Usage:
  gateway-audit export [flags] <file.audit>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: audit file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `gateway-audit stats - Show statistics about the audit file

Usage:
  gateway-audit stats <file.audit>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: audit file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
