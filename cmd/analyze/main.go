// Command analyze prints a wallet's reconstructed round trips as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"degenjudge/internal/app"
	"degenjudge/internal/config"
	"degenjudge/internal/domain"
	"degenjudge/internal/logging"
	"degenjudge/internal/reporting"
	"degenjudge/internal/verdict"
)

type output struct {
	Address string              `json:"address"`
	Trades  []domain.TokenTrade `json:"trades"`
	Summary *verdict.Summary    `json:"summary,omitempty"`
	Verdict *verdict.Verdict    `json:"verdict,omitempty"`
}

func main() {
	configPath := flag.String("config", os.Getenv("DEGENJUDGE_CONFIG"), "Path to YAML config file")
	address := flag.String("wallet", "", "Wallet address to analyze (or first argument)")
	withVerdict := flag.Bool("verdict", false, "Ask the judge for a verdict")
	limit := flag.Int("limit", 0, "Signatures to fetch (0 uses config)")
	format := flag.String("format", "json", "Output format: json, markdown or csv")
	pretty := flag.Bool("pretty", true, "Indent JSON output")
	flag.Parse()

	switch *format {
	case "json", "markdown", "csv":
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(2)
	}

	if *address == "" {
		*address = flag.Arg(0)
	}
	if *address == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze [flags] <wallet>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 {
		cfg.Analysis.SignatureLimit = *limit
	}

	// Logs go to stderr; stdout carries only the report.
	logger := logging.NewWithOutput(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}
	defer a.Close()

	trades, err := a.Orchestrator.AnalyzeWallet(ctx, *address)
	if err != nil {
		a.Close()
		logger.WithError(err).Fatal("Analysis failed")
	}

	if trades == nil {
		trades = []domain.TokenTrade{}
	}
	var judged *verdict.Verdict
	if *withVerdict {
		v := verdict.Unavailable()
		if a.Judge != nil {
			v = a.Judge.Generate(ctx, trades)
		}
		judged = &v
	}

	if err := write(*format, *pretty, *address, trades, judged); err != nil {
		logger.WithError(err).Fatal("Failed to write output")
	}
}

func write(format string, pretty bool, address string, trades []domain.TokenTrade, judged *verdict.Verdict) error {
	report := reporting.New(address, trades, time.Now())
	if judged != nil {
		report.WithVerdict(*judged)
	}

	switch format {
	case "markdown":
		_, err := fmt.Fprint(os.Stdout, reporting.RenderMarkdown(report))
		return err
	case "csv":
		return reporting.WriteCSV(os.Stdout, report)
	}

	out := output{Address: address, Trades: trades}
	if judged != nil {
		out.Summary = &report.Summary
		out.Verdict = judged
	}
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
