package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	jarInfra "github.com/fd1az/feejar-monitor/business/jar/infra"
)

var (
	checkOutput    string
	checkRecipient string
	checkStrict    bool
)

var errUnprofitable = errors.New("claim is not profitable")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the jar once and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "text", "output format: text, json or yaml")
	checkCmd.Flags().StringVar(&checkRecipient, "claim-tx", "", "also build the release transaction for this recipient (simulation mode only)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "exit non-zero when the claim is not profitable")
}

func runCheck(ctx context.Context, out io.Writer) error {
	reporter, err := jarInfra.NewConsoleReporterTo(out, checkOutput)
	if err != nil {
		return err
	}

	e, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	if err := e.start(ctx); err != nil {
		return err
	}

	svc := e.jarService()
	ev, err := svc.Refresh(ctx)
	if err != nil {
		reporter.ReportError(ctx, err)
		return err
	}
	reporter.Report(ctx, ev)

	if checkRecipient != "" {
		tx, err := svc.BuildClaim(ctx, checkRecipient)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tx); err != nil {
			return err
		}
	}

	if checkStrict && !ev.Formatted.IsProfitable {
		return errUnprofitable
	}
	return nil
}
