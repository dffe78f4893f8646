package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type Run struct {
	out io.Writer
}

func RunCmd(options *Options) *cobra.Command {
	run := Run{}

	return &cobra.Command{
		Use:   "run",
		Short: "Publishes the configured ContaHub reports to Google Sheets once",
		Long: `Retrieves the configured ContaHub report modules for the configured reporting period,
appends them to the Google Sheets spreadsheet and prints the outcome as JSON.`,
		Example: `  REPORT_START_DATE=2025-05-22 REPORT_END_DATE=2025-05-27 contahub-app-sheets run`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run.out = cmd.OutOrStdout()

			return run.Execute(cmd.Context(), options)
		},
	}
}

func (r *Run) Execute(ctx context.Context, options *Options) error {
	conf, err := configure(options)
	if err != nil {
		return err
	}

	reporting, err := initSentry(conf)
	if err != nil {
		return err
	}
	defer flushSentry()

	p, _, err := newPipeline(conf)
	if err != nil {
		return err
	}

	outcome := (&monitored{pipeline: p, enabled: reporting}).Run(ctx)

	bytes, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, string(bytes))

	if !outcome.Success {
		return fmt.Errorf("%v", outcome.Error)
	}

	return nil
}
