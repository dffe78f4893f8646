package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ordinario/contahub-app-sheets/spreadsheet"
)

type Check struct {
	out io.Writer
}

func CheckCmd(options *Options) *cobra.Command {
	check := Check{}

	return &cobra.Command{
		Use:   "check",
		Short: "Verifies access to the Google Sheets spreadsheet",
		Long: `Opens the configured Google Sheets spreadsheet with the service account credentials and
verifies that it has a worksheet for each of the configured report modules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			check.out = cmd.OutOrStdout()

			return check.Execute(cmd.Context(), options)
		},
	}
}

func (c *Check) Execute(ctx context.Context, options *Options) error {
	conf, err := configure(options)
	if err != nil {
		return err
	}

	p, err := conf.Publisher()
	if err != nil {
		return err
	}

	worksheets, err := spreadsheet.NewPublisher(p).Worksheets(ctx)
	if err != nil {
		return err
	}

	titles := map[string]bool{}
	for _, w := range worksheets {
		titles[strings.ToLower(strings.TrimSpace(w))] = true
	}

	missing := []string{}
	for _, module := range conf.Report.Modules {
		worksheet := module
		if w, ok := conf.Report.Worksheets[module]; ok && strings.TrimSpace(w) != "" {
			worksheet = w
		}

		if titles[strings.ToLower(strings.TrimSpace(worksheet))] {
			fmt.Fprintf(c.out, "  %-10v %v\n", module, worksheet)
		} else {
			fmt.Fprintf(c.out, "  %-10v %v (missing)\n", module, worksheet)
			missing = append(missing, worksheet)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing worksheets: %v", strings.Join(missing, ", "))
	}

	return nil
}
