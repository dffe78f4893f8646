package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ordinario/contahub-app-sheets/config"
	"github.com/ordinario/contahub-app-sheets/contahub"
)

type DebugLogin struct {
	out io.Writer
}

func DebugLoginCmd(options *Options) *cobra.Command {
	debug := DebugLogin{}

	return &cobra.Command{
		Use:   "debug-login",
		Short: "Tries every ContaHub login strategy and reports the result",
		Long: `Tries every ContaHub login strategy in turn (without stopping at the first success) and
checks basic connectivity to the ContaHub home page. Exits with an error if no strategy succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			debug.out = cmd.OutOrStdout()

			return debug.Execute(cmd.Context(), options)
		},
	}
}

func (d *DebugLogin) Execute(ctx context.Context, options *Options) error {
	conf, err := config.Load(options.Config)
	if err != nil {
		return err
	}

	credentials := conf.Credentials()
	if credentials.Email == "" || credentials.Password == "" {
		return fmt.Errorf("missing ContaHub credentials (CONTAHUB_EMAIL, CONTAHUB_SENHA)")
	}

	authenticator := contahub.NewAuthenticator(conf.Authenticator())
	diagnosis, connectivity := authenticator.Diagnose(ctx, credentials)

	success := false
	for _, v := range diagnosis {
		success = success || v.Success
	}

	bytes, err := json.MarshalIndent(struct {
		Success      bool                  `json:"success"`
		LoginURL     string                `json:"login_url"`
		Strategies   []contahub.Diagnosis  `json:"strategies"`
		Connectivity contahub.Connectivity `json:"connectivity"`
	}{
		Success:      success,
		LoginURL:     conf.ContaHub.LoginURL,
		Strategies:   diagnosis,
		Connectivity: connectivity,
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(d.out, string(bytes))

	if !success {
		return fmt.Errorf("all login strategies failed")
	}

	return nil
}
