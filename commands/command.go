package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ordinario/contahub-app-sheets/config"
	"github.com/ordinario/contahub-app-sheets/contahub"
	"github.com/ordinario/contahub-app-sheets/httpd"
	"github.com/ordinario/contahub-app-sheets/log"
	"github.com/ordinario/contahub-app-sheets/pipeline"
	"github.com/ordinario/contahub-app-sheets/spreadsheet"
)

const APP = "contahub-app-sheets"

type Options struct {
	Config string
	Debug  bool
}

// NewRootCmd returns the contahub-app-sheets command tree.
func NewRootCmd() *cobra.Command {
	options := Options{
		Config: config.DefaultConfigFile,
		Debug:  false,
	}

	root := &cobra.Command{
		Use:           APP,
		Short:         "Publishes ContaHub sales reports to Google Sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.Init(options.Debug)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
	}

	root.PersistentFlags().StringVar(&options.Config, "config", options.Config, "TOML configuration file")
	root.PersistentFlags().BoolVar(&options.Debug, "debug", options.Debug, "Enables debug logging")

	root.AddCommand(
		ServeCmd(&options),
		RunCmd(&options),
		DebugLoginCmd(&options),
		CheckCmd(&options),
		VersionCmd(),
	)

	return root
}

// configure loads and validates the configuration.
func configure(options *Options) (*config.Config, error) {
	conf, err := config.Load(options.Config)
	if err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration (%w)", err)
	}

	log.Debugf("%-10v %v", "config", conf.Credentials())

	return conf, nil
}

func newPipeline(conf *config.Config) (*pipeline.Pipeline, *contahub.Authenticator, error) {
	dates, err := conf.DateRange()
	if err != nil {
		return nil, nil, err
	}

	publisher, err := conf.Publisher()
	if err != nil {
		return nil, nil, err
	}

	authenticator := contahub.NewAuthenticator(conf.Authenticator())

	p := pipeline.Pipeline{
		Authenticator: authenticator,
		Publisher:     spreadsheet.NewPublisher(publisher),
		Credentials:   conf.Credentials(),
		Dates:         dates,
		Modules:       conf.Report.Modules,
		Worksheets:    conf.Report.Worksheets,
	}

	return &p, authenticator, nil
}

func info(conf *config.Config) httpd.Info {
	proxies := 0
	if conf.ContaHub.ProxyEnabled {
		proxies = len(conf.ContaHub.Proxies)
	}

	return httpd.Info{
		Version:           VERSION,
		Environment:       conf.Sentry.Environment,
		Email:             conf.ContaHub.Email,
		Password:          conf.ContaHub.Password,
		Spreadsheet:       conf.Sheets.Spreadsheet,
		LoginURL:          conf.ContaHub.LoginURL,
		ProxyEnabled:      conf.ContaHub.ProxyEnabled,
		Proxies:           proxies,
		CredentialsLoaded: conf.CredentialsLoaded(),
	}
}
