// Package config loads the contahub-app-sheets configuration from a TOML file, with
// environment variable overrides for the values usually supplied by the hosting platform.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ordinario/contahub-app-sheets/contahub"
	"github.com/ordinario/contahub-app-sheets/report"
	"github.com/ordinario/contahub-app-sheets/spreadsheet"
)

type Config struct {
	Server   Server   `toml:"server"`
	ContaHub ContaHub `toml:"contahub"`
	Sheets   Sheets   `toml:"sheets"`
	Report   Report   `toml:"report"`
	Sentry   Sentry   `toml:"sentry"`
}

type Server struct {
	Port   int    `toml:"port"`
	APIKey string `toml:"api_key"`
}

type ContaHub struct {
	Email        string   `toml:"email"`
	Password     string   `toml:"password"`
	HomeURL      string   `toml:"home_url"`
	LoginURL     string   `toml:"login_url"`
	QueryURL     string   `toml:"query_url"`
	ProbeURL     string   `toml:"probe_url"`
	Warmup       string   `toml:"warmup"`
	ProxyEnabled bool     `toml:"proxy_enabled"`
	Proxies      []string `toml:"proxies"`
	ProbeTimeout string   `toml:"probe_timeout"`
}

type Sheets struct {
	Spreadsheet     string `toml:"spreadsheet"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	Credentials     string `toml:"credentials"`
	CredentialsJSON string `toml:"-"`
	Timeout         string `toml:"timeout"`
}

type Report struct {
	StartDate  string            `toml:"start_date"`
	EndDate    string            `toml:"end_date"`
	Modules    []string          `toml:"modules"`
	Worksheets map[string]string `toml:"worksheets"`
}

type Sentry struct {
	DSN         string `toml:"dsn"`
	Environment string `toml:"environment"`
}

// DefaultConfig returns the configuration used when neither the TOML file nor the environment
// supply a value.
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Port: 5000,
		},
		ContaHub: ContaHub{
			HomeURL:      contahub.DefaultEndpoints.Home,
			LoginURL:     contahub.DefaultEndpoints.Login,
			QueryURL:     contahub.DefaultEndpoints.Query,
			ProbeURL:     contahub.DefaultEndpoints.Probe,
			Warmup:       "2s",
			ProxyEnabled: false,
			Proxies:      append([]string{}, contahub.DefaultProxies...),
			ProbeTimeout: "5s",
		},
		Sheets: Sheets{
			Spreadsheet: "Base_de_dados_CA_ordinario",
			Timeout:     "60s",
		},
		Report: Report{
			StartDate:  report.DefaultStartDate,
			EndDate:    report.DefaultEndDate,
			Modules:    []string{"analitico"},
			Worksheets: map[string]string{},
		},
		Sentry: Sentry{
			Environment: "production",
		},
	}
}

// Load reads the TOML configuration file (if it exists) over the defaults and then applies the
// environment variable overrides. A missing file is not an error.
func Load(file string) (*Config, error) {
	c := DefaultConfig()

	if file != "" {
		bytes, err := os.ReadFile(file)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %v (%w)", file, err)
		} else if err == nil {
			if err := toml.Unmarshal(bytes, c); err != nil {
				return nil, fmt.Errorf("invalid configuration file %v (%w)", file, err)
			}
		}
	}

	if err := c.env(os.LookupEnv); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) env(lookup func(string) (string, bool)) error {
	str := func(key string, v *string) {
		if s, ok := lookup(key); ok && s != "" {
			*v = s
		}
	}

	str("API_KEY", &c.Server.APIKey)
	str("CONTAHUB_EMAIL", &c.ContaHub.Email)
	str("CONTAHUB_SENHA", &c.ContaHub.Password)
	str("SHEET_NAME", &c.Sheets.Spreadsheet)
	str("SPREADSHEET_ID", &c.Sheets.SpreadsheetID)
	str("GOOGLE_CREDENTIALS", &c.Sheets.CredentialsJSON)
	str("GOOGLE_CREDENTIALS_FILE", &c.Sheets.Credentials)
	str("REPORT_START_DATE", &c.Report.StartDate)
	str("REPORT_END_DATE", &c.Report.EndDate)
	str("SENTRY_DSN", &c.Sentry.DSN)
	str("SENTRY_ENVIRONMENT", &c.Sentry.Environment)

	if s, ok := lookup("PORT"); ok && s != "" {
		port, err := strconv.Atoi(s)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT '%v'", s)
		}
		c.Server.Port = port
	}

	if s, ok := lookup("PROXY_ENABLED"); ok && s != "" {
		enabled, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid PROXY_ENABLED '%v'", s)
		}
		c.ContaHub.ProxyEnabled = enabled
	}

	if s, ok := lookup("REPORT_MODULES"); ok && s != "" {
		modules := []string{}
		for _, m := range strings.Split(s, ",") {
			if m = strings.TrimSpace(m); m != "" {
				modules = append(modules, m)
			}
		}
		c.Report.Modules = modules
	}

	return nil
}

// Validate checks the values required to run the pipeline.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ContaHub.Email) == "" {
		return fmt.Errorf("missing ContaHub email (CONTAHUB_EMAIL)")
	}

	if c.ContaHub.Password == "" {
		return fmt.Errorf("missing ContaHub password (CONTAHUB_SENHA)")
	}

	if strings.TrimSpace(c.Sheets.Spreadsheet) == "" && strings.TrimSpace(c.Sheets.SpreadsheetID) == "" {
		return fmt.Errorf("missing spreadsheet name or ID (SHEET_NAME, SPREADSHEET_ID)")
	}

	if _, err := c.DateRange(); err != nil {
		return err
	}

	if len(c.Report.Modules) == 0 {
		return fmt.Errorf("no report modules configured")
	}

	for _, m := range c.Report.Modules {
		if _, err := report.Lookup(m); err != nil {
			return err
		}
	}

	for _, v := range []struct {
		key   string
		value string
	}{
		{"contahub.warmup", c.ContaHub.Warmup},
		{"contahub.probe_timeout", c.ContaHub.ProbeTimeout},
		{"sheets.timeout", c.Sheets.Timeout},
	} {
		if _, err := duration(v.value); err != nil {
			return fmt.Errorf("invalid %v '%v' (%w)", v.key, v.value, err)
		}
	}

	return nil
}

func (c *Config) DateRange() (report.DateRange, error) {
	return report.NewDateRange(c.Report.StartDate, c.Report.EndDate)
}

func (c *Config) Credentials() contahub.Credentials {
	return contahub.Credentials{
		Email:    strings.TrimSpace(c.ContaHub.Email),
		Password: c.ContaHub.Password,
	}
}

func (c *Config) Authenticator() contahub.Config {
	warmup, _ := duration(c.ContaHub.Warmup)
	probe, _ := duration(c.ContaHub.ProbeTimeout)

	return contahub.Config{
		Endpoints: contahub.Endpoints{
			Home:  c.ContaHub.HomeURL,
			Login: c.ContaHub.LoginURL,
			Query: c.ContaHub.QueryURL,
			Probe: c.ContaHub.ProbeURL,
		},
		Warmup:       warmup,
		ProxyEnabled: c.ContaHub.ProxyEnabled,
		Proxies:      c.ContaHub.Proxies,
		ProbeTimeout: probe,
	}
}

// Publisher returns the spreadsheet configuration. Inline JSON credentials (GOOGLE_CREDENTIALS)
// take precedence over the credentials file.
func (c *Config) Publisher() (spreadsheet.Config, error) {
	timeout, _ := duration(c.Sheets.Timeout)

	config := spreadsheet.Config{
		Spreadsheet:   strings.TrimSpace(c.Sheets.Spreadsheet),
		SpreadsheetID: strings.TrimSpace(c.Sheets.SpreadsheetID),
		Timeout:       timeout,
	}

	switch {
	case strings.TrimSpace(c.Sheets.CredentialsJSON) != "":
		config.Credentials = []byte(c.Sheets.CredentialsJSON)

	case c.Sheets.Credentials != "":
		bytes, err := os.ReadFile(c.Sheets.Credentials)
		if err != nil {
			return config, fmt.Errorf("unable to read Google credentials (%w)", err)
		}
		config.Credentials = bytes
	}

	return config, nil
}

// CredentialsLoaded returns true if service account credentials have been configured.
func (c *Config) CredentialsLoaded() bool {
	s := strings.TrimSpace(c.Sheets.CredentialsJSON)

	return (s != "" && s != "{}") || c.Sheets.Credentials != ""
}

func duration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	return time.ParseDuration(strings.TrimSpace(s))
}
