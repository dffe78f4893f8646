package spreadsheet

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ordinario/contahub-app-sheets/log"
	"github.com/ordinario/contahub-app-sheets/report"
)

const (
	SHEETS = "https://www.googleapis.com/auth/spreadsheets"
	DRIVE  = "https://www.googleapis.com/auth/drive"
)

const DefaultTimeout = 60 * time.Second

// Config identifies the target spreadsheet and the service account used to access it.
// SpreadsheetID takes precedence over Spreadsheet, which is looked up by title on Google
// Drive. The endpoints are only overridden when testing.
type Config struct {
	Credentials    []byte
	Spreadsheet    string
	SpreadsheetID  string
	Timeout        time.Duration
	SheetsEndpoint string
	DriveEndpoint  string
}

// Range is the 1-based inclusive range of worksheet rows written by Publish.
type Range struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.StartRow, r.EndRow)
}

// PublishError is a failure in one of the publish steps (credentials, open, worksheet,
// append or count).
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("error publishing to Google Sheets: %v (%v)", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

type Publisher struct {
	config Config
}

func NewPublisher(config Config) *Publisher {
	return &Publisher{
		config: config,
	}
}

// Publish appends the rows to the named worksheet and returns the rows written. Publishing
// no rows is a no-op that returns a nil Range without contacting Google.
func (p *Publisher) Publish(ctx context.Context, worksheet string, rows []report.Row) (*Range, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	google, spreadsheet, err := p.open(ctx)
	if err != nil {
		return nil, err
	}

	sheet, err := getSheet(spreadsheet, worksheet)
	if err != nil {
		return nil, &PublishError{Op: "worksheet", Err: err}
	}

	title := sheet.Properties.Title

	if err := appendRows(ctx, google, spreadsheet.SpreadsheetId, title, rows); err != nil {
		return nil, &PublishError{Op: "append", Err: err}
	}

	total, err := countRows(ctx, google, spreadsheet.SpreadsheetId, title)
	if err != nil {
		return nil, &PublishError{Op: "count", Err: err}
	}

	r := Range{
		StartRow: total - len(rows) + 1,
		EndRow:   total,
	}

	log.Infof("%-10v appended %d rows to worksheet '%v' (rows %v)", worksheet, len(rows), title, r)

	return &r, nil
}

// Worksheets returns the titles of the worksheets in the spreadsheet.
func (p *Publisher) Worksheets(ctx context.Context) ([]string, error) {
	_, spreadsheet, err := p.open(ctx)
	if err != nil {
		return nil, err
	}

	titles := []string{}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil {
			titles = append(titles, sheet.Properties.Title)
		}
	}

	return titles, nil
}

func (p *Publisher) open(ctx context.Context) (*sheets.Service, *sheets.Spreadsheet, error) {
	client, err := p.authorise(ctx)
	if err != nil {
		return nil, nil, &PublishError{Op: "credentials", Err: err}
	}

	google, err := p.sheets(ctx, client)
	if err != nil {
		return nil, nil, &PublishError{Op: "open", Err: err}
	}

	spreadsheetId, err := p.spreadsheetID(ctx, client)
	if err != nil {
		return nil, nil, &PublishError{Op: "open", Err: err}
	}

	spreadsheet, err := getSpreadsheet(ctx, google, spreadsheetId)
	if err != nil {
		return nil, nil, &PublishError{Op: "open", Err: err}
	}

	return google, spreadsheet, nil
}

// authorise returns an HTTP client authenticated with the service account credentials.
func (p *Publisher) authorise(ctx context.Context) (*http.Client, error) {
	if len(p.config.Credentials) == 0 {
		return nil, fmt.Errorf("missing service account credentials")
	}

	config, err := google.JWTConfigFromJSON(p.config.Credentials, SHEETS, DRIVE)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials (%w)", err)
	}

	timeout := p.config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := config.Client(context.WithoutCancel(ctx))
	client.Timeout = timeout

	return client, nil
}

func (p *Publisher) sheets(ctx context.Context, client *http.Client) (*sheets.Service, error) {
	options := []option.ClientOption{option.WithHTTPClient(client)}
	if p.config.SheetsEndpoint != "" {
		options = append(options, option.WithEndpoint(p.config.SheetsEndpoint))
	}

	google, err := sheets.NewService(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to create new Sheets client (%w)", err)
	}

	return google, nil
}

func (p *Publisher) spreadsheetID(ctx context.Context, client *http.Client) (string, error) {
	if p.config.SpreadsheetID != "" {
		return p.config.SpreadsheetID, nil
	}

	options := []option.ClientOption{option.WithHTTPClient(client)}
	if p.config.DriveEndpoint != "" {
		options = append(options, option.WithEndpoint(p.config.DriveEndpoint))
	}

	gdrive, err := drive.NewService(ctx, options...)
	if err != nil {
		return "", fmt.Errorf("unable to create new Drive client (%w)", err)
	}

	return findSpreadsheet(ctx, gdrive, p.config.Spreadsheet)
}
