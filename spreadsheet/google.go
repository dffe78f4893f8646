package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/ordinario/contahub-app-sheets/report"
)

const mimeType = "application/vnd.google-apps.spreadsheet"

func findSpreadsheet(ctx context.Context, gdrive *drive.Service, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("missing spreadsheet name")
	}

	q := fmt.Sprintf("name = '%v' and mimeType = '%v' and trashed = false", escape(title), mimeType)

	files, err := gdrive.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search for spreadsheet '%v' (%w)", title, err)
	}

	for _, f := range files.Files {
		if f.Name == title {
			return f.Id, nil
		}
	}

	return "", fmt.Errorf("spreadsheet '%v' not found", title)
}

func getSpreadsheet(ctx context.Context, google *sheets.Service, id string) (*sheets.Spreadsheet, error) {
	spreadsheet, err := google.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spreadsheet (%w)", err)
	}

	return spreadsheet, nil
}

func getSheet(spreadsheet *sheets.Spreadsheet, name string) (*sheets.Sheet, error) {
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && normalise(sheet.Properties.Title) == normalise(name) {
			return sheet, nil
		}
	}

	return nil, fmt.Errorf("unable to identify worksheet '%s'", name)
}

func appendRows(ctx context.Context, google *sheets.Service, id string, worksheet string, rows []report.Row) error {
	values := sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         make([][]interface{}, len(rows)),
	}

	for i, row := range rows {
		values.Values[i] = []interface{}(row)
	}

	if _, err := google.Spreadsheets.Values.Append(id, a1(worksheet)+"!A1", &values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do(); err != nil {
		return err
	}

	return nil
}

// countRows returns the number of rows in the worksheet data range.
func countRows(ctx context.Context, google *sheets.Service, id string, worksheet string) (int, error) {
	response, err := google.Spreadsheets.Values.Get(id, a1(worksheet)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("unable to retrieve data from worksheet (%w)", err)
	}

	return len(response.Values), nil
}

// a1 quotes a worksheet title for use in A1 notation.
func a1(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func escape(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

func normalise(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
