package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"custos/internal/core"
	ports "custos/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.TableReader = (*Client)(nil)

// NewFromEnv creates a Sheets reader using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default: first sheet of the spreadsheet)
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
	}, nil
}

// newSheetsService initializes a read-only Sheets service from Service
// Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Source names the spreadsheet in user-facing messages.
func (c *Client) Source() string {
	if c.sheetName != "" {
		return c.spreadsheetID + "/" + c.sheetName
	}
	return c.spreadsheetID
}

// ReadTable fetches the whole sheet as unformatted values.
func (c *Client) ReadTable(ctx context.Context) (core.RawTable, error) {
	if c.svc == nil {
		return core.RawTable{}, &core.LoadError{Source: c.Source(), Err: errors.New("sheets service not initialized")}
	}
	sheet, err := c.resolveSheetName(ctx)
	if err != nil {
		return core.RawTable{}, c.wrap(err)
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return core.RawTable{}, c.wrap(fmt.Errorf("read %s: %w", sheet, err))
	}
	table, err := parseValues(resp.Values)
	if err != nil {
		return core.RawTable{}, c.wrap(err)
	}
	table.Source = c.Source()
	return table, nil
}

func (c *Client) resolveSheetName(ctx context.Context) (string, error) {
	if c.sheetName != "" {
		return c.sheetName, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet: %w", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", errors.New("spreadsheet has no sheets")
	}
	return ss.Sheets[0].Properties.Title, nil
}

// wrap maps a 404 from the API to core.ErrSourceNotFound and everything
// else to a LoadError.
func (c *Client) wrap(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", c.Source(), core.ErrSourceNotFound)
	}
	return &core.LoadError{Source: c.Source(), Err: err}
}
