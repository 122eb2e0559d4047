package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/harrisonrobin/tasktree/pkg/auth"
)

// NewClient creates a Backend with the user's stored OAuth token.
func NewClient(ctx context.Context, spreadsheetID, sheet string) (*Backend, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("no spreadsheet configured; run 'tasktree config set spreadsheet_id <id>'")
	}

	client, err := auth.GetClient(ctx, auth.Scopes)
	if err != nil {
		return nil, err
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}

	if _, err := srv.Spreadsheets.Get(spreadsheetID).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("unable to open spreadsheet %s: %w", spreadsheetID, err)
	}

	return NewBackend(srv, spreadsheetID, sheet), nil
}
