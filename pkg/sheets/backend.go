// Package sheets stores the task tree in a Google Sheets spreadsheet, one
// row per task.
package sheets

import (
	"context"
	"fmt"
	"log"
	"sync"

	"google.golang.org/api/sheets/v4"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

const lastColumn = "P"

// Backend reads and writes task rows in one sheet of a spreadsheet.
type Backend struct {
	srv           *sheets.Service
	spreadsheetID string
	sheet         string
	mu            sync.Mutex
}

// NewBackend wraps an authenticated Sheets service.
func NewBackend(srv *sheets.Service, spreadsheetID, sheet string) *Backend {
	return &Backend{srv: srv, spreadsheetID: spreadsheetID, sheet: sheet}
}

// Load returns the tree rebuilt from every data row.
func (b *Backend) Load(ctx context.Context) ([]*model.TaskNode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows, _, err := b.readRows(ctx)
	if err != nil {
		return nil, err
	}
	return Build(rows), nil
}

// ReplaceAll overwrites the sheet with the flattened tree.
func (b *Backend) ReplaceAll(ctx context.Context, roots []*model.TaskNode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeRows(ctx, Flatten(roots))
}

// Update rewrites the row of one task with the patch applied. Children in
// the patch are ignored; only the row changes.
func (b *Backend) Update(ctx context.Context, id string, patch model.TaskPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, lines, err := b.readRows(ctx)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r.ID != id {
			continue
		}
		n := r.Node()
		patch.Children = nil
		patch.Apply(n)
		updated := RowFromNode(n, n.ParentID, r.PositionOrder)

		line := lines[i]
		rng := fmt.Sprintf("%s!A%d:%s%d", b.sheet, line, lastColumn, line)
		_, err := b.srv.Spreadsheets.Values.Update(b.spreadsheetID, rng, &sheets.ValueRange{
			Values: [][]interface{}{updated.Values()},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("unable to update row for task %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("update %s: %w", id, model.ErrNotFound)
}

// Delete removes the row of one task. Rows of its children stay and are
// attached at root on the next Load.
func (b *Backend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, _, err := b.readRows(ctx)
	if err != nil {
		return err
	}
	kept := rows[:0]
	found := false
	for _, r := range rows {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("delete %s: %w", id, model.ErrNotFound)
	}
	return b.writeRows(ctx, kept)
}

// Clear removes every task row and keeps the header.
func (b *Backend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeRows(ctx, nil)
}

// readRows returns the data rows that carry an id, with the sheet line
// each was read from. Blank and id-less lines are skipped.
func (b *Backend) readRows(ctx context.Context) ([]Row, []int, error) {
	rng := fmt.Sprintf("%s!A2:%s", b.sheet, lastColumn)
	resp, err := b.srv.Spreadsheets.Values.Get(b.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read rows from sheet %s: %w", b.sheet, err)
	}
	rows := make([]Row, 0, len(resp.Values))
	lines := make([]int, 0, len(resp.Values))
	for i, cells := range resp.Values {
		r := ParseRow(cells)
		if r.ID == "" {
			continue
		}
		rows = append(rows, r)
		lines = append(lines, i+2)
	}
	return rows, lines, nil
}

func (b *Backend) writeRows(ctx context.Context, rows []Row) error {
	clearRange := fmt.Sprintf("%s!A:%s", b.sheet, lastColumn)
	if _, err := b.srv.Spreadsheets.Values.Clear(b.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to clear sheet %s: %w", b.sheet, err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	values := [][]interface{}{header}
	for _, r := range rows {
		values = append(values, r.Values())
	}

	_, err := b.srv.Spreadsheets.Values.Update(b.spreadsheetID, b.sheet+"!A1", &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to write %d rows to sheet %s: %w", len(rows), b.sheet, err)
	}
	log.Printf("sheets: wrote %d rows to %s", len(rows), b.sheet)
	return nil
}
