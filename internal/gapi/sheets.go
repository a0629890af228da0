package gapi

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"

	"github.com/dyluth/deckhand/internal/ratelimit"
	"github.com/dyluth/deckhand/internal/retry"
)

// SheetsClient implements Sheets over sheets/v4.
type SheetsClient struct {
	svc    *sheets.Service
	bucket *ratelimit.Bucket
	policy retry.Policy
}

// NewSheetsClient wraps svc with the given limiter and retry policy.
func NewSheetsClient(svc *sheets.Service, bucket *ratelimit.Bucket, policy retry.Policy) *SheetsClient {
	return &SheetsClient{svc: svc, bucket: bucket, policy: policy}
}

// GetSpreadsheet returns sheet properties and embedded charts, without cell data.
func (c *SheetsClient) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error) {
	return call(ctx, c.bucket, ratelimit.Read, c.policy, "sheets.spreadsheets.get", spreadsheetID, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return c.svc.Spreadsheets.Get(spreadsheetID).
			Fields("spreadsheetId", "sheets(properties(sheetId,title,index),charts(chartId))").
			Context(ctx).
			Do()
	})
}

// GetValues reads a range as formatted strings. Trailing empty cells are omitted.
func (c *SheetsClient) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	return call(ctx, c.bucket, ratelimit.Read, c.policy, "sheets.values.get", spreadsheetID, func(ctx context.Context) ([][]string, error) {
		vr, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		rows := make([][]string, len(vr.Values))
		for i, row := range vr.Values {
			rows[i] = make([]string, len(row))
			for j, cell := range row {
				rows[i][j] = fmt.Sprint(cell)
			}
		}
		return rows, nil
	})
}

// ClearValues empties a range, keeping formatting.
func (c *SheetsClient) ClearValues(ctx context.Context, spreadsheetID, rng string) error {
	_, err := call(ctx, c.bucket, ratelimit.Write, c.policy, "sheets.values.clear", spreadsheetID, func(ctx context.Context) (struct{}, error) {
		_, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
		return struct{}{}, err
	})
	return err
}

// UpdateValues writes values starting at rng without parsing them.
func (c *SheetsClient) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := call(ctx, c.bucket, ratelimit.Write, c.policy, "sheets.values.update", spreadsheetID, func(ctx context.Context) (struct{}, error) {
		_, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return struct{}{}, err
	})
	return err
}
