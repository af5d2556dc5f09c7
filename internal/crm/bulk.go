package crm

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BulkItemResult is the outcome of one item in a bulk tool.
type BulkItemResult struct {
	Success  bool   `json:"success"`
	Name     string `json:"name"`
	Created  bool   `json:"created,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	EditURL  string `json:"editUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BulkReport consolidates a bulk run. Success is true when at least one item
// succeeded.
type BulkReport struct {
	Success      bool             `json:"success"`
	Total        int              `json:"total"`
	CreatedCount int              `json:"createdCount"`
	Results      []BulkItemResult `json:"results"`
}

func (r BulkReport) Succeeded() bool { return r.Success }

func (r BulkReport) FailureReason() string {
	if r.Success {
		return ""
	}
	if len(r.Results) > 0 && r.Results[0].Error != "" {
		return "all items failed; first error: " + r.Results[0].Error
	}
	return "all items failed"
}

// Aggregate runs fn for every item with at most limit running at once. Items
// are independent: a failing item never cancels its siblings, and results
// keep input order.
func Aggregate[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) BulkItemResult) BulkReport {
	results := make([]BulkItemResult, len(items))
	var group errgroup.Group
	if limit > 0 {
		group.SetLimit(limit)
	}
	for idx, item := range items {
		group.Go(func() error {
			results[idx] = fn(ctx, item)
			return nil
		})
	}
	_ = group.Wait()

	report := BulkReport{Total: len(results), Results: results}
	for _, result := range results {
		if !result.Success {
			continue
		}
		report.Success = true
		if result.Created {
			report.CreatedCount++
		}
	}
	return report
}
