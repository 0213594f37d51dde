// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import "github.com/pdiddy/heicconv/pkg/types"

// Summary counts items by outcome.
type Summary struct {
	Completed int
	Failed    int
	Pending   int
}

// Total returns the number of items counted.
func (s Summary) Total() int {
	return s.Completed + s.Failed + s.Pending
}

// HasFailures reports whether any item failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Summarize counts items by status. Queued and processing items are pending.
func Summarize(items []types.QueueItem) Summary {
	var s Summary
	for _, it := range items {
		switch it.Status {
		case types.StatusCompleted:
			s.Completed++
		case types.StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s
}
