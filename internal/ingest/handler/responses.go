package handler

import (
	"time"

	"claimcheck/internal/batch"
)

// UploadResponse is the HTTP response for POST /upload.
type UploadResponse struct {
	BatchID   string    `json:"batchId"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchStatusResponse is the HTTP response for GET /batch_status/{batchId}.
type BatchStatusResponse struct {
	BatchID             string     `json:"batchId"`
	Status              string     `json:"status"`
	RecordsProcessed    int        `json:"recordsProcessed"`
	RecordsFailed       int        `json:"recordsFailed"`
	StartTime           time.Time  `json:"startTime"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion"`
}

// FromRecord converts a ledger record to the status projection.
// estimatedCompletion stays null unless the batch is mid-processing with a
// declared total; then it is a naive linear projection from throughput so far.
func FromRecord(rec *batch.Record, now time.Time) *BatchStatusResponse {
	resp := &BatchStatusResponse{
		BatchID:          rec.ID.String(),
		Status:           string(rec.State),
		RecordsProcessed: rec.RecordsProcessed,
		RecordsFailed:    rec.RecordsFailed,
		StartTime:        rec.CreatedAt,
	}

	if rec.State == batch.StateProcessing && rec.TotalRecords > 0 {
		done := rec.RecordsProcessed + rec.RecordsFailed
		remaining := rec.TotalRecords - done
		elapsed := now.Sub(rec.CreatedAt)
		if done > 0 && remaining > 0 && elapsed > 0 {
			perRecord := elapsed / time.Duration(done)
			eta := now.Add(perRecord * time.Duration(remaining))
			resp.EstimatedCompletion = &eta
		}
	}

	return resp
}
