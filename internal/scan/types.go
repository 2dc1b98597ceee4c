// ABOUTME: Scan queue and verification history types
// ABOUTME: Pending captures, verification records and sync reports
package scan

import (
	"fmt"

	"github.com/kisandost/kisandost-go/internal/genai"
)

// Record status values
const (
	StatusAuthentic   = "authentic"
	StatusCounterfeit = "counterfeit"
)

// PendingScan is a capture waiting for connectivity
type PendingScan struct {
	ID           string `json:"id"`
	ImageData    []byte `json:"imageData"`
	CapturedAtMs int64  `json:"capturedAtMs"`
	Attempts     int    `json:"attempts,omitempty"`
}

// VerificationRecord is one completed verification. Records are never mutated.
type VerificationRecord struct {
	ID              string  `json:"id"`
	ImageData       []byte  `json:"imageData,omitempty"`
	CapturedAtMs    int64   `json:"capturedAtMs"`
	VerifiedAtMs    int64   `json:"verifiedAtMs"`
	Status          string  `json:"status"`
	ProductName     string  `json:"productName"`
	Brand           string  `json:"brand"`
	BatchNumber     string  `json:"batchNumber,omitempty"`
	ExpiryDate      string  `json:"expiryDate,omitempty"`
	Serial          string  `json:"serial,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

func newRecord(id string, image []byte, capturedAt, verifiedAt int64, v genai.Verdict) VerificationRecord {
	status := StatusCounterfeit
	if v.Authentic() {
		status = StatusAuthentic
	}

	return VerificationRecord{
		ID:              id,
		ImageData:       image,
		CapturedAtMs:    capturedAt,
		VerifiedAtMs:    verifiedAt,
		Status:          status,
		ProductName:     v.ProductName,
		Brand:           v.Brand,
		BatchNumber:     v.BatchNumber,
		ExpiryDate:      v.ExpiryDate,
		Serial:          v.Serial,
		Reasoning:       v.Reasoning,
		ConfidenceScore: min(max(v.ConfidenceScore, 0), 100),
	}
}

// Authentic reports whether the product was judged original
func (r VerificationRecord) Authentic() bool {
	return r.Status == StatusAuthentic
}

// Narration is the spoken summary of a verdict
func (r VerificationRecord) Narration() string {
	if r.Authentic() {
		score := r.ConfidenceScore
		if score == 0 {
			score = 100
		}
		return fmt.Sprintf("Verification Success. This is an authentic %s. Trust score is %g percent. %s",
			r.ProductName, score, r.Reasoning)
	}
	return fmt.Sprintf("Security Alert. This %s may be counterfeit. %s", r.ProductName, r.Reasoning)
}

// CaptureResult is the outcome of Capture: either a record or a queued scan
type CaptureResult struct {
	Queued  bool
	Pending *PendingScan
	Record  *VerificationRecord
}

// SyncReport summarizes one sync pass
type SyncReport struct {
	Processed int      `json:"processed"`
	Synced    []string `json:"synced"`
	Failed    []string `json:"failed"`
	Dropped   []string `json:"dropped"`
	Remaining int      `json:"remaining"`
	StartedAt int64    `json:"startedAtMs"`
	Duration  int64    `json:"durationMs"`
}
