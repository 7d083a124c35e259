package dto

// CancelReceiptRequest is the body of POST /document/receiving/:id/cancel.
type CancelReceiptRequest struct {
	Reason string `json:"reason"`
}
