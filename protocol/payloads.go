package protocol

// BatchEvent describes a batch row after a lifecycle change.
type BatchEvent struct {
	BatchID        int64  `json:"batch_id"`
	SourceBatchID  int64  `json:"source_batch_id,omitempty"`
	BatchNumber    string `json:"batch_number,omitempty"`
	ProductName    string `json:"product_name,omitempty"`
	ProcessSegment string `json:"process_segment,omitempty"`
	Status         string `json:"status,omitempty"`
	RecordsCopied  bool   `json:"records_copied,omitempty"`
}

// RecordEvent describes a saved or deleted record.
type RecordEvent struct {
	Family   string `json:"family"`
	RecordID int64  `json:"record_id"`
	BatchID  int64  `json:"batch_id"`
	UserID   int64  `json:"user_id,omitempty"`
}

// QualityFailedEvent is published when a quality test falls outside its bounds.
type QualityFailedEvent struct {
	RecordID    int64    `json:"record_id"`
	BatchID     int64    `json:"batch_id"`
	BatchNumber string   `json:"batch_number"`
	TestItem    string   `json:"test_item"`
	TestValue   *float64 `json:"test_value"`
	StandardMin *float64 `json:"standard_min"`
	StandardMax *float64 `json:"standard_max"`
}
