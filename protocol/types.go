package protocol

// Event type constants.
const (
	TypeBatchCreated  = "batch.created"
	TypeBatchAdvanced = "batch.advanced"
	TypeBatchUpdated  = "batch.updated"
	TypeBatchDeleted  = "batch.deleted"

	TypeRecordSaved   = "record.saved"
	TypeRecordDeleted = "record.deleted"
	TypeQualityFailed = "quality.failed"
)

// RoleStation is the Address.Role of a batchtrack instance.
const RoleStation = "batchtrack"

// Protocol version.
const Version = 1
