package protocol

import "time"

// Default TTLs by event type. Lifecycle events stay relevant longer than
// individual record changes.
var defaultTTLs = map[string]time.Duration{
	TypeBatchCreated:  24 * time.Hour,
	TypeBatchAdvanced: 24 * time.Hour,
	TypeBatchUpdated:  24 * time.Hour,
	TypeBatchDeleted:  24 * time.Hour,

	TypeRecordSaved:   time.Hour,
	TypeRecordDeleted: time.Hour,

	TypeQualityFailed: 4 * time.Hour,
}

// FallbackTTL is used when no specific TTL is configured.
const FallbackTTL = 10 * time.Minute

// DefaultTTLFor returns the default TTL for a message type.
func DefaultTTLFor(msgType string) time.Duration {
	if ttl, ok := defaultTTLs[msgType]; ok {
		return ttl
	}
	return FallbackTTL
}

// IsExpired returns true if the envelope has passed its expiry time.
func IsExpired(env *Envelope) bool {
	if env.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(env.ExpiresAt)
}
