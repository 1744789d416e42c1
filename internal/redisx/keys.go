package redisx

import "time"

const (
	// Rendered receipt per sale: receipt:{transaction_code} -> receipt JSON
	KeyReceipt = "receipt:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLReceipt = 24 * time.Hour
	TTLDedup   = 48 * time.Hour
)
