package redisx

import "time"

const (
	// idem:order:place:{member_id}:{idempotency_key} -> order_id
	KeyIdemOrderPlace = "idem:order:place:%s:%s"

	// order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

// inFlight marks an idempotency key whose request has not finished yet.
const inFlight = "-"
