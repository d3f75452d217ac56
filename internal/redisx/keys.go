package redisx

import "time"

const (
	// Bearer session written by the identity provider: session:{token} -> {"user_id","email","phone"}
	KeySession = "session:%s"

	// Order placement idempotency: idem:order:place:{buyer_id}:{key} -> order_id
	KeyIdemOrderPlace = "idem:order:place:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Capped list of staff alerts, newest at the head.
	KeyStaffAlerts = "alerts:staff"
)

var (
	TTLSession     = 12 * time.Hour
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
