package entity

import "time"

// IdempotencyRecord marks a gateway event as applied. The key is derived
// from the gateway reference and event kind (plus the payload hash for
// repeatable failure events) and is inserted in the same transaction as
// the booking write it guarded, so a replayed webhook can never apply the
// same transition twice.
type IdempotencyRecord struct {
	Key              string    `db:"key"`
	GatewayReference string    `db:"gateway_reference"`
	Kind             string    `db:"kind"`
	PayloadHash      string    `db:"payload_hash"`
	CreatedAt        time.Time `db:"created_at"`
}
