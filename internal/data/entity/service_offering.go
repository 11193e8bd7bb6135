package entity

import (
	"github.com/google/uuid"
)

// ServiceOffering is a provider's bookable service. Read-only for the
// reconciliation core; looked up for pricing defaults and notification text.
type ServiceOffering struct {
	Base
	ProviderID uuid.UUID `db:"provider_id"`
	Name       string    `db:"name"`
	Price      int64     `db:"price"`
	Currency   string    `db:"currency"`
}
