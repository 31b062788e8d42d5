package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default commission percentages in force until an admin sets rates.
const (
	DefaultOwnConversionCommission    = 30.0
	DefaultSharedConversionCommission = 10.0
)

// CommissionSettings is a versioned singleton kept as an append-only log:
// an update inserts a new active record and deactivates the older ones, so
// old records survive for audit. Reads take the newest active record.
type CommissionSettings struct {
	ID                         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OwnConversionCommission    float64            `json:"ownConversionCommission" bson:"ownConversionCommission"`
	SharedConversionCommission float64            `json:"sharedConversionCommission" bson:"sharedConversionCommission"`
	IsActive                   bool               `json:"isActive" bson:"isActive"`
	UpdatedBy                  primitive.ObjectID `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	CreatedAt                  time.Time          `json:"createdAt" bson:"createdAt"`
}

// UpdateCommissionSettingsRequest is the admin request body for replacing
// the active settings record
type UpdateCommissionSettingsRequest struct {
	OwnConversionCommission    float64 `json:"ownConversionCommission" validate:"gte=0,lte=100"`
	SharedConversionCommission float64 `json:"sharedConversionCommission" validate:"gte=0,lte=100"`
}
