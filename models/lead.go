package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeadStatus is the acquisition state of a lead. Transitions between
// states are validated by the lead status service; "converted" is terminal
// and is the only state change that triggers commission.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusConnected    LeadStatus = "connected"
	LeadStatusNotPicked    LeadStatus = "not_picked"
	LeadStatusFollowup     LeadStatus = "followup"
	LeadStatusNotConverted LeadStatus = "not_converted"
	LeadStatusConverted    LeadStatus = "converted"
	LeadStatusLost         LeadStatus = "lost"
)

// LeadShare records one sharing event between a channel partner's lead
// and an external sales channel (either direction).
type LeadShare struct {
	CounterpartID primitive.ObjectID `json:"counterpartId" bson:"counterpartId"`
	SharedBy      primitive.ObjectID `json:"sharedBy" bson:"sharedBy"`
	SharedAt      time.Time          `json:"sharedAt" bson:"sharedAt"`
}

// Lead is owned by exactly one channel partner. The same phone number may
// exist independently under different partners; uniqueness is enforced on
// (assignedTo, phone).
type Lead struct {
	ID                primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	AssignedTo        primitive.ObjectID  `json:"assignedTo" bson:"assignedTo"`
	Name              string              `json:"name" bson:"name"`
	Phone             string              `json:"phone" bson:"phone"`
	Email             string              `json:"email,omitempty" bson:"email,omitempty"`
	Status            LeadStatus          `json:"status" bson:"status"`
	Priority          string              `json:"priority,omitempty" bson:"priority,omitempty"` // "low", "medium", "high"
	Value             float64             `json:"value" bson:"value"`
	Source            string              `json:"source,omitempty" bson:"source,omitempty"`
	Notes             string              `json:"notes,omitempty" bson:"notes,omitempty"`
	SharedTo          []LeadShare         `json:"sharedTo,omitempty" bson:"sharedTo,omitempty"`
	SharedFrom        []LeadShare         `json:"sharedFrom,omitempty" bson:"sharedFrom,omitempty"`
	ConvertedToClient *primitive.ObjectID `json:"convertedToClient,omitempty" bson:"convertedToClient,omitempty"`
	ConvertedAt       *time.Time          `json:"convertedAt,omitempty" bson:"convertedAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// CreateLeadRequest is the request body for creating a lead
type CreateLeadRequest struct {
	Name     string  `json:"name" validate:"required"`
	Phone    string  `json:"phone" validate:"required"`
	Email    string  `json:"email,omitempty" validate:"omitempty,email"`
	Priority string  `json:"priority,omitempty"`
	Value    float64 `json:"value"`
	Source   string  `json:"source,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

// UpdateLeadStatusRequest is the request body for a status transition
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ShareLeadRequest records an outward share to an external sales actor
type ShareLeadRequest struct {
	CounterpartID string `json:"counterpartId" validate:"required"`
}

// ConvertLeadRequest is the request body for converting a lead. DealValue
// is a pointer so an explicit zero (a conversion that closed for nothing)
// stays distinguishable from an omitted field, which falls back to the
// value recorded on the lead.
type ConvertLeadRequest struct {
	DealValue *float64 `json:"dealValue"`
	ClientID  string   `json:"clientId,omitempty"`
}

// ExternalConversionRequest is raised by the surrounding API layer when an
// external sales actor converts a deal that may have originated as a
// partner's shared lead.
type ExternalConversionRequest struct {
	Phone             string   `json:"phone" validate:"required"`
	ConvertingActorID string   `json:"convertingActorId" validate:"required"`
	DealValue         *float64 `json:"dealValue"`
}
