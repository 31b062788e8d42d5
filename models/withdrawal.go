package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithdrawalStatus is the lifecycle state of a withdrawal request.
// pending -> approved | rejected | cancelled; approved -> processed.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalProcessed WithdrawalStatus = "processed"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

// BankDetails is where an approved withdrawal gets paid out to
type BankDetails struct {
	AccountName   string `json:"accountName" bson:"accountName" validate:"required"`
	AccountNumber string `json:"accountNumber" bson:"accountNumber" validate:"required"`
	BankName      string `json:"bankName" bson:"bankName" validate:"required"`
	IBAN          string `json:"iban,omitempty" bson:"iban,omitempty"`
}

// WithdrawalRequest is a partner's ask to pay out part of their wallet
// balance. Money moves only at settlement: TransactionID links the debit
// transaction and is set only once the request is processed.
type WithdrawalRequest struct {
	ID              primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	PartnerID       primitive.ObjectID  `json:"partnerId" bson:"partnerId"`
	WithdrawalCode  string              `json:"withdrawalCode" bson:"withdrawalCode"`
	Amount          float64             `json:"amount" bson:"amount"`
	BankDetails     BankDetails         `json:"bankDetails" bson:"bankDetails"`
	Status          WithdrawalStatus    `json:"status" bson:"status"`
	AdminID         *primitive.ObjectID `json:"adminId,omitempty" bson:"adminId,omitempty"`
	AdminNote       string              `json:"adminNote,omitempty" bson:"adminNote,omitempty"`
	RejectionReason string              `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	TransactionID   *primitive.ObjectID `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
	ProcessedAt     *time.Time          `json:"processedAt,omitempty" bson:"processedAt,omitempty"`
}

// CreateWithdrawalRequest is the partner request body for a new payout ask
type CreateWithdrawalRequest struct {
	Amount      float64     `json:"amount" validate:"required,gt=0"`
	BankDetails BankDetails `json:"bankDetails" validate:"required"`
}

// RejectWithdrawalRequest carries the admin's reason for rejecting
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" validate:"required"`
}
