package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionDirection distinguishes credits from debits.
type TransactionDirection string

const (
	TransactionCredit TransactionDirection = "credit"
	TransactionDebit  TransactionDirection = "debit"
)

// TransactionType classifies what a wallet transaction was for.
type TransactionType string

const (
	TransactionTypeCommission TransactionType = "commission"
	TransactionTypeIncentive  TransactionType = "incentive"
	TransactionTypeReward     TransactionType = "reward"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// ReferenceKind is the closed set of entities a wallet transaction can
// point back to.
type ReferenceKind string

const (
	ReferenceLeadConversion    ReferenceKind = "lead_conversion"
	ReferenceWithdrawalRequest ReferenceKind = "withdrawal_request"
	ReferenceManual            ReferenceKind = "manual"
)

// TransactionReference links a wallet transaction to the entity that
// caused it. For commission credits (kind, id) doubles as the idempotency
// key: a unique index rejects a second commission for the same lead.
type TransactionReference struct {
	Kind ReferenceKind      `json:"kind" bson:"kind"`
	ID   primitive.ObjectID `json:"id" bson:"id"`
}

// Wallet holds a channel partner's earnings. One wallet per partner,
// enforced by a unique index on partnerId. The balance field is a cached
// projection of the transaction log; balance == totalEarned - totalWithdrawn
// at all times. Version is an optimistic lock counter bumped on every
// balance change.
type Wallet struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PartnerID      primitive.ObjectID `json:"partnerId" bson:"partnerId"`
	Balance        float64            `json:"balance" bson:"balance"`
	TotalEarned    float64            `json:"totalEarned" bson:"totalEarned"`
	TotalWithdrawn float64            `json:"totalWithdrawn" bson:"totalWithdrawn"`
	Version        int64              `json:"-" bson:"version"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// WalletTransaction is one row in the append-only wallet ledger. Rows are
// never mutated or deleted after insertion; corrections are new adjustment
// or refund entries. BalanceAfter snapshots the wallet balance immediately
// after this entry was applied.
type WalletTransaction struct {
	ID              primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	WalletID        primitive.ObjectID   `json:"walletId" bson:"walletId"`
	PartnerID       primitive.ObjectID   `json:"partnerId" bson:"partnerId"`
	TransactionNo   string               `json:"transactionNo" bson:"transactionNo"`
	Direction       TransactionDirection `json:"type" bson:"type"`
	Amount          float64              `json:"amount" bson:"amount"`
	TransactionType TransactionType      `json:"transactionType" bson:"transactionType"`
	Reference       TransactionReference `json:"reference" bson:"reference"`
	Description     string               `json:"description,omitempty" bson:"description,omitempty"`
	BalanceAfter    float64              `json:"balanceAfter" bson:"balanceAfter"`
	CreatedAt       time.Time            `json:"createdAt" bson:"createdAt"`
}

// WalletSummary is the dashboard view of a wallet
type WalletSummary struct {
	Balance        float64 `json:"balance"`
	TotalEarned    float64 `json:"totalEarned"`
	TotalWithdrawn float64 `json:"totalWithdrawn"`
}

// TransactionFilter narrows a transaction history query
type TransactionFilter struct {
	Direction       TransactionDirection
	TransactionType TransactionType
	From            *time.Time
	To              *time.Time
}
