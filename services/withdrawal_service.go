package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadnest/crm_backend/models"
)

// withdrawalTransitions is the withdrawal request lifecycle. Everything
// except pending -> approved -> processed is terminal.
var withdrawalTransitions = map[models.WithdrawalStatus][]models.WithdrawalStatus{
	models.WithdrawalPending:   {models.WithdrawalApproved, models.WithdrawalRejected, models.WithdrawalCancelled},
	models.WithdrawalApproved:  {models.WithdrawalProcessed},
	models.WithdrawalRejected:  {},
	models.WithdrawalProcessed: {},
	models.WithdrawalCancelled: {},
}

// CanTransitionWithdrawal reports whether a withdrawal request may move
// between the two statuses.
func CanTransitionWithdrawal(from, to models.WithdrawalStatus) bool {
	for _, next := range withdrawalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// WithdrawalService runs the request/approval/settlement workflow. Money
// moves exactly once, at settlement (MarkProcessed), never at approval:
// an admin can approve in principle before confirming the bank transfer.
type WithdrawalService struct {
	DB      *mongo.Database
	Wallets *WalletService
}

func NewWithdrawalService(db *mongo.Database, wallets *WalletService) *WithdrawalService {
	return &WithdrawalService{DB: db, Wallets: wallets}
}

// Request creates a pending withdrawal request. The balance check here is
// a soft gate for the partner's benefit; the binding check happens again
// inside the debit at settlement time.
func (s *WithdrawalService) Request(ctx context.Context, partnerID primitive.ObjectID, amount float64, bank models.BankDetails) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	amount = round2(amount)

	wallet, err := s.Wallets.GetOrCreateWallet(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if amount > wallet.Balance {
		return nil, fmt.Errorf("%w: requested %.2f, balance %.2f", ErrInsufficientBalance, amount, wallet.Balance)
	}

	now := time.Now()
	request := models.WithdrawalRequest{
		ID:             primitive.NewObjectID(),
		PartnerID:      partnerID,
		WithdrawalCode: uuid.NewString(),
		Amount:         amount,
		BankDetails:    bank,
		Status:         models.WithdrawalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.DB.Collection("withdrawals").InsertOne(ctx, request); err != nil {
		return nil, err
	}
	return &request, nil
}

// Approve moves a pending request to approved. No money moves here.
func (s *WithdrawalService) Approve(ctx context.Context, requestID, adminID primitive.ObjectID) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, requestID, models.WithdrawalPending, models.WithdrawalApproved, bson.M{
		"adminId": adminID,
	})
}

// Reject terminally refuses a pending request with the admin's reason.
func (s *WithdrawalService) Reject(ctx context.Context, requestID, adminID primitive.ObjectID, reason string) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, requestID, models.WithdrawalPending, models.WithdrawalRejected, bson.M{
		"adminId":         adminID,
		"rejectionReason": reason,
	})
}

// Cancel lets the requesting partner withdraw a still-pending request.
func (s *WithdrawalService) Cancel(ctx context.Context, requestID, partnerID primitive.ObjectID) (*models.WithdrawalRequest, error) {
	var updated models.WithdrawalRequest
	err := s.DB.Collection("withdrawals").FindOneAndUpdate(ctx,
		bson.M{"_id": requestID, "partnerId": partnerID, "status": models.WithdrawalPending},
		bson.M{"$set": bson.M{"status": models.WithdrawalCancelled, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, s.transitionFailure(ctx, requestID, models.WithdrawalCancelled)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// MarkProcessed settles an approved request: it flips the status (the
// conditional update is the exactly-once gate against a second settlement)
// and then debits the wallet. A failed debit reverts the request to
// pending with the reason in the admin note and surfaces the error. A
// crash between the flip and the debit leaves a processed request with no
// transactionId, detectable by that missing link.
func (s *WithdrawalService) MarkProcessed(ctx context.Context, requestID, adminID primitive.ObjectID) (*models.WithdrawalRequest, error) {
	now := time.Now()
	request, err := s.transition(ctx, requestID, models.WithdrawalApproved, models.WithdrawalProcessed, bson.M{
		"adminId":     adminID,
		"processedAt": now,
	})
	if err != nil {
		return nil, err
	}

	txn, err := s.Wallets.Debit(ctx,
		request.PartnerID,
		request.Amount,
		models.TransactionTypeWithdrawal,
		models.TransactionReference{Kind: models.ReferenceWithdrawalRequest, ID: request.ID},
		fmt.Sprintf("Withdrawal payout %s", request.WithdrawalCode),
	)
	if err != nil {
		s.revertToPending(ctx, request.ID, err)
		return nil, err
	}

	var settled models.WithdrawalRequest
	ferr := s.DB.Collection("withdrawals").FindOneAndUpdate(ctx,
		bson.M{"_id": request.ID},
		bson.M{"$set": bson.M{"transactionId": txn.ID, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&settled)
	if ferr != nil {
		// The debit stands; only the back-link is missing
		log.Printf("Failed to link transaction %s to withdrawal %s: %v", txn.ID.Hex(), request.ID.Hex(), ferr)
		request.TransactionID = &txn.ID
		return request, nil
	}
	return &settled, nil
}

// Get returns one withdrawal request by id.
func (s *WithdrawalService) Get(ctx context.Context, requestID primitive.ObjectID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := s.DB.Collection("withdrawals").FindOne(ctx, bson.M{"_id": requestID}).Decode(&request); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns a page of withdrawal requests, newest first. partnerID
// narrows to one partner (zero value means all partners, the admin view);
// status narrows by lifecycle state.
func (s *WithdrawalService) List(ctx context.Context, partnerID primitive.ObjectID, status models.WithdrawalStatus, page, limit int) ([]models.WithdrawalRequest, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := bson.M{}
	if !partnerID.IsZero() {
		query["partnerId"] = partnerID
	}
	if status != "" {
		query["status"] = status
	}

	coll := s.DB.Collection("withdrawals")
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := coll.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page-1)*limit)).
		SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var requests []models.WithdrawalRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// transition performs a conditional status move and returns the updated
// request. A filter miss means the request is gone or no longer in the
// expected state.
func (s *WithdrawalService) transition(ctx context.Context, requestID primitive.ObjectID, from, to models.WithdrawalStatus, extra bson.M) (*models.WithdrawalRequest, error) {
	set := bson.M{"status": to, "updatedAt": time.Now()}
	for k, v := range extra {
		set[k] = v
	}

	var updated models.WithdrawalRequest
	err := s.DB.Collection("withdrawals").FindOneAndUpdate(ctx,
		bson.M{"_id": requestID, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, s.transitionFailure(ctx, requestID, to)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// transitionFailure distinguishes "no such request" from "request is in
// the wrong state" for a failed conditional move.
func (s *WithdrawalService) transitionFailure(ctx context.Context, requestID primitive.ObjectID, to models.WithdrawalStatus) error {
	current, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	return invalidTransition("withdrawal", string(current.Status), string(to))
}

// revertToPending rolls a just-flipped request back after a settlement
// debit failure, recording why in the admin note.
func (s *WithdrawalService) revertToPending(ctx context.Context, requestID primitive.ObjectID, cause error) {
	note := fmt.Sprintf("Settlement failed: %v", cause)
	if errors.Is(cause, ErrInsufficientBalance) {
		note = "Settlement failed: wallet balance dropped below the requested amount"
	}
	_, err := s.DB.Collection("withdrawals").UpdateOne(ctx,
		bson.M{"_id": requestID, "status": models.WithdrawalProcessed},
		bson.M{"$set": bson.M{
			"status":    models.WithdrawalPending,
			"adminNote": note,
			"updatedAt": time.Now(),
		}, "$unset": bson.M{"processedAt": ""}},
	)
	if err != nil {
		log.Printf("CRITICAL: failed to revert withdrawal %s to pending after settlement failure: %v", requestID.Hex(), err)
	}
}
