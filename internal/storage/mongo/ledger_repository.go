package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/christkv/copernicus/internal/domain"
)

// LedgerRepository stores accounts and transaction records. The debit
// and credit updates carry their own guards: the pending tag keeps a
// transaction from touching an account twice, and the balance predicate
// keeps a debit from overdrawing. A matched count of zero never says
// which guard failed, so every zero is followed by a read that does.
type LedgerRepository struct {
	accounts     *mongo.Collection
	transactions *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		accounts:     db.Collection(collAccounts),
		transactions: db.Collection(collTransactions),
	}
}

func (r *LedgerRepository) CreateAccount(ctx context.Context, account domain.Account) error {
	_, err := r.accounts.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	var account domain.Account
	err := r.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

// Debit takes amount from the account and tags it with the transaction
// id, provided the tag is absent and the balance covers the amount.
func (r *LedgerRepository) Debit(ctx context.Context, accountID, txnID string, amount int64) error {
	res, err := r.accounts.UpdateOne(ctx,
		bson.M{
			"_id":     accountID,
			"pending": bson.M{"$ne": txnID},
			"balance": bson.M{"$gte": amount},
		},
		bson.M{
			"$inc":  bson.M{"balance": -amount},
			"$push": bson.M{"pending": txnID},
		},
	)
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.classifyTagFailure(ctx, accountID, txnID, true)
	}
	return nil
}

// Credit adds amount to the account and tags it with the transaction id,
// provided the tag is absent.
func (r *LedgerRepository) Credit(ctx context.Context, accountID, txnID string, amount int64) error {
	res, err := r.accounts.UpdateOne(ctx,
		bson.M{
			"_id":     accountID,
			"pending": bson.M{"$ne": txnID},
		},
		bson.M{
			"$inc":  bson.M{"balance": amount},
			"$push": bson.M{"pending": txnID},
		},
	)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.classifyTagFailure(ctx, accountID, txnID, false)
	}
	return nil
}

// classifyTagFailure works out why a guarded debit or credit matched
// nothing: the account may be missing, the transaction may have tagged
// it already, or (for debits only) the balance fell short.
func (r *LedgerRepository) classifyTagFailure(ctx context.Context, accountID, txnID string, checkBalance bool) error {
	account, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.HasPending(txnID) {
		return domain.ErrDuplicateHold
	}
	if checkBalance {
		return domain.ErrInsufficientResource
	}
	return fmt.Errorf("credit %s for %s: update matched nothing", accountID, txnID)
}

// ClearTag drops the transaction's tag, keeping the balance change. A
// tag that is already gone is not an error; clearing must be retryable.
func (r *LedgerRepository) ClearTag(ctx context.Context, accountID, txnID string) error {
	res, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{"$pull": bson.M{"pending": txnID}},
	)
	if err != nil {
		return fmt.Errorf("clear tag: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// ReverseDebit puts the amount back if and only if the tag is still on
// the account. An untagged account was never debited, or has already
// been reversed; either way there is nothing to undo.
func (r *LedgerRepository) ReverseDebit(ctx context.Context, accountID, txnID string, amount int64) error {
	_, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": accountID, "pending": txnID},
		bson.M{
			"$inc":  bson.M{"balance": amount},
			"$pull": bson.M{"pending": txnID},
		},
	)
	if err != nil {
		return fmt.Errorf("reverse debit: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ReverseCredit(ctx context.Context, accountID, txnID string, amount int64) error {
	_, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": accountID, "pending": txnID},
		bson.M{
			"$inc":  bson.M{"balance": -amount},
			"$pull": bson.M{"pending": txnID},
		},
	)
	if err != nil {
		return fmt.Errorf("reverse credit: %w", err)
	}
	return nil
}

func (r *LedgerRepository) CreateTransaction(ctx context.Context, txn domain.Transaction) error {
	if _, err := r.transactions.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	var txn domain.Transaction
	err := r.transactions.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return txn, nil
}

// AdvanceTransaction moves the record one step forward, guarded on the
// stored state still being from. Only transitions the lattice allows
// are accepted.
func (r *LedgerRepository) AdvanceTransaction(ctx context.Context, id string, from, to domain.TxState) error {
	if next, ok := from.Next(); !ok || next != to {
		return domain.ErrStaleState
	}

	res, err := r.transactions.UpdateOne(ctx,
		bson.M{"_id": id, "state": from},
		bson.M{"$set": bson.M{"state": to}},
	)
	if err != nil {
		return fmt.Errorf("advance transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetTransaction(ctx, id); err != nil {
			return err
		}
		return domain.ErrStaleState
	}
	return nil
}

// CancelTransaction moves any non-terminal record to canceled. A record
// that is already canceled stays that way without error; a record that
// reached done refuses.
func (r *LedgerRepository) CancelTransaction(ctx context.Context, id string) error {
	res, err := r.transactions.UpdateOne(ctx,
		bson.M{
			"_id":   id,
			"state": bson.M{"$nin": bson.A{domain.TxDone, domain.TxCanceled}},
		},
		bson.M{"$set": bson.M{"state": domain.TxCanceled}},
	)
	if err != nil {
		return fmt.Errorf("cancel transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		txn, err := r.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if txn.State == domain.TxCanceled {
			return nil
		}
		return domain.ErrStaleState
	}
	return nil
}
