package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/christkv/copernicus/internal/clock"
	"github.com/christkv/copernicus/internal/domain"
)

// LedgerRepository is the storage surface the transfer protocol drives.
// Every mutating call is a single-document conditional update; there is
// no multi-document transaction underneath.
type LedgerRepository interface {
	CreateAccount(ctx context.Context, account domain.Account) error
	GetAccount(ctx context.Context, id string) (domain.Account, error)
	// Debit and Credit tag the account with the transaction id; the tag is
	// the idempotency guard, so both return domain.ErrDuplicateHold when
	// the transaction already touched the account.
	Debit(ctx context.Context, accountID, txnID string, amount int64) error
	Credit(ctx context.Context, accountID, txnID string, amount int64) error
	// ClearTag removes the tag after commitment; the balance change stays.
	ClearTag(ctx context.Context, accountID, txnID string) error
	// ReverseDebit and ReverseCredit undo the balance change if and only
	// if the tag is still present; untouched accounts are left alone.
	ReverseDebit(ctx context.Context, accountID, txnID string, amount int64) error
	ReverseCredit(ctx context.Context, accountID, txnID string, amount int64) error

	CreateTransaction(ctx context.Context, txn domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)
	// AdvanceTransaction succeeds only while the stored state still equals
	// from; domain.ErrStaleState means a concurrent advancer won.
	AdvanceTransaction(ctx context.Context, id string, from, to domain.TxState) error
	CancelTransaction(ctx context.Context, id string) error
}

// TransferService moves an amount between two accounts through a durable
// transaction record. Failures before commitment are compensated; from
// commitment on, the only way forward is forward.
type TransferService struct {
	repo  LedgerRepository
	clock clock.Clock
}

func NewTransferService(repo LedgerRepository, clk clock.Clock) *TransferService {
	return &TransferService{
		repo:  repo,
		clock: clk,
	}
}

type CreateAccountInput struct {
	ID      string
	Balance int64
}

// CreateAccount registers a ledger account. Creating the same account
// twice is a no-op.
func (s *TransferService) CreateAccount(ctx context.Context, in CreateAccountInput) (domain.Account, error) {
	if in.Balance < 0 {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	account := domain.Account{
		ID:      in.ID,
		Balance: in.Balance,
		Pending: []string{},
	}
	if account.ID == "" {
		account.ID = newID()
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (s *TransferService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *TransferService) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

type TransferInput struct {
	FromID string
	ToID   string
	Amount int64
}

// Transfer runs the full forward protocol for a new transaction. The
// transaction id is returned even when the transfer fails, so a reversed
// attempt stays auditable as a canceled record.
func (s *TransferService) Transfer(ctx context.Context, in TransferInput) (string, error) {
	if in.Amount <= 0 {
		return "", domain.ErrInvalidAmount
	}
	if in.FromID == "" || in.ToID == "" {
		return "", domain.ErrAccountNotFound
	}
	if in.FromID == in.ToID {
		return "", domain.ErrSameAccount
	}

	txn := domain.Transaction{
		ID:          newID(),
		Source:      in.FromID,
		Destination: in.ToID,
		Amount:      in.Amount,
		State:       domain.TxInitial,
		CreatedOn:   s.clock.Now(),
	}
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	return txn.ID, s.run(ctx, txn)
}

// Resume re-reads a transaction and continues the forward protocol from
// its persisted state. Terminal transactions are a no-op. This is the
// crash-recovery entry point: resuming never trusts anything but the
// stored record.
func (s *TransferService) Resume(ctx context.Context, txnID string) error {
	txn, err := s.repo.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	if txn.State.Terminal() {
		return nil
	}
	return s.run(ctx, txn)
}

// run drives the forward protocol from the transaction's current state:
//
//	initial → pending → (debit, credit) → committed → (clear, clear) → done
//
// Any failure up to and including the advance to committed triggers
// reversal, except when that advance lost a race to a concurrent
// resume that already committed the record. Past committed the record
// is irrevocable: failures are returned as-is and a later Resume
// finishes the clearing.
func (s *TransferService) run(ctx context.Context, txn domain.Transaction) error {
	if txn.State == domain.TxInitial {
		if err := s.advance(ctx, &txn); err != nil {
			return s.reverse(ctx, txn, err)
		}
	}

	if txn.State == domain.TxPending {
		if err := s.apply(ctx, txn); err != nil {
			return s.reverse(ctx, txn, err)
		}
		if err := s.advance(ctx, &txn); err != nil {
			// A stale advance here can mean a concurrent resume already
			// carried the record past commitment. Reversing then would
			// undo a committed transfer, so re-read and keep going
			// forward instead.
			current, committed := s.committedElsewhere(ctx, txn.ID, err)
			if !committed {
				return s.reverse(ctx, txn, err)
			}
			txn = current
		}
	}

	if txn.State == domain.TxCommitted {
		if err := s.repo.ClearTag(ctx, txn.Source, txn.ID); err != nil {
			return fmt.Errorf("clear source tag: %w", err)
		}
		if err := s.repo.ClearTag(ctx, txn.Destination, txn.ID); err != nil {
			return fmt.Errorf("clear destination tag: %w", err)
		}
		if err := s.advance(ctx, &txn); err != nil {
			return err
		}
	}

	return nil
}

// apply debits the source and credits the destination. ErrDuplicateHold
// means a previous attempt already tagged the account; on a resume that
// is exactly what we want, so it is swallowed.
func (s *TransferService) apply(ctx context.Context, txn domain.Transaction) error {
	err := s.repo.Debit(ctx, txn.Source, txn.ID, txn.Amount)
	if err != nil && !errors.Is(err, domain.ErrDuplicateHold) {
		return fmt.Errorf("debit %s: %w", txn.Source, err)
	}

	err = s.repo.Credit(ctx, txn.Destination, txn.ID, txn.Amount)
	if err != nil && !errors.Is(err, domain.ErrDuplicateHold) {
		return fmt.Errorf("credit %s: %w", txn.Destination, err)
	}

	return nil
}

// committedElsewhere reports whether a failed advance lost to another
// process that already moved the record to committed or beyond.
func (s *TransferService) committedElsewhere(ctx context.Context, txnID string, err error) (domain.Transaction, bool) {
	if !errors.Is(err, domain.ErrStaleState) {
		return domain.Transaction{}, false
	}
	current, getErr := s.repo.GetTransaction(ctx, txnID)
	if getErr != nil {
		return domain.Transaction{}, false
	}
	if current.State != domain.TxCommitted && current.State != domain.TxDone {
		return domain.Transaction{}, false
	}
	return current, true
}

func (s *TransferService) advance(ctx context.Context, txn *domain.Transaction) error {
	next, ok := txn.State.Next()
	if !ok {
		return domain.ErrStaleState
	}
	if err := s.repo.AdvanceTransaction(ctx, txn.ID, txn.State, next); err != nil {
		return fmt.Errorf("advance from %s: %w", txn.State, err)
	}
	txn.State = next
	return nil
}

// reverse compensates a transfer that failed before commitment: undo the
// debit and credit wherever their tags are still present, then cancel
// the record. Keying the reversal on tag presence makes it safe when
// only part of the forward protocol ran, and idempotent when retried.
func (s *TransferService) reverse(ctx context.Context, txn domain.Transaction, cause error) error {
	if err := s.repo.ReverseDebit(ctx, txn.Source, txn.ID, txn.Amount); err != nil {
		return errors.Join(cause, fmt.Errorf("reverse debit %s: %w", txn.Source, err))
	}
	if err := s.repo.ReverseCredit(ctx, txn.Destination, txn.ID, txn.Amount); err != nil {
		return errors.Join(cause, fmt.Errorf("reverse credit %s: %w", txn.Destination, err))
	}
	if err := s.repo.CancelTransaction(ctx, txn.ID); err != nil {
		return errors.Join(cause, fmt.Errorf("cancel transaction: %w", err))
	}
	return cause
}
