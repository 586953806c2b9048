package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"go.uber.org/zap"
)

// Bank account permissions
const (
	PermissionBankAccountRead   = "bank_account:read"
	PermissionBankAccountManage = "bank_account:manage"
)

// BankAccountService registers and lists bank accounts
type BankAccountService struct {
	repo     settlement.BankAccountRepository
	settings Settings
	opts     options
}

// NewBankAccountService creates a new BankAccountService
func NewBankAccountService(repo settlement.BankAccountRepository, settings Settings, opts ...Option) *BankAccountService {
	return &BankAccountService{repo: repo, settings: settings, opts: buildOptions(opts)}
}

// CreateBankAccount registers an account. Its ledger code must be unique
// within the tenant and must not collide with the receivable/payable accounts.
func (s *BankAccountService) CreateBankAccount(ctx context.Context, actor shared.Actor, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	if err := actor.Require(PermissionBankAccountManage); err != nil {
		return nil, err
	}
	account, err := settlement.NewBankAccount(actor, req.Name, req.AccountNumber, req.Currency, req.LedgerAccountCode, req.OpeningBalance)
	if err != nil {
		return nil, err
	}
	switch account.LedgerAccountCode {
	case s.settings.Accounts.CustomerReceivable, s.settings.Accounts.AgentReceivable, s.settings.Accounts.AgentPayable:
		return nil, shared.NewDomainError("INVALID_LEDGER_ACCOUNT", "Ledger account "+account.LedgerAccountCode+" is reserved")
	}

	exists, err := s.repo.ExistsByLedgerCode(ctx, actor.TenantID, account.LedgerAccountCode)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Ledger account "+account.LedgerAccountCode+" is already linked to a bank account")
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}

	s.opts.logger.Info("bank account created",
		zap.String("bank_account_id", account.ID.String()),
		zap.String("ledger_account_code", account.LedgerAccountCode),
		zap.String("currency", account.Currency.String()),
	)
	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// ListBankAccounts returns every account of the tenant
func (s *BankAccountService) ListBankAccounts(ctx context.Context, actor shared.Actor) ([]BankAccountResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	accounts, err := s.repo.FindAll(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]BankAccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToBankAccountResponse(&accounts[i])
	}
	return out, nil
}

// GetBankAccount returns one account
func (s *BankAccountService) GetBankAccount(ctx context.Context, actor shared.Actor, id uuid.UUID) (*BankAccountResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	account, err := s.repo.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(account)
	return &resp, nil
}
