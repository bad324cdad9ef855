package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finlend/ledger-engine/internal/config"
	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/notify"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/internal/schedule"
	"github.com/finlend/ledger-engine/pkg/apperr"
	"github.com/finlend/ledger-engine/pkg/utils"
)

// SettlementService computes and confirms early or mature closures.
type SettlementService struct {
	productRepo repository.ProductRepository
	ledgerRepo  repository.LedgerRepository
	wallet      *WalletService
	sink        notify.Sink
	config      *config.Config
}

func NewSettlementService(
	productRepo repository.ProductRepository,
	ledgerRepo repository.LedgerRepository,
	wallet *WalletService,
	sink notify.Sink,
	cfg *config.Config,
) *SettlementService {
	return &SettlementService{
		productRepo: productRepo,
		ledgerRepo:  ledgerRepo,
		wallet:      wallet,
		sink:        sink,
		config:      cfg,
	}
}

// ComputeSettlement returns the advisory closing figure for the product as
// of the given date.
//
// Deposits: premature closure pays out contributions less the penalty rate;
// mature closure pays contributions plus the flat interest. Loans: the
// payoff is the outstanding total less a configurable rebate on the
// interest not yet accrued.
func (s *SettlementService) ComputeSettlement(ctx context.Context, caller domain.CallerContext, productID uuid.UUID, asOf time.Time) (*domain.SettlementQuote, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(caller, domain.OpSettle, product, false); err != nil {
		return nil, err
	}

	if product.Status != domain.ProductStatusActive {
		return nil, apperr.WrapStateConflict("only an active product can be settled", apperr.ErrProductNotActive)
	}

	return s.quote(product, asOf), nil
}

// ConfirmSettlement executes a closure: posts the closing transactions,
// closes the product and voids the remaining obligations. Confirming an
// already-closed product is idempotent; it reports the terminal state and
// posts nothing.
func (s *SettlementService) ConfirmSettlement(ctx context.Context, caller domain.CallerContext, productID uuid.UUID, asOf time.Time) (*domain.SettlementConfirmation, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(caller, domain.OpSettle, product, false); err != nil {
		return nil, err
	}

	if product.Status == domain.ProductStatusClosed {
		return &domain.SettlementConfirmation{Product: product, AlreadyClosed: true}, nil
	}
	if product.Status != domain.ProductStatusActive {
		return nil, apperr.WrapStateConflict("only an active product can be settled", apperr.ErrProductNotActive)
	}

	quote := s.quote(product, asOf)

	operatingID, err := uuid.Parse(s.config.Business.OperatingAccountID)
	if err != nil {
		return nil, apperr.WrapValidation("operating account is not configured")
	}

	txnType := domain.TxnPrematureClosed
	if quote.Mature {
		txnType = domain.TxnMatureClosed
	}

	var transactions []*domain.Transaction
	var totalPaidAdd decimal.Decimal

	if product.Category.IsDeposit() {
		// payout leaves the operating wallet and lands in the holder's
		transactions = []*domain.Transaction{
			{ID: uuid.New(), AccountID: product.HolderID, Amount: quote.Amount, TxnType: txnType, ProductID: &productID},
			{ID: uuid.New(), AccountID: operatingID, Amount: quote.Amount.Neg(), TxnType: txnType, ProductID: &productID},
		}
	} else {
		// loan payoff comes in and counts toward the paid total
		transactions = []*domain.Transaction{
			{ID: uuid.New(), AccountID: operatingID, Amount: quote.Amount, TxnType: txnType, ProductID: &productID},
		}
		totalPaidAdd = quote.Amount
	}

	unit := &repository.SettlementUnit{
		ProductID:    productID,
		Transactions: transactions,
		TotalPaidAdd: totalPaidAdd,
	}

	if err := s.ledgerRepo.ApplySettlement(ctx, unit); err != nil {
		// a concurrent confirm won the status flip; report the terminal state
		if errors.Is(err, apperr.ErrProductClosed) {
			closed, gerr := s.productRepo.GetByID(ctx, productID)
			if gerr != nil {
				return nil, gerr
			}
			return &domain.SettlementConfirmation{Product: closed, AlreadyClosed: true}, nil
		}
		return nil, err
	}

	s.wallet.Invalidate(ctx, operatingID, product.HolderID)

	s.sink.Publish(ctx, domain.Event{
		Kind:       domain.EventSettled,
		ProductID:  productID,
		HolderID:   product.HolderID,
		Amount:     quote.Amount,
		OccurredAt: time.Now(),
	})

	product.Status = domain.ProductStatusClosed
	product.TotalPaid = product.TotalPaid.Add(totalPaidAdd)
	return &domain.SettlementConfirmation{Product: product, Quote: quote}, nil
}

func (s *SettlementService) quote(product *domain.Product, asOf time.Time) *domain.SettlementQuote {
	elapsed := utils.ElapsedFraction(product.StartDate, product.TermMonths, asOf)
	mature := elapsed.Equal(decimal.NewFromInt(1))

	quote := &domain.SettlementQuote{
		ProductID: product.ID,
		Category:  product.Category,
		AsOf:      utils.NormalizeDate(asOf),
		Mature:    mature,
		TotalPaid: product.TotalPaid,
	}

	if product.Category.IsDeposit() {
		if mature {
			quote.Amount = schedule.MaturityValue(product)
			return quote
		}
		quote.Penalty = product.TotalPaid.Mul(s.config.GetPrematurePenaltyRate()).Round(2)
		quote.Amount = product.TotalPaid.Sub(quote.Penalty)
		return quote
	}

	outstanding := product.Remaining()
	if !mature {
		totalInterest := product.Principal.Mul(product.Rate)
		unaccrued := totalInterest.Mul(decimal.NewFromInt(1).Sub(elapsed))
		quote.Rebate = unaccrued.Mul(s.config.GetEarlyClosureRebateRate()).Round(2)
	}

	quote.Amount = outstanding.Sub(quote.Rebate)
	if quote.Amount.IsNegative() {
		quote.Amount = decimal.Zero
	}
	return quote
}
