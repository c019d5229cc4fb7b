package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tmatveev/earnbot/internal/earnbot/models"
	"github.com/tmatveev/earnbot/internal/earnbot/repository"
	"github.com/tmatveev/earnbot/internal/earnbot/texts"
	"github.com/tmatveev/earnbot/internal/earnbot/utils"
)

// Rewards holds the point values credited for each earning action
type Rewards struct {
	Shortlink   decimal.Decimal
	Referral    decimal.Decimal
	ChannelJoin decimal.Decimal
}

// WithdrawPolicy holds the payout limits and conversion
type WithdrawPolicy struct {
	MinPoints      decimal.Decimal
	PointsPerRupee decimal.Decimal
}

// LedgerService implements the earning and withdrawal rules over the
// repository. All store writes stay single atomic operations; the service
// never does read-modify-write on numeric fields.
type LedgerService struct {
	repo     repository.Repository
	links    ShortlinkClient
	catalog  *texts.Catalog
	rewards  Rewards
	withdraw WithdrawPolicy
	log      *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(repo repository.Repository, links ShortlinkClient, catalog *texts.Catalog, rewards Rewards, withdraw WithdrawPolicy, log *zap.Logger) *LedgerService {
	return &LedgerService{
		repo:     repo,
		links:    links,
		catalog:  catalog,
		rewards:  rewards,
		withdraw: withdraw,
		log:      log,
	}
}

// OnboardResult reports what Onboard did
type OnboardResult struct {
	Account          *models.UserAccount
	Created          bool
	ReferrerCredited bool
}

// Onboard returns the user's account, creating it on first contact. When the
// account is new and referrerID names another existing user, the referral is
// recorded first-referrer-wins; the referrer is credited only when this call
// actually recorded it, so a double-tapped /start cannot credit twice.
func (s *LedgerService) Onboard(ctx context.Context, userID, referrerID string) (*OnboardResult, error) {
	created := false
	acc, err := s.repo.GetAccount(ctx, userID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		created = true
	} else if err != nil {
		return nil, Transient(fmt.Errorf("loading account %s: %w", userID, err))
	}

	if acc == nil {
		acc, err = s.repo.GetOrCreateAccount(ctx, userID)
		if err != nil {
			return nil, Transient(fmt.Errorf("creating account %s: %w", userID, err))
		}
	}

	result := &OnboardResult{Account: acc, Created: created}
	if !created || referrerID == "" || referrerID == userID {
		return result, nil
	}

	// The referrer must already have an account; an unknown code is ignored
	// rather than failing the new user's onboarding.
	if _, err := s.repo.GetAccount(ctx, referrerID); err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Warn("referrer lookup failed", zap.String("referrer", referrerID), zap.Error(err))
		}
		return result, nil
	}

	won, err := s.repo.SetReferredBy(ctx, userID, referrerID)
	if err != nil {
		return nil, Transient(fmt.Errorf("recording referrer for %s: %w", userID, err))
	}
	if !won {
		return result, nil
	}

	err = s.repo.ApplyAccountDelta(ctx, referrerID, models.AccountDelta{
		Balance:   s.rewards.Referral,
		Referrals: 1,
	})
	if err != nil {
		// The referral link is recorded; only the credit failed. Surface it
		// so the admin can reconcile, but the new user is onboarded.
		s.log.Error("crediting referrer failed",
			zap.String("referrer", referrerID),
			zap.String("user", userID),
			zap.Error(err))
		return result, nil
	}

	result.ReferrerCredited = true
	return result, nil
}

// Account returns the user's ledger record, creating it if needed.
func (s *LedgerService) Account(ctx context.Context, userID string) (*models.UserAccount, error) {
	acc, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, Transient(err)
	}
	return acc, nil
}

// IssuedLink describes the shortlink handed to a user
type IssuedLink struct {
	URL    string
	Reward decimal.Decimal
	// Reissued is true when the user already had an open link and got the
	// same one back instead of a fresh task.
	Reissued bool
}

// IssueShortlink hands the user a tracking link for the configured target.
// An outstanding link is returned as-is so a user cannot farm correlation
// IDs.
func (s *LedgerService) IssueShortlink(ctx context.Context, userID, targetURL string) (*IssuedLink, error) {
	acc, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, Transient(err)
	}

	if acc.LastShortlink != "" && acc.LastCorrelation != "" {
		return &IssuedLink{URL: acc.LastShortlink, Reward: s.rewards.Shortlink, Reissued: true}, nil
	}

	correlationID := uuid.NewString()
	trackingURL, err := s.links.Generate(ctx, targetURL, correlationID)
	if err != nil {
		return nil, Transient(fmt.Errorf("generating shortlink: %w", err))
	}

	err = s.repo.SetAccountFields(ctx, userID, models.AccountFields{
		LastShortlink:   &trackingURL,
		LastCorrelation: &correlationID,
	})
	if err != nil {
		return nil, Transient(fmt.Errorf("recording shortlink: %w", err))
	}

	return &IssuedLink{URL: trackingURL, Reward: s.rewards.Shortlink}, nil
}

// CheckShortlink asks the shortlink service whether the user's outstanding
// task is done and credits it. The outstanding link is cleared with a
// conditional update before crediting, so a rapid double-tap credits once.
func (s *LedgerService) CheckShortlink(ctx context.Context, userID string) (bool, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return false, ErrNoOutstandingLink
		}
		return false, Transient(err)
	}
	if acc.LastCorrelation == "" {
		return false, ErrNoOutstandingLink
	}

	completed, err := s.links.CheckStatus(ctx, acc.LastCorrelation)
	if err != nil {
		return false, Transient(fmt.Errorf("checking shortlink status: %w", err))
	}
	if !completed {
		return false, nil
	}

	won, err := s.repo.ClearShortlink(ctx, userID, acc.LastCorrelation)
	if err != nil {
		return false, Transient(err)
	}
	if !won {
		// A concurrent check already took this credit
		return false, ErrNoOutstandingLink
	}

	err = s.repo.ApplyAccountDelta(ctx, userID, models.AccountDelta{
		Balance: s.rewards.Shortlink,
		Solved:  1,
	})
	if err != nil {
		return false, Transient(fmt.Errorf("crediting shortlink: %w", err))
	}
	return true, nil
}

// ClaimChannelReward credits the channel-join bonus at most once per
// (user, channel). Membership is checked by the transport before calling.
func (s *LedgerService) ClaimChannelReward(ctx context.Context, userID, channelID string) (bool, error) {
	if _, err := s.repo.GetOrCreateAccount(ctx, userID); err != nil {
		return false, Transient(err)
	}

	first, err := s.repo.ClaimChannel(ctx, userID, channelID)
	if err != nil {
		return false, Transient(err)
	}
	if !first {
		return false, nil
	}

	err = s.repo.ApplyAccountDelta(ctx, userID, models.AccountDelta{
		Balance:        s.rewards.ChannelJoin,
		ChannelsJoined: 1,
	})
	if err != nil {
		return false, Transient(fmt.Errorf("crediting channel claim: %w", err))
	}
	return true, nil
}

// Language resolves the user's display language without creating an
// account. A stored code the catalog does not know is treated as corrupt
// state: logged and healed to the default rather than blocking the action.
func (s *LedgerService) Language(ctx context.Context, userID string) string {
	lang, err := s.repo.GetLanguage(ctx, userID)
	if err != nil {
		s.log.Warn("language lookup failed", zap.String("user", userID), zap.Error(err))
		return s.catalog.DefaultLanguage()
	}
	if lang == "" {
		return s.catalog.DefaultLanguage()
	}
	if !s.catalog.HasLanguage(lang) {
		s.log.Warn("stored language has no catalog table, using default",
			zap.String("user", userID),
			zap.String("language", lang))
		return s.catalog.DefaultLanguage()
	}
	return lang
}

// SetLanguage stores an explicit language choice
func (s *LedgerService) SetLanguage(ctx context.Context, userID, lang string) error {
	if !s.catalog.HasLanguage(lang) {
		return ErrUnknownLanguage
	}
	if err := s.repo.SetLanguage(ctx, userID, lang); err != nil {
		return Transient(err)
	}
	return nil
}

// Reward accessors, used by the transport to fill message templates.
func (s *LedgerService) ShortlinkReward() decimal.Decimal   { return s.rewards.Shortlink }
func (s *LedgerService) ReferralReward() decimal.Decimal    { return s.rewards.Referral }
func (s *LedgerService) ChannelJoinReward() decimal.Decimal { return s.rewards.ChannelJoin }

// RupeeValue converts points to rupees at the configured rate.
func (s *LedgerService) RupeeValue(points decimal.Decimal) decimal.Decimal {
	return points.Div(s.withdraw.PointsPerRupee).Round(2)
}

// MinWithdrawPoints returns the configured withdrawal floor.
func (s *LedgerService) MinWithdrawPoints() decimal.Decimal {
	return s.withdraw.MinPoints
}

// RequestWithdrawal converts the user's full balance to a pending payout
// request. The balance is debited at request time with a guarded update;
// a rejected request refunds it (see Reject).
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userID, method, details string) (*models.WithdrawalRequest, error) {
	if !models.ValidMethod(method) {
		return nil, ErrUnknownMethod
	}
	if !utils.ValidatePayoutDetails(method, details) {
		return nil, ErrInvalidDetails
	}

	acc, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, Transient(err)
	}
	if acc.Balance.LessThan(s.withdraw.MinPoints) {
		return nil, ErrBelowMinimum
	}

	points := acc.Balance
	rupees := s.RupeeValue(points)

	debited, err := s.repo.DebitBalance(ctx, userID, points)
	if err != nil {
		return nil, Transient(err)
	}
	if !debited {
		// Balance moved between the read and the debit
		return nil, ErrInsufficientBalance
	}

	id, err := s.repo.CreateWithdrawal(ctx, userID, points, rupees, method, details)
	if err != nil {
		// Hand the points back; the request was never recorded
		if rerr := s.repo.ApplyAccountDelta(ctx, userID, models.AccountDelta{Balance: points}); rerr != nil {
			s.log.Error("refund after failed withdrawal insert failed",
				zap.String("user", userID), zap.Error(rerr))
		}
		return nil, Transient(fmt.Errorf("creating withdrawal: %w", err))
	}

	req, err := s.repo.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, Transient(err)
	}
	return req, nil
}

// Approve moves a pending request to approved (through processing) and
// returns it for user notification.
func (s *LedgerService) Approve(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	if err := s.advance(ctx, id, models.StatusProcessing); err != nil {
		return nil, err
	}
	if _, err := s.repo.UpdateWithdrawalStatus(ctx, id, models.StatusApproved, ""); err != nil {
		return nil, wrapTransition(err)
	}
	return s.getRequest(ctx, id)
}

// Reject moves a request to rejected with the given reason and refunds the
// debited points to the user's ledger. The refund is caller-level policy,
// not a store rollback: a crash between the two leaves the rejection
// standing and the refund to reconcile by hand.
func (s *LedgerService) Reject(ctx context.Context, id, reason string) (*models.WithdrawalRequest, error) {
	if err := s.advance(ctx, id, models.StatusProcessing); err != nil {
		return nil, err
	}
	if _, err := s.repo.UpdateWithdrawalStatus(ctx, id, models.StatusRejected, reason); err != nil {
		return nil, wrapTransition(err)
	}

	req, err := s.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.repo.ApplyAccountDelta(ctx, req.UserID, models.AccountDelta{Balance: req.AmountPoints})
	if err != nil {
		s.log.Error("refund for rejected withdrawal failed",
			zap.String("request", id),
			zap.String("user", req.UserID),
			zap.Error(err))
	}
	return req, nil
}

// MarkPaid moves an approved request to completed.
func (s *LedgerService) MarkPaid(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	if _, err := s.repo.UpdateWithdrawalStatus(ctx, id, models.StatusCompleted, ""); err != nil {
		return nil, wrapTransition(err)
	}
	return s.getRequest(ctx, id)
}

// advance moves a request into to only when it is not already there.
func (s *LedgerService) advance(ctx context.Context, id string, to models.WithdrawalStatus) error {
	req, err := s.repo.GetWithdrawal(ctx, id)
	if err != nil {
		return wrapTransition(err)
	}
	if req.Status == to {
		return nil
	}
	if _, err := s.repo.UpdateWithdrawalStatus(ctx, id, to, ""); err != nil {
		return wrapTransition(err)
	}
	return nil
}

func (s *LedgerService) getRequest(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	req, err := s.repo.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, Transient(err)
	}
	return req, nil
}

// wrapTransition keeps validation errors typed and wraps everything else as
// transient.
func wrapTransition(err error) error {
	var invalid *models.ErrInvalidTransition
	if errors.As(err, &invalid) || errors.Is(err, repository.ErrWithdrawalNotFound) {
		return err
	}
	return Transient(err)
}

// Withdrawal returns a single request.
func (s *LedgerService) Withdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	req, err := s.repo.GetWithdrawal(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			return nil, err
		}
		return nil, Transient(err)
	}
	return req, nil
}

// Withdrawals lists requests for the admin surface.
func (s *LedgerService) Withdrawals(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, fmt.Errorf("unknown withdrawal status %q", status)
	}
	out, err := s.repo.ListWithdrawals(ctx, status, limit)
	if err != nil {
		return nil, Transient(err)
	}
	return out, nil
}
