package cod

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"bazaar/internal/config"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
)

// Order outcomes the risk scorer reacts to.
const (
	OutcomeSuccess = "success" // delivered and cash collected
	OutcomeReturn  = "return"  // refused or returned to origin
	OutcomeFailure = "failure" // delivery failed, address issues, fraud
)

// RiskScorer maintains the rolling per-customer risk profile that gates COD
// eligibility.
type RiskScorer interface {
	GetProfile(ctx context.Context, customerID string) (*models.CustomerRiskProfile, error)
	RecordOrderOutcome(ctx context.Context, customerID, outcome string) (*models.CustomerRiskProfile, error)
}

type riskScorer struct {
	repo  repositories.RiskRepository
	store cache.Store
	cfg   config.Settlement
}

func NewRiskScorer(repo repositories.RiskRepository, store cache.Store, cfg config.Settlement) RiskScorer {
	return &riskScorer{repo: repo, store: store, cfg: cfg}
}

// GetProfile returns the stored profile, or a neutral unsaved one for a
// customer with no history. The neutral profile is not persisted until the
// first recorded outcome.
func (s *riskScorer) GetProfile(ctx context.Context, customerID string) (*models.CustomerRiskProfile, error) {
	var cached models.CustomerRiskProfile
	if found, err := s.store.Get(ctx, cache.RiskProfileKey(customerID), &cached); err == nil && found {
		return &cached, nil
	}

	p, err := s.repo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRiskProfileNotFound) {
			return neutralProfile(customerID), nil
		}
		return nil, err
	}

	if err := s.store.Set(ctx, cache.RiskProfileKey(customerID), p, s.cfg.RiskCacheTTL); err != nil {
		log.Printf("failed to cache risk profile %s: %v", customerID, err)
	}
	return p, nil
}

// RecordOrderOutcome folds one order outcome into the profile. Successful
// deliveries lower the score, returns and failures raise it; the score stays
// inside [0, 100].
func (s *riskScorer) RecordOrderOutcome(ctx context.Context, customerID, outcome string) (*models.CustomerRiskProfile, error) {
	p, err := s.repo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if !errors.Is(err, repositories.ErrRiskProfileNotFound) {
			return nil, err
		}
		p = neutralProfile(customerID)
	}

	p.TotalOrders++
	switch outcome {
	case OutcomeSuccess:
		p.SuccessfulCODOrders++
		p.RiskScore -= s.cfg.RiskDeltaSuccess
	case OutcomeReturn:
		p.ReturnedOrders++
		p.RiskScore += s.cfg.RiskDeltaReturn
	case OutcomeFailure:
		p.FailedCODOrders++
		p.RiskScore += s.cfg.RiskDeltaFailure
	default:
		return nil, ErrUnknownOutcome
	}
	p.RiskScore = clampScore(p.RiskScore)
	p.RiskLevel = models.LevelForScore(p.RiskScore)
	if p.TotalOrders > 0 {
		p.ReturnRate = float64(p.ReturnedOrders) / float64(p.TotalOrders)
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, cache.RiskProfileKey(customerID)); err != nil {
		log.Printf("failed to invalidate risk profile %s: %v", customerID, err)
	}

	slog.Info("risk profile updated",
		"customer_id", customerID, "outcome", outcome,
		"score", p.RiskScore, "level", p.RiskLevel)
	return p, nil
}

func neutralProfile(customerID string) *models.CustomerRiskProfile {
	return &models.CustomerRiskProfile{
		CustomerID: customerID,
		RiskScore:  models.NeutralRiskScore,
		RiskLevel:  models.LevelForScore(models.NeutralRiskScore),
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
