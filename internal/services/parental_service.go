package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/davigonia/mr-learning/internal/cache"
	"github.com/davigonia/mr-learning/internal/models"
	pgrepo "github.com/davigonia/mr-learning/internal/repositories/postgres"
	"github.com/davigonia/mr-learning/internal/utils"
)

// DefaultPIN is what a fresh household starts with until a parent changes it.
const DefaultPIN = "1234"

// ParentalService owns the household filter policy: PIN auth, filtering level,
// banned words, preferred voices and the daily time limit. Reads go through
// the cache; every write invalidates it.
type ParentalService interface {
	VerifyPIN(ctx context.Context, householdID, pin string) error
	ChangePIN(ctx context.Context, householdID, currentPIN, newPIN string) error

	Policy(ctx context.Context, householdID string) (*models.FilterPolicy, error)
	SetLevel(ctx context.Context, householdID string, level models.FilterLevel) error
	SetBannedWords(ctx context.Context, householdID string, words []string) error
	SetVoices(ctx context.Context, householdID, englishVoice, cantoneseVoice string) error
	SetTimeLimit(ctx context.Context, householdID string, minutes int) error
}

type parentalService struct {
	policies pgrepo.PolicyRepository
	c        cache.Cache
}

func NewParentalService(policies pgrepo.PolicyRepository, c cache.Cache) ParentalService {
	return &parentalService{policies: policies, c: c}
}

// Policy returns the household record, bootstrapping a default one (moderate
// filtering, default PIN) the first time a household is seen.
func (s *parentalService) Policy(ctx context.Context, householdID string) (*models.FilterPolicy, error) {
	const op = "ParentalService.Policy"

	if householdID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "household_id is required", nil)
	}

	if s.c != nil {
		var cached models.FilterPolicy
		if hit, err := s.c.GetJSON(ctx, cache.PolicyKey(householdID), &cached); err == nil && hit {
			return &cached, nil
		}
	}

	p, err := s.policies.GetByHouseholdID(ctx, householdID)
	if errors.Is(err, utils.ErrNotFound) {
		p, err = s.bootstrap(ctx, householdID)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to get policy", err)
	}

	if s.c != nil {
		_ = s.c.SetJSON(ctx, cache.PolicyKey(householdID), p, cache.DefaultPolicyTTL)
	}
	return p, nil
}

func (s *parentalService) bootstrap(ctx context.Context, householdID string) (*models.FilterPolicy, error) {
	hash, err := utils.HashPIN(DefaultPIN)
	if err != nil {
		return nil, err
	}
	p := &models.FilterPolicy{
		HouseholdID: householdID,
		PINHash:     hash,
		Level:       models.FilterModerate,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := p.SetWords(nil); err != nil {
		return nil, err
	}
	if err := s.policies.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *parentalService) VerifyPIN(ctx context.Context, householdID, pin string) error {
	const op = "ParentalService.VerifyPIN"

	if err := utils.ValidatePIN(pin); err != nil {
		return utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
	}
	p, err := s.Policy(ctx, householdID)
	if err != nil {
		return err
	}
	if err := utils.CheckPIN(p.PINHash, pin); err != nil {
		return utils.E(utils.CodeUnauthorized, op, "incorrect PIN", nil)
	}
	return nil
}

func (s *parentalService) ChangePIN(ctx context.Context, householdID, currentPIN, newPIN string) error {
	const op = "ParentalService.ChangePIN"

	if err := utils.ValidatePIN(newPIN); err != nil {
		return utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
	}
	if err := s.VerifyPIN(ctx, householdID, currentPIN); err != nil {
		return err
	}

	hash, err := utils.HashPIN(newPIN)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to hash PIN", err)
	}
	return s.update(ctx, op, householdID, func(p *models.FilterPolicy) error {
		p.PINHash = hash
		return nil
	})
}

func (s *parentalService) SetLevel(ctx context.Context, householdID string, level models.FilterLevel) error {
	const op = "ParentalService.SetLevel"

	if !level.Valid() {
		return utils.E(utils.CodeInvalidArgument, op, "invalid filtering level", nil)
	}
	return s.update(ctx, op, householdID, func(p *models.FilterPolicy) error {
		p.Level = level
		return nil
	})
}

func (s *parentalService) SetBannedWords(ctx context.Context, householdID string, words []string) error {
	const op = "ParentalService.SetBannedWords"

	return s.update(ctx, op, householdID, func(p *models.FilterPolicy) error {
		return p.SetWords(dedupWords(words))
	})
}

// dedupWords trims and deduplicates case-insensitively, keeping the first
// spelling a parent entered.
func dedupWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		key := strings.ToLower(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}

func (s *parentalService) SetVoices(ctx context.Context, householdID, englishVoice, cantoneseVoice string) error {
	const op = "ParentalService.SetVoices"

	return s.update(ctx, op, householdID, func(p *models.FilterPolicy) error {
		p.EnglishVoice = englishVoice
		p.CantoneseVoice = cantoneseVoice
		return nil
	})
}

func (s *parentalService) SetTimeLimit(ctx context.Context, householdID string, minutes int) error {
	const op = "ParentalService.SetTimeLimit"

	if minutes < 0 {
		return utils.E(utils.CodeInvalidArgument, op, "time limit must not be negative", nil)
	}
	return s.update(ctx, op, householdID, func(p *models.FilterPolicy) error {
		p.TimeLimitMinutes = minutes
		return nil
	})
}

// update applies mutate to the current record, persists it, and invalidates
// the cache so the next question sees the new policy.
func (s *parentalService) update(ctx context.Context, op, householdID string, mutate func(*models.FilterPolicy) error) error {
	p, err := s.Policy(ctx, householdID)
	if err != nil {
		return err
	}
	if err := mutate(p); err != nil {
		return utils.E(utils.CodeInvalidArgument, op, "invalid policy update", err)
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.policies.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save policy", err)
	}
	if s.c != nil {
		_ = s.c.Del(ctx, cache.PolicyKey(householdID))
	}
	return nil
}
