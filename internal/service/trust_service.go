package service

import (
	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/pkg/config"
)

// TrustDecision is the outcome of evaluating a user's editing privileges.
type TrustDecision struct {
	CanEdit    bool `json:"can_edit"`
	MaxPending int  `json:"max_pending"`
}

// TrustPolicy derives a user's pending-edit ceiling from role and review
// history. Evaluation is a pure function: no I/O, no side effects. Callers
// translate CanEdit=false into a rate-limit response.
type TrustPolicy struct {
	cfg config.TrustConfig
}

// NewTrustPolicy constructs the policy with configured tiers, falling back
// to defaults for unset values.
func NewTrustPolicy(cfg config.TrustConfig) *TrustPolicy {
	if cfg.CommunityCeiling <= 0 {
		cfg.CommunityCeiling = 3
	}
	if cfg.TrustedCeiling <= 0 {
		cfg.TrustedCeiling = 10
	}
	if cfg.TrustedMinEdits <= 0 {
		cfg.TrustedMinEdits = 5
	}
	if cfg.TrustedMinRatio <= 0 {
		cfg.TrustedMinRatio = 0.8
	}
	if cfg.ModeratorCeiling <= 0 {
		cfg.ModeratorCeiling = 100
	}
	return &TrustPolicy{cfg: cfg}
}

// Evaluate computes the ceiling for the user and whether a new submission
// fits under it. The pending argument is the live count of the user's
// PENDING edits, not the cached counter.
func (p *TrustPolicy) Evaluate(user *models.User, pending int) TrustDecision {
	if user == nil || !user.Active {
		return TrustDecision{CanEdit: false, MaxPending: 0}
	}

	ceiling := p.cfg.CommunityCeiling
	if user.Role.IsModerator() {
		ceiling = p.cfg.ModeratorCeiling
	} else if p.trusted(user) {
		ceiling = p.cfg.TrustedCeiling
	}

	return TrustDecision{CanEdit: pending < ceiling, MaxPending: ceiling}
}

// trusted reports whether the user's review history earns the higher tier:
// enough reviewed edits and a strong acceptance ratio.
func (p *TrustPolicy) trusted(user *models.User) bool {
	reviewed := user.EditsAccepted + user.EditsRejected
	if reviewed < p.cfg.TrustedMinEdits {
		return false
	}
	return float64(user.EditsAccepted)/float64(reviewed) >= p.cfg.TrustedMinRatio
}
