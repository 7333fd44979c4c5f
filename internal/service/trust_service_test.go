package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openballot/openballot-api/internal/models"
	"github.com/openballot/openballot-api/pkg/config"
)

func TestTrustPolicyCommunityCeiling(t *testing.T) {
	policy := NewTrustPolicy(config.TrustConfig{})
	user := &models.User{Role: models.RoleCommunity, Active: true}

	decision := policy.Evaluate(user, 2)
	require.True(t, decision.CanEdit)
	require.Equal(t, 3, decision.MaxPending)

	decision = policy.Evaluate(user, 3)
	require.False(t, decision.CanEdit)
}

func TestTrustPolicyTrustedTier(t *testing.T) {
	policy := NewTrustPolicy(config.TrustConfig{})
	user := &models.User{
		Role:          models.RoleCommunity,
		Active:        true,
		EditsAccepted: 8,
		EditsRejected: 2,
	}

	decision := policy.Evaluate(user, 5)
	require.True(t, decision.CanEdit)
	require.Equal(t, 10, decision.MaxPending)
}

func TestTrustPolicyRatioExcludesTrustedTier(t *testing.T) {
	policy := NewTrustPolicy(config.TrustConfig{})
	user := &models.User{
		Role:          models.RoleCommunity,
		Active:        true,
		EditsAccepted: 3,
		EditsRejected: 3,
	}

	decision := policy.Evaluate(user, 3)
	require.False(t, decision.CanEdit)
	require.Equal(t, 3, decision.MaxPending)
}

func TestTrustPolicyFewReviewsStayCommunity(t *testing.T) {
	policy := NewTrustPolicy(config.TrustConfig{})
	user := &models.User{
		Role:          models.RoleCommunity,
		Active:        true,
		EditsAccepted: 4,
	}

	decision := policy.Evaluate(user, 0)
	require.Equal(t, 3, decision.MaxPending)
}

func TestTrustPolicyModeratorCeiling(t *testing.T) {
	policy := NewTrustPolicy(config.TrustConfig{})

	for _, role := range []models.UserRole{models.RoleModerator, models.RoleAdmin} {
		decision := policy.Evaluate(&models.User{Role: role, Active: true}, 50)
		require.True(t, decision.CanEdit)
		require.Equal(t, 100, decision.MaxPending)
	}
}

func TestTrustPolicyInactiveUser(t *testing.T) {
	policy := NewTrustPolicy(config.TrustConfig{})

	decision := policy.Evaluate(&models.User{Role: models.RoleCommunity}, 0)
	require.False(t, decision.CanEdit)
	require.Equal(t, 0, decision.MaxPending)

	decision = policy.Evaluate(nil, 0)
	require.False(t, decision.CanEdit)
}
