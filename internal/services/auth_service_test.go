package services

import (
	"time"

	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

func (s *ServiceTestSuite) TestRegisterAndLogin() {
	utils.SetJWTSecret(s.cfg.JWT.SecretKey)
	auth := NewAuthService(s.db, s.cfg)

	registered, err := auth.Register(&RegisterRequest{
		Email:         "Team@Example.com",
		Password:      "PitStop123!",
		DisplayName:   "Team",
		Role:          models.UserRoleManufacturer,
		WalletAddress: ownerAccount,
	})
	s.Require().NoError(err)
	s.Equal("team@example.com", registered.User.Email)
	s.Equal("Bearer", registered.TokenType)
	s.Equal(3600, registered.ExpiresIn)

	claims, err := utils.ValidateJWT(registered.AccessToken)
	s.Require().NoError(err)
	s.Equal(string(models.UserRoleManufacturer), claims.Role)
	s.Equal(ownerAccount, claims.WalletAddress)

	_, err = auth.Register(&RegisterRequest{Email: "team@example.com", Password: "PitStop123!"})
	s.ErrorIs(err, ErrAlreadyExists)

	loggedIn, err := auth.Login(&LoginRequest{Email: "team@example.com", Password: "PitStop123!"})
	s.Require().NoError(err)
	s.NotNil(loggedIn.User.LastLoginAt)

	_, err = auth.Login(&LoginRequest{Email: "team@example.com", Password: "wrong-password"})
	s.ErrorIs(err, ErrUnauthorized)

	refreshed, err := auth.RefreshToken(loggedIn.RefreshToken)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, refreshed.User.ID)
}

func (s *ServiceTestSuite) TestRegisterRejectsAdminRoleAndWeakPassword() {
	auth := NewAuthService(s.db, s.cfg)

	_, err := auth.Register(&RegisterRequest{Email: "boss@example.com", Password: "PitStop123!", Role: models.UserRoleAdmin})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = auth.Register(&RegisterRequest{Email: "weak@example.com", Password: "short"})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceTestSuite) TestDashboardStats() {
	s.seed("F1-STATS-A", 90, "90", true)
	s.seed("F1-STATS-B", 70, "91", false)
	s.lookup("F1-STATS-A")
	s.lookup("F1-STATS-MISSING")

	admin := NewAdminService(s.db)
	stats, err := admin.GetDashboardStats()
	s.Require().NoError(err)

	s.Equal(int64(2), stats.TotalProducts)
	s.Equal(int64(2), stats.TotalCertificates)
	s.Equal(int64(1), stats.SimulatedCertificates)
	s.InDelta(80.0, stats.AverageScore, 0.001)
	s.Equal(int64(2), stats.TotalVerifications)
	s.Equal(int64(1), stats.SuccessfulVerification)
	s.InDelta(50.0, stats.AuthenticRate, 0.001)
	s.Equal(int64(2), stats.ProductsByStatus[models.ProductStatusManufactured])

	analytics, err := admin.GetAnalytics(time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour),
		[]string{MetricRegistrations, MetricVerifications, "unknown"})
	s.Require().NoError(err)
	s.Equal(int64(2), analytics[MetricRegistrations])
	s.Equal(int64(2), analytics[MetricVerifications])
	s.NotContains(analytics, "unknown")
}
