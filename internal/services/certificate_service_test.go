package services

import (
	"github.com/google/uuid"

	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/utils"
)

func (s *ServiceTestSuite) TestSaveRegistrationStoresProductAndCertificate() {
	product := s.seed("F1-NEW", 81, "55", false)

	s.Equal(models.ProductStatusManufactured, product.Status)
	s.True(product.Verified)
	s.Equal(ownerAccount, product.ManufacturerAddress)

	cert, err := s.certificates.GetByProduct("F1-NEW")
	s.Require().NoError(err)
	s.Equal(81, cert.Score)
	s.Equal(models.StringList{"Jacket", "Formula 1"}, cert.Labels)
	s.Equal(product.ID, cert.ProductRefID)
}

func (s *ServiceTestSuite) TestSaveRegistrationRejectsDuplicate() {
	s.seed("F1-TWICE", 81, "56", true)

	_, _, err := s.certificates.SaveRegistration(&Registration{
		ProductID: "F1-TWICE",
		Name:      "Copy",
		Owner:     ownerAccount,
		Mint:      &MintResult{TokenID: "57"},
	})
	s.ErrorIs(err, ErrAlreadyExists)

	var count int64
	s.Require().NoError(s.db.Model(&models.Certificate{}).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *ServiceTestSuite) TestRecallTwiceFails() {
	s.seed("F1-BATCH", 90, "60", true)

	cert, err := s.certificates.Recall("F1-BATCH", &RecallRequest{Reason: "supplier fraud"})
	s.Require().NoError(err)
	s.True(cert.Recalled)
	s.NotNil(cert.RecalledAt)

	_, err = s.certificates.Recall("F1-BATCH", &RecallRequest{Reason: "again please"})
	s.ErrorIs(err, ErrCertificateRecall)
}

func (s *ServiceTestSuite) TestAdjustScoreRecordsHistory() {
	s.seed("F1-ADJUST", 72, "61", true)
	admin := uuid.New()

	cert, err := s.certificates.AdjustScore("F1-ADJUST", &admin, &AdjustScoreRequest{Score: 95, Reason: "manual inspection"})
	s.Require().NoError(err)
	s.Equal(95, cert.Score)
	s.Require().Len(cert.History, 1)
	s.Equal(72, cert.History[0].OldScore)
	s.Equal(95, cert.History[0].NewScore)
	s.Equal(&admin, cert.History[0].ChangedBy)
}

func (s *ServiceTestSuite) TestAdjustScoreValidatesRange() {
	s.seed("F1-RANGE", 72, "62", true)

	_, err := s.certificates.AdjustScore("F1-RANGE", nil, &AdjustScoreRequest{Score: 101, Reason: "too high"})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceTestSuite) TestListCertificatesHidesRecalled() {
	s.seed("F1-LIST-A", 90, "70", true)
	s.seed("F1-LIST-B", 90, "71", true)
	_, err := s.certificates.Recall("F1-LIST-B", &RecallRequest{Reason: "recalled batch"})
	s.Require().NoError(err)

	params := utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}
	certs, total, err := s.certificates.ListCertificates(params, false)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("F1-LIST-A", certs[0].ProductID)

	_, total, err = s.certificates.ListCertificates(params, true)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}
