package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/qrpayload"
)

func (s *ServiceTestSuite) lookup(input string) *VerificationReport {
	report, err := s.verification.Lookup(context.Background(), LookupRequest{Input: input})
	s.Require().NoError(err)
	return report
}

func (s *ServiceTestSuite) TestLookupByProductID() {
	s.seed("F1-CAP-001", 92, "101", false)

	report := s.lookup("F1-CAP-001")

	s.True(report.Found)
	s.True(report.IsAuthentic)
	s.Equal(analyzer.StatusAuthentic, report.Status)
	s.Require().NotNil(report.Score)
	s.Equal(92, *report.Score)

	var entry models.VerificationLog
	s.Require().NoError(s.db.First(&entry, "id = ?", report.VerificationID).Error)
	s.Equal(models.VerificationMethodManualSearch, entry.Method)
	s.Equal(models.VerificationStatusSuccess, entry.Status)
	s.NotNil(entry.CertificateID)
}

func (s *ServiceTestSuite) TestLookupByQRPayload() {
	s.seed("F1-SHIRT-9", 55, "202", false)

	raw, err := json.Marshal(qrpayload.Payload{ProductID: "F1-SHIRT-9", Score: 55, Verified: true})
	s.Require().NoError(err)
	report := s.lookup(string(raw))

	s.True(report.Found)
	s.False(report.IsAuthentic)
	s.Equal(analyzer.StatusSuspicious, report.Status)
	s.Equal(qrpayload.KindJSON, report.Decoded.Kind)

	var entry models.VerificationLog
	s.Require().NoError(s.db.First(&entry, "id = ?", report.VerificationID).Error)
	s.Equal(models.VerificationMethodQRScan, entry.Method)
}

func (s *ServiceTestSuite) TestLookupByTokenID() {
	s.seed("F1-HAT-3", 88, "303", false)

	s.True(s.lookup("#303").Found)
	s.True(s.lookup("303").Found)
	s.True(s.lookup(`{"tokenId":"303"}`).Found)
	s.True(s.lookup("https://apex.example/verify/F1-HAT-3").Found)
}

func (s *ServiceTestSuite) TestLookupUnknownIsLogged() {
	report := s.lookup("F1-NOPE")

	s.False(report.Found)
	s.False(report.IsAuthentic)
	s.Equal(ReasonNotFound, report.Reason)

	var entry models.VerificationLog
	s.Require().NoError(s.db.First(&entry, "id = ?", report.VerificationID).Error)
	s.Equal(models.VerificationStatusFailed, entry.Status)
	s.Nil(entry.ProductRefID)
	s.Nil(entry.CertificateID)
}

func (s *ServiceTestSuite) TestLookupRecalledCertificate() {
	s.seed("F1-RECALL", 95, "404", false)
	_, err := s.certificates.Recall("F1-RECALL", &RecallRequest{Reason: "counterfeit batch"})
	s.Require().NoError(err)

	report := s.lookup("F1-RECALL")

	s.True(report.Found)
	s.False(report.IsAuthentic)
	s.Equal(ReasonRecalled, report.Reason)
	s.Require().NotNil(report.Certificate)
	s.True(report.Certificate.Recalled)
}

func (s *ServiceTestSuite) TestLookupRejectsEmptyInput() {
	_, err := s.verification.Lookup(context.Background(), LookupRequest{Input: "   "})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceTestSuite) TestVerifyProductOnChain() {
	s.seed("F1-CHAIN", 90, "42", false)
	s.contract.onChainIDs["F1-CHAIN"] = 42

	result, err := s.verification.VerifyProduct(context.Background(), "F1-CHAIN",
		&VerifyProductRequest{Method: models.VerificationMethodBlockchain}, RequestMeta{IPAddress: "127.0.0.1"})
	s.Require().NoError(err)

	s.True(result.Verified)
	s.Equal(ConfidenceBlockchain, result.Confidence)
	s.Equal(models.ProductStatusVerified, result.Product.Status)
	s.Equal(models.VerificationStatusSuccess, result.Log.Status)
}

func (s *ServiceTestSuite) TestVerifyProductTokenMismatch() {
	s.seed("F1-MISMATCH", 90, "42", false)
	s.contract.onChainIDs["F1-MISMATCH"] = 43

	result, err := s.verification.VerifyProduct(context.Background(), "F1-MISMATCH",
		&VerifyProductRequest{Method: models.VerificationMethodBlockchain}, RequestMeta{})
	s.Require().NoError(err)
	s.Equal(ConfidenceBlockchainMismatch, result.Confidence)
}

func (s *ServiceTestSuite) TestVerifyProductChainError() {
	s.seed("F1-DOWN", 90, "42", false)
	s.contract.verifyError = errors.New("rpc unavailable")

	result, err := s.verification.VerifyProduct(context.Background(), "F1-DOWN",
		&VerifyProductRequest{Method: models.VerificationMethodBlockchain}, RequestMeta{})
	s.Require().NoError(err)
	s.False(result.Verified)
	s.Equal(models.VerificationStatusFailed, result.Log.Status)
}

func (s *ServiceTestSuite) TestVerifyProductManual() {
	s.seed("F1-MANUAL", 90, "42", false)

	result, err := s.verification.VerifyProduct(context.Background(), "F1-MANUAL",
		&VerifyProductRequest{Method: models.VerificationMethodManual, Notes: "stitching checked"}, RequestMeta{})
	s.Require().NoError(err)
	s.True(result.Verified)
	s.Equal(ConfidenceManual, result.Confidence)
}

func (s *ServiceTestSuite) TestVerifyProductUnknown() {
	_, err := s.verification.VerifyProduct(context.Background(), "F1-MISSING",
		&VerifyProductRequest{Method: models.VerificationMethodVisual}, RequestMeta{})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestRecentVerifications() {
	s.seed("F1-RECENT", 90, "1", false)
	s.lookup("F1-RECENT")
	s.lookup("F1-UNKNOWN")

	logs, err := s.verification.RecentVerifications(10)
	s.Require().NoError(err)
	s.Len(logs, 2)
}
