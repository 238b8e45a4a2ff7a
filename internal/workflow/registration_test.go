package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/qrpayload"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/wallet"
)

const (
	ownerAccount    = "0x1111111111111111111111111111111111111111"
	contractAddress = "0x3333333333333333333333333333333333333333"
)

func samplePNG(t *testing.T) *analyzer.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 220, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	out, err := analyzer.ImageFromBytes(buf.Bytes(), "")
	require.NoError(t, err)
	return out
}

// blockingAnalyzer holds Analyze until release is closed.
type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, img *analyzer.Image) (*analyzer.Analysis, error) {
	close(b.started)
	<-b.release
	return &analyzer.Analysis{Score: 40, Status: analyzer.Classify(40)}, nil
}

type stubContract struct {
	mints int
	err   error
}

func (c *stubContract) Address() common.Address { return common.HexToAddress(contractAddress) }

func (c *stubContract) MintCertificate(context.Context, wallet.MintRequest) (*wallet.Receipt, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mints++
	return &wallet.Receipt{TxHash: "0xfeed", BlockNumber: 12, TokenID: "7"}, nil
}

func (c *stubContract) TransferProduct(context.Context, *big.Int, common.Address) (*wallet.Receipt, error) {
	return &wallet.Receipt{TxHash: "0xbeef"}, nil
}

func (c *stubContract) VerifyCertificate(context.Context, string) (bool, *big.Int, error) {
	return true, big.NewInt(7), nil
}

func (c *stubContract) TotalSupply(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

// gatedContract holds MintCertificate until proceed is closed, then fails if its context
// was cancelled in the meantime.
type gatedContract struct {
	stubContract
	started chan struct{}
	proceed chan struct{}
}

func (c *gatedContract) MintCertificate(ctx context.Context, req wallet.MintRequest) (*wallet.Receipt, error) {
	close(c.started)
	<-c.proceed
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("waiting for receipt: %w", err)
	}
	return c.stubContract.MintCertificate(ctx, req)
}

type RegistrationTestSuite struct {
	suite.Suite
	db  *gorm.DB
	cfg *config.Config
}

func (s *RegistrationTestSuite) SetupTest() {
	db, err := database.OpenMemory()
	s.Require().NoError(err)
	s.db = db
	s.cfg = &config.Config{Workflow: config.WorkflowConfig{
		IDPrefix:           "F1",
		VerifyURL:          "https://apex.example/verify",
		AllowSimulatedMint: true,
	}}
}

func (s *RegistrationTestSuite) TearDownTest() {
	database.Close(s.db)
}

func (s *RegistrationTestSuite) deps(a analyzer.AuthenticityAnalyzer, session *wallet.Session) Deps {
	return Deps{
		Config:       s.cfg.Workflow,
		Analyzer:     a,
		Wallet:       session,
		Minting:      services.NewMintingService(s.cfg, session, nil, nil),
		Certificates: services.NewCertificateService(s.db),
		Now:          func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		Rand:         rand.New(rand.NewSource(1)),
	}
}

func (s *RegistrationTestSuite) memorySession() *wallet.Session {
	return wallet.NewSession(wallet.NewMemoryProvider("0x13882", ownerAccount), "")
}

func (s *RegistrationTestSuite) readyRegistration(deps Deps, productID string) *Registration {
	reg := NewRegistration("reg-1", ownerAccount, deps)
	s.Require().NoError(reg.SubmitDetails(Details{
		ProductID:   productID,
		Name:        "Team Cap",
		Description: "Official team cap",
	}))
	s.Require().NoError(reg.AttachImage(samplePNG(s.T())))
	return reg
}

func (s *RegistrationTestSuite) countRows(model interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(model).Count(&n).Error)
	return n
}

func (s *RegistrationTestSuite) TestSimulatedMintCompletes() {
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 85, Labels: []string{"Cap"}}, s.memorySession()), "F1-CAP-1")

	outcome, err := reg.Verify(context.Background())
	s.Require().NoError(err)

	s.Equal(OutcomeCompleted, outcome.Kind)
	s.Require().NotNil(outcome.Score)
	s.Equal(85, *outcome.Score)
	s.Equal(StepComplete, reg.Step())

	snap := reg.Snapshot()
	s.Equal(100, snap.Progress)
	s.Require().NotNil(snap.Result)
	s.True(snap.Result.Simulated)
	s.Contains(snap.Result.QRCode, "data:image/png;base64,")
	s.Equal(ownerAccount, snap.Result.Product.OwnerAddress)
	s.True(snap.Result.Product.Verified)

	var cert models.Certificate
	s.Require().NoError(s.db.First(&cert).Error)
	s.True(cert.Simulated)
	s.Equal(85, cert.Score)
	s.Equal(int64(1), s.countRows(&models.Product{}))
}

func (s *RegistrationTestSuite) TestOnChainMintEncodesTokenInQR() {
	contract := &stubContract{}
	session := wallet.NewSession(wallet.NewMemoryProvider("0x13882", ownerAccount), contractAddress,
		wallet.WithContractBinder(func(common.Address, common.Address, wallet.Provider) wallet.Contract { return contract }))
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 92}, session), "F1-JACKET")

	outcome, err := reg.Verify(context.Background())
	s.Require().NoError(err)
	s.Equal(OutcomeCompleted, outcome.Kind)
	s.Equal(1, contract.mints)

	result := reg.Snapshot().Result
	s.Require().NotNil(result)
	s.False(result.Simulated)
	s.Require().NotNil(result.Product.TokenID)
	s.Equal("7", *result.Product.TokenID)

	img, err := analyzer.ImageFromDataURI(result.QRCode)
	s.Require().NoError(err)
	decoded, err := qrpayload.DecodeImage(img.Data)
	s.Require().NoError(err)
	s.Require().NotNil(decoded.Payload)
	s.Equal("F1-JACKET", decoded.Payload.ProductID)
	s.Equal("7", decoded.Payload.TokenID)
	s.Equal(92, decoded.Payload.Score)
}

func (s *RegistrationTestSuite) TestLowScoreIsRejected() {
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 50}, s.memorySession()), "F1-FAKE")

	outcome, err := reg.Verify(context.Background())
	s.Require().NoError(err)

	s.Equal(OutcomeRejected, outcome.Kind)
	s.Equal(i18n.KeyRegistrationRejected, outcome.MessageKey)
	s.Equal([]interface{}{50}, outcome.MessageArgs)
	s.Equal(StepImage, reg.Step())
	s.True(reg.Snapshot().HasImage)
	s.Equal(int64(0), s.countRows(&models.Product{}))
	s.Equal(int64(0), s.countRows(&models.Certificate{}))
}

func (s *RegistrationTestSuite) TestMissingWalletAbortsWithoutCertificate() {
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 90}, nil), "F1-NOWALLET")

	outcome, err := reg.Verify(context.Background())
	s.Require().NoError(err)

	s.Equal(OutcomeFailed, outcome.Kind)
	s.Equal(i18n.KeyRegistrationWalletMissing, outcome.MessageKey)
	s.ErrorIs(outcome.Err, wallet.ErrProviderMissing)
	s.Equal(StepImage, reg.Step())
	s.Equal(int64(0), s.countRows(&models.Certificate{}))
}

func (s *RegistrationTestSuite) TestRejectedWalletRequest() {
	provider := wallet.NewMemoryProvider("0x13882", ownerAccount)
	provider.Handle("eth_requestAccounts", func([]interface{}) (interface{}, error) {
		return nil, &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
	})
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 90}, wallet.NewSession(provider, "")), "F1-REJECT")

	outcome, err := reg.Verify(context.Background())
	s.Require().NoError(err)
	s.Equal(i18n.KeyRegistrationWalletRejected, outcome.MessageKey)
	s.Equal(int64(0), s.countRows(&models.Product{}))
}

func (s *RegistrationTestSuite) TestAnalyzerErrorFails() {
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Err: analyzer.ErrAnalysisFailed}, s.memorySession()), "F1-ERR")

	outcome, err := reg.Verify(context.Background())
	s.Require().NoError(err)

	s.Equal(OutcomeFailed, outcome.Kind)
	s.Equal(i18n.KeyRegistrationAnalysisFailed, outcome.MessageKey)
	s.Nil(outcome.Score)
	s.Equal(StepImage, reg.Step())
}

func (s *RegistrationTestSuite) TestMintErrorFails() {
	contract := &stubContract{err: errors.New("execution reverted")}
	session := wallet.NewSession(wallet.NewMemoryProvider("0x13882", ownerAccount), contractAddress,
		wallet.WithContractBinder(func(common.Address, common.Address, wallet.Provider) wallet.Contract { return contract }))
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 90}, session), "F1-REVERT")

	outcome, err := reg.Verify(context.Background())
	s.Require().NoError(err)
	s.Equal(i18n.KeyRegistrationMintFailed, outcome.MessageKey)
	s.Equal(int64(0), s.countRows(&models.Product{}))
}

func (s *RegistrationTestSuite) TestDuplicateProductIDFailsPersistence() {
	deps := s.deps(&analyzer.StaticAnalyzer{Score: 90}, s.memorySession())

	first := s.readyRegistration(deps, "F1-DUP")
	outcome, err := first.Verify(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(OutcomeCompleted, outcome.Kind)

	second := s.readyRegistration(deps, "F1-DUP")
	outcome, err = second.Verify(context.Background())
	s.Require().NoError(err)

	s.Equal(OutcomeFailed, outcome.Kind)
	s.Equal(i18n.KeyRegistrationDuplicate, outcome.MessageKey)
	s.ErrorIs(outcome.Err, services.ErrAlreadyExists)
	s.Equal(int64(1), s.countRows(&models.Certificate{}))
}

func (s *RegistrationTestSuite) TestInvalidDetailsStayOnDetailsStep() {
	reg := NewRegistration("reg-2", ownerAccount, s.deps(&analyzer.StaticAnalyzer{Score: 90}, nil))

	err := reg.SubmitDetails(Details{Name: "  ", Description: "Cap"})
	s.Error(err)
	s.Equal(StepDetails, reg.Step())
	s.Equal(0, reg.Snapshot().Progress)
}

func (s *RegistrationTestSuite) TestBlankProductIDIsGenerated() {
	reg := NewRegistration("reg-3", ownerAccount, s.deps(&analyzer.StaticAnalyzer{Score: 90}, nil))

	s.Require().NoError(reg.SubmitDetails(Details{Name: "Cap", Description: "Team cap"}))

	snap := reg.Snapshot()
	s.Regexp(`^F1-\d+-\d{1,3}$`, snap.Details.ProductID)
	s.Equal(StepImage, snap.Step)
	s.Equal(25, snap.Progress)
}

func (s *RegistrationTestSuite) TestStepGuards() {
	reg := NewRegistration("reg-4", ownerAccount, s.deps(&analyzer.StaticAnalyzer{Score: 90}, nil))

	s.ErrorIs(reg.AttachImage(samplePNG(s.T())), ErrWrongStep)
	_, err := reg.Verify(context.Background())
	s.ErrorIs(err, ErrWrongStep)

	s.Require().NoError(reg.SubmitDetails(Details{Name: "Cap", Description: "Team cap"}))
	_, err = reg.Verify(context.Background())
	s.ErrorIs(err, ErrImageRequired)
	s.ErrorIs(reg.AttachImage(nil), ErrImageRequired)
}

func (s *RegistrationTestSuite) TestConcurrentVerifyIsBusy() {
	blocking := &blockingAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	reg := s.readyRegistration(s.deps(blocking, nil), "F1-BUSY")

	done := make(chan *Outcome)
	go func() {
		outcome, _ := reg.Verify(context.Background())
		done <- outcome
	}()
	<-blocking.started

	_, err := reg.Verify(context.Background())
	s.ErrorIs(err, ErrBusy)
	s.ErrorIs(reg.Dismiss(), ErrBusy)
	s.True(reg.Snapshot().Busy)

	close(blocking.release)
	outcome := <-done
	s.Equal(OutcomeRejected, outcome.Kind)
	s.False(reg.Snapshot().Busy)
}

func (s *RegistrationTestSuite) TestCallerCancelDoesNotAbortMint() {
	contract := &gatedContract{started: make(chan struct{}), proceed: make(chan struct{})}
	session := wallet.NewSession(wallet.NewMemoryProvider("0x13882", ownerAccount), contractAddress,
		wallet.WithContractBinder(func(common.Address, common.Address, wallet.Provider) wallet.Contract { return contract }))
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 90}, session), "F1-INFLIGHT")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Outcome)
	go func() {
		outcome, _ := reg.Verify(ctx)
		done <- outcome
	}()

	<-contract.started
	cancel()
	close(contract.proceed)

	outcome := <-done
	s.Require().NotNil(outcome)
	s.Equal(OutcomeCompleted, outcome.Kind)
	s.Equal(StepComplete, reg.Step())
	s.Equal(1, contract.mints)
	s.Equal(int64(1), s.countRows(&models.Certificate{}))
}

func (s *RegistrationTestSuite) TestDismissResets() {
	reg := s.readyRegistration(s.deps(&analyzer.StaticAnalyzer{Score: 85}, s.memorySession()), "F1-RESET")
	_, err := reg.Verify(context.Background())
	s.Require().NoError(err)

	s.Require().NoError(reg.Dismiss())

	snap := reg.Snapshot()
	s.Equal(StepDetails, snap.Step)
	s.Empty(snap.Details.ProductID)
	s.False(snap.HasImage)
	s.Nil(snap.Result)
	s.Nil(snap.Outcome)
}

func TestRegistrationTestSuite(t *testing.T) {
	suite.Run(t, new(RegistrationTestSuite))
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(Deps{Analyzer: &analyzer.StaticAnalyzer{Score: 90}}, time.Minute)

	reg := m.Create(ownerAccount)
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(reg.ID())
	require.NoError(t, err)
	assert.Same(t, reg, got)
	assert.Equal(t, ownerAccount, got.Owner())

	m.Delete(reg.ID())
	_, err = m.Get(reg.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, m.Count())
}
