// Package workflow drives a product registration from details entry to a minted certificate.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/metrics"
	"github.com/apexchain/apex-backend/internal/models"
	"github.com/apexchain/apex-backend/internal/qrpayload"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/utils"
	"github.com/apexchain/apex-backend/internal/wallet"
)

// Step is the position of a registration in its workflow.
type Step string

const (
	StepDetails  Step = "details"
	StepImage    Step = "image"
	StepVerify   Step = "verify"
	StepMint     Step = "mint"
	StepComplete Step = "complete"
)

// progress reported to clients for each step
var stepProgress = map[Step]int{
	StepDetails:  0,
	StepImage:    25,
	StepVerify:   50,
	StepMint:     75,
	StepComplete: 100,
}

var (
	ErrBusy          = errors.New("verification already in progress")
	ErrWrongStep     = errors.New("action not allowed at this step")
	ErrImageRequired = errors.New("an image is required")
)

// Details is the product information entered in the first step.
type Details struct {
	ProductID   string `json:"product_id" validate:"max=100"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=5000"`
}

type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeRejected is a business rule failure: the score is below the mint threshold.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeFailed is a technical failure: analysis, wallet, mint or persistence.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the result of one Verify call.
type Outcome struct {
	Kind        OutcomeKind   `json:"kind"`
	MessageKey  string        `json:"message_key"`
	MessageArgs []interface{} `json:"-"`
	Score       *int          `json:"authenticity_score,omitempty"`
	Err         error         `json:"-"`
}

// Message renders the outcome in lang.
func (o *Outcome) Message(lang string) string {
	return i18n.T(lang, o.MessageKey, o.MessageArgs...)
}

// Result is what a completed registration produced.
type Result struct {
	Product     *models.Product     `json:"product"`
	Certificate *models.Certificate `json:"certificate"`
	QRCode      string              `json:"qr_code"`
	Simulated   bool                `json:"simulated"`
}

// Snapshot is a read-only view of a registration.
type Snapshot struct {
	ID           string             `json:"id"`
	Step         Step               `json:"step"`
	Progress     int                `json:"progress"`
	Busy         bool               `json:"busy"`
	Details      Details            `json:"details"`
	HasImage     bool               `json:"has_image"`
	ImagePreview string             `json:"image_preview,omitempty"`
	Analysis     *analyzer.Analysis `json:"analysis,omitempty"`
	Outcome      *Outcome           `json:"outcome,omitempty"`
	Result       *Result            `json:"result,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Deps are the collaborators of a registration.
type Deps struct {
	Config       config.WorkflowConfig
	Analyzer     analyzer.AuthenticityAnalyzer
	Wallet       *wallet.Session
	Minting      *services.MintingService
	Certificates *services.CertificateService
	// Storage is optional. Without it images and QR codes are kept as data URIs.
	Storage *services.StorageService
	Metrics *metrics.Metrics
	Now     func() time.Time
	Rand    *rand.Rand
}

// Registration is one registration workflow. Verify must not run in parallel on the same
// instance; a second call while one is running fails with ErrBusy.
type Registration struct {
	id    string
	owner string
	deps  *Deps
	log   *logrus.Entry

	mu        sync.Mutex
	busy      bool
	step      Step
	details   Details
	image     *analyzer.Image
	analysis  *analyzer.Analysis
	outcome   *Outcome
	result    *Result
	updatedAt time.Time
}

// NewRegistration starts a registration at the details step.
func NewRegistration(id, owner string, d Deps) *Registration {
	deps := &d
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registration{
		id:        id,
		owner:     owner,
		deps:      deps,
		log:       logrus.WithFields(logrus.Fields{"component": "registration", "registration_id": id}),
		step:      StepDetails,
		updatedAt: deps.Now(),
	}
}

func (r *Registration) ID() string    { return r.id }
func (r *Registration) Owner() string { return r.owner }

// SubmitDetails records the product details and moves to the image step. A blank product id
// is generated from the configured prefix.
func (r *Registration) SubmitDetails(d Details) error {
	d.ProductID = strings.TrimSpace(d.ProductID)
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)

	if err := utils.ValidateStruct(&d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return ErrBusy
	}
	if r.step != StepDetails && r.step != StepImage {
		return fmt.Errorf("%w: %s", ErrWrongStep, r.step)
	}

	if d.ProductID == "" {
		d.ProductID = r.generateProductID()
	}

	r.details = d
	r.step = StepImage
	r.touch()
	return nil
}

func (r *Registration) generateProductID() string {
	prefix := r.deps.Config.IDPrefix
	if prefix == "" {
		prefix = "F1"
	}
	return fmt.Sprintf("%s-%d-%d", prefix, r.deps.Now().UnixMilli(), r.deps.Rand.Intn(1000))
}

// AttachImage sets the photo to analyze. It replaces any earlier image.
func (r *Registration) AttachImage(img *analyzer.Image) error {
	if img == nil || len(img.Data) == 0 {
		return ErrImageRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return ErrBusy
	}
	if r.step != StepImage {
		return fmt.Errorf("%w: %s", ErrWrongStep, r.step)
	}

	r.image = img
	r.analysis = nil
	r.outcome = nil
	r.touch()
	return nil
}

// Verify analyzes the image and, when the score reaches the mint threshold, mints and stores
// the certificate. Every failure returns the registration to the image step.
// Cancelling ctx does not abort an analyzer or mint call that is already issued.
func (r *Registration) Verify(ctx context.Context) (*Outcome, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	if r.step != StepImage {
		step := r.step
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWrongStep, step)
	}
	if r.image == nil {
		r.mu.Unlock()
		return nil, ErrImageRequired
	}
	r.busy = true
	r.step = StepVerify
	r.outcome = nil
	r.touch()
	details := r.details
	img := r.image
	r.mu.Unlock()

	outcome, analysis, result := r.run(context.WithoutCancel(ctx), details, img)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	r.analysis = analysis
	r.outcome = outcome
	if outcome.Kind == OutcomeCompleted {
		r.step = StepComplete
		r.result = result
	} else {
		r.step = StepImage
	}
	r.touch()

	r.deps.Metrics.RecordOutcome(string(outcome.Kind))
	return outcome, nil
}

func (r *Registration) run(ctx context.Context, details Details, img *analyzer.Image) (*Outcome, *analyzer.Analysis, *Result) {
	started := time.Now()
	analysis, err := r.deps.Analyzer.Analyze(ctx, img)
	r.deps.Metrics.ObserveAnalysis(time.Since(started).Seconds(), err != nil)
	if err != nil {
		r.log.WithError(err).Warn("Image analysis failed")
		return &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationAnalysisFailed, Err: err}, nil, nil
	}

	score := analysis.Score
	if !analyzer.PassesMintThreshold(score) {
		return &Outcome{
			Kind:        OutcomeRejected,
			MessageKey:  i18n.KeyRegistrationRejected,
			MessageArgs: []interface{}{score},
			Score:       &score,
		}, analysis, nil
	}

	r.mu.Lock()
	r.step = StepMint
	r.touch()
	r.mu.Unlock()

	result, outcome := r.mint(ctx, details, img, analysis)
	outcome.Score = &score
	return outcome, analysis, result
}

// mint connects the wallet, mints the certificate and persists product and certificate.
// Nothing is written to the database unless both wallet and mint succeed.
func (r *Registration) mint(ctx context.Context, details Details, img *analyzer.Image, analysis *analyzer.Analysis) (*Result, *Outcome) {
	account, err := r.connectWallet(ctx)
	if err != nil {
		return nil, walletOutcome(err)
	}

	verifiedAt := r.deps.Now().UTC()
	var uploaded []string

	imageURL, key, err := r.store(img.Data, img.MIMEType, img.Extension(), services.CategoryProductImages)
	if err != nil {
		r.log.WithError(err).Error("Failed to store product image")
		return nil, &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationSaveFailed, Err: err}
	}
	if key != "" {
		uploaded = append(uploaded, key)
	}
	if imageURL == "" {
		imageURL = img.DataURI()
	}

	payload := qrpayload.Payload{
		ProductID: details.ProductID,
		Score:     analysis.Score,
		Timestamp: verifiedAt.Format(time.RFC3339),
		Verified:  true,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		r.cleanup(uploaded)
		return nil, &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationMintFailed, Err: err}
	}

	minted, err := r.deps.Minting.Mint(ctx, services.MintInput{
		Owner:       account,
		ProductID:   details.ProductID,
		Description: details.Description,
		ImageURL:    imageURL,
		Score:       analysis.Score,
		Labels:      analysis.Labels,
		QRPayload:   string(payloadJSON),
		VerifiedAt:  verifiedAt,
	})
	if err != nil {
		r.cleanup(uploaded)
		r.log.WithError(err).Error("Certificate mint failed")
		if wallet.IsUserRejected(err) {
			return nil, &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationWalletRejected, Err: err}
		}
		return nil, &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationMintFailed, Err: err}
	}

	payload.TokenID = minted.TokenID
	payload.ContractAddress = minted.ContractAddress
	png, err := qrpayload.Encode(payload)
	if err != nil {
		r.cleanup(uploaded)
		return nil, &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationMintFailed, Err: err}
	}
	qrURL, qrKey, err := r.store(png, "image/png", ".png", services.CategoryQRCodes)
	if err != nil {
		r.log.WithError(err).Warn("Failed to store QR code, keeping it inline")
	}
	if qrKey != "" {
		uploaded = append(uploaded, qrKey)
	}
	if qrURL == "" {
		qrURL = qrpayload.DataURI(png)
	}

	product, cert, err := r.deps.Certificates.SaveRegistration(&services.Registration{
		ProductID:   details.ProductID,
		Name:        details.Name,
		Description: details.Description,
		Owner:       account,
		ImageURL:    imageURL,
		QRCode:      qrURL,
		Score:       analysis.Score,
		Labels:      analysis.Labels,
		Logo:        analysis.LogoDetected,
		Mint:        minted,
		MintedAt:    verifiedAt,
	})
	if err != nil {
		r.cleanup(uploaded)
		fields := logrus.Fields{"product_id": details.ProductID, "token_id": minted.TokenID, "tx_hash": minted.TransactionHash}
		if !minted.Simulated {
			r.log.WithFields(fields).WithError(err).Error("Certificate minted on chain but the registration could not be saved")
		} else {
			r.log.WithFields(fields).WithError(err).Error("Failed to save registration")
		}
		if errors.Is(err, services.ErrAlreadyExists) {
			return nil, &Outcome{
				Kind:        OutcomeFailed,
				MessageKey:  i18n.KeyRegistrationDuplicate,
				MessageArgs: []interface{}{details.ProductID},
				Err:         err,
			}
		}
		return nil, &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationSaveFailed, Err: err}
	}

	r.log.WithFields(logrus.Fields{
		"product_id": product.ProductID,
		"token_id":   minted.TokenID,
		"simulated":  minted.Simulated,
	}).Info("Product registered")

	return &Result{
		Product:     product,
		Certificate: cert,
		QRCode:      qrURL,
		Simulated:   minted.Simulated,
	}, &Outcome{Kind: OutcomeCompleted, MessageKey: i18n.KeyRegistrationCompleted}
}

func (r *Registration) connectWallet(ctx context.Context) (string, error) {
	if r.deps.Wallet == nil {
		return "", wallet.ErrProviderMissing
	}
	return r.deps.Wallet.EnsureConnected(ctx)
}

func walletOutcome(err error) *Outcome {
	switch {
	case errors.Is(err, wallet.ErrProviderMissing):
		return &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationWalletMissing, Err: err}
	case wallet.IsUserRejected(err):
		return &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationWalletRejected, Err: err}
	case errors.Is(err, wallet.ErrNoAccounts):
		return &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyWalletNoAccounts, Err: err}
	default:
		return &Outcome{Kind: OutcomeFailed, MessageKey: i18n.KeyRegistrationMintFailed, Err: err}
	}
}

// store uploads data when a storage service is configured. It returns an empty URL otherwise.
func (r *Registration) store(data []byte, contentType, ext, category string) (string, string, error) {
	if r.deps.Storage == nil {
		return "", "", nil
	}
	res, err := r.deps.Storage.UploadBytes(data, contentType, ext, r.deps.Storage.GetDefaultUploadOptions(category))
	if err != nil {
		return "", "", err
	}
	return res.URL, res.Key, nil
}

func (r *Registration) cleanup(keys []string) {
	if r.deps.Storage == nil || len(keys) == 0 {
		return
	}
	r.deps.Storage.DeleteFiles(keys...)
}

// Dismiss resets the registration to an empty details step.
func (r *Registration) Dismiss() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return ErrBusy
	}
	r.step = StepDetails
	r.details = Details{}
	r.image = nil
	r.analysis = nil
	r.outcome = nil
	r.result = nil
	r.touch()
	return nil
}

func (r *Registration) Step() Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step
}

func (r *Registration) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		ID:        r.id,
		Step:      r.step,
		Progress:  stepProgress[r.step],
		Busy:      r.busy,
		Details:   r.details,
		HasImage:  r.image != nil,
		Analysis:  r.analysis,
		Outcome:   r.outcome,
		Result:    r.result,
		UpdatedAt: r.updatedAt,
	}
	if r.image != nil {
		snap.ImagePreview = r.image.DataURI()
	}
	return snap
}

func (r *Registration) touch() {
	r.updatedAt = r.deps.Now()
}
