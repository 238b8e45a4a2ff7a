// Package metadata builds certificate metadata documents and pins them to content-addressed storage.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/utils"
)

var ErrPinFailed = errors.New("metadata pin failed")

// Attribute is an OpenSea style trait.
type Attribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
	MaxValue  int         `json:"max_value,omitempty"`
}

// Document is the token metadata referenced by a certificate's URI.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image,omitempty"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

// CertificateInput is what a certificate document is built from.
type CertificateInput struct {
	ProductID   string
	Description string
	ImageURL    string
	VerifyURL   string
	Score       int
	Labels      []string
	VerifiedAt  time.Time
}

// NewCertificateDocument builds the metadata document for a minted certificate.
func NewCertificateDocument(in CertificateInput) Document {
	features := "N/A"
	if len(in.Labels) > 0 {
		features = strings.Join(in.Labels, ", ")
	}

	doc := Document{
		Name:        "F1 Certificate #" + in.ProductID,
		Description: in.Description,
		Image:       in.ImageURL,
		Attributes: []Attribute{
			{TraitType: "Authenticity Score", Value: in.Score, MaxValue: 100},
			{TraitType: "Product ID", Value: in.ProductID},
			{TraitType: "Verification Date", Value: in.VerifiedAt.UTC().Format(time.RFC3339)},
			{TraitType: "Detected Features", Value: features},
		},
	}
	if in.VerifyURL != "" {
		doc.ExternalURL = strings.TrimRight(in.VerifyURL, "/") + "/" + in.ProductID
	}
	return doc
}

// Pinner stores a document and returns its content-addressed locator.
type Pinner interface {
	Pin(ctx context.Context, doc Document) (string, error)
}

// New returns a Pinata pinner when a JWT is configured and a local hash pinner otherwise.
func New(cfg config.IPFSConfig) Pinner {
	if cfg.PinataJWT == "" {
		return HashPinner{}
	}
	return NewPinataPinner(cfg, nil)
}

// HashPinner derives a sha256 locator without storing the document anywhere.
type HashPinner struct{}

func (HashPinner) Pin(_ context.Context, doc Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPinFailed, err)
	}
	return "sha256://" + utils.HashHex(body), nil
}

// PinataPinner pins documents through the Pinata pinJSONToIPFS API.
type PinataPinner struct {
	jwt      string
	endpoint string
	client   *http.Client
}

func NewPinataPinner(cfg config.IPFSConfig, client *http.Client) *PinataPinner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PinataPinner{
		jwt:      cfg.PinataJWT,
		endpoint: cfg.Endpoint,
		client:   client,
	}
}

type pinataRequest struct {
	Content  Document          `json:"pinataContent"`
	Metadata map[string]string `json:"pinataMetadata"`
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (p *PinataPinner) Pin(ctx context.Context, doc Document) (string, error) {
	body, err := json.Marshal(pinataRequest{
		Content:  doc,
		Metadata: map[string]string{"name": doc.Name},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPinFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPinFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPinFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: status %d: %s", ErrPinFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: invalid response: %v", ErrPinFailed, err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("%w: response has no IpfsHash", ErrPinFailed)
	}

	return "ipfs://" + out.IpfsHash, nil
}

// GatewayURL rewrites an ipfs:// locator to an HTTP gateway URL. Other locators are
// returned unchanged.
func GatewayURL(uri, gateway string) string {
	if gateway == "" || !strings.HasPrefix(uri, "ipfs://") {
		return uri
	}
	return strings.TrimRight(gateway, "/") + "/" + strings.TrimPrefix(uri, "ipfs://")
}
