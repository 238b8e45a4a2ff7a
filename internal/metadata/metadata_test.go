package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexchain/apex-backend/internal/config"
)

const pinataURL = "https://api.pinata.test/pinning/pinJSONToIPFS"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func sampleDocument() Document {
	return NewCertificateDocument(CertificateInput{
		ProductID:   "F1-1",
		Description: "Team cap",
		ImageURL:    "https://cdn.test/cap.jpg",
		VerifyURL:   "https://apex-chain.com/verify/",
		Score:       91,
		Labels:      []string{"Racing", "Cap"},
		VerifiedAt:  time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	})
}

func TestNewCertificateDocument(t *testing.T) {
	doc := sampleDocument()

	assert.Equal(t, "F1 Certificate #F1-1", doc.Name)
	assert.Equal(t, "https://apex-chain.com/verify/F1-1", doc.ExternalURL)
	require.Len(t, doc.Attributes, 4)
	assert.Equal(t, 91, doc.Attributes[0].Value)
	assert.Equal(t, 100, doc.Attributes[0].MaxValue)
	assert.Equal(t, "2024-06-10T12:00:00Z", doc.Attributes[2].Value)
	assert.Equal(t, "Racing, Cap", doc.Attributes[3].Value)

	empty := NewCertificateDocument(CertificateInput{ProductID: "F1-2"})
	assert.Equal(t, "N/A", empty.Attributes[3].Value)
	assert.Empty(t, empty.ExternalURL)
}

func TestHashPinnerIsContentAddressed(t *testing.T) {
	a, err := HashPinner{}.Pin(context.Background(), sampleDocument())
	require.NoError(t, err)
	b, err := HashPinner{}.Pin(context.Background(), sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "sha256://"))

	other := sampleDocument()
	other.Description = "Different"
	c, err := HashPinner{}.Pin(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestPinataPinner(t *testing.T) {
	setupHTTPMock(t)

	var gotAuth string
	var gotBody pinataRequest
	httpmock.RegisterResponder("POST", pinataURL, func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
			"IpfsHash":  "QmTestHash",
			"PinSize":   512,
			"Timestamp": "2024-06-10T12:00:00Z",
		})
	})

	pinner := NewPinataPinner(config.IPFSConfig{PinataJWT: "jwt-token", Endpoint: pinataURL}, &http.Client{})
	uri, err := pinner.Pin(context.Background(), sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, "ipfs://QmTestHash", uri)
	assert.Equal(t, "Bearer jwt-token", gotAuth)
	assert.Equal(t, "F1 Certificate #F1-1", gotBody.Content.Name)
	assert.Equal(t, "F1 Certificate #F1-1", gotBody.Metadata["name"])
}

func TestPinataPinnerErrorStatus(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder("POST", pinataURL, httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"Invalid JWT"}`))

	pinner := NewPinataPinner(config.IPFSConfig{PinataJWT: "bad", Endpoint: pinataURL}, &http.Client{})
	_, err := pinner.Pin(context.Background(), sampleDocument())
	assert.ErrorIs(t, err, ErrPinFailed)
}

func TestNewSelectsPinner(t *testing.T) {
	assert.IsType(t, HashPinner{}, New(config.IPFSConfig{}))
	assert.IsType(t, &PinataPinner{}, New(config.IPFSConfig{PinataJWT: "x", Endpoint: pinataURL}))
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://gateway.test/ipfs/QmX", GatewayURL("ipfs://QmX", "https://gateway.test/ipfs/"))
	assert.Equal(t, "sha256://abc", GatewayURL("sha256://abc", "https://gateway.test/ipfs/"))
	assert.Equal(t, "ipfs://QmX", GatewayURL("ipfs://QmX", ""))
}
