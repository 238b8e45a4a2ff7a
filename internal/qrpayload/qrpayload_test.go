package qrpayload

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() Payload {
	return Payload{
		ProductID: "F1-1718000000000-42",
		Score:     85,
		Timestamp: "2024-06-10T12:00:00Z",
		Verified:  true,
		TokenID:   "7",
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(samplePayload())
	require.NoError(t, err)
	b, err := Encode(samplePayload())
	require.NoError(t, err)

	assert.True(t, bytes.Equal(a, b))
	assert.True(t, bytes.HasPrefix(a, []byte("\x89PNG")))
}

func TestImageRoundTrip(t *testing.T) {
	p := samplePayload()
	png, err := Encode(p)
	require.NoError(t, err)

	res, err := DecodeImage(png)
	require.NoError(t, err)
	require.Equal(t, KindJSON, res.Kind)
	require.NotNil(t, res.Payload)
	assert.Equal(t, p, *res.Payload)
	assert.Equal(t, p.ProductID, res.ProductID())
}

func TestEncodeDataURI(t *testing.T) {
	uri, err := EncodeDataURI(samplePayload())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestEncodeTextRejectsEmpty(t *testing.T) {
	_, err := EncodeText("")
	assert.Error(t, err)
}

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    Kind
		product string
	}{
		{"json payload", `{"productId":"F1-1","score":90,"timestamp":"t","verified":true}`, KindJSON, "F1-1"},
		{"json token only", `{"tokenId":"12"}`, KindJSON, "12"},
		{"json with float score", `{"productId":"F1-2","score":88.5}`, KindJSON, "F1-2"},
		{"https url", "https://apex-chain.com/verify/F1-3", KindURL, "F1-3"},
		{"http url with query", "http://example.com/verify?id=F1-4", KindURL, "F1-4"},
		{"plain id", "  F1-5  ", KindText, "F1-5"},
		{"json array is text", `["a"]`, KindText, `["a"]`},
		{"broken json", `{"productId":`, KindText, `{"productId":`},
		{"ftp is text", "ftp://example.com/x", KindText, "ftp://example.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Decode(tt.input)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.product, res.ProductID())
		})
	}
}

func TestDecodeNeverPanics(t *testing.T) {
	inputs := []string{"", "{", "}", "\x00\xff", "{\"score\":\"high\"}", "https://", strings.Repeat("{", 1000)}
	for _, in := range inputs {
		assert.NotPanics(t, func() { _ = Decode(in).ProductID() })
	}
}

func TestDecodeImageRejectsNonImage(t *testing.T) {
	_, err := DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}
