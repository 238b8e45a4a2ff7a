// Package qrpayload encodes certificate summaries into QR images and decodes scanned text.
package qrpayload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	// Size is the fixed pixel width of generated codes.
	Size = 256
	// Level is the error correction level of generated codes.
	Level = qrcode.Medium
)

// Payload is the JSON document carried by a certificate QR code. It is not signed.
type Payload struct {
	ProductID       string `json:"productId"`
	Score           int    `json:"score"`
	Timestamp       string `json:"timestamp"`
	Verified        bool   `json:"verified"`
	TokenID         string `json:"tokenId,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

// Kind identifies which branch Decode took.
type Kind string

const (
	KindJSON Kind = "json"
	KindURL  Kind = "url"
	KindText Kind = "text"
)

// Result is the outcome of decoding scanned text.
type Result struct {
	Kind    Kind                   `json:"kind"`
	Payload *Payload               `json:"payload,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	URL     string                 `json:"url,omitempty"`
	Text    string                 `json:"text"`
}

// Encode renders the payload as a PNG QR code. Identical payloads produce identical bytes.
func Encode(p Payload) ([]byte, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return EncodeText(string(content))
}

// EncodeText renders arbitrary text, typically a bare product id or a verify URL.
func EncodeText(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	png, err := qrcode.Encode(text, Level, Size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// EncodeDataURI returns the payload QR code as a data:image/png URI.
func EncodeDataURI(p Payload) (string, error) {
	png, err := Encode(p)
	if err != nil {
		return "", err
	}
	return DataURI(png), nil
}

func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// Decode classifies scanned text. It never fails: anything that is not a JSON object
// becomes a URL or a plain text result.
func Decode(text string) Result {
	trimmed := strings.TrimSpace(text)
	res := Result{Text: trimmed}

	if strings.HasPrefix(trimmed, "{") {
		var fields map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
			res.Kind = KindJSON
			res.Fields = fields
			res.Payload = payloadFromFields(trimmed, fields)
			return res
		}
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		res.Kind = KindURL
		res.URL = trimmed
		return res
	}

	res.Kind = KindText
	return res
}

// payloadFromFields prefers a strict decode and falls back to picking known keys, so a
// payload with an unexpected score type still yields its identifiers.
func payloadFromFields(raw string, fields map[string]interface{}) *Payload {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err == nil {
		return &p
	}

	p = Payload{}
	p.ProductID = stringField(fields, "productId")
	p.Timestamp = stringField(fields, "timestamp")
	p.TokenID = stringField(fields, "tokenId")
	p.ContractAddress = stringField(fields, "contractAddress")
	if score, ok := fields["score"].(float64); ok {
		p.Score = int(score)
	}
	if verified, ok := fields["verified"].(bool); ok {
		p.Verified = verified
	}
	return &p
}

func stringField(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// ProductID returns the identifier to look up: the payload product id (or token id),
// the last path segment of a URL, or the text itself.
func (r Result) ProductID() string {
	switch r.Kind {
	case KindJSON:
		if r.Payload == nil {
			return ""
		}
		if r.Payload.ProductID != "" {
			return r.Payload.ProductID
		}
		return r.Payload.TokenID
	case KindURL:
		u, err := url.Parse(r.URL)
		if err != nil {
			return r.Text
		}
		if id := u.Query().Get("id"); id != "" {
			return id
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		return segments[len(segments)-1]
	default:
		return r.Text
	}
}

// DecodeImage reads a PNG, JPEG or GIF image containing a QR code and decodes its text.
func DecodeImage(data []byte) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read image: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("failed to prepare image: %w", err)
	}

	decoded, err := zxingqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return Result{}, fmt.Errorf("no qr code found: %w", err)
	}

	return Decode(decoded.GetText()), nil
}
