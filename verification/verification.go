// Package verification decides whether a classifier's view of a waste image
// agrees with what was declared on a report.
package verification

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ecopoints/points"
)

const (
	// MixedWasteType replaces classifier output naming more than one type.
	MixedWasteType = "mixed"

	QuantityTolerance = 5.0
	MinConfidence     = 0.7
)

var ErrMalformedResult = errors.New("malformed classifier result")

// Result is the classifier output: waste type, quantity with unit and
// confidence in [0, 1].
type Result struct {
	WasteType  string          `json:"wasteType"`
	Quantity   string          `json:"quantity"`
	Confidence float64         `json:"confidence"`
	Raw        json.RawMessage `json:"-"`

	quantity float64
}

// QuantityValue is the numeric part of Quantity.
func (r *Result) QuantityValue() float64 {
	return r.quantity
}

// Outcome holds the three checks of a verification attempt.
type Outcome struct {
	WasteTypeMatch  bool    `json:"wasteTypeMatch"`
	QuantityMatch   bool    `json:"quantityMatch"`
	ConfidenceMatch bool    `json:"confidenceMatch"`
	Confidence      float64 `json:"confidence"`
}

// Success is true only when every check passed.
func (o Outcome) Success() bool {
	return o.WasteTypeMatch && o.QuantityMatch && o.ConfidenceMatch
}

// Parse reads classifier output. It tolerates markdown code fences around
// the JSON and numbers sent as strings; anything missing or unreadable
// yields ErrMalformedResult.
func Parse(data []byte) (*Result, error) {
	text := strings.TrimSpace(string(data))
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResult)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	var r Result
	if err := json.Unmarshal(fields["wasteType"], &r.WasteType); err != nil || strings.TrimSpace(r.WasteType) == "" {
		return nil, fmt.Errorf("%w: missing wasteType", ErrMalformedResult)
	}

	quantityText, quantity, err := flexibleNumber(fields["quantity"])
	if err != nil {
		return nil, fmt.Errorf("%w: quantity: %v", ErrMalformedResult, err)
	}
	r.Quantity = quantityText
	r.quantity = quantity

	_, confidence, err := flexibleNumber(fields["confidence"])
	if err != nil {
		return nil, fmt.Errorf("%w: confidence: %v", ErrMalformedResult, err)
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrMalformedResult, confidence)
	}
	r.Confidence = confidence

	r.Raw = json.RawMessage(text)
	return &r, nil
}

// flexibleNumber accepts 12, 12.5, "12 kg" or "0.85".
func flexibleNumber(raw json.RawMessage) (string, float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", 0, errors.New("missing")
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", 0, errors.New("not a number or string")
	}
	v, err := points.ParseAmount(s)
	if err != nil || math.IsNaN(v) {
		return "", 0, fmt.Errorf("unparseable %q", s)
	}
	return s, v, nil
}

// NormalizeWasteType lower-cases and trims the classifier's waste type and
// collapses comma separated lists to MixedWasteType.
func NormalizeWasteType(wasteType string) string {
	t := strings.ToLower(strings.TrimSpace(wasteType))
	if len(strings.Split(t, ",")) > 1 {
		return MixedWasteType
	}
	return t
}

// Evaluate checks a classifier result against a report's declared waste
// type and amount.
func Evaluate(declaredType, declaredAmount string, r *Result) Outcome {
	out := Outcome{Confidence: r.Confidence}

	normalized := NormalizeWasteType(r.WasteType)
	out.WasteTypeMatch = strings.Contains(normalized, strings.ToLower(strings.TrimSpace(declaredType)))

	if declared, err := points.ParseAmount(declaredAmount); err == nil {
		out.QuantityMatch = math.Abs(r.quantity-declared) <= QuantityTolerance
	}

	out.ConfidenceMatch = r.Confidence > MinConfidence
	return out
}
