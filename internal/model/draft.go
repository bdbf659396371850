package model

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Validation errors for Draft fields.
var (
	ErrEmptyName       = errors.New("item name is required")
	ErrInvalidQuantity = errors.New("quantity must be a non-negative number")
	ErrInvalidPrice    = errors.New("price must be a non-negative number")
)

// Field names reported in ValidationError.
const (
	FieldName     = "name"
	FieldQuantity = "quantity"
	FieldPrice    = "price"
)

// userMessages holds the text shown to the user for each validation failure.
var userMessages = map[error]string{
	ErrEmptyName:       "Item Name is required.",
	ErrInvalidQuantity: "Quantity must be a non-negative number.",
	ErrInvalidPrice:    "Price must be a non-negative number.",
}

// ValidationError reports a Draft field that failed its constraint.
type ValidationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field + ": " + e.Err.Error()
}

// Unwrap returns the field sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message suitable for an alert.
func (e *ValidationError) UserMessage() string {
	if msg, ok := userMessages[e.Err]; ok {
		return msg
	}
	return e.Err.Error()
}

// NumericInput is raw form input for a numeric field. In JSON it accepts
// either a string or a number literal.
type NumericInput string

// UnmarshalJSON implements json.Unmarshaler.
func (n *NumericInput) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*n = ""
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericInput(s)
	default:
		*n = NumericInput(trimmed)
	}
	return nil
}

// Draft is an unvalidated add or edit request as typed by the user.
type Draft struct {
	Name     string       `json:"name"`
	Quantity NumericInput `json:"quantity"`
	Price    NumericInput `json:"price"`
}

// NewDraft builds a Draft from raw form values.
func NewDraft(name, quantity, price string) Draft {
	return Draft{
		Name:     name,
		Quantity: NumericInput(quantity),
		Price:    NumericInput(price),
	}
}

// DraftFromItem renders an existing item back into form values, as used to
// prefill an edit form.
func DraftFromItem(item Item) Draft {
	return Draft{
		Name:     item.Name,
		Quantity: NumericInput(strconv.Itoa(item.Quantity)),
		Price:    NumericInput(strconv.FormatFloat(item.Price, 'f', -1, 64)),
	}
}

// Fields are the validated values of a Draft.
type Fields struct {
	Name     string
	Quantity int
	Price    float64
}

// Parse validates the draft and converts it to typed fields. Fields are
// checked in form order and the first failure is returned as a
// *ValidationError. Fractional quantities are truncated toward zero.
func (d Draft) Parse() (Fields, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Fields{}, &ValidationError{Field: FieldName, Err: ErrEmptyName}
	}

	qty, ok := parseNonNegative(string(d.Quantity))
	if !ok || qty >= math.MaxInt64 {
		return Fields{}, &ValidationError{Field: FieldQuantity, Err: ErrInvalidQuantity}
	}

	price, ok := parseNonNegative(string(d.Price))
	if !ok {
		return Fields{}, &ValidationError{Field: FieldPrice, Err: ErrInvalidPrice}
	}

	if price == 0 {
		price = 0 // drop the sign of -0
	}

	return Fields{
		Name:     name,
		Quantity: int(math.Trunc(qty)),
		Price:    price,
	}, nil
}

// parseNonNegative parses a finite, non-negative decimal number.
func parseNonNegative(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}

	return v, true
}
