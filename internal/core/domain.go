package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryOther         Category = "Other"
)

// Categories lists the closed set of expense categories in canonical order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryBills,
	CategoryEntertainment,
	CategoryHealth,
	CategoryOther,
}

type (
	Category string

	// Money is a currency-agnostic amount in cents. Using integer cents keeps
	// aggregation exact; the JSON representation is a decimal number.
	Money struct {
		Cents int64
	}

	// ExpenseRecord is the sole domain entity: a validated, owner-scoped
	// spending record. ID, CreatedAt and UpdatedAt are store-managed.
	ExpenseRecord struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"ownerId"`
		Amount      Money     `json:"amount"`
		Category    Category  `json:"category"`
		Description string    `json:"description"`
		Merchant    string    `json:"merchant,omitempty"`
		Date        time.Time `json:"date"`
		RawInput    string    `json:"rawInput"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// RecordPatch is a partial update: nil fields are left untouched on the
	// underlying record. Present fields have already passed validation.
	RecordPatch struct {
		Amount      *Money
		Category    *Category
		Description *string
		Merchant    *string
		Date        *time.Time
		RawInput    *string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotFound      = errors.New("expense not found")
)

// IsValid reports whether c is a member of the closed category set.
func (c Category) IsValid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Float returns the amount as a decimal number of currency units.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100
}

func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := fmt.Sprintf("%d.%02d", c/100, c%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON renders the amount as a plain decimal number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number (or numeric string) and converts it to
// cents, rejecting values with more than two fractional digits.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		s = strings.TrimSpace(unquoted)
	}
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}

// CentsFromFloat converts a decimal amount to cents, rounding half away from
// zero to absorb float noise from JSON decoding.
func CentsFromFloat(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ParseDecimalToCents parses a decimal string such as "120", "120.5" or
// "120.50" into cents. At most two fractional digits are accepted.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	var f int64
	switch len(frac) {
	case 0:
	case 1:
		f, err = strconv.ParseInt(frac, 10, 64)
		f *= 10
	case 2:
		f, err = strconv.ParseInt(frac, 10, 64)
	default:
		return 0, ErrInvalidAmount
	}
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}

// Apply overlays the present patch fields onto r, leaving the rest untouched.
// Store-managed fields (ID, OwnerID, timestamps) are never patched.
func (p RecordPatch) Apply(r *ExpenseRecord) {
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Merchant != nil {
		r.Merchant = *p.Merchant
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.RawInput != nil {
		r.RawInput = *p.RawInput
	}
}

// IsEmpty reports whether the patch carries no fields at all.
func (p RecordPatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil &&
		p.Merchant == nil && p.Date == nil && p.RawInput == nil
}
