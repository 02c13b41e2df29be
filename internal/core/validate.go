package core

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CreateInput is the untrusted payload for creating an expense, either from a
// direct API call or from a parser draft. Pointer fields distinguish absent
// from zero values.
type CreateInput struct {
	Amount      *float64 `json:"amount" validate:"required,gt=0"`
	Category    *string  `json:"category" validate:"required,expense_category"`
	Description *string  `json:"description" validate:"required,min=3,max=200"`
	Merchant    *string  `json:"merchant" validate:"omitnil,max=100"`
	Date        *string  `json:"date" validate:"omitnil,expense_date"`
	RawInput    *string  `json:"rawInput" validate:"required,min=1"`
}

// UpdateInput is the untrusted payload for a partial update: every field is
// optional, but a present field is held to the same rules as on create.
type UpdateInput struct {
	Amount      *float64 `json:"amount" validate:"omitnil,gt=0"`
	Category    *string  `json:"category" validate:"omitnil,expense_category"`
	Description *string  `json:"description" validate:"omitnil,min=3,max=200"`
	Merchant    *string  `json:"merchant" validate:"omitnil,max=100"`
	Date        *string  `json:"date" validate:"omitnil,expense_date"`
	RawInput    *string  `json:"rawInput" validate:"omitnil,min=1"`
}

// FieldError names a single violated rule on a single payload field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors carries every violation found in a payload, not just the
// first one.
type ValidationErrors []FieldError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, fe := range ve {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report violations under the JSON field names the caller sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("expense_category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})

	_ = v.RegisterValidation("expense_date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})

	return v
}

// ParseDate accepts a date-only value ("2006-01-02") or a full RFC 3339
// timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ValidateCreate checks a create payload against every rule and returns a
// normalized record, or the full list of violations. The returned record has
// no ID, OwnerID or store timestamps yet; the store assigns those.
func ValidateCreate(in CreateInput) (ExpenseRecord, error) {
	normalizeCreate(&in)
	if err := validate.Struct(in); err != nil {
		return ExpenseRecord{}, translate(err)
	}

	amount := Money{Cents: CentsFromFloat(*in.Amount)}
	if amount.Validate() != nil {
		return ExpenseRecord{}, amountNotPositive()
	}

	rec := ExpenseRecord{
		Amount:      amount,
		Category:    Category(*in.Category),
		Description: *in.Description,
		RawInput:    *in.RawInput,
		Date:        time.Now().UTC(),
	}
	if in.Merchant != nil {
		rec.Merchant = *in.Merchant
	}
	if in.Date != nil {
		t, _ := ParseDate(*in.Date)
		rec.Date = t
	}
	return rec, nil
}

// ValidatePatch checks an update payload in partial mode: absent fields stay
// absent in the returned patch, present fields are validated as on create.
func ValidatePatch(in UpdateInput) (RecordPatch, error) {
	normalizeUpdate(&in)
	if err := validate.Struct(in); err != nil {
		return RecordPatch{}, translate(err)
	}

	var patch RecordPatch
	if in.Amount != nil {
		amount := Money{Cents: CentsFromFloat(*in.Amount)}
		if amount.Validate() != nil {
			return RecordPatch{}, amountNotPositive()
		}
		patch.Amount = &amount
	}
	if in.Category != nil {
		c := Category(*in.Category)
		patch.Category = &c
	}
	patch.Description = in.Description
	patch.Merchant = in.Merchant
	if in.Date != nil {
		t, _ := ParseDate(*in.Date)
		patch.Date = &t
	}
	patch.RawInput = in.RawInput
	return patch, nil
}

// Length and category rules apply to the trimmed value; RawInput is kept
// verbatim for audit and re-parsing.
func normalizeCreate(in *CreateInput) {
	trim(in.Category)
	trim(in.Description)
	trim(in.Merchant)
	trim(in.Date)
}

func normalizeUpdate(in *UpdateInput) {
	trim(in.Category)
	trim(in.Description)
	trim(in.Merchant)
	trim(in.Date)
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// amountNotPositive covers amounts that pass the float rule but not the
// conversion to cents: sub-cent values round to 0, out-of-range floats wrap
// negative. The record must never reach the store with Cents <= 0.
func amountNotPositive() ValidationErrors {
	return ValidationErrors{{Field: "amount", Message: "amount must be a positive number"}}
}

func translate(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "amount":
		if fe.Tag() == "required" {
			return "amount is required"
		}
		return "amount must be a positive number"
	case "category":
		if fe.Tag() == "required" {
			return "category is required"
		}
		return "category must be one of " + allowedCategories()
	case "description":
		switch fe.Tag() {
		case "required":
			return "description is required"
		case "min":
			return "description must be at least 3 characters long"
		default:
			return "description cannot exceed 200 characters"
		}
	case "merchant":
		return "merchant name cannot exceed 100 characters"
	case "date":
		return "date must be a valid date (YYYY-MM-DD or RFC 3339)"
	case "rawInput":
		if fe.Tag() == "required" {
			return "rawInput is required"
		}
		return "rawInput cannot be empty"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func allowedCategories() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
