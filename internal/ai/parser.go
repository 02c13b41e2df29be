package ai

import (
	"context"
	"errors"
	"log/slog"

	"expensio/internal/core"
)

// Draft is what the language service extracted from free-form text. It has
// the shape of an expense but none of its guarantees; it must pass
// validation before anything persists it.
type Draft struct {
	Amount      *float64 `json:"amount"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Merchant    *string  `json:"merchant"`
	Date        *string  `json:"date"`
}

// CreateInput carries the draft fields into the validation layer, with the
// original text preserved verbatim.
func (d Draft) CreateInput(rawInput string) core.CreateInput {
	return core.CreateInput{
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		Merchant:    d.Merchant,
		Date:        d.Date,
		RawInput:    &rawInput,
	}
}

type parseResponse struct {
	Success bool   `json:"success"`
	Data    *Draft `json:"data"`
	Error   string `json:"error"`
}

// Parser extracts structured expense drafts from free-form text.
type Parser struct {
	client *Client
}

func NewParser(client *Client) *Parser {
	return &Parser{client: client}
}

// Parse sends the raw text to the language service and returns its draft.
// The draft's required fields (amount, category, description) must be
// present; a response missing any of them is rejected whole, never patched
// up from partial data.
func (p *Parser) Parse(ctx context.Context, rawInput string) (Draft, error) {
	if rawInput == "" {
		return Draft{}, errors.New("parse: empty input")
	}

	var resp parseResponse
	err := p.client.postJSON(ctx, "parse", "/parse-expense",
		map[string]string{"rawInput": rawInput}, &resp)
	if err != nil {
		return Draft{}, err
	}

	if !resp.Success {
		return Draft{}, &MalformedError{Op: "parse", Reason: "upstream reported failure: " + resp.Error}
	}
	if resp.Data == nil {
		return Draft{}, &MalformedError{Op: "parse", Reason: "success without data"}
	}
	draft := *resp.Data
	switch {
	case draft.Amount == nil:
		return Draft{}, &MalformedError{Op: "parse", Reason: "draft missing amount"}
	case draft.Category == nil:
		return Draft{}, &MalformedError{Op: "parse", Reason: "draft missing category"}
	case draft.Description == nil:
		return Draft{}, &MalformedError{Op: "parse", Reason: "draft missing description"}
	}

	slog.DebugContext(ctx, "Parsed expense draft",
		"category", *draft.Category,
		"amount", *draft.Amount)

	return draft, nil
}
