package ai

import (
	"context"
	"errors"

	"expensio/internal/core"
)

type adviceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Advisor answers free-form spending questions against the caller's own
// expense history.
type Advisor struct {
	client *Client
}

func NewAdvisor(client *Client) *Advisor {
	return &Advisor{client: client}
}

// Advise forwards the question together with the owner's records and returns
// the upstream answer verbatim. The records are serialized exactly as the
// API renders them, so amounts travel as decimal numbers.
func (a *Advisor) Advise(ctx context.Context, query string, expenses []core.ExpenseRecord) (string, error) {
	if query == "" {
		return "", errors.New("advise: empty query")
	}
	if expenses == nil {
		expenses = []core.ExpenseRecord{}
	}

	var resp adviceResponse
	err := a.client.postJSON(ctx, "advise", "/get-advice", map[string]any{
		"query":    query,
		"expenses": expenses,
	}, &resp)
	if err != nil {
		return "", err
	}

	if !resp.Success {
		return "", &MalformedError{Op: "advise", Reason: "upstream reported failure: " + resp.Error}
	}
	return resp.Message, nil
}
