/*
dto.go - Data Transfer Objects and request validation

PURPOSE:
  Defines the JSON structures for API communication and the validation
  rules applied before a request reaches the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request structs carry `validate` tags checked by go-playground/validator:
  - payer:     ^[A-Z]+$
  - points:    integer, > 0 for credits, >= 0 for spends
  - timestamp: RFC 3339 (ISO-8601), e.g. 2020-11-02T14:00:00Z

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warp/points-ledger/points"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreditRequest is the body of POST /points/{user_id}/add.
type CreditRequest struct {
	Payer     string `json:"payer" validate:"required,payer"`
	Points    *int64 `json:"points" validate:"required,gt=0"`
	Timestamp string `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// DebitRequest is the body of POST /points/{user_id}/subtract.
type DebitRequest struct {
	Points *int64 `json:"points" validate:"required,gte=0"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID        string `json:"id"`
	Payer     string `json:"payer"`
	Points    int64  `json:"points"`
	Timestamp string `json:"timestamp"`
}

// JournalEntryDTO represents one history entry.
type JournalEntryDTO struct {
	ID            string                 `json:"id"`
	Kind          string                 `json:"kind"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	Payer         string                 `json:"payer,omitempty"`
	Points        int64                  `json:"points"`
	Timestamp     string                 `json:"timestamp"`
	Changes       []points.BalanceChange `json:"changes,omitempty"`
	RecordedAt    string                 `json:"recorded_at"`
}

// EndpointsDTO is the index returned by GET /.
type EndpointsDTO struct {
	GET    []string `json:"GET"`
	POST   []string `json:"POST"`
	DELETE []string `json:"DELETE"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HealthDTO is returned by GET /healthz.
type HealthDTO struct {
	Status   string `json:"status"`
	Accounts int    `json:"accounts"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTransactionDTO(tx points.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        string(tx.ID),
		Payer:     tx.Payer,
		Points:    tx.Points,
		Timestamp: tx.Time().Format(time.RFC3339),
	}
}

func toJournalEntryDTO(e points.JournalEntry) JournalEntryDTO {
	return JournalEntryDTO{
		ID:            e.ID,
		Kind:          string(e.Kind),
		TransactionID: string(e.TransactionID),
		Payer:         e.Payer,
		Points:        e.Points,
		Timestamp:     e.Timestamp.Format(time.RFC3339Nano),
		Changes:       e.Changes,
		RecordedAt:    e.RecordedAt.Format(time.RFC3339Nano),
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var payerPattern = regexp.MustCompile(`^[A-Z]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("payer", func(fl validator.FieldLevel) bool {
		return payerPattern.MatchString(fl.Field().String())
	})
	return v
}

// validateRequest checks req and reports the first failing field as a
// *points.ValidationError.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &points.ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
	}
	return &points.ValidationError{Field: "body", Reason: err.Error()}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "payer":
		return "must match ^[A-Z]+$"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "datetime":
		return "must be an ISO-8601 timestamp such as 2020-11-02T14:00:00Z"
	default:
		return "failed " + fe.Tag()
	}
}
