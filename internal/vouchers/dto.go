package vouchers

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// draftRequest is the JSON body of create and update calls. Amounts travel as
// strings so no precision is lost in transit.
type draftRequest struct {
	Type          string         `json:"voucher_type" validate:"required,oneof=sales_invoice purchase_invoice payment receipt journal contra"`
	Date          string         `json:"voucher_date" validate:"required,datetime=2006-01-02"`
	PartyLedgerID *int64         `json:"party_ledger_id" validate:"omitempty,gt=0"`
	Narration     string         `json:"narration" validate:"max=500"`
	Reference     string         `json:"reference" validate:"max=100"`
	Entries       []entryRequest `json:"entries" validate:"required,min=1"`
	Items         []itemRequest  `json:"items"`
}

type entryRequest struct {
	LedgerID int64  `json:"ledger_id" validate:"required,gt=0"`
	Debit    string `json:"debit" validate:"omitempty,numeric"`
	Credit   string `json:"credit" validate:"omitempty,numeric"`
}

type itemRequest struct {
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	Quantity string `json:"quantity" validate:"required,numeric"`
	Rate     string `json:"rate" validate:"required,numeric"`
}

type cancelRequest struct {
	Date   string `json:"cancel_date" validate:"omitempty,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"max=500"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// collect converts validator failures into field errors for line.
func collect(verr *ValidationError, line int, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add(line, "body", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.add(line, fe.Field(), describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "numeric":
		return "must be a decimal number"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "at least " + fe.Param() + " required"
	}
	return "invalid value"
}

// toInput validates the request shape and converts it into DraftInput.
// Precision and sign rules on amounts are left to the service so the same
// messages come back for API and internal callers.
func (req draftRequest) toInput(v *validator.Validate) (DraftInput, error) {
	verr := &ValidationError{}
	collect(verr, 0, v.Struct(req))
	in := DraftInput{
		Type:          Type(req.Type),
		PartyLedgerID: req.PartyLedgerID,
		Narration:     req.Narration,
		Reference:     req.Reference,
	}
	if d, err := time.Parse(dateLayout, req.Date); err == nil {
		in.Date = d
	}
	for i, e := range req.Entries {
		line := i + 1
		collect(verr, line, v.Struct(e))
		in.Entries = append(in.Entries, EntryInput{
			LedgerID: e.LedgerID,
			Debit:    parseDecimal(e.Debit),
			Credit:   parseDecimal(e.Credit),
		})
	}
	for i, it := range req.Items {
		line := i + 1
		collect(verr, line, v.Struct(it))
		in.Items = append(in.Items, ItemInput{
			ItemID:   it.ItemID,
			Quantity: parseDecimal(it.Quantity),
			Rate:     parseDecimal(it.Rate),
		})
	}
	return in, verr.orNil()
}

func (req cancelRequest) toInput(v *validator.Validate, id int64) (CancelInput, error) {
	verr := &ValidationError{}
	collect(verr, 0, v.Struct(req))
	in := CancelInput{VoucherID: id, Reason: req.Reason}
	if req.Date != "" {
		if d, err := time.Parse(dateLayout, req.Date); err == nil {
			in.Date = d
		}
	}
	return in, verr.orNil()
}

// parseDecimal returns zero for empty or malformed input; malformed input has
// already been reported by the validator.
func parseDecimal(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
