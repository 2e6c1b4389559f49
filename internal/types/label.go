package types

import (
	"time"

	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// Label is the discrete trade action assigned to a historical row.
type Label string

const (
	LabelBuy  Label = "buy"
	LabelSell Label = "sell"
	LabelHold Label = "hold"
	// LabelNone marks a row without a forward-looking value.
	LabelNone Label = ""
)

// Labels lists the class labels in their canonical order.
var Labels = []Label{LabelBuy, LabelHold, LabelSell}

// ParseLabel converts a stored label back into a Label.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelBuy, LabelSell, LabelHold:
		return Label(s), nil
	default:
		return LabelNone, errors.Newf(errors.ErrCodeInvalidParameter, "unknown label %q", s)
	}
}

// LabelRecord is a persisted label for one price row.
type LabelRecord struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Label     Label     `json:"label" db:"label"`
}
