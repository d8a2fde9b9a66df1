package records

import (
	"fmt"
	"strings"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/spf13/cast"
)

// UnknownLabel is the type label of a fault whose payload carries none.
const UnknownLabel = "Unknown"

// QuarantineError explains why a raw record was skipped.
type QuarantineError struct {
	RecordID string
	Reason   string
}

func (e *QuarantineError) Error() string {
	return fmt.Sprintf("record %s quarantined: %s", e.RecordID, e.Reason)
}

// Normalize converts one raw record into the strict FaultRecord shape.
// A record without a payload, or whose cause code has an unusable type,
// returns a *QuarantineError. A malformed date is not an error: the record
// is returned with HasDate false.
func Normalize(raw *domain.RawFaultRecord) (*domain.FaultRecord, error) {
	if raw == nil {
		return nil, &QuarantineError{Reason: "nil record"}
	}
	if raw.Data == nil {
		return nil, &QuarantineError{RecordID: raw.ID, Reason: "missing payload"}
	}

	rec := &domain.FaultRecord{
		ID:      raw.ID,
		AssetID: raw.AssetID,
		Kind:    domain.KindRealFault,
		Label:   label(raw.Data),
	}

	if code, present := raw.Data[domain.FieldCause]; present && code != nil {
		cause, ok := canonicalCause(code)
		if !ok {
			return nil, &QuarantineError{
				RecordID: raw.ID,
				Reason:   fmt.Sprintf("cause code of type %T", code),
			}
		}
		rec.Cause = cause
		rec.Kind = classifyCanonical(cause)
	}

	if v, present := raw.Data[domain.FieldDate]; present && v != nil {
		if s, err := cast.ToStringE(v); err == nil {
			rec.Date, rec.HasDate = ParseDate(strings.TrimSpace(s))
		}
	}

	return rec, nil
}

// NormalizeAll normalizes a record set, skipping quarantined records.
// It returns the strict records and the number of records skipped.
func NormalizeAll(raws []*domain.RawFaultRecord) ([]*domain.FaultRecord, int) {
	out := make([]*domain.FaultRecord, 0, len(raws))
	quarantined := 0
	for _, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			quarantined++
			continue
		}
		out = append(out, rec)
	}
	return out, quarantined
}

func label(data map[string]any) string {
	for _, key := range []string{domain.FieldType, domain.FieldLabel} {
		if v, ok := data[key]; ok && v != nil {
			if s := strings.TrimSpace(cast.ToString(v)); s != "" {
				return s
			}
		}
	}
	return UnknownLabel
}
