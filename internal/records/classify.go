package records

import (
	"strings"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/spf13/cast"
)

// Cause code sentinels. The fault log is untyped, so codes arrive as
// strings or numbers and are compared in canonical string form.
const (
	CauseVisit    = "99"
	CauseControl  = "0"
	CauseControl2 = "00"
)

// Classify tags a cause code as a real fault, a routine visit or a control
// check. Anything that is not a sentinel, including a missing code, is a
// real fault.
func Classify(code any) domain.RecordKind {
	s, ok := canonicalCause(code)
	if !ok {
		return domain.KindRealFault
	}
	return classifyCanonical(s)
}

func classifyCanonical(s string) domain.RecordKind {
	switch s {
	case CauseVisit:
		return domain.KindVisit
	case CauseControl, CauseControl2:
		return domain.KindControl
	default:
		return domain.KindRealFault
	}
}

// canonicalCause returns the trimmed string form of a cause code.
// Numbers are formatted without a fractional part when they have none,
// so 99, 99.0 and "99" all become "99".
func canonicalCause(code any) (string, bool) {
	if code == nil {
		return "", false
	}
	s, err := cast.ToStringE(code)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}
