package param

import (
	"fmt"
	"strings"
)

// Kind is the wire tag of a record payload.
type Kind uint8

// Tag values from the record contract. 0 marks a slot that was never written.
const (
	KindUnset   Kind = 0
	KindFloat64 Kind = 1
	KindInt64   Kind = 2
	KindVector3 Kind = 4
)

// Kinds lists every valid kind in tag order.
var Kinds = []Kind{KindFloat64, KindInt64, KindVector3}

func (k Kind) Valid() bool {
	switch k {
	case KindFloat64, KindInt64, KindVector3:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "UNSET"
	case KindFloat64:
		return "FLOAT64"
	case KindInt64:
		return "INT64"
	case KindVector3:
		return "VEC3_FLOAT64"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// ParseKind accepts the canonical names plus the legacy DOUBLE/S64/VEC3_DOUBLE spellings.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FLOAT64", "DOUBLE", "F64":
		return KindFloat64, nil
	case "INT64", "S64", "I64":
		return KindInt64, nil
	case "VEC3_FLOAT64", "VEC3_DOUBLE", "VEC3":
		return KindVector3, nil
	default:
		return KindUnset, fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}
