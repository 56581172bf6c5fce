package header

import (
	"strconv"

	"http-client/application/http"

	"github.com/pkg/errors"
)

// maxAgeValue is sent when the age overflows.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9111#section-1.2.2
const maxAgeValue = 2147483648

// Reference: https://datatracker.ietf.org/doc/html/rfc9111#section-5.1
type Age struct {
	deltaSeconds uint64
}

var _ Header = (*Age)(nil)

func NewAge(deltaSeconds uint64) *Age {
	return &Age{deltaSeconds: min(deltaSeconds, maxAgeValue)}
}

func ParseAge(line string) (*Age, error) {
	value, err := splitNamed(line, "Age")
	if err != nil {
		return nil, err
	}

	delta, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return NewAge(maxAgeValue), nil
		}
		return nil, errors.Wrapf(http.ErrParse, "invalid delta seconds: %q", value)
	}

	return NewAge(delta), nil
}

func (h *Age) Name() string { return "Age" }

func (h *Age) Value() string { return strconv.FormatUint(h.deltaSeconds, 10) }

func (h *Age) String() string { return format(h) }

func (h *Age) DeltaSeconds() uint64 { return h.deltaSeconds }
