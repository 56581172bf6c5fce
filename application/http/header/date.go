package header

import (
	"strings"
	"time"

	"http-client/application/http"

	"github.com/pkg/errors"
)

// DateFormat selects the layout a date header is rendered with.
type DateFormat int

const (
	// Preferred format: IMF-fixdate
	DateRFC1123 DateFormat = iota
	// Obsolete RFC 850 format, with two digit year.
	DateRFC1036
	// Obsolete asctime format
	DateANSIC
)

const (
	imfFixDateFormat  = "Mon, 02 Jan 2006 15:04:05 GMT"
	rfc1036DateFormat = "Mon, 02 Jan 06 15:04:05 GMT"
	asctimeDateFormat = "Mon Jan _2 15:04:05 2006"
	// Netscape cookie date
	cookieDateFormat = "Mon, 02-Jan-2006 15:04:05 GMT"
)

func (f DateFormat) layout() string {
	switch f {
	case DateRFC1036:
		return rfc1036DateFormat
	case DateANSIC:
		return asctimeDateFormat
	}
	return imfFixDateFormat
}

// ParseDate parses HTTP-date in any of its three formats.
// The netscape cookie format is also accepted.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.7
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC1123, time.RFC850, time.ANSIC,
		rfc1036DateFormat, cookieDateFormat, time.RFC1123Z,
		"Monday, 02-Jan-2006 15:04:05 MST",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, errors.Errorf("invalid time format: %q", raw)
}

type dateHeader struct {
	name   string
	date   time.Time
	format DateFormat
}

func (h *dateHeader) Name() string { return h.name }

func (h *dateHeader) Value() string { return h.date.UTC().Format(h.format.layout()) }

func (h *dateHeader) String() string { return h.Name() + ": " + h.Value() }

func (h *dateHeader) Time() time.Time { return h.date }

func (h *dateHeader) SetTime(t time.Time) { h.date = t.UTC() }

func (h *dateHeader) SetFormat(f DateFormat) { h.format = f }

// CompareTo returns -1, 0 or +1 when the header date is before, equal to or after t.
func (h *dateHeader) CompareTo(t time.Time) int {
	return h.date.Compare(t)
}

func (h *dateHeader) parse(line string) error {
	value, err := splitNamed(line, h.name)
	if err != nil {
		return err
	}

	t, err := ParseDate(value)
	if err != nil {
		return errors.Wrap(http.ErrParse, err.Error())
	}

	h.date = t
	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-6.6.1
type Date struct{ dateHeader }

var _ Header = (*Date)(nil)

func NewDate(t time.Time) *Date {
	return &Date{dateHeader{name: "Date", date: t.UTC()}}
}

// ParseDateHeader parses a "Date: ..." line.
func ParseDateHeader(line string) (*Date, error) {
	h := &Date{dateHeader{name: "Date"}}
	if err := h.parse(line); err != nil {
		return nil, err
	}
	return h, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9111#section-5.3
type Expires struct{ dateHeader }

var _ Header = (*Expires)(nil)

func NewExpires(t time.Time) *Expires {
	return &Expires{dateHeader{name: "Expires", date: t.UTC()}}
}

// ParseExpires parses an "Expires: ..." line.
// A value that is not a valid date, such as "0" or "-1", means the epoch.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9111#section-5.3-7
func ParseExpires(line string) (*Expires, error) {
	value, err := splitNamed(line, "Expires")
	if err != nil {
		return nil, err
	}

	t, err := ParseDate(value)
	if err != nil {
		t = time.Unix(0, 0)
	}
	return NewExpires(t), nil
}
