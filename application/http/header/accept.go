package header

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"http-client/application/http"
	"http-client/application/util/rule"

	"github.com/pkg/errors"
)

// Param is a single "key=value" parameter. Order of parameters is kept.
type Param struct{ Key, Value string }

func lookupParam(params []Param, key string) (string, bool) {
	for _, p := range params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// MediaRange is an entry of an Accept-family header.
// For non-media headers (charset, encoding, language) the subtype and format are "*".
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.5.1
type MediaRange struct {
	Type    string
	Subtype string
	Format  string

	Priority float64
	Params   []Param

	typeString string
	raw        string
}

// Param returns a parameter of the entry, including "q".
func (m MediaRange) Param(key string) (string, bool) { return lookupParam(m.Params, key) }

// TypeString is the entry without parameters (e.g. "application/vnd.api+json").
func (m MediaRange) TypeString() string { return m.typeString }

func (m MediaRange) String() string { return m.raw }

type acceptList struct {
	name    string
	addType *regexp.Regexp

	entries []MediaRange
}

// Entries returns entries in insertion order.
func (a *acceptList) Entries() []MediaRange {
	out := make([]MediaRange, len(a.entries))
	copy(out, a.entries)
	return out
}

// Prioritized returns entries from the most preferred one.
func (a *acceptList) Prioritized() []MediaRange {
	out := a.Entries()
	sort.SliceStable(out, func(i, j int) bool { return lessMediaRange(out[i], out[j]) })
	return out
}

func lessMediaRange(a, b MediaRange) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}

	pairs := [][2]string{{a.Type, b.Type}, {a.Subtype, b.Subtype}, {a.Format, b.Format}}
	for _, p := range pairs {
		if (p[0] == "*") != (p[1] == "*") {
			return p[1] == "*"
		}
	}

	if (a.Type == "application") != (b.Type == "application") {
		return a.Type == "application"
	}

	return len(a.raw) > len(b.raw)
}

func (a *acceptList) Name() string { return a.name }

func (a *acceptList) Value() string { return assembleEntries(a.entries) }

func (a *acceptList) String() string { return a.Name() + ": " + a.Value() }

func assembleEntries(entries []MediaRange) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, assembleEntry(e.typeString, e.Params))
	}
	return strings.Join(parts, ", ")
}

func assembleEntry(typeString string, params []Param) string {
	b := new(strings.Builder)
	b.WriteString(typeString)
	for _, p := range params {
		b.WriteByte(';')
		b.WriteString(assembleParam(p))
	}
	return b.String()
}

const acceptSeparators = "()<>@,;:/[]?={} \t"

func assembleParam(p Param) string {
	if p.Value == "" {
		return p.Key
	}

	needsQuote := strings.ContainsAny(p.Value, acceptSeparators+`"\`)
	for i := 0; i < len(p.Value) && !needsQuote; i++ {
		needsQuote = p.Value[i] < 32 || p.Value[i] == rule.DEL
	}

	if !needsQuote {
		return p.Key + "=" + p.Value
	}
	return p.Key + "=" + rule.Quote(p.Value)
}

func (a *acceptList) parse(line string) error {
	value := line
	if name, v, found := strings.Cut(line, ":"); found && strings.EqualFold(strings.TrimSpace(name), a.name) {
		value = v
	}
	value = strings.Trim(value, string(rule.OWS))

	if err := AssertValidValue(value); err != nil {
		return err
	}

	entries, err := parseEntries(value)
	if err != nil {
		return errors.Wrapf(err, "invalid header line for %s", a.name)
	}

	a.entries = append(a.entries, entries...)
	return nil
}

func parseEntries(value string) ([]MediaRange, error) {
	entries := make([]MediaRange, 0)
	for _, part := range rule.SplitQuoted(value, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		entry, err := parseMediaRange(part)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, errors.Wrap(http.ErrParse, "no media range found")
	}

	return entries, nil
}

func parseMediaRange(raw string) (MediaRange, error) {
	segments := rule.SplitQuoted(raw, ';')
	typeString := strings.TrimSpace(segments[0])

	entry := MediaRange{
		typeString: typeString,
		raw:        raw,
		Subtype:    "*",
		Format:     "*",
		Priority:   1,
		Params:     make([]Param, 0, len(segments)-1),
	}

	typ, subtype, hasSubtype := strings.Cut(typeString, "/")
	entry.Type = strings.TrimSpace(typ)
	if hasSubtype {
		subtype = strings.TrimSpace(subtype)
		entry.Subtype, entry.Format = subtype, subtype
		if s, f, found := strings.Cut(subtype, "+"); found {
			entry.Subtype, entry.Format = strings.TrimSpace(s), strings.TrimSpace(f)
		}
	}

	for _, seg := range segments[1:] {
		key, value, _ := strings.Cut(seg, "=")
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = string(rule.Unquote([]byte(value)))
		}
		entry.Params = append(entry.Params, Param{Key: strings.TrimSpace(key), Value: value})
	}

	if q, ok := entry.Param("q"); ok {
		priority, err := strconv.ParseFloat(q, 64)
		if err != nil || priority < 0 || priority > 1 {
			return MediaRange{}, errors.Wrapf(http.ErrParse, "invalid priority %q", q)
		}
		entry.Priority = priority
	}

	return entry, nil
}

func (a *acceptList) add(typ string, priority float64, params []Param) error {
	if !a.addType.MatchString(typ) {
		return errors.Wrapf(http.ErrConfiguration, "%s expects a valid type; received %q", a.name, typ)
	}
	if priority < 0 || priority > 1 {
		return errors.Wrapf(http.ErrConfiguration, "%s expects a priority in [0, 1]; received %v", a.name, priority)
	}

	if priority != 1 {
		params = append([]Param{{Key: "q", Value: fmt.Sprintf("%01.1f", priority)}}, params...)
	}

	entry, err := parseMediaRange(assembleEntry(typ, params))
	if err != nil {
		return errors.Wrap(http.ErrConfiguration, err.Error())
	}

	a.entries = append(a.entries, entry)
	return nil
}

// Match returns the most preferred own entry compatible with any of candidates,
// given as a comma separated list.
func (a *acceptList) Match(candidates string) (MediaRange, bool) {
	entries, err := parseEntries(candidates)
	if err != nil {
		return MediaRange{}, false
	}
	return a.MatchEntries(entries)
}

// MatchEntries is [acceptList.Match] against parsed entries (e.g. of another header).
func (a *acceptList) MatchEntries(candidates []MediaRange) (MediaRange, bool) {
	for _, left := range a.Prioritized() {
		for _, right := range candidates {
			if matchMediaRange(left, right) {
				return left, true
			}
		}
	}
	return MediaRange{}, false
}

func matchMediaRange(left, right MediaRange) bool {
	if left.Type == "*" || right.Type == "*" {
		return matchAcceptParams(left, right)
	}

	if left.Type != right.Type {
		return false
	}

	subtypeOK := left.Subtype == right.Subtype || left.Subtype == "*" || right.Subtype == "*"
	formatOK := left.Format == right.Format || left.Format == "*" || right.Format == "*"

	return subtypeOK && formatOK && matchAcceptParams(left, right)
}

// matchAcceptParams checks parameters the candidate shares with the own entry.
// A candidate value "a-b" is an inclusive numeric range,
// and "x|y" is a list of alternatives.
func matchAcceptParams(left, right MediaRange) bool {
	for _, p := range right.Params {
		if p.Key == "q" {
			continue
		}

		own, ok := left.Param(p.Key)
		if !ok {
			continue
		}

		if lo, hi, isRange := parseRange(p.Value); isRange {
			v, err := strconv.ParseFloat(own, 64)
			if err != nil || v < lo || v > hi {
				return false
			}
			continue
		}

		if strings.Contains(p.Value, "|") {
			found := false
			for _, option := range strings.Split(p.Value, "|") {
				if option == own {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}

		if own != p.Value {
			return false
		}
	}

	return true
}

func parseRange(s string) (lo, hi float64, ok bool) {
	idx := strings.Index(s, "-")
	if idx <= 0 {
		return 0, 0, false
	}

	lo, err1 := strconv.ParseFloat(strings.Trim(s[:idx], `"`), 64)
	hi, err2 := strconv.ParseFloat(strings.Trim(s[idx+1:], `"`), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}

	return lo, hi, true
}

// HasType reports whether typ is acceptable.
func (a *acceptList) HasType(typ string) bool {
	_, ok := a.Match(typ)
	return ok
}

var (
	acceptTypeRegexp = regexp.MustCompile(`^([a-zA-Z+-]+|\*)/(\*|[a-zA-Z0-9+-]+)$`)
	acceptWordRegexp = regexp.MustCompile(`^([a-zA-Z0-9+-]+|\*)$`)
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.5.1
type Accept struct{ acceptList }

var _ Header = (*Accept)(nil)

func NewAccept() *Accept {
	return &Accept{acceptList{name: "Accept", addType: acceptTypeRegexp}}
}

// ParseAccept parses either a whole line or a bare value.
func ParseAccept(line string) (*Accept, error) {
	h := NewAccept()
	if err := h.parse(line); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Accept) AddMediaType(typ string, priority float64, params ...Param) error {
	return h.add(typ, priority, params)
}

func (h *Accept) HasMediaType(typ string) bool { return h.HasType(typ) }

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.5.2
type AcceptCharset struct{ acceptList }

var _ Header = (*AcceptCharset)(nil)

func NewAcceptCharset() *AcceptCharset {
	return &AcceptCharset{acceptList{name: "Accept-Charset", addType: acceptWordRegexp}}
}

func ParseAcceptCharset(line string) (*AcceptCharset, error) {
	h := NewAcceptCharset()
	if err := h.parse(line); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *AcceptCharset) AddCharset(charset string, priority float64) error {
	return h.add(charset, priority, nil)
}

func (h *AcceptCharset) HasCharset(charset string) bool { return h.HasType(charset) }

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.5.3
type AcceptEncoding struct{ acceptList }

var _ Header = (*AcceptEncoding)(nil)

func NewAcceptEncoding() *AcceptEncoding {
	return &AcceptEncoding{acceptList{name: "Accept-Encoding", addType: acceptWordRegexp}}
}

func ParseAcceptEncoding(line string) (*AcceptEncoding, error) {
	h := NewAcceptEncoding()
	if err := h.parse(line); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *AcceptEncoding) AddEncoding(encoding string, priority float64) error {
	return h.add(encoding, priority, nil)
}

func (h *AcceptEncoding) HasEncoding(encoding string) bool { return h.HasType(encoding) }

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.5.4
type AcceptLanguage struct{ acceptList }

var _ Header = (*AcceptLanguage)(nil)

func NewAcceptLanguage() *AcceptLanguage {
	return &AcceptLanguage{acceptList{name: "Accept-Language", addType: acceptWordRegexp}}
}

func ParseAcceptLanguage(line string) (*AcceptLanguage, error) {
	h := NewAcceptLanguage()
	if err := h.parse(line); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *AcceptLanguage) AddLanguage(language string, priority float64) error {
	return h.add(language, priority, nil)
}

func (h *AcceptLanguage) HasLanguage(language string) bool { return h.HasType(language) }
