package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// Text is a string field that never fails to decode. Strings, numbers and
// booleans keep their text; null, "", objects and arrays become absent.
type Text struct {
	v *string
}

func NewText(s string) Text {
	if s == "" {
		return Text{}
	}
	return Text{v: &s}
}

func (t *Text) UnmarshalJSON(b []byte) error {
	t.v = nil
	switch c := firstByte(b); {
	case c == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if s = strings.TrimSpace(s); s != "" {
			t.v = &s
		}
	case c == 't' || c == 'f' || c == '-' || (c >= '0' && c <= '9'):
		s := string(bytes.TrimSpace(b))
		t.v = &s
	}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if t.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*t.v)
}

func (t Text) Valid() bool {
	return t.v != nil
}

// Ptr returns a copy suitable for a nullable column.
func (t Text) Ptr() *string {
	if t.v == nil {
		return nil
	}
	s := *t.v
	return &s
}

func (t Text) String() string {
	if t.v == nil {
		return ""
	}
	return *t.v
}

// Amount is a fixed-point number that accepts JSON numbers or formatted
// strings ("1,234.50", "$ -20", "AUD 10"). Anything else decodes to NULL.
type Amount struct {
	decimal.NullDecimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	a.NullDecimal = decimal.NullDecimal{}
	switch c := firstByte(b); {
	case c == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		a.NullDecimal = parseAmount(s)
	case c == '-' || (c >= '0' && c <= '9'):
		if d, err := decimal.NewFromString(string(bytes.TrimSpace(b))); err == nil {
			a.NullDecimal = decimal.NewNullDecimal(d)
		}
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(a.Decimal.String())), nil
}

func parseAmount(v string) decimal.NullDecimal {
	s := strings.TrimSpace(v)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "AUD", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	// Keep digits and '.' only.
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.NullDecimal{}
	}
	if neg {
		clean = "-" + clean
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// dateLayouts are tried in order. Zoned values keep their offset; zoneless
// values are stored as read.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"02 Jan 2006",
}

// Date is a timestamp that accepts the ISO-ish formats the upstream sends.
// Unparseable values decode to absent.
type Date struct {
	t *time.Time
}

func NewDate(s string) Date {
	return Date{t: parseDate(s)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	d.t = nil
	if firstByte(b) != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	d.t = parseDate(s)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.t.Format(time.RFC3339Nano))
}

func (d Date) Ptr() *time.Time {
	if d.t == nil {
		return nil
	}
	t := *d.t
	return &t
}

func (d Date) Valid() bool {
	return d.t != nil
}

func parseDate(v string) *time.Time {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Bool accepts JSON booleans and the usual string spellings.
type Bool struct {
	v *bool
}

func (b *Bool) UnmarshalJSON(raw []byte) error {
	b.v = nil
	var s string
	switch c := firstByte(raw); {
	case c == 't' || c == 'f':
		s = string(bytes.TrimSpace(raw))
	case c == '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	case c >= '0' && c <= '9':
		s = string(bytes.TrimSpace(raw))
	default:
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		v := true
		b.v = &v
	case "false", "no", "n", "0":
		v := false
		b.v = &v
	}
	return nil
}

func (b Bool) Ptr() *bool {
	if b.v == nil {
		return nil
	}
	v := *b.v
	return &v
}

// Int accepts a JSON integer or a numeric string.
type Int struct {
	v *int
}

func (i *Int) UnmarshalJSON(b []byte) error {
	i.v = nil
	var t Text
	_ = t.UnmarshalJSON(b)
	if !t.Valid() {
		return nil
	}
	if n, err := strconv.Atoi(t.String()); err == nil {
		i.v = &n
	}
	return nil
}

func (i Int) Ptr() *int {
	if i.v == nil {
		return nil
	}
	n := *i.v
	return &n
}

// List decodes a JSON array element by element. A non-array value is an
// empty list and elements that fail to decode are dropped.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	if firstByte(b) != '[' {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// RawList keeps each array element undecoded so callers can give every
// element its own failure scope. A non-array value is an empty list.
type RawList []json.RawMessage

func (l *RawList) UnmarshalJSON(b []byte) error {
	*l = nil
	if firstByte(b) != '[' {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil
	}
	*l = raws
	return nil
}

// Entry is one (key, value) pair of a JSON object, value undecoded.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Entries is a JSON object kept as an ordered sequence of pairs, as the
// upstream keys cases and insolvencies by uuid. An array is accepted with
// positional keys; any other value is empty.
type Entries []Entry

func (e *Entries) UnmarshalJSON(b []byte) error {
	*e = nil
	switch firstByte(b) {
	case '[':
		var raws RawList
		_ = raws.UnmarshalJSON(b)
		out := make(Entries, 0, len(raws))
		for i, raw := range raws {
			out = append(out, Entry{Key: PositionalKey(i), Value: raw})
		}
		*e = out
		return nil
	case '{':
	default:
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var out Entries
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, Entry{Key: key, Value: raw})
	}
	*e = out
	return nil
}

// PositionalKey names an element that carries no upstream id.
func PositionalKey(i int) string {
	return "idx-" + strconv.Itoa(i)
}
