package payload

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTextAcceptsAnyScalar(t *testing.T) {
	var rec struct {
		S Text `json:"s"`
		N Text `json:"n"`
		B Text `json:"b"`
		E Text `json:"e"`
		O Text `json:"o"`
		A Text `json:"a"`
		Z Text `json:"z"`
		M Text `json:"missing"`
	}
	raw := `{"s":" ACME ","n":123.5,"b":true,"e":"","o":{"x":1},"a":[1],"z":null}`
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.S.String() != "ACME" || rec.N.String() != "123.5" || rec.B.String() != "true" {
		t.Fatalf("unexpected scalars: %q %q %q", rec.S.String(), rec.N.String(), rec.B.String())
	}
	for name, v := range map[string]Text{"e": rec.E, "o": rec.O, "a": rec.A, "z": rec.Z, "missing": rec.M} {
		if v.Valid() || v.Ptr() != nil {
			t.Fatalf("%s: expected null, got %q", name, v.String())
		}
	}
}

func TestAmountAcceptsFormattedValues(t *testing.T) {
	cases := []struct {
		in       string
		valid    bool
		expected string
	}{
		{`1234.5`, true, "1234.5"},
		{`"20,000"`, true, "20000"},
		{`"$ -1,234.50"`, true, "-1234.5"},
		{`"AUD 10"`, true, "10"},
		{`"N/A"`, false, ""},
		{`null`, false, ""},
		{`{"value":1}`, false, ""},
		{`true`, false, ""},
	}
	for _, tc := range cases {
		var a Amount
		if err := json.Unmarshal([]byte(tc.in), &a); err != nil {
			t.Fatalf("Amount(%s) error: %v", tc.in, err)
		}
		if a.Valid != tc.valid {
			t.Fatalf("Amount(%s) valid: expected %v, got %v", tc.in, tc.valid, a.Valid)
		}
		if tc.valid && a.Decimal.String() != tc.expected {
			t.Fatalf("Amount(%s) expected %s, got %s", tc.in, tc.expected, a.Decimal.String())
		}
	}
}

func TestDateKeepsReceivedValue(t *testing.T) {
	d := NewDate("2023-05-01T10:30:00+10:00")
	if !d.Valid() {
		t.Fatalf("expected zoned timestamp to parse")
	}
	if _, offset := d.Ptr().Zone(); offset != 10*3600 {
		t.Fatalf("expected offset to be kept, got %d", offset)
	}

	plain := NewDate("2021-03-04")
	want := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	if !plain.Valid() || !plain.Ptr().Equal(want) {
		t.Fatalf("expected %v, got %v", want, plain.Ptr())
	}

	au := NewDate("04/03/2021")
	if !au.Valid() || !au.Ptr().Equal(want) {
		t.Fatalf("expected day-first date %v, got %v", want, au.Ptr())
	}

	var bad struct {
		D Date `json:"d"`
		N Date `json:"n"`
	}
	if err := json.Unmarshal([]byte(`{"d":"not a date","n":12}`), &bad); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bad.D.Valid() || bad.N.Valid() {
		t.Fatalf("expected unparseable dates to be absent")
	}
}

func TestDateAcceptsZonedForms(t *testing.T) {
	want := time.Date(2023, 6, 1, 9, 30, 0, 0, time.FixedZone("", 10*3600))
	cases := []string{
		"2023-06-01T09:30:00+10:00",
		"2023-06-01T09:30:00+1000",
		"2023-06-01T09:30:00.000+1000",
		"2023-06-01 09:30:00+10:00",
		"2023-06-01 09:30:00.000+10:00",
		"2023-06-01 09:30:00+1000",
		"2023-05-31T23:30:00.000000Z",
	}
	for _, in := range cases {
		d := NewDate(in)
		if !d.Valid() {
			t.Fatalf("NewDate(%q): expected a timestamp, got absent", in)
		}
		if !d.Ptr().Equal(want) {
			t.Fatalf("NewDate(%q): expected %v, got %v", in, want, d.Ptr())
		}
	}
	if _, offset := NewDate("2023-06-01T09:30:00+1000").Ptr().Zone(); offset != 10*3600 {
		t.Fatalf("expected the stated offset to be kept, got %d", offset)
	}
}

func TestEntriesPreserveKeyOrder(t *testing.T) {
	var e Entries
	raw := `{"c-3":{"number":"3"},"a-1":{"number":"1"},"b-2":{"number":"2"}}`
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := []string{"c-3", "a-1", "b-2"}
	if len(e) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(e))
	}
	for i, k := range keys {
		if e[i].Key != k {
			t.Fatalf("entry %d: expected key %s, got %s", i, k, e[i].Key)
		}
	}

	var arr Entries
	if err := json.Unmarshal([]byte(`[{"number":"1"},{"number":"2"}]`), &arr); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if len(arr) != 2 || arr[1].Key != "idx-1" {
		t.Fatalf("expected positional keys, got %+v", arr)
	}

	var str Entries
	if err := json.Unmarshal([]byte(`"nope"`), &str); err != nil || len(str) != 0 {
		t.Fatalf("expected string to decode as empty, got %v (%v)", str, err)
	}
}

func TestDecodeSelectsShape(t *testing.T) {
	std, err := Decode([]byte(`{"uuid":"u-1","entity":{"name":"ACME"},"asic_extracts":[{"id":"ext-1"}]}`))
	if err != nil {
		t.Fatalf("decode standard: %v", err)
	}
	if std.Kind != KindStandard || std.Standard == nil || len(std.Standard.AsicExtracts) != 1 {
		t.Fatalf("unexpected standard decode: %+v", std)
	}

	ppsr, err := Decode([]byte(`{"ppsrCloudId":"cloud-9","resource":{"items":[{"registrationNumber":"R1"}]}}`))
	if err != nil {
		t.Fatalf("decode ppsr: %v", err)
	}
	if ppsr.Kind != KindPPSR || ppsr.PPSR.PpsrCloudId.String() != "cloud-9" || len(ppsr.PPSR.Resource.Items) != 1 {
		t.Fatalf("unexpected ppsr decode: %+v", ppsr)
	}

	nullId, err := Decode([]byte(`{"ppsrCloudId":null,"asic_extracts":[]}`))
	if err != nil || nullId.Kind != KindStandard {
		t.Fatalf("expected null ppsrCloudId to decode as standard, got %+v (%v)", nullId, err)
	}

	if _, err := Decode([]byte(`[1,2]`)); err != ErrNotObject {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestMalformedCollectionFailsOnlyItsExtract(t *testing.T) {
	p, err := Decode([]byte(`{"asic_extracts":[{"id":"a","directors":[]},{"id":"b","directors":"oops"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := DecodeAs[AsicExtractRecord](p.Standard.AsicExtracts[0]); err != nil {
		t.Fatalf("first extract: %v", err)
	}
	if _, err := DecodeAs[AsicExtractRecord](p.Standard.AsicExtracts[1]); err == nil {
		t.Fatalf("expected malformed directors to fail the second extract")
	}
}

func TestInlineAddressPresence(t *testing.T) {
	var rec AsicExtractRecord
	raw := `{"directors":[{"name":"A","address":{"suburb":"Sydney"}},{"name":"B","address":"1 George St"},{"name":"C"}]}`
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rec.Directors[0].Address.Present() || rec.Directors[0].Address.Suburb.String() != "Sydney" {
		t.Fatalf("expected object address to be present")
	}
	if rec.Directors[1].Address.Present() || rec.Directors[2].Address.Present() {
		t.Fatalf("expected non-object and missing addresses to be absent")
	}
}

func TestNeedsRefetch(t *testing.T) {
	cases := map[string]bool{
		`{"asic_extracts":[]}`:           true,
		`{"asic_extracts":[{"id":"x"}]}`: false,
		`{"asic_extracts":null}`:         false,
		`{"cases":{}}`:                   false,
		`not json`:                       false,
	}
	for raw, want := range cases {
		if got := NeedsRefetch([]byte(raw)); got != want {
			t.Fatalf("NeedsRefetch(%s): expected %v, got %v", raw, want, got)
		}
	}
}

func TestPpsrGroups(t *testing.T) {
	raw := `{"ppsrCloudId":"c1","resource":{
		"searchCriteriaSummaries":[
			{"searchNumber":"S1","items":[{"registrationNumber":"R0"}]},
			{"searchNumber":"S2"}
		],
		"items":[
			{"registrationNumber":"R1","searchNumber":"S2"},
			{"registrationNumber":"R2"},
			{"registrationNumber":"R0","searchNumber":"S1"},
			"garbage"
		]}}`
	p, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	groups := p.PPSR.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	regs := func(g PpsrSearchGroup) []string {
		var out []string
		for _, it := range g.Items {
			out = append(out, it.RegistrationNumber.String())
		}
		return out
	}
	if got := regs(groups[0]); len(got) != 2 || got[0] != "R0" || got[1] != "R2" {
		t.Fatalf("first group: unexpected items %v", got)
	}
	if got := regs(groups[1]); len(got) != 1 || got[0] != "R1" {
		t.Fatalf("second group: unexpected items %v", got)
	}
	if len(groups[0].Summary.Raw) == 0 {
		t.Fatalf("expected raw summary to be kept")
	}

	noSummary, _ := Decode([]byte(`{"ppsrCloudId":"c2","resource":{"items":[{"registrationNumber":"R9"}]}}`))
	g := noSummary.PPSR.Groups()
	if len(g) != 1 || !g[0].Synthetic || len(g[0].Items) != 1 {
		t.Fatalf("expected one synthetic group, got %+v", g)
	}

	empty, _ := Decode([]byte(`{"ppsrCloudId":"c3","resource":"pending"}`))
	if len(empty.PPSR.Groups()) != 0 {
		t.Fatalf("expected no groups for an empty resource")
	}
}
