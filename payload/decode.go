// Package payload holds the typed upstream report documents. Field access is
// total: absent or ill-typed scalars decode to null rather than failing.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Kind string

const (
	KindStandard Kind = "standard"
	KindPPSR     Kind = "ppsr"
)

// Payload is the tagged union of the two upstream document shapes.
type Payload struct {
	Kind     Kind
	Standard *StandardReportPayload
	PPSR     *PpsrReportPayload
}

var ErrNotObject = errors.New("report payload is not a JSON object")

// Decode selects the shape by the presence of a PPSR cloud id.
func Decode(raw []byte) (*Payload, error) {
	if firstByte(raw) != '{' {
		return nil, ErrNotObject
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("decode report payload: %w", err)
	}

	if id, ok := top["ppsrCloudId"]; ok && !isNull(id) {
		var p PpsrReportPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode ppsr payload: %w", err)
		}
		return &Payload{Kind: KindPPSR, PPSR: &p}, nil
	}

	var p StandardReportPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode report payload: %w", err)
	}
	return &Payload{Kind: KindStandard, Standard: &p}, nil
}

// DecodeAs decodes one aggregate. Absent or null input returns (nil, nil).
func DecodeAs[T any](raw json.RawMessage) (*T, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// NeedsRefetch reports whether the document carries an asic_extracts array
// that is still empty, which the upstream fills in eventually.
func NeedsRefetch(raw []byte) bool {
	if firstByte(raw) != '{' {
		return false
	}
	var top struct {
		AsicExtracts *json.RawMessage `json:"asic_extracts"`
	}
	if err := json.Unmarshal(raw, &top); err != nil || top.AsicExtracts == nil {
		return false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(*top.AsicExtracts, &list); err != nil {
		return false
	}
	return len(list) == 0
}

// IdOf reads the "id" member of an aggregate even when the rest of it is
// malformed, so failures can be reported against the upstream id.
func IdOf(raw json.RawMessage) string {
	var v struct {
		Id Text `json:"id"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.Id.String()
}
