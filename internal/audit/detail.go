package audit

import (
	"encoding/json"
	"fmt"
)

// Detail is the structured payload attached to an entry. Each known action
// shape is its own type; payloads recorded by newer writers that this
// binary does not know decode as OpaqueDetail so nothing is dropped.
type Detail interface {
	DetailKind() string
}

// detailVersion is the current envelope version. Bump when an existing
// shape changes incompatibly.
const detailVersion = 1

// SearchDetail describes a directory or audit search.
type SearchDetail struct {
	Query string `json:"query"`
	// Cohorts lists the graduation years the search was scoped to; empty
	// with AllCohorts set means the search spanned the whole directory.
	Cohorts    []int `json:"cohorts,omitempty"`
	AllCohorts bool  `json:"all_cohorts"`
	ResultRows int   `json:"result_rows"`
}

func (SearchDetail) DetailKind() string { return "search" }

// ExportDetail describes a bulk data export.
type ExportDetail struct {
	Format   string            `json:"format"`
	RowCount int               `json:"row_count"`
	Filters  map[string]string `json:"filters,omitempty"`
}

func (ExportDetail) DetailKind() string { return "export" }

// ReviewDetail describes a verification-document verdict.
type ReviewDetail struct {
	DocumentID string `json:"document_id"`
	Decision   string `json:"decision"`
	Notes      string `json:"notes,omitempty"`
}

func (ReviewDetail) DetailKind() string { return "review" }

// ResponseDetail describes a contact-access response.
type ResponseDetail struct {
	RequestID      string   `json:"request_id"`
	Decision       string   `json:"decision"`
	ApprovedFields []string `json:"approved_fields,omitempty"`
	BlockFuture    bool     `json:"block_future"`
}

func (ResponseDetail) DetailKind() string { return "response" }

// DeletionDetail describes a destructive operation on a record.
type DeletionDetail struct {
	Reason string `json:"reason,omitempty"`
}

func (DeletionDetail) DetailKind() string { return "deletion" }

// SweepDetail summarizes one expiry-sweep run, keyed by sweep name.
type SweepDetail struct {
	Counts   map[string]int `json:"counts"`
	Failures []string       `json:"failures,omitempty"`
}

func (SweepDetail) DetailKind() string { return "sweep" }

// OpaqueDetail carries payload shapes this binary does not know. Also the
// decode fallback for forward compatibility.
type OpaqueDetail map[string]string

func (OpaqueDetail) DetailKind() string { return "opaque" }

type detailEnvelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// EncodeDetail serializes a detail into its versioned envelope. A nil
// detail encodes as an empty opaque payload.
func EncodeDetail(d Detail) ([]byte, error) {
	if d == nil {
		d = OpaqueDetail{}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal detail payload: %w", err)
	}
	return json.Marshal(detailEnvelope{
		Kind:    d.DetailKind(),
		Version: detailVersion,
		Data:    data,
	})
}

// DecodeDetail parses a versioned envelope back into its concrete shape.
// Unknown kinds, and known kinds from future versions, come back as
// OpaqueDetail rather than an error.
func DecodeDetail(raw []byte) (Detail, error) {
	if len(raw) == 0 {
		return OpaqueDetail{}, nil
	}
	var env detailEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal detail envelope: %w", err)
	}

	if env.Version == detailVersion {
		switch env.Kind {
		case "search":
			return decodeAs[SearchDetail](env.Data)
		case "export":
			return decodeAs[ExportDetail](env.Data)
		case "review":
			return decodeAs[ReviewDetail](env.Data)
		case "response":
			return decodeAs[ResponseDetail](env.Data)
		case "deletion":
			return decodeAs[DeletionDetail](env.Data)
		case "sweep":
			return decodeAs[SweepDetail](env.Data)
		}
	}

	var opaque map[string]any
	if err := json.Unmarshal(env.Data, &opaque); err != nil {
		return nil, fmt.Errorf("unmarshal opaque detail: %w", err)
	}
	out := make(OpaqueDetail, len(opaque))
	for k, v := range opaque {
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

func decodeAs[T Detail](data json.RawMessage) (Detail, error) {
	var d T
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal %s detail: %w", d.DetailKind(), err)
	}
	return d, nil
}
