package grpc

import (
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names shared with clients.
const (
	FieldLimit      = "limit"
	FieldOffset     = "offset"
	FieldDocumentID = "document_id"
)

func timeString(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func documentMap(d services.DocumentView) map[string]any {
	var local any
	if d.LocalCopyReliable != nil {
		local = *d.LocalCopyReliable
	}
	return map[string]any{
		"id":                  d.ID,
		"title":               d.Title,
		"description":         d.Description,
		"file_name":           d.FileName,
		"media_type":          d.MediaType,
		"size":                d.Size,
		"digest":              d.Digest,
		"content_id":          d.ContentID,
		"tx_id":               d.TxID,
		"anchored":            d.Anchored,
		"trust_state":         d.TrustState,
		"local_copy_reliable": local,
		"created_at":          timeString(d.CreatedAt),
		"updated_at":          timeString(d.UpdatedAt),
	}
}

func recordMap(r services.RecordView) map[string]any {
	meta := map[string]any{}
	for k, v := range r.Metadata {
		meta[k] = v
	}
	return map[string]any{
		"id":          r.ID,
		"document_id": r.DocumentID,
		"kind":        string(r.Kind),
		"status":      string(r.Status),
		"tx_id":       r.TxID,
		"content_id":  r.ContentID,
		"metadata":    meta,
		"created_at":  timeString(r.CreatedAt),
	}
}

func uploadMap(res *services.UploadResult) map[string]any {
	return map[string]any{
		"status":   string(res.Status),
		"reason":   res.Reason,
		"document": documentMap(res.Document),
		"record":   recordMap(res.Record),
	}
}

func outcomeMap(o *services.VerificationOutcome) map[string]any {
	var match any
	if o.HashMatch != nil {
		match = *o.HashMatch
	}
	m := map[string]any{
		"document_id": o.DocumentID,
		"kind":        string(o.Kind),
		"status":      string(o.Status),
		"reason":      o.Reason,
		"hash_match":  match,
		"tx_id":       o.TxID,
		"record":      recordMap(o.Record),
	}
	if o.Err != nil {
		m["error"] = o.Err.Error()
	}
	return m
}

func contentInfoMap(v *services.ContentInfoView) map[string]any {
	return map[string]any{
		"document_id": v.DocumentID,
		"content_id":  v.ContentID,
		"available":   v.Available,
		"size":        v.Size,
		"type":        v.Type,
		"error":       v.Error,
	}
}

func statusMap(st services.ServiceStatus) map[string]any {
	addrs := make([]any, 0, len(st.ContentStore.Addresses))
	for _, a := range st.ContentStore.Addresses {
		addrs = append(addrs, a)
	}
	return map[string]any{
		"content_store": map[string]any{
			"backend":   st.ContentStore.Backend,
			"connected": st.ContentStore.Connected,
			"node_id":   st.ContentStore.NodeID,
			"version":   st.ContentStore.Version,
			"addresses": addrs,
			"error":     st.ContentStore.Error,
		},
		"ledger": map[string]any{
			"backend":      st.Ledger.Backend,
			"connected":    st.Ledger.Connected,
			"chain_id":     st.Ledger.ChainID,
			"latest_block": st.Ledger.LatestBlock,
			"contract":     st.Ledger.Contract,
			"account":      st.Ledger.Account,
			"error":        st.Ledger.Error,
		},
	}
}

func statsMap(st *services.Stats) map[string]any {
	return map[string]any{
		"success_rate":             st.SuccessRate,
		"anchoring_coverage":       st.AnchoringCoverage,
		"total_verifications":      st.TotalVerifications,
		"successful_verifications": st.SuccessfulVerifications,
		"failed_verifications":     st.FailedVerifications,
		"total_documents":          st.TotalDocuments,
		"anchored_documents":       st.AnchoredDocuments,
	}
}

// intField reads a non-negative integer field from a request struct.
func intField(s *structpb.Struct, name string) (int, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	f := n.NumberValue
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return int(f), nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}
