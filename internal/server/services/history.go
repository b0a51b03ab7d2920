package services

import (
	"context"
	"math"
)

// HistoryPage is a page of verification records, newest first.
type HistoryPage struct {
	Records []RecordView
	// Total is the number of records matching the query, ignoring paging.
	Total int64
}

// Stats aggregates an owner's verification log and documents.
type Stats struct {
	// SuccessRate is the percentage of successful records, one decimal.
	SuccessRate float64
	// AnchoringCoverage is the percentage of anchored documents, one decimal.
	AnchoringCoverage       float64
	TotalVerifications      int64
	SuccessfulVerifications int64
	FailedVerifications     int64
	TotalDocuments          int64
	AnchoredDocuments       int64
}

// GetHistory returns verification records. With a document id it returns
// that document's full history; otherwise a page of the owner's history.
func (s *IntegrityService) GetHistory(ctx context.Context, ownerID, documentID string, limit, offset int) (*HistoryPage, error) {
	recs := s.repomanager.Verifications(s.db)

	if documentID != "" {
		if _, err := s.repomanager.Documents(s.db).GetByID(ctx, ownerID, documentID); err != nil {
			return nil, err
		}
		items, err := recs.ListForDocument(ctx, ownerID, documentID)
		if err != nil {
			return nil, err
		}
		out := &HistoryPage{Records: make([]RecordView, 0, len(items)), Total: int64(len(items))}
		for _, r := range items {
			out.Records = append(out.Records, newRecordView(r))
		}
		return out, nil
	}

	limit, offset = page(limit, offset)
	items, total, err := recs.ListForOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := &HistoryPage{Records: make([]RecordView, 0, len(items)), Total: total}
	for _, r := range items {
		out.Records = append(out.Records, newRecordView(r))
	}
	return out, nil
}

// GetStats computes the owner's success rate and anchoring coverage.
func (s *IntegrityService) GetStats(ctx context.Context, ownerID string) (*Stats, error) {
	outcomes, err := s.repomanager.Verifications(s.db).CountByOutcome(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	total, anchored, err := s.repomanager.Documents(s.db).CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		SuccessRate:             percent(outcomes.Success, outcomes.Total()),
		AnchoringCoverage:       percent(anchored, total),
		TotalVerifications:      outcomes.Total(),
		SuccessfulVerifications: outcomes.Success,
		FailedVerifications:     outcomes.Failed,
		TotalDocuments:          total,
		AnchoredDocuments:       anchored,
	}, nil
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
