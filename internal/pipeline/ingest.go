package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/veracity-cli/internal/model"
	"github.com/sells-group/veracity-cli/internal/priors"
)

// IngestResult summarizes one evidence ingestion.
type IngestResult struct {
	RunID    string `json:"run_id"`
	Received int    `json:"received"`
	Unique   int    `json:"unique"`
	New      int    `json:"new"`
}

// DecodeEvidence reads a JSON array of article records.
func DecodeEvidence(r io.Reader) ([]model.EvidenceItem, error) {
	var items []model.EvidenceItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, eris.Wrap(err, "pipeline: decode evidence")
	}
	return items, nil
}

// NormalizeEvidence trims urls, normalizes domains (deriving them from the
// url when absent), defaults retrieved_at and drops repeated urls, keeping
// the first occurrence.
func (p *Pipeline) NormalizeEvidence(items []model.EvidenceItem) ([]model.EvidenceItem, error) {
	return normalizeEvidence(items, p.now())
}

func normalizeEvidence(items []model.EvidenceItem, now time.Time) ([]model.EvidenceItem, error) {
	seen := make(map[string]bool, len(items))
	out := make([]model.EvidenceItem, 0, len(items))
	for i, it := range items {
		it.URL = strings.TrimSpace(it.URL)
		if it.URL == "" {
			return nil, eris.Errorf("pipeline: evidence %d: url is required", i)
		}
		if seen[it.URL] {
			continue
		}
		seen[it.URL] = true

		domain := it.Domain
		if strings.TrimSpace(domain) == "" {
			domain = it.URL
		}
		it.Domain = priors.NormalizeDomain(domain)
		if it.Domain == "" {
			return nil, eris.Errorf("pipeline: evidence %d: cannot derive domain from %q", i, it.URL)
		}
		it.Title = strings.TrimSpace(it.Title)
		it.Snippet = strings.TrimSpace(it.Snippet)
		if it.RetrievedAt.IsZero() {
			it.RetrievedAt = now
		}
		if it.PublishedAt != nil {
			t := it.PublishedAt.UTC()
			it.PublishedAt = &t
		}
		it.RetrievedAt = it.RetrievedAt.UTC()
		out = append(out, it)
	}
	return out, nil
}

// Ingest stores evidence for a run. Urls already stored are linked, not
// duplicated.
func (p *Pipeline) Ingest(ctx context.Context, runID string, items []model.EvidenceItem) (*IngestResult, error) {
	normalized, err := p.NormalizeEvidence(items)
	if err != nil {
		return nil, err
	}
	n, err := p.store.SaveEvidence(ctx, runID, normalized)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: ingest run %s", runID)
	}

	res := &IngestResult{RunID: runID, Received: len(items), Unique: len(normalized), New: n}
	zap.L().Info("pipeline: evidence ingested",
		zap.String("run_id", runID),
		zap.Int("received", res.Received),
		zap.Int("unique", res.Unique),
		zap.Int("new", res.New),
	)
	return res, nil
}
