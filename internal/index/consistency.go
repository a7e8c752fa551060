package index

import (
	"context"
	"time"

	"github.com/contextweaver/contextweaver/internal/store"
)

// InconsistencyType classifies a detected drift between the row store and
// the vector store.
type InconsistencyType string

const (
	// InconsistencyOrphanVector is a chunk ID present in the vector store
	// but with no corresponding row in metadata.
	InconsistencyOrphanVector InconsistencyType = "orphan_vector"
	// InconsistencyMissingVector is a chunk row in metadata with no
	// corresponding vector, so it can never surface in semantic recall.
	InconsistencyMissingVector InconsistencyType = "missing_vector"
)

// Inconsistency is a single detected drift.
type Inconsistency struct {
	Type    InconsistencyType
	ChunkID string
}

// CheckResult summarizes a consistency pass.
type CheckResult struct {
	Checked         int
	Inconsistencies []Inconsistency
	Duration        time.Duration
}

// ConsistencyChecker compares the row store's chunk IDs against the
// vector store's, catching the two ways a crash between the monotonic
// upsert's steps can leave the index skewed: a vector inserted but its
// row never written, or a row written but its vector never added.
type ConsistencyChecker struct {
	metadata store.MetadataStore
	vector   store.VectorStore
}

// NewConsistencyChecker builds a ConsistencyChecker over the given stores.
func NewConsistencyChecker(metadata store.MetadataStore, vector store.VectorStore) *ConsistencyChecker {
	return &ConsistencyChecker{metadata: metadata, vector: vector}
}

// Check performs a full comparison of chunk IDs between stores.
func (c *ConsistencyChecker) Check(ctx context.Context, projectID string) (*CheckResult, error) {
	start := time.Now()

	rowIDs, err := c.metadata.GetAllChunkIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	rowSet := make(map[string]bool, len(rowIDs))
	for _, id := range rowIDs {
		rowSet[id] = true
	}

	vectorIDs := c.vector.AllIDs()
	vectorSet := make(map[string]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		vectorSet[id] = true
	}

	var issues []Inconsistency
	for id := range vectorSet {
		if !rowSet[id] {
			issues = append(issues, Inconsistency{Type: InconsistencyOrphanVector, ChunkID: id})
		}
	}
	for id := range rowSet {
		if !vectorSet[id] {
			issues = append(issues, Inconsistency{Type: InconsistencyMissingVector, ChunkID: id})
		}
	}

	return &CheckResult{
		Checked:         len(rowSet) + len(vectorSet),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}, nil
}

// QuickCheck compares only counts, for a fast health signal that avoids
// loading every chunk ID.
func (c *ConsistencyChecker) QuickCheck(ctx context.Context, projectID string) (bool, error) {
	rowIDs, err := c.metadata.GetAllChunkIDs(ctx, projectID)
	if err != nil {
		return false, err
	}
	return len(rowIDs) == c.vector.Count(), nil
}

// Repair removes vector entries that have no backing row. Rows missing a
// vector can't be repaired here — they need re-embedding, which means
// re-running the indexer on the owning file — so Repair returns them
// unchanged in remaining; repaired counts only the deleted orphan vectors.
func (c *ConsistencyChecker) Repair(ctx context.Context, issues []Inconsistency) (repaired int, remaining []Inconsistency, err error) {
	var orphanIDs []string
	for _, issue := range issues {
		if issue.Type == InconsistencyOrphanVector {
			orphanIDs = append(orphanIDs, issue.ChunkID)
		} else {
			remaining = append(remaining, issue)
		}
	}

	if len(orphanIDs) > 0 {
		if err := c.vector.Delete(ctx, orphanIDs); err != nil {
			return 0, issues, err
		}
	}

	return len(orphanIDs), remaining, nil
}
