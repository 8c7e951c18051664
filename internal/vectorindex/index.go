package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

func New(pool *pgxpool.Pool) *Index {
	return &Index{pool: pool}
}

// returns the topK nearest neighbors of vec in the given modality's
// space, ordered by descending cosine similarity
func (idx *Index) Query(ctx context.Context, modality Modality, vec []float32, topK int) ([]Neighbor, error) {
	switch modality {
	case ModalityImage:
		return idx.queryImage(ctx, vec, topK)
	case ModalityText:
		return idx.queryText(ctx, vec, topK)
	default:
		return nil, fmt.Errorf("unknown modality: %s", modality)
	}
}

func (idx *Index) queryImage(ctx context.Context, vec []float32, topK int) ([]Neighbor, error) {
	rows, err := idx.pool.Query(ctx, queryImageNeighbors, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute image neighbor query: %w", err)
	}
	defer rows.Close()

	var neighbors []Neighbor

	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.RefID, &n.RefKind, &n.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		neighbors = append(neighbors, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return neighbors, nil
}

func (idx *Index) queryText(ctx context.Context, vec []float32, topK int) ([]Neighbor, error) {
	rows, err := idx.pool.Query(ctx, queryTextNeighbors, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text neighbor query: %w", err)
	}
	defer rows.Close()

	var neighbors []Neighbor

	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.RefID, &n.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		// text vectors are keyed by sign code directly
		n.RefKind = RefSignDefinition
		neighbors = append(neighbors, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return neighbors, nil
}

// verifies at startup that the stored vector dimensions match the
// embedder's output. A mismatch is a configuration error, not a
// per-request condition.
func (idx *Index) CheckDimensions(ctx context.Context, wantImage, wantText int) error {
	checks := []struct {
		table string
		want  int
	}{
		{"image_embeddings", wantImage},
		{"text_embeddings", wantText},
	}

	for _, check := range checks {
		var dims int

		err := idx.pool.QueryRow(ctx, queryColumnDimensions, check.table).Scan(&dims)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", check.table, err)
		}

		if dims != check.want {
			return fmt.Errorf("%s stores %d-dim vectors but the embedder produces %d dims", check.table, dims, check.want)
		}
	}

	return nil
}
