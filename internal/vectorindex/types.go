package vectorindex

import "github.com/jackc/pgx/v5/pgxpool"

// selects which embedding space a query runs against
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityText  Modality = "text"
)

// what a neighbor's reference points at
type RefKind string

const (
	// the canonical digital asset of a sign definition; ref id is the sign code
	RefSignDefinition RefKind = "sign_definition"
	// a real-world photo; ref id is a photo id that must be resolved to a sign code
	RefPhoto RefKind = "photo"
)

// one nearest-neighbor hit
type Neighbor struct {
	RefID   string
	RefKind RefKind
	Score   float32 // cosine similarity in [0,1]
}

// nearest-neighbor search over the two pgvector tables populated by
// offline ingestion
type Index struct {
	pool *pgxpool.Pool
}
