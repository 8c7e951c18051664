package retrieval

import (
	"context"
	"time"

	"codeberg.org/quebecsigns/server/internal/geo"
	"codeberg.org/quebecsigns/server/internal/store"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

// nearest-neighbor search over the embedding spaces
type VectorIndex interface {
	Query(ctx context.Context, modality vectorindex.Modality, vec []float32, topK int) ([]vectorindex.Neighbor, error)
}

// read-only relational lookups needed to assemble evidence
type ContextStore interface {
	GetPhoto(ctx context.Context, photoID string) (*store.Photo, error)
	InstancesNear(ctx context.Context, signCode string, center geo.Point, radiusMeters float64) ([]store.SignInstance, error)
	ActiveZonesNear(ctx context.Context, center geo.Point, radiusMeters float64, now time.Time) ([]store.ConstructionZone, error)
	TaxiStandsNear(ctx context.Context, center geo.Point, radiusMeters float64) ([]store.TaxiStand, error)
}

// cached sign definition lookups
type DefinitionSource interface {
	Get(signCode string) (store.SignDefinition, bool)
}

// where a candidate's similarity evidence came from
const (
	SourceCanonicalAsset = "canonical_asset"
	SourceRealPhoto      = "real_photo"
)

// the user's coordinate, echoed back in the packet
type Location struct {
	Latitude     float64
	Longitude    float64
	Municipality string
}

func (l Location) point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// one candidate sign identity with its joined context
type Candidate struct {
	SignCode   string
	Score      float32
	Sources    []string
	Definition store.SignDefinition
	Instances  []store.SignInstance
}

// the bounded, deduplicated evidence assembled for one query
type EvidencePacket struct {
	Candidates   []Candidate
	Construction []store.ConstructionZone
	TaxiStands   []store.TaxiStand
	Location     *Location
	// set whenever any cap dropped rows, so downstream consumers know
	// the evidence is incomplete
	Truncated bool
}

// turns one query vector into an evidence packet
type Coordinator struct {
	index  VectorIndex
	store  ContextStore
	defs   DefinitionSource
	config Config

	// injectable clock for the construction "active now" predicate
	now func() time.Time
}

type Config struct {
	TopK           int
	MinScore       float32
	MaxCandidates  int
	MaxContextRows int
	RadiusMeters   float64
	RetryAttempts  int
	RetryBaseDelay time.Duration
}
