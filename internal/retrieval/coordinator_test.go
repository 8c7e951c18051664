package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"codeberg.org/quebecsigns/server/internal/geo"
	"codeberg.org/quebecsigns/server/internal/store"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

type fakeIndex struct {
	neighbors []vectorindex.Neighbor
	err       error
	failures  int // errors to return before succeeding
	calls     int
}

func (f *fakeIndex) Query(ctx context.Context, modality vectorindex.Modality, vec []float32, topK int) ([]vectorindex.Neighbor, error) {
	f.calls++

	if f.failures > 0 {
		f.failures--
		return nil, errors.New("transient index failure")
	}

	if f.err != nil {
		return nil, f.err
	}

	return f.neighbors, nil
}

type fakeStore struct {
	photos    map[string]*store.Photo
	instances map[string][]store.SignInstance
	zones     []store.ConstructionZone
	stands    []store.TaxiStand
}

func (f *fakeStore) GetPhoto(ctx context.Context, photoID string) (*store.Photo, error) {
	photo, ok := f.photos[photoID]
	if !ok {
		return nil, store.ErrNotFound
	}

	return photo, nil
}

func (f *fakeStore) InstancesNear(ctx context.Context, signCode string, center geo.Point, radiusMeters float64) ([]store.SignInstance, error) {
	return f.instances[signCode], nil
}

func (f *fakeStore) ActiveZonesNear(ctx context.Context, center geo.Point, radiusMeters float64, now time.Time) ([]store.ConstructionZone, error) {
	return f.zones, nil
}

func (f *fakeStore) TaxiStandsNear(ctx context.Context, center geo.Point, radiusMeters float64) ([]store.TaxiStand, error) {
	return f.stands, nil
}

type fakeDefs map[string]store.SignDefinition

func (f fakeDefs) Get(signCode string) (store.SignDefinition, bool) {
	def, ok := f[signCode]
	return def, ok
}

func testConfig() Config {
	return Config{
		TopK:           8,
		MinScore:       0.55,
		MaxCandidates:  3,
		MaxContextRows: 5,
		RadiusMeters:   250,
		RetryAttempts:  2,
		RetryBaseDelay: time.Millisecond,
	}
}

func defsFor(codes ...string) fakeDefs {
	defs := make(fakeDefs)

	for _, code := range codes {
		defs[code] = store.SignDefinition{
			SignCode:      code,
			ExplanationFR: "Explication " + code,
			ExplanationEN: "Explanation " + code,
		}
	}

	return defs
}

// verifies duplicate hits on the same sign code keep the max score and
// merge evidence sources
func TestRetrieveDeduplicatesOntoSignCodes(t *testing.T) {
	index := &fakeIndex{neighbors: []vectorindex.Neighbor{
		{RefID: "P-120-10", RefKind: vectorindex.RefSignDefinition, Score: 0.90},
		{RefID: "photo-1", RefKind: vectorindex.RefPhoto, Score: 0.95},
		{RefID: "P-150-5", RefKind: vectorindex.RefSignDefinition, Score: 0.70},
	}}

	contextStore := &fakeStore{photos: map[string]*store.Photo{
		"photo-1": {PhotoID: "photo-1", SignCode: "P-120-10"},
	}}

	coord := NewCoordinator(index, contextStore, defsFor("P-120-10", "P-150-5"), testConfig())

	packet, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityImage, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(packet.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates after dedup, got %d", len(packet.Candidates))
	}

	top := packet.Candidates[0]

	if top.SignCode != "P-120-10" {
		t.Errorf("Expected P-120-10 first, got %s", top.SignCode)
	}

	if top.Score != 0.95 {
		t.Errorf("Expected max score 0.95 retained, got %f", top.Score)
	}

	if len(top.Sources) != 2 {
		t.Errorf("Expected merged sources, got %v", top.Sources)
	}
}

// verifies hits below the threshold are excluded and an empty result is
// the distinct no-candidates outcome, not a transport error
func TestRetrieveBelowThreshold(t *testing.T) {
	index := &fakeIndex{neighbors: []vectorindex.Neighbor{
		{RefID: "P-120-10", RefKind: vectorindex.RefSignDefinition, Score: 0.30},
		{RefID: "P-150-5", RefKind: vectorindex.RefSignDefinition, Score: 0.10},
	}}

	coord := NewCoordinator(index, &fakeStore{}, defsFor("P-120-10", "P-150-5"), testConfig())

	_, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityImage, nil)

	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Expected ErrNoCandidates, got %v", err)
	}
}

// a vector hit whose photo row has been removed is excluded, not failed
func TestRetrieveDanglingPhotoExcluded(t *testing.T) {
	index := &fakeIndex{neighbors: []vectorindex.Neighbor{
		{RefID: "photo-gone", RefKind: vectorindex.RefPhoto, Score: 0.95},
		{RefID: "P-120-10", RefKind: vectorindex.RefSignDefinition, Score: 0.80},
	}}

	coord := NewCoordinator(index, &fakeStore{}, defsFor("P-120-10"), testConfig())

	packet, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityImage, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(packet.Candidates) != 1 || packet.Candidates[0].SignCode != "P-120-10" {
		t.Errorf("Expected only the resolvable candidate, got %+v", packet.Candidates)
	}
}

// a sign code with no definition row is excluded, not failed
func TestRetrieveUnknownSignCodeExcluded(t *testing.T) {
	index := &fakeIndex{neighbors: []vectorindex.Neighbor{
		{RefID: "X-UNKNOWN", RefKind: vectorindex.RefSignDefinition, Score: 0.95},
	}}

	coord := NewCoordinator(index, &fakeStore{}, defsFor("P-120-10"), testConfig())

	_, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityText, nil)

	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Expected ErrNoCandidates when every hit dangles, got %v", err)
	}
}

// overflow beyond the candidate cap is dropped lowest-score first and
// recorded on the truncation flag
func TestRetrieveCandidateCap(t *testing.T) {
	var neighbors []vectorindex.Neighbor
	codes := make([]string, 0, 5)

	for i := 0; i < 5; i++ {
		code := fmt.Sprintf("P-%d", i)
		codes = append(codes, code)
		neighbors = append(neighbors, vectorindex.Neighbor{
			RefID:   code,
			RefKind: vectorindex.RefSignDefinition,
			Score:   0.95 - float32(i)*0.05,
		})
	}

	coord := NewCoordinator(&fakeIndex{neighbors: neighbors}, &fakeStore{}, defsFor(codes...), testConfig())

	packet, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityText, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(packet.Candidates) != 3 {
		t.Fatalf("Expected cap of 3 candidates, got %d", len(packet.Candidates))
	}

	if !packet.Truncated {
		t.Error("Expected truncation flag when overflow is dropped")
	}

	// highest scores survive
	if packet.Candidates[0].SignCode != "P-0" || packet.Candidates[2].SignCode != "P-2" {
		t.Errorf("Expected lowest scores dropped first, got %+v", packet.Candidates)
	}
}

// location context joins run and respect the per-category row cap
func TestRetrieveLocationContext(t *testing.T) {
	index := &fakeIndex{neighbors: []vectorindex.Neighbor{
		{RefID: "P-120-10", RefKind: vectorindex.RefSignDefinition, Score: 0.90},
	}}

	zones := make([]store.ConstructionZone, 7)
	for i := range zones {
		zones[i] = store.ConstructionZone{PermitID: fmt.Sprintf("permit-%d", i)}
	}

	contextStore := &fakeStore{
		instances: map[string][]store.SignInstance{
			"P-120-10": {{InstanceID: "inst-1", SignCode: "P-120-10"}},
		},
		zones:  zones,
		stands: []store.TaxiStand{{TaxiStandID: "taxi-1"}},
	}

	coord := NewCoordinator(index, contextStore, defsFor("P-120-10"), testConfig())
	loc := &Location{Latitude: 45.5017, Longitude: -73.5673}

	packet, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityText, loc)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(packet.Candidates[0].Instances) != 1 {
		t.Errorf("Expected 1 instance joined, got %d", len(packet.Candidates[0].Instances))
	}

	if len(packet.Construction) != 5 {
		t.Errorf("Expected construction rows capped at 5, got %d", len(packet.Construction))
	}

	if !packet.Truncated {
		t.Error("Expected truncation flag after dropping construction rows")
	}

	if len(packet.TaxiStands) != 1 {
		t.Errorf("Expected 1 taxi stand, got %d", len(packet.TaxiStands))
	}

	if packet.Location == nil || packet.Location.Latitude != loc.Latitude {
		t.Error("Expected the packet to echo the location used")
	}
}

// without a location the packet has no location context at all
func TestRetrieveNoLocation(t *testing.T) {
	index := &fakeIndex{neighbors: []vectorindex.Neighbor{
		{RefID: "P-120-10", RefKind: vectorindex.RefSignDefinition, Score: 0.90},
	}}

	coord := NewCoordinator(index, &fakeStore{}, defsFor("P-120-10"), testConfig())

	packet, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityText, nil)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if packet.Construction != nil || packet.TaxiStands != nil || packet.Location != nil {
		t.Error("Expected no location context without a user location")
	}
}

// transient index failures are retried with backoff
func TestRetrieveRetriesTransientFailures(t *testing.T) {
	index := &fakeIndex{
		failures: 1,
		neighbors: []vectorindex.Neighbor{
			{RefID: "P-120-10", RefKind: vectorindex.RefSignDefinition, Score: 0.90},
		},
	}

	coord := NewCoordinator(index, &fakeStore{}, defsFor("P-120-10"), testConfig())

	_, err := coord.Retrieve(context.Background(), []float32{0.1}, vectorindex.ModalityText, nil)
	if err != nil {
		t.Fatalf("Expected retry to recover, got %v", err)
	}

	if index.calls != 2 {
		t.Errorf("Expected 2 index calls, got %d", index.calls)
	}
}

// a canceled context aborts instead of retrying
func TestRetrieveHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	index := &fakeIndex{err: errors.New("index unavailable")}
	coord := NewCoordinator(index, &fakeStore{}, defsFor("P-120-10"), testConfig())

	_, err := coord.Retrieve(ctx, []float32{0.1}, vectorindex.ModalityText, nil)
	if err == nil {
		t.Fatal("Expected error from canceled context")
	}

	if index.calls > 1 {
		t.Errorf("Expected no retries after cancellation, got %d calls", index.calls)
	}
}
