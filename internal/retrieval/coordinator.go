package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"codeberg.org/quebecsigns/server/internal/store"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

// returned when no neighbor clears the minimum score threshold. This is
// a valid empty outcome, distinct from an upstream failure.
var ErrNoCandidates = errors.New("retrieval: no candidates above threshold")

func NewCoordinator(index VectorIndex, contextStore ContextStore, defs DefinitionSource, config Config) *Coordinator {
	return &Coordinator{
		index:  index,
		store:  contextStore,
		defs:   defs,
		config: config,
		now:    time.Now,
	}
}

// assembles the evidence packet for one query vector. Read-only and
// safe to retry; a canceled context aborts without returning a partial
// packet.
func (c *Coordinator) Retrieve(ctx context.Context, vec []float32, modality vectorindex.Modality, loc *Location) (*EvidencePacket, error) {
	var neighbors []vectorindex.Neighbor

	err := c.withRetry(ctx, func() error {
		var qerr error
		neighbors, qerr = c.index.Query(ctx, modality, vec, c.config.TopK)
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("similarity index query failed: %w", err)
	}

	candidates, err := c.resolveCandidates(ctx, neighbors)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	packet := &EvidencePacket{Location: loc}

	// rank descending by score; ties break on sign code for stable output
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].SignCode < candidates[j].SignCode
	})

	if len(candidates) > c.config.MaxCandidates {
		candidates = candidates[:c.config.MaxCandidates]
		packet.Truncated = true
	}

	packet.Candidates = candidates

	if loc != nil {
		if err := c.joinLocationContext(ctx, packet, *loc); err != nil {
			return nil, err
		}
	}

	return packet, nil
}

// deduplicates neighbor hits onto sign codes, resolving photo refs
// through the context store. Hits below the score threshold, dangling
// photo refs, and codes with no known definition are all excluded
// rather than failed.
func (c *Coordinator) resolveCandidates(ctx context.Context, neighbors []vectorindex.Neighbor) ([]Candidate, error) {
	byCode := make(map[string]*Candidate)
	var order []string

	for _, n := range neighbors {
		if n.Score < c.config.MinScore {
			continue
		}

		signCode := n.RefID
		source := SourceCanonicalAsset

		if n.RefKind == vectorindex.RefPhoto {
			source = SourceRealPhoto

			var photo *store.Photo

			err := c.withRetry(ctx, func() error {
				var gerr error
				photo, gerr = c.store.GetPhoto(ctx, n.RefID)
				return gerr
			})
			if errors.Is(err, store.ErrNotFound) {
				// the vector hit outlived its relational row; treat the
				// candidate as unavailable rather than failing the query
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("photo resolution failed: %w", err)
			}

			signCode = photo.SignCode
		}

		cand, seen := byCode[signCode]
		if !seen {
			if _, ok := c.defs.Get(signCode); !ok {
				// dangling sign reference: exclude, do not fail
				continue
			}

			def, _ := c.defs.Get(signCode)
			byCode[signCode] = &Candidate{
				SignCode:   signCode,
				Score:      n.Score,
				Sources:    []string{source},
				Definition: def,
			}
			order = append(order, signCode)

			continue
		}

		// duplicate hit for the same sign: keep the max score and merge
		// supporting evidence
		if n.Score > cand.Score {
			cand.Score = n.Score
		}

		if !containsString(cand.Sources, source) {
			cand.Sources = append(cand.Sources, source)
		}
	}

	candidates := make([]Candidate, 0, len(order))
	for _, code := range order {
		candidates = append(candidates, *byCode[code])
	}

	return candidates, nil
}

// joins location-dependent context. Construction zones and taxi stands
// are independent reads and run concurrently; per-candidate sign
// instances are keyed by sign code and fetched sequentially.
func (c *Coordinator) joinLocationContext(ctx context.Context, packet *EvidencePacket, loc Location) error {
	center := loc.point()

	for i := range packet.Candidates {
		var instances []store.SignInstance

		err := c.withRetry(ctx, func() error {
			var ierr error
			instances, ierr = c.store.InstancesNear(ctx, packet.Candidates[i].SignCode, center, c.config.RadiusMeters)
			return ierr
		})
		if err != nil {
			return fmt.Errorf("sign instance lookup failed: %w", err)
		}

		if len(instances) > c.config.MaxContextRows {
			instances = instances[:c.config.MaxContextRows]
			packet.Truncated = true
		}

		packet.Candidates[i].Instances = instances
	}

	var (
		wg               sync.WaitGroup
		zones            []store.ConstructionZone
		stands           []store.TaxiStand
		zonesErr, taxErr error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		zonesErr = c.withRetry(ctx, func() error {
			var zerr error
			zones, zerr = c.store.ActiveZonesNear(ctx, center, c.config.RadiusMeters, c.now())
			return zerr
		})
	}()

	go func() {
		defer wg.Done()
		taxErr = c.withRetry(ctx, func() error {
			var terr error
			stands, terr = c.store.TaxiStandsNear(ctx, center, c.config.RadiusMeters)
			return terr
		})
	}()

	wg.Wait()

	if zonesErr != nil {
		return fmt.Errorf("construction zone lookup failed: %w", zonesErr)
	}

	if taxErr != nil {
		return fmt.Errorf("taxi stand lookup failed: %w", taxErr)
	}

	if len(zones) > c.config.MaxContextRows {
		zones = zones[:c.config.MaxContextRows]
		packet.Truncated = true
	}

	if len(stands) > c.config.MaxContextRows {
		stands = stands[:c.config.MaxContextRows]
		packet.Truncated = true
	}

	packet.Construction = zones
	packet.TaxiStands = stands

	return nil
}

// retries transient failures with exponential backoff, bounded by the
// request deadline. Not-found results are returned immediately.
func (c *Coordinator) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := c.config.RetryBaseDelay

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay *= 2
		}

		err = fn()
		if err == nil || errors.Is(err, store.ErrNotFound) || ctx.Err() != nil {
			return err
		}
	}

	return err
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}

	return false
}
