package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"codeberg.org/quebecsigns/server/internal/geo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sentinel for keyed lookups that found no row. Callers on the query
// path treat this as "context unavailable", never as a failure.
var ErrNotFound = errors.New("store: not found")

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// loads all sign definitions; used to build the reference cache
func (s *Store) AllSignDefinitions(ctx context.Context) ([]SignDefinition, error) {
	rows, err := s.pool.Query(ctx, queryAllSignDefinitions)
	if err != nil {
		return nil, fmt.Errorf("failed to query sign definitions: %w", err)
	}
	defer rows.Close()

	var defs []SignDefinition

	for rows.Next() {
		var d SignDefinition

		err := rows.Scan(
			&d.SignCode,
			&d.ExplanationFR,
			&d.ExplanationEN,
			&d.Category,
			&d.RPACode,
			&d.RPADescription,
			&d.RTPDescription,
			&d.AssetURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		defs = append(defs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return defs, nil
}

// resolves a photo id from the image index to its relational row.
// Returns ErrNotFound for vector hits whose row has since been removed.
func (s *Store) GetPhoto(ctx context.Context, photoID string) (*Photo, error) {
	var (
		p          Photo
		source     string
		rawTags    []byte
		capturedAt *time.Time
	)

	err := s.pool.QueryRow(ctx, queryGetPhoto, photoID).Scan(
		&p.PhotoID,
		&p.SignCode,
		&p.ImageURL,
		&source,
		&p.Latitude,
		&p.Longitude,
		&rawTags,
		&p.IsSynthetic,
		&capturedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get photo %s: %w", photoID, err)
	}

	p.Source = PhotoSource(source)

	if capturedAt != nil {
		p.CapturedAt = *capturedAt
	}

	var tags []string
	if err := json.Unmarshal(rawTags, &tags); err == nil {
		for _, tag := range tags {
			p.Conditions = append(p.Conditions, ParseConditionTag(tag))
		}
	}

	return &p, nil
}

// returns sign instances of the given code whose pole lies within
// radiusMeters of center, nearest first. The boundary is inclusive.
func (s *Store) InstancesNear(ctx context.Context, signCode string, center geo.Point, radiusMeters float64) ([]SignInstance, error) {
	box := geo.BoxAround(center, radiusMeters)

	rows, err := s.pool.Query(ctx, queryInstancesNear, signCode, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("failed to query sign instances: %w", err)
	}
	defer rows.Close()

	var instances []SignInstance

	for rows.Next() {
		var (
			inst        SignInstance
			lastUpdated *time.Time
		)

		err := rows.Scan(
			&inst.InstanceID,
			&inst.SignCode,
			&inst.PoleID,
			&inst.PanelID,
			&inst.Source,
			&lastUpdated,
			&inst.Latitude,
			&inst.Longitude,
			&inst.Municipality,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if lastUpdated != nil {
			inst.LastUpdated = *lastUpdated
		}

		if geo.WithinRadius(center, geo.Point{Latitude: inst.Latitude, Longitude: inst.Longitude}, radiusMeters) {
			instances = append(instances, inst)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	sortByDistance(instances, center, func(i SignInstance) geo.Point {
		return geo.Point{Latitude: i.Latitude, Longitude: i.Longitude}
	})

	return instances, nil
}

// returns construction zones within radiusMeters of center that are in
// effect at now, with their impact details attached, nearest first
func (s *Store) ActiveZonesNear(ctx context.Context, center geo.Point, radiusMeters float64, now time.Time) ([]ConstructionZone, error) {
	box := geo.BoxAround(center, radiusMeters)

	rows, err := s.pool.Query(ctx, queryZonesNear, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("failed to query construction zones: %w", err)
	}
	defer rows.Close()

	var zones []ConstructionZone

	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, err
		}

		if !zone.IsActiveAt(now) {
			continue
		}

		if geo.WithinRadius(center, geo.Point{Latitude: zone.Latitude, Longitude: zone.Longitude}, radiusMeters) {
			zones = append(zones, *zone)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if err := s.attachImpacts(ctx, zones); err != nil {
		return nil, err
	}

	sortByDistance(zones, center, func(z ConstructionZone) geo.Point {
		return geo.Point{Latitude: z.Latitude, Longitude: z.Longitude}
	})

	return zones, nil
}

// returns taxi stands within radiusMeters of center, nearest first
func (s *Store) TaxiStandsNear(ctx context.Context, center geo.Point, radiusMeters float64) ([]TaxiStand, error) {
	box := geo.BoxAround(center, radiusMeters)

	rows, err := s.pool.Query(ctx, queryTaxiStandsNear, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxi stands: %w", err)
	}
	defer rows.Close()

	var stands []TaxiStand

	for rows.Next() {
		var stand TaxiStand

		err := rows.Scan(
			&stand.TaxiStandID,
			&stand.Status,
			&stand.OperationHours,
			&stand.Latitude,
			&stand.Longitude,
			&stand.NumPlaces,
			&stand.Name,
			&stand.Type,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if geo.WithinRadius(center, geo.Point{Latitude: stand.Latitude, Longitude: stand.Longitude}, radiusMeters) {
			stands = append(stands, stand)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	sortByDistance(stands, center, func(st TaxiStand) geo.Point {
		return geo.Point{Latitude: st.Latitude, Longitude: st.Longitude}
	})

	return stands, nil
}

func scanZone(rows pgx.Rows) (*ConstructionZone, error) {
	var (
		z                  ConstructionZone
		active, allday     [7]bool // mon..sun column order
		startDate, endDate *time.Time
	)

	err := rows.Scan(
		&z.PermitID,
		&z.PermitNumber,
		&z.Status,
		&z.Reason,
		&z.Organization,
		&startDate,
		&endDate,
		&active[0], &active[1], &active[2], &active[3], &active[4], &active[5], &active[6],
		&allday[0], &allday[1], &allday[2], &allday[3], &allday[4], &allday[5], &allday[6],
		&z.Latitude,
		&z.Longitude,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	z.StartDate = startDate
	z.EndDate = endDate

	// columns are Monday-first; ActivityWindow is indexed by time.Weekday
	for i := 0; i < 7; i++ {
		weekday := time.Weekday((i + 1) % 7)
		z.Week[weekday] = DayWindow{Active: active[i], AllDay: allday[i]}
	}

	return &z, nil
}

func (s *Store) attachImpacts(ctx context.Context, zones []ConstructionZone) error {
	if len(zones) == 0 {
		return nil
	}

	permitIDs := make([]string, 0, len(zones))
	for _, z := range zones {
		permitIDs = append(permitIDs, z.PermitID)
	}

	rows, err := s.pool.Query(ctx, queryImpactsForPermits, permitIDs)
	if err != nil {
		return fmt.Errorf("failed to query impact details: %w", err)
	}
	defer rows.Close()

	byPermit := make(map[string][]ConstructionImpact)

	for rows.Next() {
		var imp ConstructionImpact

		err := rows.Scan(
			&imp.ImpactID,
			&imp.PermitID,
			&imp.StreetName,
			&imp.FromName,
			&imp.ToName,
			&imp.StreetImpactType,
			&imp.ParkingPlacesRemoved,
			&imp.SidewalkBlockedType,
			&imp.BikePathBlockedType,
		)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		byPermit[imp.PermitID] = append(byPermit[imp.PermitID], imp)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	for i := range zones {
		zones[i].Impacts = byPermit[zones[i].PermitID]
	}

	return nil
}

func sortByDistance[T any](items []T, center geo.Point, point func(T) geo.Point) {
	sort.SliceStable(items, func(i, j int) bool {
		return geo.Distance(center, point(items[i])) < geo.Distance(center, point(items[j]))
	})
}
