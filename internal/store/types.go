package store

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// read-only access to the relational reference data populated by
// offline ingestion. The query path never writes.
type Store struct {
	pool *pgxpool.Pool
}

// immutable reference data for one sign type, keyed by sign code
type SignDefinition struct {
	SignCode       string
	ExplanationFR  string
	ExplanationEN  string
	Category       string
	RPACode        string
	RPADescription string
	RTPDescription string
	AssetURL       string
}

// one physical occurrence of a sign type, joined with its pole location
type SignInstance struct {
	InstanceID   string
	SignCode     string
	PoleID       string
	PanelID      string
	Source       string
	LastUpdated  time.Time
	Latitude     float64
	Longitude    float64
	Municipality string
}

// where a photo came from
type PhotoSource string

const (
	PhotoCaptured   PhotoSource = "real_world_photo"
	PhotoSynthetic  PhotoSource = "synthetic_diffusion"
	PhotoStreetView PhotoSource = "google_street_view_screenshot"
)

// metadata for one photo in the image index
type Photo struct {
	PhotoID     string
	SignCode    string
	ImageURL    string
	Source      PhotoSource
	Latitude    *float64 // paired with Longitude: both set or both nil
	Longitude   *float64
	Conditions  []ConditionTag
	IsSynthetic bool
	CapturedAt  time.Time
}

// a bounded real-world condition observed in a photo. Free-form tags
// from ingestion collapse onto this enum so downstream logic stays total.
type ConditionTag string

const (
	ConditionSnowOcclusion    ConditionTag = "snow_occlusion"
	ConditionPartialOcclusion ConditionTag = "partial_occlusion"
	ConditionBlur             ConditionTag = "blur"
	ConditionGlare            ConditionTag = "glare"
	ConditionFaded            ConditionTag = "faded"
	ConditionVandalized       ConditionTag = "vandalized"
	ConditionNight            ConditionTag = "night"
	ConditionRain             ConditionTag = "rain"
	ConditionOther            ConditionTag = "other"
)

var knownConditions = map[ConditionTag]bool{
	ConditionSnowOcclusion:    true,
	ConditionPartialOcclusion: true,
	ConditionBlur:             true,
	ConditionGlare:            true,
	ConditionFaded:            true,
	ConditionVandalized:       true,
	ConditionNight:            true,
	ConditionRain:             true,
}

// maps a raw ingestion tag onto the bounded enum; anything
// unrecognized becomes ConditionOther
func ParseConditionTag(raw string) ConditionTag {
	tag := ConditionTag(strings.ToLower(strings.TrimSpace(raw)))

	if knownConditions[tag] {
		return tag
	}

	return ConditionOther
}

// per-weekday activity for a construction zone
type DayWindow struct {
	Active bool
	AllDay bool
}

// weekly activity schedule, indexed by time.Weekday
type ActivityWindow [7]DayWindow

// reports whether the window is active on t's weekday
func (w ActivityWindow) IsActiveAt(t time.Time) bool {
	return w[t.Weekday()].Active
}

// a street occupancy permit with its weekly schedule
type ConstructionZone struct {
	PermitID     string
	PermitNumber string
	Status       string
	Reason       string
	Organization string
	StartDate    *time.Time
	EndDate      *time.Time
	Week         ActivityWindow
	Latitude     float64
	Longitude    float64
	Impacts      []ConstructionImpact
}

// statuses that mean a permit is no longer in effect. The municipal
// feed's status vocabulary is open-ended, so anything not terminated
// counts as live and the date range plus weekly window decide.
var terminatedStatuses = []string{
	"closed",
	"terminated",
	"completed",
	"cancelled",
	"canceled",
	"expired",
	"fermé",
	"terminé",
	"annulé",
}

// reports whether the zone is in effect at t: non-terminated status,
// date range containing t, and the weekly window active on t's weekday
func (z *ConstructionZone) IsActiveAt(t time.Time) bool {
	for _, status := range terminatedStatuses {
		if strings.EqualFold(z.Status, status) {
			return false
		}
	}

	if z.StartDate != nil && t.Before(*z.StartDate) {
		return false
	}

	if z.EndDate != nil && t.After(*z.EndDate) {
		return false
	}

	return z.Week.IsActiveAt(t)
}

// street-level effect of a construction zone
type ConstructionImpact struct {
	ImpactID             string
	PermitID             string
	StreetName           string
	FromName             string
	ToName               string
	StreetImpactType     string
	ParkingPlacesRemoved int
	SidewalkBlockedType  string
	BikePathBlockedType  string
}

type TaxiStand struct {
	TaxiStandID    string
	Status         string
	OperationHours string
	Latitude       float64
	Longitude      float64
	NumPlaces      int
	Name           string
	Type           string
}
