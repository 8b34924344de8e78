package models

import "time"

// Category mirrors the category_enum column of the restaurants table.
type Category string

const (
	CategoryKorean     Category = "korean"
	CategoryCafe       Category = "cafe"
	CategoryStreetFood Category = "streetFood"
	CategoryBBQ        Category = "bbq"
	CategorySeafood    Category = "seafood"
	CategoryDessert    Category = "dessert"
	CategoryNoodles    Category = "noodles"
	CategoryChicken    Category = "chicken"
)

// PriceTier mirrors the price_enum column.
type PriceTier string

const (
	PriceCheap     PriceTier = "cheap"
	PriceModerate  PriceTier = "moderate"
	PriceExpensive PriceTier = "expensive"
)

// RawRecord is one item of the open-data API page, exactly as the upstream
// returned it. It is consumed once by the transformer and then dropped.
type RawRecord struct {
	Title       Text `json:"title"`
	Description Text `json:"description"`
	Name        Text `json:"rstrNm"`
	Branch      Text `json:"rstrBhfNm"`
	Category    Text `json:"rstrClNm"`
	RoadAddress Text `json:"rstrRoadAddr"`
	LotAddress  Text `json:"rstrLnbrAddr"`
	Latitude    Text `json:"rstrLatPos"`
	Longitude   Text `json:"rstrLotPos"`
	UpdatedOn   Text `json:"rstrInfoStdDt"`
}

// Candidate is a restaurant in flight between ingestion and persistence.
// Nil pointers mean "unknown"; only enrichment fills them.
type Candidate struct {
	// MatchedExistingID is non-zero when the candidate updates an existing row.
	MatchedExistingID int64

	Name     string
	NameEn   *string
	NameZhTw *string
	NameZhCn *string

	Category Category

	Address     string
	AddressEn   *string
	AddressZhTw *string
	AddressZhCn *string

	Phone       *string
	Rating      int
	ReviewCount int
	Price       PriceTier
	Hours       *string

	Description     *string
	DescriptionEn   *string
	DescriptionZhTw *string
	DescriptionZhCn *string

	Image *string

	Latitude  string
	Longitude string
}

// IsUpdate reports whether the candidate must be persisted as an update.
func (c *Candidate) IsUpdate() bool {
	return c.MatchedExistingID != 0
}

// ExistingRecord is the projection of a persisted restaurant used for
// duplicate detection. It is never mutated.
type ExistingRecord struct {
	ID        int64
	Name      string
	Address   string
	Latitude  string
	Longitude string
}

// GPSCoordinates is the coordinate pair of a places-search result.
type GPSCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PlaceResult is one entry of the places-search local_results array.
// Optional fields are pointers so absence can be told apart from zero.
type PlaceResult struct {
	Title          string            `json:"title"`
	Address        string            `json:"address,omitempty"`
	Rating         *float64          `json:"rating,omitempty"`
	Reviews        *int              `json:"reviews,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Hours          string            `json:"hours,omitempty"`
	OperatingHours map[string]string `json:"operating_hours,omitempty"`
	Thumbnail      string            `json:"thumbnail,omitempty"`
	Price          *string           `json:"price,omitempty"`
	Type           string            `json:"type,omitempty"`
	Types          []string          `json:"types,omitempty"`
	GPS            *GPSCoordinates   `json:"gps_coordinates,omitempty"`
}

// Failure is one record-level error kept for the run report.
type Failure struct {
	Name  string
	Error string
}

// RunStats accumulates the counters of a single collector run.
type RunStats struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	SourceTotal   int
	Filtered      int
	Duplicates    int
	Collected     int
	EnrichCalls   int
	EnrichSuccess int
	EnrichFailed  int
	Inserted      int
	Updated       int
	Failed        int

	Failures []Failure
}

// AddFailure records a record-level failure.
func (s *RunStats) AddFailure(name string, err error) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{Name: name, Error: err.Error()})
}

// AddNote lists a run-level error in the report without counting it as a
// failed record write.
func (s *RunStats) AddNote(name string, err error) {
	s.Failures = append(s.Failures, Failure{Name: name, Error: err.Error()})
}
