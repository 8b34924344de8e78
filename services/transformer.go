package services

import (
	"strings"

	"restaurant-collector/models"
	"restaurant-collector/utils"
)

// Seoul city bounds and the city-hall fallback used for missing coordinates.
const (
	MinLatitude  = 37.4
	MaxLatitude  = 37.7
	MinLongitude = 126.8
	MaxLongitude = 127.2

	FallbackLatitude  = "37.5665"
	FallbackLongitude = "126.9780"
)

// CategoryMap maps open-data category labels to restaurant categories.
var CategoryMap = map[string]models.Category{
	"한식":    models.CategoryKorean,
	"분식":    models.CategoryStreetFood,
	"치킨":    models.CategoryChicken,
	"동양식":   models.CategoryNoodles,
	"서양식":   models.CategoryKorean,
	"패스트푸드": models.CategoryStreetFood,
	"뷔페":    models.CategoryKorean,
	"퓨전":    models.CategoryKorean,
}

// DefaultCategory is used for labels missing from CategoryMap.
const DefaultCategory = models.CategoryKorean

// DropReason explains why Normalize rejected a record.
type DropReason string

const (
	DropNone        DropReason = ""
	DropUnnamed     DropReason = "unnamed"
	DropOutOfBounds DropReason = "out-of-bounds"
)

// Transformer turns open-data records into candidates.
type Transformer struct {
	logger *utils.Logger
}

// NewTransformer creates a Transformer with the given logger.
func NewTransformer(logger *utils.Logger) *Transformer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Transformer{logger: logger}
}

// Normalize returns the candidate for raw, or nil when the record has no
// name or lies outside the city bounds.
func (t *Transformer) Normalize(raw models.RawRecord) *models.Candidate {
	c, reason := t.NormalizeWithReason(raw)
	if reason == DropOutOfBounds {
		t.logger.Debug("[transform] out of bounds: %s (%s, %s)", raw.Name.String(), raw.Latitude, raw.Longitude)
	}
	return c
}

// NormalizeWithReason is Normalize that also reports why a record was dropped.
func (t *Transformer) NormalizeWithReason(raw models.RawRecord) (*models.Candidate, DropReason) {
	name := deriveName(raw.Name.String(), raw.Branch.String())
	if name == "" {
		return nil, DropUnnamed
	}

	latitude := validateCoord(raw.Latitude.String(), FallbackLatitude)
	longitude := validateCoord(raw.Longitude.String(), FallbackLongitude)

	lat, _ := parseCoord(latitude)
	lon, _ := parseCoord(longitude)
	if !InBounds(lat, lon) {
		return nil, DropOutOfBounds
	}

	return &models.Candidate{
		Name:      name,
		Category:  MapCategory(raw.Category.String()),
		Address:   firstNonEmpty(raw.RoadAddress.String(), raw.LotAddress.String()),
		Price:     models.PriceModerate,
		Latitude:  latitude,
		Longitude: longitude,
	}, DropNone
}

// InBounds reports whether the point lies inside the city bounding box.
func InBounds(lat, lon float64) bool {
	return lat >= MinLatitude && lat <= MaxLatitude && lon >= MinLongitude && lon <= MaxLongitude
}

// MapCategory maps a source label, falling back to DefaultCategory.
func MapCategory(label string) models.Category {
	if c, ok := CategoryMap[strings.TrimSpace(label)]; ok {
		return c
	}
	return DefaultCategory
}

func deriveName(base, branch string) string {
	if base == "" {
		return ""
	}
	if branch == "" {
		return base
	}
	return base + " " + branch
}

// validateCoord keeps a parseable coordinate string and substitutes fallback
// otherwise.
func validateCoord(value, fallback string) string {
	if _, ok := parseCoord(value); !ok {
		return fallback
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
