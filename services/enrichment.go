package services

import (
	"math"
	"strings"
	"unicode"

	"restaurant-collector/models"
	"restaurant-collector/utils"
)

// Scoring weights for matching a candidate against search results.
const (
	ScoreExactName    = 10
	ScoreContainsName = 5
	ScoreWithin100m   = 8
	ScoreWithin300m   = 4
	ScoreWithin1km    = 1

	// MinMatchScore is the lowest total score accepted as a match.
	MinMatchScore = 5

	maxPhoneLength = 20
)

// Enricher matches candidates to places-search results and merges the
// matched fields.
type Enricher struct {
	logger *utils.Logger
}

// NewEnricher creates an Enricher with the given logger.
func NewEnricher(logger *utils.Logger) *Enricher {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Enricher{logger: logger}
}

// Score rates how well r describes c.
func Score(c *models.Candidate, r models.PlaceResult) int {
	score := 0
	candNorm := NormalizeName(c.Name)
	resNorm := NormalizeName(r.Title)

	switch {
	case resNorm != "" && resNorm == candNorm:
		score += ScoreExactName
	case namesOverlap(resNorm, candNorm):
		score += ScoreContainsName
	}

	if r.GPS != nil {
		lat, okLat := parseCoord(c.Latitude)
		lon, okLon := parseCoord(c.Longitude)
		if okLat && okLon {
			dist := Haversine(lat, lon, r.GPS.Latitude, r.GPS.Longitude)
			switch {
			case dist < 0.1:
				score += ScoreWithin100m
			case dist < 0.3:
				score += ScoreWithin300m
			case dist < 1.0:
				score += ScoreWithin1km
			}
		}
	}
	return score
}

// FindBestMatch returns the highest-scoring result and its score, or nil when
// no result reaches MinMatchScore. Ties keep the earlier result.
func (e *Enricher) FindBestMatch(c *models.Candidate, results []models.PlaceResult) (*models.PlaceResult, int) {
	bestScore := 0
	bestIdx := -1
	for i := range results {
		if s := Score(c, results[i]); s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < MinMatchScore {
		return nil, bestScore
	}
	return &results[bestIdx], bestScore
}

// Apply merges r into c. It only adds or upgrades fields and never replaces
// a value with an empty one.
func (e *Enricher) Apply(c *models.Candidate, r *models.PlaceResult) {
	if r == nil {
		return
	}

	if hasLatin(r.Title) {
		c.NameEn = strPtr(r.Title)
	}
	if r.Rating != nil {
		if rating := MapRating(*r.Rating); rating > 0 {
			c.Rating = rating
		}
	}
	if r.Reviews != nil && *r.Reviews > 0 {
		c.ReviewCount = *r.Reviews
	}
	if phone := strings.TrimSpace(r.Phone); phone != "" {
		c.Phone = strPtr(truncateRunes(phone, maxPhoneLength))
	}
	if hours := pickHours(r); hours != "" {
		c.Hours = strPtr(hours)
	}
	if r.Thumbnail != "" {
		c.Image = strPtr(r.Thumbnail)
	}
	if r.Price != nil && strings.TrimSpace(*r.Price) != "" {
		c.Price = MapPrice(r.Price)
	}
	if hasLatin(r.Address) {
		c.AddressEn = strPtr(r.Address)
	}

	types := r.Types
	if len(types) == 0 && r.Type != "" {
		types = []string{r.Type}
	}
	if refined := RefineCategory(c.Category, types); refined != c.Category {
		e.logger.Debug("    category %s -> %s (%s)", c.Category, refined, strings.Join(types, ", "))
		c.Category = refined
	}

	if r.GPS != nil && r.GPS.Latitude != 0 && r.GPS.Longitude != 0 {
		c.Latitude = formatCoord(r.GPS.Latitude)
		c.Longitude = formatCoord(r.GPS.Longitude)
	}
}

// MapPrice maps a price-level string to a tier by counting currency symbols:
// up to one is cheap, two is moderate, more is expensive. Nil or blank
// means moderate.
func MapPrice(price *string) models.PriceTier {
	if price == nil || strings.TrimSpace(*price) == "" {
		return models.PriceModerate
	}
	n := strings.Count(*price, "$") + strings.Count(*price, "₩")
	switch {
	case n <= 1:
		return models.PriceCheap
	case n == 2:
		return models.PriceModerate
	default:
		return models.PriceExpensive
	}
}

// MapRating converts a 0-5 decimal rating to the stored x10 integer.
func MapRating(rating float64) int {
	if rating <= 0 || math.IsNaN(rating) {
		return 0
	}
	return int(math.Round(rating * 10))
}

// RefineCategory narrows base using place-type tags. It never replaces base
// with an unrelated category.
func RefineCategory(base models.Category, types []string) models.Category {
	if len(types) == 0 {
		return base
	}
	lowered := make([]string, len(types))
	for i, t := range types {
		lowered[i] = strings.ToLower(t)
	}
	anyContains := func(needles ...string) bool {
		for _, t := range lowered {
			for _, n := range needles {
				if strings.Contains(t, n) {
					return true
				}
			}
		}
		return false
	}

	switch {
	case anyContains("cafe", "coffee"):
		return models.CategoryCafe
	case anyContains("bakery", "dessert", "ice_cream", "ice cream"):
		return models.CategoryDessert
	case anyContains("seafood"):
		return models.CategorySeafood
	case anyContains("barbecue", "bbq"):
		return models.CategoryBBQ
	case anyContains("noodle", "ramen"):
		return models.CategoryNoodles
	default:
		return base
	}
}

func pickHours(r *models.PlaceResult) string {
	if h := strings.TrimSpace(r.Hours); h != "" {
		return h
	}
	for _, day := range []string{"monday", "tuesday"} {
		if h := strings.TrimSpace(r.OperatingHours[day]); h != "" {
			return h
		}
	}
	return ""
}

func hasLatin(s string) bool {
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func strPtr(s string) *string { return &s }
