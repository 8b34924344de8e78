package services

import (
	"testing"

	"restaurant-collector/models"
)

func ptr[T any](v T) *T { return &v }

func candidateAt(name string, lat, lon float64) *models.Candidate {
	return &models.Candidate{
		Name:      name,
		Category:  models.CategoryKorean,
		Price:     models.PriceModerate,
		Latitude:  formatCoord(lat),
		Longitude: formatCoord(lon),
	}
}

func TestFindBestMatchExactAndNear(t *testing.T) {
	e := NewEnricher(newTestLogger())
	lat, lon := 37.5636, 126.9857
	c := candidateAt("명동교자", lat, lon)

	results := []models.PlaceResult{
		{Title: "명동 교자", GPS: &models.GPSCoordinates{Latitude: offsetLat(lat, 0.05), Longitude: lon}},
	}
	match, score := e.FindBestMatch(c, results)
	if score != 18 {
		t.Errorf("score: got %d, want 18", score)
	}
	if match == nil {
		t.Fatal("expected a match at score 18")
	}
}

func TestFindBestMatchProximityOnlyRejected(t *testing.T) {
	e := NewEnricher(newTestLogger())
	lat, lon := 37.5636, 126.9857
	c := candidateAt("명동교자", lat, lon)

	results := []models.PlaceResult{
		{Title: "Starbucks", GPS: &models.GPSCoordinates{Latitude: offsetLat(lat, 0.5), Longitude: lon}},
	}
	match, score := e.FindBestMatch(c, results)
	if score != 1 {
		t.Errorf("score: got %d, want 1", score)
	}
	if match != nil {
		t.Errorf("match: got %+v, want nil", match)
	}
}

func TestScoreTable(t *testing.T) {
	lat, lon := 37.5636, 126.9857
	c := candidateAt("명동교자", lat, lon)

	tests := []struct {
		name   string
		result models.PlaceResult
		want   int
	}{
		{"exact, no gps", models.PlaceResult{Title: "명동교자"}, 10},
		{"contains, no gps", models.PlaceResult{Title: "명동교자 본점"}, 5},
		{"contains, 0.2km", models.PlaceResult{Title: "명동교자 본점", GPS: &models.GPSCoordinates{Latitude: offsetLat(lat, 0.2), Longitude: lon}}, 9},
		{"unrelated, 0.05km", models.PlaceResult{Title: "Other", GPS: &models.GPSCoordinates{Latitude: offsetLat(lat, 0.05), Longitude: lon}}, 8},
		{"unrelated, 2km", models.PlaceResult{Title: "Other", GPS: &models.GPSCoordinates{Latitude: offsetLat(lat, 2), Longitude: lon}}, 0},
		{"empty title", models.PlaceResult{Title: ""}, 0},
	}
	for _, tt := range tests {
		if got := Score(c, tt.result); got != tt.want {
			t.Errorf("%s: Score = %d; want %d", tt.name, got, tt.want)
		}
	}
}

func TestFindBestMatchTieKeepsFirst(t *testing.T) {
	e := NewEnricher(newTestLogger())
	c := candidateAt("우래옥", 37.5, 127.0)
	results := []models.PlaceResult{
		{Title: "우래옥", Address: "first"},
		{Title: "우래옥", Address: "second"},
	}
	match, _ := e.FindBestMatch(c, results)
	if match == nil || match.Address != "first" {
		t.Errorf("got %+v; want the first result", match)
	}
}

func TestFindBestMatchEmpty(t *testing.T) {
	e := NewEnricher(newTestLogger())
	if m, _ := e.FindBestMatch(candidateAt("우래옥", 37.5, 127.0), nil); m != nil {
		t.Errorf("got %+v; want nil", m)
	}
}

func TestApplyMergesFields(t *testing.T) {
	e := NewEnricher(newTestLogger())
	c := candidateAt("명동교자 본점", 37.5636, 126.9857)

	e.Apply(c, &models.PlaceResult{
		Title:          "Myeongdong Kyoja Main",
		Address:        "29 Myeongdong 10-gil, Jung District, Seoul",
		Rating:         ptr(4.4),
		Reviews:        ptr(12034),
		Phone:          "+82 2-776-5348 (ext. 1234)",
		OperatingHours: map[string]string{"monday": "10:30 AM–9 PM"},
		Thumbnail:      "https://example.com/kyoja.jpg",
		Price:          ptr("$$$"),
		Types:          []string{"Korean restaurant", "Noodle shop"},
		GPS:            &models.GPSCoordinates{Latitude: 37.56366, Longitude: 126.98561},
	})

	if c.NameEn == nil || *c.NameEn != "Myeongdong Kyoja Main" {
		t.Errorf("NameEn: got %v", c.NameEn)
	}
	if c.AddressEn == nil {
		t.Error("AddressEn should be set from a latin address")
	}
	if c.Rating != 44 {
		t.Errorf("Rating: got %d, want 44", c.Rating)
	}
	if c.ReviewCount != 12034 {
		t.Errorf("ReviewCount: got %d, want 12034", c.ReviewCount)
	}
	if c.Phone == nil || len([]rune(*c.Phone)) != 20 {
		t.Errorf("Phone: got %v, want 20 characters", c.Phone)
	}
	if c.Hours == nil || *c.Hours != "10:30 AM–9 PM" {
		t.Errorf("Hours: got %v", c.Hours)
	}
	if c.Image == nil {
		t.Error("Image should be set")
	}
	if c.Price != models.PriceExpensive {
		t.Errorf("Price: got %s, want expensive", c.Price)
	}
	if c.Category != models.CategoryNoodles {
		t.Errorf("Category: got %s, want noodles", c.Category)
	}
	if c.Latitude != "37.5636600" || c.Longitude != "126.9856100" {
		t.Errorf("GPS: got (%s, %s)", c.Latitude, c.Longitude)
	}
}

func TestApplyNeverDowngrades(t *testing.T) {
	e := NewEnricher(newTestLogger())
	c := candidateAt("명동교자", 37.5636, 126.9857)
	c.Phone = ptr("02-776-5348")
	c.Hours = ptr("10:30–21:00")
	c.Image = ptr("https://example.com/a.jpg")
	c.Rating = 40
	c.ReviewCount = 10
	c.Price = models.PriceCheap
	c.Category = models.CategoryNoodles

	e.Apply(c, &models.PlaceResult{Title: "명동교자", Rating: ptr(0.0), Reviews: ptr(0)})

	if c.Phone == nil || *c.Phone != "02-776-5348" {
		t.Errorf("Phone: got %v; want it untouched", c.Phone)
	}
	if c.Hours == nil || c.Image == nil {
		t.Error("hours/image must be kept")
	}
	if c.Rating != 40 || c.ReviewCount != 10 {
		t.Errorf("rating/reviews: got %d/%d; want 40/10", c.Rating, c.ReviewCount)
	}
	if c.Price != models.PriceCheap {
		t.Errorf("Price: got %s; want cheap (no price in result)", c.Price)
	}
	if c.Category != models.CategoryNoodles {
		t.Errorf("Category: got %s; want noodles", c.Category)
	}
	if c.NameEn != nil {
		t.Error("a Hangul-only title must not become NameEn")
	}
	if c.Latitude != formatCoord(37.5636) {
		t.Errorf("Latitude changed without GPS: %s", c.Latitude)
	}
}

func TestApplyHoursPrefersFlatString(t *testing.T) {
	e := NewEnricher(newTestLogger())
	c := candidateAt("집", 37.5, 127.0)
	e.Apply(c, &models.PlaceResult{Hours: "Open 24 hours", OperatingHours: map[string]string{"monday": "9–5"}})
	if c.Hours == nil || *c.Hours != "Open 24 hours" {
		t.Errorf("Hours: got %v", c.Hours)
	}

	c = candidateAt("집", 37.5, 127.0)
	e.Apply(c, &models.PlaceResult{OperatingHours: map[string]string{"tuesday": "9–5"}})
	if c.Hours == nil || *c.Hours != "9–5" {
		t.Errorf("Hours from tuesday: got %v", c.Hours)
	}
}

func TestMapPrice(t *testing.T) {
	tests := []struct {
		in   *string
		want models.PriceTier
	}{
		{ptr("$"), models.PriceCheap},
		{ptr("$$"), models.PriceModerate},
		{ptr("$$$"), models.PriceExpensive},
		{ptr("$$$$"), models.PriceExpensive},
		{ptr("₩₩"), models.PriceModerate},
		{ptr("cheap"), models.PriceCheap},
		{ptr(""), models.PriceModerate},
		{nil, models.PriceModerate},
	}
	for _, tt := range tests {
		name := "<nil>"
		if tt.in != nil {
			name = *tt.in
		}
		if got := MapPrice(tt.in); got != tt.want {
			t.Errorf("MapPrice(%q) = %s; want %s", name, got, tt.want)
		}
	}
}

func TestMapRating(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{4.5, 45},
		{4.26, 43},
		{4.04, 40},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := MapRating(tt.in); got != tt.want {
			t.Errorf("MapRating(%v) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestRefineCategory(t *testing.T) {
	tests := []struct {
		types []string
		want  models.Category
	}{
		{[]string{"Coffee shop"}, models.CategoryCafe},
		{[]string{"Cafe"}, models.CategoryCafe},
		{[]string{"Bakery"}, models.CategoryDessert},
		{[]string{"ice_cream_shop"}, models.CategoryDessert},
		{[]string{"Seafood restaurant"}, models.CategorySeafood},
		{[]string{"Korean barbecue restaurant"}, models.CategoryBBQ},
		{[]string{"Ramen restaurant"}, models.CategoryNoodles},
		{[]string{"Korean restaurant"}, models.CategoryChicken},
		{nil, models.CategoryChicken},
	}
	for _, tt := range tests {
		if got := RefineCategory(models.CategoryChicken, tt.types); got != tt.want {
			t.Errorf("RefineCategory(%v) = %s; want %s", tt.types, got, tt.want)
		}
	}
}
