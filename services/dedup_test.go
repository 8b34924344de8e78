package services

import (
	"math"
	"testing"

	"restaurant-collector/models"
)

func TestNormalizeNameForDedup(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"명동 교자", "명동교자"},
		{"Cafe Onion", "cafeonion"},
		{"을지로[본점]", "을지로본점"},
		{"하동관(명동)", "하동관 명동"},
		{"진주·회관", "진주회관"},
		{"「우래옥」", "우래옥"},
		{"가", "가"}, // decomposed and composed Hangul
	}
	for _, tt := range tests {
		if NormalizeName(tt.a) != NormalizeName(tt.b) {
			t.Errorf("NormalizeName(%q)=%q != NormalizeName(%q)=%q", tt.a, NormalizeName(tt.a), tt.b, NormalizeName(tt.b))
		}
	}
}

func TestHaversine(t *testing.T) {
	// One thousandth of a degree of latitude is about 111 metres.
	d := Haversine(37.5, 127.0, 37.501, 127.0)
	if math.Abs(d-0.1112) > 0.001 {
		t.Errorf("Haversine = %.4f km; want ~0.1112", d)
	}
	if Haversine(37.5, 127.0, 37.5, 127.0) != 0 {
		t.Error("distance to self must be 0")
	}
}

// offsetLat returns a latitude km kilometres north of lat.
func offsetLat(lat, km float64) float64 {
	return lat + km/(earthRadiusKm*math.Pi/180)
}

func existingAt(id int64, name string, lat, lon float64) models.ExistingRecord {
	return models.ExistingRecord{ID: id, Name: name, Latitude: formatCoord(lat), Longitude: formatCoord(lon)}
}

func TestStoreIndexContainmentWithinRadius(t *testing.T) {
	lat, lon := 37.5636, 126.9857
	cand := &models.Candidate{Name: "명동교자 본점", Latitude: formatCoord(lat), Longitude: formatCoord(lon)}

	near := NewStoreIndex([]models.ExistingRecord{existingAt(7, "명동교자", offsetLat(lat, 0.15), lon)})
	if id, ok := near.Match(cand); !ok || id != 7 {
		t.Errorf("at 0.15km: got (%d, %v); want (7, true)", id, ok)
	}

	far := NewStoreIndex([]models.ExistingRecord{existingAt(7, "명동교자", offsetLat(lat, 0.25), lon)})
	if id, ok := far.Match(cand); ok {
		t.Errorf("at 0.25km: got id %d; want no match", id)
	}
}

func TestStoreIndexExactNameIgnoresDistance(t *testing.T) {
	idx := NewStoreIndex([]models.ExistingRecord{
		existingAt(3, "하동관", 37.40, 126.80),
	})
	cand := &models.Candidate{Name: "하 동 관", Latitude: "37.7", Longitude: "127.2"}
	if id, ok := idx.Match(cand); !ok || id != 3 {
		t.Errorf("got (%d, %v); want (3, true)", id, ok)
	}
}

func TestStoreIndexFirstMatchWins(t *testing.T) {
	idx := NewStoreIndex([]models.ExistingRecord{
		existingAt(1, "다른집", 37.5, 127.0),
		existingAt(2, "우래옥", 37.5, 127.0),
		existingAt(3, "우래옥", 37.5, 127.0),
	})
	if id, _ := idx.Match(&models.Candidate{Name: "우래옥", Latitude: "37.5", Longitude: "127.0"}); id != 2 {
		t.Errorf("got id %d; want 2", id)
	}
}

func TestStoreIndexUnparseableCoordinates(t *testing.T) {
	idx := NewStoreIndex([]models.ExistingRecord{{ID: 9, Name: "명동교자", Latitude: "", Longitude: "x"}})
	cand := &models.Candidate{Name: "명동교자 본점", Latitude: "37.56", Longitude: "126.98"}
	if _, ok := idx.Match(cand); ok {
		t.Error("containment without coordinates must not match")
	}
}

func TestDeduplicatorInBatchIgnoresDistance(t *testing.T) {
	d := NewDeduplicator(nil, false)

	first := &models.Candidate{Name: "명동 교자", Latitude: "37.40", Longitude: "126.80"}
	second := &models.Candidate{Name: "명동교자", Latitude: "37.70", Longitude: "127.20"}

	if v, _ := d.Check(first); v != Keep {
		t.Errorf("first: got %s; want keep", v)
	}
	if v, _ := d.Check(second); v != DuplicateInBatch {
		t.Errorf("second: got %s; want duplicate-in-batch", v)
	}
}

func TestDeduplicatorStorePolicy(t *testing.T) {
	existing := []models.ExistingRecord{existingAt(42, "진주회관", 37.5651, 126.9767)}

	skip := NewDeduplicator(NewStoreIndex(existing), false)
	c := &models.Candidate{Name: "진주회관", Latitude: "37.5651", Longitude: "126.9767"}
	if v, id := skip.Check(c); v != DuplicateInStore || id != 42 {
		t.Errorf("default mode: got (%s, %d); want (duplicate-in-store, 42)", v, id)
	}
	if c.IsUpdate() {
		t.Error("default mode must not tag the candidate")
	}

	update := NewDeduplicator(NewStoreIndex(existing), true)
	c = &models.Candidate{Name: "진주회관", Latitude: "37.5651", Longitude: "126.9767"}
	if v, id := update.Check(c); v != KeepAsUpdate || id != 42 {
		t.Errorf("update mode: got (%s, %d); want (update, 42)", v, id)
	}
	if c.MatchedExistingID != 42 {
		t.Errorf("MatchedExistingID: got %d; want 42", c.MatchedExistingID)
	}
}

func TestDeduplicatorStoreRejectStillMarksSeen(t *testing.T) {
	existing := []models.ExistingRecord{existingAt(1, "우래옥", 37.5, 127.0)}
	d := NewDeduplicator(NewStoreIndex(existing), false)

	_, _ = d.Check(&models.Candidate{Name: "우래옥", Latitude: "37.5", Longitude: "127.0"})
	if v, _ := d.Check(&models.Candidate{Name: "우래옥", Latitude: "37.5", Longitude: "127.0"}); v != DuplicateInBatch {
		t.Errorf("got %s; want duplicate-in-batch", v)
	}
}
