package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"restaurant-collector/models"
	"restaurant-collector/utils"
)

// StoreMatchRadiusKm is the proximity gate for containment matches against
// persisted rows.
const StoreMatchRadiusKm = 0.2

// dedupStripChars are removed before names are compared.
const dedupStripChars = "·-()（）「」『』【】[]"

// NormalizeName returns the comparison key of a restaurant name: NFC form,
// no whitespace, no bracket/dash punctuation, case-folded. The display name
// is never changed.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) || strings.ContainsRune(dedupStripChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(b.String())
}

// namesOverlap reports whether one non-empty key contains the other.
func namesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

type indexedRow struct {
	id       int64
	norm     string
	lat, lon float64
	hasGeo   bool
}

// StoreIndex is the read-only duplicate reference built once per run from
// the persisted rows.
type StoreIndex struct {
	rows []indexedRow
}

// NewStoreIndex precomputes normalized names and coordinates.
func NewStoreIndex(existing []models.ExistingRecord) *StoreIndex {
	idx := &StoreIndex{rows: make([]indexedRow, 0, len(existing))}
	for _, e := range existing {
		row := indexedRow{id: e.ID, norm: NormalizeName(e.Name)}
		lat, okLat := parseCoord(e.Latitude)
		lon, okLon := parseCoord(e.Longitude)
		if okLat && okLon {
			row.lat, row.lon, row.hasGeo = lat, lon, true
		}
		idx.rows = append(idx.rows, row)
	}
	return idx
}

// Len returns the number of indexed rows.
func (idx *StoreIndex) Len() int { return len(idx.rows) }

// Match returns the id of the first persisted row the candidate duplicates:
// an equal normalized name, or a containing name within StoreMatchRadiusKm.
func (idx *StoreIndex) Match(c *models.Candidate) (int64, bool) {
	if idx == nil {
		return 0, false
	}
	candNorm := NormalizeName(c.Name)
	lat, okLat := parseCoord(c.Latitude)
	lon, okLon := parseCoord(c.Longitude)

	for _, row := range idx.rows {
		if candNorm == row.norm {
			return row.id, true
		}
		if !namesOverlap(candNorm, row.norm) || !okLat || !okLon || !row.hasGeo {
			continue
		}
		if Haversine(lat, lon, row.lat, row.lon) < StoreMatchRadiusKm {
			return row.id, true
		}
	}
	return 0, false
}

// Verdict is the outcome of a duplicate check.
type Verdict int

const (
	// Keep means the candidate is new and should be inserted.
	Keep Verdict = iota
	// KeepAsUpdate means the candidate matched a persisted row and update
	// mode is on; MatchedExistingID has been set.
	KeepAsUpdate
	// DuplicateInBatch means the name already appeared in this run.
	DuplicateInBatch
	// DuplicateInStore means the candidate matched a persisted row and update
	// mode is off.
	DuplicateInStore
)

func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case KeepAsUpdate:
		return "update"
	case DuplicateInBatch:
		return "duplicate-in-batch"
	case DuplicateInStore:
		return "duplicate-in-store"
	default:
		return "unknown"
	}
}

// Deduplicator applies the in-batch and in-store checks of one run.
type Deduplicator struct {
	seen       *utils.NameSet
	index      *StoreIndex
	updateMode bool
}

// NewDeduplicator creates a Deduplicator. index may be nil (dry run).
func NewDeduplicator(index *StoreIndex, updateMode bool) *Deduplicator {
	return &Deduplicator{seen: utils.NewNameSet(), index: index, updateMode: updateMode}
}

// Check classifies c. The in-batch check runs first and marks the name as
// seen even when the store check later rejects the candidate.
func (d *Deduplicator) Check(c *models.Candidate) (Verdict, int64) {
	if !d.seen.Add(NormalizeName(c.Name)) {
		return DuplicateInBatch, 0
	}
	id, found := d.index.Match(c)
	if !found {
		return Keep, 0
	}
	if !d.updateMode {
		return DuplicateInStore, id
	}
	c.MatchedExistingID = id
	return KeepAsUpdate, id
}
