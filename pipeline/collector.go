// Package pipeline runs one collection: load the stored restaurants, page
// through the open-data source, enrich from places search, persist and
// report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"restaurant-collector/config"
	"restaurant-collector/models"
	"restaurant-collector/scraper/opendata"
	"restaurant-collector/services"
	"restaurant-collector/storage"
	"restaurant-collector/utils"
)

// MaxPageSize is the largest page the open-data API serves.
const MaxPageSize = 100

// PageSource returns one page of raw open-data records.
type PageSource interface {
	FetchPage(ctx context.Context, area, categoryLabel string, pageNo, pageSize int) ([]models.RawRecord, error)
}

// PlaceSearcher looks up places near a coordinate.
type PlaceSearcher interface {
	Search(ctx context.Context, query, lat, lon string) ([]models.PlaceResult, error)
}

// Phase is a step of a run. Phases only move forward.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseLoadExisting
	PhaseCollect
	PhaseEnrich
	PhasePersist
	PhaseReport
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseLoadExisting:
		return "load-existing"
	case PhaseCollect:
		return "collect"
	case PhaseEnrich:
		return "enrich"
	case PhasePersist:
		return "persist"
	case PhaseReport:
		return "report"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Deps are the collaborators of a Collector. Store is nil in dry-run mode;
// Places is nil when enrichment is unavailable; Export is optional.
type Deps struct {
	Source      PageSource
	Places      PlaceSearcher
	Store       storage.RestaurantStore
	Export      storage.CandidateWriter
	Transformer *services.Transformer
	Enricher    *services.Enricher
	Reporter    *services.Reporter
	Logger      *utils.Logger

	// NoColor disables ANSI emphasis in the summary.
	NoColor bool
}

// Result is what a run produced.
type Result struct {
	Stats          *models.RunStats
	Candidates     []*models.Candidate
	PersistSkipped bool
	Phase          Phase
}

// Collector orchestrates one run.
type Collector struct {
	Deps
	opts  config.Options
	area  string
	runID string
	phase Phase
	now   func() time.Time
}

var errNoStore = errors.New("no store configured")

// New creates a Collector for a single run.
func New(deps Deps, opts config.Options, area, runID string) *Collector {
	if deps.Logger == nil {
		deps.Logger = utils.NewNopLogger()
	}
	if deps.Transformer == nil {
		deps.Transformer = services.NewTransformer(deps.Logger)
	}
	if deps.Enricher == nil {
		deps.Enricher = services.NewEnricher(deps.Logger)
	}
	if deps.Reporter == nil {
		deps.Reporter = services.NewReporter(nil)
	}
	if area == "" {
		area = opendata.DefaultArea
	}
	return &Collector{Deps: deps, opts: opts, area: area, runID: runID, now: time.Now}
}

func (c *Collector) enter(p Phase) {
	if p <= c.phase {
		return
	}
	c.Logger.Debug("[pipeline] %s -> %s", c.phase, p)
	c.phase = p
}

// Run executes every phase once. Record-level and page-level failures end
// up in the returned stats; the report is always printed.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	stats := &models.RunStats{RunID: c.runID, StartedAt: c.now()}

	c.enter(PhaseLoadExisting)
	index, loadErr := c.loadExisting(ctx, stats)

	c.enter(PhaseCollect)
	c.Reporter.Section("Phase 1: open-data collection")
	candidates := c.collect(ctx, index, stats)

	c.enter(PhaseEnrich)
	enriched := c.enrich(ctx, candidates, stats)

	if c.Export != nil && len(candidates) > 0 {
		if err := c.Export.WriteCandidates(candidates); err != nil {
			c.Logger.Warn("[export] CSV write failed: %v", err)
		}
	}

	c.enter(PhasePersist)
	persistSkipped := loadErr != nil
	c.persist(ctx, candidates, stats, persistSkipped)

	c.enter(PhaseReport)
	stats.Duration = c.now().Sub(stats.StartedAt)
	c.Reporter.Summary(stats, services.ReportOptions{
		DryRun:         c.opts.DryRun,
		Enrichment:     enriched,
		NoColor:        c.NoColor,
		PersistSkipped: persistSkipped,
	})

	c.enter(PhaseDone)
	return &Result{
		Stats:          stats,
		Candidates:     candidates,
		PersistSkipped: persistSkipped,
		Phase:          c.phase,
	}, ctx.Err()
}

func (c *Collector) loadExisting(ctx context.Context, stats *models.RunStats) (*services.StoreIndex, error) {
	if c.opts.DryRun {
		c.Logger.Info("[store] dry run, existing restaurants not loaded")
		return nil, nil
	}
	if c.Store == nil {
		stats.AddNote("load existing", errNoStore)
		return nil, errNoStore
	}

	existing, err := c.Store.LoadExisting(ctx)
	if err != nil {
		c.Logger.Error("[store] could not load existing restaurants: %v", err)
		stats.AddNote("load existing", err)
		return nil, err
	}
	index := services.NewStoreIndex(existing)
	c.Logger.Info("[store] loaded %d existing restaurants for duplicate checks", index.Len())
	return index, nil
}

func (c *Collector) categories() []string {
	if c.opts.Category != "" {
		return []string{c.opts.Category}
	}
	return opendata.Categories
}

func (c *Collector) collect(ctx context.Context, index *services.StoreIndex, stats *models.RunStats) []*models.Candidate {
	limit := c.opts.Limit
	if limit <= 0 {
		c.Logger.Warn("[collect] limit is %d, nothing to collect", limit)
		return nil
	}
	pageSize := min(limit, MaxPageSize)
	dedup := services.NewDeduplicator(index, c.opts.Update)

	var collected []*models.Candidate
	for _, category := range c.categories() {
		c.Logger.Info("[%s] collecting...", category)
		catCount := 0

		for page := 1; catCount < limit; page++ {
			if ctx.Err() != nil {
				return c.finishCollect(collected, stats)
			}
			items, err := c.Source.FetchPage(ctx, c.area, category, page, pageSize)
			if err != nil {
				var quota *utils.QuotaExceededError
				if errors.As(err, &quota) {
					c.Logger.Warn("[%s] %v, stopping collection", category, err)
					c.Logger.Info("[%s] %d collected", category, catCount)
					return c.finishCollect(collected, stats)
				}
				c.Logger.Error("[%s] page %d failed: %v", category, page, err)
				break
			}
			if len(items) == 0 {
				break
			}
			stats.SourceTotal += len(items)

			for _, raw := range items {
				if catCount >= limit {
					break
				}
				if cand := c.accept(raw, dedup, stats); cand != nil {
					collected = append(collected, cand)
					catCount++
				}
			}

			if len(items) < pageSize {
				break
			}
		}
		c.Logger.Info("[%s] %d collected", category, catCount)
	}
	return c.finishCollect(collected, stats)
}

func (c *Collector) finishCollect(collected []*models.Candidate, stats *models.RunStats) []*models.Candidate {
	stats.Collected = len(collected)
	c.Logger.Info("[collect] %d source records, %d valid, %d filtered, %d duplicates",
		stats.SourceTotal, stats.Collected, stats.Filtered, stats.Duplicates)
	return collected
}

// accept normalizes and deduplicates one raw record.
func (c *Collector) accept(raw models.RawRecord, dedup *services.Deduplicator, stats *models.RunStats) *models.Candidate {
	cand, reason := c.Transformer.NormalizeWithReason(raw)
	if cand == nil {
		stats.Filtered++
		c.Logger.Debug("    [FILTER] %s: %s", raw.Name.String(), reason)
		return nil
	}

	verdict, id := dedup.Check(cand)
	switch verdict {
	case services.DuplicateInBatch:
		stats.Duplicates++
		c.Logger.Debug("    [SKIP] duplicate in this run: %s", cand.Name)
		return nil
	case services.DuplicateInStore:
		stats.Duplicates++
		c.Logger.Debug("    [SKIP] duplicate: %s (id=%d)", cand.Name, id)
		return nil
	case services.KeepAsUpdate:
		c.Logger.Debug("    ~ %s (%s, updates id=%d)", cand.Name, cand.Category, id)
	default:
		c.Logger.Debug("    + %s (%s)", cand.Name, cand.Category)
	}
	return cand
}

// enrich reports whether the enrichment phase ran.
func (c *Collector) enrich(ctx context.Context, candidates []*models.Candidate, stats *models.RunStats) bool {
	switch {
	case c.opts.SkipSerp:
		c.Logger.Info("[enrich] skipped (--skip-serp)")
		return false
	case c.Places == nil:
		c.Logger.Warn("[enrich] no places search configured, skipping enrichment")
		return false
	case c.opts.SerpBudget <= 0:
		c.Logger.Info("[enrich] search budget is %d, skipping enrichment", c.opts.SerpBudget)
		return false
	case len(candidates) == 0:
		return false
	}

	c.Reporter.Section("Phase 2: places enrichment")
	budget := c.opts.SerpBudget

	for i, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		if stats.EnrichCalls >= budget {
			c.Logger.Info("[enrich] budget used (%d/%d), %d candidates left unenriched",
				stats.EnrichCalls, budget, len(candidates)-i)
			break
		}

		query := cand.Name + " " + cand.Address
		c.Logger.Debug("  [SERP] search: %q", query)
		results, err := c.Places.Search(ctx, query, cand.Latitude, cand.Longitude)
		if err != nil {
			var quota *utils.QuotaExceededError
			if errors.As(err, &quota) || errors.Is(err, gobreaker.ErrOpenState) {
				c.Logger.Warn("[enrich] %v, %d candidates left unenriched", err, len(candidates)-i)
				break
			}
			stats.EnrichFailed++
			c.Logger.Warn("  [SERP] %q failed: %v", cand.Name, err)
			continue
		}
		stats.EnrichCalls++

		match, score := c.Enricher.FindBestMatch(cand, results)
		if match == nil {
			c.Logger.Debug("    no match among %d results (best score %d)", len(results), score)
			continue
		}
		c.Enricher.Apply(cand, match)
		stats.EnrichSuccess++
		c.Logger.Debug("    matched %q (score %d)", match.Title, score)
	}

	c.Logger.Info("[enrich] %d searches, %d enriched, %d failed",
		stats.EnrichCalls, stats.EnrichSuccess, stats.EnrichFailed)
	return true
}

func (c *Collector) persist(ctx context.Context, candidates []*models.Candidate, stats *models.RunStats, skip bool) {
	if c.opts.DryRun {
		c.Reporter.Section("Phase 3: store (dry run)")
		c.Reporter.Preview(candidates)
		return
	}
	c.Reporter.Section("Phase 3: store")
	if skip {
		c.Logger.Error("[store] persistence skipped, existing restaurants could not be loaded")
		return
	}

	for _, cand := range candidates {
		if cand.IsUpdate() {
			if err := c.Store.Update(ctx, cand.MatchedExistingID, cand); err != nil {
				stats.AddFailure(cand.Name, err)
				c.Logger.Error("  [FAIL] %s: %v", cand.Name, err)
				continue
			}
			stats.Updated++
			c.Logger.Info("  [UPDATE] %s (id=%d)", cand.Name, cand.MatchedExistingID)
			continue
		}

		id, err := c.Store.Insert(ctx, cand)
		if err != nil {
			stats.AddFailure(cand.Name, err)
			c.Logger.Error("  [FAIL] %s: %v", cand.Name, err)
			continue
		}
		stats.Inserted++
		c.Logger.Info("  [INSERT] %s (id=%d)", cand.Name, id)
	}
}
