package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"restaurant-collector/models"
	"restaurant-collector/utils"
)

// ReportOptions decides which sections of the summary apply to the run.
type ReportOptions struct {
	DryRun         bool
	Enrichment     bool
	NoColor        bool
	PersistSkipped bool
}

// Reporter prints the dry-run preview and the run summary.
type Reporter struct {
	out io.Writer
}

// NewReporter creates a Reporter writing to out (stdout when nil).
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Section prints a phase heading.
func (r *Reporter) Section(title string) {
	sep := strings.Repeat("═", 60)
	r.printf("\n%s\n  %s\n%s\n\n", sep, title, sep)
}

// Preview prints what a live run would write for every candidate.
func (r *Reporter) Preview(candidates []*models.Candidate) {
	r.printf("[DRY RUN] %d restaurants would be saved:\n\n", len(candidates))
	for i, c := range candidates {
		action := "[INSERT]"
		if c.IsUpdate() {
			action = fmt.Sprintf("[UPDATE id=%d]", c.MatchedExistingID)
		}
		r.printf("  %d. %s %s\n", i+1, action, c.Name)
		r.printf("     category: %s | price: %s | rating: %s\n", c.Category, c.Price, formatRating(c.Rating))
		r.printf("     address: %s\n", c.Address)
		r.printf("     gps: %s, %s\n", c.Latitude, c.Longitude)
		printOptional(r, "EN", c.NameEn)
		printOptional(r, "phone", c.Phone)
		printOptional(r, "hours", c.Hours)
		printOptional(r, "image", c.Image)
		r.printf("\n")
	}
}

func printOptional(r *Reporter, label string, v *string) {
	if v != nil && *v != "" {
		r.printf("     %s: %s\n", label, *v)
	}
}

func formatRating(rating int) string {
	if rating <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", float64(rating)/10)
}

// Summary prints the aggregate counters and the itemised failures.
func (r *Reporter) Summary(s *models.RunStats, opts ReportOptions) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)
	bold, reset := "\033[1m", "\033[0m"
	if opts.NoColor {
		bold, reset = "", ""
	}

	r.printf("\n%s\n  Collection summary (run %s, %s)\n%s\n", sep, s.RunID, utils.Elapsed(s.Duration), sep)
	r.printf("  Source responses        : %s%d%s\n", bold, s.SourceTotal, reset)
	r.printf("  Filtered (bounds/name)  : %d\n", s.Filtered)
	r.printf("  Duplicates skipped      : %d\n", s.Duplicates)
	r.printf("  Valid collected         : %s%d%s\n", bold, s.Collected, reset)
	if opts.Enrichment {
		r.printf("  %s\n", thin)
		r.printf("  Enrichment calls        : %d\n", s.EnrichCalls)
		r.printf("  Enrichment matches      : %d\n", s.EnrichSuccess)
		r.printf("  Enrichment failures     : %d\n", s.EnrichFailed)
	}
	if !opts.DryRun {
		r.printf("  %s\n", thin)
		if opts.PersistSkipped {
			r.printf("  Persistence skipped (existing records could not be loaded)\n")
		}
		r.printf("  Inserted                : %s%d%s\n", bold, s.Inserted, reset)
		r.printf("  Updated                 : %s%d%s\n", bold, s.Updated, reset)
		r.printf("  Failed                  : %d\n", s.Failed)
	}
	if len(s.Failures) > 0 {
		r.printf("\n  Errors:\n")
		for _, f := range s.Failures {
			r.printf("    - %s: %s\n", f.Name, f.Error)
		}
	}
	r.printf("%s\n\n", sep)
}
