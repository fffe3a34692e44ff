package portal

import (
	"context"
	"sync"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
)

// GradebookClient is the slice of Client the fetcher consumes.
type GradebookClient interface {
	Gradebook(ctx context.Context, req GradebookRequest) ([]model.Assignment, []byte, error)
	AssignmentNames(ctx context.Context, sectionID string) (map[string]string, error)
	MarkingPeriods(ctx context.Context, sectionID string) ([]MarkingPeriod, error)
}

// RawAssignmentSet is the fetch result for one section.
type RawAssignmentSet struct {
	SectionID   string
	Assignments []model.Assignment
	RawPayload  []byte
}

// Fetcher pulls per-section assignment data through a bounded worker
// pool. Pool size 1 is a deliberate memory cap, not a correctness
// requirement; any size behaves identically apart from peak usage.
type Fetcher struct {
	concurrency int
	logger      *logger.Logger
}

func NewFetcher(concurrency int, logger *logger.Logger) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		concurrency: concurrency,
		logger:      logger,
	}
}

// FetchSections retrieves assignment data for each section. A failure
// on one section is logged and that section is skipped; it never aborts
// siblings. The returned map holds only the sections that succeeded.
func (f *Fetcher) FetchSections(ctx context.Context, client GradebookClient, sectionIDs []string, studentID, markingPeriodID string) map[string]RawAssignmentSet {
	results := make(map[string]RawAssignmentSet, len(sectionIDs))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, f.concurrency)
	)

	for _, sectionID := range sectionIDs {
		wg.Add(1)
		go func(sectionID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			set, err := f.fetchSection(ctx, client, sectionID, studentID, markingPeriodID)
			if err != nil {
				f.logger.Error("failed to fetch section, skipping", "section_id", sectionID, "error", err)
				return
			}

			mu.Lock()
			results[sectionID] = set
			mu.Unlock()
		}(sectionID)
	}
	wg.Wait()

	return results
}

func (f *Fetcher) fetchSection(ctx context.Context, client GradebookClient, sectionID, studentID, markingPeriodID string) (RawAssignmentSet, error) {
	assignments, raw, err := client.Gradebook(ctx, GradebookRequest{
		SectionID:       sectionID,
		MarkingPeriodID: markingPeriodID,
		StudentID:       studentID,
	})
	if err != nil {
		return RawAssignmentSet{}, err
	}

	// The hydrate payload's names are sometimes generic labels; the
	// performance endpoint carries the real display names.
	names, err := client.AssignmentNames(ctx, sectionID)
	if err != nil {
		f.logger.Warn("failed to fetch assignment display names, keeping payload names", "section_id", sectionID, "error", err)
	} else {
		for i := range assignments {
			if name, ok := names[assignments[i].ID]; ok {
				assignments[i].Name = name
			}
		}
	}

	return RawAssignmentSet{
		SectionID:   sectionID,
		Assignments: assignments,
		RawPayload:  raw,
	}, nil
}

// ResolveMarkingPeriod resolves the marking period once per job: the
// value on the user's most recent snapshot wins, falling back to the
// portal's current period for the first section.
func (f *Fetcher) ResolveMarkingPeriod(ctx context.Context, client GradebookClient, snapshots model.SnapshotStore, user model.User, sectionIDs []string) (string, error) {
	latest, err := snapshots.GetLatestForUser(ctx, user.ID)
	if err == nil && latest.MarkingPeriodID != "" {
		return latest.MarkingPeriodID, nil
	}

	if len(sectionIDs) == 0 {
		return "", model.ErrNoCoursesFound
	}

	periods, err := client.MarkingPeriods(ctx, sectionIDs[0])
	if err != nil {
		return "", err
	}
	for _, p := range periods {
		if p.Current {
			return p.ID, nil
		}
	}
	if len(periods) > 0 {
		return periods[0].ID, nil
	}
	return "", model.ErrNoCoursesFound
}
