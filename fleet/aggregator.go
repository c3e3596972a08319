package fleet

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fieldops/fleettrack/gps"
)

// Backend is the slice of the backend client the aggregator needs.
type Backend interface {
	CrewMembers(ctx context.Context) ([]gps.CrewMember, error)
	LatestFix(ctx context.Context, crewID string) (*gps.Fix, error)
	InProgressDispatch(ctx context.Context, crewID string) (*gps.Dispatch, error)
}

// Aggregator builds CrewPresence records from the backend's live fixes.
type Aggregator struct {
	api Backend
	now func() time.Time
}

// NewAggregator creates an aggregator over the given backend.
func NewAggregator(api Backend) *Aggregator {
	return &Aggregator{api: api, now: time.Now}
}

// FetchAll lists every crew member, fetches their latest fixes concurrently,
// and joins each with its in-progress dispatch. A failed or empty per-crew
// fetch drops that crew member from the result; it never fails the batch.
func (a *Aggregator) FetchAll(ctx context.Context) ([]gps.CrewPresence, error) {
	crew, err := a.api.CrewMembers(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*gps.CrewPresence, len(crew))
	var wg sync.WaitGroup
	for i, member := range crew {
		wg.Add(1)
		go func(i int, member gps.CrewMember) {
			defer wg.Done()
			p, err := a.presenceFor(ctx, member)
			if err != nil {
				log.Printf("fleet: skipping %s: %v", member.ID, err)
				return
			}
			results[i] = p
		}(i, member)
	}
	wg.Wait()

	presences := make([]gps.CrewPresence, 0, len(crew))
	for _, p := range results {
		if p != nil {
			presences = append(presences, *p)
		}
	}
	sort.Slice(presences, func(i, j int) bool { return presences[i].CrewID < presences[j].CrewID })
	return presences, nil
}

// FetchOne returns presence for a single crew member, or nil when no fix has
// been recorded.
func (a *Aggregator) FetchOne(ctx context.Context, crewID string) (*gps.CrewPresence, error) {
	return a.presenceFor(ctx, gps.CrewMember{ID: crewID})
}

// presenceFor returns nil,nil when the crew member has no recorded fix.
func (a *Aggregator) presenceFor(ctx context.Context, member gps.CrewMember) (*gps.CrewPresence, error) {
	fix, err := a.api.LatestFix(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	if fix == nil {
		return nil, nil
	}

	dispatch, err := a.api.InProgressDispatch(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	p := &gps.CrewPresence{
		CrewID:         member.ID,
		Name:           member.Name,
		Fix:            *fix,
		Freshness:      gps.ClassifyFreshness(fix.CapturedAt, a.now()),
		DispatchStatus: gps.DispatchIdle,
	}
	if dispatch != nil {
		p.DispatchStatus = gps.DispatchActive
		p.DispatchID = dispatch.ID
	}
	return p, nil
}
