package propagation

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"authlinks/internal/links"
	"authlinks/internal/marc"
	"authlinks/internal/rules"
	"authlinks/internal/stats"
)

type subfieldUpdate struct {
	authorityID uuid.UUID
	bibTag      string
	subfields   []string
	naturalID   string
}

type naturalIDUpdate struct {
	authorityID uuid.UUID
	naturalID   string
}

type fakeLinksRepo struct {
	links map[uuid.UUID][]links.Link

	findErr          error
	countErr         error
	subfieldUpdates  []subfieldUpdate
	naturalIDUpdates []naturalIDUpdate
	deletedIDs       [][]uuid.UUID
}

func newFakeLinksRepo() *fakeLinksRepo {
	return &fakeLinksRepo{links: make(map[uuid.UUID][]links.Link)}
}

func (f *fakeLinksRepo) CountByAuthorityIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	counts := make(map[uuid.UUID]int, len(ids))
	for _, id := range ids {
		counts[id] = len(f.links[id])
	}
	return counts, nil
}

func (f *fakeLinksRepo) FindByAuthorityID(ctx context.Context, authorityID uuid.UUID, limit, offset int) ([]links.Link, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	all := f.links[authorityID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeLinksRepo) UpdateSubfieldsAndNaturalID(ctx context.Context, authorityID uuid.UUID, bibTag string, subfields []string, naturalID string) error {
	f.subfieldUpdates = append(f.subfieldUpdates, subfieldUpdate{
		authorityID: authorityID,
		bibTag:      bibTag,
		subfields:   subfields,
		naturalID:   naturalID,
	})
	return nil
}

func (f *fakeLinksRepo) UpdateNaturalIDByAuthorityID(ctx context.Context, authorityID uuid.UUID, naturalID string) error {
	f.naturalIDUpdates = append(f.naturalIDUpdates, naturalIDUpdate{authorityID: authorityID, naturalID: naturalID})
	return nil
}

func (f *fakeLinksRepo) DeleteByAuthorityIDs(ctx context.Context, ids []uuid.UUID) error {
	f.deletedIDs = append(f.deletedIDs, ids)
	return nil
}

type fakeAuthorityRepo struct {
	deletedIDs [][]uuid.UUID
	err        error
}

func (f *fakeAuthorityRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deletedIDs = append(f.deletedIDs, ids)
	return nil
}

type fakeStatsRepo struct {
	inserted []stats.DataStat
	err      error
}

func (f *fakeStatsRepo) InsertBulk(ctx context.Context, rows []stats.DataStat) ([]stats.DataStat, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]stats.DataStat, len(rows))
	for i, row := range rows {
		row.ID = uuid.New()
		out[i] = row
	}
	f.inserted = append(f.inserted, out...)
	return out, nil
}

type publishedBatch struct {
	tenantID string
	events   []LinksChangeEvent
}

type fakeEmitter struct {
	mu        sync.Mutex
	published []publishedBatch
	err       error
}

func (f *fakeEmitter) Publish(ctx context.Context, tenantID string, events []LinksChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedBatch{tenantID: tenantID, events: events})
	return nil
}

func (f *fakeEmitter) batches() []publishedBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedBatch, len(f.published))
	copy(out, f.published)
	return out
}

type fakeScheduler struct {
	scheduled []publishedBatch
}

func (f *fakeScheduler) Schedule(tenantID string, events []LinksChangeEvent) {
	f.scheduled = append(f.scheduled, publishedBatch{tenantID: tenantID, events: events})
}

type fakeRulesClient struct {
	rules map[string][]rules.LinkingRule
	calls int
	err   error
}

func (f *fakeRulesClient) GetLinkingRulesByAuthorityField(ctx context.Context, authorityField string) ([]rules.LinkingRule, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rules[authorityField], nil
}

type fakeSourceRecordClient struct {
	records map[uuid.UUID]*marc.Record
	err     error
}

func (f *fakeSourceRecordClient) GetSourceRecordByID(ctx context.Context, authorityID uuid.UUID) (*marc.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[authorityID], nil
}

type fakeSourceFileClient struct {
	baseURL string
	err     error
}

func (f *fakeSourceFileClient) GetBaseURL(ctx context.Context, sourceFileID uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.baseURL, nil
}
