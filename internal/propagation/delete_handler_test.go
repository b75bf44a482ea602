package propagation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authlinks/internal/authority"
	"authlinks/internal/links"
	"authlinks/internal/logger"
)

func deleteHolder(t *testing.T, authorityID uuid.UUID, numberOfLinks int) *ChangeHolder {
	t.Helper()
	event := authority.ChangeEvent{
		Type:        authority.EventTypeDelete,
		AuthorityID: authorityID,
		Old:         &authority.Authority{ID: authorityID, NaturalID: "n123", PersonalName: "Woolf, Virginia"},
	}
	h, err := NewChangeHolder(event, []authority.Change{
		{Field: authority.FieldPersonalName, Old: "Woolf, Virginia", New: ""},
		{Field: authority.FieldNaturalID, Old: "n123", New: ""},
	}, numberOfLinks)
	require.NoError(t, err)
	return h
}

func linkRow(id int64, authorityID uuid.UUID, tag string) links.Link {
	return links.Link{
		ID:                 id,
		InstanceID:         uuid.New(),
		AuthorityID:        authorityID,
		AuthorityNaturalID: "n123",
		BibRecordTag:       tag,
		BibRecordSubfields: []string{"a", "d"},
		LinkingRuleID:      1,
	}
}

func TestDeleteHandler_OneEventPerPage(t *testing.T) {
	authorityID := uuid.New()
	repo := newFakeLinksRepo()
	repo.links[authorityID] = []links.Link{
		linkRow(1, authorityID, "600"),
		linkRow(2, authorityID, "600"),
		linkRow(3, authorityID, "700"),
	}

	h := NewDeleteHandler(repo, &fakeAuthorityRepo{}, 2, logger.NopLogger())
	events, err := h.Handle(context.Background(), []*ChangeHolder{deleteHolder(t, authorityID, 3)}, nil)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Len(t, events[0].UpdateTargets, 1)
	assert.Equal(t, "600", events[0].UpdateTargets[0].Field)
	assert.Len(t, events[0].UpdateTargets[0].Links, 2)
	assert.Len(t, events[1].UpdateTargets, 1)
	assert.Equal(t, "700", events[1].UpdateTargets[0].Field)

	for _, event := range events {
		assert.Equal(t, ChangeTypeDelete, event.Type)
		assert.Equal(t, authorityID, event.AuthorityID)
		assert.Empty(t, event.SubfieldsChanges)
		assert.Nil(t, event.JobID)
	}
}

func TestDeleteHandler_DeletesLinksAndAuthorities(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	repo := newFakeLinksRepo()
	repo.links[first] = []links.Link{linkRow(1, first, "600")}
	repo.links[second] = []links.Link{linkRow(2, second, "610")}
	authRepo := &fakeAuthorityRepo{}

	h := NewDeleteHandler(repo, authRepo, 100, logger.NopLogger())
	_, err := h.Handle(context.Background(), []*ChangeHolder{
		deleteHolder(t, first, 1),
		deleteHolder(t, second, 1),
	}, nil)
	require.NoError(t, err)

	require.Len(t, repo.deletedIDs, 1)
	assert.ElementsMatch(t, []uuid.UUID{first, second}, repo.deletedIDs[0])
	require.Len(t, authRepo.deletedIDs, 1)
	assert.ElementsMatch(t, []uuid.UUID{first, second}, authRepo.deletedIDs[0])
}

func TestDeleteHandler_CorrelationID(t *testing.T) {
	authorityID := uuid.New()
	statID := uuid.New()
	repo := newFakeLinksRepo()
	repo.links[authorityID] = []links.Link{linkRow(1, authorityID, "600")}

	h := NewDeleteHandler(repo, &fakeAuthorityRepo{}, 100, logger.NopLogger())
	events, err := h.Handle(context.Background(), []*ChangeHolder{deleteHolder(t, authorityID, 1)},
		map[uuid.UUID]uuid.UUID{authorityID: statID})
	require.NoError(t, err)

	require.Len(t, events, 1)
	require.NotNil(t, events[0].JobID)
	assert.Equal(t, statID, *events[0].JobID)
}

func TestGroupByBibTag_PreservesFirstSeenOrder(t *testing.T) {
	authorityID := uuid.New()
	page := []links.Link{
		linkRow(1, authorityID, "700"),
		linkRow(2, authorityID, "600"),
		linkRow(3, authorityID, "700"),
	}

	targets := groupByBibTag(page)
	require.Len(t, targets, 2)
	assert.Equal(t, "700", targets[0].Field)
	assert.Len(t, targets[0].Links, 2)
	assert.Equal(t, int64(1), targets[0].Links[0].LinkID)
	assert.Equal(t, int64(3), targets[0].Links[1].LinkID)
	assert.Equal(t, "600", targets[1].Field)
}
