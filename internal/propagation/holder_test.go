package propagation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authlinks/internal/authority"
)

func updateEvent(authorityID uuid.UUID) authority.ChangeEvent {
	return authority.ChangeEvent{
		ID:          uuid.NewString(),
		Tenant:      "diku",
		Type:        authority.EventTypeUpdate,
		AuthorityID: authorityID,
		New:         &authority.Authority{ID: authorityID, NaturalID: "n123"},
	}
}

func TestNewChangeHolder_RejectsEmptyChanges(t *testing.T) {
	_, err := NewChangeHolder(updateEvent(uuid.New()), nil, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one change")
}

func TestChangeHolder_ChangeType(t *testing.T) {
	id := uuid.New()
	changes := []authority.Change{{Field: authority.FieldPersonalName, Old: "a", New: "b"}}

	upd, err := NewChangeHolder(updateEvent(id), changes, 1)
	require.NoError(t, err)
	assert.Equal(t, ChangeTypeUpdate, upd.ChangeType())

	del, err := NewChangeHolder(authority.ChangeEvent{
		Type:        authority.EventTypeDelete,
		AuthorityID: id,
		Old:         &authority.Authority{ID: id, NaturalID: "n123"},
	}, changes, 1)
	require.NoError(t, err)
	assert.Equal(t, ChangeTypeDelete, del.ChangeType())
}

func TestChangeHolder_NaturalIDPredicates(t *testing.T) {
	onlyNatural := []authority.Change{{Field: authority.FieldNaturalID, Old: "n1", New: "n2"}}
	h, err := NewChangeHolder(updateEvent(uuid.New()), onlyNatural, 1)
	require.NoError(t, err)
	assert.True(t, h.IsNaturalIDChanged())
	assert.True(t, h.IsOnlyNaturalIDChanged())
	assert.Equal(t, "n2", h.NewNaturalID())

	mixed := []authority.Change{
		{Field: authority.FieldPersonalName, Old: "a", New: "b"},
		{Field: authority.FieldNaturalID, Old: "n1", New: "n2"},
	}
	h, err = NewChangeHolder(updateEvent(uuid.New()), mixed, 1)
	require.NoError(t, err)
	assert.True(t, h.IsNaturalIDChanged())
	assert.False(t, h.IsOnlyNaturalIDChanged())

	headingOnly := []authority.Change{{Field: authority.FieldGenreTerm, Old: "a", New: "b"}}
	h, err = NewChangeHolder(updateEvent(uuid.New()), headingOnly, 1)
	require.NoError(t, err)
	assert.False(t, h.IsNaturalIDChanged())
	// Natural id did not change, so the event's current value is used.
	assert.Equal(t, "n123", h.NewNaturalID())
}

func TestChangeHolder_FieldChange(t *testing.T) {
	mixed := []authority.Change{
		{Field: authority.FieldNaturalID, Old: "n1", New: "n2"},
		{Field: authority.FieldUniformTitle, Old: "a", New: "b"},
	}
	h, err := NewChangeHolder(updateEvent(uuid.New()), mixed, 1)
	require.NoError(t, err)

	change, ok := h.FieldChange()
	require.True(t, ok)
	assert.Equal(t, authority.FieldUniformTitle, change.Field)

	onlyNatural := []authority.Change{{Field: authority.FieldNaturalID, Old: "n1", New: "n2"}}
	h, err = NewChangeHolder(updateEvent(uuid.New()), onlyNatural, 1)
	require.NoError(t, err)

	_, ok = h.FieldChange()
	assert.False(t, ok)
}
