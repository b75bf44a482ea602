package authority

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_NoChanges(t *testing.T) {
	a := &Authority{ID: uuid.New(), NaturalID: "n123", PersonalName: "Woolf, Virginia"}
	b := *a

	changes := Classify(a, &b)
	assert.Empty(t, changes)
}

func TestClassify_SingleHeadingChange(t *testing.T) {
	old := &Authority{NaturalID: "n123", PersonalName: "Woolf, Virginia"}
	new := &Authority{NaturalID: "n123", PersonalName: "Woolf, Virginia, 1882-1941"}

	changes := Classify(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, FieldPersonalName, changes[0].Field)
	assert.Equal(t, "Woolf, Virginia", changes[0].Old)
	assert.Equal(t, "Woolf, Virginia, 1882-1941", changes[0].New)
}

func TestClassify_NaturalIDAndHeading(t *testing.T) {
	old := &Authority{NaturalID: "n123", TopicalTerm: "Lighthouses"}
	new := &Authority{NaturalID: "n456", TopicalTerm: "Lighthouses--History"}

	changes := Classify(old, new)
	require.Len(t, changes, 2)

	fields := []ChangeField{changes[0].Field, changes[1].Field}
	assert.Contains(t, fields, FieldNaturalID)
	assert.Contains(t, fields, FieldTopicalTerm)
}

func TestClassify_NilNewSnapshot(t *testing.T) {
	old := &Authority{NaturalID: "n123", CorporateName: "Hogarth Press"}

	changes := Classify(old, nil)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Empty(t, c.New)
		assert.NotEmpty(t, c.Old)
	}
}

func TestClassify_NilOldSnapshot(t *testing.T) {
	new := &Authority{NaturalID: "n123", GenreTerm: "Diaries"}

	changes := Classify(nil, new)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Empty(t, c.Old)
		assert.NotEmpty(t, c.New)
	}
}

func TestClassify_BothNil(t *testing.T) {
	assert.Empty(t, Classify(nil, nil))
}

func TestClassify_SourceFileChangeDropped(t *testing.T) {
	fileA := uuid.New()
	fileB := uuid.New()
	old := &Authority{NaturalID: "n123", SourceFileID: &fileA}
	new := &Authority{NaturalID: "n123", SourceFileID: &fileB}

	// sourceFileId has no ChangeField mapping, so the difference is
	// dropped rather than classified.
	assert.Empty(t, Classify(old, new))
}

func TestClassify_Symmetric(t *testing.T) {
	old := &Authority{NaturalID: "n1", MeetingName: "IFLA Congress"}
	new := &Authority{NaturalID: "n2", MeetingName: "IFLA World Congress"}

	forward := Classify(old, new)
	backward := Classify(new, old)
	require.Len(t, backward, len(forward))

	for i := range forward {
		assert.Equal(t, forward[i].Field, backward[i].Field)
		assert.Equal(t, forward[i].Old, backward[i].New)
		assert.Equal(t, forward[i].New, backward[i].Old)
	}
}

func TestLookupChangeField_CaseInsensitive(t *testing.T) {
	f, ok := LookupChangeField("NATURALID")
	require.True(t, ok)
	assert.Equal(t, FieldNaturalID, f)

	f, ok = LookupChangeField("personalname")
	require.True(t, ok)
	assert.Equal(t, FieldPersonalName, f)

	_, ok = LookupChangeField("sourceFileId")
	assert.False(t, ok)
}

func TestAuthorityTag(t *testing.T) {
	tests := []struct {
		field ChangeField
		tag   string
	}{
		{FieldPersonalName, "100"},
		{FieldPersonalNameTitle, "100"},
		{FieldCorporateName, "110"},
		{FieldCorporateNameTitle, "110"},
		{FieldMeetingName, "111"},
		{FieldMeetingNameTitle, "111"},
		{FieldUniformTitle, "130"},
		{FieldTopicalTerm, "150"},
		{FieldGeographicName, "151"},
		{FieldGenreTerm, "155"},
	}

	for _, tt := range tests {
		tag, ok := tt.field.AuthorityTag()
		require.True(t, ok, "field %s", tt.field)
		assert.Equal(t, tt.tag, tag)
	}

	_, ok := FieldNaturalID.AuthorityTag()
	assert.False(t, ok)
}

func TestChangeEventActive(t *testing.T) {
	old := &Authority{NaturalID: "old"}
	new := &Authority{NaturalID: "new"}

	update := &ChangeEvent{Type: EventTypeUpdate, Old: old, New: new}
	assert.Equal(t, new, update.Active())

	del := &ChangeEvent{Type: EventTypeDelete, Old: old}
	assert.Equal(t, old, del.Active())
}
