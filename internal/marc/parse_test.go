package marc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecord = `{
	"leader": "00506cz  a2200181n  4500",
	"fields": [
		{"001": "4510955"},
		{"008": "850103n| azannaabn          |a aaa      "},
		{"100": {"ind1": "1", "ind2": " ", "subfields": [
			{"a": "Woolf, Virginia,"},
			{"d": "1882-1941"}
		]}},
		{"400": {"ind1": "1", "ind2": " ", "subfields": [
			{"a": "Stephen, Adeline Virginia,"}
		]}}
	]
}`

func TestParseRecord(t *testing.T) {
	record, err := ParseRecord([]byte(sampleRecord))
	require.NoError(t, err)

	assert.Equal(t, "00506cz  a2200181n  4500", record.Leader)
	require.Len(t, record.ControlFields, 2)
	assert.Equal(t, "001", record.ControlFields[0].Tag)
	assert.Equal(t, "4510955", record.ControlFields[0].Value)
	require.Len(t, record.DataFields, 2)

	field, ok := record.DataFieldByTag("100")
	require.True(t, ok)
	assert.Equal(t, "1", field.Ind1)
	assert.Equal(t, []string{"Woolf, Virginia,"}, field.SubfieldValues('a'))
	assert.Equal(t, []string{"1882-1941"}, field.SubfieldValues('d'))
	assert.True(t, field.HasSubfield('d'))
	assert.False(t, field.HasSubfield('t'))
}

func TestParseRecord_RepeatedSubfields(t *testing.T) {
	record, err := ParseRecord([]byte(`{
		"leader": "",
		"fields": [
			{"150": {"ind1": " ", "ind2": " ", "subfields": [
				{"a": "Lighthouses"},
				{"x": "History"},
				{"x": "Sources"}
			]}}
		]
	}`))
	require.NoError(t, err)

	field, ok := record.DataFieldByTag("150")
	require.True(t, ok)
	assert.Equal(t, []string{"History", "Sources"}, field.SubfieldValues('x'))
}

func TestParseRecord_MissingTag(t *testing.T) {
	record, err := ParseRecord([]byte(sampleRecord))
	require.NoError(t, err)

	_, ok := record.DataFieldByTag("110")
	assert.False(t, ok)
}

func TestParseRecord_InvalidSubfieldCode(t *testing.T) {
	_, err := ParseRecord([]byte(`{
		"fields": [
			{"100": {"ind1": " ", "ind2": " ", "subfields": [{"ab": "bad"}]}}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid subfield code")
}

func TestParseRecord_InvalidJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{not json`))
	assert.Error(t, err)
}

func TestIsControlTag(t *testing.T) {
	assert.True(t, isControlTag("001"))
	assert.True(t, isControlTag("009"))
	assert.False(t, isControlTag("010"))
	assert.False(t, isControlTag("100"))
	assert.False(t, isControlTag("abc"))
}
