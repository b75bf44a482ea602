package authority

import "strings"

// ChangeField is the closed set of business fields whose changes
// propagate to linked bibliographic records. Each content field maps to
// the MARC authority tag that owns it.
type ChangeField string

const (
	FieldPersonalName       ChangeField = "personalName"
	FieldPersonalNameTitle  ChangeField = "personalNameTitle"
	FieldCorporateName      ChangeField = "corporateName"
	FieldCorporateNameTitle ChangeField = "corporateNameTitle"
	FieldMeetingName        ChangeField = "meetingName"
	FieldMeetingNameTitle   ChangeField = "meetingNameTitle"
	FieldUniformTitle       ChangeField = "uniformTitle"
	FieldTopicalTerm        ChangeField = "topicalTerm"
	FieldGeographicName     ChangeField = "geographicName"
	FieldGenreTerm          ChangeField = "genreTerm"
	FieldNaturalID          ChangeField = "naturalId"
)

var fieldTags = map[ChangeField]string{
	FieldPersonalName:       "100",
	FieldPersonalNameTitle:  "100",
	FieldCorporateName:      "110",
	FieldCorporateNameTitle: "110",
	FieldMeetingName:        "111",
	FieldMeetingNameTitle:   "111",
	FieldUniformTitle:       "130",
	FieldTopicalTerm:        "150",
	FieldGeographicName:     "151",
	FieldGenreTerm:          "155",
}

// AuthorityTag returns the MARC authority tag owning the field. The
// natural id is not a MARC-backed field and has no tag.
func (f ChangeField) AuthorityTag() (string, bool) {
	tag, ok := fieldTags[f]
	return tag, ok
}

func (f ChangeField) IsNaturalID() bool {
	return f == FieldNaturalID
}

var fieldsByLowerName = func() map[string]ChangeField {
	m := make(map[string]ChangeField)
	for _, f := range []ChangeField{
		FieldPersonalName, FieldPersonalNameTitle,
		FieldCorporateName, FieldCorporateNameTitle,
		FieldMeetingName, FieldMeetingNameTitle,
		FieldUniformTitle, FieldTopicalTerm,
		FieldGeographicName, FieldGenreTerm,
		FieldNaturalID,
	} {
		m[strings.ToLower(string(f))] = f
	}
	return m
}()

// LookupChangeField maps a raw difference name onto the closed field
// enumeration, case-insensitively. Unknown names report false;
// differences on them are dropped without error.
func LookupChangeField(name string) (ChangeField, bool) {
	f, ok := fieldsByLowerName[strings.ToLower(name)]
	return f, ok
}

// Change is one classified field-level difference between two authority
// snapshots.
type Change struct {
	Field ChangeField
	Old   string
	New   string
}
