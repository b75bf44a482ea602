package authority

// comparedFields is the explicit enumeration of snapshot accessors the
// classifier walks. A new snapshot field only participates in
// propagation once it is added here and to the ChangeField set.
var comparedFields = []struct {
	name string
	get  func(*Authority) string
}{
	{"personalName", func(a *Authority) string { return a.PersonalName }},
	{"personalNameTitle", func(a *Authority) string { return a.PersonalNameTitle }},
	{"corporateName", func(a *Authority) string { return a.CorporateName }},
	{"corporateNameTitle", func(a *Authority) string { return a.CorporateNameTitle }},
	{"meetingName", func(a *Authority) string { return a.MeetingName }},
	{"meetingNameTitle", func(a *Authority) string { return a.MeetingNameTitle }},
	{"uniformTitle", func(a *Authority) string { return a.UniformTitle }},
	{"topicalTerm", func(a *Authority) string { return a.TopicalTerm }},
	{"geographicName", func(a *Authority) string { return a.GeographicName }},
	{"genreTerm", func(a *Authority) string { return a.GenreTerm }},
	{"naturalId", func(a *Authority) string { return a.NaturalID }},
	{"sourceFileId", func(a *Authority) string {
		if a.SourceFileID == nil {
			return ""
		}
		return a.SourceFileID.String()
	}},
}

// Classify compares two snapshots field by field and returns the
// differences that map onto the closed ChangeField enumeration.
// Differences on unmapped fields (sourceFileId, schema additions) are
// dropped. Either snapshot may be nil; a nil snapshot reads as empty
// on every field. Always returns a possibly empty list.
func Classify(old, new *Authority) []Change {
	var changes []Change

	for _, fd := range comparedFields {
		oldValue := accessorValue(old, fd.get)
		newValue := accessorValue(new, fd.get)
		if oldValue == newValue {
			continue
		}

		field, ok := LookupChangeField(fd.name)
		if !ok {
			continue
		}

		changes = append(changes, Change{
			Field: field,
			Old:   oldValue,
			New:   newValue,
		})
	}

	return changes
}

func accessorValue(a *Authority, get func(*Authority) string) string {
	if a == nil {
		return ""
	}
	return get(a)
}
