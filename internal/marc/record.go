package marc

// Subfield is one coded value inside a data field.
type Subfield struct {
	Code  byte
	Value string
}

// DataField is a tagged MARC field with indicators and subfields.
type DataField struct {
	Tag       string
	Ind1      string
	Ind2      string
	Subfields []Subfield
}

// ControlField is a tagged field with a single value and no subfields
// (tags 001-009).
type ControlField struct {
	Tag   string
	Value string
}

type Record struct {
	Leader        string
	ControlFields []ControlField
	DataFields    []DataField
}

// DataFieldByTag returns the first data field with the given tag.
func (r *Record) DataFieldByTag(tag string) (*DataField, bool) {
	for i := range r.DataFields {
		if r.DataFields[i].Tag == tag {
			return &r.DataFields[i], true
		}
	}
	return nil, false
}

// SubfieldValues returns the values of every subfield with the given
// code, in field order.
func (f *DataField) SubfieldValues(code byte) []string {
	var values []string
	for _, sf := range f.Subfields {
		if sf.Code == code {
			values = append(values, sf.Value)
		}
	}
	return values
}

func (f *DataField) HasSubfield(code byte) bool {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return true
		}
	}
	return false
}
