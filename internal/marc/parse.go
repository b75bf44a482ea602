package marc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ParseRecord decodes the parsed-record JSON shape used by source
// record storage:
//
//	{"leader":"...","fields":[{"001":"val"},{"100":{"ind1":" ","ind2":" ",
//	  "subfields":[{"a":"Heading"}]}}]}
//
// Control fields carry a bare string value; data fields carry
// indicators and a subfield list keyed by single-character codes.
func ParseRecord(data []byte) (*Record, error) {
	var raw struct {
		Leader string                       `json:"leader"`
		Fields []map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode marc record: %w", err)
	}

	record := &Record{Leader: raw.Leader}

	for _, entry := range raw.Fields {
		for tag, body := range entry {
			if isControlTag(tag) {
				var value string
				if err := json.Unmarshal(body, &value); err != nil {
					return nil, fmt.Errorf("failed to decode control field %s: %w", tag, err)
				}
				record.ControlFields = append(record.ControlFields, ControlField{Tag: tag, Value: value})
				continue
			}

			field, err := parseDataField(tag, body)
			if err != nil {
				return nil, err
			}
			record.DataFields = append(record.DataFields, field)
		}
	}

	return record, nil
}

func parseDataField(tag string, body json.RawMessage) (DataField, error) {
	var raw struct {
		Ind1      string              `json:"ind1"`
		Ind2      string              `json:"ind2"`
		Subfields []map[string]string `json:"subfields"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return DataField{}, fmt.Errorf("failed to decode data field %s: %w", tag, err)
	}

	field := DataField{Tag: tag, Ind1: raw.Ind1, Ind2: raw.Ind2}
	for _, sf := range raw.Subfields {
		for code, value := range sf {
			if len(code) != 1 {
				return DataField{}, fmt.Errorf("invalid subfield code %q in field %s", code, tag)
			}
			field.Subfields = append(field.Subfields, Subfield{Code: code[0], Value: value})
		}
	}

	return field, nil
}

func isControlTag(tag string) bool {
	n, err := strconv.Atoi(tag)
	if err != nil {
		return false
	}
	return n > 0 && n < 10
}
