package propagation

import (
	"sort"

	"authlinks/internal/marc"
	"authlinks/internal/rules"
)

// FieldChangeHolder computes the subfield corrections one linking rule
// implies for the authority's current MARC field. Pure computation; it
// never touches storage.
type FieldChangeHolder struct {
	rule         rules.LinkingRule
	subfields    []SubfieldChange
	extraChanges []SubfieldChange
}

// NewFieldChangeHolder extracts the rule-controlled subfields from the
// authority field, remaps their codes through the rule's
// modifications, and synthesizes empty-value changes for controlled
// codes the field does not carry, so downstream consumers clear stale
// values.
func NewFieldChangeHolder(field *marc.DataField, rule rules.LinkingRule) *FieldChangeHolder {
	h := &FieldChangeHolder{rule: rule}

	for _, code := range rule.AuthoritySubfields {
		if len(code) != 1 {
			continue
		}
		target := rule.ModifiedCode(code)

		values := field.SubfieldValues(code[0])
		if len(values) == 0 {
			h.subfields = append(h.subfields, SubfieldChange{Code: target, Value: ""})
			continue
		}
		for _, value := range values {
			h.subfields = append(h.subfields, SubfieldChange{Code: target, Value: value})
		}
	}

	return h
}

// AddExtraChange appends an externally supplied subfield change (the
// natural-id subfield $0) without deduplication against the computed
// set.
func (h *FieldChangeHolder) AddExtraChange(change SubfieldChange) {
	h.extraChanges = append(h.extraChanges, change)
}

// ToFieldChange finalizes the change for the rule's bibliographic
// field, with subfields sorted by code for deterministic output.
func (h *FieldChangeHolder) ToFieldChange() FieldChange {
	subfields := make([]SubfieldChange, 0, len(h.subfields)+len(h.extraChanges))
	subfields = append(subfields, h.subfields...)
	subfields = append(subfields, h.extraChanges...)

	sort.SliceStable(subfields, func(i, j int) bool {
		return subfields[i].Code < subfields[j].Code
	})

	return FieldChange{
		Field:     h.rule.BibField,
		Subfields: subfields,
	}
}
