package rules

// SubfieldModification remaps an authority subfield code onto the
// bibliographic-side code it controls.
type SubfieldModification struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// LinkingRule is tenant configuration mapping an authority MARC field
// to a bibliographic MARC field. Owned by the linking rules service;
// read-only from this pipeline's perspective.
type LinkingRule struct {
	ID                            int                    `json:"id"`
	AuthorityField                string                 `json:"authorityField"`
	BibField                      string                 `json:"bibField"`
	AuthoritySubfields            []string               `json:"authoritySubfields"`
	SubfieldModifications         []SubfieldModification `json:"subfieldModifications,omitempty"`
	SubfieldsExistenceValidations map[string]bool        `json:"subfieldsExistenceValidations,omitempty"`
	AutoLinkingEnabled            bool                   `json:"autoLinkingEnabled"`
}

// ModifiedCode returns the bibliographic code for an authority
// subfield code, applying the rule's modifications. A code with no
// modification entry keeps its original value.
func (r *LinkingRule) ModifiedCode(code string) string {
	for _, mod := range r.SubfieldModifications {
		if mod.Source == code {
			return mod.Target
		}
	}
	return code
}

// BibSubfieldCodes returns the bibliographic-side codes this rule
// controls: every authority subfield after modification remapping.
func (r *LinkingRule) BibSubfieldCodes() []string {
	codes := make([]string, 0, len(r.AuthoritySubfields))
	for _, code := range r.AuthoritySubfields {
		codes = append(codes, r.ModifiedCode(code))
	}
	return codes
}
