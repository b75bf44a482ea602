package propagation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"authlinks/internal/constants"
	"authlinks/internal/links"
	"authlinks/internal/logger"
	"authlinks/internal/rules"
	"authlinks/internal/sourcerecord"
	"authlinks/internal/tenant"
	pkgerrors "authlinks/pkg/errors"
	"authlinks/pkg/metrics"
)

// UpdateHandler corrects the denormalized heading copies of every
// bibliographic record linked to a changed authority. A change to only
// the natural id takes a cheap path that rewrites subfield $0; a
// heading change resolves linking rules against the authority's
// current MARC record and computes full subfield corrections.
type UpdateHandler struct {
	links         links.Repository
	resolver      *rules.Resolver
	sourceRecords sourcerecord.Client
	sourceFiles   sourcerecord.SourceFileClient
	pageSize      int
	logger        logger.Logger
}

func NewUpdateHandler(
	linksRepo links.Repository,
	resolver *rules.Resolver,
	sourceRecords sourcerecord.Client,
	sourceFiles sourcerecord.SourceFileClient,
	pageSize int,
	log logger.Logger,
) *UpdateHandler {
	return &UpdateHandler{
		links:         linksRepo,
		resolver:      resolver,
		sourceRecords: sourceRecords,
		sourceFiles:   sourceFiles,
		pageSize:      pageSize,
		logger:        log,
	}
}

func (h *UpdateHandler) SupportedType() ChangeType {
	return ChangeTypeUpdate
}

func (h *UpdateHandler) Handle(ctx context.Context, holders []*ChangeHolder, correlation map[uuid.UUID]uuid.UUID) ([]LinksChangeEvent, error) {
	if len(holders) == 0 {
		return nil, nil
	}

	var events []LinksChangeEvent
	for _, holder := range holders {
		if !h.isSupportedChange(ctx, holder) {
			continue
		}

		var holderEvents []LinksChangeEvent
		var err error
		if holder.IsOnlyNaturalIDChanged() {
			holderEvents, err = h.handleNaturalIDChange(ctx, holder, correlation)
		} else {
			holderEvents, err = h.handleFieldChange(ctx, holder, correlation)
		}
		if err != nil {
			return nil, err
		}
		events = append(events, holderEvents...)
	}

	return events, nil
}

// isSupportedChange enforces the classification guard: at most one
// non-identifier change, optionally together with the natural id. An
// unsupported change set is skipped whole, never partially applied.
func (h *UpdateHandler) isSupportedChange(ctx context.Context, holder *ChangeHolder) bool {
	changes := holder.Changes()
	supported := len(changes) == 1 ||
		(len(changes) == 2 && holder.IsNaturalIDChanged())
	if !supported {
		fields := make([]string, 0, len(changes))
		for _, c := range changes {
			fields = append(fields, string(c.Field))
		}
		h.logger.WarnwCtx(ctx, "Skipping unsupported multi-field change",
			"authority_id", holder.Event().AuthorityID,
			"changed_fields", fields,
		)
		metrics.IncSkippedRecord("unsupported_change")
	}
	return supported
}

func (h *UpdateHandler) handleNaturalIDChange(ctx context.Context, holder *ChangeHolder, correlation map[uuid.UUID]uuid.UUID) ([]LinksChangeEvent, error) {
	authorityID := holder.Event().AuthorityID
	naturalID := holder.NewNaturalID()

	subfield0, err := h.subfield0Change(ctx, holder)
	if err != nil {
		return nil, err
	}

	if err := h.links.UpdateNaturalIDByAuthorityID(ctx, authorityID, naturalID); err != nil {
		return nil, err
	}

	var events []LinksChangeEvent
	err = h.forEachPage(ctx, authorityID, func(page []links.Link) {
		targets := groupByBibTag(page)

		// One $0 correction per distinct bib tag in the page.
		fieldChanges := make([]FieldChange, 0, len(targets))
		for _, target := range targets {
			fieldChanges = append(fieldChanges, FieldChange{
				Field:     target.Field,
				Subfields: []SubfieldChange{subfield0},
			})
		}

		events = append(events, LinksChangeEvent{
			JobID:            correlationID(correlation, authorityID),
			AuthorityID:      authorityID,
			Type:             ChangeTypeUpdate,
			UpdateTargets:    targets,
			SubfieldsChanges: fieldChanges,
			Tenant:           tenant.FromContext(ctx),
			Timestamp:        time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (h *UpdateHandler) handleFieldChange(ctx context.Context, holder *ChangeHolder, correlation map[uuid.UUID]uuid.UUID) ([]LinksChangeEvent, error) {
	authorityID := holder.Event().AuthorityID

	change, ok := holder.FieldChange()
	if !ok {
		return nil, pkgerrors.ErrValidation.
			WithDetail("message", "no content field change present").
			WithDetail("authority_id", authorityID.String())
	}

	tag, err := h.resolver.TagByChangeField(change.Field)
	if err != nil {
		return nil, err
	}

	record, err := h.sourceRecords.GetSourceRecordByID(ctx, authorityID)
	if err != nil {
		return nil, err
	}

	field, ok := record.DataFieldByTag(tag)
	if !ok {
		// Hard stop for this one authority; the orchestrator's
		// fallback turns it into a logged skip.
		return nil, pkgerrors.ErrFieldNotFound.
			WithDetail("message", "changed tag missing from source record").
			WithDetail("authority_id", authorityID.String()).
			WithDetail("tag", tag)
	}

	linkingRules, err := h.resolver.RulesByAuthorityField(ctx, tag)
	if err != nil {
		return nil, err
	}

	var subfield0 *SubfieldChange
	if holder.IsNaturalIDChanged() {
		sf, err := h.subfield0Change(ctx, holder)
		if err != nil {
			return nil, err
		}
		subfield0 = &sf
	}

	naturalID := holder.NewNaturalID()
	fieldChanges := make([]FieldChange, 0, len(linkingRules))
	for _, rule := range linkingRules {
		fch := NewFieldChangeHolder(field, rule)
		if subfield0 != nil {
			fch.AddExtraChange(*subfield0)
		}
		fieldChanges = append(fieldChanges, fch.ToFieldChange())

		if err := h.links.UpdateSubfieldsAndNaturalID(ctx, authorityID, rule.BibField, rule.BibSubfieldCodes(), naturalID); err != nil {
			return nil, err
		}
	}

	// Every page repeats the full field-change payload; only the
	// target link list differs.
	var events []LinksChangeEvent
	err = h.forEachPage(ctx, authorityID, func(page []links.Link) {
		events = append(events, LinksChangeEvent{
			JobID:            correlationID(correlation, authorityID),
			AuthorityID:      authorityID,
			Type:             ChangeTypeUpdate,
			UpdateTargets:    groupByBibTag(page),
			SubfieldsChanges: fieldChanges,
			Tenant:           tenant.FromContext(ctx),
			Timestamp:        time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (h *UpdateHandler) forEachPage(ctx context.Context, authorityID uuid.UUID, fn func(page []links.Link)) error {
	for offset := 0; ; offset += h.pageSize {
		page, err := h.links.FindByAuthorityID(ctx, authorityID, h.pageSize, offset)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		fn(page)

		if len(page) < h.pageSize {
			return nil
		}
	}
}

// subfield0Change builds the shared $0 correction:
// baseURL + "/" + naturalID, or the bare natural id when the authority
// has no source file.
func (h *UpdateHandler) subfield0Change(ctx context.Context, holder *ChangeHolder) (SubfieldChange, error) {
	naturalID := holder.NewNaturalID()

	baseURL := ""
	active := holder.Event().Active()
	if active != nil && active.SourceFileID != nil {
		url, err := h.sourceFiles.GetBaseURL(ctx, *active.SourceFileID)
		if err != nil {
			if !pkgerrors.IsNotFound(err) {
				return SubfieldChange{}, err
			}
		} else {
			baseURL = url
		}
	}

	value := naturalID
	if baseURL != "" {
		value = strings.TrimSuffix(baseURL, "/") + "/" + naturalID
	}

	return SubfieldChange{Code: string(constants.SubfieldNaturalID), Value: value}, nil
}
