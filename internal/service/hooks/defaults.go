package hooks

import (
	"context"
	"errors"
	"strings"

	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/domain/richtext"
	"github.com/unevent/unevent-api/internal/domain/slug"
	apperrors "github.com/unevent/unevent-api/internal/errors"
)

// AssignSlug derives the slug from the title when the slug is empty. An
// existing slug is never recomputed.
func AssignSlug(_ context.Context, _ RequestContext, _ Operation, data *model.Listing) (*model.Listing, error) {
	if strings.TrimSpace(data.Slug) != "" || strings.TrimSpace(data.Title) == "" {
		return data, nil
	}
	data.Slug = slug.Make(data.Title)
	return data, nil
}

// AttachOwner sets the owner to the actor's profile when no owner was supplied.
func AttachOwner(_ context.Context, rc RequestContext, _ Operation, data *model.Listing) (*model.Listing, error) {
	if model.ResolveID(data.Owner) != "" || !rc.Actor.HasProfile() {
		return data, nil
	}
	data.Owner = model.NewRef(rc.Actor.ProfileID)
	return data, nil
}

// DefaultStatus sets pending on create when no status was supplied.
func DefaultStatus(_ context.Context, _ RequestContext, op Operation, data *model.Listing) (*model.Listing, error) {
	if op != OperationCreate || data.ModerationStatus != "" {
		return data, nil
	}
	data.ModerationStatus = model.ModerationPending
	return data, nil
}

// SanitizeDescription rejects descriptions outside the rich-text allow-list.
func SanitizeDescription(_ context.Context, _ RequestContext, _ Operation, data *model.Listing) (*model.Listing, error) {
	out, err := richtext.SanitizeField(data.Description)
	if err != nil {
		field := "description"
		var v *richtext.Violation
		if errors.As(err, &v) {
			field += "." + v.Path
		}
		return nil, apperrors.WrapField(err, apperrors.ErrCodeValidation, field)
	}
	data.Description = out
	return data, nil
}
