package discovery

import (
	"fmt"

	"github.com/hyperjump/tansaku/internal/models"
)

// ResolvePage applies defaults to the raw limit and offset and checks their bounds.
// models.Unset on either field selects the default (defaultLimit, 0).
// A set limit must satisfy 0 < limit < maxLimit; a set offset must be >= 0.
func ResolvePage(limit, offset, maxLimit, defaultLimit int) (models.PageRequest, error) {
	page := models.PageRequest{Limit: defaultLimit, Offset: 0}
	if limit != models.Unset {
		if limit >= maxLimit {
			return models.PageRequest{}, fmt.Errorf("%w: limit should be less than %d, got %d", ErrInvalidArgument, maxLimit, limit)
		}
		if limit <= 0 {
			return models.PageRequest{}, fmt.Errorf("%w: limit should be greater than 0, got %d", ErrInvalidArgument, limit)
		}
		page.Limit = limit
	}
	if offset != models.Unset {
		if offset < 0 {
			return models.PageRequest{}, fmt.Errorf("%w: offset should be greater than -1, got %d", ErrInvalidArgument, offset)
		}
		page.Offset = offset
	}
	return page, nil
}
