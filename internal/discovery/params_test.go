package discovery

import (
	"errors"
	"testing"

	"github.com/hyperjump/tansaku/internal/models"
)

func TestResolvePage(t *testing.T) {
	const maxLimit, defaultLimit = 100, 10
	tests := []struct {
		name    string
		limit   int
		offset  int
		want    models.PageRequest
		wantErr bool
	}{
		{"both unset", -1, -1, models.PageRequest{Limit: 10, Offset: 0}, false},
		{"limit set", 25, -1, models.PageRequest{Limit: 25, Offset: 0}, false},
		{"smallest limit", 1, -1, models.PageRequest{Limit: 1, Offset: 0}, false},
		{"largest limit", 99, -1, models.PageRequest{Limit: 99, Offset: 0}, false},
		{"offset zero", -1, 0, models.PageRequest{Limit: 10, Offset: 0}, false},
		{"offset set", 5, 40, models.PageRequest{Limit: 5, Offset: 40}, false},
		{"limit zero", 0, -1, models.PageRequest{}, true},
		{"limit at max", 100, -1, models.PageRequest{}, true},
		{"limit over max", 500, -1, models.PageRequest{}, true},
		{"limit negative", -2, -1, models.PageRequest{}, true},
		{"offset negative", -1, -2, models.PageRequest{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePage(tt.limit, tt.offset, maxLimit, defaultLimit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolvePage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("error %v should wrap ErrInvalidArgument", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ResolvePage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolvePage_LimitRange(t *testing.T) {
	const maxLimit = 20
	for limit := -5; limit <= maxLimit+5; limit++ {
		page, err := ResolvePage(limit, models.Unset, maxLimit, 7)
		switch {
		case limit == models.Unset:
			if err != nil || page.Limit != 7 {
				t.Errorf("limit %d: got %+v, %v; want default", limit, page, err)
			}
		case limit > 0 && limit < maxLimit:
			if err != nil || page.Limit != limit {
				t.Errorf("limit %d: got %+v, %v; want unchanged", limit, page, err)
			}
		default:
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("limit %d: expected ErrInvalidArgument, got %v", limit, err)
			}
		}
	}
}

func TestResolvePage_OffsetRange(t *testing.T) {
	for offset := -5; offset <= 1000; offset += 3 {
		page, err := ResolvePage(models.Unset, offset, 100, 10)
		switch {
		case offset == models.Unset:
			if err != nil || page.Offset != 0 {
				t.Errorf("offset %d: got %+v, %v; want 0", offset, page, err)
			}
		case offset >= 0:
			if err != nil || page.Offset != offset {
				t.Errorf("offset %d: got %+v, %v; want unchanged", offset, page, err)
			}
		default:
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("offset %d: expected ErrInvalidArgument, got %v", offset, err)
			}
		}
	}
}
