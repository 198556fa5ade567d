package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_ObserveSearch(t *testing.T) {
	var rec discovery.Recorder = NewRecorder()

	tests := []struct {
		err     error
		outcome string
	}{
		{nil, OutcomeOK},
		{fmt.Errorf("%w: limit", discovery.ErrInvalidArgument), OutcomeClientError},
		{fmt.Errorf("%w: boom", discovery.ErrExecution), OutcomeServerError},
		{errors.New("unclassified"), OutcomeServerError},
	}
	for _, tt := range tests {
		c := DiscoverySearchesTotal.WithLabelValues(discovery.QueryTypeDSL, tt.outcome)
		before := testutil.ToFloat64(c)
		rec.ObserveSearch(discovery.QueryTypeDSL, tt.err)
		if got := testutil.ToFloat64(c) - before; got != 1 {
			t.Errorf("err=%v: %s counter moved by %f, want 1", tt.err, tt.outcome, got)
		}
	}
}

func TestRecorder_ObserveFallback(t *testing.T) {
	before := testutil.ToFloat64(DiscoveryFallbacksTotal)
	NewRecorder().ObserveFallback()
	if got := testutil.ToFloat64(DiscoveryFallbacksTotal) - before; got != 1 {
		t.Errorf("fallbacks moved by %f, want 1", got)
	}
}

func TestObserveImport(t *testing.T) {
	okBefore := testutil.ToFloat64(ImportsTotal.WithLabelValues(OutcomeOK))
	errBefore := testutil.ToFloat64(ImportsTotal.WithLabelValues(OutcomeError))
	entBefore := testutil.ToFloat64(ImportedEntitiesTotal)

	ObserveImport(3, nil)
	ObserveImport(5, errors.New("bad file"))

	if got := testutil.ToFloat64(ImportsTotal.WithLabelValues(OutcomeOK)) - okBefore; got != 1 {
		t.Errorf("ok imports moved by %f, want 1", got)
	}
	if got := testutil.ToFloat64(ImportsTotal.WithLabelValues(OutcomeError)) - errBefore; got != 1 {
		t.Errorf("failed imports moved by %f, want 1", got)
	}
	if got := testutil.ToFloat64(ImportedEntitiesTotal) - entBefore; got != 3 {
		t.Errorf("entities moved by %f, want 3", got)
	}

	removedBefore := testutil.ToFloat64(ImportsTotal.WithLabelValues(OutcomeRemoved))
	ObserveSourceRemoved()
	if got := testutil.ToFloat64(ImportsTotal.WithLabelValues(OutcomeRemoved)) - removedBefore; got != 1 {
		t.Errorf("removals moved by %f, want 1", got)
	}
}
