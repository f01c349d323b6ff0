package main

import (
	"context"
	"fmt"
	"testing"

	tmerrors "github.com/matzehuels/transitmap/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"interrupted", context.Canceled, exitInterrupted},
		{"interrupted between stages", tmerrors.Wrap(tmerrors.ErrCodeTimeout, context.Canceled, "before quantize"), exitInterrupted},
		{"plain error", fmt.Errorf("disk full"), exitFailure},
		{"bad options", tmerrors.New(tmerrors.ErrCodeInvalidConfig, "attempts must be positive"), exitUsage},
		{"missing layer", tmerrors.New(tmerrors.ErrCodeLayerNotFound, "layer berlin not found"), exitUsage},
		{"storage", tmerrors.New(tmerrors.ErrCodeStorage, "redis down"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
