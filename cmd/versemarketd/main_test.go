package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	fperrors "versemarket/core/errors"
)

func TestExitCodeClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"arithmetic", fperrors.ErrMathOverflow, 3},
		{"wrapped arithmetic", fmt.Errorf("loading tables: %w", fperrors.ErrPrecisionLoss), 3},
		{"invariant", fperrors.ErrCircuitBreakerOpen, 2},
		{"invariant stale price", fperrors.ErrStalePrice, 2},
		{"other", fperrors.ErrNotInitialized, 1},
		{"unclassified", fmt.Errorf("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestErrIsAnyMatchesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", fperrors.ErrSystemHalted)
	require.True(t, errIsAny(wrapped, fperrors.ErrCircuitBreakerOpen, fperrors.ErrSystemHalted))
	require.False(t, errIsAny(wrapped, fperrors.ErrMathOverflow))
}
