package expression_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/karupanerura/arithmetic-repl/internal/types"
)

func assertError(t *testing.T, err error, tag types.ErrorTag, extra map[string]any) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s but got no error", tag)
	}

	var e *types.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *types.Error but got %T: %v", err, err)
	}
	if e.Tag != tag {
		t.Fatalf("expected %s but got %s: %v", tag, e.Tag, err)
	}
	if extra != nil {
		if diff := cmp.Diff(extra, e.Extra); diff != "" {
			t.Errorf("unexpected extra (-want +got):\n%s", diff)
		}
	}
}
