package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestE_nil(t *testing.T) {
	if E(Indexing, "build", nil) != nil {
		t.Error("E with nil error should return nil")
	}
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", base, Unknown},
		{"tagged", E(Retrieval, "retrieve", base), Retrieval},
		{"wrapped", fmt.Errorf("outer: %w", E(Configuration, "load", base)), Configuration},
		{"errorf", Errorf(Indexing, "build", "dim %d != %d", 3, 4), Indexing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_message(t *testing.T) {
	err := E(Embedding, "embed", errors.New("empty vector"))
	if got := err.Error(); got != "embedding error: embed: empty vector" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, Embedding) || Is(err, Review) {
		t.Error("Is mismatch")
	}
	if !errors.Is(err, errors.Unwrap(err)) {
		t.Error("Unwrap should expose the cause")
	}
}
