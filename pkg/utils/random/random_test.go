package random_test

import (
	"strings"
	"testing"

	"ignite-service/pkg/utils/random"
)

func TestCode(t *testing.T) {
	code := random.Code(12)
	if len(code) != 12 {
		t.Fatalf("expected 12 characters, got %q", code)
	}
	for _, r := range code {
		if strings.ContainsRune("01IO", r) {
			t.Fatalf("ambiguous character %q in %q", r, code)
		}
	}
	if random.Code(0) != "" {
		t.Fatalf("zero length must give an empty code")
	}
}

func TestNewSourcesDiffer(t *testing.T) {
	a, b := random.New(), random.New()
	same := true
	for i := 0; i < 4; i++ {
		if a.Int63() != b.Int63() {
			same = false
		}
	}
	if same {
		t.Fatalf("independently seeded sources produced the same sequence")
	}
}
