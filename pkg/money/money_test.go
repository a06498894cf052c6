package money_test

import (
	"encoding/json"
	"errors"
	"testing"

	"ignite-service/pkg/money"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want money.Amount
	}{
		{"0", 0},
		{"0.50", 50},
		{"12", 1200},
		{"-3.25", -325},
		{" 1.25 ", 125},
		{"7.1", 710},
	}
	for _, tc := range cases {
		got, err := money.Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "abc", "NaN", "Inf", "1e300", "92233720368547758.07", "-92233720368547758.08"} {
		if _, err := money.Parse(bad); !errors.Is(err, money.ErrMalformed) {
			t.Fatalf("Parse(%q): expected ErrMalformed, got %v", bad, err)
		}
	}
}

func TestParseJSONAcceptsNumbersAndStrings(t *testing.T) {
	for raw, want := range map[string]money.Amount{
		`10`:      1000,
		`"10.25"`: 1025,
		`-0.5`:    -50,
	} {
		got, err := money.ParseJSON([]byte(raw))
		if err != nil || got != want {
			t.Fatalf("ParseJSON(%s) = %d, %v; want %d", raw, got, err, want)
		}
	}
	for _, raw := range []string{`null`, ``, `"x"`, `true`} {
		if _, err := money.ParseJSON([]byte(raw)); err == nil {
			t.Fatalf("ParseJSON(%s): expected an error", raw)
		}
	}
}

func TestMarshalKeepsCents(t *testing.T) {
	out, err := json.Marshal(struct {
		A money.Amount `json:"a"`
		B money.Amount `json:"b"`
	}{A: 1205, B: -7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":12.05,"b":-0.07}` {
		t.Fatalf("unexpected encoding %s", out)
	}

	var back struct {
		A money.Amount `json:"a"`
	}
	if err := json.Unmarshal([]byte(`{"a":"3.40"}`), &back); err != nil || back.A != 340 {
		t.Fatalf("unmarshal quoted amount: %d, %v", back.A, err)
	}
}

func TestAdd(t *testing.T) {
	if sum, err := money.Add(150, -25); err != nil || sum != 125 {
		t.Fatalf("Add(150,-25) = %d, %v", sum, err)
	}
	if sum, err := money.Add(money.Max-1, 1); err != nil || sum != money.Max {
		t.Fatalf("Add up to Max = %d, %v", sum, err)
	}
	if _, err := money.Add(money.Max, 1); !errors.Is(err, money.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := money.Add(-money.Max-1, -1); !errors.Is(err, money.ErrOverflow) {
		t.Fatalf("expected ErrOverflow below the minimum, got %v", err)
	}
}

func TestMin(t *testing.T) {
	if money.Min(5, 3) != 3 || money.Min(-1, 2) != -1 {
		t.Fatalf("Min returned the larger value")
	}
}
