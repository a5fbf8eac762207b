package envutil

import "testing"

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"1":     true,
		"true":  true,
		"TRUE":  true,
		"yes":   true,
		"on":    true,
		"false": false,
		"0":     false,
		"":      false,
	}
	for input, want := range cases {
		if got := ParseBool(input); got != want {
			t.Fatalf("ParseBool(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestString(t *testing.T) {
	t.Setenv("TYPERRA_ENVUTIL_TEST", "  value ")
	if got := String("TYPERRA_ENVUTIL_TEST", "fallback"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	t.Setenv("TYPERRA_ENVUTIL_TEST", "   ")
	if got := String("TYPERRA_ENVUTIL_TEST", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestOnOff(t *testing.T) {
	cases := []struct {
		in     string
		value  bool
		parsed bool
	}{
		{"on", true, true},
		{"Enabled", true, true},
		{"off", false, true},
		{"0", false, true},
		{"maybe", false, false},
	}
	for _, tc := range cases {
		value, ok := OnOff(tc.in)
		if value != tc.value || ok != tc.parsed {
			t.Fatalf("OnOff(%q) = %v,%v want %v,%v", tc.in, value, ok, tc.value, tc.parsed)
		}
	}
}
