package secret

import "testing"

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcde", "*****"},
		{"abcdef", "a****f"},
		{"AIzaSyD-0123456789", "A****************9"},
		{"AIzaSyD-0123456789abcdef", "AIz********************f"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Fatalf("Mask(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedact(t *testing.T) {
	const key = "AIzaSyD-0123456789abcdef"
	got := Redact("https://host/v1beta/models/m:generateContent?key="+key, key)
	want := "https://host/v1beta/models/m:generateContent?key=AIz********************f"
	if got != want {
		t.Fatalf("Redact = %q; want %q", got, want)
	}
	if got := Redact("nothing to hide", ""); got != "nothing to hide" {
		t.Fatalf("Redact with empty secret changed input: %q", got)
	}
}
