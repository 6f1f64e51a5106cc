package colors

import "testing"

func TestStripANSI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{string(RED) + "error" + string(RESET), "error"},
		{string(BOLD_RED) + "a" + string(RESET) + " b", "a b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripANSI(tt.in); got != tt.want {
			t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSprintfRespectsEnabled(t *testing.T) {
	defer SetEnabled(true)

	SetEnabled(false)
	if got := GREEN.Sprintf("%d ok", 3); got != "3 ok" {
		t.Errorf("disabled Sprintf = %q", got)
	}

	SetEnabled(true)
	if got := GREEN.Sprint("x"); got != string(GREEN)+"x"+string(RESET) {
		t.Errorf("enabled Sprint = %q", got)
	}
}
