package tokens

import "testing"

func TestBaseOperator(t *testing.T) {
	tests := []struct {
		in   TOKEN
		want TOKEN
		ok   bool
	}{
		{PLUS_EQUALS_TOKEN, PLUS_TOKEN, true},
		{MOD_EQUALS_TOKEN, MOD_TOKEN, true},
		{EQUALS_TOKEN, "", false},
		{PLUS_TOKEN, "", false},
	}
	for _, tt := range tests {
		got, ok := BaseOperator(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BaseOperator(%s) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOperatorName(t *testing.T) {
	if OperatorName(MUL_TOKEN) != "times" {
		t.Errorf("OperatorName(*) = %q", OperatorName(MUL_TOKEN))
	}
	if OperatorName(RANGE_TOKEN) != "rangeTo" {
		t.Errorf("OperatorName(..) = %q", OperatorName(RANGE_TOKEN))
	}
	if OperatorName(AND_TOKEN) != "" {
		t.Error("&& has no operator convention")
	}
}
