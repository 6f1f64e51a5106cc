package source

import "testing"

func TestLocationContains(t *testing.T) {
	loc := Span("a.jet", 2, 5, 4, 10)

	tests := []struct {
		pos  Position
		want bool
	}{
		{Position{Line: 2, Column: 5}, true},
		{Position{Line: 3, Column: 1}, true},
		{Position{Line: 4, Column: 10}, true},
		{Position{Line: 2, Column: 4}, false},
		{Position{Line: 4, Column: 11}, false},
		{Position{Line: 1, Column: 99}, false},
	}
	for _, tt := range tests {
		pos := tt.pos
		if got := loc.Contains(&pos); got != tt.want {
			t.Errorf("Contains(%d:%d) = %v, want %v", pos.Line, pos.Column, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	a := Span("a.jet", 3, 1, 3, 8)
	b := Span("a.jet", 1, 4, 2, 2)

	m := Merge(&a, &b)
	if m.Start.Line != 1 || m.Start.Column != 4 {
		t.Errorf("merged start = %d:%d", m.Start.Line, m.Start.Column)
	}
	if m.End.Line != 3 || m.End.Column != 8 {
		t.Errorf("merged end = %d:%d", m.End.Line, m.End.Column)
	}
	if !m.Encloses(&a) || !m.Encloses(&b) {
		t.Error("merged span should enclose both inputs")
	}
	if Merge(nil, &a) != &a {
		t.Error("merge with nil should return the other span")
	}
}
