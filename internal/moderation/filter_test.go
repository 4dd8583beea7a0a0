package moderation

import "testing"

func TestClassify(t *testing.T) {
	f := NewFilter([]string{"lol", "badword2"})

	tests := []struct {
		name    string
		text    string
		blocked bool
	}{
		{"clean", "hello there", false},
		{"exact term", "lol", true},
		{"term as substring", "lollipop", true},
		{"uppercase", "LOL", true},
		{"mixed case", "that was LoL funny", true},
		{"embedded mid-word", "trolololo", true},
		{"second term", "badword2 here", true},
		{"empty", "", false},
		{"near miss", "lo l", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Classify(tt.text); got != tt.blocked {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.blocked)
			}
		})
	}
}

func TestEmptyFilterBlocksNothing(t *testing.T) {
	f := NewFilter(nil)
	if f.Classify("anything at lol all") {
		t.Error("filter with no terms should not block")
	}
}

func TestDefaultTerms(t *testing.T) {
	f := NewFilter(DefaultTerms)
	if !f.Classify("lol") {
		t.Error("default terms should block lol")
	}
	if f.Classify("perfectly fine") {
		t.Error("default terms should not block clean text")
	}
}
