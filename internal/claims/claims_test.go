package claims

import "testing"

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		name string
		text string
		want map[Kind]bool
	}{
		{
			name: "superlative and percent",
			text: "We are #1 and 200% better",
			want: map[Kind]bool{KindSuperlative: true, KindPercent: true},
		},
		{
			name: "multiplier and comparative",
			text: "2x faster than the rest",
			want: map[Kind]bool{KindMultiplier: true, KindComparative: true},
		},
		{
			name: "four digit percent without separators",
			text: "1000% more conversions",
			want: map[Kind]bool{KindPercent: true},
		},
		{
			name: "reference marks factual",
			text: "According to a 2023 study, adoption grew",
			want: map[Kind]bool{KindFactual: true},
		},
		{
			name: "bare number falls back to factual",
			text: "Serving 12000 teams",
			want: map[Kind]bool{KindFactual: true},
		},
		{
			name: "testimonial phrasing",
			text: "We love and recommend this tool",
			want: map[Kind]bool{KindTestimonial: true},
		},
		{
			name: "plain text is claim free",
			text: "A simple landing page for your product",
			want: map[Kind]bool{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.text)
			gotSet := map[Kind]bool{}
			for _, k := range got {
				gotSet[k] = true
			}
			for k := range tc.want {
				if !gotSet[k] {
					t.Errorf("Classify(%q) missing kind %s, got %v", tc.text, k, got)
				}
			}
			for k := range gotSet {
				if !tc.want[k] {
					t.Errorf("Classify(%q) unexpected kind %s", tc.text, k)
				}
			}
		})
	}
}

func TestClassifyEmpty(t *testing.T) {
	if got := Classify("   "); got != nil {
		t.Errorf("Classify(blank) = %v, want nil", got)
	}
}

func TestCountTextPerChunk(t *testing.T) {
	c := CountText("We are #1\n200% better than rivals")
	if c.ByKind[KindSuperlative] < 1 {
		t.Errorf("superlative = %d, want >= 1", c.ByKind[KindSuperlative])
	}
	if c.ByKind[KindPercent] < 1 {
		t.Errorf("percent = %d, want >= 1", c.ByKind[KindPercent])
	}
	if c.ByKind[KindComparative] < 1 {
		t.Errorf("comparative = %d, want >= 1", c.ByKind[KindComparative])
	}
	if c.Total < 3 {
		t.Errorf("total = %d, want >= 3", c.Total)
	}
}

func TestCountCopyNested(t *testing.T) {
	copyDoc := map[string]any{
		"HEADLINE": "The best platform",
		"FEATURES": []any{"10x faster builds", map[string]any{"sub": "50% less downtime"}},
		"count":    3.0, // non-string values are ignored
	}
	c := CountCopy(copyDoc)
	if c.ByKind[KindSuperlative] != 1 {
		t.Errorf("superlative = %d, want 1", c.ByKind[KindSuperlative])
	}
	if c.ByKind[KindMultiplier] != 1 {
		t.Errorf("multiplier = %d, want 1", c.ByKind[KindMultiplier])
	}
	if c.ByKind[KindPercent] != 1 {
		t.Errorf("percent = %d, want 1", c.ByKind[KindPercent])
	}
}

func TestFlattenText(t *testing.T) {
	got := FlattenText(map[string]any{"a": "one", "b": []any{"two", 7}})
	if len(got) != 2 {
		t.Fatalf("FlattenText returned %d strings, want 2: %v", len(got), got)
	}
}
