package transcription

import "testing"

func TestCleanText(t *testing.T) {
	cases := map[string]string{
		"[Music] hello   there. how are you?":    "Hello there. How are you?",
		"so (laughs) we add salt.  then pepper!": "So we add salt. Then pepper!",
		"  180 degrees. done":                    "180 degrees. Done",
		"[inaudible]":                            "",
	}
	for in, want := range cases {
		if got := CleanText(in); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfidence(t *testing.T) {
	long := "Mix flour and sugar, then bake at 180 degrees for twenty minutes."
	cases := []struct {
		name string
		text string
		raw  string
		want float64
	}{
		{"long clean sentence", long, long, 0.95},
		{"short no punctuation", "Okay", "okay", 0.55},
		{"fillers", "Um so we mix it", "um so we mix it", 0.7},
		{"uncertain", long, long + " [inaudible]", 0.65},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Confidence(tc.text, tc.raw)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("Confidence = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBackoffDelays(t *testing.T) {
	d := singleBackoff.Delays(3)
	if len(d) != 2 || d[0].Seconds() != 2 || d[1].Seconds() != 4 {
		t.Fatalf("single delays = %v", d)
	}
	d = chunkBackoff.Delays(3)
	if len(d) != 2 || d[0].Seconds() != 3 || d[1].Seconds() != 4.5 {
		t.Fatalf("chunk delays = %v", d)
	}
}
