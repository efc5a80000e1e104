package visionary

import (
	"encoding/json"
	"math"
	"testing"
)

func TestTimecodeForms(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{"bare number", `12.5`, 12.5},
		{"integer", `90`, 90},
		{"numeric string", `"45.25"`, 45.25},
		{"minutes seconds", `"01:30"`, 90},
		{"hours minutes seconds", `"01:02:03"`, 3723},
		{"padded clock", `" 00:00:05 "`, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var code Timecode
			if err := json.Unmarshal([]byte(tc.input), &code); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.input, err)
			}
			if math.Abs(code.Seconds()-tc.want) > 1e-9 {
				t.Fatalf("parsed %s = %f, want %f", tc.input, code.Seconds(), tc.want)
			}
		})
	}
}

func TestTimecodeRejectsGarbage(t *testing.T) {
	for _, input := range []string{`"abc"`, `"1:2:3:4"`, `""`, `"-5"`, `{}`} {
		var code Timecode
		if err := json.Unmarshal([]byte(input), &code); err == nil {
			t.Fatalf("expected error for %s, got %f", input, code.Seconds())
		}
	}
}

func TestParseAnalysisStripsFences(t *testing.T) {
	text := "```json\n{\"year\": 1994, \"scenes\": [{\"start\": 0, \"end\": \"00:10\", \"title\": \"Cake\", \"description\": \"Candles blown out.\", \"people\": [\"Grandma\"]}]}\n```"

	result, err := ParseAnalysis(text)
	if err != nil {
		t.Fatalf("ParseAnalysis failed: %v", err)
	}
	if result.Year != 1994 {
		t.Fatalf("year = %d, want 1994", result.Year)
	}
	if len(result.Scenes) != 1 || result.Scenes[0].Title != "Cake" {
		t.Fatalf("unexpected scenes: %#v", result.Scenes)
	}
	if result.Scenes[0].End.Seconds() != 10 {
		t.Fatalf("end = %f, want 10", result.Scenes[0].End.Seconds())
	}
}

func TestParseAnalysisUnfencedJSON(t *testing.T) {
	text := `{"scenes": [{"start": 1, "end": 4, "title": "Park", "description": "Walk in the park."}]}`
	if _, err := ParseAnalysis(text); err != nil {
		t.Fatalf("ParseAnalysis failed on raw JSON: %v", err)
	}
}

func TestParseAnalysisRejectsMissingScenes(t *testing.T) {
	if _, err := ParseAnalysis(`{"year": 2001}`); err == nil {
		t.Fatal("expected rejection when scenes are missing")
	}
	if _, err := ParseAnalysis(`{"scenes": []}`); err == nil {
		t.Fatal("expected rejection when scenes are empty")
	}
}

func TestParseAnalysisRejectsInvertedBounds(t *testing.T) {
	text := `{"scenes": [{"start": 10, "end": 4, "title": "Broken", "description": "x"}]}`
	if _, err := ParseAnalysis(text); err == nil {
		t.Fatal("expected rejection when a scene ends before it starts")
	}
}

func TestParseAnalysisRejectsNonNumericBounds(t *testing.T) {
	text := `{"scenes": [{"start": "soon", "end": 4, "title": "Broken", "description": "x"}]}`
	if _, err := ParseAnalysis(text); err == nil {
		t.Fatal("expected rejection of non-numeric bounds")
	}
}

func TestStripFencesVariants(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"Sure! Here you go:\n```json\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := StripFences(tc.input); got != tc.want {
			t.Fatalf("StripFences(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestEffectivePrecedence(t *testing.T) {
	result := &AnalysisResult{Year: 1988, Location: "Backyard"}

	override := SceneDescriptor{Year: 1990, Location: "Kitchen"}
	if got := result.EffectiveYear(override); got != 1990 {
		t.Fatalf("EffectiveYear override = %d, want 1990", got)
	}
	if got := result.EffectiveLocation(override); got != "Kitchen" {
		t.Fatalf("EffectiveLocation override = %q, want Kitchen", got)
	}

	plain := SceneDescriptor{}
	if got := result.EffectiveYear(plain); got != 1988 {
		t.Fatalf("EffectiveYear global = %d, want 1988", got)
	}
	if got := result.EffectiveLocation(plain); got != "Backyard" {
		t.Fatalf("EffectiveLocation global = %q, want Backyard", got)
	}

	empty := &AnalysisResult{}
	if got := empty.EffectiveYear(plain); got != 0 {
		t.Fatalf("EffectiveYear unknown = %d, want 0", got)
	}
	if got := empty.EffectiveLocation(plain); got != "" {
		t.Fatalf("EffectiveLocation unknown = %q, want empty", got)
	}
}
