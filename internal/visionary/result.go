package visionary

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"keepsake/internal/services"
)

// Timecode is a position in seconds that tolerates the model's habit of
// answering either a bare number or a clock string ("HH:MM:SS", "MM:SS").
type Timecode float64

// Seconds returns the timecode as seconds.
func (t Timecode) Seconds() float64 { return float64(t) }

func (t *Timecode) UnmarshalJSON(data []byte) error {
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*t = Timecode(number)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("timecode must be a number or string, got %s", string(data))
	}
	seconds, err := parseClock(text)
	if err != nil {
		return err
	}
	*t = Timecode(seconds)
	return nil
}

func parseClock(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty timecode")
	}
	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("unparseable timecode %q", text)
	}

	var total float64
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || value < 0 {
			return 0, fmt.Errorf("unparseable timecode %q", text)
		}
		total = total*60 + value
	}
	return total, nil
}

// SceneDescriptor is one described scene from the structured analysis.
// Year and Location are optional per-scene overrides of the global values.
type SceneDescriptor struct {
	Start       Timecode `json:"start"`
	End         Timecode `json:"end"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Year        int      `json:"year,omitempty"`
	Location    string   `json:"location,omitempty"`
	People      []string `json:"people,omitempty"`
}

// AnalysisResult is the structured payload returned by the analysis
// service and persisted verbatim on the job.
type AnalysisResult struct {
	Year     int               `json:"year,omitempty"`
	Location string            `json:"location,omitempty"`
	Scenes   []SceneDescriptor `json:"scenes"`
}

// Validate enforces the minimum shape a result needs before it is
// persisted: at least one scene, sane bounds on every scene.
func (r *AnalysisResult) Validate() error {
	if len(r.Scenes) == 0 {
		return services.Wrap(services.ErrValidation, "analysis", "validate", "result carries no scenes", nil)
	}
	for i, scene := range r.Scenes {
		if scene.Start < 0 {
			return services.Wrap(services.ErrValidation, "analysis", "validate",
				fmt.Sprintf("scene %d starts before zero", i), nil)
		}
		if scene.End < scene.Start {
			return services.Wrap(services.ErrValidation, "analysis", "validate",
				fmt.Sprintf("scene %d ends before it starts", i), nil)
		}
	}
	return nil
}

// ParseAnalysis decodes the model's response text into a validated
// AnalysisResult. Markdown code fences around the JSON are tolerated.
func ParseAnalysis(text string) (*AnalysisResult, error) {
	cleaned := StripFences(text)
	var result AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, services.Wrap(services.ErrValidation, "analysis", "parse", "response is not valid JSON", err)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

// StripFences removes a surrounding markdown code fence, with or without a
// "json" language tag. Unfenced text passes through untouched.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.Index(trimmed, "```json"); idx >= 0 {
		trimmed = trimmed[idx+len("```json"):]
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
	} else {
		return trimmed
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// EffectiveYear resolves the year for one scene: scene override first,
// then the global value, then zero (unknown).
func (r *AnalysisResult) EffectiveYear(scene SceneDescriptor) int {
	if scene.Year != 0 {
		return scene.Year
	}
	return r.Year
}

// EffectiveLocation resolves the location for one scene with the same
// precedence as EffectiveYear.
func (r *AnalysisResult) EffectiveLocation(scene SceneDescriptor) string {
	if strings.TrimSpace(scene.Location) != "" {
		return scene.Location
	}
	return r.Location
}
