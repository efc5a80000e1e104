package visionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"keepsake/internal/services"
)

const analysisPrompt = `Analyze this video of a home movie and provide a structured JSON output. The video contains a series of keyframes from a single event. Identify the main event, break it down into distinct scenes, and provide for each scene:

- title: a short, descriptive title (e.g. "Opening Presents", "Singing Happy Birthday").
- description: a one-sentence summary of what happens.
- start, end: the scene bounds in seconds.
- year: the estimated year the video was filmed, if determinable.
- location: the estimated location (e.g. "Living Room", "Backyard"), if determinable.
- people: a list of people identified in the scene.

The final output must be a single JSON object with a "scenes" key containing the list of scene objects, plus optional top-level "year" and "location" fields when they apply to the whole video. Do not include any text or formatting outside the JSON object itself.`

const labelPrompt = `This is a condensed clip from a home movie. Provide a succinct, 3-5 word description of the event or action (e.g. "Kids Opening Presents", "Grandma Blowing Candles", "Beach Volleyball"). Respond with the description only, no punctuation or file extensions.`

// PlaceholderLabel stands in for a description when no API key is
// configured, so naming flows still produce a usable filename.
const PlaceholderLabel = "Unidentified Event"

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze requests the structured multi-scene description for an uploaded
// proxy. The call runs under the client's analyze timeout. The raw
// response JSON is returned alongside the parsed result so callers can
// persist it verbatim.
func (c *Client) Analyze(ctx context.Context, handle Handle) (*AnalysisResult, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.analyzeTimeout)
	defer cancel()

	text, err := c.generate(ctx, handle, analysisPrompt)
	if err != nil {
		return nil, "", err
	}
	result, err := ParseAnalysis(text)
	if err != nil {
		return nil, "", err
	}
	return result, StripFences(text), nil
}

// ShortLabel requests a free-text label for an uploaded clip.
func (c *Client) ShortLabel(ctx context.Context, handle Handle) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.analyzeTimeout)
	defer cancel()

	text, err := c.generate(ctx, handle, labelPrompt)
	if err != nil {
		return "", err
	}
	label := strings.TrimSpace(text)
	if label == "" {
		return "", services.Wrap(services.ErrValidation, "analysis", "label", "model returned an empty label", nil)
	}
	return label, nil
}

func (c *Client) generate(ctx context.Context, handle Handle, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{FileData: &fileData{MimeType: uploadMimeType, FileURI: handle.URI}},
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode analysis request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := c.newRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var response generateResponse
	if err := c.doJSON(req, &response); err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
		break
	}
	if builder.Len() == 0 {
		return "", services.Wrap(services.ErrValidation, "analysis", "generate", "response carried no text", nil)
	}
	return builder.String(), nil
}
