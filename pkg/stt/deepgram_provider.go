package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DeepgramProvider posts raw PCM directly to Deepgram's /v1/listen
// endpoint (no multipart wrapping), adapted from the teacher's
// DeepgramSTT.Transcribe.
type DeepgramProvider struct {
	apiKey string
	url    string
	client *http.Client
}

// NewDeepgramProvider builds a DeepgramProvider.
func NewDeepgramProvider(apiKey string) *DeepgramProvider {
	return &DeepgramProvider{
		apiKey: apiKey,
		url:    "https://api.deepgram.com/v1/listen",
		client: http.DefaultClient,
	}
}

func (p *DeepgramProvider) Name() string { return "deepgram" }

func (p *DeepgramProvider) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]Result, error) {
	u, err := url.Parse(p.url)
	if err != nil {
		return nil, err
	}
	params := u.Query()
	params.Set("model", "nova-2")
	params.Set("smart_format", "true")
	if lang != "" {
		params.Set("language", lang)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(pcm))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d; channels=1", sampleRate))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: deepgram error (status %d): %s", ErrPluginRuntime, resp.StatusCode, string(body))
	}

	var result struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string  `json:"transcript"`
					Confidence float64 `json:"confidence"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return nil, nil
	}
	alt := result.Results.Channels[0].Alternatives[0]
	if alt.Transcript == "" {
		return nil, nil
	}
	return []Result{{Text: alt.Transcript, Confidence: alt.Confidence}}, nil
}
