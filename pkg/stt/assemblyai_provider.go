package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/voxloop/listener/pkg/audio"
)

// assemblyAIPollInterval is how often AssemblyAIProvider checks a
// submitted transcript for completion.
const assemblyAIPollInterval = 500 * time.Millisecond

// AssemblyAIProvider implements the upload -> submit -> poll workflow
// AssemblyAI's API requires, adapted from the teacher's
// AssemblyAISTT.Transcribe/upload/submit/getTranscript.
type AssemblyAIProvider struct {
	apiKey string
	client *http.Client
}

// NewAssemblyAIProvider builds an AssemblyAIProvider.
func NewAssemblyAIProvider(apiKey string) *AssemblyAIProvider {
	return &AssemblyAIProvider{apiKey: apiKey, client: http.DefaultClient}
}

func (p *AssemblyAIProvider) Name() string { return "assemblyai" }

func (p *AssemblyAIProvider) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]Result, error) {
	wavData := audio.EncodeWAV(pcm, sampleRate, 2)

	uploadURL, err := p.upload(ctx, wavData)
	if err != nil {
		return nil, fmt.Errorf("%w: assemblyai upload: %v", ErrPluginRuntime, err)
	}
	transcriptID, err := p.submit(ctx, uploadURL, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: assemblyai submit: %v", ErrPluginRuntime, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(assemblyAIPollInterval):
			text, status, err := p.getTranscript(ctx, transcriptID)
			if err != nil {
				return nil, fmt.Errorf("%w: assemblyai poll: %v", ErrPluginRuntime, err)
			}
			switch status {
			case "completed":
				if text == "" {
					return nil, nil
				}
				return []Result{{Text: text, Confidence: 1.0}}, nil
			case "error":
				return nil, fmt.Errorf("%w: assemblyai transcription failed", ErrPluginRuntime)
			}
		}
	}
}

func (p *AssemblyAIProvider) upload(ctx context.Context, wavData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.assemblyai.com/v2/upload", bytes.NewReader(wavData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.UploadURL, nil
}

func (p *AssemblyAIProvider) submit(ctx context.Context, uploadURL, lang string) (string, error) {
	payload := map[string]interface{}{"audio_url": uploadURL}
	if lang != "" {
		payload["language_code"] = lang
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.assemblyai.com/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (p *AssemblyAIProvider) getTranscript(ctx context.Context, id string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.assemblyai.com/v2/transcript/"+id, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", err
	}
	return result.Text, result.Status, nil
}
