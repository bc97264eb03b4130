package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/voxloop/listener/pkg/audio"
)

// HTTPProvider is a multipart-upload batch STT provider, generalized
// from the teacher's GroqSTT/OpenAISTT adapters (which both wrap raw
// PCM in a WAV buffer and POST it as multipart/form-data to
// a transcription endpoint) into one parametrized implementation shared
// by every module that follows that shape.
type HTTPProvider struct {
	name       string
	url        string
	apiKey     string
	model      string
	authHeader string // header carrying the API key; NewHTTPProvider defaults it to "Authorization"
	authPrefix string // e.g. "Bearer "
	client     *http.Client
}

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	Name       string
	URL        string
	APIKey     string
	Model      string
	AuthHeader string
	AuthPrefix string
	Client     *http.Client
}

// NewHTTPProvider builds a multipart-upload STT provider.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	authHeader := cfg.AuthHeader
	if authHeader == "" {
		authHeader = "Authorization"
	}
	authPrefix := cfg.AuthPrefix
	if authPrefix == "" {
		authPrefix = "Bearer "
	}
	return &HTTPProvider{
		name:       cfg.Name,
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		authHeader: authHeader,
		authPrefix: authPrefix,
		client:     client,
	}
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]Result, error) {
	wavData := audio.EncodeWAV(pcm, sampleRate, 2)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if p.model != "" {
		if err := writer.WriteField("model", p.model); err != nil {
			return nil, err
		}
	}
	if lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return nil, err
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.authHeader != "" && p.apiKey != "" {
		req.Header.Set(p.authHeader, p.authPrefix+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("%w: %s error (status %d): %v", ErrPluginRuntime, p.name, resp.StatusCode, errResp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Text == "" {
		return nil, nil
	}
	return []Result{{Text: result.Text, Confidence: 1.0}}, nil
}
