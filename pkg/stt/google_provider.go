package stt

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleProvider is the batch (non-streaming) Google Cloud
// Speech-to-Text provider backing the "google" module, the documented
// fallback when no fallback_module is configured.
// Adapted from the speech adapter's client construction and
// RecognitionConfig shape down to a single blocking Recognize call,
// since Execute's contract is "transcribe one finished clip" rather
// than a streaming session.
type GoogleProvider struct {
	client *speech.Client
}

// NewGoogleProvider dials a Speech client using Application Default
// Credentials, or the explicit credentials file at credentialsPath if
// non-empty.
func NewGoogleProvider(ctx context.Context, credentialsPath string) (*GoogleProvider, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing google speech client: %v", ErrPluginLoad, err)
	}
	return &GoogleProvider{client: client}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]Result, error) {
	if lang == "" {
		lang = "en-US"
	}
	resp, err := p.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    lang,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: google recognize: %v", ErrPluginRuntime, err)
	}

	var results []Result
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		results = append(results, Result{Text: alt.Transcript, Confidence: float64(alt.Confidence)})
	}
	return results, nil
}
