package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxloop/listener/internal/config"
	"github.com/voxloop/listener/pkg/hotword"
	"github.com/voxloop/listener/pkg/stt"
)

type fakeProvider struct{ name string }

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) Execute(ctx context.Context, pcm []byte, sampleRate int, lang string) ([]stt.Result, error) {
	return nil, nil
}

func newTestController(t *testing.T, dir string) (*Controller, *hotword.Set, *stt.Holder) {
	t.Helper()
	hwSet := hotword.NewSet()
	hwSet.Add(hotword.Spec{Name: "hey computer", Active: true, Listen: true}, hotword.NewRMSEnergyEngine(0.02, 0))

	sttRegistry := stt.NewRegistry()
	sttRegistry.Register("google", func(map[string]interface{}) (stt.Provider, error) { return &fakeProvider{name: "google"}, nil })
	sttRegistry.Register("deepgram", func(map[string]interface{}) (stt.Provider, error) { return &fakeProvider{name: "deepgram"}, nil })
	adapter, err := stt.NewAdapter(sttRegistry, "google", "", "en-US", nil, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	holder := stt.NewHolder(adapter)

	path := ""
	if dir != "" {
		path = filepath.Join(dir, "listener.yaml")
	}

	c := New(Config{
		Initial:         config.Default(),
		Path:            path,
		Hotwords:        hwSet,
		HotwordRegistry: hotword.NewRegistry(nil),
		STTHolder:       holder,
		STTRegistry:     sttRegistry,
	})
	return c, hwSet, holder
}

func TestReloadAppliesLanguagePatch(t *testing.T) {
	c, _, _ := newTestController(t, "")
	if err := c.Reload(context.Background(), map[string]interface{}{"lang": "fr-FR"}); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if c.Current().Lang != "fr-FR" {
		t.Fatalf("expected lang fr-FR, got %q", c.Current().Lang)
	}
}

func TestReloadRebuildsSTTAdapterOnModuleChange(t *testing.T) {
	c, _, holder := newTestController(t, "")
	if err := c.Reload(context.Background(), map[string]interface{}{"stt": map[string]interface{}{"module": "deepgram"}}); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if holder.Get().ActiveName() != "deepgram" {
		t.Fatalf("expected active stt provider deepgram, got %q", holder.Get().ActiveName())
	}
}

func TestReloadAddsAndRemovesHotwords(t *testing.T) {
	c, hwSet, _ := newTestController(t, "")
	if err := c.Reload(context.Background(), map[string]interface{}{
		"hotwords": map[string]interface{}{
			"hey computer": map[string]interface{}{"module": "energy", "listen": true, "active": true},
			"stand up":     map[string]interface{}{"module": "energy", "listen": false, "active": true},
		},
	}); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := hwSet.Spec("stand up"); !ok {
		t.Fatalf("expected new hot word 'stand up' to be registered")
	}
}

func TestReloadRejectsInvalidPatch(t *testing.T) {
	c, _, _ := newTestController(t, "")
	err := c.Reload(context.Background(), map[string]interface{}{"listener": map[string]interface{}{"sample_width": 3}})
	if err == nil {
		t.Fatalf("expected an error for an invalid sample_width")
	}
	if c.Current().Listener.SampleWidth == 3 {
		t.Fatalf("expected the running config left unchanged on a rejected patch")
	}
}

func TestReloadLeavesConfigUnchangedOnExpiredContext(t *testing.T) {
	c, _, _ := newTestController(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := c.Reload(ctx, map[string]interface{}{"lang": "fr-FR"})
	if err == nil {
		t.Fatalf("expected an error for an already-expired context")
	}
	if c.Current().Lang == "fr-FR" {
		t.Fatalf("expected the running config left unchanged")
	}
}

func TestReloadPersistsToPath(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newTestController(t, dir)
	if err := c.Reload(context.Background(), map[string]interface{}{"lang": "de-DE"}); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "listener.yaml"))
	if err != nil {
		t.Fatalf("reading persisted config: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected persisted config to be non-empty")
	}
}

func TestReadyChannelClosesAfterReload(t *testing.T) {
	c, _, _ := newTestController(t, "")
	select {
	case <-c.Ready():
	default:
		t.Fatalf("expected Ready() to already be closed before any reload")
	}
	if err := c.Reload(context.Background(), map[string]interface{}{"lang": "es-ES"}); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	select {
	case <-c.Ready():
	default:
		t.Fatalf("expected Ready() closed again after reload completes")
	}
}
