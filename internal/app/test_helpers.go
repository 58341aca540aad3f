package app

import (
	"bytes"
	"os"
	"sync"
	"testing"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance wired to a captured output buffer.
func SetupAppTest(t *testing.T, config Config) (*App, *SafeBuffer) {
	t.Helper()

	buffer := &SafeBuffer{}
	config.LogLevel = "debug"
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	cfg, err := NewConfig(config)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	testApp := NewApp(buffer, cfg)

	t.Cleanup(func() {
		if os.Getenv("ASSAY_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buffer.String())
		}
	})

	return testApp, buffer
}
