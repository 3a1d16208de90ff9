package discovery_test

import (
	"testing"

	"github.com/secdgram/secdgram-go/pkg/discovery"
)

// TestAdvertiserLifecycle verifies advertising and stopping a server
// announcement.
func TestAdvertiserLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mDNS test in short mode")
	}

	adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
	defer adv.Stop()

	if err := adv.Advertise("test-server", 22445, "hint"); err != nil {
		t.Fatalf("Advertise() failed: %v", err)
	}

	// Re-advertising replaces the previous announcement.
	if err := adv.Advertise("test-server", 22446, ""); err != nil {
		t.Fatalf("re-Advertise() failed: %v", err)
	}

	adv.Stop()
	// Stop is idempotent.
	adv.Stop()
}
