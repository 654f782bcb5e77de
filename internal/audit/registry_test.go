package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistryTracksTenKinds(t *testing.T) {
	r := DefaultRegistry()

	tracked := []string{
		"HomeBanner", "HeadPastor", "Leader", "PhotoGallery", "Sermon",
		"Event", "Branch", "GivingImage", "Merchandise", "Book",
	}
	for _, kind := range tracked {
		assert.True(t, r.AssetTracked(kind), "%s should be tracked", kind)
	}
}

func TestRegistryPrivacyExclusions(t *testing.T) {
	r := DefaultRegistry()

	assert.False(t, r.AssetTracked("UserProfile"))
	assert.False(t, r.AssetTracked("Testimony"))
	assert.False(t, r.AssetTracked("ContactMessage"), "unknown kinds are not tracked")
}

func TestDenyListWinsOverAllowList(t *testing.T) {
	// A misconfiguration that allow-lists a denied kind must not re-enable
	// tracking for it.
	r := NewRegistry([]string{"Event", "Testimony"}, []string{"Testimony"})

	assert.True(t, r.AssetTracked("Event"))
	assert.False(t, r.AssetTracked("Testimony"))
}
