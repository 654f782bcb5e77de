// Package audit glues entity lifecycles to the two ledgers. The observer is
// the only component that writes provenance events or asset records in
// response to entity mutations; the registry decides which entity kinds
// participate in asset tracking.
package audit

import "sort"

// Registry is immutable configuration mapping entity kind names to asset
// tracking. It is built once at startup and injected into the observer;
// nothing mutates it afterwards.
//
// The deny list wins over the allow list. Profile pictures and testimonies
// must never be cross-referenced in a browsable ledger, so they are denied by
// name even if a future change lists them as tracked.
type Registry struct {
	tracked map[string]struct{}
	denied  map[string]struct{}
}

// NewRegistry builds a registry from explicit allow and deny lists.
func NewRegistry(tracked, denied []string) Registry {
	r := Registry{
		tracked: make(map[string]struct{}, len(tracked)),
		denied:  make(map[string]struct{}, len(denied)),
	}
	for _, kind := range tracked {
		r.tracked[kind] = struct{}{}
	}
	for _, kind := range denied {
		r.denied[kind] = struct{}{}
	}
	return r
}

// DefaultRegistry returns the production configuration: the ten content
// kinds whose uploads are tracked, and the privacy-excluded kinds.
func DefaultRegistry() Registry {
	return NewRegistry(
		[]string{
			"HomeBanner",
			"HeadPastor",
			"Leader",
			"PhotoGallery",
			"Sermon",
			"Event",
			"Branch",
			"GivingImage",
			"Merchandise",
			"Book",
		},
		[]string{
			"UserProfile",
			"Testimony",
		},
	)
}

// AssetTracked reports whether uploads on this entity kind belong in the
// asset ledger.
func (r Registry) AssetTracked(kind string) bool {
	if _, deny := r.denied[kind]; deny {
		return false
	}
	_, ok := r.tracked[kind]
	return ok
}

// TrackedKinds returns the effective allow list in sorted order.
func (r Registry) TrackedKinds() []string {
	kinds := make([]string, 0, len(r.tracked))
	for kind := range r.tracked {
		if r.AssetTracked(kind) {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}
