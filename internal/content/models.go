// Package content is the thin entity layer the audit core hangs off. Every
// site section (banners, sermons, events, ...) shares one row shape: scalar
// attributes plus uploaded files keyed by field name. The interesting
// behavior lives in the observer; the content layer's job is to feed it with
// a faithful before/after picture of each mutation.
package content

import (
	"sort"
	"time"

	"chapel/internal/audit"
)

// Entity kind names as recorded in the ledgers. Free-form strings, not
// foreign keys.
const (
	KindHomeBanner     = "HomeBanner"
	KindChurchInfo     = "ChurchInfo"
	KindHeadPastor     = "HeadPastor"
	KindServiceTime    = "ServiceTime"
	KindLeader         = "Leader"
	KindPhotoGallery   = "PhotoGallery"
	KindSermon         = "Sermon"
	KindEvent          = "Event"
	KindBranch         = "Branch"
	KindGivingInfo     = "GivingInfo"
	KindGivingImage    = "GivingImage"
	KindContactMessage = "ContactMessage"
	KindTestimony      = "Testimony"
	KindBook           = "Book"
	KindMerchandise    = "Merchandise"
	KindUserProfile    = "UserProfile"
)

var knownKinds = map[string]struct{}{
	KindHomeBanner:     {},
	KindChurchInfo:     {},
	KindHeadPastor:     {},
	KindServiceTime:    {},
	KindLeader:         {},
	KindPhotoGallery:   {},
	KindSermon:         {},
	KindEvent:          {},
	KindBranch:         {},
	KindGivingInfo:     {},
	KindGivingImage:    {},
	KindContactMessage: {},
	KindTestimony:      {},
	KindBook:           {},
	KindMerchandise:    {},
	KindUserProfile:    {},
}

// KnownKind reports whether kind names a content section this backend
// serves.
func KnownKind(kind string) bool {
	_, ok := knownKinds[kind]
	return ok
}

// File is one uploaded asset on an item. The upload gate (extension, MIME,
// size validation) runs before a File ever reaches this layer.
type File struct {
	Location  string `json:"location"`
	SizeBytes int64  `json:"size_bytes"`
}

// Item is one content row of any kind.
type Item struct {
	ID        int64
	Kind      string
	Title     string
	Body      string
	Attrs     map[string]string
	Files     map[string]File
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntityKind implements audit.Entity.
func (i *Item) EntityKind() string { return i.Kind }

// EntityID implements audit.Entity.
func (i *Item) EntityID() int64 { return i.ID }

// Display is the human-readable snapshot recorded as the event summary.
func (i *Item) Display() string { return i.Title }

// Attributes renders the scalar fields for delta computation.
func (i *Item) Attributes() map[string]string {
	attrs := make(map[string]string, len(i.Attrs)+2)
	for k, v := range i.Attrs {
		attrs[k] = v
	}
	attrs["title"] = i.Title
	if i.Body != "" {
		attrs["body"] = i.Body
	}
	return attrs
}

// Assets returns the uploaded files in stable field order.
func (i *Item) Assets() []audit.AssetField {
	if len(i.Files) == 0 {
		return nil
	}
	fields := make([]audit.AssetField, 0, len(i.Files))
	for name, f := range i.Files {
		fields = append(fields, audit.AssetField{Name: name, Location: f.Location, SizeBytes: f.SizeBytes})
	}
	sort.Slice(fields, func(a, b int) bool { return fields[a].Name < fields[b].Name })
	return fields
}

// Clone returns a deep copy. The service snapshots the previous version
// before an update so the observer can diff against it.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	out := *i
	out.Attrs = make(map[string]string, len(i.Attrs))
	for k, v := range i.Attrs {
		out.Attrs[k] = v
	}
	out.Files = make(map[string]File, len(i.Files))
	for k, v := range i.Files {
		out.Files[k] = v
	}
	return &out
}
