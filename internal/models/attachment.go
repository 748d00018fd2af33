package models

import (
	"fmt"
	"strings"
	"time"
)

// OwnerKind discriminates the record type an attachment belongs to.
type OwnerKind string

// Supported owner kinds.
const (
	OwnerCourse  OwnerKind = "course"
	OwnerLesson  OwnerKind = "lesson"
	OwnerStudent OwnerKind = "student"
)

// MediaKind is the logical slot an attachment fills for its owner.
type MediaKind string

// Supported media kinds.
const (
	MediaAvatar    MediaKind = "avatar"
	MediaThumbnail MediaKind = "thumbnail"
	MediaVideo     MediaKind = "video"
)

var ownerMediaKinds = map[OwnerKind][]MediaKind{
	OwnerCourse:  {MediaThumbnail},
	OwnerLesson:  {MediaThumbnail, MediaVideo},
	OwnerStudent: {MediaAvatar},
}

// Accepts reports whether the owner kind has a slot for the media kind.
func (k OwnerKind) Accepts(kind MediaKind) bool {
	for _, allowed := range ownerMediaKinds[k] {
		if allowed == kind {
			return true
		}
	}
	return false
}

// ParseMediaKind normalises a raw media kind.
func ParseMediaKind(raw string) (MediaKind, error) {
	kind := MediaKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case MediaAvatar, MediaThumbnail, MediaVideo:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", raw)
	}
}

// IsVideo reports whether blobs of this kind are handled as video resources.
func (k MediaKind) IsVideo() bool {
	return k == MediaVideo
}

// OwnerRef identifies the record owning an attachment. Values are built only
// through CourseOwner, LessonOwner and StudentOwner.
type OwnerRef struct {
	kind OwnerKind
	id   int64
}

// CourseOwner references a course.
func CourseOwner(id int64) OwnerRef { return OwnerRef{kind: OwnerCourse, id: id} }

// LessonOwner references a lesson.
func LessonOwner(id int64) OwnerRef { return OwnerRef{kind: OwnerLesson, id: id} }

// StudentOwner references a student.
func StudentOwner(id int64) OwnerRef { return OwnerRef{kind: OwnerStudent, id: id} }

// Kind returns the owner discriminator.
func (o OwnerRef) Kind() OwnerKind { return o.kind }

// ID returns the owner's identifier.
func (o OwnerRef) ID() int64 { return o.id }

// Valid reports whether the reference was constructed with a positive id.
func (o OwnerRef) Valid() bool {
	_, known := ownerMediaKinds[o.kind]
	return known && o.id > 0
}

func (o OwnerRef) String() string {
	return fmt.Sprintf("%s:%d", o.kind, o.id)
}

// Attachment is one uploaded binary asset bound to exactly one owner.
type Attachment struct {
	ID         int64        `db:"id" json:"id"`
	OwnerKind  OwnerKind    `db:"owner_kind" json:"owner_kind"`
	OwnerID    int64        `db:"owner_id" json:"owner_id"`
	URL        string       `db:"url" json:"url"`
	ExternalID string       `db:"external_id" json:"external_id"`
	MediaKind  MediaKind    `db:"media_kind" json:"media_kind"`
	OrderIndex int          `db:"order_index" json:"order_index"`
	Status     RecordStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// Owner rebuilds the owner reference from the persisted discriminator.
func (a Attachment) Owner() OwnerRef {
	return OwnerRef{kind: a.OwnerKind, id: a.OwnerID}
}

// MediaFailure reports a media operation that failed after the owner record was saved.
type MediaFailure struct {
	MediaKind MediaKind `json:"media_kind"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}
