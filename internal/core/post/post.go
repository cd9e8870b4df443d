package post

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// VideoStatus is the small independent state of a post's video job.
// Terminal states are completed and failed; the only way back is an
// explicit regeneration transition on the owning batch.
type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoSubmitted  VideoStatus = "submitted"
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

var allVideoStatuses = []VideoStatus{
	VideoPending,
	VideoSubmitted,
	VideoProcessing,
	VideoCompleted,
	VideoFailed,
}

var videoStatusSet = func() map[VideoStatus]struct{} {
	set := make(map[VideoStatus]struct{}, len(allVideoStatuses))
	for _, s := range allVideoStatuses {
		set[s] = struct{}{}
	}
	return set
}()

// ParseVideoStatus converts a string into a known VideoStatus.
func ParseVideoStatus(value string) (VideoStatus, bool) {
	normalized := VideoStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := videoStatusSet[normalized]
	return normalized, ok
}

// InFlight reports whether the status still needs reconciliation polling.
func (s VideoStatus) InFlight() bool {
	return s == VideoSubmitted || s == VideoProcessing
}

// Terminal reports whether the status admits no further polling.
func (s VideoStatus) Terminal() bool {
	return s == VideoCompleted || s == VideoFailed
}

// Type partitions posts within a batch.
type Type string

const (
	TypeValue     Type = "value"
	TypeLifestyle Type = "lifestyle"
	TypeProduct   Type = "product"
)

// ParseType converts a string into a known post Type.
func ParseType(value string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(value))) {
	case TypeValue:
		return TypeValue, true
	case TypeLifestyle:
		return TypeLifestyle, true
	case TypeProduct:
		return TypeProduct, true
	default:
		return "", false
	}
}

// Post is an individually trackable production item owned by exactly one
// batch. Prompt and publish payloads are opaque JSON blobs to this core.
// The video_status column carries a CHECK constraint mirroring the
// enumeration above.
type Post struct {
	ID               uuid.UUID   `gorm:"primaryKey;type:char(36)"`
	BatchID          uuid.UUID   `gorm:"type:char(36);not null;index"`
	Type             Type        `gorm:"type:varchar(20);not null;check:chk_posts_type,type IN ('value','lifestyle','product')"`
	TopicTitle       string      `gorm:"type:varchar(200)"`
	ScriptText       string      `gorm:"type:text"`
	ScriptApproved   bool        `gorm:"not null;default:false"`
	PromptJSON       string      `gorm:"type:text"`
	PromptBuilt      bool        `gorm:"not null;default:false"`
	VideoProvider    string      `gorm:"type:varchar(32)"`
	VideoOperationID string      `gorm:"type:varchar(128);index"`
	VideoStatus      VideoStatus `gorm:"type:varchar(16);not null;default:'pending';check:chk_posts_video_status,video_status IN ('pending','submitted','processing','completed','failed')"`
	VideoURL         string      `gorm:"type:varchar(512)"`
	VideoError       string      `gorm:"type:text"`
	VideoMetaJSON    string      `gorm:"type:text"`
	QAPass           *bool
	QANotes          string `gorm:"type:text"`
	QAChecksJSON     string `gorm:"type:text"`
	ScheduledAt      *time.Time
	SocialNetworks   string    `gorm:"type:varchar(128)"`
	PublishStatus    string    `gorm:"type:varchar(20);not null;default:'pending'"`
	PlatformIDsJSON  string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// QAPassed reports whether the post has an affirmative QA decision.
func (p *Post) QAPassed() bool {
	return p.QAPass != nil && *p.QAPass
}
