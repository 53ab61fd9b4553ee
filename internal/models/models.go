package models

import (
	"time"
)

// Статусы поста
const (
	PostStatusDraft     = "draft"
	PostStatusPublish   = "publish"
	PostStatusScheduled = "scheduled"
	PostStatusPrivate   = "private"
	PostStatusTrash     = "trash"
	PostStatusFailed    = "failed"
)

// Статусы синхронизации поста с удаленным сервисом
const (
	RemoteStatusNone         = "none"
	RemoteStatusPushing      = "pushing"
	RemoteStatusPushingMedia = "pushingMedia"
	RemoteStatusPushed       = "pushed"
	RemoteStatusFailed       = "failed"
)

// Статусы загрузки медиафайла
const (
	MediaStatusLocal     = "local"
	MediaStatusUploading = "uploading"
	MediaStatusSync      = "sync"
	MediaStatusFailed    = "failed"
)

// Типы медиафайлов
const (
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeAudio    = "audio"
	MediaTypeDocument = "document"
)

type Post struct {
	PostID                  string     `json:"postId" db:"post_id"`
	BlogID                  string     `json:"blogId" db:"blog_id"`
	RemoteID                int64      `json:"remoteId" db:"remote_id"`
	Title                   string     `json:"title" db:"title"`
	Content                 string     `json:"content" db:"content"`
	Status                  string     `json:"status" db:"status"`
	RemoteStatus            string     `json:"remoteStatus" db:"remote_status"`
	AutoUploadAttempts      int        `json:"autoUploadAttempts" db:"auto_upload_attempts"`
	ShouldAttemptAutoUpload bool       `json:"shouldAttemptAutoUpload" db:"should_attempt_auto_upload"`
	DatePublished           *time.Time `json:"datePublished" db:"date_published"`
	CreatedAt               time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time  `json:"updatedAt" db:"updated_at"`
	Media                   []*Media   `json:"media" db:"-"`
}

// HasRemote reports whether the post was ever accepted by the remote service.
func (p *Post) HasRemote() bool {
	return p.RemoteID != 0
}

// IsPublishable reports whether the post status allows a full upload.
func (p *Post) IsPublishable() bool {
	switch p.Status {
	case PostStatusPublish, PostStatusScheduled, PostStatusPrivate:
		return true
	}
	return false
}

type Media struct {
	MediaID       string    `json:"mediaId" db:"media_id"`
	PostID        string    `json:"postId" db:"post_id"`
	UploadID      string    `json:"uploadId" db:"upload_id"`
	MediaType     string    `json:"mediaType" db:"media_type"`
	RemoteStatus  string    `json:"remoteStatus" db:"remote_status"`
	RemoteMediaID int64     `json:"remoteMediaId" db:"remote_media_id"`
	RemoteURL     string    `json:"remoteUrl" db:"remote_url"`
	VideoGUID     string    `json:"videoGuid" db:"video_guid"`
	LocalPath     string    `json:"localPath" db:"local_path"`
	Filename      string    `json:"filename" db:"filename"`
	Filesize      int64     `json:"filesize" db:"filesize"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`

	// Renditions приходят от удаленного сервиса после загрузки
	// и в БД не сохраняются: ширина -> URL
	Renditions map[int]string `json:"renditions" db:"-"`
}

type Blog struct {
	BlogID           string    `json:"blogId" db:"blog_id"`
	URL              string    `json:"url" db:"url"`
	Username         string    `json:"username" db:"username"`
	NeedsCredentials bool      `json:"needsCredentials" db:"needs_credentials"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

// PostEvent рассылается подписчикам при изменении состояния постов
// (например, при начале и окончании удаления)
type PostEvent struct {
	Kind    string   `json:"kind"`
	PostIDs []string `json:"postIds"`
}

const (
	PostEventPendingDelete = "pendingDelete"
	PostEventDeleted       = "deleted"
	PostEventDeleteFailed  = "deleteFailed"
)
