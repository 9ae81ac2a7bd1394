package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"not null"             json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	PasswordHash string    `gorm:"not null"             json:"-"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Video struct {
	ID                string    `gorm:"type:uuid;primaryKey"     json:"id"`
	OwnerID           string    `gorm:"type:uuid;index;not null" json:"ownerId"`
	Title             string    `gorm:"not null"                 json:"title"`
	Description       string    `gorm:"not null"                 json:"description"`
	VideoURL          string    `gorm:"not null"                 json:"videoFile"`
	VideoPublicID     string    `gorm:"not null"                 json:"-"`
	ThumbnailURL      string    `gorm:"not null"                 json:"thumbnail"`
	ThumbnailPublicID string    `gorm:"not null"                 json:"-"`
	Duration          float64   `json:"duration"`
	Views             int64     `gorm:"default:0"                json:"views"`
	IsPublished       bool      `gorm:"default:true"             json:"isPublished"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey"     json:"id"`
	VideoID   string    `gorm:"type:uuid;index;not null" json:"videoId"`
	OwnerID   string    `gorm:"type:uuid;index;not null" json:"ownerId"`
	Content   string    `gorm:"not null"                 json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Like targets exactly one of a video, a comment or a tweet.
type Like struct {
	ID        string    `gorm:"type:uuid;primaryKey"     json:"id"`
	LikedByID string    `gorm:"type:uuid;index;not null" json:"likedById"`
	VideoID   *string   `gorm:"type:uuid;index"          json:"videoId,omitempty"`
	CommentID *string   `gorm:"type:uuid;index"          json:"commentId,omitempty"`
	TweetID   *string   `gorm:"type:uuid;index"          json:"tweetId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

type Playlist struct {
	ID          string    `gorm:"type:uuid;primaryKey"     json:"id"`
	OwnerID     string    `gorm:"type:uuid;index;not null" json:"ownerId"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `gorm:"not null"                 json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Playlist) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type PlaylistVideo struct {
	ID         string    `gorm:"type:uuid;primaryKey"                              json:"id"`
	PlaylistID string    `gorm:"type:uuid;uniqueIndex:idx_playlist_video;not null" json:"playlistId"`
	VideoID    string    `gorm:"type:uuid;uniqueIndex:idx_playlist_video;not null" json:"videoId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (pv *PlaylistVideo) BeforeCreate(tx *gorm.DB) error {
	if pv.ID == "" {
		pv.ID = uuid.NewString()
	}
	return nil
}

type Subscription struct {
	ID           string    `gorm:"type:uuid;primaryKey"                                   json:"id"`
	SubscriberID string    `gorm:"type:uuid;uniqueIndex:idx_subscriber_channel;not null" json:"subscriberId"`
	ChannelID    string    `gorm:"type:uuid;uniqueIndex:idx_subscriber_channel;not null" json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type Tweet struct {
	ID        string    `gorm:"type:uuid;primaryKey"     json:"id"`
	OwnerID   string    `gorm:"type:uuid;index;not null" json:"ownerId"`
	Content   string    `gorm:"not null"                 json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Tweet) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Video{},
		&Comment{},
		&Like{},
		&Playlist{},
		&PlaylistVideo{},
		&Subscription{},
		&Tweet{},
	}
}
