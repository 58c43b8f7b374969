package domain

import (
	"context"
	"time"
)

// Post 作者字段冗余 username，列表页免 join
type Post struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Title          string    `gorm:"size:120;not null" json:"title"`
	Category       string    `gorm:"size:60;not null" json:"category"`
	Content        string    `gorm:"size:5000;not null" json:"content"`
	AuthorID       string    `gorm:"size:36;index;not null" json:"authorId"`
	AuthorUsername string    `gorm:"size:64;not null" json:"authorUsername"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Post) TableName() string { return "posts" }

type Comment struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	PostID         string    `gorm:"size:36;index;not null" json:"postId"`
	Content        string    `gorm:"size:1500;not null" json:"content"`
	AuthorID       string    `gorm:"size:36;index;not null" json:"authorId"`
	AuthorUsername string    `gorm:"size:64;not null" json:"authorUsername"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Comment) TableName() string { return "comments" }

type PostRepository interface {
	Create(ctx context.Context, p *Post) error
	FindByID(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context) ([]Post, error)
	Update(ctx context.Context, p *Post) error
	// DeleteWithComments 同一事务删除帖子与其全部评论
	DeleteWithComments(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	FindByID(ctx context.Context, id string) (*Comment, error)
	ListByPost(ctx context.Context, postID string) ([]Comment, error)
	Update(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id string) error
}
