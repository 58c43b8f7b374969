package service

import (
	"context"

	"github.com/google/uuid"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/domain"
)

// PostService 帖子 CRUD：读公开，写仅作者
type PostService struct {
	posts domain.PostRepository
}

func NewPostService(posts domain.PostRepository) *PostService {
	return &PostService{posts: posts}
}

type PostInput struct {
	Title    string `json:"title" binding:"required,max=120"`
	Category string `json:"category" binding:"required,max=60"`
	Content  string `json:"content" binding:"required,max=5000"`
}

func (s *PostService) Create(ctx context.Context, authorID, authorUsername string, in PostInput) (*domain.Post, error) {
	p := &domain.Post{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Category:       in.Category,
		Content:        in.Content,
		AuthorID:       authorID,
		AuthorUsername: authorUsername,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *PostService) List(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if p == nil {
		return nil, apperr.NotFound("post not found")
	}
	return p, nil
}

type PostPatch struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Content  *string `json:"content"`
}

func (s *PostService) Update(ctx context.Context, userID, postID string, patch PostPatch) (*domain.Post, error) {
	p, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != userID {
		return nil, apperr.Forbidden("cannot edit another user's post")
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if err := s.posts.Update(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	p, err := s.Get(ctx, postID)
	if err != nil {
		return err
	}
	if p.AuthorID != userID {
		return apperr.Forbidden("cannot delete another user's post")
	}
	if err := s.posts.DeleteWithComments(ctx, postID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

type CommentService struct {
	comments domain.CommentRepository
	posts    domain.PostRepository
}

func NewCommentService(comments domain.CommentRepository, posts domain.PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

type CommentInput struct {
	PostID  string `json:"postId" binding:"required"`
	Content string `json:"content" binding:"required,max=1500"`
}

// Create 评论前确认帖子还在
func (s *CommentService) Create(ctx context.Context, authorID, authorUsername string, in CommentInput) (*domain.Comment, error) {
	p, err := s.posts.FindByID(ctx, in.PostID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if p == nil {
		return nil, apperr.NotFound("cannot comment: post not found")
	}
	c := &domain.Comment{
		ID:             uuid.NewString(),
		PostID:         in.PostID,
		Content:        in.Content,
		AuthorID:       authorID,
		AuthorUsername: authorUsername,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return comments, nil
}

func (s *CommentService) Update(ctx context.Context, userID, commentID, content string) (*domain.Comment, error) {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if c == nil {
		return nil, apperr.NotFound("comment not found")
	}
	if c.AuthorID != userID {
		return nil, apperr.Forbidden("cannot edit another user's comment")
	}
	c.Content = content
	if err := s.comments.Update(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, userID, commentID string) error {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return apperr.Internal(err)
	}
	if c == nil {
		return apperr.NotFound("comment not found")
	}
	if c.AuthorID != userID {
		return apperr.Forbidden("cannot delete another user's comment")
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
