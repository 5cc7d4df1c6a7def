package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"backend-blog/internal/db"
	"backend-blog/internal/shared/apperr"
	"backend-blog/internal/shared/form"
	"backend-blog/internal/timeline"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// TimelineTopic is the stream topic every new post is announced on.
const TimelineTopic = "timeline"

// Notifier announces new posts to live subscribers.
type Notifier interface {
	Broadcast(topic string, payload []byte)
}

type Service struct {
	db       db.Querier
	cache    *timeline.Cache
	notifier Notifier
	log      zerolog.Logger
}

// NewService builds the post service. A nil cache disables timeline caching
// and a nil notifier skips live announcements.
func NewService(db db.Querier, cache *timeline.Cache, notifier Notifier, log zerolog.Logger) *Service {
	if cache == nil {
		cache = timeline.NewCache(nil, log)
	}
	return &Service{db: db, cache: cache, notifier: notifier, log: log}
}

// Timeline returns every post, newest first. The listing is served from the
// timeline cache and recomputed after invalidation.
func (s *Service) Timeline(ctx context.Context) ([]Post, error) {
	data, err := s.cache.GetOrCompute(ctx, timeline.IndexKey, func(ctx context.Context) ([]byte, error) {
		posts, err := s.queryPosts(ctx, SelectPosts+NewestFirst)
		if err != nil {
			return nil, err
		}
		return json.Marshal(posts)
	})
	if err != nil {
		return nil, err
	}
	var posts []Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	return posts, nil
}

func (s *Service) GroupPosts(ctx context.Context, slug string) (Group, []Post, error) {
	group, err := s.GetGroup(ctx, slug)
	if err != nil {
		return Group{}, nil, err
	}
	posts, err := s.queryPosts(ctx, SelectPosts+` WHERE p.group_id = $1`+NewestFirst, group.ID)
	if err != nil {
		return Group{}, nil, err
	}
	return group, posts, nil
}

func (s *Service) AuthorPosts(ctx context.Context, authorID string) ([]Post, error) {
	return s.queryPosts(ctx, SelectPosts+` WHERE p.author_id = $1`+NewestFirst, authorID)
}

func (s *Service) GetPost(ctx context.Context, id string) (Post, error) {
	post, err := scanPost(s.db.QueryRow(ctx, SelectPosts+` WHERE p.id = $1`, id))
	if err != nil {
		return Post{}, apperr.FromDB(err)
	}
	return post, nil
}

func (s *Service) CountByAuthor(ctx context.Context, authorID string) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CreatePost stores a post for authorID, drops the cached timeline and
// announces the post. The cache is cleared before CreatePost returns. Text is
// stored with surrounding whitespace trimmed.
func (s *Service) CreatePost(ctx context.Context, authorID string, input PostForm) (Post, error) {
	input.Text = strings.TrimSpace(input.Text)
	if err := form.Validate(input); err != nil {
		return Post{}, err
	}
	group, err := s.resolveGroup(ctx, input.Group)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		ID:       ulid.Make().String(),
		Text:     input.Text,
		AuthorID: authorID,
		Image:    input.Image,
	}
	if group != nil {
		post.GroupID = group.ID
		post.Group = &PostGroup{Slug: group.Slug, Title: group.Title}
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, text, author_id, group_id, image)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, (SELECT username FROM users WHERE id = author_id)
	`, post.ID, post.Text, post.AuthorID, nullable(post.GroupID), nullable(post.Image))
	if err := row.Scan(&post.CreatedAt, &post.Author); err != nil {
		return Post{}, apperr.FromDB(err)
	}

	s.invalidateTimeline(ctx, post.ID)
	s.announce(post)
	return post, nil
}

// EditPost applies input to the post when editorID is its author. Anyone
// else gets EditForbidden and the post is left as it was. An empty image
// keeps the current one. The outcome is meaningful only when err is nil.
func (s *Service) EditPost(ctx context.Context, postID, editorID string, input PostForm) (Post, EditOutcome, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return Post{}, EditApplied, err
	}
	if post.AuthorID != editorID {
		return post, EditForbidden, nil
	}
	input.Text = strings.TrimSpace(input.Text)
	if err := form.Validate(input); err != nil {
		return Post{}, EditApplied, err
	}
	group, err := s.resolveGroup(ctx, input.Group)
	if err != nil {
		return Post{}, EditApplied, err
	}

	original := post
	post.Text = input.Text
	post.GroupID, post.Group = "", nil
	if group != nil {
		post.GroupID = group.ID
		post.Group = &PostGroup{Slug: group.Slug, Title: group.Title}
	}
	if input.Image != "" {
		post.Image = input.Image
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE posts
		SET text=$3, group_id=$4, image=$5
		WHERE id=$1 AND author_id=$2
	`, post.ID, editorID, post.Text, nullable(post.GroupID), nullable(post.Image))
	if err != nil {
		return Post{}, EditApplied, err
	}
	if tag.RowsAffected() == 0 {
		return original, EditForbidden, nil
	}

	s.invalidateTimeline(ctx, post.ID)
	return post, EditApplied, nil
}

// AddComment stores a comment on postID. A missing post yields apperr.ErrNotFound.
func (s *Service) AddComment(ctx context.Context, postID, authorID string, input CommentForm) (Comment, error) {
	input.Text = strings.TrimSpace(input.Text)
	if err := form.Validate(input); err != nil {
		return Comment{}, err
	}
	comment := Comment{
		ID:       ulid.Make().String(),
		PostID:   postID,
		AuthorID: authorID,
		Text:     input.Text,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO comments (id, post_id, author_id, text)
		SELECT $1,$2,$3,$4
		WHERE EXISTS (SELECT 1 FROM posts WHERE id = $2)
		RETURNING created_at, (SELECT username FROM users WHERE id = author_id)
	`, comment.ID, comment.PostID, comment.AuthorID, comment.Text)
	if err := row.Scan(&comment.CreatedAt, &comment.Author); err != nil {
		return Comment{}, apperr.FromDB(err)
	}
	return comment, nil
}

// Comments lists a post's comments, oldest first.
func (s *Service) Comments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.post_id, c.author_id, u.username, c.text, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at, c.id
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Service) CreateGroup(ctx context.Context, input GroupForm) (Group, error) {
	if err := form.Validate(input); err != nil {
		return Group{}, err
	}
	group := Group{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Slug:        input.Slug,
		Description: input.Description,
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO groups (id, title, slug, description)
		VALUES ($1,$2,$3,$4)
	`, group.ID, group.Title, group.Slug, group.Description)
	if err != nil {
		return Group{}, apperr.FromDB(err)
	}
	return group, nil
}

func (s *Service) GetGroup(ctx context.Context, slug string) (Group, error) {
	var g Group
	err := s.db.QueryRow(ctx, `
		SELECT id, title, slug, description FROM groups WHERE slug = $1
	`, slug).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		return Group{}, apperr.FromDB(err)
	}
	return g, nil
}

func (s *Service) Groups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.Query(ctx, `SELECT id, title, slug, description FROM groups ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// InvalidateTimeline drops every cached timeline page.
func (s *Service) InvalidateTimeline(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

func (s *Service) queryPosts(ctx context.Context, sql string, args ...any) ([]Post, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return ScanPosts(rows)
}

func (s *Service) resolveGroup(ctx context.Context, slug string) (*Group, error) {
	if slug == "" {
		return nil, nil
	}
	group, err := s.GetGroup(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, &apperr.ValidationError{Fields: map[string]string{"group": "unknown group"}}
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// The write has already committed; a failed clear is logged and left to the
// cache ttl.
func (s *Service) invalidateTimeline(ctx context.Context, postID string) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.Error().Err(err).Str("post_id", postID).Msg("timeline invalidation failed")
	}
}

func (s *Service) announce(post Post) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(post)
	if err != nil {
		s.log.Error().Err(err).Str("post_id", post.ID).Msg("encode post event")
		return
	}
	s.notifier.Broadcast(TimelineTopic, payload)
	if post.Group != nil {
		s.notifier.Broadcast("group:"+post.Group.Slug, payload)
	}
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
