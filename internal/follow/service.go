package follow

import (
	"context"

	"backend-blog/internal/db"
	"backend-blog/internal/posts"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Follow records that userID follows authorID and reports whether a new edge
// was created. Following yourself is a no-op and never reaches the database.
func (s *Service) Follow(ctx context.Context, userID, authorID string) (bool, error) {
	if userID == authorID {
		return false, nil
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO follows (user_id, author_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, userID, authorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Unfollow removes the edge if present.
func (s *Service) Unfollow(ctx context.Context, userID, authorID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM follows WHERE user_id=$1 AND author_id=$2`, userID, authorID)
	return err
}

func (s *Service) IsFollowing(ctx context.Context, userID, authorID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE user_id=$1 AND author_id=$2)
	`, userID, authorID).Scan(&exists)
	return exists, err
}

// Feed lists posts by the authors viewerID follows, newest first.
func (s *Service) Feed(ctx context.Context, viewerID string) ([]posts.Post, error) {
	rows, err := s.db.Query(ctx, posts.SelectPosts+
		` WHERE p.author_id IN (SELECT author_id FROM follows WHERE user_id = $1)`+
		posts.NewestFirst, viewerID)
	if err != nil {
		return nil, err
	}
	return posts.ScanPosts(rows)
}
