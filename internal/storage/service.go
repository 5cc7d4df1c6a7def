package storage

import (
	"context"
	"path"
	"strings"
	"time"

	"backend-blog/internal/db"
	"backend-blog/internal/shared/apperr"
	"backend-blog/internal/shared/form"

	"github.com/oklog/ulid/v2"
)

const KindImage = "image"

var imageExtensions = map[string]bool{
	".gif":  true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".webp": true,
}

type Object struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type ImageRequest struct {
	FileName string `json:"file_name" validate:"required,max=200"`
}

type Service struct {
	db      db.Querier
	baseURL string
}

func NewService(db db.Querier, baseURL string) *Service {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Service{db: db, baseURL: baseURL}
}

// RegisterImage records an image reference owned by userID and returns the
// URL posts should carry. Only the reference is stored.
func (s *Service) RegisterImage(ctx context.Context, userID string, req ImageRequest) (Object, error) {
	if err := form.Validate(req); err != nil {
		return Object{}, err
	}
	name := path.Base(req.FileName)
	if !imageExtensions[strings.ToLower(path.Ext(name))] {
		return Object{}, &apperr.ValidationError{Fields: map[string]string{"file_name": "unsupported image type"}}
	}

	obj := Object{
		ID:     ulid.Make().String(),
		UserID: userID,
		Kind:   KindImage,
	}
	obj.URL = s.baseURL + "posts/" + strings.ToLower(obj.ID) + "-" + name

	row := s.db.QueryRow(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, obj.ID, obj.UserID, obj.URL, obj.Kind)
	if err := row.Scan(&obj.CreatedAt); err != nil {
		return Object{}, apperr.FromDB(err)
	}
	return obj, nil
}
