package posts

import "time"

type Group struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// PostGroup is the part of a group embedded in listed posts.
type PostGroup struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type Post struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	AuthorID  string     `json:"author_id"`
	Author    string     `json:"author"`
	GroupID   string     `json:"group_id,omitempty"`
	Group     *PostGroup `json:"group,omitempty"`
	Image     string     `json:"image,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PostForm is the editable part of a post. Group is a group slug.
type PostForm struct {
	Text  string `json:"text" validate:"notblank,max=10000"`
	Group string `json:"group" validate:"omitempty,slug"`
	Image string `json:"image" validate:"omitempty,uri,max=500"`
}

type CommentForm struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

type GroupForm struct {
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"required,max=100,slug"`
	Description string `json:"description" validate:"max=2000"`
}

// EditOutcome reports whether an edit was applied or refused.
type EditOutcome int

const (
	EditApplied EditOutcome = iota
	EditForbidden
)

func (o EditOutcome) String() string {
	switch o {
	case EditApplied:
		return "applied"
	case EditForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}
