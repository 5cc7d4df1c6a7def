package posts

import (
	"github.com/jackc/pgx/v5"
)

// SelectPosts selects the columns ScanPosts reads. Callers append WHERE and
// ORDER BY clauses.
const SelectPosts = `
	SELECT p.id, p.text, p.author_id, u.username, COALESCE(p.group_id, ''),
	       COALESCE(g.slug, ''), COALESCE(g.title, ''), COALESCE(p.image, ''), p.created_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN groups g ON g.id = p.group_id
`

// NewestFirst orders listings by creation time, newest first, with the
// sortable id breaking ties.
const NewestFirst = ` ORDER BY p.created_at DESC, p.id DESC`

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	var groupSlug, groupTitle string
	if err := row.Scan(&p.ID, &p.Text, &p.AuthorID, &p.Author, &p.GroupID, &groupSlug, &groupTitle, &p.Image, &p.CreatedAt); err != nil {
		return Post{}, err
	}
	if p.GroupID != "" {
		p.Group = &PostGroup{Slug: groupSlug, Title: groupTitle}
	}
	return p, nil
}

// ScanPosts drains rows produced by a SelectPosts query and closes them.
func ScanPosts(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
