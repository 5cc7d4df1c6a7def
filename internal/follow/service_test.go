package follow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var postColumns = []string{"id", "text", "author_id", "username", "group_id", "slug", "title", "image", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestFollowSelfTouchesNothing(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock)

	created, err := svc.Follow(context.Background(), "u1", "u1")
	if err != nil || created {
		t.Fatalf("self follow: %v %v", created, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFollowIsIdempotent(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock)
	ctx := context.Background()

	mock.ExpectExec(`(?s)INSERT INTO follows.*ON CONFLICT DO NOTHING`).
		WithArgs("u1", "u2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`(?s)INSERT INTO follows.*ON CONFLICT DO NOTHING`).
		WithArgs("u1", "u2").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := svc.Follow(ctx, "u1", "u2")
	if err != nil || !created {
		t.Fatalf("first follow: %v %v", created, err)
	}
	created, err = svc.Follow(ctx, "u1", "u2")
	if err != nil || created {
		t.Fatalf("second follow should not create an edge: %v %v", created, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFollowError(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock)

	mock.ExpectExec(`INSERT INTO follows`).
		WithArgs("u1", "u2").
		WillReturnError(errors.New("boom"))

	if _, err := svc.Follow(context.Background(), "u1", "u2"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUnfollowAbsentEdge(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock)

	mock.ExpectExec(`DELETE FROM follows`).
		WithArgs("u1", "u2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := svc.Unfollow(context.Background(), "u1", "u2"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
}

func TestIsFollowing(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1", "u2").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := svc.IsFollowing(context.Background(), "u1", "u2")
	if err != nil || !ok {
		t.Fatalf("is following: %v %v", ok, err)
	}
}

func TestFeedQueriesFollowedAuthorsOnly(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock)
	now := time.Now()

	mock.ExpectQuery(`WHERE p.author_id IN \(SELECT author_id FROM follows WHERE user_id = \$1\) ORDER BY p.created_at DESC, p.id DESC`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(postColumns).
			AddRow("p2", "newer", "u2", "bob", "", "", "", "", now).
			AddRow("p1", "older", "u3", "carol", "", "", "", "", now.Add(-time.Hour)))

	feed, err := svc.Feed(context.Background(), "u1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 2 || feed[0].ID != "p2" {
		t.Fatalf("unexpected feed: %+v", feed)
	}
	for _, p := range feed {
		if p.AuthorID == "u1" {
			t.Fatalf("feed contains the viewer's own post: %+v", p)
		}
	}
}

func TestFeedEmpty(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock)

	mock.ExpectQuery(`FROM follows WHERE user_id`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(postColumns))

	feed, err := svc.Feed(context.Background(), "u1")
	if err != nil || feed == nil || len(feed) != 0 {
		t.Fatalf("expected empty feed, got %v %+v", err, feed)
	}
}
