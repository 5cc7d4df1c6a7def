package form

import (
	"errors"
	"testing"

	"backend-blog/internal/shared/apperr"
)

type sample struct {
	Text  string `json:"text" validate:"required,max=10"`
	Slug  string `json:"slug" validate:"omitempty,slug"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestValidateOK(t *testing.T) {
	if err := Validate(sample{Text: "hello", Slug: "cats_1", Email: "a@b.io"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFields(t *testing.T) {
	err := Validate(sample{Slug: "Not A Slug", Email: "nope"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Fields["text"] != "this field is required" {
		t.Fatalf("unexpected text message %q", ve.Fields["text"])
	}
	if _, ok := ve.Fields["slug"]; !ok {
		t.Fatalf("expected slug message")
	}
	if ve.Fields["email"] != "must be a valid email address" {
		t.Fatalf("unexpected email message %q", ve.Fields["email"])
	}
}

func TestValidateMax(t *testing.T) {
	err := Validate(sample{Text: "this text is far too long"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Fields["text"] != "must be at most 10 characters" {
		t.Fatalf("expected max message, got %v", err)
	}
}

type account struct {
	Username string `json:"username" validate:"required,username"`
	Bio      string `json:"bio" validate:"notblank,max=20"`
}

func TestValidateNotBlank(t *testing.T) {
	for _, bio := range []string{"", "   ", " \n\t "} {
		err := Validate(account{Username: "alice", Bio: bio})
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) || ve.Fields["bio"] != "this field is required" {
			t.Fatalf("bio %q: expected required message, got %v", bio, err)
		}
	}
	if err := Validate(account{Username: "alice", Bio: "  hi  "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	for _, name := range []string{"alice", "Alice", "bob.smith", "a+b@c-d_e", "Тестовый"} {
		if err := Validate(account{Username: name, Bio: "x"}); err != nil {
			t.Fatalf("%q: unexpected error %v", name, err)
		}
	}
	for _, name := range []string{"bad name", "semi;colon", "slash/name"} {
		err := Validate(account{Username: name, Bio: "x"})
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) || ve.Fields["username"] == "" {
			t.Fatalf("%q: expected username error, got %v", name, err)
		}
	}
}
