package identity

import (
	"errors"
	"testing"
)

func strp(s string) *string { return &s }

func TestUser_Normalized(t *testing.T) {
	u := User{
		Username:    strp("  Navid "),
		Email:       strp("User@Example.COM "),
		PhoneNumber: strp("+1 (555) 010-2030"),
	}

	n := u.Normalized()
	if *n.Username != "navid" {
		t.Fatalf("username=%q", *n.Username)
	}
	if *n.Email != "user@example.com" {
		t.Fatalf("email=%q", *n.Email)
	}
	if *n.PhoneNumber != "+15550102030" {
		t.Fatalf("phone=%q", *n.PhoneNumber)
	}
	if *u.Username != "  Navid " {
		t.Fatalf("original must not be mutated")
	}
}

func TestUser_NormalizedBlankBecomesNil(t *testing.T) {
	n := User{Email: strp("   "), Username: strp("")}.Normalized()
	if n.Email != nil || n.Username != nil {
		t.Fatalf("expected blank identifiers to become nil: %+v", n)
	}
}

func TestName_Display(t *testing.T) {
	n := Name{First: "Ada", Last: strp("Lovelace"), Prefix: strp("Dr.")}
	if got := n.Display(); got != "Dr. Ada Lovelace" {
		t.Fatalf("Display()=%q", got)
	}
}

func TestFieldError(t *testing.T) {
	err := Duplicate("session.CreateAccount", FieldEmail)
	if !IsDuplicate(err) || IsMissingField(err) {
		t.Fatalf("unexpected kind: %v", err)
	}
	if f, ok := FieldOf(err); !ok || f != FieldEmail {
		t.Fatalf("FieldOf=%q,%v", f, ok)
	}

	wrapped := errors.Join(errors.New("context"), Missing("op", FieldPhoneNumber))
	if !IsMissingField(wrapped) {
		t.Fatalf("expected missing field through wrapping")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError{Op: "session.GetUser", Resource: "user"}
	if !IsNotFound(err) {
		t.Fatalf("expected not found")
	}
	if err.Error() != "session.GetUser: not_found: user" {
		t.Fatalf("Error()=%q", err.Error())
	}
}
