// Package auth handles teacher login, tokens and request authentication.
package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"upasthiti/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotLoggedIn        = errors.New("teacher is not logged in")
)

// Teacher is one entry of the global teacher roster.
type Teacher struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	PasswordHash string `json:"passwordHash"`
}

// Profile is the teacher record without credentials.
type Profile struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

func (t Teacher) Profile() Profile {
	return Profile{Email: t.Email, Name: t.Name, Department: t.Department}
}

// HashPassword bcrypts a plain password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Directory reads the teacher roster and tracks login state per teacher.
type Directory struct {
	kv store.KV
}

func NewDirectory(kv store.KV) *Directory {
	return &Directory{kv: kv}
}

// Teachers returns the roster; found is false when it was never written.
func (d *Directory) Teachers(ctx context.Context) ([]Teacher, bool, error) {
	var teachers []Teacher
	found, err := store.GetJSON(ctx, d.kv, store.TeachersKey, &teachers)
	return teachers, found, err
}

// SaveTeachers replaces the roster.
func (d *Directory) SaveTeachers(ctx context.Context, teachers []Teacher) error {
	return store.SetJSON(ctx, d.kv, store.TeachersKey, teachers)
}

// Login checks credentials, then records the login flag and current-teacher profile.
func (d *Directory) Login(ctx context.Context, email, password string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	teachers, _, err := d.Teachers(ctx)
	if err != nil {
		return Profile{}, err
	}
	for _, t := range teachers {
		if strings.ToLower(t.Email) != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) != nil {
			return Profile{}, ErrInvalidCredentials
		}
		scope := store.ForTeacher(t.Email)
		if err := d.kv.Set(ctx, scope.LoggedIn(), "true"); err != nil {
			return Profile{}, err
		}
		if err := store.SetJSON(ctx, d.kv, scope.CurrentTeacher(), t.Profile()); err != nil {
			return Profile{}, err
		}
		return t.Profile(), nil
	}
	return Profile{}, ErrInvalidCredentials
}

// Logout clears the teacher's login flag.
func (d *Directory) Logout(ctx context.Context, email string) error {
	err := d.kv.Delete(ctx, store.ForTeacher(email).LoggedIn())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// LoggedIn reports whether the teacher's login flag is set.
func (d *Directory) LoggedIn(ctx context.Context, email string) bool {
	v, err := d.kv.Get(ctx, store.ForTeacher(email).LoggedIn())
	return err == nil && v == "true"
}

// Current returns the stored current-teacher profile.
func (d *Directory) Current(ctx context.Context, email string) (Profile, error) {
	var p Profile
	found, err := store.GetJSON(ctx, d.kv, store.ForTeacher(email).CurrentTeacher(), &p)
	if err != nil {
		return Profile{}, err
	}
	if !found {
		return Profile{}, ErrNotLoggedIn
	}
	return p, nil
}
