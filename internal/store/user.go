package store

import (
	"database/sql"
	"fmt"
	"math/rand/v2"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.AuthProvider, &u.Username, &u.Email, &u.Name, &u.PictureURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, auth_provider, username, email, name, picture_url, created_at, updated_at`

var usernameAdjectives = []string{
	"Brave", "Sunny", "Happy", "Eager", "Calm", "Bright", "Jolly", "Wise",
	"Clever", "Gentle", "Noble", "Swift", "Bold", "Shy", "Mighty", "Quick",
	"Fierce", "Vivid", "Proud", "Merry",
}

var usernameNouns = []string{
	"Tiger", "Sky", "River", "Mountain", "Lion", "Falcon", "Wolf", "Eagle",
	"Bear", "Hawk", "Panther", "Dolphin", "Fox", "Otter", "Deer", "Rabbit",
	"Turtle", "Cheetah", "Buffalo", "Leopard",
}

func randomUsername() string {
	adjective := usernameAdjectives[rand.IntN(len(usernameAdjectives))]
	noun := usernameNouns[rand.IntN(len(usernameNouns))]
	return fmt.Sprintf("%s%s%06d", adjective, noun, rand.IntN(1000000))
}

const maxUsernameAttempts = 30

func (s *UserStore) generateUniqueUsername() (string, error) {
	for range maxUsernameAttempts {
		username := randomUsername()
		taken, err := s.usernameTaken(username, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
	}
	// 400 combinations times a million suffixes; thirty collisions in a row
	// means something else is wrong.
	return "", apperr.New("unable to generate a unique username")
}

func (s *UserStore) usernameTaken(username, excludeUserID string) (bool, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM users WHERE username = ? AND id != ?`,
		username, excludeUserID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return true, nil
}

// UpsertFromIdentity creates or refreshes the user row for an identity
// asserted by the external provider. A new user gets a generated username;
// an existing user keeps theirs while email, name, and picture are updated
// from the provider's latest profile.
func (s *UserStore) UpsertFromIdentity(identity model.Identity) (*model.User, error) {
	username, err := s.generateUniqueUsername()
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO users (id, auth_provider, username, email, name, picture_url) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			picture_url = excluded.picture_url,
			updated_at = CURRENT_TIMESTAMP`,
		identity.ID, identity.Provider, username, identity.Email, identity.Name, identity.PictureURL,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetByID(identity.ID)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateUsername changes the user's username, returning a Conflict error when
// another user already holds it.
func (s *UserStore) UpdateUsername(id, username string) (*model.User, error) {
	taken, err := s.usernameTaken(username, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("username already taken")
	}

	_, err = s.db.Exec(
		`UPDATE users SET username = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		username, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update username: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
