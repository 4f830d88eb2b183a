package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-borong/internal/db"
)

type fakeQueries struct {
	mu           sync.Mutex
	usersByEmail map[string]db.User
	usersByID    map[string]db.User
	tokensByHash map[string]db.RefreshToken
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		usersByEmail: make(map[string]db.User),
		usersByID:    make(map[string]db.User),
		tokensByHash: make(map[string]db.RefreshToken),
	}
}

func (f *fakeQueries) addUser(user db.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usersByEmail[strings.ToLower(user.Email)] = user
	f.usersByID[uuidString(user.ID)] = user
}

func (f *fakeQueries) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(arg.Email)
	if _, exists := f.usersByEmail[key]; exists {
		return db.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	id, _ := pgUUIDFromString(uuid.NewString())
	now := time.Now()
	user := db.User{
		ID:           id,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Name:         arg.Name,
		Role:         arg.Role,
		CreatedAt:    pgTimestamp(now),
		UpdatedAt:    pgTimestamp(now),
	}
	f.usersByEmail[key] = user
	f.usersByID[uuidString(id)] = user
	return user, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.usersByEmail[strings.ToLower(email)]
	if !ok {
		return db.User{}, fmt.Errorf("user not found")
	}
	return user, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id pgtype.UUID) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.usersByID[uuidString(id)]
	if !ok {
		return db.User{}, fmt.Errorf("user not found")
	}
	return user, nil
}

func (f *fakeQueries) CreateRefreshToken(_ context.Context, arg db.CreateRefreshTokenParams) (db.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := pgUUIDFromString(uuid.NewString())
	token := db.RefreshToken{
		ID:        id,
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: pgTimestamp(time.Now()),
	}
	f.tokensByHash[arg.TokenHash] = token
	return token, nil
}

func (f *fakeQueries) GetRefreshTokenByHash(_ context.Context, tokenHash string) (db.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokensByHash[tokenHash]
	if !ok || token.RevokedAt.Valid || !token.ExpiresAt.Valid || time.Now().After(token.ExpiresAt.Time) {
		return db.RefreshToken{}, fmt.Errorf("refresh token not found")
	}
	return token, nil
}

func (f *fakeQueries) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokensByHash[tokenHash]
	if !ok {
		return nil
	}
	token.RevokedAt = pgTimestamp(time.Now())
	f.tokensByHash[tokenHash] = token
	return nil
}

func (f *fakeQueries) RevokeUserRefreshTokens(_ context.Context, userID pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := uuidString(userID)
	for hash, token := range f.tokensByHash {
		if uuidString(token.UserID) == key && !token.RevokedAt.Valid {
			token.RevokedAt = pgTimestamp(time.Now())
			f.tokensByHash[hash] = token
		}
	}
	return nil
}

func (f *fakeQueries) activeToken(hash string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokensByHash[hash]
	return ok && !token.RevokedAt.Valid
}
