package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mindlab/cardshop/internal/firebase"
	"github.com/mindlab/cardshop/internal/hash"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/store"
	"github.com/mindlab/cardshop/internal/syncer"
	"github.com/mindlab/cardshop/internal/tokens"
	"github.com/mindlab/cardshop/internal/transport"
)

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (firebase.AuthUser, error)
}

// UserService owns accounts and session tokens. Session records the last
// sign-in of this install; requests are identified by their token only.
type UserService struct {
	Sync        *syncer.Synchronizer[models.User]
	Session     *Session
	Secret      []byte
	Verifier    TokenVerifier
	AdminEmails []string

	mu      sync.Mutex
	keyOnce sync.Once
	key     []byte
}

// signingKey is Secret, or a random key for this process when none is set.
func (s *UserService) signingKey() []byte {
	if len(s.Secret) > 0 {
		return s.Secret
	}
	s.keyOnce.Do(func() {
		s.key = make([]byte, 32)
		_, _ = rand.Read(s.key)
	})
	return s.key
}

type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

type sampleUser struct {
	name, email, password string
	admin                 bool
}

var sampleUsers = []sampleUser{
	{name: "Demo Customer", email: "demo@example.com", password: "demo1234"},
	{name: "Store Admin", email: "admin@example.com", password: "admin1234", admin: true},
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) isAdmin(email string) bool {
	for _, a := range s.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return true
		}
	}
	return false
}

// SeedSamples writes the sample accounts into an empty users collection.
func (s *UserService) SeedSamples(ctx context.Context) (int, error) {
	existing, err := s.Sync.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	rows := make([]store.Fields, 0, len(sampleUsers))
	for _, su := range sampleUsers {
		pw, err := hash.HashPassword(su.password)
		if err != nil {
			return 0, err
		}
		u := models.User{
			ID:           uuid.NewString(),
			Name:         su.name,
			Email:        su.email,
			PasswordHash: pw,
			IsAdmin:      su.admin || s.isAdmin(su.email),
			CreatedAt:    models.Now(),
		}
		f, err := store.FieldsOf(u)
		if err != nil {
			return 0, err
		}
		rows = append(rows, f)
	}
	return s.Sync.BulkUpsert(ctx, rows)
}

func (s *UserService) findByEmail(ctx context.Context, email string) (models.User, bool, error) {
	all, err := s.Sync.List(ctx)
	if err != nil {
		return models.User{}, false, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Email, email) {
			return u, true, nil
		}
	}
	return models.User{}, false, nil
}

func (s *UserService) signIn(ctx context.Context, u models.User) (AuthResult, error) {
	if err := s.Session.Set(ctx, u); err != nil {
		return AuthResult{}, err
	}
	tok, err := tokens.SignSession(u.ID, u.Email, u.IsAdmin, s.signingKey())
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u.Public(), Token: tok}, nil
}

// Authenticate resolves a session token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrNotSignedIn
	}
	claims, err := tokens.SessionClaimsFromToken(token, s.signingKey())
	if err != nil || claims.Subject == "" {
		return models.User{}, ErrNotSignedIn
	}
	u, err := s.Sync.Get(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrNotSignedIn
	}
	if err != nil {
		return models.User{}, err
	}
	return u.Public(), nil
}

func (s *UserService) Signup(ctx context.Context, req transport.SignupRequest) (AuthResult, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return AuthResult{}, fmt.Errorf("name is required: %w", ErrValidation)
	case email == "" || !strings.Contains(email, "@"):
		return AuthResult{}, fmt.Errorf("a valid email is required: %w", ErrValidation)
	}
	pw, err := hash.HashPassword(req.Password)
	if errors.Is(err, hash.ErrTooShort) {
		return AuthResult{}, fmt.Errorf("%s: %w", err.Error(), ErrValidation)
	}
	if err != nil {
		return AuthResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken, err := s.findByEmail(ctx, email); err != nil {
		return AuthResult{}, err
	} else if taken {
		return AuthResult{}, ErrEmailTaken
	}

	u := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: pw,
		IsAdmin:      s.isAdmin(email),
	}
	f, err := store.FieldsOf(u)
	if err != nil {
		return AuthResult{}, err
	}
	f["createdAt"] = remote.ServerTimestamp
	saved, err := s.Sync.Upsert(ctx, u.ID, f)
	if err != nil {
		return AuthResult{}, err
	}
	// remote stores never hold the hash; keep the copy we just made
	saved.PasswordHash = pw
	return s.signIn(ctx, saved)
}

func (s *UserService) Login(ctx context.Context, req transport.LoginRequest) (AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return AuthResult{}, fmt.Errorf("email and password are required: %w", ErrValidation)
	}
	u, ok, err := s.findByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok || u.PasswordHash == "" || !hash.CheckPassword(u.PasswordHash, req.Password) {
		return AuthResult{}, ErrBadCredentials
	}
	return s.signIn(ctx, u)
}

// Exchange signs in with a Firebase ID token, creating the user document on
// first use.
func (s *UserService) Exchange(ctx context.Context, idToken string) (AuthResult, error) {
	if s.Verifier == nil {
		return AuthResult{}, fmt.Errorf("token exchange: %w", ErrNotConfigured)
	}
	if idToken == "" {
		return AuthResult{}, fmt.Errorf("missing idToken: %w", ErrValidation)
	}
	au, err := s.Verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrBadCredentials, err)
	}

	u, err := s.Sync.Get(ctx, au.UID)
	if errors.Is(err, store.ErrNotFound) {
		f := store.Fields{
			"id":           au.UID,
			"uid":          au.UID,
			"name":         au.DisplayName,
			"email":        au.Email,
			"phone":        au.PhoneNumber,
			"profileImage": au.PhotoURL,
			"isAdmin":      s.isAdmin(au.Email),
			"createdAt":    remote.ServerTimestamp,
		}
		u, err = s.Sync.Upsert(ctx, au.UID, f)
	}
	if err != nil {
		return AuthResult{}, err
	}
	return s.signIn(ctx, u)
}

// Logout forgets the persisted sign-in when it belongs to userID.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if cur, ok := s.Session.Current(); !ok || cur.ID != userID {
		return nil
	}
	return s.Session.Clear(ctx)
}

// UpdateProfile edits the user identified by userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch transport.ProfilePatch) (models.User, error) {
	if userID == "" {
		return models.User{}, ErrNotSignedIn
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.User{}, fmt.Errorf("name cannot be empty: %w", ErrValidation)
	}
	f, err := store.FieldsOf(patch)
	if err != nil {
		return models.User{}, err
	}
	if len(f) == 0 {
		return models.User{}, fmt.Errorf("nothing to change: %w", ErrValidation)
	}
	if _, err := s.Sync.Get(ctx, userID); err != nil {
		return models.User{}, err
	}
	u, err := s.Sync.Upsert(ctx, userID, f)
	if err != nil {
		return models.User{}, err
	}
	if cur, ok := s.Session.Current(); ok && cur.ID == u.ID {
		if err := s.Session.Set(ctx, u); err != nil {
			return u.Public(), err
		}
	}
	return u.Public(), nil
}

var protectedUserFields = []string{"id", "password", "passwordHash", store.DocIDField}

// AdminUpdate merges arbitrary fields into a user document. Identity and
// credential fields are ignored.
func (s *UserService) AdminUpdate(ctx context.Context, userID string, updates map[string]any) error {
	if userID == "" || len(updates) == 0 {
		return fmt.Errorf("missing userId or updates: %w", ErrValidation)
	}
	f := store.Fields(remote.NormalizeMap(updates))
	for _, k := range protectedUserFields {
		delete(f, k)
	}
	if len(f) == 0 {
		return fmt.Errorf("no editable fields in updates: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := f["email"]; ok {
		email, _ := raw.(string)
		email = normalizeEmail(email)
		if email == "" || !strings.Contains(email, "@") {
			return fmt.Errorf("a valid email is required: %w", ErrValidation)
		}
		if other, taken, err := s.findByEmail(ctx, email); err != nil {
			return err
		} else if taken && other.ID != userID {
			return ErrEmailTaken
		}
		f["email"] = email
	}
	_, err := s.Sync.Upsert(ctx, userID, f)
	return err
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	all, err := s.Sync.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, len(all))
	for i, u := range all {
		out[i] = u.Public()
	}
	return out, nil
}
