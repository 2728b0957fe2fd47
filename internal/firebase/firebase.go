// Package firebase wires the Firebase Admin SDK: service account
// credentials, Firestore and Storage clients, and the auth user directory.
package firebase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var (
	ErrMissingServiceAccount = errors.New("missing FIREBASE_SERVICE_ACCOUNT_JSON")
	ErrInvalidServiceAccount = errors.New("invalid FIREBASE_SERVICE_ACCOUNT_JSON")
)

// ServiceAccount accepts the credential either as raw JSON or base64 encoded JSON.
func ServiceAccount(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingServiceAccount
	}
	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, ErrInvalidServiceAccount
		}
		data = decoded
	}
	if !json.Valid(data) {
		return nil, ErrInvalidServiceAccount
	}
	return data, nil
}

type App struct {
	app       *firebase.App
	projectID string
	bucket    string
	creds     []byte
}

func NewApp(ctx context.Context, projectID, bucket, serviceAccount string) (*App, error) {
	creds, err := ServiceAccount(serviceAccount)
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     projectID,
		StorageBucket: bucket,
	}, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	return &App{app: app, projectID: projectID, bucket: bucket, creds: creds}, nil
}

func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	return a.app.Firestore(ctx)
}

// ClientOptions returns credentials for other Google clients (Cloud Storage).
func (a *App) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithCredentialsJSON(a.creds)}
}

func (a *App) Bucket() string { return a.bucket }

func (a *App) Directory(ctx context.Context) (*Directory, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &Directory{client: client}, nil
}

type AuthUser struct {
	UID         string
	Email       string
	DisplayName string
	PhoneNumber string
	PhotoURL    string
	CreatedAt   time.Time
}

// Directory pages through the accounts registered with Firebase Auth.
type Directory struct {
	client *auth.Client
}

func (d *Directory) ListUsers(ctx context.Context, pageSize int, pageToken string) ([]AuthUser, string, error) {
	pager := iterator.NewPager(d.client.Users(ctx, ""), pageSize, pageToken)
	var records []*auth.ExportedUserRecord
	next, err := pager.NextPage(&records)
	if err != nil {
		return nil, "", fmt.Errorf("list users: %w", err)
	}
	users := make([]AuthUser, 0, len(records))
	for _, r := range records {
		users = append(users, toAuthUser(r.UserRecord))
	}
	return users, next, nil
}

// VerifyIDToken returns the account behind a client-side Firebase ID token.
func (d *Directory) VerifyIDToken(ctx context.Context, idToken string) (AuthUser, error) {
	tok, err := d.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return AuthUser{}, fmt.Errorf("verify id token: %w", err)
	}
	rec, err := d.client.GetUser(ctx, tok.UID)
	if err != nil {
		return AuthUser{}, fmt.Errorf("get user %s: %w", tok.UID, err)
	}
	return toAuthUser(rec), nil
}

func toAuthUser(r *auth.UserRecord) AuthUser {
	if r == nil {
		return AuthUser{}
	}
	u := AuthUser{
		UID:         r.UID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		PhoneNumber: r.PhoneNumber,
		PhotoURL:    r.PhotoURL,
	}
	if r.UserMetadata != nil && r.UserMetadata.CreationTimestamp > 0 {
		u.CreatedAt = time.UnixMilli(r.UserMetadata.CreationTimestamp).UTC()
	}
	return u
}
