package main

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/mindlab/cardshop/internal/config"
	"github.com/mindlab/cardshop/internal/firebase"
	"github.com/mindlab/cardshop/internal/media"
	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/remote/firestore"
	"github.com/mindlab/cardshop/internal/remote/mongo"
	"github.com/mindlab/cardshop/internal/service"
)

type closer interface{ Close() error }

// remoteBackend is what a successful remote connection yields.
type remoteBackend struct {
	store   remote.DocumentStore
	app     *firebase.App
	closers []closer
	dir     *firebase.Directory
}

func connectRemote(ctx context.Context, cfg config.Config, log *slog.Logger) (*remoteBackend, error) {
	if cfg.RemoteDriver == config.DriverMongo {
		ms, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		rb := &remoteBackend{store: ms, closers: []closer{ms}}
		// Auth stays with Firebase when a service account is present.
		if cfg.ServiceAccountJSON != "" && cfg.Firebase.ProjectID != "" {
			if err := rb.attachFirebase(ctx, cfg, false); err != nil {
				log.Warn("firebase_auth_unavailable", "error", err)
			}
		}
		return rb, nil
	}

	rb := &remoteBackend{}
	if err := rb.attachFirebase(ctx, cfg, true); err != nil {
		return nil, err
	}
	return rb, nil
}

func (rb *remoteBackend) attachFirebase(ctx context.Context, cfg config.Config, withFirestore bool) error {
	app, err := firebase.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.StorageBucket, cfg.ServiceAccountJSON)
	if err != nil {
		return err
	}
	rb.app = app

	if withFirestore {
		client, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore: %w", err)
		}
		fs := firestore.New(client)
		rb.store = fs
		rb.closers = append(rb.closers, fs)
	}

	dir, err := app.Directory(ctx)
	if err != nil {
		return err
	}
	rb.dir = dir
	return nil
}

func (rb *remoteBackend) Close(log *slog.Logger) {
	for _, c := range rb.closers {
		if err := c.Close(); err != nil {
			log.Warn("remote_close_error", "error", err)
		}
	}
}

// openMedia prefers the Firebase bucket and falls back to the media directory.
func openMedia(ctx context.Context, cfg config.Config, rb *remoteBackend, log *slog.Logger) (service.ImageUploader, closer, string) {
	if rb != nil && rb.app != nil && rb.app.Bucket() != "" {
		client, err := storage.NewClient(ctx, rb.app.ClientOptions()...)
		if err == nil {
			g := media.NewGCS(client, rb.app.Bucket())
			return g, g, ""
		}
		log.Warn("storage_client_error", "error", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", cfg.ServerPort)
	}
	dir, err := media.NewDir(cfg.MediaDir, base)
	if err != nil {
		log.Warn("media_dir_error", "dir", cfg.MediaDir, "error", err)
		return nil, nil, ""
	}
	return dir, nil, dir.Root()
}
