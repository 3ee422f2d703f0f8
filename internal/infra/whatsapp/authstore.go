package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// AuthStoreManager manages the per-user durable auth material. Each user
// gets a directory under the sessions root holding a sqlite-backed whatsmeow
// device store; wiping the directory forces a full re-authentication.
type AuthStoreManager struct {
	root   string
	logger waLog.Logger
}

// NewAuthStoreManager creates an auth store manager rooted at dir.
func NewAuthStoreManager(root string, logger waLog.Logger) *AuthStoreManager {
	return &AuthStoreManager{
		root:   root,
		logger: logger,
	}
}

// validateUserID rejects ids that cannot be used as a single path component
// under the sessions root. Ids with separators or dot segments would escape
// the root when the directory is created or wiped.
func validateUserID(userID string) error {
	if userID == "" || userID == "." || userID == ".." ||
		strings.ContainsAny(userID, `/\`) {
		return fmt.Errorf("invalid user id for auth store: %q", userID)
	}
	return nil
}

// AuthDir returns the auth material directory for a user
func (m *AuthStoreManager) AuthDir(userID string) string {
	return filepath.Join(m.root, userID)
}

// OpenDevice loads or creates the device store for a user. The directory is
// created on first use.
func (m *AuthStoreManager) OpenDevice(ctx context.Context, userID string) (*store.Device, *sqlstore.Container, error) {
	if err := validateUserID(userID); err != nil {
		return nil, nil, err
	}

	authDir := m.AuthDir(userID)
	if err := os.MkdirAll(authDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create auth directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(authDir, "auth.db"))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open auth store: %w", err)
	}

	container := sqlstore.NewWithDB(db, "sqlite3", m.logger)
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to upgrade auth store schema: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load device: %w", err)
	}

	log.Debug().
		Str("user_id", userID).
		Str("auth_dir", authDir).
		Bool("registered", device.ID != nil).
		Msg("Auth store opened")

	return device, container, nil
}

// DeleteAuthMaterial wipes a user's auth directory unconditionally.
func (m *AuthStoreManager) DeleteAuthMaterial(userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	authDir := m.AuthDir(userID)
	if err := os.RemoveAll(authDir); err != nil {
		return fmt.Errorf("failed to remove auth directory: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Str("auth_dir", authDir).
		Msg("Auth material deleted")
	return nil
}
