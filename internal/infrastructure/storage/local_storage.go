package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	paymentapp "github.com/backoffice/backend/internal/application/payment"
)

// Ensure LocalReceiptStorage implements ReceiptStorage
var _ paymentapp.ReceiptStorage = (*LocalReceiptStorage)(nil)

// LocalReceiptStorage stores receipt files on the local filesystem.
// Intended for development and single-node deployments.
type LocalReceiptStorage struct {
	basePath string
}

// NewLocalReceiptStorage creates a LocalReceiptStorage rooted at basePath
func NewLocalReceiptStorage(basePath string) (*LocalReceiptStorage, error) {
	if basePath == "" {
		return nil, errors.New("storage base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid storage base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalReceiptStorage{basePath: abs}, nil
}

// StoreReceipt writes a receipt file under the base path and returns a
// file:// URL pointing at it
func (s *LocalReceiptStorage) StoreReceipt(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	if len(data) == 0 {
		return "", errors.New("receipt data is empty")
	}

	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", errors.New("storage key escapes the base path")
	}

	target := filepath.Join(s.basePath, cleaned)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}

	return "file://" + target, nil
}

// Delete removes a stored receipt file
func (s *LocalReceiptStorage) Delete(ctx context.Context, key string) error {
	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return errors.New("storage key escapes the base path")
	}
	err := os.Remove(filepath.Join(s.basePath, cleaned))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}
