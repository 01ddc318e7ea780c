package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/models"
)

// FileStore persists the credentials to a JSON file so that they survive process restarts.
// The file is re-read on every Get, writes go through a temporary file and a rename.
type FileStore struct {
	lock sync.Mutex
	path string
}

type fileRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("the credentials file path cannot be empty")
	}
	return &FileStore{path: path}, nil
}

// Path is the location of the credentials file
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(context.Context) (models.Credentials, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Credentials{}, nil
		}
		return models.Credentials{}, err
	}
	var record fileRecord
	if err = json.Unmarshal(data, &record); err != nil {
		return models.Credentials{}, fmt.Errorf("cannot parse the credentials file %s: %w", f.path, err)
	}
	return models.Credentials{AccessToken: record.AccessToken, RefreshToken: record.RefreshToken}, nil
}

func (f *FileStore) Set(_ context.Context, credentials models.Credentials) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileRecord{
		AccessToken:  credentials.AccessToken,
		RefreshToken: credentials.RefreshToken,
	}, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear(context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
