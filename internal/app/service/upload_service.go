package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/storage"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

var ErrStorageUnavailable = errors.New("object storage is not configured")

// uploadFolders are the prefixes clients may write to.
var uploadFolders = map[string]bool{
	"menus":    true,
	"profiles": true,
	"stores":   true,
	"sns":      true,
	"bottles":  true,
}

type UploadService interface {
	PresignImageUpload(ctx context.Context, actor model.Actor, filename, contentType, folder string) (*storage.PresignedURLResponse, error)
}

type uploadService struct {
	storage storage.ObjectStorage
}

func NewUploadService(objects storage.ObjectStorage) UploadService {
	return &uploadService{storage: objects}
}

func (s *uploadService) PresignImageUpload(ctx context.Context, actor model.Actor, filename, contentType, folder string) (*storage.PresignedURLResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := imageTypes[contentType]
	if !ok {
		return nil, ErrInvalidImageType
	}
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if !uploadFolders[folder] {
		return nil, ErrInvalidInput
	}

	// keep the client's extension when it matches the declared type
	name := filepath.Base(filename)
	if e := strings.ToLower(filepath.Ext(name)); e != ext && !(e == ".jpeg" && ext == ".jpg") {
		name = "image" + ext
	}

	key := storage.ObjectKey(actor.StoreID, folder, name)
	resp, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		logger.Error("Failed to presign upload", err, map[string]interface{}{
			"store_id": actor.StoreID,
			"key":      key,
		})
		return nil, err
	}

	logger.Info("Presigned image upload", map[string]interface{}{
		"store_id":   actor.StoreID,
		"profile_id": actor.ProfileID,
		"key":        key,
	})
	return resp, nil
}
