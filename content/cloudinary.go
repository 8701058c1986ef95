package content

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/internal/utils"
)

const DefaultFolder = "postpilot/posts"

// CloudinaryUploader hosts post images on Cloudinary.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("[NewCloudinaryUploader] %w: cloudinary configuration is missing", apperrors.ErrConfigMissing)
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("[NewCloudinaryUploader] failed to initialize cloudinary: %w", err)
	}
	if folder == "" {
		folder = DefaultFolder
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

// Upload sends the file at path and returns its https URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, path string) (string, error) {
	result, err := u.cld.Upload.Upload(ctx, path, uploader.UploadParams{
		Folder:         u.folder,
		ResourceType:   "image",
		UniqueFilename: utils.Ptr(true),
	})
	if err != nil {
		return "", fmt.Errorf("[CloudinaryUploader Upload] %w: %w", apperrors.ErrTransport, err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("[CloudinaryUploader Upload] %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("[CloudinaryUploader Upload] %w: no url returned", apperrors.ErrMalformedPayload)
	}
	return result.SecureURL, nil
}

var _ ImageUploader = (*CloudinaryUploader)(nil)
