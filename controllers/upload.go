package controllers

import (
	"fmt"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"offerhub-backend/common/apperror"
	awspkg "offerhub-backend/pkg/aws"
)

// allowedImageTypes maps accepted upload content types to the file extension
// stored objects get.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// uploadImage stores the optional multipart file under field and returns its
// URL. No file on the request is not an error: the URL comes back empty.
func uploadImage(c *gin.Context, uploader awspkg.AssetUploader, field, prefix string) (string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}

	contentType := fileHeader.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", apperror.Validation(fmt.Sprintf("%s must be a jpeg, png, webp or gif image", field))
	}

	if uploader == nil {
		return "", apperror.Internal(fmt.Errorf("file storage not configured, cannot accept %s upload", field))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", apperror.Internal(err)
	}
	defer src.Close()

	key := path.Join(prefix, uuid.NewString()+ext)
	url, err := uploader.Upload(c.Request.Context(), key, src, contentType)
	if err != nil {
		return "", apperror.Internal(err)
	}
	return url, nil
}
