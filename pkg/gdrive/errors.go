package gdrive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	ErrFolderNotFound  = errors.New("folder not found")
	ErrNothingToUpdate = errors.New("nothing to update: name or content is required")
	ErrMissingFileID   = errors.New("file ID is required")
)

// IsNotFound reports whether err is a Drive 404
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return false
}
