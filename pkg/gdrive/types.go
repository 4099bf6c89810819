package gdrive

import (
	"google.golang.org/api/drive/v3"
)

// FolderMimeType is the MIME type Drive uses for folders
const FolderMimeType = "application/vnd.google-apps.folder"

// File represents a simplified Google Drive file
type File struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mime_type"`
	Size         int64    `json:"size"`
	Parents      []string `json:"parents,omitempty"`
	CreatedTime  string   `json:"created_time,omitempty"`
	ModifiedTime string   `json:"modified_time,omitempty"`
	WebViewLink  string   `json:"web_view_link,omitempty"`
}

// IsFolder reports whether the file is a Drive folder
func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// FileList is a single page of a listing
type FileList struct {
	Files         []*File `json:"files"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

// UploadRequest describes a local file to create in Drive
type UploadRequest struct {
	LocalPath   string
	Name        string // defaults to the base name of LocalPath
	MimeType    string // defaults to the type of the file extension
	FolderID    string // defaults to the service folder
	Description string
}

// UpdateRequest describes changes to an existing file; at least one field must be set
type UpdateRequest struct {
	Name      string
	LocalPath string
	MimeType  string
}

// ListOptions controls a listing
type ListOptions struct {
	FolderID       string // defaults to the service folder
	Query          string // extra Drive query, joined with "and"
	PageSize       int64
	PageToken      string
	OrderBy        string
	ExcludeTrashed bool // adds "trashed = false"
}

// Account describes the authenticated identity
type Account struct {
	DisplayName  string `json:"display_name"`
	EmailAddress string `json:"email_address"`
}

func fromDrive(f *drive.File) *File {
	if f == nil {
		return nil
	}
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		Parents:      f.Parents,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		WebViewLink:  f.WebViewLink,
	}
}
