package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var log = logging.Logger("gdrive")

const (
	// DefaultPageSize is the number of files returned by a listing
	DefaultPageSize int64 = 10

	// the leading fields are the base masks for get, update and list
	fileFields = "id, name, mimeType, size, parents, createdTime, modifiedTime, webViewLink"
	listFields = "nextPageToken, files(" + fileFields + ")"

	defaultMimeType = "application/octet-stream"
)

// ClientProvider hands out authenticated HTTP clients
type ClientProvider interface {
	GetClient(ctx context.Context) (*http.Client, error)
}

// Service handles Google Drive operations
type Service struct {
	authService   ClientProvider
	folderID      string
	pageSize      int64
	limiter       *rate.Limiter
	clientOptions []option.ClientOption
}

// Option configures a Service
type Option func(*Service)

// WithFolder sets the folder used when a call does not name one
func WithFolder(folderID string) Option {
	return func(s *Service) {
		s.folderID = folderID
	}
}

// WithPageSize sets the default listing page size
func WithPageSize(pageSize int64) Option {
	return func(s *Service) {
		if pageSize > 0 {
			s.pageSize = pageSize
		}
	}
}

// WithRateLimit paces API requests to rps requests per second. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Service) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClientOptions appends options passed to drive.NewService
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *Service) {
		s.clientOptions = append(s.clientOptions, opts...)
	}
}

// NewService creates a new Google Drive service
func NewService(authService ClientProvider, opts ...Option) *Service {
	s := &Service{
		authService: authService,
		pageSize:    DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FolderID returns the default folder
func (s *Service) FolderID() string {
	return s.folderID
}

func (s *Service) driveService(ctx context.Context) (*drive.Service, error) {
	client, err := s.authService.GetClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(withRateLimit(client, s.limiter))}, s.clientOptions...)
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return driveService, nil
}

func (s *Service) folderOrDefault(folderID string) string {
	if folderID != "" {
		return folderID
	}
	return s.folderID
}

// UploadFile uploads a local file to Google Drive
func (s *Service) UploadFile(ctx context.Context, req UploadRequest) (*File, error) {
	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(req.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("failed to open file: %s is a directory", req.LocalPath)
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(req.LocalPath)
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = DetectMimeType(req.LocalPath)
	}

	driveFile := &drive.File{
		Name:        name,
		Description: req.Description,
	}

	if folderID := s.folderOrDefault(req.FolderID); folderID != "" {
		driveFile.Parents = []string{folderID}
	}

	log.Debugf("Uploading %s as '%s' (%s)", req.LocalPath, name, mimeType)
	res, err := driveService.Files.Create(driveFile).
		Media(file, googleapi.ContentType(mimeType)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to drive: %w", err)
	}

	result := fromDrive(res)
	if result.Size == 0 {
		result.Size = fileInfo.Size()
	}
	return result, nil
}

// ListFiles returns a single page of files in a folder
func (s *Service) ListFiles(ctx context.Context, opts ListOptions) (*FileList, error) {
	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.listCall(driveService, opts).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return toFileList(res), nil
}

// ListAllFiles follows page tokens until the listing is exhausted
func (s *Service) ListAllFiles(ctx context.Context, opts ListOptions) ([]*File, error) {
	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	var files []*File
	err = s.listCall(driveService, opts).Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			files = append(files, fromDrive(f))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (s *Service) listCall(driveService *drive.Service, opts ListOptions) *drive.FilesListCall {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	call := driveService.Files.List().
		Fields(listFields).
		PageSize(pageSize)

	if q := BuildQuery(s.folderOrDefault(opts.FolderID), opts.Query, opts.ExcludeTrashed); q != "" {
		call = call.Q(q)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if opts.OrderBy != "" {
		call = call.OrderBy(opts.OrderBy)
	}
	return call
}

func toFileList(res *drive.FileList) *FileList {
	list := &FileList{NextPageToken: res.NextPageToken}
	for _, f := range res.Files {
		list.Files = append(list.Files, fromDrive(f))
	}
	return list
}

// GetFileMetadata gets information about a file
func (s *Service) GetFileMetadata(ctx context.Context, fileID string) (*File, error) {
	if fileID == "" {
		return nil, ErrMissingFileID
	}

	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	file, err := driveService.Files.Get(fileID).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file metadata: %w", err)
	}

	return fromDrive(file), nil
}

// UpdateFile renames a file, replaces its content, or both
func (s *Service) UpdateFile(ctx context.Context, fileID string, req UpdateRequest) (*File, error) {
	if fileID == "" {
		return nil, ErrMissingFileID
	}
	if req.Name == "" && req.LocalPath == "" {
		return nil, ErrNothingToUpdate
	}

	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	call := driveService.Files.Update(fileID, &drive.File{Name: req.Name}).Fields(fileFields)

	if req.LocalPath != "" {
		file, err := os.Open(req.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		mimeType := req.MimeType
		if mimeType == "" {
			mimeType = DetectMimeType(req.LocalPath)
		}
		call = call.Media(file, googleapi.ContentType(mimeType))
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}

	return fromDrive(res), nil
}

// DeleteFile deletes a file from Google Drive
func (s *Service) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return ErrMissingFileID
	}

	driveService, err := s.driveService(ctx)
	if err != nil {
		return err
	}

	if err := driveService.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// DownloadFile streams the content of a file to destination and returns the bytes written.
// A partially written destination is removed on failure.
func (s *Service) DownloadFile(ctx context.Context, fileID, destination string) (int64, error) {
	if fileID == "" {
		return 0, ErrMissingFileID
	}
	if destination == "" {
		return 0, fmt.Errorf("destination is required")
	}

	driveService, err := s.driveService(ctx)
	if err != nil {
		return 0, err
	}

	resp, err := driveService.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return 0, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.Create(destination)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destination)
		return 0, fmt.Errorf("failed to write destination: %w", err)
	}

	return written, nil
}

// CreateFolder creates a folder in Google Drive
func (s *Service) CreateFolder(ctx context.Context, name string, parentFolderID ...string) (*File, error) {
	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	folder := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}

	// Set parent folder if provided
	if len(parentFolderID) > 0 && parentFolderID[0] != "" {
		folder.Parents = []string{parentFolderID[0]}
	} else if s.folderID != "" {
		folder.Parents = []string{s.folderID}
	}

	res, err := driveService.Files.Create(folder).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return fromDrive(res), nil
}

// FindFolder finds a folder by name
func (s *Service) FindFolder(ctx context.Context, name string, parentFolderID ...string) (*File, error) {
	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", EscapeQueryValue(name), FolderMimeType)

	// Add parent folder constraint if provided
	if len(parentFolderID) > 0 && parentFolderID[0] != "" {
		query = fmt.Sprintf("%s and '%s' in parents", query, EscapeQueryValue(parentFolderID[0]))
	}

	res, err := driveService.Files.List().Q(query).Fields(listFields).PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search for folder: %w", err)
	}

	if len(res.Files) == 0 {
		return nil, fmt.Errorf("folder '%s': %w", name, ErrFolderNotFound)
	}

	return fromDrive(res.Files[0]), nil
}

// GetOrCreateFolder gets an existing folder or creates a new one
func (s *Service) GetOrCreateFolder(ctx context.Context, name string, parentFolderID ...string) (*File, error) {
	folder, err := s.FindFolder(ctx, name, parentFolderID...)
	if err == nil {
		return folder, nil
	}
	if !errors.Is(err, ErrFolderNotFound) {
		return nil, err
	}

	return s.CreateFolder(ctx, name, parentFolderID...)
}

// GetAccount returns the identity behind the credentials
func (s *Service) GetAccount(ctx context.Context) (*Account, error) {
	driveService, err := s.driveService(ctx)
	if err != nil {
		return nil, err
	}

	about, err := driveService.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if about.User == nil {
		return &Account{}, nil
	}

	return &Account{
		DisplayName:  about.User.DisplayName,
		EmailAddress: about.User.EmailAddress,
	}, nil
}

// BuildQuery joins the folder constraint, the optional trash filter and an extra query.
// With only a folder it is exactly "'<folder>' in parents", so trashed children are listed.
func BuildQuery(folderID, query string, excludeTrashed bool) string {
	var clauses []string
	if folderID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", EscapeQueryValue(folderID)))
	}
	if excludeTrashed {
		clauses = append(clauses, "trashed = false")
	}
	if query != "" {
		clauses = append(clauses, "("+query+")")
	}
	return strings.Join(clauses, " and ")
}

// EscapeQueryValue escapes a value for use inside single quotes in a Drive query
func EscapeQueryValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

// DetectMimeType guesses a MIME type from the file extension
func DetectMimeType(path string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		return mimeType
	}
	return defaultMimeType
}
