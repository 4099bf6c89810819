package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// MockAuthService is a mock implementation of the auth service
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) GetClient(ctx context.Context) (*http.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Client), args.Error(1)
}

type fakeFile struct {
	meta    drive.File
	content []byte
}

// fakeDrive serves the subset of the Drive v3 API used by Service
type fakeDrive struct {
	mu          sync.Mutex
	order       []string
	files       map[string]*fakeFile
	nextID      int
	queries     []string
	pageSizes   []string
	fields      []string
	mediaTypes  []string
	paths       []string
	failUploads bool
	// media responses announce more bytes than they send, then drop the connection
	truncateDownloads bool
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string]*fakeFile)}
}

var (
	parentPattern = regexp.MustCompile(`'([^']+)' in parents`)
	namePattern   = regexp.MustCompile(`name = '([^']*)'`)
)

func (f *fakeDrive) add(meta drive.File, content []byte) *drive.File {
	f.nextID++
	meta.Id = fmt.Sprintf("file-%d", f.nextID)
	if content != nil {
		meta.Size = int64(len(content))
	}
	f.files[meta.Id] = &fakeFile{meta: meta, content: content}
	f.order = append(f.order, meta.Id)
	return &f.files[meta.Id].meta
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.fields = append(f.fields, r.URL.Query().Get("fields"))

	switch {
	case r.URL.Path == "/drive/v3/about":
		writeJSON(w, map[string]interface{}{
			"user": map[string]string{"displayName": "Drive Robot", "emailAddress": "robot@example.com"},
		})

	case r.URL.Path == "/upload/drive/v3/files" && r.Method == http.MethodPost:
		if f.failUploads {
			writeError(w, http.StatusForbidden, "storage quota exceeded")
			return
		}
		meta, content, err := f.readMultipart(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, f.add(meta, content))

	case r.URL.Path == "/drive/v3/files" && r.Method == http.MethodPost:
		var meta drive.File
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, f.add(meta, nil))

	case r.URL.Path == "/drive/v3/files" && r.Method == http.MethodGet:
		f.list(w, r)

	case strings.HasPrefix(r.URL.Path, "/upload/drive/v3/files/") && r.Method == http.MethodPatch:
		file, ok := f.files[strings.TrimPrefix(r.URL.Path, "/upload/drive/v3/files/")]
		if !ok {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		meta, content, err := f.readMultipart(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if meta.Name != "" {
			file.meta.Name = meta.Name
		}
		file.content = content
		file.meta.Size = int64(len(content))
		file.meta.MimeType = meta.MimeType
		writeJSON(w, &file.meta)

	case strings.HasPrefix(r.URL.Path, "/drive/v3/files/"):
		id := strings.TrimPrefix(r.URL.Path, "/drive/v3/files/")
		file, ok := f.files[id]
		if !ok {
			writeError(w, http.StatusNotFound, "File not found: "+id)
			return
		}
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("alt") == "media" {
				if f.truncateDownloads {
					writeTruncated(w, file.content)
					return
				}
				w.Header().Set("Content-Type", file.meta.MimeType)
				w.Write(file.content)
				return
			}
			writeJSON(w, &file.meta)
		case http.MethodPatch:
			var meta drive.File
			if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if meta.Name != "" {
				file.meta.Name = meta.Name
			}
			writeJSON(w, &file.meta)
		case http.MethodDelete:
			delete(f.files, id)
			w.WriteHeader(http.StatusNoContent)
		}

	default:
		writeError(w, http.StatusNotFound, "unknown path "+r.URL.Path)
	}
}

func (f *fakeDrive) readMultipart(r *http.Request) (drive.File, []byte, error) {
	var meta drive.File

	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return meta, nil, err
	}
	reader := multipart.NewReader(r.Body, params["boundary"])

	part, err := reader.NextPart()
	if err != nil {
		return meta, nil, err
	}
	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		return meta, nil, err
	}

	part, err = reader.NextPart()
	if err != nil {
		return meta, nil, err
	}
	content, err := io.ReadAll(part)
	if err != nil {
		return meta, nil, err
	}

	mediaType := part.Header.Get("Content-Type")
	f.mediaTypes = append(f.mediaTypes, mediaType)
	if meta.MimeType == "" {
		meta.MimeType = mediaType
	}
	return meta, content, nil
}

func (f *fakeDrive) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	f.queries = append(f.queries, q)
	f.pageSizes = append(f.pageSizes, r.URL.Query().Get("pageSize"))

	var matched []*drive.File
	for _, id := range f.order {
		file, ok := f.files[id]
		if !ok {
			continue
		}
		if m := parentPattern.FindStringSubmatch(q); m != nil && !contains(file.meta.Parents, m[1]) {
			continue
		}
		if m := namePattern.FindStringSubmatch(q); m != nil && file.meta.Name != m[1] {
			continue
		}
		if strings.Contains(q, "mimeType = '"+FolderMimeType+"'") && file.meta.MimeType != FolderMimeType {
			continue
		}
		if strings.Contains(q, "trashed = false") && file.meta.Trashed {
			continue
		}
		matched = append(matched, &file.meta)
	}

	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}
	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	end := start + pageSize
	next := ""
	if end < len(matched) {
		next = strconv.Itoa(end)
	} else {
		end = len(matched)
	}
	if start > end {
		start = end
	}

	writeJSON(w, &drive.FileList{Files: matched[start:end], NextPageToken: next})
}

func writeTruncated(w http.ResponseWriter, content []byte) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		writeError(w, http.StatusInternalServerError, "hijacking not supported")
		return
	}
	conn, buf, err := hijacker.Hijack()
	if err != nil {
		return
	}
	defer conn.Close()

	fmt.Fprintf(buf, "HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: %d\r\n\r\n", len(content)+1024)
	buf.Write(content)
	buf.Flush()
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": message},
	})
}

// ServiceTestSuite for gdrive service tests
type ServiceTestSuite struct {
	suite.Suite
	fake     *fakeDrive
	server   *httptest.Server
	mockAuth *MockAuthService
	service  *Service
	tempDir  string
	testFile string
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.fake = newFakeDrive()
	suite.server = httptest.NewServer(suite.fake)

	suite.mockAuth = &MockAuthService{}
	suite.mockAuth.On("GetClient", mock.Anything).Return(suite.server.Client(), nil)

	suite.service = NewService(suite.mockAuth,
		WithFolder("folder-123"),
		WithClientOptions(option.WithEndpoint(suite.server.URL+"/drive/v3/")),
	)

	suite.tempDir = suite.T().TempDir()
	suite.testFile = filepath.Join(suite.tempDir, "report.txt")
	suite.Require().NoError(os.WriteFile(suite.testFile, []byte("quarterly numbers"), 0644))
}

func (suite *ServiceTestSuite) TearDownTest() {
	suite.server.Close()
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (suite *ServiceTestSuite) TestNewService_Defaults() {
	service := NewService(suite.mockAuth)
	suite.Equal(DefaultPageSize, service.pageSize)
	suite.Empty(service.FolderID())
	suite.Nil(service.limiter)
}

func (suite *ServiceTestSuite) TestNewService_Options() {
	service := NewService(suite.mockAuth, WithFolder("abc"), WithPageSize(50), WithRateLimit(5, 0))
	suite.Equal("abc", service.FolderID())
	suite.Equal(int64(50), service.pageSize)
	suite.Require().NotNil(service.limiter)
	suite.Equal(1, service.limiter.Burst())

	service = NewService(suite.mockAuth, WithPageSize(-1), WithRateLimit(0, 10))
	suite.Equal(DefaultPageSize, service.pageSize)
	suite.Nil(service.limiter)
}

func (suite *ServiceTestSuite) TestUploadFile_Success() {
	file, err := suite.service.UploadFile(context.Background(), UploadRequest{LocalPath: suite.testFile})
	suite.Require().NoError(err)

	suite.Equal("file-1", file.ID)
	suite.Equal("report.txt", file.Name)
	suite.Equal([]string{"folder-123"}, file.Parents)
	suite.Equal(int64(len("quarterly numbers")), file.Size)
	suite.Equal([]byte("quarterly numbers"), suite.fake.files["file-1"].content)
	suite.Contains(suite.fake.mediaTypes[0], "text/plain")
	suite.Contains(suite.fake.paths, "POST /upload/drive/v3/files")
}

func (suite *ServiceTestSuite) TestUploadFile_Overrides() {
	file, err := suite.service.UploadFile(context.Background(), UploadRequest{
		LocalPath: suite.testFile,
		Name:      "renamed.csv",
		MimeType:  "text/csv",
		FolderID:  "other-folder",
	})
	suite.Require().NoError(err)

	suite.Equal("renamed.csv", file.Name)
	suite.Equal([]string{"other-folder"}, file.Parents)
	suite.Equal("text/csv", suite.fake.mediaTypes[0])
}

func (suite *ServiceTestSuite) TestUploadFile_FileNotFound() {
	result, err := suite.service.UploadFile(context.Background(), UploadRequest{LocalPath: "/non/existent/file.txt"})
	suite.Error(err)
	suite.Nil(result)
	suite.Contains(err.Error(), "failed to open file")
}

func (suite *ServiceTestSuite) TestUploadFile_Directory() {
	result, err := suite.service.UploadFile(context.Background(), UploadRequest{LocalPath: suite.tempDir})
	suite.Error(err)
	suite.Nil(result)
	suite.Contains(err.Error(), "is a directory")
}

func (suite *ServiceTestSuite) TestUploadFile_APIError() {
	suite.fake.failUploads = true

	result, err := suite.service.UploadFile(context.Background(), UploadRequest{LocalPath: suite.testFile})
	suite.Error(err)
	suite.Nil(result)
	suite.Contains(err.Error(), "failed to upload file to drive")
	suite.Contains(err.Error(), "storage quota exceeded")
}

func (suite *ServiceTestSuite) TestUploadFile_AuthError() {
	mockAuth := &MockAuthService{}
	mockAuth.On("GetClient", mock.Anything).Return(nil, errors.New("authentication failed"))
	service := NewService(mockAuth)

	result, err := service.UploadFile(context.Background(), UploadRequest{LocalPath: suite.testFile})
	suite.Error(err)
	suite.Nil(result)
	suite.Contains(err.Error(), "failed to get authenticated client")
	suite.Contains(err.Error(), "authentication failed")

	mockAuth.AssertExpectations(suite.T())
}

func (suite *ServiceTestSuite) TestListFiles_DefaultFolder() {
	suite.fake.add(drive.File{Name: "a.txt", Parents: []string{"folder-123"}}, []byte("a"))
	suite.fake.add(drive.File{Name: "elsewhere.txt", Parents: []string{"other"}}, []byte("b"))

	list, err := suite.service.ListFiles(context.Background(), ListOptions{})
	suite.Require().NoError(err)

	suite.Require().Len(list.Files, 1)
	suite.Equal("a.txt", list.Files[0].Name)
	suite.Empty(list.NextPageToken)
	suite.Equal("'folder-123' in parents", suite.fake.queries[0])
	suite.Equal("10", suite.fake.pageSizes[0])
}

func (suite *ServiceTestSuite) TestListFiles_TrashedChildren() {
	suite.fake.add(drive.File{Name: "live.txt", Parents: []string{"folder-123"}}, []byte("a"))
	suite.fake.add(drive.File{Name: "binned.txt", Parents: []string{"folder-123"}, Trashed: true}, []byte("b"))

	all, err := suite.service.ListFiles(context.Background(), ListOptions{})
	suite.Require().NoError(err)
	suite.Len(all.Files, 2)

	live, err := suite.service.ListFiles(context.Background(), ListOptions{ExcludeTrashed: true})
	suite.Require().NoError(err)
	suite.Require().Len(live.Files, 1)
	suite.Equal("live.txt", live.Files[0].Name)
	suite.Equal("'folder-123' in parents and trashed = false", suite.fake.queries[1])
}

func (suite *ServiceTestSuite) TestListFiles_Paging() {
	for i := 0; i < 3; i++ {
		suite.fake.add(drive.File{Name: fmt.Sprintf("f%d", i), Parents: []string{"folder-123"}}, []byte("x"))
	}

	first, err := suite.service.ListFiles(context.Background(), ListOptions{PageSize: 2})
	suite.Require().NoError(err)
	suite.Len(first.Files, 2)
	suite.Equal("2", first.NextPageToken)

	second, err := suite.service.ListFiles(context.Background(), ListOptions{PageSize: 2, PageToken: first.NextPageToken})
	suite.Require().NoError(err)
	suite.Require().Len(second.Files, 1)
	suite.Equal("f2", second.Files[0].Name)
	suite.Empty(second.NextPageToken)
}

func (suite *ServiceTestSuite) TestListFiles_QueryAndTrash() {
	_, err := suite.service.ListFiles(context.Background(), ListOptions{
		FolderID:       "other",
		Query:          "name contains 'backup'",
		ExcludeTrashed: true,
	})
	suite.Require().NoError(err)
	suite.Equal("'other' in parents and trashed = false and (name contains 'backup')", suite.fake.queries[0])
}

func (suite *ServiceTestSuite) TestListAllFiles() {
	for i := 0; i < 5; i++ {
		suite.fake.add(drive.File{Name: fmt.Sprintf("f%d", i), Parents: []string{"folder-123"}}, []byte("x"))
	}

	files, err := suite.service.ListAllFiles(context.Background(), ListOptions{PageSize: 2})
	suite.Require().NoError(err)
	suite.Len(files, 5)
	suite.Len(suite.fake.queries, 3)
}

func (suite *ServiceTestSuite) TestGetFileMetadata() {
	created := suite.fake.add(drive.File{Name: "a.txt", MimeType: "text/plain", Parents: []string{"folder-123"}}, []byte("abc"))

	file, err := suite.service.GetFileMetadata(context.Background(), created.Id)
	suite.Require().NoError(err)
	suite.Equal(created.Id, file.ID)
	suite.Equal("a.txt", file.Name)
	suite.Equal("text/plain", file.MimeType)
	suite.Equal(int64(3), file.Size)

	last := suite.fake.fields[len(suite.fake.fields)-1]
	suite.Contains(last, "id")
	suite.Contains(last, "name")
	suite.Contains(last, "mimeType")
}

func (suite *ServiceTestSuite) TestGetFileMetadata_NotFound() {
	file, err := suite.service.GetFileMetadata(context.Background(), "missing")
	suite.Error(err)
	suite.Nil(file)
	suite.True(IsNotFound(err))
	suite.Contains(err.Error(), "failed to get file metadata")
}

func (suite *ServiceTestSuite) TestGetFileMetadata_MissingID() {
	_, err := suite.service.GetFileMetadata(context.Background(), "")
	suite.ErrorIs(err, ErrMissingFileID)
	suite.mockAuth.AssertNotCalled(suite.T(), "GetClient", mock.Anything)
}

func (suite *ServiceTestSuite) TestFieldMasks() {
	ctx := context.Background()
	created := suite.fake.add(drive.File{Name: "a.txt", Parents: []string{"folder-123"}}, []byte("abc"))

	_, err := suite.service.ListFiles(ctx, ListOptions{})
	suite.Require().NoError(err)
	_, err = suite.service.GetFileMetadata(ctx, created.Id)
	suite.Require().NoError(err)
	_, err = suite.service.UpdateFile(ctx, created.Id, UpdateRequest{Name: "b.txt"})
	suite.Require().NoError(err)

	// the extended masks keep the base fields in front
	suite.Require().Len(suite.fake.fields, 3)
	suite.True(strings.HasPrefix(suite.fake.fields[0], "nextPageToken, files(id, name"), suite.fake.fields[0])
	suite.True(strings.HasPrefix(suite.fake.fields[1], "id, name, mimeType"), suite.fake.fields[1])
	suite.True(strings.HasPrefix(suite.fake.fields[2], "id, name"), suite.fake.fields[2])
}

func (suite *ServiceTestSuite) TestUpdateFile_RenameOnly() {
	created := suite.fake.add(drive.File{Name: "old.txt"}, []byte("keep"))

	file, err := suite.service.UpdateFile(context.Background(), created.Id, UpdateRequest{Name: "new.txt"})
	suite.Require().NoError(err)
	suite.Equal("new.txt", file.Name)
	suite.Equal([]byte("keep"), suite.fake.files[created.Id].content)
	suite.Contains(suite.fake.paths, "PATCH /drive/v3/files/"+created.Id)
}

func (suite *ServiceTestSuite) TestUpdateFile_NameAndContent() {
	created := suite.fake.add(drive.File{Name: "old.txt"}, []byte("old"))

	file, err := suite.service.UpdateFile(context.Background(), created.Id, UpdateRequest{
		Name:      "report.txt",
		LocalPath: suite.testFile,
	})
	suite.Require().NoError(err)
	suite.Equal("report.txt", file.Name)
	suite.Equal([]byte("quarterly numbers"), suite.fake.files[created.Id].content)
	suite.Contains(suite.fake.paths, "PATCH /upload/drive/v3/files/"+created.Id)
}

func (suite *ServiceTestSuite) TestUpdateFile_Validation() {
	_, err := suite.service.UpdateFile(context.Background(), "file-1", UpdateRequest{})
	suite.ErrorIs(err, ErrNothingToUpdate)

	_, err = suite.service.UpdateFile(context.Background(), "", UpdateRequest{Name: "x"})
	suite.ErrorIs(err, ErrMissingFileID)

	_, err = suite.service.UpdateFile(context.Background(), "file-1", UpdateRequest{LocalPath: "/non/existent"})
	suite.Error(err)
	suite.Contains(err.Error(), "failed to open file")
}

func (suite *ServiceTestSuite) TestUpdateFile_NotFound() {
	_, err := suite.service.UpdateFile(context.Background(), "missing", UpdateRequest{Name: "x"})
	suite.Error(err)
	suite.True(IsNotFound(err))
}

func (suite *ServiceTestSuite) TestDeleteFile() {
	created := suite.fake.add(drive.File{Name: "a.txt"}, []byte("a"))

	suite.Require().NoError(suite.service.DeleteFile(context.Background(), created.Id))
	suite.NotContains(suite.fake.files, created.Id)

	err := suite.service.DeleteFile(context.Background(), created.Id)
	suite.Error(err)
	suite.True(IsNotFound(err))
	suite.Contains(err.Error(), "failed to delete file")

	suite.ErrorIs(suite.service.DeleteFile(context.Background(), ""), ErrMissingFileID)
}

func (suite *ServiceTestSuite) TestDownloadFile() {
	created := suite.fake.add(drive.File{Name: "a.bin", MimeType: "application/octet-stream"}, []byte("binary-content"))
	dest := filepath.Join(suite.tempDir, "downloaded.bin")

	written, err := suite.service.DownloadFile(context.Background(), created.Id, dest)
	suite.Require().NoError(err)
	suite.Equal(int64(len("binary-content")), written)

	data, err := os.ReadFile(dest)
	suite.Require().NoError(err)
	suite.Equal([]byte("binary-content"), data)
}

func (suite *ServiceTestSuite) TestDownloadFile_NotFound() {
	dest := filepath.Join(suite.tempDir, "missing.bin")

	_, err := suite.service.DownloadFile(context.Background(), "missing", dest)
	suite.Error(err)
	suite.True(IsNotFound(err))
	suite.NoFileExists(dest)
}

func (suite *ServiceTestSuite) TestDownloadFile_InterruptedRemovesDestination() {
	created := suite.fake.add(drive.File{Name: "big.bin"}, []byte("only the first part"))
	suite.fake.truncateDownloads = true
	dest := filepath.Join(suite.tempDir, "big.bin")

	written, err := suite.service.DownloadFile(context.Background(), created.Id, dest)
	suite.Error(err)
	suite.Contains(err.Error(), "failed to write destination")
	suite.Zero(written)
	suite.NoFileExists(dest)
}

func (suite *ServiceTestSuite) TestDownloadFile_Validation() {
	_, err := suite.service.DownloadFile(context.Background(), "", "out")
	suite.ErrorIs(err, ErrMissingFileID)

	_, err = suite.service.DownloadFile(context.Background(), "file-1", "")
	suite.Error(err)
	suite.Contains(err.Error(), "destination is required")
}

func (suite *ServiceTestSuite) TestDownloadFile_BadDestination() {
	created := suite.fake.add(drive.File{Name: "a.bin"}, []byte("x"))

	_, err := suite.service.DownloadFile(context.Background(), created.Id, filepath.Join(suite.tempDir, "no", "such", "dir", "a.bin"))
	suite.Error(err)
	suite.Contains(err.Error(), "failed to create destination")
}

func (suite *ServiceTestSuite) TestCreateFolder() {
	folder, err := suite.service.CreateFolder(context.Background(), "Reports")
	suite.Require().NoError(err)
	suite.True(folder.IsFolder())
	suite.Equal([]string{"folder-123"}, folder.Parents)

	nested, err := suite.service.CreateFolder(context.Background(), "2024", folder.ID)
	suite.Require().NoError(err)
	suite.Equal([]string{folder.ID}, nested.Parents)
}

func (suite *ServiceTestSuite) TestFindFolder() {
	folder := suite.fake.add(drive.File{Name: "Reports", MimeType: FolderMimeType, Parents: []string{"folder-123"}}, nil)
	suite.fake.add(drive.File{Name: "Reports", MimeType: "text/plain", Parents: []string{"folder-123"}}, []byte("x"))

	found, err := suite.service.FindFolder(context.Background(), "Reports", "folder-123")
	suite.Require().NoError(err)
	suite.Equal(folder.Id, found.ID)

	_, err = suite.service.FindFolder(context.Background(), "Missing")
	suite.ErrorIs(err, ErrFolderNotFound)
}

func (suite *ServiceTestSuite) TestGetOrCreateFolder() {
	created, err := suite.service.GetOrCreateFolder(context.Background(), "Archive")
	suite.Require().NoError(err)
	suite.True(created.IsFolder())

	again, err := suite.service.GetOrCreateFolder(context.Background(), "Archive")
	suite.Require().NoError(err)
	suite.Equal(created.ID, again.ID)
	suite.Len(suite.fake.files, 1)
}

func (suite *ServiceTestSuite) TestGetAccount() {
	account, err := suite.service.GetAccount(context.Background())
	suite.Require().NoError(err)
	suite.Equal("Drive Robot", account.DisplayName)
	suite.Equal("robot@example.com", account.EmailAddress)
}

func (suite *ServiceTestSuite) TestRateLimitedService() {
	service := NewService(suite.mockAuth,
		WithFolder("folder-123"),
		WithRateLimit(1000, 5),
		WithClientOptions(option.WithEndpoint(suite.server.URL+"/drive/v3/")),
	)

	_, err := service.ListFiles(context.Background(), ListOptions{})
	suite.NoError(err)
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name           string
		folderID       string
		query          string
		excludeTrashed bool
		expected       string
	}{
		{"folder only", "abc", "", false, "'abc' in parents"},
		{"without trashed", "abc", "", true, "'abc' in parents and trashed = false"},
		{"extra query", "abc", "name = 'x'", false, "'abc' in parents and (name = 'x')"},
		{"extra query without trashed", "abc", "name = 'x'", true, "'abc' in parents and trashed = false and (name = 'x')"},
		{"no folder", "", "", false, ""},
		{"no folder without trashed", "", "", true, "trashed = false"},
		{"escaped folder", "it's", "", false, `'it\'s' in parents`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildQuery(tt.folderID, tt.query, tt.excludeTrashed))
		})
	}
}

func TestEscapeQueryValue(t *testing.T) {
	assert.Equal(t, `O\'Brien`, EscapeQueryValue("O'Brien"))
	assert.Equal(t, `a\\b`, EscapeQueryValue(`a\b`))
	assert.Equal(t, "plain", EscapeQueryValue("plain"))
}

func TestDetectMimeType(t *testing.T) {
	assert.Contains(t, DetectMimeType("notes.txt"), "text/plain")
	assert.Equal(t, "application/pdf", DetectMimeType("doc.pdf"))
	assert.Equal(t, "application/octet-stream", DetectMimeType("noext"))
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestFile_IsFolder(t *testing.T) {
	assert.True(t, (&File{MimeType: FolderMimeType}).IsFolder())
	assert.False(t, (&File{MimeType: "text/plain"}).IsFolder())
}

func TestWithRateLimit_CopiesClient(t *testing.T) {
	client := &http.Client{Timeout: time.Second}

	assert.Same(t, client, withRateLimit(client, nil))

	limited := withRateLimit(client, rate.NewLimiter(rate.Inf, 1))
	assert.NotSame(t, client, limited)
	assert.Nil(t, client.Transport)
	assert.Equal(t, time.Second, limited.Timeout)
	assert.IsType(t, &rateLimitedTransport{}, limited.Transport)
}

func TestRateLimitedTransport_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := withRateLimit(server.Client(), rate.NewLimiter(rate.Every(time.Hour), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	assert.NoError(t, err)

	_, err = client.Do(req)
	assert.Error(t, err)
}
