package drivectl

import (
	"context"
	"fmt"
	"time"

	"github.com/vfa-khuongdv/drivectl/internal/database"
	"github.com/vfa-khuongdv/drivectl/internal/notification"
	"github.com/vfa-khuongdv/drivectl/pkg/gdrive"
)

// operationRun tracks one Drive call from start to its history row and notifications
type operationRun struct {
	manager *Manager
	history *database.OperationHistory
	jobName string
	link    string
}

func (m *Manager) beginOperation(operation, fileID, fileName, localPath, jobName string) *operationRun {
	run := &operationRun{
		manager: m,
		jobName: jobName,
		history: &database.OperationHistory{
			Operation: operation,
			FileID:    fileID,
			FileName:  fileName,
			LocalPath: localPath,
			Status:    database.StatusInProgress,
			StartedAt: time.Now(),
		},
	}

	if err := m.dbService.SaveOperationHistory(run.history); err != nil {
		log.Warnf("Failed to save %s history: %v", operation, err)
	}
	return run
}

// file records the Drive file the operation resolved to
func (r *operationRun) file(f *gdrive.File) {
	if f == nil {
		return
	}
	r.history.FileID = f.ID
	r.history.FileName = f.Name
	if f.Size > 0 && r.history.Bytes == 0 {
		r.history.Bytes = f.Size
	}
	r.link = f.WebViewLink
}

func (r *operationRun) finish(ctx context.Context, opErr error) {
	now := time.Now()
	r.history.CompletedAt = &now
	r.history.Status = database.StatusSuccess
	if opErr != nil {
		r.history.Status = database.StatusFailed
		r.history.ErrorMsg = opErr.Error()
	}

	if r.history.ID != 0 {
		if err := r.manager.dbService.UpdateOperationHistory(r.history); err != nil {
			log.Warnf("Failed to update %s history: %v", r.history.Operation, err)
		}
	}

	r.manager.notifyManager.SendOperationNotification(ctx, &notification.OperationNotificationData{
		Operation:    r.history.Operation,
		JobName:      r.jobName,
		FileID:       r.history.FileID,
		FileName:     r.history.FileName,
		LocalPath:    r.history.LocalPath,
		Bytes:        r.history.Bytes,
		WebViewLink:  r.link,
		ErrorMessage: r.history.ErrorMsg,
		StartedAt:    r.history.StartedAt,
		CompletedAt:  now,
	})
}

// UploadFile uploads a local file and returns the created Drive file
func (m *Manager) UploadFile(ctx context.Context, req gdrive.UploadRequest) (*gdrive.File, error) {
	return m.uploadFile(ctx, req, "")
}

func (m *Manager) uploadFile(ctx context.Context, req gdrive.UploadRequest, jobName string) (*gdrive.File, error) {
	run := m.beginOperation(database.OperationUpload, "", req.Name, req.LocalPath, jobName)

	file, err := m.driveService.UploadFile(ctx, req)
	if err != nil {
		log.Errorf("Failed to upload %s: %v", req.LocalPath, err)
		run.finish(ctx, err)
		return nil, err
	}

	run.file(file)
	run.finish(ctx, nil)
	log.Infof("Uploaded %s as '%s' (id %s)", req.LocalPath, file.Name, file.ID)
	return file, nil
}

// ListFiles returns one page of the files in a folder
func (m *Manager) ListFiles(ctx context.Context, opts gdrive.ListOptions) (*gdrive.FileList, error) {
	run := m.beginOperation(database.OperationList, "", "", "", "")

	list, err := m.driveService.ListFiles(ctx, opts)
	if err != nil {
		log.Errorf("Failed to list files: %v", err)
		run.finish(ctx, err)
		return nil, err
	}

	run.finish(ctx, nil)
	log.Infof("Listed %d files", len(list.Files))
	return list, nil
}

// ListAllFiles returns every file in a folder, following page tokens
func (m *Manager) ListAllFiles(ctx context.Context, opts gdrive.ListOptions) ([]*gdrive.File, error) {
	run := m.beginOperation(database.OperationList, "", "", "", "")

	files, err := m.driveService.ListAllFiles(ctx, opts)
	if err != nil {
		log.Errorf("Failed to list files: %v", err)
		run.finish(ctx, err)
		return nil, err
	}

	run.finish(ctx, nil)
	log.Infof("Listed %d files", len(files))
	return files, nil
}

// GetFileMetadata returns the metadata of a file
func (m *Manager) GetFileMetadata(ctx context.Context, fileID string) (*gdrive.File, error) {
	run := m.beginOperation(database.OperationGet, fileID, "", "", "")

	file, err := m.driveService.GetFileMetadata(ctx, fileID)
	if err != nil {
		log.Errorf("Failed to get metadata of %s: %v", fileID, err)
		run.finish(ctx, err)
		return nil, err
	}

	run.file(file)
	run.finish(ctx, nil)
	log.Infof("Fetched metadata of '%s' (id %s, %s)", file.Name, file.ID, file.MimeType)
	return file, nil
}

// UpdateFile renames a file, replaces its content, or both
func (m *Manager) UpdateFile(ctx context.Context, fileID string, req gdrive.UpdateRequest) (*gdrive.File, error) {
	return m.updateFile(ctx, fileID, req, "")
}

func (m *Manager) updateFile(ctx context.Context, fileID string, req gdrive.UpdateRequest, jobName string) (*gdrive.File, error) {
	run := m.beginOperation(database.OperationUpdate, fileID, req.Name, req.LocalPath, jobName)

	file, err := m.driveService.UpdateFile(ctx, fileID, req)
	if err != nil {
		log.Errorf("Failed to update %s: %v", fileID, err)
		run.finish(ctx, err)
		return nil, err
	}

	run.file(file)
	run.finish(ctx, nil)
	log.Infof("Updated '%s' (id %s)", file.Name, file.ID)
	return file, nil
}

// DeleteFile permanently deletes a file
func (m *Manager) DeleteFile(ctx context.Context, fileID string) error {
	run := m.beginOperation(database.OperationDelete, fileID, "", "", "")

	if err := m.driveService.DeleteFile(ctx, fileID); err != nil {
		log.Errorf("Failed to delete %s: %v", fileID, err)
		run.finish(ctx, err)
		return err
	}

	run.finish(ctx, nil)
	log.Infof("Deleted %s", fileID)
	return nil
}

// DownloadFile streams a file's content to destination and returns the bytes written
func (m *Manager) DownloadFile(ctx context.Context, fileID, destination string) (int64, error) {
	run := m.beginOperation(database.OperationDownload, fileID, "", destination, "")

	written, err := m.driveService.DownloadFile(ctx, fileID, destination)
	if err != nil {
		log.Errorf("Failed to download %s to %s: %v", fileID, destination, err)
		run.finish(ctx, err)
		return 0, err
	}

	run.history.Bytes = written
	run.finish(ctx, nil)
	log.Infof("Downloaded %s to %s (%d bytes)", fileID, destination, written)
	return written, nil
}

// CreateFolder creates a folder under parentID, or under the default folder when empty
func (m *Manager) CreateFolder(ctx context.Context, name, parentID string) (*gdrive.File, error) {
	run := m.beginOperation(database.OperationMkdir, "", name, "", "")

	folder, err := m.driveService.CreateFolder(ctx, name, parentID)
	if err != nil {
		log.Errorf("Failed to create folder '%s': %v", name, err)
		run.finish(ctx, err)
		return nil, err
	}

	run.file(folder)
	run.finish(ctx, nil)
	log.Infof("Created folder '%s' (id %s)", folder.Name, folder.ID)
	return folder, nil
}

// EnsureFolder returns the folder named name under parentID, creating it when missing
func (m *Manager) EnsureFolder(ctx context.Context, name, parentID string) (*gdrive.File, error) {
	run := m.beginOperation(database.OperationMkdir, "", name, "", "")

	folder, err := m.driveService.GetOrCreateFolder(ctx, name, m.folderOrDefault(parentID))
	if err != nil {
		log.Errorf("Failed to find or create folder '%s': %v", name, err)
		run.finish(ctx, err)
		return nil, err
	}

	run.file(folder)
	run.finish(ctx, nil)
	log.Infof("Using folder '%s' (id %s)", folder.Name, folder.ID)
	return folder, nil
}

func (m *Manager) folderOrDefault(folderID string) string {
	if folderID != "" {
		return folderID
	}
	return m.driveService.FolderID()
}

// RunUploadJob performs one run of a stored upload job.
// Update-mode jobs replace the content of their remembered file, creating it on the first run
// or when it has been removed from Drive.
func (m *Manager) RunUploadJob(ctx context.Context, job *database.UploadJob) error {
	req := gdrive.UploadRequest{
		LocalPath: job.LocalPath,
		Name:      job.RemoteName,
		MimeType:  job.MimeType,
		FolderID:  job.FolderID,
	}

	switch job.Mode {
	case database.JobModeCreate, "":
		_, err := m.uploadFile(ctx, req, job.Name)
		return err

	case database.JobModeUpdate:
		if job.FileID != "" {
			_, err := m.updateFile(ctx, job.FileID, gdrive.UpdateRequest{
				Name:      job.RemoteName,
				LocalPath: job.LocalPath,
				MimeType:  job.MimeType,
			}, job.Name)
			if !gdrive.IsNotFound(err) {
				return err
			}
			log.Warnf("File %s of upload job '%s' no longer exists, uploading a new one", job.FileID, job.Name)
		}

		file, err := m.uploadFile(ctx, req, job.Name)
		if err != nil {
			return err
		}

		job.FileID = file.ID
		if err := m.dbService.UpdateUploadJob(job); err != nil {
			return fmt.Errorf("failed to remember file of upload job '%s': %w", job.Name, err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported upload job mode: %s", job.Mode)
	}
}
