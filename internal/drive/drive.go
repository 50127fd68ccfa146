// Package drive fetches spreadsheet blobs from an external file store.
// The remote implementation talks to Google Drive; LocalDir serves the
// watcher's drop folder and tests through the same interface.
package drive

import (
	"context"
	"fmt"
	"io"
	"log"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// File is one downloaded spreadsheet.
type File struct {
	Name    string
	Content []byte
}

// Source lists and downloads the spreadsheets under a folder. An empty
// result means nothing found, not an error; transport and auth failures
// surface as errors and abort the caller's sync.
type Source interface {
	Fetch(ctx context.Context, folderID string) ([]File, error)
}

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

// GoogleDrive fetches Excel files from a Drive folder using a service
// account credentials file.
type GoogleDrive struct {
	svc *drive.Service
}

func NewGoogleDrive(ctx context.Context, credentialsFile string) (*GoogleDrive, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &GoogleDrive{svc: svc}, nil
}

func (g *GoogleDrive) Fetch(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and (mimeType = '%s' or mimeType = '%s') and trashed = false",
		folderID, mimeXLSX, mimeXLS)

	list, err := g.svc.Files.List().
		Q(query).
		Fields("files(id, name, size, modifiedTime)").
		PageSize(1000).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive list %s: %w", folderID, err)
	}
	if len(list.Files) == 0 {
		log.Printf("drive: no spreadsheet files in folder %s", folderID)
		return nil, nil
	}

	var out []File
	for _, f := range list.Files {
		content, err := g.download(ctx, f.Id)
		if err != nil {
			// one broken download should not sink the rest
			log.Printf("drive: download %s failed: %v", f.Name, err)
			continue
		}
		out = append(out, File{Name: f.Name, Content: content})
	}
	log.Printf("drive: downloaded %d of %d files from %s", len(out), len(list.Files), folderID)
	return out, nil
}

func (g *GoogleDrive) download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := g.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
