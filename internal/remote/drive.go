// Drive API client (hierarchical file store side of the migration).
//
// Response shapes follow the Google Drive v3 files collection.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"photosync-backend/internal/auth"
)

// FolderMimeType marks a file entry as a folder in listings.
const FolderMimeType = "application/vnd.google-apps.folder"

// File is a single Drive entry (file or folder).
type File struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Size     *int64   `json:"size,string,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// IsFolder reports whether the entry is a folder rather than downloadable content.
func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// FolderListing is one page of a folder's children.
type FolderListing struct {
	Files         []File `json:"files"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// DriveClient talks to the Drive-like API: paginated folder listing, file
// metadata and byte download.
type DriveClient struct {
	baseURL  string
	caller   *Caller
	pageSize int
}

func NewDriveClient(baseURL string, pageSize int, opts CallerOpts) *DriveClient {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &DriveClient{
		baseURL:  baseURL,
		caller:   NewCaller("Drive", opts),
		pageSize: pageSize,
	}
}

// ListFolder returns one page of the folder's direct children.
// Pass an empty pageToken for the first page.
func (c *DriveClient) ListFolder(ctx context.Context, sess *auth.Session, folderID, pageToken string) (*FolderListing, error) {
	resp, err := c.caller.Do(ctx, sess, func() (*http.Request, error) {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
		q.Set("fields", "nextPageToken, files(id, name, mimeType, size, parents)")
		q.Set("pageSize", strconv.Itoa(c.pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		return http.NewRequest(http.MethodGet, c.baseURL+"/files?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}
	defer resp.Body.Close()

	var listing FolderListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode folder listing: %w", err)
	}
	return &listing, nil
}

// GetFile fetches metadata for a single file or folder.
func (c *DriveClient) GetFile(ctx context.Context, sess *auth.Session, fileID string) (*File, error) {
	resp, err := c.caller.Do(ctx, sess, func() (*http.Request, error) {
		q := url.Values{}
		q.Set("fields", "id, name, mimeType, size, parents")
		return http.NewRequest(http.MethodGet, c.baseURL+"/files/"+url.PathEscape(fileID)+"?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode file metadata: %w", err)
	}
	return &f, nil
}

// Download streams the file's bytes. Caller must close the reader.
func (c *DriveClient) Download(ctx context.Context, sess *auth.Session, fileID string) (io.ReadCloser, error) {
	resp, err := c.caller.Do(ctx, sess, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseURL+"/files/"+url.PathEscape(fileID)+"?alt=media", nil)
	})
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	return resp.Body, nil
}
