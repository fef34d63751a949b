// Photos API client (flat media library side of the migration).
//
// Upload is the real API's two-step dance: raw bytes produce an upload token,
// then batchCreate turns the token into a media item.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"photosync-backend/internal/auth"
)

// Album is a Photos album.
type Album struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ProductURL  string `json:"productUrl"`
	IsWriteable bool   `json:"isWriteable,omitempty"`
}

// AddResult reports the per-item outcome of an add-media-items call.
// The API can accept some items while rejecting others.
type AddResult struct {
	Added    []string       `json:"added"`
	Rejected []RejectedItem `json:"rejected"`
}

// RejectedItem is one media item the album call refused.
type RejectedItem struct {
	MediaItemID string `json:"media_item_id"`
	Reason      string `json:"reason"`
}

// PhotosClient talks to the Photos-like API: byte upload, album create,
// album add-media-items and album fetch.
type PhotosClient struct {
	baseURL string
	caller  *Caller
}

func NewPhotosClient(baseURL string, opts CallerOpts) *PhotosClient {
	return &PhotosClient{
		baseURL: baseURL,
		caller:  NewCaller("Photos", opts),
	}
}

// Upload pushes the file's bytes and resolves them into a media item id.
//
// The byte stream is buffered so the transient-retry interceptor can replay
// the request body.
func (c *PhotosClient) Upload(ctx context.Context, sess *auth.Session, fileName, mimeType string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read upload content: %w", err)
	}

	// Step 1: raw bytes -> upload token
	resp, err := c.caller.Do(ctx, sess, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+"/uploads", bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("X-Goog-Upload-Content-Type", mimeType)
		req.Header.Set("X-Goog-Upload-Protocol", "raw")
		req.Header.Set("X-Goog-Upload-File-Name", fileName)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("upload bytes for %s: %w", fileName, err)
	}
	tokenBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("read upload token: %w", err)
	}
	uploadToken := string(tokenBytes)
	if uploadToken == "" {
		return "", fmt.Errorf("empty upload token for %s", fileName)
	}

	// Step 2: upload token -> media item
	body := map[string]interface{}{
		"newMediaItems": []map[string]interface{}{
			{
				"description": fileName,
				"simpleMediaItem": map[string]string{
					"fileName":    fileName,
					"uploadToken": uploadToken,
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	resp, err = c.caller.Do(ctx, sess, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+"/mediaItems:batchCreate", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("create media item for %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	var result struct {
		NewMediaItemResults []struct {
			Status struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"status"`
			MediaItem *struct {
				ID string `json:"id"`
			} `json:"mediaItem"`
		} `json:"newMediaItemResults"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode batchCreate response: %w", err)
	}
	if len(result.NewMediaItemResults) == 0 {
		return "", fmt.Errorf("batchCreate returned no results for %s", fileName)
	}
	r := result.NewMediaItemResults[0]
	if r.MediaItem == nil || r.MediaItem.ID == "" {
		return "", fmt.Errorf("media item creation rejected for %s: %s", fileName, r.Status.Message)
	}
	return r.MediaItem.ID, nil
}

// CreateAlbum creates a new empty album with the given title.
func (c *PhotosClient) CreateAlbum(ctx context.Context, sess *auth.Session, title string) (*Album, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"album": map[string]string{"title": title},
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.caller.Do(ctx, sess, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+"/albums", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create album %q: %w", title, err)
	}
	defer resp.Body.Close()

	var album Album
	if err := json.NewDecoder(resp.Body).Decode(&album); err != nil {
		return nil, fmt.Errorf("decode album: %w", err)
	}
	return &album, nil
}

// AddMediaItems attaches uploaded media items to an album. The whole call can
// fail, or individual items can be rejected while the rest are added.
func (c *PhotosClient) AddMediaItems(ctx context.Context, sess *auth.Session, albumID string, mediaItemIDs []string) (*AddResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"mediaItemIds": mediaItemIDs,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.caller.Do(ctx, sess, func() (*http.Request, error) {
		u := c.baseURL + "/albums/" + url.PathEscape(albumID) + ":batchAddMediaItems"
		req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("add media items to album %s: %w", albumID, err)
	}
	defer resp.Body.Close()

	// An empty body means all items were added
	var raw struct {
		Results []struct {
			MediaItemID string `json:"mediaItemId"`
			Status      struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"status"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode batchAdd response: %w", err)
	}

	result := &AddResult{}
	if len(raw.Results) == 0 {
		result.Added = mediaItemIDs
		return result, nil
	}
	for _, r := range raw.Results {
		if r.Status.Code == 0 {
			result.Added = append(result.Added, r.MediaItemID)
		} else {
			result.Rejected = append(result.Rejected, RejectedItem{
				MediaItemID: r.MediaItemID,
				Reason:      r.Status.Message,
			})
		}
	}
	return result, nil
}

// GetAlbum fetches an album by id. A missing album surfaces ErrNotFoundOrGone.
func (c *PhotosClient) GetAlbum(ctx context.Context, sess *auth.Session, albumID string) (*Album, error) {
	resp, err := c.caller.Do(ctx, sess, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseURL+"/albums/"+url.PathEscape(albumID), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("get album %s: %w", albumID, err)
	}
	defer resp.Body.Close()

	var album Album
	if err := json.NewDecoder(resp.Body).Decode(&album); err != nil {
		return nil, fmt.Errorf("decode album: %w", err)
	}
	return &album, nil
}
