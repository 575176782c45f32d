package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	listFields     = "nextPageToken, incompleteSearch, files(id, name, createdTime, mimeType, thumbnailLink, modifiedTime)"
)

type Config struct {
	CredentialsFile   string
	CredentialsJSON   string
	Endpoint          string
	PageSize          int64
	RequestsPerSecond float64
	Burst             int
	Retry             RetryPolicy
}

type DriveClient struct {
	svc      *drive.Service
	pageSize int64
	retry    RetryPolicy
	limiter  *rate.Limiter
	sleep    func(context.Context, time.Duration) error
}

// NewDriveClient builds a read-only Drive client. Service-account credentials
// come from CredentialsJSON or CredentialsFile; extra options (endpoint, HTTP
// client) are appended after them.
func NewDriveClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*DriveClient, error) {
	var clientOpts []option.ClientOption

	credsJSON := []byte(cfg.CredentialsJSON)
	if len(credsJSON) == 0 && cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credsJSON = data
	}
	if len(credsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, credsJSON, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse drive credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(creds.TokenSource))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return newDriveClient(svc, cfg), nil
}

func newDriveClient(svc *drive.Service, cfg Config) *DriveClient {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &DriveClient{
		svc:      svc,
		pageSize: pageSize,
		retry:    cfg.Retry,
		limiter:  rate.NewLimiter(limit, burst),
		sleep:    sleepCtx,
	}
}

func (c *DriveClient) FindFolderByName(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("mimeType = '%s' and name = '%s' and trashed = false", folderMimeType, escapeQuery(name))

	var list *drive.FileList
	err := c.withRetry(ctx, "find_root", func() error {
		var err error
		list, err = c.svc.Files.List().Q(q).Fields("files(id, name)").PageSize(10).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: %s", ErrRootNotFound, name)
	}
	return list.Files[0].Id, nil
}

func (c *DriveClient) ListFolders(ctx context.Context, parentID string) (*Listing[RemoteFolder], error) {
	q := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", escapeQuery(parentID), folderMimeType)

	listing := &Listing[RemoteFolder]{}
	complete, err := c.listAll(ctx, "list_folders", q, func(f *drive.File) {
		listing.Items = append(listing.Items, RemoteFolder{
			ID:          f.Id,
			Name:        f.Name,
			CreatedTime: parseDriveTime(f.CreatedTime),
		})
	}, &listing.Pages)
	if err != nil {
		return nil, err
	}

	listing.Confirmed, err = c.confirm(ctx, parentID, complete, len(listing.Items))
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (c *DriveClient) ListFiles(ctx context.Context, folderID string) (*Listing[RemoteFile], error) {
	q := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false", escapeQuery(folderID))

	listing := &Listing[RemoteFile]{}
	complete, err := c.listAll(ctx, "list_files", q, func(f *drive.File) {
		listing.Items = append(listing.Items, RemoteFile{
			ID:            f.Id,
			Name:          f.Name,
			MimeType:      f.MimeType,
			ThumbnailLink: f.ThumbnailLink,
			CreatedTime:   parseDriveTime(f.CreatedTime),
			ModifiedTime:  parseDriveTime(f.ModifiedTime),
		})
	}, &listing.Pages)
	if err != nil {
		return nil, err
	}

	listing.Confirmed, err = c.confirm(ctx, folderID, complete, len(listing.Items))
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// listAll follows continuation tokens until the last page. Nothing is
// surfaced to the caller unless every page was read.
func (c *DriveClient) listAll(ctx context.Context, op string, q string, each func(*drive.File), pages *int) (bool, error) {
	complete := true
	pageToken := ""

	for {
		var list *drive.FileList
		err := c.withRetry(ctx, op, func() error {
			call := c.svc.Files.List().
				Q(q).
				Fields(listFields).
				PageSize(c.pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			list, err = call.Do()
			return err
		})
		if err != nil {
			return false, err
		}

		*pages++
		if list.IncompleteSearch {
			complete = false
		}
		for _, f := range list.Files {
			each(f)
		}

		pageToken = list.NextPageToken
		if pageToken == "" {
			return complete, nil
		}
	}
}

// confirm decides whether a listing is authoritative. A non-empty complete
// listing is; an empty one additionally requires the parent to be readable
// and not trashed, which rules out silent auth or quota failures.
func (c *DriveClient) confirm(ctx context.Context, parentID string, complete bool, n int) (bool, error) {
	if !complete {
		return false, nil
	}
	if n > 0 {
		return true, nil
	}

	var parent *drive.File
	err := c.withRetry(ctx, "confirm_parent", func() error {
		var err error
		parent, err = c.svc.Files.Get(parentID).Fields("id, trashed").Context(ctx).Do()
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return !parent.Trashed, nil
}

func (c *DriveClient) FetchContent(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := c.withRetry(ctx, "fetch_content", func() error {
		resp, err := c.svc.Files.Get(id).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrContentNotFound, id)
		}
		return nil, err
	}
	return data, nil
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
