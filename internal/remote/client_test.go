package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu sync.Mutex

	// pages keyed by parent id, served in order using the page index as token.
	pages      map[string][][]map[string]interface{}
	incomplete map[string]bool
	trashed    map[string]bool
	missing    map[string]bool
	content    map[string][]byte

	// failures returns this many errors before a list call succeeds.
	failures   int
	failStatus int
	failReason string

	listCalls int
	getCalls  int
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		pages:      map[string][][]map[string]interface{}{},
		incomplete: map[string]bool{},
		trashed:    map[string]bool{},
		missing:    map[string]bool{},
		content:    map[string][]byte{},
	}
}

func writeDriveError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": reason,
			"errors":  []map[string]string{{"reason": reason, "message": reason}},
		},
	})
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "files" {
		f.listCalls++
		if f.failures > 0 {
			f.failures--
			writeDriveError(w, f.failStatus, f.failReason)
			return
		}
		f.serveList(w, r)
		return
	}

	id := strings.TrimPrefix(path, "files/")
	f.getCalls++
	if f.missing[id] {
		writeDriveError(w, http.StatusNotFound, "notFound")
		return
	}
	if r.URL.Query().Get("alt") == "media" {
		data, ok := f.content[id]
		if !ok {
			writeDriveError(w, http.StatusNotFound, "notFound")
			return
		}
		w.Write(data)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "trashed": f.trashed[id]})
}

func (f *fakeDrive) serveList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	parent := ""
	if i := strings.Index(q, "' in parents"); i > 0 {
		parent = q[1:i]
	}

	resp := map[string]interface{}{"files": []interface{}{}}
	if strings.Contains(q, "name = 'RONIN_CMS'") {
		resp["files"] = []map[string]string{{"id": "root-id", "name": "RONIN_CMS"}}
		json.NewEncoder(w).Encode(resp)
		return
	}

	pages := f.pages[parent]
	idx := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		fmt.Sscanf(tok, "%d", &idx)
	}
	if idx < len(pages) {
		resp["files"] = pages[idx]
		if idx+1 < len(pages) {
			resp["nextPageToken"] = fmt.Sprintf("%d", idx+1)
		}
	}
	resp["incompleteSearch"] = f.incomplete[parent]

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, fake *fakeDrive, retries int) (*DriveClient, *[]time.Duration) {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewDriveClient(context.Background(), Config{
		Retry: RetryPolicy{MaxRetries: retries, InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second},
	}, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	var delays []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return client, &delays
}

func fileEntry(id, name string) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"name":          name,
		"mimeType":      "image/jpeg",
		"thumbnailLink": "https://thumb/" + id,
		"createdTime":   "2024-05-01T10:00:00.000Z",
		"modifiedTime":  "2024-05-02T10:00:00Z",
	}
}

func TestListFiles_ExhaustsPagination(t *testing.T) {
	fake := newFakeDrive()
	fake.pages["folder-1"] = [][]map[string]interface{}{
		{fileEntry("a", "a.jpg"), fileEntry("b", "b.jpg")},
		{fileEntry("c", "c.jpg")},
		{fileEntry("d", "d.jpg")},
	}
	client, _ := newTestClient(t, fake, 2)

	listing, err := client.ListFiles(context.Background(), "folder-1")
	require.NoError(t, err)
	require.Equal(t, 3, listing.Pages)
	require.Len(t, listing.Items, 4)
	require.True(t, listing.Confirmed)
	require.Equal(t, 3, fake.listCalls)

	first := listing.Items[0]
	require.Equal(t, "a", first.ID)
	require.Equal(t, "a.jpg", first.Name)
	require.Equal(t, "image/jpeg", first.MimeType)
	require.Equal(t, "https://thumb/a", first.ThumbnailLink)
	require.NotNil(t, first.CreatedTime)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), *first.CreatedTime)
	require.NotNil(t, first.ModifiedTime)
}

func TestListFolders_EmptyConfirmedOnlyWhenParentReadable(t *testing.T) {
	fake := newFakeDrive()
	client, _ := newTestClient(t, fake, 1)

	listing, err := client.ListFolders(context.Background(), "root-id")
	require.NoError(t, err)
	require.Empty(t, listing.Items)
	require.True(t, listing.Confirmed, "empty listing with a readable parent is authoritative")

	fake.trashed["root-id"] = true
	listing, err = client.ListFolders(context.Background(), "root-id")
	require.NoError(t, err)
	require.False(t, listing.Confirmed)

	fake.missing["gone-id"] = true
	listing, err = client.ListFolders(context.Background(), "gone-id")
	require.NoError(t, err)
	require.Empty(t, listing.Items)
	require.False(t, listing.Confirmed)
}

func TestListFolders_IncompleteSearchIsNotConfirmed(t *testing.T) {
	fake := newFakeDrive()
	fake.pages["root-id"] = [][]map[string]interface{}{{{"id": "f1", "name": "Cats_POST"}}}
	fake.incomplete["root-id"] = true
	client, _ := newTestClient(t, fake, 1)

	listing, err := client.ListFolders(context.Background(), "root-id")
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	require.False(t, listing.Confirmed)
	require.Zero(t, fake.getCalls, "no parent check needed for incomplete results")
}

func TestListFiles_RetriesRateLimitThenSucceeds(t *testing.T) {
	fake := newFakeDrive()
	fake.pages["folder-1"] = [][]map[string]interface{}{{fileEntry("a", "a.jpg")}}
	fake.failures = 2
	fake.failStatus = http.StatusTooManyRequests
	fake.failReason = "rateLimitExceeded"
	client, delays := newTestClient(t, fake, 3)

	listing, err := client.ListFiles(context.Background(), "folder-1")
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestListFiles_PersistentFailureIsTransientFetchError(t *testing.T) {
	fake := newFakeDrive()
	fake.failures = 100
	fake.failStatus = http.StatusServiceUnavailable
	fake.failReason = "backendError"
	client, delays := newTestClient(t, fake, 2)

	listing, err := client.ListFiles(context.Background(), "folder-1")
	require.Nil(t, listing)

	var tfe *TransientFetchError
	require.True(t, errors.As(err, &tfe))
	require.Equal(t, "list_files", tfe.Op)
	require.Equal(t, 3, tfe.Attempts)
	require.Len(t, *delays, 2)
}

func TestListFiles_ForbiddenWithoutRateReasonIsNotRetried(t *testing.T) {
	fake := newFakeDrive()
	fake.failures = 1
	fake.failStatus = http.StatusForbidden
	fake.failReason = "insufficientPermissions"
	client, delays := newTestClient(t, fake, 3)

	_, err := client.ListFiles(context.Background(), "folder-1")
	require.Error(t, err)

	var tfe *TransientFetchError
	require.False(t, errors.As(err, &tfe))
	require.Empty(t, *delays)
	require.Equal(t, 1, fake.listCalls)
}

func TestFetchContent(t *testing.T) {
	fake := newFakeDrive()
	fake.content["img-1"] = []byte("\x89PNG....")
	client, _ := newTestClient(t, fake, 1)

	data, err := client.FetchContent(context.Background(), "img-1")
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG...."), data)

	_, err = client.FetchContent(context.Background(), "img-missing")
	require.ErrorIs(t, err, ErrContentNotFound)
}

func TestFindFolderByName(t *testing.T) {
	fake := newFakeDrive()
	client, _ := newTestClient(t, fake, 1)

	id, err := client.FindFolderByName(context.Background(), "RONIN_CMS")
	require.NoError(t, err)
	require.Equal(t, "root-id", id)

	_, err = client.FindFolderByName(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrRootNotFound)
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}
	require.Equal(t, time.Second, p.delay(1))
	require.Equal(t, 2*time.Second, p.delay(2))
	require.Equal(t, 4*time.Second, p.delay(3))
	require.Equal(t, 5*time.Second, p.delay(4))
}

func TestEscapeQuery(t *testing.T) {
	require.Equal(t, `it\'s`, escapeQuery("it's"))
}
