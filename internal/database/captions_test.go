package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndGetCaptions(t *testing.T) {
	createTestFolders(t, "root_captions", "cap_folder")
	ctx := context.Background()

	captions, err := testStore.GetCaptions(ctx, "cap_folder")
	require.NoError(t, err)
	require.Empty(t, captions)
	require.NotNil(t, captions)

	err = testStore.SaveCaptions(ctx, "cap_folder", []string{"pierwszy", "drugi"})
	require.NoError(t, err)
	captions, err = testStore.GetCaptions(ctx, "cap_folder")
	require.NoError(t, err)
	require.Equal(t, []string{"pierwszy", "drugi"}, captions)

	// zapis nadpisuje poprzednią listę
	err = testStore.SaveCaptions(ctx, "cap_folder", []string{"trzeci"})
	require.NoError(t, err)
	captions, err = testStore.GetCaptions(ctx, "cap_folder")
	require.NoError(t, err)
	require.Equal(t, []string{"trzeci"}, captions)
}

func TestSaveCaptions_UnknownFolder(t *testing.T) {
	err := testStore.SaveCaptions(context.Background(), "no_such_caption_folder", []string{"x"})
	require.ErrorIs(t, err, ErrFolderNotFound)
}

func TestDeleteFolders_RefusesWhileCaptionsRemain(t *testing.T) {
	createTestFolders(t, "root_cap_fk", "cap_fk_folder")
	ctx := context.Background()
	require.NoError(t, testStore.SaveCaptions(ctx, "cap_fk_folder", []string{"opis"}))

	_, err := testStore.DeleteFolders(ctx, []string{"cap_fk_folder"})
	require.ErrorIs(t, err, ErrFolderHasCaptions)

	n, err := testStore.DeleteCaptionsByFolders(ctx, []string{"cap_fk_folder", "never_had_captions"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = testStore.DeleteFolders(ctx, []string{"cap_fk_folder"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestCountImagesInFolder(t *testing.T) {
	createTestFolders(t, "root_count", "count_folder")
	createTestImages(t, "count_folder", "count_img_1", "count_img_2")

	n, err := testStore.CountImagesInFolder(context.Background(), "count_folder")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}
