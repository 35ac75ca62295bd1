package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arty-web/internal/config"
	"arty-web/internal/platform/storage"
	"arty-web/internal/testutils"
)

func TestMinIOPreviewStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	mc, err := testutils.StartMinIO(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	client, err := storage.NewMinIOClient(ctx, config.StorageConfig{
		Endpoint:        mc.Endpoint,
		AccessKeyID:     mc.AccessKey,
		SecretAccessKey: mc.SecretKey,
		BucketName:      "previews",
		Region:          "us-east-1",
	})
	require.NoError(t, err)
	require.NoError(t, client.Health(ctx))

	store := storage.NewMinIOPreviewStore(client)

	id, err := store.Put(ctx, "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	p, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, []byte("png-bytes"), p.Data)

	require.NoError(t, store.Release(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrPreviewNotFound)

	_, err = store.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrPreviewNotFound)
}
