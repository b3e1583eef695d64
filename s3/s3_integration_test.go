package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/jmgilman/vfs/core"
	"github.com/jmgilman/vfs/fstest"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestS3 creates a MinIO container and returns a configured S3FS
// instance backed by a fresh bucket.
func setupTestS3(t *testing.T) (*S3FS, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	minioC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")

	endpoint, err := minioC.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get container endpoint")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err, "failed to create client")

	bucketName := "test-bucket"
	err = client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	require.NoError(t, err, "failed to create test bucket")

	filesystem, err := New(Config{
		Client: client,
		Bucket: bucketName,
	})
	require.NoError(t, err, "failed to create S3FS")

	cleanup := func() {
		_ = minioC.Terminate(ctx)
	}

	return filesystem, cleanup
}

// TestIntegration_Conformance runs the conformance suite against a real
// MinIO instance. Each test group gets its own key prefix so groups never
// see each other's objects.
func TestIntegration_Conformance(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	var n int
	fstest.TestSuiteWithConfig(t, func() core.FS {
		n++
		view, err := filesystem.Chroot(fmt.Sprintf("suite-%d", n))
		require.NoError(t, err)
		return view
	}, fstest.ObjectStoreConfig())
}

// TestIntegration_StreamingFile tests streaming reads against a real
// MinIO instance.
func TestIntegration_StreamingFile(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("stream existing object", func(t *testing.T) {
		testData := []byte("hello from object storage")
		_, err := filesystem.client.PutObject(
			ctx,
			filesystem.bucket,
			"stream-test.txt",
			bytes.NewReader(testData),
			int64(len(testData)),
			minio.PutObjectOptions{},
		)
		require.NoError(t, err, "failed to upload test object")

		file, err := newStreamingFile(ctx, filesystem, "stream-test.txt", "stream-test.txt")
		require.NoError(t, err)
		require.NotNil(t, file)
		defer func() {
			_ = file.Close()
		}()

		assert.Equal(t, "stream-test.txt", file.name)
		assert.Equal(t, "stream-test.txt", file.key)
		assert.False(t, file.closed)
		assert.Equal(t, int64(len(testData)), file.info.Size)

		buf, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, testData, buf)
	})

	t.Run("stream non-existent object returns error", func(t *testing.T) {
		file, err := newStreamingFile(ctx, filesystem, "non-existent.txt", "non-existent.txt")
		require.Error(t, err)
		assert.Nil(t, file)
	})
}

// TestIntegration_FileSync tests the sync path for buffered writes.
func TestIntegration_FileSync(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("upload buffer contents", func(t *testing.T) {
		file := newFileWrite(filesystem, "upload-test.txt", "upload-test.txt", os.O_WRONLY)

		testData := []byte("data to upload")
		n, err := file.Write(testData)
		require.NoError(t, err)
		assert.Equal(t, len(testData), n)

		err = file.sync(ctx)
		require.NoError(t, err)

		obj, err := filesystem.client.GetObject(ctx, filesystem.bucket, "upload-test.txt", minio.GetObjectOptions{})
		require.NoError(t, err)
		defer func() { _ = obj.Close() }()

		buf, err := io.ReadAll(obj)
		require.NoError(t, err)
		assert.Equal(t, testData, buf)
	})

	t.Run("sync is idempotent", func(t *testing.T) {
		file := newFileWrite(filesystem, "idempotent-test.txt", "idempotent-test.txt", os.O_WRONLY)

		testData := []byte("idempotent test")
		_, err := file.Write(testData)
		require.NoError(t, err)

		require.NoError(t, file.sync(ctx))
		require.NoError(t, file.sync(ctx))

		obj, err := filesystem.client.GetObject(ctx, filesystem.bucket, "idempotent-test.txt", minio.GetObjectOptions{})
		require.NoError(t, err)
		defer func() { _ = obj.Close() }()

		buf, err := io.ReadAll(obj)
		require.NoError(t, err)
		assert.Equal(t, testData, buf)
	})

	t.Run("sync empty buffer creates empty object", func(t *testing.T) {
		file := newFileWrite(filesystem, "empty-test.txt", "empty-test.txt", os.O_WRONLY)

		require.NoError(t, file.sync(ctx))

		stat, err := filesystem.client.StatObject(ctx, filesystem.bucket, "empty-test.txt", minio.StatObjectOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), stat.Size)
	})
}

// TestIntegration_RoundTrip tests the full Create, Write, Close, Open,
// Read workflow.
func TestIntegration_RoundTrip(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	testData := []byte("round trip test data")
	filename := "roundtrip.txt"

	file, err := filesystem.Create(filename)
	require.NoError(t, err)

	n, err := file.Write(testData)
	require.NoError(t, err)
	assert.Equal(t, len(testData), n)

	// Stat before close reports the buffered size
	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(testData)), info.Size())

	require.NoError(t, file.Close())

	file2, err := filesystem.Open(filename)
	require.NoError(t, err)
	defer func() { _ = file2.Close() }()

	buf := make([]byte, len(testData))
	n, err = file2.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, len(testData), n)
	assert.Equal(t, testData, buf)

	info2, err := file2.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(testData)), info2.Size())
	assert.False(t, info2.ModTime().IsZero())
}

// TestIntegration_WriteModeTiming tests that writes stay buffered until
// close or sync.
func TestIntegration_WriteModeTiming(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	testData := []byte("buffered write test")
	filename := "timing-test.txt"

	file, err := filesystem.Create(filename)
	require.NoError(t, err)

	_, err = file.Write(testData)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = filesystem.client.StatObject(ctx, filesystem.bucket, filename, minio.StatObjectOptions{})
	assert.Error(t, err, "object should not exist before Close")

	require.NoError(t, file.Close())

	stat, err := filesystem.client.StatObject(ctx, filesystem.bucket, filename, minio.StatObjectOptions{})
	require.NoError(t, err, "object should exist after Close")
	assert.Equal(t, int64(len(testData)), stat.Size)
}

// TestIntegration_SeekOperations tests seek over HTTP range requests.
func TestIntegration_SeekOperations(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	ctx := context.Background()

	testData := []byte("0123456789abcdefghij")
	_, err := filesystem.client.PutObject(
		ctx,
		filesystem.bucket,
		"seek-test.txt",
		bytes.NewReader(testData),
		int64(len(testData)),
		minio.PutObjectOptions{},
	)
	require.NoError(t, err)

	file, err := filesystem.Open("seek-test.txt")
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	seeker, ok := file.(io.Seeker)
	require.True(t, ok, "read-mode file should implement Seek")

	t.Run("seek to middle and read", func(t *testing.T) {
		pos, err := seeker.Seek(10, io.SeekStart)
		require.NoError(t, err)
		assert.Equal(t, int64(10), pos)

		buf := make([]byte, 5)
		n, err := file.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []byte("abcde"), buf)
	})

	t.Run("seek relative to current position", func(t *testing.T) {
		pos, err := seeker.Seek(-5, io.SeekCurrent)
		require.NoError(t, err)
		assert.Equal(t, int64(10), pos)
	})

	t.Run("seek from end", func(t *testing.T) {
		pos, err := seeker.Seek(-5, io.SeekEnd)
		require.NoError(t, err)
		assert.Equal(t, int64(15), pos)

		buf := make([]byte, 5)
		n, err := file.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []byte("fghij"), buf)
	})
}

// TestIntegration_ReadAt tests that ReadAt uses independent range
// requests and never disturbs the stream position.
func TestIntegration_ReadAt(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	ctx := context.Background()

	testData := []byte("0123456789abcdefghij")
	_, err := filesystem.client.PutObject(
		ctx,
		filesystem.bucket,
		"readat-test.txt",
		bytes.NewReader(testData),
		int64(len(testData)),
		minio.PutObjectOptions{},
	)
	require.NoError(t, err)

	file, err := filesystem.Open("readat-test.txt")
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	readerAt, ok := file.(io.ReaderAt)
	require.True(t, ok, "read-mode file should implement ReadAt")

	buf := make([]byte, 5)
	n, err := readerAt.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("abcde"), buf)

	// Sequential read still starts from the stream position
	buf2 := make([]byte, 5)
	n, err = file.Read(buf2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("01234"), buf2)
}

// TestIntegration_DirectoryRename tests the parallel copy and batch
// delete path used when renaming a virtual directory.
func TestIntegration_DirectoryRename(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	files := []string{"src/a.txt", "src/b.txt", "src/nested/c.txt", "src/nested/deep/d.txt"}
	for _, name := range files {
		require.NoError(t, filesystem.WriteFile(name, []byte("content of "+name), 0644))
	}

	require.NoError(t, filesystem.Rename("src", "dst"))

	for _, name := range files {
		moved := "dst" + name[len("src"):]

		data, err := filesystem.ReadFile(moved)
		require.NoError(t, err, "object should exist at new path")
		assert.Equal(t, []byte("content of "+name), data)

		exists, err := filesystem.Exists(name)
		require.NoError(t, err)
		assert.False(t, exists, "object should not remain at old path")
	}
}

// TestIntegration_RemoveAll tests recursive deletion through the batch
// delete API.
func TestIntegration_RemoveAll(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	files := []string{"tree/a.txt", "tree/sub/b.txt", "tree/sub/deeper/c.txt", "keep.txt"}
	for _, name := range files {
		require.NoError(t, filesystem.WriteFile(name, []byte("x"), 0644))
	}

	require.NoError(t, filesystem.RemoveAll("tree"))

	exists, err := filesystem.Exists("tree")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = filesystem.Exists("keep.txt")
	require.NoError(t, err)
	assert.True(t, exists, "siblings outside the deleted tree survive")
}

// TestIntegration_WithPrefix tests that a key prefix namespaces all
// operations.
func TestIntegration_WithPrefix(t *testing.T) {
	filesystem, cleanup := setupTestS3(t)
	defer cleanup()

	ctx := context.Background()

	prefixed, err := New(Config{
		Client: filesystem.client,
		Bucket: filesystem.bucket,
		Prefix: "myapp/data",
	})
	require.NoError(t, err)

	testData := []byte("prefixed data")
	require.NoError(t, prefixed.WriteFile("test.txt", testData, 0644))

	// The object lands under the prefix in the flat key namespace
	stat, err := filesystem.client.StatObject(ctx, filesystem.bucket, "myapp/data/test.txt", minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(testData)), stat.Size)

	data, err := prefixed.ReadFile("test.txt")
	require.NoError(t, err)
	assert.Equal(t, testData, data)
}
