package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/TheMichaelB/sharegate/internal/config"
	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
	"github.com/TheMichaelB/sharegate/internal/storage"
	"github.com/TheMichaelB/sharegate/internal/transfer"
	"github.com/TheMichaelB/sharegate/test/testutil"
)

func benchManager(b *testing.B, share storage.Share) *transfer.Manager {
	settings, err := config.NewSettings(map[string]string{
		"hostname": "nas.bench",
		"username": "bench",
		"password": "bench",
		"share":    "repos",
		"path":     "/repo",
	})
	if err != nil {
		b.Fatal(err)
	}

	m := transfer.New(settings, share, events.Discard())
	if err := m.Init(context.Background(), true); err != nil {
		b.Fatal(err)
	}
	return m
}

func benchShares(b *testing.B) map[string]storage.Share {
	local, err := storage.NewLocalStore(b.TempDir(), events.Discard())
	if err != nil {
		b.Fatal(err)
	}
	return map[string]storage.Share{
		"memory": storage.NewMockStore(),
		"local":  local,
	}
}

func BenchmarkUpload(b *testing.B) {
	sizes := []int{
		1024,     // 1KB
		102400,   // 100KB
		1048576,  // 1MB
	}

	for backend, share := range benchShares(b) {
		m := benchManager(b, share)

		for _, size := range sizes {
			b.Run(fmt.Sprintf("%s/%dKB", backend, size/1024), func(b *testing.B) {
				data := make([]byte, size)
				_, _ = rand.Read(data)
				src := testutil.NewTestHelpers(b).CreateTempBinaryFile("chunk.bin", data)

				b.ResetTimer()
				b.ReportAllocs()
				b.SetBytes(int64(size))

				for i := 0; i < b.N; i++ {
					rf, err := models.NewMultichunkFile(fmt.Sprintf("%x", i))
					if err != nil {
						b.Fatal(err)
					}
					if err := m.Upload(context.Background(), src, rf); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkDownload(b *testing.B) {
	for backend, share := range benchShares(b) {
		b.Run(backend, func(b *testing.B) {
			m := benchManager(b, share)
			helpers := testutil.NewTestHelpers(b)

			data := make([]byte, 102400)
			_, _ = rand.Read(data)
			src := helpers.CreateTempBinaryFile("chunk.bin", data)

			rf, err := models.NewMultichunkFile("ff")
			if err != nil {
				b.Fatal(err)
			}
			if err := m.Upload(context.Background(), src, rf); err != nil {
				b.Fatal(err)
			}
			dest := filepath.Join(helpers.TempDir(), "out.bin")

			b.ResetTimer()
			b.SetBytes(int64(len(data)))

			for i := 0; i < b.N; i++ {
				if err := m.Download(context.Background(), rf, dest); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkList(b *testing.B) {
	share := storage.NewMockStore()
	m := benchManager(b, share)

	for i := 0; i < 1000; i++ {
		share.PutFile(fmt.Sprintf("/repo/multichunks/multichunk-%04x", i), []byte("x"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		files, err := m.List(context.Background(), models.CategoryMultichunk)
		if err != nil {
			b.Fatal(err)
		}
		if len(files) != 1000 {
			b.Fatalf("listed %d files", len(files))
		}
	}
}

func BenchmarkPathSanitization(b *testing.B) {
	store, err := storage.NewLocalStore(b.TempDir(), events.Discard())
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	paths := []string{
		"/repo/multichunks/multichunk-0a1b",
		"/repo/../../etc/passwd",
		"/repo/databases/database-a-1",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Exists(ctx, paths[i%len(paths)])
	}
}
