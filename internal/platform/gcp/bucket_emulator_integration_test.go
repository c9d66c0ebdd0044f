package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

func TestBucketServiceEmulatorLifecycle(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("CW_RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set CW_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	emulatorHost := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST"))
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}
	emulatorHost = strings.TrimRight(emulatorHost, "/")
	if !isEmulatorReachable(emulatorHost) {
		t.Skipf("storage emulator not reachable at %s", emulatorHost)
	}

	bucketName := fmt.Sprintf("cw-it-submissions-%d", time.Now().UnixNano())
	createBucketIfMissing(t, emulatorHost, bucketName)

	t.Setenv("SUBMISSION_GCS_BUCKET_NAME", bucketName)
	t.Setenv("MATERIAL_GCS_BUCKET_NAME", "")
	t.Setenv("SUBMISSION_CDN_DOMAIN", "")
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", emulatorHost)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	bucket, err := NewBucketServiceWithConfig(log, ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: emulatorHost,
	})
	if err != nil {
		t.Fatalf("NewBucketServiceWithConfig: %v", err)
	}

	ctx := context.Background()
	key := "submissions/it/essay.txt"
	if err := bucket.UploadFile(dbctx.With(ctx), BucketCategorySubmission, key, strings.NewReader("alpha"), ""); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	publicURL := bucket.GetPublicURL(BucketCategorySubmission, key)
	gotKey, ok := bucket.KeyFromURL(BucketCategorySubmission, publicURL)
	if !ok || gotKey != key {
		t.Fatalf("KeyFromURL(%q): got=%q ok=%v", publicURL, gotKey, ok)
	}

	var body []byte
	deadline := time.Now().Add(5 * time.Second)
	for {
		rc, err := bucket.DownloadFile(ctx, BucketCategorySubmission, key)
		if err == nil {
			body, err = io.ReadAll(rc)
			_ = rc.Close()
		}
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("DownloadFile: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if string(body) != "alpha" {
		t.Fatalf("download body: want=%q got=%q", "alpha", string(body))
	}

	if err := bucket.DeleteFile(dbctx.With(ctx), BucketCategorySubmission, key); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if rc, err := bucket.DownloadFile(ctx, BucketCategorySubmission, key); err == nil {
		_ = rc.Close()
		t.Fatalf("expected download of deleted object to fail")
	}
}

func isEmulatorReachable(emulatorHost string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(emulatorHost + "/storage/v1/b?project=local-dev")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func createBucketIfMissing(t *testing.T, emulatorHost string, bucket string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"name": bucket})
	req, err := http.NewRequest(http.MethodPost, emulatorHost+"/storage/v1/b?project=local-dev", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("http.NewRequest(create bucket): %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("create bucket %q: %v", bucket, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		return
	}
	b, _ := io.ReadAll(resp.Body)
	t.Fatalf("create bucket %q failed: status=%d body=%s", bucket, resp.StatusCode, strings.TrimSpace(string(b)))
}
