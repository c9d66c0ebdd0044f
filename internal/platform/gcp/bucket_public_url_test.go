package gcp

import (
	"testing"
)

func TestResolveObjectStoragePublicBaseURL(t *testing.T) {
	emu := ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "http://fake-gcs:4443"}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")
	base, source, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{Mode: ObjectStorageModeGCS})
	if err != nil || base != "" || source != "gcs_default" {
		t.Fatalf("gcs default: base=%q source=%q err=%v", base, source, err)
	}
	base, source, err = resolveObjectStoragePublicBaseURL(emu)
	if err != nil || base != "http://fake-gcs:4443" || source != "storage_emulator_host" {
		t.Fatalf("emulator fallback: base=%q source=%q err=%v", base, source, err)
	}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")
	base, source, err = resolveObjectStoragePublicBaseURL(emu)
	if err != nil || base != "http://localhost:4443" || source != "object_storage_public_base_url" {
		t.Fatalf("env override: base=%q source=%q err=%v", base, source, err)
	}

	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")
	if _, _, err := resolveObjectStoragePublicBaseURL(emu); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestGetPublicURLAndKeyFromURL(t *testing.T) {
	cases := []struct {
		name string
		bs   *bucketService
		key  string
		want string
	}{
		{
			name: "gcs default",
			bs:   &bucketService{submissionBucket: bucketConfig{name: "hw-bucket"}},
			key:  "submissions/s1/w1/m1/essay.pdf",
			want: "https://storage.googleapis.com/hw-bucket/submissions/s1/w1/m1/essay.pdf",
		},
		{
			name: "cdn domain",
			bs:   &bucketService{submissionBucket: bucketConfig{name: "hw-bucket", cdnDomain: "cdn.example.com"}},
			key:  "submissions/a.pdf",
			want: "https://cdn.example.com/submissions/a.pdf",
		},
		{
			name: "public base url",
			bs:   &bucketService{publicBaseURL: "http://localhost:4443", submissionBucket: bucketConfig{name: "hw-bucket"}},
			key:  "/submissions/a.pdf",
			want: "http://localhost:4443/hw-bucket/submissions/a.pdf",
		},
		{
			name: "emulator media endpoint",
			bs: &bucketService{
				storageMode:      ObjectStorageModeGCSEmulator,
				emulatorHost:     "http://fake-gcs:4443",
				submissionBucket: bucketConfig{name: "hw-bucket"},
			},
			key:  "submissions/s1/a b.pdf",
			want: "http://fake-gcs:4443/storage/v1/b/hw-bucket/o/submissions%2Fs1%2Fa%20b.pdf?alt=media",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.bs.GetPublicURL(BucketCategorySubmission, tc.key)
			if got != tc.want {
				t.Fatalf("GetPublicURL: want=%q got=%q", tc.want, got)
			}
			key, ok := tc.bs.KeyFromURL(BucketCategorySubmission, got)
			if !ok {
				t.Fatalf("KeyFromURL(%q): not recognized", got)
			}
			if want := trimLeadingSlash(tc.key); key != want {
				t.Fatalf("KeyFromURL: want=%q got=%q", want, key)
			}
		})
	}
}

func TestKeyFromURLRejectsForeignURL(t *testing.T) {
	bs := &bucketService{submissionBucket: bucketConfig{name: "hw-bucket"}}
	if _, ok := bs.KeyFromURL(BucketCategorySubmission, "https://storage.googleapis.com/other/x.pdf"); ok {
		t.Fatalf("expected foreign bucket url to be rejected")
	}
	if _, ok := bs.KeyFromURL(BucketCategorySubmission, ""); ok {
		t.Fatalf("expected empty url to be rejected")
	}
}

func TestContentTypeForKey(t *testing.T) {
	for key, want := range map[string]string{
		"a/essay.PDF":     "application/pdf",
		"a/photo.jpeg":    "image/jpeg",
		"a/report.docx":   "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"a/notes.txt?x=1": "text/plain",
		"a/unknown.bin":   "",
	} {
		if got := ContentTypeForKey(key); got != want {
			t.Fatalf("ContentTypeForKey(%q): want=%q got=%q", key, want, got)
		}
	}
}

func trimLeadingSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}
