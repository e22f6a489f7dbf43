package uploader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfe-digital/nomination-uploader/internal/kissflow"
	"github.com/dfe-digital/nomination-uploader/internal/layout"
	"github.com/dfe-digital/nomination-uploader/internal/structure"
)

func TestNomineeName(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"Honours nomination web form submitted for Jane Smith.pdf", "Jane Smith"},
		{"Honours nomination web form submitted for J. O'Neill.pdf", "J. O'Neill"},
		// Renamed files fall back to the file name itself.
		{"renamed.pdf", "renamed.pdf"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nomineeName(tt.fileName), tt.fileName)
	}
}

func TestFileBucketResolve(t *testing.T) {
	dir := t.TempDir()
	bucket, err := newFileBucket(dir)
	require.NoError(t, err)

	path, err := bucket.Resolve("evidence.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "evidence.pdf"), path)

	// absolute paths inside the bucket pass through
	path, err = bucket.Resolve(filepath.Join(dir, "sub", "letter.pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "letter.pdf"), path)

	_, err = bucket.Resolve("../escape.pdf")
	assert.Error(t, err)

	_, err = bucket.Resolve("/etc/passwd")
	assert.Error(t, err)

	_, err = bucket.Resolve("")
	assert.Error(t, err)
}

func TestFileBucketRejectsEmptyRoot(t *testing.T) {
	_, err := newFileBucket("")
	assert.Error(t, err)
}

func TestFileBucketExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.pdf"), []byte("x"), 0o644))

	bucket, err := newFileBucket(dir)
	require.NoError(t, err)

	assert.True(t, bucket.Exists("present.pdf"))
	assert.False(t, bucket.Exists("absent.pdf"))
	assert.False(t, bucket.Exists("../present.pdf"))
}

func TestNewServiceRejectsMissingDirs(t *testing.T) {
	client := kissflow.NewClient("key", "")
	files := kissflow.NewUploader("pub", "")

	_, err := NewService(1<<20, "", t.TempDir(), client, files)
	assert.Error(t, err)

	_, err = NewService(1<<20, t.TempDir(), "", client, files)
	assert.Error(t, err)
}

func TestExtractNominationRejectsMissingFile(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(1<<20, dir, t.TempDir(), kissflow.NewClient("key", ""), kissflow.NewUploader("pub", ""))
	require.NoError(t, err)

	_, err = svc.ExtractNomination(ExtractNominationRequest{Path: "missing.pdf"})
	require.Error(t, err)

	_, err = svc.ExtractNomination(ExtractNominationRequest{Path: "../outside.pdf"})
	require.Error(t, err)
}

func TestInfo(t *testing.T) {
	nominationDir := t.TempDir()
	bucketDir := t.TempDir()
	svc, err := NewService(1<<20, nominationDir, bucketDir, kissflow.NewClient("key", "https://host.example"), kissflow.NewUploader("pub", ""))
	require.NoError(t, err)

	info := svc.Info(InfoRequest{})
	assert.Equal(t, nominationDir, info.NominationDir)
	assert.Equal(t, bucketDir, info.BucketDir)
	assert.Equal(t, "https://host.example", info.WorkflowHost)
}

// uploadHost fakes the file storage endpoints and counts stored files.
func uploadHost(t *testing.T, stored *[]string) *httptest.Server {
	t.Helper()
	count := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/base/"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, header, err := r.FormFile("file")
			require.NoError(t, err)
			*stored = append(*stored, header.Filename)
			count++
			fmt.Fprintf(w, `{"file":"id-%d"}`, count)
		case strings.HasPrefix(r.URL.Path, "/group/"):
			require.NoError(t, r.ParseForm())
			fmt.Fprintf(w, `{"cdn_url":"https://cdn.example/%s"}`, r.PostForm.Get("files[]"))
		default:
			t.Errorf("unexpected upload path %s", r.URL.Path)
		}
	}))
}

// evidenceDocument builds a document whose career section names the given
// attachments, by running real phrases through the structurer.
func evidenceDocument(t *testing.T, evidence, letters []string) *structure.Document {
	t.Helper()

	var phrases []layout.Phrase
	top := 10.0
	add := func(text string, style layout.StyleDescriptor) {
		phrases = append(phrases, layout.Phrase{Anchor: style, Tail: style, Text: text})
	}
	section := func(text string) {
		add(text, layout.NewStyle(18, true, top, 40, 100))
		top += 30
	}
	question := func(text string) {
		add(text, layout.NewStyle(14, true, top, 40, 100))
		top += 25
	}
	table := func(names []string) {
		add("Attachment name", layout.NewStyle(11, true, top, 40, 60))
		top += 20
		for _, name := range names {
			add(name, layout.NewStyle(11, false, top, 40, 60))
			top += 15
		}
	}

	section("About you")
	section("About your nominee")
	section("Career and evidence")
	question("Evidence of your nominee's contribution")
	table(evidence)
	question("Letters of support")
	table(letters)

	doc, err := structure.NewStructurer().Structure(phrases)
	require.NoError(t, err)
	return doc
}

func TestUploadEvidence(t *testing.T) {
	bucketDir := t.TempDir()
	for _, name := range []string{"citation.pdf", "letter-one.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(bucketDir, name), []byte("data"), 0o644))
	}

	var stored []string
	host := uploadHost(t, &stored)
	defer host.Close()

	svc, err := NewService(1<<20, t.TempDir(), bucketDir,
		kissflow.NewClient("key", ""), kissflow.NewUploader("pub", host.URL))
	require.NoError(t, err)

	doc := evidenceDocument(t, []string{"citation.pdf"}, []string{"letter-one.pdf"})

	files, err := svc.uploadEvidence(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "citation.pdf", files[0].Name)
	assert.Equal(t, "https://cdn.example/id-1/nth/0/", files[0].URL)
	assert.Equal(t, "letter-one.pdf", files[1].Name)
	assert.Equal(t, []string{"citation.pdf", "letter-one.pdf"}, stored)
}

func TestUploadEvidenceSkipsMissingFiles(t *testing.T) {
	bucketDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bucketDir, "present.pdf"), []byte("data"), 0o644))

	var stored []string
	host := uploadHost(t, &stored)
	defer host.Close()

	svc, err := NewService(1<<20, t.TempDir(), bucketDir,
		kissflow.NewClient("key", ""), kissflow.NewUploader("pub", host.URL))
	require.NoError(t, err)

	// Nominators name files they never sent; those references are dropped
	// and the rest of the evidence still goes through.
	doc := evidenceDocument(t, []string{"present.pdf", "absent.pdf"}, []string{"also-absent.pdf"})

	files, err := svc.uploadEvidence(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "present.pdf", files[0].Name)
	assert.Equal(t, []string{"present.pdf"}, stored)
}

func TestUploadEvidenceFailsOnEscapingName(t *testing.T) {
	var stored []string
	host := uploadHost(t, &stored)
	defer host.Close()

	svc, err := NewService(1<<20, t.TempDir(), t.TempDir(),
		kissflow.NewClient("key", ""), kissflow.NewUploader("pub", host.URL))
	require.NoError(t, err)

	doc := evidenceDocument(t, []string{"../outside.pdf"}, nil)

	_, err = svc.uploadEvidence(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside.pdf")
	assert.Empty(t, stored)
}
