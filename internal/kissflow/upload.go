package kissflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultUploadBaseURL is the attachment upload host.
const DefaultUploadBaseURL = "https://upload.kissflow.com"

// UploadedFile names one transferred attachment together with the CDN URL it
// ended up at.
type UploadedFile struct {
	Name string
	URL  string
}

// Uploader transfers nomination and evidence files to the attachment host.
type Uploader struct {
	pubKey     string
	baseURL    string
	httpClient *http.Client
}

// NewUploader creates an uploader with the given public upload key. An empty
// baseURL selects the default host.
func NewUploader(pubKey, baseURL string) *Uploader {
	if baseURL == "" {
		baseURL = DefaultUploadBaseURL
	}
	return &Uploader{
		pubKey:  pubKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SendFile uploads the file at path under the given name and returns the
// CDN URL it is served from.
func (u *Uploader) SendFile(ctx context.Context, path, filename string) (string, error) {
	fileID, err := u.uploadFile(ctx, path, filename)
	if err != nil {
		return "", err
	}
	return u.fileURL(ctx, fileID)
}

// uploadFile streams the file as a multipart body and returns the upload
// host's file identifier.
func (u *Uploader) uploadFile(ctx context.Context, path, filename string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("UPLOADCARE_PUB_KEY", u.pubKey); err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	if err := writer.WriteField("UPLOADCARE_STORE", "auto"); err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}

	part, err := writer.CreatePart(filePartHeader(filename))
	if err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("stream attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/base/?jsonerrors=1", &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var uploaded struct {
		File string `json:"file"`
	}
	if err := u.do(req, &uploaded); err != nil {
		return "", err
	}
	if uploaded.File == "" {
		return "", fmt.Errorf("upload response carries no file ID")
	}
	return uploaded.File, nil
}

// fileURL groups the uploaded file and returns its CDN location.
func (u *Uploader) fileURL(ctx context.Context, fileID string) (string, error) {
	form := url.Values{}
	form.Set("pub_key", u.pubKey)
	form.Set("files[]", fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/group/",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create group request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	var grouped struct {
		CDNURL string `json:"cdn_url"`
	}
	if err := u.do(req, &grouped); err != nil {
		return "", err
	}
	if grouped.CDNURL == "" {
		return "", fmt.Errorf("group response carries no cdn_url")
	}
	return grouped.CDNURL + "/nth/0/", nil
}

func (u *Uploader) do(req *http.Request, out any) error {
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload host: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode upload response: %w", err)
	}
	return nil
}

func filePartHeader(filename string) textproto.MIMEHeader {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	return header
}

// Close releases idle connections.
func (u *Uploader) Close() {
	u.httpClient.CloseIdleConnections()
}
