package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MediaService pushes uploaded images to ImageKit. Without a private
// key it saves under UploadDir instead (served static by the app) and
// builds the URL from PublicBaseURL.
type MediaService struct {
	Client     *http.Client
	PrivateKey string
	UploadURL  string

	UploadDir     string
	PublicBaseURL string
}

func NewMediaService(privateKey, uploadURL, uploadDir, publicBaseURL string) *MediaService {
	return &MediaService{
		Client:        &http.Client{Timeout: 30 * time.Second},
		PrivateKey:    privateKey,
		UploadURL:     uploadURL,
		UploadDir:     uploadDir,
		PublicBaseURL: publicBaseURL,
	}
}

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func AllowedImage(filename string) bool {
	return allowedExt[strings.ToLower(filepath.Ext(filename))]
}

// Upload stores one image and returns its public URL.
func (s *MediaService) Upload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	if file.Size <= 0 {
		return "", fmt.Errorf("empty file")
	}
	if !AllowedImage(file.Filename) {
		return "", fmt.Errorf("unsupported image format: %s", filepath.Ext(file.Filename))
	}

	if s.PrivateKey == "" {
		return s.saveLocal(file, folder)
	}
	return s.uploadRemote(ctx, file, folder)
}

func (s *MediaService) uploadRemote(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", file.Filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return "", err
	}
	_ = mw.WriteField("fileName", file.Filename)
	_ = mw.WriteField("folder", "/"+strings.Trim(folder, "/"))
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.UploadURL, strings.NewReader(buf.String()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(s.PrivateKey, "")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media host returned status %d", resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("media host returned no url")
	}
	return out.URL, nil
}

func (s *MediaService) saveLocal(file *multipart.FileHeader, folder string) (string, error) {
	dir := filepath.Join(s.UploadDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := fmt.Sprintf("%s_%d%s", folder, time.Now().UnixNano(), ext)
	dst := filepath.Join(dir, filename)

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}

	publicPath := "/uploads/" + folder + "/" + filename
	if s.PublicBaseURL != "" {
		return strings.TrimRight(s.PublicBaseURL, "/") + publicPath, nil
	}
	return publicPath, nil
}
