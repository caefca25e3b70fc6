package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"imgvault/internal/models"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "IMGVAULT_HTTP_TIMEOUT"
	apiTokenEnvKey     = "IMGVAULT_API_TOKEN"
)

// Client is a simple HTTP client for the imgvault API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client. The bearer token defaults to
// IMGVAULT_API_TOKEN.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.authToken = strings.TrimSpace(token)
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (models.User, error) {
	var resp models.User
	err := c.do(ctx, http.MethodPost, "/api/register", nil, req, &resp)
	return resp, err
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", nil, LoginRequest{Email: email, Password: password}, &resp)
	if err == nil {
		c.SetToken(resp.Token)
	}
	return resp, err
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil)
	if err == nil {
		c.authToken = ""
	}
	return err
}

// UploadImage sends one file as a multipart upload.
func (c *Client) UploadImage(ctx context.Context, filename string, content io.Reader, caption string, albums []string) (models.Image, error) {
	var resp models.Image

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return resp, err
		}
	}
	for _, album := range albums {
		if err := mw.WriteField("album", album); err != nil {
			return resp, err
		}
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/images", &body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) ListImages(ctx context.Context) ([]models.Image, error) {
	var resp []models.Image
	err := c.do(ctx, http.MethodGet, "/api/images", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetImage(ctx context.Context, id string) (ImageResponse, error) {
	var resp ImageResponse
	err := c.do(ctx, http.MethodGet, "/api/images/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// DownloadImage streams the stored bytes of an image to w.
func (c *Client) DownloadImage(ctx context.Context, id string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/images/"+url.PathEscape(id)+"/content", nil)
	if err != nil {
		return err
	}
	c.setAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) UpdateCaption(ctx context.Context, id, caption string) (models.Image, error) {
	var resp models.Image
	err := c.do(ctx, http.MethodPut, "/api/images/"+url.PathEscape(id), nil, CaptionUpdateRequest{Caption: &caption}, &resp)
	return resp, err
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/images/"+url.PathEscape(id), nil, nil, nil)
}

// DeleteImages deletes several images. On partial failure the counts are
// returned together with the error.
func (c *Client) DeleteImages(ctx context.Context, ids []string) (BulkDeleteResponse, error) {
	return c.doBulk(ctx, http.MethodPost, "/api/images/delete", nil, BulkDeleteRequest{IDs: ids})
}

func (c *Client) CreateAlbum(ctx context.Context, req AlbumCreateRequest) (models.Album, error) {
	var resp models.Album
	err := c.do(ctx, http.MethodPost, "/api/albums", nil, req, &resp)
	return resp, err
}

func (c *Client) ListAlbums(ctx context.Context) ([]models.Album, error) {
	var resp []models.Album
	err := c.do(ctx, http.MethodGet, "/api/albums", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetAlbum(ctx context.Context, name string) (models.Album, error) {
	var resp models.Album
	err := c.do(ctx, http.MethodGet, "/api/albums/"+url.PathEscape(name), nil, nil, &resp)
	return resp, err
}

func (c *Client) DeleteAlbum(ctx context.Context, name string, fromStorage bool) (BulkDeleteResponse, error) {
	query := url.Values{"from_storage": []string{strconv.FormatBool(fromStorage)}}
	return c.doBulk(ctx, http.MethodDelete, "/api/albums/"+url.PathEscape(name), query, nil)
}

func (c *Client) ListAlbumImages(ctx context.Context, name string) ([]models.Image, error) {
	var resp []models.Image
	err := c.do(ctx, http.MethodGet, "/api/albums/"+url.PathEscape(name)+"/images", nil, nil, &resp)
	return resp, err
}

func (c *Client) AddToAlbum(ctx context.Context, name, imageID string) error {
	return c.do(ctx, http.MethodPost, "/api/albums/"+url.PathEscape(name)+"/images", nil, AlbumImageRequest{ImageID: imageID}, nil)
}

func (c *Client) RemoveFromAlbum(ctx context.Context, name, imageID string) error {
	return c.do(ctx, http.MethodDelete, "/api/albums/"+url.PathEscape(name)+"/images/"+url.PathEscape(imageID), nil, nil, nil)
}

func (c *Client) ClearAlbum(ctx context.Context, name string, fromStorage bool) (BulkDeleteResponse, error) {
	query := url.Values{"from_storage": []string{strconv.FormatBool(fromStorage)}}
	return c.doBulk(ctx, http.MethodDelete, "/api/albums/"+url.PathEscape(name)+"/images", query, nil)
}

// DeleteAccount removes the authenticated user and everything they own.
func (c *Client) DeleteAccount(ctx context.Context) (BulkDeleteResponse, error) {
	return c.doBulk(ctx, http.MethodDelete, "/api/users/me", nil, nil)
}

func (c *Client) doBulk(ctx context.Context, method, path string, query url.Values, body any) (BulkDeleteResponse, error) {
	var resp BulkDeleteResponse
	err := c.do(ctx, method, path, query, body, &resp)
	var bulkErr *BulkError
	if errors.As(err, &bulkErr) {
		resp = bulkErr.Result
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp BulkErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr := APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
		if errResp.Result.Requested > 0 {
			return &BulkError{APIError: apiErr, Result: errResp.Result}
		}
		return &apiErr
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
