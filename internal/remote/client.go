package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"postuploadCPT/internal/config"
	"postuploadCPT/internal/models"
)

// ErrEmptyResponse возвращается, когда удаленный сервис ответил успешно,
// но тело ответа разобрать не удалось
var ErrEmptyResponse = errors.New("пустой ответ удаленного сервиса")

// Service - контракт удаленного сервиса публикации. Одна попытка на вызов,
// без встроенных повторов
type Service interface {
	UploadPost(ctx context.Context, post *models.Post) (*models.Post, error)
	AutoSave(ctx context.Context, post *models.Post) (*models.Post, error)
	TrashPost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, post *models.Post) error
	RegisterMedia(ctx context.Context, media *models.Media) (*models.Media, error)
	ResolveVideoURL(ctx context.Context, guid string) (string, error)
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("удаленный сервис вернул %d: %s", e.StatusCode, e.Message)
}

// IsForbidden распознает ошибку авторизации, по которой нужно
// заново запросить учетные данные
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Remote.BaseURL,
		token:   cfg.Remote.Token,
		http:    &http.Client{Timeout: cfg.Remote.Timeout},
	}
}

type postPayload struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Status        string     `json:"status"`
	DatePublished *time.Time `json:"datePublished"`
}

type videoPayload struct {
	GUID string `json:"guid"`
	URL  string `json:"url"`
}

type mediaPayload struct {
	ID         int64          `json:"id"`
	URL        string         `json:"url"`
	MediaType  string         `json:"mediaType"`
	VideoGUID  string         `json:"videoGuid"`
	Renditions map[int]string `json:"renditions"`
}

func (c *Client) UploadPost(ctx context.Context, post *models.Post) (*models.Post, error) {
	url := c.baseURL + "/posts"
	if post.HasRemote() {
		url = fmt.Sprintf("%s/posts/%d", c.baseURL, post.RemoteID)
	}

	payload := postPayload{
		ID:            post.RemoteID,
		Title:         post.Title,
		Content:       post.Content,
		Status:        post.Status,
		DatePublished: post.DatePublished,
	}

	var result postPayload
	if err := c.do(ctx, http.MethodPost, url, payload, &result); err != nil {
		return nil, err
	}

	return applyRemote(post, result), nil
}

func (c *Client) AutoSave(ctx context.Context, post *models.Post) (*models.Post, error) {
	if !post.HasRemote() {
		return nil, errors.New("автосохранение доступно только для постов, уже принятых сервисом")
	}

	url := fmt.Sprintf("%s/posts/%d/autosave", c.baseURL, post.RemoteID)

	payload := postPayload{
		ID:      post.RemoteID,
		Title:   post.Title,
		Content: post.Content,
	}

	var result postPayload
	if err := c.do(ctx, http.MethodPost, url, payload, &result); err != nil {
		return nil, err
	}

	// Автосохранение не меняет каноническое состояние поста
	updated := *post
	updated.RemoteID = result.ID
	return &updated, nil
}

func (c *Client) TrashPost(ctx context.Context, post *models.Post) error {
	url := fmt.Sprintf("%s/posts/%d", c.baseURL, post.RemoteID)
	return c.do(ctx, http.MethodDelete, url, nil, nil)
}

func (c *Client) DeletePost(ctx context.Context, post *models.Post) error {
	url := fmt.Sprintf("%s/posts/%d?force=true", c.baseURL, post.RemoteID)
	return c.do(ctx, http.MethodDelete, url, nil, nil)
}

// RegisterMedia сообщает сервису о загруженном файле; в ответ приходят
// присвоенный идентификатор, варианты размеров и GUID для видео
func (c *Client) RegisterMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	url := c.baseURL + "/media"

	payload := mediaPayload{
		URL:       media.RemoteURL,
		MediaType: media.MediaType,
	}

	var result mediaPayload
	if err := c.do(ctx, http.MethodPost, url, payload, &result); err != nil {
		return nil, err
	}

	registered := *media
	registered.RemoteMediaID = result.ID
	registered.VideoGUID = result.VideoGUID
	registered.Renditions = result.Renditions
	if result.URL != "" {
		registered.RemoteURL = result.URL
	}
	return &registered, nil
}

// ResolveVideoURL запрашивает итоговый URL воспроизведения видео после
// завершения обработки на стороне сервиса
func (c *Client) ResolveVideoURL(ctx context.Context, guid string) (string, error) {
	url := fmt.Sprintf("%s/videos/%s", c.baseURL, guid)

	var result videoPayload
	if err := c.do(ctx, http.MethodGet, url, nil, &result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", ErrEmptyResponse
	}

	return result.URL, nil
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса к удаленному сервису: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}

	if out == nil {
		return nil
	}

	if len(data) == 0 {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal(data, out); err != nil {
		return ErrEmptyResponse
	}

	return nil
}

func applyRemote(post *models.Post, payload postPayload) *models.Post {
	updated := *post
	updated.RemoteID = payload.ID
	if payload.Status != "" {
		updated.Status = payload.Status
	}
	if payload.Content != "" {
		updated.Content = payload.Content
	}
	if payload.DatePublished != nil {
		updated.DatePublished = payload.DatePublished
	}
	updated.RemoteStatus = models.RemoteStatusPushed
	return &updated
}
