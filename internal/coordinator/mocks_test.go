package coordinator

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"postuploadCPT/internal/media"
	"postuploadCPT/internal/models"
	"postuploadCPT/internal/notify"
)

type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) SetStatuses(ctx context.Context, postID, status, remoteStatus string) error {
	args := m.Called(ctx, postID, status, remoteStatus)
	return args.Error(0)
}

func (m *MockPostRepository) SetRemoteResult(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) SetAutoUpload(ctx context.Context, postID string, shouldAttempt bool, attempts int) error {
	args := m.Called(ctx, postID, shouldAttempt, attempts)
	return args.Error(0)
}

func (m *MockPostRepository) Trash(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *MockPostRepository) ListFailed(ctx context.Context) ([]*models.Post, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

type MockBlogRepository struct {
	mock.Mock
}

func (m *MockBlogRepository) GetByID(ctx context.Context, blogID string) (*models.Blog, error) {
	args := m.Called(ctx, blogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Blog), args.Error(1)
}

func (m *MockBlogRepository) SetNeedsCredentials(ctx context.Context, blogID string, needs bool) error {
	args := m.Called(ctx, blogID, needs)
	return args.Error(0)
}

// MockMediaService запоминает подписки, чтобы тест мог вручную
// рассылать события вложений
type MockMediaService struct {
	mock.Mock

	mu        sync.Mutex
	callbacks map[media.Handle]mockObserver
}

type mockObserver struct {
	postID   string
	callback func(media.Event)
}

func NewMockMediaService() *MockMediaService {
	return &MockMediaService{callbacks: make(map[media.Handle]mockObserver)}
}

func (m *MockMediaService) UploadMedia(ctx context.Context, post *models.Post, automatedRetry bool) (bool, error) {
	args := m.Called(ctx, post, automatedRetry)
	return args.Bool(0), args.Error(1)
}

func (m *MockMediaService) IsUploadingMedia(ctx context.Context, post *models.Post) bool {
	args := m.Called(ctx, post)
	return args.Bool(0)
}

func (m *MockMediaService) MediaFor(ctx context.Context, post *models.Post) ([]*models.Media, error) {
	args := m.Called(ctx, post)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Media), args.Error(1)
}

func (m *MockMediaService) AddObserver(postID string, callback func(media.Event)) media.Handle {
	args := m.Called(postID)
	handle := media.Handle(args.String(0))

	m.mu.Lock()
	m.callbacks[handle] = mockObserver{postID: postID, callback: callback}
	m.mu.Unlock()

	return handle
}

func (m *MockMediaService) RemoveObserver(handle media.Handle) {
	m.Called(handle)

	m.mu.Lock()
	delete(m.callbacks, handle)
	m.mu.Unlock()
}

func (m *MockMediaService) HasObserver(postID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.callbacks {
		if o.postID == postID {
			return true
		}
	}
	return false
}

func (m *MockMediaService) CancelUploads(postID string) {
	m.Called(postID)
}

// Emit рассылает событие всем подписчикам поста, как это делает
// настоящий сервис вложений
func (m *MockMediaService) Emit(postID string, event media.Event) {
	m.mu.Lock()
	var callbacks []func(media.Event)
	for _, o := range m.callbacks {
		if o.postID == postID {
			callbacks = append(callbacks, o.callback)
		}
	}
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(event)
	}
}

func (m *MockMediaService) ObserverCount(postID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, o := range m.callbacks {
		if o.postID == postID {
			count++
		}
	}
	return count
}

type MockRemoteService struct {
	mock.Mock
}

func (m *MockRemoteService) UploadPost(ctx context.Context, post *models.Post) (*models.Post, error) {
	args := m.Called(ctx, post)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockRemoteService) AutoSave(ctx context.Context, post *models.Post) (*models.Post, error) {
	args := m.Called(ctx, post)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockRemoteService) TrashPost(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockRemoteService) DeletePost(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockRemoteService) RegisterMedia(ctx context.Context, mediaItem *models.Media) (*models.Media, error) {
	args := m.Called(ctx, mediaItem)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Media), args.Error(1)
}

func (m *MockRemoteService) ResolveVideoURL(ctx context.Context, guid string) (string, error) {
	args := m.Called(ctx, guid)
	return args.String(0), args.Error(1)
}

type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) IndexPost(ctx context.Context, post *models.Post) {
	m.Called(ctx, post)
}

func (m *MockSearchIndex) DeletePost(ctx context.Context, postID string) {
	m.Called(ctx, postID)
}

// MockNoticeSink собирает уведомления для проверок
type MockNoticeSink struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (m *MockNoticeSink) Dispatch(notice notify.Notice) {
	m.mu.Lock()
	m.notices = append(m.notices, notice)
	m.mu.Unlock()
}

func (m *MockNoticeSink) Notices() []notify.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]notify.Notice, len(m.notices))
	copy(result, m.notices)
	return result
}

type MockCredentialsDelegate struct {
	mu    sync.Mutex
	blogs []*models.Blog
}

func (m *MockCredentialsDelegate) PromptForCredentials(blog *models.Blog) {
	m.mu.Lock()
	m.blogs = append(m.blogs, blog)
	m.mu.Unlock()
}

func (m *MockCredentialsDelegate) Prompted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blogs)
}
