package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"postuploadCPT/internal/models"
	"postuploadCPT/internal/repository"
	"postuploadCPT/internal/storage"
)

type State string

const (
	StateUploading State = "uploading"
	StateEnded     State = "ended"
	StateFailed    State = "failed"
)

// Event - событие изменения состояния медиафайла
type Event struct {
	Media *models.Media
	State State
}

// Handle - непрозрачный токен подписки на события медиафайлов поста
type Handle string

type Service interface {
	UploadMedia(ctx context.Context, post *models.Post, automatedRetry bool) (bool, error)
	IsUploadingMedia(ctx context.Context, post *models.Post) bool
	MediaFor(ctx context.Context, post *models.Post) ([]*models.Media, error)
	AddObserver(postID string, callback func(Event)) Handle
	RemoveObserver(handle Handle)
	HasObserver(postID string) bool
	CancelUploads(postID string)
}

// MediaRegistrar регистрирует загруженный файл на удаленном сервисе и
// возвращает присвоенный идентификатор, варианты размеров и GUID видео
type MediaRegistrar interface {
	RegisterMedia(ctx context.Context, media *models.Media) (*models.Media, error)
	ResolveVideoURL(ctx context.Context, guid string) (string, error)
}

type observer struct {
	postID   string
	callback func(Event)
}

type UploadService struct {
	repo      repository.MediaRepository
	store     storage.Storage
	registrar MediaRegistrar

	// mu охраняет подписчиков и карту активных загрузок
	mu        sync.Mutex
	observers map[Handle]observer
	active    map[string]map[string]context.CancelFunc // post_id -> media_id -> cancel
}

func NewUploadService(repo repository.MediaRepository, store storage.Storage, registrar MediaRegistrar) *UploadService {
	return &UploadService{
		repo:      repo,
		store:     store,
		registrar: registrar,
		observers: make(map[Handle]observer),
		active:    make(map[string]map[string]context.CancelFunc),
	}
}

// UploadMedia запускает или продолжает загрузку всех незагруженных вложений
// поста. Возвращает false, если среди вложений есть непригодное для загрузки -
// в этом случае ни одна загрузка не стартует. Ошибка означает, что состояние
// вложений прочитать не удалось; сами вложения при этом могут быть исправны.
func (s *UploadService) UploadMedia(ctx context.Context, post *models.Post, automatedRetry bool) (bool, error) {
	items, err := s.repo.GetByPostID(ctx, post.PostID)
	if err != nil {
		return false, fmt.Errorf("ошибка получения медиафайлов поста %s: %w", post.PostID, err)
	}

	var pending []*models.Media
	for _, m := range items {
		if m.RemoteStatus == models.MediaStatusSync {
			continue
		}
		if !isUploadable(m) {
			return false, nil
		}
		pending = append(pending, m)
	}

	for _, m := range pending {
		s.startUpload(ctx, post.PostID, m)
	}

	return true, nil
}

func isUploadable(m *models.Media) bool {
	if m.LocalPath == "" {
		return false
	}
	switch m.MediaType {
	case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeAudio, models.MediaTypeDocument:
		return true
	}
	return false
}

func (s *UploadService) IsUploadingMedia(ctx context.Context, post *models.Post) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active[post.PostID]) > 0
}

func (s *UploadService) MediaFor(ctx context.Context, post *models.Post) ([]*models.Media, error) {
	return s.repo.GetByPostID(ctx, post.PostID)
}

func (s *UploadService) AddObserver(postID string, callback func(Event)) Handle {
	handle := Handle(uuid.New().String())

	s.mu.Lock()
	s.observers[handle] = observer{postID: postID, callback: callback}
	s.mu.Unlock()

	return handle
}

func (s *UploadService) RemoveObserver(handle Handle) {
	s.mu.Lock()
	delete(s.observers, handle)
	s.mu.Unlock()
}

func (s *UploadService) HasObserver(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observers {
		if o.postID == postID {
			return true
		}
	}
	return false
}

// CancelUploads прерывает незавершенные загрузки вложений поста.
// Уже отправленные байты не отзываются
func (s *UploadService) CancelUploads(postID string) {
	s.mu.Lock()
	cancels := s.active[postID]
	delete(s.active, postID)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (s *UploadService) startUpload(ctx context.Context, postID string, m *models.Media) {
	s.mu.Lock()
	if _, busy := s.active[postID][m.MediaID]; busy {
		s.mu.Unlock()
		return
	}
	// Загрузка переживает вызов Save, поэтому не наследует его контекст
	uploadCtx, cancel := context.WithCancel(context.Background())
	if s.active[postID] == nil {
		s.active[postID] = make(map[string]context.CancelFunc)
	}
	s.active[postID][m.MediaID] = cancel
	s.mu.Unlock()

	if err := s.repo.SetRemoteStatus(ctx, m.MediaID, models.MediaStatusUploading); err != nil {
		log.Printf("Ошибка смены статуса медиафайла %s: %v", m.MediaID, err)
	}
	m.RemoteStatus = models.MediaStatusUploading
	s.emit(postID, Event{Media: m, State: StateUploading})

	go s.run(uploadCtx, postID, m)
}

func (s *UploadService) run(uploadCtx context.Context, postID string, m *models.Media) {
	// Результат фиксируется независимо от контекста вызвавшего Save
	ctx := context.Background()

	_, objectURL, err := s.store.UploadObject(uploadCtx, postID, m.LocalPath)
	if err != nil {
		s.finish(ctx, postID, m, err)
		return
	}

	m.RemoteURL = objectURL

	registered, err := s.registrar.RegisterMedia(uploadCtx, m)
	if err != nil {
		s.finish(ctx, postID, m, err)
		return
	}

	m.RemoteMediaID = registered.RemoteMediaID
	m.VideoGUID = registered.VideoGUID
	m.Renditions = registered.Renditions
	if registered.RemoteURL != "" {
		m.RemoteURL = registered.RemoteURL
	}

	// Видео считается готовым только после получения итогового URL
	// воспроизведения; ошибка этого шага равна ошибке самого файла
	if m.MediaType == models.MediaTypeVideo {
		playbackURL, err := s.registrar.ResolveVideoURL(uploadCtx, m.VideoGUID)
		if err != nil {
			s.finish(ctx, postID, m, err)
			return
		}
		m.RemoteURL = playbackURL
	}

	s.finish(ctx, postID, m, nil)
}

func (s *UploadService) finish(ctx context.Context, postID string, m *models.Media, uploadErr error) {
	s.mu.Lock()
	if cancels, ok := s.active[postID]; ok {
		delete(cancels, m.MediaID)
		if len(cancels) == 0 {
			delete(s.active, postID)
		}
	}
	s.mu.Unlock()

	if uploadErr != nil {
		if errors.Is(uploadErr, context.Canceled) {
			// Отмененная загрузка возвращается в исходное состояние без события
			m.RemoteStatus = models.MediaStatusLocal
			if err := s.repo.SetRemoteStatus(ctx, m.MediaID, models.MediaStatusLocal); err != nil {
				log.Printf("Ошибка возврата статуса медиафайла %s: %v", m.MediaID, err)
			}
			return
		}

		log.Printf("Ошибка загрузки медиафайла %s: %v", m.MediaID, uploadErr)
		m.RemoteStatus = models.MediaStatusFailed
		if err := s.repo.SetRemoteStatus(ctx, m.MediaID, models.MediaStatusFailed); err != nil {
			log.Printf("Ошибка смены статуса медиафайла %s: %v", m.MediaID, err)
		}
		s.emit(postID, Event{Media: m, State: StateFailed})
		return
	}

	m.RemoteStatus = models.MediaStatusSync
	if err := s.repo.SetRemoteResult(ctx, m); err != nil {
		log.Printf("Ошибка сохранения результата загрузки %s: %v", m.MediaID, err)
	}
	s.emit(postID, Event{Media: m, State: StateEnded})
}

func (s *UploadService) emit(postID string, event Event) {
	s.mu.Lock()
	var callbacks []func(Event)
	for _, o := range s.observers {
		if o.postID == postID {
			callbacks = append(callbacks, o.callback)
		}
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(event)
	}
}
