package coordinator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"postuploadCPT/internal/media"
	"postuploadCPT/internal/models"
	"postuploadCPT/internal/notify"
	"postuploadCPT/internal/remote"
	"postuploadCPT/internal/repository"
	"postuploadCPT/internal/rewrite"
	"postuploadCPT/internal/search"
)

// Completion вызывается по завершении асинхронной операции над постом
type Completion func(post *models.Post, err error)

type SaveOptions struct {
	// AutomatedRetry - повтор, запущенный сканером, а не пользователем
	AutomatedRetry bool
	// ForceDraftIfCreating принудительно сохраняет еще не принятый
	// сервисом пост как черновик
	ForceDraftIfCreating bool
}

// CredentialsDelegate получает запрос на повторный ввод учетных данных,
// когда удаленный сервис отвечает ошибкой авторизации
type CredentialsDelegate interface {
	PromptForCredentials(blog *models.Blog)
}

type observation struct {
	handle media.Handle
	ticket string
}

// Coordinator последовательно проводит пост через загрузку вложений,
// перезапись ссылок и отправку на удаленный сервис
type Coordinator struct {
	posts   repository.PostRepository
	blogs   repository.BlogRepository
	media   media.Service
	remote  remote.Service
	search  search.Index
	notices notify.Sink
	creds   CredentialsDelegate

	// mu охраняет подписки на события вложений и поколения сохранений
	mu           sync.Mutex
	observations map[string]observation
	generations  map[string]string

	// delMu охраняет множество постов, удаление которых уже идет
	delMu          sync.Mutex
	pendingDeletes map[string]struct{}

	lmu       sync.Mutex
	listeners []func(models.PostEvent)
}

func NewCoordinator(
	posts repository.PostRepository,
	blogs repository.BlogRepository,
	mediaService media.Service,
	remoteService remote.Service,
	searchIndex search.Index,
	notices notify.Sink,
	creds CredentialsDelegate,
) *Coordinator {
	return &Coordinator{
		posts:          posts,
		blogs:          blogs,
		media:          mediaService,
		remote:         remoteService,
		search:         searchIndex,
		notices:        notices,
		creds:          creds,
		observations:   make(map[string]observation),
		generations:    make(map[string]string),
		pendingDeletes: make(map[string]struct{}),
	}
}

// OnPostEvent регистрирует подписчика на события изменения постов
func (c *Coordinator) OnPostEvent(listener func(models.PostEvent)) {
	c.lmu.Lock()
	c.listeners = append(c.listeners, listener)
	c.lmu.Unlock()
}

func (c *Coordinator) emitPostEvent(event models.PostEvent) {
	c.lmu.Lock()
	listeners := make([]func(models.PostEvent), len(c.listeners))
	copy(listeners, c.listeners)
	c.lmu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Save проводит полный цикл сохранения: вложения, перезапись ссылок, отправка
func (c *Coordinator) Save(ctx context.Context, post *models.Post, opts SaveOptions, completion Completion) {
	if opts.AutomatedRetry {
		post.AutoUploadAttempts++
	} else {
		post.AutoUploadAttempts = 0
	}
	if err := c.posts.SetAutoUpload(ctx, post.PostID, post.ShouldAttemptAutoUpload, post.AutoUploadAttempts); err != nil {
		log.Printf("Ошибка сохранения счетчика попыток поста %s: %v", post.PostID, err)
	}

	if opts.ForceDraftIfCreating && !post.HasRemote() {
		post.Status = models.PostStatusDraft
	}

	// Если загрузку вложений нельзя даже начать, отправка не выполняется.
	// Временная ошибка чтения вложений - не приговор самим вложениям:
	// пост попадает в очередь повторов без MediaFailure
	started, err := c.media.UploadMedia(ctx, post, opts.AutomatedRetry)
	if err != nil {
		log.Printf("Ошибка чтения вложений поста %s: %v", post.PostID, err)
		c.markFailed(ctx, post)
		c.notices.Dispatch(notify.Notice{
			Title:   "Не удалось сохранить пост",
			Message: "Изменения сохранены на устройстве и будут отправлены позже",
			Retry:   true,
		})
		if completion != nil {
			completion(post, err)
		}
		return
	}
	if !started {
		c.markFailed(ctx, post)
		c.notices.Dispatch(notify.Notice{
			Title:   "Не удалось сохранить пост",
			Message: "Не удалось загрузить вложения",
			Retry:   true,
		})
		if completion != nil {
			completion(post, &MediaFailureError{PostID: post.PostID})
		}
		return
	}

	c.beginGeneration(post.PostID)
	c.setStatuses(ctx, post, post.Status, models.RemoteStatusPushing)

	if c.media.IsUploadingMedia(ctx, post) {
		c.setStatuses(ctx, post, post.Status, models.RemoteStatusPushingMedia)
		c.rewriteSynced(ctx, post)
		c.observeMedia(post.PostID, false, completion)
		c.recheckMedia(ctx, post, false, completion)
		return
	}

	c.rewriteAll(ctx, post)
	c.submit(ctx, post, false, completion)
}

// AutoSave повторяет схему Save, но отправляет облегченный вариант,
// не меняющий каноническое состояние поста, и не показывает уведомлений
func (c *Coordinator) AutoSave(ctx context.Context, post *models.Post, completion Completion) {
	started, err := c.media.UploadMedia(ctx, post, false)
	if err != nil {
		log.Printf("Ошибка чтения вложений поста %s: %v", post.PostID, err)
		c.markFailed(ctx, post)
		if completion != nil {
			completion(post, err)
		}
		return
	}
	if !started {
		c.markFailed(ctx, post)
		if completion != nil {
			completion(post, &MediaFailureError{PostID: post.PostID})
		}
		return
	}

	c.beginGeneration(post.PostID)
	c.setStatuses(ctx, post, post.Status, models.RemoteStatusPushing)

	if c.media.IsUploadingMedia(ctx, post) {
		c.setStatuses(ctx, post, post.Status, models.RemoteStatusPushingMedia)
		c.rewriteSynced(ctx, post)
		c.observeMedia(post.PostID, true, completion)
		c.recheckMedia(ctx, post, true, completion)
		return
	}

	c.rewriteAll(ctx, post)
	c.submit(ctx, post, true, completion)
}

// Publish переводит черновик в публикацию и делегирует сохранение
func (c *Coordinator) Publish(ctx context.Context, post *models.Post, completion Completion) {
	if post.Status == models.PostStatusDraft || post.Status == "" {
		post.Status = models.PostStatusPublish
	}
	if post.DatePublished == nil {
		now := time.Now()
		post.DatePublished = &now
	}

	c.Save(ctx, post, SaveOptions{}, completion)
}

// CancelAutoUpload снимает подписку ожидающего сохранения и выключает
// автозагрузку. Уже отправленный сетевой запрос не прерывается, но его
// поздний результат отбрасывается по проверке поколения
func (c *Coordinator) CancelAutoUpload(ctx context.Context, post *models.Post) {
	c.mu.Lock()
	if obs, ok := c.observations[post.PostID]; ok {
		delete(c.observations, post.PostID)
		c.media.RemoveObserver(obs.handle)
	}
	c.generations[post.PostID] = uuid.New().String()
	c.mu.Unlock()

	post.ShouldAttemptAutoUpload = false
	if err := c.posts.SetAutoUpload(ctx, post.PostID, false, post.AutoUploadAttempts); err != nil {
		log.Printf("Ошибка выключения автозагрузки поста %s: %v", post.PostID, err)
	}
}

// IsObserving сообщает, ждет ли пост завершения загрузки вложений
func (c *Coordinator) IsObserving(postID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.observations[postID]
	return ok
}

func (c *Coordinator) beginGeneration(postID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ticket := uuid.New().String()
	c.generations[postID] = ticket
	return ticket
}

func (c *Coordinator) isCurrentGeneration(postID, ticket string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[postID] == ticket
}

// observeMedia регистрирует не более одной подписки на пост: повторный
// вызов Save для того же поста новой подписки не создает
func (c *Coordinator) observeMedia(postID string, autosave bool, completion Completion) {
	c.mu.Lock()
	if _, exists := c.observations[postID]; exists {
		c.mu.Unlock()
		return
	}
	ticket := c.generations[postID]
	handle := c.media.AddObserver(postID, func(event media.Event) {
		c.onMediaEvent(postID, ticket, autosave, event, completion)
	})
	c.observations[postID] = observation{handle: handle, ticket: ticket}
	c.mu.Unlock()
}

// recheckMedia закрывает гонку между проверкой IsUploadingMedia и
// регистрацией подписки: последнее вложение могло завершиться в этом окне,
// и его событие некому было доставить. Если загрузки уже не идут, подписка
// снимается и сохранение продолжается по итоговому состоянию вложений
func (c *Coordinator) recheckMedia(ctx context.Context, post *models.Post, autosave bool, completion Completion) {
	if c.media.IsUploadingMedia(ctx, post) {
		return
	}

	c.mu.Lock()
	obs, ok := c.observations[post.PostID]
	c.mu.Unlock()
	if !ok {
		// событие успело дойти обычным путем
		return
	}

	if !c.resolveObservation(post.PostID, obs.ticket) {
		return
	}

	items, err := c.media.MediaFor(ctx, post)
	if err != nil {
		log.Printf("Ошибка получения вложений поста %s: %v", post.PostID, err)
		if completion != nil {
			completion(post, err)
		}
		return
	}

	for _, m := range items {
		if m.RemoteStatus == models.MediaStatusFailed {
			c.markFailed(ctx, post)
			if !autosave {
				c.notices.Dispatch(notify.Notice{
					Title:   "Не удалось сохранить пост",
					Message: "Не удалось загрузить вложения",
					Retry:   true,
				})
			}
			if completion != nil {
				completion(post, &MediaFailureError{PostID: post.PostID})
			}
			return
		}
	}

	post.Content = rewrite.RewriteReferences(post.Content, items)
	if err := c.posts.Update(ctx, post); err != nil {
		log.Printf("Ошибка сохранения контента поста %s: %v", post.PostID, err)
	}
	c.submit(ctx, post, autosave, completion)
}

// resolveObservation снимает подписку, если она все еще принадлежит
// данному поколению сохранения
func (c *Coordinator) resolveObservation(postID, ticket string) bool {
	c.mu.Lock()
	obs, ok := c.observations[postID]
	if !ok || obs.ticket != ticket {
		c.mu.Unlock()
		return false
	}
	delete(c.observations, postID)
	c.mu.Unlock()

	c.media.RemoveObserver(obs.handle)
	return true
}

func (c *Coordinator) onMediaEvent(postID, ticket string, autosave bool, event media.Event, completion Completion) {
	ctx := context.Background()

	c.mu.Lock()
	obs, ok := c.observations[postID]
	current := ok && obs.ticket == ticket
	c.mu.Unlock()
	if !current {
		return
	}

	switch event.State {
	case media.StateUploading:
		return

	case media.StateFailed:
		// Первая ошибка любого вложения решает исход всего сохранения,
		// остальные загрузки не дожидаемся
		if !c.resolveObservation(postID, ticket) {
			return
		}

		post, err := c.posts.GetByID(ctx, postID)
		if err != nil {
			log.Printf("Ошибка получения поста %s: %v", postID, err)
			if completion != nil {
				completion(nil, err)
			}
			return
		}

		c.markFailed(ctx, post)
		if !autosave {
			c.notices.Dispatch(notify.Notice{
				Title:   "Не удалось сохранить пост",
				Message: "Не удалось загрузить вложения",
				Retry:   true,
			})
		}
		if completion != nil {
			completion(post, &MediaFailureError{PostID: postID})
		}

	case media.StateEnded:
		post, err := c.posts.GetByID(ctx, postID)
		if err != nil {
			log.Printf("Ошибка получения поста %s: %v", postID, err)
			return
		}

		if c.media.IsUploadingMedia(ctx, post) {
			// остальные вложения еще загружаются
			return
		}

		if !c.resolveObservation(postID, ticket) {
			return
		}

		c.rewriteAll(ctx, post)
		c.submit(ctx, post, autosave, completion)
	}
}

func (c *Coordinator) rewriteSynced(ctx context.Context, post *models.Post) {
	items, err := c.media.MediaFor(ctx, post)
	if err != nil {
		log.Printf("Ошибка получения вложений поста %s: %v", post.PostID, err)
		return
	}

	var synced []*models.Media
	for _, m := range items {
		if m.RemoteStatus == models.MediaStatusSync {
			synced = append(synced, m)
		}
	}
	if len(synced) == 0 {
		return
	}

	post.Content = rewrite.RewriteReferences(post.Content, synced)
	if err := c.posts.Update(ctx, post); err != nil {
		log.Printf("Ошибка сохранения контента поста %s: %v", post.PostID, err)
	}
}

func (c *Coordinator) rewriteAll(ctx context.Context, post *models.Post) {
	items, err := c.media.MediaFor(ctx, post)
	if err != nil {
		log.Printf("Ошибка получения вложений поста %s: %v", post.PostID, err)
		return
	}

	post.Content = rewrite.RewriteReferences(post.Content, items)
	if err := c.posts.Update(ctx, post); err != nil {
		log.Printf("Ошибка сохранения контента поста %s: %v", post.PostID, err)
	}
}

// submit отправляет пост на удаленный сервис; вызывающая сторона не блокируется
func (c *Coordinator) submit(ctx context.Context, post *models.Post, autosave bool, completion Completion) {
	c.setStatuses(ctx, post, post.Status, models.RemoteStatusPushing)

	c.mu.Lock()
	ticket := c.generations[post.PostID]
	c.mu.Unlock()

	go func() {
		// Отправка переживает контекст вызвавшей стороны
		bg := context.Background()

		var uploaded *models.Post
		var err error
		if autosave {
			uploaded, err = c.remote.AutoSave(bg, post)
		} else {
			uploaded, err = c.remote.UploadPost(bg, post)
		}

		c.commit(bg, post, ticket, uploaded, err, autosave, completion)
	}()
}

func (c *Coordinator) commit(ctx context.Context, post *models.Post, ticket string, uploaded *models.Post, submitErr error, autosave bool, completion Completion) {
	// Результат, пришедший после отмены или более свежего сохранения,
	// не фиксируется
	if !c.isCurrentGeneration(post.PostID, ticket) {
		log.Printf("Устаревший результат отправки поста %s отброшен", post.PostID)
		return
	}

	if submitErr == nil && uploaded == nil {
		submitErr = ErrUnknown
	}
	if errors.Is(submitErr, remote.ErrEmptyResponse) {
		submitErr = ErrUnknown
	}

	if submitErr != nil {
		if remote.IsForbidden(submitErr) {
			c.handleForbidden(ctx, post)
		}

		c.markFailed(ctx, post)
		if !autosave {
			c.notices.Dispatch(notify.Notice{
				Title:   "Не удалось сохранить пост",
				Message: "Изменения сохранены на устройстве и будут отправлены позже",
				Retry:   true,
			})
		}
		if completion != nil {
			completion(post, submitErr)
		}
		return
	}

	firstPublish := !post.HasRemote()

	post.RemoteID = uploaded.RemoteID
	post.RemoteStatus = models.RemoteStatusPushed
	if !autosave {
		if uploaded.Status != "" {
			post.Status = uploaded.Status
		}
		if uploaded.DatePublished != nil {
			post.DatePublished = uploaded.DatePublished
		}
		if uploaded.Content != "" {
			post.Content = uploaded.Content
		}
	}

	if err := c.posts.SetRemoteResult(ctx, post); err != nil {
		log.Printf("Ошибка фиксации результата отправки поста %s: %v", post.PostID, err)
	}

	if !autosave {
		c.search.IndexPost(ctx, post)
		c.notices.Dispatch(successNotice(post, firstPublish))
	}

	if completion != nil {
		completion(post, nil)
	}
}

func successNotice(post *models.Post, firstPublish bool) notify.Notice {
	switch post.Status {
	case models.PostStatusScheduled:
		return notify.Notice{Title: "Пост запланирован", Message: post.Title}
	case models.PostStatusPublish:
		if firstPublish {
			return notify.Notice{Title: "Пост опубликован", Message: post.Title}
		}
		return notify.Notice{Title: "Пост обновлен", Message: post.Title}
	}
	return notify.Notice{Title: "Пост сохранен", Message: post.Title}
}

// markFailed переводит пост в состояние ошибки; никогда не публиковавшийся
// пост откатывается в черновик
func (c *Coordinator) markFailed(ctx context.Context, post *models.Post) {
	post.RemoteStatus = models.RemoteStatusFailed
	if !post.HasRemote() {
		post.Status = models.PostStatusDraft
	}
	c.setStatuses(ctx, post, post.Status, post.RemoteStatus)
}

func (c *Coordinator) setStatuses(ctx context.Context, post *models.Post, status, remoteStatus string) {
	post.Status = status
	post.RemoteStatus = remoteStatus
	if err := c.posts.SetStatuses(ctx, post.PostID, status, remoteStatus); err != nil {
		log.Printf("Ошибка смены статуса поста %s: %v", post.PostID, err)
	}
}

func (c *Coordinator) handleForbidden(ctx context.Context, post *models.Post) {
	blog, err := c.blogs.GetByID(ctx, post.BlogID)
	if err != nil {
		log.Printf("Ошибка получения блога %s: %v", post.BlogID, err)
		return
	}

	if err := c.blogs.SetNeedsCredentials(ctx, blog.BlogID, true); err != nil {
		log.Printf("Ошибка обновления блога %s: %v", blog.BlogID, err)
	}
	blog.NeedsCredentials = true

	if c.creds != nil {
		c.creds.PromptForCredentials(blog)
	}
}
