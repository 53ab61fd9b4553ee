package retry

import (
	"context"
	"log"

	"postuploadCPT/internal/coordinator"
	"postuploadCPT/internal/models"
	"postuploadCPT/internal/repository"
)

// Action - решение сканера по одному посту с ошибкой загрузки
type Action string

const (
	ActionUpload        Action = "upload"
	ActionUploadAsDraft Action = "uploadAsDraft"
	ActionAutoSave      Action = "autoSave"
	ActionNothing       Action = "nothing"
)

// Scanner при восстановлении связи перебирает посты с ошибкой загрузки
// и перезапускает их через координатор
type Scanner struct {
	posts       repository.PostRepository
	coord       *coordinator.Coordinator
	maxAttempts int
}

func NewScanner(posts repository.PostRepository, coord *coordinator.Coordinator, maxAttempts int) *Scanner {
	return &Scanner{
		posts:       posts,
		coord:       coord,
		maxAttempts: maxAttempts,
	}
}

// ActionFor выбирает действие для поста по его статусу и флагу автозагрузки
func ActionFor(post *models.Post, maxAttempts int) Action {
	if !post.ShouldAttemptAutoUpload {
		return ActionNothing
	}

	if post.AutoUploadAttempts >= maxAttempts {
		// Лимит полных повторов исчерпан; для поста, уже принятого
		// сервисом, изменения сохраняются автосохранением
		if post.HasRemote() {
			return ActionAutoSave
		}
		return ActionNothing
	}

	if post.Status == models.PostStatusDraft {
		return ActionUploadAsDraft
	}
	if post.IsPublishable() {
		return ActionUpload
	}

	return ActionNothing
}

// ScanAndRetry запускает повтор для каждого подходящего поста.
// Ошибки отдельных повторов обрабатывает сам координатор
func (s *Scanner) ScanAndRetry(ctx context.Context) int {
	failed, err := s.posts.ListFailed(ctx)
	if err != nil {
		log.Printf("Ошибка сканирования постов для повтора: %v", err)
		return 0
	}

	dispatched := 0
	for _, post := range failed {
		action := ActionFor(post, s.maxAttempts)
		if action == ActionNothing {
			continue
		}

		log.Printf("Повтор загрузки поста %s: %s", post.PostID, action)
		dispatched++

		switch action {
		case ActionUpload:
			s.coord.Save(ctx, post, coordinator.SaveOptions{AutomatedRetry: true}, nil)
		case ActionUploadAsDraft:
			s.coord.Save(ctx, post, coordinator.SaveOptions{
				AutomatedRetry:       true,
				ForceDraftIfCreating: true,
			}, nil)
		case ActionAutoSave:
			s.coord.AutoSave(ctx, post, nil)
		}
	}

	return dispatched
}
