package coordinator

import (
	"context"
	"log"

	"github.com/google/uuid"

	"postuploadCPT/internal/models"
	"postuploadCPT/internal/notify"
	"postuploadCPT/internal/remote"
)

// Delete асинхронно перемещает пост в корзину, а пост из корзины удаляет
// навсегда. Повторный вызов для поста, удаление которого уже идет,
// завершается ошибкой ErrDeleteInProgress
func (c *Coordinator) Delete(ctx context.Context, post *models.Post, completion Completion) {
	c.delMu.Lock()
	if _, pending := c.pendingDeletes[post.PostID]; pending {
		c.delMu.Unlock()
		if completion != nil {
			completion(post, ErrDeleteInProgress)
		}
		return
	}
	c.pendingDeletes[post.PostID] = struct{}{}
	c.delMu.Unlock()

	c.emitPostEvent(models.PostEvent{
		Kind:    models.PostEventPendingDelete,
		PostIDs: []string{post.PostID},
	})

	permanent := post.Status == models.PostStatusTrash

	go func() {
		bg := context.Background()

		var err error
		if post.HasRemote() {
			if permanent {
				err = c.remote.DeletePost(bg, post)
			} else {
				err = c.remote.TrashPost(bg, post)
			}
		}

		if err == nil {
			if permanent {
				err = c.posts.Delete(bg, post.PostID)
			} else {
				err = c.posts.Trash(bg, post.PostID)
			}
		}

		if err != nil {
			c.finishDelete(bg, post, permanent, err, completion)
			return
		}

		if !permanent {
			post.Status = models.PostStatusTrash
		}

		// Снимаем подписку ожидающего сохранения и прерываем загрузки вложений
		c.clearObservation(post.PostID)
		c.media.CancelUploads(post.PostID)
		c.search.DeletePost(bg, post.PostID)

		c.finishDelete(bg, post, permanent, nil, completion)
	}()
}

func (c *Coordinator) finishDelete(ctx context.Context, post *models.Post, permanent bool, deleteErr error, completion Completion) {
	c.delMu.Lock()
	delete(c.pendingDeletes, post.PostID)
	c.delMu.Unlock()

	if deleteErr != nil {
		log.Printf("Ошибка удаления поста %s: %v", post.PostID, deleteErr)

		if remote.IsForbidden(deleteErr) {
			c.handleForbidden(ctx, post)
		}

		c.notices.Dispatch(notify.Notice{
			Title:   "Не удалось удалить пост",
			Message: post.Title,
			Retry:   true,
		})
		c.emitPostEvent(models.PostEvent{
			Kind:    models.PostEventDeleteFailed,
			PostIDs: []string{post.PostID},
		})
		if completion != nil {
			completion(post, deleteErr)
		}
		return
	}

	if permanent {
		c.notices.Dispatch(notify.Notice{Title: "Пост удален", Message: post.Title})
	} else {
		c.notices.Dispatch(notify.Notice{Title: "Пост перемещен в корзину", Message: post.Title})
	}

	c.emitPostEvent(models.PostEvent{
		Kind:    models.PostEventDeleted,
		PostIDs: []string{post.PostID},
	})
	if completion != nil {
		completion(post, nil)
	}
}

// clearObservation снимает подписку поста и открывает новое поколение,
// чтобы поздние результаты отправки не зафиксировались
func (c *Coordinator) clearObservation(postID string) {
	c.mu.Lock()
	if obs, ok := c.observations[postID]; ok {
		delete(c.observations, postID)
		c.media.RemoveObserver(obs.handle)
	}
	c.generations[postID] = uuid.New().String()
	c.mu.Unlock()
}
