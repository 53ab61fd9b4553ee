package coordinator

import (
	"errors"
	"fmt"
)

// ErrUnknown возвращается, когда отправка завершилась без разборчивого результата
var ErrUnknown = errors.New("сервис не вернул разборчивый результат")

// ErrDeleteInProgress возвращается при повторном запросе удаления поста,
// которое еще не завершилось
var ErrDeleteInProgress = errors.New("пост уже удаляется")

// MediaFailureError означает, что одно или несколько вложений поста
// не удалось загрузить; отправка поста при этом не выполнялась
type MediaFailureError struct {
	PostID string
}

func (e *MediaFailureError) Error() string {
	return fmt.Sprintf("не удалось загрузить вложения поста %s", e.PostID)
}

// IsMediaFailure распознает ошибку вложений, чтобы вызывающая сторона
// могла предложить действия именно с медиафайлами
func IsMediaFailure(err error) bool {
	var mediaErr *MediaFailureError
	return errors.As(err, &mediaErr)
}
