package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"postuploadCPT/internal/models"
)

// Пока медиафайл не загружен, контент ссылается на него через
// placeholder-форму по стабильному upload_id:
//
//	src="local://<upload_id>"            - любой тип вложения
//	data-media-id="<upload_id>"          - изображения
//	ids="<upload_id>,42,<upload_id>"     - галереи
//	data-upload-id="<upload_id>"         - видео (вторичный идентификатор обработки)
//
// После перезаписи placeholder-формы в контенте не остается, поэтому
// повторный прогон ничего не меняет.

var galleryIDsRe = regexp.MustCompile(`ids="([^"]*)"`)

// RewriteReferences заменяет все placeholder-ссылки на готовые медиафайлы
// их итоговыми URL и идентификаторами. Файлы без итогового URL пропускаются.
func RewriteReferences(content string, media []*models.Media) string {
	for _, m := range media {
		if m == nil || m.UploadID == "" {
			continue
		}
		if m.RemoteURL == "" && len(m.Renditions) == 0 {
			continue
		}

		switch m.MediaType {
		case models.MediaTypeImage:
			content = rewriteImage(content, m)
		case models.MediaTypeVideo:
			content = rewriteVideo(content, m)
		default:
			// аудио и документы: только прямая ссылка
			content = replaceURL(content, m)
		}
	}

	return content
}

func rewriteImage(content string, m *models.Media) string {
	content = replaceURL(content, m)

	if m.RemoteMediaID != 0 {
		content = strings.ReplaceAll(content,
			fmt.Sprintf(`data-media-id="%s"`, m.UploadID),
			fmt.Sprintf(`data-media-id="%d"`, m.RemoteMediaID))
		content = rewriteGalleryIDs(content, m)
	}

	return content
}

func rewriteVideo(content string, m *models.Media) string {
	content = replaceURL(content, m)

	if m.VideoGUID != "" {
		content = strings.ReplaceAll(content,
			fmt.Sprintf(`data-upload-id="%s"`, m.UploadID),
			fmt.Sprintf(`data-videopress-guid="%s"`, m.VideoGUID))
	}

	return content
}

func replaceURL(content string, m *models.Media) string {
	return strings.ReplaceAll(content, "local://"+m.UploadID, BestURL(m))
}

// rewriteGalleryIDs заменяет upload_id внутри атрибутов ids="..."
// на числовой идентификатор, присвоенный сервисом
func rewriteGalleryIDs(content string, m *models.Media) string {
	return galleryIDsRe.ReplaceAllStringFunc(content, func(attr string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(attr, `ids="`), `"`)
		parts := strings.Split(inner, ",")
		changed := false
		for i, part := range parts {
			if strings.TrimSpace(part) == m.UploadID {
				parts[i] = fmt.Sprintf("%d", m.RemoteMediaID)
				changed = true
			}
		}
		if !changed {
			return attr
		}
		return fmt.Sprintf(`ids="%s"`, strings.Join(parts, ","))
	})
}

// BestURL выбирает самый крупный из доступных вариантов изображения
func BestURL(m *models.Media) string {
	best := ""
	bestWidth := 0
	for width, url := range m.Renditions {
		if width > bestWidth && url != "" {
			best = url
			bestWidth = width
		}
	}
	if best != "" {
		return best
	}
	return m.RemoteURL
}
