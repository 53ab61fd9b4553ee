package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"postuploadCPT/internal/coordinator"
	"postuploadCPT/internal/models"
)

type CreatePostRequest struct {
	BlogID  string `json:"blogId" validate:"required"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type AddMediaRequest struct {
	MediaType string `json:"mediaType" validate:"required,oneof=image video audio document"`
	LocalPath string `json:"localPath" validate:"required"`
	Filename  string `json:"filename"`
	Filesize  int64  `json:"filesize"`
}

type SaveRequest struct {
	AutomatedRetry       bool `json:"automatedRetry"`
	ForceDraftIfCreating bool `json:"forceDraftIfCreating"`
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if err := h.Validate.Struct(req); err != nil {
		WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	post := &models.Post{
		BlogID:  req.BlogID,
		Title:   req.Title,
		Content: req.Content,
		Status:  req.Status,
	}

	if err := h.PostRepo.Create(r.Context(), post); err != nil {
		WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	WriteSuccess(w, post, http.StatusCreated)
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	post, err := h.PostRepo.GetByID(r.Context(), postID)
	if err != nil {
		if strings.Contains(err.Error(), "не найден") {
			WriteError(w, "Пост не найден", http.StatusNotFound)
		} else {
			WriteError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	media, err := h.MediaRepo.GetByPostID(r.Context(), postID)
	if err == nil {
		post.Media = media
	}

	WriteSuccess(w, post, http.StatusOK)
}

// AddMedia регистрирует локальное вложение поста; сами байты
// загружаются координатором при сохранении
func (h *Handlers) AddMedia(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	var req AddMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if err := h.Validate.Struct(req); err != nil {
		WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Filesize > h.Cfg.MaxUploadSize {
		WriteError(w, "Файл слишком большой", http.StatusBadRequest)
		return
	}

	if _, err := h.PostRepo.GetByID(r.Context(), postID); err != nil {
		WriteError(w, "Пост не найден", http.StatusNotFound)
		return
	}

	media := &models.Media{
		PostID:    postID,
		MediaType: req.MediaType,
		LocalPath: req.LocalPath,
		Filename:  req.Filename,
		Filesize:  req.Filesize,
	}

	if err := h.MediaRepo.Create(r.Context(), media); err != nil {
		WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	WriteSuccess(w, media, http.StatusCreated)
}

func (h *Handlers) SavePost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	var req SaveRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, "Неверный формат запроса", http.StatusBadRequest)
			return
		}
	}

	post, err := h.PostRepo.GetByID(r.Context(), postID)
	if err != nil {
		WriteError(w, "Пост не найден", http.StatusNotFound)
		return
	}

	h.Coordinator.Save(r.Context(), post, coordinator.SaveOptions{
		AutomatedRetry:       req.AutomatedRetry,
		ForceDraftIfCreating: req.ForceDraftIfCreating,
	}, nil)

	WriteSuccess(w, MessageResponse{Message: "Сохранение запущено"}, http.StatusAccepted)
}

func (h *Handlers) AutoSavePost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	post, err := h.PostRepo.GetByID(r.Context(), postID)
	if err != nil {
		WriteError(w, "Пост не найден", http.StatusNotFound)
		return
	}

	h.Coordinator.AutoSave(r.Context(), post, nil)

	WriteSuccess(w, MessageResponse{Message: "Автосохранение запущено"}, http.StatusAccepted)
}

func (h *Handlers) PublishPost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	post, err := h.PostRepo.GetByID(r.Context(), postID)
	if err != nil {
		WriteError(w, "Пост не найден", http.StatusNotFound)
		return
	}

	h.Coordinator.Publish(r.Context(), post, nil)

	WriteSuccess(w, MessageResponse{Message: "Публикация запущена"}, http.StatusAccepted)
}

func (h *Handlers) CancelAutoUpload(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	post, err := h.PostRepo.GetByID(r.Context(), postID)
	if err != nil {
		WriteError(w, "Пост не найден", http.StatusNotFound)
		return
	}

	h.Coordinator.CancelAutoUpload(r.Context(), post)

	WriteSuccess(w, MessageResponse{Message: "Автозагрузка отключена"}, http.StatusOK)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	post, err := h.PostRepo.GetByID(r.Context(), postID)
	if err != nil {
		WriteError(w, "Пост не найден", http.StatusNotFound)
		return
	}

	done := make(chan error, 1)
	h.Coordinator.Delete(r.Context(), post, func(_ *models.Post, err error) {
		done <- err
	})

	// Повторное удаление отклоняется до старта фоновой работы, остальные
	// исходы приходят позже; ответ всегда 202, чтобы не зависеть от того,
	// успело ли удаление завершиться к моменту ответа
	select {
	case err := <-done:
		if errors.Is(err, coordinator.ErrDeleteInProgress) {
			WriteError(w, "Пост уже удаляется", http.StatusConflict)
			return
		}
	default:
	}

	WriteSuccess(w, MessageResponse{Message: "Удаление запущено"}, http.StatusAccepted)
}

func (h *Handlers) RetryScan(w http.ResponseWriter, r *http.Request) {
	dispatched := h.Scanner.ScanAndRetry(r.Context())

	WriteSuccess(w, map[string]int{"dispatched": dispatched}, http.StatusOK)
}

// Queue показывает посты, ожидающие повторной загрузки
func (h *Handlers) Queue(w http.ResponseWriter, r *http.Request) {
	failed, err := h.PostRepo.ListFailed(r.Context())
	if err != nil {
		WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	WriteSuccess(w, failed, http.StatusOK)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]string{"status": "ok"}, http.StatusOK)
}
