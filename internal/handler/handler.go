package handlers

import (
	"github.com/go-playground/validator/v10"

	"postuploadCPT/internal/config"
	"postuploadCPT/internal/coordinator"
	"postuploadCPT/internal/repository"
	"postuploadCPT/internal/retry"
)

type Handlers struct {
	Coordinator *coordinator.Coordinator
	Scanner     *retry.Scanner
	PostRepo    repository.PostRepository
	MediaRepo   repository.MediaRepository
	Cfg         *config.Config
	Validate    *validator.Validate
}

func NewHandlers(repo *repository.Repository, coord *coordinator.Coordinator, scanner *retry.Scanner, config *config.Config) *Handlers {
	return &Handlers{
		Coordinator: coord,
		Scanner:     scanner,
		PostRepo:    repo.Post,
		MediaRepo:   repo.Media,
		Cfg:         config,
		Validate:    validator.New(),
	}
}
