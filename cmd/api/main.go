package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"postuploadCPT/cmd/app"
	"postuploadCPT/internal/config"
	handlers "postuploadCPT/internal/handler"
	"postuploadCPT/internal/middleware"
)

func main() {
	// setting up config
	cfg := config.LoadConfig()

	if cfg.JWTSecretKey == "" {
		log.Fatal("JWT_SECRET_KEY не установлен в .env файле")
	}

	db, repo, coord, scanner := app.App(cfg)
	defer db.CloseDB()

	handler := handlers.NewHandlers(repo, coord, scanner, cfg)

	router := mux.NewRouter()

	// setting up routes
	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	router.HandleFunc("/api/posts", handler.CreatePost).Methods(http.MethodPost)
	router.HandleFunc("/api/posts/{id}", handler.GetPost).Methods(http.MethodGet)
	router.HandleFunc("/api/posts/{id}", handler.DeletePost).Methods(http.MethodDelete)
	router.HandleFunc("/api/posts/{id}/media", handler.AddMedia).Methods(http.MethodPost)
	router.HandleFunc("/api/posts/{id}/save", handler.SavePost).Methods(http.MethodPost)
	router.HandleFunc("/api/posts/{id}/autosave", handler.AutoSavePost).Methods(http.MethodPost)
	router.HandleFunc("/api/posts/{id}/publish", handler.PublishPost).Methods(http.MethodPost)
	router.HandleFunc("/api/posts/{id}/cancel-auto-upload", handler.CancelAutoUpload).Methods(http.MethodPost)

	router.HandleFunc("/api/retry-scan", handler.RetryScan).Methods(http.MethodPost)
	router.HandleFunc("/api/queue", handler.Queue).Methods(http.MethodGet)

	handlerChain := middleware.Chain(
		router,
		middleware.LoggingMiddleware,
		middleware.CORSMiddleware,
		middleware.AuthMiddleware(cfg),
	)

	// Starting the server
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	fmt.Printf("Сервер запущен на %s\n", addr)
	fmt.Printf("База данных: %s\n", cfg.DB.DbNAME)

	if err := http.ListenAndServe(addr, handlerChain); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
