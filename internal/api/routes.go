// 文件: internal/api/routes.go
package api

import (
	"PicUtils/internal/task"
	"PicUtils/pkg/database"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RegisterRoutes 注册所有API路由
func RegisterRoutes(tm *task.Manager, db database.Store, configDir string) *chi.Mux {
	r := chi.NewRouter()

	// --- 中间件 (Middleware) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// 配置CORS，前端开发服务器默认在5173端口
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	handlers := NewAPIHandlers(tm, db, configDir)

	// --- API路由 ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/rename", handlers.HandleStartRenameTask)
			r.Post("/copy", handlers.HandleStartCopyTask)
			r.Post("/fix-ext", handlers.HandleStartFixExtTask)
			r.Get("/{taskId}", handlers.HandleGetTaskStatus)
		})
		r.Get("/photos", handlers.HandleListPhotos)
		r.Get("/operations", handlers.HandleListOperations)
		r.Get("/operations/{operationID}", handlers.HandleGetOperation)
		r.Get("/config", handlers.HandleGetConfig)
		r.Put("/config", handlers.HandleUpdateConfig)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
