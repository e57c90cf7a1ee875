package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

// CORSConfig настройки CORS
type CORSConfig struct {
	AllowedOrigins []string
}

// CORS адаптирует go-chi/cors к gin. Preflight-запросы завершаются
// внутри обработчика cors и не доходят до маршрутов.
func CORS(config CORSConfig) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-API-Key"},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return func(ctx *gin.Context) {
		passed := false
		c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			ctx.Request = r
		})).ServeHTTP(ctx.Writer, ctx.Request)

		if !passed {
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
