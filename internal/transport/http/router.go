package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// NewRouter wires the REST endpoints and the websocket entry point.
func NewRouter(service *app.QuizService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	ws := NewWSHandler(service)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/api/categories", func(c *gin.Context) {
		categories, err := service.Categories(c.Request.Context())
		if err != nil {
			log.Printf("list categories: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "categories unavailable"})
			return
		}
		c.JSON(http.StatusOK, categories)
	})
	router.GET("/api/profiles/:profile/stats/:username", func(c *gin.Context) {
		profile := c.Param("profile")
		if !validProfileID(profile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile"})
			return
		}
		stats, err := service.Stats(c.Request.Context(), profile, c.Param("username"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrProfileNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})
	router.GET("/ws", ws.Handle)

	return router
}
