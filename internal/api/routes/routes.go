package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/davigonia/mr-learning/internal/api/handlers"
	"github.com/davigonia/mr-learning/internal/api/middleware"
)

type Deps struct {
	Ask       *handlers.AskHandler
	Parental  *handlers.ParentalHandler
	History   *handlers.HistoryHandler
	SessionWS *handlers.SessionWSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Child-facing surface: no auth, content gate does the guarding
	r.POST("/api/ask", d.Ask.Ask)
	r.GET("/ws/session", d.SessionWS.Session)

	// Parent login exchanges the PIN for a short-lived token
	r.POST("/api/parental/login", d.Parental.Login)

	// PIN-gated parental dashboard
	parent := r.Group("/api/parental")
	parent.Use(middleware.ParentAuth())

	parent.GET("/policy", d.Parental.GetPolicy)
	parent.PUT("/policy/level", d.Parental.SetLevel)
	parent.PUT("/policy/banned-words", d.Parental.SetBannedWords)
	parent.PUT("/policy/voices", d.Parental.SetVoices)
	parent.PUT("/policy/time-limit", d.Parental.SetTimeLimit)
	parent.PUT("/pin", d.Parental.ChangePIN)

	parent.GET("/history", d.History.List)
	parent.DELETE("/history", d.History.Clear)

	parent.GET("/blocked", d.Parental.ListBlocked)
	parent.DELETE("/blocked", d.Parental.ClearBlocked)

	parent.GET("/sessions", d.Parental.ListSessions)
	parent.GET("/sessions/:session_id/captures", d.Parental.ListCaptures)
}
