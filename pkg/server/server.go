// Package server exposes the task tree over REST:
//
//	GET    /api/tasks       full nested tree
//	POST   /api/tasks       overwrite with the posted tree
//	PUT    /api/tasks/:id   partial update of one task
//	DELETE /api/tasks/:id   remove one task row
//	DELETE /api/tasks       remove every task
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server is the task REST server.
type Server struct {
	backend Backend
	router  *gin.Engine
}

// NewServer creates a server over backend.
func NewServer(backend Backend) *Server {
	router := gin.Default()
	s := &Server{backend: backend, router: router}

	router.Use(allowCORS)

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleList)
		api.POST("/tasks", s.handleReplace)
		api.DELETE("/tasks", s.handleClear)
		api.PUT("/tasks/:id", s.handleUpdate)
		api.DELETE("/tasks/:id", s.handleDelete)
	}
	return s
}

// Handler returns the routes as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// allowCORS lets the browser front end call the API from another origin.
func allowCORS(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
