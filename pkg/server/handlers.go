package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harrisonrobin/tasktree/pkg/model"
)

func (s *Server) handleList(c *gin.Context) {
	roots, err := s.backend.Load(c.Request.Context())
	if err != nil {
		log.Printf("server: load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if roots == nil {
		roots = []*model.TaskNode{}
	}
	c.JSON(http.StatusOK, roots)
}

func (s *Server) handleReplace(c *gin.Context) {
	var roots []*model.TaskNode
	if err := c.BindJSON(&roots); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if err := s.backend.ReplaceAll(c.Request.Context(), roots); err != nil {
		log.Printf("server: replace failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tasks saved",
	})
}

func (s *Server) handleUpdate(c *gin.Context) {
	id := c.Param("id")

	var patch model.TaskPatch
	if err := c.BindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if err := s.backend.Update(c.Request.Context(), id, patch); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
		"message": "Task updated",
	})
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")

	if err := s.backend.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted",
	})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.backend.Clear(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All tasks deleted",
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrNotFound) {
		status = http.StatusNotFound
	} else {
		log.Printf("server: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
