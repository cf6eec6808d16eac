package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/school-records-go/internal/chat"
	"github.com/garyellow/school-records-go/internal/config"
	domerrors "github.com/garyellow/school-records-go/internal/errors"
)

// maxUploadBytes caps an uploaded constancia PDF.
const maxUploadBytes = 10 << 20

type messageRequest struct {
	Text string `json:"text"`
}

type turnView struct {
	Query     string    `json:"query"`
	RowCount  int       `json:"row_count"`
	Awaiting  string    `json:"awaiting"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *Application) registerSessionRoutes(api *gin.RouterGroup) {
	api.POST("/sessions", a.openSession)
	s := api.Group("/sessions/:id", a.sessionMiddleware())
	s.POST("/messages", a.postMessage)
	s.POST("/pdf", a.uploadPDF)
	s.GET("/history", a.history)
	s.DELETE("", a.closeSession)
}

// sessionMiddleware resolves :id to an open engine or answers 404.
func (a *Application) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := a.sessions.Get(c.Param("id"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.Set("engine", e)
		c.Next()
	}
}

func engineFrom(c *gin.Context) *chat.Engine {
	return c.MustGet("engine").(*chat.Engine)
}

func (a *Application) openSession(c *gin.Context) {
	e := a.sessions.OpenSession()
	c.JSON(http.StatusCreated, gin.H{"session_id": e.ID()})
}

func (a *Application) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.TurnProcessing)
	defer cancel()

	resp := engineFrom(c).ProcessMessage(ctx, req.Text)
	c.JSON(http.StatusOK, resp)
}

func (a *Application) uploadPDF(c *gin.Context) {
	e := engineFrom(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El archivo debe ser un PDF."})
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o750); err != nil {
		a.logger.WithError(err).Error("failed to create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	dst := filepath.Join(a.uploadDir, fmt.Sprintf("%s_%s.pdf", e.ID(), uuid.NewString()[:8]))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		a.logger.WithError(err).Error("failed to store uploaded pdf")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	if err := e.LoadPDF(dst); err != nil {
		_ = os.Remove(dst)
		status := http.StatusInternalServerError
		if domerrors.KindOf(err) == domerrors.KindInvalidInput {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": domerrors.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": file.Filename})
}

func (a *Application) history(c *gin.Context) {
	turns := engineFrom(c).Stack()
	out := make([]turnView, len(turns))
	for i, t := range turns {
		out[i] = turnView{
			Query:     t.Query,
			RowCount:  t.RowCount,
			Awaiting:  string(t.Awaiting),
			Timestamp: t.Timestamp,
		}
	}
	c.JSON(http.StatusOK, gin.H{"turns": out})
}

func (a *Application) closeSession(c *gin.Context) {
	a.sessions.CloseSession(engineFrom(c).ID())
	c.Status(http.StatusNoContent)
}
