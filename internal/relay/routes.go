package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	pathPage = "/"
	pathSend = "/send"
)

// submission is the POST /send payload. Text is a pointer so an absent or
// null value fails validation while the empty string is accepted.
type submission struct {
	Text *string `json:"text" binding:"required"`
}

func (s *Server) routes() *gin.Engine {
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = false

	engine.Use(
		requestID(),
		requestLogger(s.logger),
		recovery(s.logger),
		cors(),
		bodyLimit(s.opts.MaxBodyBytes),
	)

	engine.GET(pathPage, s.handlePage)
	engine.POST(pathSend, s.handleSend)
	engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not found")
	})
	return engine
}

func (s *Server) handlePage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", pageHTML)
}

func (s *Server) handleSend(c *gin.Context) {
	text, err := decodeSubmission(c.Request.Body)
	if err != nil {
		s.logger.Debug("relay rejected submission", "error", err.Error(), "request_id", c.GetString(ctxRequestID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	callback := s.accept(text)
	s.logger.Info("relay accepted submission", "chars", len([]rune(text)), "request_id", c.GetString(ctxRequestID))
	if callback != nil {
		s.invoke(callback, text, c.GetString(ctxRequestID))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func decodeSubmission(body io.Reader) (string, error) {
	if body == nil {
		return "", fmt.Errorf("missing body")
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(raw) {
		return "", fmt.Errorf("body is not valid JSON")
	}

	var req submission
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		return "", err
	}
	return *req.Text, nil
}

// invoke runs the submission callback. A panicking callback is logged and
// does not affect the response; the text is already stored.
func (s *Server) invoke(callback func(string), text, requestID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("relay submission callback failed", "error", fmt.Sprint(r), "request_id", requestID)
		}
	}()
	callback(text)
}
