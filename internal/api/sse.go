package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerylCAtieno/getreach/internal/relay"
)

// sseWriter writes server-sent event frames and flushes each one. Every
// write fails once the client has gone.
type sseWriter struct {
	c *gin.Context
}

func startSSE(c *gin.Context) *sseWriter {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	return &sseWriter{c: c}
}

func (w *sseWriter) write(frame []byte) error {
	if err := w.c.Request.Context().Err(); err != nil {
		return fmt.Errorf("client gone: %w", err)
	}
	if _, err := w.c.Writer.Write(frame); err != nil {
		return fmt.Errorf("client gone: %w", err)
	}
	w.c.Writer.Flush()
	return nil
}

func (w *sseWriter) event(ev relay.StreamEvent) error {
	frame, err := relay.EncodeFrame(ev)
	if err != nil {
		return err
	}
	return w.write(frame)
}

// data writes v as one "data:" frame.
func (w *sseWriter) data(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(b)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, b...)
	frame = append(frame, "\n\n"...)
	return w.write(frame)
}

// ping keeps idle connections open through proxies.
func (w *sseWriter) ping() error {
	return w.write([]byte(": ping\n\n"))
}
