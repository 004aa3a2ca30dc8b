package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/service"
)

// Handler handles HTTP requests for the reader API.
type Handler struct {
	reader *service.Reader
	log    logger.Logger
}

// NewHandler creates an API handler.
func NewHandler(reader *service.Reader, log logger.Logger) *Handler {
	return &Handler{reader: reader, log: log}
}

// requestParams are the inputs accepted via query string or JSON body.
type requestParams struct {
	URL      string `form:"url"      json:"url"`
	Level    string `form:"level"    json:"level"`
	Stream   string `form:"stream"   json:"stream"`
	Country  string `form:"country"  json:"country"`
	Language string `form:"language" json:"language"`
}

// bindParams reads parameters from the query string, merged with a JSON
// body on POST. Body values win.
func bindParams(c *gin.Context) requestParams {
	var params requestParams
	_ = c.ShouldBindQuery(&params)

	if c.Request.Method == http.MethodPost && c.Request.Body != nil {
		var body requestParams
		if err := c.ShouldBindJSON(&body); err == nil {
			if body.URL != "" {
				params.URL = body.URL
			}
			if body.Level != "" {
				params.Level = body.Level
			}
			if body.Stream != "" {
				params.Stream = body.Stream
			}
		}
	}

	return params
}

// Extract handles GET/POST /api/v1/extract.
func (h *Handler) Extract(c *gin.Context) {
	params := bindParams(c)
	if params.URL == "" {
		respondError(c, errors.New(errors.KindValidation, "missing required parameter: url"))
		return
	}

	content, err := h.reader.Extract(c.Request.Context(), params.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newExtractResponse(content))
}

// Simplify handles GET/POST /api/v1/simplify, switching to a chunked event
// stream when stream=true.
func (h *Handler) Simplify(c *gin.Context) {
	params := bindParams(c)
	if params.URL == "" {
		respondError(c, errors.New(errors.KindValidation, "missing required parameter: url"))
		return
	}

	level, err := domain.ParseLevel(params.Level)
	if err != nil {
		respondError(c, errors.Wrap(errors.KindValidation, "invalid level", err))
		return
	}

	stream, _ := strconv.ParseBool(params.Stream)
	if stream {
		h.simplifyStream(c, params.URL, level)
		return
	}

	content, err := h.reader.Simplify(c.Request.Context(), params.URL, level)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newSimplifyResponse(content))
}

// simplifyStream delivers the rewrite as SSE-style data lines. Errors before
// the first chunk fall back to a normal JSON error response; once streaming
// has begun the connection is simply closed.
func (h *Handler) simplifyStream(c *gin.Context, url string, level domain.Level) {
	started := false

	content, err := h.reader.SimplifyStream(c.Request.Context(), url, level, func(delta string) error {
		if !started {
			setStreamHeaders(c)
			started = true
		}
		return writeChunk(c, StreamChunk{Content: delta})
	})

	if err != nil {
		if !started {
			respondError(c, err)
			return
		}
		h.log.Warn("Stream aborted after first chunk",
			logger.String("url", url),
			logger.Error(err),
		)
		return
	}

	if !started {
		// Empty completion delivered nothing; still emit a valid stream.
		setStreamHeaders(c)
	}

	_ = writeChunk(c, StreamChunk{Done: true, TotalTokens: content.TokensUsed})
}

// setStreamHeaders switches the response to an event stream.
func setStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
}

// writeChunk writes one data line and flushes it to the client.
func writeChunk(c *gin.Context, chunk StreamChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

// News handles GET /api/v1/news.
func (h *Handler) News(c *gin.Context) {
	params := bindParams(c)
	if params.Country == "" || params.Language == "" {
		respondError(c, errors.New(errors.KindValidation, "missing required parameters: country, language"))
		return
	}

	listing, err := h.reader.News(c.Request.Context(), params.Country, params.Language)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newNewsResponse(listing))
}

// respondError translates a kinded error into its HTTP status and the
// standard {error, details} body. This is the single translation point.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := ErrorResponse{Error: "internal error", Details: err.Error()}

	if se, ok := errors.AsError(err); ok {
		status = se.HTTPStatus()
		body = ErrorResponse{Error: se.Message, Details: se.Detail}
		if se.Err != nil && body.Details == "" {
			body.Details = se.Err.Error()
		}
	}

	_ = c.Error(err)
	c.JSON(status, body)
}
