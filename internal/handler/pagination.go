package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	maxPageSize = 100
	// maxPage bounds page so (page-1)*page_size stays in range; anything
	// above it is past the end of every table.
	maxPage = math.MaxInt32
)

// pager reads page and page_size and builds the list envelope.
type pager struct {
	page int
	size int
}

func parsePager(c *gin.Context, defaultSize int) (pager, error) {
	p := pager{page: 1, size: defaultSize}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, service.NewValidationError(service.CodeInvalid, "page", "Invalid page.")
		}
		p.page = n
		if p.page > maxPage {
			p.page = maxPage
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return p, service.NewValidationError(service.CodeInvalid, "page_size", "Invalid page size.")
		}
		p.size = n
	}
	return p, nil
}

func (p pager) window() repository.Page {
	return repository.Page{Offset: int((int64(p.page) - 1) * int64(p.size)), Limit: p.size}
}

// respond writes {count, next, previous, results}. Pages past the end are 404.
func (p pager) respond(c *gin.Context, total int64, results interface{}) {
	lastPage := (total + int64(p.size) - 1) / int64(p.size)
	if p.page > 1 && int64(p.page) > lastPage {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid page.", "code": "NotFound"})
		return
	}

	var next, previous interface{}
	if int64(p.page) < lastPage {
		next = p.link(c, p.page+1)
	}
	if p.page > 1 {
		previous = p.link(c, p.page-1)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    total,
		"next":     next,
		"previous": previous,
		"results":  results,
	})
}

func (p pager) link(c *gin.Context, page int) string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	u.Scheme = scheme
	u.Host = c.Request.Host
	return u.String()
}
