package bridge

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webview/internal/resource"
)

const (
	notFoundBody  = "webview not found"
	forbiddenBody = "webview forbidden"
)

func (b *Bridge) newRouter() (*gin.Engine, error) {
	router := gin.New()
	router.Use(middleware.Recovery(b.logger.Logger))
	router.Use(middleware.RequestLogger(b.logger.Logger))
	router.Use(monitoring.Middleware(b.metrics))
	if b.opts.RateLimit != nil {
		router.Use(middleware.RateLimit(*b.opts.RateLimit))
	}

	tmpl, err := pageTemplate()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	resources := router.Group("/resources", middleware.CORS(b.opts.CORS))
	resources.GET("/*path", b.serveResource)
	resources.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	router.GET("/webview/:route", b.servePage)

	assets, err := staticHandlers()
	if err != nil {
		return nil, err
	}
	router.GET("/static/:asset", func(c *gin.Context) {
		h, ok := assets[c.Param("asset")]
		if !ok {
			notFound(c)
			return
		}
		h.ServeHTTP(c.Writer, c.Request)
	})

	router.GET("/ws", b.handleSocket)

	if b.opts.MetricsEndpoint {
		router.GET("/metrics", gin.WrapH(b.metrics.Handler()))
	}

	router.NoRoute(notFound)
	return router, nil
}

func notFound(c *gin.Context) {
	c.String(http.StatusNotFound, notFoundBody)
}

// serveResource streams a guarded local file.
func (b *Bridge) serveResource(c *gin.Context) {
	u := *c.Request.URL
	u.Host = c.Request.Host

	localPath, err := b.guard.Resolve(&u)
	if err != nil {
		notFound(c)
		return
	}

	res, err := b.guard.Open(localPath)
	if err != nil {
		var ioErr *resource.IOError
		switch {
		case errors.Is(err, resource.ErrForbidden):
			b.metrics.IncResourcesDenied()
			b.logger.Debug("Forbidden resource", zap.String("path", localPath))
			c.String(http.StatusForbidden, forbiddenBody)
		case errors.As(err, &ioErr) && ioErr.Missing():
			notFound(c)
		default:
			b.logger.Warn("Failed to read resource", zap.String("path", localPath), zap.Error(err))
			c.String(http.StatusInternalServerError, err.Error())
		}
		return
	}
	defer res.Close()

	b.metrics.IncResourcesServed()
	c.DataFromReader(http.StatusOK, res.Size, res.ContentType, res, nil)
}

// servePage renders the bootstrap page of a live route.
func (b *Bridge) servePage(c *gin.Context) {
	route, ok := b.routes.Lookup(c.Param("route"))
	if !ok {
		notFound(c)
		return
	}
	state, _ := b.State(route.Name)

	page, err := b.renderPage(route, "http://"+c.Request.Host, state)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.HTML(http.StatusOK, pageName, page)
}
