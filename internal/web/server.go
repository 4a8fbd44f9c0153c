// Package web is the HTTP surface: the server-rendered page and the JSON API.
package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"idcard/internal/auth"
	"idcard/internal/gallery"
	"idcard/internal/httpmiddleware"
	"idcard/internal/page"
	"idcard/internal/raster"
	"idcard/internal/render"
	"idcard/internal/student"
)

//go:embed templates/*.html static/*
var assets embed.FS

// CardStore is the record store as seen by the JSON API.
type CardStore interface {
	Save(ctx context.Context, draft student.Record) (student.Record, error)
	List(ctx context.Context) ([]student.Record, error)
	Get(ctx context.Context, id string) (student.Record, error)
	Delete(ctx context.Context, id string) error
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) bool

// Server holds what the handlers need.
type Server struct {
	Sessions *page.Registry
	Cards    CardStore
	Exporter *raster.Exporter
	Gallery  *gallery.Gallery
	Queue    page.Publisher
	Branding render.Branding
	Checks   map[string]HealthCheck
	Log      *zap.Logger
}

// Options configures the middleware stack.
type Options struct {
	Session         auth.SessionConfig
	RateLimitPerMin int
}

// NewRouter wires middleware and routes.
func NewRouter(s *Server, opts Options) (*gin.Engine, error) {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(s.Log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin, s.Log).GinMiddleware())
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = 8 << 20

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)
	r.StaticFS("/static", http.FS(static))

	if opts.Session.Log == nil {
		opts.Session.Log = s.Log
	}
	pages := r.Group("/", auth.Session(opts.Session))
	pages.GET("/", s.index)
	pages.POST("/form", s.postForm)
	pages.POST("/preview/template", s.selectTemplate)
	pages.POST("/preview/export", s.exportPreview)
	pages.POST("/preview/reset", s.reset)
	pages.POST("/gallery/:id/view", s.viewSaved)
	pages.GET("/gallery/:id/export", s.exportSaved)
	pages.POST("/gallery/:id/delete", s.deleteSaved)

	api := r.Group("/api")
	api.GET("/cards", s.listCards)
	api.POST("/cards", s.createCard)
	api.GET("/cards/:id", s.getCard)
	api.DELETE("/cards/:id", s.deleteCard)
	api.GET("/cards/:id/image.png", s.cardImage)
	api.GET("/cards/:id/payload", s.cardPayload)

	return r, nil
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func (s *Server) controller(c *gin.Context) *page.Controller {
	return s.Sessions.Get(c.Request.Context(), auth.SessionID(c))
}

// attachment sends a PNG download.
func attachment(c *gin.Context, art raster.Artifact) {
	c.Header("Content-Disposition", raster.AttachmentHeader(art.Filename))
	c.Data(http.StatusOK, "image/png", art.PNG)
}

var funcs = template.FuncMap{
	"dataURL": func(p *string) template.URL {
		if p == nil || !render.IsImageDataURL(*p) {
			return ""
		}
		return template.URL(*p)
	},
	"allergyText": render.AllergyText,
}
