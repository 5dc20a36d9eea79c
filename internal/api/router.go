package api

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/timmy/lookaloud/internal/api/handler"
	"github.com/timmy/lookaloud/internal/api/middleware"
	"github.com/timmy/lookaloud/internal/config"
	"github.com/timmy/lookaloud/internal/workflow"
)

// RouterDeps are the collaborators the HTTP layer needs. History, Archive
// and Stats may be nil.
type RouterDeps struct {
	Controller *workflow.Controller
	Audio      handler.AudioFetcher
	History    handler.HistoryStore
	Archive    handler.ArchiveReader
	Stats      *workflow.StatsObserver
	Templates  *template.Template
	BackendURL string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps, cfg config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))

	if deps.Templates != nil {
		r.SetHTMLTemplate(deps.Templates)
	}

	workflowHandler := handler.NewWorkflowHandler(deps.Controller, deps.Audio, cfg.MaxUploadBytes)
	var counter handler.HistoryCounter
	if deps.History != nil {
		counter = deps.History
	}
	healthHandler := handler.NewHealthHandler(deps.Stats, counter, deps.BackendURL)

	r.GET("/health", healthHandler.Health)

	// Browser UI
	r.GET("/", workflowHandler.Index)
	r.POST("/image", workflowHandler.UploadImageForm)
	r.POST("/options", workflowHandler.UpdateOptionsForm)
	r.POST("/submit", workflowHandler.SubmitForm)
	r.GET("/preview/:id", workflowHandler.Preview)
	r.GET("/audio/download", workflowHandler.DownloadAudio)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/state", workflowHandler.State)
		v1.GET("/events", workflowHandler.Events)
		v1.POST("/image", workflowHandler.UploadImage)
		v1.PATCH("/options", workflowHandler.UpdateOptions)
		v1.POST("/submit", workflowHandler.Submit)

		if deps.History != nil {
			historyHandler := handler.NewHistoryHandler(deps.History, deps.Archive)
			v1.GET("/history", historyHandler.List)
			v1.GET("/history/:id", historyHandler.Get)
			v1.GET("/history/:id/audio", historyHandler.Audio)
		}
	}

	return r
}
