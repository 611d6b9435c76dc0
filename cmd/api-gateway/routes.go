package main

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/handler"
	internalmiddleware "github.com/noah-isme/unipass-api/internal/middleware"
	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/pkg/config"
)

type routeDeps struct {
	auth    internalmiddleware.TokenValidator
	devices internalmiddleware.PassAuthenticator
	logger  *zap.Logger

	authH         *handler.AuthHandler
	userH         *handler.UserHandler
	universityH   *handler.UniversityHandler
	careerH       *handler.CareerHandler
	cityH         *handler.CityHandler
	passH         *handler.PassHandler
	tagH          *handler.TagHandler
	walletH       *handler.WalletHandler
	passKitH      *handler.PassKitHandler
	notificationH *handler.NotificationHandler
	metricsH      *handler.MetricsHandler
	dashboardH    *handler.DashboardHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, d routeDeps) {
	r.GET("/health", d.metricsH.Health)
	r.GET("/ready", d.metricsH.Ready)
	r.GET("/metrics", d.metricsH.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(d.logger.Named("audit"), action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", d.authH.Login)
	api.GET("/wallet/apple/download/:token", d.walletH.DownloadApple)

	authed := api.Group("")
	authed.Use(internalmiddleware.JWT(d.auth))
	authed.GET("/auth/me", d.authH.Me)

	universities := authed.Group("/universities", internalmiddleware.RequireRoles(models.RoleSuperAdmin))
	universities.GET("", d.universityH.List)
	universities.GET("/:id", d.universityH.Get)
	universities.POST("", audit("create", "university"), d.universityH.Create)
	universities.PUT("/:id", audit("update", "university"), d.universityH.Update)

	users := authed.Group("/users", internalmiddleware.RequireRoles(models.RoleSuperAdmin))
	users.GET("", d.userH.List)
	users.GET("/:id", d.userH.Get)
	users.POST("", audit("create", "user"), d.userH.Create)
	users.PUT("/:id", audit("update", "user"), d.userH.Update)
	users.DELETE("/:id", audit("delete", "user"), d.userH.Delete)

	scoped := authed.Group("")
	scoped.Use(internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), internalmiddleware.UniversityScope())

	scoped.GET("/system/metrics", d.metricsH.System)
	scoped.GET("/dashboard", d.dashboardH.Summary)

	careers := scoped.Group("/careers")
	careers.GET("", d.careerH.List)
	careers.GET("/:code", d.careerH.Get)
	careers.POST("", audit("create", "career"), d.careerH.Create)
	careers.PUT("/:code", audit("update", "career"), d.careerH.Update)

	cities := scoped.Group("/cities")
	cities.GET("", d.cityH.List)
	cities.GET("/:code", d.cityH.Get)
	cities.POST("", audit("create", "city"), d.cityH.Create)
	cities.POST("/batch", audit("create_many", "city"), d.cityH.CreateMany)
	cities.PUT("/:code", audit("update", "city"), d.cityH.Update)

	passes := scoped.Group("/passes")
	passes.GET("", d.passH.List)
	passes.POST("", audit("create", "pass"), d.passH.Create)
	passes.POST("/import", audit("import", "pass"), d.passH.Import)
	passes.PUT("/update-due", audit("update_due", "pass"), d.passH.UpdateDue)
	passes.POST("/query", d.passH.Query)
	passes.POST("/export", d.passH.Export)
	passes.GET("/:careerId/:uniqueIdentifier", d.passH.Get)
	passes.DELETE("/:careerId/:uniqueIdentifier", audit("deactivate", "pass"), d.passH.Deactivate)
	passes.POST("/:careerId/:uniqueIdentifier/installed", d.passH.MarkInstalled)
	passes.GET("/:careerId/:uniqueIdentifier/tags", d.tagH.PassValues)

	tags := scoped.Group("/tags")
	tags.GET("", d.tagH.List)
	tags.POST("", audit("create", "tag"), d.tagH.Create)
	tags.GET("/:id", d.tagH.Get)
	tags.PUT("/:id", audit("update", "tag"), d.tagH.Update)
	tags.PUT("/:id/values", d.tagH.SetValue)
	tags.GET("/:id/options", d.tagH.ListOptions)
	tags.POST("/:id/options", audit("create_option", "tag"), d.tagH.CreateOption)
	tags.PUT("/:id/options/:optionId", audit("update_option", "tag"), d.tagH.UpdateOption)
	tags.DELETE("/:id/options/:optionId", audit("delete_option", "tag"), d.tagH.DeleteOption)

	wallet := scoped.Group("/wallet")
	wallet.POST("/apple/:careerId/:uniqueIdentifier", d.walletH.IssueApple)
	wallet.POST("/apple/push/:serialNumber", d.walletH.PushApple)
	wallet.POST("/google/:careerId/:uniqueIdentifier", d.walletH.IssueGoogle)
	wallet.PUT("/google/:careerId/:uniqueIdentifier", d.walletH.UpdateGoogle)
	wallet.POST("/google/classes", audit("create_class", "google_wallet"), d.walletH.CreateClass)

	notifications := scoped.Group("/notifications")
	notifications.GET("/types", d.notificationH.Types)
	notifications.POST("", audit("send", "notification"), d.notificationH.Send)

	passKit := r.Group(passKitBasePath(cfg.AppleWallet.WebServiceURL) + "/v1")
	passKit.POST("/log", d.passKitH.Log)
	passKit.GET("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier", d.passKitH.SerialNumbers)
	signed := passKit.Group("")
	signed.Use(internalmiddleware.ApplePass(d.devices))
	signed.POST("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier/:serialNumber", d.passKitH.Register)
	signed.DELETE("/devices/:deviceLibraryIdentifier/registrations/:passTypeIdentifier/:serialNumber", d.passKitH.Unregister)
	signed.GET("/passes/:passTypeIdentifier/:serialNumber", d.passKitH.LatestPass)
}

// passKitBasePath returns the path component of the PassKit web service URL,
// since devices append /v1/... to it.
func passKitBasePath(webServiceURL string) string {
	u, err := url.Parse(webServiceURL)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}
