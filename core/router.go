package core

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(app *App) *gin.Engine {
	startedAt := time.Now()
	cookie := NewRefreshCookie(app.Config, app.Tokens.RefreshTTL())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(app.Logger))
	r.Use(OriginRefererMiddleware(app.Config))

	r.GET("/healthz", func(c *gin.Context) {
		if err := app.Backends.Accounts.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireToken := RequireToken(app.Tokens)
	requireAdmin := RequireAuthority(RoleAdmin)

	api := r.Group("/api")
	{
		api.POST("/login", func(c *gin.Context) {
			var req LoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if err := req.Validate(); err != nil {
				respondFailure(c, err)
				return
			}
			res, err := app.Auth.Login(c.Request.Context(), req.Username, req.Password)
			if err != nil {
				respondFailure(c, err)
				return
			}
			if cookie != nil {
				if err := cookie.Save(c, res.RefreshToken); err != nil {
					respondFailure(c, err)
					return
				}
			}
			c.JSON(http.StatusCreated, res)
		})

		api.POST("/login/refresh", func(c *gin.Context) {
			token := bearerToken(c)
			if token == "" && cookie != nil {
				var err error
				if token, err = cookie.Load(c); err != nil {
					respondFailure(c, err)
					return
				}
			}
			if token == "" {
				respondFailure(c, NewTokenFailure(ReasonMalformed, nil))
				return
			}
			pair, err := app.Auth.Refresh(c.Request.Context(), token)
			if err != nil {
				respondFailure(c, err)
				return
			}
			if cookie != nil {
				if err := cookie.Save(c, pair.RefreshToken); err != nil {
					respondFailure(c, err)
					return
				}
			}
			c.JSON(http.StatusOK, pair)
		})

		// reaching the handler means the gate accepted the token
		api.GET("/login/isTokenValid", requireToken, func(c *gin.Context) {
			c.JSON(http.StatusOK, true)
		})

		api.POST("/logout", func(c *gin.Context) {
			if cookie != nil {
				if err := cookie.Clear(c); err != nil {
					respondFailure(c, err)
					return
				}
			}
			c.Status(http.StatusNoContent)
		})

		api.POST("/register/user", func(c *gin.Context) {
			register(c, app.Registration.RegisterUser)
		})

		adminRegistration := []gin.HandlerFunc{}
		if !app.Config.AdminRegistrationOpen {
			adminRegistration = append(adminRegistration, requireToken, requireAdmin)
		}
		adminRegistration = append(adminRegistration, func(c *gin.Context) {
			register(c, app.Registration.RegisterAdmin)
		})
		api.POST("/register/admin", adminRegistration...)

		api.DELETE("/account", requireToken, func(c *gin.Context) {
			if err := app.Registration.DeleteAccount(c.Request.Context(), bearerToken(c)); err != nil {
				respondFailure(c, err)
				return
			}
			if cookie != nil {
				_ = cookie.Clear(c)
			}
			c.Status(http.StatusNoContent)
		})

		admin := api.Group("", requireToken, requireAdmin)
		registerAdminRoutes(admin, app, startedAt)
	}

	return r
}

func register(c *gin.Context, fn func(ctx context.Context, req RegisterRequest) (RegistrationResult, error)) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
		return
	}
	res, err := fn(c.Request.Context(), req)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func registerAdminRoutes(admin *gin.RouterGroup, app *App, startedAt time.Time) {
	admin.GET("/users", func(c *gin.Context) {
		page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
		if err != nil {
			respondFailure(c, NewValidationFailure(err.Error()))
			return
		}
		items, total, err := app.Registration.ListAccounts(c.Request.Context(), page, perPage)
		if err != nil {
			respondFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"items":       items,
			"page":        page,
			"per_page":    perPage,
			"total_items": total,
			"total_pages": calcTotalPages(total, perPage),
		})
	})

	admin.GET("/users/:username/authorities", func(c *gin.Context) {
		roles, err := app.Authorities.ListAuthorities(c.Request.Context(), c.Param("username"))
		if err != nil {
			respondFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": c.Param("username"), "authorities": roles})
	})

	admin.POST("/users/:username/authorities", func(c *gin.Context) {
		var req AuthorityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
			return
		}
		if err := req.Validate(); err != nil {
			respondFailure(c, err)
			return
		}
		roles, err := app.Authorities.AddAuthority(c.Request.Context(), c.Param("username"), Role(req.Role))
		if err != nil {
			respondFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": c.Param("username"), "authorities": roles})
	})

	admin.DELETE("/users/:username/authorities/:role", func(c *gin.Context) {
		roles, err := app.Authorities.RemoveAuthority(c.Request.Context(), c.Param("username"), Role(c.Param("role")))
		if err != nil {
			respondFailure(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": c.Param("username"), "authorities": roles})
	})

	admin.GET("/admin/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, CollectSystemStatus(c.Request.Context(), app.Backends, startedAt))
	})
}
