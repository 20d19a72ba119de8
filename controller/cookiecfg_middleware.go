package controller

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

// CookieCfg controls how the session cookie is scoped and secured.
// Options are applied centrally by SessionWriter.Save().
type CookieCfg struct {
	IsProd       bool
	ShareSubdoms bool
	ParentDomain string
}

// cookieOptions builds cookie options for the environment.
func cookieOptions(maxAge int, cfg CookieCfg) *sessions.Options {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.IsProd {
		opts.Secure = true
		if cfg.ShareSubdoms && cfg.ParentDomain != "" {
			opts.Domain = "." + cfg.ParentDomain
		}
	}
	return opts
}

func (ctrl *controller) cookieCfg() CookieCfg {
	return CookieCfg{
		IsProd: ctrl.model.Config.Mode == "production",
	}
}

// CookieCfgMiddleware injects a CookieCfg into the Echo context for each request.
func (ctrl *controller) CookieCfgMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	cfg := ctrl.cookieCfg()
	return func(c echo.Context) error {
		c.Set("cookiecfg", cfg)
		return next(c)
	}
}
