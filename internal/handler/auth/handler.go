package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/internal/service/user"
	"github.com/jwalitptl/medconsult-api/pkg/httputil"
)

// Handler checks credentials. No token or server session is issued; the
// client keeps the returned user as its session identity.
type Handler struct {
	users user.UserServicer
}

func NewHandler(users user.UserServicer) *Handler {
	return &Handler{users: users}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
