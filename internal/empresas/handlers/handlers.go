package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gartstein/empresas/internal/empresas/auth"
	"github.com/gartstein/empresas/internal/empresas/controller"
	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/importer"
	"github.com/gartstein/empresas/internal/empresas/loader"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/gartstein/empresas/internal/empresas/render"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// MaxUploadBytes bounds the spreadsheet upload.
const MaxUploadBytes = 32 << 20

// CompanyController is the destructive side of the service layer.
type CompanyController interface {
	ReplaceAll(ctx context.Context, rows []models.Company, actor string) (*controller.ReplaceResult, error)
	ClearAll(ctx context.Context, actor string) (int64, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Sessions       *auth.Sessions
	Login          *auth.LoginFlow
	Cookies        auth.Cookies
	Loader         *loader.Loader
	Pagers         *loader.Pagers
	Companies      CompanyController
	Renderer       *render.Renderer
	DB             Pinger
	AllowedOrigins []string
}

// Handler implements the HTTP routes.
type Handler struct {
	Deps
	logger *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	return &Handler{Deps: deps, logger: logger.Named("http")}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger))
	if len(h.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(h.AllowedOrigins))
	}

	router.GET("/healthz", h.health)
	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/empresas") })

	router.GET(auth.LoginPage, h.loginPage)
	router.POST(auth.LoginPage, h.loginForm)
	router.POST("/logout", h.logout)
	router.POST("/auth/release", h.release)

	router.GET("/empresas", h.empresasPage)

	guard := auth.Guard(h.Sessions, h.Cookies, h.logger)
	router.GET(auth.AdminLanding, guard, h.adminPage)

	api := router.Group("/api/v1")
	{
		api.POST("/login", h.loginJSON)
		api.GET("/companies", h.searchCompanies)
		api.POST("/companies/release", h.releasePager)

		admin := api.Group("/admin")
		admin.Use(guard)
		{
			admin.GET("/companies", h.listCompanies)
			admin.POST("/companies/import", h.importCompanies)
			admin.DELETE("/companies", h.clearCompanies)
		}
	}
	return router
}

func (h *Handler) health(c *gin.Context) {
	if err := h.DB.Ping(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) html(c *gin.Context, code int, fn func(w *strings.Builder) error) {
	var sb strings.Builder
	if err := fn(&sb); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(code, "text/html; charset=utf-8", []byte(sb.String()))
}

func (h *Handler) loginPage(c *gin.Context) {
	h.html(c, http.StatusOK, func(w *strings.Builder) error {
		return h.Renderer.Login(w, render.LoginPage{})
	})
}

func (h *Handler) loginForm(c *gin.Context) {
	email := c.PostForm("email")
	result, err := h.Login.Login(c.Request.Context(), email, c.PostForm("password"))
	page := render.LoginPage{Email: strings.TrimSpace(email), Status: result.Status}
	if err == nil {
		h.Cookies.Set(c.Writer, result.Token)
		page.RedirectTo = result.RedirectTo
		page.RedirectAfter = result.RedirectAfter.Milliseconds()
	}
	h.html(c, mapServiceError(err), func(w *strings.Builder) error {
		return h.Renderer.Login(w, page)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token           string        `json:"token,omitempty"`
	Status          models.Status `json:"status"`
	RedirectTo      string        `json:"redirect_to,omitempty"`
	RedirectAfterMS int64         `json:"redirect_after_ms,omitempty"`
}

func (h *Handler) loginJSON(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, loginResponse{Status: models.Warning("Revisa tu usuario y contraseña.")})
		return
	}
	result, err := h.Login.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(mapServiceError(err), loginResponse{Status: result.Status})
		return
	}
	h.Cookies.Set(c.Writer, result.Token)
	c.JSON(http.StatusOK, loginResponse{
		Token:           result.Token,
		Status:          result.Status,
		RedirectTo:      result.RedirectTo,
		RedirectAfterMS: result.RedirectAfter.Milliseconds(),
	})
}

// signOut revokes the caller's session, if any, and clears the cookie.
func (h *Handler) signOut(c *gin.Context) {
	if token := h.Cookies.Token(c.Request); token != "" {
		if err := h.Sessions.SignOut(c.Request.Context(), token); err != nil {
			h.logger.Warn("sign out failed", zap.Error(err))
		}
	}
	h.Cookies.Clear(c.Writer)
}

func (h *Handler) logout(c *gin.Context) {
	h.signOut(c)
	c.Redirect(http.StatusSeeOther, auth.LoginPage)
}

// release is the page-unload beacon: the session ends with the page.
func (h *Handler) release(c *gin.Context) {
	h.signOut(c)
	c.Status(http.StatusNoContent)
}

func actor(c *gin.Context) string {
	if session, ok := auth.Principal(c); ok {
		return session.Email
	}
	return ""
}

func (h *Handler) adminPage(c *gin.Context) {
	page := render.AdminPage{Email: actor(c), Query: strings.TrimSpace(c.Query("q"))}

	rows, err := h.Loader.LoadAll(c.Request.Context())
	if err != nil {
		page.Status = render.LoadFailed(err)
	} else {
		page.Status = render.Loaded(len(rows))
		page.Rows = render.Filter(rows, page.Query)
	}
	h.html(c, http.StatusOK, func(w *strings.Builder) error {
		return h.Renderer.Admin(w, page)
	})
}

type companiesResponse struct {
	Rows   []models.Company `json:"rows"`
	Total  int              `json:"total"`
	Status models.Status    `json:"status"`
}

// listCompanies filters the admin cache; the database is only read when
// nothing has been loaded yet.
func (h *Handler) listCompanies(c *gin.Context) {
	cache := h.Loader.Cache()
	all, loaded := cache.Snapshot()
	if !loaded {
		var err error
		all, err = h.Loader.LoadAll(c.Request.Context())
		if err != nil {
			c.JSON(mapServiceError(err), companiesResponse{Rows: []models.Company{}, Status: render.LoadFailed(err)})
			return
		}
	}
	rows := cache.Filter(c.Query("q"))
	if rows == nil {
		rows = []models.Company{}
	}
	c.JSON(http.StatusOK, companiesResponse{Rows: rows, Total: len(all), Status: render.Loaded(len(all))})
}

type mutationResponse struct {
	Rows     []models.Company `json:"rows,omitempty"`
	Inserted int              `json:"inserted"`
	Deleted  int64            `json:"deleted"`
	Status   models.Status    `json:"status"`
}

func confirmed(v string) bool {
	return cast.ToBool(strings.TrimSpace(v))
}

func (h *Handler) importCompanies(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	fail := func(err error) {
		c.JSON(mapServiceError(err), mutationResponse{Status: render.ImportFailed(err)})
	}

	if !confirmed(c.PostForm("confirm")) {
		fail(e.ErrConfirmationRequired)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, mutationResponse{Status: models.Warning("Selecciona un archivo de Excel.")})
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(err)
		return
	}
	defer f.Close()

	rows, err := importer.Parse(fh.Filename, f)
	if err != nil {
		h.logger.Warn("spreadsheet rejected", zap.Error(err), zap.String("file", fh.Filename))
		fail(err)
		return
	}

	result, err := h.Companies.ReplaceAll(c.Request.Context(), rows, actor(c))
	if err != nil {
		if !errors.Is(err, e.ErrBusy) {
			h.logger.Error("bulk replace failed", zap.Error(err))
		}
		fail(err)
		return
	}

	status := render.Replaced(result.Inserted)
	if result.ReloadErr != nil {
		status = render.LoadFailed(result.ReloadErr)
	}
	cached, _ := h.Loader.Cache().Snapshot()
	if cached == nil {
		cached = []models.Company{}
	}
	c.JSON(http.StatusOK, mutationResponse{
		Rows:     cached,
		Inserted: result.Inserted,
		Deleted:  result.Deleted,
		Status:   status,
	})
}

func (h *Handler) clearCompanies(c *gin.Context) {
	if !confirmed(c.Query("confirm")) {
		c.JSON(http.StatusBadRequest, mutationResponse{Status: render.ClearFailed(e.ErrConfirmationRequired)})
		return
	}
	deleted, err := h.Companies.ClearAll(c.Request.Context(), actor(c))
	if err != nil {
		if !errors.Is(err, e.ErrBusy) {
			h.logger.Error("clear all failed", zap.Error(err))
		}
		c.JSON(mapServiceError(err), mutationResponse{Status: render.ClearFailed(err)})
		return
	}
	c.JSON(http.StatusOK, mutationResponse{Rows: []models.Company{}, Deleted: deleted, Status: render.Cleared()})
}

func (h *Handler) empresasPage(c *gin.Context) {
	pager := h.Pagers.Get(visitorID(c, h.Cookies.Secure))
	term := strings.TrimSpace(c.Query("q"))

	page := render.EmpresasPage{Query: term}
	result, err := h.Loader.NewSearch(c.Request.Context(), pager, term)
	code := http.StatusOK
	if err != nil {
		code = mapServiceError(err)
		page.Status = render.SearchFailed()
	} else {
		state := pager.State()
		page.Rows = result.Rows
		page.Status = render.Results(state.Loaded)
		page.HasMore = state.HasMore
		page.NextPage = state.Page + 1
	}
	h.html(c, code, func(w *strings.Builder) error {
		return h.Renderer.Empresas(w, page)
	})
}

type searchResponse struct {
	Rows   []models.Company `json:"rows"`
	State  loader.State     `json:"state"`
	Status models.Status    `json:"status"`
}

// searchCompanies serves page 0 of a term as a new search and any later
// page as "load more" on the caller's pager.
func (h *Handler) searchCompanies(c *gin.Context) {
	pager := h.Pagers.Get(visitorID(c, h.Cookies.Secure))
	term := strings.TrimSpace(c.Query("q"))
	pageNum, err := cast.ToIntE(c.DefaultQuery("page", "0"))
	if err != nil || pageNum < 0 {
		c.JSON(http.StatusBadRequest, searchResponse{Rows: []models.Company{}, Status: models.Warning("Página no válida.")})
		return
	}

	var result *loader.Page
	if pageNum == 0 || pager.State().Term != term {
		result, err = h.Loader.NewSearch(c.Request.Context(), pager, term)
	} else {
		result, err = h.Loader.LoadMore(c.Request.Context(), pager)
	}
	if err != nil {
		status := render.SearchFailed()
		if errors.Is(err, e.ErrStaleRequest) {
			status = models.Info("Búsqueda reemplazada por una más reciente.")
		}
		c.JSON(mapServiceError(err), searchResponse{Rows: []models.Company{}, State: pager.State(), Status: status})
		return
	}

	state := pager.State()
	rows := result.Rows
	if rows == nil {
		rows = []models.Company{}
	}
	c.JSON(http.StatusOK, searchResponse{Rows: rows, State: state, Status: render.Results(state.Loaded)})
}

func (h *Handler) releasePager(c *gin.Context) {
	if cookie, err := c.Request.Cookie(visitorCookie); err == nil {
		h.Pagers.Drop(cookie.Value)
	}
	c.Status(http.StatusNoContent)
}
