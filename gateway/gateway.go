package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/example/obelisco/pkg/cart"
	"github.com/example/obelisco/pkg/checkout"
	"github.com/example/obelisco/pkg/config"
	"github.com/example/obelisco/pkg/models"
	"github.com/example/obelisco/pkg/order"
	"github.com/example/obelisco/pkg/repository"
	"github.com/example/obelisco/pkg/ui"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// AuditReader serves recent audit entries.
type AuditReader interface {
	Recent(ctx context.Context, entity string, limit int64) ([]*repository.AuditEntry, error)
}

// ArchiveReader lists durably archived orders.
type ArchiveReader interface {
	Recent(ctx context.Context, limit int) ([]models.ArchivedOrder, error)
}

// Deps are the collaborators the gateway wires interactions into. Audit and
// Archive are optional; when nil their routes report the feature as absent.
type Deps struct {
	Store     *cart.Store
	Renderer  *cart.Renderer
	Machine   *checkout.Machine
	Finalizer *order.Finalizer
	Dialog    *ui.ConfirmDialog
	Notifier  *ui.Notifier
	Audit     AuditReader
	Archive   ArchiveReader
}

// Gateway is the interaction surface: it projects cart and checkout state
// for display and routes row interactions back into store mutations and
// step transitions.
type Gateway struct {
	config *config.Config
	logger *zap.Logger
	router *gin.Engine
	deps   Deps
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config: cfg,
		logger: logger,
		router: router,
		deps:   deps,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/api/v1")
	{
		cartRoutes := v1.Group("/cart")
		{
			cartRoutes.GET("", g.getCart)
			cartRoutes.GET("/count", g.getCartCount)
			cartRoutes.POST("/items", g.addItem)
			cartRoutes.PUT("/items/:title/quantity", g.setQuantity)
			cartRoutes.DELETE("/items/:title", g.removeItem)
			cartRoutes.POST("/confirm", g.confirmDialog)
			cartRoutes.POST("/cancel", g.cancelDialog)
			cartRoutes.POST("/reorder", g.reorderItems)
		}

		co := v1.Group("/checkout")
		{
			co.GET("", g.checkoutState)
			co.POST("/advance", g.advanceStep)
			co.POST("/goto", g.gotoStep)
			co.GET("/review", g.reviewSummary)
			co.POST("/submit", g.submitOrder)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", g.listOrders)
			orders.GET("/last", g.lastOrder)
			orders.GET("/archive", g.listArchivedOrders)
		}

		v1.GET("/audit", g.listAuditEntries)
		v1.GET("/notifications", g.getNotifications)
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// Router exposes the engine for tests.
func (g *Gateway) Router() *gin.Engine {
	return g.router
}

func (g *Gateway) getCart(c *gin.Context) {
	view := g.deps.Renderer.Render(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"cart":        view,
		"grand_total": cart.FormatMoney(view.GrandTotal),
	})
}

func (g *Gateway) getCartCount(c *gin.Context) {
	count := g.deps.Store.TotalItemCount(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"count": count})
}

type addItemRequest struct {
	Add      bool     `json:"add"`
	Title    string   `json:"title"`
	Price    *float64 `json:"price"`
	Quantity int      `json:"quantity"`
}

// addItem is the add-to-cart affordance. Only requests explicitly marked as
// add triggers, carrying a product title, mutate the cart; anything
// ambiguous is rejected without side effects.
func (g *Gateway) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.Add || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not an add-to-cart trigger"})
		return
	}

	price := 0.0
	if req.Price != nil {
		price = *req.Price
	}

	if err := g.deps.Store.Add(c.Request.Context(), req.Title, price, req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	g.deps.Notifier.Notify("Añadido al carrito: " + req.Title)
	c.JSON(http.StatusCreated, gin.H{
		"count": g.deps.Store.TotalItemCount(c.Request.Context()),
	})
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (g *Gateway) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.deps.Store.SetQuantity(c.Request.Context(), c.Param("title"), req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": g.deps.Renderer.Render(c.Request.Context())})
}

// removeItem opens the confirmation dialog; the removal itself runs when
// the pending dialog is confirmed.
func (g *Gateway) removeItem(c *gin.Context) {
	title := c.Param("title")

	g.deps.Dialog.Show("¿Eliminar \""+title+"\" del carrito?", func() {
		// The confirming request carries its own lifetime; the opening
		// request is long gone by the time this fires.
		ctx := context.Background()
		if err := g.deps.Store.Remove(ctx, title); err != nil {
			g.logger.Error("Failed to remove item", zap.String("title", title), zap.Error(err))
			return
		}
		g.deps.Notifier.Notify("Eliminado del carrito: " + title)
	})

	_, prompt := g.deps.Dialog.State()
	c.JSON(http.StatusAccepted, gin.H{"confirm": prompt})
}

func (g *Gateway) confirmDialog(c *gin.Context) {
	if !g.deps.Dialog.Confirm() {
		c.JSON(http.StatusConflict, gin.H{"error": "no pending confirmation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": g.deps.Renderer.Render(c.Request.Context())})
}

func (g *Gateway) cancelDialog(c *gin.Context) {
	g.deps.Dialog.Cancel()
	c.JSON(http.StatusOK, gin.H{"canceled": true})
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// reorderItems runs one full drag gesture: begin at the source row, drop on
// the target, and always end the session whatever the outcome.
func (g *Gateway) reorderItems(c *gin.Context) {
	var req reorderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g.deps.Renderer.BeginDrag(req.From)
	defer g.deps.Renderer.EndDrag()

	moved, err := g.deps.Renderer.Drop(c.Request.Context(), req.To)
	if err != nil {
		if errors.Is(err, cart.ErrIndexOutOfRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if moved {
		g.deps.Notifier.Notify("Artículo movido")
	}
	c.JSON(http.StatusOK, gin.H{
		"moved": moved,
		"cart":  g.deps.Renderer.Render(c.Request.Context()),
	})
}

func (g *Gateway) checkoutState(c *gin.Context) {
	completed := make([]bool, 0, checkout.StepCount)
	for step := 1; step <= checkout.StepCount; step++ {
		completed = append(completed, g.deps.Machine.Completed(step))
	}
	c.JSON(http.StatusOK, gin.H{
		"current":   g.deps.Machine.Current(),
		"completed": completed,
	})
}

type advanceRequest struct {
	Step   int               `json:"step"`
	Fields map[string]string `json:"fields"`
}

func (g *Gateway) advanceStep(c *gin.Context) {
	var req advanceRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := g.deps.Machine.Advance(req.Step, req.Fields)
	if err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			g.deps.Notifier.Notify("Revisa los campos marcados")
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  verr.Error(),
				"fields": verr.Fields,
				"focus":  verr.First(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"current": g.deps.Machine.Current()})
}

type gotoRequest struct {
	Step int `json:"step"`
}

func (g *Gateway) gotoStep(c *gin.Context) {
	var req gotoRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.deps.Machine.GoTo(req.Step); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, checkout.ErrStepNotReached) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"current": g.deps.Machine.Current()})
}

func (g *Gateway) reviewSummary(c *gin.Context) {
	if g.deps.Machine.Current() != checkout.StepReview {
		c.JSON(http.StatusConflict, gin.H{"error": "checkout is not on the review step"})
		return
	}

	view := g.deps.Renderer.Render(c.Request.Context())
	quote := g.deps.Finalizer.Quote(g.deps.Store.Load(c.Request.Context()))
	summary := checkout.BuildSummary(g.deps.Machine.Fields(), view, quote)

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (g *Gateway) submitOrder(c *gin.Context) {
	if g.deps.Machine.Current() != checkout.StepReview {
		c.JSON(http.StatusConflict, gin.H{"error": "checkout is not on the review step"})
		return
	}

	rec, err := g.deps.Finalizer.Submit(c.Request.Context(), g.deps.Machine.Fields())
	if err != nil {
		switch {
		case errors.Is(err, order.ErrSubmissionInFlight):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, order.ErrEmptyCart):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	g.deps.Machine.Reset()
	g.deps.Notifier.Notify("Pedido recibido: " + rec.ID)
	c.JSON(http.StatusCreated, gin.H{
		"order": rec,
		"count": g.deps.Store.TotalItemCount(c.Request.Context()),
	})
}

func (g *Gateway) listOrders(c *gin.Context) {
	history := g.deps.Finalizer.History(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"orders": history,
		"total":  len(history),
	})
}

func (g *Gateway) lastOrder(c *gin.Context) {
	rec, ok := g.deps.Finalizer.LastOrder(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no orders yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": rec})
}

func (g *Gateway) listArchivedOrders(c *gin.Context) {
	if g.deps.Archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order archive is not enabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	rows, err := g.deps.Archive.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": rows,
		"total":  len(rows),
	})
}

func (g *Gateway) listAuditEntries(c *gin.Context) {
	if g.deps.Audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "auditing is not enabled"})
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit < 1 {
		limit = 20
	}

	entries, err := g.deps.Audit.Recent(c.Request.Context(), c.DefaultQuery("entity", "cart"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

func (g *Gateway) getNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": g.deps.Notifier.Flush()})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
