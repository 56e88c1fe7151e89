package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/foodstand/internal/engine"
	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
	"github.com/roach88/foodstand/internal/orders"
)

type cartRequest struct {
	ItemID   mirror.Number `json:"itemId"`
	Quantity mirror.Number `json:"quantity"`
	AddDrink bool          `json:"addDrink"`
}

type capRequest struct {
	Max mirror.Number `json:"max"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type menuResponse struct {
	Items  []ledger.MenuItem    `json:"items"`
	Extras []ledger.ExtraOption `json:"extras"`
}

// respondError maps engine and domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var ve *mirror.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": mirror.FillAllFieldsMessage, "fields": ve.Fields})
	case errors.Is(err, mirror.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrConfirmationRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "confirmation required: pass confirm=true"})
	case engine.IsStopped(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func confirmed(c *gin.Context) bool {
	return c.Query("confirm") == "true"
}

func paramID(c *gin.Context, name string) int {
	return mirror.ParseNumber(c.Param(name)).Int()
}

func (s *Server) getState(c *gin.Context) {
	v, err := s.engine.View(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) getMenu(c *gin.Context) {
	v, err := s.engine.View(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, menuResponse{Items: v.Document.MenuItems, Extras: v.Document.ExtraOptions})
}

func (s *Server) getStatus(c *gin.Context) {
	st, ok := s.engine.Status()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

func (s *Server) addToCart(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	line, added, err := s.engine.AddToCart(c.Request.Context(), req.ItemID.Int(), req.Quantity, req.AddDrink)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "line": line})
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.engine.ClearCart(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) submitOrder(c *gin.Context) {
	order, ok, err := s.engine.Submit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"submitted": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"submitted": true, "order": order})
}

func (s *Server) listOrders(c *gin.Context) {
	v, err := s.engine.View(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	switch c.Query("status") {
	case "pending":
		c.JSON(http.StatusOK, v.Pending)
	case "completed":
		c.JSON(http.StatusOK, v.Completed)
	case "":
		c.JSON(http.StatusOK, v.Document.Orders)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending or completed"})
	}
}

func (s *Server) completeOrder(c *gin.Context) {
	n := paramID(c, "number")
	ok, err := s.engine.MarkCompletedRemote(c.Request.Context(), n)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": n})
}

func (s *Server) clearCompleted(c *gin.Context) {
	n, err := s.engine.ClearCompleted(c.Request.Context(), confirmed(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (s *Server) resetOrders(c *gin.Context) {
	n, err := s.engine.ResetAll(c.Request.Context(), confirmed(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (s *Server) resetCounter(c *gin.Context) {
	if err := s.engine.ResetCounter(c.Request.Context(), confirmed(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderCounter": 0})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.engine.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) addMenuItem(c *gin.Context) {
	var in mirror.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := s.engine.AddMenuItem(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) editMenuItem(c *gin.Context) {
	var in mirror.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := s.engine.EditMenuItem(c.Request.Context(), paramID(c, "id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) deleteMenuItem(c *gin.Context) {
	ok, err := s.engine.DeleteMenuItem(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addExtraOption(c *gin.Context) {
	var in mirror.ExtraOptionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opt, err := s.engine.AddExtraOption(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, opt)
}

func (s *Server) editExtraOption(c *gin.Context) {
	var in mirror.ExtraOptionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opt, err := s.engine.EditExtraOption(c.Request.Context(), paramID(c, "id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, opt)
}

func (s *Server) deleteExtraOption(c *gin.Context) {
	ok, err := s.engine.DeleteExtraOption(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "extra option not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setCap(c *gin.Context) {
	var req capRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := paramID(c, "id")
	n, err := s.engine.SetCap(c.Request.Context(), id, req.Max)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "max": n})
}

func (s *Server) setIdentity(c *gin.Context) {
	var in mirror.IdentityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	identity, err := s.engine.SetIdentity(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (s *Server) setTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := s.engine.SetTheme(c.Request.Context(), req.Theme)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}
