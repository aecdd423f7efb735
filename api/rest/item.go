package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/magicitems/audit"
	"github.com/kasuganosora/magicitems/inventory"
	"github.com/kasuganosora/magicitems/model"
)

// ItemHandler handles magic item REST endpoints.
type ItemHandler struct {
	svc   *inventory.ItemService
	audit recorder
}

// NewItemHandler creates a new ItemHandler. auditSvc may be nil.
func NewItemHandler(svc *inventory.ItemService, auditSvc *audit.Service) *ItemHandler {
	return &ItemHandler{svc: svc, audit: recorder{svc: auditSvc}}
}

type itemRequest struct {
	Name    string         `json:"name"    binding:"max=64"`
	Attack  int            `json:"attack"`
	Defense int            `json:"defense"`
	Type    model.ItemType `json:"type"`
}

func (r *itemRequest) toModel() *model.MagicItem {
	return &model.MagicItem{Name: r.Name, Attack: r.Attack, Defense: r.Defense, Type: r.Type}
}

// List handles GET /api/items.
func (h *ItemHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Get handles GET /api/items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListByCharacter handles GET /api/items/character/:characterId.
func (h *ItemHandler) ListByCharacter(c *gin.Context) {
	charID, ok := paramID(c, "characterId")
	if !ok {
		return
	}
	items, err := h.svc.ListByCharacter(c.Request.Context(), charID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Amulet handles GET /api/items/character/:characterId/amulet.
func (h *ItemHandler) Amulet(c *gin.Context) {
	charID, ok := paramID(c, "characterId")
	if !ok {
		return
	}
	item, err := h.svc.AmuletFor(c.Request.Context(), charID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemHandler) Create(c *gin.Context) {
	start := time.Now()
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.svc.Create(c.Request.Context(), req.toModel())
	if err != nil {
		h.audit.record(c, "item.create", start, nil, nil, req, nil, err)
		writeError(c, err)
		return
	}
	h.audit.record(c, "item.create", start, ptr(item.ID), nil, req, item, nil)
	c.JSON(http.StatusCreated, item)
}

// Update handles PUT /api/items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	start := time.Now()
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.svc.Update(c.Request.Context(), id, req.toModel())
	h.audit.record(c, "item.update", start, ptr(id), nil, req, item, err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Assign handles POST /api/items/:id/add/:characterId.
func (h *ItemHandler) Assign(c *gin.Context) {
	start := time.Now()
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	charID, ok := paramID(c, "characterId")
	if !ok {
		return
	}
	err := h.svc.Assign(c.Request.Context(), id, charID)
	h.audit.record(c, "item.assign", start, ptr(id), ptr(charID), nil, nil, err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "character_id": charID})
}

// Unassign handles DELETE /api/items/:id/remove-character.
func (h *ItemHandler) Unassign(c *gin.Context) {
	start := time.Now()
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	err := h.svc.Unassign(c.Request.Context(), id)
	h.audit.record(c, "item.unassign", start, ptr(id), nil, nil, nil, err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	start := time.Now()
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	err := h.svc.Delete(c.Request.Context(), id)
	h.audit.record(c, "item.delete", start, ptr(id), nil, nil, nil, err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
