package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/magicitems/audit"
	"github.com/kasuganosora/magicitems/inventory"
	"github.com/kasuganosora/magicitems/model"
)

// CharacterHandler handles character REST endpoints.
type CharacterHandler struct {
	svc   *inventory.CharacterService
	audit recorder
}

// NewCharacterHandler creates a new CharacterHandler. auditSvc may be nil.
func NewCharacterHandler(svc *inventory.CharacterService, auditSvc *audit.Service) *CharacterHandler {
	return &CharacterHandler{svc: svc, audit: recorder{svc: auditSvc}}
}

type characterRequest struct {
	Name           string               `json:"name"            binding:"max=64"`
	AdventurerName string               `json:"adventurer_name" binding:"max=64"`
	Class          model.CharacterClass `json:"class"`
	Level          int                  `json:"level"`
	Attack         int                  `json:"attack"`
	Defense        int                  `json:"defense"`
}

func (r *characterRequest) toModel() *model.Character {
	return &model.Character{
		Name:           r.Name,
		AdventurerName: r.AdventurerName,
		Class:          r.Class,
		Level:          r.Level,
		Attack:         r.Attack,
		Defense:        r.Defense,
	}
}

// characterView adds the derived totals to a character with loaded items.
type characterView struct {
	*model.Character
	TotalAttack  int `json:"total_attack"`
	TotalDefense int `json:"total_defense"`
}

func viewOf(c *model.Character) characterView {
	return characterView{Character: c, TotalAttack: c.TotalAttack(), TotalDefense: c.TotalDefense()}
}

// List handles GET /api/characters.
func (h *CharacterHandler) List(c *gin.Context) {
	chars, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": chars})
}

// Get handles GET /api/characters/:id.
func (h *CharacterHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	char, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(char))
}

// Stats handles GET /api/characters/:id/stats.
func (h *CharacterHandler) Stats(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Create handles POST /api/characters.
func (h *CharacterHandler) Create(c *gin.Context) {
	start := time.Now()
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	char, err := h.svc.Create(c.Request.Context(), req.toModel())
	if err != nil {
		h.audit.record(c, "character.create", start, nil, nil, req, nil, err)
		writeError(c, err)
		return
	}
	h.audit.record(c, "character.create", start, nil, ptr(char.ID), req, char, nil)
	c.JSON(http.StatusCreated, viewOf(char))
}

// Update handles PUT /api/characters/:id.
func (h *CharacterHandler) Update(c *gin.Context) {
	start := time.Now()
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	char, err := h.svc.Update(c.Request.Context(), id, req.toModel())
	h.audit.record(c, "character.update", start, nil, ptr(id), req, char, err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(char))
}

// Delete handles DELETE /api/characters/:id. Owned items are removed too.
func (h *CharacterHandler) Delete(c *gin.Context) {
	start := time.Now()
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	removed, err := h.svc.Delete(c.Request.Context(), id)
	h.audit.record(c, "character.delete", start, nil, ptr(id), nil, gin.H{"items_removed": removed}, err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
