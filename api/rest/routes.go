package rest

import "github.com/gin-gonic/gin"

// Routes groups the handlers mounted under /api.
type Routes struct {
	Items      *ItemHandler
	Characters *CharacterHandler
	Admin      *AdminHandler

	// Auth guards every mutating item and character route. Reads stay public.
	Auth gin.HandlerFunc
	// AdminGuards run in order before every admin route.
	AdminGuards []gin.HandlerFunc
}

func (rt Routes) write(h gin.HandlerFunc) []gin.HandlerFunc {
	if rt.Auth == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{rt.Auth, h}
}

// Register mounts the API on api. Nil handlers leave their group unmounted.
//
// Routes, relative to api, with their success and failure statuses. Routes
// marked * sit behind Auth (401 on a missing, invalid or revoked token).
// Admin routes sit behind AdminGuards (403 for a non-whitelisted IP, 401 for
// a wrong X-Admin-Key, 503 when no admin key hash is configured).
//
//	GET    /items                                 200 {"items"}
//	GET    /items/:id                             200 item; 404
//	GET    /items/character/:characterId          200 {"items"}; 404 unknown character
//	GET    /items/character/:characterId/amulet   200 item; 404 unknown character or no amulet
//	POST   /items                               * 201 item; 400 bad body or rule violation
//	PUT    /items/:id                           * 200 item; 400 rule violation or weapon/amulet clash; 404
//	POST   /items/:id/add/:characterId          * 200 {"item_id","character_id"}; 400 weapon/amulet clash; 404
//	DELETE /items/:id/remove-character          * 204; 404
//	DELETE /items/:id                           * 204; 404
//	GET    /characters                            200 {"characters"}
//	GET    /characters/:id                        200 character with total_attack, total_defense; 404
//	GET    /characters/:id/stats                  200 stats; 404
//	POST   /characters                          * 201 character; 400
//	PUT    /characters/:id                      * 200 character; 400; 404
//	DELETE /characters/:id                      * 204, owned items deleted too; 404
//	POST   /admin/tokens                          201 {"token",...}; 400; 503 no jwt secret
//	DELETE /admin/tokens                          204; 400
//	POST   /admin/audit/prune                     200 {"deleted"}; 503 audit disabled
//	GET    /admin/scheduler                       200 {"tasks"}
//
// A non-numeric or non-positive id is a 400 {"error":"invalid id"}. Rule
// violations answer {"error","field"}; other failures answer {"error"}, with
// storage errors reported as a 500 "internal error".
func (rt Routes) Register(api *gin.RouterGroup) {
	if h := rt.Items; h != nil {
		g := api.Group("/items")
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.GET("/character/:characterId", h.ListByCharacter)
		g.GET("/character/:characterId/amulet", h.Amulet)
		g.POST("", rt.write(h.Create)...)
		g.PUT("/:id", rt.write(h.Update)...)
		g.POST("/:id/add/:characterId", rt.write(h.Assign)...)
		g.DELETE("/:id/remove-character", rt.write(h.Unassign)...)
		g.DELETE("/:id", rt.write(h.Delete)...)
	}

	if h := rt.Characters; h != nil {
		g := api.Group("/characters")
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.GET("/:id/stats", h.Stats)
		g.POST("", rt.write(h.Create)...)
		g.PUT("/:id", rt.write(h.Update)...)
		g.DELETE("/:id", rt.write(h.Delete)...)
	}

	if h := rt.Admin; h != nil {
		g := api.Group("/admin")
		g.Use(rt.AdminGuards...)
		g.POST("/tokens", h.IssueToken)
		g.DELETE("/tokens", h.RevokeToken)
		g.POST("/audit/prune", h.PruneAudit)
		g.GET("/scheduler", h.ListSchedulerTasks)
	}
}
