package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/yardhoppers/internal/storage"
	"github.com/gin-gonic/gin"
)

type PhotoHandler struct {
	store storage.PhotoStore
}

func NewPhotoHandler(store storage.PhotoStore) *PhotoHandler {
	return &PhotoHandler{store: store}
}

func (h *PhotoHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.get)
}

func (h *PhotoHandler) get(c *gin.Context) {
	photo, err := h.store.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer photo.Close()

	c.DataFromReader(http.StatusOK, photo.Size, photo.ContentType, photo, map[string]string{
		"Cache-Control": "public, max-age=" + strconv.Itoa(24*60*60),
	})
}
