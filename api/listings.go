package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/middleware"
	"github.com/Domenick1991/yardhoppers/internal/service/listings"
	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	service listings.ListingUseCase
}

type createListingRequest struct {
	Price       int64  `json:"price" form:"price"`
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	PhotoURL    string `json:"photoUrl" form:"photoUrl"`
	City        string `json:"city" form:"city"`
	State       string `json:"state" form:"state"`
	Zipcode     string `json:"zipcode" form:"zipcode"`
	Address     string `json:"address" form:"address"`
}

type listingResponse struct {
	ListingID   int64  `json:"listingId"`
	HostUser    string `json:"hostUser"`
	Price       int64  `json:"price"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PhotoURL    string `json:"photoUrl"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zipcode     string `json:"zipcode"`
	Address     string `json:"address"`
	CreatedAt   string `json:"createdAt"`
}

func newListingResponse(l *domain.Listing) listingResponse {
	return listingResponse{
		ListingID:   l.ID,
		HostUser:    l.HostUser,
		Price:       l.PriceCents,
		Title:       l.Title,
		Description: l.Description,
		PhotoURL:    l.PhotoURL,
		City:        l.City,
		State:       l.State,
		Zipcode:     l.Zipcode,
		Address:     l.Address,
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
	}
}

func NewListingHandler(service listings.ListingUseCase) *ListingHandler {
	return &ListingHandler{service: service}
}

func (h *ListingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.search)
	router.GET("/:id", h.get)
	router.POST("", middleware.RequireUser(), h.create)
	router.PATCH("/:id", middleware.RequireUser(), h.update)
	router.DELETE("/:id", middleware.RequireUser(), h.remove)
	router.POST("/:id/photo", middleware.RequireUser(), h.attachPhoto)
}

// create accepts JSON, or multipart form data with an optional "photo" file.
func (h *ListingHandler) create(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req createListingRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := listings.CreateListingInput{
		HostUser:    actor.Username,
		PriceCents:  req.Price,
		Title:       req.Title,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		City:        req.City,
		State:       req.State,
		Zipcode:     req.Zipcode,
		Address:     req.Address,
	}

	if file, err := c.FormFile("photo"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read photo"})
			return
		}
		defer f.Close()
		input.Photo = f
		input.PhotoFilename = file.Filename
	}

	listing, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"listing": newListingResponse(listing)})
}

func (h *ListingHandler) search(c *gin.Context) {
	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}

	found, err := h.service.Search(c.Request.Context(), filters)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]listingResponse, 0, len(found))
	for i := range found {
		out = append(out, newListingResponse(&found[i]))
	}
	c.JSON(http.StatusOK, gin.H{"listings": out})
}

func (h *ListingHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	listing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": newListingResponse(listing)})
}

func (h *ListingHandler) update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.CurrentUser(c)

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.service.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": newListingResponse(listing)})
}

func (h *ListingHandler) remove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.CurrentUser(c)

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *ListingHandler) attachPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.CurrentUser(c)

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read photo"})
		return
	}
	defer f.Close()

	listing, err := h.service.AttachPhoto(c.Request.Context(), actor, id, f, file.Filename)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": newListingResponse(listing)})
}
