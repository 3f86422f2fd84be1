package api

import (
	"net/http"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/middleware"
	"github.com/Domenick1991/yardhoppers/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	ListingID int64  `json:"listingId" binding:"required"`
	CheckIn   string `json:"checkIn" binding:"required"`
	CheckOut  string `json:"checkOut" binding:"required"`
}

type updateBookingRequest struct {
	BookingUser *string `json:"bookingUser"`
	CheckIn     *string `json:"checkIn"`
	CheckOut    *string `json:"checkOut"`
}

type bookingResponse struct {
	BookingID   int64  `json:"bookingId"`
	ListingID   int64  `json:"listingId"`
	BookingUser string `json:"bookingUser"`
	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	Status      string `json:"status"`
}

func newBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		BookingID:   b.ID,
		ListingID:   b.ListingID,
		BookingUser: b.BookingUser,
		CheckIn:     b.CheckIn.Format(domain.DateLayout),
		CheckOut:    b.CheckOut.Format(domain.DateLayout),
		Status:      string(b.Status),
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes; every route needs an authenticated caller.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.Use(middleware.RequireUser())
	router.POST("", h.create)
	router.GET("", h.listMine)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.DELETE("/:id", h.cancel)
}

// RegisterAdmin mounts booking routes reserved for administrators.
func (h *BookingHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/users/:username/bookings", middleware.RequireAdmin(), h.listForUser)
}

func (h *BookingHandler) create(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, err := domain.ParseDay(req.CheckIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkIn must be YYYY-MM-DD"})
		return
	}
	checkOut, err := domain.ParseDay(req.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkOut must be YYYY-MM-DD"})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		ListingID:   req.ListingID,
		BookingUser: actor.Username,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": newBookingResponse(created)})
}

func (h *BookingHandler) listMine(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)
	h.writeBookings(c, actor.Username)
}

func (h *BookingHandler) listForUser(c *gin.Context) {
	h.writeBookings(c, c.Param("username"))
}

func (h *BookingHandler) writeBookings(c *gin.Context, username string) {
	bookings, err := h.service.ListBookingsForUser(c.Request.Context(), username)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, newBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

func (h *BookingHandler) get(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": newBookingResponse(current)})
}

func (h *BookingHandler) update(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}

	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := booking.UpdateBookingInput{BookingUser: req.BookingUser}
	if req.CheckIn != nil {
		day, err := domain.ParseDay(*req.CheckIn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "checkIn must be YYYY-MM-DD"})
			return
		}
		patch.CheckIn = &day
	}
	if req.CheckOut != nil {
		day, err := domain.ParseDay(*req.CheckOut)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "checkOut must be YYYY-MM-DD"})
			return
		}
		patch.CheckOut = &day
	}

	updated, err := h.service.UpdateBooking(c.Request.Context(), current.ID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": newBookingResponse(updated)})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), current.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": newBookingResponse(cancelled)})
}

// load fetches the booking named in the path and checks the caller may see it.
func (h *BookingHandler) load(c *gin.Context) (*domain.Booking, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	actor, _ := middleware.CurrentUser(c)

	current, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !actor.IsAdmin && current.BookingUser != actor.Username {
		writeError(c, domain.ErrForbidden)
		return nil, false
	}
	return current, true
}
