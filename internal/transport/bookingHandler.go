package transport

import (
	"net/http"

	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/ds124wfegd/parkingbooker/internal/service"
	"github.com/ds124wfegd/parkingbooker/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CancelBookingRequest представляет запрос на отмену бронирования
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ScanRequest carries the raw text read from a QR code.
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	req.UserID = c.GetString(middleware.ContextUserID)

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "Booking created", booking)
}

func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	bookings, err := h.bookingService.GetUserBookings(c.Request.Context(), c.GetString(middleware.ContextUserID), bookingFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}

	limit, offset := pageParams(c)
	page, meta := paginate(bookings, limit, offset)
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Bookings retrieved successfully",
		Data:    page,
		Meta:    meta,
	})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, ok := h.ownedBooking(c)
	if !ok {
		return
	}

	respondOK(c, http.StatusOK, "Booking retrieved successfully", booking)
}

func (h *BookingHandler) GetQR(c *gin.Context) {
	if _, ok := h.ownedBooking(c); !ok {
		return
	}

	pass, err := h.bookingService.IssueQR(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "QR pass issued", pass)
}

func (h *BookingHandler) GetQRImage(c *gin.Context) {
	if _, ok := h.ownedBooking(c); !ok {
		return
	}

	png, err := h.bookingService.RenderQRImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *BookingHandler) GetPassPDF(c *gin.Context) {
	booking, ok := h.ownedBooking(c)
	if !ok {
		return
	}

	pdf, err := h.bookingService.RenderPassPDF(c.Request.Context(), booking.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=parking-pass-"+booking.ID+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// CancelBooking отменяет бронирование владельцем или администратором
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, ok := h.ownedBooking(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	cancelled, err := h.bookingService.CancelBooking(c.Request.Context(), booking.ID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Booking cancelled", cancelled)
}

// GetAllBookings возвращает все бронирования с фильтрами и пагинацией
func (h *BookingHandler) GetAllBookings(c *gin.Context) {
	filter := bookingFilter(c)
	filter.UserID = c.Query("user_id")

	bookings, err := h.bookingService.ListBookings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	limit, offset := pageParams(c)
	page, meta := paginate(bookings, limit, offset)
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Bookings retrieved successfully",
		Data:    page,
		Meta:    meta,
	})
}

func (h *BookingHandler) GetStats(c *gin.Context) {
	stats, err := h.bookingService.GetBookingStats(c.Request.Context(), c.Query("venue_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Booking stats retrieved", stats)
}

func (h *BookingHandler) VerifyScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookingService.VerifyQR(c.Request.Context(), req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "QR code is valid", booking)
}

func (h *BookingHandler) ScanCheckIn(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	booking, err := h.bookingService.ScanCheckIn(c.Request.Context(), req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Checked in", booking)
}

func (h *BookingHandler) CheckIn(c *gin.Context) {
	booking, err := h.bookingService.AssignSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Checked in", booking)
}

func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	booking, err := h.bookingService.CompleteBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Booking completed", booking)
}

// bookingFilter читает ?venue_id=&status=&date=&when=past|upcoming&search=
func bookingFilter(c *gin.Context) entity.BookingFilter {
	return entity.BookingFilter{
		VenueID: c.Query("venue_id"),
		Status:  entity.BookingStatus(c.Query("status")),
		Date:    c.Query("date"),
		When:    entity.BookingPeriod(c.Query("when")),
		Search:  c.Query("search"),
	}
}

// ownedBooking loads :id and enforces that the caller owns it or is an admin.
// On failure the response is already written.
func (h *BookingHandler) ownedBooking(c *gin.Context) (*entity.Booking, bool) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	if !c.GetBool(middleware.ContextIsAdmin) && booking.UserID != c.GetString(middleware.ContextUserID) {
		// not found rather than forbidden, so ids of other users do not leak
		respondError(c, entity.ErrBookingNotFound)
		return nil, false
	}
	return booking, true
}
