package transport

import (
	"net/http"

	"github.com/ds124wfegd/parkingbooker/internal/service"
	"github.com/gin-gonic/gin"
)

type VenueHandler struct {
	venueService service.VenueService
}

func NewVenueHandler(venueService service.VenueService) *VenueHandler {
	return &VenueHandler{venueService: venueService}
}

func (h *VenueHandler) GetAllVenues(c *gin.Context) {
	venues, err := h.venueService.GetAllVenues(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Venues retrieved successfully", venues)
}

func (h *VenueHandler) GetVenue(c *gin.Context) {
	venue, err := h.venueService.GetVenue(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Venue retrieved successfully", venue)
}

// GetAvailability возвращает свободные места: ?date=YYYY-MM-DD&start_time=HH:MM[&end_time=HH:MM]
func (h *VenueHandler) GetAvailability(c *gin.Context) {
	date := c.Query("date")
	start := c.Query("start_time")
	if date == "" || start == "" {
		respondBadRequest(c, "date and start_time are required")
		return
	}

	free, err := h.venueService.Availability(c.Request.Context(), c.Param("id"), date, start, c.Query("end_time"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Availability retrieved successfully",
		Data:    free,
		Meta:    map[string]interface{}{"count": len(free)},
	})
}

func (h *VenueHandler) GetQuote(c *gin.Context) {
	quote, err := h.venueService.Quote(c.Request.Context(), c.Param("id"), c.Query("start_time"), c.Query("end_time"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Quote calculated", quote)
}

func (h *VenueHandler) GetOccupancy(c *gin.Context) {
	occupancy, err := h.venueService.GetVenueOccupancy(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, occupancy.String(), occupancy)
}

func (h *VenueHandler) GetTimeSlots(c *gin.Context) {
	respondOK(c, http.StatusOK, "Time slots retrieved", h.venueService.TimeSlots())
}
