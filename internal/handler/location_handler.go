package handler

import (
	"net/http"
	"strconv"

	"github.com/ecohuntapp/ecohunt-server/internal/dto"
	"github.com/ecohuntapp/ecohunt-server/internal/geocode"
	"github.com/ecohuntapp/ecohunt-server/internal/service"
	"github.com/ecohuntapp/ecohunt-server/pkg/response"
	"github.com/ecohuntapp/ecohunt-server/pkg/validator"
	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	service  service.LocationService
	geocoder *geocode.Client
}

func NewLocationHandler(service service.LocationService, geocoder *geocode.Client) *LocationHandler {
	return &LocationHandler{service: service, geocoder: geocoder}
}

func (h *LocationHandler) Update(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateLocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.service.UpdateLocation(c.Request.Context(), userID, input); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "location updated"})
}

func (h *LocationHandler) Nearby(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat is required"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lng is required"})
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius", "2000"), 64)

	users, err := h.service.NearbyUsers(c.Request.Context(), userID, lat, lng, radius)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *LocationHandler) ReverseGeocode(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat is required"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lng is required"})
		return
	}

	addr, err := h.geocoder.Reverse(c.Request.Context(), lat, lng)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, addr)
}
