package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tracker/internal/driving"
	"tracker/internal/service"
)

// DeviceHandler handles HTTP requests for device sample streams.
type DeviceHandler struct {
	trackingService *service.TrackingService
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(trackingService *service.TrackingService) *DeviceHandler {
	return &DeviceHandler{trackingService: trackingService}
}

// SampleRequest is the HTTP request body for one location sample.
type SampleRequest struct {
	Lat              *float64  `json:"lat"`
	Lng              *float64  `json:"lng"`
	AccuracyM        *float64  `json:"accuracy_m"`
	AltitudeM        *float64  `json:"altitude_m"`
	SpeedKmh         *float64  `json:"speed_kmh"`
	HeadingDeg       *float64  `json:"heading_deg"`
	AccelerationMps2 *float64  `json:"acceleration_mps2"`
	Timestamp        time.Time `json:"timestamp"`
	DeviceClass      string    `json:"device_class"`
}

// SampleResponse is the HTTP response for an accepted sample.
type SampleResponse struct {
	DeviceID    string          `json:"device_id"`
	State       string          `json:"state"`
	Moved       bool            `json:"moved"`
	TripStarted *TripResponse   `json:"trip_started,omitempty"`
	TripEnded   *TripResponse   `json:"trip_ended,omitempty"`
	Events      []EventResponse `json:"events"`
}

// ActiveTripResponse is the HTTP response for a device's open trip.
type ActiveTripResponse struct {
	Trip      TripResponse `json:"trip"`
	IsDriving bool         `json:"is_driving"`
	IdleSince string       `json:"idle_since,omitempty"`
}

// NearbyDeviceResponse is one device returned by a proximity search.
type NearbyDeviceResponse struct {
	DeviceID   string  `json:"device_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distance_km"`
}

// IngestSample handles POST /v1/devices/:id/samples
func (h *DeviceHandler) IngestSample(c *gin.Context) {
	deviceID := c.Param("id")

	var req SampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Lat == nil || req.Lng == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}

	res, err := h.trackingService.IngestSample(c.Request.Context(), deviceID, driving.Sample{
		Lat:              *req.Lat,
		Lng:              *req.Lng,
		AccuracyM:        req.AccuracyM,
		AltitudeM:        req.AltitudeM,
		SpeedKmh:         req.SpeedKmh,
		HeadingDeg:       req.HeadingDeg,
		AccelerationMps2: req.AccelerationMps2,
		Timestamp:        req.Timestamp,
		DeviceClass:      driving.DeviceClass(req.DeviceClass),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := SampleResponse{
		DeviceID: res.DeviceID,
		State:    res.State.String(),
		Moved:    res.Moved,
		Events:   make([]EventResponse, 0, len(res.Events)),
	}
	if res.TripStarted != nil {
		started := newTripResponse(res.TripStarted, nil, false)
		response.TripStarted = &started
	}
	if res.TripEnded != nil {
		ended := newTripResponse(res.TripEnded, nil, false)
		response.TripEnded = &ended
	}
	for _, ev := range res.Events {
		response.Events = append(response.Events, newEventResponse(ev))
	}

	respondJSON(c, http.StatusCreated, response)
}

// EndSession handles POST /v1/devices/:id/end
func (h *DeviceHandler) EndSession(c *gin.Context) {
	deviceID := c.Param("id")

	rec, err := h.trackingService.EndSession(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	if rec == nil {
		c.Status(http.StatusNoContent)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(rec.Trip, &rec.Stats, false))
}

// ActiveTrip handles GET /v1/devices/:id/trip
func (h *DeviceHandler) ActiveTrip(c *gin.Context) {
	deviceID := c.Param("id")
	withWaypoints := c.Query("waypoints") == "true"

	active, err := h.trackingService.ActiveTrip(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ActiveTripResponse{
		Trip:      newTripResponse(active.Trip, &active.Stats, withWaypoints),
		IsDriving: active.IsDriving,
		IdleSince: formatTime(active.IdleSince),
	})
}

// ListTrips handles GET /v1/devices/:id/trips
func (h *DeviceHandler) ListTrips(c *gin.Context) {
	deviceID := c.Param("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.trackingService.ListTrips(c.Request.Context(), deviceID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, newTripResponse(rec.Trip, &rec.Stats, false))
	}

	respondJSON(c, http.StatusOK, response)
}

// DevicesResponse lists tracked devices.
type DevicesResponse struct {
	// Local holds devices with state on this instance.
	Local []string `json:"local"`
	// Active holds devices with an open trip on any instance.
	Active []string `json:"active"`
}

// ListDevices handles GET /v1/devices
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	active, err := h.trackingService.ActiveDevices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DevicesResponse{
		Local:  h.trackingService.Devices(),
		Active: active,
	})
}

// Nearby handles GET /v1/devices/nearby?lat=..&lng=..&radius_km=..
func (h *DeviceHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng query parameters are required"})
		return
	}

	radiusKm := 5.0
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid radius_km"})
			return
		}
		radiusKm = r
	}

	devices, err := h.trackingService.NearbyDevices(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NearbyDeviceResponse, 0, len(devices))
	for _, d := range devices {
		response = append(response, NearbyDeviceResponse{
			DeviceID:   d.DeviceID,
			Lat:        d.Lat,
			Lng:        d.Lng,
			DistanceKm: d.DistanceKm,
		})
	}

	respondJSON(c, http.StatusOK, response)
}
