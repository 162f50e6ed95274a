// Package api serves the capability registry over HTTP. The registry
// is write-once, so the service is read-only by construction.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/kawakami-masaki0/mct-model-optimization/internal/version"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
)

type Server struct {
	registry *tpc.Registry
}

func NewServer(registry *tpc.Registry) *Server {
	return &Server{registry: registry}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/devices", s.handleListDevices)
	e.GET("/v1/devices/:device", s.handleGetDevice)
	e.GET("/v1/capabilities/:device/:version", s.handleResolve)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

func (s *Server) handleListDevices(c *echo.Context) error {
	var list DeviceList
	for _, device := range s.registry.Devices() {
		info, err := s.deviceInfo(device)
		if err != nil {
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
		}
		list.Devices = append(list.Devices, info)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetDevice(c *echo.Context) error {
	device := tpc.DeviceType(c.Param("device"))
	info, err := s.deviceInfo(device)
	if err != nil {
		if errors.Is(err, tpc.ErrUnknownDeviceType) {
			return writeNotFound(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleResolve(c *echo.Context) error {
	device := tpc.DeviceType(c.Param("device"))
	requested := c.Param("version")

	var (
		caps *tpc.CapabilityDescriptor
		err  error
	)
	if requested == "latest" {
		// The explicit opt-in path; resolution itself never falls back.
		caps, err = s.registry.Latest(device)
	} else {
		caps, err = s.registry.Resolve(device, requested)
	}
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, caps)
	case errors.Is(err, tpc.ErrUnknownDeviceType), errors.Is(err, tpc.ErrUnknownVersion):
		return writeNotFound(c, err.Error())
	case errors.Is(err, tpc.ErrBackendUnavailable):
		return writeUnavailable(c, err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func (s *Server) deviceInfo(device tpc.DeviceType) (DeviceInfo, error) {
	versions, err := s.registry.Versions(device)
	if err != nil {
		return DeviceInfo{}, err
	}
	latest, err := s.registry.LatestVersion(device)
	if err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{Type: string(device), Versions: versions, Latest: latest}, nil
}
