// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/decoder"
	"github.com/binkynet/AccessoryDecoder/pkg/programming"
	"github.com/binkynet/AccessoryDecoder/pkg/protocol"
)

const (
	cvTimeout = 2 * time.Second
)

// cvWrite is the body of a CV write request.
type cvWrite struct {
	Value          *int `json:"value"`
	Pom            bool `json:"pom,omitempty"`
	ServiceAddress int  `json:"serviceAddress,omitempty"`
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.decoder.Status())
}

func (s *Server) getCV(c echo.Context) error {
	cvNum, err := strconv.Atoi(c.Param("cv"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cv number")
	}
	req := protocol.CvProgram{CV: cvNum}
	if addr := c.QueryParam("pom"); addr != "" {
		serviceAddress, err := strconv.Atoi(addr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid service address")
		}
		req.Pom = true
		req.ServiceAddress = serviceAddress
	}
	return s.submitCV(c, req)
}

func (s *Server) putCV(c echo.Context) error {
	cvNum, err := strconv.Atoi(c.Param("cv"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cv number")
	}
	var body cvWrite
	if err := c.Bind(&body); err != nil {
		return err
	}
	if body.Value == nil || *body.Value < 0 || *body.Value > 255 {
		return echo.NewHTTPError(http.StatusBadRequest, "value must be in 0..255")
	}
	return s.submitCV(c, protocol.CvProgram{
		CV:             cvNum,
		Value:          byte(*body.Value),
		Write:          true,
		Pom:            body.Pom,
		ServiceAddress: body.ServiceAddress,
	})
}

func (s *Server) submitCV(c echo.Context, req protocol.CvProgram) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), cvTimeout)
	defer cancel()
	value, err := s.decoder.SubmitCV(ctx, req)
	if err != nil {
		s.log.Debug().Err(err).Int("cv", req.CV).Msg("CV request failed")
		return c.JSON(statusOf(err), protocol.NewCvResult(req, value, err))
	}
	return c.JSON(http.StatusOK, protocol.NewCvResult(req, value, nil))
}

func (s *Server) postAccessory(c echo.Context) error {
	var cmd protocol.AccessoryCommand
	if err := c.Bind(&cmd); err != nil {
		return err
	}
	if err := s.requests.PublishAccessory(cmd); err != nil {
		return echo.NewHTTPError(statusOf(err), err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

// statusOf maps decoder errors to HTTP status codes.
func statusOf(err error) int {
	cause := errors.Cause(err)
	switch {
	case protocol.IsInvalidEvent(err), cause == cv.ErrOutOfRange:
		return http.StatusBadRequest
	case programming.IsUnauthorized(err):
		return http.StatusForbidden
	case programming.IsReadOnly(err):
		return http.StatusConflict
	case cause == decoder.ErrQueueFull:
		return http.StatusServiceUnavailable
	case cause == context.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
