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
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/decoder"
	"github.com/binkynet/AccessoryDecoder/pkg/protocol"
)

// Config for the HTTP & SSH server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
	// Port to listen on for SSH requests (0 disables SSH)
	SSHPort int
	// Path of the SSH host key
	HostKeyPath string
}

// Server runs the HTTP & SSH servers of the decoder.
type Server struct {
	Config
	log      zerolog.Logger
	ui       UI
	decoder  Decoder
	requests AccessoryPublisher
}

// UI creates bubbletea models for SSH sessions.
type UI interface {
	// Handler creates a model for the given session.
	Handler(s ssh.Session) (tea.Model, []tea.ProgramOption)
}

// Decoder is the part of the decoder used by the API.
type Decoder interface {
	Status() decoder.Status
	SubmitCV(ctx context.Context, req protocol.CvProgram) (byte, error)
}

// AccessoryPublisher publishes accessory commands to all receivers.
type AccessoryPublisher interface {
	PublishAccessory(cmd protocol.AccessoryCommand) error
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, ui UI, decoder Decoder, requests AccessoryPublisher) (*Server, error) {
	if cfg.HostKeyPath == "" {
		cfg.HostKeyPath = ".ssh/id_ed25519"
	}
	return &Server{
		Config:   cfg,
		log:      log.With().Str("component", "server").Logger(),
		ui:       ui,
		decoder:  decoder,
		requests: requests,
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on address %s: %w", httpAddr, err)
	}

	httpSrv := http.Server{
		Handler: s.newRouter(),
	}

	var sshServer *ssh.Server
	sshAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.SSHPort))
	if s.SSHPort > 0 && s.ui != nil {
		sshServer, err = wish.NewServer(
			wish.WithAddress(sshAddr),
			// Creates an ED25519 key pair at the given path if needed.
			wish.WithHostKeyPath(s.HostKeyPath),
			wish.WithMiddleware(
				bubbletea.Middleware(s.ui.Handler),
				// The last item in the chain is the first to be called.
				activeterm.Middleware(),
				logging.Middleware(),
			),
		)
		if err != nil {
			httpLis.Close()
			return fmt.Errorf("could not start SSH server: %w", err)
		}
	}

	errs := make(chan error, 2)
	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			errs <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()
	if sshServer != nil {
		log.Debug().Str("address", sshAddr).Msg("Serving SSH")
		go func() {
			if err := sshServer.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				errs <- fmt.Errorf("failed to serve SSH: %w", err)
			}
			log.Debug().Str("address", sshAddr).Msg("Done Serving SSH")
		}()
	}

	var result error
	select {
	case <-ctx.Done():
	case result = <-errs:
	}

	log.Info().Msg("Closing servers")
	httpSrv.Shutdown(context.Background())
	if sshServer != nil {
		sshServer.Shutdown(context.Background())
	}
	return result
}

// newRouter builds the HTTP routes.
func (s *Server) newRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	api := e.Group("/api")
	api.GET("/status", s.getStatus)
	api.GET("/status/ws", s.streamStatus)
	api.GET("/cv/:cv", s.getCV)
	api.PUT("/cv/:cv", s.putCV)
	api.POST("/accessory", s.postAccessory)
	return e
}
