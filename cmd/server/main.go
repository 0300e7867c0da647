/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package main is the entry point for starting the Waypoint server.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/asgardeo/waypoint/internal/cert"
	"github.com/asgardeo/waypoint/internal/system/config"
	serverconst "github.com/asgardeo/waypoint/internal/system/constants"
	"github.com/asgardeo/waypoint/internal/system/log"
	"github.com/asgardeo/waypoint/internal/system/tracing"
)

// version is set at build time.
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	logger := log.GetLogger()

	waypointHome := getWaypointHome(logger)

	cfg := initWaypointConfigurations(logger, waypointHome)
	if cfg == nil {
		logger.Fatal("Failed to initialize configurations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.SetupTracing(ctx, cfg.Tracing, version)
	if err != nil {
		logger.Fatal("Failed to set up tracing", log.Error(err))
	}

	mux := http.NewServeMux()
	services := registerServices(ctx, mux, cfg)

	var server *http.Server
	if cfg.Server.HTTPOnly {
		logger.Info("TLS is not enabled, starting server without TLS")
		server = startHTTPServer(logger, cfg, mux)
	} else {
		server = startTLSServer(logger, cfg, mux, waypointHome)
	}

	<-ctx.Done()
	logger.Info("Shutting down Waypoint server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server gracefully", log.Error(err))
	}
	services.close(logger)
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Failed to flush traces", log.Error(err))
	}
}

// getWaypointHome retrieves and returns the Waypoint home directory.
func getWaypointHome(logger *log.Logger) string {
	projectHome := ""
	projectHomeFlag := flag.String("home", "", "Path to Waypoint home directory")
	flag.Parse()

	if *projectHomeFlag != "" {
		logger.Info("Using home from command line argument", log.String("home", *projectHomeFlag))
		projectHome = *projectHomeFlag
	} else {
		// If no command line argument is provided, use the current working directory.
		dir, dirErr := os.Getwd()
		if dirErr != nil {
			logger.Fatal("Failed to get current working directory", log.Error(dirErr))
		}
		projectHome = dir
	}

	return projectHome
}

// initWaypointConfigurations loads the deployment configuration and initializes the runtime.
func initWaypointConfigurations(logger *log.Logger, waypointHome string) *config.Config {
	configFilePath := path.Join(waypointHome, serverconst.DefaultConfigRelativePath)
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		logger.Fatal("Failed to load configurations", log.Error(err))
	}

	if err := config.InitializeServerRuntime(waypointHome, cfg); err != nil {
		logger.Fatal("Failed to initialize server runtime", log.Error(err))
	}

	return cfg
}

// createHTTPServer creates and configures an HTTP server with common settings.
func createHTTPServer(logger *log.Logger, cfg *config.Config, mux *http.ServeMux) (*http.Server, string) {
	// Wrap the multiplexer with AccessLogHandler.
	wrappedMux := log.AccessLogHandler(logger, mux)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port)

	server := &http.Server{
		Addr:              serverAddr,
		Handler:           wrappedMux,
		ReadHeaderTimeout: 10 * time.Second, // Mitigate Slowloris attacks
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return server, serverAddr
}

// startTLSServer starts the HTTPS server using the configured certificate and key.
func startTLSServer(logger *log.Logger, cfg *config.Config, mux *http.ServeMux, waypointHome string) *http.Server {
	server, serverAddr := createHTTPServer(logger, cfg, mux)

	tlsConfig, err := cert.GetTLSConfig(cfg.Security, waypointHome)
	if err != nil {
		logger.Fatal("Failed to load TLS configuration", log.Error(err))
	}

	ln, err := tls.Listen("tcp", serverAddr, tlsConfig)
	if err != nil {
		logger.Fatal("Failed to start TLS listener", log.Error(err))
	}

	go func() {
		logger.Info("Waypoint server started (HTTPS)...", log.String("address", serverAddr))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve requests", log.Error(err))
		}
	}()
	return server
}

// startHTTPServer starts the plain HTTP server.
func startHTTPServer(logger *log.Logger, cfg *config.Config, mux *http.ServeMux) *http.Server {
	server, serverAddr := createHTTPServer(logger, cfg, mux)

	go func() {
		logger.Info("Waypoint server started (HTTP)...", log.String("address", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP requests", log.Error(err))
		}
	}()
	return server
}
