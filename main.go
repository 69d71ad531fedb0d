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

package main

import (
	"context"
	"fmt"
	"os"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/decoder"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
	"github.com/binkynet/AccessoryDecoder/pkg/environment"
	"github.com/binkynet/AccessoryDecoder/pkg/logging"
	"github.com/binkynet/AccessoryDecoder/pkg/mqttclient"
	"github.com/binkynet/AccessoryDecoder/pkg/protocol"
	"github.com/binkynet/AccessoryDecoder/pkg/server"
	"github.com/binkynet/AccessoryDecoder/pkg/ui"
)

const (
	projectName        = "BinkyNet Accessory Decoder"
	defaultHTTPPort    = 7129
	defaultSSHPort     = 7122
	defaultMQTTPrefix  = "binkynet/accessory/"
	defaultSerialBaud  = 115200
	recentLogLines     = 200
	defaultPCAAddress  = 0x40
	defaultPCAFirstPin = 100
	mqttClientIDPrefix = "accessory-decoder"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var bridgeType string
	var cvFile string
	var deploymentFile string
	var serverHost string
	var httpPort int
	var sshPort int
	var mqttBroker string
	var mqttPrefix string
	var serialPort string
	var serialBaud int
	var modeLevel int
	var pcaBus string
	var pcaAddress uint8
	var pcaFirstPin int

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|virtual|rpi|mqtt)")
	pflag.StringVar(&cvFile, "cv-file", "", "File holding the configuration variables (empty keeps them in memory)")
	pflag.StringVar(&deploymentFile, "deployment", "", "YAML file with the function bindings (empty uses the built-in bindings)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP & SSH servers will listen on")
	pflag.IntVar(&httpPort, "http-port", defaultHTTPPort, "Port the HTTP server will listen on")
	pflag.IntVar(&sshPort, "ssh-port", defaultSSHPort, "Port the SSH server will listen on (0 disables SSH)")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "Address (host:port) of the MQTT broker")
	pflag.StringVar(&mqttPrefix, "mqtt-prefix", defaultMQTTPrefix, "Prefix of all MQTT topics")
	pflag.StringVar(&serialPort, "serial-port", "", "Serial port delivering command telegrams")
	pflag.IntVar(&serialBaud, "serial-baud", defaultSerialBaud, "Baud rate of the serial port")
	pflag.IntVar(&modeLevel, "mode-level", bridge.MaxAnalogValue, "Level of the mode select input on boards without analog inputs")
	pflag.StringVar(&pcaBus, "pca9685-bus", "", "I2C bus of a PCA9685 servo controller (e.g. /dev/i2c-1)")
	pflag.Uint8Var(&pcaAddress, "pca9685-address", defaultPCAAddress, "I2C address of the PCA9685 servo controller")
	pflag.IntVar(&pcaFirstPin, "pca9685-first-pin", defaultPCAFirstPin, "Pin number of the first PCA9685 output")
	pflag.Parse()

	recent := logging.NewRecent(recentLogLines)
	logOutput := logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, recent)
	logger := zerolog.New(logOutput).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	zerolog.SetGlobalLevel(level)

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	dep := deployment.Default()
	if deploymentFile != "" {
		if dep, err = deployment.Load(deploymentFile); err != nil {
			Exitf("Failed to load deployment: %v\n", err)
		}
	} else if err := dep.Validate(); err != nil {
		Exitf("Invalid built-in deployment: %v\n", err)
	}

	mqttPrefix = mqttclient.NormalizePrefix(mqttPrefix)
	if bridgeType == "auto" {
		bridgeType = environment.AutoDetectBridgeType(logger)
	}
	br, err := newBridge(logger, bridgeType, modeLevel, mqttBroker, mqttPrefix)
	if err != nil {
		Exitf("Failed to initialize %s bridge: %v\n", bridgeType, err)
	}
	if pcaBus != "" {
		dev, err := bridge.OpenI2CDevice(pcaBus, pcaAddress)
		if err != nil {
			Exitf("Failed to open PCA9685: %v\n", err)
		}
		if br, err = bridge.NewPCA9685Bridge(br, dev, bridge.Pin(pcaFirstPin)); err != nil {
			Exitf("Failed to initialize PCA9685: %v\n", err)
		}
	}
	defer br.Close()

	storage, err := newStorage(cvFile)
	if err != nil {
		Exitf("Failed to open CV storage: %v\n", err)
	}
	defer storage.Close()

	dec, err := decoder.New(decoder.Config{
		Deployment: dep,
	}, decoder.Dependencies{
		Log:     logger,
		Bridge:  br,
		Storage: storage,
	})
	if err != nil {
		Exitf("Failed to initialize decoder: %v\n", err)
	}

	requests := protocol.NewRequests(logger)
	defer requests.Forward(dec)()

	srv, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: httpPort,
		SSHPort:  sshPort,
	}, logger, ui.New(dec, recent), dec, requests)
	if err != nil {
		Exitf("Failed to initialize server: %v\n", err)
	}

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dec.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	if mqttBroker != "" {
		clientID := fmt.Sprintf("%s-%d", mqttClientIDPrefix, os.Getpid())
		source := protocol.NewMQTTSource(logger, mqttPrefix, requests, dec)
		g.Go(func() error { return source.Run(ctx, mqttBroker, clientID) })
		if err := startReporter(ctx, g, logger, recent, dec, mqttBroker, clientID+"-report", mqttPrefix); err != nil {
			logger.Warn().Err(err).Msg("Failed to report to MQTT")
		}
	}
	if serialPort != "" {
		source := protocol.NewSerialSource(logger, requests, dec)
		g.Go(func() error { return source.Run(ctx, serialPort, serialBaud) })
	}
	if err := g.Wait(); err != nil {
		Exitf("Decoder run failed: %v\n", err)
	}
}

// newBridge creates the hardware bridge of the given type.
func newBridge(log zerolog.Logger, bridgeType string, modeLevel int, mqttBroker, mqttPrefix string) (bridge.API, error) {
	switch bridgeType {
	case environment.BridgeVirtual:
		return bridge.NewVirtualBridge(), nil
	case environment.BridgeRaspberryPi:
		return bridge.NewRaspberryPiBridge(modeLevel)
	case environment.BridgeMQTT:
		if mqttBroker == "" {
			return nil, errors.New("--mqtt-broker is required for the mqtt bridge")
		}
		clientID := fmt.Sprintf("%s-bridge-%d", mqttClientIDPrefix, os.Getpid())
		return bridge.NewMQTTBridge(log, mqttBroker, clientID, mqttPrefix+"hw/")
	default:
		return nil, errors.Errorf("unknown bridge type '%s'", bridgeType)
	}
}

// newStorage opens the file backed storage or, without a path, an
// in-memory one.
func newStorage(path string) (cv.Storage, error) {
	if path == "" {
		return cv.NewMemoryStorage(), nil
	}
	s, err := cv.OpenFileStorage(path)
	if err != nil {
		return nil, maskAny(err)
	}
	return s, nil
}

// startReporter connects a separate MQTT client that publishes recent log
// lines and the decoder status below the given prefix.
func startReporter(ctx context.Context, g *errgroup.Group, log zerolog.Logger, recent *logging.Recent, dec *decoder.Decoder, broker, clientID, prefix string) error {
	client := mqttapi.NewClient(mqttclient.DefaultOptions(broker, clientID))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return maskAny(token.Error())
	}
	status := func() interface{} { return dec.Status() }
	reporter := logging.NewMQTTReporter(log, recent, status, logging.ClientPublisher(client), prefix)
	g.Go(func() error {
		defer client.Disconnect(250)
		return reporter.Run(ctx)
	})
	return nil
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
