package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"stillwatch/internal/config"
	"stillwatch/internal/device"
	"stillwatch/internal/evaluator"
	"stillwatch/internal/extractor"
	stillhttp "stillwatch/internal/http"
	"stillwatch/internal/mqtt"
	"stillwatch/internal/sequencer"
	"stillwatch/internal/service"
	"stillwatch/internal/stability"
)

func main() {
	cfgPath := flag.String("config", "", "path of the config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := setupLogger(cfg.Log)
	log.Info().Msg("starting stillwatch")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}
	recognizer := device.NewRekognitionRecognizer(rekognition.NewFromConfig(awsCfg), log)

	mqttCfg := mqtt.Config{
		Broker:         cfg.MQTT.Broker,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		ResultTopic:    cfg.MQTT.ResultTopic,
		StatusTopic:    cfg.MQTT.StatusTopic,
		MotionTopic:    cfg.MQTT.MotionTopic,
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
	}
	mqttClient, err := mqtt.Connect(mqttCfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MQTT broker")
	}
	defer mqttClient.Disconnect(250)

	camera := device.NewExecCamera(device.ExecCameraConfig{
		StillCommand: cfg.Camera.StillCommand,
		VideoCommand: cfg.Camera.VideoCommand,
		VideoOutput:  cfg.Camera.VideoOutput,
	}, log)
	audio := device.NewExecAudio(device.ExecAudioConfig{
		ToneCommand:  cfg.Audio.ToneCommand,
		ToneDir:      cfg.Audio.ToneDir,
		SpeakCommand: cfg.Audio.SpeakCommand,
	}, log)
	motion := mqtt.NewMotionSource(mqttClient, mqttCfg, log)

	ex := extractor.New(recognizer, extractor.Config{
		LuminanceThreshold: cfg.Extract.LuminanceThreshold,
		Contrast:           cfg.Extract.Contrast,
		Brightness:         cfg.Extract.Brightness,
	}, log)
	detector := stability.NewDetector(stability.Config{
		DeltaThreshold: cfg.Detection.AccelDeltaThreshold,
		StableSeconds:  cfg.Detection.StableSeconds,
	}, log)

	seq := sequencer.New(sequencer.Config{
		SettleSeconds: cfg.Detection.SettleSeconds,
		ReadyDelay:    cfg.Detection.ReadyDelay,
		CaptureDwell:  cfg.Detection.CaptureDwell,
		VideoDuration: cfg.Detection.VideoDuration,
		ResultSeconds: cfg.Detection.ResultSeconds,
		CuePause:      cfg.Detection.CuePause,
		TickInterval:  time.Second,
		AlarmText:     cfg.Audio.AlarmText,
		PassedText:    cfg.Audio.PassedText,
		FailedText:    cfg.Audio.FailedText,
	}, camera, motion, audio, ex, detector, evaluator.New(log), log)

	statusService := service.NewStatusService(seq.RequestReset, log)
	seq.AddListener(statusService)
	seq.AddListener(mqtt.NewPublisher(mqttClient, mqttCfg, log))

	go func() {
		if err := seq.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("sequencer stopped")
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))
	handler := stillhttp.NewHandler(statusService, cfg, log)
	handler.Register(router, stillhttp.JWTAuthMiddleware(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("stopped")
}

func setupLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger
}
