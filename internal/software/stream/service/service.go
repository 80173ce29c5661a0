package service

import (
	"time"

	"taxi-dispatch/internal/general/logger"
	"taxi-dispatch/internal/general/rabbitmq"
	"taxi-dispatch/internal/general/websocket"
	"taxi-dispatch/internal/ports"
)

// streamService owns live GPS tracking and device video: it validates and
// fans out location samples, keeps the latest frame per device, and serves
// device registration and liveness.
type streamService struct {
	logger          *logger.Logger
	uow             ports.UnitOfWork
	deviceRepo      ports.DeviceRepository
	historyRepo     ports.LocationHistoryRepository
	liveCache       ports.LiveCache
	pub             *rabbitmq.MQPublisher
	rabbitmq        *rabbitmq.Client
	tracking        *websocket.Registry
	videoHub        *websocket.VideoHub
	freshnessWindow time.Duration
	maxFrameBytes   int
}

// NewStreamService creates a new instance of the StreamService with the provided dependencies.
func NewStreamService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	deviceRepo ports.DeviceRepository,
	historyRepo ports.LocationHistoryRepository,
	liveCache ports.LiveCache,
	pub *rabbitmq.MQPublisher,
	rabbitmq *rabbitmq.Client,
	tracking *websocket.Registry,
	videoHub *websocket.VideoHub,
	freshnessWindow time.Duration,
	maxFrameBytes int,
) ports.StreamService {
	return &streamService{
		logger:          logger,
		uow:             uow,
		deviceRepo:      deviceRepo,
		historyRepo:     historyRepo,
		liveCache:       liveCache,
		pub:             pub,
		rabbitmq:        rabbitmq,
		tracking:        tracking,
		videoHub:        videoHub,
		freshnessWindow: freshnessWindow,
		maxFrameBytes:   maxFrameBytes,
	}
}
