package service

import (
	"taxi-dispatch/internal/general/logger"
	"taxi-dispatch/internal/general/rabbitmq"
	"taxi-dispatch/internal/general/websocket"
	"taxi-dispatch/internal/ports"
)

// dispatchService owns the trip lifecycle: creation, the accept race,
// progress transitions, and the consumers that fan matching messages out
// to driver and customer channels.
type dispatchService struct {
	logger        *logger.Logger
	uow           ports.UnitOfWork
	tripRepo      ports.TripRepository
	tripEventRepo ports.TripEventRepository
	driverRepo    ports.DriverRepository
	pub           *rabbitmq.MQPublisher
	rabbitmq      *rabbitmq.Client
	drivers       *websocket.Registry
	customers     *websocket.Registry
}

// NewDispatchService creates a new instance of the DispatchService with the provided dependencies.
func NewDispatchService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	tripRepo ports.TripRepository,
	tripEventRepo ports.TripEventRepository,
	driverRepo ports.DriverRepository,
	pub *rabbitmq.MQPublisher,
	rabbitmq *rabbitmq.Client,
	drivers *websocket.Registry,
	customers *websocket.Registry,
) ports.DispatchService {
	return &dispatchService{
		logger:        logger,
		uow:           uow,
		tripRepo:      tripRepo,
		tripEventRepo: tripEventRepo,
		driverRepo:    driverRepo,
		pub:           pub,
		rabbitmq:      rabbitmq,
		drivers:       drivers,
		customers:     customers,
	}
}
