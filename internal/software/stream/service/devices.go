package service

import (
	"context"
	"time"

	"taxi-dispatch/internal/domain/device"
	"taxi-dispatch/internal/ports"
)

// RegisterDevice enrolls an onboard device, or refreshes its name and vehicle
// binding if the id is already known.
func (service *streamService) RegisterDevice(ctx context.Context, in ports.RegisterDeviceInput) (ports.DeviceView, error) {
	d, err := device.NewDevice(in.ID, in.Name, in.VehicleID)
	if err != nil {
		return ports.DeviceView{}, err
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.deviceRepo.Upsert(txCtx, d); err != nil {
			return err
		}
		stored, err := service.deviceRepo.GetByID(txCtx, d.ID)
		if err != nil {
			return err
		}
		d = stored
		return nil
	})
	if err != nil {
		return ports.DeviceView{}, err
	}

	service.logger.Info(ctx, "device_registered", "Device registered", map[string]any{
		"device_id": d.ID,
		"name":      d.Name,
	})
	return service.view(ctx, d), nil
}

// GetDevice returns one device by id.
func (service *streamService) GetDevice(ctx context.Context, id string) (ports.DeviceView, error) {
	var d *device.Device
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		stored, err := service.deviceRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		d = stored
		return nil
	})
	if err != nil {
		return ports.DeviceView{}, err
	}
	return service.view(ctx, d), nil
}

// ListDevices returns every enrolled device, most recently seen first.
func (service *streamService) ListDevices(ctx context.Context) ([]ports.DeviceView, error) {
	var devices []*device.Device
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		stored, err := service.deviceRepo.List(txCtx)
		if err != nil {
			return err
		}
		devices = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	views := make([]ports.DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, service.view(ctx, d))
	}
	return views, nil
}

// PingDevice records a liveness heartbeat for the device.
func (service *streamService) PingDevice(ctx context.Context, id string) (ports.DeviceView, error) {
	now := time.Now().UTC()

	var d *device.Device
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.deviceRepo.Ping(txCtx, id, now); err != nil {
			return err
		}
		stored, err := service.deviceRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		d = stored
		return nil
	})
	if err != nil {
		return ports.DeviceView{}, err
	}

	if err := service.liveCache.TouchDevice(ctx, id, now); err != nil {
		service.logger.Error(ctx, "device_touch_failed", "Failed to refresh device presence", err,
			map[string]any{"device_id": id})
	}
	return service.view(ctx, d), nil
}

// view maps a device to its wire shape. Online is decided by the presence
// cache first and the persisted last ping as a fallback.
func (service *streamService) view(ctx context.Context, d *device.Device) ports.DeviceView {
	online, err := service.liveCache.DeviceOnline(ctx, d.ID)
	if err != nil || !online {
		online = d.Online(time.Now().UTC(), service.freshnessWindow)
	}
	return ports.DeviceView{
		ID:        d.ID,
		Name:      d.Name,
		VehicleID: d.VehicleID,
		Status:    d.Status.String(),
		Online:    online,
		LastPing:  d.LastPing,
		CreatedAt: d.CreatedAt,
	}
}
