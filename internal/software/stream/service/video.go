package service

import (
	"context"
	"strings"
	"time"

	"taxi-dispatch/internal/domain/video"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/ports"
)

// UploadFrame validates one base64 video frame, caches it as the device's
// latest frame, and pushes it to every subscriber of that device. Returns
// the number of viewers the frame reached.
func (service *streamService) UploadFrame(ctx context.Context, in ports.UploadFrameInput) (int, error) {
	deviceID := strings.TrimSpace(in.DeviceID)
	if deviceID == "" {
		return 0, video.ErrDeviceIDRequired
	}

	size, err := video.ValidateImage(in.Image, service.maxFrameBytes)
	if err != nil {
		return 0, err
	}

	at := in.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	frame := contracts.WSFrame{
		Type:      contracts.WSTypeFrame,
		DeviceID:  deviceID,
		Image:     in.Image,
		Timestamp: at,
		Size:      size,
	}
	if tripID := strings.TrimSpace(in.TripID); tripID != "" {
		frame.TripID = &tripID
	}

	viewers := service.videoHub.Publish(frame)

	// the upload doubles as a liveness signal for the device
	if err := service.liveCache.TouchDevice(ctx, deviceID, at); err != nil {
		service.logger.Error(ctx, "device_touch_failed", "Failed to refresh device presence", err,
			map[string]any{"device_id": deviceID})
	}
	if err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.deviceRepo.Ping(txCtx, deviceID, at)
	}); err != nil {
		// unregistered devices may stream before being enrolled
		service.logger.Info(ctx, "device_ping_skipped", "Frame from device without a registration", map[string]any{
			"device_id": deviceID,
		})
	}

	service.logger.Info(ctx, "frame_published", "Published video frame", map[string]any{
		"device_id": deviceID,
		"size":      size,
		"viewers":   viewers,
	})
	return viewers, nil
}

// LatestFrame returns the device's cached frame if it is still fresh.
func (service *streamService) LatestFrame(_ context.Context, deviceID string) (contracts.WSFrame, error) {
	frame, ok := service.videoHub.Latest(strings.TrimSpace(deviceID))
	if !ok {
		return contracts.WSFrame{}, video.ErrNoFrame
	}
	return frame, nil
}

// StreamingDevices lists the devices whose cached frame is still fresh.
func (service *streamService) StreamingDevices(_ context.Context) ([]string, error) {
	ids := service.videoHub.Devices()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := service.videoHub.Latest(id); ok {
			out = append(out, id)
		}
	}
	return out, nil
}
