package engine

import (
	"log/slog"

	"palmguard/internal/config"
	"palmguard/internal/control"
	"palmguard/internal/osutils"
)

// DefaultChannels builds the platform control channels in priority order.
func DefaultChannels(cfg *config.Config, logger *slog.Logger) []control.Channel {
	if !osutils.IsAdmin() {
		logger.Debug("not elevated, device enumeration may be read-only")
	}
	return []control.Channel{
		control.NewSettingChannel(control.NewSettingStore(), control.NewBroadcaster(), control.DefaultDescriptors(), logger),
		control.NewDeviceChannel(control.NewEnumerator(), cfg.Control.DevicePatterns, logger),
		control.NewKeySimChannel(control.OpenInjector, cfg.KeyCombination(), cfg.Control.SettleDelay.Duration(), logger),
	}
}
