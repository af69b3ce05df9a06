// Package config provides the configuration for addondev.
//
// Configuration is resolved in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority (applied by cmd)
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← ADDONDEV_*
//	├─────────────────────────────┤
//	│  2. User Config File        │  ← ~/.config/addondev/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # File Format
//
//	[paths]
//	home = "~/.kodi"
//	cache = "~/.cache/addondev"
//	addons = ["~/src/plugin.video.example"]
//
//	[logging]
//	level = "info"
//
//	[runtime]
//	timeout = "30s"
//	call_stack = 256
//
//	[display]
//	detailed = false
//	crop = true
//
//	[session]
//	watch = true
//	disk_cache = true
//
// # Environment Variables
//
// ADDONDEV_HOME, ADDONDEV_CACHE_DIR, ADDONDEV_ADDONS (path list),
// ADDONDEV_LOG_LEVEL, ADDONDEV_TIMEOUT, ADDONDEV_CALL_STACK,
// ADDONDEV_DETAILED, ADDONDEV_CROP, ADDONDEV_WATCH and ADDONDEV_DISK_CACHE.
//
// # Sub-packages
//
//   - loader: TOML file and environment variable loading, map merging
package config
