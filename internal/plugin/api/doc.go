// Package api provides the host modules plugin scripts load with require.
//
// The modules mirror the host's Python API in Lua form:
//
//   - xbmcplugin: listing output, resolution, sort methods, content type
//   - xbmcgui: the ListItem type and dialogs
//   - xbmcaddon: addon metadata, settings and localized strings
//   - xbmc: logging, special paths, info labels, builtins and the playlist
//   - xbmcvfs: path translation and file checks
//   - pluginutil: URL building and query parsing
//   - json: decoding, encoding and path queries
//
// Modules that talk to the host are bound to an Env, which carries the
// kodi.API of one dispatch cycle. A failed host call raises a Lua error
// whose Go cause is available from Env.Err.
//
// Example plugin:
//
//	local xbmcplugin = require("xbmcplugin")
//	local xbmcgui = require("xbmcgui")
//
//	local handle = tonumber(sys.argv[2])
//	local li = xbmcgui.ListItem("Movies")
//	xbmcplugin.addDirectoryItem(handle, sys.argv[1] .. "?mode=movies", li, true)
//	xbmcplugin.endOfDirectory(handle)
package api
