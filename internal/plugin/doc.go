// Package plugin runs Lua plugin scripts as dispatch entry points.
//
// LuaLoader implements kodi.Loader for addons whose entry file is a .lua
// script. Every dispatch gets a fresh sandboxed state with the host
// modules of package api preloaded and sys.argv set the way the host
// passes arguments to plugins:
//
//	sys.argv[1]  base URL, e.g. plugin://plugin.video.example/movies
//	sys.argv[2]  handle, as a string
//	sys.argv[3]  query string with its leading "?", or ""
//
// Compiled scripts are kept in a ScriptCache and recompiled when the file
// changes. The context of the dispatch cancels a running script, so
// deadlines set on the engine stop runaway loops.
//
// A Lua error raised by a failed host call is returned as the Go error of
// that call. Other script errors are returned as they are and become
// runtime errors of the dispatch.
package plugin
