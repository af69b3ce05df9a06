package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/addondev/internal/addon"
	"github.com/dshills/addondev/internal/kodi"
	plua "github.com/dshills/addondev/internal/plugin/lua"
)

const testAddonID = "plugin.video.test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// luaEntry runs code as the plugin script with every host module available.
func luaEntry(code string) kodi.EntryPoint {
	return func(ctx context.Context, inv *kodi.Invocation) error {
		state, err := plua.NewState()
		if err != nil {
			return err
		}
		defer state.Close()

		env := NewEnv(ctx, inv.API, testLogger())
		reg, err := DefaultRegistry(env)
		if err != nil {
			return err
		}
		L := state.LuaState()
		if err := reg.InjectAll(L); err != nil {
			return err
		}
		sys := L.NewTable()
		L.SetField(sys, "argv", plua.NewBridge(L).ToLuaValue(inv.Argv()))
		state.SetGlobal("sys", sys)

		if err := state.DoString(ctx, code); err != nil {
			if herr := env.Err(); herr != nil && strings.Contains(err.Error(), herr.Error()) {
				return herr
			}
			return err
		}
		return nil
	}
}

// runLua dispatches url to an addon whose script is code.
func runLua(t *testing.T, code, url string, opts ...kodi.Option) *kodi.Result {
	t.Helper()

	repo := addon.NewRepo()
	repo.Add(&addon.Addon{
		ID:      testAddonID,
		Name:    "Test",
		Version: "2.1.0",
		Type:    addon.PointPluginSource,
		Library: "main.lua",
	})
	loader := kodi.NewFuncLoader()
	loader.Register(testAddonID, luaEntry(code))

	opts = append([]kodi.Option{
		kodi.WithLoader(loader),
		kodi.WithSpecialPaths(kodi.NewSpecialPaths(t.TempDir())),
		kodi.WithLogger(testLogger()),
	}, opts...)
	e := kodi.NewEngine(repo, opts...)

	if url == "" {
		url = "plugin://" + testAddonID + "/"
	}
	res, err := e.Dispatch(context.Background(), url)
	if err != nil {
		t.Fatalf("Dispatch(%q) error = %v", url, err)
	}
	return res
}

const prelude = `
local xbmc = require("xbmc")
local xbmcplugin = require("xbmcplugin")
local xbmcgui = require("xbmcgui")
local xbmcaddon = require("xbmcaddon")
local handle = tonumber(sys.argv[2])
`

func TestPluginListing(t *testing.T) {
	res := runLua(t, prelude+`
		local li = xbmcgui.ListItem("The Matrix", "1999")
		li:setArt({thumb = "thumb.jpg", Poster = "poster.jpg"})
		li:setInfo("video", {title = "The Matrix", year = 1999, rating = 8.7})
		li:setProperty("IsPlayable", "true")
		li:addStreamInfo("video", {codec = "h264", width = 1920})
		li:addContextMenuItems({{"Refresh", "Container.Refresh"}})
		xbmcplugin.addDirectoryItem(handle, sys.argv[1] .. "?id=1", li, false)

		local folder = xbmcgui.ListItem({label = "More"})
		xbmcplugin.addDirectoryItems(handle, {{sys.argv[1] .. "?page=2", folder, true}})

		xbmcplugin.setContent(handle, "movies")
		xbmcplugin.setPluginCategory(handle, "Films")
		xbmcplugin.setProperty(handle, "fanart", "bg.jpg")
		xbmcplugin.addSortMethod(handle, xbmcplugin.SORT_METHOD_LABEL)
		xbmcplugin.addSortMethod(handle, xbmcplugin.SORT_METHOD_VIDEO_YEAR, "%Y")
		xbmcplugin.endOfDirectory(handle)
	`, "")

	if res.State() != kodi.StateDirectory {
		t.Fatalf("State() = %v, want directory (err %v)", res.State(), res.Err())
	}
	if res.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", res.Len())
	}

	first, _ := res.Item(0)
	if first.Label != "The Matrix" || first.Label2 != "1999" {
		t.Errorf("labels = %q %q", first.Label, first.Label2)
	}
	if first.Path != "plugin://"+testAddonID+"/?id=1" || first.Folder {
		t.Errorf("path = %q folder = %v", first.Path, first.Folder)
	}
	if first.Art["poster"] != "poster.jpg" {
		t.Errorf("art = %v", first.Art)
	}
	if year, _ := first.InfoLabel("year"); year != int64(1999) {
		t.Errorf("year = %v (%T), want 1999", year, year)
	}
	if len(first.StreamInfo[kodi.StreamVideo]) != 1 {
		t.Errorf("stream info = %v", first.StreamInfo)
	}
	if len(first.ContextMenu) != 1 || first.ContextMenu[0].Action != "Container.Refresh" {
		t.Errorf("context menu = %v", first.ContextMenu)
	}

	second, _ := res.Item(1)
	if second.Label != "More" || !second.Folder {
		t.Errorf("second = %+v", second)
	}

	if res.ContentType() != kodi.ContentMovies || res.Category() != "Films" {
		t.Errorf("content = %q category = %q", res.ContentType(), res.Category())
	}
	if res.Properties()["fanart"] != "bg.jpg" {
		t.Errorf("properties = %v", res.Properties())
	}
	sorts := res.SortMethods()
	if len(sorts) != 2 || sorts[1].Method != kodi.SortMethodVideoYear || sorts[1].LabelMask != "%Y" {
		t.Errorf("sort methods = %v", sorts)
	}
	if res.Directive() != kodi.CacheToDisk {
		t.Errorf("Directive() = %v, want %v", res.Directive(), kodi.CacheToDisk)
	}
}

func TestPluginEndOfDirectoryOptions(t *testing.T) {
	tests := []struct {
		name      string
		call      string
		wantState kodi.State
		wantDir   kodi.CacheDirective
	}{
		{name: "defaults", call: `xbmcplugin.endOfDirectory(handle)`, wantState: kodi.StateDirectory, wantDir: kodi.CacheToDisk},
		{name: "update listing", call: `xbmcplugin.endOfDirectory(handle, true, true)`, wantState: kodi.StateDirectory, wantDir: kodi.CacheUpdateListing},
		{name: "no disc cache", call: `xbmcplugin.endOfDirectory(handle, true, false, false)`, wantState: kodi.StateDirectory, wantDir: kodi.CacheNone},
		{name: "failed", call: `xbmcplugin.endOfDirectory(handle, false)`, wantState: kodi.StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runLua(t, prelude+`
				xbmcplugin.addDirectoryItem(handle, sys.argv[1] .. "?a=1", xbmcgui.ListItem("A"), true)
			`+tt.call, "")
			if res.State() != tt.wantState {
				t.Fatalf("State() = %v, want %v (err %v)", res.State(), tt.wantState, res.Err())
			}
			if tt.wantState == kodi.StateDirectory && res.Directive() != tt.wantDir {
				t.Errorf("Directive() = %v, want %v", res.Directive(), tt.wantDir)
			}
		})
	}
}

func TestPluginResolve(t *testing.T) {
	res := runLua(t, prelude+`
		local li = xbmcgui.ListItem()
		li:setPath("https://example.com/video.mp4")
		li:setMimeType("video/mp4")
		li:setSubtitles({"https://example.com/en.srt"})
		xbmcplugin.setResolvedUrl(handle, true, li)
	`, "plugin://"+testAddonID+"/play?id=7")

	if res.State() != kodi.StateResolved {
		t.Fatalf("State() = %v, want resolved (err %v)", res.State(), res.Err())
	}
	item := res.Resolved()
	if item.Path != "https://example.com/video.mp4" || item.MimeType != "video/mp4" {
		t.Errorf("resolved = %+v", item)
	}
	if !reflect.DeepEqual(item.Subtitles, []string{"https://example.com/en.srt"}) {
		t.Errorf("subtitles = %v", item.Subtitles)
	}
}

func TestPluginFailures(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr error
		wantCV  bool
	}{
		{
			name:    "handle mismatch",
			code:    `xbmcplugin.addDirectoryItem(handle + 1, "plugin://x/", xbmcgui.ListItem("A"))`,
			wantErr: kodi.ErrHandleMismatch,
			wantCV:  true,
		},
		{
			name:    "double finish",
			code:    `xbmcplugin.addDirectoryItem(handle, "plugin://x/", xbmcgui.ListItem("A")) xbmcplugin.endOfDirectory(handle) xbmcplugin.endOfDirectory(handle)`,
			wantErr: kodi.ErrAlreadyFinished,
			wantCV:  true,
		},
		{
			name:    "missing target",
			code:    `xbmcplugin.addDirectoryItem(handle, "", xbmcgui.ListItem("A"))`,
			wantErr: kodi.ErrMissingTarget,
			wantCV:  true,
		},
		{
			name:    "nil target",
			code:    `xbmcplugin.addDirectoryItem(handle, nil, xbmcgui.ListItem("A"))`,
			wantErr: kodi.ErrMissingTarget,
			wantCV:  true,
		},
		{
			name:    "unknown info type",
			code:    `local li = xbmcgui.ListItem("A") li:setInfo("bogus", {})`,
			wantErr: kodi.ErrInvalidArgument,
			wantCV:  true,
		},
		{
			name:    "sort method by name",
			code:    `xbmcplugin.addSortMethod(handle, "label")`,
			wantErr: kodi.ErrInvalidArgument,
			wantCV:  true,
		},
		{
			name:    "empty context menu entry",
			code:    `local li = xbmcgui.ListItem("A") li:addContextMenuItems({{"", ""}})`,
			wantErr: kodi.ErrInvalidArgument,
			wantCV:  true,
		},
		{
			name:    "fractional handle",
			code:    `xbmcplugin.endOfDirectory(handle + 0.5)`,
			wantErr: kodi.ErrInvalidArgument,
			wantCV:  true,
		},
		{
			name:    "list item expected",
			code:    `xbmcplugin.setResolvedUrl(handle, true, "http://x/v.mp4")`,
			wantErr: kodi.ErrInvalidArgument,
			wantCV:  true,
		},
		{
			name:    "addon setting without id",
			code:    `xbmcaddon.Addon():getSetting()`,
			wantErr: kodi.ErrInvalidArgument,
			wantCV:  true,
		},
		{
			name:    "unknown content",
			code:    `xbmcplugin.setContent(handle, "podcasts")`,
			wantErr: kodi.ErrInvalidArgument,
			wantCV:  true,
		},
		{
			name:    "unknown special path",
			code:    `xbmc.translatePath("special://nowhere/x")`,
			wantErr: kodi.ErrUnknownSpecialPath,
			wantCV:  true,
		},
		{
			name: "script error after items",
			code: `xbmcplugin.addDirectoryItem(handle, "plugin://x/", xbmcgui.ListItem("A")) error("scraper broke")`,
		},
		{
			name:   "protected violation still fails",
			code:   `pcall(xbmcplugin.setContent, handle, "podcasts") xbmcplugin.addDirectoryItem(handle, "plugin://x/", xbmcgui.ListItem("A"))`,
			wantCV: true,
		},
		{
			name:    "nothing produced",
			code:    `local x = 1`,
			wantErr: kodi.ErrNoOutput,
			wantCV:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runLua(t, prelude+tt.code, "")
			if res.State() != kodi.StateFailed {
				t.Fatalf("State() = %v, want failed", res.State())
			}
			if res.Len() != 0 {
				t.Errorf("failed Result has %d items", res.Len())
			}
			if tt.wantErr != nil && !errors.Is(res.Err(), tt.wantErr) {
				t.Errorf("Err() = %v, want %v", res.Err(), tt.wantErr)
			}
			if got := kodi.IsContractViolation(res.Err()); got != tt.wantCV {
				t.Errorf("IsContractViolation(%v) = %v, want %v", res.Err(), got, tt.wantCV)
			}
		})
	}
}

func TestAddonModule(t *testing.T) {
	res := runLua(t, prelude+`
		local addon = xbmcaddon.Addon()
		assert(addon:getAddonInfo("id") == "`+testAddonID+`", "id")
		assert(addon:getAddonInfo("version") == "2.1.0", "version")
		assert(addon:getAddonInfo("profile"):find("addon_data", 1, true), "profile")

		addon:setSetting("quality", "720p")
		addon:setSettingBool("hd", true)
		addon:setSettingInt("pages", 3)
		assert(addon:getSetting("quality") == "720p", "string setting")
		assert(addon:getSettingBool("hd") == true, "bool setting")
		assert(addon:getSettingInt("pages") == 3, "int setting")
		assert(xbmcplugin.getSetting(handle, "quality") == "720p", "plugin setting")
		assert(addon:getSetting("unset") == "", "unset setting")
		assert(addon:getLocalizedString(30000) == "", "unknown string")

		xbmcplugin.addDirectoryItem(handle, sys.argv[1], xbmcgui.ListItem(addon:getSetting("quality")))
	`, "")

	if res.State() != kodi.StateDirectory {
		t.Fatalf("State() = %v, want directory (err %v)", res.State(), res.Err())
	}
	if item, _ := res.Item(0); item.Label != "720p" {
		t.Errorf("label = %q, want 720p", item.Label)
	}
}

func TestAddonSettingTypeError(t *testing.T) {
	res := runLua(t, prelude+`
		local addon = xbmcaddon.Addon()
		addon:setSetting("pages", "many")
		addon:getSettingInt("pages")
	`, "")

	if !errors.Is(res.Err(), kodi.ErrInvalidArgument) {
		t.Errorf("Err() = %v, want %v", res.Err(), kodi.ErrInvalidArgument)
	}
}

type fakePrompter struct {
	headings []string
}

func (p *fakePrompter) Input(heading, def string) (string, error) {
	p.headings = append(p.headings, heading)
	return "matrix", nil
}

func (p *fakePrompter) Select(heading string, opts []string) (int, error) {
	p.headings = append(p.headings, heading)
	return len(opts) - 1, nil
}

func (p *fakePrompter) YesNo(heading, message string) (bool, error) {
	p.headings = append(p.headings, heading)
	return true, nil
}

func TestGUIDialog(t *testing.T) {
	prompter := &fakePrompter{}
	res := runLua(t, prelude+`
		local dialog = xbmcgui.Dialog()
		local query = dialog:input("Search")
		local pick = dialog:select("Quality", {"SD", "HD"})
		local sure = dialog:yesno("Confirm", "Really?")
		dialog:notification("Done", "Searched for " .. query, xbmcgui.NOTIFICATION_INFO, 5000)
		local li = xbmcgui.ListItem(query .. ":" .. pick .. ":" .. tostring(sure))
		xbmcplugin.addDirectoryItem(handle, sys.argv[1], li)
	`, "", kodi.WithPrompter(prompter))

	if res.State() != kodi.StateDirectory {
		t.Fatalf("State() = %v (err %v)", res.State(), res.Err())
	}
	if item, _ := res.Item(0); item.Label != "matrix:1:true" {
		t.Errorf("label = %q, want matrix:1:true", item.Label)
	}
	if want := []string{"Search", "Quality", "Confirm"}; !reflect.DeepEqual(prompter.headings, want) {
		t.Errorf("headings = %v, want %v", prompter.headings, want)
	}
	notes := res.Notifications()
	if len(notes) != 1 || notes[0].Message != "Searched for matrix" {
		t.Errorf("notifications = %v", notes)
	}
}

func TestGUIDialogWithoutPrompter(t *testing.T) {
	res := runLua(t, prelude+`
		local dialog = xbmcgui.Dialog()
		assert(dialog:input("Search", "default") == "default", "input")
		assert(dialog:select("Pick", {"a"}) == -1, "select")
		assert(dialog:yesno("Sure?", "") == false, "yesno")
		xbmcplugin.addDirectoryItem(handle, sys.argv[1], xbmcgui.ListItem("ok"))
	`, "")

	if res.State() != kodi.StateDirectory {
		t.Errorf("State() = %v (err %v)", res.State(), res.Err())
	}
}

func TestXBMCModule(t *testing.T) {
	res := runLua(t, prelude+`
		xbmc.log("hello", xbmc.LOGINFO)
		local profile = xbmc.translatePath("special://profile/")
		assert(profile:find("userdata", 1, true), "profile path " .. profile)
		assert(xbmc.getInfoLabel("Container.PluginName") == "`+testAddonID+`", "plugin name")
		assert(xbmc.getInfoLabel("System.BuildVersion"):sub(1, 2) == "20", "build version")
		assert(xbmc.getInfoLabel("Nope.Nothing") == "", "unknown label")

		xbmc.executebuiltin("Container.Refresh")

		local li = xbmcgui.ListItem("Part 1")
		li:setPath("https://example.com/1.mp4")
		xbmcplugin.setResolvedUrl(handle, true, li)
		xbmc.PlayList(xbmc.PLAYLIST_VIDEO):add("https://example.com/2.mp4", xbmcgui.ListItem("Part 2"))
	`, "")

	if res.State() != kodi.StateResolved {
		t.Fatalf("State() = %v (err %v)", res.State(), res.Err())
	}
	if got := res.Builtins(); !reflect.DeepEqual(got, []string{"Container.Refresh"}) {
		t.Errorf("Builtins() = %v", got)
	}
	playlist := res.Playlist()
	if len(playlist) != 1 || playlist[0].Path != "https://example.com/2.mp4" || playlist[0].Label != "Part 2" {
		t.Errorf("Playlist() = %v", playlist)
	}
}

func TestVFSModule(t *testing.T) {
	res := runLua(t, prelude+`
		local xbmcvfs = require("xbmcvfs")
		local dir = xbmcvfs.translatePath("special://profile/addon_data/`+testAddonID+`/cache")
		assert(not xbmcvfs.exists(dir), "cache should not exist yet")
		assert(xbmcvfs.mkdirs(dir), "mkdirs")
		assert(xbmcvfs.exists(dir), "cache should exist")
		assert(xbmcvfs.translatePath("/plain/path") == "/plain/path", "plain path")
		xbmcplugin.addDirectoryItem(handle, sys.argv[1], xbmcgui.ListItem(dir))
	`, "")

	if res.State() != kodi.StateDirectory {
		t.Fatalf("State() = %v (err %v)", res.State(), res.Err())
	}
	item, _ := res.Item(0)
	if _, err := os.Stat(item.Label); err != nil {
		t.Errorf("Stat(%s) error = %v", item.Label, err)
	}
	if filepath.Base(item.Label) != "cache" {
		t.Errorf("dir = %q", item.Label)
	}
}

func TestUtilRouting(t *testing.T) {
	res := runLua(t, prelude+`
		local util = require("pluginutil")
		local params = util.parse_query(sys.argv[3])
		assert(params.mode == "list", "mode")
		assert(params.q == "a b", "q")

		local next = util.build_url(sys.argv[1], {page = "2", mode = params.mode})
		xbmcplugin.addDirectoryItem(handle, next, xbmcgui.ListItem("Next"), true)
		xbmcplugin.addDirectoryItem(handle, util.build_url("`+testAddonID+`", {x = "1"}), xbmcgui.ListItem("Root"), true)
	`, "plugin://"+testAddonID+"/browse?mode=list&q=a+b")

	if res.State() != kodi.StateDirectory {
		t.Fatalf("State() = %v (err %v)", res.State(), res.Err())
	}
	first, _ := res.Item(0)
	if want := "plugin://" + testAddonID + "/browse?mode=list&page=2"; first.Path != want {
		t.Errorf("next = %q, want %q", first.Path, want)
	}
	second, _ := res.Item(1)
	if want := "plugin://" + testAddonID + "/?x=1"; second.Path != want {
		t.Errorf("root = %q, want %q", second.Path, want)
	}
}

func TestUtilStrings(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	if err := NewUtilModule().Register(L); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	code := `
		local u = require("pluginutil")
		local parts = u.split("a,b,c", ",")
		assert(#parts == 3 and parts[2] == "b", "split")
		assert(u.join(parts, "-") == "a-b-c", "join")
		assert(u.trim("  x  ") == "x", "trim")
		assert(u.starts_with("plugin://x", "plugin://"), "starts_with")
		assert(u.ends_with("file.mp4", ".mp4"), "ends_with")
		assert(u.quote("a b&c") == "a+b%26c", "quote")
		assert(u.unquote("a+b%26c") == "a b&c", "unquote")
		assert(u.escape_pattern("1.5%") == "1%.5%%", "escape_pattern")
	`
	if err := L.DoString(code); err != nil {
		t.Errorf("DoString() error = %v", err)
	}
}

func TestJSONModule(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	if err := NewJSONModule().Register(L); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	code := `
		local json = require("json")
		local doc = '{"results":[{"title":"A","year":2001},{"title":"B","year":2002}],"total":2}'

		local v = json.decode(doc)
		assert(v.total == 2, "total")
		assert(#v.results == 2 and v.results[2].title == "B", "results")

		local titles = json.get(doc, "results.#.title")
		assert(titles[1] == "A" and titles[2] == "B", "gjson path")
		assert(json.get(doc, "missing") == nil, "missing path")

		local bad, err = json.decode("{nope")
		assert(bad == nil and err ~= nil, "invalid json")

		assert(json.encode({a = 1}) == '{"a":1}', "encode map")
		assert(json.encode({"x", "y"}) == '["x","y"]', "encode list")

		local updated = json.set('{"a":1}', "b.c", "d")
		assert(json.get(updated, "b.c") == "d", "set")
	`
	if err := L.DoString(code); err != nil {
		t.Errorf("DoString() error = %v", err)
	}
}
