package kodi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/addondev/internal/addon"
	"github.com/dshills/addondev/internal/settings"
)

// BuildVersion is reported by System.BuildVersion.
const BuildVersion = "20.2 (20.2.0) Git:20230629-5f418d0b13"

// LogLevel is a host log level as passed to xbmc.log.
type LogLevel int

// Host log levels.
const (
	LogDebug LogLevel = iota
	LogInfo
	LogNotice
	LogWarning
	LogError
	LogSevere
	LogFatal
	LogNone
)

// slogLevels maps host log levels onto slog levels.
var slogLevels = [...]slog.Level{
	LogDebug:   slog.LevelDebug,
	LogInfo:    slog.LevelDebug,
	LogNotice:  slog.LevelInfo,
	LogWarning: slog.LevelWarn,
	LogError:   slog.LevelError,
	LogSevere:  slog.LevelError,
	LogFatal:   slog.LevelError,
	LogNone:    slog.LevelDebug,
}

// SlogLevel returns the slog level for a host log level.
func (l LogLevel) SlogLevel() slog.Level {
	if l < LogDebug || l > LogNone {
		return slog.LevelDebug
	}
	return slogLevels[l]
}

// DirectoryItem is one entry for AddDirectoryItems.
type DirectoryItem struct {
	URL      string
	Item     *ListItem
	IsFolder bool
}

// API is the host API surface for one dispatch cycle.
//
// Every call checks that its request context is the one currently bound
// by the engine. Calls made after the cycle ended, or while a nested cycle
// runs, fail with a BindingError.
type API struct {
	engine *Engine
	rc     *RequestContext
}

func (a *API) bound(op string) (*RequestContext, error) {
	if a == nil || a.engine == nil || !a.engine.stack.isTop(a.rc) {
		return nil, &BindingError{Op: op}
	}
	return a.rc, nil
}

func (a *API) boundHandle(op string, handle int) (*RequestContext, error) {
	rc, err := a.bound(op)
	if err != nil {
		return nil, err
	}
	if handle != rc.Handle() {
		return nil, rc.Violate(violation(op, fmt.Errorf("%w: got %d, want %d", ErrHandleMismatch, handle, rc.Handle())))
	}
	return rc, nil
}

// Handle returns the handle of the bound cycle.
func (a *API) Handle() int {
	return a.rc.Handle()
}

// URL returns the URL of the bound cycle.
func (a *API) URL() PluginURL {
	return a.rc.URL()
}

// AddDirectoryItem adds an entry to the listing. The target URL is required.
func (a *API) AddDirectoryItem(handle int, url string, item *ListItem, isFolder bool) error {
	rc, err := a.boundHandle("addDirectoryItem", handle)
	if err != nil {
		return err
	}
	if item == nil {
		item = NewListItem("")
	}
	entry := item.Clone()
	entry.Path = url
	entry.Folder = isFolder
	return rc.RecordItem(entry)
}

// AddDirectoryItems adds several entries. It stops at the first invalid entry.
func (a *API) AddDirectoryItems(handle int, items []DirectoryItem) error {
	for _, it := range items {
		if err := a.AddDirectoryItem(handle, it.URL, it.Item, it.IsFolder); err != nil {
			return err
		}
	}
	return nil
}

// EndOfDirectory completes the listing. Options default to succeeded and
// cached to disc.
func (a *API) EndOfDirectory(handle int, opts ...DirectoryOption) error {
	rc, err := a.boundHandle("endOfDirectory", handle)
	if err != nil {
		return err
	}
	o := DefaultDirectoryOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return rc.FinishDirectory(o)
}

// SetResolvedURL completes the cycle with a playable item.
func (a *API) SetResolvedURL(handle int, succeeded bool, item *ListItem) error {
	rc, err := a.boundHandle("setResolvedUrl", handle)
	if err != nil {
		return err
	}
	return rc.FinishResolved(succeeded, item)
}

// AddSortMethod registers a sort method with optional label masks.
func (a *API) AddSortMethod(handle int, method SortMethod, labelMask, label2Mask string) error {
	rc, err := a.boundHandle("addSortMethod", handle)
	if err != nil {
		return err
	}
	return rc.AddSortMethod(SortEntry{Method: method, LabelMask: labelMask, Label2Mask: label2Mask})
}

// SetContent declares the content type of the listing.
func (a *API) SetContent(handle int, content string) error {
	rc, err := a.boundHandle("setContent", handle)
	if err != nil {
		return err
	}
	ct, err := ParseContentType(content)
	if err != nil {
		return rc.Violate(violation("setContent", err))
	}
	return rc.SetContent(ct)
}

// SetPluginCategory sets the listing title.
func (a *API) SetPluginCategory(handle int, category string) error {
	rc, err := a.boundHandle("setPluginCategory", handle)
	if err != nil {
		return err
	}
	return rc.SetCategory(category)
}

// SetProperty sets a container property.
func (a *API) SetProperty(handle int, key, value string) error {
	rc, err := a.boundHandle("setProperty", handle)
	if err != nil {
		return err
	}
	if key == "" {
		return rc.Violate(violationf("setProperty", "empty key"))
	}
	return rc.SetProperty(key, value)
}

// PluginSetting returns a setting of the bound addon, as xbmcplugin.getSetting.
func (a *API) PluginSetting(handle int, key string) (string, error) {
	rc, err := a.boundHandle("getSetting", handle)
	if err != nil {
		return "", err
	}
	v, _ := a.engine.settings.Get(rc.Addon().ID, key)
	return v, nil
}

// SetPluginSetting sets a setting of the bound addon, as xbmcplugin.setSetting.
func (a *API) SetPluginSetting(handle int, key, value string) error {
	rc, err := a.boundHandle("setSetting", handle)
	if err != nil {
		return err
	}
	if err := a.engine.settings.Set(rc.Addon().ID, key, value); err != nil {
		return rc.Violate(violation("setSetting", err))
	}
	return nil
}

// AddToPlaylist queues an item to play after the resolved item.
func (a *API) AddToPlaylist(url string, item *ListItem) error {
	rc, err := a.bound("PlayList.add")
	if err != nil {
		return err
	}
	if item == nil {
		item = NewListItem(url)
	}
	entry := item.Clone()
	if url != "" {
		entry.Path = url
	}
	if entry.Path == "" {
		return rc.Violate(violation("PlayList.add", ErrMissingTarget))
	}
	return rc.QueuePlaylist(entry)
}

// Log writes a plugin log line.
func (a *API) Log(level LogLevel, msg string) error {
	rc, err := a.bound("log")
	if err != nil {
		return err
	}
	a.engine.logger.Log(context.Background(), level.SlogLevel(), msg, "addon", rc.Addon().ID)
	return nil
}

// TranslatePath resolves special:// paths.
func (a *API) TranslatePath(path string) (string, error) {
	rc, err := a.bound("translatePath")
	if err != nil {
		return "", err
	}
	p, err := a.engine.paths.Translate(path)
	if err != nil {
		return "", rc.Violate(violation("translatePath", err))
	}
	return p, nil
}

// InfoLabel returns a host info label. Unknown labels are empty.
func (a *API) InfoLabel(name string) (string, error) {
	rc, err := a.bound("getInfoLabel")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(name) {
	case "system.buildversion":
		return BuildVersion, nil
	case "system.language":
		return "English", nil
	case "container.folderpath":
		return rc.URL().String(), nil
	case "container.pluginname":
		return rc.Addon().ID, nil
	case "container.plugincategory":
		return rc.Category(), nil
	default:
		return "", nil
	}
}

// builtinPattern splits Name(args) builtins.
var builtinPattern = regexp.MustCompile(`^\s*([A-Za-z.]+)\s*(?:\((.*)\))?\s*$`)

// ExecuteBuiltin records a builtin command. RunPlugin(url) performs a
// synchronous nested dispatch.
func (a *API) ExecuteBuiltin(ctx context.Context, cmd string) error {
	rc, err := a.bound("executebuiltin")
	if err != nil {
		return err
	}
	rc.RecordBuiltin(cmd)

	m := builtinPattern.FindStringSubmatch(cmd)
	if m == nil {
		return nil
	}
	if !strings.EqualFold(m[1], "RunPlugin") {
		return nil
	}

	target := strings.Trim(strings.TrimSpace(strings.SplitN(m[2], ",", 2)[0]), `"'`)
	res, err := a.RunPlugin(ctx, target)
	if err != nil {
		if IsBindingError(err) {
			return err
		}
		a.engine.logger.Warn("RunPlugin failed", "addon", rc.Addon().ID, "url", target, "error", err)
		return nil
	}
	if res.State() == StateFailed {
		a.engine.logger.Warn("RunPlugin target failed", "addon", rc.Addon().ID, "url", target, "error", res.Err())
	}
	return nil
}

// RunPlugin dispatches a URL as a nested cycle and returns its Result.
// ctx must be the context the entry point was invoked with.
func (a *API) RunPlugin(ctx context.Context, url string) (*Result, error) {
	if _, err := a.bound("RunPlugin"); err != nil {
		return nil, err
	}
	if a.engine.callerFrom(ctx) != a.rc {
		return nil, &BindingError{Op: "RunPlugin"}
	}
	return a.engine.Dispatch(ctx, url)
}

// InvalidArgument records a rejected argument of op as a contract violation
// of the bound cycle and returns it.
func (a *API) InvalidArgument(op string, err error) error {
	rc, berr := a.bound(op)
	if berr != nil {
		return berr
	}
	if !errors.Is(err, ErrInvalidArgument) {
		err = fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return rc.Violate(violation(op, err))
}

// Notify records a notification dialog.
func (a *API) Notify(heading, message string) error {
	rc, err := a.bound("notification")
	if err != nil {
		return err
	}
	rc.Notify(Notification{Heading: heading, Message: message})
	return nil
}

// Input asks the user for text. Without a prompter the default is returned.
func (a *API) Input(heading, defaultValue string) (string, error) {
	if _, err := a.bound("input"); err != nil {
		return "", err
	}
	if a.engine.prompter == nil {
		return defaultValue, nil
	}
	return a.engine.prompter.Input(heading, defaultValue)
}

// Select asks the user to pick an option. Cancelling returns -1.
func (a *API) Select(heading string, options []string) (int, error) {
	if _, err := a.bound("select"); err != nil {
		return -1, err
	}
	if a.engine.prompter == nil {
		return -1, nil
	}
	return a.engine.prompter.Select(heading, options)
}

// YesNo asks the user a yes/no question.
func (a *API) YesNo(heading, message string) (bool, error) {
	if _, err := a.bound("yesno"); err != nil {
		return false, err
	}
	if a.engine.prompter == nil {
		return false, nil
	}
	return a.engine.prompter.YesNo(heading, message)
}

// Addon returns an accessor for an addon's metadata and settings.
// An empty id selects the bound addon.
func (a *API) Addon(id string) (*AddonAPI, error) {
	rc, err := a.bound("Addon")
	if err != nil {
		return nil, err
	}
	if id == "" || id == rc.Addon().ID {
		return &AddonAPI{api: a, addon: rc.Addon()}, nil
	}
	ad, err := a.engine.resolver.Resolve(id)
	if err != nil {
		return nil, rc.Violate(violation("Addon", fmt.Errorf("unknown addon id or missing dependency: %w", err)))
	}
	a.engine.prepare(ad)
	return &AddonAPI{api: a, addon: ad}, nil
}

// AddonAPI is the xbmcaddon.Addon accessor.
type AddonAPI struct {
	api   *API
	addon *addon.Addon
}

// ID returns the addon id.
func (x *AddonAPI) ID() string {
	return x.addon.ID
}

// Info returns an addon property, as getAddonInfo.
func (x *AddonAPI) Info(name string) (string, error) {
	if _, err := x.api.bound("getAddonInfo"); err != nil {
		return "", err
	}
	if name == "profile" {
		return x.api.engine.paths.AddonData(x.addon.ID) + "/", nil
	}
	return x.addon.Info(name), nil
}

// Setting returns a setting as a string. Unknown settings are empty.
func (x *AddonAPI) Setting(key string) (string, error) {
	if _, err := x.api.bound("getSetting"); err != nil {
		return "", err
	}
	v, _ := x.api.engine.settings.Get(x.addon.ID, key)
	return v, nil
}

// SettingBool returns a setting as a boolean.
func (x *AddonAPI) SettingBool(key string) (bool, error) {
	rc, err := x.api.bound("getSettingBool")
	if err != nil {
		return false, err
	}
	v, err := x.api.engine.settings.Bool(x.addon.ID, key)
	if err != nil {
		return false, rc.Violate(violation("getSettingBool", settingErr(err)))
	}
	return v, nil
}

// SettingInt returns a setting as an integer.
func (x *AddonAPI) SettingInt(key string) (int, error) {
	rc, err := x.api.bound("getSettingInt")
	if err != nil {
		return 0, err
	}
	v, err := x.api.engine.settings.Int(x.addon.ID, key)
	if err != nil {
		return 0, rc.Violate(violation("getSettingInt", settingErr(err)))
	}
	return v, nil
}

// SettingNumber returns a setting as a float.
func (x *AddonAPI) SettingNumber(key string) (float64, error) {
	rc, err := x.api.bound("getSettingNumber")
	if err != nil {
		return 0, err
	}
	v, err := x.api.engine.settings.Number(x.addon.ID, key)
	if err != nil {
		return 0, rc.Violate(violation("getSettingNumber", settingErr(err)))
	}
	return v, nil
}

// SetSetting stores a setting.
func (x *AddonAPI) SetSetting(key, value string) error {
	rc, err := x.api.bound("setSetting")
	if err != nil {
		return err
	}
	if err := x.api.engine.settings.Set(x.addon.ID, key, value); err != nil {
		return rc.Violate(violation("setSetting", err))
	}
	return nil
}

// SetSettingBool stores a boolean setting.
func (x *AddonAPI) SetSettingBool(key string, value bool) error {
	return x.SetSetting(key, strconv.FormatBool(value))
}

// SetSettingInt stores an integer setting.
func (x *AddonAPI) SetSettingInt(key string, value int) error {
	return x.SetSetting(key, strconv.Itoa(value))
}

// SetSettingNumber stores a float setting.
func (x *AddonAPI) SetSettingNumber(key string, value float64) error {
	return x.SetSetting(key, strconv.FormatFloat(value, 'f', -1, 64))
}

// LocalizedString returns a localized string. Ids missing from the addon are
// looked up in the host language addon; unknown ids are empty.
func (x *AddonAPI) LocalizedString(id int) (string, error) {
	if _, err := x.api.bound("getLocalizedString"); err != nil {
		return "", err
	}
	e := x.api.engine
	if s, ok := e.prepare(x.addon).strings[id]; ok {
		return s, nil
	}
	if lang, err := e.resolver.Resolve(LanguageAddonID); err == nil {
		if s, ok := e.prepare(lang).strings[id]; ok {
			return s, nil
		}
	}
	return "", nil
}

// LanguageAddonID is the addon holding the host's own strings.
const LanguageAddonID = "resource.language.en_gb"

// settingErr marks settings conversion failures as invalid arguments.
func settingErr(err error) error {
	var te *settings.TypeError
	if errors.As(err, &te) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return err
}
