package app

import (
	"context"
	"errors"
	"regexp"

	"github.com/dshills/addondev/internal/display"
	"github.com/dshills/addondev/internal/kodi"
)

// maxUpdates bounds chained Container.Update redirects.
const maxUpdates = 8

// updatePattern matches Container.Update(url[,replace]).
var updatePattern = regexp.MustCompile(`(?i)^\s*Container\.Update\s*\(\s*["']?([^,"']+)["']?\s*(?:,\s*(\w+))?\s*\)\s*$`)

// view is a Result laid out for selection.
type view struct {
	page  display.Page
	back  bool
	items []*kodi.ListItem
}

// Run opens the start URL and loops until the user quits. A failed
// dispatch with no listing to fall back to is returned as *DispatchError.
func (app *Application) Run(ctx context.Context) error {
	url := app.StartURL()
	res, err := app.open(ctx, url)
	for {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil || !res.Succeeded() {
			if res != nil {
				url = res.URL().String()
			}
			res, err = app.recover(url, res, err)
			if err != nil {
				return err
			}
			continue
		}

		app.report(res)
		v := app.layout(res)
		choice, ok := app.choose(v)
		if !ok {
			return nil
		}
		if choice < len(v.items) && v.items[choice].Path != "" {
			url = v.items[choice].Path
		}
		res, err = app.follow(ctx, res, v, choice)
	}
}

// open navigates to url and applies Container.Update redirects.
func (app *Application) open(ctx context.Context, url string) (*kodi.Result, error) {
	res, err := app.session.Navigate(ctx, url)
	return app.applyUpdates(ctx, res, err)
}

func (app *Application) applyUpdates(ctx context.Context, res *kodi.Result, err error) (*kodi.Result, error) {
	for i := 0; err == nil && res.Succeeded(); i++ {
		target, replace, ok := containerUpdate(res.Builtins())
		if !ok {
			return res, nil
		}
		if i == maxUpdates {
			return nil, ErrTooManyRedirects
		}
		app.logger.Debug("container update", "from", res.URL().String(), "to", target, "replace", replace)
		if replace {
			if _, err := app.session.Back(); err != nil {
				return nil, err
			}
		}
		res, err = app.session.Navigate(ctx, target)
	}
	return res, err
}

// containerUpdate returns the last Container.Update target among builtins.
func containerUpdate(builtins []string) (target string, replace bool, ok bool) {
	for _, b := range builtins {
		m := updatePattern.FindStringSubmatch(b)
		if m == nil || !kodi.IsPluginURL(m[1]) {
			continue
		}
		target, replace, ok = m[1], m[2] != "", true
	}
	return target, replace, ok
}

// recover reports a failed navigation and returns the listing to go back to.
func (app *Application) recover(url string, res *kodi.Result, err error) (*kodi.Result, error) {
	cause := err
	if cause == nil {
		cause = res.Err()
	}
	app.presenter.Error("Failed to execute addon", cause)
	if res != nil {
		app.report(res)
	}

	var parent *kodi.Result
	if res != nil {
		// the failed Result is on top of the history
		parent, _ = app.session.Back()
	} else {
		parent = app.session.Current()
	}
	if parent == nil {
		return nil, &DispatchError{URL: url, Err: cause}
	}
	if !app.console.Pause("Press enter to continue: ") {
		return nil, &DispatchError{URL: url, Err: cause}
	}
	return parent, nil
}

// report prints the side effects of a Result.
func (app *Application) report(res *kodi.Result) {
	for _, n := range res.Notifications() {
		app.presenter.Message("Notification: %s: %s", display.Label(n.Heading, nil), display.Label(n.Message, nil))
	}
	for _, b := range res.Builtins() {
		app.presenter.Message("Builtin: %s", b)
	}
}

// layout lists a Result's selectable items, with ".." first when there is
// a listing to go back to.
func (app *Application) layout(res *kodi.Result) view {
	v := view{
		page: display.Page{
			Title:    res.URL().String(),
			AddonID:  res.AddonID(),
			Category: res.Category(),
		},
	}
	if app.session.Depth() > 1 {
		v.back = true
		up := kodi.NewListItem("..")
		up.Folder = true
		v.items = append(v.items, up)
	}

	switch res.State() {
	case kodi.StateDirectory:
		v.items = append(v.items, res.Items()...)
	case kodi.StateResolved:
		v.items = append(v.items, res.Resolved())
		v.items = append(v.items, res.Playlist()...)
	}
	v.page.Items = v.items
	return v
}

// choose takes the next preselected index, or asks the user.
func (app *Application) choose(v view) (int, bool) {
	for len(app.preselect) > 0 {
		i := app.preselect[0]
		app.preselect = app.preselect[1:]
		if i >= 0 && i < len(v.items) {
			app.logger.Debug("preselected item", "index", i, "label", v.items[i].Label)
			return i, true
		}
		app.logger.Warn("preselection out of range", "index", i, "items", len(v.items))
	}

	if err := app.presenter.Show(v.page); err != nil {
		app.logger.Warn("failed to show listing", "error", err)
	}
	return app.console.Choose(len(v.items))
}

// follow acts on the chosen item.
func (app *Application) follow(ctx context.Context, res *kodi.Result, v view, choice int) (*kodi.Result, error) {
	if v.back && choice == 0 {
		parent, err := app.session.Back()
		if err != nil {
			return nil, err
		}
		return parent, nil
	}

	item := v.items[choice]
	if !kodi.IsPluginURL(item.Path) {
		app.presenter.Message("Playable: %s", item.Path)
		return res, nil
	}

	if res.State() != kodi.StateDirectory {
		return app.open(ctx, item.Path)
	}

	idx := choice
	if v.back {
		idx--
	}
	next, err := app.session.Select(ctx, idx)
	var nav *kodi.NavigationError
	if errors.As(err, &nav) {
		app.presenter.Error("Cannot open item", err)
		return res, nil
	}
	return app.applyUpdates(ctx, next, err)
}
