package cache

import (
	"context"

	"github.com/dshills/addondev/internal/kodi"
)

type dispatchFunc func(url string) *kodi.Result

func (f dispatchFunc) Dispatch(_ context.Context, url string) (*kodi.Result, error) {
	return f(url), nil
}
