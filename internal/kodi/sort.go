package kodi

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// SortedItems returns the directory items ordered by a sort method.
// Folders come before other items unless the method ignores folders.
// Methods without a defined ordering keep the declared order.
func (r *Result) SortedItems(method SortMethod) []*ListItem {
	items := r.Items()
	less := itemComparator(method)
	if less == nil {
		return items
	}
	if method != SortMethodLabelIgnoreFolders {
		less = foldersFirst(less)
	}
	slices.SortStableFunc(items, less)
	return items
}

func foldersFirst(less func(a, b *ListItem) int) func(a, b *ListItem) int {
	return func(a, b *ListItem) int {
		if a.Folder != b.Folder {
			if a.Folder {
				return -1
			}
			return 1
		}
		return less(a, b)
	}
}

func itemComparator(method SortMethod) func(a, b *ListItem) int {
	switch method {
	case SortMethodLabel, SortMethodLabelIgnoreFolders:
		return byString(func(li *ListItem) string { return li.Label })
	case SortMethodLabelIgnoreThe:
		return byString(func(li *ListItem) string { return stripArticle(li.Label) })
	case SortMethodTitle, SortMethodVideoTitle:
		return byString(func(li *ListItem) string { return titleOf(li) })
	case SortMethodTitleIgnoreThe, SortMethodVideoSortTitleIgnoreThe:
		return byString(func(li *ListItem) string { return stripArticle(titleOf(li)) })
	case SortMethodVideoSortTitle:
		return byString(func(li *ListItem) string {
			if s := infoString(li, "sorttitle"); s != "" {
				return s
			}
			return titleOf(li)
		})
	case SortMethodGenre:
		return byString(func(li *ListItem) string { return infoString(li, "genre") })
	case SortMethodStudio:
		return byString(func(li *ListItem) string { return infoString(li, "studio") })
	case SortMethodStudioIgnoreThe:
		return byString(func(li *ListItem) string { return stripArticle(infoString(li, "studio")) })
	case SortMethodArtist:
		return byString(func(li *ListItem) string { return infoString(li, "artist") })
	case SortMethodAlbum:
		return byString(func(li *ListItem) string { return infoString(li, "album") })
	case SortMethodCountry:
		return byString(func(li *ListItem) string { return infoString(li, "country") })
	case SortMethodMPAARating:
		return byString(func(li *ListItem) string { return infoString(li, "mpaa") })
	case SortMethodFile, SortMethodFullPath:
		return byString(func(li *ListItem) string { return li.Path })
	case SortMethodDate:
		return byString(func(li *ListItem) string { return dateKey(infoString(li, "date")) })
	case SortMethodDateAdded:
		return byString(func(li *ListItem) string { return infoString(li, "dateadded") })
	case SortMethodVideoYear:
		return byNumber(func(li *ListItem) float64 { return infoNumber(li, "year") })
	case SortMethodDuration, SortMethodVideoRuntime:
		return byNumber(func(li *ListItem) float64 { return infoNumber(li, "duration") })
	case SortMethodSize:
		return byNumber(func(li *ListItem) float64 { return infoNumber(li, "size") })
	case SortMethodVideoRating, SortMethodSongRating:
		return byNumber(func(li *ListItem) float64 { return infoNumber(li, "rating") })
	case SortMethodVideoUserRating, SortMethodSongUserRating:
		return byNumber(func(li *ListItem) float64 { return infoNumber(li, "userrating") })
	case SortMethodTrackNum:
		return byNumber(func(li *ListItem) float64 { return infoNumber(li, "tracknumber") })
	case SortMethodPlayCount:
		return byNumber(func(li *ListItem) float64 { return infoNumber(li, "playcount") })
	case SortMethodEpisode:
		return func(a, b *ListItem) int {
			if c := cmp.Compare(infoNumber(a, "season"), infoNumber(b, "season")); c != 0 {
				return c
			}
			return cmp.Compare(infoNumber(a, "episode"), infoNumber(b, "episode"))
		}
	default:
		// NONE, UNSORTED, PLAYLIST_ORDER and methods with no item data
		return nil
	}
}

func byString(key func(*ListItem) string) func(a, b *ListItem) int {
	return func(a, b *ListItem) int {
		return strings.Compare(strings.ToLower(key(a)), strings.ToLower(key(b)))
	}
}

func byNumber(key func(*ListItem) float64) func(a, b *ListItem) int {
	return func(a, b *ListItem) int {
		return cmp.Compare(key(a), key(b))
	}
}

// stripArticle removes a leading "the " for the IGNORE_THE sort methods.
func stripArticle(s string) string {
	if len(s) > 4 && strings.EqualFold(s[:4], "the ") {
		return s[4:]
	}
	return s
}

// dateKey rewrites the host's DD.MM.YYYY date labels as YYYY-MM-DD so they
// compare chronologically.
func dateKey(s string) string {
	parts := strings.Split(s, ".")
	if len(parts) == 3 && len(parts[2]) == 4 {
		return parts[2] + "-" + parts[1] + "-" + parts[0]
	}
	return s
}

func titleOf(li *ListItem) string {
	if s := infoString(li, "title"); s != "" {
		return s
	}
	return li.Label
}

func infoString(li *ListItem, key string) string {
	v, ok := li.InfoLabel(key)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, " / ")
	case []string:
		return strings.Join(val, " / ")
	default:
		return fmt.Sprint(val)
	}
}

func infoNumber(li *ListItem, key string) float64 {
	v, ok := li.InfoLabel(key)
	if !ok {
		return 0
	}
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f
	default:
		return 0
	}
}
