// SPDX-License-Identifier: MIT

package youtube

import (
	"regexp"
	"strconv"
	"strings"

	yt "google.golang.org/api/youtube/v3"

	"github.com/ManuGH/amvhub/internal/gallery"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO-8601 duration such as PT4M13S to seconds.
// Input outside the supported grammar yields 0.
func ParseDuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	part := func(i int) int {
		if m[i] == "" {
			return 0
		}
		n, err := strconv.Atoi(m[i])
		if err != nil {
			return 0
		}
		return n
	}
	return part(1)*86400 + part(2)*3600 + part(3)*60 + part(4)
}

// FallbackThumbnail is the CDN thumbnail used when the API lists none.
func FallbackThumbnail(id string) string {
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

// PickThumbnail returns the best available thumbnail URL, preferring
// maxres, standard, high, medium, then default.
func PickThumbnail(details *yt.ThumbnailDetails, id string) string {
	if details != nil {
		for _, t := range []*yt.Thumbnail{details.Maxres, details.Standard, details.High, details.Medium, details.Default} {
			if t != nil && t.Url != "" {
				return t.Url
			}
		}
	}
	return FallbackThumbnail(id)
}

// normalize projects detail records onto the stage-one id order. Ids with
// no detail record are dropped; the number dropped is returned.
func normalize(items []*yt.Video, order []string, syncedAt string) ([]gallery.Video, int) {
	byID := make(map[string]gallery.Video, len(items))
	for _, item := range items {
		if item == nil || item.Id == "" {
			continue
		}
		v := gallery.Video{
			ID:          item.Id,
			Thumbnail:   FallbackThumbnail(item.Id),
			PublishedAt: syncedAt,
		}
		if sn := item.Snippet; sn != nil {
			v.Title = sn.Title
			v.Description = strings.TrimSpace(sn.Description)
			v.Thumbnail = PickThumbnail(sn.Thumbnails, item.Id)
			if sn.PublishedAt != "" {
				v.PublishedAt = sn.PublishedAt
			}
		}
		if cd := item.ContentDetails; cd != nil {
			v.DurationSeconds = ParseDuration(cd.Duration)
		}
		byID[item.Id] = v
	}

	out := make([]gallery.Video, 0, len(order))
	for _, id := range order {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, len(order) - len(out)
}
