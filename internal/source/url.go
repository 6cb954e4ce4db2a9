package source

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	driveFileRe = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)`)
	sheetRe     = regexp.MustCompile(`/spreadsheets/d/([A-Za-z0-9_-]+)`)
	gidRe       = regexp.MustCompile(`gid=([0-9]+)`)
)

// IsRemote reports whether src is fetched over HTTP rather than read from disk.
func IsRemote(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// NormalizeURL rewrites Google Drive and Google Sheets share links into
// direct download links. Any other value is returned trimmed but unchanged.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !IsRemote(raw) {
		return strings.TrimPrefix(raw, "file://")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "drive.google.com":
		id := u.Query().Get("id")
		if m := driveFileRe.FindStringSubmatch(u.Path); m != nil {
			id = m[1]
		}
		if id == "" {
			return raw
		}
		return "https://drive.google.com/uc?export=download&id=" + id
	case host == "docs.google.com" && sheetRe.MatchString(u.Path):
		id := sheetRe.FindStringSubmatch(u.Path)[1]
		gid := "0"
		if m := gidRe.FindStringSubmatch(u.RawQuery + "&" + u.Fragment); m != nil {
			gid = m[1]
		}
		return "https://docs.google.com/spreadsheets/d/" + id + "/export?format=csv&gid=" + gid
	default:
		return raw
	}
}
