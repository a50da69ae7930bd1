package resources

import (
	"os"
	"path/filepath"

	"github.com/npillmayer/schuko"
)

// DefaultAppKey is used as the name of the application's cache folder if
// configuration key 'app-key' is not set.
const DefaultAppKey = "glyphocr"

func appKey(conf schuko.Configuration) string {
	if conf != nil && conf.IsSet("app-key") {
		if key := conf.GetString("app-key"); key != "" {
			return key
		}
	}
	return DefaultAppKey
}

// CacheDirPath checks and possibly creates a folder in the user's cache
// directory. The base cache directory is taken from `os.UserCacheDir()`, plus
// an application specific key, taken as `app-key` from conf.
// Clients may specify a sequence of folder names, which will be appended to
// the base cache path. Non-existing sub-folders will be created as necessary
// (with permissions 755).
func CacheDirPath(conf schuko.Configuration, subfolders ...string) (string, error) {
	cachedir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	cachedir = filepath.Join(append([]string{cachedir, appKey(conf)}, subfolders...)...)
	tracer().Debugf("caching in %s", cachedir)
	if _, err = os.Stat(cachedir); os.IsNotExist(err) {
		if err = os.MkdirAll(cachedir, 0755); err != nil {
			return "", err
		}
	}
	return cachedir, nil
}
