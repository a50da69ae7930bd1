package resources

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/schuko"
)

// fcDescriptor is a font as listed by fc-list.
type fcDescriptor struct {
	Families []string
	Path     string
	Style    string // lowercase, e.g. "regular", "bold italic"
}

func findFontConfigBinary(conf schuko.Configuration) (path string, err error) {
	path = conf.GetString("fontconfig")
	if path == "" {
		tracer().Infof("fontconfig not configured: key 'fontconfig' should point location of 'fc-list' binary")
		err = errors.New("fontconfig not configured")
	}
	return
}

// cacheFontConfigList copies the output of fc-list to the user's cache
// directory, if not already present, and returns the path of the copy.
func cacheFontConfigList(conf schuko.Configuration, update bool) (string, bool) {
	fcpath, err := findFontConfigBinary(conf)
	if err != nil {
		return "", false
	}
	cachedir, err := CacheDirPath(conf)
	if err != nil {
		tracer().Errorf("user cache directory not available: %v", err)
		return "", false
	}
	fcListFilename := filepath.Join(cachedir, "fontlist.txt")
	if _, err := os.Stat(fcListFilename); err == nil && !update {
		return fcListFilename, true
	}
	if !filepath.IsAbs(fcpath) {
		err = core.Error(core.EINVALID, "fontconfig binary fc-list must point to absolute path: %s", fcpath)
		core.UserError(err)
		return "", false
	}
	if fi, err := os.Stat(fcpath); err != nil || (fi.Mode().Perm()&0100) == 0 {
		err = core.WrapError(err, core.EINVALID,
			"fontconfig configuration points to an invalid binary: %s", fcpath)
		core.UserError(err)
		return "", false
	}
	fontlistFile, err := os.Create(fcListFilename)
	if err == nil {
		fccmd := exec.Command(fcpath)
		fccmd.Stdout = fontlistFile
		err = fccmd.Run()
		fontlistFile.Close()
	}
	if err != nil {
		os.Remove(fcListFilename)
		err = core.WrapError(err, core.EINVALID,
			"fontconfig output file cannot be created: %s", fcListFilename)
		core.UserError(err)
		return "", false
	}
	return fcListFilename, true
}

// parseFontConfigList reads lines of fc-list's default output format:
//
//	/usr/share/fonts/dejavu/DejaVuSans.ttf: DejaVu Sans:style=Book
//
// Font collections are skipped, their count is returned separately.
func parseFontConfigList(r io.Reader) (descs []fcDescriptor, ttc int, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			continue
		}
		fontpath := strings.TrimSpace(fields[0])
		if strings.HasSuffix(strings.ToLower(fontpath), ".ttc") {
			ttc++
			continue
		}
		desc := fcDescriptor{Path: fontpath, Style: "regular"}
		for _, fam := range strings.Split(fields[1], ",") {
			if fam = strings.TrimPrefix(strings.TrimSpace(fam), "."); fam != "" {
				desc.Families = append(desc.Families, fam)
			}
		}
		if len(fields) > 2 {
			style := strings.ToLower(strings.TrimSpace(fields[2]))
			style = strings.TrimPrefix(style, "style=")
			if i := strings.IndexByte(style, ','); i >= 0 {
				style = style[:i]
			}
			if style != "" {
				desc.Style = style
			}
		}
		descs = append(descs, desc)
	}
	return descs, ttc, scanner.Err()
}

// fontConfigList holds the parsed fc-list output, loaded once per fc-list binary.
var fontConfigList struct {
	sync.Mutex
	binary string
	ok     bool
	descs  []fcDescriptor
}

func loadFontConfigList(conf schuko.Configuration) ([]fcDescriptor, bool) {
	fontConfigList.Lock()
	defer fontConfigList.Unlock()
	binary := conf.GetString("fontconfig")
	if fontConfigList.binary == binary && fontConfigList.ok {
		return fontConfigList.descs, true
	}
	fclist, ok := cacheFontConfigList(conf, false)
	if !ok {
		return nil, false
	}
	fc, err := os.Open(fclist)
	if err != nil {
		err = core.WrapError(err, core.EINVALID,
			"fontconfig font list cannot be opened: %s", fclist)
		core.UserError(err)
		return nil, false
	}
	defer fc.Close()
	descs, ttc, err := parseFontConfigList(fc)
	if err != nil {
		err = core.WrapError(err, core.EINVALID,
			"encountered a problem during reading of fontconfig font list: %s", fclist)
		core.UserError(err)
		return nil, false
	}
	if ttc > 0 {
		tracer().Infof("skipping %d platform fonts: TTC not supported", ttc)
	}
	tracer().Infof("loaded fontconfig list with %d fonts", len(descs))
	fontConfigList.binary, fontConfigList.ok, fontConfigList.descs = binary, true, descs
	return descs, true
}

// findFontConfigFont searches for a locally installed font using the fontconfig
// system (https://www.freedesktop.org/wiki/Software/fontconfig/).
// fontconfig has to be configured by setting the absolute path of the 'fc-list'
// binary as configuration key 'fontconfig'.
//
// The output of fc-list is copied to the user's cache directory once.
// Subsequent calls will use the cached entries to search for a font.
//
// We call the binary instead of using the C library because of possible version
// issues. If fontconfig is not configured, findFontConfigFont will silently
// report that no font has been found.
func findFontConfigFont(conf schuko.Configuration, pattern string) (fcDescriptor, bool) {
	descs, ok := loadFontConfigList(conf)
	if !ok {
		return fcDescriptor{}, false
	}
	return closestFontConfigMatch(descs, pattern)
}

// closestFontConfigMatch prefers an exact family match over a partial one, and
// regular styles over others.
func closestFontConfigMatch(descs []fcDescriptor, pattern string) (fcDescriptor, bool) {
	needle := normalizeFontname(pattern)
	if needle == "" {
		return fcDescriptor{}, false
	}
	best, bestScore := fcDescriptor{}, 0
	for _, desc := range descs {
		for _, fam := range desc.Families {
			score := 0
			switch fam := normalizeFontname(fam); {
			case fam == needle:
				score = 4
			case strings.HasPrefix(fam, needle):
				score = 2
			case strings.Contains(fam, needle):
				score = 1
			default:
				continue
			}
			if desc.Style == "regular" || desc.Style == "book" || desc.Style == "roman" {
				score++
			}
			if score > bestScore {
				best, bestScore = desc, score
			}
		}
	}
	tracer().Debugf("closest fontconfig match for %q: %v (score %d)", pattern, best.Path, bestScore)
	return best, bestScore > 0
}

// normalizeFontname lowercases a font name and strips blanks, dashes and underscores.
func normalizeFontname(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, name)
}
