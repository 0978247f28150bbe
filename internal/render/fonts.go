package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/BurntSushi/freetype-go/freetype/truetype"
)

// DefaultFontPaths are tried in order when no font is configured.
var DefaultFontPaths = []string{
	"/usr/share/fonts/TTF/Roboto-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/noto/NotoSans-Regular.ttf",
}

// ErrNoFont is returned when none of the candidate paths holds a usable font.
var ErrNoFont = errors.New("no usable font")

// FontCache parses the first readable TrueType font the first time it is
// asked for one. A failed load is remembered; text is then skipped.
type FontCache struct {
	paths    []string
	readFile func(string) ([]byte, error)
	logger   *slog.Logger

	once sync.Once
	font *truetype.Font
	path string
	err  error
}

func NewFontCache(paths []string, logger *slog.Logger) *FontCache {
	if len(paths) == 0 {
		paths = DefaultFontPaths
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FontCache{
		paths:    append([]string(nil), paths...),
		readFile: os.ReadFile,
		logger:   logger,
	}
}

// Font returns the loaded font.
func (c *FontCache) Font() (*truetype.Font, error) {
	c.once.Do(c.load)
	return c.font, c.err
}

// Path is the file the font came from, empty until a font loaded.
func (c *FontCache) Path() string {
	c.once.Do(c.load)
	return c.path
}

func (c *FontCache) load() {
	var errs []error
	for _, path := range c.paths {
		data, err := c.readFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		font, err := truetype.Parse(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", path, err))
			continue
		}
		c.font, c.path = font, path
		c.logger.Debug("font loaded", "path", path)
		return
	}
	c.err = fmt.Errorf("%w (tried %d paths): %w", ErrNoFont, len(c.paths), errors.Join(errs...))
	c.logger.Warn("text rendering disabled", "error", c.err)
}
