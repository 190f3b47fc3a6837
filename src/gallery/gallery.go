// Package gallery builds a single self-contained HTML page from a directory of images.
//
// Images are listed in file-name order, downscaled to fit a square bound and embedded as
// base64 PNG data URIs. Clicking a thumbnail opens it full-window through a CSS :target modal,
// so the page needs no script and no external assets.
package gallery

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"

	"github.com/makoty26/HysteresisAnalyzer/src/logging"
	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

//go:embed gallery.html.tmpl
var pageTemplate string

var page = template.Must(template.New("gallery").Parse(pageTemplate))

// Options controls the page layout.
type Options struct {
	Columns int    // thumbnails per row
	MaxSize int    // longest thumbnail side in pixels
	Title   string // page heading
	RunID   string // optional, shown in the footer
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{Columns: 10, MaxSize: 1000, Title: "Hysteresis gallery"}
}

type entry struct {
	Index int
	Name  string
	Data  template.URL
}

type pageData struct {
	Title   string
	Columns int
	MaxSize int
	RunID   string
	Images  []entry
}

// Build writes the gallery of every image in inputDir to outputHTML. The page is written
// to a temporary file first and renamed into place, so a failed build leaves no partial output.
func Build(inputDir, outputHTML string, opts Options) error {
	if opts.Columns < 1 {
		opts.Columns = DefaultOptions().Columns
	}
	if opts.MaxSize < 1 {
		opts.MaxSize = DefaultOptions().MaxSize
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}
	names, err := listFiles(inputDir)
	if err != nil {
		return &types.IOError{Op: "list", Path: inputDir, Err: err}
	}
	data := pageData{Title: opts.Title, Columns: opts.Columns, MaxSize: opts.MaxSize, RunID: opts.RunID}
	for _, name := range names {
		uri, err := thumbnailURI(filepath.Join(inputDir, name), opts.MaxSize)
		if err != nil {
			logging.Warnf("gallery: skipping %s: %v", name, err)
			continue
		}
		data.Images = append(data.Images, entry{Index: len(data.Images), Name: name, Data: uri})
	}
	if len(data.Images) == 0 {
		return &types.IOError{Op: "gallery", Path: inputDir, Err: errors.New("no images")}
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return fmt.Errorf("gallery template: %w", err)
	}
	if err := writeAtomic(outputHTML, buf.Bytes()); err != nil {
		return &types.IOError{Op: "write", Path: outputHTML, Err: err}
	}
	logging.Infof("gallery: %d images -> %s", len(data.Images), outputHTML)
	return nil
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// listFiles returns the image files of dir in lexicographic order.
func listFiles(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, de := range des {
		if de.Type().IsRegular() && imageExts[strings.ToLower(filepath.Ext(de.Name()))] {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func thumbnailURI(path string, maxSize int) (template.URL, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, Thumbnail(img, maxSize)); err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Thumbnail scales img so neither side exceeds maxSize, keeping the aspect ratio. Smaller images
// are returned unchanged.
func Thumbnail(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSize && h <= maxSize {
		return img
	}
	if w >= h {
		h = max(1, h*maxSize/w)
		w = maxSize
	} else {
		w = max(1, w*maxSize/h)
		h = maxSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
