// Package fetch loads source images from local paths or http URLs.
package fetch

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		fs:  afero.NewOsFs(),
		cli: resty.New().SetDoNotParseResponse(true),
		log: logger,
	}
}

type Loader struct {
	fs  afero.Fs
	cli *resty.Client
	log *zap.Logger
}

// Load reads and decodes one image. Sources starting with http:// or
// https:// are downloaded, everything else is a filesystem path.
func (l *Loader) Load(src string) (image.Image, error) {
	bs, err := l.read(src)
	if err != nil {
		return nil, err
	}

	img, kind, err := image.Decode(bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("decode %s failed: %w", src, err)
	}

	l.log.With(zap.String("src", src), zap.String("format", kind)).Debug("image loaded")
	return img, nil
}

func (l *Loader) read(src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return l.download(src)
	}
	return afero.ReadFile(l.fs, src)
}

func (l *Loader) download(url string) ([]byte, error) {
	resp, err := l.cli.R().Get(url)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.RawBody().Close()
	}()

	bar := progressbar.DefaultBytes(resp.RawResponse.ContentLength, fmt.Sprintf("Downloading %s", url))

	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(&buf, bar), resp.RawBody()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// SavePNG writes an image out for previewing.
func (l *Loader) SavePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}

	if err := afero.WriteFile(l.fs, path, buf.Bytes(), 0644); err != nil {
		return err
	}

	l.log.With(zap.String("path", path)).Debug("png saved")
	return nil
}
