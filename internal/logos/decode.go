package logos

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	icodec "github.com/fyne-io/image/ico"
	"github.com/nfnt/resize"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/net/html"
)

// maxSVGSide clamps the intermediate raster for SVGs with huge viewboxes.
const maxSVGSide = 1024

// decodeThumbnail turns raw logo bytes into a thumbnail fitting a size×size
// box. SVG detection is content-first: the bytes decide, the URL suffix only
// breaks the tie when the content is inconclusive.
func decodeThumbnail(logoURL string, data []byte, size int) (image.Image, error) {
	if isSVG(logoURL, data) {
		return rasterizeSVG(data, size)
	}
	img, err := decodeRaster(data)
	if err != nil {
		return nil, err
	}
	img = normalizeColorModel(img)
	return resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3), nil
}

// isSVG sniffs for an SVG document. Leading whitespace and XML declarations
// are skipped before checking for the root element.
func isSVG(logoURL string, data []byte) bool {
	head := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(head, []byte("<?xml")) {
		if i := bytes.IndexByte(head, '>'); i >= 0 {
			head = bytes.TrimLeft(head[i+1:], " \t\r\n")
		}
	}
	lower := bytes.ToLower(head)
	if bytes.HasPrefix(lower, []byte("<svg")) || bytes.HasPrefix(lower, []byte("<!doctype svg")) {
		return true
	}
	// Binary formats never start with markup; only fall back to the suffix
	// when the content did not already identify the format.
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return false
	}
	return NormalizedExt(logoURL) == ".svg"
}

// rasterizeSVG renders the vector to its natural viewbox, then scales the
// raster onto a fixed size×size square. Vector thumbnails are always exactly
// square; a non-square viewbox is stretched, not letterboxed.
func rasterizeSVG(data []byte, size int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("svg parse: %w", err)
	}
	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w, h = size, size
	}
	if w > maxSVGSide {
		w = maxSVGSide
	}
	if h > maxSVGSide {
		h = maxSVGSide
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	if w == size && h == size {
		return rgba, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), rgba, rgba.Bounds(), xdraw.Over, nil)
	return dst, nil
}

// decodeRaster decodes via the registered stdlib/x formats, with ICO as a
// fallback for the favicon-shaped logos the directory is full of.
func decodeRaster(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if ico, icoErr := icodec.Decode(bytes.NewReader(data)); icoErr == nil {
		return ico, nil
	}
	return nil, err
}

// normalizeColorModel converts CMYK images (some press-kit JPEGs) to RGBA so
// the scaler and downstream consumers see a plain color model.
func normalizeColorModel(img image.Image) image.Image {
	if img.ColorModel() != color.CMYKModel {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	stddraw.Draw(dst, b, img, b.Min, stddraw.Src)
	return dst
}

// looksLikeMarkup reports whether the bytes parse as an HTML document. It
// tokenizes the head of the body and looks for unmistakably-HTML elements;
// SVG tags do not count, so inline SVGs pass through.
func looksLikeMarkup(data []byte) bool {
	head := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if len(head) == 0 || head[0] != '<' {
		return false
	}
	tok := html.NewTokenizer(bytes.NewReader(head))
	for i := 0; i < 16; i++ {
		switch tok.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken, html.DoctypeToken:
			name, _ := tok.TagName()
			switch string(bytes.ToLower(name)) {
			case "html", "head", "body", "title", "meta", "script":
				return true
			case "svg":
				return false
			}
		}
	}
	return false
}
