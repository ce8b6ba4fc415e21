package backend

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// EncodePNG writes frame as a PNG scaled up by an integer factor with
// nearest neighbour sampling.
func EncodePNG(w io.Writer, frame *video.FrameBuffer, scale int) error {
	src := frame.ToImage()
	if scale <= 1 {
		return png.Encode(w, src)
	}

	dst := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx()*scale, src.Bounds().Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return png.Encode(w, dst)
}

// SavePNG writes frame to <dir>/<name>.png and returns the path.
func SavePNG(frame *video.FrameBuffer, dir, name string, scale int) (string, error) {
	path := filepath.Join(dir, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating snapshot: %w", err)
	}
	defer f.Close()

	if err := EncodePNG(f, frame, scale); err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	return path, f.Close()
}
