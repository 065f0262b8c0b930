// Package gpu uploads produced textures into OpenGL. It must only run on
// the thread that owns the GL context; texture disposal deletes the GL
// handle synchronously.
package gpu

import (
	"fmt"
	"image"
	"log"

	"github.com/go-gl/gl/v4.1-core/gl"

	"terrastream/internal/texcache"
)

// Texture is a GPU-resident texture resource.
type Texture struct {
	ID     uint32
	Width  int
	Height int
}

// Dispose deletes the GL texture. Safe to call once; the cache guarantees
// single disposal.
func (t *Texture) Dispose() {
	if t.ID != 0 {
		gl.DeleteTextures(1, &t.ID)
		t.ID = 0
	}
}

// Uploader implements texgen.Uploader on top of OpenGL 4.1 core.
type Uploader struct{}

// Upload creates a 2D texture from RGBA pixels. The reported size is the
// CPU pixel footprint, which matches the GPU allocation for RGBA8.
func (Uploader) Upload(img *image.RGBA) (texcache.Resource, int64, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, 0, fmt.Errorf("gpu: empty image")
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(w),
		int32(h),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	checkError("texture upload")

	return &Texture{ID: tex, Width: w, Height: h}, int64(len(img.Pix)), nil
}

func checkError(label string) {
	if err := gl.GetError(); err != gl.NO_ERROR {
		log.Printf("gl error %s: 0x%x", label, err)
	}
}
