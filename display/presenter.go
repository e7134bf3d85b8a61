// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/terrain"
	"github.com/gogpu/terrain/internal/cache"
)

// Presenter errors.
var (
	// ErrInvalidRenderer is returned when the draw context provides no
	// gpucontext.TextureCreator.
	ErrInvalidRenderer = errors.New("display: draw context has no texture creator")

	// ErrInvalidTexture is returned when a created texture cannot be drawn.
	ErrInvalidTexture = errors.New("display: texture does not implement gpucontext.Texture")

	// ErrPresenterClosed is returned by Present after Close.
	ErrPresenterClosed = errors.New("display: presenter closed")
)

// textureDestroyer matches the Destroy method of gogpu textures.
type textureDestroyer interface {
	Destroy()
}

// presenterTTL is how many frames a texture of an unused size survives.
const presenterTTL = 30

// Presenter draws result images into a window through a
// gpucontext.TextureDrawer. Textures are kept per output size, so a window
// that is resized back and forth reuses its textures.
type Presenter struct {
	Viewport Viewport

	textures *cache.FrameCache[image.Point, any]
	frame    *image.NRGBA
	closed   bool
}

// NewPresenter creates a presenter with a centered viewport.
func NewPresenter() *Presenter {
	return &Presenter{
		Viewport: NewViewport(),
		textures: cache.NewFrame(presenterTTL, func(_ image.Point, tex any) {
			if d, ok := tex.(textureDestroyer); ok {
				d.Destroy()
			}
		}),
	}
}

// Compose renders src through the viewport into a reusable outW x outH
// frame.
func (p *Presenter) Compose(src image.Image, outW, outH int) *image.NRGBA {
	r := image.Rect(0, 0, outW, outH)
	if p.frame == nil || p.frame.Rect != r {
		p.frame = image.NewNRGBA(r)
	}
	p.Viewport.Render(p.frame, src)
	return p.frame
}

// Present composes src at outW x outH and draws it at the origin of dc.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, src image.Image, outW, outH int) error {
	if p.closed {
		return ErrPresenterClosed
	}
	defer p.textures.Sweep()

	frame := p.Compose(src, outW, outH)
	key := image.Pt(outW, outH)

	tex, ok := p.textures.Get(key)
	if ok {
		if updater, isUpdater := tex.(gpucontext.TextureUpdater); isUpdater {
			if err := updater.UpdateData(frame.Pix); err != nil {
				return fmt.Errorf("display: texture update failed: %w", err)
			}
		} else {
			ok = false
		}
	}
	if !ok {
		creator := dc.TextureCreator()
		if creator == nil {
			return ErrInvalidRenderer
		}
		created, err := creator.NewTextureFromRGBA(outW, outH, frame.Pix)
		if err != nil {
			return fmt.Errorf("display: NewTextureFromRGBA failed: %w", err)
		}
		tex = created
		p.textures.Set(key, tex)
		terrain.Logger().Debug("display: texture created", "width", outW, "height", outH)
	}

	gpuTex, isTex := tex.(gpucontext.Texture)
	if !isTex {
		return ErrInvalidTexture
	}
	return dc.DrawTexture(gpuTex, 0, 0)
}

// Close destroys every texture the presenter created.
func (p *Presenter) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.textures.Clear()
	p.frame = nil
}
