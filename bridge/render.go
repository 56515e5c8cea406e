package bridge

import "github.com/drummonds/pdfbridge/raster"

// Layer is one page of a multi-page render.
type Layer struct {
	Page   Handle
	Matrix raster.Matrix
	Clip   raster.Clip
}

// RenderPage draws page into the rectangle p of surface.
func (b *Bridge) RenderPage(page Handle, surface *raster.Surface, p raster.Placement, opts raster.Options) error {
	const op = "render page"
	b.mu.Lock()
	defer b.mu.Unlock()
	pg, err := b.page(op, page)
	if err != nil {
		return b.renderFailed(op, err)
	}
	f, err := b.compositor.Begin(surface, opts)
	if err != nil {
		return b.renderFailed(op, opError(op, page, err))
	}
	drawErr := f.DrawPage(pg.doc.doc, pg.page, p)
	f.Finish()
	if drawErr != nil {
		return b.renderFailed(op, opError(op, page, drawErr))
	}
	return nil
}

// RenderPageMatrix draws page through m, limited to clip.
func (b *Bridge) RenderPageMatrix(page Handle, surface *raster.Surface, m raster.Matrix, clip raster.Clip, opts raster.Options) error {
	const op = "render page matrix"
	b.mu.Lock()
	defer b.mu.Unlock()
	pg, err := b.page(op, page)
	if err != nil {
		return b.renderFailed(op, err)
	}
	f, err := b.compositor.Begin(surface, opts)
	if err != nil {
		return b.renderFailed(op, opError(op, page, err))
	}
	drawErr := f.DrawPageMatrix(pg.doc.doc, pg.page, m, clip)
	f.Finish()
	if drawErr != nil {
		return b.renderFailed(op, opError(op, page, drawErr))
	}
	return nil
}

// RenderPages draws layers in order onto one surface. The canvas is filled
// once, before the first layer. The first layer with an invalid handle
// stops the render; layers before it stay drawn and the error is a
// *RenderError.
func (b *Bridge) RenderPages(surface *raster.Surface, layers []Layer, opts raster.Options) error {
	const op = "render pages"
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.compositor.Begin(surface, opts)
	if err != nil {
		return b.renderFailed(op, opError(op, 0, err))
	}
	defer f.Finish()
	for i, l := range layers {
		pg, err := b.page(op, l.Page)
		if err == nil {
			err = f.DrawPageMatrix(pg.doc.doc, pg.page, l.Matrix, l.Clip)
		}
		if err != nil {
			return b.renderFailed(op, &RenderError{Index: i, Err: err})
		}
	}
	return nil
}

func (b *Bridge) renderFailed(op string, err error) error {
	b.logger.Warn("Render failed", "op", op, "error", err)
	return err
}
