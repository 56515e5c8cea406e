package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/bmp"

	"github.com/drummonds/pdfbridge/bridge"
	"github.com/drummonds/pdfbridge/engine/pdfrenderer"
	"github.com/drummonds/pdfbridge/raster"
)

// RegisterRoutes adds the API routes to the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo

	// Document API routes
	e.POST("/api/documents", serverHandler.UploadDocument)
	e.GET("/api/documents", serverHandler.GetLatestDocuments)
	e.GET("/api/documents/:id", serverHandler.GetDocument)
	e.DELETE("/api/documents/:id", serverHandler.CloseDocument)
	e.GET("/api/documents/:id/outline", serverHandler.GetOutline)
	e.GET("/api/documents/:id/charcounts", serverHandler.GetCharCounts)
	e.GET("/api/documents/:id/save", serverHandler.SaveDocument)
	e.GET("/api/documents/:id/thumbnail", serverHandler.GetThumbnail)

	// Page API routes
	e.GET("/api/documents/:id/pages/:page", serverHandler.GetPage)
	e.GET("/api/documents/:id/pages/:page/render", serverHandler.RenderPage)
	e.GET("/api/documents/:id/pages/:page/text", serverHandler.GetPageText)
	e.GET("/api/documents/:id/pages/:page/search", serverHandler.SearchPage)

	// Admin API routes
	e.GET("/api/status", serverHandler.GetStatus)
}

func errorJSON(c echo.Context, err error) error {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		Logger.Error("API request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]interface{}{
		"error": err.Error(),
	})
}

// intParam parses an integer query parameter, returning def when absent
func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %s=%q: %w", name, v, bridge.ErrInvalidRange)
	}
	return n, nil
}

func boolParam(c echo.Context, name string, def bool) bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}

// UploadDocument opens an uploaded PDF
// @Summary Open a document
// @Description Opens the uploaded PDF and records it in the catalog
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param pdf formData file true "PDF file"
// @Param password formData string false "Document password"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Wrong password or not a PDF"
// @Failure 413 {object} map[string]interface{} "Upload too large"
// @Router /documents [post]
func (serverHandler *ServerHandler) UploadDocument(c echo.Context) error {
	request := c.Request()
	file, fileHeader, err := request.FormFile("pdf")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "missing pdf form file",
		})
	}
	defer file.Close()

	limit := int64(serverHandler.Config.UploadLimitMB) << 20
	if limit > 0 && fileHeader.Size > limit {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]interface{}{
			"error": fmt.Sprintf("upload of %d bytes exceeds %d MB", fileHeader.Size, serverHandler.Config.UploadLimitMB),
		})
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return errorJSON(c, err)
	}

	doc, err := serverHandler.openUpload(request.Context(), fileHeader.Filename, data, request.FormValue("password"))
	if err != nil {
		Logger.Warn("Unable to open uploaded document", "name", fileHeader.Filename, "error", err)
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":         doc.ULID.String(),
		"name":       doc.Name,
		"handle":     bridge.Handle(doc.Handle).String(),
		"page_count": doc.PageCount,
		"title":      doc.Title,
	})
}

// GetLatestDocuments lists the most recently opened documents
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param limit query int false "Number of documents" default(20)
// @Router /documents [get]
func (serverHandler *ServerHandler) GetLatestDocuments(c echo.Context) error {
	limit, err := intParam(c, "limit", 20)
	if err != nil || limit <= 0 {
		limit = 20
	}
	docs, err := serverHandler.DB.GetNewestDocuments(c.Request().Context(), limit)
	if err != nil {
		return errorJSON(c, err)
	}
	entries := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, map[string]interface{}{
			"id":          doc.ULID.String(),
			"name":        doc.Name,
			"page_count":  doc.PageCount,
			"title":       doc.Title,
			"open":        doc.Open(),
			"opened_at":   doc.OpenedAt,
			"last_access": doc.LastAccess,
		})
	}
	return c.JSON(http.StatusOK, entries)
}

// GetDocument returns the metadata of an open document
// @Summary Document metadata
// @Tags Documents
// @Produce json
// @Param id path string true "Document ULID"
// @Router /documents/{id} [get]
func (serverHandler *ServerHandler) GetDocument(c echo.Context) error {
	ctx := c.Request().Context()
	od, err := serverHandler.lookup(ctx, c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	meta, err := serverHandler.Bridge.Metadata(od.handle)
	if err != nil {
		return errorJSON(c, err)
	}
	stats, err := serverHandler.DB.GetPageStats(ctx, od.id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":       od.id.String(),
		"name":     od.name,
		"handle":   od.handle.String(),
		"metadata": meta,
		"pages":    stats,
	})
}

// CloseDocument closes a document and its pages
// @Summary Close a document
// @Tags Documents
// @Param id path string true "Document ULID"
// @Router /documents/{id} [delete]
func (serverHandler *ServerHandler) CloseDocument(c echo.Context) error {
	ctx := c.Request().Context()
	od, err := serverHandler.lookup(ctx, c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if err := serverHandler.closeDocument(ctx, od.id); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetOutline returns the bookmark tree
// @Summary Document outline
// @Tags Documents
// @Produce json
// @Param id path string true "Document ULID"
// @Router /documents/{id}/outline [get]
func (serverHandler *ServerHandler) GetOutline(c echo.Context) error {
	od, err := serverHandler.lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	toc, err := serverHandler.Bridge.TableOfContents(od.handle)
	if err != nil {
		return errorJSON(c, err)
	}
	if toc == nil {
		toc = []bridge.OutlineEntry{}
	}
	return c.JSON(http.StatusOK, toc)
}

// GetCharCounts returns the character count of every page. Pages that
// fail report -1 and are listed under errors.
func (serverHandler *ServerHandler) GetCharCounts(c echo.Context) error {
	od, err := serverHandler.lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	counts, err := serverHandler.Bridge.PageCharCounts(od.handle)
	var merr *multierror.Error
	if err != nil && !errors.As(err, &merr) {
		return errorJSON(c, err)
	}
	failures := []string{}
	if merr != nil {
		for _, e := range merr.Errors {
			failures = append(failures, e.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"counts": counts,
		"errors": failures,
	})
}

// SaveDocument streams a copy of the document
// @Summary Save a copy
// @Tags Documents
// @Produce application/pdf
// @Param id path string true "Document ULID"
// @Param mode query string false "full, incremental or nosecurity"
// @Router /documents/{id}/save [get]
func (serverHandler *ServerHandler) SaveDocument(c echo.Context) error {
	mode, err := bridge.ParseSaveMode(c.QueryParam("mode"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}
	od, err := serverHandler.lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	var buf bytes.Buffer
	if err := serverHandler.Bridge.SaveAsCopy(od.handle, &buf, mode); err != nil {
		return errorJSON(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", od.name))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

// withPage resolves the document and loads the page named in the path,
// closing it again once fn returns
func (serverHandler *ServerHandler) withPage(c echo.Context, fn func(od *openDocument, page bridge.Handle) error) error {
	od, err := serverHandler.lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	index, err := strconv.Atoi(c.Param("page"))
	if err != nil || index < 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("invalid page index %q", c.Param("page")),
		})
	}
	page, err := serverHandler.Bridge.LoadPage(od.handle, index)
	if err != nil {
		return errorJSON(c, err)
	}
	defer serverHandler.Bridge.ClosePage(page)
	return fn(od, page)
}

// GetPage returns size, rotation, boxes and links of a page
// @Summary Page information
// @Tags Pages
// @Produce json
// @Param id path string true "Document ULID"
// @Param page path int true "Page index"
// @Router /documents/{id}/pages/{page} [get]
func (serverHandler *ServerHandler) GetPage(c echo.Context) error {
	return serverHandler.withPage(c, func(od *openDocument, page bridge.Handle) error {
		size, err := serverHandler.Bridge.PageSize(page)
		if err != nil {
			return errorJSON(c, err)
		}
		rotation, err := serverHandler.Bridge.PageRotation(page)
		if err != nil {
			return errorJSON(c, err)
		}
		bbox, err := serverHandler.Bridge.PageBoundingBox(page)
		if err != nil {
			return errorJSON(c, err)
		}
		links, err := serverHandler.Bridge.PageLinks(page)
		if err != nil {
			return errorJSON(c, err)
		}
		if links == nil {
			links = []bridge.Link{}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"size":         size,
			"rotation":     rotation,
			"bounding_box": bbox,
			"links":        links,
		})
	})
}

// RenderPage rasterizes a page
// @Summary Render a page
// @Tags Pages
// @Produce image/png
// @Param id path string true "Document ULID"
// @Param page path int true "Page index"
// @Param width query int false "Output width"
// @Param height query int false "Output height"
// @Param dpi query int false "Resolution when no size is given"
// @Param annot query bool false "Draw annotations and form fields"
// @Param format query string false "png, bmp or rgb565"
// @Router /documents/{id}/pages/{page}/render [get]
func (serverHandler *ServerHandler) RenderPage(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "png"
	}
	surfaceFormat := raster.FormatRGBA8888
	switch format {
	case "png", "bmp":
	case "rgb565":
		surfaceFormat = raster.FormatRGB565
	default:
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("unknown format %q", format),
		})
	}
	width, err := intParam(c, "width", 0)
	if err != nil {
		return errorJSON(c, err)
	}
	height, err := intParam(c, "height", 0)
	if err != nil {
		return errorJSON(c, err)
	}
	dpi, err := intParam(c, "dpi", serverHandler.Config.DPI)
	if err != nil {
		return errorJSON(c, err)
	}
	opts := serverHandler.Config.Options()
	opts.Annotations = boolParam(c, "annot", opts.Annotations)

	return serverHandler.withPage(c, func(od *openDocument, page bridge.Handle) error {
		size, err := serverHandler.Bridge.PageSize(page)
		if err != nil {
			return errorJSON(c, err)
		}
		w, h, err := renderSize(size, width, height, dpi)
		if err != nil {
			return errorJSON(c, err)
		}
		surface := raster.NewSurface(w, h, surfaceFormat)
		if err := serverHandler.Bridge.RenderPage(page, surface, fitPage(size, w, h), opts); err != nil {
			return errorJSON(c, err)
		}

		if surfaceFormat == raster.FormatRGB565 {
			header := c.Response().Header()
			header.Set("X-Width", strconv.Itoa(surface.Width))
			header.Set("X-Height", strconv.Itoa(surface.Height))
			header.Set("X-Stride", strconv.Itoa(surface.Stride))
			return c.Blob(http.StatusOK, echo.MIMEOctetStream, surface.Pix)
		}
		img, err := surface.Image()
		if err != nil {
			return errorJSON(c, err)
		}
		var buf bytes.Buffer
		contentType := "image/png"
		if format == "bmp" {
			contentType = "image/bmp"
			err = bmp.Encode(&buf, img)
		} else {
			err = png.Encode(&buf, img)
		}
		if err != nil {
			return errorJSON(c, err)
		}
		return c.Blob(http.StatusOK, contentType, buf.Bytes())
	})
}

// GetPageText returns the text of a page
// @Summary Page text
// @Tags Pages
// @Produce json
// @Router /documents/{id}/pages/{page}/text [get]
func (serverHandler *ServerHandler) GetPageText(c echo.Context) error {
	return serverHandler.withPage(c, func(od *openDocument, page bridge.Handle) error {
		text, err := serverHandler.Bridge.LoadTextPage(page)
		if err != nil {
			return errorJSON(c, err)
		}
		defer serverHandler.Bridge.CloseTextPage(text)
		count, err := serverHandler.Bridge.CountChars(text)
		if err != nil {
			return errorJSON(c, err)
		}
		all, err := serverHandler.Bridge.AllText(text)
		if err != nil {
			return errorJSON(c, err)
		}
		links, err := serverHandler.webLinks(text)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"char_count": count,
			"text":       all,
			"web_links":  links,
		})
	})
}

func (serverHandler *ServerHandler) webLinks(text bridge.Handle) ([]map[string]interface{}, error) {
	links, err := serverHandler.Bridge.LoadWebLinks(text)
	if err != nil {
		return nil, err
	}
	defer serverHandler.Bridge.CloseWebLinks(links)
	n, err := serverHandler.Bridge.CountWebLinks(links)
	if err != nil {
		return nil, err
	}
	result := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		url, err := serverHandler.Bridge.WebLinkURL(links, i)
		if err != nil {
			return nil, err
		}
		rects, err := serverHandler.Bridge.WebLinkRects(links, i)
		if err != nil {
			return nil, err
		}
		result = append(result, map[string]interface{}{"url": url, "rects": rects})
	}
	return result, nil
}

// SearchPage finds a query in the text of a page
// @Summary Search a page
// @Tags Pages
// @Produce json
// @Param q query string true "Search text"
// @Param case query bool false "Match case"
// @Param word query bool false "Match whole words"
// @Router /documents/{id}/pages/{page}/search [get]
func (serverHandler *ServerHandler) SearchPage(c echo.Context) error {
	flags := bridge.FindFlags{
		MatchCase:      boolParam(c, "case", false),
		MatchWholeWord: boolParam(c, "word", false),
	}
	query := c.QueryParam("q")
	return serverHandler.withPage(c, func(od *openDocument, page bridge.Handle) error {
		text, err := serverHandler.Bridge.LoadTextPage(page)
		if err != nil {
			return errorJSON(c, err)
		}
		defer serverHandler.Bridge.CloseTextPage(text)
		find, err := serverHandler.Bridge.FindStart(text, query, flags, 0)
		if err != nil {
			return errorJSON(c, err)
		}
		defer serverHandler.Bridge.CloseFind(find)
		matches, err := serverHandler.Bridge.FindAll(find)
		if err != nil {
			return errorJSON(c, err)
		}
		if matches == nil {
			matches = []bridge.Match{}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"query":   query,
			"matches": matches,
		})
	})
}

// GetThumbnail renders a scaled preview of a page with the configured backend
// @Summary Page thumbnail
// @Tags Documents
// @Produce image/png
// @Param page query int false "Page index" default(0)
// @Router /documents/{id}/thumbnail [get]
func (serverHandler *ServerHandler) GetThumbnail(c echo.Context) error {
	index, err := intParam(c, "page", 0)
	if err != nil {
		return errorJSON(c, err)
	}
	width, err := intParam(c, "width", serverHandler.Config.ThumbnailWidth)
	if err != nil {
		return errorJSON(c, err)
	}
	if width <= 0 || width > maxRenderSide {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("invalid thumbnail width %d", width),
		})
	}
	od, err := serverHandler.lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}

	var img image.Image
	if _, native := serverHandler.Renderer.(*pdfrenderer.BridgeRenderer); native {
		// the open handle already carries the password
		var page bridge.Handle
		page, err = serverHandler.Bridge.LoadPage(od.handle, index)
		if err != nil {
			return errorJSON(c, err)
		}
		img, err = pdfrenderer.RenderHandle(serverHandler.Bridge, page, serverHandler.Config.DPI, serverHandler.Config.Options())
		serverHandler.Bridge.ClosePage(page)
		if err == nil {
			img = pdfrenderer.Scale(img, width)
		}
	} else {
		img, err = pdfrenderer.Thumbnail(serverHandler.Renderer, od.data, index, serverHandler.Config.DPI, width)
	}
	if err != nil {
		return errorJSON(c, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errorJSON(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GetStatus reports live handle counts
// @Summary Bridge status
// @Tags Admin
// @Produce json
// @Router /status [get]
func (serverHandler *ServerHandler) GetStatus(c echo.Context) error {
	serverHandler.mu.Lock()
	open := len(serverHandler.docs)
	serverHandler.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"open_documents":  open,
		"handles":         serverHandler.Bridge.Stats(),
		"preview_backend": serverHandler.Config.PreviewBackend,
	})
}
