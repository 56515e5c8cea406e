package native

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultLibraryNames is searched when Load is called without paths.
var DefaultLibraryNames = []string{
	"libpdfium.so",
	"/usr/lib/libreoffice/program/libpdfiumlo.so",
	"libpdfium.dylib",
}

// formFillWords is large enough for every FPDF_FORMFILLINFO version; the
// engine only reads the callbacks its version field announces.
const formFillWords = 64

// Library is an Engine backed by a dynamically loaded libpdfium. PDFium is
// not thread safe: callers serialize access.
type Library struct {
	handle uintptr
	path   string

	mu      sync.Mutex
	docs    map[Document]*pinnedDocument
	bitmaps map[Bitmap]*runtime.Pinner
	forms   map[FormHandle]*pinnedForm

	fpdfInitLibrary    func()
	fpdfDestroyLibrary func()
	fpdfGetLastError   func() uint64

	fpdfLoadMemDocument64  func(data unsafe.Pointer, size uintptr, password unsafe.Pointer) uintptr
	fpdfLoadCustomDocument func(access unsafe.Pointer, password unsafe.Pointer) uintptr
	fpdfCloseDocument      func(doc uintptr)
	fpdfGetPageCount       func(doc uintptr) int32
	fpdfGetPageSizeByIndex func(doc uintptr, index int32, width, height unsafe.Pointer) int32
	fpdfSaveAsCopy         func(doc uintptr, fileWrite unsafe.Pointer, flags uint64) int32
	fpdfGetMetaText        func(doc uintptr, tag string, buf unsafe.Pointer, buflen uint64) uint64

	fpdfBookmarkGetFirstChild  func(doc, bookmark uintptr) uintptr
	fpdfBookmarkGetNextSibling func(doc, bookmark uintptr) uintptr
	fpdfBookmarkGetTitle       func(bookmark uintptr, buf unsafe.Pointer, buflen uint64) uint64
	fpdfBookmarkGetDest        func(doc, bookmark uintptr) uintptr
	fpdfDestGetDestPageIndex   func(doc, dest uintptr) int32

	fpdfLoadPage           func(doc uintptr, index int32) uintptr
	fpdfClosePage          func(page uintptr)
	fpdfPageDelete         func(doc uintptr, index int32)
	fpdfGetPageWidth       func(page uintptr) float64
	fpdfGetPageHeight      func(page uintptr) float64
	fpdfPageGetRotation    func(page uintptr) int32
	fpdfPageGetMediaBox    func(page uintptr, left, bottom, right, top unsafe.Pointer) int32
	fpdfPageGetCropBox     func(page uintptr, left, bottom, right, top unsafe.Pointer) int32
	fpdfPageGetBleedBox    func(page uintptr, left, bottom, right, top unsafe.Pointer) int32
	fpdfPageGetTrimBox     func(page uintptr, left, bottom, right, top unsafe.Pointer) int32
	fpdfPageGetArtBox      func(page uintptr, left, bottom, right, top unsafe.Pointer) int32
	fpdfGetPageBoundingBox func(page uintptr, rect unsafe.Pointer) int32
	fpdfPageToDevice       func(page uintptr, startX, startY, sizeX, sizeY, rotate int32, pageX, pageY float64, deviceX, deviceY unsafe.Pointer) int32
	fpdfDeviceToPage       func(page uintptr, startX, startY, sizeX, sizeY, rotate, deviceX, deviceY int32, pageX, pageY unsafe.Pointer) int32

	fpdfLinkEnumerate      func(page uintptr, startPos, link unsafe.Pointer) int32
	fpdfLinkGetLinkAtPoint func(page uintptr, x, y float64) uintptr
	fpdfLinkGetDest        func(doc, link uintptr) uintptr
	fpdfLinkGetAction      func(link uintptr) uintptr
	fpdfActionGetURIPath   func(doc, action uintptr, buf unsafe.Pointer, buflen uint64) uint64
	fpdfLinkGetAnnotRect   func(link uintptr, rect unsafe.Pointer) int32

	fpdfTextLoadPage          func(page uintptr) uintptr
	fpdfTextClosePage         func(text uintptr)
	fpdfTextCountChars        func(text uintptr) int32
	fpdfTextGetUnicode        func(text uintptr, index int32) uint32
	fpdfTextGetCharBox        func(text uintptr, index int32, left, right, bottom, top unsafe.Pointer) int32
	fpdfTextGetLooseCharBox   func(text uintptr, index int32, rect unsafe.Pointer) int32
	fpdfTextGetCharIndexAtPos func(text uintptr, x, y, xTolerance, yTolerance float64) int32
	fpdfTextGetText           func(text uintptr, start, count int32, buf unsafe.Pointer) int32
	fpdfTextGetBoundedText    func(text uintptr, left, top, right, bottom float64, buf unsafe.Pointer, buflen int32) int32
	fpdfTextCountRects        func(text uintptr, start, count int32) int32
	fpdfTextGetRect           func(text uintptr, index int32, left, top, right, bottom unsafe.Pointer) int32
	fpdfTextGetFontSize       func(text uintptr, index int32) float64

	fpdfTextFindStart         func(text uintptr, query unsafe.Pointer, flags uint64, start int32) uintptr
	fpdfTextFindNext          func(search uintptr) int32
	fpdfTextFindPrev          func(search uintptr) int32
	fpdfTextGetSchResultIndex func(search uintptr) int32
	fpdfTextGetSchCount       func(search uintptr) int32
	fpdfTextFindClose         func(search uintptr)

	fpdfLinkLoadWebLinks  func(text uintptr) uintptr
	fpdfLinkCountWebLinks func(links uintptr) int32
	fpdfLinkGetURL        func(links uintptr, index int32, buf unsafe.Pointer, buflen int32) int32
	fpdfLinkCountRects    func(links uintptr, index int32) int32
	fpdfLinkGetRect       func(links uintptr, linkIndex, rectIndex int32, left, top, right, bottom unsafe.Pointer) int32
	fpdfLinkGetTextRange  func(links uintptr, index int32, start, count unsafe.Pointer) int32
	fpdfLinkCloseWebLinks func(links uintptr)

	fpdfBitmapCreateEx             func(width, height, format int32, first unsafe.Pointer, stride int32) uintptr
	fpdfBitmapFillRect             func(bitmap uintptr, left, top, width, height int32, color uint64) int32
	fpdfBitmapDestroy              func(bitmap uintptr)
	fpdfRenderPageBitmap           func(bitmap, page uintptr, startX, startY, sizeX, sizeY, rotate, flags int32)
	fpdfRenderPageBitmapWithMatrix func(bitmap, page uintptr, matrix, clip unsafe.Pointer, flags int32)

	fpdfdocInitFormFillEnvironment func(doc uintptr, info unsafe.Pointer) uintptr
	fpdfdocExitFormFillEnvironment func(form uintptr)
	fpdfFFLDraw                    func(form, bitmap, page uintptr, startX, startY, sizeX, sizeY, rotate, flags int32)
}

type pinnedDocument struct {
	pinner   runtime.Pinner
	accessID uintptr
}

type pinnedForm struct {
	pinner runtime.Pinner
	info   *[formFillWords]uintptr
}

var _ Engine = (*Library)(nil)

// Load opens the first libpdfium found in paths (DefaultLibraryNames when
// empty) and binds every symbol the bridge uses.
func Load(paths ...string) (*Library, error) {
	if len(paths) == 0 {
		paths = DefaultLibraryNames
	}
	var errs error
	for _, path := range paths {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		lib := &Library{
			handle:  handle,
			path:    path,
			docs:    make(map[Document]*pinnedDocument),
			bitmaps: make(map[Bitmap]*runtime.Pinner),
			forms:   make(map[FormHandle]*pinnedForm),
		}
		if err := lib.bind(); err != nil {
			purego.Dlclose(handle)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		initCallbacks()
		return lib, nil
	}
	return nil, fmt.Errorf("native: cannot load pdfium: %w", errs)
}

// Path is the library file that was opened.
func (l *Library) Path() string { return l.path }

// Close unloads the shared library. Every document must be closed first.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}

func (l *Library) bind() (err error) {
	// RegisterLibFunc panics on a missing symbol.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bind symbol: %v", r)
		}
	}()
	symbols := []struct {
		fn   any
		name string
	}{
		{&l.fpdfInitLibrary, "FPDF_InitLibrary"},
		{&l.fpdfDestroyLibrary, "FPDF_DestroyLibrary"},
		{&l.fpdfGetLastError, "FPDF_GetLastError"},
		{&l.fpdfLoadMemDocument64, "FPDF_LoadMemDocument64"},
		{&l.fpdfLoadCustomDocument, "FPDF_LoadCustomDocument"},
		{&l.fpdfCloseDocument, "FPDF_CloseDocument"},
		{&l.fpdfGetPageCount, "FPDF_GetPageCount"},
		{&l.fpdfGetPageSizeByIndex, "FPDF_GetPageSizeByIndex"},
		{&l.fpdfSaveAsCopy, "FPDF_SaveAsCopy"},
		{&l.fpdfGetMetaText, "FPDF_GetMetaText"},
		{&l.fpdfBookmarkGetFirstChild, "FPDFBookmark_GetFirstChild"},
		{&l.fpdfBookmarkGetNextSibling, "FPDFBookmark_GetNextSibling"},
		{&l.fpdfBookmarkGetTitle, "FPDFBookmark_GetTitle"},
		{&l.fpdfBookmarkGetDest, "FPDFBookmark_GetDest"},
		{&l.fpdfDestGetDestPageIndex, "FPDFDest_GetDestPageIndex"},
		{&l.fpdfLoadPage, "FPDF_LoadPage"},
		{&l.fpdfClosePage, "FPDF_ClosePage"},
		{&l.fpdfPageDelete, "FPDFPage_Delete"},
		{&l.fpdfGetPageWidth, "FPDF_GetPageWidth"},
		{&l.fpdfGetPageHeight, "FPDF_GetPageHeight"},
		{&l.fpdfPageGetRotation, "FPDFPage_GetRotation"},
		{&l.fpdfPageGetMediaBox, "FPDFPage_GetMediaBox"},
		{&l.fpdfPageGetCropBox, "FPDFPage_GetCropBox"},
		{&l.fpdfPageGetBleedBox, "FPDFPage_GetBleedBox"},
		{&l.fpdfPageGetTrimBox, "FPDFPage_GetTrimBox"},
		{&l.fpdfPageGetArtBox, "FPDFPage_GetArtBox"},
		{&l.fpdfGetPageBoundingBox, "FPDF_GetPageBoundingBox"},
		{&l.fpdfPageToDevice, "FPDF_PageToDevice"},
		{&l.fpdfDeviceToPage, "FPDF_DeviceToPage"},
		{&l.fpdfLinkEnumerate, "FPDFLink_Enumerate"},
		{&l.fpdfLinkGetLinkAtPoint, "FPDFLink_GetLinkAtPoint"},
		{&l.fpdfLinkGetDest, "FPDFLink_GetDest"},
		{&l.fpdfLinkGetAction, "FPDFLink_GetAction"},
		{&l.fpdfActionGetURIPath, "FPDFAction_GetURIPath"},
		{&l.fpdfLinkGetAnnotRect, "FPDFLink_GetAnnotRect"},
		{&l.fpdfTextLoadPage, "FPDFText_LoadPage"},
		{&l.fpdfTextClosePage, "FPDFText_ClosePage"},
		{&l.fpdfTextCountChars, "FPDFText_CountChars"},
		{&l.fpdfTextGetUnicode, "FPDFText_GetUnicode"},
		{&l.fpdfTextGetCharBox, "FPDFText_GetCharBox"},
		{&l.fpdfTextGetLooseCharBox, "FPDFText_GetLooseCharBox"},
		{&l.fpdfTextGetCharIndexAtPos, "FPDFText_GetCharIndexAtPos"},
		{&l.fpdfTextGetText, "FPDFText_GetText"},
		{&l.fpdfTextGetBoundedText, "FPDFText_GetBoundedText"},
		{&l.fpdfTextCountRects, "FPDFText_CountRects"},
		{&l.fpdfTextGetRect, "FPDFText_GetRect"},
		{&l.fpdfTextGetFontSize, "FPDFText_GetFontSize"},
		{&l.fpdfTextFindStart, "FPDFText_FindStart"},
		{&l.fpdfTextFindNext, "FPDFText_FindNext"},
		{&l.fpdfTextFindPrev, "FPDFText_FindPrev"},
		{&l.fpdfTextGetSchResultIndex, "FPDFText_GetSchResultIndex"},
		{&l.fpdfTextGetSchCount, "FPDFText_GetSchCount"},
		{&l.fpdfTextFindClose, "FPDFText_FindClose"},
		{&l.fpdfLinkLoadWebLinks, "FPDFLink_LoadWebLinks"},
		{&l.fpdfLinkCountWebLinks, "FPDFLink_CountWebLinks"},
		{&l.fpdfLinkGetURL, "FPDFLink_GetURL"},
		{&l.fpdfLinkCountRects, "FPDFLink_CountRects"},
		{&l.fpdfLinkGetRect, "FPDFLink_GetRect"},
		{&l.fpdfLinkGetTextRange, "FPDFLink_GetTextRange"},
		{&l.fpdfLinkCloseWebLinks, "FPDFLink_CloseWebLinks"},
		{&l.fpdfBitmapCreateEx, "FPDFBitmap_CreateEx"},
		{&l.fpdfBitmapFillRect, "FPDFBitmap_FillRect"},
		{&l.fpdfBitmapDestroy, "FPDFBitmap_Destroy"},
		{&l.fpdfRenderPageBitmap, "FPDF_RenderPageBitmap"},
		{&l.fpdfRenderPageBitmapWithMatrix, "FPDF_RenderPageBitmapWithMatrix"},
		{&l.fpdfdocInitFormFillEnvironment, "FPDFDOC_InitFormFillEnvironment"},
		{&l.fpdfdocExitFormFillEnvironment, "FPDFDOC_ExitFormFillEnvironment"},
		{&l.fpdfFFLDraw, "FPDF_FFLDraw"},
	}
	for _, s := range symbols {
		purego.RegisterLibFunc(s.fn, l.handle, s.name)
	}
	return nil
}

func (l *Library) InitLibrary()    { l.fpdfInitLibrary() }
func (l *Library) DestroyLibrary() { l.fpdfDestroyLibrary() }

func (l *Library) GetLastError() ErrorCode { return ErrorCode(l.fpdfGetLastError()) }

func (l *Library) LoadMemDocument(data []byte, password string) Document {
	if len(data) == 0 {
		return 0
	}
	pw := cString(password)
	pinned := &pinnedDocument{}
	pinned.pinner.Pin(&data[0])
	doc := Document(l.fpdfLoadMemDocument64(unsafe.Pointer(&data[0]), uintptr(len(data)), bytesPtr(pw)))
	runtime.KeepAlive(pw)
	if doc == 0 {
		pinned.pinner.Unpin()
		return 0
	}
	l.mu.Lock()
	l.docs[doc] = pinned
	l.mu.Unlock()
	return doc
}

func (l *Library) LoadCustomDocument(access *FileAccess, password string) Document {
	if access == nil {
		return 0
	}
	pw := cString(password)
	id := register(access)
	fa := &fileAccess{fileLen: access.Length, getBlock: getBlockCallback, param: id}
	pinned := &pinnedDocument{accessID: id}
	pinned.pinner.Pin(fa)
	doc := Document(l.fpdfLoadCustomDocument(unsafe.Pointer(fa), bytesPtr(pw)))
	runtime.KeepAlive(pw)
	if doc == 0 {
		pinned.pinner.Unpin()
		unregister(id)
		return 0
	}
	l.mu.Lock()
	l.docs[doc] = pinned
	l.mu.Unlock()
	return doc
}

func (l *Library) CloseDocument(doc Document) {
	l.fpdfCloseDocument(uintptr(doc))
	l.mu.Lock()
	pinned := l.docs[doc]
	delete(l.docs, doc)
	l.mu.Unlock()
	if pinned != nil {
		pinned.pinner.Unpin()
		if pinned.accessID != 0 {
			unregister(pinned.accessID)
		}
	}
}

func (l *Library) GetPageCount(doc Document) int { return int(l.fpdfGetPageCount(uintptr(doc))) }

func (l *Library) GetPageSizeByIndex(doc Document, index int) (float64, float64, bool) {
	var width, height float64
	ok := l.fpdfGetPageSizeByIndex(uintptr(doc), int32(index), unsafe.Pointer(&width), unsafe.Pointer(&height)) != 0
	return width, height, ok
}

func (l *Library) SaveAsCopy(doc Document, write func(block []byte) bool, flags int) bool {
	id := register(write)
	defer unregister(id)
	fw := &fileWrite{version: 1, writeBlock: writeBlockCallback, id: id}
	ok := l.fpdfSaveAsCopy(uintptr(doc), unsafe.Pointer(fw), uint64(flags)) != 0
	runtime.KeepAlive(fw)
	return ok
}

func (l *Library) GetMetaText(doc Document, tag string, buf []byte) int {
	return int(l.fpdfGetMetaText(uintptr(doc), tag, bytesPtr(buf), uint64(len(buf))))
}

func (l *Library) BookmarkFirstChild(doc Document, parent Bookmark) Bookmark {
	return Bookmark(l.fpdfBookmarkGetFirstChild(uintptr(doc), uintptr(parent)))
}

func (l *Library) BookmarkNextSibling(doc Document, bookmark Bookmark) Bookmark {
	return Bookmark(l.fpdfBookmarkGetNextSibling(uintptr(doc), uintptr(bookmark)))
}

func (l *Library) BookmarkGetTitle(bookmark Bookmark, buf []byte) int {
	return int(l.fpdfBookmarkGetTitle(uintptr(bookmark), bytesPtr(buf), uint64(len(buf))))
}

func (l *Library) BookmarkGetDest(doc Document, bookmark Bookmark) Dest {
	return Dest(l.fpdfBookmarkGetDest(uintptr(doc), uintptr(bookmark)))
}

func (l *Library) DestGetPageIndex(doc Document, dest Dest) int {
	return int(l.fpdfDestGetDestPageIndex(uintptr(doc), uintptr(dest)))
}

func (l *Library) LoadPage(doc Document, index int) Page {
	return Page(l.fpdfLoadPage(uintptr(doc), int32(index)))
}

func (l *Library) ClosePage(page Page) { l.fpdfClosePage(uintptr(page)) }

func (l *Library) DeletePage(doc Document, index int) { l.fpdfPageDelete(uintptr(doc), int32(index)) }

func (l *Library) GetPageWidth(page Page) float64  { return l.fpdfGetPageWidth(uintptr(page)) }
func (l *Library) GetPageHeight(page Page) float64 { return l.fpdfGetPageHeight(uintptr(page)) }
func (l *Library) GetPageRotation(page Page) int   { return int(l.fpdfPageGetRotation(uintptr(page))) }

func (l *Library) GetPageBox(page Page, box Box) (RectF, bool) {
	var get func(uintptr, unsafe.Pointer, unsafe.Pointer, unsafe.Pointer, unsafe.Pointer) int32
	switch box {
	case BoxMedia:
		get = l.fpdfPageGetMediaBox
	case BoxCrop:
		get = l.fpdfPageGetCropBox
	case BoxBleed:
		get = l.fpdfPageGetBleedBox
	case BoxTrim:
		get = l.fpdfPageGetTrimBox
	case BoxArt:
		get = l.fpdfPageGetArtBox
	default:
		return RectF{}, false
	}
	var r RectF
	ok := get(uintptr(page), unsafe.Pointer(&r.Left), unsafe.Pointer(&r.Bottom), unsafe.Pointer(&r.Right), unsafe.Pointer(&r.Top)) != 0
	return r, ok
}

func (l *Library) GetPageBoundingBox(page Page) (RectF, bool) {
	var r RectF
	ok := l.fpdfGetPageBoundingBox(uintptr(page), unsafe.Pointer(&r)) != 0
	return r, ok
}

func (l *Library) PageToDevice(page Page, startX, startY, sizeX, sizeY, rotate int, pageX, pageY float64) (int, int, bool) {
	var x, y int32
	ok := l.fpdfPageToDevice(uintptr(page), int32(startX), int32(startY), int32(sizeX), int32(sizeY), int32(rotate),
		pageX, pageY, unsafe.Pointer(&x), unsafe.Pointer(&y)) != 0
	return int(x), int(y), ok
}

func (l *Library) DeviceToPage(page Page, startX, startY, sizeX, sizeY, rotate, deviceX, deviceY int) (float64, float64, bool) {
	var x, y float64
	ok := l.fpdfDeviceToPage(uintptr(page), int32(startX), int32(startY), int32(sizeX), int32(sizeY), int32(rotate),
		int32(deviceX), int32(deviceY), unsafe.Pointer(&x), unsafe.Pointer(&y)) != 0
	return x, y, ok
}

func (l *Library) LinkEnumerate(page Page, pos *int) (Link, bool) {
	start := int32(*pos)
	var link uintptr
	ok := l.fpdfLinkEnumerate(uintptr(page), unsafe.Pointer(&start), unsafe.Pointer(&link)) != 0
	*pos = int(start)
	return Link(link), ok
}

func (l *Library) LinkAtPoint(page Page, x, y float64) Link {
	return Link(l.fpdfLinkGetLinkAtPoint(uintptr(page), x, y))
}

func (l *Library) LinkGetDest(doc Document, link Link) Dest {
	return Dest(l.fpdfLinkGetDest(uintptr(doc), uintptr(link)))
}

func (l *Library) LinkGetAction(link Link) Action { return Action(l.fpdfLinkGetAction(uintptr(link))) }

func (l *Library) ActionGetURIPath(doc Document, action Action, buf []byte) int {
	return int(l.fpdfActionGetURIPath(uintptr(doc), uintptr(action), bytesPtr(buf), uint64(len(buf))))
}

func (l *Library) LinkGetAnnotRect(link Link) (RectF, bool) {
	var r RectF
	ok := l.fpdfLinkGetAnnotRect(uintptr(link), unsafe.Pointer(&r)) != 0
	return r, ok
}

func (l *Library) TextLoadPage(page Page) TextPage { return TextPage(l.fpdfTextLoadPage(uintptr(page))) }
func (l *Library) TextClosePage(text TextPage)      { l.fpdfTextClosePage(uintptr(text)) }
func (l *Library) TextCountChars(text TextPage) int  { return int(l.fpdfTextCountChars(uintptr(text))) }

func (l *Library) TextGetUnicode(text TextPage, index int) rune {
	return rune(l.fpdfTextGetUnicode(uintptr(text), int32(index)))
}

func (l *Library) TextGetCharBox(text TextPage, index int) (left, right, bottom, top float64, ok bool) {
	ok = l.fpdfTextGetCharBox(uintptr(text), int32(index),
		unsafe.Pointer(&left), unsafe.Pointer(&right), unsafe.Pointer(&bottom), unsafe.Pointer(&top)) != 0
	return
}

func (l *Library) TextGetLooseCharBox(text TextPage, index int) (RectF, bool) {
	var r RectF
	ok := l.fpdfTextGetLooseCharBox(uintptr(text), int32(index), unsafe.Pointer(&r)) != 0
	return r, ok
}

func (l *Library) TextGetCharIndexAtPos(text TextPage, x, y, xTolerance, yTolerance float64) int {
	return int(l.fpdfTextGetCharIndexAtPos(uintptr(text), x, y, xTolerance, yTolerance))
}

func (l *Library) TextGetText(text TextPage, start, count int, buf []uint16) int {
	if len(buf) == 0 {
		return 0
	}
	// The engine writes count units plus a terminator.
	if count > len(buf)-1 {
		count = len(buf) - 1
	}
	return int(l.fpdfTextGetText(uintptr(text), int32(start), int32(count), unitsPtr(buf)))
}

func (l *Library) TextGetBoundedText(text TextPage, left, top, right, bottom float64, buf []uint16) int {
	return int(l.fpdfTextGetBoundedText(uintptr(text), left, top, right, bottom, unitsPtr(buf), int32(len(buf))))
}

func (l *Library) TextCountRects(text TextPage, start, count int) int {
	return int(l.fpdfTextCountRects(uintptr(text), int32(start), int32(count)))
}

func (l *Library) TextGetRect(text TextPage, index int) (left, top, right, bottom float64, ok bool) {
	ok = l.fpdfTextGetRect(uintptr(text), int32(index),
		unsafe.Pointer(&left), unsafe.Pointer(&top), unsafe.Pointer(&right), unsafe.Pointer(&bottom)) != 0
	return
}

func (l *Library) TextGetFontSize(text TextPage, index int) float64 {
	return l.fpdfTextGetFontSize(uintptr(text), int32(index))
}

func (l *Library) TextFindStart(text TextPage, query string, flags, start int) Search {
	wide, err := wideString(query)
	if err != nil {
		return 0
	}
	search := Search(l.fpdfTextFindStart(uintptr(text), unsafe.Pointer(&wide[0]), uint64(flags), int32(start)))
	runtime.KeepAlive(wide)
	return search
}

func (l *Library) TextFindNext(search Search) bool { return l.fpdfTextFindNext(uintptr(search)) != 0 }
func (l *Library) TextFindPrev(search Search) bool { return l.fpdfTextFindPrev(uintptr(search)) != 0 }

func (l *Library) TextGetSchResultIndex(search Search) int {
	return int(l.fpdfTextGetSchResultIndex(uintptr(search)))
}

func (l *Library) TextGetSchCount(search Search) int {
	return int(l.fpdfTextGetSchCount(uintptr(search)))
}

func (l *Library) TextFindClose(search Search) { l.fpdfTextFindClose(uintptr(search)) }

func (l *Library) LinkLoadWebLinks(text TextPage) PageLink {
	return PageLink(l.fpdfLinkLoadWebLinks(uintptr(text)))
}

func (l *Library) LinkCountWebLinks(links PageLink) int {
	return int(l.fpdfLinkCountWebLinks(uintptr(links)))
}

func (l *Library) LinkGetURL(links PageLink, index int, buf []uint16) int {
	return int(l.fpdfLinkGetURL(uintptr(links), int32(index), unitsPtr(buf), int32(len(buf))))
}

func (l *Library) LinkCountRects(links PageLink, index int) int {
	return int(l.fpdfLinkCountRects(uintptr(links), int32(index)))
}

func (l *Library) LinkGetRect(links PageLink, linkIndex, rectIndex int) (left, top, right, bottom float64, ok bool) {
	ok = l.fpdfLinkGetRect(uintptr(links), int32(linkIndex), int32(rectIndex),
		unsafe.Pointer(&left), unsafe.Pointer(&top), unsafe.Pointer(&right), unsafe.Pointer(&bottom)) != 0
	return
}

func (l *Library) LinkGetTextRange(links PageLink, index int) (int, int, bool) {
	var start, count int32
	ok := l.fpdfLinkGetTextRange(uintptr(links), int32(index), unsafe.Pointer(&start), unsafe.Pointer(&count)) != 0
	return int(start), int(count), ok
}

func (l *Library) LinkCloseWebLinks(links PageLink) { l.fpdfLinkCloseWebLinks(uintptr(links)) }

func (l *Library) BitmapCreateEx(width, height, format int, buf []byte, stride int) Bitmap {
	if len(buf) == 0 {
		return 0
	}
	pinner := &runtime.Pinner{}
	pinner.Pin(&buf[0])
	bitmap := Bitmap(l.fpdfBitmapCreateEx(int32(width), int32(height), int32(format), unsafe.Pointer(&buf[0]), int32(stride)))
	if bitmap == 0 {
		pinner.Unpin()
		return 0
	}
	l.mu.Lock()
	l.bitmaps[bitmap] = pinner
	l.mu.Unlock()
	return bitmap
}

func (l *Library) BitmapFillRect(bitmap Bitmap, left, top, width, height int, color uint32) {
	l.fpdfBitmapFillRect(uintptr(bitmap), int32(left), int32(top), int32(width), int32(height), uint64(color))
}

func (l *Library) BitmapDestroy(bitmap Bitmap) {
	l.fpdfBitmapDestroy(uintptr(bitmap))
	l.mu.Lock()
	pinner := l.bitmaps[bitmap]
	delete(l.bitmaps, bitmap)
	l.mu.Unlock()
	if pinner != nil {
		pinner.Unpin()
	}
}

func (l *Library) RenderPageBitmap(bitmap Bitmap, page Page, startX, startY, sizeX, sizeY, rotate, flags int) {
	l.fpdfRenderPageBitmap(uintptr(bitmap), uintptr(page), int32(startX), int32(startY), int32(sizeX), int32(sizeY), int32(rotate), int32(flags))
}

func (l *Library) RenderPageBitmapWithMatrix(bitmap Bitmap, page Page, matrix *Matrix, clip *RectF, flags int) {
	l.fpdfRenderPageBitmapWithMatrix(uintptr(bitmap), uintptr(page), unsafe.Pointer(matrix), unsafe.Pointer(clip), int32(flags))
}

func (l *Library) InitFormFillEnvironment(doc Document) FormHandle {
	pinned := &pinnedForm{info: new([formFillWords]uintptr)}
	pinned.info[0] = 1 // version
	pinned.pinner.Pin(pinned.info)
	form := FormHandle(l.fpdfdocInitFormFillEnvironment(uintptr(doc), unsafe.Pointer(pinned.info)))
	if form == 0 {
		pinned.pinner.Unpin()
		return 0
	}
	l.mu.Lock()
	l.forms[form] = pinned
	l.mu.Unlock()
	return form
}

func (l *Library) ExitFormFillEnvironment(form FormHandle) {
	l.fpdfdocExitFormFillEnvironment(uintptr(form))
	l.mu.Lock()
	pinned := l.forms[form]
	delete(l.forms, form)
	l.mu.Unlock()
	if pinned != nil {
		pinned.pinner.Unpin()
	}
}

func (l *Library) FFLDraw(form FormHandle, bitmap Bitmap, page Page, startX, startY, sizeX, sizeY, rotate, flags int) {
	l.fpdfFFLDraw(uintptr(form), uintptr(bitmap), uintptr(page), int32(startX), int32(startY), int32(sizeX), int32(sizeY), int32(rotate), int32(flags))
}

// cString returns a NUL terminated copy of s, or nil for the empty string.
func cString(s string) []byte {
	if s == "" {
		return nil
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func unitsPtr(u []uint16) unsafe.Pointer {
	if len(u) == 0 {
		return nil
	}
	return unsafe.Pointer(&u[0])
}

// wideString encodes s as a NUL terminated UTF-16LE FPDF_WIDESTRING.
func wideString(s string) ([]byte, error) {
	encoded, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return append(encoded, 0, 0), nil
}
