// Package native describes the PDFium C ABI consumed by the bridge and
// provides a purego binding to a shared libpdfium.
//
// Every engine resource is an opaque pointer-sized value. A zero value means
// the engine returned NULL. Functions that fill caller buffers follow the
// engine's two-phase convention: called with a nil buffer they report the
// required size, called again with a large enough buffer they fill it.
package native

// Opaque engine handles.
type (
	Document   uintptr
	Page       uintptr
	TextPage   uintptr
	Bitmap     uintptr
	Bookmark   uintptr
	Dest       uintptr
	Link       uintptr
	Action     uintptr
	Search     uintptr
	PageLink   uintptr
	FormHandle uintptr
)

// ErrorCode is the value reported by FPDF_GetLastError.
type ErrorCode uint64

const (
	ErrSuccess ErrorCode = iota
	ErrUnknown
	ErrFile
	ErrFormat
	ErrPassword
	ErrSecurity
	ErrPage
)

func (c ErrorCode) String() string {
	switch c {
	case ErrSuccess:
		return "no error"
	case ErrFile:
		return "file not found or could not be opened"
	case ErrFormat:
		return "file not in PDF format or corrupted"
	case ErrPassword:
		return "incorrect password"
	case ErrSecurity:
		return "unsupported security scheme"
	case ErrPage:
		return "page not found or content error"
	default:
		return "unknown error"
	}
}

// Bitmap formats accepted by BitmapCreateEx.
const (
	BitmapGray = 1
	BitmapBGR  = 2
	BitmapBGRx = 3
	BitmapBGRA = 4
)

// Render flags.
const (
	FlagAnnot            = 0x01
	FlagLCDText          = 0x02
	FlagNoNativeText     = 0x04
	FlagGrayscale        = 0x08
	FlagReverseByteOrder = 0x10
)

// Save flags for SaveAsCopy.
const (
	SaveIncremental    = 1
	SaveNoIncremental  = 2
	SaveRemoveSecurity = 3
)

// Search flags for TextFindStart.
const (
	MatchCase      = 0x01
	MatchWholeWord = 0x02
	Consecutive    = 0x04
)

// Box selects one of the page boundary boxes.
type Box int

const (
	BoxMedia Box = iota
	BoxCrop
	BoxBleed
	BoxTrim
	BoxArt
)

// RectF mirrors FS_RECTF.
type RectF struct {
	Left, Top, Right, Bottom float32
}

// Matrix mirrors FS_MATRIX: x' = a*x + c*y + e, y' = b*x + d*y + f.
type Matrix struct {
	A, B, C, D, E, F float32
}

// FileAccess is the custom loader handed to LoadCustomDocument. GetBlock
// reads len(buf) bytes at position and reports success.
type FileAccess struct {
	Length   uint64
	GetBlock func(position uint64, buf []byte) bool
}

// Lifecycle covers process-wide engine initialization.
type Lifecycle interface {
	InitLibrary()
	DestroyLibrary()
	GetLastError() ErrorCode
}

// Documents covers document level calls.
type Documents interface {
	LoadMemDocument(data []byte, password string) Document
	LoadCustomDocument(access *FileAccess, password string) Document
	CloseDocument(doc Document)
	GetPageCount(doc Document) int
	GetPageSizeByIndex(doc Document, index int) (width, height float64, ok bool)
	SaveAsCopy(doc Document, write func(block []byte) bool, flags int) bool
	// GetMetaText returns the byte length of the UTF-16LE value including
	// its two byte terminator.
	GetMetaText(doc Document, tag string, buf []byte) int

	BookmarkFirstChild(doc Document, parent Bookmark) Bookmark
	BookmarkNextSibling(doc Document, bookmark Bookmark) Bookmark
	// BookmarkGetTitle returns the byte length of the UTF-16LE title
	// including its terminator.
	BookmarkGetTitle(bookmark Bookmark, buf []byte) int
	BookmarkGetDest(doc Document, bookmark Bookmark) Dest
	DestGetPageIndex(doc Document, dest Dest) int
}

// Pages covers page level calls.
type Pages interface {
	LoadPage(doc Document, index int) Page
	ClosePage(page Page)
	DeletePage(doc Document, index int)
	GetPageWidth(page Page) float64
	GetPageHeight(page Page) float64
	GetPageRotation(page Page) int
	GetPageBox(page Page, box Box) (RectF, bool)
	GetPageBoundingBox(page Page) (RectF, bool)
	PageToDevice(page Page, startX, startY, sizeX, sizeY, rotate int, pageX, pageY float64) (x, y int, ok bool)
	DeviceToPage(page Page, startX, startY, sizeX, sizeY, rotate, deviceX, deviceY int) (x, y float64, ok bool)

	LinkEnumerate(page Page, pos *int) (Link, bool)
	LinkAtPoint(page Page, x, y float64) Link
	LinkGetDest(doc Document, link Link) Dest
	LinkGetAction(link Link) Action
	// ActionGetURIPath returns the byte length of the ASCII URI including
	// its NUL terminator.
	ActionGetURIPath(doc Document, action Action, buf []byte) int
	LinkGetAnnotRect(link Link) (RectF, bool)
}

// Text covers text extraction, search and web links.
type Text interface {
	TextLoadPage(page Page) TextPage
	TextClosePage(text TextPage)
	TextCountChars(text TextPage) int
	TextGetUnicode(text TextPage, index int) rune
	TextGetCharBox(text TextPage, index int) (left, right, bottom, top float64, ok bool)
	TextGetLooseCharBox(text TextPage, index int) (RectF, bool)
	TextGetCharIndexAtPos(text TextPage, x, y, xTolerance, yTolerance float64) int
	// TextGetText writes at most len(buf) UTF-16 units including the
	// terminator and returns the number written.
	TextGetText(text TextPage, start, count int, buf []uint16) int
	// TextGetBoundedText returns the number of UTF-16 units (no terminator);
	// with a nil buffer it only counts.
	TextGetBoundedText(text TextPage, left, top, right, bottom float64, buf []uint16) int
	TextCountRects(text TextPage, start, count int) int
	TextGetRect(text TextPage, index int) (left, top, right, bottom float64, ok bool)
	TextGetFontSize(text TextPage, index int) float64

	TextFindStart(text TextPage, query string, flags, start int) Search
	TextFindNext(search Search) bool
	TextFindPrev(search Search) bool
	TextGetSchResultIndex(search Search) int
	TextGetSchCount(search Search) int
	TextFindClose(search Search)

	LinkLoadWebLinks(text TextPage) PageLink
	LinkCountWebLinks(links PageLink) int
	// LinkGetURL returns the UTF-16 units needed including the terminator
	// when buf is nil, otherwise the number written.
	LinkGetURL(links PageLink, index int, buf []uint16) int
	LinkCountRects(links PageLink, index int) int
	LinkGetRect(links PageLink, linkIndex, rectIndex int) (left, top, right, bottom float64, ok bool)
	LinkGetTextRange(links PageLink, index int) (start, count int, ok bool)
	LinkCloseWebLinks(links PageLink)
}

// Rasterizer is the subset used by the compositor.
type Rasterizer interface {
	// BitmapCreateEx wraps buf, which must stay valid until BitmapDestroy.
	BitmapCreateEx(width, height, format int, buf []byte, stride int) Bitmap
	// BitmapFillRect fills with an 0xAARRGGBB color in the engine's native
	// BGRA layout.
	BitmapFillRect(bitmap Bitmap, left, top, width, height int, color uint32)
	BitmapDestroy(bitmap Bitmap)
	GetPageWidth(page Page) float64
	GetPageHeight(page Page) float64
	RenderPageBitmap(bitmap Bitmap, page Page, startX, startY, sizeX, sizeY, rotate, flags int)
	RenderPageBitmapWithMatrix(bitmap Bitmap, page Page, matrix *Matrix, clip *RectF, flags int)

	InitFormFillEnvironment(doc Document) FormHandle
	ExitFormFillEnvironment(form FormHandle)
	FFLDraw(form FormHandle, bitmap Bitmap, page Page, startX, startY, sizeX, sizeY, rotate, flags int)
}

// Engine is the whole C ABI surface.
type Engine interface {
	Lifecycle
	Documents
	Pages
	Text
	Rasterizer
}
