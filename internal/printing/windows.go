//go:build windows

package printing

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"

	"github.com/oukek/printagent/internal/imagefit"
)

// windowsBackend speaks to the native spooler through winspool.drv and
// draws pages through GDI. Native calls are not cancellable, so the
// context is only honored between printers during enumeration.
type windowsBackend struct{}

func newWindowsBackend() *windowsBackend { return &windowsBackend{} }

var (
	winspool = windows.NewLazySystemDLL("winspool.drv")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")

	procEnumPrintersW       = winspool.NewProc("EnumPrintersW")
	procOpenPrinterW        = winspool.NewProc("OpenPrinterW")
	procClosePrinter        = winspool.NewProc("ClosePrinter")
	procGetPrinterW         = winspool.NewProc("GetPrinterW")
	procGetDefaultPrinterW  = winspool.NewProc("GetDefaultPrinterW")
	procDeviceCapabilitiesW = winspool.NewProc("DeviceCapabilitiesW")
	procDocumentPropertiesW = winspool.NewProc("DocumentPropertiesW")

	procCreateDCW     = gdi32.NewProc("CreateDCW")
	procDeleteDC      = gdi32.NewProc("DeleteDC")
	procStartDocW     = gdi32.NewProc("StartDocW")
	procEndDoc        = gdi32.NewProc("EndDoc")
	procStartPage     = gdi32.NewProc("StartPage")
	procEndPage       = gdi32.NewProc("EndPage")
	procGetDeviceCaps = gdi32.NewProc("GetDeviceCaps")
	procStretchDIBits = gdi32.NewProc("StretchDIBits")
)

const (
	printerEnumLocal       = 0x00000002
	printerEnumConnections = 0x00000004

	// DeviceCapabilities queries for the paper triad.
	dcPapers     = 2
	dcPaperSize  = 3
	dcPaperNames = 16

	// GetDeviceCaps indices.
	physicalWidth   = 110
	physicalHeight  = 111
	physicalOffsetX = 112
	physicalOffsetY = 113

	dmFieldPaperSize = 0x00000002 // DM_PAPERSIZE bit in dmFields

	dmOutBuffer = 2
	dmInBuffer  = 8

	dibRGBColors = 0
	srcCopy      = 0x00CC0020
	biRGBComp    = 0

	paperNameChars = 64 // fixed slot width of DC_PAPERNAMES entries
)

type printerInfo2 struct {
	pServerName         *uint16
	pPrinterName        *uint16
	pShareName          *uint16
	pPortName           *uint16
	pDriverName         *uint16
	pComment            *uint16
	pLocation           *uint16
	pDevMode            uintptr
	pSepFile            *uint16
	pPrintProcessor     *uint16
	pDatatype           *uint16
	pParameters         *uint16
	pSecurityDescriptor uintptr
	attributes          uint32
	priority            uint32
	defaultPriority     uint32
	startTime           uint32
	untilTime           uint32
	status              uint32
	cJobs               uint32
	averagePPM          uint32
}

type devMode struct {
	dmDeviceName       [32]uint16
	dmSpecVersion      uint16
	dmDriverVersion    uint16
	dmSize             uint16
	dmDriverExtra      uint16
	dmFields           uint32
	dmOrientation      int16
	dmPaperSize        int16
	dmPaperLength      int16
	dmPaperWidth       int16
	dmScale            int16
	dmCopies           int16
	dmDefaultSource    int16
	dmPrintQuality     int16
	dmColor            int16
	dmDuplex           int16
	dmYResolution      int16
	dmTTOption         int16
	dmCollate          int16
	dmFormName         [32]uint16
	dmLogPixels        uint16
	dmBitsPerPel       uint32
	dmPelsWidth        uint32
	dmPelsHeight       uint32
	dmDisplayFlags     uint32
	dmDisplayFrequency uint32
	dmICMMethod        uint32
	dmICMIntent        uint32
	dmMediaType        uint32
	dmDitherType       uint32
	dmReserved1        uint32
	dmReserved2        uint32
	dmPanningWidth     uint32
	dmPanningHeight    uint32
}

type docInfo struct {
	cbSize       int32
	lpszDocName  *uint16
	lpszOutput   *uint16
	lpszDatatype *uint16
	fwType       uint32
}

type bitmapInfoHeader struct {
	biSize          uint32
	biWidth         int32
	biHeight        int32
	biPlanes        uint16
	biBitCount      uint16
	biCompression   uint32
	biSizeImage     uint32
	biXPelsPerMeter int32
	biYPelsPerMeter int32
	biClrUsed       uint32
	biClrImportant  uint32
}

func (b *windowsBackend) ListPrinters(ctx context.Context) ([]Printer, error) {
	names, err := enumPrinterNames()
	if err != nil {
		return nil, fmt.Errorf("enumerate printers: %w", err)
	}

	printers := make([]Printer, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			return printers, ctx.Err()
		}
		p, err := snapshotPrinter(name)
		if err != nil {
			// One broken printer must not abort the listing; degrade
			// its entry instead.
			log.Warn().Err(err).Str("printer", name).Msg("printer query failed; degrading entry")
			p = Printer{Name: name, Status: StatusUnknown, PaperSizes: []PaperSize{}}
		} else {
			log.Debug().Str("printer", name).Str("status", StatusDescription(p.RawStatus)).
				Int("papers", len(p.PaperSizes)).Msg("printer snapshot")
		}
		printers = append(printers, p)
	}
	return printers, nil
}

func enumPrinterNames() ([]string, error) {
	flags := uintptr(printerEnumLocal | printerEnumConnections)
	var needed, returned uint32
	_, _, _ = procEnumPrintersW.Call(flags, 0, 2, 0, 0,
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if needed == 0 {
		return nil, nil
	}
	buf := make([]byte, needed)
	r1, _, callErr := procEnumPrintersW.Call(flags, 0, 2,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(needed),
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if r1 == 0 {
		return nil, callErr
	}
	if returned == 0 {
		return nil, nil
	}
	infos := unsafe.Slice((*printerInfo2)(unsafe.Pointer(&buf[0])), returned)
	names := make([]string, 0, returned)
	for i := range infos {
		if infos[i].pPrinterName != nil {
			names = append(names, windows.UTF16PtrToString(infos[i].pPrinterName))
		}
	}
	return names, nil
}

func snapshotPrinter(name string) (Printer, error) {
	h, err := openPrinter(name)
	if err != nil {
		return Printer{}, err
	}
	defer procClosePrinter.Call(h)

	info, buf, err := getPrinterInfo2(h)
	if err != nil {
		return Printer{}, err
	}
	_ = buf // keeps the pointers in info alive until we copy them out

	p := Printer{
		Name:       name,
		Driver:     utf16PtrString(info.pDriverName),
		Port:       utf16PtrString(info.pPortName),
		Status:     StatusFromCode(info.status),
		PaperSizes: queryPaperSizes(name, utf16PtrString(info.pPortName)),
	}
	if p.Status == StatusUnknown {
		p.RawStatus = info.status
	}
	if p.PaperSizes == nil {
		p.PaperSizes = []PaperSize{}
	}
	return p, nil
}

func openPrinter(name string) (uintptr, error) {
	np, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	var h uintptr
	r1, _, callErr := procOpenPrinterW.Call(
		uintptr(unsafe.Pointer(np)), uintptr(unsafe.Pointer(&h)), 0)
	if r1 == 0 {
		return 0, fmt.Errorf("open printer %q: %w", name, callErr)
	}
	return h, nil
}

func getPrinterInfo2(h uintptr) (*printerInfo2, []byte, error) {
	var needed uint32
	_, _, _ = procGetPrinterW.Call(h, 2, 0, 0, uintptr(unsafe.Pointer(&needed)))
	if needed == 0 {
		return nil, nil, fmt.Errorf("printer info size query failed")
	}
	buf := make([]byte, needed)
	r1, _, callErr := procGetPrinterW.Call(h, 2,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(needed), uintptr(unsafe.Pointer(&needed)))
	if r1 == 0 {
		return nil, nil, fmt.Errorf("printer info query failed: %w", callErr)
	}
	return (*printerInfo2)(unsafe.Pointer(&buf[0])), buf, nil
}

// queryPaperSizes runs the DeviceCapabilities triad. Each query that
// fails yields an empty sequence, which buildPaperList turns into an
// empty list when the triad disagrees.
func queryPaperSizes(name, port string) []PaperSize {
	np, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil
	}
	pp, err := windows.UTF16PtrFromString(port)
	if err != nil {
		return nil
	}

	ids := queryPaperIDs(np, pp)
	names := queryPaperNames(np, pp)
	dims := queryPaperDims(np, pp)
	return buildPaperList(ids, names, dims)
}

func deviceCapCount(np, pp *uint16, capability uintptr) int {
	r1, _, _ := procDeviceCapabilitiesW.Call(
		uintptr(unsafe.Pointer(np)), uintptr(unsafe.Pointer(pp)), capability, 0, 0)
	return int(int32(r1))
}

func queryPaperIDs(np, pp *uint16) []uint16 {
	n := deviceCapCount(np, pp, dcPapers)
	if n <= 0 {
		return nil
	}
	out := make([]uint16, n)
	r1, _, _ := procDeviceCapabilitiesW.Call(
		uintptr(unsafe.Pointer(np)), uintptr(unsafe.Pointer(pp)), dcPapers,
		uintptr(unsafe.Pointer(&out[0])), 0)
	if int(int32(r1)) <= 0 {
		return nil
	}
	return out
}

func queryPaperNames(np, pp *uint16) []string {
	n := deviceCapCount(np, pp, dcPaperNames)
	if n <= 0 {
		return nil
	}
	raw := make([]uint16, n*paperNameChars)
	r1, _, _ := procDeviceCapabilitiesW.Call(
		uintptr(unsafe.Pointer(np)), uintptr(unsafe.Pointer(pp)), dcPaperNames,
		uintptr(unsafe.Pointer(&raw[0])), 0)
	if int(int32(r1)) <= 0 {
		return nil
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		slot := raw[i*paperNameChars : (i+1)*paperNameChars]
		names[i] = windows.UTF16ToString(slot)
	}
	return names
}

func queryPaperDims(np, pp *uint16) []paperDim {
	n := deviceCapCount(np, pp, dcPaperSize)
	if n <= 0 {
		return nil
	}
	out := make([]paperDim, n)
	r1, _, _ := procDeviceCapabilitiesW.Call(
		uintptr(unsafe.Pointer(np)), uintptr(unsafe.Pointer(pp)), dcPaperSize,
		uintptr(unsafe.Pointer(&out[0])), 0)
	if int(int32(r1)) <= 0 {
		return nil
	}
	return out
}

func defaultPrinterName() (string, error) {
	var size uint32
	_, _, _ = procGetDefaultPrinterW.Call(0, uintptr(unsafe.Pointer(&size)))
	if size == 0 {
		return "", fmt.Errorf("no default printer configured")
	}
	buf := make([]uint16, size)
	r1, _, callErr := procGetDefaultPrinterW.Call(
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r1 == 0 {
		return "", fmt.Errorf("query default printer: %w", callErr)
	}
	return windows.UTF16ToString(buf), nil
}

// DefaultPrinter reports the user's configured default printer.
func (b *windowsBackend) DefaultPrinter(context.Context) (string, error) {
	return defaultPrinterName()
}

func (b *windowsBackend) Submit(ctx context.Context, imagePath, printerName, paperSize string) error {
	if printerName == "" {
		name, err := defaultPrinterName()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubmission, err)
		}
		printerName = name
	}

	img, err := imagefit.LoadImage(imagePath)
	if err != nil {
		return fmt.Errorf("%w: load image: %v", ErrSubmission, err)
	}

	// Select the requested paper on the devmode when it matches one of
	// the printer's advertised sizes; no match means we print with the
	// device defaults rather than failing the job.
	var dmBuf []byte
	if paperSize != "" {
		dmBuf = devmodeForPaper(printerName, paperSize)
	}

	hdc, err := createPrinterDC(printerName, dmBuf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer procDeleteDC.Call(hdc)

	pageW := getDeviceCaps(hdc, physicalWidth)
	pageH := getDeviceCaps(hdc, physicalHeight)
	offX := getDeviceCaps(hdc, physicalOffsetX)
	offY := getDeviceCaps(hdc, physicalOffsetY)

	imgW := img.Bounds().Dx()
	imgH := img.Bounds().Dy()

	// Fitting already happened upstream at the target DPI; this guard
	// only shrinks further when the device page is still smaller.
	destW, destH := imgW, imgH
	if destW > pageW || destH > pageH {
		sx := float64(pageW) / float64(destW)
		sy := float64(pageH) / float64(destH)
		s := sx
		if sy < sx {
			s = sy
		}
		destW = int(float64(destW) * s)
		destH = int(float64(destH) * s)
	}

	// Centered horizontally, top-aligned vertically, shifted by the
	// device's physical margin offsets.
	x := offX + (pageW-destW)/2
	y := offY

	log.Debug().
		Str("printer", printerName).
		Int("page_w", pageW).Int("page_h", pageH).
		Int("dest_w", destW).Int("dest_h", destH).
		Int("x", x).Int("y", y).
		Msg("placing image on device page")

	if err := drawImage(hdc, img, x, y, destW, destH); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	return nil
}

// devmodeForPaper fetches the printer's devmode, sets the paper id
// matching the requested size name, and merges it back through the
// driver. Returns nil when the lookup or any spooler call fails.
func devmodeForPaper(printerName, paperSize string) []byte {
	h, err := openPrinter(printerName)
	if err != nil {
		log.Warn().Err(err).Str("printer", printerName).Msg("cannot open printer for paper selection")
		return nil
	}
	defer procClosePrinter.Call(h)

	np, err := windows.UTF16PtrFromString(printerName)
	if err != nil {
		return nil
	}

	size, _, _ := procDocumentPropertiesW.Call(0, h, uintptr(unsafe.Pointer(np)), 0, 0, 0)
	if int(int32(size)) <= 0 {
		return nil
	}
	buf := make([]byte, int(int32(size)))
	r1, _, _ := procDocumentPropertiesW.Call(0, h, uintptr(unsafe.Pointer(np)),
		uintptr(unsafe.Pointer(&buf[0])), 0, dmOutBuffer)
	if int(int32(r1)) < 0 {
		return nil
	}

	var port string
	if info, ibuf, err := getPrinterInfo2(h); err == nil {
		port = utf16PtrString(info.pPortName)
		_ = ibuf
	}
	match, ok := Printer{PaperSizes: queryPaperSizes(printerName, port)}.FindPaper(paperSize)
	if !ok {
		log.Debug().Str("printer", printerName).Str("paper", paperSize).
			Msg("paper size not advertised; printing with device defaults")
		return nil
	}

	dm := (*devMode)(unsafe.Pointer(&buf[0]))
	dm.dmPaperSize = int16(match.ID)
	dm.dmFields |= dmFieldPaperSize

	r1, _, _ = procDocumentPropertiesW.Call(0, h, uintptr(unsafe.Pointer(np)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&buf[0])),
		dmInBuffer|dmOutBuffer)
	if int(int32(r1)) < 0 {
		return nil
	}
	return buf
}

func createPrinterDC(printerName string, dmBuf []byte) (uintptr, error) {
	np, err := windows.UTF16PtrFromString(printerName)
	if err != nil {
		return 0, err
	}
	var dmPtr uintptr
	if len(dmBuf) > 0 {
		dmPtr = uintptr(unsafe.Pointer(&dmBuf[0]))
	}
	hdc, _, callErr := procCreateDCW.Call(0, uintptr(unsafe.Pointer(np)), 0, dmPtr)
	if hdc == 0 {
		return 0, fmt.Errorf("create printer DC for %q: %w", printerName, callErr)
	}
	return hdc, nil
}

func getDeviceCaps(hdc uintptr, index uintptr) int {
	r1, _, _ := procGetDeviceCaps.Call(hdc, index)
	return int(int32(r1))
}

// drawImage runs the single-page document: StartDoc, StartPage, blit,
// EndPage, EndDoc.
func drawImage(hdc uintptr, img image.Image, x, y, destW, destH int) error {
	docName, err := windows.UTF16PtrFromString("printagent image")
	if err != nil {
		return err
	}
	di := docInfo{cbSize: int32(unsafe.Sizeof(docInfo{})), lpszDocName: docName}

	if r1, _, callErr := procStartDocW.Call(hdc, uintptr(unsafe.Pointer(&di))); int(int32(r1)) <= 0 {
		return fmt.Errorf("StartDoc: %w", callErr)
	}
	if r1, _, callErr := procStartPage.Call(hdc); int(int32(r1)) <= 0 {
		procEndDoc.Call(hdc)
		return fmt.Errorf("StartPage: %w", callErr)
	}

	bits, srcW, srcH := toTopDownBGRA(img)
	bmi := bitmapInfoHeader{
		biSize:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		biWidth:       int32(srcW),
		biHeight:      -int32(srcH), // negative height = top-down rows
		biPlanes:      1,
		biBitCount:    32,
		biCompression: biRGBComp,
	}

	r1, _, callErr := procStretchDIBits.Call(hdc,
		uintptr(x), uintptr(y), uintptr(destW), uintptr(destH),
		0, 0, uintptr(srcW), uintptr(srcH),
		uintptr(unsafe.Pointer(&bits[0])), uintptr(unsafe.Pointer(&bmi)),
		dibRGBColors, srcCopy)

	procEndPage.Call(hdc)
	procEndDoc.Call(hdc)

	if int(int32(r1)) <= 0 {
		return fmt.Errorf("StretchDIBits: %w", callErr)
	}
	return nil
}

// toTopDownBGRA converts any image into the 32bpp BGRA layout GDI
// expects for DIB blits.
func toTopDownBGRA(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	out := make([]byte, w*h*4)
	for yy := 0; yy < h; yy++ {
		row := rgba.Pix[yy*rgba.Stride : yy*rgba.Stride+w*4]
		dst := out[yy*w*4 : (yy+1)*w*4]
		for xx := 0; xx < w; xx++ {
			dst[xx*4+0] = row[xx*4+2] // B
			dst[xx*4+1] = row[xx*4+1] // G
			dst[xx*4+2] = row[xx*4+0] // R
			dst[xx*4+3] = row[xx*4+3] // A
		}
	}
	return out, w, h
}

func utf16PtrString(p *uint16) string {
	if p == nil {
		return ""
	}
	return windows.UTF16PtrToString(p)
}
