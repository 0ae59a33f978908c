package pptx

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/richardlehane/mscfb"
)

var (
	// ErrUnsupported is returned for files that are not presentations.
	ErrUnsupported = errors.New("unsupported file format")
	// ErrLegacyFormat is returned for binary PowerPoint 97-2003 files.
	ErrLegacyFormat = errors.New("legacy .ppt format is not supported, save the file as .pptx first")
	// ErrEncrypted is returned for password protected presentations.
	ErrEncrypted = errors.New("presentation is encrypted")
)

// Format represents a presentation container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatPPTX
	FormatPPT       // PowerPoint 97-2003 binary
	FormatEncrypted // OOXML wrapped in an encrypted OLE container
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatPPTX:
		return "pptx"
	case FormatPPT:
		return "ppt"
	case FormatEncrypted:
		return "encrypted"
	default:
		return "unknown"
	}
}

// DetectFormat detects the presentation format from the file path.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pptx", ".pptm", ".potx", ".ppsx":
		return FormatPPTX
	case ".ppt", ".pps", ".pot":
		return FormatPPT
	default:
		return FormatUnknown
	}
}

// DetectFormatFromReader detects the format by reading magic bytes. OLE
// containers are opened to tell legacy binaries from encrypted packages.
func DetectFormatFromReader(r io.ReaderAt) (Format, error) {
	buf := make([]byte, 8)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return FormatUnknown, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if n < 4 {
		return FormatUnknown, fmt.Errorf("file too small to detect format")
	}

	// ZIP magic number
	if buf[0] == 'P' && buf[1] == 'K' {
		return FormatPPTX, nil
	}

	// OLE/CFBF magic number
	if buf[0] == 0xD0 && buf[1] == 0xCF && buf[2] == 0x11 && buf[3] == 0xE0 {
		return detectOLE(r)
	}

	return FormatUnknown, nil
}

func detectOLE(r io.ReaderAt) (Format, error) {
	doc, err := mscfb.New(r)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to read OLE container: %w", err)
	}
	format := FormatUnknown
	for _, entry := range doc.File {
		switch entry.Name {
		case "EncryptedPackage", "EncryptionInfo":
			return FormatEncrypted, nil
		case "PowerPoint Document":
			format = FormatPPT
		}
	}
	return format, nil
}

// formatError maps a detected format to the error Open reports for it.
func formatError(f Format) error {
	switch f {
	case FormatPPTX:
		return nil
	case FormatPPT:
		return ErrLegacyFormat
	case FormatEncrypted:
		return ErrEncrypted
	default:
		return ErrUnsupported
	}
}
