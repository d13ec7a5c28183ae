// Package firmware loads Arduboy firmware images. Intel HEX parsing is
// delegated to the gohex loader; .arduboy archives (plain zips carrying a
// .hex) are unwrapped first, detected by magic bytes.
package firmware

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marcinbor85/gohex"
)

// Image is a loaded firmware program: flat code bytes and the flash address
// they are placed at.
type Image struct {
	Data []byte
	Base uint32
}

var magicZIP = []byte{0x50, 0x4B, 0x03, 0x04}

// Safety limit for extracted archive entries. Target flash is 32 KiB; the
// hex encoding of a full image is well under 1 MiB.
const maxImageSize = 4 * 1024 * 1024

var (
	ErrNoImage    = errors.New("no firmware data in image")
	ErrNoHexInZip = errors.New("no .hex file found in archive")
	ErrTooLarge   = errors.New("firmware image too large")
)

// Load reads and parses a firmware image from disk.
func Load(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read firmware image: %w", err)
	}
	img, err := LoadBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}
	return img, nil
}

// LoadBytes parses a firmware image from memory, unwrapping a zip archive
// first when one is detected.
func LoadBytes(raw []byte) (*Image, error) {
	if bytes.HasPrefix(raw, magicZIP) {
		inner, err := extractHex(raw)
		if err != nil {
			return nil, err
		}
		raw = inner
	}
	return parseHex(raw)
}

func parseHex(raw []byte) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, ErrNoImage
	}

	// Flatten all segments into one contiguous region; gaps stay zeroed,
	// matching erased flash.
	base := segments[0].Address
	end := base
	for _, s := range segments {
		if s.Address < base {
			base = s.Address
		}
		if top := s.Address + uint32(len(s.Data)); top > end {
			end = top
		}
	}
	data := make([]byte, end-base)
	for _, s := range segments {
		copy(data[s.Address-base:], s.Data)
	}
	return &Image{Data: data, Base: base}, nil
}

func extractHex(raw []byte) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, f := range r.File {
		if !strings.EqualFold(".hex", pathExt(f.Name)) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q in archive: %w", f.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxImageSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("extract %q: %w", f.Name, err)
		}
		if len(data) > maxImageSize {
			return nil, ErrTooLarge
		}
		return data, nil
	}
	return nil, ErrNoHexInZip
}

func pathExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
