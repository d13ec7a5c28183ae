package firmware

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hexRecord builds one Intel HEX data record with a computed checksum.
func hexRecord(addr uint16, data []byte) string {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr)
	var sb strings.Builder
	fmt.Fprintf(&sb, ":%02X%04X00", len(data), addr)
	for _, b := range data {
		fmt.Fprintf(&sb, "%02X", b)
		sum += b
	}
	fmt.Fprintf(&sb, "%02X\n", byte(-sum))
	return sb.String()
}

const hexEOF = ":00000001FF\n"

func TestLoadBytesPlainHex(t *testing.T) {
	hex := hexRecord(0x0000, []byte{0x0C, 0x94, 0x5C, 0x00}) +
		hexRecord(0x0004, []byte{0xAA, 0xBB}) +
		hexEOF

	img, err := LoadBytes([]byte(hex))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), img.Base)
	assert.Equal(t, []byte{0x0C, 0x94, 0x5C, 0x00, 0xAA, 0xBB}, img.Data)
}

func TestLoadBytesGapZeroFilled(t *testing.T) {
	hex := hexRecord(0x0010, []byte{0x01, 0x02}) +
		hexRecord(0x0020, []byte{0x03}) +
		hexEOF

	img, err := LoadBytes([]byte(hex))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10), img.Base)
	require.Len(t, img.Data, 0x11)
	assert.Equal(t, byte(0x01), img.Data[0])
	assert.Equal(t, byte(0x02), img.Data[1])
	for i := 2; i < 0x10; i++ {
		assert.Zero(t, img.Data[i], "gap byte %d", i)
	}
	assert.Equal(t, byte(0x03), img.Data[0x10])
}

func TestLoadBytesBadChecksum(t *testing.T) {
	_, err := LoadBytes([]byte(":020000000C9400\n" + hexEOF))
	assert.Error(t, err)
}

func TestLoadBytesEmptyHex(t *testing.T) {
	_, err := LoadBytes([]byte(hexEOF))
	assert.ErrorIs(t, err, ErrNoImage)
}

func zipWith(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestLoadBytesArchive(t *testing.T) {
	hex := hexRecord(0x0000, []byte{0xDE, 0xAD}) + hexEOF
	raw := zipWith(t, map[string]string{
		"info.json":     `{"title":"demo"}`,
		"demo/game.HEX": hex,
	})

	img, err := LoadBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD}, img.Data)
}

func TestLoadBytesArchiveWithoutHex(t *testing.T) {
	raw := zipWith(t, map[string]string{"readme.txt": "nothing here"})
	_, err := LoadBytes(raw)
	assert.ErrorIs(t, err, ErrNoHexInZip)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.hex")
	hex := hexRecord(0x0000, []byte{0x55}) + hexEOF
	require.NoError(t, os.WriteFile(path, []byte(hex), 0o644))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55}, img.Data)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.hex"))
	assert.Error(t, err)
}
