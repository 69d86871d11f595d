package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"
)

// GPS holds a recording location parsed from container metadata.
type GPS struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
}

// Binary scan windows for the coordinate search. Cameras write the ©xyz
// atom either into the leading moov box or, for faststart-less files, after
// the media data at the tail.
const (
	gpsHeadWindow = 50 * 1024 * 1024
	gpsTailWindow = 5 * 1024 * 1024
)

// mp4Epoch is the QuickTime/MP4 timestamp epoch (1904-01-01 UTC).
var mp4Epoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

// iso6709Re matches an ISO 6709 coordinate string like "+35.6580+139.7016+040.000/".
var iso6709Re = regexp.MustCompile(`([+-]\d{1,3}\.\d+)([+-]\d{1,3}\.\d+)([+-]\d+(?:\.\d+)?)?/`)

// ProbeCreationTime walks the MP4/QuickTime box structure for the mvhd
// creation timestamp. Returns the zero time when the file is not an
// ISO-BMFF container or carries no usable timestamp.
func ProbeCreationTime(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("meta: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return time.Time{}, fmt.Errorf("meta: stat %s: %w", path, err)
	}

	moovOffset, moovSize, err := findBox(f, 0, info.Size(), "moov")
	if err != nil {
		return time.Time{}, nil //nolint:nilerr // not a container; caller falls back
	}

	mvhdOffset, mvhdSize, err := findBox(f, moovOffset+8, moovOffset+moovSize, "mvhd")
	if err != nil {
		return time.Time{}, nil //nolint:nilerr // container without mvhd
	}

	return readMvhdCreation(f, mvhdOffset, mvhdSize)
}

// findBox scans top-level boxes in [start+?, end) for the given four-char
// type, returning the box's offset and total size.
func findBox(r io.ReaderAt, start, end int64, boxType string) (int64, int64, error) {
	var header [8]byte

	offset := start
	for offset+8 <= end {
		if _, err := r.ReadAt(header[:], offset); err != nil {
			return 0, 0, err
		}

		size := int64(binary.BigEndian.Uint32(header[:4]))
		typ := string(header[4:8])

		// 64-bit extended size.
		if size == 1 {
			var ext [8]byte
			if _, err := r.ReadAt(ext[:], offset+8); err != nil {
				return 0, 0, err
			}

			size = int64(binary.BigEndian.Uint64(ext[:])) //nolint:gosec // box sizes fit in int64
		}

		if size < 8 {
			return 0, 0, errors.New("meta: malformed box size")
		}

		if typ == boxType {
			return offset, size, nil
		}

		offset += size
	}

	return 0, 0, fmt.Errorf("meta: box %s not found", boxType)
}

// readMvhdCreation extracts the creation timestamp from an mvhd box.
func readMvhdCreation(r io.ReaderAt, offset, size int64) (time.Time, error) {
	// version(1) flags(3) then creation time: uint32 for v0, uint64 for v1.
	var version [1]byte
	if _, err := r.ReadAt(version[:], offset+8); err != nil {
		return time.Time{}, nil //nolint:nilerr // truncated box
	}

	var seconds int64

	if version[0] == 1 {
		if size < 8+4+16 {
			return time.Time{}, nil
		}

		var buf [8]byte
		if _, err := r.ReadAt(buf[:], offset+12); err != nil {
			return time.Time{}, nil //nolint:nilerr
		}

		seconds = int64(binary.BigEndian.Uint64(buf[:])) //nolint:gosec // mp4 timestamps fit in int64
	} else {
		var buf [4]byte
		if _, err := r.ReadAt(buf[:], offset+12); err != nil {
			return time.Time{}, nil //nolint:nilerr
		}

		seconds = int64(binary.BigEndian.Uint32(buf[:]))
	}

	// Zero means "not recorded". Some encoders also write the unix epoch
	// rendered in mp4 time; treat anything before 1970 as absent.
	t := mp4Epoch.Add(time.Duration(seconds) * time.Second)
	if seconds == 0 || t.Year() < 1970 {
		return time.Time{}, nil
	}

	return t, nil
}

// ScanGPS searches the file's metadata regions for an ISO 6709 coordinate
// string. The first 50 MiB and, for larger files, the last 5 MiB are
// scanned. Returns nil when no coordinate is present.
func ScanGPS(path string) (*GPS, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meta: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("meta: stat %s: %w", path, err)
	}

	head := make([]byte, min(info.Size(), gpsHeadWindow))
	if _, err := io.ReadFull(f, head); err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("meta: reading %s: %w", path, err)
	}

	if gps := parseISO6709(head); gps != nil {
		return gps, nil
	}

	if info.Size() > gpsHeadWindow {
		tail := make([]byte, gpsTailWindow)
		if _, err := f.ReadAt(tail, info.Size()-gpsTailWindow); err != nil && err != io.EOF {
			return nil, fmt.Errorf("meta: reading tail of %s: %w", path, err)
		}

		if gps := parseISO6709(tail); gps != nil {
			return gps, nil
		}
	}

	return nil, nil //nolint:nilnil // sentinel for "no coordinates"
}

// parseISO6709 extracts the first coordinate match from a byte region.
func parseISO6709(data []byte) *GPS {
	m := iso6709Re.FindSubmatch(data)
	if m == nil {
		return nil
	}

	lat, latErr := strconv.ParseFloat(string(m[1]), 64)
	lng, lngErr := strconv.ParseFloat(string(m[2]), 64)

	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}

	gps := &GPS{Latitude: lat, Longitude: lng}

	if len(m[3]) > 0 {
		if alt, err := strconv.ParseFloat(string(m[3]), 64); err == nil {
			gps.Altitude = &alt
		}
	}

	return gps
}
