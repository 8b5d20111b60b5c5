package thumbnail

import (
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

// orientationUpright is the EXIF orientation of an image that needs no
// transform.
const orientationUpright = 1

// readOrientation returns the EXIF orientation tag of an encoded image, or
// orientationUpright when the image has no EXIF block or no such tag.
func readOrientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return orientationUpright
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return orientationUpright
	}

	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		if v, ok := entry.Value.([]uint16); ok && len(v) > 0 {
			return validOrientation(int(v[0]))
		}
		if n, err := strconv.Atoi(strings.Trim(entry.Formatted, "[] ")); err == nil {
			return validOrientation(n)
		}
	}
	return orientationUpright
}

func validOrientation(n int) int {
	if n < 1 || n > 8 {
		return orientationUpright
	}
	return n
}

// applyOrientation transforms img so that it is displayed upright.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
