package wan

// DefaultSize is used when the resolution tier is unknown.
const DefaultSize = "1920x1080"

// DefaultImageResolution is used for image mode when the resolution tier is unknown.
const DefaultImageResolution = Resolution1080P

// Dimension is the provider's size encoding for one request.
// Exactly one of Size (text mode) or Resolution (image mode) is set.
type Dimension struct {
	Size       string
	Resolution string
}

// sizeTable holds the native pixel sizes per tier. 480P has no 4:3 or 3:4 entry.
var sizeTable = map[Resolution]map[AspectRatio]string{
	Resolution480P: {
		Ratio16x9: "832x480",
		Ratio9x16: "480x832",
		Ratio1x1:  "624x624",
	},
	Resolution1080P: {
		Ratio16x9: "1920x1080",
		Ratio9x16: "1080x1920",
		Ratio1x1:  "1440x1440",
		Ratio4x3:  "1632x1248",
		Ratio3x4:  "1248x1632",
	},
}

// ratioFallback keeps orientation when a tier lacks a ratio.
var ratioFallback = map[AspectRatio]AspectRatio{
	Ratio4x3: Ratio16x9,
	Ratio3x4: Ratio9x16,
}

// imageResolutions maps a tier to the image-to-video resolution token.
var imageResolutions = map[Resolution]string{
	Resolution480P:  "480P",
	Resolution1080P: "1080P",
}

// ResolveDimension maps (resolution, ratio, mode) to the provider's size encoding.
// It never fails: unsupported combinations fall back to a documented default.
func ResolveDimension(res Resolution, ratio AspectRatio, mode Mode) Dimension {
	if mode == ModeImage {
		if token, ok := imageResolutions[res]; ok {
			return Dimension{Resolution: token}
		}
		return Dimension{Resolution: string(DefaultImageResolution)}
	}

	sizes, ok := sizeTable[res]
	if !ok {
		return Dimension{Size: DefaultSize}
	}
	if size, ok := sizes[ratio]; ok {
		return Dimension{Size: size}
	}
	if alt, ok := ratioFallback[ratio]; ok {
		if size, ok := sizes[alt]; ok {
			return Dimension{Size: size}
		}
	}
	return Dimension{Size: sizes[Ratio16x9]}
}

// IsSupported reports whether the tier has a native entry for the ratio.
// Callers use it to log substitutions or to reject requests strictly.
func IsSupported(res Resolution, ratio AspectRatio) bool {
	sizes, ok := sizeTable[res]
	if !ok {
		return false
	}
	_, ok = sizes[ratio]
	return ok
}
