package wan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDimension_TextMode(t *testing.T) {
	tests := []struct {
		res   Resolution
		ratio AspectRatio
		want  string
	}{
		{Resolution1080P, Ratio16x9, "1920x1080"},
		{Resolution1080P, Ratio9x16, "1080x1920"},
		{Resolution1080P, Ratio1x1, "1440x1440"},
		{Resolution1080P, Ratio4x3, "1632x1248"},
		{Resolution1080P, Ratio3x4, "1248x1632"},
		{Resolution480P, Ratio16x9, "832x480"},
		{Resolution480P, Ratio9x16, "480x832"},
		{Resolution480P, Ratio1x1, "624x624"},
		// 480P has no 4:3 or 3:4; orientation is kept.
		{Resolution480P, Ratio4x3, "832x480"},
		{Resolution480P, Ratio3x4, "480x832"},
	}

	for _, tt := range tests {
		t.Run(string(tt.res)+"_"+string(tt.ratio), func(t *testing.T) {
			dim := ResolveDimension(tt.res, tt.ratio, ModeText)
			assert.Equal(t, tt.want, dim.Size)
			assert.Empty(t, dim.Resolution)
		})
	}
}

func TestResolveDimension_Fallbacks(t *testing.T) {
	t.Run("unknown resolution uses default size", func(t *testing.T) {
		assert.Equal(t, DefaultSize, ResolveDimension("720P", Ratio9x16, ModeText).Size)
		assert.Equal(t, DefaultSize, ResolveDimension("", "", ModeText).Size)
	})

	t.Run("unknown ratio uses the tier's landscape size", func(t *testing.T) {
		assert.Equal(t, "1920x1080", ResolveDimension(Resolution1080P, "21:9", ModeText).Size)
		assert.Equal(t, "832x480", ResolveDimension(Resolution480P, "", ModeText).Size)
	})

	t.Run("empty mode is treated like text", func(t *testing.T) {
		assert.Equal(t, "1080x1920", ResolveDimension(Resolution1080P, Ratio9x16, "").Size)
	})
}

func TestResolveDimension_ImageMode(t *testing.T) {
	tests := []struct {
		res  Resolution
		want string
	}{
		{Resolution480P, "480P"},
		{Resolution1080P, "1080P"},
		{"4K", "1080P"},
		{"", "1080P"},
	}

	for _, tt := range tests {
		t.Run(string(tt.res), func(t *testing.T) {
			// The ratio axis does not exist for image mode.
			dim := ResolveDimension(tt.res, Ratio3x4, ModeImage)
			assert.Equal(t, tt.want, dim.Resolution)
			assert.Empty(t, dim.Size)
		})
	}
}

func TestResolveDimension_IsTotal(t *testing.T) {
	resolutions := []Resolution{Resolution480P, Resolution1080P, "", "720P", "garbage"}
	ratios := []AspectRatio{Ratio16x9, Ratio9x16, Ratio1x1, Ratio4x3, Ratio3x4, "", "2:1"}
	modes := []Mode{ModeText, ModeImage, "", "audio"}

	for _, res := range resolutions {
		for _, ratio := range ratios {
			for _, mode := range modes {
				assert.NotPanics(t, func() {
					dim := ResolveDimension(res, ratio, mode)
					assert.True(t, (dim.Size == "") != (dim.Resolution == ""),
						"exactly one of size/resolution for %s %s %s", res, ratio, mode)
				})
			}
		}
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(Resolution1080P, Ratio4x3))
	assert.True(t, IsSupported(Resolution480P, Ratio1x1))
	assert.False(t, IsSupported(Resolution480P, Ratio4x3))
	assert.False(t, IsSupported(Resolution480P, Ratio3x4))
	assert.False(t, IsSupported("720P", Ratio16x9))
}
