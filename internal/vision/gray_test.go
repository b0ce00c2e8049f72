package vision

import (
	"image"
	"image/color"
	"testing"
)

// createSolidImage creates a solid color test image
func createSolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createSplitImage creates an image whose left half is black and right
// half white
func createSplitImage(width, height int) *image.RGBA {
	img := createSolidImage(width, height, color.White)
	for y := 0; y < height; y++ {
		for x := 0; x < width/2; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func TestNewIntensityWhite(t *testing.T) {
	in := NewIntensity(createSolidImage(20, 20, color.White), false)
	if in.W != 20 || in.H != 20 {
		t.Fatalf("dimensions = %dx%d", in.W, in.H)
	}
	if v := in.At(10, 10); v < 250 {
		t.Errorf("white intensity = %v, want about 255", v)
	}
}

func TestNewIntensityBlack(t *testing.T) {
	in := NewIntensity(createSolidImage(20, 20, color.Black), false)
	if v := in.At(10, 10); v > 5 {
		t.Errorf("black intensity = %v, want about 0", v)
	}
}

func TestIntensityAtClamps(t *testing.T) {
	in := NewIntensity(createSolidImage(10, 10, color.White), false)
	if v := in.At(-5, 100); v < 250 {
		t.Errorf("clamped At = %v, want white", v)
	}
}

func TestDownscale(t *testing.T) {
	img := createSolidImage(400, 200, color.White)

	out, scale := Downscale(img, 100)
	b := out.Bounds()
	if b.Dx() != 100 {
		t.Errorf("downscaled width = %d, want 100", b.Dx())
	}
	if b.Dy() != 50 {
		t.Errorf("downscaled height = %d, want 50", b.Dy())
	}
	if scale != 0.25 {
		t.Errorf("scale = %v, want 0.25", scale)
	}
}

func TestDownscaleNoop(t *testing.T) {
	img := createSolidImage(50, 50, color.White)

	out, scale := Downscale(img, 100)
	if scale != 1.0 {
		t.Errorf("scale = %v, want 1.0", scale)
	}
	if out != image.Image(img) {
		t.Error("small image should pass through unchanged")
	}

	out2, scale2 := Downscale(img, 0)
	if scale2 != 1.0 || out2 != image.Image(img) {
		t.Error("maxDim 0 should disable downscaling")
	}
}

func TestSampleLine(t *testing.T) {
	in := NewIntensity(createSplitImage(40, 20), false)

	samples := in.SampleLine(0, 10, 39, 10)
	if len(samples) != 40 {
		t.Fatalf("sample count = %d, want 40", len(samples))
	}
	if samples[0] > 50 {
		t.Errorf("left sample = %v, want dark", samples[0])
	}
	if samples[39] < 200 {
		t.Errorf("right sample = %v, want bright", samples[39])
	}
}
