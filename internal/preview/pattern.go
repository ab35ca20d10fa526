package preview

import "image/color"

// Bars are the SMPTE-style colors the test pattern cycles through.
var Bars = []color.RGBA{
	{235, 235, 235, 255}, // white
	{235, 235, 16, 255},  // yellow
	{16, 235, 235, 255},  // cyan
	{16, 235, 16, 255},   // green
	{235, 16, 235, 255},  // magenta
	{235, 16, 16, 255},   // red
	{16, 16, 235, 255},   // blue
	{16, 16, 16, 255},    // black
}

// Pattern returns a width x height frame of vertical color bars encoded as
// packed Y, Cb, Cr bytes, shifted left by offset pixels.
func Pattern(width, height, offset int) []byte {
	ycc := make([][3]byte, len(Bars))
	for i, c := range Bars {
		y, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
		ycc[i] = [3]byte{y, cb, cr}
	}

	pix := make([]byte, width*height*3)
	for x := 0; x < width; x++ {
		bar := (((x+offset)%width + width) % width) * len(Bars) / width
		v := ycc[bar]
		for y := 0; y < height; y++ {
			i := (y*width + x) * 3
			pix[i+0] = v[0]
			pix[i+1] = v[1]
			pix[i+2] = v[2]
		}
	}
	return pix
}
